// Package memory provides a non-durable Store implementing the counter,
// settings, and display-name repositories. Used for development without a
// database and for repository-level tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/piabot/piastats/internal/domain"
)

type counterKey struct {
	GuildID  string
	MemberID string
}

type dailyKey struct {
	GuildID  string
	MemberID string
	Day      domain.Day
}

type counts struct {
	Sent     int64
	Received int64
}

// Store keeps everything in maps behind one mutex. The per-key atomicity the
// contract demands falls out of the lock.
type Store struct {
	mu       sync.Mutex
	counters map[counterKey]*counts
	daily    map[dailyKey]*counts
	settings map[string]*domain.GuildSettings
	names    map[counterKey]string
}

func NewStore() *Store {
	return &Store{
		counters: make(map[counterKey]*counts),
		daily:    make(map[dailyKey]*counts),
		settings: make(map[string]*domain.GuildSettings),
		names:    make(map[counterKey]string),
	}
}

// --- domain.CounterRepository ---

func (s *Store) IncrementSent(_ context.Context, guildID, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cumulative(guildID, memberID).Sent++
	return nil
}

func (s *Store) IncrementReceived(_ context.Context, guildID, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cumulative(guildID, memberID).Received++
	return nil
}

func (s *Store) IncrementDailySent(_ context.Context, guildID, memberID string, day domain.Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dailyRow(guildID, memberID, day).Sent++
	return nil
}

func (s *Store) IncrementDailyReceived(_ context.Context, guildID, memberID string, day domain.Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dailyRow(guildID, memberID, day).Received++
	return nil
}

func (s *Store) ListCumulative(_ context.Context, guildID string) ([]domain.MemberCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.MemberCount
	for key, c := range s.counters {
		if key.GuildID != guildID {
			continue
		}
		out = append(out, domain.MemberCount{MemberID: key.MemberID, Sent: c.Sent, Received: c.Received})
	}
	return out, nil
}

func (s *Store) SumWindow(_ context.Context, guildID string, start, endExclusive domain.Day) ([]domain.MemberCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sums := make(map[string]*counts)
	for key, c := range s.daily {
		if key.GuildID != guildID || key.Day < start || key.Day >= endExclusive {
			continue
		}
		sum, ok := sums[key.MemberID]
		if !ok {
			sum = &counts{}
			sums[key.MemberID] = sum
		}
		sum.Sent += c.Sent
		sum.Received += c.Received
	}

	var out []domain.MemberCount
	for memberID, c := range sums {
		out = append(out, domain.MemberCount{MemberID: memberID, Sent: c.Sent, Received: c.Received})
	}
	return out, nil
}

func (s *Store) ResetMember(_ context.Context, guildID, memberID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.counters[counterKey{guildID, memberID}]; ok {
		c.Sent, c.Received = 0, 0
	}
	return nil
}

func (s *Store) ResetGuild(_ context.Context, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, c := range s.counters {
		if key.GuildID == guildID {
			c.Sent, c.Received = 0, 0
		}
	}
	return nil
}

func (s *Store) cumulative(guildID, memberID string) *counts {
	key := counterKey{guildID, memberID}
	c, ok := s.counters[key]
	if !ok {
		c = &counts{}
		s.counters[key] = c
	}
	return c
}

func (s *Store) dailyRow(guildID, memberID string, day domain.Day) *counts {
	key := dailyKey{guildID, memberID, day}
	c, ok := s.daily[key]
	if !ok {
		c = &counts{}
		s.daily[key] = c
	}
	return c
}

// --- domain.SettingsRepository ---

func (s *Store) Get(_ context.Context, guildID string) (*domain.GuildSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, ok := s.settings[guildID]
	if !ok {
		return nil, domain.ErrSettingsNotFound
	}
	copied := *settings
	return &copied, nil
}

func (s *Store) List(_ context.Context) ([]domain.GuildSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []domain.GuildSettings
	for _, settings := range s.settings {
		all = append(all, *settings)
	}
	return all, nil
}

func (s *Store) SetMarker(_ context.Context, guildID, marker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settingsRow(guildID).Marker = marker
	return nil
}

func (s *Store) SetChannel(_ context.Context, guildID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settingsRow(guildID).ChannelID = channelID
	return nil
}

func (s *Store) SetWeekday(_ context.Context, guildID string, weekday time.Weekday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settingsRow(guildID).SendDay = weekday.String()
	return nil
}

func (s *Store) SetTime(_ context.Context, guildID, sendTime string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settingsRow(guildID).SendTime = sendTime
	return nil
}

func (s *Store) SetLastDispatch(_ context.Context, guildID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if settings, ok := s.settings[guildID]; ok {
		t := at
		settings.LastDispatchAt = &t
	}
	return nil
}

func (s *Store) settingsRow(guildID string) *domain.GuildSettings {
	settings, ok := s.settings[guildID]
	if !ok {
		settings = &domain.GuildSettings{GuildID: guildID}
		s.settings[guildID] = settings
	}
	return settings
}

// --- domain.DisplayNameRepository ---

// Names returns the display-name view of the store. A separate view keeps
// the Get method names of the settings and name contracts from colliding.
func (s *Store) Names() domain.DisplayNameRepository {
	return nameRepo{s: s}
}

type nameRepo struct {
	s *Store
}

func (n nameRepo) Save(_ context.Context, guildID, memberID, displayName string) error {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	n.s.names[counterKey{guildID, memberID}] = displayName
	return nil
}

func (n nameRepo) Get(_ context.Context, guildID, memberID string) (string, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	name, ok := n.s.names[counterKey{guildID, memberID}]
	if !ok {
		return "", domain.ErrNameNotFound
	}
	return name, nil
}

func (n nameRepo) GetAll(_ context.Context, guildID string) (map[string]string, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	names := make(map[string]string)
	for key, name := range n.s.names {
		if key.GuildID == guildID {
			names[key.MemberID] = name
		}
	}
	return names, nil
}
