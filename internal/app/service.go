package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/piabot/piastats/internal/domain"
	"github.com/piabot/piastats/internal/metrics"
)

// Service is the application layer for marker counting and guild
// configuration. The external command/gateway layer calls into it 1:1.
type Service struct {
	counters domain.CounterRepository
	settings domain.SettingsRepository
	names    domain.DisplayNameRepository
	clock    clockwork.Clock
	loc      *time.Location
}

func NewService(
	counters domain.CounterRepository,
	settings domain.SettingsRepository,
	names domain.DisplayNameRepository,
	clock clockwork.Clock,
	loc *time.Location,
) *Service {
	return &Service{
		counters: counters,
		settings: settings,
		names:    names,
		clock:    clock,
		loc:      loc,
	}
}

// OnTaggedMessage counts one marker-tagged message: the sender's sent
// counters and each recipient's received counters, cumulative and daily.
// recipientIDs must already exclude the sender and bot accounts.
//
// Storage failures are fatal only to this event: they are logged and
// swallowed, never returned, so message handling continues.
func (s *Service) OnTaggedMessage(ctx context.Context, guildID, senderID string, recipientIDs []string, containsMarker bool, ts time.Time) {
	if !containsMarker || guildID == "" || senderID == "" {
		return
	}

	settings, err := s.settings.Get(ctx, guildID)
	if errors.Is(err, domain.ErrSettingsNotFound) {
		return
	}
	if err != nil {
		slog.WarnContext(ctx, "Failed to load settings for marker event", "guild", guildID, "error", err)
		metrics.StoreErrorsTotal.WithLabelValues("get_settings").Inc()
		return
	}
	if settings.Marker == "" {
		// Counting starts once a marker is configured.
		return
	}

	metrics.MarkerEventsTotal.Inc()
	day := domain.DayOf(ts.In(s.loc))

	s.increment(ctx, "sent", guildID, senderID, day)
	for _, recipientID := range recipientIDs {
		s.increment(ctx, "received", guildID, recipientID, day)
	}
}

func (s *Service) increment(ctx context.Context, kind, guildID, memberID string, day domain.Day) {
	var cumulativeErr, dailyErr error
	if kind == "sent" {
		cumulativeErr = s.counters.IncrementSent(ctx, guildID, memberID)
		dailyErr = s.counters.IncrementDailySent(ctx, guildID, memberID, day)
	} else {
		cumulativeErr = s.counters.IncrementReceived(ctx, guildID, memberID)
		dailyErr = s.counters.IncrementDailyReceived(ctx, guildID, memberID, day)
	}

	if cumulativeErr != nil {
		slog.WarnContext(ctx, "Failed to increment cumulative counter", "kind", kind, "guild", guildID, "member", memberID, "error", cumulativeErr)
		metrics.StoreErrorsTotal.WithLabelValues("increment_cumulative").Inc()
	} else {
		metrics.CounterIncrementsTotal.WithLabelValues(kind, "cumulative").Inc()
	}
	if dailyErr != nil {
		slog.WarnContext(ctx, "Failed to increment daily counter", "kind", kind, "guild", guildID, "member", memberID, "error", dailyErr)
		metrics.StoreErrorsTotal.WithLabelValues("increment_daily").Inc()
	} else {
		metrics.CounterIncrementsTotal.WithLabelValues(kind, "daily").Inc()
	}
}

// TotalLeaderboard returns all-time counts for a guild. Lookup failures
// surface as "no data", never as an error.
func (s *Service) TotalLeaderboard(ctx context.Context, guildID string) []domain.MemberCount {
	counts, err := s.counters.ListCumulative(ctx, guildID)
	if err != nil {
		slog.WarnContext(ctx, "Failed to list cumulative counters", "guild", guildID, "error", err)
		metrics.StoreErrorsTotal.WithLabelValues("list_cumulative").Inc()
		return nil
	}
	return counts
}

// WeeklyLeaderboard returns counts summed over the trailing seven completed
// days. Lookup failures surface as "no data", never as an error.
func (s *Service) WeeklyLeaderboard(ctx context.Context, guildID string) []domain.MemberCount {
	today := domain.DayOf(s.clock.Now().In(s.loc))
	counts, err := s.counters.SumWindow(ctx, guildID, today.AddDays(-7), today)
	if err != nil {
		slog.WarnContext(ctx, "Failed to sum counter window", "guild", guildID, "error", err)
		metrics.StoreErrorsTotal.WithLabelValues("sum_window").Inc()
		return nil
	}
	return counts
}

func (s *Service) GetSettings(ctx context.Context, guildID string) (*domain.GuildSettings, error) {
	return s.settings.Get(ctx, guildID)
}

func (s *Service) SetMarker(ctx context.Context, guildID, marker string) error {
	if marker == "" {
		return fmt.Errorf("marker must not be empty")
	}
	return s.settings.SetMarker(ctx, guildID, marker)
}

func (s *Service) SetChannel(ctx context.Context, guildID, channelID string) error {
	if channelID == "" {
		return fmt.Errorf("channel must not be empty")
	}
	return s.settings.SetChannel(ctx, guildID, channelID)
}

func (s *Service) SetWeekday(ctx context.Context, guildID, weekday string) error {
	wd, err := domain.ParseWeekday(weekday)
	if err != nil {
		return err
	}
	return s.settings.SetWeekday(ctx, guildID, wd)
}

func (s *Service) SetTime(ctx context.Context, guildID, sendTime string) error {
	if err := domain.ValidateClock(sendTime); err != nil {
		return err
	}
	return s.settings.SetTime(ctx, guildID, sendTime)
}

// ResetMember zeroes one member's cumulative counters. Daily rows stay, so
// past windows remain queryable.
func (s *Service) ResetMember(ctx context.Context, guildID, memberID string) error {
	return s.counters.ResetMember(ctx, guildID, memberID)
}

// ResetGuild zeroes every member's cumulative counters in the guild.
func (s *Service) ResetGuild(ctx context.Context, guildID string) error {
	return s.counters.ResetGuild(ctx, guildID)
}

func (s *Service) SaveDisplayName(ctx context.Context, guildID, memberID, displayName string) error {
	return s.names.Save(ctx, guildID, memberID, displayName)
}
