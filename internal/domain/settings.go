package domain

import (
	"context"
	"fmt"
	"time"
)

// GuildSettings holds the per-guild configuration. All fields except GuildID
// are set independently; empty string / nil means "not configured yet".
type GuildSettings struct {
	GuildID        string     `json:"guild_id"`
	Marker         string     `json:"marker,omitempty"`
	ChannelID      string     `json:"channel_id,omitempty"`
	SendDay        string     `json:"send_day,omitempty"`  // "Monday".."Sunday"
	SendTime       string     `json:"send_time,omitempty"` // "HH:MM", 24h
	LastDispatchAt *time.Time `json:"last_dispatch_at,omitempty"`
}

// DispatchReady reports whether the guild has everything a scheduled
// dispatch needs. The marker is deliberately not required: counting already
// happened at intake, the report only needs a destination and a slot.
func (s *GuildSettings) DispatchReady() bool {
	return s.ChannelID != "" && s.SendDay != "" && s.SendTime != ""
}

// SettingsRepository abstracts guild settings persistence. Field setters
// upsert, creating the settings row lazily on first write.
type SettingsRepository interface {
	Get(ctx context.Context, guildID string) (*GuildSettings, error)
	List(ctx context.Context) ([]GuildSettings, error)

	SetMarker(ctx context.Context, guildID, marker string) error
	SetChannel(ctx context.Context, guildID, channelID string) error
	SetWeekday(ctx context.Context, guildID string, weekday time.Weekday) error
	SetTime(ctx context.Context, guildID, sendTime string) error

	SetLastDispatch(ctx context.Context, guildID string, at time.Time) error
}

// ParseWeekday parses an English day name ("Monday".."Sunday").
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s == d.String() {
			return d, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}

// ValidateClock checks that s is a valid "HH:MM" 24h time of day.
func ValidateClock(s string) error {
	if _, err := time.Parse("15:04", s); err != nil {
		return fmt.Errorf("invalid time %q, expected HH:MM: %w", s, err)
	}
	return nil
}
