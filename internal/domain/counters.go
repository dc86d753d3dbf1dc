package domain

import "context"

// MemberCount holds sent/received marker totals for one member of a guild.
type MemberCount struct {
	MemberID string `json:"member_id"`
	Sent     int64  `json:"sent"`
	Received int64  `json:"received"`
}

// CounterRepository abstracts the durable counter store.
//
// Increments are atomic upserts: the first event for a key creates the row
// with the other field at zero, concurrent increments to the same key must
// not lose updates. Resets zero rows, they never delete them.
type CounterRepository interface {
	IncrementSent(ctx context.Context, guildID, memberID string) error
	IncrementReceived(ctx context.Context, guildID, memberID string) error
	IncrementDailySent(ctx context.Context, guildID, memberID string, day Day) error
	IncrementDailyReceived(ctx context.Context, guildID, memberID string, day Day) error

	// ListCumulative returns all cumulative rows for a guild.
	ListCumulative(ctx context.Context, guildID string) ([]MemberCount, error)

	// SumWindow sums daily rows per member over [start, endExclusive).
	SumWindow(ctx context.Context, guildID string, start, endExclusive Day) ([]MemberCount, error)

	ResetMember(ctx context.Context, guildID, memberID string) error
	ResetGuild(ctx context.Context, guildID string) error
}

// DisplayNameRepository stores the last known display name per member, used
// when formatting leaderboard lines.
type DisplayNameRepository interface {
	Save(ctx context.Context, guildID, memberID, displayName string) error
	Get(ctx context.Context, guildID, memberID string) (string, error)
	// GetAll returns memberID -> displayName for a guild.
	GetAll(ctx context.Context, guildID string) (map[string]string, error)
}
