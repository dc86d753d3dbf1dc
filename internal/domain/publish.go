package domain

import (
	"context"
	"time"
)

// ReportPublisher delivers scheduled reports to a destination channel. It is
// the boundary to the chat platform: fire-and-forget, errors are logged by
// the caller and never retried inline.
type ReportPublisher interface {
	PublishReport(ctx context.Context, channelID, title string, sentLines, receivedLines []string) error
	PublishNotice(ctx context.Context, channelID, text string) error
}

// SlotGuard claims a (guild, slot) pair so that at most one dispatcher
// instance publishes for it. Acquire returns false when another instance got
// there first.
type SlotGuard interface {
	Acquire(ctx context.Context, guildID string, slot time.Time) (bool, error)
}
