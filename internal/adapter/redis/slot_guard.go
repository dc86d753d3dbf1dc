package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// slotGuardTTL outlives any realistic publish duration so a crashed holder
// cannot block the slot forever, while still covering the whole minute slot.
const slotGuardTTL = 10 * time.Minute

// SlotGuard implements cross-instance dispatch deduplication using SETNX
// with TTL. The first instance to claim a (guild, slot) key publishes; the
// rest back off.
type SlotGuard struct {
	rdb        *redis.Client
	instanceID string
}

// NewSlotGuard creates a slot guard. instanceID should be unique per
// instance (e.g., hostname-PID or a random UUID).
func NewSlotGuard(rdb *redis.Client, instanceID string) *SlotGuard {
	return &SlotGuard{rdb: rdb, instanceID: instanceID}
}

// Acquire attempts to claim the slot for guildID. Returns true if this
// instance owns the slot, false if another instance claimed it first.
func (g *SlotGuard) Acquire(ctx context.Context, guildID string, slot time.Time) (bool, error) {
	key := fmt.Sprintf("dispatch:slot:%s:%s", guildID, slot.UTC().Format(time.RFC3339))
	ok, err := g.rdb.SetNX(ctx, key, g.instanceID, slotGuardTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire slot guard: %w", err)
	}
	return ok, nil
}
