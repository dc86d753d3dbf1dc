package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/piabot/piastats/internal/domain"
)

// CounterRepo implements domain.CounterRepository on Postgres. All
// increments are single-statement upserts, so concurrent writers to the same
// key serialize in the database and never lose updates.
type CounterRepo struct {
	pool *pgxpool.Pool
}

func NewCounterRepo(pool *pgxpool.Pool) *CounterRepo {
	return &CounterRepo{pool: pool}
}

func (r *CounterRepo) IncrementSent(ctx context.Context, guildID, memberID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cumulative_counters (guild_id, member_id, sent, received)
		VALUES ($1, $2, 1, 0)
		ON CONFLICT (guild_id, member_id)
		DO UPDATE SET sent = cumulative_counters.sent + 1
	`, guildID, memberID)
	if err != nil {
		return fmt.Errorf("failed to increment sent counter: %w", err)
	}
	return nil
}

func (r *CounterRepo) IncrementReceived(ctx context.Context, guildID, memberID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cumulative_counters (guild_id, member_id, sent, received)
		VALUES ($1, $2, 0, 1)
		ON CONFLICT (guild_id, member_id)
		DO UPDATE SET received = cumulative_counters.received + 1
	`, guildID, memberID)
	if err != nil {
		return fmt.Errorf("failed to increment received counter: %w", err)
	}
	return nil
}

func (r *CounterRepo) IncrementDailySent(ctx context.Context, guildID, memberID string, day domain.Day) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO daily_counters (guild_id, member_id, day, sent, received)
		VALUES ($1, $2, $3::date, 1, 0)
		ON CONFLICT (guild_id, member_id, day)
		DO UPDATE SET sent = daily_counters.sent + 1
	`, guildID, memberID, string(day))
	if err != nil {
		return fmt.Errorf("failed to increment daily sent counter: %w", err)
	}
	return nil
}

func (r *CounterRepo) IncrementDailyReceived(ctx context.Context, guildID, memberID string, day domain.Day) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO daily_counters (guild_id, member_id, day, sent, received)
		VALUES ($1, $2, $3::date, 0, 1)
		ON CONFLICT (guild_id, member_id, day)
		DO UPDATE SET received = daily_counters.received + 1
	`, guildID, memberID, string(day))
	if err != nil {
		return fmt.Errorf("failed to increment daily received counter: %w", err)
	}
	return nil
}

func (r *CounterRepo) ListCumulative(ctx context.Context, guildID string) ([]domain.MemberCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT member_id, sent, received
		FROM cumulative_counters
		WHERE guild_id = $1
	`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cumulative counters: %w", err)
	}
	defer rows.Close()

	var counts []domain.MemberCount
	for rows.Next() {
		var mc domain.MemberCount
		if err := rows.Scan(&mc.MemberID, &mc.Sent, &mc.Received); err != nil {
			return nil, fmt.Errorf("failed to scan counter row: %w", err)
		}
		counts = append(counts, mc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read counter rows: %w", err)
	}
	return counts, nil
}

func (r *CounterRepo) SumWindow(ctx context.Context, guildID string, start, endExclusive domain.Day) ([]domain.MemberCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT member_id, COALESCE(SUM(sent), 0), COALESCE(SUM(received), 0)
		FROM daily_counters
		WHERE guild_id = $1 AND day >= $2::date AND day < $3::date
		GROUP BY member_id
	`, guildID, string(start), string(endExclusive))
	if err != nil {
		return nil, fmt.Errorf("failed to sum counter window: %w", err)
	}
	defer rows.Close()

	var counts []domain.MemberCount
	for rows.Next() {
		var mc domain.MemberCount
		if err := rows.Scan(&mc.MemberID, &mc.Sent, &mc.Received); err != nil {
			return nil, fmt.Errorf("failed to scan window row: %w", err)
		}
		counts = append(counts, mc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read window rows: %w", err)
	}
	return counts, nil
}

func (r *CounterRepo) ResetMember(ctx context.Context, guildID, memberID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE cumulative_counters SET sent = 0, received = 0
		WHERE guild_id = $1 AND member_id = $2
	`, guildID, memberID)
	if err != nil {
		return fmt.Errorf("failed to reset member counters: %w", err)
	}
	return nil
}

func (r *CounterRepo) ResetGuild(ctx context.Context, guildID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE cumulative_counters SET sent = 0, received = 0
		WHERE guild_id = $1
	`, guildID)
	if err != nil {
		return fmt.Errorf("failed to reset guild counters: %w", err)
	}
	return nil
}
