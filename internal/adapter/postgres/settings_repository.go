package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/piabot/piastats/internal/domain"
)

type SettingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

func (r *SettingsRepo) Get(ctx context.Context, guildID string) (*domain.GuildSettings, error) {
	var (
		marker, channelID, sendDay, sendTime *string
		lastDispatchAt                       *time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT marker, channel_id, send_day, send_time, last_dispatch_at
		FROM guild_settings
		WHERE guild_id = $1
	`, guildID).Scan(&marker, &channelID, &sendDay, &sendTime, &lastDispatchAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guild settings: %w", err)
	}

	return &domain.GuildSettings{
		GuildID:        guildID,
		Marker:         deref(marker),
		ChannelID:      deref(channelID),
		SendDay:        deref(sendDay),
		SendTime:       deref(sendTime),
		LastDispatchAt: lastDispatchAt,
	}, nil
}

func (r *SettingsRepo) List(ctx context.Context) ([]domain.GuildSettings, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT guild_id, marker, channel_id, send_day, send_time, last_dispatch_at
		FROM guild_settings
		ORDER BY guild_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list guild settings: %w", err)
	}
	defer rows.Close()

	var all []domain.GuildSettings
	for rows.Next() {
		var (
			s                                    domain.GuildSettings
			marker, channelID, sendDay, sendTime *string
		)
		if err := rows.Scan(&s.GuildID, &marker, &channelID, &sendDay, &sendTime, &s.LastDispatchAt); err != nil {
			return nil, fmt.Errorf("failed to scan settings row: %w", err)
		}
		s.Marker = deref(marker)
		s.ChannelID = deref(channelID)
		s.SendDay = deref(sendDay)
		s.SendTime = deref(sendTime)
		all = append(all, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read settings rows: %w", err)
	}
	return all, nil
}

func (r *SettingsRepo) SetMarker(ctx context.Context, guildID, marker string) error {
	return r.upsertField(ctx, "marker", guildID, marker)
}

func (r *SettingsRepo) SetChannel(ctx context.Context, guildID, channelID string) error {
	return r.upsertField(ctx, "channel_id", guildID, channelID)
}

func (r *SettingsRepo) SetWeekday(ctx context.Context, guildID string, weekday time.Weekday) error {
	return r.upsertField(ctx, "send_day", guildID, weekday.String())
}

func (r *SettingsRepo) SetTime(ctx context.Context, guildID, sendTime string) error {
	return r.upsertField(ctx, "send_time", guildID, sendTime)
}

// upsertField sets a single settings column, creating the row with all other
// fields null if absent. The column name comes from a fixed set above, never
// from input.
func (r *SettingsRepo) upsertField(ctx context.Context, column, guildID, value string) error {
	query := fmt.Sprintf(`
		INSERT INTO guild_settings (guild_id, %[1]s)
		VALUES ($1, $2)
		ON CONFLICT (guild_id) DO UPDATE SET %[1]s = EXCLUDED.%[1]s
	`, column)
	if _, err := r.pool.Exec(ctx, query, guildID, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", column, err)
	}
	return nil
}

func (r *SettingsRepo) SetLastDispatch(ctx context.Context, guildID string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE guild_settings SET last_dispatch_at = $2 WHERE guild_id = $1
	`, guildID, at)
	if err != nil {
		return fmt.Errorf("failed to set last dispatch: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
