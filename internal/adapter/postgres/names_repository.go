package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/piabot/piastats/internal/domain"
)

type DisplayNameRepo struct {
	pool *pgxpool.Pool
}

func NewDisplayNameRepo(pool *pgxpool.Pool) *DisplayNameRepo {
	return &DisplayNameRepo{pool: pool}
}

func (r *DisplayNameRepo) Save(ctx context.Context, guildID, memberID, displayName string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO member_names (guild_id, member_id, display_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, member_id) DO UPDATE SET display_name = EXCLUDED.display_name
	`, guildID, memberID, displayName)
	if err != nil {
		return fmt.Errorf("failed to save display name: %w", err)
	}
	return nil
}

func (r *DisplayNameRepo) Get(ctx context.Context, guildID, memberID string) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `
		SELECT display_name FROM member_names
		WHERE guild_id = $1 AND member_id = $2
	`, guildID, memberID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrNameNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get display name: %w", err)
	}
	return name, nil
}

func (r *DisplayNameRepo) GetAll(ctx context.Context, guildID string) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT member_id, display_name FROM member_names WHERE guild_id = $1
	`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list display names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var memberID, name string
		if err := rows.Scan(&memberID, &name); err != nil {
			return nil, fmt.Errorf("failed to scan display name row: %w", err)
		}
		names[memberID] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read display name rows: %w", err)
	}
	return names, nil
}
