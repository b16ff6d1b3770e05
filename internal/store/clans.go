package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/pokelend/internal/model"
)

// ListClans returns all clans ordered by name.
func ListClans(ctx context.Context, q Querier) ([]model.Clan, error) {
	var clans []model.Clan
	err := sqlx.SelectContext(ctx, q, &clans,
		`SELECT id, name, elements, color, created_at FROM clan ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing clans: %w", err)
	}
	return clans, nil
}

// GetClanByName returns a clan by name, matched case-insensitively.
func GetClanByName(ctx context.Context, q Querier, name string) (*model.Clan, error) {
	c := &model.Clan{}
	err := sqlx.GetContext(ctx, q, c, q.Rebind(
		`SELECT id, name, elements, color, created_at FROM clan WHERE LOWER(name) = LOWER(?)`), name,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting clan: %w", err)
	}
	return c, nil
}
