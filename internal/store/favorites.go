package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/pokelend/internal/model"
)

// CreateFavoriteList creates a named list with the given members, in order.
func CreateFavoriteList(ctx context.Context, db *sqlx.DB, name string, pokemonIDs []string) (*model.FavoriteList, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO favorite_list (id, name) VALUES (?, ?)`), id, strings.TrimSpace(name),
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("creating favorite list: %w", err)
	}

	if err := insertFavoriteMembers(ctx, tx, id, pokemonIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing favorite list: %w", err)
	}
	return GetFavoriteList(ctx, db, id)
}

// ReplaceFavoriteMembers swaps a list's members for the given ones.
// It reports false if the list does not exist.
func ReplaceFavoriteMembers(ctx context.Context, db *sqlx.DB, id string, pokemonIDs []string) (bool, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM favorite_list WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("checking favorite list: %w", err)
	}
	if exists == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM favorite_list_pokemon WHERE list_id = ?`), id); err != nil {
		return false, fmt.Errorf("clearing favorite list: %w", err)
	}
	if err := insertFavoriteMembers(ctx, tx, id, pokemonIDs); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing favorite list: %w", err)
	}
	return true, nil
}

func insertFavoriteMembers(ctx context.Context, tx *sqlx.Tx, listID string, pokemonIDs []string) error {
	insert := tx.Rebind(
		`INSERT INTO favorite_list_pokemon (list_id, pokemon_id, position) VALUES (?, ?, ?)
		 ON CONFLICT (list_id, pokemon_id) DO NOTHING`,
	)
	for i, pid := range pokemonIDs {
		if _, err := tx.ExecContext(ctx, insert, listID, pid, i); err != nil {
			return fmt.Errorf("adding %s to favorite list: %w", pid, err)
		}
	}
	return nil
}

// GetFavoriteList returns a list with its members in list order.
func GetFavoriteList(ctx context.Context, q Querier, id string) (*model.FavoriteList, error) {
	l := &model.FavoriteList{}
	err := sqlx.GetContext(ctx, q, l, q.Rebind(
		`SELECT id, name, created_at FROM favorite_list WHERE id = ?`), id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting favorite list: %w", err)
	}

	err = sqlx.SelectContext(ctx, q, &l.Pokemon, q.Rebind(
		`SELECT `+pokemonColumns+`
		 FROM favorite_list_pokemon f
		 JOIN pokemon p ON p.id = f.pokemon_id
		 LEFT JOIN pokemon_type pt ON pt.id = p.type_id
		 WHERE f.list_id = ?
		 ORDER BY f.position`), id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing favorite list members: %w", err)
	}
	return l, nil
}

// ListFavoriteLists returns all lists without members.
func ListFavoriteLists(ctx context.Context, q Querier) ([]model.FavoriteList, error) {
	var lists []model.FavoriteList
	err := sqlx.SelectContext(ctx, q, &lists,
		`SELECT id, name, created_at FROM favorite_list ORDER BY LOWER(name)`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing favorite lists: %w", err)
	}
	return lists, nil
}

// FavoritePokemonIDs returns the member ids of a list in list order, and
// whether the list exists.
func FavoritePokemonIDs(ctx context.Context, q Querier, id string) ([]string, bool, error) {
	var exists int
	err := sqlx.GetContext(ctx, q, &exists, q.Rebind(`SELECT COUNT(*) FROM favorite_list WHERE id = ?`), id)
	if err != nil {
		return nil, false, fmt.Errorf("checking favorite list: %w", err)
	}
	if exists == 0 {
		return nil, false, nil
	}

	var ids []string
	err = sqlx.SelectContext(ctx, q, &ids, q.Rebind(
		`SELECT pokemon_id FROM favorite_list_pokemon WHERE list_id = ? ORDER BY position`), id,
	)
	if err != nil {
		return nil, true, fmt.Errorf("listing favorite list members: %w", err)
	}
	return ids, true, nil
}

// DeleteFavoriteList removes a list and its memberships.
func DeleteFavoriteList(ctx context.Context, q Querier, id string) (bool, error) {
	if _, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM favorite_list_pokemon WHERE list_id = ?`), id); err != nil {
		return false, fmt.Errorf("clearing favorite list: %w", err)
	}
	result, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM favorite_list WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("deleting favorite list: %w", err)
	}
	return appliedOnce(result)
}
