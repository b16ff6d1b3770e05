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

const pokemonColumns = `p.id, p.type_id, pt.name AS type_name, p.name, p.held_item, p.status,
	p.version, p.sprite_mime, p.created_at, p.updated_at,
	(SELECT c.name FROM clan_pokemon cp JOIN clan c ON c.id = cp.clan_id
	  WHERE cp.pokemon_id = p.id ORDER BY c.name LIMIT 1) AS clan_name`

// CreatePokemon adds a pokemon to a clan in a single transaction. An empty
// typeName leaves the pokemon untyped.
func CreatePokemon(ctx context.Context, db *sqlx.DB, clanID, name, heldItem, typeName string) (*model.Pokemon, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var typeID *string
	if typeName != "" {
		id, err := EnsurePokemonType(ctx, tx, typeName)
		if err != nil {
			return nil, err
		}
		typeID = &id
	}

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO pokemon (id, type_id, name, held_item) VALUES (?, ?, ?, ?)`),
		id, typeID, name, nullString(heldItem),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pokemon: %w", err)
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(
		`INSERT INTO clan_pokemon (clan_id, pokemon_id) VALUES (?, ?)`),
		clanID, id,
	)
	if err != nil {
		return nil, fmt.Errorf("adding pokemon to clan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing pokemon: %w", err)
	}

	return GetPokemon(ctx, db, id)
}

// EnsurePokemonType returns the id of the named type, creating it if needed.
func EnsurePokemonType(ctx context.Context, q Querier, name string) (string, error) {
	name = strings.TrimSpace(name)
	_, err := q.ExecContext(ctx, q.Rebind(
		`INSERT INTO pokemon_type (id, name) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`),
		uuid.NewString(), name,
	)
	if err != nil {
		return "", fmt.Errorf("creating pokemon type: %w", err)
	}

	var id string
	if err := sqlx.GetContext(ctx, q, &id, q.Rebind(`SELECT id FROM pokemon_type WHERE name = ?`), name); err != nil {
		return "", fmt.Errorf("getting pokemon type: %w", err)
	}
	return id, nil
}

// GetPokemon returns a pokemon by ID.
func GetPokemon(ctx context.Context, q Querier, id string) (*model.Pokemon, error) {
	p := &model.Pokemon{}
	err := sqlx.GetContext(ctx, q, p, q.Rebind(
		`SELECT `+pokemonColumns+`
		 FROM pokemon p
		 LEFT JOIN pokemon_type pt ON pt.id = p.type_id
		 WHERE p.id = ?`), id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting pokemon: %w", err)
	}
	return p, nil
}

// PokemonByIDs returns the pokemon with the given ids that exist, in no
// particular order.
func PokemonByIDs(ctx context.Context, q Querier, ids []string) ([]model.Pokemon, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		`SELECT `+pokemonColumns+`
		 FROM pokemon p
		 LEFT JOIN pokemon_type pt ON pt.id = p.type_id
		 WHERE p.id IN (?)`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("building pokemon lookup: %w", err)
	}

	var pokemon []model.Pokemon
	if err := sqlx.SelectContext(ctx, q, &pokemon, q.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("getting pokemon: %w", err)
	}
	return pokemon, nil
}

// ListClanPokemon returns the pokemon of a clan, matched case-insensitively by name.
func ListClanPokemon(ctx context.Context, q Querier, clanName string) ([]model.Pokemon, error) {
	var pokemon []model.Pokemon
	err := sqlx.SelectContext(ctx, q, &pokemon, q.Rebind(
		`SELECT `+pokemonColumns+`
		 FROM pokemon p
		 LEFT JOIN pokemon_type pt ON pt.id = p.type_id
		 JOIN clan_pokemon cp ON cp.pokemon_id = p.id
		 JOIN clan c ON c.id = cp.clan_id
		 WHERE LOWER(c.name) = LOWER(?)
		 ORDER BY LOWER(p.name)`), clanName,
	)
	if err != nil {
		return nil, fmt.Errorf("listing clan pokemon: %w", err)
	}
	return pokemon, nil
}

// TransitionPokemon moves a pokemon from one status to another and bumps its
// version. It reports false without error when the pokemon is missing or no
// longer in the expected status.
func TransitionPokemon(ctx context.Context, q Querier, id, from, to string) (bool, error) {
	result, err := q.ExecContext(ctx, q.Rebind(
		`UPDATE pokemon SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`),
		to, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("transitioning pokemon %s: %w", id, err)
	}
	return appliedOnce(result)
}

// TransitionPokemonAt is TransitionPokemon guarded additionally by the
// version the caller observed.
func TransitionPokemonAt(ctx context.Context, q Querier, id string, version int64, from, to string) (bool, error) {
	result, err := q.ExecContext(ctx, q.Rebind(
		`UPDATE pokemon SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ? AND version = ?`),
		to, id, from, version,
	)
	if err != nil {
		return false, fmt.Errorf("transitioning pokemon %s at version %d: %w", id, version, err)
	}
	return appliedOnce(result)
}

func appliedOnce(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return n == 1, nil
}

// DeletePokemon removes a pokemon and its clan memberships. It refuses to
// delete a borrowed pokemon and reports false if the pokemon does not exist.
func DeletePokemon(ctx context.Context, db *sqlx.DB, id string) (bool, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.GetContext(ctx, &status, tx.Rebind(`SELECT status FROM pokemon WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking pokemon status: %w", err)
	}
	if status == model.PokemonBorrowed {
		return false, ErrPokemonBorrowed
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM clan_pokemon WHERE pokemon_id = ?`), id); err != nil {
		return false, fmt.Errorf("removing clan membership: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM favorite_list_pokemon WHERE pokemon_id = ?`), id); err != nil {
		return false, fmt.Errorf("removing favorite membership: %w", err)
	}

	result, err := tx.ExecContext(ctx, tx.Rebind(
		`DELETE FROM pokemon WHERE id = ? AND status <> ?`), id, model.PokemonBorrowed,
	)
	if err != nil {
		return false, fmt.Errorf("deleting pokemon: %w", err)
	}
	deleted, err := appliedOnce(result)
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, ErrPokemonBorrowed
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing pokemon deletion: %w", err)
	}
	return true, nil
}

// SetPokemonSprite stores a pokemon's sprite image.
func SetPokemonSprite(ctx context.Context, q Querier, id string, image []byte, mime string) (bool, error) {
	result, err := q.ExecContext(ctx, q.Rebind(
		`UPDATE pokemon SET sprite = ?, sprite_mime = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`),
		image, mime, id,
	)
	if err != nil {
		return false, fmt.Errorf("setting pokemon sprite: %w", err)
	}
	return appliedOnce(result)
}

// GetPokemonSprite returns a pokemon's sprite and its MIME type.
func GetPokemonSprite(ctx context.Context, q Querier, id string) ([]byte, string, error) {
	var row struct {
		Sprite []byte         `db:"sprite"`
		Mime   sql.NullString `db:"sprite_mime"`
	}
	err := sqlx.GetContext(ctx, q, &row, q.Rebind(
		`SELECT sprite, sprite_mime FROM pokemon WHERE id = ?`), id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting pokemon sprite: %w", err)
	}
	return row.Sprite, row.Mime.String, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
