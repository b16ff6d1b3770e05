package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// sqliteSchema is the full database schema for SQLite.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pokemon_type (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS pokemon (
    id          TEXT PRIMARY KEY,
    type_id     TEXT REFERENCES pokemon_type(id),
    name        TEXT NOT NULL,
    held_item   TEXT,
    status      TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'borrowed', 'inactive')),
    version     INTEGER NOT NULL DEFAULT 1,
    sprite      BLOB,
    sprite_mime TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS clan (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    elements   TEXT NOT NULL,
    color      TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS clan_pokemon (
    clan_id    TEXT NOT NULL REFERENCES clan(id) ON DELETE CASCADE,
    pokemon_id TEXT NOT NULL REFERENCES pokemon(id) ON DELETE CASCADE,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (clan_id, pokemon_id)
);

CREATE TABLE IF NOT EXISTS trainers (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    email      TEXT NOT NULL UNIQUE,
    credential TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS history (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    pokemon_id   TEXT NOT NULL,
    pokemon_name TEXT NOT NULL,
    trainer_id   TEXT NOT NULL,
    borrowed_at  DATETIME NOT NULL,
    returned     BOOLEAN NOT NULL DEFAULT FALSE,
    returned_at  DATETIME,
    comment      TEXT,
    due_at       DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_trainers_credential ON trainers(credential);
CREATE INDEX IF NOT EXISTS idx_history_active ON history(returned, trainer_id);

CREATE TABLE IF NOT EXISTS favorite_list (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS favorite_list_pokemon (
    list_id    TEXT NOT NULL REFERENCES favorite_list(id) ON DELETE CASCADE,
    pokemon_id TEXT NOT NULL REFERENCES pokemon(id) ON DELETE CASCADE,
    position   INTEGER NOT NULL,
    PRIMARY KEY (list_id, pokemon_id)
);

CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// postgresSchema mirrors sqliteSchema with Postgres column types.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS pokemon_type (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS pokemon (
    id          TEXT PRIMARY KEY,
    type_id     TEXT REFERENCES pokemon_type(id),
    name        TEXT NOT NULL,
    held_item   TEXT,
    status      TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'borrowed', 'inactive')),
    version     BIGINT NOT NULL DEFAULT 1,
    sprite      BYTEA,
    sprite_mime TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS clan (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    elements   TEXT NOT NULL,
    color      TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS clan_pokemon (
    clan_id    TEXT NOT NULL REFERENCES clan(id) ON DELETE CASCADE,
    pokemon_id TEXT NOT NULL REFERENCES pokemon(id) ON DELETE CASCADE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (clan_id, pokemon_id)
);

CREATE TABLE IF NOT EXISTS trainers (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    email      TEXT NOT NULL UNIQUE,
    credential TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS history (
    id           BIGSERIAL PRIMARY KEY,
    pokemon_id   TEXT NOT NULL,
    pokemon_name TEXT NOT NULL,
    trainer_id   TEXT NOT NULL,
    borrowed_at  TIMESTAMPTZ NOT NULL,
    returned     BOOLEAN NOT NULL DEFAULT FALSE,
    returned_at  TIMESTAMPTZ,
    comment      TEXT,
    due_at       TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_trainers_credential ON trainers(credential);
CREATE INDEX IF NOT EXISTS idx_history_active ON history(returned, trainer_id);

CREATE TABLE IF NOT EXISTS favorite_list (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS favorite_list_pokemon (
    list_id    TEXT NOT NULL REFERENCES favorite_list(id) ON DELETE CASCADE,
    pokemon_id TEXT NOT NULL REFERENCES pokemon(id) ON DELETE CASCADE,
    position   INTEGER NOT NULL,
    PRIMARY KEY (list_id, pokemon_id)
);

CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at TIMESTAMPTZ NOT NULL
);
`

// seedClan is one of the clans every collection starts with.
type seedClan struct {
	name     string
	elements string
	color    string
}

var seedClans = []seedClan{
	{"malefic", "Dark, Ghost, Venom", "#6b21a8"},
	{"wingeon", "Flying, Dragon", "#0284c7"},
	{"ironhard", "Metal, Crystal", "#64748b"},
	{"volcanic", "Fire", "#dc2626"},
	{"seavell", "Water, Ice", "#0891b2"},
	{"gardestrike", "Fighting, Normal", "#b45309"},
	{"orebound", "Rock, Earth", "#92400e"},
	{"naturia", "Grass, Bug", "#16a34a"},
	{"psycraft", "Psychic, Fairy", "#d946ef"},
	{"raibolt", "Electric", "#facc15"},
}

// EnsureSchema creates all tables and indexes if they don't already exist
// and seeds the default clans. Safe to run on every start.
func EnsureSchema(ctx context.Context, database *sqlx.DB) error {
	schema := sqliteSchema
	if IsPostgres(database) {
		schema = postgresSchema
	}

	if _, err := database.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	insert := database.Rebind(
		`INSERT INTO clan (id, name, elements, color) VALUES (?, ?, ?, ?)
		 ON CONFLICT (name) DO NOTHING`,
	)
	for _, c := range seedClans {
		if _, err := database.ExecContext(ctx, insert, uuid.NewString(), c.name, c.elements, c.color); err != nil {
			return fmt.Errorf("seeding clan %s: %w", c.name, err)
		}
	}

	return nil
}
