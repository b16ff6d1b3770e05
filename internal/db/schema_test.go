package db

import (
	"context"
	"testing"
)

func TestEnsureSchemaSeedsClans(t *testing.T) {
	database := NewTestDB(t)

	var count int
	if err := database.Get(&count, `SELECT COUNT(*) FROM clan`); err != nil {
		t.Fatalf("counting clans: %v", err)
	}
	if count != len(seedClans) {
		t.Errorf("expected %d clans, got %d", len(seedClans), count)
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	database := NewTestDB(t)

	if err := EnsureSchema(context.Background(), database); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}

	var count int
	database.Get(&count, `SELECT COUNT(*) FROM clan`)
	if count != len(seedClans) {
		t.Errorf("expected clans not to be duplicated, got %d", count)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "whatever"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestSQLiteDSN(t *testing.T) {
	got := sqliteDSN("data.sqlite3")
	if got[:len("data.sqlite3?")] != "data.sqlite3?" {
		t.Errorf("unexpected dsn prefix: %s", got)
	}

	got = sqliteDSN("data.sqlite3?cache=shared")
	if got[:len("data.sqlite3?cache=shared&")] != "data.sqlite3?cache=shared&" {
		t.Errorf("expected pragmas appended with &, got %s", got)
	}
}
