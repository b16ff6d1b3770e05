package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// sqlitePragmas are applied to every pooled connection through the DSN, so
// each connection gets the same busy timeout and foreign key enforcement.
var sqlitePragmas = []string{
	"_pragma=journal_mode(WAL)",
	"_pragma=busy_timeout(5000)",
	"_pragma=foreign_keys(1)",
	"_pragma=synchronous(NORMAL)",
	"_txlock=immediate",
}

// Open opens the database for the given driver. For SQLite, dsn is a file
// path; for Postgres it is a connection string understood by pgx.
func Open(driver, dsn string) (*sqlx.DB, error) {
	var (
		database *sqlx.DB
		err      error
	)

	switch driver {
	case DriverSQLite:
		database, err = sqlx.Open("sqlite", sqliteDSN(dsn))
	case DriverPostgres:
		database, err = sqlx.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return database, nil
}

// IsPostgres reports whether the handle talks to Postgres.
func IsPostgres(database *sqlx.DB) bool {
	return database.DriverName() == "pgx"
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(sqlitePragmas, "&")
}
