// Package config reads process settings from flags, falling back to
// POKELEND_* environment variables and then to built-in defaults.
package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/erazemk/pokelend/internal/auth"
	"github.com/erazemk/pokelend/internal/db"
)

// Config holds the process settings.
type Config struct {
	DBDriver    string
	DSN         string
	Addr        string
	AdminUser   string
	LogPath     string
	Credentials string
}

const usage = `Usage: pokelend [flags]

Flags:
  -db-driver <name>        sqlite or postgres (env POKELEND_DB_DRIVER, default: sqlite)
  -d, -db <dsn>            SQLite path or Postgres URL (env POKELEND_DB, default: pokelend.sqlite3)
  -a, -addr <host:port>    listen address (env POKELEND_ADDR, default: :8080)
  -u, -user <name>         admin username on first run (env POKELEND_ADMIN, default: Admin)
  -l, -log <path>          log file path (env POKELEND_LOG, default: stdout/stderr only)
  -credentials <scheme>    trainer password scheme, plain or bcrypt (env POKELEND_CREDENTIALS, default: plain)
  -h, -help                show this help and exit
`

// Load parses args (without the program name). getenv supplies the
// environment, usually os.Getenv. Usage text goes to out; a -help request
// returns flag.ErrHelp.
func Load(args []string, getenv func(string) string, out io.Writer) (*Config, error) {
	env := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{}
	fs := flag.NewFlagSet("pokelend", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() { fmt.Fprint(out, usage) }

	fs.StringVar(&cfg.DBDriver, "db-driver", env("POKELEND_DB_DRIVER", db.DriverSQLite), "")

	dsn := env("POKELEND_DB", "pokelend.sqlite3")
	fs.StringVar(&cfg.DSN, "db", dsn, "")
	fs.StringVar(&cfg.DSN, "d", dsn, "")

	addr := env("POKELEND_ADDR", ":8080")
	fs.StringVar(&cfg.Addr, "addr", addr, "")
	fs.StringVar(&cfg.Addr, "a", addr, "")

	admin := env("POKELEND_ADMIN", "Admin")
	fs.StringVar(&cfg.AdminUser, "user", admin, "")
	fs.StringVar(&cfg.AdminUser, "u", admin, "")

	logPath := env("POKELEND_LOG", "")
	fs.StringVar(&cfg.LogPath, "log", logPath, "")
	fs.StringVar(&cfg.LogPath, "l", logPath, "")

	fs.StringVar(&cfg.Credentials, "credentials", env("POKELEND_CREDENTIALS", auth.SchemePlain), "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case db.DriverSQLite, db.DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.DBDriver)
	}
	if c.DSN == "" {
		return fmt.Errorf("database location is required")
	}
	if c.AdminUser == "" {
		return fmt.Errorf("admin username is required")
	}
	if _, err := auth.ParseScheme(c.Credentials); err != nil {
		return err
	}
	return nil
}
