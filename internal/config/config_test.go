package config

import (
	"errors"
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func environ(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil, environ(nil), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, &Config{
		DBDriver:    "sqlite",
		DSN:         "pokelend.sqlite3",
		Addr:        ":8080",
		AdminUser:   "Admin",
		Credentials: "plain",
	}, cfg)
}

func TestLoadEnvironment(t *testing.T) {
	cfg, err := Load(nil, environ(map[string]string{
		"POKELEND_DB_DRIVER":   "postgres",
		"POKELEND_DB":          "postgres://localhost/pokelend",
		"POKELEND_ADDR":        ":9090",
		"POKELEND_CREDENTIALS": "bcrypt",
	}), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "postgres://localhost/pokelend", cfg.DSN)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "bcrypt", cfg.Credentials)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	cfg, err := Load([]string{"-a", ":7070", "-db", "other.sqlite3", "-u", "oak"},
		environ(map[string]string{"POKELEND_ADDR": ":9090"}), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, "other.sqlite3", cfg.DSN)
	assert.Equal(t, "oak", cfg.AdminUser)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := map[string][]string{
		"driver":     {"-db-driver", "mysql"},
		"scheme":     {"-credentials", "rot13"},
		"extra arg":  {"serve"},
		"empty user": {"-user", ""},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(args, environ(nil), io.Discard)
			assert.Error(t, err)
		})
	}
}

func TestLoadHelp(t *testing.T) {
	_, err := Load([]string{"-h"}, environ(nil), io.Discard)
	assert.True(t, errors.Is(err, flag.ErrHelp))
}
