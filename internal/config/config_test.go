package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("TORRENTS_DB_DRIVER", "")
	t.Setenv("TORRENTS_ADMIN_CODE", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "ADMIN123", cfg.Auth.AdminCode)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL.Duration)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[server]
addr = ":9090"
cors_origins = ["http://localhost:3000"]

[database]
driver = "Postgres"
dsn = "postgres://u:p@localhost/db"

[auth]
admin_code = "letmein"
session_ttl = "90m"

[log]
level = "debug"
format = "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "letmein", cfg.Auth.AdminCode)
	assert.Equal(t, 90*time.Minute, cfg.Auth.SessionTTL.Duration)
	assert.Equal(t, "torrents_session", cfg.Auth.CookieName, "unset keys keep defaults")
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "5000")
	t.Setenv("TORRENTS_DB_DSN", "file::memory:")
	t.Setenv("TORRENTS_ADMIN_CODE", "env-code")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, "file::memory:", cfg.Database.DSN)
	assert.Equal(t, "env-code", cfg.Auth.AdminCode)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "[database]\ndriver = \"oracle\"\n"},
		{"bad duration", "[auth]\nsession_ttl = \"soon\"\n"},
		{"negative ttl", "[auth]\nsession_ttl = \"-1h\"\n"},
		{"empty dsn", "[database]\ndsn = \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
