package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torrents/internal/config"
	"torrents/internal/models"
	"torrents/internal/store"
)

func TestSQLiteDir(t *testing.T) {
	tests := map[string]string{
		":memory:":                        "",
		"file::memory:?cache=shared":      "",
		"torrents.db":                     "",
		"./data/torrents.db":              "data",
		"file:/var/lib/torrents/t.db?x=1": "/var/lib/torrents",
	}
	for dsn, want := range tests {
		assert.Equal(t, want, sqliteDir(dsn), dsn)
	}
}

func TestOpenStoreCreatesDataDir(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "torrents.db")
	s, err := openStore(context.Background(), config.DatabaseConfig{Driver: config.DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Migrate(context.Background()))
	_, err = os.Stat(dsn)
	assert.NoError(t, err)
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, err := openStore(context.Background(), config.DatabaseConfig{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}

func TestMigrateAndPurgeCommands(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "torrents.db")
	cfgFile := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
[database]
driver = "sqlite"
dsn = "`+filepath.ToSlash(dsn)+`"

[log]
level = "error"
`), 0o600))

	rootCmd.SetArgs([]string{"--config", cfgFile, "migrate"})
	require.NoError(t, rootCmd.Execute())

	ctx := context.Background()
	s, err := openStore(ctx, config.DatabaseConfig{Driver: config.DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, len(store.DefaultCategories))

	u := &models.User{ID: store.NewID(), Username: "old", Email: "old@example.com", Password: "x", Role: models.RoleUser, RegistrationDate: store.Now()}
	require.NoError(t, s.CreateUser(ctx, u))
	require.NoError(t, s.CreateSession(ctx, &models.Session{ID: store.NewID(), UserID: u.ID, ExpiresAt: store.Now().Add(-time.Hour)}))
	live := &models.Session{ID: store.NewID(), UserID: u.ID, ExpiresAt: store.Now().Add(time.Hour)}
	require.NoError(t, s.CreateSession(ctx, live))
	require.NoError(t, s.Close())

	rootCmd.SetArgs([]string{"--config", cfgFile, "purge-sessions"})
	require.NoError(t, rootCmd.Execute())

	s, err = openStore(ctx, config.DatabaseConfig{Driver: config.DriverSQLite, DSN: dsn})
	require.NoError(t, err)
	defer s.Close()
	n, err := s.PurgeExpired(ctx, store.Now())
	require.NoError(t, err)
	assert.Zero(t, n, "expired session already purged")
	_, err = s.GetSession(ctx, live.ID)
	assert.NoError(t, err)
}

func TestPurgeLoopStopsWithContext(t *testing.T) {
	s, err := openStore(context.Background(), config.DatabaseConfig{Driver: config.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Migrate(context.Background()))

	log := logrus.New()
	log.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		purgeLoop(ctx, s, time.Millisecond, log)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purge loop did not stop")
	}
}
