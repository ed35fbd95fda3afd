package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torrents/internal/store"
)

func TestMigrateIsIdempotent(t *testing.T) {
	sqlDB, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(sqlDB))
	require.NoError(t, Migrate(sqlDB))

	var names []string
	require.NoError(t, sqlDB.Select(&names, `SELECT name FROM categories ORDER BY name`))
	assert.ElementsMatch(t, store.DefaultCategories, names)
}

func TestForeignKeysEnforced(t *testing.T) {
	sqlDB, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, Migrate(sqlDB))

	_, err = sqlDB.Exec(`INSERT INTO sessions(id,user_id,expires_at) VALUES('s','missing',CURRENT_TIMESTAMP)`)
	assert.Error(t, err)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "x")
	assert.Error(t, err)
}
