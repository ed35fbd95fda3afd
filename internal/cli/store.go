package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"torrents/internal/config"
	"torrents/internal/store"
	"torrents/internal/store/mongostore"
	"torrents/internal/store/sqlstore"
)

// openStore connects to the configured backend. SQLite files get their
// directory created first.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if dir := sqliteDir(cfg.DSN); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating data dir: %w", err)
			}
		}
		return sqlstore.Open(config.DriverSQLite, cfg.DSN)
	case config.DriverPostgres:
		return sqlstore.Open(config.DriverPostgres, cfg.DSN)
	case config.DriverMongo:
		return mongostore.Connect(ctx, cfg.DSN, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func sqliteDir(dsn string) string {
	path, _, _ := strings.Cut(dsn, "?")
	path = strings.TrimPrefix(path, "file:")
	if path == "" || strings.HasPrefix(path, ":memory:") {
		return ""
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return ""
	}
	return dir
}
