package db

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"torrents/internal/store"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open connects to a SQLite file (or ":memory:") or a Postgres DSN.
func Open(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case "sqlite":
		db, err := sqlx.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		// one connection keeps :memory: databases alive and serializes writers
		db.SetMaxOpenConns(1)
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("pinging sqlite: %w", err)
		}
		return db, nil
	case "postgres":
		db, err := sqlx.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("pinging postgres: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
}

func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

func Migrate(db *sqlx.DB) error {
	stmts := sqliteSchema
	if db.DriverName() == "pgx" {
		stmts = postgresSchema
	}

	var b strings.Builder
	b.WriteString(`INSERT INTO categories(name) VALUES `)
	args := make([]any, 0, len(store.DefaultCategories))
	for i, name := range store.DefaultCategories {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?)")
		args = append(args, name)
	}
	b.WriteString(` ON CONFLICT(name) DO NOTHING`)

	ctx := context.Background()
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("running migration: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, db.Rebind(b.String()), args...); err != nil {
		return fmt.Errorf("seeding categories: %w", err)
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users(
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		username_fold TEXT NOT NULL DEFAULT '',
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('user','admin')),
		registration_date DATETIME NOT NULL,
		is_banned BOOLEAN NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS sessions(
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at DATETIME NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS categories(
		name TEXT PRIMARY KEY
	);`,
	`CREATE TABLE IF NOT EXISTS torrents(
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		title_fold TEXT NOT NULL DEFAULT '',
		description_fold TEXT NOT NULL DEFAULT '',
		size REAL NOT NULL DEFAULT 0,
		uploader_id TEXT NOT NULL REFERENCES users(id),
		upload_date DATETIME NOT NULL,
		download_count INTEGER NOT NULL DEFAULT 0,
		average_rating REAL NOT NULL DEFAULT 0
	);`,
	`CREATE INDEX IF NOT EXISTS idx_torrents_upload_date ON torrents(upload_date);`,
	`CREATE TABLE IF NOT EXISTS torrent_categories(
		torrent_id TEXT NOT NULL REFERENCES torrents(id) ON DELETE CASCADE,
		category TEXT NOT NULL REFERENCES categories(name),
		position INTEGER NOT NULL,
		PRIMARY KEY(torrent_id, category)
	);`,
	`CREATE TABLE IF NOT EXISTS torrent_images(
		torrent_id TEXT NOT NULL REFERENCES torrents(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		PRIMARY KEY(torrent_id, position)
	);`,
	`CREATE TABLE IF NOT EXISTS comments(
		id TEXT PRIMARY KEY,
		torrent_id TEXT NOT NULL REFERENCES torrents(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id),
		parent_id TEXT REFERENCES comments(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		rating INTEGER NOT NULL CHECK(rating BETWEEN 1 AND 5),
		date DATETIME NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_comments_torrent ON comments(torrent_id);`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users(
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		username_fold TEXT NOT NULL DEFAULT '',
		email TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL,
		role TEXT NOT NULL CHECK(role IN ('user','admin')),
		registration_date TIMESTAMPTZ NOT NULL,
		is_banned BOOLEAN NOT NULL DEFAULT FALSE
	);`,
	`CREATE TABLE IF NOT EXISTS sessions(
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS categories(
		name TEXT PRIMARY KEY
	);`,
	`CREATE TABLE IF NOT EXISTS torrents(
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		title_fold TEXT NOT NULL DEFAULT '',
		description_fold TEXT NOT NULL DEFAULT '',
		size DOUBLE PRECISION NOT NULL DEFAULT 0,
		uploader_id TEXT NOT NULL REFERENCES users(id),
		upload_date TIMESTAMPTZ NOT NULL,
		download_count BIGINT NOT NULL DEFAULT 0,
		average_rating DOUBLE PRECISION NOT NULL DEFAULT 0
	);`,
	`CREATE INDEX IF NOT EXISTS idx_torrents_upload_date ON torrents(upload_date);`,
	`CREATE TABLE IF NOT EXISTS torrent_categories(
		torrent_id TEXT NOT NULL REFERENCES torrents(id) ON DELETE CASCADE,
		category TEXT NOT NULL REFERENCES categories(name),
		position INTEGER NOT NULL,
		PRIMARY KEY(torrent_id, category)
	);`,
	`CREATE TABLE IF NOT EXISTS torrent_images(
		torrent_id TEXT NOT NULL REFERENCES torrents(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		PRIMARY KEY(torrent_id, position)
	);`,
	`CREATE TABLE IF NOT EXISTS comments(
		id TEXT PRIMARY KEY,
		torrent_id TEXT NOT NULL REFERENCES torrents(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id),
		parent_id TEXT REFERENCES comments(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		rating INTEGER NOT NULL CHECK(rating BETWEEN 1 AND 5),
		date TIMESTAMPTZ NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_comments_torrent ON comments(torrent_id);`,
}
