// Package sqlstore implements store.Store on SQLite and Postgres through sqlx.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"torrents/internal/db"
	"torrents/internal/store"
)

type Store struct {
	db *sqlx.DB
}

func New(sqlDB *sqlx.DB) *Store {
	return &Store{db: sqlDB}
}

// Open connects with db.Open and wraps the handle.
func Open(driver, dsn string) (*Store, error) {
	sqlDB, err := db.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	return New(sqlDB), nil
}

func (s *Store) Migrate(ctx context.Context) error {
	return db.Migrate(s.db)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for tests and maintenance commands.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// translate maps driver errors onto the store sentinels.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return store.ErrDuplicate
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return store.ErrDuplicate
	}
	return store.Wrap(op, err)
}

func affectedOrNotFound(op string, res sql.Result, err error) error {
	if err != nil {
		return translate(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translate(op, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

var _ store.Store = (*Store)(nil)
