package sqlstore

import (
	"context"

	"github.com/jmoiron/sqlx"

	"torrents/internal/store"
)

func (s *Store) EnsureCategories(ctx context.Context, names []string) error {
	return translate("ensure categories", ensureCategories(ctx, s.db, store.NormalizeCategories(names)))
}

func ensureCategories(ctx context.Context, ex sqlx.ExtContext, names []string) error {
	for _, name := range names {
		_, err := ex.ExecContext(ctx, ex.Rebind(`INSERT INTO categories(name) VALUES(?) ON CONFLICT(name) DO NOTHING`), name)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	names := []string{}
	if err := s.db.SelectContext(ctx, &names, `SELECT name FROM categories ORDER BY name`); err != nil {
		return nil, translate("list categories", err)
	}
	return names, nil
}
