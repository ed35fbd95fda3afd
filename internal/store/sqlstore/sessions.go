package sqlstore

import (
	"context"
	"time"

	"torrents/internal/models"
)

func (s *Store) CreateSession(ctx context.Context, sess *models.Session) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO sessions(id, user_id, expires_at) VALUES(:id, :user_id, :expires_at)`, sess)
	return translate("create session", err)
}

func (s *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var sess models.Session
	err := s.db.GetContext(ctx, &sess, s.db.Rebind(`SELECT id, user_id, expires_at FROM sessions WHERE id = ?`), id)
	if err != nil {
		return nil, translate("get session", err)
	}
	return &sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE id = ?`), id)
	return translate("delete session", err)
}

func (s *Store) DeleteUserSessions(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE user_id = ?`), userID)
	return translate("delete user sessions", err)
}

func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM sessions WHERE expires_at < ?`), now.UTC())
	if err != nil {
		return 0, translate("purge sessions", err)
	}
	return res.RowsAffected()
}
