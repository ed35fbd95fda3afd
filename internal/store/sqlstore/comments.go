package sqlstore

import (
	"context"

	"torrents/internal/models"
)

const commentSelect = `SELECT c.id, c.torrent_id, c.user_id, c.parent_id, c.text, c.rating, c.date,
		COALESCE(u.username, '') AS username
	FROM comments c LEFT JOIN users u ON u.id = c.user_id`

func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO comments(id, torrent_id, user_id, parent_id, text, rating, date)
		VALUES(:id, :torrent_id, :user_id, :parent_id, :text, :rating, :date)`, c)
	return translate("create comment", err)
}

func (s *Store) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	var c models.Comment
	if err := s.db.GetContext(ctx, &c, s.db.Rebind(commentSelect+` WHERE c.id = ?`), id); err != nil {
		return nil, translate("get comment", err)
	}
	return &c, nil
}

func (s *Store) ListComments(ctx context.Context, torrentID string) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := s.db.SelectContext(ctx, &comments, s.db.Rebind(commentSelect+` WHERE c.torrent_id = ? ORDER BY c.date, c.id`), torrentID)
	if err != nil {
		return nil, translate("list comments", err)
	}
	return comments, nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM comments WHERE id = ?`), id)
	return affectedOrNotFound("delete comment", res, err)
}

func (s *Store) AverageRating(ctx context.Context, torrentID string) (float64, int64, error) {
	var (
		avg   float64
		count int64
	)
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(`SELECT
			CAST(COALESCE(AVG(rating), 0) AS DOUBLE PRECISION), COUNT(*)
		FROM comments WHERE torrent_id = ?`), torrentID).Scan(&avg, &count)
	if err != nil {
		return 0, 0, translate("average rating", err)
	}
	return avg, count, nil
}

func (s *Store) CountComments(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM comments`); err != nil {
		return 0, translate("count comments", err)
	}
	return n, nil
}
