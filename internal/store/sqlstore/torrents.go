package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"torrents/internal/models"
	"torrents/internal/store"
)

const torrentColumns = `t.id, t.title, t.description, t.size, t.uploader_id, t.upload_date, t.download_count, t.average_rating`

// torrentRow carries the folded text columns used by SearchTorrents.
type torrentRow struct {
	models.Torrent
	TitleFold       string `db:"title_fold"`
	DescriptionFold string `db:"description_fold"`
}

func (s *Store) CreateTorrent(ctx context.Context, t *models.Torrent) error {
	t.Categories = store.NormalizeCategories(t.Categories)
	row := torrentRow{Torrent: *t, TitleFold: store.Fold(t.Title), DescriptionFold: store.Fold(t.Description)}
	return translate("create torrent", s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := ensureCategories(ctx, tx, t.Categories); err != nil {
			return err
		}
		_, err := tx.NamedExecContext(ctx, `INSERT INTO torrents(id, title, description, size, uploader_id, upload_date, download_count, average_rating, title_fold, description_fold)
			VALUES(:id, :title, :description, :size, :uploader_id, :upload_date, :download_count, :average_rating, :title_fold, :description_fold)`, row)
		if err != nil {
			return err
		}
		for i, c := range t.Categories {
			_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO torrent_categories(torrent_id, category, position) VALUES(?, ?, ?)`), t.ID, c, i)
			if err != nil {
				return err
			}
		}
		for i, img := range t.Images {
			_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO torrent_images(torrent_id, position, url) VALUES(?, ?, ?)`), t.ID, i, img)
			if err != nil {
				return err
			}
		}
		return nil
	}))
}

func (s *Store) GetTorrent(ctx context.Context, id string) (*models.Torrent, error) {
	var t models.Torrent
	err := s.db.GetContext(ctx, &t, s.db.Rebind(`SELECT `+torrentColumns+` FROM torrents t WHERE t.id = ?`), id)
	if err != nil {
		return nil, translate("get torrent", err)
	}
	list := []models.Torrent{t}
	if err := s.attach(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (s *Store) SearchTorrents(ctx context.Context, q store.SearchQuery) ([]models.Torrent, error) {
	var (
		where []string
		args  []any
	)
	if q.Title != "" {
		where = append(where, `t.title_fold LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(q.Title))
	}
	if q.Description != "" {
		where = append(where, `t.description_fold LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(q.Description))
	}
	if cats := store.NormalizeCategories(q.Categories); len(cats) > 0 {
		where = append(where, `EXISTS (SELECT 1 FROM torrent_categories tc WHERE tc.torrent_id = t.id AND tc.category IN (?))`)
		args = append(args, cats)
	}
	if q.From != nil {
		where = append(where, `t.upload_date >= ?`)
		args = append(args, q.From.UTC())
	}
	if q.To != nil {
		where = append(where, `t.upload_date <= ?`)
		args = append(args, q.To.UTC())
	}

	order := "ASC"
	if q.Desc {
		order = "DESC"
	}
	query := `SELECT ` + torrentColumns + ` FROM torrents t`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY t.%s %s, t.id LIMIT ?", q.SortColumn(), order)
	args = append(args, q.EffectiveLimit())

	return s.selectTorrents(ctx, "search torrents", query, args...)
}

func (s *Store) IncrementDownloads(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE torrents SET download_count = download_count + 1 WHERE id = ?`), id)
	return affectedOrNotFound("increment downloads", res, err)
}

func (s *Store) DeleteTorrent(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM comments WHERE torrent_id = ?`), id); err != nil {
			return translate("delete torrent comments", err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM torrents WHERE id = ?`), id)
		return affectedOrNotFound("delete torrent", res, err)
	})
}

func (s *Store) SetAverageRating(ctx context.Context, id string, rating float64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE torrents SET average_rating = ? WHERE id = ?`), rating, id)
	return affectedOrNotFound("set average rating", res, err)
}

// UpdateRating first touches the torrent row so the transaction holds the
// write lock before it reads the comment ratings.
func (s *Store) UpdateRating(ctx context.Context, id string, fn func(avg float64, count int64) float64) (float64, error) {
	var value float64
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE torrents SET average_rating = average_rating WHERE id = ?`), id)
		if err := affectedOrNotFound("lock torrent", res, err); err != nil {
			return err
		}
		var (
			avg float64
			n   int64
		)
		err = tx.QueryRowxContext(ctx, tx.Rebind(`SELECT
				CAST(COALESCE(AVG(rating), 0) AS DOUBLE PRECISION), COUNT(*)
			FROM comments WHERE torrent_id = ?`), id).Scan(&avg, &n)
		if err != nil {
			return err
		}
		value = fn(avg, n)
		_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE torrents SET average_rating = ? WHERE id = ?`), value, id)
		return err
	})
	if err != nil {
		return 0, translate("update rating", err)
	}
	return value, nil
}

func (s *Store) TopByDownloads(ctx context.Context, limit int, w store.Window) ([]models.Torrent, error) {
	where, args := windowClause(w)
	query := `SELECT ` + torrentColumns + ` FROM torrents t` + where +
		` ORDER BY t.download_count DESC, t.upload_date DESC LIMIT ?`
	return s.selectTorrents(ctx, "top torrents by downloads", query, append(args, limit)...)
}

func (s *Store) TopByRating(ctx context.Context, limit int) ([]models.Torrent, error) {
	query := `SELECT ` + torrentColumns + ` FROM torrents t
		WHERE t.average_rating >= 0
		ORDER BY t.average_rating DESC, t.download_count DESC LIMIT ?`
	return s.selectTorrents(ctx, "top torrents by rating", query, limit)
}

func (s *Store) CategoryStats(ctx context.Context, w store.Window) ([]models.CategoryStat, error) {
	where, args := windowClause(w)
	query := `SELECT tc.category AS name,
			COUNT(*) AS torrents,
			CAST(COALESCE(SUM(t.download_count), 0) AS BIGINT) AS total_downloads,
			CAST(COALESCE(AVG(t.average_rating), 0) AS DOUBLE PRECISION) AS avg_rating
		FROM torrent_categories tc
		JOIN torrents t ON t.id = tc.torrent_id` + where + `
		GROUP BY tc.category
		ORDER BY torrents DESC, name ASC`
	stats := []models.CategoryStat{}
	if err := s.db.SelectContext(ctx, &stats, s.db.Rebind(query), args...); err != nil {
		return nil, translate("category stats", err)
	}
	return stats, nil
}

func (s *Store) Totals(ctx context.Context, since time.Time) (models.Totals, error) {
	var t models.Totals
	err := s.db.GetContext(ctx, &t, s.db.Rebind(`SELECT COUNT(*) AS torrents,
			CAST(COALESCE(SUM(download_count), 0) AS BIGINT) AS downloads,
			CAST(COALESCE(SUM(CASE WHEN upload_date >= ? THEN 1 ELSE 0 END), 0) AS BIGINT) AS new_since
		FROM torrents`), since.UTC())
	if err != nil {
		return models.Totals{}, translate("torrent totals", err)
	}
	return t, nil
}

func windowClause(w store.Window) (string, []any) {
	var (
		where []string
		args  []any
	)
	if !w.From.IsZero() {
		where = append(where, `t.upload_date >= ?`)
		args = append(args, w.From.UTC())
	}
	if !w.To.IsZero() {
		where = append(where, `t.upload_date <= ?`)
		args = append(args, w.To.UTC())
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (s *Store) selectTorrents(ctx context.Context, op, query string, args ...any) ([]models.Torrent, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, translate(op, err)
	}
	torrents := []models.Torrent{}
	if err := s.db.SelectContext(ctx, &torrents, s.db.Rebind(query), args...); err != nil {
		return nil, translate(op, err)
	}
	if err := s.attach(ctx, torrents); err != nil {
		return nil, err
	}
	return torrents, nil
}

// attach loads categories and images for every torrent in list.
func (s *Store) attach(ctx context.Context, list []models.Torrent) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	index := make(map[string]int, len(list))
	for i := range list {
		ids[i] = list[i].ID
		index[list[i].ID] = i
		list[i].Categories = []string{}
		list[i].Images = []string{}
	}

	var cats []struct {
		TorrentID string `db:"torrent_id"`
		Value     string `db:"category"`
	}
	query, args, err := sqlx.In(`SELECT torrent_id, category FROM torrent_categories WHERE torrent_id IN (?) ORDER BY position`, ids)
	if err != nil {
		return translate("load categories", err)
	}
	if err := s.db.SelectContext(ctx, &cats, s.db.Rebind(query), args...); err != nil {
		return translate("load categories", err)
	}
	for _, c := range cats {
		t := &list[index[c.TorrentID]]
		t.Categories = append(t.Categories, c.Value)
	}

	var imgs []struct {
		TorrentID string `db:"torrent_id"`
		URL       string `db:"url"`
	}
	query, args, err = sqlx.In(`SELECT torrent_id, url FROM torrent_images WHERE torrent_id IN (?) ORDER BY position`, ids)
	if err != nil {
		return translate("load images", err)
	}
	if err := s.db.SelectContext(ctx, &imgs, s.db.Rebind(query), args...); err != nil {
		return translate("load images", err)
	}
	for _, img := range imgs {
		t := &list[index[img.TorrentID]]
		t.Images = append(t.Images, img.URL)
	}
	return nil
}
