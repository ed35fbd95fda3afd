// Package stats builds the admin dashboard aggregates.
package stats

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"torrents/internal/models"
	"torrents/internal/rating"
	"torrents/internal/store"
)

const (
	TopLimit = 10
	Week     = 7 * 24 * time.Hour
)

var ErrInvalidPeriod = errors.New("date_from must not be after date_to")

type General struct {
	TotalTorrents   int64 `json:"total_torrents"`
	TotalUsers      int64 `json:"total_users"`
	TotalComments   int64 `json:"total_comments"`
	TotalDownloads  int64 `json:"total_downloads"`
	NewTorrentsWeek int64 `json:"new_torrents_week"`
}

type CategoryCount struct {
	Name           string  `json:"_id"`
	Count          int64   `json:"count"`
	TotalDownloads int64   `json:"total_downloads"`
	AvgRating      float64 `json:"avg_rating"`
}

type CategoryOverall struct {
	Name           string  `json:"_id"`
	TotalTorrents  int64   `json:"total_torrents"`
	TotalDownloads int64   `json:"total_downloads"`
	AvgRating      float64 `json:"avg_rating"`
}

type CategoryWeekly struct {
	Name             string  `json:"_id"`
	NewTorrentsCount int64   `json:"new_torrents_count"`
	TotalDownloads   int64   `json:"total_downloads"`
	AvgRating        float64 `json:"avg_rating"`
}

type CategoryInPeriod struct {
	Name           string  `json:"_id"`
	TorrentsCount  int64   `json:"torrents_count"`
	TotalDownloads int64   `json:"total_downloads"`
	AvgRating      float64 `json:"avg_rating"`
}

type Overview struct {
	General           General           `json:"general_stats"`
	ByDownloads       []models.Torrent  `json:"by_downloads"`
	ByRating          []models.Torrent  `json:"by_rating"`
	Categories        []CategoryCount   `json:"categories"`
	CategoriesOverall []CategoryOverall `json:"categories_overall"`
	WeeklyByCategory  []CategoryWeekly  `json:"weekly_by_category"`
}

type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type Period struct {
	Period             Range              `json:"period"`
	CategoriesInPeriod []CategoryInPeriod `json:"categories_in_period"`
	PopularInPeriod    []models.Torrent   `json:"popular_in_period"`
}

type Service struct {
	torrents store.TorrentRepository
	users    store.UserRepository
	comments store.CommentRepository
}

func New(torrents store.TorrentRepository, users store.UserRepository, comments store.CommentRepository) *Service {
	return &Service{torrents: torrents, users: users, comments: comments}
}

// Overview runs the dashboard queries concurrently. The weekly figures cover
// the seven days before now.
func (s *Service) Overview(ctx context.Context, now time.Time) (*Overview, error) {
	weekAgo := now.Add(-Week)
	var (
		out     Overview
		totals  models.Totals
		overall []models.CategoryStat
		weekly  []models.CategoryStat
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totals, err = s.torrents.Totals(ctx, weekAgo)
		return err
	})
	g.Go(func() (err error) {
		out.General.TotalUsers, err = s.users.CountUsers(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.General.TotalComments, err = s.comments.CountComments(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.ByDownloads, err = s.torrents.TopByDownloads(ctx, TopLimit, store.Window{})
		return err
	})
	g.Go(func() (err error) {
		out.ByRating, err = s.torrents.TopByRating(ctx, TopLimit)
		return err
	})
	g.Go(func() (err error) {
		overall, err = s.torrents.CategoryStats(ctx, store.Window{})
		return err
	})
	g.Go(func() (err error) {
		weekly, err = s.torrents.CategoryStats(ctx, store.Window{From: weekAgo, To: now})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.General.TotalTorrents = totals.Torrents
	out.General.TotalDownloads = totals.Downloads
	out.General.NewTorrentsWeek = totals.NewSince

	out.Categories = make([]CategoryCount, 0, len(overall))
	out.CategoriesOverall = make([]CategoryOverall, 0, len(overall))
	for _, c := range overall {
		avg := rating.Round2(c.AvgRating)
		out.Categories = append(out.Categories, CategoryCount{c.Name, c.Torrents, c.TotalDownloads, avg})
		out.CategoriesOverall = append(out.CategoriesOverall, CategoryOverall{c.Name, c.Torrents, c.TotalDownloads, avg})
	}
	out.WeeklyByCategory = make([]CategoryWeekly, 0, len(weekly))
	for _, c := range weekly {
		out.WeeklyByCategory = append(out.WeeklyByCategory, CategoryWeekly{c.Name, c.Torrents, c.TotalDownloads, rating.Round2(c.AvgRating)})
	}
	return &out, nil
}

// Period aggregates torrents uploaded within [from, to].
func (s *Service) Period(ctx context.Context, from, to time.Time) (*Period, error) {
	if from.After(to) {
		return nil, ErrInvalidPeriod
	}
	w := store.Window{From: from, To: to}
	out := Period{Period: Range{From: from.UTC(), To: to.UTC()}}

	var cats []models.CategoryStat
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cats, err = s.torrents.CategoryStats(ctx, w)
		return err
	})
	g.Go(func() (err error) {
		out.PopularInPeriod, err = s.torrents.TopByDownloads(ctx, TopLimit, w)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.CategoriesInPeriod = make([]CategoryInPeriod, 0, len(cats))
	for _, c := range cats {
		out.CategoriesInPeriod = append(out.CategoriesInPeriod, CategoryInPeriod{c.Name, c.Torrents, c.TotalDownloads, rating.Round2(c.AvgRating)})
	}
	return &out, nil
}
