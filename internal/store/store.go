// Package store defines the persistence contract shared by the SQL and
// MongoDB backends.
package store

import (
	"context"
	"time"

	"torrents/internal/models"
)

// UserRepository defines user account operations.
type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// GetUserByLogin matches login against both username and email.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	SearchUsers(ctx context.Context, fragment string, limit int) ([]models.User, error)
	BanUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int64, error)
}

// TorrentRepository defines torrent metadata and aggregation operations.
type TorrentRepository interface {
	CreateTorrent(ctx context.Context, t *models.Torrent) error
	GetTorrent(ctx context.Context, id string) (*models.Torrent, error)
	SearchTorrents(ctx context.Context, q SearchQuery) ([]models.Torrent, error)
	IncrementDownloads(ctx context.Context, id string) error
	// DeleteTorrent removes the torrent together with its comments.
	DeleteTorrent(ctx context.Context, id string) error
	SetAverageRating(ctx context.Context, id string, rating float64) error
	// UpdateRating stores fn(mean, count) of the torrent's comment ratings and
	// returns it. Concurrent calls for one torrent are serialized, so the last
	// stored value always reflects every committed comment.
	UpdateRating(ctx context.Context, id string, fn func(avg float64, count int64) float64) (float64, error)
	TopByDownloads(ctx context.Context, limit int, w Window) ([]models.Torrent, error)
	TopByRating(ctx context.Context, limit int) ([]models.Torrent, error)
	CategoryStats(ctx context.Context, w Window) ([]models.CategoryStat, error)
	Totals(ctx context.Context, since time.Time) (models.Totals, error)
}

// CommentRepository defines comment operations.
type CommentRepository interface {
	CreateComment(ctx context.Context, c *models.Comment) error
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	// ListComments returns the torrent's comments oldest first, with usernames.
	ListComments(ctx context.Context, torrentID string) ([]models.Comment, error)
	// DeleteComment removes the comment and its replies.
	DeleteComment(ctx context.Context, id string) error
	AverageRating(ctx context.Context, torrentID string) (avg float64, count int64, err error)
	CountComments(ctx context.Context) (int64, error)
}

// CategoryRepository defines category tag operations.
type CategoryRepository interface {
	EnsureCategories(ctx context.Context, names []string) error
	ListCategories(ctx context.Context) ([]string, error)
}

// SessionRepository defines login session persistence.
type SessionRepository interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID string) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type Store interface {
	UserRepository
	TorrentRepository
	CommentRepository
	CategoryRepository
	SessionRepository

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
