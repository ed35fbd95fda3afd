package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID               string    `db:"id" bson:"_id" json:"_id"`
	Username         string    `db:"username" bson:"username" json:"username"`
	Email            string    `db:"email" bson:"email" json:"email"`
	Password         string    `db:"password" bson:"password" json:"-"`
	Role             string    `db:"role" bson:"role" json:"role"`
	RegistrationDate time.Time `db:"registration_date" bson:"registration_date" json:"registration_date"`
	IsBanned         bool      `db:"is_banned" bson:"is_banned" json:"is_banned"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Torrent is the metadata of a shared torrent. Size is expressed in megabytes.
type Torrent struct {
	ID            string    `db:"id" bson:"_id" json:"_id"`
	Title         string    `db:"title" bson:"title" json:"title"`
	Description   string    `db:"description" bson:"description" json:"description"`
	Size          float64   `db:"size" bson:"size" json:"size"`
	Categories    []string  `db:"-" bson:"categories" json:"categories"`
	Images        []string  `db:"-" bson:"images" json:"images"`
	UploaderID    string    `db:"uploader_id" bson:"uploader_id" json:"uploader_id"`
	UploadDate    time.Time `db:"upload_date" bson:"upload_date" json:"upload_date"`
	DownloadCount int64     `db:"download_count" bson:"download_count" json:"download_count"`
	AverageRating float64   `db:"average_rating" bson:"average_rating" json:"average_rating"`
}

// Comment is a rated comment on a torrent. ParentID is set on replies.
type Comment struct {
	ID        string     `db:"id" bson:"_id" json:"_id"`
	TorrentID string     `db:"torrent_id" bson:"torrent_id" json:"torrent_id"`
	UserID    string     `db:"user_id" bson:"user_id" json:"user_id"`
	ParentID  *string    `db:"parent_id" bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	Username  string     `db:"username" bson:"username,omitempty" json:"username,omitempty"`
	Text      string     `db:"text" bson:"text" json:"text"`
	Rating    int        `db:"rating" bson:"rating" json:"rating"`
	Date      time.Time  `db:"date" bson:"date" json:"date"`
	Replies   []*Comment `db:"-" bson:"-" json:"replies"`
}

type Category struct {
	Name string `db:"name" bson:"_id" json:"name"`
}

type Session struct {
	ID        string    `db:"id" bson:"_id"`
	UserID    string    `db:"user_id" bson:"user_id"`
	ExpiresAt time.Time `db:"expires_at" bson:"expires_at"`
}

// CategoryStat is one row of a per-category aggregation over torrents.
type CategoryStat struct {
	Name           string  `db:"name" bson:"_id"`
	Torrents       int64   `db:"torrents" bson:"count"`
	TotalDownloads int64   `db:"total_downloads" bson:"total_downloads"`
	AvgRating      float64 `db:"avg_rating" bson:"avg_rating"`
}

type Totals struct {
	Torrents  int64 `db:"torrents" bson:"torrents"`
	Downloads int64 `db:"downloads" bson:"downloads"`
	NewSince  int64 `db:"new_since" bson:"new_since"`
}
