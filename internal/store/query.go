package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique field is already taken.
	ErrDuplicate = errors.New("duplicate record")

	// ErrInvalidID is returned for identifiers that are not UUIDs.
	ErrInvalidID = errors.New("invalid id")
)

// QueryError wraps a failed backend call with the operation that issued it.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func Wrap(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) || errors.Is(err, ErrInvalidID) {
		return err
	}
	return &QueryError{Op: op, Err: err}
}

const (
	SortByUploadDate = "upload_date"
	SortBySize       = "size"

	DefaultSearchLimit = 50
)

// DefaultCategories are seeded on every migration; uploads may add more.
var DefaultCategories = []string{"Movies", "TV", "Music", "Games", "Software", "Books", "Other"}

// SearchQuery filters torrents. Empty fields do not filter.
type SearchQuery struct {
	Title       string
	Description string
	Categories  []string
	From        *time.Time
	To          *time.Time
	SortBy      string
	Desc        bool
	Limit       int
}

// SortColumn returns the whitelisted sort column.
func (q SearchQuery) SortColumn() string {
	if q.SortBy == SortBySize {
		return SortBySize
	}
	return SortByUploadDate
}

func (q SearchQuery) EffectiveLimit() int {
	if q.Limit <= 0 || q.Limit > DefaultSearchLimit {
		return DefaultSearchLimit
	}
	return q.Limit
}

// Window bounds upload dates. A zero bound is open.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) IsZero() bool {
	return w.From.IsZero() && w.To.IsZero()
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id has the identifier format used by the stores.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}

// NormalizeCategories trims, drops empties and removes duplicates, keeping
// the first spelling.
func NormalizeCategories(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Fold is the case folding applied to searchable text when it is stored and
// to search fragments when they are matched.
func Fold(s string) string {
	return strings.ToLower(s)
}

// Now returns the current time at the precision every backend can store.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
