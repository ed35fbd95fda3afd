package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCategories(t *testing.T) {
	got := NormalizeCategories([]string{" Movies ", "", "Music", "Movies", "   "})
	assert.Equal(t, []string{"Movies", "Music"}, got)
	assert.Empty(t, NormalizeCategories(nil))
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID(NewID()))
	assert.False(t, ValidID("not-an-id"))
	assert.False(t, ValidID("507f1f77bcf86cd799439011"))
	assert.False(t, ValidID(""))
}

func TestSearchQueryDefaults(t *testing.T) {
	q := SearchQuery{SortBy: "title; DROP TABLE torrents"}
	assert.Equal(t, SortByUploadDate, q.SortColumn())
	assert.Equal(t, DefaultSearchLimit, q.EffectiveLimit())

	q = SearchQuery{SortBy: SortBySize, Limit: 5}
	assert.Equal(t, SortBySize, q.SortColumn())
	assert.Equal(t, 5, q.EffectiveLimit())
}

func TestWrapKeepsSentinels(t *testing.T) {
	assert.Same(t, ErrNotFound, Wrap("get", ErrNotFound))
	assert.Nil(t, Wrap("get", nil))

	cause := errors.New("disk full")
	err := Wrap("insert torrent", cause)
	var qe *QueryError
	assert.ErrorAs(t, err, &qe)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "insert torrent: disk full", err.Error())
}
