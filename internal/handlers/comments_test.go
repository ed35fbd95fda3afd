package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torrents/internal/models"
)

func ptr(s string) *string { return &s }

func TestBuildCommentTree(t *testing.T) {
	list := []models.Comment{
		{ID: "a"},
		{ID: "b", ParentID: ptr("a")},
		{ID: "c"},
		{ID: "d", ParentID: ptr("b")},
		{ID: "e", ParentID: ptr("a")},
		{ID: "f", ParentID: ptr("gone")},
	}
	roots := buildCommentTree(list)

	ids := func(cs []*models.Comment) []string {
		out := []string{}
		for _, c := range cs {
			out = append(out, c.ID)
		}
		return out
	}
	require.Equal(t, []string{"a", "c", "f"}, ids(roots))
	assert.Equal(t, []string{"b", "e"}, ids(roots[0].Replies))
	assert.Equal(t, []string{"d"}, ids(roots[0].Replies[0].Replies))
	assert.NotNil(t, roots[1].Replies)
	assert.Empty(t, roots[1].Replies)
}

func TestBuildCommentTreeEmpty(t *testing.T) {
	roots := buildCommentTree(nil)
	assert.NotNil(t, roots)
	assert.Empty(t, roots)
}
