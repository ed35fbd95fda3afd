package rating

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"torrents/internal/models"

	"torrents/internal/store"
	"torrents/internal/store/sqlstore"
	"torrents/internal/store/storetest"
)

func setupTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlstore.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestRound2(t *testing.T) {
	cases := map[float64]float64{
		0:        0,
		3:        3,
		11.0 / 3: 3.67,
		2.0 / 3:  0.67,
		4.444:    4.44,
		1.005001: 1.01,
		4.5:      4.5,
	}
	for in, want := range cases {
		assert.InDelta(t, want, Round2(in), 1e-9, "Round2(%v)", in)
	}
}

func TestRecalculate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	u := storetest.NewUser(t, s, "rater")
	tor := storetest.NewTorrent(t, s, u, "Rated", now)

	got, err := Recalculate(ctx, s, tor.ID)
	require.NoError(t, err)
	assert.Zero(t, got)

	storetest.NewComment(t, s, tor, u, 5, now, nil)
	storetest.NewComment(t, s, tor, u, 4, now, nil)
	last := storetest.NewComment(t, s, tor, u, 2, now, nil)

	got, err = Recalculate(ctx, s, tor.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.67, got)

	stored, err := s.GetTorrent(ctx, tor.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.67, stored.AverageRating)

	require.NoError(t, s.DeleteComment(ctx, last.ID))
	got, err = Recalculate(ctx, s, tor.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, got)
}

func TestRecalculateMissingTorrent(t *testing.T) {
	s := setupTestStore(t)
	_, err := Recalculate(context.Background(), s, store.NewID())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMean(t *testing.T) {
	assert.Zero(t, Mean(0, 0))
	assert.Zero(t, Mean(3.5, 0), "no comments means no rating")
	assert.Equal(t, 3.67, Mean(11.0/3, 3))
}

func TestRecalculateConcurrentComments(t *testing.T) {
	s, err := sqlstore.Open("sqlite", filepath.Join(t.TempDir(), "rating.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))

	u := storetest.NewUser(t, s, "crowd")
	now := store.Now()
	for round := 0; round < 10; round++ {
		tor := storetest.NewTorrent(t, s, u, "Busy", now)

		var g errgroup.Group
		for i := 0; i < 8; i++ {
			r := i%5 + 1
			g.Go(func() error {
				c := &models.Comment{ID: store.NewID(), TorrentID: tor.ID, UserID: u.ID, Text: "x", Rating: r, Date: now}
				if err := s.CreateComment(ctx, c); err != nil {
					return err
				}
				_, err := Recalculate(ctx, s, tor.ID)
				return err
			})
		}
		require.NoError(t, g.Wait())

		avg, n, err := s.AverageRating(ctx, tor.ID)
		require.NoError(t, err)
		require.EqualValues(t, 8, n)
		stored, err := s.GetTorrent(ctx, tor.ID)
		require.NoError(t, err)
		assert.Equal(t, Mean(avg, n), stored.AverageRating, "round %d", round)
	}
}
