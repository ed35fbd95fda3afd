package stats

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torrents/internal/models"
	"torrents/internal/store"
	"torrents/internal/store/sqlstore"
	"torrents/internal/store/storetest"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T) (store.Store, map[string]*models.Torrent) {
	t.Helper()
	s, err := sqlstore.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	ctx := context.Background()
	alice := storetest.NewUser(t, s, "alice")
	storetest.NewUser(t, s, "bob")

	byTitle := map[string]*models.Torrent{
		"Arrival":   storetest.NewTorrent(t, s, alice, "Arrival", now.Add(-40*24*time.Hour), "Movies", "SciFi"),
		"Dune":      storetest.NewTorrent(t, s, alice, "Dune", now.Add(-2*24*time.Hour), "Movies", "SciFi"),
		"Blue":      storetest.NewTorrent(t, s, alice, "Blue", now.Add(-time.Hour), "Music"),
		"Untouched": storetest.NewTorrent(t, s, alice, "Untouched", now.Add(-90*24*time.Hour), "Books"),
	}
	downloads := map[string]int{"Arrival": 4, "Dune": 7, "Blue": 1}
	for title, n := range downloads {
		for i := 0; i < n; i++ {
			require.NoError(t, s.IncrementDownloads(ctx, byTitle[title].ID))
		}
	}
	require.NoError(t, s.SetAverageRating(ctx, byTitle["Arrival"].ID, 4.5))
	require.NoError(t, s.SetAverageRating(ctx, byTitle["Dune"].ID, 3.25))
	storetest.NewComment(t, s, byTitle["Dune"], alice, 3, now, nil)
	return s, byTitle
}

func TestOverview(t *testing.T) {
	s, _ := seed(t)
	svc := New(s, s, s)

	out, err := svc.Overview(context.Background(), now)
	require.NoError(t, err)

	assert.Equal(t, General{
		TotalTorrents:   4,
		TotalUsers:      2,
		TotalComments:   1,
		TotalDownloads:  12,
		NewTorrentsWeek: 2,
	}, out.General)

	var top []string
	for _, tor := range out.ByDownloads {
		top = append(top, tor.Title)
	}
	assert.Equal(t, []string{"Dune", "Arrival", "Blue", "Untouched"}, top)
	require.NotEmpty(t, out.ByRating)
	assert.Equal(t, "Arrival", out.ByRating[0].Title)

	require.Len(t, out.CategoriesOverall, 4)
	assert.Equal(t, CategoryOverall{Name: "Movies", TotalTorrents: 2, TotalDownloads: 11, AvgRating: 3.88}, out.CategoriesOverall[0])
	assert.Equal(t, "SciFi", out.CategoriesOverall[1].Name)
	assert.Equal(t, "Books", out.CategoriesOverall[2].Name)
	assert.Equal(t, "Music", out.CategoriesOverall[3].Name)
	assert.Equal(t, CategoryCount{Name: "Movies", Count: 2, TotalDownloads: 11, AvgRating: 3.88}, out.Categories[0])

	weekly := map[string]CategoryWeekly{}
	for _, c := range out.WeeklyByCategory {
		weekly[c.Name] = c
	}
	assert.Len(t, weekly, 3)
	assert.EqualValues(t, 1, weekly["Movies"].NewTorrentsCount)
	assert.EqualValues(t, 7, weekly["Movies"].TotalDownloads)
	assert.EqualValues(t, 1, weekly["Music"].NewTorrentsCount)
	assert.NotContains(t, weekly, "Books")
}

func TestOverviewEmptyStore(t *testing.T) {
	s, err := sqlstore.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	out, err := New(s, s, s).Overview(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, out.General)

	// empty lists still serialize as arrays
	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"general_stats": {"total_torrents":0,"total_users":0,"total_comments":0,"total_downloads":0,"new_torrents_week":0},
		"by_downloads": [], "by_rating": [], "categories": [], "categories_overall": [], "weekly_by_category": []
	}`, string(raw))
}

func TestPeriod(t *testing.T) {
	s, byTitle := seed(t)
	svc := New(s, s, s)

	from := now.Add(-50 * 24 * time.Hour)
	to := now.Add(-24 * time.Hour)
	out, err := svc.Period(context.Background(), from, to)
	require.NoError(t, err)

	assert.True(t, from.Equal(out.Period.From))
	assert.True(t, to.Equal(out.Period.To))

	require.Len(t, out.PopularInPeriod, 2)
	assert.Equal(t, byTitle["Dune"].ID, out.PopularInPeriod[0].ID)
	assert.Equal(t, byTitle["Arrival"].ID, out.PopularInPeriod[1].ID)

	require.Len(t, out.CategoriesInPeriod, 2)
	assert.Equal(t, CategoryInPeriod{Name: "Movies", TorrentsCount: 2, TotalDownloads: 11, AvgRating: 3.88}, out.CategoriesInPeriod[0])
	assert.Equal(t, "SciFi", out.CategoriesInPeriod[1].Name)
}

func TestPeriodRejectsInvertedRange(t *testing.T) {
	s, _ := seed(t)
	_, err := New(s, s, s).Period(context.Background(), now, now.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}
