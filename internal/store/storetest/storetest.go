// Package storetest holds the behavioral suite every store.Store backend
// must pass.
package storetest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"torrents/internal/models"
	"torrents/internal/store"
)

// Factory returns a fresh, migrated and empty store.
type Factory func(t *testing.T) store.Store

func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("UserSearch", func(t *testing.T) { testUserSearch(t, newStore(t)) })
	t.Run("Ban", func(t *testing.T) { testBan(t, newStore(t)) })
	t.Run("Torrents", func(t *testing.T) { testTorrents(t, newStore(t)) })
	t.Run("Search", func(t *testing.T) { testSearch(t, newStore(t)) })
	t.Run("UnicodeSearch", func(t *testing.T) { testUnicodeSearch(t, newStore(t)) })
	t.Run("Downloads", func(t *testing.T) { testDownloads(t, newStore(t)) })
	t.Run("Comments", func(t *testing.T) { testComments(t, newStore(t)) })
	t.Run("UpdateRating", func(t *testing.T) { testUpdateRating(t, newStore(t)) })
	t.Run("ConcurrentRating", func(t *testing.T) { testConcurrentRating(t, newStore(t)) })
	t.Run("DeleteTorrent", func(t *testing.T) { testDeleteTorrent(t, newStore(t)) })
	t.Run("Aggregates", func(t *testing.T) { testAggregates(t, newStore(t)) })
	t.Run("Categories", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("Sessions", func(t *testing.T) { testSessions(t, newStore(t)) })
}

var base = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func NewUser(t *testing.T, s store.Store, username string) *models.User {
	t.Helper()
	u := &models.User{
		ID:               store.NewID(),
		Username:         username,
		Email:            username + "@example.com",
		Password:         "secret",
		Role:             models.RoleUser,
		RegistrationDate: base,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func NewTorrent(t *testing.T, s store.Store, uploader *models.User, title string, uploaded time.Time, cats ...string) *models.Torrent {
	t.Helper()
	tor := &models.Torrent{
		ID:          store.NewID(),
		Title:       title,
		Description: "about " + title,
		Size:        700,
		Categories:  cats,
		Images:      []string{},
		UploaderID:  uploader.ID,
		UploadDate:  uploaded.UTC(),
	}
	require.NoError(t, s.CreateTorrent(context.Background(), tor))
	return tor
}

func NewComment(t *testing.T, s store.Store, tor *models.Torrent, u *models.User, rating int, at time.Time, parent *string) *models.Comment {
	t.Helper()
	c := &models.Comment{
		ID:        store.NewID(),
		TorrentID: tor.ID,
		UserID:    u.ID,
		ParentID:  parent,
		Text:      "nice",
		Rating:    rating,
		Date:      at.UTC(),
	}
	require.NoError(t, s.CreateComment(context.Background(), c))
	return c
}

func titles(list []models.Torrent) []string {
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = t.Title
	}
	return out
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := NewUser(t, s, "alice")

	got, err := s.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, models.RoleUser, got.Role)
	assert.False(t, got.IsBanned)
	assert.True(t, base.Equal(got.RegistrationDate))

	byName, err := s.GetUserByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)

	byEmail, err := s.GetUserByLogin(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byEmail.ID)

	_, err = s.GetUserByLogin(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetUserByID(ctx, store.NewID())
	assert.ErrorIs(t, err, store.ErrNotFound)

	exists, err := s.ExistsByUsernameOrEmail(ctx, "someone", "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.ExistsByUsernameOrEmail(ctx, "someone", "someone@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	dup := &models.User{ID: store.NewID(), Username: "alice", Email: "other@example.com", Password: "x", Role: models.RoleUser, RegistrationDate: base}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), store.ErrDuplicate)

	n, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func testUserSearch(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, name := range []string{"Neo", "neon_rider", "trinity", "morpheus", "n%o"} {
		NewUser(t, s, name)
	}

	users, err := s.SearchUsers(ctx, "NEO", 10)
	require.NoError(t, err)
	var names []string
	for _, u := range users {
		names = append(names, u.Username)
	}
	assert.ElementsMatch(t, []string{"Neo", "neon_rider"}, names)

	users, err = s.SearchUsers(ctx, "%", 10)
	require.NoError(t, err)
	require.Len(t, users, 1, "wildcards in the fragment are literal")
	assert.Equal(t, "n%o", users[0].Username)

	users, err = s.SearchUsers(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func testBan(t *testing.T, s store.Store) {
	ctx := context.Background()
	bob := NewUser(t, s, "bob")

	require.NoError(t, s.BanUser(ctx, bob.ID))
	got, err := s.GetUserByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.True(t, got.IsBanned)

	assert.NoError(t, s.BanUser(ctx, bob.ID), "banning twice is idempotent")
	assert.ErrorIs(t, s.BanUser(ctx, store.NewID()), store.ErrNotFound)
}

func testTorrents(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser(t, s, "uploader")

	tor := &models.Torrent{
		ID:          store.NewID(),
		Title:       "Big Buck Bunny",
		Description: "open movie",
		Size:        1234.5,
		Categories:  []string{" Movies", "Animation", "Movies", ""},
		Images:      []string{"http://img/1.png", "http://img/2.png"},
		UploaderID:  u.ID,
		UploadDate:  base,
	}
	require.NoError(t, s.CreateTorrent(ctx, tor))

	got, err := s.GetTorrent(ctx, tor.ID)
	require.NoError(t, err)
	assert.Equal(t, "Big Buck Bunny", got.Title)
	assert.Equal(t, 1234.5, got.Size)
	assert.Equal(t, []string{"Movies", "Animation"}, got.Categories)
	assert.Equal(t, []string{"http://img/1.png", "http://img/2.png"}, got.Images)
	assert.Equal(t, u.ID, got.UploaderID)
	assert.True(t, base.Equal(got.UploadDate))
	assert.Zero(t, got.DownloadCount)
	assert.Zero(t, got.AverageRating)

	bare := NewTorrent(t, s, u, "No tags", base)
	got, err = s.GetTorrent(ctx, bare.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Categories)
	assert.Empty(t, got.Categories)
	assert.NotNil(t, got.Images)

	_, err = s.GetTorrent(ctx, store.NewID())
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetAverageRating(ctx, tor.ID, 3.67))
	got, err = s.GetTorrent(ctx, tor.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.67, got.AverageRating, 1e-9)
	assert.ErrorIs(t, s.SetAverageRating(ctx, store.NewID(), 1), store.ErrNotFound)
}

func testSearch(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser(t, s, "seeder")

	a := NewTorrent(t, s, u, "Ubuntu 24.04 ISO", base.Add(-72*time.Hour), "Software")
	b := NewTorrent(t, s, u, "Debian netinst", base.Add(-48*time.Hour), "Software", "Linux")
	c := NewTorrent(t, s, u, "Night of the Living Dead", base.Add(-24*time.Hour), "Movies")

	cases := []struct {
		name string
		q    store.SearchQuery
		want []string
	}{
		{"all ascending by date", store.SearchQuery{}, []string{"Ubuntu 24.04 ISO", "Debian netinst", "Night of the Living Dead"}},
		{"descending", store.SearchQuery{Desc: true}, []string{"Night of the Living Dead", "Debian netinst", "Ubuntu 24.04 ISO"}},
		{"title case insensitive", store.SearchQuery{Title: "ubuntu"}, []string{"Ubuntu 24.04 ISO"}},
		{"title is not a pattern", store.SearchQuery{Title: "24_04"}, []string{}},
		{"description", store.SearchQuery{Description: "ABOUT DEBIAN"}, []string{"Debian netinst"}},
		{"any category", store.SearchQuery{Categories: []string{"Linux", "Movies"}}, []string{"Debian netinst", "Night of the Living Dead"}},
		{"from", store.SearchQuery{From: ptr(base.Add(-48 * time.Hour))}, []string{"Debian netinst", "Night of the Living Dead"}},
		{"to", store.SearchQuery{To: ptr(base.Add(-48 * time.Hour))}, []string{"Ubuntu 24.04 ISO", "Debian netinst"}},
		{"range and category", store.SearchQuery{From: ptr(base.Add(-80 * time.Hour)), To: ptr(base.Add(-30 * time.Hour)), Categories: []string{"Software"}}, []string{"Ubuntu 24.04 ISO", "Debian netinst"}},
		{"limit", store.SearchQuery{Limit: 1}, []string{"Ubuntu 24.04 ISO"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.SearchTorrents(ctx, tc.q)
			require.NoError(t, err)
			assert.Equal(t, tc.want, titles(got))
		})
	}

	huge := &models.Torrent{ID: store.NewID(), Title: "Huge", Size: 50000, UploaderID: u.ID, UploadDate: base.Add(-96 * time.Hour)}
	require.NoError(t, s.CreateTorrent(ctx, huge))
	tiny := &models.Torrent{ID: store.NewID(), Title: "Tiny", Size: 0.5, UploaderID: u.ID, UploadDate: base}
	require.NoError(t, s.CreateTorrent(ctx, tiny))

	got, err := s.SearchTorrents(ctx, store.SearchQuery{SortBy: store.SortBySize, Desc: true, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"Huge"}, titles(got))
	got, err = s.SearchTorrents(ctx, store.SearchQuery{SortBy: store.SortBySize, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tiny"}, titles(got))

	got, err = s.SearchTorrents(ctx, store.SearchQuery{Categories: []string{"Linux"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)
	assert.Equal(t, []string{"Software", "Linux"}, got[0].Categories)
	assert.Equal(t, a.UploaderID, got[0].UploaderID)

	got, err = s.SearchTorrents(ctx, store.SearchQuery{Title: "living", Categories: []string{"movies"}})
	require.NoError(t, err)
	assert.Empty(t, got, "category names match exactly")
	got, err = s.SearchTorrents(ctx, store.SearchQuery{Title: "living", Categories: []string{"Movies"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, c.ID, got[0].ID)
}

func testUnicodeSearch(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser(t, s, "Élodie")
	NewUser(t, s, "elodie")
	tor := NewTorrent(t, s, u, "Éclair Ünïcode", base)
	NewTorrent(t, s, u, "Eclair plain", base)

	for _, fragment := range []string{"Éclair", "éclair", "ÉCLAIR ÜNÏ", "ünïcode"} {
		got, err := s.SearchTorrents(ctx, store.SearchQuery{Title: fragment})
		require.NoError(t, err)
		require.Len(t, got, 1, fragment)
		assert.Equal(t, tor.ID, got[0].ID, fragment)
	}
	got, err := s.SearchTorrents(ctx, store.SearchQuery{Description: "ABOUT ÉCLAIR"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Éclair Ünïcode"}, titles(got))

	for _, fragment := range []string{"Élodie", "élodie", "ÉLO"} {
		users, err := s.SearchUsers(ctx, fragment, 10)
		require.NoError(t, err)
		require.Len(t, users, 1, fragment)
		assert.Equal(t, u.ID, users[0].ID, fragment)
	}
}

func testDownloads(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser(t, s, "dl")
	tor := NewTorrent(t, s, u, "Counted", base)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.IncrementDownloads(ctx, tor.ID))
	}
	got, err := s.GetTorrent(ctx, tor.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.DownloadCount)

	assert.ErrorIs(t, s.IncrementDownloads(ctx, store.NewID()), store.ErrNotFound)
}

func testComments(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := NewUser(t, s, "alice")
	bob := NewUser(t, s, "bob")
	tor := NewTorrent(t, s, alice, "Commented", base)

	avg, n, err := s.AverageRating(ctx, tor.ID)
	require.NoError(t, err)
	assert.Zero(t, avg)
	assert.Zero(t, n)

	first := NewComment(t, s, tor, alice, 5, base.Add(time.Minute), nil)
	second := NewComment(t, s, tor, bob, 2, base.Add(2*time.Minute), nil)
	reply := NewComment(t, s, tor, alice, 4, base.Add(3*time.Minute), &second.ID)

	list, err := s.ListComments(ctx, tor.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, "alice", list[0].Username)
	assert.Equal(t, "bob", list[1].Username)
	assert.Nil(t, list[0].ParentID)
	require.NotNil(t, list[2].ParentID)
	assert.Equal(t, second.ID, *list[2].ParentID)

	got, err := s.GetComment(ctx, reply.ID)
	require.NoError(t, err)
	assert.Equal(t, tor.ID, got.TorrentID)
	assert.Equal(t, 4, got.Rating)
	_, err = s.GetComment(ctx, store.NewID())
	assert.ErrorIs(t, err, store.ErrNotFound)

	avg, n, err = s.AverageRating(ctx, tor.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.InDelta(t, 11.0/3.0, avg, 1e-9)

	// deleting a comment removes its replies
	require.NoError(t, s.DeleteComment(ctx, second.ID))
	list, err = s.ListComments(ctx, tor.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)

	assert.ErrorIs(t, s.DeleteComment(ctx, second.ID), store.ErrNotFound)

	total, err := s.CountComments(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func round2(avg float64, n int64) float64 {
	if n == 0 {
		return 0
	}
	return math.Round(avg*100) / 100
}

func testUpdateRating(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser(t, s, "rater")
	tor := NewTorrent(t, s, u, "Rated", base)

	got, err := s.UpdateRating(ctx, tor.ID, round2)
	require.NoError(t, err)
	assert.Zero(t, got)

	NewComment(t, s, tor, u, 5, base, nil)
	NewComment(t, s, tor, u, 4, base, nil)
	NewComment(t, s, tor, u, 2, base, nil)

	var seen int64
	got, err = s.UpdateRating(ctx, tor.ID, func(avg float64, n int64) float64 {
		seen = n
		return round2(avg, n)
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, seen)
	assert.Equal(t, 3.67, got)

	stored, err := s.GetTorrent(ctx, tor.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.67, stored.AverageRating)

	_, err = s.UpdateRating(ctx, store.NewID(), round2)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testConcurrentRating(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser(t, s, "crowd")

	for round := 0; round < 5; round++ {
		tor := NewTorrent(t, s, u, "Busy", base)

		var g errgroup.Group
		for i := 0; i < 8; i++ {
			c := &models.Comment{ID: store.NewID(), TorrentID: tor.ID, UserID: u.ID, Text: "x", Rating: i%5 + 1, Date: base}
			g.Go(func() error {
				if err := s.CreateComment(ctx, c); err != nil {
					return err
				}
				_, err := s.UpdateRating(ctx, tor.ID, round2)
				return err
			})
		}
		require.NoError(t, g.Wait())

		avg, n, err := s.AverageRating(ctx, tor.ID)
		require.NoError(t, err)
		require.EqualValues(t, 8, n)
		stored, err := s.GetTorrent(ctx, tor.ID)
		require.NoError(t, err)
		assert.Equal(t, round2(avg, n), stored.AverageRating, "round %d", round)
	}
}

func testDeleteTorrent(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser(t, s, "mod")
	keep := NewTorrent(t, s, u, "Keep", base, "Music")
	drop := NewTorrent(t, s, u, "Drop", base, "Music")
	NewComment(t, s, keep, u, 3, base, nil)
	NewComment(t, s, drop, u, 1, base, nil)
	NewComment(t, s, drop, u, 2, base, nil)

	require.NoError(t, s.DeleteTorrent(ctx, drop.ID))

	_, err := s.GetTorrent(ctx, drop.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	list, err := s.ListComments(ctx, drop.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	n, err := s.CountComments(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	stats, err := s.CategoryStats(ctx, store.Window{})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.EqualValues(t, 1, stats[0].Torrents)

	assert.ErrorIs(t, s.DeleteTorrent(ctx, drop.ID), store.ErrNotFound)
}

func testAggregates(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser(t, s, "stats")

	old := NewTorrent(t, s, u, "Old", base.Add(-30*24*time.Hour), "Movies", "Classic")
	mid := NewTorrent(t, s, u, "Mid", base.Add(-3*24*time.Hour), "Movies")
	fresh := NewTorrent(t, s, u, "Fresh", base.Add(-time.Hour), "Music")

	bump := func(tor *models.Torrent, n int) {
		for i := 0; i < n; i++ {
			require.NoError(t, s.IncrementDownloads(ctx, tor.ID))
		}
	}
	bump(old, 5)
	bump(mid, 2)
	bump(fresh, 9)
	require.NoError(t, s.SetAverageRating(ctx, old.ID, 4))
	require.NoError(t, s.SetAverageRating(ctx, mid.ID, 2))
	require.NoError(t, s.SetAverageRating(ctx, fresh.ID, 4.5))

	top, err := s.TopByDownloads(ctx, 2, store.Window{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fresh", "Old"}, titles(top))

	week := store.Window{From: base.Add(-7 * 24 * time.Hour), To: base}
	top, err = s.TopByDownloads(ctx, 10, week)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fresh", "Mid"}, titles(top))

	rated, err := s.TopByRating(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fresh", "Old", "Mid"}, titles(rated))

	stats, err := s.CategoryStats(ctx, store.Window{})
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, "Movies", stats[0].Name)
	assert.EqualValues(t, 2, stats[0].Torrents)
	assert.EqualValues(t, 7, stats[0].TotalDownloads)
	assert.InDelta(t, 3.0, stats[0].AvgRating, 1e-9)
	assert.Equal(t, "Classic", stats[1].Name, "ties break by name")
	assert.Equal(t, "Music", stats[2].Name)

	stats, err = s.CategoryStats(ctx, week)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	byName := map[string]models.CategoryStat{}
	for _, st := range stats {
		byName[st.Name] = st
	}
	assert.EqualValues(t, 1, byName["Movies"].Torrents)
	assert.EqualValues(t, 2, byName["Movies"].TotalDownloads)
	assert.EqualValues(t, 9, byName["Music"].TotalDownloads)

	totals, err := s.Totals(ctx, base.Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 3, totals.Torrents)
	assert.EqualValues(t, 16, totals.Downloads)
	assert.EqualValues(t, 2, totals.NewSince)
}

func testCategories(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.EnsureCategories(ctx, []string{"Anime", " Anime ", "Documentary"}))
	require.NoError(t, s.EnsureCategories(ctx, []string{"Anime"}))

	u := NewUser(t, s, "tagger")
	NewTorrent(t, s, u, "Tagged", base, "Podcasts")

	names, err := s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "Anime")
	assert.Contains(t, names, "Documentary")
	assert.Contains(t, names, "Podcasts")
	assert.IsIncreasing(t, names)
}

func testSessions(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := NewUser(t, s, "sess")

	live := &models.Session{ID: store.NewID(), UserID: u.ID, ExpiresAt: base.Add(time.Hour)}
	stale := &models.Session{ID: store.NewID(), UserID: u.ID, ExpiresAt: base.Add(-time.Hour)}
	require.NoError(t, s.CreateSession(ctx, live))
	require.NoError(t, s.CreateSession(ctx, stale))

	got, err := s.GetSession(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)
	assert.True(t, live.ExpiresAt.Equal(got.ExpiresAt))

	purged, err := s.PurgeExpired(ctx, base)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)
	_, err = s.GetSession(ctx, stale.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.DeleteSession(ctx, live.ID))
	_, err = s.GetSession(ctx, live.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.CreateSession(ctx, &models.Session{ID: store.NewID(), UserID: u.ID, ExpiresAt: base}))
	require.NoError(t, s.CreateSession(ctx, &models.Session{ID: store.NewID(), UserID: u.ID, ExpiresAt: base}))
	require.NoError(t, s.DeleteUserSessions(ctx, u.ID))
	purged, err = s.PurgeExpired(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, purged)
}

func ptr(t time.Time) *time.Time { return &t }
