package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torrents/internal/store"
	"torrents/internal/store/sqlstore"
	"torrents/internal/store/storetest"
)

func setup(t *testing.T) (store.Store, *Manager) {
	t.Helper()
	s, err := sqlstore.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s, NewManager(s, s, "sid", time.Hour, false)
}

// login runs Create and returns a request carrying the issued cookie.
func login(t *testing.T, m *Manager, userID string) (*http.Request, *http.Cookie) {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, m.Create(context.Background(), rec, userID))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	return req, cookies[0]
}

func TestCreateSetsCookie(t *testing.T) {
	s, m := setup(t)
	u := storetest.NewUser(t, s, "alice")

	req, c := login(t, m, u.ID)
	assert.Equal(t, "sid", c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)

	got, err := m.CurrentUser(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
}

func TestCurrentUserWithoutSession(t *testing.T) {
	_, m := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	got, err := m.CurrentUser(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, got)

	req.AddCookie(&http.Cookie{Name: "sid", Value: store.NewID()})
	got, err = m.CurrentUser(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExpiredSession(t *testing.T) {
	s, m := setup(t)
	u := storetest.NewUser(t, s, "late")
	req, _ := login(t, m, u.ID)

	m.now = func() time.Time { return store.Now().Add(2 * time.Hour) }
	got, err := m.CurrentUser(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBannedUserIsLoggedOut(t *testing.T) {
	s, m := setup(t)
	u := storetest.NewUser(t, s, "troll")
	req, _ := login(t, m, u.ID)

	require.NoError(t, s.BanUser(context.Background(), u.ID))
	got, err := m.CurrentUser(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDestroy(t *testing.T) {
	s, m := setup(t)
	u := storetest.NewUser(t, s, "bye")
	req, c := login(t, m, u.ID)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Destroy(context.Background(), rec, req))

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Empty(t, cleared[0].Value)
	assert.Less(t, cleared[0].MaxAge, 0)

	_, err := s.GetSession(context.Background(), c.Value)
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := m.CurrentUser(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)
	assert.True(t, CheckPassword("hunter2", hash))
	assert.False(t, CheckPassword("hunter3", hash))
	assert.False(t, CheckPassword("hunter2", "not-a-hash"))
}
