package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"torrents/internal/models"
	"torrents/internal/store"
)

type Manager struct {
	sessions store.SessionRepository
	users    store.UserRepository
	cookie   string
	maxAge   time.Duration
	secure   bool
	now      func() time.Time
}

func NewManager(sessions store.SessionRepository, users store.UserRepository, cookie string, maxAge time.Duration, secure bool) *Manager {
	return &Manager{
		sessions: sessions,
		users:    users,
		cookie:   cookie,
		maxAge:   maxAge,
		secure:   secure,
		now:      store.Now,
	}
}

// Create starts a session for userID and sets the cookie on w.
func (m *Manager) Create(ctx context.Context, w http.ResponseWriter, userID string) error {
	id := uuid.NewString()
	expires := m.now().Add(m.maxAge)

	err := m.sessions.CreateSession(ctx, &models.Session{ID: id, UserID: userID, ExpiresAt: expires})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
	return nil
}

func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var err error
	c, _ := r.Cookie(m.cookie)
	if c != nil && c.Value != "" {
		err = m.sessions.DeleteSession(ctx, c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
	return err
}

// CurrentUser returns the logged-in user, or nil when the request carries no
// live session. Banned users are treated as logged out.
func (m *Manager) CurrentUser(ctx context.Context, r *http.Request) (*models.User, error) {
	c, err := r.Cookie(m.cookie)
	if err != nil || c.Value == "" {
		return nil, nil
	}
	sess, err := m.sessions.GetSession(ctx, c.Value)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	if m.now().After(sess.ExpiresAt) {
		return nil, nil
	}
	u, err := m.users.GetUserByID(ctx, sess.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	if u.IsBanned {
		return nil, nil
	}
	return u, nil
}

// --- password helpers (bcrypt) ---
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}
func CheckPassword(pw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
