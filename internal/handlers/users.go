package handlers

import (
	"errors"
	"net/http"
	"strings"

	"torrents/internal/auth"
	"torrents/internal/models"
	"torrents/internal/store"
)

func (h *Handler) UserStatus(w http.ResponseWriter, r *http.Request) {
	u, err := h.sessions.CurrentUser(r.Context(), r)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if u == nil {
		writeJSON(w, http.StatusOK, map[string]any{"logged_in": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"logged_in": true,
		"username":  u.Username,
		"role":      u.Role,
		"user_id":   u.ID,
	})
}

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	AdminCode string `json:"admin_code"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	for _, f := range []struct{ name, value string }{
		{"username", req.Username},
		{"email", req.Email},
		{"password", req.Password},
	} {
		if f.value == "" {
			writeError(w, http.StatusBadRequest, f.name+" is required")
			return
		}
	}

	role := models.RoleUser
	if req.AdminCode != "" && req.AdminCode == h.cfg.Auth.AdminCode {
		role = models.RoleAdmin
	}

	ctx := r.Context()
	exists, err := h.store.ExistsByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if exists {
		writeError(w, http.StatusBadRequest, "Username or email already exists")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	u := &models.User{
		ID:               store.NewID(),
		Username:         req.Username,
		Email:            req.Email,
		Password:         hash,
		Role:             role,
		RegistrationDate: store.Now(),
	}
	if err := h.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "Username or email already exists")
			return
		}
		h.serverError(w, r, err)
		return
	}
	if err := h.sessions.Create(ctx, w, u.ID); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.log.WithField("user", u.Username).WithField("role", role).Info("user registered")

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"username": u.Username,
		"role":     u.Role,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}

	ctx := r.Context()
	u, err := h.store.GetUserByLogin(ctx, strings.TrimSpace(req.Username))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.serverError(w, r, err)
		return
	}
	if u == nil || u.IsBanned || !auth.CheckPassword(req.Password, u.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials or user banned")
		return
	}

	// one live session per user
	if err := h.store.DeleteUserSessions(ctx, u.ID); err != nil {
		h.serverError(w, r, err)
		return
	}
	if err := h.sessions.Create(ctx, w, u.ID); err != nil {
		h.serverError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"username": u.Username,
		"role":     u.Role,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context(), w, r); err != nil {
		h.log.WithError(err).Warn("dropping session")
	}
	writeSuccess(w)
}
