package handlers

import (
	"errors"
	"net/http"
	"strings"

	"torrents/internal/rating"
	"torrents/internal/stats"
	"torrents/internal/store"
)

const userSearchLimit = 10

func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}
	fragment := strings.TrimSpace(req.Username)
	if fragment == "" {
		writeError(w, http.StatusBadRequest, "Username is required")
		return
	}
	users, err := h.store.SearchUsers(r.Context(), fragment, userSearchLimit)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) BanUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}
	switch {
	case req.UserID == "":
		writeError(w, http.StatusBadRequest, "User ID required")
		return
	case !store.ValidID(req.UserID):
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	ctx := r.Context()
	if err := h.store.BanUser(ctx, req.UserID); err != nil {
		h.storeError(w, r, err, "User not found")
		return
	}
	if err := h.store.DeleteUserSessions(ctx, req.UserID); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.log.WithField("user", req.UserID).WithField("admin", userFrom(ctx).Username).Info("user banned")
	writeSuccess(w)
}

func (h *Handler) DeleteTorrent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TorrentID string `json:"torrent_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}
	switch {
	case req.TorrentID == "":
		writeError(w, http.StatusBadRequest, "Torrent ID required")
		return
	case !store.ValidID(req.TorrentID):
		writeError(w, http.StatusBadRequest, "Invalid torrent ID")
		return
	}

	if err := h.store.DeleteTorrent(r.Context(), req.TorrentID); err != nil {
		h.storeError(w, r, err, "Torrent not found")
		return
	}
	h.log.WithField("torrent", req.TorrentID).WithField("admin", userFrom(r.Context()).Username).Info("torrent deleted")
	writeSuccess(w)
}

// DeleteComment removes a comment with its replies and rerates the torrent.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CommentID string `json:"comment_id"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}
	switch {
	case req.CommentID == "":
		writeError(w, http.StatusBadRequest, "Comment ID required")
		return
	case !store.ValidID(req.CommentID):
		writeError(w, http.StatusBadRequest, "Invalid comment ID")
		return
	}

	ctx := r.Context()
	c, err := h.store.GetComment(ctx, req.CommentID)
	if err != nil {
		h.storeError(w, r, err, "Comment not found")
		return
	}
	if err := h.store.DeleteComment(ctx, c.ID); err != nil {
		h.storeError(w, r, err, "Comment not found")
		return
	}
	if _, err := rating.Recalculate(ctx, h.store, c.TorrentID); err != nil && !errors.Is(err, store.ErrNotFound) {
		h.serverError(w, r, err)
		return
	}
	writeSuccess(w)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	out, err := h.stats.Overview(r.Context(), store.Now())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) StatsPeriod(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DateFrom string `json:"date_from"`
		DateTo   string `json:"date_to"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}
	if strings.TrimSpace(req.DateFrom) == "" || strings.TrimSpace(req.DateTo) == "" {
		writeError(w, http.StatusBadRequest, "date_from and date_to are required")
		return
	}
	from, err := parseDate(req.DateFrom, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_from format")
		return
	}
	to, err := parseDate(req.DateTo, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_to format")
		return
	}

	out, err := h.stats.Period(r.Context(), from, to)
	if errors.Is(err, stats.ErrInvalidPeriod) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	} else if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
