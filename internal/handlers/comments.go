package handlers

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"torrents/internal/models"
	"torrents/internal/rating"
	"torrents/internal/store"
)

type commentRequest struct {
	TorrentID string `json:"torrent_id"`
	ParentID  string `json:"parent_id"`
	Text      string `json:"text"`
	Rating    int    `json:"rating"`
}

func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}
	if !store.ValidID(req.TorrentID) || (req.ParentID != "" && !store.ValidID(req.ParentID)) {
		writeError(w, http.StatusBadRequest, "Invalid ID format")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "Comment text is required")
		return
	}
	if utf8.RuneCountInString(text) > maxTextLength {
		writeError(w, http.StatusBadRequest, "Comment must be 160 characters or less")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}

	ctx := r.Context()
	if _, err := h.store.GetTorrent(ctx, req.TorrentID); err != nil {
		h.storeError(w, r, err, "Torrent not found")
		return
	}
	var parent *string
	if req.ParentID != "" {
		p, err := h.store.GetComment(ctx, req.ParentID)
		if err != nil {
			h.storeError(w, r, err, "Parent comment not found")
			return
		}
		if p.TorrentID != req.TorrentID {
			writeError(w, http.StatusBadRequest, "Parent comment belongs to another torrent")
			return
		}
		parent = &p.ID
	}

	u := userFrom(ctx)
	c := &models.Comment{
		ID:        store.NewID(),
		TorrentID: req.TorrentID,
		UserID:    u.ID,
		ParentID:  parent,
		Text:      text,
		Rating:    req.Rating,
		Date:      store.Now(),
	}
	if err := h.store.CreateComment(ctx, c); err != nil {
		h.serverError(w, r, err)
		return
	}
	if _, err := rating.Recalculate(ctx, h.store, req.TorrentID); err != nil {
		h.serverError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "comment_id": c.ID})
}

// buildCommentTree nests replies under their parents. Input order is kept at
// every level. Replies whose parent is gone become roots.
func buildCommentTree(list []models.Comment) []*models.Comment {
	byID := make(map[string]*models.Comment, len(list))
	for i := range list {
		c := &list[i]
		c.Replies = []*models.Comment{}
		byID[c.ID] = c
	}
	roots := []*models.Comment{}
	for i := range list {
		c := &list[i]
		if c.ParentID != nil {
			if p, ok := byID[*c.ParentID]; ok && p != c {
				p.Replies = append(p.Replies, c)
				continue
			}
		}
		roots = append(roots, c)
	}
	return roots
}
