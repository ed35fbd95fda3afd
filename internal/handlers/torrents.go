package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"torrents/internal/models"
	"torrents/internal/store"
)

const maxTextLength = 160

type searchRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	DateFrom    string   `json:"date_from"`
	DateTo      string   `json:"date_to"`
	SortBy      string   `json:"sort_by"`
	Order       string   `json:"order"`
}

// Search filters torrents. A missing body lists everything.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}

	q := store.SearchQuery{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Categories:  req.Categories,
		Desc:        req.Order == "desc",
		Limit:       store.DefaultSearchLimit,
	}
	if req.SortBy == store.SortBySize {
		q.SortBy = store.SortBySize
	}
	if req.DateFrom != "" {
		from, err := parseDate(req.DateFrom, false)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date_from format")
			return
		}
		q.From = &from
	}
	if req.DateTo != "" {
		to, err := parseDate(req.DateTo, true)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date_to format")
			return
		}
		q.To = &to
	}

	torrents, err := h.store.SearchTorrents(r.Context(), q)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, torrents)
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.ListCategories(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

type torrentDetail struct {
	*models.Torrent
	Comments []*models.Comment `json:"comments"`
}

// TorrentDetail answers with the torrent and its threaded comments. An
// unknown id yields an empty object.
func (h *Handler) TorrentDetail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !store.ValidID(id) {
		writeError(w, http.StatusBadRequest, "Invalid torrent ID")
		return
	}

	ctx := r.Context()
	t, err := h.store.GetTorrent(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	} else if err != nil {
		h.serverError(w, r, err)
		return
	}
	comments, err := h.store.ListComments(ctx, id)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, torrentDetail{Torrent: t, Comments: buildCommentTree(comments)})
}

type torrentRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Size        float64  `json:"size"`
	Categories  []string `json:"categories"`
	Images      []string `json:"images"`
}

func (h *Handler) CreateTorrent(w http.ResponseWriter, r *http.Request) {
	var req torrentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	if title == "" || description == "" {
		writeError(w, http.StatusBadRequest, "Title and description are required")
		return
	}
	if utf8.RuneCountInString(description) > maxTextLength {
		writeError(w, http.StatusBadRequest, "Description must be 160 characters or less")
		return
	}
	if req.Size < 0 {
		writeError(w, http.StatusBadRequest, "Size must not be negative")
		return
	}

	images := make([]string, 0, len(req.Images))
	for _, img := range req.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}

	u := userFrom(r.Context())
	t := &models.Torrent{
		ID:          store.NewID(),
		Title:       title,
		Description: description,
		Size:        req.Size,
		Categories:  req.Categories,
		Images:      images,
		UploaderID:  u.ID,
		UploadDate:  store.Now(),
	}
	if err := h.store.CreateTorrent(r.Context(), t); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.log.WithField("torrent", t.ID).WithField("user", u.Username).Info("torrent uploaded")

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "torrent_id": t.ID})
}

// Download counts a download. The payload itself is never served.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !store.ValidID(id) {
		writeError(w, http.StatusBadRequest, "Invalid torrent ID")
		return
	}
	if err := h.store.IncrementDownloads(r.Context(), id); err != nil {
		h.storeError(w, r, err, "Torrent not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Download started"})
}
