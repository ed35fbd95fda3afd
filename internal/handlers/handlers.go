package handlers

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"torrents/internal/auth"
	"torrents/internal/config"
	"torrents/internal/models"
	"torrents/internal/stats"
	"torrents/internal/store"
)

//go:embed web
var webFS embed.FS

var errNoData = errors.New("no data provided")

type Handler struct {
	store    store.Store
	sessions *auth.Manager
	stats    *stats.Service
	tpls     *template.Template
	static   fs.FS
	log      *logrus.Logger
	cfg      *config.Config
}

func New(s store.Store, sessions *auth.Manager, cfg *config.Config, log *logrus.Logger) (*Handler, error) {
	var (
		tpls *template.Template
		err  error
	)
	if cfg.Server.TemplatesDir != "" {
		tpls, err = template.ParseGlob(filepath.Join(cfg.Server.TemplatesDir, "*.html"))
	} else {
		tpls, err = template.ParseFS(webFS, "web/templates/*.html")
	}
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(webFS, "web/static")
	if err != nil {
		return nil, err
	}
	return &Handler{
		store:    s,
		sessions: sessions,
		stats:    stats.New(s, s, s),
		tpls:     tpls,
		static:   static,
		log:      log,
		cfg:      cfg,
	}, nil
}

// Routes builds the router wrapped in the recovery, logging and CORS
// middleware.
func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.HandleFunc("/", h.Index).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(h.static))))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/user/status", h.UserStatus).Methods(http.MethodGet)
	api.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	api.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)

	api.HandleFunc("/search", h.Search).Methods(http.MethodPost)
	api.HandleFunc("/categories", h.Categories).Methods(http.MethodGet)
	api.HandleFunc("/torrent", h.RequireAuth(h.CreateTorrent)).Methods(http.MethodPost)
	api.HandleFunc("/torrent/{id}", h.TorrentDetail).Methods(http.MethodGet)
	api.HandleFunc("/torrent/{id}/download", h.RequireAuth(h.Download)).Methods(http.MethodGet)
	api.HandleFunc("/comment", h.RequireAuth(h.CreateComment)).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/search-users", h.RequireAdmin(h.SearchUsers)).Methods(http.MethodPost)
	admin.HandleFunc("/ban-user", h.RequireAdmin(h.BanUser)).Methods(http.MethodPost)
	admin.HandleFunc("/delete-torrent", h.RequireAdmin(h.DeleteTorrent)).Methods(http.MethodPost)
	admin.HandleFunc("/delete-comment", h.RequireAdmin(h.DeleteComment)).Methods(http.MethodPost)
	admin.HandleFunc("/stats", h.RequireAdmin(h.Stats)).Methods(http.MethodGet)
	admin.HandleFunc("/stats/period", h.RequireAdmin(h.StatsPeriod)).Methods(http.MethodPost)

	return WithRecover(WithLogging(WithCORS(r, h.cfg.Server.CORSOrigins), h.log), h.log)
}

type ctxKey struct{}

func userFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxKey{}).(*models.User)
	return u
}

func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := h.sessions.CurrentUser(r.Context(), r)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		if u == nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u)))
	}
}

func (h *Handler) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return h.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !userFrom(r.Context()).IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// -------- Pages

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := h.tpls.ExecuteTemplate(w, "index.html", map[string]any{
		"Title": "Torrent Sharing",
	})
	if err != nil {
		h.log.WithError(err).Error("rendering index")
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.log.WithError(err).Warn("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// -------- JSON helpers

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// readJSON decodes the request body into v. An empty body is io.EOF.
func readJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return io.EOF
	}
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
}

// decode is readJSON for handlers that need a body.
func decode(r *http.Request, v any) error {
	if err := readJSON(r, v); err != nil {
		return errNoData
	}
	return nil
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).WithError(err).Error("request failed")
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// storeError answers with 404 for missing records and 500 for anything else.
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "Invalid ID format")
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusBadRequest, "Record already exists")
	default:
		h.serverError(w, r, err)
	}
}
