package handlers

import (
	"net/http"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/sirupsen/logrus"
)

// WithRecover wraps an http.Handler and recovers from panics,
// returning HTTP 500 instead of crashing the server.
func WithRecover(next http.Handler, log *logrus.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(logrus.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				}).Errorf("[recover] %v", rec)
				writeError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func WithLogging(next http.Handler, log *logrus.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
			"remote":   r.RemoteAddr,
		}).Debug("request")
	})
}

// WithCORS allows the configured origins. Credentials are only allowed when
// the origin list is explicit.
func WithCORS(next http.Handler, origins []string) http.Handler {
	opts := []gorillahandlers.CORSOption{
		gorillahandlers.AllowedOrigins(origins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type"}),
	}
	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}
	if !wildcard {
		opts = append(opts, gorillahandlers.AllowCredentials())
	}
	return gorillahandlers.CORS(opts...)(next)
}
