// ABOUTME: HTTP middleware for the fake backend
// ABOUTME: Credential header checks and structured request logging

package fakebackend

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// requireKey rejects requests whose header is missing (400) or, when want is
// set, does not match it (401). Bodies follow the backend's {"detail": ...} form.
func requireKey(header, name, want string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(header)
			if got == "" {
				writeDetail(w, http.StatusBadRequest, name+" API key is required")
				return
			}
			if want != "" && got != want {
				writeDetail(w, http.StatusUnauthorized, "Invalid "+name+" API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checkKey applies the same rule to a websocket frame and returns the error
// text, or "" when the key is acceptable.
func checkKey(got, name, want string) string {
	if got == "" {
		return name + " API key is required"
	}
	if want != "" && got != want {
		return "Invalid " + name + " API key"
	}
	return ""
}

// requestLogger logs each request at debug level. Header values are never logged.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
