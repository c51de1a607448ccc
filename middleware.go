package main

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
)

// ---------------------------------------------------------------------------
// HTTP Middleware
// ---------------------------------------------------------------------------

// handlerWrapper wraps an http.Handler with logic before and after it runs.
type handlerWrapper func(http.Handler) http.Handler

// wrapHandler applies wrappers so that the first one runs outermost.
func wrapHandler(h http.Handler, wrappers ...handlerWrapper) http.Handler {
	for i := len(wrappers) - 1; i >= 0; i-- {
		h = wrappers[i](h)
	}
	return h
}

// recoverWrapper turns a panic into a 500 response and an error log entry.
func recoverWrapper(logger *slog.Logger) handlerWrapper {
	return func(inner http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", "panic", rec, "path", r.URL.Path, "stack", string(debug.Stack()))
					http.Error(w, "internal server error", http.StatusInternalServerError)
				}
			}()
			inner.ServeHTTP(w, r)
		})
	}
}

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogWrapper logs one line per request.
func requestLogWrapper(logger *slog.Logger) handlerWrapper {
	return func(inner http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			inner.ServeHTTP(rec, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start))
		})
	}
}
