package server

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// withMiddleware wraps the mux with request-id assignment, panic
// recovery, access logging, and metrics.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("panic in handler",
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					"panic", p,
					"stack", string(debug.Stack()))
				if rec.status == http.StatusOK {
					writeError(rec, http.StatusInternalServerError, "internal error")
				}
			}

			route := r.Method + " " + r.URL.Path
			if pattern := r.Pattern; pattern != "" {
				route = pattern
			}
			elapsed := time.Since(start)
			observeRequest(route, rec.status, elapsed)

			s.logger.Info("request",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", elapsed.Milliseconds())
		}()

		next.ServeHTTP(rec, r)
	})
}
