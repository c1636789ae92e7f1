package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"fe-v2/pkg/logger"
)

// AccessLog logs one line per request once it has been served
func AccessLog(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := logger.WithFields(map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": status,
				"bytes":       ww.BytesWritten(),
				"duration":    time.Since(start).String(),
				"request_id":  GetRequestID(r.Context()),
			})
			if status >= http.StatusInternalServerError {
				entry.Warn("Request served")
				return
			}
			entry.Info("Request served")
		})
	}
}
