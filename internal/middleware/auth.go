package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"fe-v2/internal/domain"
	"fe-v2/pkg/logger"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// UserContextKey is the key for the resolved user profile in context
	UserContextKey ContextKey = "user"
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
)

// SessionReader is the read side of the session store
type SessionReader interface {
	Snapshot() domain.SessionSnapshot
}

// loadingPage is served while the session is still resolving. It refreshes
// itself and carries no session content.
const loadingPage = `<!doctype html>
<html><head><meta charset="utf-8"><meta http-equiv="refresh" content="1"><title>Loading</title></head>
<body><p>Loading…</p></body></html>
`

// RouteGuard gates protected routes on the session. Until the session is
// ready it serves the loading placeholder; once ready, unauthenticated
// requests are sent to loginPath with the requested location in "from".
func RouteGuard(session SessionReader, loginPath string, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := session.Snapshot()

			if !snap.AuthReady {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Header().Set("Cache-Control", "no-store")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(loadingPage))
				return
			}

			if !snap.IsAuthenticated {
				target := LoginRedirect(loginPath, r.URL.RequestURI())
				logger.WithFields(map[string]interface{}{
					"path":       r.URL.Path,
					"request_id": GetRequestID(r.Context()),
				}).Debug("Unauthenticated request, redirecting to login")
				http.Redirect(w, r, target, http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, snap.User)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoginRedirect builds the login location preserving the original request URI
func LoginRedirect(loginPath, from string) string {
	if from == "" {
		return loginPath
	}
	return loginPath + "?" + url.Values{"from": {from}}.Encode()
}

// GetUser returns the profile placed on the context by RouteGuard. It is nil
// when the session is authenticated but no profile could be resolved.
func GetUser(ctx context.Context) *domain.UserProfile {
	user, _ := ctx.Value(UserContextKey).(*domain.UserProfile)
	return user
}

// RequestID creates a middleware that adds a unique request ID to each request.
// An incoming X-Request-ID header is kept.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}

			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestID returns the request ID from context, "" when absent
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}
