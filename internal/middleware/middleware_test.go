package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fe-v2/internal/domain"
	"fe-v2/pkg/logger"
)

// fakeSession lets a test flip readiness between requests
type fakeSession struct {
	mu   sync.Mutex
	snap domain.SessionSnapshot
}

func (f *fakeSession) Snapshot() domain.SessionSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSession) set(snap domain.SessionSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
}

func protected(t *testing.T, sess SessionReader) (http.Handler, *bool) {
	t.Helper()
	served := false
	h := RouteGuard(sess, "/login", logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served = true
		user := GetUser(r.Context())
		if user != nil {
			_, _ = w.Write([]byte("hello " + user.DisplayName()))
			return
		}
		_, _ = w.Write([]byte("hello"))
	}))
	return h, &served
}

func TestRouteGuard_LoadingThenRedirect(t *testing.T) {
	sess := &fakeSession{}
	h, served := protected(t, sess)

	// session still resolving
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/project/42?tab=files", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), "Loading")
	assert.Empty(t, rec.Header().Get("Location"))
	assert.False(t, *served)

	// ready, nobody signed in
	sess.set(domain.SessionSnapshot{AuthReady: true})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/project/42?tab=files", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?from=%2Fproject%2F42%3Ftab%3Dfiles", rec.Header().Get("Location"))
	assert.False(t, *served)
}

func TestRouteGuard_Authenticated(t *testing.T) {
	name := "Ada"
	sess := &fakeSession{snap: domain.SessionSnapshot{
		AuthReady:       true,
		IsAuthenticated: true,
		User:            &domain.UserProfile{Subject: "u1", Name: &name},
	}}
	h, served := protected(t, sess)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello Ada", rec.Body.String())
	assert.True(t, *served)
}

func TestRouteGuard_AuthenticatedWithoutProfile(t *testing.T) {
	sess := &fakeSession{snap: domain.SessionSnapshot{AuthReady: true, IsAuthenticated: true}}
	h, served := protected(t, sess)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.True(t, *served)
	assert.Equal(t, "hello", rec.Body.String())
}

func TestLoginRedirect(t *testing.T) {
	assert.Equal(t, "/login", LoginRedirect("/login", ""))
	assert.Equal(t, "/login?from=%2Fdashboard", LoginRedirect("/login", "/dashboard"))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-id", seen)
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.NewWithWriter("info", &buf)
	require.NoError(t, err)

	h := RequestID()(AccessLog(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

	line := strings.TrimSpace(buf.String())
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "Request served", entry["message"])
	assert.Equal(t, "/brew", entry["path"])
	assert.EqualValues(t, http.StatusTeapot, entry["status_code"])
	assert.EqualValues(t, len("short and stout"), entry["bytes"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := CORS(DefaultCORSConfig([]string{"http://localhost:3000"}), logger.NewNop())(next)

	tests := []struct {
		name       string
		method     string
		origin     string
		preflight  bool
		wantStatus int
		wantOrigin string
	}{
		{name: "allowed origin", method: http.MethodGet, origin: "http://localhost:3000", wantStatus: http.StatusOK, wantOrigin: "http://localhost:3000"},
		{name: "foreign origin", method: http.MethodGet, origin: "http://evil.test", wantStatus: http.StatusOK},
		{name: "no origin", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "preflight", method: http.MethodOptions, origin: "http://localhost:3000", preflight: true, wantStatus: http.StatusNoContent, wantOrigin: "http://localhost:3000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/session", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.preflight {
				assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
				assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodGet)
			}
		})
	}
}

func TestCORS_WildcardNeverAllowsCredentials(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := CORS(DefaultCORSConfig([]string{"*"}), logger.NewNop())(next)

	for _, method := range []string{http.MethodGet, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			req := httptest.NewRequest(method, "/api/session", nil)
			req.Header.Set("Origin", "http://evil.test")
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
			assert.Empty(t, rec.Header().Get("Vary"))
		})
	}
}
