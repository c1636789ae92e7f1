package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fe-v2/internal/config"
	"fe-v2/internal/domain"
	"fe-v2/internal/service/callback"
	"fe-v2/internal/storage"
	"fe-v2/pkg/logger"
)

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		Environment:    "test",
		APIBaseURL:     apiURL,
		APITimeout:     2 * time.Second,
		AuthURL:        "https://idp.example.com/authorize",
		ClientID:       "client-1",
		RedirectURI:    "http://localhost:5173/callback",
		Scopes:         "openid email",
		Language:       "en",
		LoginPath:      "/login",
		CallbackPath:   "/callback",
		LandingPath:    "/dashboard",
		StorageBackend: config.StorageMemory,
	}
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name        string
		mutate      func(*config.Config)
		wantBackend string
		expectError bool
	}{
		{
			name:        "memory storage",
			mutate:      func(*config.Config) {},
			wantBackend: "memory",
		},
		{
			name: "redis storage",
			mutate: func(c *config.Config) {
				c.StorageBackend = config.StorageRedis
				c.RedisURL = "redis://" + mr.Addr()
			},
			wantBackend: "redis",
		},
		{
			name: "sqlite storage",
			mutate: func(c *config.Config) {
				c.StorageBackend = config.StorageSQLite
				c.SQLitePath = filepath.Join(t.TempDir(), "session.db")
			},
			wantBackend: "sqlite",
		},
		{
			name: "invalid redis url",
			mutate: func(c *config.Config) {
				c.StorageBackend = config.StorageRedis
				c.RedisURL = "invalid://redis-url"
			},
			expectError: true,
		},
		{
			name:        "relative api url",
			mutate:      func(c *config.Config) { c.APIBaseURL = "/api" },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("https://api.example.com")
			tt.mutate(cfg)

			testLogger, _ := logger.New("info")
			container, err := New(context.Background(), cfg, testLogger)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, container)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, container)
			defer container.Close()

			assert.Equal(t, cfg, container.GetConfig())
			assert.Equal(t, testLogger, container.GetLogger())
			assert.Equal(t, tt.wantBackend, container.GetStorage().Name())
			assert.NotNil(t, container.GetSessionService())
			assert.NotNil(t, container.GetLoginService())
			assert.NotNil(t, container.GetCallbackService())
		})
	}
}

// The whole login wiring: authorization URL, callback, session and the
// bearer credential on later API calls.
func TestContainer_LoginRoundTrip(t *testing.T) {
	var lastAuth atomic.Value
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/callback":
			_, _ = w.Write([]byte(`{"access_token":"A","id_token":"I"}`))
		case "/auth/whoami":
			lastAuth.Store(r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"sub":"u1","email":"a@b.com","name":"Ada"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer api.Close()

	c, err := NewWithStorage(testConfig(api.URL), logger.NewNop(), storage.NewMemoryStore())
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	sess := c.GetSessionService()
	require.NoError(t, sess.Hydrate(ctx))
	require.True(t, sess.AuthReady())

	authURL, err := c.GetLoginService().AuthorizationURL(ctx)
	require.NoError(t, err)
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")

	out, err := c.GetCallbackService().NewFlow().Run(ctx, callback.Params{Code: "code-1", State: state})
	require.NoError(t, err)
	require.Equal(t, callback.StateRedirectingSuccess, out.State)
	assert.Equal(t, "/dashboard", out.Target)

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, sess.WaitReady(waitCtx))

	assert.Equal(t, &domain.TokenPair{AccessToken: "A", IDToken: "I"}, sess.Tokens())
	require.NotNil(t, sess.User())
	assert.Equal(t, "Ada", sess.User().DisplayName())
	assert.Equal(t, "Bearer I", lastAuth.Load())

	// the authenticated client now carries the session credential
	_, err = c.API.WhoAmI(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer I", lastAuth.Load())
}
