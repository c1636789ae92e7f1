package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fe-v2/internal/config"
	"fe-v2/internal/storage"
	"fe-v2/pkg/logger"
)

func TestStatus(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": now.Add(-time.Minute).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	t.Run("empty storage", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, status(ctx, &out, storage.NewMemoryStore(), now))
		assert.Contains(t, out.String(), "session:     none")
		assert.Contains(t, out.String(), "login state: none")
	})

	t.Run("persisted session", func(t *testing.T) {
		kv := storage.NewMemoryStore()
		require.NoError(t, kv.Set(ctx, storage.KeyTokens, `{"access_token":"opaque-A","id_token":"`+idToken+`"}`))
		require.NoError(t, kv.Set(ctx, storage.KeyOAuthState, "xyz"))

		var out bytes.Buffer
		require.NoError(t, status(ctx, &out, kv, now))
		assert.Contains(t, out.String(), "credential: id_token")
		assert.Contains(t, out.String(), "subject:     user-1")
		assert.Contains(t, out.String(), "(expired)")
		assert.Contains(t, out.String(), "login state: outstanding")
		assert.NotContains(t, out.String(), idToken)
		assert.NotContains(t, out.String(), "opaque-A")
	})

	t.Run("undecodable record", func(t *testing.T) {
		kv := storage.NewMemoryStore()
		require.NoError(t, kv.Set(ctx, storage.KeyTokens, "{not json"))

		var out bytes.Buffer
		require.NoError(t, status(ctx, &out, kv, now))
		assert.Contains(t, out.String(), "session:     none")
	})
}

func TestWhoami(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer A" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"user-1","email":"a@example.com"}`))
	}))
	defer server.Close()

	cfg := &config.Config{APIBaseURL: server.URL + "/api/v1", APITimeout: 5 * time.Second}

	t.Run("no session", func(t *testing.T) {
		var out bytes.Buffer
		err := whoami(ctx, &out, storage.NewMemoryStore(), cfg, logger.NewNop())
		assert.Error(t, err)
	})

	t.Run("persisted access token", func(t *testing.T) {
		kv := storage.NewMemoryStore()
		require.NoError(t, kv.Set(ctx, storage.KeyTokens, `{"access_token":"A"}`))

		var out bytes.Buffer
		require.NoError(t, whoami(ctx, &out, kv, cfg, logger.NewNop()))
		assert.Contains(t, out.String(), "subject: user-1")
		assert.Contains(t, out.String(), "email:   a@example.com")
	})
}

func TestClearSession(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, storage.KeyTokens, `{"access_token":"A"}`))
	require.NoError(t, kv.Set(ctx, storage.KeyOAuthState, "xyz"))

	require.NoError(t, clearSession(ctx, kv))
	require.NoError(t, clearSession(ctx, kv))

	_, err := kv.Get(ctx, storage.KeyTokens)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = kv.Get(ctx, storage.KeyOAuthState)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCopySession(t *testing.T) {
	ctx := context.Background()
	src := storage.NewMemoryStore()
	dst := storage.NewMemoryStore()
	require.NoError(t, src.Set(ctx, storage.KeyTokens, `{"access_token":"A"}`))
	require.NoError(t, dst.Set(ctx, storage.KeyOAuthState, "kept"))

	copied, err := copySession(ctx, src, dst)
	require.NoError(t, err)
	assert.Equal(t, 1, copied)

	v, err := dst.Get(ctx, storage.KeyTokens)
	require.NoError(t, err)
	assert.Equal(t, `{"access_token":"A"}`, v)

	v, err = dst.Get(ctx, storage.KeyOAuthState)
	require.NoError(t, err)
	assert.Equal(t, "kept", v)
}
