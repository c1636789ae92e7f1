package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Client) {
	mr := miniredis.RunT(t)

	client, err := NewClient("redis://"+mr.Addr(), "test", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name        string
		url         string
		expectError bool
	}{
		{
			name:        "Valid Redis URL",
			url:         "redis://" + mr.Addr(),
			expectError: false,
		},
		{
			name:        "Invalid URL",
			url:         "invalid://url",
			expectError: true,
		},
		{
			name:        "Empty URL",
			url:         "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.url, "development", nil)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, client)
			} else {
				require.NoError(t, err)
				require.NotNil(t, client)
				assert.Equal(t, "staging", client.KeyBuilder.GetPrefix())
				_ = client.Close()
			}
		})
	}
}

func TestClient_Get(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	tests := []struct {
		name          string
		key           string
		setValue      string
		expectedValue string
		expectMiss    bool
	}{
		{
			name:          "Get existing key",
			key:           "prod:tokens",
			setValue:      `{"access_token":"abc"}`,
			expectedValue: `{"access_token":"abc"}`,
		},
		{
			name:       "Get non-existing key",
			key:        "prod:oauth_state",
			expectMiss: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setValue != "" {
				require.NoError(t, mr.Set(tt.key, tt.setValue))
			}

			value, err := client.Get(ctx, tt.key)

			if tt.expectMiss {
				assert.True(t, errors.Is(err, ErrNil))
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedValue, value)
			}
		})
	}
}

func TestClient_SetAndDelete(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "prod:oauth_state", "xyz", 0))
	got, err := mr.Get("prod:oauth_state")
	require.NoError(t, err)
	assert.Equal(t, "xyz", got)
	assert.Zero(t, mr.TTL("prod:oauth_state"))

	assert.True(t, mr.Exists("prod:oauth_state"))

	require.NoError(t, client.Delete(ctx, "prod:oauth_state"))
	assert.False(t, mr.Exists("prod:oauth_state"))

	// deleting again is harmless
	require.NoError(t, client.Delete(ctx, "prod:oauth_state"))
}

func TestClient_SetWithTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "prod:oauth_state", "xyz", 10*time.Minute))
	assert.Equal(t, 10*time.Minute, mr.TTL("prod:oauth_state"))

	mr.FastForward(11 * time.Minute)
	assert.False(t, mr.Exists("prod:oauth_state"))
}

func TestClient_Health(t *testing.T) {
	mr, client := setupTestRedis(t)

	assert.NoError(t, client.Health(context.Background()))

	mr.Close()
	assert.Error(t, client.Health(context.Background()))
}

func TestClient_LogsCommands(t *testing.T) {
	mr := miniredis.RunT(t)
	core, logs := observer.New(zap.DebugLevel)

	client, err := NewClient("redis://"+mr.Addr(), "production", zap.New(core))
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	_, err = client.Get(ctx, "prod:tokens")
	require.ErrorIs(t, err, ErrNil)

	entries := logs.FilterMessage("Redis command").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "get", entries[0].ContextMap()["op"])
	assert.Equal(t, false, entries[0].ContextMap()["hit"])

	mr.Close()
	assert.Error(t, client.Health(ctx))
	assert.Equal(t, 1, logs.FilterMessage("Redis command failed").Len())
}

func TestPrefixForLog(t *testing.T) {
	assert.Equal(t, "prod:tokens", prefixForLog("prod:tokens"))
	assert.Equal(t, "prod:aaaaaaaaaaaaaaaaaaa…", prefixForLog("prod:aaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
}
