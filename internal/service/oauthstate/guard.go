package oauthstate

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"fe-v2/internal/storage"
	apperrors "fe-v2/pkg/errors"
	"fe-v2/pkg/logger"
)

const tokenBytes = 32

// Guard issues and verifies the anti-forgery state token of the login flow.
// One token is outstanding at a time; issuing a new one replaces the old.
type Guard struct {
	kv     storage.KeyValue
	random io.Reader
	logger *logger.Logger
}

// NewGuard creates a guard backed by kv
func NewGuard(kv storage.KeyValue, log *logger.Logger) *Guard {
	return &Guard{
		kv:     kv,
		random: rand.Reader,
		logger: log.Component("oauthstate"),
	}
}

// Issue generates a fresh state token and stores it
func (g *Guard) Issue(ctx context.Context) (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := io.ReadFull(g.random, b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	if err := g.kv.Set(ctx, storage.KeyOAuthState, state); err != nil {
		return "", fmt.Errorf("store state token: %w", err)
	}
	g.logger.Debug("Issued state token")
	return state, nil
}

// Verify checks state against the stored token. It fails with an
// invalid_state error when state is empty, nothing is stored or they differ.
func (g *Guard) Verify(ctx context.Context, state string) error {
	if state == "" {
		g.logger.Warn("Callback carried no state")
		return apperrors.NewInvalidStateError("missing state parameter").WithDetail("reason", "missing")
	}

	stored, err := g.kv.Get(ctx, storage.KeyOAuthState)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && stored == "") {
		g.logger.Warn("No state token outstanding")
		return apperrors.NewInvalidStateError("no state token outstanding").WithDetail("reason", "absent")
	}
	if err != nil {
		g.logger.WithError(err).Error("Failed to read state token")
		return apperrors.NewInvalidStateError("state token unavailable").WithDetail("reason", "unavailable")
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(state)) != 1 {
		g.logger.WithFields(map[string]interface{}{
			"received_len": len(state),
			"stored_len":   len(stored),
		}).Warn("State token mismatch")
		return apperrors.NewInvalidStateError("state mismatch").WithDetail("reason", "mismatch")
	}
	return nil
}

// Consume deletes the stored token so it cannot be used again
func (g *Guard) Consume(ctx context.Context) error {
	if err := g.kv.Delete(ctx, storage.KeyOAuthState); err != nil {
		return fmt.Errorf("delete state token: %w", err)
	}
	return nil
}
