package service

import (
	"context"

	"fe-v2/internal/domain"
	"fe-v2/internal/service/callback"
)

// SessionService defines the session capability handed to the rest of the
// application
type SessionService interface {
	// Hydrate restores the persisted session at process start
	Hydrate(ctx context.Context) error

	// Commit replaces the token pair and starts resolving its profile
	Commit(ctx context.Context, pair *domain.TokenPair) error

	// Clear removes the session entirely
	Clear(ctx context.Context) error

	Tokens() *domain.TokenPair
	User() *domain.UserProfile
	IsAuthenticated() bool
	AuthReady() bool
	Snapshot() domain.SessionSnapshot

	// WaitReady blocks until the current cycle is ready
	WaitReady(ctx context.Context) error

	// Credential returns the bearer credential for outbound calls
	Credential() string
}

// LoginService defines how a login attempt is started
type LoginService interface {
	// AuthorizationURL issues a fresh state and returns the provider URL
	AuthorizationURL(ctx context.Context) (string, error)
}

// CallbackService handles provider redirects, one flow per distinct redirect
type CallbackService interface {
	Run(ctx context.Context, p callback.Params) (callback.Outcome, error)
	NewFlow() *callback.Flow
}

// Services aggregates all service interfaces
type Services struct {
	Session  SessionService
	Login    LoginService
	Callback CallbackService
}
