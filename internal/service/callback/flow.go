package callback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"fe-v2/internal/domain"
	apperrors "fe-v2/pkg/errors"
	"fe-v2/pkg/logger"
)

// State is a step of the callback flow
type State string

const (
	StateIdle               State = "idle"
	StateVerifyingState     State = "verifying_state"
	StateExchangingCode     State = "exchanging_code"
	StateCommittingSession  State = "committing_session"
	StateRedirectingSuccess State = "redirecting_success"
	StateRedirectingFailure State = "redirecting_failure"
)

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool {
	return s == StateRedirectingSuccess || s == StateRedirectingFailure
}

// transitions lists the allowed next states. Every non-terminal state after
// idle may also fail.
var transitions = map[State][]State{
	StateIdle:              {StateVerifyingState},
	StateVerifyingState:    {StateExchangingCode, StateRedirectingFailure},
	StateExchangingCode:    {StateCommittingSession, StateRedirectingFailure},
	StateCommittingSession: {StateRedirectingSuccess, StateRedirectingFailure},
}

// ErrAlreadyRun is returned when Run is called again on the same flow
var ErrAlreadyRun = errors.New("callback flow already run")

// ErrInvalidTransition signals a bug in the flow's own sequencing
var ErrInvalidTransition = errors.New("invalid callback state transition")

// StateVerifier checks and consumes the anti-forgery state token
type StateVerifier interface {
	Verify(ctx context.Context, state string) error
	Consume(ctx context.Context) error
}

// CodeExchanger trades an authorization code for a token pair
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (*domain.TokenPair, error)
}

// SessionCommitter receives the pair of a successful login
type SessionCommitter interface {
	Commit(ctx context.Context, pair *domain.TokenPair) error
}

// Config holds the routes and redirect URI of the flow
type Config struct {
	RedirectURI string
	LoginPath   string
	LandingPath string
}

// Params are the query parameters of the provider redirect
type Params struct {
	Code  string
	State string
}

// Outcome is where a finished flow sends the user agent
type Outcome struct {
	State  State
	Target string
	// Err is the cause of a failed flow, nil on success
	Err error
}

// Handler builds one Flow per provider redirect. Redirects carrying the same
// state while a flow for it is in flight share that flow's outcome.
type Handler struct {
	cfg       Config
	verifier  StateVerifier
	exchanger CodeExchanger
	session   SessionCommitter
	logger    *logger.Logger

	inflight singleflight.Group
}

// NewHandler creates a callback handler
func NewHandler(cfg Config, verifier StateVerifier, exchanger CodeExchanger, session SessionCommitter, log *logger.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		verifier:  verifier,
		exchanger: exchanger,
		session:   session,
		logger:    log.Component("callback"),
	}
}

// NewFlow returns a fresh flow in the idle state
func (h *Handler) NewFlow() *Flow {
	return &Flow{h: h, state: StateIdle, history: []State{StateIdle}}
}

// Run handles one provider redirect. A duplicate delivery of a redirect that
// is still being processed (browser retry, prefetch, double click) joins the
// running flow instead of exchanging the code a second time. The flow runs
// detached from ctx cancellation so an abandoned first request cannot fail
// the duplicates waiting on it.
func (h *Handler) Run(ctx context.Context, p Params) (Outcome, error) {
	v, err, shared := h.inflight.Do(p.State, func() (interface{}, error) {
		return h.NewFlow().Run(context.WithoutCancel(ctx), p)
	})
	if shared {
		h.logger.Debug("Duplicate callback joined the running flow")
	}
	out, _ := v.(Outcome)
	return out, err
}

// Flow is a single run of the callback state machine
type Flow struct {
	h       *Handler
	started atomic.Bool

	mu      sync.Mutex
	state   State
	history []State
}

// State returns the current state
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// History returns every state the flow has been in, in order
func (f *Flow) History() []State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]State(nil), f.history...)
}

func (f *Flow) transition(to State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, allowed := range transitions[f.state] {
		if allowed == to {
			f.state = to
			f.history = append(f.history, to)
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.state, to)
}

// Run drives the flow to a terminal state. It leaves idle at most once; any
// later call returns ErrAlreadyRun without side effects. Flow failures are
// reported in the Outcome, never as the returned error.
func (f *Flow) Run(ctx context.Context, p Params) (Outcome, error) {
	if !f.started.CompareAndSwap(false, true) {
		return Outcome{State: f.State()}, ErrAlreadyRun
	}

	if err := f.transition(StateVerifyingState); err != nil {
		return Outcome{}, err
	}
	if err := f.h.verifier.Verify(ctx, p.State); err != nil {
		return f.fail(err)
	}
	if p.Code == "" {
		return f.fail(apperrors.NewMissingCodeError())
	}

	if err := f.transition(StateExchangingCode); err != nil {
		return Outcome{}, err
	}
	pair, err := f.h.exchanger.ExchangeCode(ctx, p.Code, f.h.cfg.RedirectURI)
	if err != nil {
		return f.fail(err)
	}

	if err := f.transition(StateCommittingSession); err != nil {
		return Outcome{}, err
	}
	if err := f.h.session.Commit(ctx, pair); err != nil {
		return f.fail(apperrors.NewInternalError("failed to commit session", err))
	}
	if err := f.h.verifier.Consume(ctx); err != nil {
		f.h.logger.WithError(err).Error("Failed to consume state token after login")
	}

	if err := f.transition(StateRedirectingSuccess); err != nil {
		return Outcome{}, err
	}
	f.h.logger.Info("Login completed")
	return Outcome{State: StateRedirectingSuccess, Target: f.h.cfg.LandingPath}, nil
}

// fail moves to the failure terminal and logs enough to diagnose the attempt
func (f *Flow) fail(cause error) (Outcome, error) {
	failedAt := f.State()
	if err := f.transition(StateRedirectingFailure); err != nil {
		return Outcome{}, err
	}

	fields := map[string]interface{}{
		"failed_at":  string(failedAt),
		"error_type": string(apperrors.TypeOf(cause)),
	}
	var appErr *apperrors.AppError
	if errors.As(cause, &appErr) {
		for _, key := range []string{"status", "reason"} {
			if v, ok := appErr.Details[key]; ok {
				fields[key] = v
			}
		}
	}
	f.h.logger.WithError(cause).WithFields(fields).Warn("Login failed")

	return Outcome{State: StateRedirectingFailure, Target: f.h.cfg.LoginPath, Err: cause}, nil
}
