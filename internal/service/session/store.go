package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"fe-v2/internal/apiclient"
	"fe-v2/internal/domain"
	"fe-v2/internal/storage"
	"fe-v2/pkg/logger"
)

// Store is the single source of truth for the session: the persisted token
// pair, the resolved profile and the readiness of the current cycle.
//
// Every token write starts a new cycle tagged with a generation. Profile
// resolution runs in the background and its result is applied only while its
// generation is still current, so the latest write always wins.
type Store struct {
	kv      storage.KeyValue
	sources []ProfileSource
	logger  *logger.Logger

	// resolutions outlive the request that started them
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu         sync.RWMutex
	tokens     *domain.TokenPair
	user       *domain.UserProfile
	ready      bool
	readyCh    chan struct{}
	generation uint64
}

// NewStore creates a session store. It starts not ready; call Hydrate once at
// process start.
func NewStore(kv storage.KeyValue, sources []ProfileSource, log *logger.Logger) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		kv:      kv,
		sources: sources,
		logger:  log.Component("session"),
		baseCtx: ctx,
		cancel:  cancel,
		readyCh: make(chan struct{}),
	}
}

// Hydrate loads the persisted pair and resolves its profile. An absent or
// unreadable record leaves the session empty and ready without any network
// call.
func (s *Store) Hydrate(ctx context.Context) error {
	pair, err := s.load(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Discarding unreadable persisted session")
		pair = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.tokens = pair
	if !pair.IsAuthenticated() {
		s.tokens = nil
		s.user = nil
		s.markReadyLocked()
		s.logger.Debug("No persisted session")
		return nil
	}

	s.logger.WithField("generation", s.generation).Info("Restored persisted session")
	s.startResolutionLocked()
	return nil
}

func (s *Store) load(ctx context.Context) (*domain.TokenPair, error) {
	raw, err := s.kv.Get(ctx, storage.KeyTokens)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tokens: %w", err)
	}
	return DecodeTokens(raw)
}

// DecodeTokens decodes a persisted token record. A blank record is no pair.
func DecodeTokens(raw string) (*domain.TokenPair, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var pair domain.TokenPair
	if err := json.Unmarshal([]byte(raw), &pair); err != nil {
		return nil, fmt.Errorf("decode tokens: %w", err)
	}
	return &pair, nil
}

// Commit persists pair, replaces the in-memory pair whole and starts a new
// resolution cycle. Nothing changes when persisting fails.
func (s *Store) Commit(ctx context.Context, pair *domain.TokenPair) error {
	pair = pair.Clone()
	if pair == nil {
		pair = &domain.TokenPair{}
	}

	raw, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}

	// the write lock spans the storage write so commits apply in issue order
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Set(ctx, storage.KeyTokens, string(raw)); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}

	s.generation++
	s.tokens = pair
	s.startResolutionLocked()

	_, field := pair.Credential()
	s.logger.WithFields(map[string]interface{}{
		"generation": s.generation,
		"credential": field,
	}).Info("Session committed")
	return nil
}

// Clear removes the pair from storage and memory and empties the profile.
// Any in-flight resolution is discarded. The local state is cleared even when
// the storage delete fails; that error is still returned.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.kv.Delete(ctx, storage.KeyTokens)
	if err != nil {
		err = fmt.Errorf("delete tokens: %w", err)
		s.logger.WithError(err).Error("Failed to remove persisted session")
	}

	s.generation++
	s.tokens = nil
	s.user = nil
	s.markReadyLocked()

	s.logger.WithField("generation", s.generation).Info("Session cleared")
	return err
}

// startResolutionLocked resolves the profile of the current pair in the
// background. The previous profile stays visible until the result is swapped
// in. Callers hold s.mu.
func (s *Store) startResolutionLocked() {
	s.ready = false
	select {
	case <-s.readyCh:
		s.readyCh = make(chan struct{})
	default:
		// previous cycle still pending; its waiters wait for this one
	}

	gen := s.generation
	pair := s.tokens.Clone()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		user := s.resolve(s.baseCtx, gen, pair)
		s.apply(gen, user)
	}()
}

// resolve walks the profile sources in order and returns the first profile,
// or nil when every source failed.
func (s *Store) resolve(ctx context.Context, gen uint64, pair *domain.TokenPair) *domain.UserProfile {
	credential, field := pair.Credential()
	if credential == "" {
		return nil
	}

	log := s.logger.WithField("generation", gen)
	logCredentialClaims(log, field, credential)

	ctx = apiclient.WithCredential(ctx, credential)
	for _, src := range s.sources {
		if s.isStale(gen) {
			log.Debug("Resolution superseded, skipping remaining profile sources")
			return nil
		}

		profile, err := src.Fetch(ctx)
		if err == nil && profile != nil {
			log.WithField("source", src.Name).Debug("Profile resolved")
			return profile
		}
		if err == nil {
			err = errors.New("empty profile")
		}
		log.WithError(err).WithField("source", src.Name).Warn("Profile source failed")
	}

	log.Warn("All profile sources failed, keeping tokens with an empty profile")
	return nil
}

// apply swaps in the resolved profile and marks the cycle ready, unless a
// newer write has happened since gen.
func (s *Store) apply(gen uint64, user *domain.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.logger.WithFields(map[string]interface{}{
			"generation": gen,
			"current":    s.generation,
		}).Debug("Discarding stale profile resolution")
		return
	}

	s.user = user
	s.markReadyLocked()
}

func (s *Store) markReadyLocked() {
	s.ready = true
	select {
	case <-s.readyCh:
	default:
		close(s.readyCh)
	}
}

func (s *Store) isStale(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return gen != s.generation
}

// Tokens returns a copy of the current pair, nil when there is none
func (s *Store) Tokens() *domain.TokenPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.Clone()
}

// User returns the resolved profile, nil when there is none
func (s *Store) User() *domain.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// IsAuthenticated is derived from the pair alone, never from the profile
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.IsAuthenticated()
}

// AuthReady reports whether the current cycle has finished resolving
func (s *Store) AuthReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Snapshot returns all session fields read under one lock
func (s *Store) Snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.SessionSnapshot{
		Tokens:          s.tokens.Clone(),
		User:            s.user,
		IsAuthenticated: s.tokens.IsAuthenticated(),
		AuthReady:       s.ready,
		Generation:      s.generation,
	}
}

// Credential returns the outbound bearer credential of the current pair.
// It makes the store an apiclient.CredentialSource.
func (s *Store) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, _ := s.tokens.Credential()
	return v
}

// WaitReady blocks until the current cycle is ready or ctx is done
func (s *Store) WaitReady(ctx context.Context) error {
	s.mu.RLock()
	ch := s.readyCh
	s.mu.RUnlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels in-flight resolutions and waits for them to return
func (s *Store) Close() {
	s.cancel()
	s.wg.Wait()
}
