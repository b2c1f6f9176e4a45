// package session holds the process-wide bearer token for the playlist backend.
//
// The live value sits in memory and is read synchronously by every authenticated request; a [Persister]
// mirrors it so a restarted client resumes the session.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// Persister is the durable slot behind a [Store]. [repositories.SessionRepository] implements it.
type Persister interface {
	LoadToken(ctx context.Context) (string, bool, error)
	SaveToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// Store is the single session token holder. The zero value is not usable; see [NewStore].
type Store struct {
	token     atomic.Pointer[string]
	persister Persister
	logger    *log.Logger

	// serialises writers so memory and the persisted slot change together
	mu sync.Mutex
}

// NewStore creates a store backed by p. A nil persister keeps the token in memory only.
func NewStore(p Persister, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{persister: p, logger: logger}
}

// Load restores the persisted token, if any.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok, err := s.persister.LoadToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	if ok && token != "" {
		s.token.Store(&token)
		s.logger.Debug("restored session")
	}
	return nil
}

// SetToken replaces the current token. An empty token clears the session.
func (s *Store) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return s.ClearToken(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.SaveToken(ctx, token); err != nil {
			return fmt.Errorf("failed to persist session: %w", err)
		}
	}
	s.token.Store(&token)
	return nil
}

// ClearToken removes the current token.
func (s *Store) ClearToken(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token.Store(nil)
	if s.persister != nil {
		if err := s.persister.ClearToken(ctx); err != nil {
			return fmt.Errorf("failed to clear persisted session: %w", err)
		}
	}
	return nil
}

// Token returns the current token and whether one is present.
func (s *Store) Token() (string, bool) {
	p := s.token.Load()
	if p == nil {
		return "", false
	}
	return *p, true
}

// Authenticated reports whether a token is present.
func (s *Store) Authenticated() bool {
	_, ok := s.Token()
	return ok
}
