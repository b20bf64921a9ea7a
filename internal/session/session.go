// Package session owns the authenticated identity of the dashboard user and
// mirrors it into durable storage.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/bmbranch/branchdesk/pkg/domain"
)

// Durable storage keys.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

var (
	// ErrNotInitialized is returned by Login before Initialize has run.
	ErrNotInitialized = errors.New("session not initialized")
	// ErrInvalidSession is returned for an empty credential.
	ErrInvalidSession = errors.New("invalid session")
	// ErrStorage wraps durable storage failures.
	ErrStorage = errors.New("session storage failure")
)

// State is the lifecycle state of a Store.
type State int

// Lifecycle states.
const (
	StateUninitialized State = iota
	StateInitializing
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Settled reports whether rehydration has finished.
func (s State) Settled() bool {
	return s == StateAuthenticated || s == StateUnauthenticated
}

// Session is a credential and the identity it belongs to.
type Session struct {
	Credential string
	Identity   domain.User
}

// ExpiresAt returns the exp claim if the credential is a JWT carrying one.
// The token is not verified; the value is for display only.
func (s Session) ExpiresAt() (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Credential, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Store holds the current session. Credential and identity always change
// together, and durable storage is written before memory.
type Store struct {
	storage Storage
	log     zerolog.Logger

	once sync.Once

	mu      sync.RWMutex
	state   State
	current *Session
}

// NewStore returns an uninitialized store backed by storage.
func NewStore(storage Storage, log zerolog.Logger) *Store {
	return &Store{storage: storage, log: log}
}

// Initialize rehydrates the session from storage. Only the first call does
// any work; later calls return the settled state. A partial or malformed
// pair is purged and the store settles unauthenticated.
func (s *Store) Initialize() State {
	s.once.Do(func() {
		s.mu.Lock()
		s.state = StateInitializing
		s.mu.Unlock()

		sess, ok := s.load()
		if !ok {
			s.purge()
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if ok {
			s.current = sess
			s.state = StateAuthenticated
		} else {
			s.current = nil
			s.state = StateUnauthenticated
		}
		s.log.Debug().Str("state", s.state.String()).Msg("session rehydrated")
	})
	return s.State()
}

func (s *Store) load() (*Session, bool) {
	token, hasToken, err := s.storage.Get(KeyToken)
	if err != nil {
		s.log.Warn().Err(err).Msg("read stored token")
		return nil, false
	}
	raw, hasUser, err := s.storage.Get(KeyUser)
	if err != nil {
		s.log.Warn().Err(err).Msg("read stored user")
		return nil, false
	}
	if !hasToken && !hasUser {
		return nil, false
	}
	if !hasToken || !hasUser || token == "" {
		s.log.Warn().Bool("token", hasToken).Bool("user", hasUser).Msg("discarding partial session")
		return nil, false
	}
	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.log.Warn().Err(err).Msg("discarding malformed stored user")
		return nil, false
	}
	return &Session{Credential: token, Identity: user}, true
}

func (s *Store) purge() {
	for _, key := range []string{KeyToken, KeyUser} {
		if err := s.storage.Remove(key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("remove session key")
		}
	}
}

// Login persists credential and identity, then makes them current. On a
// storage failure the previous pair is put back, so storage and memory still
// agree. If that is not possible either, the session is cleared.
func (s *Store) Login(credential string, identity domain.User) error {
	if credential == "" {
		return fmt.Errorf("session.Login: %w: empty credential", ErrInvalidSession)
	}
	if !s.State().Settled() {
		return fmt.Errorf("session.Login: %w", ErrNotInitialized)
	}
	userJSON, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("session.Login: encode user: %w", err)
	}

	if err := s.storage.Set(KeyToken, credential); err != nil {
		return fmt.Errorf("session.Login: %w: %w", ErrStorage, err)
	}
	if err := s.storage.Set(KeyUser, string(userJSON)); err != nil {
		s.rollbackToken()
		return fmt.Errorf("session.Login: %w: %w", ErrStorage, err)
	}

	s.mu.Lock()
	s.current = &Session{Credential: credential, Identity: identity}
	s.state = StateAuthenticated
	s.mu.Unlock()

	s.log.Info().Int64("user_id", identity.ID).Str("role", identity.Role).Msg("logged in")
	return nil
}

// rollbackToken undoes a token write whose user write failed. The user key
// was not touched, so it still matches the current session, if any.
func (s *Store) rollbackToken() {
	s.mu.Lock()
	prev := s.current
	s.mu.Unlock()

	var err error
	if prev != nil {
		err = s.storage.Set(KeyToken, prev.Credential)
	} else {
		err = s.storage.Remove(KeyToken)
	}
	if err == nil {
		return
	}
	s.log.Warn().Err(err).Msg("roll back stored token")
	if prev != nil {
		s.Logout()
	}
}

// Logout clears the session. Storage errors are logged, never returned;
// memory is always cleared.
func (s *Store) Logout() {
	s.purge()

	s.mu.Lock()
	defer s.mu.Unlock()
	wasAuthenticated := s.current != nil
	s.current = nil
	if s.state.Settled() {
		s.state = StateUnauthenticated
	}
	if wasAuthenticated {
		s.log.Info().Msg("logged out")
	}
}

// State returns the lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsAuthenticated reports whether an identity is present.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// Current returns a copy of the session, if any.
func (s *Store) Current() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

// Credential returns the bearer token, or "" when unauthenticated.
func (s *Store) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Credential
}
