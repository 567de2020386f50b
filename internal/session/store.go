// Package session holds the authenticated identity of one client: the browser
// visitor in the dashboard, or the operator in the CLI. A Store is the only
// writer of its identity and of the token/user pair in its Storage.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fleettrack-dev/fleettrack/internal/apperr"
	"github.com/fleettrack-dev/fleettrack/internal/auth"
	"github.com/fleettrack-dev/fleettrack/internal/storage"
)

// ErrNotAuthenticated is returned by operations that need a held token
var ErrNotAuthenticated = &apperr.AuthenticationError{
	Status:  http.StatusUnauthorized,
	Message: "Sessão não iniciada",
}

// Backend is the slice of the transport the store talks to
type Backend interface {
	Login(ctx context.Context, email, password string) (*auth.LoginResponse, error)
	Register(ctx context.Context, req auth.RegisterRequest) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*auth.User, error)
	RefreshToken(ctx context.Context) (*auth.LoginResponse, error)
}

// State is a read-only snapshot of the session
type State struct {
	User      *auth.User
	Token     string
	IsLoading bool
	Error     string
}

// IsAuthenticated reports whether an identity is held
func (s State) IsAuthenticated() bool {
	return s.User != nil
}

// RegisterInput is what a new account needs
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// Store owns one session. Operations are not serialized: concurrent calls may
// interleave and the last write to memory and storage wins.
type Store struct {
	backend Backend
	storage storage.Storage
	logger  zerolog.Logger

	mu    sync.RWMutex
	state State

	subsMu  sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// New creates an empty store. Call Init to restore a persisted session.
func New(backend Backend, st storage.Storage, logger zerolog.Logger) *Store {
	return &Store{
		backend: backend,
		storage: st,
		logger:  logger.With().Str("component", "session").Logger(),
		subs:    make(map[int]func(State)),
	}
}

// Init restores the persisted session without a round trip. Only a complete
// token/user pair is restored; anything else is erased.
func (s *Store) Init(ctx context.Context) error {
	token, hasToken, err := s.storage.Get(ctx, storage.KeyToken)
	if err != nil {
		return fmt.Errorf("failed to read stored token: %w", err)
	}
	rawUser, hasUser, err := s.storage.Get(ctx, storage.KeyUser)
	if err != nil {
		return fmt.Errorf("failed to read stored user: %w", err)
	}

	if !hasToken && !hasUser {
		return nil
	}

	var user auth.User
	if !hasToken || !hasUser || token == "" || json.Unmarshal([]byte(rawUser), &user) != nil || user.ID == "" {
		s.logger.Warn().Msg("Discarding incomplete or corrupt stored session")
		s.erase(ctx)
		return nil
	}

	s.mutate(func(st *State) {
		st.User = &user
		st.Token = token
	})

	s.logger.Debug().Str("user_id", user.ID).Msg("Session restored from storage")
	return nil
}

// Login authenticates with the backend. A rejection clears the held identity; a
// network failure keeps it. Either way Error is set and the error returned.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.mutate(func(st *State) {
		st.Error = ""
		st.IsLoading = true
	})

	resp, err := s.backend.Login(ctx, email, password)
	if err == nil && resp.Token == "" {
		err = &apperr.AuthenticationError{Status: http.StatusOK, Message: "Resposta de login sem credencial"}
	}
	if err != nil {
		err = classify(err)
		if apperr.IsNetwork(err) {
			s.logger.Warn().Err(err).Msg("Login request did not complete, keeping prior session")
			s.fail(err)
			return err
		}

		s.logger.Info().Err(err).Msg("Login rejected")
		s.erase(ctx)
		s.mutate(func(st *State) {
			st.User = nil
			st.Token = ""
			st.IsLoading = false
			st.Error = apperr.Message(err)
		})
		return err
	}

	s.persist(ctx, resp.User, resp.Token)
	s.mutate(func(st *State) {
		st.User = resp.User.Clone()
		st.Token = resp.Token
		st.IsLoading = false
		st.Error = ""
	})

	s.logger.Info().Str("user_id", resp.User.ID).Msg("Logged in")
	return nil
}

// Register creates the account and then logs in with the same credentials
func (s *Store) Register(ctx context.Context, in RegisterInput) error {
	s.mutate(func(st *State) {
		st.Error = ""
		st.IsLoading = true
	})

	err := s.backend.Register(ctx, auth.RegisterRequest{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Role:     in.Role,
	})
	if err != nil {
		err = classify(err)
		s.logger.Info().Err(err).Str("email", in.Email).Msg("Registration failed")
		s.fail(err)
		return err
	}

	s.logger.Info().Str("email", in.Email).Msg("Account registered")
	return s.Login(ctx, in.Email, in.Password)
}

// Logout invalidates the token server-side when possible. Local state and
// storage are always cleared.
func (s *Store) Logout(ctx context.Context) error {
	if s.Token() != "" {
		s.mutate(func(st *State) { st.IsLoading = true })
		if err := s.backend.Logout(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Server-side logout failed, clearing local session anyway")
		}
	}

	s.erase(ctx)
	s.mutate(func(st *State) {
		*st = State{}
	})

	s.logger.Debug().Msg("Logged out")
	return nil
}

// RefetchMe asks the backend who the held token belongs to. It returns nil
// when there is no token or on any failure, in which case the session is
// cleared.
func (s *Store) RefetchMe(ctx context.Context) *auth.User {
	if s.Token() == "" {
		return nil
	}

	user, err := s.backend.Me(ctx)
	if err != nil || user == nil || user.ID == "" {
		s.logger.Debug().Err(err).Msg("Session validation failed, clearing session")
		s.erase(ctx)
		s.mutate(func(st *State) {
			st.User = nil
			st.Token = ""
		})
		return nil
	}

	token := s.Token()
	if token == "" {
		// A concurrent logout won
		return nil
	}

	s.persist(ctx, user, token)
	s.mutate(func(st *State) {
		st.User = user.Clone()
	})
	return user.Clone()
}

// RefreshToken exchanges the held token for a fresh one
func (s *Store) RefreshToken(ctx context.Context) error {
	if s.Token() == "" {
		return ErrNotAuthenticated
	}

	s.mutate(func(st *State) {
		st.Error = ""
		st.IsLoading = true
	})

	resp, err := s.backend.RefreshToken(ctx)
	if err != nil {
		err = classify(err)
		if apperr.IsNetwork(err) {
			s.fail(err)
			return err
		}

		s.logger.Info().Err(err).Msg("Token refresh rejected, clearing session")
		s.erase(ctx)
		s.mutate(func(st *State) {
			st.User = nil
			st.Token = ""
			st.IsLoading = false
			st.Error = apperr.Message(err)
		})
		return err
	}

	current := s.Snapshot()
	user := current.User
	if resp.User != nil {
		user = resp.User
	}
	token := current.Token
	if resp.Token != "" {
		token = resp.Token
	}
	if user == nil || token == "" {
		s.fail(ErrNotAuthenticated)
		return ErrNotAuthenticated
	}

	s.persist(ctx, user, token)
	s.mutate(func(st *State) {
		st.User = user.Clone()
		st.Token = token
		st.IsLoading = false
	})
	return nil
}

// ClearError resets the last error
func (s *Store) ClearError() {
	s.mutate(func(st *State) { st.Error = "" })
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	st.User = s.state.User.Clone()
	return st
}

// CurrentUser returns the held identity, or nil
func (s *Store) CurrentUser() *auth.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User.Clone()
}

// Token returns the held bearer token. It makes the store a transport token
// source.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// Subscribe registers fn to be called with the new state after every
// mutation. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

// Teardown ends the store's lifecycle: logout, then drop every subscriber
func (s *Store) Teardown(ctx context.Context) error {
	err := s.Logout(ctx)

	s.subsMu.Lock()
	s.subs = make(map[int]func(State))
	s.subsMu.Unlock()

	return err
}

func (s *Store) fail(err error) {
	s.mutate(func(st *State) {
		st.IsLoading = false
		st.Error = apperr.Message(err)
	})
}

// mutate applies fn under the lock, then notifies subscribers outside it
func (s *Store) mutate(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state
	snapshot.User = s.state.User.Clone()
	s.mu.Unlock()

	s.subsMu.Lock()
	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub(snapshot)
	}
}

func (s *Store) persist(ctx context.Context, user *auth.User, token string) {
	data, err := json.Marshal(user)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode user for storage")
		return
	}
	if err := s.storage.Set(ctx, storage.KeyToken, token); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist token")
	}
	if err := s.storage.Set(ctx, storage.KeyUser, string(data)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist user")
	}
}

func (s *Store) erase(ctx context.Context) {
	for _, key := range []string{storage.KeyToken, storage.KeyUser} {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Error().Err(err).Str("key", key).Msg("Failed to erase stored session")
		}
	}
}

// classify narrows backend failures to the two kinds callers handle: anything
// that is not a network failure counts as the backend rejecting the request.
func classify(err error) error {
	var (
		netErr  *apperr.NetworkError
		authErr *apperr.AuthenticationError
		apiErr  *apperr.APIError
	)
	switch {
	case errors.As(err, &netErr), errors.As(err, &authErr):
		return err
	case errors.As(err, &apiErr):
		return &apperr.AuthenticationError{Status: apiErr.Status, Message: apiErr.Message}
	default:
		return &apperr.AuthenticationError{Message: err.Error()}
	}
}
