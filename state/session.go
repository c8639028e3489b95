package state

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/s0up4200/reelcritic/auth"
)

// Messages recorded in SessionState on failure
const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgRegistrationFailed = "Registration failed"
)

// SessionService is the session API the container drives
type SessionService interface {
	Login(ctx context.Context, creds auth.LoginCredentials) (*auth.LoginResult, error)
	Register(ctx context.Context, creds auth.RegisterCredentials) (*auth.User, error)
	Logout()
	CurrentUser(ctx context.Context) *auth.User
	HasStoredSession() bool
	StoredTokens() *auth.Tokens
	Restore(tokens *auth.Tokens) error
}

// SessionState is an immutable snapshot of the session
type SessionState struct {
	phase  SessionPhase
	user   *auth.User
	reason string
}

// Phase returns the lifecycle phase
func (s SessionState) Phase() SessionPhase { return s.phase }

// IsAuthenticated reports whether a user is present. A failed or pending
// attempt keeps the previous user.
func (s SessionState) IsAuthenticated() bool { return s.user != nil }

// IsLoading reports whether the startup check or an attempt is in flight
func (s SessionState) IsLoading() bool {
	return s.phase == SessionInitializing || s.phase == SessionPending
}

// Error returns the message of the last failed attempt, or ""
func (s SessionState) Error() string {
	if s.phase != SessionFailed {
		return ""
	}
	return s.reason
}

// User returns a copy of the current user, or nil
func (s SessionState) User() *auth.User {
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s SessionState) pending() SessionState {
	if s.phase == SessionInitializing {
		return s
	}
	return SessionState{phase: SessionPending, user: s.user}
}

func (s SessionState) failed(reason string) SessionState {
	return SessionState{phase: SessionFailed, user: s.user, reason: reason}
}

func authenticated(user auth.User) SessionState {
	return SessionState{phase: SessionAuthenticated, user: &user}
}

// Session owns the session state. Each operation bumps a generation counter;
// a completion is applied only if no newer operation has started since, and
// starting an operation cancels the context of the one it replaces.
type Session struct {
	svc    SessionService
	logger zerolog.Logger

	mu     sync.Mutex
	state  SessionState
	tokens *auth.Tokens
	gen    uint64
	cancel context.CancelFunc
	subs   subscribers[SessionState]
}

// NewSession creates a container in the Initializing phase
func NewSession(svc SessionService, logger zerolog.Logger) *Session {
	return &Session{
		svc:    svc,
		logger: logger,
		state:  SessionState{phase: SessionInitializing},
	}
}

// OpenSession creates a container and restores the stored session
func OpenSession(ctx context.Context, svc SessionService, logger zerolog.Logger) (*Session, error) {
	s := NewSession(svc, logger)
	if err := s.Restore(ctx); err != nil {
		return s, err
	}
	return s, nil
}

// State returns the current snapshot
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to receive every state change. The returned func
// removes it.
func (s *Session) Subscribe(fn func(SessionState)) func() {
	s.mu.Lock()
	id := s.subs.add(fn)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.subs.remove(id)
		s.mu.Unlock()
	}
}

// begin supersedes any in-flight operation and marks the session loading
func (s *Session) begin(ctx context.Context) (context.Context, uint64, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.gen++
	gen := s.gen
	prev := s.state
	s.state = s.state.pending()
	next, subs := s.state, s.subs.snapshot()
	s.mu.Unlock()

	if next != prev {
		notify(subs, next)
	}
	return opCtx, gen, cancel
}

// commit runs apply under the lock if gen is still current. A superseded
// completion that wrote to the credential store instead puts the store back
// to the applied session.
func (s *Session) commit(gen uint64, wroteStore bool, apply func()) bool {
	s.mu.Lock()
	if gen != s.gen {
		if wroteStore {
			s.syncStore()
		}
		s.mu.Unlock()
		s.logger.Debug().Uint64("generation", gen).Msg("Discarding superseded session result")
		return false
	}
	apply()
	next, subs := s.state, s.subs.snapshot()
	s.mu.Unlock()

	s.logger.Debug().Stringer("phase", next.phase).Msg("Session state changed")
	notify(subs, next)
	return true
}

// syncStore must be called with s.mu held
func (s *Session) syncStore() {
	if err := s.svc.Restore(s.tokens); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to sync stored credentials")
	}
}

// Restore checks for a persisted session and, if its profile can be loaded,
// becomes authenticated. It always ends with the session not loading. A
// stored token whose profile cannot be fetched is left in place.
func (s *Session) Restore(ctx context.Context) error {
	opCtx, gen, cancel := s.begin(ctx)
	defer cancel()

	var user *auth.User
	var tokens *auth.Tokens
	if s.svc.HasStoredSession() {
		user = s.svc.CurrentUser(opCtx)
		if user != nil {
			tokens = s.svc.StoredTokens()
		}
	}

	applied := s.commit(gen, false, func() {
		if user == nil {
			s.tokens = nil
			s.state = SessionState{phase: SessionUnauthenticated}
			return
		}
		s.tokens = tokens
		s.state = authenticated(*user)
	})
	if !applied {
		return ErrSuperseded
	}
	return nil
}

// Login authenticates with the given credentials. On failure the previous
// user is kept, the state records "Invalid credentials" and an *AuthError is
// returned.
func (s *Session) Login(ctx context.Context, creds auth.LoginCredentials) (*auth.User, error) {
	opCtx, gen, cancel := s.begin(ctx)
	defer cancel()

	return s.login(opCtx, gen, creds, MsgInvalidCredentials, "login")
}

func (s *Session) login(ctx context.Context, gen uint64, creds auth.LoginCredentials, failMsg, op string) (*auth.User, error) {
	result, err := s.svc.Login(ctx, creds)
	if err != nil {
		if !s.commit(gen, false, func() { s.state = s.state.failed(failMsg) }) {
			return nil, ErrSuperseded
		}
		return nil, &AuthError{Op: op, Message: failMsg, Err: err}
	}

	applied := s.commit(gen, true, func() {
		tokens := result.Tokens
		s.tokens = &tokens
		s.state = authenticated(result.User)
		s.syncStore()
	})
	if !applied {
		return nil, ErrSuperseded
	}

	user := result.User
	return &user, nil
}

// Register creates an account and then logs in with the same username and
// password. A failure at either step records "Registration failed".
func (s *Session) Register(ctx context.Context, creds auth.RegisterCredentials) (*auth.User, error) {
	opCtx, gen, cancel := s.begin(ctx)
	defer cancel()

	if _, err := s.svc.Register(opCtx, creds); err != nil {
		if !s.commit(gen, false, func() { s.state = s.state.failed(MsgRegistrationFailed) }) {
			return nil, ErrSuperseded
		}
		return nil, &AuthError{Op: "register", Message: MsgRegistrationFailed, Err: err}
	}

	s.mu.Lock()
	stale := gen != s.gen
	s.mu.Unlock()
	if stale {
		return nil, ErrSuperseded
	}

	login := auth.LoginCredentials{Username: creds.Username, Password: creds.Password}
	return s.login(opCtx, gen, login, MsgRegistrationFailed, "register")
}

// Logout drops the session immediately. It cancels any in-flight attempt,
// makes no network call and is idempotent.
func (s *Session) Logout() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.svc.Logout()
	s.tokens = nil

	prev := s.state
	s.state = SessionState{phase: SessionUnauthenticated}
	next, subs := s.state, s.subs.snapshot()
	s.mu.Unlock()

	if next != prev {
		s.logger.Debug().Msg("Logged out")
		notify(subs, next)
	}
}
