package state

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/reelcritic/api"
	"github.com/s0up4200/reelcritic/auth"
	"github.com/s0up4200/reelcritic/credentials"
)

// fakeBackend is an in-memory token/profile/register server
type fakeBackend struct {
	mu        sync.Mutex
	passwords map[string]string
	requests  atomic.Int32
	profiles  atomic.Int32
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()

	b := &fakeBackend{passwords: map[string]string{"alice": "secret"}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token/", func(w http.ResponseWriter, r *http.Request) {
		b.requests.Add(1)
		var creds auth.LoginCredentials
		_ = json.NewDecoder(r.Body).Decode(&creds)

		b.mu.Lock()
		pw, ok := b.passwords[creds.Username]
		b.mu.Unlock()
		if !ok || pw != creds.Password {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"No active account found with the given credentials"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access":  "tok-" + creds.Username,
			"refresh": "ref-" + creds.Username,
			"user":    auth.User{ID: 1, Username: creds.Username},
		})
	})
	mux.HandleFunc("GET /movies/auth/profile/", func(w http.ResponseWriter, r *http.Request) {
		b.requests.Add(1)
		b.profiles.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok-alice" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(auth.User{ID: 1, Username: "alice", Email: "alice@example.com"})
	})
	mux.HandleFunc("POST /movies/auth/register/", func(w http.ResponseWriter, r *http.Request) {
		b.requests.Add(1)
		var creds auth.RegisterCredentials
		_ = json.NewDecoder(r.Body).Decode(&creds)

		b.mu.Lock()
		defer b.mu.Unlock()
		if _, exists := b.passwords[creds.Username]; exists {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"username":["A user with that username already exists."]}`))
			return
		}
		b.passwords[creds.Username] = creds.Password
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(auth.User{ID: 2, Username: creds.Username, Email: creds.Email})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return b, server
}

func newTestSession(t *testing.T, store credentials.Store) (*Session, *fakeBackend) {
	t.Helper()

	backend, server := newFakeBackend(t)
	client, err := api.NewClient(server.URL, store, zerolog.Nop())
	require.NoError(t, err)

	svc := auth.NewService(client, store, zerolog.Nop())
	return NewSession(svc, zerolog.Nop()), backend
}

func recordSession(s *Session) func() []SessionState {
	var mu sync.Mutex
	var seen []SessionState
	s.Subscribe(func(st SessionState) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})
	return func() []SessionState {
		mu.Lock()
		defer mu.Unlock()
		return append([]SessionState(nil), seen...)
	}
}

func TestSession_InitialState(t *testing.T) {
	s, _ := newTestSession(t, credentials.NewMemoryStore())

	st := s.State()
	assert.Equal(t, SessionInitializing, st.Phase())
	assert.True(t, st.IsLoading())
	assert.False(t, st.IsAuthenticated())
	assert.Empty(t, st.Error())
}

func TestSession_RestoreWithoutToken(t *testing.T) {
	s, backend := newTestSession(t, credentials.NewMemoryStore())

	require.NoError(t, s.Restore(context.Background()))

	st := s.State()
	assert.Equal(t, SessionUnauthenticated, st.Phase())
	assert.False(t, st.IsAuthenticated())
	assert.False(t, st.IsLoading())
	assert.Equal(t, int32(0), backend.profiles.Load())
}

func TestSession_RestoreWithToken(t *testing.T) {
	store := credentials.NewMemoryStore()
	require.NoError(t, store.Save("tok-alice", "ref-alice"))

	s, _ := newTestSession(t, store)
	require.NoError(t, s.Restore(context.Background()))

	st := s.State()
	assert.True(t, st.IsAuthenticated())
	assert.False(t, st.IsLoading())
	require.NotNil(t, st.User())
	assert.Equal(t, "alice", st.User().Username)
}

func TestSession_RestoreWithRejectedToken(t *testing.T) {
	store := credentials.NewMemoryStore()
	require.NoError(t, store.Save("expired", "ref"))

	s, _ := newTestSession(t, store)
	require.NoError(t, s.Restore(context.Background()))

	st := s.State()
	assert.Equal(t, SessionUnauthenticated, st.Phase())
	assert.False(t, st.IsLoading())

	// the token is only replaced by the next login or logout
	token, ok := store.AccessToken()
	assert.True(t, ok)
	assert.Equal(t, "expired", token)
}

func TestSession_Login(t *testing.T) {
	store := credentials.NewMemoryStore()
	s, _ := newTestSession(t, store)
	require.NoError(t, s.Restore(context.Background()))
	seen := recordSession(s)

	user, err := s.Login(context.Background(), auth.LoginCredentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	st := s.State()
	assert.True(t, st.IsAuthenticated())
	assert.False(t, st.IsLoading())
	assert.Empty(t, st.Error())

	token, ok := store.AccessToken()
	require.True(t, ok)
	assert.Equal(t, "tok-alice", token)

	states := seen()
	require.Len(t, states, 2)
	assert.Equal(t, SessionPending, states[0].Phase())
	assert.True(t, states[0].IsLoading())
	assert.Equal(t, SessionAuthenticated, states[1].Phase())
}

func TestSession_LoginRejected(t *testing.T) {
	store := credentials.NewMemoryStore()
	s, _ := newTestSession(t, store)
	require.NoError(t, s.Restore(context.Background()))

	_, err := s.Login(context.Background(), auth.LoginCredentials{Username: "alice", Password: "wrong"})
	require.Error(t, err)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, MsgInvalidCredentials, authErr.Message)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Equal(t, http.StatusUnauthorized, api.StatusCode(err))

	st := s.State()
	assert.False(t, st.IsAuthenticated())
	assert.False(t, st.IsLoading())
	assert.Equal(t, "Invalid credentials", st.Error())
	assert.False(t, store.HasToken())
}

func TestSession_FailedLoginKeepsPreviousUser(t *testing.T) {
	s, _ := newTestSession(t, credentials.NewMemoryStore())
	require.NoError(t, s.Restore(context.Background()))

	_, err := s.Login(context.Background(), auth.LoginCredentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	_, err = s.Login(context.Background(), auth.LoginCredentials{Username: "alice", Password: "wrong"})
	require.Error(t, err)

	st := s.State()
	assert.Equal(t, SessionFailed, st.Phase())
	assert.True(t, st.IsAuthenticated())
	assert.Equal(t, "alice", st.User().Username)
}

func TestSession_NewAttemptClearsError(t *testing.T) {
	s, _ := newTestSession(t, credentials.NewMemoryStore())
	require.NoError(t, s.Restore(context.Background()))

	_, err := s.Login(context.Background(), auth.LoginCredentials{Username: "alice", Password: "wrong"})
	require.Error(t, err)
	require.NotEmpty(t, s.State().Error())

	seen := recordSession(s)
	_, err = s.Login(context.Background(), auth.LoginCredentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	states := seen()
	require.NotEmpty(t, states)
	assert.True(t, states[0].IsLoading())
	assert.Empty(t, states[0].Error())
}

func TestSession_Register(t *testing.T) {
	store := credentials.NewMemoryStore()
	s, _ := newTestSession(t, store)
	require.NoError(t, s.Restore(context.Background()))

	user, err := s.Register(context.Background(), auth.RegisterCredentials{
		Username:        "bob",
		Email:           "bob@example.com",
		Password:        "hunter2hunter2",
		PasswordConfirm: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)

	st := s.State()
	assert.True(t, st.IsAuthenticated())
	assert.Equal(t, "bob", st.User().Username)

	token, _ := store.AccessToken()
	assert.Equal(t, "tok-bob", token)
}

func TestSession_RegisterDuplicate(t *testing.T) {
	s, _ := newTestSession(t, credentials.NewMemoryStore())
	require.NoError(t, s.Restore(context.Background()))

	_, err := s.Register(context.Background(), auth.RegisterCredentials{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "password1",
		PasswordConfirm: "password1",
	})
	require.Error(t, err)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "register", authErr.Op)
	assert.ErrorIs(t, err, auth.ErrRegistration)

	st := s.State()
	assert.Equal(t, "Registration failed", st.Error())
	assert.False(t, st.IsAuthenticated())
	assert.False(t, st.IsLoading())
}

// rejectingLoginService registers every account but refuses every login
type rejectingLoginService struct {
	*gatedSessionService
}

func (r rejectingLoginService) Register(_ context.Context, creds auth.RegisterCredentials) (*auth.User, error) {
	return &auth.User{ID: 9, Username: creds.Username, Email: creds.Email}, nil
}

func (r rejectingLoginService) Login(context.Context, auth.LoginCredentials) (*auth.LoginResult, error) {
	return nil, auth.ErrInvalidCredentials
}

func TestSession_RegisterThenLoginFails(t *testing.T) {
	svc := rejectingLoginService{newGatedSessionService()}
	s := NewSession(svc, zerolog.Nop())
	require.NoError(t, s.Restore(context.Background()))

	user, err := s.Register(context.Background(), auth.RegisterCredentials{
		Username:        "dave",
		Email:           "dave@example.com",
		Password:        "password1",
		PasswordConfirm: "password1",
	})
	require.Error(t, err)
	assert.Nil(t, user)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "register", authErr.Op)
	assert.Equal(t, MsgRegistrationFailed, authErr.Message)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	st := s.State()
	assert.Equal(t, SessionFailed, st.Phase())
	assert.Equal(t, "Registration failed", st.Error())
	assert.False(t, st.IsAuthenticated())
	assert.False(t, st.IsLoading())
	assert.False(t, svc.store.HasToken())
}

func TestSession_Logout(t *testing.T) {
	store := credentials.NewMemoryStore()
	s, backend := newTestSession(t, store)
	require.NoError(t, s.Restore(context.Background()))

	_, err := s.Login(context.Background(), auth.LoginCredentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	seen := recordSession(s)
	before := backend.requests.Load()

	s.Logout()
	s.Logout()

	st := s.State()
	assert.Equal(t, SessionUnauthenticated, st.Phase())
	assert.False(t, st.IsAuthenticated())
	assert.Nil(t, st.User())
	assert.False(t, store.HasToken())
	assert.Equal(t, before, backend.requests.Load(), "logout must not hit the network")
	assert.Len(t, seen(), 1)
}

func TestSession_Unsubscribe(t *testing.T) {
	s, _ := newTestSession(t, credentials.NewMemoryStore())

	calls := 0
	unsubscribe := s.Subscribe(func(SessionState) { calls++ })
	require.NoError(t, s.Restore(context.Background()))
	unsubscribe()
	s.Logout()

	assert.Equal(t, 1, calls)
}

// gatedSessionService blocks each login until its username is released and
// ignores cancellation, like a response already on the wire.
type gatedSessionService struct {
	store   *credentials.MemoryStore
	started chan string
	release map[string]chan struct{}
	reject  map[string]bool

	mu   sync.Mutex
	ctxs map[string]context.Context
}

func newGatedSessionService(names ...string) *gatedSessionService {
	g := &gatedSessionService{
		store:   credentials.NewMemoryStore(),
		started: make(chan string, len(names)),
		release: make(map[string]chan struct{}),
		reject:  make(map[string]bool),
		ctxs:    make(map[string]context.Context),
	}
	for _, n := range names {
		g.release[n] = make(chan struct{})
	}
	return g
}

func (g *gatedSessionService) Login(ctx context.Context, creds auth.LoginCredentials) (*auth.LoginResult, error) {
	g.mu.Lock()
	g.ctxs[creds.Username] = ctx
	g.mu.Unlock()

	g.started <- creds.Username
	<-g.release[creds.Username]

	if g.reject[creds.Username] {
		return nil, auth.ErrInvalidCredentials
	}

	tokens := auth.Tokens{Access: "tok-" + creds.Username, Refresh: "ref-" + creds.Username}
	if err := g.store.Save(tokens.Access, tokens.Refresh); err != nil {
		return nil, err
	}
	return &auth.LoginResult{User: auth.User{Username: creds.Username}, Tokens: tokens}, nil
}

func (g *gatedSessionService) ctx(name string) context.Context {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ctxs[name]
}

func (g *gatedSessionService) Register(context.Context, auth.RegisterCredentials) (*auth.User, error) {
	return nil, errors.New("not supported")
}

func (g *gatedSessionService) Logout() { _ = g.store.Clear() }

func (g *gatedSessionService) CurrentUser(context.Context) *auth.User { return nil }

func (g *gatedSessionService) HasStoredSession() bool { return g.store.HasToken() }

func (g *gatedSessionService) StoredTokens() *auth.Tokens {
	access, ok := g.store.AccessToken()
	if !ok {
		return nil
	}
	refresh, _ := g.store.RefreshToken()
	return &auth.Tokens{Access: access, Refresh: refresh}
}

func (g *gatedSessionService) Restore(tokens *auth.Tokens) error {
	if tokens == nil {
		return g.store.Clear()
	}
	return g.store.Save(tokens.Access, tokens.Refresh)
}

func TestSession_SupersededLoginIsDiscarded(t *testing.T) {
	svc := newGatedSessionService("old", "new")
	s := NewSession(svc, zerolog.Nop())
	require.NoError(t, s.Restore(context.Background()))

	oldErr := make(chan error, 1)
	go func() {
		_, err := s.Login(context.Background(), auth.LoginCredentials{Username: "old", Password: "x"})
		oldErr <- err
	}()
	require.Equal(t, "old", <-svc.started)

	newErr := make(chan error, 1)
	go func() {
		_, err := s.Login(context.Background(), auth.LoginCredentials{Username: "new", Password: "x"})
		newErr <- err
	}()
	require.Equal(t, "new", <-svc.started)

	assert.ErrorIs(t, svc.ctx("old").Err(), context.Canceled)
	assert.NoError(t, svc.ctx("new").Err())

	close(svc.release["new"])
	require.NoError(t, <-newErr)

	close(svc.release["old"])
	assert.ErrorIs(t, <-oldErr, ErrSuperseded)

	st := s.State()
	assert.Equal(t, SessionAuthenticated, st.Phase())
	assert.Equal(t, "new", st.User().Username)

	token, ok := svc.store.AccessToken()
	require.True(t, ok)
	assert.Equal(t, "tok-new", token, "store must match the applied session")
}

func TestSession_LogoutDuringLogin(t *testing.T) {
	svc := newGatedSessionService("alice")
	s := NewSession(svc, zerolog.Nop())
	require.NoError(t, s.Restore(context.Background()))

	loginErr := make(chan error, 1)
	go func() {
		_, err := s.Login(context.Background(), auth.LoginCredentials{Username: "alice", Password: "x"})
		loginErr <- err
	}()
	require.Equal(t, "alice", <-svc.started)

	s.Logout()
	assert.ErrorIs(t, svc.ctx("alice").Err(), context.Canceled)

	close(svc.release["alice"])
	assert.ErrorIs(t, <-loginErr, ErrSuperseded)

	assert.Equal(t, SessionUnauthenticated, s.State().Phase())
	assert.False(t, svc.store.HasToken())
}

func TestSession_SupersededRejectedLoginKeepsStoredToken(t *testing.T) {
	svc := newGatedSessionService("mallory")
	svc.reject["mallory"] = true
	require.NoError(t, svc.store.Save("expired", "ref"))

	s := NewSession(svc, zerolog.Nop())
	require.NoError(t, s.Restore(context.Background()))
	require.Equal(t, SessionUnauthenticated, s.State().Phase())

	loginErr := make(chan error, 1)
	go func() {
		_, err := s.Login(context.Background(), auth.LoginCredentials{Username: "mallory", Password: "x"})
		loginErr <- err
	}()
	require.Equal(t, "mallory", <-svc.started)

	require.NoError(t, s.Restore(context.Background()))

	close(svc.release["mallory"])
	assert.ErrorIs(t, <-loginErr, ErrSuperseded)

	assert.Equal(t, SessionUnauthenticated, s.State().Phase())
	token, ok := svc.store.AccessToken()
	require.True(t, ok)
	assert.Equal(t, "expired", token)
}
