package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/s0up4200/reelcritic/api"
	"github.com/s0up4200/reelcritic/credentials"
)

// Endpoints used by the session service
const (
	PathToken    = "/token/"
	PathRegister = "/movies/auth/register/"
	PathProfile  = "/movies/auth/profile/"
)

var (
	// ErrInvalidCredentials indicates the server refused the login
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRegistration indicates the server refused the registration
	ErrRegistration = errors.New("registration failed")
)

// Requester performs a JSON request against the API
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// Service runs the login/register/logout/profile operations and owns the
// credential store writes.
type Service struct {
	api    Requester
	store  credentials.Store
	logger zerolog.Logger
}

// NewService creates a new session service
func NewService(requester Requester, store credentials.Store, logger zerolog.Logger) *Service {
	return &Service{
		api:    requester,
		store:  store,
		logger: logger,
	}
}

// Login posts the credentials and, on success, persists the returned tokens.
// An HTTP failure is reported as ErrInvalidCredentials; network failures are
// returned as they are.
func (s *Service) Login(ctx context.Context, creds LoginCredentials) (*LoginResult, error) {
	var resp loginResponse
	if err := s.api.Do(ctx, http.MethodPost, PathToken, creds, &resp); err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, err
	}

	if resp.Access == "" {
		return nil, fmt.Errorf("%w: token endpoint returned no access token", ErrInvalidCredentials)
	}

	if err := s.store.Save(resp.Access, resp.Refresh); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	result := &LoginResult{
		Tokens: Tokens{Access: resp.Access, Refresh: resp.Refresh},
	}

	// Plain simplejwt deployments return only the pair; fall back to the profile.
	if resp.User != nil {
		result.User = *resp.User
	} else if user := s.CurrentUser(ctx); user != nil {
		result.User = *user
	} else {
		result.User = User{Username: creds.Username}
	}

	s.logger.Debug().Str("username", result.User.Username).Msg("Logged in")
	return result, nil
}

// Register creates an account. It does not establish a session.
func (s *Service) Register(ctx context.Context, creds RegisterCredentials) (*User, error) {
	var user User
	if err := s.api.Do(ctx, http.MethodPost, PathRegister, creds, &user); err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %w", ErrRegistration, err)
		}
		return nil, err
	}

	s.logger.Debug().Str("username", user.Username).Msg("Registered account")
	return &user, nil
}

// Logout forgets the stored tokens. It makes no network call and never fails;
// a store error is only logged.
func (s *Service) Logout() {
	if err := s.store.Clear(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to clear stored credentials")
	}
}

// CurrentUser fetches the profile for the stored token. Any failure yields nil
// so that "no session" and "profile unavailable" look the same at startup.
func (s *Service) CurrentUser(ctx context.Context) *User {
	var user User
	if err := s.api.Do(ctx, http.MethodGet, PathProfile, nil, &user); err != nil {
		s.logger.Debug().Err(err).Msg("Error fetching user profile")
		return nil
	}
	return &user
}

// HasStoredSession reports whether a token is persisted
func (s *Service) HasStoredSession() bool {
	return s.store.HasToken()
}

// StoredTokens returns the persisted token pair, or nil if none is stored
func (s *Service) StoredTokens() *Tokens {
	access, ok := s.store.AccessToken()
	if !ok {
		return nil
	}
	refresh, _ := s.store.RefreshToken()
	return &Tokens{Access: access, Refresh: refresh}
}

// Restore makes the store hold exactly tokens; nil clears it
func (s *Service) Restore(tokens *Tokens) error {
	if tokens == nil {
		return s.store.Clear()
	}
	return s.store.Save(tokens.Access, tokens.Refresh)
}

// SessionClaims decodes the stored access token without verifying it
func (s *Service) SessionClaims() (*Claims, error) {
	token, ok := s.store.AccessToken()
	if !ok {
		return nil, credentials.ErrNoToken
	}
	return ParseClaims(token)
}

// ParseClaims decodes a JWT payload without verifying its signature
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to decode access token: %w", err)
	}
	return claims, nil
}
