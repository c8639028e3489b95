package credentials

import (
	"errors"
	"fmt"
)

// Keys under which the session tokens are persisted
const (
	KeyAccessToken  = "token"
	KeyRefreshToken = "refreshToken"
)

// Backend names accepted by Open
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// ErrNoToken is returned when an operation needs a stored token and none exists
var ErrNoToken = errors.New("no stored session token")

// Store persists the session token pair across process restarts.
// Implementations perform no expiry tracking or validation: a stale token is
// only discovered when the server rejects it.
type Store interface {
	// Save replaces both tokens
	Save(accessToken, refreshToken string) error

	// Clear removes both tokens. Clearing an empty store is not an error.
	Clear() error

	// AccessToken returns the stored access token, if any
	AccessToken() (string, bool)

	// RefreshToken returns the stored refresh token, if any
	RefreshToken() (string, bool)

	// HasToken reports whether an access token is stored
	HasToken() bool

	// Close releases any underlying handle
	Close() error
}

// Open creates the store for the given backend. path is ignored by the
// memory backend.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return OpenFile(path)
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown credentials backend: %s", backend)
	}
}
