package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps the tokens in a small JSON document on disk
type FileStore struct {
	path   string
	mu     sync.RWMutex
	values map[string]string
}

// OpenFile loads (or lazily creates) the credentials file at path
func OpenFile(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("credentials file path is required")
	}

	s := &FileStore{
		path:   filepath.Clean(path),
		values: make(map[string]string),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.values); err != nil {
			return nil, fmt.Errorf("failed to parse credentials file %s: %w", s.path, err)
		}
	}

	return s, nil
}

// Path returns the location of the credentials file
func (s *FileStore) Path() string {
	return s.path
}

// Save implements Store
func (s *FileStore) Save(accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[KeyAccessToken] = accessToken
	s.values[KeyRefreshToken] = refreshToken
	return s.persist()
}

// Clear implements Store
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, hadAccess := s.values[KeyAccessToken]
	_, hadRefresh := s.values[KeyRefreshToken]
	if !hadAccess && !hadRefresh {
		return nil
	}

	delete(s.values, KeyAccessToken)
	delete(s.values, KeyRefreshToken)
	return s.persist()
}

// AccessToken implements Store
func (s *FileStore) AccessToken() (string, bool) {
	return s.get(KeyAccessToken)
}

// RefreshToken implements Store
func (s *FileStore) RefreshToken() (string, bool) {
	return s.get(KeyRefreshToken)
}

// HasToken implements Store
func (s *FileStore) HasToken() bool {
	_, ok := s.AccessToken()
	return ok
}

// Close implements Store
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// persist writes the current values atomically. Callers hold mu.
func (s *FileStore) persist() error {
	if len(s.values) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove credentials file: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}
