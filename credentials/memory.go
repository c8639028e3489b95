package credentials

import "sync"

// MemoryStore is a non-durable Store, used for ephemeral sessions and tests
type MemoryStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements Store
func (s *MemoryStore) Save(accessToken, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access, s.refresh = accessToken, refreshToken
	return nil
}

// Clear implements Store
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access, s.refresh = "", ""
	return nil
}

// AccessToken implements Store
func (s *MemoryStore) AccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, s.access != ""
}

// RefreshToken implements Store
func (s *MemoryStore) RefreshToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh, s.refresh != ""
}

// HasToken implements Store
func (s *MemoryStore) HasToken() bool {
	_, ok := s.AccessToken()
	return ok
}

// Close implements Store
func (s *MemoryStore) Close() error {
	return nil
}
