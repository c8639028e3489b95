package credentials

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS credentials (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLiteStore keeps the tokens in a key/value table of a SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and ensures the schema exists
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("credentials database path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	db, err := sql.Open("sqlite", cleanPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create credentials table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store
func (s *SQLiteStore) Save(accessToken, refreshToken string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin credentials tx: %w", err)
	}
	defer tx.Rollback()

	const upsert = `INSERT INTO credentials (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	for key, value := range map[string]string{
		KeyAccessToken:  accessToken,
		KeyRefreshToken: refreshToken,
	} {
		if _, err := tx.Exec(upsert, key, value); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit credentials: %w", err)
	}
	return nil
}

// Clear implements Store
func (s *SQLiteStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM credentials WHERE key IN (?, ?)`, KeyAccessToken, KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

// AccessToken implements Store
func (s *SQLiteStore) AccessToken() (string, bool) {
	return s.get(KeyAccessToken)
}

// RefreshToken implements Store
func (s *SQLiteStore) RefreshToken() (string, bool) {
	return s.get(KeyRefreshToken)
}

// HasToken implements Store
func (s *SQLiteStore) HasToken() bool {
	_, ok := s.AccessToken()
	return ok
}

// Close implements Store
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM credentials WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}
