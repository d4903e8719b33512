// Package storage persists the client's session token and last known
// preference snapshot in a local sqlite database, so the app can start
// offline with whatever it saw last.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Fixed keys of the local key-value table.
const (
	KeyToken          = "jwt_token"
	KeyCurrentTheme   = "theme_preference"
	KeyEnabledThemes  = "enabled_themes"
	KeyEnabledPlugins = "enabled_plugins"
)

// Store is a small key-value layer over sqlite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the client database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open client db: %w", err)
	}
	return NewStore(db)
}

// NewStore wraps an existing connection. Used directly by tests with an
// in-memory database.
func NewStore(db *sql.DB) (*Store, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Get returns the stored value for key, or nil when the key is absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get kv[%s]: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set kv[%s]: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete kv[%s]: %w", key, err)
	}
	return nil
}

// ----- typed accessors -----

// Token returns the stored session token, or "" when none is stored.
func (s *Store) Token(ctx context.Context) (string, error) {
	v, err := s.Get(ctx, KeyToken)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *Store) SetToken(ctx context.Context, token string) error {
	return s.Set(ctx, KeyToken, []byte(token))
}

// ClearToken drops the stored session token. Called by the API client on
// any 401 so a dead token is never retried.
func (s *Store) ClearToken(ctx context.Context) error {
	return s.Delete(ctx, KeyToken)
}

func (s *Store) CurrentTheme(ctx context.Context) (string, error) {
	v, err := s.Get(ctx, KeyCurrentTheme)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *Store) SetCurrentTheme(ctx context.Context, themeID string) error {
	return s.Set(ctx, KeyCurrentTheme, []byte(themeID))
}

func (s *Store) EnabledThemes(ctx context.Context) ([]string, error) {
	return s.getList(ctx, KeyEnabledThemes)
}

func (s *Store) SetEnabledThemes(ctx context.Context, ids []string) error {
	return s.setList(ctx, KeyEnabledThemes, ids)
}

func (s *Store) EnabledPlugins(ctx context.Context) ([]string, error) {
	return s.getList(ctx, KeyEnabledPlugins)
}

func (s *Store) SetEnabledPlugins(ctx context.Context, ids []string) error {
	return s.setList(ctx, KeyEnabledPlugins, ids)
}

func (s *Store) getList(ctx context.Context, key string) ([]string, error) {
	v, err := s.Get(ctx, key)
	if err != nil || v == nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(v, &ids); err != nil {
		return nil, fmt.Errorf("decode kv[%s]: %w", key, err)
	}
	return ids, nil
}

func (s *Store) setList(ctx context.Context, key string, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	v, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode kv[%s]: %w", key, err)
	}
	return s.Set(ctx, key, v)
}
