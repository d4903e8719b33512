package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", "file:clientstore?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewStore(db)
	require.NoError(t, err)
	return s
}

func TestGetMissingKeyReturnsNil(t *testing.T) {
	s := setupStore(t)
	v, err := s.Get(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestTokenLifecycle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.SetToken(ctx, "jwt-abc"))
	tok, err = s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", tok)

	// Overwrite, then clear.
	require.NoError(t, s.SetToken(ctx, "jwt-def"))
	tok, _ = s.Token(ctx)
	assert.Equal(t, "jwt-def", tok)

	require.NoError(t, s.ClearToken(ctx))
	tok, err = s.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestThemeSnapshotRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	current, err := s.CurrentTheme(ctx)
	require.NoError(t, err)
	assert.Empty(t, current)

	require.NoError(t, s.SetCurrentTheme(ctx, "dark-default"))
	require.NoError(t, s.SetEnabledThemes(ctx, []string{"light-default", "dark-default", "high-contrast"}))

	current, err = s.CurrentTheme(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dark-default", current)

	enabled, err := s.EnabledThemes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"light-default", "dark-default", "high-contrast"}, enabled)
}

func TestEnabledPluginsRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	ids, err := s.EnabledPlugins(ctx)
	require.NoError(t, err)
	assert.Nil(t, ids)

	require.NoError(t, s.SetEnabledPlugins(ctx, []string{"workout-tracker"}))
	ids, err = s.EnabledPlugins(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"workout-tracker"}, ids)

	// nil persists as an empty list, not a missing key.
	require.NoError(t, s.SetEnabledPlugins(ctx, nil))
	ids, err = s.EnabledPlugins(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{}, ids)
}
