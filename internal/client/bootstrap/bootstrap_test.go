package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodhub/productivity-hub/internal/client/api"
	"github.com/prodhub/productivity-hub/internal/client/state"
	enginesync "github.com/prodhub/productivity-hub/internal/client/sync"
	"github.com/prodhub/productivity-hub/internal/theme"
)

type fakeLocal struct {
	token   string
	current string
	themes  []string
	plugins []string
}

func (f *fakeLocal) Token(context.Context) (string, error)        { return f.token, nil }
func (f *fakeLocal) CurrentTheme(context.Context) (string, error) { return f.current, nil }
func (f *fakeLocal) EnabledThemes(context.Context) ([]string, error) {
	return f.themes, nil
}
func (f *fakeLocal) EnabledPlugins(context.Context) ([]string, error) {
	return f.plugins, nil
}
func (f *fakeLocal) SetCurrentTheme(_ context.Context, id string) error {
	f.current = id
	return nil
}
func (f *fakeLocal) SetEnabledThemes(_ context.Context, ids []string) error {
	f.themes = ids
	return nil
}
func (f *fakeLocal) SetEnabledPlugins(_ context.Context, ids []string) error {
	f.plugins = ids
	return nil
}

type fakeBackend struct {
	profileCalls int
	prefsCalls   int
	profileErr   error
	prefsErr     error
	prefs        api.Preferences
}

func (f *fakeBackend) Profile(context.Context) (api.User, error) {
	f.profileCalls++
	if f.profileErr != nil {
		return api.User{}, f.profileErr
	}
	return api.User{ID: "u1", Email: "u1@example.com", EmailVerified: true}, nil
}

func (f *fakeBackend) GetPreferences(context.Context) (api.Preferences, error) {
	f.prefsCalls++
	return f.prefs, f.prefsErr
}

func (f *fakeBackend) SetCurrentTheme(context.Context, string) (api.ThemeUpdate, error) {
	return api.ThemeUpdate{}, nil
}
func (f *fakeBackend) EnableTheme(context.Context, string) (api.ThemeUpdate, error) {
	return api.ThemeUpdate{}, nil
}
func (f *fakeBackend) DisableTheme(context.Context, string) (api.ThemeUpdate, error) {
	return api.ThemeUpdate{}, nil
}
func (f *fakeBackend) EnablePlugin(context.Context, string, json.RawMessage) (api.PluginUpdate, error) {
	return api.PluginUpdate{}, nil
}
func (f *fakeBackend) DisablePlugin(context.Context, string) error { return nil }
func (f *fakeBackend) UpdatePluginSettings(context.Context, string, json.RawMessage) (api.PluginUpdate, error) {
	return api.PluginUpdate{}, nil
}

func newEnv(backend *fakeBackend, local *fakeLocal) (*Bootstrapper, *enginesync.Engine) {
	engine := enginesync.NewEngine(backend, local, state.New())
	return New(engine), engine
}

func TestRunWithoutTokenStopsAfterLocalStage(t *testing.T) {
	backend := &fakeBackend{}
	b, engine := newEnv(backend, &fakeLocal{})

	res := b.Run(context.Background())

	assert.False(t, res.Authenticated)
	assert.False(t, res.ServerSynced)
	assert.Equal(t, 0, backend.profileCalls)
	assert.Equal(t, 0, backend.prefsCalls)

	// Stage 1 still produced a usable view.
	snap := engine.State.Snapshot()
	assert.Equal(t, theme.DefaultThemeID, snap.CurrentTheme)
	assert.Equal(t, state.SourceDefaults, snap.Source)
}

func TestRunFullSequence(t *testing.T) {
	backend := &fakeBackend{}
	backend.prefs.Themes.Current = theme.DarkDefault
	backend.prefs.Themes.Enabled = theme.CoreIDs()
	b, engine := newEnv(backend, &fakeLocal{token: "stored"})

	res := b.Run(context.Background())

	assert.True(t, res.Authenticated)
	assert.True(t, res.ServerSynced)

	snap := engine.State.Snapshot()
	assert.Equal(t, theme.DarkDefault, snap.CurrentTheme)
	assert.Equal(t, state.SourceServer, snap.Source)
	u, ok := engine.State.User()
	require.True(t, ok)
	assert.Equal(t, "u1", u.ID)
}

func TestRunSwallowsRejectedToken(t *testing.T) {
	backend := &fakeBackend{profileErr: &api.APIError{Status: http.StatusUnauthorized, Message: "Invalid token"}}
	b, _ := newEnv(backend, &fakeLocal{token: "stale"})

	res := b.Run(context.Background())

	assert.False(t, res.Authenticated)
	assert.Equal(t, 0, backend.prefsCalls)
}

func TestRunSwallowsServerPreferenceFailure(t *testing.T) {
	backend := &fakeBackend{prefsErr: &api.APIError{Status: http.StatusInternalServerError, Message: "Internal server error"}}
	local := &fakeLocal{token: "stored", current: theme.DarkDefault, themes: theme.CoreIDs()}
	b, engine := newEnv(backend, local)

	res := b.Run(context.Background())

	assert.True(t, res.Authenticated)
	assert.False(t, res.ServerSynced)

	// The stage 1 snapshot stands in for the server.
	snap := engine.State.Snapshot()
	assert.Equal(t, theme.DarkDefault, snap.CurrentTheme)
	assert.Equal(t, state.SourceLocal, snap.Source)
}

func TestRunCompletesExactlyOnce(t *testing.T) {
	backend := &fakeBackend{}
	backend.prefs.Themes.Current = theme.DefaultThemeID
	backend.prefs.Themes.Enabled = theme.CoreIDs()
	b, _ := newEnv(backend, &fakeLocal{token: "stored"})

	first := b.Run(context.Background())
	second := b.Run(context.Background())

	assert.Equal(t, first, second)
	assert.Equal(t, 1, backend.profileCalls)
	assert.Equal(t, 1, backend.prefsCalls)
}
