package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodhub/productivity-hub/internal/model"
	"github.com/prodhub/productivity-hub/internal/repository"
	"github.com/prodhub/productivity-hub/internal/theme"
)

// ----- fakes -----

type fakePrefStore struct {
	prefs map[string]model.Preferences
}

func newFakePrefStore(userID string) *fakePrefStore {
	return &fakePrefStore{prefs: map[string]model.Preferences{
		userID: {
			UserID:        userID,
			CurrentTheme:  theme.DefaultThemeID,
			EnabledThemes: theme.CoreIDs(),
			UpdatedAt:     time.Now().UTC(),
		},
	}}
}

func (f *fakePrefStore) Get(_ context.Context, userID string) (model.Preferences, error) {
	p, ok := f.prefs[userID]
	if !ok {
		return model.Preferences{}, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakePrefStore) SetCurrentTheme(_ context.Context, userID, themeID string) (model.Preferences, error) {
	p, ok := f.prefs[userID]
	if !ok {
		return model.Preferences{}, repository.ErrNotFound
	}
	if !theme.IsEnabled(themeID, p.EnabledThemes) {
		return model.Preferences{}, repository.ErrThemeNotEnabled
	}
	p.CurrentTheme = themeID
	p.UpdatedAt = time.Now().UTC()
	f.prefs[userID] = p
	return p, nil
}

func (f *fakePrefStore) EnableTheme(_ context.Context, userID, themeID string) (model.Preferences, error) {
	p, ok := f.prefs[userID]
	if !ok {
		return model.Preferences{}, repository.ErrNotFound
	}
	if theme.IsEnabled(themeID, p.EnabledThemes) {
		return model.Preferences{}, repository.ErrThemeAlreadyEnabled
	}
	p.EnabledThemes = append(p.EnabledThemes, themeID)
	p.UpdatedAt = time.Now().UTC()
	f.prefs[userID] = p
	return p, nil
}

func (f *fakePrefStore) DisableTheme(_ context.Context, userID, themeID string) (model.Preferences, error) {
	p, ok := f.prefs[userID]
	if !ok {
		return model.Preferences{}, repository.ErrNotFound
	}
	if theme.IsCore(themeID) {
		return model.Preferences{}, repository.ErrCoreTheme
	}
	if !theme.IsEnabled(themeID, p.EnabledThemes) {
		return model.Preferences{}, repository.ErrThemeNotEnabled
	}
	remaining := make([]string, 0, len(p.EnabledThemes))
	for _, id := range p.EnabledThemes {
		if id != themeID {
			remaining = append(remaining, id)
		}
	}
	p.EnabledThemes = remaining
	if p.CurrentTheme == themeID {
		p.CurrentTheme = theme.FirstEnabled(remaining)
	}
	p.UpdatedAt = time.Now().UTC()
	f.prefs[userID] = p
	return p, nil
}

type fakePluginStore struct {
	plugins map[string][]model.EnabledPlugin // by user id
}

func newFakePluginStore() *fakePluginStore {
	return &fakePluginStore{plugins: map[string][]model.EnabledPlugin{}}
}

func (f *fakePluginStore) ListEnabled(_ context.Context, userID string) ([]model.EnabledPlugin, error) {
	return f.plugins[userID], nil
}

func (f *fakePluginStore) Enable(_ context.Context, userID, pluginID string, settings json.RawMessage) (model.EnabledPlugin, error) {
	for _, p := range f.plugins[userID] {
		if p.PluginID == pluginID {
			return model.EnabledPlugin{}, repository.ErrPluginAlreadyEnabled
		}
	}
	if len(settings) == 0 {
		settings = json.RawMessage(`{}`)
	}
	p := model.EnabledPlugin{UserID: userID, PluginID: pluginID, Settings: settings, EnabledAt: time.Now().UTC()}
	f.plugins[userID] = append(f.plugins[userID], p)
	return p, nil
}

func (f *fakePluginStore) Disable(_ context.Context, userID, pluginID string) error {
	ps := f.plugins[userID]
	for i, p := range ps {
		if p.PluginID == pluginID {
			f.plugins[userID] = append(ps[:i], ps[i+1:]...)
			return nil
		}
	}
	return repository.ErrPluginNotEnabled
}

func (f *fakePluginStore) UpdateSettings(_ context.Context, userID, pluginID string, settings json.RawMessage) (model.EnabledPlugin, error) {
	ps := f.plugins[userID]
	for i, p := range ps {
		if p.PluginID == pluginID {
			ps[i].Settings = settings
			return ps[i], nil
		}
	}
	return model.EnabledPlugin{}, repository.ErrNotFound
}

type fakeCache struct {
	invalidated []string
}

func (f *fakeCache) Invalidate(_ context.Context, userID string) {
	f.invalidated = append(f.invalidated, userID)
}

// ----- helpers -----

const prefUserID = "user-1"

func newPrefEnv() (*PreferenceHandler, *fakePrefStore, *fakePluginStore, *fakeCache) {
	prefs := newFakePrefStore(prefUserID)
	plugins := newFakePluginStore()
	cache := &fakeCache{}
	return NewPreferenceHandler(prefs, plugins, cache), prefs, plugins, cache
}

// doAuthed runs a handler with the authenticated user already injected,
// the way JWTAuth does it.
func doAuthed(t *testing.T, h echo.HandlerFunc, method, target, body string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.Set("user", model.User{ID: prefUserID, Email: "user@example.com", EmailVerified: true})
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	require.NoError(t, h(c))
	return rec
}

// ----- get -----

func TestGetPreferences(t *testing.T) {
	h, _, plugins, _ := newPrefEnv()
	_, err := plugins.Enable(context.Background(), prefUserID, "workout-tracker", json.RawMessage(`{"unit":"kg"}`))
	require.NoError(t, err)

	rec := doAuthed(t, h.GetPreferences, http.MethodGet, "/api/user/preferences", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	themes := body["themes"].(map[string]any)
	assert.Equal(t, theme.DefaultThemeID, themes["current"])
	assert.ElementsMatch(t, []any{"light-default", "dark-default"}, themes["enabled"].([]any))

	enabled := body["plugins"].(map[string]any)["enabled"].([]any)
	require.Len(t, enabled, 1)
	assert.Equal(t, "workout-tracker", enabled[0].(map[string]any)["id"])
	assert.NotEmpty(t, body["lastUpdated"])
}

func TestGetPreferencesMissingRow(t *testing.T) {
	h, prefs, _, _ := newPrefEnv()
	delete(prefs.prefs, prefUserID)

	rec := doAuthed(t, h.GetPreferences, http.MethodGet, "/api/user/preferences", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User preferences not found", decodeBody(t, rec)["error"])
}

// ----- current theme -----

func TestSetCurrentTheme(t *testing.T) {
	h, prefs, _, cache := newPrefEnv()

	rec := doAuthed(t, h.SetCurrentTheme, http.MethodPut, "/api/user/current-theme",
		`{"themeId":"dark-default"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Current theme updated successfully", body["message"])
	assert.Equal(t, "dark-default", body["currentTheme"])
	assert.Equal(t, "dark-default", prefs.prefs[prefUserID].CurrentTheme)
	assert.Equal(t, []string{prefUserID}, cache.invalidated)
}

func TestSetCurrentThemeNotEnabled(t *testing.T) {
	h, prefs, _, cache := newPrefEnv()

	rec := doAuthed(t, h.SetCurrentTheme, http.MethodPut, "/api/user/current-theme",
		`{"themeId":"high-contrast"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot set theme that is not enabled. Enable the theme first.", decodeBody(t, rec)["error"])

	// The stored current theme is untouched and nothing was invalidated.
	assert.Equal(t, theme.DefaultThemeID, prefs.prefs[prefUserID].CurrentTheme)
	assert.Empty(t, cache.invalidated)
}

func TestSetCurrentThemeMissingID(t *testing.T) {
	h, _, _, _ := newPrefEnv()
	rec := doAuthed(t, h.SetCurrentTheme, http.MethodPut, "/api/user/current-theme", `{"themeId":"  "}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ----- enable/disable themes -----

func TestEnableTheme(t *testing.T) {
	h, prefs, _, _ := newPrefEnv()

	rec := doAuthed(t, h.EnableTheme, http.MethodPost, "/api/user/enabled-themes",
		`{"themeId":"high-contrast"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Theme enabled successfully", decodeBody(t, rec)["message"])
	assert.True(t, theme.IsEnabled("high-contrast", prefs.prefs[prefUserID].EnabledThemes))
}

func TestEnableThemeAlreadyEnabled(t *testing.T) {
	h, _, _, _ := newPrefEnv()

	rec := doAuthed(t, h.EnableTheme, http.MethodPost, "/api/user/enabled-themes",
		`{"themeId":"dark-default"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Theme is already enabled", decodeBody(t, rec)["error"])
}

func TestDisableThemeReassignsCurrent(t *testing.T) {
	h, prefs, _, _ := newPrefEnv()

	rec := doAuthed(t, h.EnableTheme, http.MethodPost, "/api/user/enabled-themes",
		`{"themeId":"grayscale-default"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doAuthed(t, h.SetCurrentTheme, http.MethodPut, "/api/user/current-theme",
		`{"themeId":"grayscale-default"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doAuthed(t, h.DisableTheme, http.MethodDelete, "/api/user/enabled-themes/grayscale-default",
		"", map[string]string{"themeId": "grayscale-default"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Theme disabled successfully", body["message"])
	// Reassignment follows canonical registry order, not insertion order.
	assert.Equal(t, theme.LightDefault, body["currentTheme"])

	p := prefs.prefs[prefUserID]
	assert.False(t, theme.IsEnabled("grayscale-default", p.EnabledThemes))
	assert.True(t, theme.IsEnabled(p.CurrentTheme, p.EnabledThemes))
}

func TestDisableCoreThemeRejectedBeforeStore(t *testing.T) {
	h, prefs, _, cache := newPrefEnv()

	rec := doAuthed(t, h.DisableTheme, http.MethodDelete, "/api/user/enabled-themes/light-default",
		"", map[string]string{"themeId": "light-default"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Core themes cannot be disabled", decodeBody(t, rec)["error"])

	assert.ElementsMatch(t, theme.CoreIDs(), prefs.prefs[prefUserID].EnabledThemes)
	assert.Empty(t, cache.invalidated)
}

// coreBackstopStore simulates the repository's core-theme backstop
// firing, which can only happen when the handler guard is bypassed.
type coreBackstopStore struct{ *fakePrefStore }

func (coreBackstopStore) DisableTheme(context.Context, string, string) (model.Preferences, error) {
	return model.Preferences{}, repository.ErrCoreTheme
}

func TestDisableThemeStoreBackstopReportsCoreTheme(t *testing.T) {
	h, prefs, _, _ := newPrefEnv()
	h.Prefs = coreBackstopStore{prefs}

	// A non-core id passes the handler guard; the store still refuses.
	rec := doAuthed(t, h.DisableTheme, http.MethodDelete, "/api/user/enabled-themes/high-contrast",
		"", map[string]string{"themeId": "high-contrast"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Core themes cannot be disabled", decodeBody(t, rec)["error"])
}

func TestDisableThemeNotEnabled(t *testing.T) {
	h, _, _, _ := newPrefEnv()

	rec := doAuthed(t, h.DisableTheme, http.MethodDelete, "/api/user/enabled-themes/high-contrast",
		"", map[string]string{"themeId": "high-contrast"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Theme is not enabled", decodeBody(t, rec)["error"])
}

// ----- plugins -----

func TestEnablePlugin(t *testing.T) {
	h, _, plugins, cache := newPrefEnv()

	rec := doAuthed(t, h.EnablePlugin, http.MethodPost, "/api/user/enabled-plugins",
		`{"pluginId":"workout-tracker","settings":{"unit":"kg"}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Plugin enabled successfully", body["message"])
	assert.Equal(t, "workout-tracker", body["plugin"].(map[string]any)["id"])
	require.Len(t, plugins.plugins[prefUserID], 1)
	assert.Equal(t, []string{prefUserID}, cache.invalidated)
}

func TestEnablePluginTwice(t *testing.T) {
	h, _, _, _ := newPrefEnv()

	first := doAuthed(t, h.EnablePlugin, http.MethodPost, "/api/user/enabled-plugins",
		`{"pluginId":"workout-tracker"}`, nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := doAuthed(t, h.EnablePlugin, http.MethodPost, "/api/user/enabled-plugins",
		`{"pluginId":"workout-tracker"}`, nil)
	require.Equal(t, http.StatusBadRequest, second.Code)
	assert.Equal(t, "Plugin is already enabled", decodeBody(t, second)["error"])
}

func TestDisablePlugin(t *testing.T) {
	h, _, plugins, _ := newPrefEnv()
	_, err := plugins.Enable(context.Background(), prefUserID, "nutrition-logger", nil)
	require.NoError(t, err)

	rec := doAuthed(t, h.DisablePlugin, http.MethodDelete, "/api/user/enabled-plugins/nutrition-logger",
		"", map[string]string{"pluginId": "nutrition-logger"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Plugin disabled successfully", decodeBody(t, rec)["message"])
	assert.Empty(t, plugins.plugins[prefUserID])
}

func TestDisablePluginNotEnabled(t *testing.T) {
	h, _, _, _ := newPrefEnv()

	rec := doAuthed(t, h.DisablePlugin, http.MethodDelete, "/api/user/enabled-plugins/nutrition-logger",
		"", map[string]string{"pluginId": "nutrition-logger"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Plugin is not enabled", decodeBody(t, rec)["error"])
}

func TestUpdatePluginSettings(t *testing.T) {
	h, _, plugins, _ := newPrefEnv()
	_, err := plugins.Enable(context.Background(), prefUserID, "progress-photos", nil)
	require.NoError(t, err)

	rec := doAuthed(t, h.UpdatePluginSettings, http.MethodPut, "/api/user/enabled-plugins/progress-photos/settings",
		`{"settings":{"interval":"monthly"}}`, map[string]string{"pluginId": "progress-photos"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Plugin settings updated successfully", decodeBody(t, rec)["message"])
	assert.JSONEq(t, `{"interval":"monthly"}`, string(plugins.plugins[prefUserID][0].Settings))
}

func TestUpdatePluginSettingsNotEnabled(t *testing.T) {
	h, _, _, _ := newPrefEnv()

	rec := doAuthed(t, h.UpdatePluginSettings, http.MethodPut, "/api/user/enabled-plugins/progress-photos/settings",
		`{"settings":{"interval":"monthly"}}`, map[string]string{"pluginId": "progress-photos"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Plugin not found or not enabled", decodeBody(t, rec)["error"])
}
