// Package sync keeps the client state, local storage and the server in
// step. Writes are optimistic: the local view changes first, then the
// server call runs, and the failure handling differs by kind. Theme
// writes are kept locally when the server call fails, so the app stays
// usable offline, and the failure is reported as ErrSyncFailed so the
// UI can tell the user the change has not reached their account yet.
// Plugin writes are rolled back to the pre-call snapshot, because a
// plugin the server never enabled must not look active.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prodhub/productivity-hub/internal/client/api"
	"github.com/prodhub/productivity-hub/internal/client/state"
	"github.com/prodhub/productivity-hub/internal/client/storage"
	"github.com/prodhub/productivity-hub/internal/plugin"
	"github.com/prodhub/productivity-hub/internal/theme"
)

var (
	ErrUnknownTheme     = errors.New("unknown theme")
	ErrThemeNotEnabled  = errors.New("theme is not enabled")
	ErrCoreTheme        = errors.New("core themes cannot be disabled")
	ErrUnknownPlugin    = errors.New("unknown plugin")
	ErrPluginNotEnabled = errors.New("plugin is not enabled")

	// ErrSyncFailed wraps a server error on a write that was kept
	// locally. The change is applied and persisted on this device but
	// has not reached the account; a later load reconciles.
	ErrSyncFailed = errors.New("saved locally, server sync failed")
)

// Backend is the slice of the API client the engine calls.
type Backend interface {
	Profile(ctx context.Context) (api.User, error)
	GetPreferences(ctx context.Context) (api.Preferences, error)
	SetCurrentTheme(ctx context.Context, themeID string) (api.ThemeUpdate, error)
	EnableTheme(ctx context.Context, themeID string) (api.ThemeUpdate, error)
	DisableTheme(ctx context.Context, themeID string) (api.ThemeUpdate, error)
	EnablePlugin(ctx context.Context, pluginID string, settings json.RawMessage) (api.PluginUpdate, error)
	DisablePlugin(ctx context.Context, pluginID string) error
	UpdatePluginSettings(ctx context.Context, pluginID string, settings json.RawMessage) (api.PluginUpdate, error)
}

// LocalStore is the slice of local storage the engine persists to.
type LocalStore interface {
	Token(ctx context.Context) (string, error)
	CurrentTheme(ctx context.Context) (string, error)
	SetCurrentTheme(ctx context.Context, themeID string) error
	EnabledThemes(ctx context.Context) ([]string, error)
	SetEnabledThemes(ctx context.Context, ids []string) error
	EnabledPlugins(ctx context.Context) ([]string, error)
	SetEnabledPlugins(ctx context.Context, ids []string) error
}

// Engine coordinates one client's preference flow.
type Engine struct {
	Backend Backend
	Local   LocalStore
	State   *state.Store

	// SystemScheme reports the device color scheme ("dark" or "light")
	// and decides the first-run theme when nothing is stored. Nil means
	// light.
	SystemScheme func() string

	locks keyedLocks
}

func NewEngine(backend Backend, local LocalStore, st *state.Store) *Engine {
	return &Engine{Backend: backend, Local: local, State: st}
}

// keyedLocks serializes operations per storage key. A second operation
// on the same key waits for the in-flight one, so responses apply in the
// order the calls were made and never clobber each other.
type keyedLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	if k.m == nil {
		k.m = make(map[string]*sync.Mutex)
	}
	l, ok := k.m[key]
	if !ok {
		l = &sync.Mutex{}
		k.m[key] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// ----- optimistic write protocol -----

// failurePolicy decides what happens to the optimistic local change when
// the server call fails.
type failurePolicy int

const (
	// rollbackOnFailure restores the pre-call snapshot. Plugins use it:
	// a plugin the server never confirmed must not look active.
	rollbackOnFailure failurePolicy = iota
	// retainOnFailure keeps the local change, marks the state degraded
	// and reports ErrSyncFailed. Themes use it: losing a visible theme
	// choice over a network blip is worse than drifting until the next
	// load reconciles.
	retainOnFailure
)

// errUnchanged aborts a write that would be a no-op. Reported as
// success, never sent to the server.
var errUnchanged = errors.New("unchanged")

// syncOp is one optimistic write. prepare validates and captures the
// snapshot, apply performs the local mutation, call runs the server
// write (and adopts the server's authoritative result on success),
// revert restores the snapshot. All phases run under the key's lock.
type syncOp struct {
	key    string
	policy failurePolicy

	// benign is a server error message adopted as confirmation instead
	// of failure ("Theme is already enabled" after an optimistic enable
	// just means the server agrees).
	benign string

	prepare func() error
	apply   func()
	revert  func()
	call    func(ctx context.Context) error
}

// execute runs one write through the shared three-phase sequence.
func (e *Engine) execute(ctx context.Context, op syncOp) error {
	unlock := e.locks.lock(op.key)
	defer unlock()

	if err := op.prepare(); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	op.apply()

	err := op.call(ctx)
	if err == nil {
		return nil
	}
	if op.benign != "" && api.HasMessage(err, op.benign) {
		return nil
	}
	if op.policy == rollbackOnFailure {
		op.revert()
		return err
	}
	e.State.MarkDegraded()
	return fmt.Errorf("%w: %w", ErrSyncFailed, err)
}

// ----- loading -----

// LoadLocal populates state from local storage without touching the
// network. With nothing stored the core themes are enabled and the
// current theme follows the device scheme.
func (e *Engine) LoadLocal(ctx context.Context) error {
	current, err := e.Local.CurrentTheme(ctx)
	if err != nil {
		return err
	}
	enabled, err := e.Local.EnabledThemes(ctx)
	if err != nil {
		return err
	}

	src := state.SourceLocal
	if current == "" && len(enabled) == 0 {
		src = state.SourceDefaults
	}
	if len(enabled) == 0 {
		enabled = theme.CoreIDs()
	}
	if current == "" {
		current = e.systemDefault()
	}
	if !theme.IsEnabled(current, enabled) {
		current = theme.FirstEnabled(enabled)
	}
	e.State.SetThemes(current, enabled, src)

	pluginIDs, err := e.Local.EnabledPlugins(ctx)
	if err != nil {
		return err
	}
	ps := make([]api.Plugin, 0, len(pluginIDs))
	for _, id := range pluginIDs {
		ps = append(ps, api.Plugin{ID: id, Settings: json.RawMessage(`{}`)})
	}
	e.State.SetPlugins(ps)
	return nil
}

// LoadPreferences fetches the account's preferences and makes them the
// authoritative view. When the server is unreachable the last local
// snapshot stands in, and with no local snapshot the defaults do.
func (e *Engine) LoadPreferences(ctx context.Context) error {
	prefs, err := e.Backend.GetPreferences(ctx)
	if err != nil {
		if lerr := e.LoadLocal(ctx); lerr != nil {
			log.Printf("sync: local fallback failed: %v", lerr)
		}
		return err
	}

	current, enabled := prefs.Themes.Current, prefs.Themes.Enabled
	if len(enabled) == 0 {
		enabled = theme.CoreIDs()
	}
	if !theme.IsEnabled(current, enabled) {
		current = theme.FirstEnabled(enabled)
	}
	e.State.SetThemes(current, enabled, state.SourceServer)
	e.State.SetPlugins(prefs.Plugins.Enabled)

	e.persistThemes(ctx)
	e.persistPlugins(ctx)
	return nil
}

// CheckSession validates the stored token against the profile endpoint.
// A missing token or a rejected one leaves the client logged out; the
// API client has already dropped a rejected token from storage.
func (e *Engine) CheckSession(ctx context.Context) (bool, error) {
	token, err := e.Local.Token(ctx)
	if err != nil {
		return false, err
	}
	if token == "" {
		e.State.ClearUser()
		return false, nil
	}

	u, err := e.Backend.Profile(ctx)
	if err != nil {
		e.State.ClearUser()
		if api.IsStatus(err, http.StatusUnauthorized) {
			return false, nil
		}
		return false, err
	}
	e.State.SetUser(u)
	return true, nil
}

// ----- themes -----

// SetCurrentTheme switches the active theme. The switch is kept even
// when the server call fails; the caller gets ErrSyncFailed so it can
// tell the user the choice is local-only for now.
func (e *Engine) SetCurrentTheme(ctx context.Context, themeID string) error {
	return e.execute(ctx, syncOp{
		key:    storage.KeyCurrentTheme,
		policy: retainOnFailure,
		prepare: func() error {
			if !theme.Exists(themeID) {
				return ErrUnknownTheme
			}
			if !theme.IsEnabled(themeID, e.State.EnabledThemes()) {
				return ErrThemeNotEnabled
			}
			if e.State.CurrentTheme() == themeID {
				return errUnchanged
			}
			return nil
		},
		apply: func() {
			e.State.SetCurrentTheme(themeID)
			if err := e.Local.SetCurrentTheme(ctx, themeID); err != nil {
				log.Printf("sync: persist current theme failed: %v", err)
			}
		},
		call: func(ctx context.Context) error {
			_, err := e.Backend.SetCurrentTheme(ctx, themeID)
			return err
		},
	})
}

// EnableTheme adds a theme to the enabled set. The theme stays enabled
// locally when the server call fails.
func (e *Engine) EnableTheme(ctx context.Context, themeID string) error {
	var enabled []string
	return e.execute(ctx, syncOp{
		key:    storage.KeyEnabledThemes,
		policy: retainOnFailure,
		benign: "Theme is already enabled",
		prepare: func() error {
			if !theme.Exists(themeID) {
				return ErrUnknownTheme
			}
			enabled = e.State.EnabledThemes()
			if theme.IsEnabled(themeID, enabled) {
				return errUnchanged
			}
			return nil
		},
		apply: func() {
			e.State.SetEnabledThemes(append(enabled, themeID))
			e.persistThemes(ctx)
		},
		call: func(ctx context.Context) error {
			upd, err := e.Backend.EnableTheme(ctx, themeID)
			if err != nil {
				return err
			}
			e.State.SetEnabledThemes(upd.EnabledThemes)
			e.persistThemes(ctx)
			return nil
		},
	})
}

// DisableTheme removes a theme from the enabled set. Core themes are
// rejected before any network or state change. When the active theme is
// disabled the first enabled theme in canonical order takes over. The
// removal is kept locally when the server call fails.
func (e *Engine) DisableTheme(ctx context.Context, themeID string) error {
	// The removal may reassign the current theme, so both keys are
	// held, always in this order.
	unlockCurrent := e.locks.lock(storage.KeyCurrentTheme)
	defer unlockCurrent()

	var remaining []string
	return e.execute(ctx, syncOp{
		key:    storage.KeyEnabledThemes,
		policy: retainOnFailure,
		benign: "Theme is not enabled",
		prepare: func() error {
			if !theme.CanDisable(themeID) {
				return ErrCoreTheme
			}
			enabled := e.State.EnabledThemes()
			if !theme.IsEnabled(themeID, enabled) {
				return ErrThemeNotEnabled
			}
			remaining = make([]string, 0, len(enabled)-1)
			for _, id := range enabled {
				if id != themeID {
					remaining = append(remaining, id)
				}
			}
			return nil
		},
		apply: func() {
			e.State.SetEnabledThemes(remaining)
			if e.State.CurrentTheme() == themeID {
				e.State.SetCurrentTheme(theme.FirstEnabled(remaining))
			}
			e.persistThemes(ctx)
		},
		call: func(ctx context.Context) error {
			upd, err := e.Backend.DisableTheme(ctx, themeID)
			if err != nil {
				return err
			}
			e.State.SetEnabledThemes(upd.EnabledThemes)
			e.State.SetCurrentTheme(upd.CurrentTheme)
			e.persistThemes(ctx)
			return nil
		},
	})
}

// ----- plugins -----

// EnablePlugin turns a plugin on. If the server call fails the local
// view is rolled back to the pre-call snapshot, except when the server
// says the plugin is already enabled, which just confirms the
// optimistic state.
func (e *Engine) EnablePlugin(ctx context.Context, pluginID string, settings json.RawMessage) error {
	var snapshot []api.Plugin
	return e.execute(ctx, syncOp{
		key:    storage.KeyEnabledPlugins,
		policy: rollbackOnFailure,
		benign: "Plugin is already enabled",
		prepare: func() error {
			if !plugin.Known(pluginID) {
				return ErrUnknownPlugin
			}
			snapshot = e.State.Plugins()
			for _, p := range snapshot {
				if p.ID == pluginID {
					return errUnchanged
				}
			}
			return nil
		},
		apply: func() {
			optimistic := api.Plugin{ID: pluginID, Settings: settings, EnabledAt: time.Now().UTC()}
			if len(optimistic.Settings) == 0 {
				optimistic.Settings = json.RawMessage(`{}`)
			}
			e.State.UpsertPlugin(optimistic)
			e.persistPlugins(ctx)
		},
		revert: func() {
			e.State.SetPlugins(snapshot)
			e.persistPlugins(ctx)
		},
		call: func(ctx context.Context) error {
			upd, err := e.Backend.EnablePlugin(ctx, pluginID, settings)
			if err != nil {
				return err
			}
			e.State.UpsertPlugin(upd.Plugin)
			e.persistPlugins(ctx)
			return nil
		},
	})
}

// DisablePlugin turns a plugin off, rolling back on server failure.
func (e *Engine) DisablePlugin(ctx context.Context, pluginID string) error {
	var snapshot []api.Plugin
	return e.execute(ctx, syncOp{
		key:    storage.KeyEnabledPlugins,
		policy: rollbackOnFailure,
		benign: "Plugin is not enabled",
		prepare: func() error {
			snapshot = e.State.Plugins()
			for _, p := range snapshot {
				if p.ID == pluginID {
					return nil
				}
			}
			return ErrPluginNotEnabled
		},
		apply: func() {
			e.State.RemovePlugin(pluginID)
			e.persistPlugins(ctx)
		},
		revert: func() {
			e.State.SetPlugins(snapshot)
			e.persistPlugins(ctx)
		},
		call: func(ctx context.Context) error {
			return e.Backend.DisablePlugin(ctx, pluginID)
		},
	})
}

// UpdatePluginSettings replaces a plugin's settings, rolling back on any
// server failure. A 404 means the server no longer has the plugin
// enabled.
func (e *Engine) UpdatePluginSettings(ctx context.Context, pluginID string, settings json.RawMessage) error {
	var snapshot []api.Plugin
	err := e.execute(ctx, syncOp{
		key:    storage.KeyEnabledPlugins,
		policy: rollbackOnFailure,
		prepare: func() error {
			snapshot = e.State.Plugins()
			for _, p := range snapshot {
				if p.ID == pluginID {
					return nil
				}
			}
			return ErrPluginNotEnabled
		},
		apply: func() {
			for _, p := range snapshot {
				if p.ID == pluginID {
					optimistic := p
					optimistic.Settings = settings
					e.State.UpsertPlugin(optimistic)
					return
				}
			}
		},
		revert: func() {
			e.State.SetPlugins(snapshot)
		},
		call: func(ctx context.Context) error {
			upd, err := e.Backend.UpdatePluginSettings(ctx, pluginID, settings)
			if err != nil {
				return err
			}
			e.State.UpsertPlugin(upd.Plugin)
			return nil
		},
	})
	if err != nil && api.IsStatus(err, http.StatusNotFound) {
		return ErrPluginNotEnabled
	}
	return err
}

// ----- persistence -----

// Local persistence failures degrade offline startup but never fail the
// operation itself.
func (e *Engine) persistThemes(ctx context.Context) {
	if err := e.Local.SetCurrentTheme(ctx, e.State.CurrentTheme()); err != nil {
		log.Printf("sync: persist current theme failed: %v", err)
	}
	if err := e.Local.SetEnabledThemes(ctx, e.State.EnabledThemes()); err != nil {
		log.Printf("sync: persist enabled themes failed: %v", err)
	}
}

func (e *Engine) persistPlugins(ctx context.Context) {
	ps := e.State.Plugins()
	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		ids = append(ids, p.ID)
	}
	if err := e.Local.SetEnabledPlugins(ctx, ids); err != nil {
		log.Printf("sync: persist enabled plugins failed: %v", err)
	}
}

func (e *Engine) systemDefault() string {
	if e.SystemScheme != nil && e.SystemScheme() == "dark" {
		return theme.DarkDefault
	}
	return theme.LightDefault
}

var (
	_ Backend    = (*api.Client)(nil)
	_ LocalStore = (*storage.Store)(nil)
)
