// Package state is the client's single in-memory view of the session
// and preferences. All reads go through snapshot methods and all writes
// through explicit mutators, so there are no ambient globals to race on.
package state

import (
	"sync"

	"github.com/prodhub/productivity-hub/internal/client/api"
	"github.com/prodhub/productivity-hub/internal/theme"
)

// Source records where the current preference snapshot came from.
type Source string

const (
	SourceDefaults Source = "defaults"
	SourceLocal    Source = "local"
	SourceServer   Source = "server"
)

// Snapshot is a copy of the full client state at one point in time.
type Snapshot struct {
	User          *api.User
	CurrentTheme  string
	EnabledThemes []string
	Plugins       []api.Plugin
	Source        Source

	// Degraded is set when a theme write succeeded locally but failed on
	// the server, so the local view may be ahead of the account.
	Degraded bool
}

// Store guards the client state with a mutex.
type Store struct {
	mu sync.RWMutex
	s  Snapshot
}

// New returns a store seeded with the default theme set.
func New() *Store {
	return &Store{s: Snapshot{
		CurrentTheme:  theme.DefaultThemeID,
		EnabledThemes: theme.CoreIDs(),
		Source:        SourceDefaults,
	}}
}

// Snapshot returns a deep copy of the current state.
func (st *Store) Snapshot() Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return copySnapshot(st.s)
}

func (st *Store) CurrentTheme() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.CurrentTheme
}

func (st *Store) EnabledThemes() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return append([]string(nil), st.s.EnabledThemes...)
}

func (st *Store) Plugins() []api.Plugin {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return copyPlugins(st.s.Plugins)
}

func (st *Store) User() (api.User, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.s.User == nil {
		return api.User{}, false
	}
	return *st.s.User, true
}

// ----- mutators -----

func (st *Store) SetUser(u api.User) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.User = &u
}

func (st *Store) ClearUser() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.User = nil
}

// SetThemes replaces the whole theme view and records its source. A
// fresh snapshot from any source clears the degraded flag.
func (st *Store) SetThemes(current string, enabled []string, src Source) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.CurrentTheme = current
	st.s.EnabledThemes = append([]string(nil), enabled...)
	st.s.Source = src
	st.s.Degraded = false
}

func (st *Store) SetCurrentTheme(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.CurrentTheme = id
}

func (st *Store) SetEnabledThemes(ids []string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.EnabledThemes = append([]string(nil), ids...)
}

// MarkDegraded flags that the local theme view is ahead of the server.
func (st *Store) MarkDegraded() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Degraded = true
}

func (st *Store) SetPlugins(ps []api.Plugin) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Plugins = copyPlugins(ps)
}

// UpsertPlugin adds a plugin to the view, or replaces the entry with the
// same id.
func (st *Store) UpsertPlugin(p api.Plugin) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for i := range st.s.Plugins {
		if st.s.Plugins[i].ID == p.ID {
			st.s.Plugins[i] = p
			return
		}
	}
	st.s.Plugins = append(st.s.Plugins, p)
}

func (st *Store) RemovePlugin(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for i := range st.s.Plugins {
		if st.s.Plugins[i].ID == id {
			st.s.Plugins = append(st.s.Plugins[:i], st.s.Plugins[i+1:]...)
			return
		}
	}
}

func copySnapshot(s Snapshot) Snapshot {
	out := s
	out.EnabledThemes = append([]string(nil), s.EnabledThemes...)
	out.Plugins = copyPlugins(s.Plugins)
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}

func copyPlugins(ps []api.Plugin) []api.Plugin {
	out := make([]api.Plugin, len(ps))
	copy(out, ps)
	return out
}
