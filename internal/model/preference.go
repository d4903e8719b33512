package model

import (
	"encoding/json"
	"time"
)

// Preferences mirrors the `user_preferences` table: one row per user
// holding the active theme and the JSON-encoded list of enabled theme ids.
//
// Invariants maintained by the repository layer:
//   - CurrentTheme is always a member of EnabledThemes.
//   - The core theme ids are always members of EnabledThemes.
type Preferences struct {
	UserID        string    // user_preferences.user_id
	CurrentTheme  string    // user_preferences.current_theme
	EnabledThemes []string  // user_preferences.enabled_themes (JSON array column)
	UpdatedAt     time.Time // user_preferences.updated_at
}

// EnabledPlugin mirrors one row of the `user_enabled_plugins` table.
// Settings is an opaque JSON object owned by the plugin.
type EnabledPlugin struct {
	UserID    string          // user_enabled_plugins.user_id
	PluginID  string          // user_enabled_plugins.plugin_id
	Settings  json.RawMessage // user_enabled_plugins.settings (JSON column)
	EnabledAt time.Time       // user_enabled_plugins.enabled_at
}
