// Package plugin defines the capability contract implemented by every
// productivity plugin, plus the registry of plugins bundled with the app.
// Real plugin functionality ships separately; the bundled entries are
// placeholders that satisfy the full lifecycle so the enable/disable and
// settings plumbing can be exercised end to end.
package plugin

import "context"

// Status reports the runtime state of a plugin.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusError    Status = "error"
)

// DisplayInfo carries the metadata a settings screen needs to render a
// plugin row.
type DisplayInfo struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// Plugin is the closed capability interface for productivity plugins.
// Enable/Disable toggle the user-facing state; Initialize/Cleanup bracket
// the plugin's resource lifetime and must be safe to call in either state.
type Plugin interface {
	ID() string
	DisplayInfo() DisplayInfo
	Enable()
	Disable()
	Initialize(ctx context.Context) error
	Cleanup(ctx context.Context) error
	Status() Status
}

// builtin is the placeholder implementation backing the bundled plugins.
type builtin struct {
	id          string
	name        string
	icon        string
	description string
	enabled     bool
	initialized bool
}

func (b *builtin) ID() string { return b.id }

func (b *builtin) DisplayInfo() DisplayInfo {
	return DisplayInfo{
		Name:        b.name,
		Icon:        b.icon,
		Description: b.description,
		Status:      string(b.Status()),
	}
}

func (b *builtin) Enable()  { b.enabled = true }
func (b *builtin) Disable() { b.enabled = false }

func (b *builtin) Initialize(ctx context.Context) error {
	b.initialized = true
	return nil
}

func (b *builtin) Cleanup(ctx context.Context) error {
	b.initialized = false
	return nil
}

func (b *builtin) Status() Status {
	if b.enabled && b.initialized {
		return StatusActive
	}
	return StatusInactive
}

// Builtins returns fresh instances of the plugins bundled with the app.
// Callers own the returned values; instances are not shared.
func Builtins() []Plugin {
	return []Plugin{
		&builtin{id: "workout-tracker", name: "Workout Tracker", icon: "barbell",
			description: "Track your fitness progress and body recomposition"},
		&builtin{id: "nutrition-logger", name: "Nutrition Logger", icon: "apple",
			description: "Log meals and track your daily calorie goal"},
		&builtin{id: "progress-photos", name: "Progress Photos", icon: "camera",
			description: "Take monthly body recomposition photos"},
	}
}

// Known reports whether id names a bundled plugin.
func Known(id string) bool {
	for _, p := range Builtins() {
		if p.ID() == id {
			return true
		}
	}
	return false
}
