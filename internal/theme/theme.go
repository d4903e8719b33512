// Package theme defines the canonical theme registry shared by the server
// and the client SDK.  Themes are identified by stable string ids; the
// registry order is the canonical ordering used when a deterministic
// fallback theme has to be chosen.
package theme

// Theme describes one selectable UI theme.  Color tables live in the
// presentation layer; the backend and sync engine only care about identity
// and display metadata.
type Theme struct {
	ID   string
	Name string
	Dark bool
}

// Core theme ids.  These are always present in a user's enabled set and can
// never be disabled.
const (
	LightDefault = "light-default"
	DarkDefault  = "dark-default"
)

// DefaultThemeID is the theme assigned to new users and used as the last
// resort fallback when nothing else is known.
const DefaultThemeID = LightDefault

// All lists every theme known to the application in canonical order.  The
// order matters: disabling the active theme reassigns the current theme to
// the first remaining enabled entry of this list.
var All = []Theme{
	{ID: LightDefault, Name: "Light", Dark: false},
	{ID: DarkDefault, Name: "Dark", Dark: true},
	{ID: "colorblind-default", Name: "Colorblind Friendly", Dark: false},
	{ID: "high-contrast", Name: "High Contrast", Dark: true},
	{ID: "grayscale-default", Name: "Grayscale", Dark: false},
}

// CoreIDs returns the set of theme ids that can never be removed from a
// user's enabled list.
func CoreIDs() []string { return []string{LightDefault, DarkDefault} }

// IsCore reports whether id belongs to the protected core set.
func IsCore(id string) bool {
	return id == LightDefault || id == DarkDefault
}

// CanDisable reports whether a theme may be removed from the enabled set.
func CanDisable(id string) bool { return !IsCore(id) }

// Exists reports whether id names a known theme.
func Exists(id string) bool {
	for _, t := range All {
		if t.ID == id {
			return true
		}
	}
	return false
}

// IsEnabled reports whether id is a member of enabled.
func IsEnabled(id string, enabled []string) bool {
	for _, e := range enabled {
		if e == id {
			return true
		}
	}
	return false
}

// FirstEnabled returns the first theme of the canonical ordering that is a
// member of enabled, or "" when none is.  With the core set protected this
// can only return "" on corrupted state.
func FirstEnabled(enabled []string) string {
	for _, t := range All {
		if IsEnabled(t.ID, enabled) {
			return t.ID
		}
	}
	return ""
}
