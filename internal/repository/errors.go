// Package repository implements persistence for users, preferences and
// enabled plugins over database/sql. Sentinel errors let handlers map
// failure scenarios onto HTTP statuses without inspecting driver errors.
package repository

import "errors"

// ErrEmailExists is returned when registering with an email address that
// already has an account. Handlers translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a requested row does not exist, such as
// preferences for an unknown user. Handlers translate this into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrThemeNotEnabled is returned when an operation references a theme that
// is not in the user's enabled set.
var ErrThemeNotEnabled = errors.New("theme is not enabled")

// ErrThemeAlreadyEnabled is returned when enabling a theme that is already
// in the enabled set.
var ErrThemeAlreadyEnabled = errors.New("theme is already enabled")

// ErrCoreTheme is returned when an operation would remove a core theme
// from the enabled set.
var ErrCoreTheme = errors.New("core themes cannot be disabled")

// ErrPluginAlreadyEnabled is returned when enabling a plugin the user has
// already enabled.
var ErrPluginAlreadyEnabled = errors.New("plugin is already enabled")

// ErrPluginNotEnabled is returned when disabling or configuring a plugin
// the user has not enabled.
var ErrPluginNotEnabled = errors.New("plugin is not enabled")

// ErrNoEnabledTheme is returned when disabling a theme would leave the
// enabled set without a valid current theme. With the core set protected
// this indicates corrupted state rather than a user mistake.
var ErrNoEnabledTheme = errors.New("no enabled theme remains")
