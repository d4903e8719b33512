package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/prodhub/productivity-hub/internal/middleware"
	"github.com/prodhub/productivity-hub/internal/model"
	"github.com/prodhub/productivity-hub/internal/repository"
	"github.com/prodhub/productivity-hub/internal/theme"
)

// PreferenceStore is the slice of the preference repository the handlers
// need.
type PreferenceStore interface {
	Get(ctx context.Context, userID string) (model.Preferences, error)
	SetCurrentTheme(ctx context.Context, userID, themeID string) (model.Preferences, error)
	EnableTheme(ctx context.Context, userID, themeID string) (model.Preferences, error)
	DisableTheme(ctx context.Context, userID, themeID string) (model.Preferences, error)
}

// PluginStore is the slice of the plugin repository the handlers need.
type PluginStore interface {
	ListEnabled(ctx context.Context, userID string) ([]model.EnabledPlugin, error)
	Enable(ctx context.Context, userID, pluginID string, settings json.RawMessage) (model.EnabledPlugin, error)
	Disable(ctx context.Context, userID, pluginID string) error
	UpdateSettings(ctx context.Context, userID, pluginID string, settings json.RawMessage) (model.EnabledPlugin, error)
}

// Invalidator drops a user's cached preferences after a write.
type Invalidator interface {
	Invalidate(ctx context.Context, userID string)
}

// PreferenceHandler bundles dependencies for the /api/user endpoints.
type PreferenceHandler struct {
	Prefs   PreferenceStore
	Plugins PluginStore
	Cache   Invalidator
}

func NewPreferenceHandler(prefs PreferenceStore, plugins PluginStore, cache Invalidator) *PreferenceHandler {
	return &PreferenceHandler{Prefs: prefs, Plugins: plugins, Cache: cache}
}

// ----- DTOs -----

type themeReq struct {
	ThemeID string `json:"themeId"`
}

type pluginEnableReq struct {
	PluginID string          `json:"pluginId"`
	Settings json.RawMessage `json:"settings"`
}

type pluginSettingsReq struct {
	Settings json.RawMessage `json:"settings"`
}

type pluginPart struct {
	ID        string          `json:"id"`
	Settings  json.RawMessage `json:"settings"`
	EnabledAt time.Time       `json:"enabledAt"`
}

func toPluginPart(p model.EnabledPlugin) pluginPart {
	return pluginPart{ID: p.PluginID, Settings: p.Settings, EnabledAt: p.EnabledAt}
}

// GetPreferences returns the merged theme and plugin preferences read on
// every authenticated session start.
func (h *PreferenceHandler) GetPreferences(c echo.Context) error {
	u, _ := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	prefs, err := h.Prefs.Get(ctx, u.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User preferences not found"})
		}
		log.Printf("preferences: get failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}

	plugins, err := h.Plugins.ListEnabled(ctx, u.ID)
	if err != nil {
		log.Printf("preferences: list plugins failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}
	parts := make([]pluginPart, 0, len(plugins))
	for _, p := range plugins {
		parts = append(parts, toPluginPart(p))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"themes": echo.Map{
			"current": prefs.CurrentTheme,
			"enabled": prefs.EnabledThemes,
		},
		"plugins":     echo.Map{"enabled": parts},
		"lastUpdated": prefs.UpdatedAt,
	})
}

// SetCurrentTheme switches the active theme. The engine client pre-filters
// to enabled themes, but membership is re-validated here against the
// locked row.
func (h *PreferenceHandler) SetCurrentTheme(c echo.Context) error {
	var req themeReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.ThemeID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Validation failed", "details": []string{"Theme ID is required"}})
	}
	u, _ := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	prefs, err := h.Prefs.SetCurrentTheme(ctx, u.ID, strings.TrimSpace(req.ThemeID))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User preferences not found"})
		case errors.Is(err, repository.ErrThemeNotEnabled):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Cannot set theme that is not enabled. Enable the theme first."})
		}
		log.Printf("preferences: set current theme failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}

	h.Cache.Invalidate(ctx, u.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message":      "Current theme updated successfully",
		"currentTheme": prefs.CurrentTheme,
		"updatedAt":    prefs.UpdatedAt,
	})
}

// EnableTheme adds a theme to the enabled set.
func (h *PreferenceHandler) EnableTheme(c echo.Context) error {
	var req themeReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.ThemeID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Validation failed", "details": []string{"Theme ID is required"}})
	}
	u, _ := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	prefs, err := h.Prefs.EnableTheme(ctx, u.ID, strings.TrimSpace(req.ThemeID))
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User preferences not found"})
		case errors.Is(err, repository.ErrThemeAlreadyEnabled):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Theme is already enabled"})
		}
		log.Printf("preferences: enable theme failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}

	h.Cache.Invalidate(ctx, u.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message":       "Theme enabled successfully",
		"enabledThemes": prefs.EnabledThemes,
		"updatedAt":     prefs.UpdatedAt,
	})
}

// DisableTheme removes a theme from the enabled set. Core themes are
// rejected before any database work. Disabling the active theme
// atomically reassigns the current theme inside the repository
// transaction.
func (h *PreferenceHandler) DisableTheme(c echo.Context) error {
	themeID := c.Param("themeId")
	if themeID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Theme ID is required"})
	}
	if theme.IsCore(themeID) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Core themes cannot be disabled"})
	}
	u, _ := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	prefs, err := h.Prefs.DisableTheme(ctx, u.ID, themeID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "User preferences not found"})
		case errors.Is(err, repository.ErrCoreTheme):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Core themes cannot be disabled"})
		case errors.Is(err, repository.ErrThemeNotEnabled):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Theme is not enabled"})
		}
		log.Printf("preferences: disable theme failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}

	h.Cache.Invalidate(ctx, u.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message":       "Theme disabled successfully",
		"currentTheme":  prefs.CurrentTheme,
		"enabledThemes": prefs.EnabledThemes,
		"updatedAt":     prefs.UpdatedAt,
	})
}

// EnablePlugin turns a plugin on for the user with optional initial
// settings.
func (h *PreferenceHandler) EnablePlugin(c echo.Context) error {
	var req pluginEnableReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.PluginID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Validation failed", "details": []string{"Plugin ID is required"}})
	}
	u, _ := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Plugins.Enable(ctx, u.ID, strings.TrimSpace(req.PluginID), req.Settings)
	if err != nil {
		if errors.Is(err, repository.ErrPluginAlreadyEnabled) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Plugin is already enabled"})
		}
		log.Printf("preferences: enable plugin failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}

	h.Cache.Invalidate(ctx, u.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Plugin enabled successfully",
		"plugin":  toPluginPart(p),
	})
}

// DisablePlugin turns a plugin off for the user.
func (h *PreferenceHandler) DisablePlugin(c echo.Context) error {
	pluginID := c.Param("pluginId")
	if pluginID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Plugin ID is required"})
	}
	u, _ := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Plugins.Disable(ctx, u.ID, pluginID); err != nil {
		if errors.Is(err, repository.ErrPluginNotEnabled) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Plugin is not enabled"})
		}
		log.Printf("preferences: disable plugin failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}

	h.Cache.Invalidate(ctx, u.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "Plugin disabled successfully",
		"pluginId": pluginID,
	})
}

// UpdatePluginSettings replaces the settings blob of an enabled plugin.
func (h *PreferenceHandler) UpdatePluginSettings(c echo.Context) error {
	pluginID := c.Param("pluginId")
	var req pluginSettingsReq
	if err := c.Bind(&req); err != nil || len(req.Settings) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Validation failed", "details": []string{"Settings must be an object"}})
	}
	u, _ := middleware.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Plugins.UpdateSettings(ctx, u.ID, pluginID, req.Settings)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Plugin not found or not enabled"})
		}
		log.Printf("preferences: update plugin settings failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error"})
	}

	h.Cache.Invalidate(ctx, u.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Plugin settings updated successfully",
		"plugin":  toPluginPart(p),
	})
}

var _ PreferenceStore = (*repository.PreferenceRepo)(nil)
var _ PluginStore = (*repository.PluginRepo)(nil)
