// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/prodhub/productivity-hub/internal/handler"
	"github.com/prodhub/productivity-hub/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check
// for load balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints under /api/auth.
// None of them require an existing session; the whole group sits behind
// the rate limiter because registration and login are the expensive,
// abuse-prone paths.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	if limiter != nil {
		g.Use(limiter)
	}
	g.POST("/register", a.Register)
	g.GET("/verify-email", a.VerifyEmail)
	g.POST("/login", a.Login)
}

// RegisterUser registers the authenticated /api/user endpoints. JWTAuth
// runs first on every route; the preference cache middleware is attached
// only to the preferences read.
func RegisterUser(e *echo.Echo, a *handler.AuthHandler, p *handler.PreferenceHandler,
	auth echo.MiddlewareFunc, cache *middleware.PreferenceCache) {

	g := e.Group("/api/user")
	g.Use(auth)

	g.GET("/profile", a.Profile)
	g.GET("/preferences", p.GetPreferences, cache.Middleware())
	g.PUT("/current-theme", p.SetCurrentTheme)
	g.POST("/enabled-themes", p.EnableTheme)
	g.DELETE("/enabled-themes/:themeId", p.DisableTheme)
	g.POST("/enabled-plugins", p.EnablePlugin)
	g.DELETE("/enabled-plugins/:pluginId", p.DisablePlugin)
	g.PUT("/enabled-plugins/:pluginId/settings", p.UpdatePluginSettings)
}
