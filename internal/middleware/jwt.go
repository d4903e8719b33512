package middleware // reusable HTTP middleware functions

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/prodhub/productivity-hub/internal/model"
	"github.com/prodhub/productivity-hub/internal/repository"
	"github.com/prodhub/productivity-hub/internal/utils"
)

// UserGetter is the slice of the user repository the middleware needs to
// confirm the token's subject still exists.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (model.User, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer session token
// and injects the authenticated user into the request context under
// "user". Verification status is enforced at request time, not baked into
// the token: a structurally valid token is rejected with 401 when the user
// has been deleted or is no longer verified. This middleware should wrap
// every /api/user route.
func JWTAuth(secret string, users UserGetter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header starts with "Bearer " followed by the JWT.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Access token is required"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := utils.ParseSessionToken(secret, raw)
			if err != nil {
				if errors.Is(err, utils.ErrTokenExpired) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Token has expired"})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid token"})
			}

			// Re-fetch the user so deletions and verification status apply
			// immediately instead of at the token's natural expiry.
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			u, err := users.GetByID(ctx, claims.UserID)
			if err != nil || !u.EmailVerified {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid token - user not found or not verified"})
			}

			c.Set("user", u)
			c.Set("user_id", u.ID)
			return next(c)
		}
	}
}

// CurrentUser returns the authenticated user stored by JWTAuth. The bool
// is false on routes that skipped the middleware.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get("user").(model.User)
	return u, ok
}

var _ UserGetter = (*repository.UserRepo)(nil)
