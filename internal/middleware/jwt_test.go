package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodhub/productivity-hub/internal/model"
	"github.com/prodhub/productivity-hub/internal/repository"
	"github.com/prodhub/productivity-hub/internal/utils"
)

const testSecret = "test-secret"

type fakeUserGetter struct {
	users map[string]model.User
}

func (f *fakeUserGetter) GetByID(_ context.Context, id string) (model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func runJWT(t *testing.T, users UserGetter, authHeader string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	called := false
	next := func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	}
	require.NoError(t, JWTAuth(testSecret, users)(next)(c))
	return rec, called
}

func TestJWTAuthMissingHeader(t *testing.T) {
	rec, called := runJWT(t, &fakeUserGetter{}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Access token is required")
	assert.False(t, called)
}

func TestJWTAuthMalformedToken(t *testing.T) {
	rec, called := runJWT(t, &fakeUserGetter{}, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid token")
	assert.False(t, called)
}

func TestJWTAuthExpiredToken(t *testing.T) {
	now := time.Now().UTC()
	claims := utils.SessionClaims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	rec, called := runJWT(t, &fakeUserGetter{}, "Bearer "+raw)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Token has expired")
	assert.False(t, called)
}

func TestJWTAuthDeletedUser(t *testing.T) {
	tok, err := utils.NewSessionToken(testSecret, "gone", "gone@example.com")
	require.NoError(t, err)

	rec, called := runJWT(t, &fakeUserGetter{users: map[string]model.User{}}, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "user not found or not verified")
	assert.False(t, called)
}

func TestJWTAuthUnverifiedUserRejectedAtRequestTime(t *testing.T) {
	// A token minted while verified stops working the moment the account
	// is no longer verified.
	tok, err := utils.NewSessionToken(testSecret, "u1", "u1@example.com")
	require.NoError(t, err)

	users := &fakeUserGetter{users: map[string]model.User{
		"u1": {ID: "u1", Email: "u1@example.com", EmailVerified: false},
	}}
	rec, called := runJWT(t, users, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestJWTAuthSuccess(t *testing.T) {
	tok, err := utils.NewSessionToken(testSecret, "u1", "u1@example.com")
	require.NoError(t, err)

	users := &fakeUserGetter{users: map[string]model.User{
		"u1": {ID: "u1", Email: "u1@example.com", EmailVerified: true},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	next := func(c echo.Context) error {
		u, ok := CurrentUser(c)
		require.True(t, ok)
		assert.Equal(t, "u1", u.ID)
		assert.Equal(t, "u1", c.Get("user_id"))
		return c.NoContent(http.StatusOK)
	}
	require.NoError(t, JWTAuth(testSecret, users)(next)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
