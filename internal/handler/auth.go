package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/prodhub/productivity-hub/internal/config"
	"github.com/prodhub/productivity-hub/internal/middleware"
	"github.com/prodhub/productivity-hub/internal/model"
	"github.com/prodhub/productivity-hub/internal/queue"
	"github.com/prodhub/productivity-hub/internal/repository"
	"github.com/prodhub/productivity-hub/internal/utils"
)

// UserStore is the slice of the user repository the auth endpoints need.
type UserStore interface {
	Create(ctx context.Context, email, name, password string, cost int, token utils.VerificationToken) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByVerificationToken(ctx context.Context, token string) (model.User, error)
	MarkVerified(ctx context.Context, id string) (model.User, error)
}

// DefaultsCreator seeds the preferences row for a fresh account.
type DefaultsCreator interface {
	CreateDefaults(ctx context.Context, userID string) error
}

// EventPublisher hands the verification-email event to the broker.
// Publish failures are logged and swallowed: the account exists either
// way and the mail can be resent manually.
type EventPublisher func(ctx context.Context, ev queue.VerificationEmailEvent) error

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg     config.Config
	Users   UserStore
	Prefs   DefaultsCreator
	Publish EventPublisher
}

func NewAuthHandler(cfg config.Config, users UserStore, prefs DefaultsCreator, publish EventPublisher) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Prefs: prefs, Publish: publish}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPart struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	EmailVerified bool       `json:"emailVerified"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, Name: u.Name, EmailVerified: u.EmailVerified}
}

// Register: create an unverified user, seed default preferences, queue the
// verification mail. The user is never logged in from here; only
// verification or a later login mints a session token.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = utils.NormalizeEmail(req.Email)

	// Collect every violated rule so the client can show the full list.
	var details []string
	if !utils.ValidEmail(req.Email) {
		details = append(details, "Please provide a valid email")
	}
	details = append(details, utils.ValidatePassword(req.Password)...)
	if req.Name == "" {
		details = append(details, "Name is required")
	}
	if len(details) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Validation failed", "details": details})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	token := utils.NewVerificationToken(h.Cfg.VerificationHours)
	u, err := h.Users.Create(ctx, req.Email, req.Name, req.Password, h.Cfg.BcryptCost, token)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "User already exists with this email"})
		}
		log.Printf("auth: create user failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error during registration"})
	}

	if err := h.Prefs.CreateDefaults(ctx, u.ID); err != nil {
		log.Printf("auth: seed preferences for %s failed: %v", u.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error during registration"})
	}

	// At-least-once mail delivery: a publish failure leaves the account in
	// place and unverified.
	if err := h.Publish(ctx, queue.VerificationEmailEvent{
		UserID:      u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Token:       token.Value,
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("auth: queue verification mail for %s failed: %v", u.Email, err)
	}

	part := toUserPart(u)
	part.CreatedAt = &u.CreatedAt
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Registration successful. Please check your email to verify your account.",
		"user":    part,
	})
}

// VerifyEmail consumes a verification token from the query string. A
// second call with the same token of an already verified account succeeds
// without side effects; an expired token is left unconsumed so a resend
// can replace it.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Verification token is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid verification token"})
		}
		log.Printf("auth: verification lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error during email verification"})
	}

	if u.EmailVerified {
		return c.JSON(http.StatusOK, echo.Map{
			"message": "Email already verified",
			"user":    toUserPart(u),
		})
	}

	if time.Now().UTC().After(u.VerificationExpiry) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Verification token has expired. Please request a new verification email."})
	}

	verified, err := h.Users.MarkVerified(ctx, u.ID)
	if err != nil {
		log.Printf("auth: mark verified failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error during email verification"})
	}

	// Verification doubles as login.
	session, err := utils.NewSessionToken(h.Cfg.JWTSecret, verified.ID, verified.Email)
	if err != nil {
		log.Printf("auth: issue session token failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error during email verification"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Email verified successfully! You are now logged in.",
		"user":    toUserPart(verified),
		"token":   session.Token,
	})
}

// Login verifies credentials and mints a session token. Unknown email and
// wrong password produce byte-identical responses so the endpoint cannot
// be used to enumerate accounts. An unverified account with correct
// credentials gets a specific 403 instead.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = utils.NormalizeEmail(req.Email)

	var details []string
	if !utils.ValidEmail(req.Email) {
		details = append(details, "Please provide a valid email")
	}
	if req.Password == "" {
		details = append(details, "Password is required")
	}
	if len(details) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Validation failed", "details": details})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid email or password"})
		}
		log.Printf("auth: login lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error during login"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid email or password"})
	}

	if !u.EmailVerified {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Please verify your email address before logging in. Check your inbox for a verification email."})
	}

	session, err := utils.NewSessionToken(h.Cfg.JWTSecret, u.ID, u.Email)
	if err != nil {
		log.Printf("auth: issue session token failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Internal server error during login"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Login successful",
		"user":    toUserPart(u),
		"token":   session.Token,
	})
}

// Profile returns the authenticated user. Used by clients at startup to
// confirm a stored token is still accepted.
func (h *AuthHandler) Profile(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": toUserPart(u)})
}

var _ UserStore = (*repository.UserRepo)(nil)
var _ DefaultsCreator = (*repository.PreferenceRepo)(nil)
