// Package api is the typed HTTP client for the backend. Every call
// carries the stored session token when one exists, and any 401 clears
// the stored token so the app falls back to the login screen instead of
// retrying a dead session.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const requestTimeout = 10 * time.Second

// TokenStore is the slice of local storage the client needs for session
// handling.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	Status  int
	Message string
	Details []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given HTTP status.
func IsStatus(err error, status int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == status
}

// HasMessage reports whether err is an APIError carrying exactly the
// given server message. The engine keys some recovery decisions off the
// stable message strings.
func HasMessage(err error, msg string) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Message == msg
}

// Client talks to one backend instance.
type Client struct {
	base   string
	http   *http.Client
	tokens TokenStore
}

func New(baseURL string, tokens TokenStore) *Client {
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: requestTimeout},
		tokens: tokens,
	}
}

// ----- wire types -----

type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"emailVerified"`
}

type AuthResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
	Token   string `json:"token"`
}

type Plugin struct {
	ID        string          `json:"id"`
	Settings  json.RawMessage `json:"settings"`
	EnabledAt time.Time       `json:"enabledAt"`
}

type Preferences struct {
	Themes struct {
		Current string   `json:"current"`
		Enabled []string `json:"enabled"`
	} `json:"themes"`
	Plugins struct {
		Enabled []Plugin `json:"enabled"`
	} `json:"plugins"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type ThemeUpdate struct {
	Message       string    `json:"message"`
	CurrentTheme  string    `json:"currentTheme"`
	EnabledThemes []string  `json:"enabledThemes"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type PluginUpdate struct {
	Message string `json:"message"`
	Plugin  Plugin `json:"plugin"`
}

// ----- auth -----

func (c *Client) Register(ctx context.Context, email, password, name string) (AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"email": email, "password": password, "name": name}
	err := c.do(ctx, http.MethodPost, "/api/auth/register", false, body, &out)
	return out, err
}

// Login authenticates and stores the returned session token.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", false, body, &out); err != nil {
		return out, err
	}
	if err := c.tokens.SetToken(ctx, out.Token); err != nil {
		return out, fmt.Errorf("store session token: %w", err)
	}
	return out, nil
}

// VerifyEmail consumes a verification token. On success the server also
// logs the user in, so the returned token is stored like a login.
func (c *Client) VerifyEmail(ctx context.Context, token string) (AuthResponse, error) {
	var out AuthResponse
	path := "/api/auth/verify-email?token=" + url.QueryEscape(token)
	if err := c.do(ctx, http.MethodGet, path, false, nil, &out); err != nil {
		return out, err
	}
	if out.Token != "" {
		if err := c.tokens.SetToken(ctx, out.Token); err != nil {
			return out, fmt.Errorf("store session token: %w", err)
		}
	}
	return out, nil
}

func (c *Client) Profile(ctx context.Context) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/user/profile", true, nil, &out)
	return out.User, err
}

// ----- preferences -----

func (c *Client) GetPreferences(ctx context.Context) (Preferences, error) {
	var out Preferences
	err := c.do(ctx, http.MethodGet, "/api/user/preferences", true, nil, &out)
	return out, err
}

func (c *Client) SetCurrentTheme(ctx context.Context, themeID string) (ThemeUpdate, error) {
	var out ThemeUpdate
	err := c.do(ctx, http.MethodPut, "/api/user/current-theme", true, map[string]string{"themeId": themeID}, &out)
	return out, err
}

func (c *Client) EnableTheme(ctx context.Context, themeID string) (ThemeUpdate, error) {
	var out ThemeUpdate
	err := c.do(ctx, http.MethodPost, "/api/user/enabled-themes", true, map[string]string{"themeId": themeID}, &out)
	return out, err
}

func (c *Client) DisableTheme(ctx context.Context, themeID string) (ThemeUpdate, error) {
	var out ThemeUpdate
	err := c.do(ctx, http.MethodDelete, "/api/user/enabled-themes/"+url.PathEscape(themeID), true, nil, &out)
	return out, err
}

func (c *Client) EnablePlugin(ctx context.Context, pluginID string, settings json.RawMessage) (PluginUpdate, error) {
	var out PluginUpdate
	body := map[string]any{"pluginId": pluginID}
	if len(settings) > 0 {
		body["settings"] = settings
	}
	err := c.do(ctx, http.MethodPost, "/api/user/enabled-plugins", true, body, &out)
	return out, err
}

func (c *Client) DisablePlugin(ctx context.Context, pluginID string) error {
	return c.do(ctx, http.MethodDelete, "/api/user/enabled-plugins/"+url.PathEscape(pluginID), true, nil, nil)
}

func (c *Client) UpdatePluginSettings(ctx context.Context, pluginID string, settings json.RawMessage) (PluginUpdate, error) {
	var out PluginUpdate
	body := map[string]any{"settings": settings}
	err := c.do(ctx, http.MethodPut, "/api/user/enabled-plugins/"+url.PathEscape(pluginID)+"/settings", true, body, &out)
	return out, err
}

// do runs one request. authed attaches the stored bearer token; a 401 on
// an authed call clears it before the error is returned.
func (c *Client) do(ctx context.Context, method, path string, authed bool, body, out any) error {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("read session token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusUnauthorized && authed {
			if err := c.tokens.ClearToken(ctx); err != nil {
				log.Printf("api: clear stored token failed: %v", err)
			}
		}
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error   string   `json:"error"`
		Details []string `json:"details"`
	}
	msg := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		msg = body.Error
	}
	return &APIError{Status: resp.StatusCode, Message: msg, Details: body.Details}
}
