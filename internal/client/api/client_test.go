package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTokens struct {
	token string
}

func (m *memTokens) Token(context.Context) (string, error) { return m.token, nil }
func (m *memTokens) SetToken(_ context.Context, t string) error {
	m.token = t
	return nil
}
func (m *memTokens) ClearToken(context.Context) error {
	m.token = ""
	return nil
}

func TestLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/login", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Login successful","user":{"id":"u1","email":"a@b.co","emailVerified":true},"token":"jwt-1"}`))
	}))
	defer srv.Close()

	tokens := &memTokens{}
	c := New(srv.URL, tokens)

	resp, err := c.Login(context.Background(), "a@b.co", "Abcdef1@")
	require.NoError(t, err)
	assert.Equal(t, "Login successful", resp.Message)
	assert.Equal(t, "jwt-1", tokens.token)
}

func TestAuthedRequestCarriesBearer(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user":{"id":"u1"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, &memTokens{token: "jwt-1"})
	_, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer jwt-1", got)
}

func TestUnauthorizedClearsStoredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Token has expired"}`))
	}))
	defer srv.Close()

	tokens := &memTokens{token: "expired"}
	c := New(srv.URL, tokens)

	_, err := c.GetPreferences(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.True(t, HasMessage(err, "Token has expired"))
	assert.Empty(t, tokens.token)
}

func TestUnauthorizedOnPublicRouteKeepsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid email or password"}`))
	}))
	defer srv.Close()

	tokens := &memTokens{token: "still-good"}
	c := New(srv.URL, tokens)

	_, err := c.Login(context.Background(), "a@b.co", "wrong")
	require.Error(t, err)
	assert.Equal(t, "still-good", tokens.token)
}

func TestErrorBodyDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Validation failed","details":["Name is required"]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, &memTokens{})
	_, err := c.Register(context.Background(), "a@b.co", "weak", "")
	require.Error(t, err)

	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
	assert.Equal(t, "Validation failed", ae.Message)
	assert.Equal(t, []string{"Name is required"}, ae.Details)
}

func TestNonJSONErrorFallsBackToStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	c := New(srv.URL, &memTokens{})
	_, err := c.Profile(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadGateway))
}
