package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optivoo/crm/internal/onboarding"
	"github.com/optivoo/crm/internal/session"
)

var _ session.Authenticator = (*Client)(nil)
var _ session.Registrar = (*Client)(nil)

// mockAPIServer answers the auth and onboarding endpoints for one account
func mockAPIServer(t *testing.T) *httptest.Server {
	t.Helper()

	user := map[string]interface{}{
		"id":                   "user-123",
		"email":                "ana@example.com",
		"name":                 "Ana",
		"onboarding_completed": false,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Email != "ana@example.com" || req.Password != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "Invalid email or password"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"token": "tok-abc", "user": user})
	})
	mux.HandleFunc("/api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Email == "taken@example.com" {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"error": "Email already registered"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token": "tok-new",
			"user":  map[string]interface{}{"id": "user-456", "email": req.Email, "name": req.Name},
		})
	})
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-abc" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "Invalid or expired token"}`))
			return
		}
		json.NewEncoder(w).Encode(user)
	})
	mux.HandleFunc("/api/auth/forgot-password", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"message": "check your inbox"})
	})
	mux.HandleFunc("/api/auth/reset-password", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["token"] != "reset-1" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": "Invalid or expired reset token"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/onboarding", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(onboarding.DefaultProfile())
		case http.MethodPut:
			var p onboarding.Profile
			json.NewDecoder(r.Body).Decode(&p)
			if err := onboarding.Validate(p); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}
			done := map[string]interface{}{}
			for k, v := range user {
				done[k] = v
			}
			done["onboarding_completed"] = true
			json.NewEncoder(w).Encode(done)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthenticate(t *testing.T) {
	c := New(mockAPIServer(t).URL + "/")
	ctx := context.Background()

	creds, err := c.Authenticate(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", creds.Token)
	assert.Equal(t, session.Identity{ID: "user-123", DisplayName: "Ana", Email: "ana@example.com"}, creds.Identity)

	_, err = c.Authenticate(ctx, "ana@example.com", "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "Invalid email or password")
}

func TestValidate(t *testing.T) {
	c := New(mockAPIServer(t).URL)
	ctx := context.Background()

	id, err := c.Validate(ctx, "tok-abc")
	require.NoError(t, err)
	assert.Equal(t, "user-123", id.ID)

	_, err = c.Validate(ctx, "tok-other")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegister(t *testing.T) {
	c := New(mockAPIServer(t).URL)
	ctx := context.Background()

	creds, err := c.Register(ctx, session.Registration{Name: "Bea", Email: "bea@example.com", Password: "secret1", Confirm: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "tok-new", creds.Token)
	assert.False(t, creds.Identity.OnboardingCompleted)

	_, err = c.Register(ctx, session.Registration{Name: "X", Email: "taken@example.com", Password: "secret1"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "Email already registered", apiErr.Message)
}

func TestPasswordReset(t *testing.T) {
	c := New(mockAPIServer(t).URL)
	ctx := context.Background()

	msg, err := c.ForgotPassword(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "check your inbox", msg)

	require.NoError(t, c.ResetPassword(ctx, "reset-1", "newpass1"))

	err = c.ResetPassword(ctx, "reset-2", "newpass1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestOnboarding(t *testing.T) {
	c := New(mockAPIServer(t).URL)
	ctx := context.Background()

	p, err := c.GetOnboarding(ctx, "tok-abc")
	require.NoError(t, err)
	assert.Equal(t, onboarding.DefaultProfile(), p)

	p = onboarding.Profile{Sector: "food", Tone: "casual", HoursStart: "10:00", HoursEnd: "22:00", SupportType: "chat"}
	id, err := c.SaveOnboarding(ctx, "tok-abc", p)
	require.NoError(t, err)
	assert.True(t, id.OnboardingCompleted)

	_, err = c.SaveOnboarding(ctx, "tok-abc", onboarding.Profile{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	_, err = c.GetOnboarding(ctx, "tok-other")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCancelledContext(t *testing.T) {
	c := New(mockAPIServer(t).URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Authenticate(ctx, "ana@example.com", "secret1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Validate(context.Background(), "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}
