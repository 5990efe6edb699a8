package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/optivoo/crm/internal/onboarding"
	"github.com/optivoo/crm/internal/session"
)

// ErrUnauthorized is returned when the API rejects the credential
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx answer from the API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// Client represents an HTTP client for the Optivoo API. It is the
// authentication collaborator of the web front end and the CLI.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// BaseURL returns the API root this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// User is the account as the API reports it
type User struct {
	ID                  string `json:"id"`
	Email               string `json:"email"`
	Name                string `json:"name"`
	OnboardingCompleted bool   `json:"onboarding_completed"`
}

// Identity converts the API user to a session identity
func (u User) Identity() session.Identity {
	return session.Identity{
		ID:                  u.ID,
		DisplayName:         u.Name,
		Email:               u.Email,
		OnboardingCompleted: u.OnboardingCompleted,
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents the sign-up request body
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the login and sign-up response
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (r LoginResponse) credentials() session.Credentials {
	return session.Credentials{Token: r.Token, Identity: r.User.Identity()}
}

// Validate resolves a token to its identity
func (c *Client) Validate(ctx context.Context, token string) (session.Identity, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &user, http.StatusOK); err != nil {
		return session.Identity{}, err
	}
	return user.Identity(), nil
}

// Authenticate exchanges e-mail and password for a token
func (c *Client) Authenticate(ctx context.Context, email, password string) (session.Credentials, error) {
	var resp LoginResponse
	req := LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", req, &resp, http.StatusOK); err != nil {
		return session.Credentials{}, err
	}
	return resp.credentials(), nil
}

// Register creates an account and returns its token
func (c *Client) Register(ctx context.Context, reg session.Registration) (session.Credentials, error) {
	var resp LoginResponse
	req := RegisterRequest{Name: reg.Name, Email: reg.Email, Password: reg.Password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", "", req, &resp, http.StatusCreated); err != nil {
		return session.Credentials{}, err
	}
	return resp.credentials(), nil
}

// ForgotPassword requests a reset link and returns the API's message
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	req := map[string]string{"email": email}
	if err := c.do(ctx, http.MethodPost, "/api/auth/forgot-password", "", req, &resp, http.StatusOK); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ResetPassword redeems a reset token
func (c *Client) ResetPassword(ctx context.Context, resetToken, password string) error {
	req := map[string]string{"token": resetToken, "password": password}
	return c.do(ctx, http.MethodPost, "/api/auth/reset-password", "", req, nil, http.StatusNoContent)
}

// GetOnboarding returns the stored business profile or its defaults
func (c *Client) GetOnboarding(ctx context.Context, token string) (onboarding.Profile, error) {
	var p onboarding.Profile
	if err := c.do(ctx, http.MethodGet, "/api/onboarding", token, nil, &p, http.StatusOK); err != nil {
		return onboarding.Profile{}, err
	}
	return p, nil
}

// SaveOnboarding stores the business profile and completes onboarding
func (c *Client) SaveOnboarding(ctx context.Context, token string, p onboarding.Profile) (session.Identity, error) {
	var user User
	if err := c.do(ctx, http.MethodPut, "/api/onboarding", token, p, &user, http.StatusOK); err != nil {
		return session.Identity{}, err
	}
	return user.Identity(), nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}, want int) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, errorMessage(resp.Body))
	}
	if resp.StatusCode != want {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} or falls back to the raw body
func errorMessage(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}
