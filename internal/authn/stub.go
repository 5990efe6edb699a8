// Package authn provides an in-memory authentication collaborator for demos
// and local development without the API server.
package authn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/optivoo/crm/internal/crm"
	"github.com/optivoo/crm/internal/onboarding"
	"github.com/optivoo/crm/internal/session"
)

// Seeded demo account. Unknown tokens share its contact book.
const (
	DemoID       = "1"
	DemoEmail    = "admin@optivoo.com"
	DemoPassword = "admin123"
	DemoName     = "João Silva"

	ForgotPasswordMessage = "Recovery link sent to your email"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrEmptyToken         = errors.New("empty token")
)

type account struct {
	identity session.Identity
	password string
	profile  onboarding.Profile
}

// Stub accepts the seeded demo account, keeps sign-ups in memory and
// trusts any non-empty token it did not issue.
type Stub struct {
	latency time.Duration
	log     zerolog.Logger
	book    *crm.Memory

	mu       sync.Mutex
	accounts map[string]*account // by lowercased e-mail
	tokens   map[string]string   // token -> e-mail
}

// Option configures a Stub
type Option func(*Stub)

// WithLatency sets the simulated round-trip time
func WithLatency(d time.Duration) Option {
	return func(s *Stub) { s.latency = d }
}

// WithLogger sets the stub's logger
func WithLogger(log zerolog.Logger) Option {
	return func(s *Stub) {
		s.log = log.With().Str("component", "authn-stub").Logger()
	}
}

// NewStub creates a stub seeded with the demo account
func NewStub(opts ...Option) *Stub {
	s := &Stub{
		log:      zerolog.Nop(),
		book:     crm.NewMemory(),
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.accounts[DemoEmail] = &account{
		identity: session.Identity{
			ID:                  DemoID,
			DisplayName:         DemoName,
			Email:               DemoEmail,
			OnboardingCompleted: true,
		},
		password: DemoPassword,
		profile:  onboarding.DefaultProfile(),
	}
	s.book.Seed(DemoID)
	return s
}

func (s *Stub) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Stub) issue(a *account) session.Credentials {
	token := "stub-" + strings.ToLower(ulid.Make().String())
	s.tokens[token] = strings.ToLower(a.identity.Email)
	return session.Credentials{Token: token, Identity: a.identity}
}

// Validate resolves tokens the stub issued. Any other non-empty token is
// trusted and mapped to a placeholder identity that still has to onboard.
func (s *Stub) Validate(ctx context.Context, token string) (session.Identity, error) {
	if err := s.wait(ctx); err != nil {
		return session.Identity{}, err
	}
	if token == "" {
		return session.Identity{}, ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if email, ok := s.tokens[token]; ok {
		if a, ok := s.accounts[email]; ok {
			return a.identity, nil
		}
	}
	s.log.Debug().Msg("Trusting unknown token")
	return session.Identity{
		ID:          DemoID,
		DisplayName: "Demo User",
		Email:       "user@example.com",
	}, nil
}

// Authenticate checks e-mail and password against the in-memory accounts
func (s *Stub) Authenticate(ctx context.Context, email, password string) (session.Credentials, error) {
	if err := s.wait(ctx); err != nil {
		return session.Credentials{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok || a.password != password {
		return session.Credentials{}, ErrInvalidCredentials
	}
	return s.issue(a), nil
}

// Register creates an account that still has to onboard
func (s *Stub) Register(ctx context.Context, reg session.Registration) (session.Credentials, error) {
	if err := s.wait(ctx); err != nil {
		return session.Credentials{}, err
	}

	key := strings.ToLower(strings.TrimSpace(reg.Email))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[key]; ok {
		return session.Credentials{}, ErrEmailTaken
	}
	a := &account{
		identity: session.Identity{
			ID:          ulid.Make().String(),
			DisplayName: strings.TrimSpace(reg.Name),
			Email:       key,
		},
		password: reg.Password,
		profile:  onboarding.DefaultProfile(),
	}
	s.accounts[key] = a
	s.log.Info().Str("email", key).Msg("Stub account registered")
	return s.issue(a), nil
}

// ForgotPassword always reports success
func (s *Stub) ForgotPassword(ctx context.Context, email string) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	return ForgotPasswordMessage, nil
}

// ResetPassword accepts any non-empty reset token; the stub never issues them
func (s *Stub) ResetPassword(ctx context.Context, resetToken, password string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if resetToken == "" {
		return ErrEmptyToken
	}
	return nil
}

// GetOnboarding returns the profile saved for the token's account
func (s *Stub) GetOnboarding(ctx context.Context, token string) (onboarding.Profile, error) {
	if err := s.wait(ctx); err != nil {
		return onboarding.Profile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.accountLocked(token); a != nil {
		return a.profile, nil
	}
	return onboarding.DefaultProfile(), nil
}

// SaveOnboarding validates and stores the profile and marks the account onboarded
func (s *Stub) SaveOnboarding(ctx context.Context, token string, p onboarding.Profile) (session.Identity, error) {
	if err := s.wait(ctx); err != nil {
		return session.Identity{}, err
	}
	if err := onboarding.Validate(p); err != nil {
		return session.Identity{}, fmt.Errorf("failed to save onboarding: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accountLocked(token)
	if a == nil {
		// Trusted foreign token: nothing to persist
		return session.Identity{ID: DemoID, DisplayName: "Demo User", Email: "user@example.com", OnboardingCompleted: true}, nil
	}
	a.profile = p
	a.identity.OnboardingCompleted = true
	return a.identity, nil
}

func (s *Stub) accountLocked(token string) *account {
	email, ok := s.tokens[token]
	if !ok {
		return nil
	}
	return s.accounts[email]
}
