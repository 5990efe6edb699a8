// Package session owns the visitor's session: who is signed in, the credential
// token backing it, and the transitions between signed-out, signed-in and
// onboarded. Front ends hold one Manager per visitor and subscribe to it.
package session

import (
	"context"
	"errors"
)

// Identity is the signed-in account
type Identity struct {
	ID                  string `json:"id"`
	DisplayName         string `json:"name"`
	Email               string `json:"email"`
	OnboardingCompleted bool   `json:"onboarding_completed"`
}

// State is a read-only snapshot of the session
type State struct {
	Identity    *Identity
	Token       string
	Loading     bool
	Initialized bool
}

// IsAuthenticated reports whether both a token and an identity are present
func (s State) IsAuthenticated() bool {
	return s.Token != "" && s.Identity != nil
}

// NeedsOnboarding reports whether a signed-in account has not finished onboarding
func (s State) NeedsOnboarding() bool {
	return s.IsAuthenticated() && !s.Identity.OnboardingCompleted
}

// Credentials is the payload of a successful authentication
type Credentials struct {
	Token    string
	Identity Identity
}

// Registration is the sign-up form
type Registration struct {
	Name     string
	Email    string
	Password string
	Confirm  string
}

// Authenticator is the external authentication collaborator. Both operations
// either succeed with a payload or fail; failure reasons are not inspected.
type Authenticator interface {
	Validate(ctx context.Context, token string) (Identity, error)
	Authenticate(ctx context.Context, email, password string) (Credentials, error)
}

// Registrar is implemented by authenticators that can create accounts
type Registrar interface {
	Register(ctx context.Context, reg Registration) (Credentials, error)
}

// Paths are the navigation targets the manager signals
type Paths struct {
	SignIn           string
	Home             string
	OnboardingEntry  string
	OnboardingPrefix string
}

// DefaultPaths matches the web front end's route table
var DefaultPaths = Paths{
	SignIn:           "/login",
	Home:             "/dashboard",
	OnboardingEntry:  "/onboarding/sector",
	OnboardingPrefix: "/onboarding",
}

// AfterSignIn returns where an identity should land after signing in
func (p Paths) AfterSignIn(id Identity) string {
	if !id.OnboardingCompleted {
		return p.OnboardingEntry
	}
	return p.Home
}

// NoticeLevel classifies a user-visible message
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient user-visible message
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Event is delivered to subscribers after every transition
type Event struct {
	State    State
	Navigate string
	Notice   *Notice
}

const minPasswordLength = 6

var (
	ErrLoginFailed      = errors.New("login failed")
	ErrLoginInProgress  = errors.New("a sign-in is already in progress")
	ErrLoginSuperseded  = errors.New("sign-in was superseded by a sign-out")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrRegisterFailed   = errors.New("registration failed")
	ErrNoRegistrar      = errors.New("authenticator does not support registration")
)

// User-visible messages
const (
	msgLoginSuccess      = "Signed in successfully"
	msgLoginFailed       = "Sign-in failed. Check your credentials."
	msgLoginInProgress   = "A sign-in is already in progress"
	msgLoggedOut         = "You have signed out"
	msgOnboardingDone    = "Initial setup complete!"
	msgPasswordMismatch  = "Passwords do not match"
	msgPasswordTooShort  = "Password must be at least 6 characters"
	msgRegisterSuccess   = "Account created successfully!"
	msgRegisterFailed    = "Could not create the account"
	msgSessionSaveFailed = "Could not save your session. Please try again."
)
