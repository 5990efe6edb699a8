package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/optivoo/crm/internal/slot"
)

// Manager owns one visitor's session and its transitions. It is safe for
// concurrent use; collaborator calls never run under the lock.
type Manager struct {
	auth  Authenticator
	slot  slot.Slot
	paths Paths
	log   zerolog.Logger

	mu           sync.Mutex
	state        State
	initializing bool
	loginActive  bool
	// generation changes whenever the session is populated or cleared; a
	// pending sign-in resolving under an older generation is discarded
	generation uint64
	listeners  []listener
	nextID     int
}

type listener struct {
	id int
	fn func(Event)
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the manager's logger
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = log.With().Str("component", "session").Logger()
	}
}

// WithPaths overrides the navigation targets
func WithPaths(paths Paths) Option {
	return func(m *Manager) {
		m.paths = paths
	}
}

// NewManager creates an empty, not yet initialized session
func NewManager(auth Authenticator, s slot.Slot, opts ...Option) *Manager {
	m := &Manager{
		auth:  auth,
		slot:  s,
		paths: DefaultPaths,
		log:   zerolog.Nop(),
		state: State{Loading: true},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Paths returns the navigation targets in use
func (m *Manager) Paths() Paths {
	return m.paths
}

// Snapshot returns a copy of the current state
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() State {
	s := m.state
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}
	return s
}

func (m *Manager) refreshLoadingLocked() {
	m.state.Loading = m.initializing || !m.state.Initialized || m.loginActive
}

// Subscribe registers fn for every subsequent transition. The returned
// function removes the subscription.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) publish(ev Event) {
	m.mu.Lock()
	fns := make([]func(Event), len(m.listeners))
	for i, l := range m.listeners {
		fns[i] = l.fn
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Initialize restores the session from the durable slot. A missing, unreadable
// or rejected token leaves the visitor signed out; it is never an error.
// Loading is cleared on return in every case.
func (m *Manager) Initialize(ctx context.Context) {
	m.mu.Lock()
	m.initializing = true
	gen := m.generation
	m.refreshLoadingLocked()
	m.mu.Unlock()

	var (
		identity *Identity
		token    string
	)

	stored, err := m.slot.Load()
	switch {
	case errors.Is(err, slot.ErrEmpty):
		m.log.Debug().Msg("No stored credential")
	case err != nil:
		m.log.Warn().Err(err).Msg("Failed to read credential slot, treating as signed out")
		m.clearSlot()
	default:
		id, err := m.auth.Validate(ctx, stored)
		switch {
		case err != nil && ctx.Err() != nil:
			// Abandoned, not rejected: the stored token stays for the next run
			m.log.Debug().Err(err).Msg("Credential validation cancelled")
		case err != nil:
			m.log.Info().Err(err).Msg("Stored credential rejected, signing out")
			m.clearSlot()
		default:
			identity, token = &id, stored
		}
	}

	m.mu.Lock()
	m.initializing = false
	m.state.Initialized = true
	// A sign-in or sign-out that landed meanwhile wins over the stored token
	if gen == m.generation && identity != nil {
		m.state.Identity = identity
		m.state.Token = token
	}
	m.refreshLoadingLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.log.Debug().Bool("authenticated", snap.IsAuthenticated()).Msg("Session initialized")
	m.publish(Event{State: snap})
}

func (m *Manager) clearSlot() {
	if err := m.slot.Clear(); err != nil {
		m.log.Warn().Err(err).Msg("Failed to clear credential slot")
	}
}

// Login authenticates and, on success, persists the token and returns the
// navigation target. Failures leave the session untouched, publish an error
// notice and return an error wrapping ErrLoginFailed.
func (m *Manager) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.TrimSpace(email)

	gen, ok := m.beginSignIn()
	if !ok {
		return "", ErrLoginInProgress
	}

	creds, err := m.auth.Authenticate(ctx, email, password)
	if err != nil {
		m.log.Info().Err(err).Str("email", email).Msg("Sign-in rejected")
		err = fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	return m.finishSignIn(ctx, gen, creds, err, msgLoginFailed, msgLoginSuccess)
}

// Register creates an account through the authenticator and signs it in.
// Confirmation and length problems are reported before any call is made.
func (m *Manager) Register(ctx context.Context, reg Registration) (string, error) {
	reg.Email = strings.TrimSpace(reg.Email)

	if reg.Password != reg.Confirm {
		m.notify(NoticeError, msgPasswordMismatch)
		return "", ErrPasswordMismatch
	}
	if len(reg.Password) < minPasswordLength {
		m.notify(NoticeError, msgPasswordTooShort)
		return "", ErrPasswordTooShort
	}

	registrar, ok := m.auth.(Registrar)
	if !ok {
		m.notify(NoticeError, msgRegisterFailed)
		return "", ErrNoRegistrar
	}

	gen, ok := m.beginSignIn()
	if !ok {
		return "", ErrLoginInProgress
	}

	creds, err := registrar.Register(ctx, reg)
	if err != nil {
		m.log.Info().Err(err).Str("email", reg.Email).Msg("Registration rejected")
		err = fmt.Errorf("%w: %w", ErrRegisterFailed, err)
	}
	return m.finishSignIn(ctx, gen, creds, err, msgRegisterFailed, msgRegisterSuccess)
}

// beginSignIn enforces a single pending sign-in per manager
func (m *Manager) beginSignIn() (uint64, bool) {
	m.mu.Lock()
	if m.loginActive {
		m.mu.Unlock()
		m.notify(NoticeError, msgLoginInProgress)
		return 0, false
	}
	m.loginActive = true
	gen := m.generation
	m.refreshLoadingLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(Event{State: snap})
	return gen, true
}

func (m *Manager) finishSignIn(ctx context.Context, gen uint64, creds Credentials, authErr error, failMsg, okMsg string) (string, error) {
	m.mu.Lock()

	var (
		err    error
		notice *Notice
		nav    string
	)

	switch {
	case ctx.Err() != nil:
		// The initiator went away; drop the result silently
		err = ctx.Err()
	case gen != m.generation:
		err = ErrLoginSuperseded
	case authErr != nil:
		err = authErr
		notice = &Notice{Level: NoticeError, Message: failMsg}
	case creds.Token == "":
		err = fmt.Errorf("%w: collaborator returned an empty token", ErrLoginFailed)
		notice = &Notice{Level: NoticeError, Message: failMsg}
	default:
		// The slot write shares the lock with Logout so a sign-out can't
		// interleave between the generation check and the write
		if saveErr := m.slot.Save(creds.Token); saveErr != nil {
			m.log.Error().Err(saveErr).Msg("Failed to persist credential")
			err = fmt.Errorf("failed to persist credential: %w", saveErr)
			notice = &Notice{Level: NoticeError, Message: msgSessionSaveFailed}
			break
		}
		id := creds.Identity
		m.state.Identity = &id
		m.state.Token = creds.Token
		m.generation++
		nav = m.paths.AfterSignIn(id)
		notice = &Notice{Level: NoticeSuccess, Message: okMsg}
	}

	m.loginActive = false
	if !m.initializing {
		m.state.Initialized = true
	}
	m.refreshLoadingLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if err != nil && notice == nil {
		m.log.Debug().Err(err).Msg("Discarded stale sign-in result")
	}
	m.publish(Event{State: snap, Navigate: nav, Notice: notice})

	if err != nil {
		return "", err
	}
	m.log.Info().Str("user_id", snap.Identity.ID).Str("navigate", nav).Msg("Signed in")
	return nav, nil
}

// Logout clears the durable slot and the session and returns the sign-in
// path. It never fails; a slot error is only logged.
func (m *Manager) Logout() string {
	m.mu.Lock()
	m.clearSlot()
	m.state.Identity = nil
	m.state.Token = ""
	m.generation++
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.log.Info().Msg("Signed out")
	m.publish(Event{
		State:    snap,
		Navigate: m.paths.SignIn,
		Notice:   &Notice{Level: NoticeInfo, Message: msgLoggedOut},
	})
	return m.paths.SignIn
}

// CompleteOnboarding marks the signed-in account as onboarded and returns the
// home path. Without a signed-in account it does nothing and returns "".
func (m *Manager) CompleteOnboarding() string {
	m.mu.Lock()
	if !m.state.IsAuthenticated() {
		m.mu.Unlock()
		m.log.Warn().Msg("CompleteOnboarding called without a signed-in account")
		return ""
	}
	id := *m.state.Identity
	id.OnboardingCompleted = true
	m.state.Identity = &id
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.publish(Event{
		State:    snap,
		Navigate: m.paths.Home,
		Notice:   &Notice{Level: NoticeSuccess, Message: msgOnboardingDone},
	})
	return m.paths.Home
}

func (m *Manager) notify(level NoticeLevel, msg string) {
	m.publish(Event{State: m.Snapshot(), Notice: &Notice{Level: level, Message: msg}})
}
