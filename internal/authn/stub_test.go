package authn

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optivoo/crm/internal/onboarding"
	"github.com/optivoo/crm/internal/session"
	"github.com/optivoo/crm/internal/slot"
)

var _ session.Authenticator = (*Stub)(nil)
var _ session.Registrar = (*Stub)(nil)

func TestStub_DemoAccount(t *testing.T) {
	s := NewStub()
	ctx := context.Background()

	creds, err := s.Authenticate(ctx, " ADMIN@optivoo.com ", DemoPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, creds.Token)
	assert.True(t, creds.Identity.OnboardingCompleted)
	assert.Equal(t, DemoName, creds.Identity.DisplayName)

	id, err := s.Validate(ctx, creds.Token)
	require.NoError(t, err)
	assert.Equal(t, creds.Identity, id)

	_, err = s.Authenticate(ctx, DemoEmail, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Authenticate(ctx, "nobody@optivoo.com", DemoPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestStub_ValidateTrustsUnknownTokens(t *testing.T) {
	s := NewStub()

	id, err := s.Validate(context.Background(), "anything")
	require.NoError(t, err)
	assert.NotEmpty(t, id.ID)
	assert.False(t, id.OnboardingCompleted)

	_, err = s.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyToken)
}

func TestStub_RegisterAndOnboard(t *testing.T) {
	s := NewStub()
	ctx := context.Background()

	creds, err := s.Register(ctx, session.Registration{Name: "Bea", Email: "bea@example.com", Password: "secret1", Confirm: "secret1"})
	require.NoError(t, err)
	assert.False(t, creds.Identity.OnboardingCompleted)

	_, err = s.Register(ctx, session.Registration{Name: "Bea", Email: "BEA@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	p, err := s.GetOnboarding(ctx, creds.Token)
	require.NoError(t, err)
	assert.Equal(t, onboarding.DefaultProfile(), p)

	_, err = s.SaveOnboarding(ctx, creds.Token, onboarding.Profile{Sector: "nope"})
	require.Error(t, err)

	p = onboarding.Profile{Sector: "education", Tone: "formal", HoursStart: "07:00", HoursEnd: "13:00", SupportType: "voice"}
	id, err := s.SaveOnboarding(ctx, creds.Token, p)
	require.NoError(t, err)
	assert.True(t, id.OnboardingCompleted)

	got, err := s.GetOnboarding(ctx, creds.Token)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	// Signing in again reflects the completed onboarding
	again, err := s.Authenticate(ctx, "bea@example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, again.Identity.OnboardingCompleted)
}

func TestStub_ForgotPassword(t *testing.T) {
	msg, err := NewStub().ForgotPassword(context.Background(), "whoever@example.com")
	require.NoError(t, err)
	assert.Equal(t, ForgotPasswordMessage, msg)
}

func TestStub_ResetPassword(t *testing.T) {
	s := NewStub()
	assert.NoError(t, s.ResetPassword(context.Background(), "any", "newpass1"))
	assert.ErrorIs(t, s.ResetPassword(context.Background(), "", "newpass1"), ErrEmptyToken)
}

func TestStub_LatencyHonoursContext(t *testing.T) {
	s := NewStub(WithLatency(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Authenticate(ctx, DemoEmail, DemoPassword)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStub_DrivesManager(t *testing.T) {
	store := slot.NewMemory("")
	m := session.NewManager(NewStub(), store)
	m.Initialize(context.Background())

	nav, err := m.Login(context.Background(), DemoEmail, DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, session.DefaultPaths.Home, nav)

	token, err := store.Load()
	require.NoError(t, err)

	// A fresh manager over the same slot restores the session
	restored := session.NewManager(NewStub(), store)
	restored.Initialize(context.Background())
	assert.True(t, restored.Snapshot().IsAuthenticated())
	assert.Equal(t, token, restored.Snapshot().Token)
}
