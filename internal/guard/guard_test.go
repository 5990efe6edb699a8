package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/optivoo/crm/internal/session"
)

var paths = session.DefaultPaths

func signedIn(onboarded bool) session.State {
	return session.State{
		Initialized: true,
		Token:       "tok",
		Identity:    &session.Identity{ID: "u-1", OnboardingCompleted: onboarded},
	}
}

var signedOut = session.State{Initialized: true}

func TestDecide(t *testing.T) {
	tests := []struct {
		name   string
		intent Intent
		state  session.State
		want   Decision
	}{
		{
			name:   "loading wins over everything",
			intent: Intent{Path: "/dashboard", Access: RequireAuth},
			state:  session.State{Loading: true},
			want:   Decision{Kind: Loading},
		},
		{
			name:   "loading even when signed in on a public-only route",
			intent: Intent{Path: "/login", Access: PublicOnly},
			state:  session.State{Loading: true, Token: "t", Identity: &session.Identity{}},
			want:   Decision{Kind: Loading},
		},
		{
			name:   "signed out on restricted route carries return path",
			intent: Intent{Path: "/dashboard", Access: RequireAuth},
			state:  signedOut,
			want:   Decision{Kind: UnauthenticatedRestricted, Redirect: "/login", ReturnTo: "/dashboard"},
		},
		{
			name:   "token without identity is not authenticated",
			intent: Intent{Path: "/dashboard/contacts", Access: RequireAuth},
			state:  session.State{Initialized: true, Token: "orphan"},
			want:   Decision{Kind: UnauthenticatedRestricted, Redirect: "/login", ReturnTo: "/dashboard/contacts"},
		},
		{
			name:   "signed out on public-only route passes",
			intent: Intent{Path: "/login", Access: PublicOnly},
			state:  signedOut,
			want:   Decision{Kind: Pass},
		},
		{
			name:   "signed in, not onboarded, on sign-in goes to onboarding",
			intent: Intent{Path: "/login", Access: PublicOnly},
			state:  signedIn(false),
			want:   Decision{Kind: AuthenticatedPublicOnly, Redirect: "/onboarding/sector"},
		},
		{
			name:   "signed in, onboarded, on sign-up goes home",
			intent: Intent{Path: "/signup", Access: PublicOnly},
			state:  signedIn(true),
			want:   Decision{Kind: AuthenticatedPublicOnly, Redirect: "/dashboard"},
		},
		{
			name:   "not onboarded on dashboard goes to onboarding",
			intent: Intent{Path: "/dashboard", Access: RequireAuth},
			state:  signedIn(false),
			want:   Decision{Kind: IncompleteOnboarding, Redirect: "/onboarding/sector"},
		},
		{
			name:   "not onboarded inside onboarding passes",
			intent: Intent{Path: "/onboarding/hours", Access: RequireAuth},
			state:  signedIn(false),
			want:   Decision{Kind: Pass},
		},
		{
			name:   "lookalike prefix is not onboarding",
			intent: Intent{Path: "/onboardingx", Access: RequireAuth},
			state:  signedIn(false),
			want:   Decision{Kind: IncompleteOnboarding, Redirect: "/onboarding/sector"},
		},
		{
			name:   "onboarded on dashboard passes",
			intent: Intent{Path: "/dashboard/whatsapp", Access: RequireAuth},
			state:  signedIn(true),
			want:   Decision{Kind: Pass},
		},
		{
			name:   "onboarded may revisit onboarding",
			intent: Intent{Path: "/onboarding/sector", Access: RequireAuth},
			state:  signedIn(true),
			want:   Decision{Kind: Pass},
		},
		{
			name:   "public route passes for anyone",
			intent: Intent{Path: "/nowhere", Access: Public},
			state:  signedIn(false),
			want:   Decision{Kind: Pass},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.intent, tt.state, paths)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Kind == Pass, got.Render())
		})
	}
}

// Restricted route, no identity, not loading: always a sign-in redirect.
func TestDecide_RestrictedNeverPassesWhenSignedOut(t *testing.T) {
	for _, path := range []string{"/", "/dashboard", "/onboarding/sector", "/onboarding", "/x/y/z"} {
		got := Decide(Intent{Path: path, Access: RequireAuth}, signedOut, paths)
		assert.Equal(t, UnauthenticatedRestricted, got.Kind, path)
		assert.Equal(t, path, got.ReturnTo)
	}
}

// Restricted route, not onboarded, outside the onboarding prefix: always
// redirected to the onboarding entry.
func TestDecide_IncompleteOnboardingOutsidePrefix(t *testing.T) {
	for _, path := range []string{"/dashboard", "/dashboard/settings", "/reports", "/on"} {
		got := Decide(Intent{Path: path, Access: RequireAuth}, signedIn(false), paths)
		assert.Equal(t, IncompleteOnboarding, got.Kind, path)
		assert.Equal(t, "/onboarding/sector", got.Redirect)
	}
}

func TestUnderPrefix(t *testing.T) {
	assert.True(t, UnderPrefix("/onboarding", "/onboarding"))
	assert.True(t, UnderPrefix("/onboarding/tone", "/onboarding"))
	assert.True(t, UnderPrefix("/onboarding/tone", "/onboarding/"))
	assert.False(t, UnderPrefix("/onboardingx", "/onboarding"))
	assert.False(t, UnderPrefix("/dashboard", "/onboarding"))
	assert.True(t, UnderPrefix("/anything", ""))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "pass", Pass.String())
	assert.Equal(t, "incomplete-onboarding", IncompleteOnboarding.String())
	assert.Equal(t, "public-only", PublicOnly.String())
}
