// Package guard decides, for one navigation, whether the requested view is
// rendered or the visitor is redirected.
package guard

import (
	"strings"

	"github.com/optivoo/crm/internal/session"
)

// Access is the static per-route authentication requirement
type Access int

const (
	// Public routes render for everyone
	Public Access = iota
	// RequireAuth routes need a signed-in visitor
	RequireAuth
	// PublicOnly routes must not be seen by a signed-in visitor (sign-in, sign-up)
	PublicOnly
)

func (a Access) String() string {
	switch a {
	case RequireAuth:
		return "require-auth"
	case PublicOnly:
		return "public-only"
	default:
		return "public"
	}
}

// Intent is the navigation being evaluated
type Intent struct {
	Path   string
	Access Access
}

// Kind names the state the decision landed in
type Kind int

const (
	Pass Kind = iota
	Loading
	UnauthenticatedRestricted
	AuthenticatedPublicOnly
	IncompleteOnboarding
)

func (k Kind) String() string {
	switch k {
	case Loading:
		return "loading"
	case UnauthenticatedRestricted:
		return "unauthenticated-restricted"
	case AuthenticatedPublicOnly:
		return "authenticated-public-only"
	case IncompleteOnboarding:
		return "incomplete-onboarding"
	default:
		return "pass"
	}
}

// Decision is the outcome of one evaluation
type Decision struct {
	Kind     Kind
	Redirect string
	// ReturnTo is the originally requested path, advisory only
	ReturnTo string
}

// Render reports whether the requested view should be shown as is
func (d Decision) Render() bool {
	return d.Kind == Pass
}

// Decide evaluates the checks in order; the first match wins. Redirect
// targets are not re-evaluated here, their own navigation does that.
func Decide(in Intent, st session.State, paths session.Paths) Decision {
	if st.Loading {
		return Decision{Kind: Loading}
	}

	authed := st.IsAuthenticated()

	if in.Access == RequireAuth && !authed {
		return Decision{Kind: UnauthenticatedRestricted, Redirect: paths.SignIn, ReturnTo: in.Path}
	}

	if in.Access == PublicOnly && authed {
		return Decision{Kind: AuthenticatedPublicOnly, Redirect: paths.AfterSignIn(*st.Identity)}
	}

	if in.Access == RequireAuth && !st.Identity.OnboardingCompleted && !UnderPrefix(in.Path, paths.OnboardingPrefix) {
		return Decision{Kind: IncompleteOnboarding, Redirect: paths.OnboardingEntry}
	}

	return Decision{Kind: Pass}
}

// UnderPrefix reports whether path is prefix itself or below it. Matching is
// by whole segments, so "/onboardingx" is not under "/onboarding".
func UnderPrefix(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return true
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}
