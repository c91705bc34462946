package auth

import (
	"net/url"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
)

// LoginPath is where unauthenticated visitors are sent.
const LoginPath = "/login"

// LandingPath receives identities whose role could not be resolved.
const LandingPath = "/"

// DecisionKind enumerates guard outcomes.
type DecisionKind int

const (
	// DecisionWait means the session is still loading; render only a waiting indicator.
	DecisionWait DecisionKind = iota
	// DecisionRedirectLogin sends the visitor to login, preserving the requested location.
	DecisionRedirectLogin
	// DecisionRedirectHome silently sends the identity to a location it may see.
	DecisionRedirectHome
	// DecisionAllow renders the requested view.
	DecisionAllow
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionWait:
		return "wait"
	case DecisionRedirectLogin:
		return "redirect_login"
	case DecisionRedirectHome:
		return "redirect_home"
	case DecisionAllow:
		return "allow"
	default:
		return "unknown"
	}
}

// Decision is the outcome for one navigation request. Location is set for redirects.
type Decision struct {
	Kind     DecisionKind
	Location string
}

// Redirect reports whether the decision navigates away from the requested view.
func (d Decision) Redirect() bool {
	return d.Kind == DecisionRedirectLogin || d.Kind == DecisionRedirectHome
}

// LoginLocation builds the login URL carrying the requested location.
func LoginLocation(requested string) string {
	if requested == "" {
		return LoginPath
	}
	return LoginPath + "?from=" + url.QueryEscape(requested)
}

// Decide gates a request for a view. An empty allowed list admits any
// authenticated identity. A role that is still pending waits; a role that could
// not be resolved is never admitted to a role-gated view.
func Decide(state domain.SessionState, allowed []domain.Role, requested string) Decision {
	if state.Loading {
		return Decision{Kind: DecisionWait}
	}
	if !state.Authenticated() {
		return Decision{Kind: DecisionRedirectLogin, Location: LoginLocation(requested)}
	}
	if len(allowed) == 0 {
		return Decision{Kind: DecisionAllow}
	}

	switch state.Role.Status {
	case domain.RolePending:
		return Decision{Kind: DecisionWait}
	case domain.RoleResolved:
		for _, role := range allowed {
			if role == state.Role.Role {
				return Decision{Kind: DecisionAllow}
			}
		}
		return Decision{Kind: DecisionRedirectHome, Location: state.Role.Role.HomePath()}
	default:
		return Decision{Kind: DecisionRedirectHome, Location: LandingPath}
	}
}
