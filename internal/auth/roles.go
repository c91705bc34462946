package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/internal/observability"
)

const roleKey = "auth_role"

// RoleSource resolves the role of an identity for a single request.
type RoleSource interface {
	Resolve(ctx context.Context, userID string) domain.RoleResolution
}

// Guard applies Decide to incoming requests.
type Guard struct {
	roles   RoleSource
	metrics *observability.Metrics
}

// NewGuard constructs a guard.
func NewGuard(roles RoleSource, metrics *observability.Metrics) *Guard {
	return &Guard{roles: roles, metrics: metrics}
}

// RequireRoles is NewGuard(roles, nil).Require(allowed...).
func RequireRoles(roles RoleSource, allowed ...domain.Role) fiber.Handler {
	return NewGuard(roles, nil).Require(allowed...)
}

// Require gates a view. The role is resolved synchronously, so the state seen by
// Decide is never loading. Denials are 303 redirects, not errors.
func (g *Guard) Require(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state := domain.SessionState{}
		if principal, ok := PrincipalFromContext(c); ok {
			identity := principal.Identity
			state.Identity = &identity
			state.Role = g.roles.Resolve(c.UserContext(), identity.ID)
		}

		decision := Decide(state, allowed, c.OriginalURL())
		g.metrics.RecordGuardDecision(decision.Kind.String())

		switch decision.Kind {
		case DecisionAllow:
			if role, ok := state.Role.Known(); ok {
				c.Locals(roleKey, role)
			}
			return c.Next()
		case DecisionRedirectLogin, DecisionRedirectHome:
			return c.Redirect(decision.Location, fiber.StatusSeeOther)
		default:
			c.Set(fiber.HeaderRetryAfter, "1")
			return fiber.NewError(fiber.StatusServiceUnavailable, "session is still resolving")
		}
	}
}

// RoleFromContext returns the role admitted by the guard.
func RoleFromContext(c *fiber.Ctx) (domain.Role, bool) {
	role, ok := c.Locals(roleKey).(domain.Role)
	return role, ok
}
