package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
	apperrors "github.com/spec-kit/mitra-marketplace/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Identity  domain.Identity
	SessionID string
	ExpiresAt time.Time
}

// SessionStore is the read side of the session repository.
type SessionStore interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
}

// Authenticator resolves bearer tokens or session cookies into principals.
type Authenticator struct {
	tokens     *TokenManager
	sessions   SessionStore
	cookieName string
}

// NewAuthenticator constructs middleware.
func NewAuthenticator(tokens *TokenManager, sessions SessionStore, cookieName string) *Authenticator {
	return &Authenticator{tokens: tokens, sessions: sessions, cookieName: cookieName}
}

// Authenticate validates a raw token and checks that its session is still live.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, apperrors.NewUnauthorized("missing credentials")
	}
	claims, err := a.tokens.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}

	session, err := a.sessions.Get(ctx, claims.SessionID())
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, apperrors.NewUnauthorized("session expired")
		}
		return nil, apperrors.MapError(err)
	}
	if session.UserID != claims.UserID() {
		return nil, apperrors.NewUnauthorized("session does not match token")
	}

	return &Principal{
		Identity:  domain.Identity{ID: session.UserID, Email: session.Email},
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// TokenFromRequest reads the bearer token, falling back to the session cookie.
func (a *Authenticator) TokenFromRequest(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if a.cookieName == "" {
		return ""
	}
	return c.Cookies(a.cookieName)
}

// Identify attaches the principal when the request carries valid credentials and
// continues either way. Guarded views rely on it so anonymous visitors can be
// redirected instead of rejected.
func (a *Authenticator) Identify(c *fiber.Ctx) error {
	if token := a.TokenFromRequest(c); token != "" {
		if principal, err := a.Authenticate(c.UserContext(), token); err == nil {
			c.Locals(principalKey, principal)
		}
	}
	return c.Next()
}

// Require enforces authentication for API routes.
func (a *Authenticator) Require(c *fiber.Ctx) error {
	principal, err := a.Authenticate(c.UserContext(), a.TokenFromRequest(c))
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
