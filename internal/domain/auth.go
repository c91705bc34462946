package domain

import (
	"errors"
	"time"
)

// ErrSessionNotFound is returned when a session record does not exist or has expired.
var ErrSessionNotFound = errors.New("session not found")

// Identity is the authenticated principal as cached by clients.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is a remote authentication session.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	AccessToken string    `json:"access_token,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Identity returns the principal the session belongs to.
func (s *Session) Identity() *Identity {
	if s == nil {
		return nil
	}
	return &Identity{ID: s.UserID, Email: s.Email}
}

// IsExpired reports whether the session is past its expiry at reference.
func (s *Session) IsExpired(reference time.Time) bool {
	if s == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !s.ExpiresAt.After(reference)
}

// SessionState is the in-memory pairing of identity, role and loading flag.
type SessionState struct {
	Identity *Identity
	Role     RoleResolution
	Loading  bool
}

// Authenticated reports whether an identity is present.
func (s SessionState) Authenticated() bool {
	return s.Identity != nil
}
