package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSignedIn                 EventType = "auth.signed_in"
	EventSignedOut                EventType = "auth.signed_out"
	EventUserRegistered           EventType = "user.registered"
	EventMitraRegistered          EventType = "mitra.registered"
	EventMitraVerificationChanged EventType = "mitra.verification_changed"
	EventUserRoleChanged          EventType = "user.role_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id,omitempty"`
	SubjectID string      `json:"subject_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, actorID, subjectID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ActorID:   actorID,
		SubjectID: subjectID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// SessionPayload accompanies sign-in and sign-out events.
type SessionPayload struct {
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
}

// UserRegisteredPayload accompanies every new account.
type UserRegisteredPayload struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
}

// MitraRegisteredPayload payload.
type MitraRegisteredPayload struct {
	MitraID  string `json:"mitra_id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// VerificationChangedPayload payload.
type VerificationChangedPayload struct {
	MitraID    string                    `json:"mitra_id"`
	UserID     string                    `json:"user_id"`
	OldStatus  domain.VerificationStatus `json:"old_status"`
	NewStatus  domain.VerificationStatus `json:"new_status"`
	VerifiedAt *time.Time                `json:"verified_at,omitempty"`
}

// RoleChangedPayload payload.
type RoleChangedPayload struct {
	UserID  string      `json:"user_id"`
	OldRole domain.Role `json:"old_role,omitempty"`
	NewRole domain.Role `json:"new_role"`
}
