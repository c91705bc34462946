package dto

import (
	"time"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
)

// RegisterRequest payload for customer sign-up.
type RegisterRequest struct {
	FullName        string `json:"full_name" form:"full_name"`
	Email           string `json:"email" form:"email"`
	Phone           string `json:"phone" form:"phone"`
	City            string `json:"city" form:"city"`
	Bio             string `json:"bio" form:"bio"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
	AgreeTerms      bool   `json:"agree_terms" form:"agree_terms"`
}

// LoginRequest payload for sign-in. From is where the caller was redirected from.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	From     string `json:"from"`
}

// AccountResponse describes a freshly registered account.
type AccountResponse struct {
	UserID             string                     `json:"user_id"`
	Email              string                     `json:"email"`
	FullName           string                     `json:"full_name"`
	Role               domain.Role                `json:"role"`
	MitraID            *string                    `json:"mitra_id,omitempty"`
	VerificationStatus *domain.VerificationStatus `json:"verification_status,omitempty"`
}

// SessionResponse is the public view of a session.
type SessionResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthResponse is returned by sign-in and refresh.
type AuthResponse struct {
	Token      string          `json:"token"`
	ExpiresAt  time.Time       `json:"expires_at"`
	Session    SessionResponse `json:"session"`
	Role       *domain.Role    `json:"role"`
	RedirectTo string          `json:"redirect_to,omitempty"`
}

// RoleResponse carries the caller's stored role.
type RoleResponse struct {
	Role domain.Role `json:"role"`
}

// NewSessionResponse maps a session.
func NewSessionResponse(s *domain.Session) SessionResponse {
	return SessionResponse{
		ID:        s.ID,
		UserID:    s.UserID,
		Email:     s.Email,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
}

// NewAccountResponse maps a registered account.
func NewAccountResponse(a *domain.Account) AccountResponse {
	resp := AccountResponse{
		UserID:   a.User.ID,
		Email:    a.User.Email,
		FullName: a.Profile.FullName,
		Role:     a.Role,
	}
	if a.Mitra != nil {
		id, status := a.Mitra.ID, a.Mitra.VerificationStatus
		resp.MitraID = &id
		resp.VerificationStatus = &status
	}
	return resp
}
