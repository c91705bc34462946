package domain

import "time"

// User is the credential record behind an identity.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile holds the public, displayable part of an identity.
type Profile struct {
	ID        string
	UserID    string
	FullName  string
	Phone     *string
	City      *string
	Address   *string
	AvatarURL *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Account bundles everything written when someone registers.
type Account struct {
	User    User
	Profile Profile
	Role    Role
	Mitra   *MitraProfile
}

// AdminUser is a profile joined with its role for the user administration view.
type AdminUser struct {
	UserID    string    `json:"user_id"`
	FullName  string    `json:"full_name"`
	Phone     *string   `json:"phone"`
	City      *string   `json:"city"`
	AvatarURL *string   `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	Role      Role      `json:"role"`
}
