package domain

import "time"

// VerificationStatus is the eligibility state of a mitra.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// ParseVerificationStatus validates a status string.
func ParseVerificationStatus(value string) (VerificationStatus, bool) {
	switch VerificationStatus(value) {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return VerificationStatus(value), true
	default:
		return "", false
	}
}

// CanTransition reports whether an admin may move a mitra from s to next.
// Approving an approved mitra is allowed and re-stamps the verification time.
func (s VerificationStatus) CanTransition(next VerificationStatus) bool {
	switch next {
	case VerificationApproved:
		return s == VerificationPending || s == VerificationApproved
	case VerificationRejected:
		return s == VerificationPending || s == VerificationRejected
	default:
		return false
	}
}

// MitraStatus is the operational state of a mitra account.
type MitraStatus string

const (
	MitraActive    MitraStatus = "active"
	MitraInactive  MitraStatus = "inactive"
	MitraSuspended MitraStatus = "suspended"
)

// MitraProfile is the therapist-specific record attached to a mitra identity.
type MitraProfile struct {
	ID                 string
	UserID             string
	VerificationStatus VerificationStatus
	Status             MitraStatus
	KTPURL             *string
	CertificateURL     *string
	Bio                *string
	Specializations    []string
	VerifiedAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CanOperate reports whether the mitra may take orders.
func (m *MitraProfile) CanOperate() bool {
	return m != nil && m.VerificationStatus == VerificationApproved && m.Status == MitraActive
}

// MitraWithProfile is a mitra record joined with its identity profile.
type MitraWithProfile struct {
	MitraProfile
	Profile *Profile
}
