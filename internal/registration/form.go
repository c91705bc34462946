// Package registration validates sign-up submissions before anything reaches
// the backend.
package registration

import (
	"strings"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/pkg/util/errorutil"
	"github.com/spec-kit/mitra-marketplace/pkg/util/validation"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// Kind distinguishes customer and mitra sign-ups.
type Kind string

const (
	KindCustomer Kind = "customer"
	KindMitra    Kind = "mitra"
)

// Role is the role granted by the sign-up kind.
func (k Kind) Role() domain.Role {
	if k == KindMitra {
		return domain.RoleMitra
	}
	return domain.RoleCustomer
}

// Document describes an uploaded file. Content is read by the document store.
type Document struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// IsImage reports whether the document declares an image content type.
func (d *Document) IsImage() bool {
	return d != nil && strings.HasPrefix(strings.ToLower(d.ContentType), "image/")
}

// Form is a registration submission.
type Form struct {
	Kind            Kind      `json:"kind" validate:"required,oneof=customer mitra"`
	FullName        string    `json:"full_name" validate:"required,min=2,max=120"`
	Email           string    `json:"email" validate:"required,email"`
	Phone           string    `json:"phone" validate:"required,min=8,max=20"`
	City            string    `json:"city" validate:"max=80"`
	Bio             string    `json:"bio" validate:"max=1000"`
	Password        string    `json:"password" validate:"required,min=6"`
	ConfirmPassword string    `json:"confirm_password" validate:"required,eqfield=Password"`
	AgreeTerms      bool      `json:"agree_terms" validate:"required_if=Kind mitra"`
	KTP             *Document `json:"ktp" validate:"required_if=Kind mitra"`
	Certificate     *Document `json:"certificate"`
}

var formValidator = validation.Default().
	WithMessage("confirm_password", "eqfield", "passwords do not match").
	WithMessage("agree_terms", "required_if", "you must agree to the terms and conditions").
	WithMessage("ktp", "required_if", "KTP image is required").
	WithMessage("password", "min", "password must be at least 6 characters long")

// Normalize trims whitespace and lowercases the email.
func (f *Form) Normalize() {
	f.FullName = strings.TrimSpace(f.FullName)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.Phone = strings.TrimSpace(f.Phone)
	f.City = strings.TrimSpace(f.City)
	f.Bio = strings.TrimSpace(f.Bio)
	if f.Kind == "" {
		f.Kind = KindCustomer
	}
}

// Validate normalizes the form and reports every failing field.
func (f *Form) Validate() error {
	f.Normalize()

	details := map[string]any{}
	if err := formValidator.Struct(f); err != nil {
		de := errorutil.ToDomainError(err)
		if de.Code != "VALIDATION_FAILED" {
			return err
		}
		for field, msg := range de.Details {
			details[field] = msg
		}
	}

	if f.Kind == KindMitra && f.KTP != nil && (!f.KTP.IsImage() || f.KTP.Size <= 0) {
		if _, set := details["ktp"]; !set {
			details["ktp"] = "KTP must be an image"
		}
	}

	if len(details) > 0 {
		return errorutil.NewValidationError("registration is invalid", details)
	}
	return nil
}
