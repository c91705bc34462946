package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/pkg/util/errorutil"
)

// Validator wraps go-playground/validator with JSON field names and
// human-readable messages.
type Validator struct {
	validate  *validator.Validate
	overrides map[string]string
}

var (
	defaultOnce sync.Once
	defaultV    *Validator
)

// Default returns a shared validator.
func Default() *Validator {
	defaultOnce.Do(func() { defaultV = New() })
	return defaultV
}

// New creates a validator with the marketplace's custom tags registered.
func New() *Validator {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	_ = validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return domain.Role(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("verification_status", func(fl validator.FieldLevel) bool {
		_, ok := domain.ParseVerificationStatus(fl.Field().String())
		return ok
	})

	return &Validator{validate: validate, overrides: map[string]string{}}
}

// WithMessage returns a copy that renders field failures of tag with message.
func (v *Validator) WithMessage(field, tag, message string) *Validator {
	overrides := make(map[string]string, len(v.overrides)+1)
	for k, m := range v.overrides {
		overrides[k] = m
	}
	overrides[field+"/"+tag] = message
	return &Validator{validate: v.validate, overrides: overrides}
}

// Struct validates s and returns a VALIDATION_FAILED DomainError whose details map
// each failing field to a message.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return errorutil.NewInternalError(err)
	}
	return errorutil.NewValidationError("validation failed", v.Details(errs))
}

// Details renders validation errors as field → message.
func (v *Validator) Details(errs validator.ValidationErrors) map[string]any {
	details := make(map[string]any, len(errs))
	for _, fe := range errs {
		field := fe.Field()
		if _, seen := details[field]; seen {
			continue
		}
		if msg, ok := v.overrides[field+"/"+fe.Tag()]; ok {
			details[field] = msg
			continue
		}
		details[field] = message(fe)
	}
	return details
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s must match %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "role":
		return fmt.Sprintf("%s must be admin, mitra or customer", field)
	case "verification_status":
		return fmt.Sprintf("%s must be pending, approved or rejected", field)
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid UUID", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// Var validates a single value against tag.
func (v *Validator) Var(field any, tag string) error {
	return v.validate.Var(field, tag)
}
