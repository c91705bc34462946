package registration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/mitra-marketplace/pkg/util/errorutil"
)

func validMitraForm() Form {
	return Form{
		Kind:            KindMitra,
		FullName:        " Sari Dewi ",
		Email:           "Sari@Example.com",
		Phone:           "081234567890",
		Bio:             "Certified therapist",
		Password:        "rahasia",
		ConfirmPassword: "rahasia",
		AgreeTerms:      true,
		KTP:             &Document{Name: "ktp.jpg", ContentType: "image/jpeg", Size: 2048},
	}
}

func details(t *testing.T, err error) map[string]any {
	t.Helper()
	require.Error(t, err)
	de := errorutil.ToDomainError(err)
	require.Equal(t, "VALIDATION_FAILED", de.Code)
	return de.Details
}

func TestValidMitraFormNormalizes(t *testing.T) {
	f := validMitraForm()
	require.NoError(t, f.Validate())
	assert.Equal(t, "Sari Dewi", f.FullName)
	assert.Equal(t, "sari@example.com", f.Email)
}

func TestMitraFormRequiresKTP(t *testing.T) {
	f := validMitraForm()
	f.KTP = nil
	assert.Equal(t, "KTP image is required", details(t, f.Validate())["ktp"])
}

func TestMitraFormRejectsNonImageKTP(t *testing.T) {
	f := validMitraForm()
	f.KTP.ContentType = "application/zip"
	assert.Equal(t, "KTP must be an image", details(t, f.Validate())["ktp"])
}

func TestPasswordMismatch(t *testing.T) {
	f := validMitraForm()
	f.ConfirmPassword = "berbeda"
	assert.Equal(t, "passwords do not match", details(t, f.Validate())["confirm_password"])
}

func TestMitraFormRequiresTerms(t *testing.T) {
	f := validMitraForm()
	f.AgreeTerms = false
	assert.Equal(t, "you must agree to the terms and conditions", details(t, f.Validate())["agree_terms"])
}

func TestWeakPasswordAndBadEmail(t *testing.T) {
	f := validMitraForm()
	f.Password, f.ConfirmPassword = "abc", "abc"
	f.Email = "not-an-email"
	d := details(t, f.Validate())
	assert.Equal(t, "password must be at least 6 characters long", d["password"])
	assert.Contains(t, d, "email")
}

func TestCustomerFormNeedsNoDocuments(t *testing.T) {
	f := Form{
		FullName:        "Budi",
		Email:           "budi@example.com",
		Phone:           "08111111111",
		Password:        "rahasia",
		ConfirmPassword: "rahasia",
	}
	require.NoError(t, f.Validate())
	assert.Equal(t, KindCustomer, f.Kind)
	assert.Equal(t, "customer", string(f.Kind.Role()))
}
