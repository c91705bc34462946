package cli

import (
	"strconv"
	"time"

	"github.com/spec-kit/mitra-marketplace/internal/api/dto"
)

func profileName(p *dto.ProfileResponse) string {
	if p == nil || p.FullName == "" {
		return "Unknown"
	}
	return p.FullName
}

func profileField(p *dto.ProfileResponse, field string) string {
	if p == nil {
		return "-"
	}
	switch field {
	case "phone":
		return deref(p.Phone)
	case "city":
		return deref(p.City)
	default:
		return "-"
	}
}

func deref(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateFormat)
}

// formatMoney renders rupiah with dot thousands separators.
func formatMoney(amount float64) string {
	digits := strconv.FormatInt(int64(amount), 10)
	negative := len(digits) > 0 && digits[0] == '-'
	if negative {
		digits = digits[1:]
	}
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, digits[i])
	}
	if negative {
		return "-Rp " + string(out)
	}
	return "Rp " + string(out)
}
