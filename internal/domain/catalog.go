package domain

import "time"

// Service is a bookable massage treatment in the catalog.
type Service struct {
	ID              string
	Name            string
	Description     *string
	BasePrice       float64
	DurationMinutes int
	Icon            *string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Promo is a discount code.
type Promo struct {
	ID             string
	Code           string
	Description    *string
	DiscountType   string
	DiscountValue  float64
	MinOrderAmount *float64
	MaxDiscount    *float64
	UsageLimit     *int
	UsedCount      int
	IsActive       bool
	StartsAt       time.Time
	ExpiresAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
