package dto

import (
	"time"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
)

// UpdateRoleRequest payload for role reassignment.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

// ServiceRequest payload for catalog writes.
type ServiceRequest struct {
	Name            string  `json:"name" validate:"required,max=120"`
	Description     *string `json:"description"`
	BasePrice       float64 `json:"base_price" validate:"gte=0"`
	DurationMinutes int     `json:"duration_minutes" validate:"gt=0,lte=600"`
	Icon            *string `json:"icon"`
	IsActive        *bool   `json:"is_active"`
}

// PromoRequest payload for promo writes.
type PromoRequest struct {
	Code           string     `json:"code" validate:"required,max=40"`
	Description    *string    `json:"description"`
	DiscountType   string     `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue  float64    `json:"discount_value" validate:"gt=0"`
	MinOrderAmount *float64   `json:"min_order_amount" validate:"omitempty,gte=0"`
	MaxDiscount    *float64   `json:"max_discount" validate:"omitempty,gte=0"`
	UsageLimit     *int       `json:"usage_limit" validate:"omitempty,gt=0"`
	IsActive       *bool      `json:"is_active"`
	StartsAt       *time.Time `json:"starts_at"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

// ProfileResponse is the displayable part of an identity.
type ProfileResponse struct {
	UserID    string  `json:"user_id"`
	FullName  string  `json:"full_name"`
	Phone     *string `json:"phone"`
	City      *string `json:"city"`
	AvatarURL *string `json:"avatar_url"`
}

// MitraResponse is a mitra record with its identity profile.
type MitraResponse struct {
	ID                 string                    `json:"id"`
	UserID             string                    `json:"user_id"`
	VerificationStatus domain.VerificationStatus `json:"verification_status"`
	Status             domain.MitraStatus        `json:"status"`
	KTPURL             *string                   `json:"ktp_url"`
	CertificateURL     *string                   `json:"certificate_url"`
	Bio                *string                   `json:"bio"`
	Specializations    []string                  `json:"specializations"`
	VerifiedAt         *time.Time                `json:"verified_at"`
	CreatedAt          time.Time                 `json:"created_at"`
	Profile            *ProfileResponse          `json:"profile"`
}

// ServiceResponse is a catalog entry.
type ServiceResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	BasePrice       float64   `json:"base_price"`
	DurationMinutes int       `json:"duration_minutes"`
	Icon            *string   `json:"icon"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// PromoResponse is a discount code.
type PromoResponse struct {
	ID             string     `json:"id"`
	Code           string     `json:"code"`
	Description    *string    `json:"description"`
	DiscountType   string     `json:"discount_type"`
	DiscountValue  float64    `json:"discount_value"`
	MinOrderAmount *float64   `json:"min_order_amount"`
	MaxDiscount    *float64   `json:"max_discount"`
	UsageLimit     *int       `json:"usage_limit"`
	UsedCount      int        `json:"used_count"`
	IsActive       bool       `json:"is_active"`
	StartsAt       time.Time  `json:"starts_at"`
	ExpiresAt      *time.Time `json:"expires_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// OrderResponse is an order with display names.
type OrderResponse struct {
	ID           string             `json:"id"`
	CustomerID   string             `json:"customer_id"`
	CustomerName string             `json:"customer_name"`
	MitraID      *string            `json:"mitra_id"`
	MitraName    string             `json:"mitra_name"`
	ServiceID    *string            `json:"service_id"`
	ServiceName  string             `json:"service_name"`
	Status       domain.OrderStatus `json:"status"`
	TotalPrice   float64            `json:"total_price"`
	Address      *string            `json:"address"`
	ScheduledAt  *time.Time         `json:"scheduled_at"`
	Notes        *string            `json:"notes"`
	CreatedAt    time.Time          `json:"created_at"`
}

// CustomerDashboardResponse is the customer home view.
type CustomerDashboardResponse struct {
	Email   string           `json:"email"`
	Profile *ProfileResponse `json:"profile"`
	Orders  []OrderResponse  `json:"orders"`
}

// MitraHomeResponse is the mitra home view.
type MitraHomeResponse struct {
	Mitra      MitraResponse `json:"mitra"`
	CanOperate bool          `json:"can_operate"`
}

// NewProfileResponse maps a profile; nil stays nil.
func NewProfileResponse(p *domain.Profile) *ProfileResponse {
	if p == nil {
		return nil
	}
	return &ProfileResponse{
		UserID:    p.UserID,
		FullName:  p.FullName,
		Phone:     p.Phone,
		City:      p.City,
		AvatarURL: p.AvatarURL,
	}
}

// NewMitraResponse maps a mitra record and optional profile.
func NewMitraResponse(m *domain.MitraProfile, profile *domain.Profile) MitraResponse {
	specializations := m.Specializations
	if specializations == nil {
		specializations = []string{}
	}
	return MitraResponse{
		ID:                 m.ID,
		UserID:             m.UserID,
		VerificationStatus: m.VerificationStatus,
		Status:             m.Status,
		KTPURL:             m.KTPURL,
		CertificateURL:     m.CertificateURL,
		Bio:                m.Bio,
		Specializations:    specializations,
		VerifiedAt:         m.VerifiedAt,
		CreatedAt:          m.CreatedAt,
		Profile:            NewProfileResponse(profile),
	}
}

// NewServiceResponse maps a catalog entry.
func NewServiceResponse(s *domain.Service) ServiceResponse {
	return ServiceResponse{
		ID:              s.ID,
		Name:            s.Name,
		Description:     s.Description,
		BasePrice:       s.BasePrice,
		DurationMinutes: s.DurationMinutes,
		Icon:            s.Icon,
		IsActive:        s.IsActive,
		CreatedAt:       s.CreatedAt,
	}
}

// NewPromoResponse maps a promo.
func NewPromoResponse(p *domain.Promo) PromoResponse {
	return PromoResponse{
		ID:             p.ID,
		Code:           p.Code,
		Description:    p.Description,
		DiscountType:   p.DiscountType,
		DiscountValue:  p.DiscountValue,
		MinOrderAmount: p.MinOrderAmount,
		MaxDiscount:    p.MaxDiscount,
		UsageLimit:     p.UsageLimit,
		UsedCount:      p.UsedCount,
		IsActive:       p.IsActive,
		StartsAt:       p.StartsAt,
		ExpiresAt:      p.ExpiresAt,
		CreatedAt:      p.CreatedAt,
	}
}

// NewOrderResponse maps a joined order.
func NewOrderResponse(o *domain.OrderWithDetails) OrderResponse {
	return OrderResponse{
		ID:           o.ID,
		CustomerID:   o.CustomerID,
		CustomerName: o.CustomerName,
		MitraID:      o.MitraID,
		MitraName:    o.MitraName,
		ServiceID:    o.ServiceID,
		ServiceName:  o.ServiceName,
		Status:       o.Status,
		TotalPrice:   o.TotalPrice,
		Address:      o.Address,
		ScheduledAt:  o.ScheduledAt,
		Notes:        o.Notes,
		CreatedAt:    o.CreatedAt,
	}
}

// NewOrderResponses maps a list of joined orders.
func NewOrderResponses(orders []domain.OrderWithDetails) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, NewOrderResponse(&orders[i]))
	}
	return out
}
