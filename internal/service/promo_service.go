package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/internal/repository"
	apperrors "github.com/spec-kit/mitra-marketplace/pkg/util/errorutil"
)

// Discount types accepted for promos.
const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// PromoInput describes a promo to create or update.
type PromoInput struct {
	Code           string
	Description    *string
	DiscountType   string
	DiscountValue  float64
	MinOrderAmount *float64
	MaxDiscount    *float64
	UsageLimit     *int
	IsActive       bool
	StartsAt       *time.Time
	ExpiresAt      *time.Time
}

// PromoService manages discount codes.
type PromoService struct {
	promos repository.PromoRepository
	now    func() time.Time
}

// NewPromoService builds the service.
func NewPromoService(promos repository.PromoRepository) *PromoService {
	return &PromoService{promos: promos, now: time.Now}
}

// List returns promos newest first.
func (s *PromoService) List(ctx context.Context) ([]domain.Promo, error) {
	promos, err := s.promos.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if promos == nil {
		promos = []domain.Promo{}
	}
	return promos, nil
}

// Create adds a promo. Codes are stored upper-case and must be unique.
func (s *PromoService) Create(ctx context.Context, input PromoInput) (*domain.Promo, error) {
	promo, err := s.build(input)
	if err != nil {
		return nil, err
	}
	if err := s.promos.Create(ctx, promo); err != nil {
		return nil, apperrors.MapError(err)
	}
	return promo, nil
}

// Update replaces the editable fields of a promo.
func (s *PromoService) Update(ctx context.Context, id string, input PromoInput) (*domain.Promo, error) {
	promo, err := s.build(input)
	if err != nil {
		return nil, err
	}
	promo.ID = id
	if err := s.promos.Update(ctx, promo); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("promo", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return promo, nil
}

// Delete removes a promo.
func (s *PromoService) Delete(ctx context.Context, id string) error {
	if err := s.promos.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("promo", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *PromoService) build(input PromoInput) (*domain.Promo, error) {
	details := map[string]any{}
	if input.DiscountType == DiscountPercentage && input.DiscountValue > 100 {
		details["discount_value"] = "percentage discount cannot exceed 100"
	}
	startsAt := s.now().UTC()
	if input.StartsAt != nil {
		startsAt = input.StartsAt.UTC()
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(startsAt) {
		details["expires_at"] = "expires_at must be after starts_at"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("promo is invalid", details)
	}

	return &domain.Promo{
		Code:           strings.ToUpper(strings.TrimSpace(input.Code)),
		Description:    input.Description,
		DiscountType:   input.DiscountType,
		DiscountValue:  input.DiscountValue,
		MinOrderAmount: input.MinOrderAmount,
		MaxDiscount:    input.MaxDiscount,
		UsageLimit:     input.UsageLimit,
		IsActive:       input.IsActive,
		StartsAt:       startsAt,
		ExpiresAt:      input.ExpiresAt,
	}, nil
}
