package service

import (
	"context"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/internal/repository"
	apperrors "github.com/spec-kit/mitra-marketplace/pkg/util/errorutil"
)

// OrderService lists bookings joined with display names.
type OrderService struct {
	orders   repository.OrderRepository
	profiles repository.ProfileRepository
	services repository.ServiceRepository
}

// NewOrderService builds the service.
func NewOrderService(orders repository.OrderRepository, profiles repository.ProfileRepository, services repository.ServiceRepository) *OrderService {
	return &OrderService{orders: orders, profiles: profiles, services: services}
}

// List returns every order newest first, optionally narrowed to one status.
func (s *OrderService) List(ctx context.Context, status *domain.OrderStatus) ([]domain.OrderWithDetails, error) {
	filter := repository.OrderFilter{}
	if status != nil {
		filter.Statuses = []domain.OrderStatus{*status}
	}
	return s.list(ctx, filter)
}

// ForCustomer returns the customer's own orders newest first.
func (s *OrderService) ForCustomer(ctx context.Context, customerID string, limit int) ([]domain.OrderWithDetails, error) {
	return s.list(ctx, repository.OrderFilter{CustomerID: &customerID, Limit: limit})
}

func (s *OrderService) list(ctx context.Context, filter repository.OrderFilter) ([]domain.OrderWithDetails, error) {
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	result := make([]domain.OrderWithDetails, 0, len(orders))
	if len(orders) == 0 {
		return result, nil
	}

	names, err := loadNames(ctx, s.profiles, s.services, orders)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, o := range orders {
		result = append(result, names.details(o))
	}
	return result, nil
}
