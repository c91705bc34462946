package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/internal/repository"
	apperrors "github.com/spec-kit/mitra-marketplace/pkg/util/errorutil"
)

const dashboardOrders = 20

// CustomerDashboard is the customer home view.
type CustomerDashboard struct {
	Email   string
	Profile *domain.Profile
	Orders  []domain.OrderWithDetails
}

// MitraHome is the mitra home view.
type MitraHome struct {
	Profile    *domain.Profile
	Mitra      *domain.MitraProfile
	CanOperate bool
}

// DashboardService builds the role home views.
type DashboardService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	mitras   repository.MitraRepository
	orders   *OrderService
}

// NewDashboardService builds the service.
func NewDashboardService(users repository.UserRepository, profiles repository.ProfileRepository, mitras repository.MitraRepository, orders *OrderService) *DashboardService {
	return &DashboardService{users: users, profiles: profiles, mitras: mitras, orders: orders}
}

// Customer returns the caller's profile and latest orders.
func (s *DashboardService) Customer(ctx context.Context, userID string) (*CustomerDashboard, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", userID)
	}
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	orders, err := s.orders.ForCustomer(ctx, userID, dashboardOrders)
	if err != nil {
		return nil, err
	}
	return &CustomerDashboard{Email: user.Email, Profile: profile, Orders: orders}, nil
}

// Mitra returns the caller's mitra record and whether it may take orders.
func (s *DashboardService) Mitra(ctx context.Context, userID string) (*MitraHome, error) {
	mitra, err := s.mitras.GetByUserID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "mitra", userID)
	}
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	return &MitraHome{Profile: profile, Mitra: mitra, CanOperate: mitra.CanOperate()}, nil
}

func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.MapError(err)
}
