package handlers

import (
	"context"

	"github.com/spec-kit/mitra-marketplace/internal/auth"
	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/internal/service"
)

// AuthService is the registration and session backend.
type AuthService interface {
	Register(ctx context.Context, input service.RegisterInput) (*domain.Account, error)
	Login(ctx context.Context, email, password, from string) (*service.LoginResult, error)
	Logout(ctx context.Context, principal *auth.Principal) error
	CurrentSession(ctx context.Context, principal *auth.Principal) (*domain.Session, error)
	Refresh(ctx context.Context, principal *auth.Principal) (*domain.Session, error)
	Role(ctx context.Context, userID string) (domain.Role, error)
}

// VerificationService runs mitra verification.
type VerificationService interface {
	List(ctx context.Context, status *domain.VerificationStatus) ([]domain.MitraWithProfile, error)
	Pending(ctx context.Context) ([]domain.MitraWithProfile, error)
	Approve(ctx context.Context, actorID, mitraID string) (*domain.MitraProfile, error)
	Reject(ctx context.Context, actorID, mitraID string) (*domain.MitraProfile, error)
}

// UserAdminService lists users and reassigns roles.
type UserAdminService interface {
	List(ctx context.Context, filter service.UserFilter) (*service.UserListing, error)
	UpdateRole(ctx context.Context, actorID, userID string, role domain.Role) error
}

// StatsService computes admin counters.
type StatsService interface {
	Stats(ctx context.Context) (*domain.AdminStats, error)
}

// CatalogService manages massage services.
type CatalogService interface {
	List(ctx context.Context) ([]domain.Service, error)
	Create(ctx context.Context, input service.ServiceInput) (*domain.Service, error)
	Update(ctx context.Context, id string, input service.ServiceInput) (*domain.Service, error)
	Delete(ctx context.Context, id string) error
}

// PromoService manages discount codes.
type PromoService interface {
	List(ctx context.Context) ([]domain.Promo, error)
	Create(ctx context.Context, input service.PromoInput) (*domain.Promo, error)
	Update(ctx context.Context, id string, input service.PromoInput) (*domain.Promo, error)
	Delete(ctx context.Context, id string) error
}

// OrderService lists joined orders.
type OrderService interface {
	List(ctx context.Context, status *domain.OrderStatus) ([]domain.OrderWithDetails, error)
}

// FinanceService summarizes revenue.
type FinanceService interface {
	Summary(ctx context.Context) (*domain.FinanceSummary, error)
}

// DashboardService builds the customer and mitra home views.
type DashboardService interface {
	Customer(ctx context.Context, userID string) (*service.CustomerDashboard, error)
	Mitra(ctx context.Context, userID string) (*service.MitraHome, error)
}
