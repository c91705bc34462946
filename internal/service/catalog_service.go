package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/mitra-marketplace/internal/cache"
	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/internal/repository"
	apperrors "github.com/spec-kit/mitra-marketplace/pkg/util/errorutil"
)

// ServiceInput describes a catalog entry to create or update.
type ServiceInput struct {
	Name            string
	Description     *string
	BasePrice       float64
	DurationMinutes int
	Icon            *string
	IsActive        bool
}

// CatalogService manages the massage service catalog.
type CatalogService struct {
	services repository.ServiceRepository
	views    *cache.ViewCache
	logger   *zap.Logger
}

// NewCatalogService builds the service.
func NewCatalogService(services repository.ServiceRepository, views *cache.ViewCache, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{services: services, views: views, logger: logger}
}

// List returns the catalog newest first.
func (s *CatalogService) List(ctx context.Context) ([]domain.Service, error) {
	services, err := s.services.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if services == nil {
		services = []domain.Service{}
	}
	return services, nil
}

// Create adds a catalog entry.
func (s *CatalogService) Create(ctx context.Context, input ServiceInput) (*domain.Service, error) {
	service := &domain.Service{}
	applyServiceInput(service, input)
	if err := s.services.Create(ctx, service); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidateStats(ctx)
	return service, nil
}

// Update replaces the editable fields of a catalog entry.
func (s *CatalogService) Update(ctx context.Context, id string, input ServiceInput) (*domain.Service, error) {
	service := &domain.Service{ID: id}
	applyServiceInput(service, input)
	if err := s.services.Update(ctx, service); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return service, nil
}

// Delete removes a catalog entry.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if err := s.services.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("service", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	s.invalidateStats(ctx)
	return nil
}

func (s *CatalogService) invalidateStats(ctx context.Context) {
	if err := s.views.Invalidate(ctx, cache.KeyAdminStats); err != nil {
		s.logger.Warn("failed to invalidate stats view", zap.Error(err))
	}
}

func applyServiceInput(service *domain.Service, input ServiceInput) {
	service.Name = strings.TrimSpace(input.Name)
	service.Description = input.Description
	service.BasePrice = input.BasePrice
	service.DurationMinutes = input.DurationMinutes
	service.Icon = input.Icon
	service.IsActive = input.IsActive
}
