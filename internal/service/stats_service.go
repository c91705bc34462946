package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/mitra-marketplace/internal/cache"
	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/internal/repository"
	apperrors "github.com/spec-kit/mitra-marketplace/pkg/util/errorutil"
)

// StatsService computes the admin dashboard counters.
type StatsService struct {
	roles    repository.RoleRepository
	mitras   repository.MitraRepository
	services repository.ServiceRepository
	views    *cache.ViewCache
}

// NewStatsService builds the service.
func NewStatsService(roles repository.RoleRepository, mitras repository.MitraRepository, services repository.ServiceRepository, views *cache.ViewCache) *StatsService {
	return &StatsService{roles: roles, mitras: mitras, services: services, views: views}
}

// Stats returns the cached counters, computing them on a miss.
func (s *StatsService) Stats(ctx context.Context) (*domain.AdminStats, error) {
	stats, err := cache.Load(ctx, s.views, cache.KeyAdminStats, s.compute)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *StatsService) compute(ctx context.Context) (domain.AdminStats, error) {
	var (
		byRole                        map[domain.Role]int
		pending, active, serviceCount int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		byRole, err = s.roles.CountByRole(gctx)
		return err
	})
	g.Go(func() (err error) {
		pending, err = s.mitras.CountPending(gctx)
		return err
	})
	g.Go(func() (err error) {
		active, err = s.mitras.CountActive(gctx)
		return err
	})
	g.Go(func() (err error) {
		serviceCount, err = s.services.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.AdminStats{}, apperrors.MapError(err)
	}

	return domain.AdminStats{
		TotalUsers:           byRole[domain.RoleAdmin] + byRole[domain.RoleMitra] + byRole[domain.RoleCustomer],
		TotalMitra:           byRole[domain.RoleMitra],
		TotalCustomers:       byRole[domain.RoleCustomer],
		PendingVerifications: pending,
		ActiveMitra:          active,
		TotalServices:        serviceCount,
	}, nil
}
