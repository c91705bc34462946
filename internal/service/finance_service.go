package service

import (
	"context"
	"sort"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/internal/repository"
	apperrors "github.com/spec-kit/mitra-marketplace/pkg/util/errorutil"
)

const (
	revenueMonths      = 12
	recentTransactions = 10
)

// FinanceService aggregates orders into revenue figures.
type FinanceService struct {
	orders   repository.OrderRepository
	profiles repository.ProfileRepository
	services repository.ServiceRepository
}

// NewFinanceService builds the service.
func NewFinanceService(orders repository.OrderRepository, profiles repository.ProfileRepository, services repository.ServiceRepository) *FinanceService {
	return &FinanceService{orders: orders, profiles: profiles, services: services}
}

// Summary computes revenue totals, monthly buckets and the latest transactions.
func (s *FinanceService) Summary(ctx context.Context) (*domain.FinanceSummary, error) {
	orders, err := s.orders.List(ctx, repository.OrderFilter{})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	summary := Summarize(orders)

	recent := orders
	if len(recent) > recentTransactions {
		recent = recent[:recentTransactions]
	}
	summary.RecentTransactions = make([]domain.Transaction, 0, len(recent))
	if len(recent) == 0 {
		return &summary, nil
	}

	names, err := loadNames(ctx, s.profiles, s.services, recent)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, o := range recent {
		summary.RecentTransactions = append(summary.RecentTransactions, domain.Transaction{
			ID:           o.ID,
			CustomerName: names.customer(o),
			ServiceName:  names.service(o, NoServiceName),
			TotalPrice:   o.TotalPrice,
			Status:       o.Status,
			CreatedAt:    o.CreatedAt,
		})
	}
	return &summary, nil
}

// Summarize computes the totals and monthly revenue of orders. Revenue counts
// completed orders only. Months are UTC, ascending, and limited to the latest 12
// months that had completed orders.
func Summarize(orders []domain.Order) domain.FinanceSummary {
	summary := domain.FinanceSummary{RevenueByMonth: []domain.MonthlyRevenue{}}
	months := map[string]*domain.MonthlyRevenue{}

	for _, o := range orders {
		switch {
		case o.Status == domain.OrderCompleted:
			summary.TotalRevenue += o.TotalPrice
			summary.CompletedOrders++
			key := o.CreatedAt.UTC().Format("2006-01")
			bucket, ok := months[key]
			if !ok {
				bucket = &domain.MonthlyRevenue{Month: key}
				months[key] = bucket
			}
			bucket.Revenue += o.TotalPrice
			bucket.Orders++
		case o.Status.IsOpen():
			summary.PendingRevenue += o.TotalPrice
		case o.Status == domain.OrderCancelled:
			summary.CancelledOrders++
		}
	}

	for _, bucket := range months {
		summary.RevenueByMonth = append(summary.RevenueByMonth, *bucket)
	}
	sort.Slice(summary.RevenueByMonth, func(i, j int) bool {
		return summary.RevenueByMonth[i].Month < summary.RevenueByMonth[j].Month
	})
	if n := len(summary.RevenueByMonth); n > revenueMonths {
		summary.RevenueByMonth = summary.RevenueByMonth[n-revenueMonths:]
	}
	return summary
}
