package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/internal/repository"
)

// Display names used when a joined record is absent.
const (
	UnknownName    = "Unknown"
	UnassignedName = "Unassigned"
	NoServiceName  = "-"
)

// nameIndex maps user ids to full names and service ids to service names.
type nameIndex struct {
	people   map[string]string
	services map[string]string
}

// loadNames fetches the names behind a set of orders with one profile query and
// one service query, run concurrently.
func loadNames(ctx context.Context, profiles repository.ProfileRepository, services repository.ServiceRepository, orders []domain.Order) (*nameIndex, error) {
	userIDs := uniqueIDs(len(orders)*2, func(add func(string)) {
		for _, o := range orders {
			add(o.CustomerID)
			if o.MitraID != nil {
				add(*o.MitraID)
			}
		}
	})
	serviceIDs := uniqueIDs(len(orders), func(add func(string)) {
		for _, o := range orders {
			if o.ServiceID != nil {
				add(*o.ServiceID)
			}
		}
	})

	idx := &nameIndex{people: map[string]string{}, services: map[string]string{}}
	var (
		people  []domain.Profile
		catalog []domain.Service
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		people, err = profiles.ListByUserIDs(gctx, userIDs)
		return err
	})
	g.Go(func() (err error) {
		catalog, err = services.ListByIDs(gctx, serviceIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, p := range people {
		idx.people[p.UserID] = p.FullName
	}
	for _, s := range catalog {
		idx.services[s.ID] = s.Name
	}
	return idx, nil
}

func (idx *nameIndex) customer(o domain.Order) string {
	if name, ok := idx.people[o.CustomerID]; ok && name != "" {
		return name
	}
	return UnknownName
}

func (idx *nameIndex) mitra(o domain.Order) string {
	if o.MitraID == nil {
		return UnassignedName
	}
	if name, ok := idx.people[*o.MitraID]; ok && name != "" {
		return name
	}
	return UnassignedName
}

// service names an order's treatment; missing is the fallback when the id no
// longer resolves.
func (idx *nameIndex) service(o domain.Order, missing string) string {
	if o.ServiceID == nil {
		return NoServiceName
	}
	if name, ok := idx.services[*o.ServiceID]; ok && name != "" {
		return name
	}
	return missing
}

func (idx *nameIndex) details(o domain.Order) domain.OrderWithDetails {
	return domain.OrderWithDetails{
		Order:        o,
		CustomerName: idx.customer(o),
		MitraName:    idx.mitra(o),
		ServiceName:  idx.service(o, UnknownName),
	}
}

func uniqueIDs(capacity int, collect func(add func(string))) []string {
	seen := make(map[string]struct{}, capacity)
	ids := make([]string, 0, capacity)
	collect(func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	})
	return ids
}
