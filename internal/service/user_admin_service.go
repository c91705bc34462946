package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/mitra-marketplace/internal/cache"
	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/internal/events"
	"github.com/spec-kit/mitra-marketplace/internal/repository"
	apperrors "github.com/spec-kit/mitra-marketplace/pkg/util/errorutil"
)

// UserFilter narrows the user administration listing.
type UserFilter struct {
	Search string
	Role   *domain.Role
}

// UserListing is the filtered user view plus counts over every user.
type UserListing struct {
	Users  []domain.AdminUser  `json:"users"`
	Counts map[domain.Role]int `json:"counts"`
	Total  int                 `json:"total"`
}

// UserAdminService lists identities with their roles and reassigns roles.
type UserAdminService struct {
	profiles   repository.ProfileRepository
	roles      repository.RoleRepository
	views      *cache.ViewCache
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewUserAdminService builds the service.
func NewUserAdminService(profiles repository.ProfileRepository, roles repository.RoleRepository, views *cache.ViewCache, dispatcher events.Dispatcher, logger *zap.Logger) *UserAdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserAdminService{
		profiles:   profiles,
		roles:      roles,
		views:      views,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// List returns users matching filter. Identities without a role record are
// shown as customers.
func (s *UserAdminService) List(ctx context.Context, filter UserFilter) (*UserListing, error) {
	all, err := cache.Load(ctx, s.views, cache.KeyAdminUsers, s.loadUsers)
	if err != nil {
		return nil, err
	}

	listing := &UserListing{
		Users:  []domain.AdminUser{},
		Counts: map[domain.Role]int{},
		Total:  len(all),
	}
	term := strings.ToLower(strings.TrimSpace(filter.Search))
	for _, u := range all {
		listing.Counts[u.Role]++
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if term != "" && !matchesUser(u, term) {
			continue
		}
		listing.Users = append(listing.Users, u)
	}
	return listing, nil
}

func (s *UserAdminService) loadUsers(ctx context.Context) ([]domain.AdminUser, error) {
	var (
		profiles []domain.Profile
		roles    []domain.UserRole
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profiles, err = s.profiles.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		roles, err = s.roles.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.MapError(err)
	}

	byUser := make(map[string]domain.Role, len(roles))
	for _, r := range roles {
		byUser[r.UserID] = r.Role
	}

	users := make([]domain.AdminUser, len(profiles))
	for i, p := range profiles {
		role, ok := byUser[p.UserID]
		if !ok {
			role = domain.RoleCustomer
		}
		users[i] = domain.AdminUser{
			UserID:    p.UserID,
			FullName:  p.FullName,
			Phone:     p.Phone,
			City:      p.City,
			AvatarURL: p.AvatarURL,
			CreatedAt: p.CreatedAt,
			Role:      role,
		}
	}
	return users, nil
}

func matchesUser(u domain.AdminUser, term string) bool {
	if strings.Contains(strings.ToLower(u.FullName), term) {
		return true
	}
	if u.Phone != nil && strings.Contains(strings.ToLower(*u.Phone), term) {
		return true
	}
	return u.City != nil && strings.Contains(strings.ToLower(*u.City), term)
}

// UpdateRole reassigns the role of userID.
func (s *UserAdminService) UpdateRole(ctx context.Context, actorID, userID string, role domain.Role) error {
	if !role.Valid() {
		return apperrors.NewValidationError("invalid role", map[string]any{"role": string(role)})
	}
	if _, err := s.profiles.GetByUserID(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", map[string]any{"id": userID})
		}
		return apperrors.MapError(err)
	}

	var previous domain.Role
	if current, err := s.roles.GetByUserID(ctx, userID); err == nil {
		previous = current.Role
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.MapError(err)
	}

	if err := s.roles.Upsert(ctx, userID, role); err != nil {
		return apperrors.MapError(err)
	}

	if err := s.views.Invalidate(ctx, cache.KeyAdminUsers, cache.KeyAdminStats); err != nil {
		s.logger.Warn("failed to invalidate user views", zap.String("user_id", userID), zap.Error(err))
	}
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventUserRoleChanged, actorID, userID,
			events.RoleChangedPayload{UserID: userID, OldRole: previous, NewRole: role}))
	}
	return nil
}
