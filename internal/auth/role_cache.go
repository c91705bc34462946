package auth

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/mitra-marketplace/internal/domain"
)

// RoleReader reads the role-assignment record of an identity.
type RoleReader interface {
	GetByUserID(ctx context.Context, userID string) (*domain.UserRole, error)
}

// RoleResolver resolves roles with a short-lived in-process cache.
type RoleResolver struct {
	roles  RoleReader
	cache  *expirable.LRU[string, domain.Role]
	logger *zap.Logger
}

// NewRoleResolver builds a resolver caching up to size roles for ttl.
func NewRoleResolver(roles RoleReader, size int, ttl time.Duration, logger *zap.Logger) *RoleResolver {
	if size <= 0 {
		size = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleResolver{
		roles:  roles,
		cache:  expirable.NewLRU[string, domain.Role](size, nil, ttl),
		logger: logger,
	}
}

// Lookup returns the stored role. It returns pgx.ErrNoRows when none is assigned
// and an error for unknown stored values.
func (r *RoleResolver) Lookup(ctx context.Context, userID string) (domain.Role, error) {
	if role, ok := r.cache.Get(userID); ok {
		return role, nil
	}
	record, err := r.roles.GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	role, err := domain.ParseRole(string(record.Role))
	if err != nil {
		return "", err
	}
	r.cache.Add(userID, role)
	return role, nil
}

// Resolve maps a lookup onto a resolution. Failures resolve to missing, never to a role.
func (r *RoleResolver) Resolve(ctx context.Context, userID string) domain.RoleResolution {
	role, err := r.Lookup(ctx, userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("role lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return domain.MissingRole()
	}
	return domain.ResolvedRole(role)
}

// Invalidate drops the cached role for userID.
func (r *RoleResolver) Invalidate(userID string) {
	r.cache.Remove(userID)
}
