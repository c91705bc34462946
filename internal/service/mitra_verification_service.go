package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/mitra-marketplace/internal/cache"
	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/internal/events"
	"github.com/spec-kit/mitra-marketplace/internal/observability"
	"github.com/spec-kit/mitra-marketplace/internal/repository"
	apperrors "github.com/spec-kit/mitra-marketplace/pkg/util/errorutil"
)

// MitraVerificationService runs the admin approve/reject workflow.
type MitraVerificationService struct {
	mitras     repository.MitraRepository
	profiles   repository.ProfileRepository
	views      *cache.ViewCache
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// MitraVerificationDependencies bundles collaborators.
type MitraVerificationDependencies struct {
	MitraRepo   repository.MitraRepository
	ProfileRepo repository.ProfileRepository
	Views       *cache.ViewCache
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewMitraVerificationService builds the service.
func NewMitraVerificationService(deps MitraVerificationDependencies) *MitraVerificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MitraVerificationService{
		mitras:     deps.MitraRepo,
		profiles:   deps.ProfileRepo,
		views:      deps.Views,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// List returns mitra records newest first, each joined with its identity profile.
// Profiles are fetched in one batch and joined through a map, so the cost is two
// queries regardless of the number of records.
func (s *MitraVerificationService) List(ctx context.Context, status *domain.VerificationStatus) ([]domain.MitraWithProfile, error) {
	mitras, err := s.mitras.List(ctx, repository.MitraFilter{Status: status})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(mitras) == 0 {
		return []domain.MitraWithProfile{}, nil
	}

	userIDs := make([]string, 0, len(mitras))
	seen := make(map[string]struct{}, len(mitras))
	for _, m := range mitras {
		if _, ok := seen[m.UserID]; ok {
			continue
		}
		seen[m.UserID] = struct{}{}
		userIDs = append(userIDs, m.UserID)
	}

	profiles, err := s.profiles.ListByUserIDs(ctx, userIDs)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byUser := make(map[string]*domain.Profile, len(profiles))
	for i := range profiles {
		byUser[profiles[i].UserID] = &profiles[i]
	}

	result := make([]domain.MitraWithProfile, len(mitras))
	for i, m := range mitras {
		result[i] = domain.MitraWithProfile{MitraProfile: m, Profile: byUser[m.UserID]}
	}
	return result, nil
}

// Pending returns the cached list of mitra awaiting verification.
func (s *MitraVerificationService) Pending(ctx context.Context) ([]domain.MitraWithProfile, error) {
	return cache.Load(ctx, s.views, cache.KeyPendingMitra, func(ctx context.Context) ([]domain.MitraWithProfile, error) {
		status := domain.VerificationPending
		return s.List(ctx, &status)
	})
}

// Approve marks the mitra approved and stamps the verification time. Approving an
// approved mitra stamps it again.
func (s *MitraVerificationService) Approve(ctx context.Context, actorID, mitraID string) (*domain.MitraProfile, error) {
	return s.transition(ctx, actorID, mitraID, domain.VerificationApproved)
}

// Reject marks the mitra rejected and leaves the verification time untouched.
func (s *MitraVerificationService) Reject(ctx context.Context, actorID, mitraID string) (*domain.MitraProfile, error) {
	return s.transition(ctx, actorID, mitraID, domain.VerificationRejected)
}

func (s *MitraVerificationService) transition(ctx context.Context, actorID, mitraID string, next domain.VerificationStatus) (*domain.MitraProfile, error) {
	current, err := s.mitras.GetByID(ctx, mitraID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("mitra", map[string]any{"id": mitraID})
		}
		return nil, apperrors.MapError(err)
	}
	if !current.VerificationStatus.CanTransition(next) {
		return nil, conflictTransition(current.VerificationStatus, next)
	}

	var verifiedAt *time.Time
	if next == domain.VerificationApproved {
		stamp := s.now().UTC()
		verifiedAt = &stamp
	}

	updated, err := s.mitras.UpdateVerification(ctx, mitraID, next, verifiedAt, sourcesOf(next))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Status changed between the read and the write.
			return nil, conflictTransition(current.VerificationStatus, next)
		}
		return nil, apperrors.MapError(err)
	}

	if err := s.views.Invalidate(ctx, cache.KeyPendingMitra, cache.KeyAdminStats); err != nil {
		s.logger.Warn("failed to invalidate verification views", zap.String("mitra_id", mitraID), zap.Error(err))
	}
	s.metrics.RecordVerification(string(next))
	s.logger.Info("mitra verification updated",
		zap.String("mitra_id", mitraID),
		zap.String("actor_id", actorID),
		zap.String("from", string(current.VerificationStatus)),
		zap.String("to", string(next)))

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventMitraVerificationChanged, actorID, updated.UserID,
			events.VerificationChangedPayload{
				MitraID:    updated.ID,
				UserID:     updated.UserID,
				OldStatus:  current.VerificationStatus,
				NewStatus:  updated.VerificationStatus,
				VerifiedAt: updated.VerifiedAt,
			}))
	}
	return updated, nil
}

func sourcesOf(next domain.VerificationStatus) []domain.VerificationStatus {
	var from []domain.VerificationStatus
	for _, status := range []domain.VerificationStatus{
		domain.VerificationPending,
		domain.VerificationApproved,
		domain.VerificationRejected,
	} {
		if status.CanTransition(next) {
			from = append(from, status)
		}
	}
	return from
}

func conflictTransition(from, to domain.VerificationStatus) error {
	return apperrors.NewConflict("verification status cannot change", map[string]any{
		"from": string(from),
		"to":   string(to),
	})
}
