package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/mitra-marketplace/internal/cache"
	"github.com/spec-kit/mitra-marketplace/internal/events"
	"github.com/spec-kit/mitra-marketplace/internal/service"
)

// RoleInvalidator drops cached roles.
type RoleInvalidator interface {
	Invalidate(userID string)
}

// ViewInvalidator drops cached admin views.
type ViewInvalidator interface {
	Invalidate(ctx context.Context, names ...string) error
}

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// StartRoleCacheInvalidator evicts cached roles when an admin reassigns one, so
// the next guarded request sees the new role.
func StartRoleCacheInvalidator(dispatcher events.Dispatcher, roles RoleInvalidator, logger *zap.Logger) {
	if dispatcher == nil || roles == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher.Subscribe(events.EventUserRoleChanged, func(_ context.Context, event events.Event) error {
		roles.Invalidate(event.SubjectID)
		logger.Debug("role cache invalidated", zap.String("user_id", event.SubjectID))
		return nil
	})
}

// StartViewInvalidator drops the admin views a new account shows up in.
func StartViewInvalidator(dispatcher events.Dispatcher, views ViewInvalidator, logger *zap.Logger) {
	if dispatcher == nil || views == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	drop := func(names ...string) events.EventHandler {
		return func(ctx context.Context, event events.Event) error {
			if err := views.Invalidate(ctx, names...); err != nil {
				return err
			}
			logger.Debug("admin views invalidated",
				zap.String("event_type", string(event.Type)),
				zap.Strings("views", names))
			return nil
		}
	}
	dispatcher.Subscribe(events.EventUserRegistered, drop(cache.KeyAdminUsers, cache.KeyAdminStats))
	dispatcher.Subscribe(events.EventMitraRegistered, drop(cache.KeyPendingMitra))
}
