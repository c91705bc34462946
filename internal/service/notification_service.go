package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/mitra-marketplace/internal/config"
	"github.com/spec-kit/mitra-marketplace/internal/events"
)

// NotificationService emits notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventMitraRegistered, n.handleMitraRegistered)
	n.dispatcher.Subscribe(events.EventMitraVerificationChanged, n.handleVerificationChanged)
	n.dispatcher.Subscribe(events.EventUserRoleChanged, n.handleRoleChanged)
	n.dispatcher.Subscribe(events.EventSignedIn, n.handleSessionEvent)
	n.dispatcher.Subscribe(events.EventSignedOut, n.handleSessionEvent)
}

func (n *NotificationService) handleMitraRegistered(ctx context.Context, event events.Event) error {
	n.logger.Info("MitraRegistered", zap.String("subject_id", event.SubjectID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleVerificationChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("MitraVerificationChanged",
		zap.String("subject_id", event.SubjectID),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleRoleChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("UserRoleChanged",
		zap.String("subject_id", event.SubjectID),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleSessionEvent(_ context.Context, event events.Event) error {
	n.logger.Debug("SessionEvent", zap.String("type", string(event.Type)), zap.String("subject_id", event.SubjectID))
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("subject_id", event.SubjectID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("subject_id", event.SubjectID),
		zap.String("event_type", string(event.Type)))
}
