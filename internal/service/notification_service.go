package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-assistant/internal/config"
	"github.com/spec-kit/support-assistant/internal/events"
	"github.com/spec-kit/support-assistant/internal/gateway"
)

// ConfirmationGateway is the outbound email dispatch surface.
type ConfirmationGateway interface {
	SendConfirmation(ctx context.Context, email gateway.ConfirmationEmail) error
}

// NotificationService sends confirmation emails for submitted tickets.
// Dispatch is best effort everywhere: a failed email never affects the
// ticket outcome and is only logged.
type NotificationService struct {
	dispatcher events.Dispatcher
	gateway    ConfirmationGateway
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, gw ConfirmationGateway, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		gateway:    gw,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to the conversation events that trigger
// notifications.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketSubmitted, n.handleTicketSubmitted)
	n.dispatcher.Subscribe(events.EventTicketSynced, n.handleTicketSynced)
	n.dispatcher.Subscribe(events.EventTicketCapturedOffline, n.handleTicketCapturedOffline)
	n.dispatcher.Subscribe(events.EventClassificationFellBack, n.handleClassificationFellBack)
}

func (n *NotificationService) handleTicketSubmitted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketSubmittedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("ticket submitted",
		zap.String("ticket_id", payload.TicketID),
		zap.String("session_id", event.SessionID))

	email := gateway.ConfirmationEmail{
		Recipient:         payload.Email,
		TicketID:          payload.TicketID,
		Subject:           payload.Subject,
		Department:        payload.Department,
		Priority:          string(payload.Priority),
		Date:              event.Timestamp.Format(time.RFC3339),
		Statement:         payload.Statement,
		AICategory:        payload.Category,
		AutomatedResponse: payload.Automated,
	}
	if err := n.gateway.SendConfirmation(ctx, email); err != nil {
		n.logger.Warn("confirmation email failed",
			zap.String("ticket_id", payload.TicketID),
			zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handleTicketSynced(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketSyncedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("offline ticket synced",
		zap.String("local_id", payload.LocalID),
		zap.String("remote_id", payload.RemoteID),
		zap.String("session_id", event.SessionID))
	if payload.Email == "" {
		return nil
	}

	email := gateway.ConfirmationEmail{
		Recipient:         payload.Email,
		TicketID:          payload.RemoteID,
		Subject:           payload.Subject,
		Department:        payload.Department,
		Priority:          string(payload.Priority),
		Date:              event.Timestamp.Format(time.RFC3339),
		Statement:         payload.Statement,
		AICategory:        payload.Category,
		AutomatedResponse: payload.Automated,
	}
	if err := n.gateway.SendConfirmation(ctx, email); err != nil {
		n.logger.Warn("confirmation email failed",
			zap.String("ticket_id", payload.RemoteID),
			zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handleTicketCapturedOffline(ctx context.Context, event events.Event) error {
	n.logger.Info("ticket captured offline",
		zap.String("session_id", event.SessionID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleClassificationFellBack(ctx context.Context, event events.Event) error {
	n.logger.Info("classification fell back to local heuristic",
		zap.String("session_id", event.SessionID),
		zap.Any("payload", event.Payload))
	return nil
}
