// Package worker runs background jobs for the chat engine. The only job is
// the offline ticket sync loop: tickets captured while the remote system
// was down are retried until they land.
package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-assistant/internal/domain"
	"github.com/spec-kit/support-assistant/internal/events"
	"github.com/spec-kit/support-assistant/internal/repository"
)

// TicketCreator is the remote surface the worker retries against.
type TicketCreator interface {
	CreateTicket(ctx context.Context, draft domain.TicketDraft) (string, error)
}

// SyncWorker drains the offline ticket queue on a fixed interval.
type SyncWorker struct {
	repo       repository.OfflineTicketRepository
	gateway    TicketCreator
	dispatcher events.Dispatcher
	logger     *zap.Logger
	interval   time.Duration
}

// NewSyncWorker constructs the worker. A nil repository disables it.
func NewSyncWorker(repo repository.OfflineTicketRepository, gw TicketCreator, dispatcher events.Dispatcher, logger *zap.Logger, interval time.Duration) *SyncWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SyncWorker{
		repo:       repo,
		gateway:    gw,
		dispatcher: dispatcher,
		logger:     logger,
		interval:   interval,
	}
}

// Start runs the sync loop until the context is cancelled.
func (w *SyncWorker) Start(ctx context.Context) {
	if w.repo == nil {
		w.logger.Info("offline ticket queue disabled; sync worker idle")
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce attempts to sync every pending offline ticket.
func (w *SyncWorker) RunOnce(ctx context.Context) {
	pending, err := w.repo.ListPending(ctx, 50)
	if err != nil {
		w.logger.Error("list pending offline tickets", zap.Error(err))
		return
	}

	for _, ticket := range pending {
		remoteID, err := w.gateway.CreateTicket(ctx, ticket.Draft)
		if err != nil {
			w.logger.Warn("offline ticket sync attempt failed",
				zap.String("local_id", ticket.LocalTicketID),
				zap.Error(err))
			if recErr := w.repo.RecordAttempt(ctx, ticket.ID, err); recErr != nil {
				w.logger.Error("record sync attempt", zap.Error(recErr))
			}
			continue
		}
		if remoteID == "" {
			remoteID = ticket.LocalTicketID
		}
		if err := w.repo.MarkSynced(ctx, ticket.ID, remoteID); err != nil {
			w.logger.Error("mark offline ticket synced", zap.Error(err))
			continue
		}
		w.logger.Info("offline ticket synced",
			zap.String("local_id", ticket.LocalTicketID),
			zap.String("remote_id", remoteID))
		w.publishSynced(ctx, ticket, remoteID)
	}
}

func (w *SyncWorker) publishSynced(ctx context.Context, ticket repository.OfflineTicket, remoteID string) {
	if w.dispatcher == nil {
		return
	}
	_ = w.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketSynced,
		SessionID: ticket.SessionID,
		Timestamp: time.Now(),
		Payload: events.TicketSyncedPayload{
			LocalID:    ticket.LocalTicketID,
			RemoteID:   remoteID,
			Email:      ticket.Draft.Email,
			Subject:    ticket.Draft.Subject,
			Department: ticket.Draft.Department,
			Priority:   ticket.Draft.Priority,
			Category:   ticket.Draft.AIPredictedCategory,
			Statement:  ticket.Draft.Statement,
			Automated:  ticket.Draft.AutomatedResponseText,
		},
	})
}
