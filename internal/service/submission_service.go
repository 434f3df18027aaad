package service

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-assistant/internal/domain"
	"github.com/spec-kit/support-assistant/internal/events"
	"github.com/spec-kit/support-assistant/internal/observability"
	"github.com/spec-kit/support-assistant/internal/repository"
)

// TicketGateway is the remote ticket-creation surface.
type TicketGateway interface {
	CreateTicket(ctx context.Context, draft domain.TicketDraft) (string, error)
}

// SubmissionService sends finished drafts to the remote ticket endpoint.
// Every submission succeeds from the conversation's point of view: a remote
// failure degrades into an offline ticket with a locally generated id.
type SubmissionService struct {
	gateway    TicketGateway
	offline    repository.OfflineTicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics

	mu  sync.Mutex
	rng *rand.Rand
}

// SubmissionDependencies bundles collaborators for the submission service.
type SubmissionDependencies struct {
	Gateway     TicketGateway
	OfflineRepo repository.OfflineTicketRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Rand        *rand.Rand
}

// NewSubmissionService constructs the service.
func NewSubmissionService(deps SubmissionDependencies) *SubmissionService {
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SubmissionService{
		gateway:    deps.Gateway,
		offline:    deps.OfflineRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		rng:        rng,
	}
}

// Submit posts the draft and returns the resulting ticket record. A remote
// failure yields a created-offline record, never an error.
func (s *SubmissionService) Submit(ctx context.Context, sessionID string, draft domain.TicketDraft) domain.TicketRecord {
	remoteID, err := s.gateway.CreateTicket(ctx, draft)
	if err != nil {
		s.logger.Warn("ticket creation failed, capturing offline",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return s.captureOffline(ctx, sessionID, draft)
	}

	ticketID := remoteID
	if ticketID == "" {
		ticketID = s.localTicketID()
	}
	s.metrics.RecordSubmission(string(domain.TicketStatusCreated))
	s.publishSubmitted(ctx, sessionID, ticketID, draft)
	return domain.TicketRecord{TicketID: ticketID, Status: domain.TicketStatusCreated}
}

// Retry re-submits a draft that was captured offline. On success the queued
// row is marked synced under the remote id so the sync worker does not file
// the same draft a second time; on failure the existing row stays queued
// and no duplicate is created.
func (s *SubmissionService) Retry(ctx context.Context, sessionID, localID string, draft domain.TicketDraft) domain.TicketRecord {
	if localID == "" {
		return s.Submit(ctx, sessionID, draft)
	}

	remoteID, err := s.gateway.CreateTicket(ctx, draft)
	if err != nil {
		s.logger.Warn("retry failed, ticket stays queued",
			zap.String("session_id", sessionID),
			zap.String("local_id", localID),
			zap.Error(err))
		return domain.TicketRecord{TicketID: localID, Status: domain.TicketStatusCreatedOffline}
	}

	if remoteID == "" {
		remoteID = localID
	}
	if s.offline != nil {
		if err := s.offline.MarkSyncedByLocalID(ctx, localID, remoteID); err != nil {
			s.logger.Error("mark retried ticket synced",
				zap.String("local_id", localID),
				zap.Error(err))
		}
	}
	s.metrics.RecordSubmission(string(domain.TicketStatusCreated))
	s.publishSubmitted(ctx, sessionID, remoteID, draft)
	return domain.TicketRecord{TicketID: remoteID, Status: domain.TicketStatusCreated}
}

func (s *SubmissionService) publishSubmitted(ctx context.Context, sessionID, ticketID string, draft domain.TicketDraft) {
	s.publish(ctx, events.Event{
		Type:      events.EventTicketSubmitted,
		SessionID: sessionID,
		Payload: events.TicketSubmittedPayload{
			TicketID:   ticketID,
			Email:      draft.Email,
			Subject:    draft.Subject,
			Department: draft.Department,
			Priority:   draft.Priority,
			Category:   draft.AIPredictedCategory,
			Statement:  draft.Statement,
			Automated:  draft.AutomatedResponseText,
		},
	})
}

func (s *SubmissionService) captureOffline(ctx context.Context, sessionID string, draft domain.TicketDraft) domain.TicketRecord {
	localID := s.localTicketID()

	if s.offline != nil {
		ticket := &repository.OfflineTicket{
			LocalTicketID: localID,
			SessionID:     sessionID,
			Draft:         draft,
		}
		if err := s.offline.Create(ctx, ticket); err != nil {
			s.logger.Error("failed to queue offline ticket", zap.String("local_id", localID), zap.Error(err))
		}
	}

	s.metrics.RecordSubmission(string(domain.TicketStatusCreatedOffline))
	s.publish(ctx, events.Event{
		Type:      events.EventTicketCapturedOffline,
		SessionID: sessionID,
		Payload: events.TicketCapturedOfflinePayload{
			TicketID: localID,
			Email:    draft.Email,
			Subject:  draft.Subject,
		},
	})
	return domain.TicketRecord{TicketID: localID, Status: domain.TicketStatusCreatedOffline}
}

const ticketIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// localTicketID generates an identifier of the form TK followed by nine
// base-36 uppercase characters.
func (s *SubmissionService) localTicketID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	b.WriteString("TK")
	for i := 0; i < 9; i++ {
		b.WriteByte(ticketIDAlphabet[s.rng.Intn(len(ticketIDAlphabet))])
	}
	return b.String()
}

func (s *SubmissionService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
