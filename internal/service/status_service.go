package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-assistant/internal/domain"
)

// LookupGateway is the remote ticket-lookup surface.
type LookupGateway interface {
	LookupTickets(ctx context.Context, email string) ([]domain.TicketSummary, error)
}

// StatusService looks up tickets by email. When the remote endpoint is
// unreachable it serves a fabricated demo dataset instead of failing, and
// reports that degradation to the caller.
type StatusService struct {
	gateway LookupGateway
	logger  *zap.Logger
}

// NewStatusService constructs the service.
func NewStatusService(gateway LookupGateway, logger *zap.Logger) *StatusService {
	return &StatusService{gateway: gateway, logger: logger}
}

// Lookup returns the tickets for an email. The bool reports demo mode.
func (s *StatusService) Lookup(ctx context.Context, email string) ([]domain.TicketSummary, bool) {
	tickets, err := s.gateway.LookupTickets(ctx, email)
	if err != nil {
		s.logger.Warn("ticket lookup unavailable, serving demo data",
			zap.String("email", email),
			zap.Error(err))
		return demoTickets(), true
	}
	return tickets, false
}

func demoTickets() []domain.TicketSummary {
	now := time.Now()
	return []domain.TicketSummary{
		{
			TicketID:   "TK2024DEMO1",
			Status:     "In Progress",
			Subject:    "Cannot sign in to the portal",
			Priority:   domain.TicketPriorityHigh,
			Date:       now.Add(-48 * time.Hour),
			LastUpdate: now.Add(-2 * time.Hour),
		},
		{
			TicketID:   "TK2024DEMO2",
			Status:     "Resolved",
			Subject:    "Invoice shows a duplicate charge",
			Priority:   domain.TicketPriorityMedium,
			Date:       now.Add(-7 * 24 * time.Hour),
			LastUpdate: now.Add(-24 * time.Hour),
		},
	}
}
