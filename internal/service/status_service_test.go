package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/support-assistant/internal/domain"
)

func TestLookupPassesThroughRemoteTickets(t *testing.T) {
	gw := &stubLookupGateway{tickets: []domain.TicketSummary{
		{TicketID: "SRV-9", Subject: "VPN drops", Status: "Open", Priority: domain.TicketPriorityHigh},
	}}
	svc := NewStatusService(gw, zap.NewNop())

	tickets, demoMode := svc.Lookup(context.Background(), "ada@example.com")
	if demoMode {
		t.Fatal("demo mode reported for a healthy lookup")
	}
	if len(tickets) != 1 || tickets[0].TicketID != "SRV-9" {
		t.Fatalf("tickets = %+v", tickets)
	}
}

func TestLookupEmptyResultIsNotDemoMode(t *testing.T) {
	svc := NewStatusService(&stubLookupGateway{}, zap.NewNop())

	tickets, demoMode := svc.Lookup(context.Background(), "nobody@example.com")
	if demoMode {
		t.Fatal("demo mode reported for an empty result")
	}
	if len(tickets) != 0 {
		t.Fatalf("tickets = %+v, want none", tickets)
	}
}

func TestLookupServesDemoDataWhenUnreachable(t *testing.T) {
	gw := &stubLookupGateway{err: errors.New("connection refused")}
	svc := NewStatusService(gw, zap.NewNop())

	tickets, demoMode := svc.Lookup(context.Background(), "ada@example.com")
	if !demoMode {
		t.Fatal("demo mode not reported")
	}
	if len(tickets) == 0 {
		t.Fatal("no demo tickets returned")
	}
	for _, ticket := range tickets {
		if ticket.TicketID == "" || ticket.Subject == "" || ticket.Status == "" {
			t.Errorf("incomplete demo ticket: %+v", ticket)
		}
	}
}
