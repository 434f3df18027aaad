package events

import (
	"time"

	"github.com/spec-kit/support-assistant/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketSubmitted        EventType = "ticket_submitted"
	EventTicketCapturedOffline  EventType = "ticket_captured_offline"
	EventTicketSynced           EventType = "ticket_synced"
	EventClassificationFellBack EventType = "classification_fell_back"
	EventHelpResolved           EventType = "help_resolved"
)

// Event represents a domain event emitted by the conversation pipelines.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketSubmittedPayload payload.
type TicketSubmittedPayload struct {
	TicketID   string                `json:"ticket_id"`
	Email      string                `json:"email"`
	Subject    string                `json:"subject"`
	Department string                `json:"department"`
	Priority   domain.TicketPriority `json:"priority"`
	Category   string                `json:"category"`
	Statement  string                `json:"statement"`
	Automated  string                `json:"automated_response,omitempty"`
}

// TicketCapturedOfflinePayload payload.
type TicketCapturedOfflinePayload struct {
	TicketID string `json:"ticket_id"`
	Email    string `json:"email"`
	Subject  string `json:"subject"`
}

// TicketSyncedPayload payload. Carries the draft fields so the confirmation
// email can be sent once the ticket finally lands remotely.
type TicketSyncedPayload struct {
	LocalID    string                `json:"local_id"`
	RemoteID   string                `json:"remote_id"`
	Email      string                `json:"email"`
	Subject    string                `json:"subject"`
	Department string                `json:"department"`
	Priority   domain.TicketPriority `json:"priority"`
	Category   string                `json:"category"`
	Statement  string                `json:"statement"`
	Automated  string                `json:"automated_response,omitempty"`
}

// ClassificationFellBackPayload payload.
type ClassificationFellBackPayload struct {
	Mode   domain.ClassifyMode `json:"mode"`
	Reason string              `json:"reason"`
}

// HelpResolvedPayload payload.
type HelpResolvedPayload struct {
	Category string `json:"category"`
}
