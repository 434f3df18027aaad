package domain

import (
	"fmt"
	"time"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "Low"
	TicketPriorityMedium   TicketPriority = "Medium"
	TicketPriorityHigh     TicketPriority = "High"
	TicketPriorityCritical TicketPriority = "Critical"
)

// TicketStatus enumerates submission outcomes.
type TicketStatus string

const (
	TicketStatusCreated        TicketStatus = "created"
	TicketStatusCreatedOffline TicketStatus = "created-offline"
)

// MaxAttachmentBytes is the upper bound for a single attachment.
const MaxAttachmentBytes = 10 << 20

var allowedAttachmentTypes = map[string]bool{
	"image/png":          true,
	"image/jpeg":         true,
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
}

// Attachment is an optional binary carried with a ticket.
type Attachment struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`
	Data      []byte `json:"data,omitempty"`
}

// Validate checks the size and MIME constraints enforced before an
// attachment may enter a draft.
func (a Attachment) Validate() error {
	if a.SizeBytes > MaxAttachmentBytes {
		return fmt.Errorf("attachment %q exceeds the 10 MB limit", a.Name)
	}
	if !allowedAttachmentTypes[a.MimeType] {
		return fmt.Errorf("attachment type %q is not supported", a.MimeType)
	}
	return nil
}

// TicketDraft accumulates ticket fields as the conversation advances. A
// fresh draft replaces it after every submission, successful or offline.
// CategoryConfidence and SentimentScore are 0..1 fractions.
type TicketDraft struct {
	Name                  string         `json:"name"`
	Email                 string         `json:"email"`
	Subject               string         `json:"subject"`
	Department            string         `json:"department"`
	RelatedService        string         `json:"related_service"`
	Priority              TicketPriority `json:"priority"`
	Attachment            *Attachment    `json:"attachment,omitempty"`
	Statement             string         `json:"statement"`
	AIPredictedCategory   string         `json:"ai_predicted_category"`
	CategoryConfidence    float64        `json:"category_confidence"`
	EstimatedResolution   string         `json:"estimated_resolution"`
	AutomatedResponseText string         `json:"automated_response_text"`
	SentimentScore        float64        `json:"sentiment_score"`
	DetectedEmotion       string         `json:"detected_emotion"`
	AIInsights            []string       `json:"ai_insights"`
}

// TicketRecord is the outcome of a submission.
type TicketRecord struct {
	TicketID string       `json:"ticket_id"`
	Status   TicketStatus `json:"status"`
}

// TicketSummary is one row of a status lookup result.
type TicketSummary struct {
	TicketID   string         `json:"ticket_id"`
	Status     string         `json:"status"`
	Subject    string         `json:"subject"`
	Priority   TicketPriority `json:"priority"`
	Date       time.Time      `json:"date"`
	LastUpdate time.Time      `json:"last_update"`
}
