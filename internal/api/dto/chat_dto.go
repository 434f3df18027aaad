package dto

import (
	"time"

	"github.com/spec-kit/support-assistant/internal/domain"
)

// StartSessionResponse returns the new session and its token.
type StartSessionResponse struct {
	SessionID string       `json:"session_id"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Messages  []MessageDTO `json:"messages"`
}

// SendMessageRequest carries free-text user input.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// ActionRequest carries a selected follow-up action tag.
type ActionRequest struct {
	Action string `json:"action"`
}

// MessageDTO is a transcript message as rendered to the widget.
type MessageDTO struct {
	ID          string              `json:"id"`
	Role        domain.MessageRole  `json:"role"`
	Text        string              `json:"text"`
	Timestamp   time.Time           `json:"timestamp"`
	IsLoading   bool                `json:"is_loading,omitempty"`
	IsError     bool                `json:"is_error,omitempty"`
	IsSuccess   bool                `json:"is_success,omitempty"`
	Suggestions []domain.Suggestion `json:"suggestions,omitempty"`
}

// ConversationResponse returns the transcript slice and current step after
// a handled input.
type ConversationResponse struct {
	Step     domain.ConversationStep `json:"step"`
	Messages []MessageDTO            `json:"messages"`
}

// FromMessages converts transcript messages for the wire.
func FromMessages(messages []domain.Message) []MessageDTO {
	out := make([]MessageDTO, 0, len(messages))
	for _, m := range messages {
		out = append(out, MessageDTO{
			ID:          m.ID,
			Role:        m.Role,
			Text:        m.Text,
			Timestamp:   m.Timestamp,
			IsLoading:   m.IsLoading,
			IsError:     m.IsError,
			IsSuccess:   m.IsSuccess,
			Suggestions: m.Suggestions,
		})
	}
	return out
}

// FromSession builds the standard conversation response.
func FromSession(sess *domain.Session) ConversationResponse {
	return ConversationResponse{
		Step:     sess.Step,
		Messages: FromMessages(sess.Transcript),
	}
}
