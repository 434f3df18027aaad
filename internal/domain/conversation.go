package domain

import "time"

// ConversationStep enumerates the states of the guided conversation.
type ConversationStep string

const (
	StepInitial     ConversationStep = "initial"
	StepName        ConversationStep = "name"
	StepEmail       ConversationStep = "email"
	StepSubject     ConversationStep = "subject"
	StepAttachment  ConversationStep = "attachment"
	StepDescription ConversationStep = "description"
	StepInstantHelp ConversationStep = "instant_help"
	StepCheckStatus ConversationStep = "check_status"
)

// MessageRole identifies the author of a transcript message.
type MessageRole string

const (
	RoleUser MessageRole = "user"
	RoleBot  MessageRole = "bot"
)

// ActionTag identifies a selectable follow-up action attached to a bot message.
type ActionTag string

const (
	ActionCreateTicket   ActionTag = "create_ticket"
	ActionInstantHelp    ActionTag = "instant_help"
	ActionCheckStatus    ActionTag = "check_status"
	ActionResolved       ActionTag = "resolved"
	ActionStillNeedHelp  ActionTag = "still_need_help"
	ActionViewDetails    ActionTag = "view_details"
	ActionCallSupport    ActionTag = "call_support"
	ActionAttachFile     ActionTag = "attach_file"
	ActionSkipAttachment ActionTag = "skip_attachment"
	ActionRetry          ActionTag = "retry"
	ActionNewTicket      ActionTag = "new_ticket"
)

// Suggestion is a follow-up action the widget renders as a button.
type Suggestion struct {
	Label  string    `json:"label"`
	Action ActionTag `json:"action"`
}

// Message is one entry of the conversation transcript. Messages are
// append-only; the single exception is a loading placeholder, which is
// replaced in place once its pending operation resolves.
type Message struct {
	ID          string       `json:"id"`
	Role        MessageRole  `json:"role"`
	Text        string       `json:"text"`
	Timestamp   time.Time    `json:"timestamp"`
	IsLoading   bool         `json:"is_loading,omitempty"`
	IsError     bool         `json:"is_error,omitempty"`
	IsSuccess   bool         `json:"is_success,omitempty"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// Session holds the full per-conversation state. It is mutated only by the
// conversation service; pipelines receive it through that service.
type Session struct {
	ID           string           `json:"id"`
	Step         ConversationStep `json:"step"`
	Transcript   []Message        `json:"transcript"`
	Draft        TicketDraft      `json:"draft"`
	ResetPending bool             `json:"reset_pending"`
	Busy         bool             `json:"busy"`
	// LastSubmitted keeps the most recently submitted draft so an offline
	// capture can be retried; the accumulator itself is cleared after every
	// submission. LastOfflineID is the queued ticket's local id, so a retry
	// re-drives that row instead of filing the draft twice.
	LastSubmitted *TicketDraft    `json:"last_submitted,omitempty"`
	LastOfflineID string          `json:"last_offline_id,omitempty"`
	LastLookup    []TicketSummary `json:"last_lookup,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Append adds a message to the transcript.
func (s *Session) Append(msg Message) {
	s.Transcript = append(s.Transcript, msg)
}

// ReplaceLoading swaps the most recent loading placeholder for the resolved
// message. If no placeholder is present the message is appended instead, so
// the transcript never loses a result.
func (s *Session) ReplaceLoading(msg Message) {
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if s.Transcript[i].IsLoading {
			s.Transcript[i] = msg
			return
		}
	}
	s.Transcript = append(s.Transcript, msg)
}
