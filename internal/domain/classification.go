package domain

// ClassifyMode distinguishes the two uses of the resolution pipeline.
type ClassifyMode string

const (
	// ModeTriage classifies an instant-help request; the result is shown
	// directly and no ticket is created unless the user declines the help.
	ModeTriage ClassifyMode = "triage"
	// ModeTicketAnalysis classifies a problem statement right before
	// submission; the result is merged into the ticket draft.
	ModeTicketAnalysis ClassifyMode = "ticket-analysis"
)

// ClassificationResult is the classifier-agnostic output of either the
// remote gateway or the local heuristic path. Confidence is a 0..1
// fraction; conversions from percentage scales happen at the boundary that
// produced them.
type ClassificationResult struct {
	Category      string         `json:"category"`
	Priority      TicketPriority `json:"priority"`
	Confidence    float64        `json:"confidence"`
	EstimatedTime string         `json:"estimated_time"`
	Insights      []string       `json:"insights"`
	NeedsTicket   bool           `json:"needs_ticket"`
	Sentiment     *Sentiment     `json:"sentiment,omitempty"`
	Response      string         `json:"response,omitempty"`
}

// Sentiment carries the analysis endpoint's emotional read of the text.
// Score is a 0..1 fraction.
type Sentiment struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}
