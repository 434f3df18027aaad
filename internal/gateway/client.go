// Package gateway is the HTTP client for the remote ticket/AI backend. All
// responses are converted into domain types at this boundary, including the
// remote confidence scales (0-100 integers become 0..1 fractions) so the
// rest of the engine never sees the ambiguity.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spec-kit/support-assistant/internal/config"
	"github.com/spec-kit/support-assistant/internal/domain"
)

// Client talks to the remote backend.
type Client struct {
	baseURL string
	httpCli *http.Client
}

// NewClient builds a gateway client from config.
func NewClient(cfg config.GatewayConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpCli: &http.Client{Timeout: cfg.Timeout()},
	}
}

type analyzeRequest struct {
	Message  string  `json:"message,omitempty"`
	Subject  string  `json:"subject,omitempty"`
	Category *string `json:"category"`
}

type analyzeResponse struct {
	Success  bool `json:"success"`
	Analysis struct {
		Category            string  `json:"category"`
		CategoryConfidence  float64 `json:"categoryConfidence"`
		Urgency             string  `json:"urgency"`
		EstimatedResolution string  `json:"estimatedResolution"`
		Sentiment           *struct {
			Score float64 `json:"score"`
			Label string  `json:"label"`
		} `json:"sentiment"`
	} `json:"analysis"`
	Response    string   `json:"response"`
	Suggestions []string `json:"suggestions"`
}

// AnalyzeTicket classifies a problem statement ahead of submission.
func (c *Client) AnalyzeTicket(ctx context.Context, subject, description string) (domain.ClassificationResult, error) {
	req := analyzeRequest{Subject: subject, Message: description}
	var resp analyzeResponse
	if err := c.postJSON(ctx, "/api/ai/analyze-ticket", req, &resp); err != nil {
		return domain.ClassificationResult{}, err
	}
	if !resp.Success || resp.Analysis.Category == "" || resp.Analysis.Urgency == "" {
		return domain.ClassificationResult{}, fmt.Errorf("analyze-ticket: malformed response")
	}

	result := domain.ClassificationResult{
		Category:      resp.Analysis.Category,
		Priority:      priorityFromUrgency(resp.Analysis.Urgency),
		Confidence:    clampFraction(resp.Analysis.CategoryConfidence),
		EstimatedTime: resp.Analysis.EstimatedResolution,
		Insights:      resp.Suggestions,
		NeedsTicket:   true,
		Response:      resp.Response,
	}
	if resp.Analysis.Sentiment != nil {
		result.Sentiment = &domain.Sentiment{
			Score: clampFraction(resp.Analysis.Sentiment.Score),
			Label: resp.Analysis.Sentiment.Label,
		}
	}
	return result, nil
}

type instantHelpRequest struct {
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}

type instantHelpResponse struct {
	Solutions     []string `json:"solutions"`
	Category      string   `json:"category"`
	Confidence    float64  `json:"confidence"`
	EstimatedTime string   `json:"estimatedTime"`
	Tips          []string `json:"tips"`
	NeedsTicket   bool     `json:"needsTicket"`
}

// InstantHelp requests immediate triage suggestions for a problem.
func (c *Client) InstantHelp(ctx context.Context, message, helpContext string) (domain.ClassificationResult, error) {
	req := instantHelpRequest{Message: message, Context: helpContext}
	var resp instantHelpResponse
	if err := c.postJSON(ctx, "/api/ai/instant-help", req, &resp); err != nil {
		return domain.ClassificationResult{}, err
	}
	if resp.Category == "" {
		return domain.ClassificationResult{}, fmt.Errorf("instant-help: malformed response")
	}

	insights := append(append([]string(nil), resp.Solutions...), resp.Tips...)
	return domain.ClassificationResult{
		Category:      resp.Category,
		Priority:      domain.TicketPriorityMedium,
		Confidence:    clampFraction(resp.Confidence / 100),
		EstimatedTime: resp.EstimatedTime,
		Insights:      insights,
		NeedsTicket:   resp.NeedsTicket,
	}, nil
}

// CreateTicket posts the draft as a multipart form and returns the
// server-issued ticket identifier, which may be empty when the backend
// accepted the ticket without echoing an id.
func (c *Client) CreateTicket(ctx context.Context, draft domain.TicketDraft) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"name":                       draft.Name,
		"email":                      draft.Email,
		"subject":                    draft.Subject,
		"department":                 draft.Department,
		"relatedService":             draft.RelatedService,
		"priority":                   string(draft.Priority),
		"statement":                  draft.Statement,
		"aiPredictedCategory":        draft.AIPredictedCategory,
		"categoryConfidence":         strconv.FormatFloat(draft.CategoryConfidence, 'f', -1, 64),
		"estimatedResolutionTime":    draft.EstimatedResolution,
		"automatedResponse":          draft.AutomatedResponseText,
		"sentimentScore":             strconv.FormatFloat(draft.SentimentScore, 'f', -1, 64),
		"detectedEmotion":            draft.DetectedEmotion,
		"hasAutomatedSolution":       strconv.FormatBool(draft.AutomatedResponseText != ""),
		"automatedSolutionAttempted": strconv.FormatBool(draft.AutomatedResponseText != ""),
		"sentimentAnalyzedAt":        time.Now().UTC().Format(time.RFC3339),
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return "", err
		}
	}
	for _, insight := range draft.AIInsights {
		if err := writer.WriteField("aiInsights", insight); err != nil {
			return "", err
		}
	}
	if att := draft.Attachment; att != nil {
		part, err := writer.CreateFormFile("attachment", att.Name)
		if err != nil {
			return "", err
		}
		if _, err := part.Write(att.Data); err != nil {
			return "", err
		}
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/tickets", &body)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpCli.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("create ticket: status %d", resp.StatusCode)
	}

	// Backends disagree on the id field name; accept every known variant.
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", nil
	}
	for _, key := range []string{"ticketId", "ticketid", "_id", "id"} {
		if id, ok := payload[key].(string); ok && id != "" {
			return id, nil
		}
	}
	return "", nil
}

type lookupResponse struct {
	Tickets []struct {
		TicketID   string    `json:"ticketId"`
		Status     string    `json:"status"`
		Subject    string    `json:"subject"`
		Priority   string    `json:"priority"`
		Date       time.Time `json:"date"`
		LastUpdate time.Time `json:"lastUpdate"`
	} `json:"tickets"`
}

// LookupTickets fetches all tickets filed under an email address.
func (c *Client) LookupTickets(ctx context.Context, email string) ([]domain.TicketSummary, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tickets/lookup?email="+url.QueryEscape(email), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpCli.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup: status %d", resp.StatusCode)
	}
	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	summaries := make([]domain.TicketSummary, 0, len(payload.Tickets))
	for _, t := range payload.Tickets {
		summaries = append(summaries, domain.TicketSummary{
			TicketID:   t.TicketID,
			Status:     t.Status,
			Subject:    t.Subject,
			Priority:   domain.TicketPriority(t.Priority),
			Date:       t.Date,
			LastUpdate: t.LastUpdate,
		})
	}
	return summaries, nil
}

// ConfirmationEmail is the payload for the outbound confirmation dispatch.
type ConfirmationEmail struct {
	Recipient         string `json:"recipient"`
	TicketID          string `json:"ticketId"`
	Subject           string `json:"subject"`
	Department        string `json:"department"`
	Priority          string `json:"priority"`
	Date              string `json:"date"`
	Statement         string `json:"statement"`
	AICategory        string `json:"aiCategory"`
	AutomatedResponse string `json:"automatedResponse"`
}

// SendConfirmation dispatches the ticket confirmation email. Callers treat
// failure as best effort.
func (c *Client) SendConfirmation(ctx context.Context, email ConfirmationEmail) error {
	return c.postJSON(ctx, "/api/notifications/ticket-confirmation", email, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	bs, err := json.Marshal(body)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bs))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpCli.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func priorityFromUrgency(urgency string) domain.TicketPriority {
	switch urgency {
	case "High":
		return domain.TicketPriorityCritical
	case "Medium":
		return domain.TicketPriorityHigh
	case "Low":
		return domain.TicketPriorityMedium
	default:
		return domain.TicketPriorityMedium
	}
}

func clampFraction(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
