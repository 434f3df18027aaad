package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-assistant/internal/classifier"
	"github.com/spec-kit/support-assistant/internal/config"
	"github.com/spec-kit/support-assistant/internal/domain"
	"github.com/spec-kit/support-assistant/internal/events"
	"github.com/spec-kit/support-assistant/internal/session"
	apperrors "github.com/spec-kit/support-assistant/pkg/util"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const welcomeText = "Hi! I'm your support assistant. I can create a support ticket, " +
	"offer instant help for common problems, or check the status of an existing ticket."

// ConversationService is the state machine driving every conversation. All
// transitions for a session are serialized through it; pipelines run
// synchronously from its handlers and are the only suspension points.
type ConversationService struct {
	store      session.Store
	resolver   *ResolutionService
	submitter  *SubmissionService
	status     *StatusService
	responder  *Responder
	dispatcher events.Dispatcher
	logger     *zap.Logger
	notifyCfg  config.NotificationConfig

	locks sync.Map // session id -> *sync.Mutex
}

// ConversationDependencies bundles collaborators for the conversation
// service.
type ConversationDependencies struct {
	Store      session.Store
	Resolver   *ResolutionService
	Submitter  *SubmissionService
	Status     *StatusService
	Responder  *Responder
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Notify     config.NotificationConfig
}

// NewConversationService constructs the service.
func NewConversationService(deps ConversationDependencies) *ConversationService {
	return &ConversationService{
		store:      deps.Store,
		resolver:   deps.Resolver,
		submitter:  deps.Submitter,
		status:     deps.Status,
		responder:  deps.Responder,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		notifyCfg:  deps.Notify,
	}
}

// StartSession creates a fresh conversation with the welcome message.
func (s *ConversationService) StartSession(ctx context.Context) (*domain.Session, error) {
	now := time.Now()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		Step:      domain.StepInitial,
		CreatedAt: now,
	}
	sess.Append(s.botMessage(welcomeText, mainMenuSuggestions()...))
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Transcript returns the current session state for widget re-hydration.
func (s *ConversationService) Transcript(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.load(ctx, sessionID)
}

// HandleInput routes a free-text user input through the current step.
// Whitespace-only input is a no-op.
func (s *ConversationService) HandleInput(ctx context.Context, sessionID, rawText string) (*domain.Session, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return s.load(ctx, sessionID)
	}

	return s.withSession(ctx, sessionID, func(sess *domain.Session) error {
		sess.Append(s.userMessage(text))

		if sess.ResetPending {
			s.handleResetConfirmation(sess, text)
			return nil
		}

		switch sess.Step {
		case domain.StepInstantHelp:
			s.runInstantHelp(ctx, sess, text)
		case domain.StepCheckStatus:
			s.runStatusLookup(ctx, sess, text)
		case domain.StepName:
			sess.Draft.Name = text
			sess.Step = domain.StepEmail
			sess.Append(s.botMessage(fmt.Sprintf("Nice to meet you, %s! What's your email address?", text)))
		case domain.StepEmail:
			if !emailPattern.MatchString(text) {
				sess.Append(s.botMessage("That doesn't look like a valid email address. Could you double-check it?"))
				return nil
			}
			sess.Draft.Email = text
			sess.Step = domain.StepSubject
			sess.Append(s.botMessage("Got it. What's the subject of your request?"))
		case domain.StepSubject:
			sess.Draft.Subject = text
			sess.Step = domain.StepAttachment
			sess.Append(s.botMessage(
				"Would you like to attach a file? Screenshots or logs often speed things up.",
				domain.Suggestion{Label: "Attach a file", Action: domain.ActionAttachFile},
				domain.Suggestion{Label: "Skip", Action: domain.ActionSkipAttachment},
			))
		case domain.StepAttachment:
			// This step is driven by file selection, not text.
			sess.Append(s.botMessage(
				"Please use the attach button to add a file, or skip this step.",
				domain.Suggestion{Label: "Attach a file", Action: domain.ActionAttachFile},
				domain.Suggestion{Label: "Skip", Action: domain.ActionSkipAttachment},
			))
		case domain.StepDescription:
			s.runTicketFlow(ctx, sess, text)
		default:
			reply, suggestions := s.responder.Reply(text)
			sess.Append(s.botMessage(reply, suggestions...))
		}
		return nil
	})
}

// HandleAction routes a selected follow-up action, bypassing text parsing.
// Unknown tags fall through to the general responder.
func (s *ConversationService) HandleAction(ctx context.Context, sessionID string, action domain.ActionTag) (*domain.Session, error) {
	return s.withSession(ctx, sessionID, func(sess *domain.Session) error {
		switch action {
		case domain.ActionCreateTicket, domain.ActionNewTicket, domain.ActionStillNeedHelp:
			sess.Draft = domain.TicketDraft{}
			sess.Step = domain.StepName
			sess.Append(s.botMessage("Let's get a ticket started. What's your name?"))
		case domain.ActionInstantHelp:
			sess.Step = domain.StepInstantHelp
			sess.Append(s.botMessage("Describe the problem and I'll suggest some fixes right away."))
		case domain.ActionCheckStatus:
			sess.Step = domain.StepCheckStatus
			sess.Append(s.botMessage("Sure! What's the email address the ticket was filed under?"))
		case domain.ActionResolved:
			sess.Step = domain.StepInitial
			sess.Append(s.botMessage("Glad that helped! Let me know if anything else comes up.", mainMenuSuggestions()...))
			s.publishHelpResolved(ctx, sess)
		case domain.ActionSkipAttachment:
			sess.Draft.Attachment = nil
			sess.Step = domain.StepDescription
			sess.Append(s.botMessage("No problem. Now, please describe the problem in as much detail as you can."))
		case domain.ActionAttachFile:
			sess.Append(s.botMessage("Select a file up to 10 MB (png, jpeg, pdf, doc, docx or plain text)."))
		case domain.ActionCallSupport:
			sess.Append(s.botMessage(fmt.Sprintf("You can reach our support line at %s, available 24/7.", s.notifyCfg.SupportPhone)))
		case domain.ActionRetry:
			s.runRetry(ctx, sess)
		case domain.ActionViewDetails:
			s.renderLookupDetails(sess)
		default:
			reply, suggestions := s.responder.Reply(string(action))
			sess.Append(s.botMessage(reply, suggestions...))
		}
		return nil
	})
}

// HandleAttachment validates and merges a selected file into the draft,
// then advances to the description step. Validation failures re-prompt in
// place and leave the draft untouched.
func (s *ConversationService) HandleAttachment(ctx context.Context, sessionID string, att domain.Attachment) (*domain.Session, error) {
	return s.withSession(ctx, sessionID, func(sess *domain.Session) error {
		if sess.Step != domain.StepAttachment {
			sess.Append(s.botMessage("I wasn't expecting a file right now, but let's keep going."))
			return nil
		}
		if err := att.Validate(); err != nil {
			msg := s.botMessage(
				err.Error()+" Please pick a file up to 10 MB in png, jpeg, pdf, doc, docx or plain text format.",
				domain.Suggestion{Label: "Attach a file", Action: domain.ActionAttachFile},
				domain.Suggestion{Label: "Skip", Action: domain.ActionSkipAttachment},
			)
			msg.IsError = true
			sess.Append(msg)
			return nil
		}
		sess.Draft.Attachment = &att
		sess.Step = domain.StepDescription
		sess.Append(s.botMessage(fmt.Sprintf(
			"Attached %s. Now, please describe the problem in as much detail as you can.", att.Name)))
		return nil
	})
}

// Reset starts a new conversation. When the transcript holds more than the
// welcome message the first call only arms a confirmation; the clear
// happens on the follow-up.
func (s *ConversationService) Reset(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.withSession(ctx, sessionID, func(sess *domain.Session) error {
		if len(sess.Transcript) > 1 && !sess.ResetPending {
			sess.ResetPending = true
			sess.Append(s.botMessage("Start over? This clears the current conversation. Reply yes to confirm or no to keep going."))
			return nil
		}
		s.clearSession(sess)
		return nil
	})
}

func (s *ConversationService) handleResetConfirmation(sess *domain.Session, text string) {
	switch strings.ToLower(text) {
	case "yes", "y", "yeah", "sure", "ok":
		s.clearSession(sess)
	default:
		sess.ResetPending = false
		sess.Append(s.botMessage("Okay, we'll pick up where we left off."))
	}
}

// clearSession reinitializes transcript, draft and step in one go.
func (s *ConversationService) clearSession(sess *domain.Session) {
	sess.Transcript = nil
	sess.Draft = domain.TicketDraft{}
	sess.LastSubmitted = nil
	sess.LastOfflineID = ""
	sess.LastLookup = nil
	sess.Step = domain.StepInitial
	sess.ResetPending = false
	sess.Append(s.botMessage(welcomeText, mainMenuSuggestions()...))
}

// runInstantHelp classifies the problem in triage mode and presents the
// suggested fixes.
func (s *ConversationService) runInstantHelp(ctx context.Context, sess *domain.Session, text string) {
	sess.Append(s.loadingMessage("Looking for a quick fix..."))

	result, _ := s.resolver.Resolve(ctx, sess.ID, "", text, domain.ModeTriage)

	var b strings.Builder
	fmt.Fprintf(&b, "This looks like a %s issue. Here's what usually helps:\n", result.Category)
	for _, insight := range result.Insights {
		fmt.Fprintf(&b, "\n• %s", insight)
	}
	if result.EstimatedTime != "" {
		fmt.Fprintf(&b, "\n\nTypical resolution time: %s.", result.EstimatedTime)
	}
	b.WriteString("\n\nDid that solve your problem?")

	sess.ReplaceLoading(s.botMessage(b.String(),
		domain.Suggestion{Label: "Yes, resolved!", Action: domain.ActionResolved},
		domain.Suggestion{Label: "I still need help", Action: domain.ActionStillNeedHelp},
	))
	sess.Step = domain.StepInitial
}

// runStatusLookup validates the email and fetches tickets, degrading to
// demo data when the lookup service is down.
func (s *ConversationService) runStatusLookup(ctx context.Context, sess *domain.Session, text string) {
	if !emailPattern.MatchString(text) {
		sess.Append(s.botMessage("That doesn't look like a valid email address. Please enter the email the ticket was filed under."))
		return
	}

	sess.Append(s.loadingMessage("Looking up your tickets..."))
	tickets, demoMode := s.status.Lookup(ctx, text)
	sess.LastLookup = tickets

	var b strings.Builder
	if demoMode {
		b.WriteString("Our ticket system is briefly unavailable, so here's example data to show what you'd see:\n")
	} else if len(tickets) == 0 {
		sess.ReplaceLoading(s.botMessage(
			fmt.Sprintf("I couldn't find any tickets under %s. Would you like to create one?", text),
			mainMenuSuggestions()...))
		sess.Step = domain.StepInitial
		return
	} else {
		fmt.Fprintf(&b, "I found %d ticket(s) under %s:\n", len(tickets), text)
	}
	for _, t := range tickets {
		fmt.Fprintf(&b, "\n%s — %s (%s, %s priority)", t.TicketID, t.Subject, t.Status, t.Priority)
	}

	sess.ReplaceLoading(s.botMessage(b.String(),
		domain.Suggestion{Label: "View details", Action: domain.ActionViewDetails},
		domain.Suggestion{Label: "Create a ticket", Action: domain.ActionCreateTicket},
	))
	sess.Step = domain.StepInitial
}

// runTicketFlow completes the guided flow: analyze the statement, merge the
// result into the draft, submit, and render the outcome. Analysis always
// finishes before submission starts.
func (s *ConversationService) runTicketFlow(ctx context.Context, sess *domain.Session, statement string) {
	sess.Draft.Statement = statement
	sess.Append(s.loadingMessage("Analyzing your request..."))

	result, _ := s.resolver.Resolve(ctx, sess.ID, sess.Draft.Subject, statement, domain.ModeTicketAnalysis)

	sess.Draft.AIPredictedCategory = result.Category
	sess.Draft.CategoryConfidence = result.Confidence
	sess.Draft.Priority = result.Priority
	sess.Draft.EstimatedResolution = result.EstimatedTime
	sess.Draft.AutomatedResponseText = result.Response
	sess.Draft.AIInsights = result.Insights
	if result.Sentiment != nil {
		sess.Draft.SentimentScore = result.Sentiment.Score
		sess.Draft.DetectedEmotion = result.Sentiment.Label
	}
	routing := classifier.Route(sess.Draft.Subject + " " + statement)
	sess.Draft.Department = routing.Department
	sess.Draft.RelatedService = routing.Service

	record := s.submitter.Submit(ctx, sess.ID, sess.Draft)
	submitted := sess.Draft
	sess.LastSubmitted = &submitted
	sess.LastOfflineID = ""
	sess.Draft = domain.TicketDraft{}
	sess.Step = domain.StepInitial

	if record.Status == domain.TicketStatusCreatedOffline {
		sess.LastOfflineID = record.TicketID
		msg := s.botMessage(fmt.Sprintf(
			"Our ticket system is briefly unreachable, so I've captured your ticket locally as %s. "+
				"It will sync automatically once we're back online.", record.TicketID),
			domain.Suggestion{Label: "Retry now", Action: domain.ActionRetry},
			domain.Suggestion{Label: "Call support", Action: domain.ActionCallSupport},
		)
		sess.ReplaceLoading(msg)
		return
	}

	msg := s.botMessage(fmt.Sprintf(
		"Your ticket %s has been created!\n\nSubject: %s\nDepartment: %s\nCategory: %s\nPriority: %s\nEstimated resolution: %s\n\n"+
			"A confirmation email is on its way to %s.",
		record.TicketID, submitted.Subject, submitted.Department, submitted.AIPredictedCategory,
		submitted.Priority, submitted.EstimatedResolution, submitted.Email),
		domain.Suggestion{Label: "Check ticket status", Action: domain.ActionCheckStatus},
		domain.Suggestion{Label: "Create another ticket", Action: domain.ActionNewTicket},
	)
	msg.IsSuccess = true
	sess.ReplaceLoading(msg)
}

// runRetry re-drives the queued offline ticket. The queued row is reused so
// a retry can never file the same draft twice.
func (s *ConversationService) runRetry(ctx context.Context, sess *domain.Session) {
	if sess.LastSubmitted == nil {
		reply, suggestions := s.responder.Reply("retry")
		sess.Append(s.botMessage(reply, suggestions...))
		return
	}
	sess.Append(s.loadingMessage("Retrying your ticket..."))
	record := s.submitter.Retry(ctx, sess.ID, sess.LastOfflineID, *sess.LastSubmitted)
	if record.Status == domain.TicketStatusCreatedOffline {
		sess.LastOfflineID = record.TicketID
		sess.ReplaceLoading(s.botMessage(fmt.Sprintf(
			"Still no luck reaching the ticket system. Your ticket stays captured as %s and will sync later.", record.TicketID),
			domain.Suggestion{Label: "Retry now", Action: domain.ActionRetry},
			domain.Suggestion{Label: "Call support", Action: domain.ActionCallSupport},
		))
		return
	}
	msg := s.botMessage(fmt.Sprintf("Good news — your ticket is now filed as %s.", record.TicketID),
		domain.Suggestion{Label: "Check ticket status", Action: domain.ActionCheckStatus})
	msg.IsSuccess = true
	sess.ReplaceLoading(msg)
	sess.LastSubmitted = nil
	sess.LastOfflineID = ""
}

func (s *ConversationService) renderLookupDetails(sess *domain.Session) {
	if len(sess.LastLookup) == 0 {
		sess.Append(s.botMessage("Look up your tickets first and I'll show the details.",
			domain.Suggestion{Label: "Check ticket status", Action: domain.ActionCheckStatus}))
		return
	}
	var b strings.Builder
	for i, t := range sess.LastLookup {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s\nSubject: %s\nStatus: %s\nPriority: %s\nOpened: %s\nLast update: %s",
			t.TicketID, t.Subject, t.Status, t.Priority,
			t.Date.Format("Jan 2, 2006"), t.LastUpdate.Format("Jan 2, 2006"))
	}
	sess.Append(s.botMessage(b.String(), mainMenuSuggestions()...))
}

// withSession loads the session, serializes access to it, runs fn, and
// persists the result. A session with an operation in flight rejects new
// input instead of queueing it.
func (s *ConversationService) withSession(ctx context.Context, sessionID string, fn func(*domain.Session) error) (*domain.Session, error) {
	lockAny, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	lock := lockAny.(*sync.Mutex)
	if !lock.TryLock() {
		return nil, apperrors.NewConversationBusy()
	}
	defer lock.Unlock()

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Busy {
		return nil, apperrors.NewConversationBusy()
	}

	sess.Busy = true
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	fnErr := fn(sess)
	sess.Busy = false
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	if fnErr != nil {
		return nil, fnErr
	}
	return sess, nil
}

func (s *ConversationService) load(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if err == session.ErrNotFound {
			return nil, apperrors.NewNotFound("session", map[string]any{"session_id": sessionID})
		}
		return nil, err
	}
	return sess, nil
}

func (s *ConversationService) publishHelpResolved(ctx context.Context, sess *domain.Session) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventHelpResolved,
		SessionID: sess.ID,
		Timestamp: time.Now(),
		Payload:   events.HelpResolvedPayload{},
	})
}

func (s *ConversationService) botMessage(text string, suggestions ...domain.Suggestion) domain.Message {
	return domain.Message{
		ID:          uuid.NewString(),
		Role:        domain.RoleBot,
		Text:        text,
		Timestamp:   time.Now(),
		Suggestions: suggestions,
	}
}

func (s *ConversationService) userMessage(text string) domain.Message {
	return domain.Message{
		ID:        uuid.NewString(),
		Role:      domain.RoleUser,
		Text:      text,
		Timestamp: time.Now(),
	}
}

func (s *ConversationService) loadingMessage(text string) domain.Message {
	msg := s.botMessage(text)
	msg.IsLoading = true
	return msg
}
