package service

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/support-assistant/internal/config"
	"github.com/spec-kit/support-assistant/internal/domain"
	"github.com/spec-kit/support-assistant/internal/events"
	"github.com/spec-kit/support-assistant/internal/observability"
	"github.com/spec-kit/support-assistant/internal/session"
)

type stubLookupGateway struct {
	tickets []domain.TicketSummary
	err     error
}

func (g *stubLookupGateway) LookupTickets(ctx context.Context, email string) ([]domain.TicketSummary, error) {
	return g.tickets, g.err
}

type convFixture struct {
	svc      *ConversationService
	analysis *stubAnalysisGateway
	tickets  *stubTicketGateway
	lookup   *stubLookupGateway
	offline  *fakeOfflineRepo
	store    *session.MemoryStore
}

func newConversationFixture() *convFixture {
	analysis := &stubAnalysisGateway{}
	tickets := &stubTicketGateway{}
	lookup := &stubLookupGateway{}
	offline := newFakeOfflineRepo()
	store := session.NewMemoryStore()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	resolver := NewResolutionService(ResolutionDependencies{
		Gateway:    analysis,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	submitter := NewSubmissionService(SubmissionDependencies{
		Gateway:     tickets,
		OfflineRepo: offline,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
		Rand:        rand.New(rand.NewSource(1)),
	})

	svc := NewConversationService(ConversationDependencies{
		Store:      store,
		Resolver:   resolver,
		Submitter:  submitter,
		Status:     NewStatusService(lookup, logger),
		Responder:  NewResponder(rand.New(rand.NewSource(1))),
		Dispatcher: dispatcher,
		Logger:     logger,
		Notify:     config.NotificationConfig{SupportPhone: "+1-800-555-0199"},
	})
	return &convFixture{svc: svc, analysis: analysis, tickets: tickets, lookup: lookup, offline: offline, store: store}
}

func lastMessage(sess *domain.Session) domain.Message {
	return sess.Transcript[len(sess.Transcript)-1]
}

func hasSuggestion(msg domain.Message, action domain.ActionTag) bool {
	for _, s := range msg.Suggestions {
		if s.Action == action {
			return true
		}
	}
	return false
}

func TestStartSessionWelcome(t *testing.T) {
	f := newConversationFixture()
	sess, err := f.svc.StartSession(context.Background())
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if sess.Step != domain.StepInitial {
		t.Errorf("step = %q, want initial", sess.Step)
	}
	if len(sess.Transcript) != 1 || sess.Transcript[0].Role != domain.RoleBot {
		t.Fatalf("transcript = %+v, want single welcome message", sess.Transcript)
	}
	if !hasSuggestion(sess.Transcript[0], domain.ActionCreateTicket) {
		t.Error("welcome message missing create-ticket suggestion")
	}
}

func TestWhitespaceInputIsNoOp(t *testing.T) {
	f := newConversationFixture()
	ctx := context.Background()
	sess, _ := f.svc.StartSession(ctx)

	after, err := f.svc.HandleInput(ctx, sess.ID, "   \t  ")
	if err != nil {
		t.Fatalf("HandleInput: %v", err)
	}
	if len(after.Transcript) != len(sess.Transcript) {
		t.Fatalf("transcript grew from %d to %d on whitespace input", len(sess.Transcript), len(after.Transcript))
	}
}

func TestGuidedFlowPopulatesDraftInOrder(t *testing.T) {
	f := newConversationFixture()
	f.analysis.analyzeErr = errors.New("unreachable")
	f.tickets.id = "SRV-100"
	ctx := context.Background()
	sess, _ := f.svc.StartSession(ctx)

	if _, err := f.svc.HandleAction(ctx, sess.ID, domain.ActionCreateTicket); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.HandleInput(ctx, sess.ID, "Ada Lovelace"); err != nil {
		t.Fatal(err)
	}

	stored, _ := f.store.Get(ctx, sess.ID)
	if stored.Draft.Name != "Ada Lovelace" || stored.Step != domain.StepEmail {
		t.Fatalf("after name: draft=%+v step=%q", stored.Draft, stored.Step)
	}

	if _, err := f.svc.HandleInput(ctx, sess.ID, "ada@example.com"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.HandleInput(ctx, sess.ID, "Cannot log in"); err != nil {
		t.Fatal(err)
	}

	stored, _ = f.store.Get(ctx, sess.ID)
	if stored.Step != domain.StepAttachment {
		t.Fatalf("after subject: step = %q, want attachment", stored.Step)
	}

	if _, err := f.svc.HandleAction(ctx, sess.ID, domain.ActionSkipAttachment); err != nil {
		t.Fatal(err)
	}
	stored, _ = f.store.Get(ctx, sess.ID)
	if stored.Draft.Attachment != nil {
		t.Error("skip left an attachment set")
	}
	if stored.Step != domain.StepDescription {
		t.Fatalf("after skip: step = %q, want description", stored.Step)
	}

	final, err := f.svc.HandleInput(ctx, sess.ID, "I can't log in, password error")
	if err != nil {
		t.Fatal(err)
	}

	// Analysis fell back locally, submission still completed.
	if final.LastSubmitted == nil {
		t.Fatal("LastSubmitted not recorded")
	}
	draft := final.LastSubmitted
	if draft.Name != "Ada Lovelace" || draft.Email != "ada@example.com" ||
		draft.Subject != "Cannot log in" || draft.Statement != "I can't log in, password error" {
		t.Errorf("submitted draft = %+v", draft)
	}
	if draft.AIPredictedCategory != "Authentication & Access" {
		t.Errorf("category = %q, want Authentication & Access via local fallback", draft.AIPredictedCategory)
	}
	if draft.Priority != domain.TicketPriorityHigh {
		t.Errorf("priority = %q, want High", draft.Priority)
	}
	if draft.Department != "IT" {
		t.Errorf("department = %q, want IT", draft.Department)
	}

	outcome := lastMessage(final)
	if !outcome.IsSuccess || !strings.Contains(outcome.Text, "SRV-100") {
		t.Errorf("outcome message = %+v", outcome)
	}
	if final.Step != domain.StepInitial {
		t.Errorf("step after submission = %q, want initial", final.Step)
	}
	if final.Draft.Name != "" || final.Draft.Subject != "" {
		t.Errorf("draft not cleared: %+v", final.Draft)
	}
}

func TestEmailStepRejectsInvalidInput(t *testing.T) {
	f := newConversationFixture()
	ctx := context.Background()
	sess, _ := f.svc.StartSession(ctx)
	_, _ = f.svc.HandleAction(ctx, sess.ID, domain.ActionCreateTicket)
	_, _ = f.svc.HandleInput(ctx, sess.ID, "Ada")

	after, err := f.svc.HandleInput(ctx, sess.ID, "not-an-email")
	if err != nil {
		t.Fatal(err)
	}
	if after.Step != domain.StepEmail {
		t.Fatalf("step = %q, want email (re-prompt in place)", after.Step)
	}
	if after.Draft.Email != "" {
		t.Errorf("invalid email stored: %q", after.Draft.Email)
	}
}

func TestCheckStatusInvalidEmailReprompts(t *testing.T) {
	f := newConversationFixture()
	ctx := context.Background()
	sess, _ := f.svc.StartSession(ctx)
	_, _ = f.svc.HandleAction(ctx, sess.ID, domain.ActionCheckStatus)

	after, err := f.svc.HandleInput(ctx, sess.ID, "not-an-email")
	if err != nil {
		t.Fatal(err)
	}
	if after.Step != domain.StepCheckStatus {
		t.Fatalf("step = %q, want check_status", after.Step)
	}
	if !strings.Contains(lastMessage(after).Text, "valid email") {
		t.Errorf("re-prompt = %q", lastMessage(after).Text)
	}
}

func TestCheckStatusDemoModeOnLookupFailure(t *testing.T) {
	f := newConversationFixture()
	f.lookup.err = errors.New("connection refused")
	ctx := context.Background()
	sess, _ := f.svc.StartSession(ctx)
	_, _ = f.svc.HandleAction(ctx, sess.ID, domain.ActionCheckStatus)

	after, err := f.svc.HandleInput(ctx, sess.ID, "ada@example.com")
	if err != nil {
		t.Fatal(err)
	}
	msg := lastMessage(after)
	if !strings.Contains(msg.Text, "example data") {
		t.Errorf("demo mode not disclosed: %q", msg.Text)
	}
	if after.Step != domain.StepInitial {
		t.Errorf("step = %q, want initial", after.Step)
	}
}

func TestInstantHelpTriage(t *testing.T) {
	f := newConversationFixture()
	f.analysis.instantResult = domain.ClassificationResult{
		Category:      "Performance & Speed",
		Priority:      domain.TicketPriorityMedium,
		Confidence:    0.85,
		EstimatedTime: "4-6 hours",
		Insights:      []string{"Clear the cache"},
	}
	ctx := context.Background()
	sess, _ := f.svc.StartSession(ctx)
	_, _ = f.svc.HandleAction(ctx, sess.ID, domain.ActionInstantHelp)

	after, err := f.svc.HandleInput(ctx, sess.ID, "the app is slow")
	if err != nil {
		t.Fatal(err)
	}
	msg := lastMessage(after)
	if msg.IsLoading {
		t.Fatal("loading placeholder not replaced")
	}
	if !strings.Contains(msg.Text, "Performance & Speed") || !strings.Contains(msg.Text, "Clear the cache") {
		t.Errorf("triage message = %q", msg.Text)
	}
	if !hasSuggestion(msg, domain.ActionResolved) || !hasSuggestion(msg, domain.ActionStillNeedHelp) {
		t.Errorf("triage suggestions = %v", msg.Suggestions)
	}
	if after.Step != domain.StepInitial {
		t.Errorf("step = %q, want initial", after.Step)
	}
}

func TestOfflineSubmission(t *testing.T) {
	f := newConversationFixture()
	f.analysis.analyzeErr = errors.New("timeout")
	f.tickets.err = errors.New("502")
	ctx := context.Background()
	sess, _ := f.svc.StartSession(ctx)

	_, _ = f.svc.HandleAction(ctx, sess.ID, domain.ActionCreateTicket)
	_, _ = f.svc.HandleInput(ctx, sess.ID, "Ada")
	_, _ = f.svc.HandleInput(ctx, sess.ID, "ada@example.com")
	_, _ = f.svc.HandleInput(ctx, sess.ID, "Broken")
	_, _ = f.svc.HandleAction(ctx, sess.ID, domain.ActionSkipAttachment)
	after, err := f.svc.HandleInput(ctx, sess.ID, "everything crashed")
	if err != nil {
		t.Fatal(err)
	}

	msg := lastMessage(after)
	if !localIDPattern.MatchString(extractTicketID(msg.Text)) {
		t.Errorf("offline message missing TK id: %q", msg.Text)
	}
	if !hasSuggestion(msg, domain.ActionRetry) || !hasSuggestion(msg, domain.ActionCallSupport) {
		t.Errorf("offline suggestions = %v", msg.Suggestions)
	}
}

func TestRetryAfterOfflineCapture(t *testing.T) {
	f := newConversationFixture()
	f.analysis.analyzeErr = errors.New("timeout")
	f.tickets.err = errors.New("502")
	ctx := context.Background()
	sess, _ := f.svc.StartSession(ctx)

	_, _ = f.svc.HandleAction(ctx, sess.ID, domain.ActionCreateTicket)
	_, _ = f.svc.HandleInput(ctx, sess.ID, "Ada")
	_, _ = f.svc.HandleInput(ctx, sess.ID, "ada@example.com")
	_, _ = f.svc.HandleInput(ctx, sess.ID, "Broken")
	_, _ = f.svc.HandleAction(ctx, sess.ID, domain.ActionSkipAttachment)
	_, _ = f.svc.HandleInput(ctx, sess.ID, "everything crashed")

	// Service recovers; retry should file the same draft remotely.
	f.tickets.err = nil
	f.tickets.id = "SRV-77"
	after, err := f.svc.HandleAction(ctx, sess.ID, domain.ActionRetry)
	if err != nil {
		t.Fatal(err)
	}
	msg := lastMessage(after)
	if !msg.IsSuccess || !strings.Contains(msg.Text, "SRV-77") {
		t.Errorf("retry outcome = %+v", msg)
	}
	if after.LastSubmitted != nil {
		t.Error("LastSubmitted not cleared after successful retry")
	}

	// The queued row was re-driven, so the sync worker has nothing left to
	// file for this draft.
	pending, _ := f.offline.ListPending(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("offline queue still holds %d row(s) after successful retry", len(pending))
	}
}

func TestFailedRetryDoesNotDuplicateQueuedTicket(t *testing.T) {
	f := newConversationFixture()
	f.analysis.analyzeErr = errors.New("timeout")
	f.tickets.err = errors.New("502")
	ctx := context.Background()
	sess, _ := f.svc.StartSession(ctx)

	_, _ = f.svc.HandleAction(ctx, sess.ID, domain.ActionCreateTicket)
	_, _ = f.svc.HandleInput(ctx, sess.ID, "Ada")
	_, _ = f.svc.HandleInput(ctx, sess.ID, "ada@example.com")
	_, _ = f.svc.HandleInput(ctx, sess.ID, "Broken")
	_, _ = f.svc.HandleAction(ctx, sess.ID, domain.ActionSkipAttachment)
	_, _ = f.svc.HandleInput(ctx, sess.ID, "everything crashed")

	after, err := f.svc.HandleAction(ctx, sess.ID, domain.ActionRetry)
	if err != nil {
		t.Fatal(err)
	}
	if !hasSuggestion(lastMessage(after), domain.ActionRetry) {
		t.Errorf("still-offline message = %+v", lastMessage(after))
	}

	pending, _ := f.offline.ListPending(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("offline queue holds %d row(s) after failed retry, want the original row only", len(pending))
	}
}

func TestAttachmentRejectionIsIdempotent(t *testing.T) {
	f := newConversationFixture()
	ctx := context.Background()
	sess, _ := f.svc.StartSession(ctx)
	_, _ = f.svc.HandleAction(ctx, sess.ID, domain.ActionCreateTicket)
	_, _ = f.svc.HandleInput(ctx, sess.ID, "Ada")
	_, _ = f.svc.HandleInput(ctx, sess.ID, "ada@example.com")
	_, _ = f.svc.HandleInput(ctx, sess.ID, "Broken")

	oversized := domain.Attachment{
		Name:      "huge.png",
		SizeBytes: domain.MaxAttachmentBytes + 1,
		MimeType:  "image/png",
	}

	first, err := f.svc.HandleAttachment(ctx, sess.ID, oversized)
	if err != nil {
		t.Fatal(err)
	}
	firstText := lastMessage(first).Text

	second, err := f.svc.HandleAttachment(ctx, sess.ID, oversized)
	if err != nil {
		t.Fatal(err)
	}
	secondText := lastMessage(second).Text

	if firstText != secondText {
		t.Errorf("rejection messages differ:\n%q\n%q", firstText, secondText)
	}
	if second.Draft.Attachment != nil {
		t.Error("rejected attachment entered the draft")
	}
	if second.Step != domain.StepAttachment {
		t.Errorf("step = %q, want attachment", second.Step)
	}
}

func TestValidAttachmentAdvances(t *testing.T) {
	f := newConversationFixture()
	ctx := context.Background()
	sess, _ := f.svc.StartSession(ctx)
	_, _ = f.svc.HandleAction(ctx, sess.ID, domain.ActionCreateTicket)
	_, _ = f.svc.HandleInput(ctx, sess.ID, "Ada")
	_, _ = f.svc.HandleInput(ctx, sess.ID, "ada@example.com")
	_, _ = f.svc.HandleInput(ctx, sess.ID, "Broken")

	after, err := f.svc.HandleAttachment(ctx, sess.ID, domain.Attachment{
		Name:      "screenshot.png",
		SizeBytes: 1024,
		MimeType:  "image/png",
		Data:      []byte{1, 2, 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	if after.Draft.Attachment == nil || after.Draft.Attachment.Name != "screenshot.png" {
		t.Fatalf("attachment not merged: %+v", after.Draft.Attachment)
	}
	if after.Step != domain.StepDescription {
		t.Errorf("step = %q, want description", after.Step)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	f := newConversationFixture()
	ctx := context.Background()
	sess, _ := f.svc.StartSession(ctx)

	first, err := f.svc.Reset(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.svc.Reset(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}

	for i, s := range []*domain.Session{first, second} {
		if len(s.Transcript) != 1 {
			t.Errorf("reset %d: transcript length = %d, want 1", i+1, len(s.Transcript))
		}
		if s.Step != domain.StepInitial {
			t.Errorf("reset %d: step = %q, want initial", i+1, s.Step)
		}
		if s.Draft.Name != "" || s.Draft.Email != "" {
			t.Errorf("reset %d: draft not empty: %+v", i+1, s.Draft)
		}
	}
	if first.Transcript[0].Text != second.Transcript[0].Text {
		t.Error("reset twice produced different welcome messages")
	}
}

func TestResetRequiresConfirmationMidConversation(t *testing.T) {
	f := newConversationFixture()
	ctx := context.Background()
	sess, _ := f.svc.StartSession(ctx)
	_, _ = f.svc.HandleInput(ctx, sess.ID, "hello")

	armed, err := f.svc.Reset(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !armed.ResetPending {
		t.Fatal("reset did not arm confirmation")
	}
	if len(armed.Transcript) == 1 {
		t.Fatal("transcript cleared without confirmation")
	}

	cleared, err := f.svc.HandleInput(ctx, sess.ID, "yes")
	if err != nil {
		t.Fatal(err)
	}
	if len(cleared.Transcript) != 1 || cleared.Step != domain.StepInitial || cleared.ResetPending {
		t.Fatalf("confirmation did not clear: %d messages, step=%q", len(cleared.Transcript), cleared.Step)
	}
}

func TestResetConfirmationDeclined(t *testing.T) {
	f := newConversationFixture()
	ctx := context.Background()
	sess, _ := f.svc.StartSession(ctx)
	_, _ = f.svc.HandleInput(ctx, sess.ID, "hello")
	_, _ = f.svc.Reset(ctx, sess.ID)

	kept, err := f.svc.HandleInput(ctx, sess.ID, "no")
	if err != nil {
		t.Fatal(err)
	}
	if kept.ResetPending {
		t.Error("pending flag not cleared after decline")
	}
	if len(kept.Transcript) <= 1 {
		t.Error("transcript was cleared despite decline")
	}
}

func TestUnknownActionFallsThroughToResponder(t *testing.T) {
	f := newConversationFixture()
	ctx := context.Background()
	sess, _ := f.svc.StartSession(ctx)

	after, err := f.svc.HandleAction(ctx, sess.ID, domain.ActionTag("warp_drive"))
	if err != nil {
		t.Fatal(err)
	}
	if lastMessage(after).Text == "" {
		t.Fatal("no response for unknown action")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	f := newConversationFixture()
	ctx := context.Background()
	one, _ := f.svc.StartSession(ctx)
	two, _ := f.svc.StartSession(ctx)

	_, _ = f.svc.HandleAction(ctx, one.ID, domain.ActionCreateTicket)
	_, _ = f.svc.HandleInput(ctx, one.ID, "Ada")

	otherStored, _ := f.store.Get(ctx, two.ID)
	if otherStored.Step != domain.StepInitial || otherStored.Draft.Name != "" {
		t.Fatalf("session two affected by session one: %+v", otherStored)
	}
}

// extractTicketID pulls the first TK-prefixed token from a message.
func extractTicketID(text string) string {
	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,!")
		if strings.HasPrefix(word, "TK") {
			return word
		}
	}
	return ""
}
