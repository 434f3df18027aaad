package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-assistant/internal/classifier"
	"github.com/spec-kit/support-assistant/internal/domain"
	"github.com/spec-kit/support-assistant/internal/events"
	"github.com/spec-kit/support-assistant/internal/observability"
)

// AnalysisGateway is the remote classification surface the resolution
// pipeline tries first.
type AnalysisGateway interface {
	AnalyzeTicket(ctx context.Context, subject, description string) (domain.ClassificationResult, error)
	InstantHelp(ctx context.Context, message, helpContext string) (domain.ClassificationResult, error)
}

// ResolutionService classifies free text through the remote gateway with a
// guaranteed local fallback. It never returns an error: every input yields
// a usable ClassificationResult.
type ResolutionService struct {
	gateway    AnalysisGateway
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// ResolutionDependencies bundles collaborators for the resolution service.
type ResolutionDependencies struct {
	Gateway    AnalysisGateway
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// NewResolutionService constructs the service.
func NewResolutionService(deps ResolutionDependencies) *ResolutionService {
	return &ResolutionService{
		gateway:    deps.Gateway,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
}

// Resolve classifies the text in the requested mode. The second return
// value reports whether the remote path produced the result.
func (s *ResolutionService) Resolve(ctx context.Context, sessionID, subject, text string, mode domain.ClassifyMode) (domain.ClassificationResult, bool) {
	remote := func(ctx context.Context) (domain.ClassificationResult, error) {
		if mode == domain.ModeTriage {
			return s.gateway.InstantHelp(ctx, text, "")
		}
		return s.gateway.AnalyzeTicket(ctx, subject, text)
	}
	local := func() domain.ClassificationResult {
		return classifier.Classify(text)
	}

	result, remoteOK, err := resolveWithFallback(ctx, remote, local)
	if remoteOK {
		s.metrics.RecordClassification(string(mode), "remote")
		return result, true
	}

	s.logger.Warn("remote classification unavailable, using local heuristic",
		zap.String("mode", string(mode)),
		zap.Error(err))
	s.metrics.RecordClassification(string(mode), "local")
	s.publishFallback(ctx, sessionID, mode, err)
	return result, false
}

// resolveWithFallback runs the remote call and falls through to the local
// classifier on any failure or invalid result. A result without category,
// priority, or a positive confidence counts as malformed. The local path
// cannot fail.
func resolveWithFallback(
	ctx context.Context,
	remote func(context.Context) (domain.ClassificationResult, error),
	local func() domain.ClassificationResult,
) (domain.ClassificationResult, bool, error) {
	result, err := remote(ctx)
	if err == nil && result.Category != "" && result.Priority != "" && result.Confidence > 0 {
		return result, true, nil
	}
	return local(), false, err
}

func (s *ResolutionService) publishFallback(ctx context.Context, sessionID string, mode domain.ClassifyMode, cause error) {
	if s.dispatcher == nil {
		return
	}
	reason := "malformed response"
	if cause != nil {
		reason = cause.Error()
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventClassificationFellBack,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Payload: events.ClassificationFellBackPayload{
			Mode:   mode,
			Reason: reason,
		},
	})
}
