package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/personify-ai/personify/internal/dispatch"
	"github.com/personify-ai/personify/pkg/models"
)

// FailedUserMessage is the fixed generic message shown to end users for a
// failed analysis. The structured diagnostic never leaves the backend.
const FailedUserMessage = "Analysis failed. Please try again later."

// Store is the persistence interface the orchestrator depends on,
// implemented by StateStore.
type Store interface {
	CreateQueued(ctx context.Context, requestID, userID string, input models.AnalysisInput) error
	GetState(ctx context.Context, requestID string) (*models.AnalysisState, bool, error)
	MarkProcessing(ctx context.Context, requestID string) error
	MarkDone(ctx context.Context, requestID, result string) error
	MarkFailed(ctx context.Context, requestID string, detail *models.FailureDetail) error
	AcquireLock(ctx context.Context, requestID string) (bool, error)
	ReleaseLock(ctx context.Context, requestID string)
}

// View is the read-only projection of an analysis returned to clients.
// FailureDetail is always stripped; a failed analysis carries only the
// generic user-facing message.
type View struct {
	RequestID string               `json:"request_id"`
	Status    models.Status        `json:"status"`
	Input     models.AnalysisInput `json:"input"`
	Result    string               `json:"result,omitempty"`
	Error     string               `json:"error,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// Service owns the analysis job state machine: creation, idempotent
// processing, and completion or failure recording.
type Service struct {
	store        Store
	publisher    dispatch.Publisher
	generator    models.Generator
	webhookURL   string
	delay        time.Duration
	timeout      time.Duration
	includeStack bool
}

// NewService creates the orchestrator. webhookURL is the absolute URL the
// dispatch service will POST back to after delay. When includeStack is set
// (non-production builds), failure diagnostics carry a stack trace.
func NewService(st Store, pub dispatch.Publisher, gen models.Generator, webhookURL string, delay, timeout time.Duration, includeStack bool) *Service {
	return &Service{
		store:        st,
		publisher:    pub,
		generator:    gen,
		webhookURL:   webhookURL,
		delay:        delay,
		timeout:      timeout,
		includeStack: includeStack,
	}
}

// Create persists a new Queued analysis and schedules the delayed processing
// callback. The two steps are not transactional: a schedule failure after the
// state write leaves the job Queued until its TTL reclaims it, and the error
// propagates to the caller.
func (s *Service) Create(ctx context.Context, userID string, input models.AnalysisInput) (string, error) {
	requestID := uuid.New().String()

	if err := s.store.CreateQueued(ctx, requestID, userID, input); err != nil {
		return "", err
	}

	err := s.publisher.Publish(ctx, s.webhookURL, dispatch.Payload{RequestID: requestID}, s.delay)
	if err != nil {
		return "", fmt.Errorf("schedule analysis callback: %w", err)
	}

	slog.Info("created analysis request", "request_id", requestID, "user_id", userID)
	return requestID, nil
}

// Get returns the client projection of an analysis, or ErrNotFound for an
// unknown or expired request ID.
func (s *Service) Get(ctx context.Context, requestID string) (*View, error) {
	state, found, err := s.store.GetState(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, requestID)
	}

	view := &View{
		RequestID: state.RequestID,
		Status:    state.Status,
		Input:     state.Input,
		CreatedAt: state.CreatedAt,
		UpdatedAt: state.UpdatedAt,
	}
	switch state.Status {
	case models.StatusDone:
		view.Result = state.Result
	case models.StatusFailed:
		view.Error = FailedUserMessage
	case models.StatusQueued, models.StatusProcessing:
		// Nothing extra to project.
	}
	return view, nil
}

// Process is the idempotent processing entry point, invoked by the webhook on
// every callback delivery, possibly more than once per job. Whoever acquires
// the lock runs the generation; everyone else is a no-op. Generation failures
// are absorbed into a terminal Failed state and never returned; only storage
// failures surface, and the webhook still acknowledges those.
func (s *Service) Process(ctx context.Context, requestID string) error {
	acquired, err := s.store.AcquireLock(ctx, requestID)
	if err != nil {
		return err
	}
	if !acquired {
		slog.Info("analysis already being processed", "request_id", requestID)
		return nil
	}
	defer s.store.ReleaseLock(ctx, requestID)

	state, found, err := s.store.GetState(ctx, requestID)
	if err != nil {
		return err
	}
	if !found {
		slog.Warn("analysis state not found, nothing to process", "request_id", requestID)
		return nil
	}

	if state.Status.IsTerminal() {
		slog.Info("analysis already completed", "request_id", requestID, "status", state.Status)
		return nil
	}

	if err := s.store.MarkProcessing(ctx, requestID); err != nil {
		return err
	}
	slog.Info("starting analysis processing", "request_id", requestID)

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, genErr := s.generator.GenerateSummary(genCtx, state.Input)
	if genErr != nil {
		slog.Error("analysis generation failed", "request_id", requestID, "error", genErr)
		return s.store.MarkFailed(ctx, requestID, s.failureDetail(genErr))
	}

	if err := s.store.MarkDone(ctx, requestID, result); err != nil {
		return err
	}
	slog.Info("analysis completed", "request_id", requestID)
	return nil
}

// failureDetail builds the structured diagnostic for a generation failure.
func (s *Service) failureDetail(err error) *models.FailureDetail {
	detail := &models.FailureDetail{
		Code:    classifyGeneration(err),
		Message: err.Error(),
	}
	if s.includeStack {
		detail.Stack = string(debug.Stack())
	}
	return detail
}

func classifyGeneration(err error) string {
	switch {
	case errors.Is(err, models.ErrAuth):
		return "AI_AUTH"
	case errors.Is(err, models.ErrRateLimited):
		return "AI_RATE_LIMITED"
	case errors.Is(err, models.ErrTimeout):
		return "AI_TIMEOUT"
	case errors.Is(err, models.ErrConnection):
		return "AI_CONNECTION"
	case errors.Is(err, models.ErrMalformedRequest):
		return "AI_MALFORMED_REQUEST"
	case errors.Is(err, models.ErrInvalidResponse):
		return "AI_INVALID_RESPONSE"
	default:
		return "AI_UNKNOWN"
	}
}
