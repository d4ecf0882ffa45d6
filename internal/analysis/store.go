// Package analysis owns the analysis job lifecycle: durable state in Redis,
// the processing lock, and the orchestration around the text generator.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/personify-ai/personify/internal/cache"
	"github.com/personify-ai/personify/pkg/models"
)

// ErrNotFound is returned when no analysis state exists for a request ID.
// An expired record is indistinguishable from one that never existed.
var ErrNotFound = errors.New("analysis state not found")

const (
	// DefaultStateTTL bounds the lifetime of a job record.
	DefaultStateTTL = time.Hour
	// DefaultLockTTL bounds how long a crashed processing attempt can block
	// a retry. Must stay shorter than the dispatcher's redelivery interval.
	DefaultLockTTL = 2 * time.Minute
)

// StateStore persists analysis job state and processing locks on a key-value
// backend, owning key naming, JSON serialization, and TTL bookkeeping so the
// orchestrator never touches storage primitives directly.
type StateStore struct {
	kv       cache.KV
	stateTTL time.Duration
	lockTTL  time.Duration
}

// NewStateStore creates a StateStore with the default TTL windows.
func NewStateStore(kv cache.KV) *StateStore {
	return &StateStore{
		kv:       kv,
		stateTTL: DefaultStateTTL,
		lockTTL:  DefaultLockTTL,
	}
}

// CreateQueued writes a new job record with status Queued and the default TTL
// window. The caller guarantees requestID freshness; no existence check is made.
func (s *StateStore) CreateQueued(ctx context.Context, requestID, userID string, input models.AnalysisInput) error {
	now := time.Now().UTC()
	state := &models.AnalysisState{
		RequestID: requestID,
		UserID:    userID,
		Status:    models.StatusQueued,
		Input:     input,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.write(ctx, state, s.stateTTL); err != nil {
		return fmt.Errorf("create queued state: %w", err)
	}

	slog.Debug("created queued analysis state", "request_id", requestID)
	return nil
}

// GetState returns the job record, or found=false if it is absent or expired.
// Backend failure is an error, distinct from the normal not-found outcome.
func (s *StateStore) GetState(ctx context.Context, requestID string) (*models.AnalysisState, bool, error) {
	data, found, err := s.kv.Get(ctx, cache.AnalysisStateKey(requestID))
	if err != nil {
		return nil, false, fmt.Errorf("get analysis state: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	var state models.AnalysisState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, false, fmt.Errorf("decode analysis state: %w", err)
	}
	return &state, true, nil
}

// MarkProcessing transitions the record to Processing.
func (s *StateStore) MarkProcessing(ctx context.Context, requestID string) error {
	return s.update(ctx, requestID, func(state *models.AnalysisState) {
		state.Status = models.StatusProcessing
	})
}

// MarkDone transitions the record to Done and records the generated text.
func (s *StateStore) MarkDone(ctx context.Context, requestID, result string) error {
	return s.update(ctx, requestID, func(state *models.AnalysisState) {
		state.Status = models.StatusDone
		state.Result = result
		state.FailureDetail = nil
	})
}

// MarkFailed transitions the record to Failed and records the diagnostic.
// The detail is kept for operator inspection; Get strips it before returning
// state to end users.
func (s *StateStore) MarkFailed(ctx context.Context, requestID string, detail *models.FailureDetail) error {
	return s.update(ctx, requestID, func(state *models.AnalysisState) {
		state.Status = models.StatusFailed
		state.FailureDetail = detail
		state.Result = ""
	})
}

// AcquireLock attempts an atomic set-if-absent on the lock key. Returns
// whether the lock was obtained; it never blocks or retries. A held lock is a
// normal outcome meaning another attempt owns this job right now.
func (s *StateStore) AcquireLock(ctx context.Context, requestID string) (bool, error) {
	acquired, err := s.kv.SetNX(ctx, cache.AnalysisLockKey(requestID), []byte("locked"), s.lockTTL)
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}

	if acquired {
		slog.Debug("acquired processing lock", "request_id", requestID)
	} else {
		slog.Debug("processing lock already held", "request_id", requestID)
	}
	return acquired, nil
}

// ReleaseLock deletes the lock key. Failure is logged but never propagated:
// the lock TTL is the safety net, so a failed release must not crash the
// caller or leave the job stuck.
func (s *StateStore) ReleaseLock(ctx context.Context, requestID string) {
	if err := s.kv.Delete(ctx, cache.AnalysisLockKey(requestID)); err != nil {
		slog.Error("failed to release processing lock, TTL will reclaim it",
			"request_id", requestID, "error", err)
		return
	}
	slog.Debug("released processing lock", "request_id", requestID)
}

// update loads the record, applies mutate, refreshes UpdatedAt, and rewrites
// it preserving the remaining TTL. A record updated late in its life must
// neither disappear immediately nor live forever.
func (s *StateStore) update(ctx context.Context, requestID string, mutate func(*models.AnalysisState)) error {
	state, found, err := s.GetState(ctx, requestID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, requestID)
	}

	mutate(state)
	state.UpdatedAt = time.Now().UTC()

	ttl, err := s.kv.TTL(ctx, cache.AnalysisStateKey(requestID))
	if err != nil {
		return fmt.Errorf("read remaining ttl: %w", err)
	}
	// Redis reports -1 (no expiry) or -2 (absent) as negative sentinels;
	// fall back to the default window when the remaining TTL is undeterminable.
	if ttl <= 0 {
		ttl = s.stateTTL
	}

	if err := s.write(ctx, state, ttl); err != nil {
		return fmt.Errorf("update analysis state: %w", err)
	}

	slog.Debug("updated analysis state", "request_id", requestID, "status", state.Status)
	return nil
}

func (s *StateStore) write(ctx context.Context, state *models.AnalysisState, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode analysis state: %w", err)
	}
	return s.kv.Set(ctx, cache.AnalysisStateKey(state.RequestID), data, ttl)
}
