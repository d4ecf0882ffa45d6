package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	mw "github.com/personify-ai/personify/internal/api/middleware"
)

// NewAnalyzeWebhookHandler returns an http.HandlerFunc for
// POST /webhooks/dispatch/analyze. The delivery channel redelivers on
// non-success responses, so this handler always acknowledges with 200:
// internal failures are recorded in job state, never surfaced as delivery
// failures.
func NewAnalyzeWebhookHandler(svc AnalysisService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := mw.GetRawBody(r)
		if !ok {
			// Signature middleware didn't run; nothing trustworthy to process.
			slog.Error("webhook invoked without verified body")
			ack(w, false)
			return
		}

		var payload struct {
			RequestID string `json:"request_id"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			slog.Error("invalid webhook payload", "error", err)
			ack(w, false)
			return
		}
		if _, err := uuid.Parse(payload.RequestID); err != nil {
			slog.Error("webhook payload carries invalid request id", "request_id", payload.RequestID)
			ack(w, false)
			return
		}

		if err := svc.Process(r.Context(), payload.RequestID); err != nil {
			// Storage-level failure before the job could be picked up; the
			// lock TTL and a later redelivery will retry it.
			slog.Error("webhook processing failed", "request_id", payload.RequestID, "error", err)
			ack(w, false)
			return
		}

		ack(w, true)
	}
}

func ack(w http.ResponseWriter, success bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"success": success})
}
