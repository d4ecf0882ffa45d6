package middleware

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/personify-ai/personify/internal/api/response"
	"github.com/personify-ai/personify/internal/dispatch"
)

// maxWebhookBody caps how much of a delivery body is read for verification.
const maxWebhookBody = 1 << 20

// WebhookVerify authenticates inbound dispatch deliveries against their
// signature header. The raw body is stored in the request context for the
// handler, since verification consumes it.
type WebhookVerify struct {
	verifier *dispatch.Verifier
}

// NewWebhookVerify creates the signature verification middleware.
func NewWebhookVerify(v *dispatch.Verifier) *WebhookVerify {
	return &WebhookVerify{verifier: v}
}

func (wv *WebhookVerify) Verify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				"INVALID_REQUEST", "Failed to read request body", nil)
			return
		}

		signature := r.Header.Get("Upstash-Signature")
		if err := wv.verifier.Verify(signature, body); err != nil {
			slog.Warn("webhook signature verification failed", "error", err)
			response.Error(w, http.StatusUnauthorized,
				"INVALID_SIGNATURE", "Signature verification failed", nil)
			return
		}

		r = r.WithContext(setRawBody(r.Context(), body))
		next.ServeHTTP(w, r)
	})
}
