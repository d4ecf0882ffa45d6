// Package dispatch integrates with the delayed-dispatch service (QStash).
// A published payload is POSTed back to the target URL after approximately
// the requested delay, at least once.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Sentinel errors for dispatch client failures.
var (
	ErrDispatchUnreachable = errors.New("dispatch service unreachable")
	ErrDispatchRejected    = errors.New("dispatch service rejected publish")
	ErrDispatchTimeout     = errors.New("dispatch publish timeout")
)

// Payload is the body delivered to the processing webhook.
type Payload struct {
	RequestID string `json:"request_id"`
}

// Publisher schedules a delayed webhook callback. Fire-and-forget from the
// caller's perspective; delivery is at-least-once.
type Publisher interface {
	Publish(ctx context.Context, targetURL string, payload Payload, delay time.Duration) error
}

// HTTPClient implements Publisher against the QStash publish API.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a new dispatch HTTP client.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Publish(ctx context.Context, targetURL string, payload Payload, delay time.Duration) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	u := fmt.Sprintf("%s/v2/publish/%s", c.baseURL, targetURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Upstash-Delay", strconv.Itoa(int(delay.Seconds()))+"s")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrDispatchRejected, resp.StatusCode)
	}

	slog.Info("published delayed job",
		"target_url", targetURL,
		"delay_seconds", int(delay.Seconds()),
		"request_id", payload.RequestID,
	)
	return nil
}

// classifyError maps transport-level failures onto the sentinel errors.
func classifyError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrDispatchTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrDispatchTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrDispatchUnreachable, err)
}

var _ Publisher = (*HTTPClient)(nil)
