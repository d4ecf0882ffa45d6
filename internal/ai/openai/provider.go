// Package openai implements models.Generator against the OpenAI
// chat-completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/personify-ai/personify/internal/config"
	"github.com/personify-ai/personify/pkg/models"
)

const maxOutputTokens = 1000

// Provider implements models.Generator using OpenAI.
type Provider struct {
	cfg    config.OpenAIConfig
	client *http.Client
}

// NewProvider creates an OpenAI provider. The request deadline is carried by
// the caller's context, so the underlying client sets no timeout of its own.
func NewProvider(cfg config.OpenAIConfig) *Provider {
	return &Provider{
		cfg:    cfg,
		client: &http.Client{},
	}
}

func (p *Provider) Name() string { return "openai" }

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// GenerateSummary produces a short personality summary from the input.
func (p *Provider) GenerateSummary(ctx context.Context, input models.AnalysisInput) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: buildPrompt(input)},
		},
		MaxTokens: maxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrMalformedRequest, err)
	}

	u := fmt.Sprintf("%s/v1/chat/completions", p.cfg.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: building request: %v", models.ErrMalformedRequest, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return "", err
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", models.ErrInvalidResponse, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", models.ErrInvalidResponse)
	}

	summary := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if summary == "" {
		return "", fmt.Errorf("%w: empty completion", models.ErrInvalidResponse)
	}
	return summary, nil
}

func buildPrompt(input models.AnalysisInput) string {
	return fmt.Sprintf(`Based on the following information, generate a short personality summary (2-3 sentences):

Name: %s
Age: %d
Description: %s

Instructions:
- If the provided information is sufficient, create a personality summary based on the given details.
- If the information is insufficient, incomplete, or too vague, generate a creative and randomized personality summary that is interesting and believable.
- The summary should always be 2-3 sentences long, regardless of whether it's based on provided information or randomized.

Provide a concise, insightful personality summary:`,
		input.Name, input.Age, input.Description)
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", models.ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", models.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", models.ErrConnection, err)
}

func classifyStatus(status int) error {
	switch {
	case status >= 200 && status <= 299:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", models.ErrAuth, status)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", models.ErrRateLimited, status)
	case status >= 400 && status <= 499:
		return fmt.Errorf("%w: status %d", models.ErrMalformedRequest, status)
	default:
		return fmt.Errorf("%w: status %d", models.ErrConnection, status)
	}
}

var _ models.Generator = (*Provider)(nil)
