// Package aichat sends in-note prompts to the chat backends and writes the
// answers back into the note.
package aichat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"noteflow/internal/domain"
	"noteflow/internal/parser"
	"noteflow/internal/remote"
)

// Endpoints maps each delimiter kind to the base URL of its backend.
type Endpoints map[parser.DelimiterKind]string

type Client struct {
	endpoints  Endpoints
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(endpoints Endpoints, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	trimmed := make(Endpoints, len(endpoints))
	for k, v := range endpoints {
		trimmed[k] = strings.TrimSuffix(v, "/")
	}
	return &Client{
		endpoints:  trimmed,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.Named("aichat"),
	}
}

type chatRequest struct {
	Prompt string `json:"prompt"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// FormatPrompt builds the request text: the instruction followed by the note
// text that precedes it.
func FormatPrompt(prompt, preceding string) string {
	return "User asked / ordered: " + prompt + "\n" + preceding
}

// Ask sends span to the backend its delimiter names and returns the answer.
func (c *Client) Ask(ctx context.Context, span parser.PromptSpan) (string, error) {
	base, ok := c.endpoints[span.Kind]
	if !ok || base == "" {
		return "", fmt.Errorf("aichat: %w: no backend for %q", domain.ErrPrecondition, span.Kind)
	}
	service := "aichat " + string(span.Kind)

	payload, err := json.Marshal(chatRequest{Prompt: FormatPrompt(span.Prompt, span.Preceding)})
	if err != nil {
		return "", fmt.Errorf("aichat: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("aichat: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("chat request", zap.String("provider", string(span.Kind)), zap.Int("prompt_len", len(span.Prompt)))

	resp, err := remote.Do(c.httpClient, service, req)
	if err != nil {
		c.log.Error("chat request failed", zap.String("provider", string(span.Kind)), zap.Error(err))
		return "", err
	}
	defer resp.Body.Close()

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("aichat: decode json: %w", err)
	}
	return out.Response, nil
}
