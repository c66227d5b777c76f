// Package transcribe is the client for the speech-to-text service.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"noteflow/internal/remote"
)

const service = "transcribe"

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// New returns a client posting to <baseURL>/api/transcribe.
func New(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log.Named("transcribe"),
	}
}

type response struct {
	Transcription string `json:"transcription"`
}

// Transcribe uploads audio as the multipart field "audio" and returns the
// transcription text.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if filename == "" {
		filename = "recording.webm"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("transcribe: create form: %w", err)
	}
	n, err := io.Copy(part, audio)
	if err != nil {
		return "", fmt.Errorf("transcribe: read audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("transcribe: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/transcribe", &body)
	if err != nil {
		return "", fmt.Errorf("transcribe: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	c.log.Debug("transcription request", zap.String("file", filename), zap.Int64("bytes", n))

	start := time.Now()
	resp, err := remote.Do(c.httpClient, service, req)
	if err != nil {
		c.log.Error("transcription request failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", err
	}
	defer resp.Body.Close()

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("transcribe: decode json: %w", err)
	}

	c.log.Debug("transcription response",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("chars", len(out.Transcription)),
	)
	return out.Transcription, nil
}
