// Package remote holds the HTTP plumbing shared by the transcription and
// prompt clients: request execution and mapping of failures onto the
// domain error kinds the UI distinguishes.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"noteflow/internal/domain"
)

// maxErrorBody caps how much of a failed response body is kept.
const maxErrorBody = 512

// StatusError is a non-2xx response.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Service, e.Code)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.Code, e.Body)
}

// Unwrap maps the status onto a domain error kind.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Code >= 500:
		return domain.ErrServer
	case e.Code == http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case e.Code == http.StatusForbidden:
		return domain.ErrForbidden
	case e.Code == http.StatusNotFound:
		return domain.ErrNotFound
	case e.Code == http.StatusRequestTimeout || e.Code == http.StatusGatewayTimeout:
		return domain.ErrTimeout
	default:
		return domain.ErrValidation
	}
}

// Do sends req and returns the response when its status is 2xx. Anything
// else is returned as an error wrapping ErrTimeout, ErrConnectivity or a
// *StatusError. The caller closes the body of a successful response.
func Do(client *http.Client, service string, req *http.Request) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, Classify(service, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Service: service, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

// Classify wraps a transport error with the matching domain kind.
// Cancellation by the caller is passed through unchanged.
func Classify(service string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", service, domain.ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%s: %w: %w", service, domain.ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", service, domain.ErrConnectivity, err)
}
