package handler

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"noteflow/internal/domain"
	"noteflow/internal/gateway"
	"noteflow/internal/store"
)

type errorResponse struct {
	Error  string              `json:"error"`
	Detail string              `json:"detail,omitempty"`
	Fields []domain.FieldError `json:"fields,omitempty"`
	// Partial cascades report which records were written.
	Succeeded []string `json:"succeeded,omitempty"`
	Failed    []string `json:"failed,omitempty"`
}

// statusFor maps an error onto the HTTP status the client sees.
func statusFor(err error) int {
	var fan *gateway.FanOutError
	switch {
	case errors.As(err, &fan):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPrecondition):
		return http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrServer), errors.Is(err, domain.ErrConnectivity):
		return http.StatusBadGateway
	case store.IsTransient(err), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error response.
func (h *Handler) fail(c echo.Context, err error) error {
	code := statusFor(err)
	resp := errorResponse{Error: domain.UserMessage(err), Detail: err.Error()}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp.Fields = ve.Errors
	}
	var fan *gateway.FanOutError
	if errors.As(err, &fan) {
		resp.Error = "Some records could not be updated. Nothing was deleted."
		resp.Succeeded = fan.Succeeded
		for id := range fan.Failed {
			resp.Failed = append(resp.Failed, id)
		}
		sort.Strings(resp.Failed)
	}
	if code >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)
	}
	return c.JSON(code, resp)
}

func (h *Handler) badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}
