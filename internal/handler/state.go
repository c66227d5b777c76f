package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authmw "noteflow/internal/middleware"
)

// GetState returns the caller's full synchronized view, including the
// per-collection subscription status. It does not wait for live data.
func (h *Handler) GetState(c echo.Context) error {
	s, err := h.sessions.Get(c.Request().Context(), authmw.UserID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, s.Core.View())
}

// RetrySync re-subscribes collections whose subscription failed.
func (h *Handler) RetrySync(c echo.Context) error {
	s, err := h.sessions.Get(c.Request().Context(), authmw.UserID(c))
	if err != nil {
		return h.fail(c, err)
	}
	if err := s.Core.Retry(c.Request().Context()); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, s.Core.Status())
}
