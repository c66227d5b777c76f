package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"noteflow/internal/domain"
)

// RunPrompt resolves the actionable AI prompt in a note's current content.
// Clients call it after edits; repeated calls with an unchanged prompt do
// nothing.
func (h *Handler) RunPrompt(c echo.Context) error {
	if h.assistant == nil {
		return h.fail(c, fmt.Errorf("ai prompts: %w: not configured", domain.ErrPrecondition))
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	n, err := findNote(s, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	res, err := h.assistant.Run(c.Request().Context(), s.Scope(), n)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
