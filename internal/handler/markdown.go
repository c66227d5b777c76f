package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"noteflow/internal/domain"
	"noteflow/internal/parser"
)

// RenderMarkdown renders markdown to HTML using goldmark
func (h *Handler) RenderMarkdown(c echo.Context) error {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "Invalid request")
	}

	html, err := parser.RenderMarkdown(req.Content)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to render markdown"})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"html": html,
		"text": parser.PlainText(req.Content, domain.FormatMarkdown),
	})
}
