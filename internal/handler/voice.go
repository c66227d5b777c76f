package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CreateVoiceNote transcribes the multipart "audio" recording into a new
// note in "Voice Notes".
func (h *Handler) CreateVoiceNote(c echo.Context) error {
	file, err := c.FormFile("audio")
	if err != nil {
		return h.badRequest(c, "No recording uploaded")
	}
	src, err := file.Open()
	if err != nil {
		return h.badRequest(c, "Failed to open recording")
	}
	defer src.Close()

	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	n, err := h.gw.CreateVoiceNote(c.Request().Context(), s.Scope(), src, file.Filename)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, n)
}
