package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"noteflow/internal/domain"
	"noteflow/internal/gateway"
)

// UploadMedia attaches the multipart "file" to a note.
func (h *Handler) UploadMedia(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return h.badRequest(c, "No file uploaded")
	}
	src, err := file.Open()
	if err != nil {
		return h.badRequest(c, "Failed to open uploaded file")
	}
	defer src.Close()

	return h.mutate(c, func(ctx context.Context, scope gateway.Scope, n domain.Note) (domain.Note, error) {
		return h.gw.AttachMedia(ctx, scope, n, file.Filename, src)
	})
}

// DeleteMedia removes the attachment named by ?url= from a note.
func (h *Handler) DeleteMedia(c echo.Context) error {
	if err := requireConfirm(c); err != nil {
		return h.fail(c, err)
	}
	url := c.QueryParam("url")
	if url == "" {
		return h.badRequest(c, "Missing url")
	}
	return h.mutate(c, func(ctx context.Context, scope gateway.Scope, n domain.Note) (domain.Note, error) {
		return h.gw.RemoveMedia(ctx, scope, n, url)
	})
}
