package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"noteflow/internal/domain"
)

var errNoBackups = fmt.Errorf("backups are not configured: %w", domain.ErrPrecondition)

// RunBackup creates a backup immediately and uploads it to every configured
// target.
func (h *Handler) RunBackup(c echo.Context) error {
	if h.backups == nil {
		return h.fail(c, errNoBackups)
	}
	name, err := h.backups.RunNow(c.Request().Context())
	if err != nil {
		if name == "" {
			return h.fail(c, err)
		}
		// Some targets took the archive.
		h.log.Warn("backup partially uploaded", zap.String("file", name), zap.Error(err))
		return c.JSON(http.StatusMultiStatus, map[string]string{
			"message": "Backup uploaded to some targets",
			"file":    name,
			"error":   err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Backup completed successfully",
		"file":    name,
	})
}

// ListBackups lists archives held by every target.
func (h *Handler) ListBackups(c echo.Context) error {
	if h.backups == nil {
		return h.fail(c, errNoBackups)
	}
	names, err := h.backups.List(c.Request().Context())
	if err != nil && len(names) == 0 {
		return h.fail(c, err)
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(http.StatusOK, names)
}
