package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"noteflow/internal/domain"
	"noteflow/internal/views"
)

// ListTags returns every tag used across the caller's notes.
func (h *Handler) ListTags(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, views.CollectAllTags(s.Core.Notes()))
}

// ListUpcoming returns notes carrying a [DD/MM] due-date marker, newest
// first.
func (h *Handler) ListUpcoming(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	topicID := c.QueryParam("topic")
	if topicID == "" {
		topicID = domain.AllTopics
	}
	notes := views.SortByRecency(views.FilterByTopic(s.Core.Notes(), topicID))
	return c.JSON(http.StatusOK, views.UpcomingDated(notes))
}
