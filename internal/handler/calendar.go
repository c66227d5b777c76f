package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"noteflow/internal/views"
)

type CalendarEventRequest struct {
	Title string    `json:"title"`
	Date  time.Time `json:"date"`
}

// GetWeek returns the Monday-first week containing ?date=YYYY-MM-DD (today
// when absent), with note dates and standalone events grouped by day.
// ?tz= selects the IANA zone days are computed in.
func (h *Handler) GetWeek(c echo.Context) error {
	loc := time.UTC
	if tz := c.QueryParam("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return h.badRequest(c, "Unknown time zone")
		}
		loc = l
	}
	day := h.now().In(loc)
	if raw := strings.TrimSpace(c.QueryParam("date")); raw != "" {
		d, err := time.ParseInLocation(time.DateOnly, raw, loc)
		if err != nil {
			return h.badRequest(c, "Invalid date, expected YYYY-MM-DD")
		}
		day = d
	}

	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	events := views.CalendarEvents(s.Core.Notes(), s.Core.Events())
	return c.JSON(http.StatusOK, views.WeekView(events, day))
}

func (h *Handler) CreateEvent(c echo.Context) error {
	var req CalendarEventRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "Invalid request")
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	e, err := h.gw.AddCalendarEvent(c.Request().Context(), s.Scope(), req.Title, req.Date)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) DeleteEvent(c echo.Context) error {
	if err := requireConfirm(c); err != nil {
		return h.fail(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.gw.DeleteCalendarEvent(c.Request().Context(), s.Scope(), c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
