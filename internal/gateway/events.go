package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"noteflow/internal/domain"
	"noteflow/internal/records"
)

// AddCalendarEvent creates a standalone event not backed by a note.
func (g *Gateway) AddCalendarEvent(ctx context.Context, s Scope, title string, date time.Time) (domain.CalendarEvent, error) {
	if err := s.validate(); err != nil {
		return domain.CalendarEvent{}, err
	}
	if date.IsZero() {
		return domain.CalendarEvent{}, domain.NewValidationError("date", "required")
	}
	e := domain.CalendarEvent{UserID: s.UserID, Title: strings.TrimSpace(title), Date: date}
	if e.Title == "" {
		e.Title = "New Event"
	}

	id, err := g.docs.Create(ctx, s.UserID, records.EventsCollection, records.EncodeEvent(e))
	if err != nil {
		g.writeFailed("add_event", s, "", err)
		return domain.CalendarEvent{}, fmt.Errorf("add event: %w", err)
	}
	e.ID = id
	return e, nil
}

func (g *Gateway) DeleteCalendarEvent(ctx context.Context, s Scope, id string) error {
	if err := s.validate(); err != nil {
		return err
	}
	if err := g.docs.Delete(ctx, s.UserID, records.EventsCollection, id); err != nil {
		g.writeFailed("delete_event", s, id, err)
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
