package records

import (
	"time"

	"noteflow/internal/domain"
)

// DecodeEvent builds a standalone calendar event. An event without a usable
// date is reported and dated now.
func DecodeEvent(id string, raw map[string]any, now time.Time) (domain.CalendarEvent, []Issue) {
	d := &decoder{data: raw, now: now}
	e := domain.CalendarEvent{
		ID:     id,
		UserID: d.str("userId"),
		Title:  d.str("title"),
		Date:   d.requiredTime("date"),
	}
	return e, d.issues
}

// EncodeEvent returns the full document for e.
func EncodeEvent(e domain.CalendarEvent) map[string]any {
	return map[string]any{
		"schemaVersion": SchemaVersion,
		"userId":        e.UserID,
		"title":         e.Title,
		"date":          e.Date,
	}
}
