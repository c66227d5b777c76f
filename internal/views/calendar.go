package views

import (
	"sort"
	"time"

	"noteflow/internal/domain"
)

// CalendarEvents merges note-backed events (one per note with an EventDate)
// with standalone events, ordered by date.
func CalendarEvents(notes []domain.Note, standalone []domain.CalendarEvent) []domain.CalendarEvent {
	events := make([]domain.CalendarEvent, 0, len(notes)+len(standalone))
	for _, n := range notes {
		if n.EventDate == nil {
			continue
		}
		title := n.Title
		if title == "" {
			title = domain.DefaultNoteTitle
		}
		events = append(events, domain.CalendarEvent{
			ID:     "note:" + n.ID,
			NoteID: n.ID,
			UserID: n.UserID,
			Title:  title,
			Date:   *n.EventDate,
		})
	}
	events = append(events, standalone...)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	return events
}

// Day is one column of a week view.
type Day struct {
	Date   time.Time              `json:"date"`
	Events []domain.CalendarEvent `json:"events"`
}

// WeekView groups events into the Monday-to-Sunday week containing day, in
// day's location.
func WeekView(events []domain.CalendarEvent, day time.Time) []Day {
	start := StartOfWeek(day)
	week := make([]Day, 7)
	for i := range week {
		week[i] = Day{Date: start.AddDate(0, 0, i), Events: []domain.CalendarEvent{}}
	}
	end := start.AddDate(0, 0, 7)
	for _, e := range events {
		d := e.Date.In(day.Location())
		if d.Before(start) || !d.Before(end) {
			continue
		}
		idx := int(d.Sub(start) / (24 * time.Hour))
		if idx > 6 {
			idx = 6
		}
		// Correct for DST shifts by comparing calendar dates.
		for idx > 0 && d.Before(week[idx].Date) {
			idx--
		}
		for idx < 6 && !d.Before(week[idx+1].Date) {
			idx++
		}
		week[idx].Events = append(week[idx].Events, e)
	}
	return week
}

// StartOfWeek returns midnight of the Monday on or before t.
func StartOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}
