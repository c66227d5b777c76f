package records

import (
	"time"

	"noteflow/internal/domain"
	"noteflow/internal/parser"
)

// DecodeNote builds a Note from a stored document. now substitutes for
// absent or malformed createdAt/updatedAt.
func DecodeNote(id string, raw map[string]any, now time.Time) (domain.Note, []Issue) {
	d := &decoder{data: MigrateNote(raw), now: now}

	n := domain.Note{
		ID:          id,
		UserID:      d.str("userId"),
		TopicID:     d.str("topicId"),
		Title:       d.str("title"),
		Content:     d.str("content"),
		Format:      d.str("format"),
		Completed:   d.boolean("completed"),
		Pinned:      d.boolean("pinned"),
		Archived:    d.boolean("archived"),
		IsVoiceNote: d.boolean("isVoiceNote"),
		EventDate:   d.optionalTime("eventDate"),
		CreatedAt:   d.requiredTime("createdAt"),
		UpdatedAt:   d.requiredTime("updatedAt"),
	}
	n.Media, _ = d.strings("media")

	if n.Title == "" {
		n.Title = domain.DefaultNoteTitle
	}
	if n.Format != domain.FormatMarkdown {
		n.Format = domain.FormatHTML
	}
	if n.Pinned && n.Archived {
		d.report("archived", "pinned and archived both set, keeping pinned")
		n.Archived = false
	}

	n.Tags = parser.TagsFromContent(n.Content, n.Format)
	if stored, ok := d.strings("tags"); ok && !sameSet(stored, n.Tags) {
		d.report("tags", "stored tags out of sync with content, recomputed")
	}

	return n, d.issues
}

// EncodeNote returns the full document for n at the current schema version.
func EncodeNote(n domain.Note) map[string]any {
	data := map[string]any{
		"schemaVersion": SchemaVersion,
		"userId":        n.UserID,
		"topicId":       n.TopicID,
		"title":         n.Title,
		"content":       n.Content,
		"format":        n.Format,
		"tags":          stringsOrEmpty(n.Tags),
		"completed":     n.Completed,
		"pinned":        n.Pinned,
		"archived":      n.Archived,
		"isVoiceNote":   n.IsVoiceNote,
		"media":         stringsOrEmpty(n.Media),
		"createdAt":     n.CreatedAt,
		"updatedAt":     n.UpdatedAt,
		"eventDate":     nil,
	}
	if n.EventDate != nil {
		data["eventDate"] = *n.EventDate
	}
	return data
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func sameSet(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	if len(set) != len(b) {
		return false
	}
	for _, s := range b {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}
