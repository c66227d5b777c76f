package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"noteflow/internal/domain"
	"noteflow/internal/parser"
	"noteflow/internal/records"
	"noteflow/internal/topics"
)

// CreateNote writes an empty note into the topic named by topicHint. "all"
// and "" route to the "No Topic" default topic.
func (g *Gateway) CreateNote(ctx context.Context, s Scope, topicHint string) (domain.Note, error) {
	if err := s.validate(); err != nil {
		return domain.Note{}, err
	}
	topicID, err := g.resolveTopic(ctx, s.UserID, topicHint)
	if err != nil {
		return domain.Note{}, err
	}

	now := g.now()
	n := domain.Note{
		UserID:    s.UserID,
		TopicID:   topicID,
		Title:     domain.DefaultNoteTitle,
		Format:    domain.FormatHTML,
		Tags:      []string{},
		Media:     []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	return g.insertNote(ctx, s, n, "create_note")
}

func (g *Gateway) insertNote(ctx context.Context, s Scope, n domain.Note, op string) (domain.Note, error) {
	id, err := g.docs.Create(ctx, s.UserID, records.NotesCollection, records.EncodeNote(n))
	if err != nil {
		g.writeFailed(op, s, "", err)
		return domain.Note{}, fmt.Errorf("%s: %w", strings.ReplaceAll(op, "_", " "), err)
	}
	n.ID = id
	return n, nil
}

func (g *Gateway) resolveTopic(ctx context.Context, userID, hint string) (string, error) {
	if hint == "" || hint == domain.AllTopics {
		return g.ensureDefault(ctx, userID, domain.NoTopicName)
	}
	current, err := g.loadTopics(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load topics: %w", err)
	}
	if _, ok := topics.FindByID(current, hint); !ok {
		return "", fmt.Errorf("topic %s: %w", hint, domain.ErrNotFound)
	}
	return hint, nil
}

// Note reads the stored version of a note.
func (g *Gateway) Note(ctx context.Context, s Scope, id string) (domain.Note, error) {
	if err := s.validate(); err != nil {
		return domain.Note{}, err
	}
	recs, err := g.docs.List(ctx, s.UserID, records.NotesCollection)
	if err != nil {
		return domain.Note{}, fmt.Errorf("load note: %w", err)
	}
	for _, r := range recs {
		if r.ID != id {
			continue
		}
		n, _ := records.DecodeNote(r.ID, r.Data, g.now())
		if n.UserID != "" && n.UserID != s.UserID {
			break
		}
		n.UserID = s.UserID
		return n, nil
	}
	return domain.Note{}, fmt.Errorf("note %s: %w", id, domain.ErrNotFound)
}

// UpdateNoteContent stores new content and the tags derived from it in one
// write. updatedAt is always set by the gateway.
func (g *Gateway) UpdateNoteContent(ctx context.Context, s Scope, n domain.Note, content string) (domain.Note, error) {
	n.Content = content
	n.Tags = parser.TagsFromContent(content, n.Format)
	return g.patch(ctx, s, n, "update_note_content", map[string]any{
		"content": n.Content,
		"tags":    n.Tags,
	})
}

// UpdateNoteTitle stores a new title. A blank title becomes "New Note".
func (g *Gateway) UpdateNoteTitle(ctx context.Context, s Scope, n domain.Note, title string) (domain.Note, error) {
	n.Title = strings.TrimSpace(title)
	if n.Title == "" {
		n.Title = domain.DefaultNoteTitle
	}
	return g.patch(ctx, s, n, "update_note_title", map[string]any{"title": n.Title})
}

// TogglePin flips pinned. Pinning clears archived in the same write.
func (g *Gateway) TogglePin(ctx context.Context, s Scope, n domain.Note) (domain.Note, error) {
	n.Pinned = !n.Pinned
	if n.Pinned {
		n.Archived = false
	}
	return g.patch(ctx, s, n, "toggle_pin", map[string]any{
		"pinned":   n.Pinned,
		"archived": n.Archived,
	})
}

// ToggleArchive flips archived. Archiving clears pinned in the same write.
func (g *Gateway) ToggleArchive(ctx context.Context, s Scope, n domain.Note) (domain.Note, error) {
	n.Archived = !n.Archived
	if n.Archived {
		n.Pinned = false
	}
	return g.patch(ctx, s, n, "toggle_archive", map[string]any{
		"pinned":   n.Pinned,
		"archived": n.Archived,
	})
}

func (g *Gateway) ToggleCompleted(ctx context.Context, s Scope, n domain.Note) (domain.Note, error) {
	n.Completed = !n.Completed
	return g.patch(ctx, s, n, "toggle_completed", map[string]any{"completed": n.Completed})
}

// SetEventDate sets or, with nil, clears the note's calendar date.
func (g *Gateway) SetEventDate(ctx context.Context, s Scope, n domain.Note, date *time.Time) (domain.Note, error) {
	n.EventDate = date
	var v any
	if date != nil {
		v = *date
	}
	return g.patch(ctx, s, n, "set_event_date", map[string]any{"eventDate": v})
}

// MoveNoteToTopic reassigns the note to an existing topic.
func (g *Gateway) MoveNoteToTopic(ctx context.Context, s Scope, n domain.Note, topicID string) (domain.Note, error) {
	if err := s.validate(); err != nil {
		return domain.Note{}, err
	}
	resolved, err := g.resolveTopic(ctx, s.UserID, topicID)
	if err != nil {
		return domain.Note{}, err
	}
	n.TopicID = resolved
	return g.patch(ctx, s, n, "move_note", map[string]any{"topicId": n.TopicID})
}

// DeleteNote removes the note with a single delete. Media objects are
// removed afterwards; failures there are logged only.
func (g *Gateway) DeleteNote(ctx context.Context, s Scope, n domain.Note) error {
	if err := s.validate(); err != nil {
		return err
	}
	if n.ID == "" {
		return domain.NewValidationError("id", "required")
	}

	s.applyDelete(n.ID)
	if err := g.docs.Delete(ctx, s.UserID, records.NotesCollection, n.ID); err != nil {
		s.revertDelete(n.ID)
		g.writeFailed("delete_note", s, n.ID, err)
		return fmt.Errorf("delete note: %w", err)
	}
	g.removeBlobs(ctx, s, n.Media)
	return nil
}

// patch writes fields plus a fresh updatedAt for n, showing n optimistically
// until the store confirms or the write fails.
func (g *Gateway) patch(ctx context.Context, s Scope, n domain.Note, op string, fields map[string]any) (domain.Note, error) {
	if err := s.validate(); err != nil {
		return domain.Note{}, err
	}
	if n.ID == "" {
		return domain.Note{}, domain.NewValidationError("id", "required")
	}

	prev := n.UpdatedAt
	n.UpdatedAt = g.now()
	if !n.UpdatedAt.After(prev) {
		n.UpdatedAt = prev.Add(time.Millisecond)
	}
	fields["updatedAt"] = n.UpdatedAt

	s.apply(n)
	if err := g.docs.Update(ctx, s.UserID, records.NotesCollection, n.ID, fields); err != nil {
		s.revert(n)
		g.writeFailed(op, s, n.ID, err)
		return domain.Note{}, fmt.Errorf("%s: %w", strings.ReplaceAll(op, "_", " "), err)
	}
	return n, nil
}
