package aichat

import (
	"context"
	"html"
	"strings"
	"sync"

	"go.uber.org/zap"

	"noteflow/internal/domain"
	"noteflow/internal/gateway"
	"noteflow/internal/parser"
)

// Asker answers a prompt span. *Client implements it.
type Asker interface {
	Ask(ctx context.Context, span parser.PromptSpan) (string, error)
}

// NoteEditor reads a note's current version and persists new content.
// *gateway.Gateway implements it.
type NoteEditor interface {
	Note(ctx context.Context, s gateway.Scope, id string) (domain.Note, error)
	UpdateNoteContent(ctx context.Context, s gateway.Scope, n domain.Note, content string) (domain.Note, error)
}

// Assistant resolves the actionable prompt in a note, one request per note
// at a time.
type Assistant struct {
	ask    Asker
	notes  NoteEditor
	log    *zap.Logger
	mu     sync.Mutex
	byNote map[string]*parser.PromptTracker
}

func NewAssistant(ask Asker, notes NoteEditor, log *zap.Logger) *Assistant {
	return &Assistant{
		ask:    ask,
		notes:  notes,
		log:    log.Named("assistant"),
		byNote: make(map[string]*parser.PromptTracker),
	}
}

// Result describes what Run did.
type Result struct {
	Note  domain.Note        `json:"note"`
	Fired bool               `json:"fired"`
	Span  *parser.PromptSpan `json:"span,omitempty"`
}

func (a *Assistant) tracker(noteID string) *parser.PromptTracker {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.byNote[noteID]
	if !ok {
		t = &parser.PromptTracker{}
		a.byNote[noteID] = t
	}
	return t
}

// Forget drops the prompt state kept for a note.
func (a *Assistant) Forget(noteID string) {
	a.mu.Lock()
	delete(a.byNote, noteID)
	a.mu.Unlock()
}

// Run looks for a prompt in the note's text and, unless it was already
// handled, asks the matching backend and replaces the delimited prompt with
// the answer. The answer is spliced into the note as stored when it arrives,
// so edits made while the request ran are kept. When nothing fires the note
// is returned unchanged. On failure the note content is left as it was.
func (a *Assistant) Run(ctx context.Context, s gateway.Scope, n domain.Note) (Result, error) {
	res := Result{Note: n}
	spans := parser.ExtractPromptSpans(parser.PlainText(n.Content, n.Format))
	if len(spans) == 0 {
		return res, nil
	}
	span := spans[0]
	res.Span = &span

	t := a.tracker(n.ID)
	if !t.Begin(span) {
		return res, nil
	}
	res.Fired = true

	answer, err := a.ask.Ask(ctx, span)
	if err != nil {
		t.Done(err)
		a.log.Warn("prompt failed",
			zap.String("user_id", s.UserID),
			zap.String("note_id", n.ID),
			zap.String("provider", string(span.Kind)),
			zap.Error(err),
		)
		return res, err
	}

	current, err := a.notes.Note(ctx, s, n.ID)
	if err != nil {
		t.Done(err)
		return res, err
	}
	res.Note = current
	content, ok := replaceLast(current.Content, span.Raw, answer, current.Format)
	if !ok {
		// The prompt was edited away while the request ran.
		t.Done(nil)
		a.log.Info("prompt vanished before answer arrived", zap.String("note_id", n.ID))
		return res, nil
	}
	updated, err := a.notes.UpdateNoteContent(ctx, s, current, content)
	t.Done(err)
	if err != nil {
		return res, err
	}
	res.Note = updated
	return res, nil
}

// replaceLast substitutes answer for the last occurrence of raw in content.
// HTML content may carry raw with its special characters escaped.
func replaceLast(content, raw, answer, format string) (string, bool) {
	candidates := []struct{ find, with string }{{raw, answer}}
	if format != domain.FormatMarkdown {
		candidates = []struct{ find, with string }{
			{raw, html.EscapeString(answer)},
			{html.EscapeString(raw), html.EscapeString(answer)},
		}
	}
	for _, c := range candidates {
		if i := strings.LastIndex(content, c.find); i >= 0 {
			return content[:i] + c.with + content[i+len(c.find):], true
		}
	}
	return content, false
}
