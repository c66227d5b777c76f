package gateway

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"go.uber.org/zap"

	"noteflow/internal/domain"
	"noteflow/internal/parser"
)

type transcript struct {
	text string
	err  error
}

// CreateVoiceNote transcribes audio and files the transcript as a voice note
// in the "Voice Notes" topic. The transcription request runs to completion
// even if ctx is cancelled first; its result is then logged and dropped.
func (g *Gateway) CreateVoiceNote(ctx context.Context, s Scope, audio io.Reader, filename string) (domain.Note, error) {
	if err := s.validate(); err != nil {
		return domain.Note{}, err
	}
	if g.transcriber == nil {
		return domain.Note{}, fmt.Errorf("voice note: %w: no transcription service configured", domain.ErrPrecondition)
	}

	data, err := io.ReadAll(audio)
	if err != nil {
		return domain.Note{}, fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return domain.Note{}, domain.NewValidationError("audio", "empty recording")
	}

	done := make(chan transcript, 1)
	go func() {
		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.voiceTimeout)
		defer cancel()
		text, err := g.transcriber.Transcribe(tctx, bytes.NewReader(data), filename)
		if ctx.Err() != nil {
			g.log.Info("transcript discarded, caller gone",
				zap.String("user_id", s.UserID),
				zap.Int("chars", len(text)),
				zap.Error(err),
			)
		}
		done <- transcript{text: text, err: err}
	}()

	var res transcript
	select {
	case <-ctx.Done():
		return domain.Note{}, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		g.log.Warn("transcription failed", zap.String("user_id", s.UserID), zap.Error(res.err))
		return domain.Note{}, fmt.Errorf("transcribe: %w", res.err)
	}

	topicID, err := g.ensureDefault(ctx, s.UserID, domain.VoiceNotesName)
	if err != nil {
		return domain.Note{}, err
	}

	text := strings.TrimSpace(res.text)
	now := g.now()
	n := domain.Note{
		UserID:      s.UserID,
		TopicID:     topicID,
		Title:       "Voice Note " + now.Format("Jan 2, 2006 3:04 PM"),
		Content:     "<p>" + html.EscapeString(text) + "</p>",
		Format:      domain.FormatHTML,
		Tags:        parser.ExtractTags(text),
		IsVoiceNote: true,
		Media:       []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return g.insertNote(ctx, s, n, "create_voice_note")
}
