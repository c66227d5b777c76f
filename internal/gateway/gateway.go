// Package gateway is the single writer to the document store. Every note,
// topic and event mutation goes through it so content-derived fields and
// flag invariants hold for every record written.
package gateway

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"noteflow/internal/blob"
	"noteflow/internal/domain"
	"noteflow/internal/store"
)

// Overlay receives optimistic changes before a write and reverts them when
// the write fails. A revert names the write it undoes by the note's
// updatedAt, or the zero time for a delete, so a later write to the same
// note survives. livesync.Core implements it.
type Overlay interface {
	ApplyOptimistic(n domain.Note)
	ApplyOptimisticDelete(id string)
	Revert(id string, updatedAt time.Time)
}

// Scope names the user an operation acts for and, optionally, the overlay
// showing that user's pending writes.
type Scope struct {
	UserID  string
	Overlay Overlay
}

// Transcriber converts recorded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

type Gateway struct {
	docs         store.DocumentStore
	blobs        blob.Storage
	transcriber  Transcriber
	log          *zap.Logger
	now          func() time.Time
	voiceTimeout time.Duration
	fanOut       int

	ensureMu sync.Mutex
	ensuring map[string]*sync.Mutex
}

type Option func(*Gateway)

func WithBlobStorage(b blob.Storage) Option { return func(g *Gateway) { g.blobs = b } }

func WithTranscriber(t Transcriber) Option { return func(g *Gateway) { g.transcriber = t } }

func WithClock(now func() time.Time) Option { return func(g *Gateway) { g.now = now } }

// WithVoiceTimeout bounds how long a transcription may run.
func WithVoiceTimeout(d time.Duration) Option { return func(g *Gateway) { g.voiceTimeout = d } }

// WithFanOutLimit caps concurrent writes during topic deletion.
func WithFanOutLimit(n int) Option { return func(g *Gateway) { g.fanOut = n } }

func New(docs store.DocumentStore, log *zap.Logger, opts ...Option) *Gateway {
	if log == nil {
		log = zap.L()
	}
	g := &Gateway{
		docs:         docs,
		log:          log.Named("gateway"),
		now:          time.Now,
		voiceTimeout: 30 * time.Second,
		fanOut:       8,
		ensuring:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// userLock serializes default topic provisioning per user.
func (g *Gateway) userLock(userID string) *sync.Mutex {
	g.ensureMu.Lock()
	defer g.ensureMu.Unlock()
	mu, ok := g.ensuring[userID]
	if !ok {
		mu = &sync.Mutex{}
		g.ensuring[userID] = mu
	}
	return mu
}

// writeFailed logs a store failure, distinguishing retryable ones.
func (g *Gateway) writeFailed(op string, s Scope, id string, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("user_id", s.UserID),
		zap.String("id", id),
		zap.Error(err),
	}
	if store.IsTransient(err) {
		g.log.Warn("transient store error", fields...)
		return
	}
	g.log.Error("store write failed", fields...)
}

func (s Scope) apply(n domain.Note) {
	if s.Overlay != nil {
		s.Overlay.ApplyOptimistic(n)
	}
}

func (s Scope) applyDelete(id string) {
	if s.Overlay != nil {
		s.Overlay.ApplyOptimisticDelete(id)
	}
}

func (s Scope) revert(n domain.Note) {
	if s.Overlay != nil {
		s.Overlay.Revert(n.ID, n.UpdatedAt)
	}
}

func (s Scope) revertDelete(id string) {
	if s.Overlay != nil {
		s.Overlay.Revert(id, time.Time{})
	}
}

func (s Scope) validate() error {
	if s.UserID == "" {
		return domain.ErrUnauthorized
	}
	return nil
}
