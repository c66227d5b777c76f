package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"noteflow/internal/aichat"
	"noteflow/internal/domain"
	"noteflow/internal/gateway"
	authmw "noteflow/internal/middleware"
	"noteflow/internal/session"
	"noteflow/internal/topics"
)

// BackupRunner runs an on-demand backup.
type BackupRunner interface {
	RunNow(ctx context.Context) (string, error)
	List(ctx context.Context) ([]string, error)
}

type Handler struct {
	sessions  *session.Manager
	gw        *gateway.Gateway
	assistant *aichat.Assistant
	backups   BackupRunner
	log       *zap.Logger
	now       func() time.Time
	liveWait  time.Duration
	upgrader  websocket.Upgrader
}

type Option func(*Handler)

func WithAssistant(a *aichat.Assistant) Option { return func(h *Handler) { h.assistant = a } }

func WithBackups(b BackupRunner) Option { return func(h *Handler) { h.backups = b } }

func WithClock(now func() time.Time) Option { return func(h *Handler) { h.now = now } }

// WithLiveWait bounds how long a request waits for a fresh session's first
// snapshots.
func WithLiveWait(d time.Duration) Option { return func(h *Handler) { h.liveWait = d } }

func NewHandler(sessions *session.Manager, gw *gateway.Gateway, log *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		sessions: sessions,
		gw:       gw,
		log:      log.Named("http"),
		now:      time.Now,
		liveWait: 5 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// session returns the caller's session once it holds live data.
func (h *Handler) session(c echo.Context) (*session.Session, error) {
	s, err := h.sessions.Get(c.Request().Context(), authmw.UserID(c))
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.liveWait)
	defer cancel()
	if err := s.AwaitLive(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func findNote(s *session.Session, id string) (domain.Note, error) {
	for _, n := range s.Core.Notes() {
		if n.ID == id {
			return n, nil
		}
	}
	return domain.Note{}, &notFound{kind: "note", id: id}
}

func findTopic(s *session.Session, id string) (domain.Topic, error) {
	if t, ok := topics.FindByID(s.Core.Topics(), id); ok {
		return t, nil
	}
	return domain.Topic{}, &notFound{kind: "topic", id: id}
}

type notFound struct{ kind, id string }

func (e *notFound) Error() string { return e.kind + " " + e.id + " not found" }

func (e *notFound) Unwrap() error { return domain.ErrNotFound }

// confirmed reports whether a destructive request carries confirm=true.
func confirmed(c echo.Context) bool {
	return c.QueryParam("confirm") == "true"
}

func requireConfirm(c echo.Context) error {
	if confirmed(c) {
		return nil
	}
	return domain.NewValidationError("confirm", "destructive action requires confirm=true")
}
