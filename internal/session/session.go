// Package session keeps one live synchronization core per signed-in user.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"noteflow/internal/domain"
	"noteflow/internal/gateway"
	"noteflow/internal/livesync"
	"noteflow/internal/store"
)

// Session is a user's live view plus the scope its writes go through.
type Session struct {
	Core *livesync.Core
}

// Scope returns the mutation scope whose optimistic changes show up in the
// session's view.
func (s *Session) Scope() gateway.Scope {
	return gateway.Scope{UserID: s.Core.UserID(), Overlay: s.Core}
}

// AwaitLive blocks until every collection has delivered a snapshot. It
// returns early with the subscription error if a collection fails.
func (s *Session) AwaitLive(ctx context.Context) error {
	views, stop := s.Core.Watch()
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v, ok := <-views:
			if !ok {
				return fmt.Errorf("session closed: %w", domain.ErrPrecondition)
			}
			live := true
			for name, st := range v.Status {
				switch st.State {
				case livesync.StateError:
					return fmt.Errorf("%s: %w", name, st.Err())
				case livesync.StateClosed:
					return fmt.Errorf("session closed: %w", domain.ErrPrecondition)
				case livesync.StateLive:
				default:
					live = false
				}
			}
			if live {
				return nil
			}
		}
	}
}

type Manager struct {
	live store.LiveQuery
	prov livesync.Provisioner
	log  *zap.Logger
	idle time.Duration
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
	closed   bool
}

type entry struct {
	*Session
	lastUsed time.Time
	holds    int
}

type ManagerOption func(*Manager)

// WithIdleTimeout makes Sweep end sessions nobody has used for d. Zero keeps
// sessions until they are ended explicitly.
func WithIdleTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.idle = d }
}

// WithManagerClock overrides the time source used for idle tracking.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func NewManager(live store.LiveQuery, prov livesync.Provisioner, log *zap.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		live:     live,
		prov:     prov,
		log:      log.Named("session"),
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the user's session, starting it on first use. Collections that
// never subscribed, for example because an earlier Get was cancelled, are
// started again. Subscription failures do not fail Get; they show in the
// session's status and can be retried.
func (m *Manager) Get(ctx context.Context, userID string) (*Session, error) {
	s, _, err := m.acquire(ctx, userID, false)
	return s, err
}

// Hold is Get for long-lived consumers such as live streams. The session is
// not evicted while held; release must be called exactly once.
func (m *Manager) Hold(ctx context.Context, userID string) (*Session, func(), error) {
	return m.acquire(ctx, userID, true)
}

func (m *Manager) acquire(ctx context.Context, userID string, hold bool) (*Session, func(), error) {
	if userID == "" {
		return nil, nil, domain.ErrUnauthorized
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, domain.ErrPrecondition
	}
	e, ok := m.sessions[userID]
	if !ok {
		var opts []livesync.Option
		if m.prov != nil {
			opts = append(opts, livesync.WithProvisioner(m.prov))
		}
		e = &entry{Session: &Session{Core: livesync.New(userID, m.live, m.log, opts...)}}
		m.sessions[userID] = e
	}
	e.lastUsed = m.now()
	release := func() {}
	if hold {
		e.holds++
		var once sync.Once
		release = func() {
			once.Do(func() {
				m.mu.Lock()
				e.holds--
				e.lastUsed = m.now()
				m.mu.Unlock()
			})
		}
	}
	m.mu.Unlock()

	if !ok {
		m.log.Info("session started", zap.String("user_id", userID))
	}
	if err := e.Core.Start(ctx); err != nil {
		m.log.Warn("session started degraded", zap.String("user_id", userID), zap.Error(err))
	}
	return e.Session, release, nil
}

// End closes and forgets the user's session.
func (m *Manager) End(userID string) {
	m.mu.Lock()
	e, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if ok {
		e.Core.Close()
		m.log.Info("session ended", zap.String("user_id", userID))
	}
}

// Sweep ends every unheld session idle for longer than the idle timeout and
// returns how many it ended.
func (m *Manager) Sweep() int {
	if m.idle <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idle)

	m.mu.Lock()
	var stale []*entry
	for userID, e := range m.sessions {
		if e.holds == 0 && e.lastUsed.Before(cutoff) {
			stale = append(stale, e)
			delete(m.sessions, userID)
		}
	}
	m.mu.Unlock()

	for _, e := range stale {
		e.Core.Close()
		m.log.Info("idle session ended", zap.String("user_id", e.Core.UserID()))
	}
	return len(stale)
}

// Run sweeps idle sessions until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	if m.idle <= 0 {
		return
	}
	ticker := time.NewTicker(m.idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CloseAll ends every session. Later Get calls fail.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	m.closed = true
	all := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range all {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Core.Close()
		}()
	}
	wg.Wait()
	m.log.Info("all sessions closed", zap.Int("count", len(all)))
}
