package livesync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"noteflow/internal/domain"
	"noteflow/internal/records"
	"noteflow/internal/store"
	"noteflow/internal/topics"
)

// Collections the core subscribes to, in subscription order.
var Collections = []string{
	records.TopicsCollection,
	records.NotesCollection,
	records.EventsCollection,
}

// Provisioner creates missing default topics. It is called outside any store
// callback.
type Provisioner interface {
	EnsureDefaultTopics(ctx context.Context, userID string, current []domain.Topic) error
}

// View is a consistent copy of everything the core holds for a user.
type View struct {
	Notes   []domain.Note          `json:"notes"`
	Topics  []domain.Topic         `json:"topics"`
	Events  []domain.CalendarEvent `json:"events"`
	Status  map[string]Status      `json:"status"`
	Version uint64                 `json:"version"`
}

type collection struct {
	name   string
	status Status
	gen    uint64
	sub    store.Subscription
}

type overlayEntry struct {
	note    domain.Note
	deleted bool
}

type Core struct {
	userID      string
	live        store.LiveQuery
	provisioner Provisioner
	log         *zap.Logger
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.RWMutex
	colls        map[string]*collection
	notes        []domain.Note
	topics       []domain.Topic
	events       []domain.CalendarEvent
	overlay      map[string]overlayEntry
	listeners    map[uint64]chan View
	nextListener uint64
	version      uint64
	provisioning bool
	closed       bool
}

type Option func(*Core)

// WithProvisioner makes the core create missing default topics on the first
// live topics snapshot.
func WithProvisioner(p Provisioner) Option {
	return func(c *Core) { c.provisioner = p }
}

// WithClock overrides the time source used for ingest defaults.
func WithClock(now func() time.Time) Option {
	return func(c *Core) { c.now = now }
}

func New(userID string, live store.LiveQuery, log *zap.Logger, opts ...Option) *Core {
	if log == nil {
		log = zap.L()
	}
	c := &Core{
		userID:    userID,
		live:      live,
		log:       log.Named("livesync").With(zap.String("user_id", userID)),
		now:       time.Now,
		colls:     make(map[string]*collection, len(Collections)),
		notes:     []domain.Note{},
		topics:    []domain.Topic{},
		events:    []domain.CalendarEvent{},
		overlay:   make(map[string]overlayEntry),
		listeners: make(map[uint64]chan View),
	}
	for _, name := range Collections {
		c.colls[name] = &collection{name: name, status: Status{State: StateIdle}}
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// UserID returns the owner of the data the core holds.
func (c *Core) UserID() string { return c.userID }

// Start subscribes every idle collection. Collections that fail to subscribe
// are left in StateError and their errors are returned joined.
func (c *Core) Start(ctx context.Context) error {
	var errs []error
	for _, name := range Collections {
		if err := c.subscribe(ctx, name, StateIdle); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Retry re-subscribes every collection currently in StateError, along with
// any collection a cancelled Start never reached.
func (c *Core) Retry(ctx context.Context) error {
	var errs []error
	for _, name := range Collections {
		if err := c.subscribe(ctx, name, StateError, StateIdle); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// subscribe only acts on a collection whose state is one of from. The
// subscription itself is bound to the core's lifetime, not to ctx.
func (c *Core) subscribe(ctx context.Context, name string, from ...State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	coll := c.colls[name]
	if !slices.Contains(from, coll.status.State) {
		c.mu.Unlock()
		return nil
	}
	old := coll.sub
	coll.sub = nil
	coll.gen++
	gen := coll.gen
	coll.status = Status{State: StateSubscribing}
	c.bumpLocked()
	c.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}

	c.log.Debug("subscribing", zap.String("collection", name))
	sub, err := c.live.Subscribe(c.ctx, c.userID, name,
		func(s store.Snapshot) { c.onSnapshot(name, gen, s) },
		func(err error) { c.onError(name, gen, err) },
	)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		if coll.gen == gen && !c.closed {
			coll.status = Status{State: StateError, Error: err.Error(), err: err}
			c.bumpLocked()
		}
		c.log.Error("subscribe failed", zap.String("collection", name), zap.Error(err))
		return fmt.Errorf("livesync: subscribe %s: %w", name, err)
	}
	if c.closed || coll.gen != gen {
		go sub.Unsubscribe()
		return nil
	}
	coll.sub = sub
	return nil
}

func (c *Core) onSnapshot(name string, gen uint64, s store.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	coll := c.colls[name]
	if c.closed || coll.gen != gen || coll.status.State == StateError {
		return
	}
	if s.Seq <= coll.status.Seq {
		c.log.Debug("stale snapshot dropped",
			zap.String("collection", name),
			zap.Uint64("seq", s.Seq),
			zap.Uint64("have", coll.status.Seq),
		)
		return
	}

	now := c.now()
	switch name {
	case records.NotesCollection:
		c.notes = c.ingestNotes(s.Records, now)
		c.settleOverlayLocked()
	case records.TopicsCollection:
		c.topics = c.ingestTopics(s.Records)
	case records.EventsCollection:
		c.events = c.ingestEvents(s.Records, now)
	}
	coll.status = Status{State: StateLive, Seq: s.Seq}
	c.bumpLocked()

	if name == records.TopicsCollection {
		c.maybeProvisionLocked()
	}
}

func (c *Core) onError(name string, gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	coll := c.colls[name]
	if c.closed || coll.gen != gen {
		return
	}
	c.log.Error("live query failed",
		zap.String("collection", name),
		zap.Bool("transient", store.IsTransient(err)),
		zap.Error(err),
	)
	coll.status = Status{State: StateError, Error: err.Error(), Seq: coll.status.Seq, err: err}
	c.bumpLocked()
}

func (c *Core) ingestNotes(recs []store.Record, now time.Time) []domain.Note {
	notes := make([]domain.Note, 0, len(recs))
	for _, r := range recs {
		n, issues := records.DecodeNote(r.ID, r.Data, now)
		c.logIssues(records.NotesCollection, r.ID, issues)
		if !c.owns(n.UserID, records.NotesCollection, r.ID) {
			continue
		}
		n.UserID = c.userID
		notes = append(notes, n)
	}
	return notes
}

func (c *Core) ingestTopics(recs []store.Record) []domain.Topic {
	out := make([]domain.Topic, 0, len(recs))
	for _, r := range recs {
		t, issues := records.DecodeTopic(r.ID, r.Data)
		c.logIssues(records.TopicsCollection, r.ID, issues)
		if !c.owns(t.UserID, records.TopicsCollection, r.ID) {
			continue
		}
		t.UserID = c.userID
		out = append(out, t)
	}
	return out
}

func (c *Core) ingestEvents(recs []store.Record, now time.Time) []domain.CalendarEvent {
	out := make([]domain.CalendarEvent, 0, len(recs))
	for _, r := range recs {
		e, issues := records.DecodeEvent(r.ID, r.Data, now)
		c.logIssues(records.EventsCollection, r.ID, issues)
		if !c.owns(e.UserID, records.EventsCollection, r.ID) {
			continue
		}
		e.UserID = c.userID
		out = append(out, e)
	}
	return out
}

func (c *Core) owns(owner, coll, id string) bool {
	if owner == "" || owner == c.userID {
		return true
	}
	c.log.Warn("foreign record skipped",
		zap.String("collection", coll),
		zap.String("id", id),
		zap.String("owner", owner),
	)
	return false
}

func (c *Core) logIssues(coll, id string, issues []records.Issue) {
	for _, is := range issues {
		c.log.Warn("malformed field",
			zap.String("collection", coll),
			zap.String("id", id),
			zap.String("field", is.Field),
			zap.String("reason", is.Reason),
		)
	}
}

func (c *Core) maybeProvisionLocked() {
	if c.provisioner == nil || c.provisioning {
		return
	}
	if len(topics.Missing(c.topics)) == 0 {
		return
	}
	c.provisioning = true
	current := append([]domain.Topic(nil), c.topics...)

	// Store callbacks run while the store holds its feed lock, so writes
	// happen on another goroutine.
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.provisioner.EnsureDefaultTopics(c.ctx, c.userID, current)
		if err != nil {
			c.log.Error("default topic provisioning failed", zap.Error(err))
		}
		c.mu.Lock()
		c.provisioning = false
		c.mu.Unlock()
	}()
}

// Close releases every subscription. It is safe to call more than once.
func (c *Core) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := make([]store.Subscription, 0, len(c.colls))
	for _, coll := range c.colls {
		if coll.sub != nil {
			subs = append(subs, coll.sub)
			coll.sub = nil
		}
		coll.status = Status{State: StateClosed, Seq: coll.status.Seq}
	}
	c.bumpLocked()
	for id, ch := range c.listeners {
		close(ch)
		delete(c.listeners, id)
	}
	c.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
	c.cancel()
	c.wg.Wait()
	c.log.Debug("closed")
}
