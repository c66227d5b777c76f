package store

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Loader reads the current content of the collection a feed serves.
type Loader func(ctx context.Context) ([]Record, error)

type feedKey struct {
	userID     string
	collection string
}

type feed struct {
	mu     sync.Mutex
	seq    uint64
	nextID uint64
	subs   map[uint64]*subscriber
}

type subscriber struct {
	onSnapshot func(Snapshot)
	onError    func(error)
}

// Broker fans snapshots out to live query subscribers. Store implementations
// call Notify after each committed write. Delivery for one feed is
// serialized, so subscribers see snapshots in Seq order.
type Broker struct {
	mu    sync.Mutex
	feeds map[feedKey]*feed
	log   *zap.Logger
}

func NewBroker(log *zap.Logger) *Broker {
	if log == nil {
		log = zap.L()
	}
	return &Broker{
		feeds: make(map[feedKey]*feed),
		log:   log.Named("broker"),
	}
}

func (b *Broker) feed(userID, collection string) *feed {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := feedKey{userID, collection}
	f, ok := b.feeds[k]
	if !ok {
		f = &feed{subs: make(map[uint64]*subscriber)}
		b.feeds[k] = f
	}
	return f
}

// Subscribe registers callbacks and delivers the initial snapshot before
// returning. Cancelling ctx unsubscribes.
func (b *Broker) Subscribe(ctx context.Context, userID, collection string, load Loader, onSnapshot func(Snapshot), onError func(error)) (Subscription, error) {
	f := b.feed(userID, collection)

	f.mu.Lock()
	recs, err := load(ctx)
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	id := f.nextID
	f.nextID++
	s := &subscriber{onSnapshot: onSnapshot, onError: onError}
	f.subs[id] = s
	f.seq++
	s.onSnapshot(Snapshot{UserID: userID, Collection: collection, Seq: f.seq, Records: recs})
	f.mu.Unlock()

	sub := &subscription{cancel: func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}}
	sub.setStop(context.AfterFunc(ctx, sub.Unsubscribe))

	b.log.Debug("subscribed",
		zap.String("user_id", userID),
		zap.String("collection", collection),
	)
	return sub, nil
}

// Notify reloads the collection and pushes it to every subscriber.
func (b *Broker) Notify(ctx context.Context, userID, collection string, load Loader) {
	f := b.feed(userID, collection)
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs) == 0 {
		return
	}

	// The write already committed; a caller giving up must not stop the push.
	recs, err := load(context.WithoutCancel(ctx))
	if err != nil {
		b.log.Warn("snapshot reload failed",
			zap.String("user_id", userID),
			zap.String("collection", collection),
			zap.Error(err),
		)
		for _, s := range f.subs {
			s.onError(err)
		}
		return
	}

	f.seq++
	snap := Snapshot{UserID: userID, Collection: collection, Seq: f.seq, Records: recs}
	for _, s := range f.subs {
		s.onSnapshot(snap)
	}
}

// Fail delivers err to every subscriber of the feed without a snapshot.
func (b *Broker) Fail(userID, collection string, err error) {
	f := b.feed(userID, collection)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		s.onError(err)
	}
}

// Subscribers returns the number of live subscriptions on a feed.
func (b *Broker) Subscribers(userID, collection string) int {
	f := b.feed(userID, collection)
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

type subscription struct {
	mu     sync.Mutex
	done   bool
	cancel func()
	stop   func() bool
}

func (s *subscription) setStop(stop func() bool) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		stop()
		return
	}
	s.stop = stop
	s.mu.Unlock()
}

func (s *subscription) Unsubscribe() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	stop := s.stop
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.cancel()
}
