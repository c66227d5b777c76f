// Package memstore is an in-process Store. Documents are serialized on the
// way in and out so callers never share maps with the store.
package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"noteflow/internal/domain"
	"noteflow/internal/records"
	"noteflow/internal/store"
)

// FaultFunc may fail an operation before it is applied. op is one of
// "create", "update", "delete", "list", "subscribe".
type FaultFunc func(op, collection, id string) error

type collection struct {
	order []string
	docs  map[string][]byte
}

type Store struct {
	mu     sync.RWMutex
	data   map[string]map[string]*collection
	fault  FaultFunc
	broker *store.Broker
	log    *zap.Logger
}

var _ store.Store = (*Store)(nil)

func New(log *zap.Logger) *Store {
	if log == nil {
		log = zap.L()
	}
	log = log.Named("memstore")
	return &Store{
		data:   make(map[string]map[string]*collection),
		broker: store.NewBroker(log),
		log:    log,
	}
}

// SetFault installs f; nil clears it.
func (s *Store) SetFault(f FaultFunc) {
	s.mu.Lock()
	s.fault = f
	s.mu.Unlock()
}

// Broker exposes the change feed, mainly so tests can inject feed errors.
func (s *Store) Broker() *store.Broker { return s.broker }

func (s *Store) check(op, coll, id string) error {
	s.mu.RLock()
	f := s.fault
	s.mu.RUnlock()
	if f == nil {
		return nil
	}
	if err := f(op, coll, id); err != nil {
		var se *store.Error
		if errors.As(err, &se) {
			return err
		}
		return &store.Error{Op: op, Collection: coll, ID: id, Err: err}
	}
	return nil
}

func (s *Store) coll(userID, name string, create bool) *collection {
	byColl, ok := s.data[userID]
	if !ok {
		if !create {
			return nil
		}
		byColl = make(map[string]*collection)
		s.data[userID] = byColl
	}
	c, ok := byColl[name]
	if !ok && create {
		c = &collection{docs: make(map[string][]byte)}
		byColl[name] = c
	}
	return c
}

func (s *Store) Create(ctx context.Context, userID, coll string, data map[string]any) (string, error) {
	coll = records.CanonicalCollection(coll)
	if err := s.check("create", coll, ""); err != nil {
		return "", err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", &store.Error{Op: "create", Collection: coll, Err: err}
	}
	id := uuid.NewString()

	s.mu.Lock()
	c := s.coll(userID, coll, true)
	c.order = append(c.order, id)
	c.docs[id] = raw
	s.mu.Unlock()

	s.notify(ctx, userID, coll)
	return id, nil
}

func (s *Store) Update(ctx context.Context, userID, coll, id string, partial map[string]any) error {
	coll = records.CanonicalCollection(coll)
	if err := s.check("update", coll, id); err != nil {
		return err
	}

	s.mu.Lock()
	c := s.coll(userID, coll, false)
	if c == nil || c.docs[id] == nil {
		s.mu.Unlock()
		return &store.Error{Op: "update", Collection: coll, ID: id, Err: domain.ErrNotFound}
	}
	var doc map[string]any
	if err := json.Unmarshal(c.docs[id], &doc); err != nil {
		s.mu.Unlock()
		return &store.Error{Op: "update", Collection: coll, ID: id, Err: err}
	}
	for k, v := range partial {
		doc[k] = v
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		s.mu.Unlock()
		return &store.Error{Op: "update", Collection: coll, ID: id, Err: err}
	}
	c.docs[id] = raw
	s.mu.Unlock()

	s.notify(ctx, userID, coll)
	return nil
}

func (s *Store) Delete(ctx context.Context, userID, coll, id string) error {
	coll = records.CanonicalCollection(coll)
	if err := s.check("delete", coll, id); err != nil {
		return err
	}

	s.mu.Lock()
	c := s.coll(userID, coll, false)
	if c == nil || c.docs[id] == nil {
		s.mu.Unlock()
		return &store.Error{Op: "delete", Collection: coll, ID: id, Err: domain.ErrNotFound}
	}
	delete(c.docs, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.notify(ctx, userID, coll)
	return nil
}

func (s *Store) List(ctx context.Context, userID, coll string) ([]store.Record, error) {
	coll = records.CanonicalCollection(coll)
	if err := s.check("list", coll, ""); err != nil {
		return nil, err
	}
	return s.list(userID, coll)
}

func (s *Store) list(userID, coll string) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.coll(userID, coll, false)
	if c == nil {
		return []store.Record{}, nil
	}
	out := make([]store.Record, 0, len(c.order))
	for _, id := range c.order {
		var data map[string]any
		if err := json.Unmarshal(c.docs[id], &data); err != nil {
			return nil, &store.Error{Op: "list", Collection: coll, ID: id, Err: err}
		}
		out = append(out, store.Record{ID: id, Data: data})
	}
	return out, nil
}

// Put stores data under id as-is, bypassing faults. Tests use it to seed
// malformed or legacy documents.
func (s *Store) Put(ctx context.Context, userID, coll, id string, data map[string]any) error {
	coll = records.CanonicalCollection(coll)
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	c := s.coll(userID, coll, true)
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = raw
	s.mu.Unlock()

	s.notify(ctx, userID, coll)
	return nil
}

func (s *Store) Subscribe(ctx context.Context, userID, coll string, onSnapshot func(store.Snapshot), onError func(error)) (store.Subscription, error) {
	coll = records.CanonicalCollection(coll)
	if err := s.check("subscribe", coll, ""); err != nil {
		return nil, err
	}
	return s.broker.Subscribe(ctx, userID, coll, s.loader(userID, coll), onSnapshot, onError)
}

func (s *Store) notify(ctx context.Context, userID, coll string) {
	s.broker.Notify(ctx, userID, coll, s.loader(userID, coll))
}

func (s *Store) loader(userID, coll string) store.Loader {
	return func(context.Context) ([]store.Record, error) {
		return s.list(userID, coll)
	}
}

func (s *Store) Close() error { return nil }
