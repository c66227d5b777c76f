// Package store defines the document store and live query contracts the sync
// core and mutation gateway are written against.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Record is a stored document: an opaque key-value map plus its id.
type Record struct {
	ID   string         `json:"id"`
	Data map[string]any `json:"data"`
}

// Snapshot is the complete current content of one user's collection.
// Seq increases with every snapshot delivered for that collection.
type Snapshot struct {
	UserID     string
	Collection string
	Seq        uint64
	Records    []Record
}

// DocumentStore is the write and read side of the store. Collections are
// scoped by user.
type DocumentStore interface {
	Create(ctx context.Context, userID, collection string, data map[string]any) (string, error)
	// Update merges partial into the stored document. Keys mapped to nil are
	// stored as null.
	Update(ctx context.Context, userID, collection, id string, partial map[string]any) error
	Delete(ctx context.Context, userID, collection, id string) error
	List(ctx context.Context, userID, collection string) ([]Record, error)
}

// Subscription stops a live query. Unsubscribe may be called any number of
// times.
type Subscription interface {
	Unsubscribe()
}

// LiveQuery pushes full snapshots of a user's collection. onSnapshot receives
// the current content right after subscribing and again after every change.
// onError receives feed failures; the subscription stays registered.
type LiveQuery interface {
	Subscribe(ctx context.Context, userID, collection string, onSnapshot func(Snapshot), onError func(error)) (Subscription, error)
}

// Store is a DocumentStore with a live change feed.
type Store interface {
	DocumentStore
	LiveQuery
	Close() error
}

// Error wraps a store failure with whether retrying may succeed.
type Error struct {
	Op         string
	Collection string
	ID         string
	Transient  bool
	Err        error
}

func (e *Error) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.ID != "" {
		return fmt.Sprintf("store: %s %s/%s (%s): %v", e.Op, e.Collection, e.ID, kind, e.Err)
	}
	return fmt.Sprintf("store: %s %s (%s): %v", e.Op, e.Collection, kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransient reports whether err is a store error worth retrying.
func IsTransient(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Transient
	}
	return errors.Is(err, context.DeadlineExceeded)
}
