package livesync

import (
	"time"

	"noteflow/internal/domain"
)

// View returns a copy of the current state with optimistic changes applied.
func (c *Core) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewLocked()
}

// Notes returns the visible notes.
func (c *Core) Notes() []domain.Note {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.visibleNotesLocked()
}

// Topics returns the topics from the latest snapshot.
func (c *Core) Topics() []domain.Topic {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Topic{}, c.topics...)
}

// Events returns the standalone calendar events from the latest snapshot.
func (c *Core) Events() []domain.CalendarEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.CalendarEvent{}, c.events...)
}

// Status returns the state of every collection.
func (c *Core) Status() map[string]Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.statusLocked()
}

// Live reports whether every collection is in StateLive.
func (c *Core) Live() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, coll := range c.colls {
		if coll.status.State != StateLive {
			return false
		}
	}
	return true
}

func (c *Core) statusLocked() map[string]Status {
	out := make(map[string]Status, len(c.colls))
	for name, coll := range c.colls {
		out[name] = coll.status
	}
	return out
}

func (c *Core) viewLocked() View {
	return View{
		Notes:   c.visibleNotesLocked(),
		Topics:  append([]domain.Topic{}, c.topics...),
		Events:  append([]domain.CalendarEvent{}, c.events...),
		Status:  c.statusLocked(),
		Version: c.version,
	}
}

func (c *Core) visibleNotesLocked() []domain.Note {
	out := make([]domain.Note, 0, len(c.notes)+len(c.overlay))
	seen := make(map[string]bool, len(c.notes))
	for _, n := range c.notes {
		seen[n.ID] = true
		if e, ok := c.overlay[n.ID]; ok {
			if e.deleted {
				continue
			}
			n = e.note
		}
		out = append(out, n)
	}
	for id, e := range c.overlay {
		if !seen[id] && !e.deleted {
			out = append(out, e.note)
		}
	}
	return out
}

// ApplyOptimistic shows n before the store confirms the write. The entry is
// dropped once a snapshot carries n.ID with an UpdatedAt no older than n's,
// or by Revert.
func (c *Core) ApplyOptimistic(n domain.Note) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlay[n.ID] = overlayEntry{note: n}
	c.bumpLocked()
}

// ApplyOptimisticDelete hides the note until a snapshot no longer carries it.
func (c *Core) ApplyOptimisticDelete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlay[id] = overlayEntry{deleted: true}
	c.bumpLocked()
}

// Revert discards the optimistic entry for id if it still belongs to the
// failed write: the note stamped updatedAt, or a delete when updatedAt is
// zero. Entries from later writes are kept.
func (c *Core) Revert(id string, updatedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.overlay[id]
	if !ok {
		return
	}
	if updatedAt.IsZero() != e.deleted || (!e.deleted && !e.note.UpdatedAt.Equal(updatedAt)) {
		return
	}
	delete(c.overlay, id)
	c.bumpLocked()
}

func (c *Core) settleOverlayLocked() {
	if len(c.overlay) == 0 {
		return
	}
	byID := make(map[string]domain.Note, len(c.notes))
	for _, n := range c.notes {
		byID[n.ID] = n
	}
	for id, e := range c.overlay {
		stored, ok := byID[id]
		switch {
		case e.deleted && !ok:
			delete(c.overlay, id)
		case !e.deleted && ok && !stored.UpdatedAt.Before(e.note.UpdatedAt):
			delete(c.overlay, id)
		}
	}
}

// Watch returns a channel receiving the latest View after every change. A
// slow reader only ever misses intermediate views. The channel is closed by
// the returned cancel func or by Close.
func (c *Core) Watch() (<-chan View, func()) {
	ch := make(chan View, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = ch
	ch <- c.viewLocked()
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if l, ok := c.listeners[id]; ok {
			close(l)
			delete(c.listeners, id)
		}
	}
}

func (c *Core) bumpLocked() {
	c.version++
	if len(c.listeners) == 0 {
		return
	}
	v := c.viewLocked()
	for _, ch := range c.listeners {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}
