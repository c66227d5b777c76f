package livesync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"noteflow/internal/domain"
	"noteflow/internal/records"
	"noteflow/internal/store"
	"noteflow/internal/store/memstore"
	"noteflow/internal/topics"
)

const user = "u1"

var fixed = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

type storeProvisioner struct {
	s *memstore.Store
}

func (p storeProvisioner) EnsureDefaultTopics(ctx context.Context, userID string, current []domain.Topic) error {
	for _, t := range topics.Missing(current) {
		t.UserID = userID
		if _, err := p.s.Create(ctx, userID, records.TopicsCollection, records.EncodeTopic(t)); err != nil {
			return err
		}
	}
	return nil
}

func newCore(t *testing.T, s *memstore.Store, opts ...Option) *Core {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixed })}, opts...)
	c := New(user, s, zaptest.NewLogger(t), opts...)
	t.Cleanup(c.Close)
	return c
}

func TestCore_StartIngestsSnapshots(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	_, err := s.Create(ctx, user, records.NotesCollection, records.EncodeNote(domain.Note{
		UserID: user, Title: "hello", Content: "#a", CreatedAt: fixed, UpdatedAt: fixed,
	}))
	require.NoError(t, err)

	c := newCore(t, s, WithProvisioner(storeProvisioner{s}))
	require.NoError(t, c.Start(ctx))

	assert.True(t, c.Live())
	require.Len(t, c.Notes(), 1)
	assert.Equal(t, []string{"a"}, c.Notes()[0].Tags)

	assert.Eventually(t, func() bool {
		_, ok1 := topics.ResolveDefaultTopicID(c.Topics(), domain.NoTopicName)
		_, ok2 := topics.ResolveDefaultTopicID(c.Topics(), domain.VoiceNotesName)
		return ok1 && ok2
	}, 2*time.Second, 10*time.Millisecond)

	// A second snapshot with defaults present must not create duplicates.
	_, err = s.Create(ctx, user, records.TopicsCollection, records.EncodeTopic(domain.Topic{UserID: user, Name: "Work"}))
	require.NoError(t, err)
	c.wg.Wait()
	recs, err := s.List(ctx, user, records.TopicsCollection)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestCore_MalformedRecordDoesNotDropOthers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	for i := 0; i < 9; i++ {
		_, err := s.Create(ctx, user, records.NotesCollection, records.EncodeNote(domain.Note{
			UserID: user, Title: fmt.Sprintf("n%d", i), CreatedAt: fixed, UpdatedAt: fixed,
		}))
		require.NoError(t, err)
	}
	require.NoError(t, s.Put(ctx, user, records.NotesCollection, "bad", map[string]any{
		"userId": user, "title": "broken", "createdAt": "31/31/2024",
	}))

	core, logs := observer.New(zapcore.WarnLevel)
	c := New(user, s, zap.New(core), WithClock(func() time.Time { return fixed }))
	t.Cleanup(c.Close)
	require.NoError(t, c.Start(ctx))

	notes := c.Notes()
	require.Len(t, notes, 10)
	var bad domain.Note
	for _, n := range notes {
		if n.ID == "bad" {
			bad = n
		}
	}
	assert.Equal(t, fixed, bad.CreatedAt)
	assert.Equal(t, 1, logs.FilterMessage("malformed field").FilterField(zap.String("field", "createdAt")).Len())
}

func TestCore_ForeignRecordsSkipped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	require.NoError(t, s.Put(ctx, user, records.NotesCollection, "mine", map[string]any{"title": "mine"}))
	require.NoError(t, s.Put(ctx, user, records.NotesCollection, "theirs", map[string]any{"userId": "u2"}))

	c := newCore(t, s)
	require.NoError(t, c.Start(ctx))
	require.Len(t, c.Notes(), 1)
	assert.Equal(t, user, c.Notes()[0].UserID)
}

func TestCore_SubscribeErrorAndRetry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	s.SetFault(func(op, coll, _ string) error {
		if op == "subscribe" && coll == records.NotesCollection {
			return &store.Error{Op: op, Collection: coll, Transient: true, Err: errors.New("offline")}
		}
		return nil
	})

	c := newCore(t, s)
	err := c.Start(ctx)
	require.Error(t, err)
	assert.True(t, store.IsTransient(err))

	st := c.Status()
	assert.Equal(t, StateError, st[records.NotesCollection].State)
	assert.NotEmpty(t, st[records.NotesCollection].Error)
	assert.Equal(t, StateLive, st[records.TopicsCollection].State)
	assert.False(t, c.Live())

	s.SetFault(nil)
	require.NoError(t, c.Retry(ctx))
	assert.True(t, c.Live())
}

func TestCore_CancelledStartRecovers(t *testing.T) {
	t.Parallel()

	s := memstore.New(zap.NewNop())
	c := newCore(t, s)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, c.Start(cancelled), context.Canceled)
	for _, name := range Collections {
		assert.Equal(t, StateIdle, c.Status()[name].State, name)
	}

	require.NoError(t, c.Retry(context.Background()))
	assert.True(t, c.Live())
}

func TestCore_FeedErrorAndRetry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	c := newCore(t, s)
	require.NoError(t, c.Start(ctx))

	s.Broker().Fail(user, records.NotesCollection, errors.New("feed dropped"))
	assert.Equal(t, StateError, c.Status()[records.NotesCollection].State)

	// Snapshots from the failed subscription are ignored until retry.
	_, err := s.Create(ctx, user, records.NotesCollection, map[string]any{"title": "x"})
	require.NoError(t, err)
	assert.Empty(t, c.Notes())

	require.NoError(t, c.Retry(ctx))
	assert.Equal(t, StateLive, c.Status()[records.NotesCollection].State)
	assert.Len(t, c.Notes(), 1)
	assert.Equal(t, 1, s.Broker().Subscribers(user, records.NotesCollection), "old subscription released")
}

func TestCore_CloseIsIdempotentAndReleasesAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	c := New(user, s, zap.NewNop())
	require.NoError(t, c.Start(ctx))
	for _, coll := range Collections {
		require.Equal(t, 1, s.Broker().Subscribers(user, coll))
	}

	c.Close()
	c.Close()

	for _, coll := range Collections {
		assert.Zero(t, s.Broker().Subscribers(user, coll))
		assert.Equal(t, StateClosed, c.Status()[coll].State)
	}
	assert.NoError(t, c.Retry(ctx))
	assert.Equal(t, StateClosed, c.Status()[records.NotesCollection].State)
}

func TestCore_StaleSnapshotDropped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	c := newCore(t, s)
	require.NoError(t, c.Start(ctx))

	_, err := s.Create(ctx, user, records.NotesCollection, map[string]any{"title": "x"})
	require.NoError(t, err)
	require.Len(t, c.Notes(), 1)

	coll := c.colls[records.NotesCollection]
	c.onSnapshot(records.NotesCollection, coll.gen, store.Snapshot{Seq: 1, Records: nil})
	assert.Len(t, c.Notes(), 1)
}

func TestCore_OptimisticOverlay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	c := newCore(t, s)
	require.NoError(t, c.Start(ctx))

	orig := domain.Note{UserID: user, Title: "v1", CreatedAt: fixed, UpdatedAt: fixed}
	id, err := s.Create(ctx, user, records.NotesCollection, records.EncodeNote(orig))
	require.NoError(t, err)

	edited := c.Notes()[0]
	edited.Title = "v2"
	edited.UpdatedAt = fixed.Add(time.Minute)
	c.ApplyOptimistic(edited)
	assert.Equal(t, "v2", c.Notes()[0].Title)

	// An unrelated snapshot carrying the older version keeps the overlay.
	_, err = s.Create(ctx, user, records.NotesCollection, records.EncodeNote(orig))
	require.NoError(t, err)
	assert.Equal(t, "v2", c.Notes()[0].Title)

	require.NoError(t, s.Update(ctx, user, records.NotesCollection, id, map[string]any{
		"title": "v2", "updatedAt": edited.UpdatedAt,
	}))
	assert.Empty(t, c.overlay, "settled once the store caught up")

	c.ApplyOptimisticDelete(id)
	assert.Len(t, c.Notes(), 1)
	c.Revert(id, fixed)
	assert.Len(t, c.Notes(), 1, "a note revert does not undo a pending delete")
	c.Revert(id, time.Time{})
	assert.Len(t, c.Notes(), 2)

	draft := domain.Note{ID: "draft", Title: "unsaved", UpdatedAt: fixed}
	c.ApplyOptimistic(draft)
	assert.Len(t, c.Notes(), 3)
	c.Revert("draft", fixed)
	assert.Len(t, c.Notes(), 2)
}

func TestCore_RevertKeepsLaterWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	c := newCore(t, s)
	require.NoError(t, c.Start(ctx))

	id, err := s.Create(ctx, user, records.NotesCollection, records.EncodeNote(domain.Note{
		UserID: user, Title: "v1", CreatedAt: fixed, UpdatedAt: fixed,
	}))
	require.NoError(t, err)

	first := c.Notes()[0]
	first.Pinned = true
	first.UpdatedAt = fixed.Add(time.Second)
	c.ApplyOptimistic(first)

	second := first
	second.Title = "v2"
	second.UpdatedAt = fixed.Add(2 * time.Second)
	c.ApplyOptimistic(second)

	c.Revert(id, first.UpdatedAt)
	require.Len(t, c.Notes(), 1)
	assert.Equal(t, "v2", c.Notes()[0].Title, "later write still shown")

	c.Revert(id, second.UpdatedAt)
	assert.Equal(t, "v1", c.Notes()[0].Title)
	assert.Empty(t, c.overlay)
}

func TestCore_Watch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	c := newCore(t, s)

	ch, cancel := c.Watch()
	first := <-ch
	assert.Equal(t, StateIdle, first.Status[records.NotesCollection].State)

	require.NoError(t, c.Start(ctx))
	_, err := s.Create(ctx, user, records.NotesCollection, map[string]any{"title": "x"})
	require.NoError(t, err)

	latest := <-ch
	assert.Len(t, latest.Notes, 1)
	assert.Greater(t, latest.Version, first.Version)

	cancel()
	_, ok := <-ch
	assert.False(t, ok)
}
