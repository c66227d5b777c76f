package gateway

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"noteflow/internal/blob"
	"noteflow/internal/domain"
	"noteflow/internal/parser"
	"noteflow/internal/records"
	"noteflow/internal/store"
	"noteflow/internal/store/memstore"
	"noteflow/internal/topics"
)

const user = "u1"

var t0 = time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

// countingStore records every Update issued through it.
type countingStore struct {
	store.DocumentStore
	mu      sync.Mutex
	updates []map[string]any
}

func (c *countingStore) Update(ctx context.Context, userID, coll, id string, partial map[string]any) error {
	c.mu.Lock()
	c.updates = append(c.updates, partial)
	c.mu.Unlock()
	return c.DocumentStore.Update(ctx, userID, coll, id, partial)
}

type fakeOverlay struct {
	mu      sync.Mutex
	applied []domain.Note
	deleted []string
	reverts []revert
}

type revert struct {
	id string
	at time.Time
}

func (f *fakeOverlay) ApplyOptimistic(n domain.Note) {
	f.mu.Lock()
	f.applied = append(f.applied, n)
	f.mu.Unlock()
}

func (f *fakeOverlay) ApplyOptimisticDelete(id string) {
	f.mu.Lock()
	f.deleted = append(f.deleted, id)
	f.mu.Unlock()
}

func (f *fakeOverlay) Revert(id string, updatedAt time.Time) {
	f.mu.Lock()
	f.reverts = append(f.reverts, revert{id: id, at: updatedAt})
	f.mu.Unlock()
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newGateway(t *testing.T, docs store.DocumentStore, opts ...Option) *Gateway {
	t.Helper()
	clk := &clock{now: t0}
	opts = append([]Option{WithClock(clk.Now)}, opts...)
	return New(docs, zaptest.NewLogger(t), opts...)
}

func loadNote(t *testing.T, s store.DocumentStore, id string) domain.Note {
	t.Helper()
	recs, err := s.List(context.Background(), user, records.NotesCollection)
	require.NoError(t, err)
	for _, r := range recs {
		if r.ID == id {
			n, _ := records.DecodeNote(r.ID, r.Data, time.Now())
			return n
		}
	}
	t.Fatalf("note %s not stored", id)
	return domain.Note{}
}

func loadTopics(t *testing.T, s store.DocumentStore) []domain.Topic {
	t.Helper()
	recs, err := s.List(context.Background(), user, records.TopicsCollection)
	require.NoError(t, err)
	out := make([]domain.Topic, 0, len(recs))
	for _, r := range recs {
		tp, _ := records.DecodeTopic(r.ID, r.Data)
		out = append(out, tp)
	}
	return out
}

func TestCreateNote(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	g := newGateway(t, s)
	scope := Scope{UserID: user}

	n, err := g.CreateNote(ctx, scope, domain.AllTopics)
	require.NoError(t, err)
	require.NotEmpty(t, n.ID)

	noTopic, ok := topics.ResolveDefaultTopicID(loadTopics(t, s), domain.NoTopicName)
	require.True(t, ok, "No Topic created on demand")
	assert.Equal(t, noTopic, n.TopicID)
	assert.Equal(t, domain.DefaultNoteTitle, n.Title)
	assert.Equal(t, []string{}, n.Tags)
	assert.False(t, n.Pinned || n.Archived || n.Completed)
	assert.Equal(t, n.CreatedAt, n.UpdatedAt)

	stored := loadNote(t, s, n.ID)
	assert.Equal(t, noTopic, stored.TopicID)

	_, err = g.CreateNote(ctx, scope, "")
	require.NoError(t, err)
	assert.Len(t, loadTopics(t, s), 1, "default topic reused")

	_, err = g.CreateNote(ctx, scope, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = g.CreateNote(ctx, Scope{}, domain.AllTopics)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUpdateNoteContent_TagsFollowContent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	g := newGateway(t, s)
	scope := Scope{UserID: user}

	n, err := g.CreateNote(ctx, scope, domain.AllTopics)
	require.NoError(t, err)

	for _, text := range []string{
		"Meeting #work #urgent [15/03]",
		"<p>#alpha</p><p>#beta #alpha</p>",
		"no tags at all",
	} {
		n, err = g.UpdateNoteContent(ctx, scope, n, text)
		require.NoError(t, err)
		want := parser.ExtractTags(parser.PlainText(text, domain.FormatHTML))
		assert.Equal(t, want, n.Tags)
		assert.Equal(t, want, loadNote(t, s, n.ID).Tags)
	}
}

func TestPatch_RefreshesUpdatedAt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	g := newGateway(t, s)
	scope := Scope{UserID: user}

	n, err := g.CreateNote(ctx, scope, domain.AllTopics)
	require.NoError(t, err)

	stale := n
	stale.UpdatedAt = t0.Add(-24 * time.Hour)
	got, err := g.UpdateNoteTitle(ctx, scope, stale, "   ")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultNoteTitle, got.Title)
	assert.True(t, got.UpdatedAt.After(n.UpdatedAt))
	assert.True(t, got.UpdatedAt.Equal(loadNote(t, s, n.ID).UpdatedAt))
}

func TestTogglePinArchive_NeverBoth(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	counting := &countingStore{DocumentStore: memstore.New(zap.NewNop())}
	g := newGateway(t, counting)
	scope := Scope{UserID: user}

	n, err := g.CreateNote(ctx, scope, domain.AllTopics)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 50; i++ {
		before := len(counting.updates)
		if rng.IntN(2) == 0 {
			n, err = g.TogglePin(ctx, scope, n)
		} else {
			n, err = g.ToggleArchive(ctx, scope, n)
		}
		require.NoError(t, err)
		require.False(t, n.Pinned && n.Archived)

		stored := loadNote(t, counting, n.ID)
		require.False(t, stored.Pinned && stored.Archived)
		assert.Equal(t, n.Pinned, stored.Pinned)
		assert.Equal(t, n.Archived, stored.Archived)

		require.Len(t, counting.updates, before+1, "exactly one write per toggle")
		last := counting.updates[len(counting.updates)-1]
		assert.Contains(t, last, "pinned")
		assert.Contains(t, last, "archived")
	}

	n.Pinned = true
	n, err = g.ToggleArchive(ctx, scope, n)
	require.NoError(t, err)
	assert.True(t, n.Archived)
	assert.False(t, n.Pinned)
}

func TestMutations_OverlayAndRevert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	g := newGateway(t, s)
	ov := &fakeOverlay{}
	scope := Scope{UserID: user, Overlay: ov}

	n, err := g.CreateNote(ctx, scope, domain.AllTopics)
	require.NoError(t, err)

	_, err = g.ToggleCompleted(ctx, scope, n)
	require.NoError(t, err)
	require.Len(t, ov.applied, 1)
	assert.True(t, ov.applied[0].Completed)
	assert.Empty(t, ov.reverts)

	s.SetFault(func(op, _, _ string) error {
		if op == "update" || op == "delete" {
			return errors.New("disk full")
		}
		return nil
	})
	_, err = g.TogglePin(ctx, scope, n)
	require.Error(t, err)
	require.Len(t, ov.applied, 2)
	assert.Equal(t, []revert{{id: n.ID, at: ov.applied[1].UpdatedAt}}, ov.reverts,
		"revert names the failed write")

	err = g.DeleteNote(ctx, scope, n)
	require.Error(t, err)
	assert.Equal(t, []string{n.ID}, ov.deleted)
	require.Len(t, ov.reverts, 2)
	assert.Equal(t, revert{id: n.ID}, ov.reverts[1])

	assert.False(t, loadNote(t, s, n.ID).Pinned, "prior state intact")
}

func TestWriteFailures_LoggedByKind(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	core, logs := observer.New(zapcore.DebugLevel)
	g := New(s, zap.New(core))
	scope := Scope{UserID: user}

	n, err := g.CreateNote(ctx, scope, domain.AllTopics)
	require.NoError(t, err)

	transient := true
	s.SetFault(func(op, coll, id string) error {
		if op != "update" {
			return nil
		}
		return &store.Error{Op: op, Collection: coll, ID: id, Transient: transient, Err: errors.New("busy")}
	})

	_, err = g.TogglePin(ctx, scope, n)
	require.Error(t, err)
	assert.True(t, store.IsTransient(err))
	assert.Equal(t, 1, logs.FilterMessage("transient store error").Len())

	transient = false
	_, err = g.TogglePin(ctx, scope, n)
	require.Error(t, err)
	assert.False(t, store.IsTransient(err))
	assert.Equal(t, 1, logs.FilterMessage("store write failed").Len())
}

func TestDeleteNote(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	fs := afero.NewMemMapFs()
	g := newGateway(t, s, WithBlobStorage(blob.NewLocalFs(fs, "data", "/uploads")))
	scope := Scope{UserID: user}

	n, err := g.CreateNote(ctx, scope, domain.AllTopics)
	require.NoError(t, err)
	n, err = g.AttachMedia(ctx, scope, n, "photo.PNG", strings.NewReader("png"))
	require.NoError(t, err)
	require.Len(t, n.Media, 1)

	require.NoError(t, g.DeleteNote(ctx, scope, n))
	recs, err := s.List(ctx, user, records.NotesCollection)
	require.NoError(t, err)
	assert.Empty(t, recs)

	p, ok := blob.NewLocalFs(fs, "data", "/uploads").PathFromURL(n.Media[0])
	require.True(t, ok)
	exists, _ := afero.Exists(fs, "data/uploads/"+p)
	assert.False(t, exists, "media removed with the note")

	err = g.DeleteNote(ctx, scope, n)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMoveNoteToTopic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	g := newGateway(t, s)
	scope := Scope{UserID: user}

	work, err := g.AddTopic(ctx, scope, TopicInput{Name: "Work"})
	require.NoError(t, err)
	n, err := g.CreateNote(ctx, scope, domain.AllTopics)
	require.NoError(t, err)

	n, err = g.MoveNoteToTopic(ctx, scope, n, work.ID)
	require.NoError(t, err)
	assert.Equal(t, work.ID, loadNote(t, s, n.ID).TopicID)

	_, err = g.MoveNoteToTopic(ctx, scope, n, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetEventDate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	g := newGateway(t, s)
	scope := Scope{UserID: user}

	n, err := g.CreateNote(ctx, scope, domain.AllTopics)
	require.NoError(t, err)

	when := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	n, err = g.SetEventDate(ctx, scope, n, &when)
	require.NoError(t, err)
	stored := loadNote(t, s, n.ID)
	require.NotNil(t, stored.EventDate)
	assert.True(t, when.Equal(*stored.EventDate))

	_, err = g.SetEventDate(ctx, scope, n, nil)
	require.NoError(t, err)
	assert.Nil(t, loadNote(t, s, n.ID).EventDate)
}

func TestMedia(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	fs := afero.NewMemMapFs()
	local := blob.NewLocalFs(fs, "data", "/uploads")
	g := newGateway(t, s, WithBlobStorage(local))
	scope := Scope{UserID: user}

	n, err := g.CreateNote(ctx, scope, domain.AllTopics)
	require.NoError(t, err)

	n, err = g.AttachMedia(ctx, scope, n, "a.jpg", strings.NewReader("a"))
	require.NoError(t, err)
	n, err = g.AttachMedia(ctx, scope, n, "b.jpg", strings.NewReader("b"))
	require.NoError(t, err)
	require.Len(t, n.Media, 2)
	assert.True(t, strings.HasPrefix(n.Media[0], "/uploads/users/u1/notes/"+n.ID+"/"))
	assert.Equal(t, n.Media, loadNote(t, s, n.ID).Media)

	first := n.Media[0]
	n, err = g.RemoveMedia(ctx, scope, n, first)
	require.NoError(t, err)
	assert.Len(t, n.Media, 1)
	p, _ := local.PathFromURL(first)
	exists, _ := afero.Exists(fs, "data/uploads/"+p)
	assert.False(t, exists)

	_, err = g.RemoveMedia(ctx, scope, n, first)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	s.SetFault(func(op, _, _ string) error {
		if op == "update" {
			return errors.New("nope")
		}
		return nil
	})
	_, err = g.AttachMedia(ctx, scope, n, "c.jpg", strings.NewReader("c"))
	require.Error(t, err)
	files := 0
	require.NoError(t, afero.Walk(fs, "data/uploads", func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files++
		}
		return err
	}))
	assert.Equal(t, 1, files, "upload rolled back when the note write fails")

	noBlobs := newGateway(t, s)
	_, err = noBlobs.AttachMedia(ctx, scope, n, "x.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestTopics_AddRename(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	g := newGateway(t, s)
	scope := Scope{UserID: user}

	tp, err := g.AddTopic(ctx, scope, TopicInput{})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTopicName, tp.Name)
	assert.Regexp(t, `^bg-[a-z]+-200$`, tp.Color)
	assert.False(t, tp.IsDefault)

	_, err = g.AddTopic(ctx, scope, TopicInput{Name: "Child", ParentID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	tp, err = g.RenameTopic(ctx, scope, tp, "Projects", "active work")
	require.NoError(t, err)
	assert.Equal(t, "Projects", tp.Name)

	tp, err = g.RenameTopic(ctx, scope, tp, "  ", "")
	require.NoError(t, err)
	assert.Equal(t, "Projects", tp.Name, "blank name keeps current")

	stored, ok := topics.FindByID(loadTopics(t, s), tp.ID)
	require.True(t, ok)
	assert.Equal(t, "Projects", stored.Name)

	require.NoError(t, g.EnsureDefaultTopics(ctx, user, nil))
	noTopic, _ := topics.ResolveDefaultTopicID(loadTopics(t, s), domain.NoTopicName)
	def, _ := topics.FindByID(loadTopics(t, s), noTopic)
	_, err = g.RenameTopic(ctx, scope, def, "Mine now", "")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestEnsureDefaultTopics_Concurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	g := newGateway(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, g.EnsureDefaultTopics(ctx, user, nil))
		}()
	}
	wg.Wait()

	got := loadTopics(t, s)
	require.Len(t, got, 2)
	assert.Empty(t, topics.Missing(got))
	for _, tp := range got {
		assert.True(t, tp.IsDefault)
	}
}

func TestDeleteTopic_ReassignsNotes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	g := newGateway(t, s)
	scope := Scope{UserID: user}

	work, err := g.AddTopic(ctx, scope, TopicInput{Name: "Work"})
	require.NoError(t, err)
	child, err := g.AddTopic(ctx, scope, TopicInput{Name: "Meetings", ParentID: work.ID})
	require.NoError(t, err)
	other, err := g.AddTopic(ctx, scope, TopicInput{Name: "Home"})
	require.NoError(t, err)

	const n = 7
	var ids []string
	for i := 0; i < n; i++ {
		note, err := g.CreateNote(ctx, scope, work.ID)
		require.NoError(t, err)
		ids = append(ids, note.ID)
	}
	keep, err := g.CreateNote(ctx, scope, other.ID)
	require.NoError(t, err)

	res, err := g.DeleteTopic(ctx, scope, work)
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.ElementsMatch(t, ids, res.Reassigned)
	assert.Equal(t, []string{child.ID}, res.Reparented)

	all := loadTopics(t, s)
	noTopic, ok := topics.ResolveDefaultTopicID(all, domain.NoTopicName)
	require.True(t, ok)
	assert.Equal(t, noTopic, res.TargetTopic)

	moved := 0
	for _, id := range ids {
		if loadNote(t, s, id).TopicID == noTopic {
			moved++
		}
	}
	assert.Equal(t, n, moved)
	assert.Equal(t, other.ID, loadNote(t, s, keep.ID).TopicID)

	for _, tp := range topics.SortTopics(all) {
		assert.NotEqual(t, work.ID, tp.ID)
	}
	c, ok := topics.FindByID(all, child.ID)
	require.True(t, ok)
	assert.Empty(t, c.ParentID)
}

func TestDeleteTopic_DefaultIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	g := newGateway(t, s)
	scope := Scope{UserID: user}

	require.NoError(t, g.EnsureDefaultTopics(ctx, user, nil))
	for _, tp := range loadTopics(t, s) {
		res, err := g.DeleteTopic(ctx, scope, tp)
		require.NoError(t, err)
		assert.False(t, res.Deleted)
	}
	assert.Len(t, loadTopics(t, s), 2)
}

func TestDeleteTopic_PartialFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	core, logs := observer.New(zapcore.WarnLevel)
	g := New(s, zap.New(core))
	scope := Scope{UserID: user}

	work, err := g.AddTopic(ctx, scope, TopicInput{Name: "Work"})
	require.NoError(t, err)
	var ids []string
	for i := 0; i < 4; i++ {
		note, err := g.CreateNote(ctx, scope, work.ID)
		require.NoError(t, err)
		ids = append(ids, note.ID)
	}
	bad := map[string]bool{ids[1]: true, ids[3]: true}
	s.SetFault(func(op, _, id string) error {
		if op == "update" && bad[id] {
			return errors.New("write rejected")
		}
		return nil
	})

	res, err := g.DeleteTopic(ctx, scope, work)
	require.Error(t, err)
	assert.False(t, res.Deleted)

	var fan *FanOutError
	require.ErrorAs(t, err, &fan)
	assert.Len(t, fan.Failed, 2)
	assert.ElementsMatch(t, []string{ids[0], ids[2]}, fan.Succeeded)

	assert.Equal(t, 2, logs.FilterMessage("cascade write failed").Len())

	_, stillThere := topics.FindByID(loadTopics(t, s), work.ID)
	assert.True(t, stillThere, "topic kept so no note dangles")
	assert.Equal(t, work.ID, loadNote(t, s, ids[1]).TopicID)
	assert.Equal(t, res.TargetTopic, loadNote(t, s, ids[0]).TopicID)
}

type fakeTranscriber struct {
	text    string
	err     error
	release chan struct{}
	calls   chan struct{}
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio io.Reader, _ string) (string, error) {
	if f.calls != nil {
		f.calls <- struct{}{}
	}
	if _, err := io.ReadAll(audio); err != nil {
		return "", err
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func TestCreateVoiceNote(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	g := newGateway(t, s, WithTranscriber(&fakeTranscriber{text: " Buy milk #groceries & eggs "}))
	scope := Scope{UserID: user}

	n, err := g.CreateVoiceNote(ctx, scope, strings.NewReader("RIFF"), "recording.webm")
	require.NoError(t, err)

	voice, ok := topics.ResolveDefaultTopicID(loadTopics(t, s), domain.VoiceNotesName)
	require.True(t, ok)
	assert.Equal(t, voice, n.TopicID)
	assert.True(t, n.IsVoiceNote)
	assert.Equal(t, []string{"groceries"}, n.Tags)
	assert.True(t, strings.HasPrefix(n.Title, "Voice Note "))
	assert.Equal(t, "<p>Buy milk #groceries &amp; eggs</p>", n.Content)

	stored := loadNote(t, s, n.ID)
	assert.True(t, stored.IsVoiceNote)
	assert.Equal(t, []string{"groceries"}, stored.Tags)

	_, err = g.CreateVoiceNote(ctx, scope, strings.NewReader(""), "empty.webm")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateVoiceNote_CallerGoneDiscardsResult(t *testing.T) {
	t.Parallel()

	s := memstore.New(zap.NewNop())
	tr := &fakeTranscriber{text: "late", release: make(chan struct{}), calls: make(chan struct{}, 1)}
	g := newGateway(t, s, WithTranscriber(tr))
	scope := Scope{UserID: user}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := g.CreateVoiceNote(ctx, scope, strings.NewReader("audio"), "r.webm")
		errc <- err
	}()

	<-tr.calls
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	close(tr.release)

	recs, err := s.List(context.Background(), user, records.NotesCollection)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestCreateVoiceNote_Timeout(t *testing.T) {
	t.Parallel()

	s := memstore.New(zap.NewNop())
	tr := &fakeTranscriber{release: make(chan struct{})}
	g := newGateway(t, s, WithTranscriber(tr), WithVoiceTimeout(20*time.Millisecond))

	_, err := g.CreateVoiceNote(context.Background(), Scope{UserID: user}, strings.NewReader("audio"), "r.webm")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = New(s, zap.NewNop()).CreateVoiceNote(context.Background(), Scope{UserID: user}, strings.NewReader("a"), "r.webm")
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestCalendarEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	g := newGateway(t, s)
	scope := Scope{UserID: user}

	e, err := g.AddCalendarEvent(ctx, scope, " Standup ", t0)
	require.NoError(t, err)
	assert.Equal(t, "Standup", e.Title)

	_, err = g.AddCalendarEvent(ctx, scope, "x", time.Time{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, g.DeleteCalendarEvent(ctx, scope, e.ID))
	assert.ErrorIs(t, g.DeleteCalendarEvent(ctx, scope, e.ID), domain.ErrNotFound)
}

func TestNote_ReadsStoredVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memstore.New(zap.NewNop())
	g := newGateway(t, s)
	scope := Scope{UserID: user}

	n, err := g.CreateNote(ctx, scope, domain.AllTopics)
	require.NoError(t, err)
	_, err = g.UpdateNoteContent(ctx, scope, n, "<p>fresh #idea</p>")
	require.NoError(t, err)

	got, err := g.Note(ctx, scope, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>fresh #idea</p>", got.Content)
	assert.Equal(t, []string{"idea"}, got.Tags)

	_, err = g.Note(ctx, scope, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = g.Note(ctx, Scope{UserID: "someone-else"}, n.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = g.Note(ctx, Scope{}, n.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
