package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"noteflow/internal/domain"
	"noteflow/internal/store"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DSN(t.TempDir(), "test.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	id, err := s.Create(ctx, "u1", "notes", map[string]any{"title": "first", "tags": []string{"a"}})
	require.NoError(t, err)
	second, err := s.Create(ctx, "u1", "notes", map[string]any{"title": "second"})
	require.NoError(t, err)
	_, err = s.Create(ctx, "u1", "topics", map[string]any{"name": "Work"})
	require.NoError(t, err)

	recs, err := s.List(ctx, "u1", "notes")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, id, recs[0].ID)
	assert.Equal(t, second, recs[1].ID)
	assert.Equal(t, []any{"a"}, recs[0].Data["tags"])

	require.NoError(t, s.Update(ctx, "u1", "notes", id, map[string]any{"pinned": true, "archived": false}))
	recs, err = s.List(ctx, "u1", "notes")
	require.NoError(t, err)
	assert.Equal(t, true, recs[0].Data["pinned"])
	assert.Equal(t, "first", recs[0].Data["title"])

	err = s.Update(ctx, "u2", "notes", id, map[string]any{"pinned": false})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "u1", "notes", id))
	err = s.Delete(ctx, "u1", "notes", id)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var se *store.Error
	require.True(t, errors.As(err, &se))
	assert.False(t, se.Transient)

	require.NoError(t, s.Checkpoint(ctx))
	assert.NotEmpty(t, s.Path())
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	var seqs []uint64
	var sizes []int
	sub, err := s.Subscribe(ctx, "u1", "notes", func(snap store.Snapshot) {
		seqs = append(seqs, snap.Seq)
		sizes = append(sizes, len(snap.Records))
	}, func(error) {})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	id, err := s.Create(ctx, "u1", "notes", map[string]any{"title": "x"})
	require.NoError(t, err)
	require.NoError(t, s.Update(ctx, "u1", "notes", id, map[string]any{"title": "y"}))
	require.NoError(t, s.Delete(ctx, "u1", "notes", id))

	assert.Equal(t, []uint64{1, 2, 3, 4}, seqs)
	assert.Equal(t, []int{0, 1, 1, 0}, sizes)
}

func TestPathFromDSN(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/data/app.db", pathFromDSN(DSN("/data", "app.db")))
	assert.Equal(t, "", pathFromDSN("file::memory:?cache=shared"))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.True(t, store.IsTransient(classify("create", "notes", "", errors.New("database is locked (5) (SQLITE_BUSY)"))))
	assert.True(t, store.IsTransient(classify("create", "notes", "", context.DeadlineExceeded)))
	assert.False(t, store.IsTransient(classify("create", "notes", "", errors.New("constraint failed"))))
}

func TestOpen_MovesLegacyTopics(t *testing.T) {
	ctx := context.Background()
	dsn := DSN(t.TempDir(), "legacy.db")

	s, err := Open(ctx, dsn, zaptest.NewLogger(t))
	require.NoError(t, err)
	query, args := s.sql.Insert(table).
		Columns("id", "user_id", "collection", "data", "updated_at").
		Values("old-topic", "u1", "categories", `{"name":"Errands"}`, int64(1)).
		Query()
	require.NoError(t, s.drv.Exec(ctx, query, args, nil))
	require.NoError(t, s.Close())

	s, err = Open(ctx, dsn, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	recs, err := s.List(ctx, "u1", "topics")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "old-topic", recs[0].ID)
	assert.Equal(t, "Errands", recs[0].Data["name"])

	require.NoError(t, s.Update(ctx, "u1", "topics", "old-topic", map[string]any{"name": "Chores"}))
	recs, err = s.List(ctx, "u1", "categories")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Chores", recs[0].Data["name"])
}

func TestStore_LegacyNameSharesFeed(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	var sizes []int
	sub, err := s.Subscribe(ctx, "u1", "categories", func(snap store.Snapshot) {
		sizes = append(sizes, len(snap.Records))
	}, func(error) {})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	_, err = s.Create(ctx, "u1", "topics", map[string]any{"name": "Work"})
	require.NoError(t, err)

	require.NotEmpty(t, sizes)
	assert.Equal(t, 1, sizes[len(sizes)-1])
}
