// Package sqlstore keeps documents in SQLite, one JSON row per document,
// and serves live queries from the same process.
package sqlstore

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	_ "github.com/lib-x/entsqlite"
	"go.uber.org/zap"

	"noteflow/internal/domain"
	"noteflow/internal/records"
	"noteflow/internal/store"
)

const table = "documents"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	pos        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT    NOT NULL UNIQUE,
	user_id    TEXT    NOT NULL,
	collection TEXT    NOT NULL,
	data       TEXT    NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_owner ON documents (user_id, collection, pos);
`

// DSN builds the connection string for a database file inside dataDir.
func DSN(dataDir, file string) string {
	return fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(10000)",
		filepath.Join(dataDir, file))
}

type Store struct {
	drv    *entsql.Driver
	sql    *entsql.DialectBuilder
	broker *store.Broker
	log    *zap.Logger
	path   string
}

var _ store.Store = (*Store)(nil)

// Open connects to dsn and creates the schema when missing.
func Open(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.L()
	}
	log = log.Named("sqlstore")

	drv, err := entsql.Open(dialect.SQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	if err := drv.Exec(ctx, schema, []any{}, nil); err != nil {
		drv.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}

	s := &Store{
		drv:    drv,
		sql:    entsql.Dialect(dialect.SQLite),
		broker: store.NewBroker(log),
		log:    log,
		path:   pathFromDSN(dsn),
	}
	if err := s.renameLegacyCollections(ctx); err != nil {
		drv.Close()
		return nil, err
	}
	return s, nil
}

// renameLegacyCollections moves documents stored under historical collection
// names to their current collection.
func (s *Store) renameLegacyCollections(ctx context.Context) error {
	legacy := records.LegacyTopicsCollection
	query, args := s.sql.Update(table).
		Set("collection", records.CanonicalCollection(legacy)).
		Where(entsql.EQ("collection", legacy)).
		Query()

	var res stdsql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("sqlstore: migrate %s: %w", legacy, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.log.Info("legacy documents moved",
			zap.String("from", legacy),
			zap.String("to", records.CanonicalCollection(legacy)),
			zap.Int64("count", n),
		)
	}
	return nil
}

// Path returns the database file path, empty for in-memory databases.
func (s *Store) Path() string { return s.path }

func (s *Store) Create(ctx context.Context, userID, coll string, data map[string]any) (string, error) {
	coll = records.CanonicalCollection(coll)
	raw, err := json.Marshal(data)
	if err != nil {
		return "", &store.Error{Op: "create", Collection: coll, Err: err}
	}
	id := uuid.NewString()

	query, args := s.sql.Insert(table).
		Columns("id", "user_id", "collection", "data", "updated_at").
		Values(id, userID, coll, string(raw), time.Now().UnixNano()).
		Query()
	if err := s.drv.Exec(ctx, query, args, nil); err != nil {
		return "", classify("create", coll, "", err)
	}

	s.notify(ctx, userID, coll)
	return id, nil
}

func (s *Store) Update(ctx context.Context, userID, coll, id string, partial map[string]any) error {
	coll = records.CanonicalCollection(coll)
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return classify("update", coll, id, err)
	}
	if err := s.merge(ctx, tx, userID, coll, id, partial); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify("update", coll, id, err)
	}

	s.notify(ctx, userID, coll)
	return nil
}

func (s *Store) merge(ctx context.Context, tx dialect.Tx, userID, coll, id string, partial map[string]any) error {
	query, args := s.sql.Select("data").
		From(s.sql.Table(table)).
		Where(owned(userID, coll, id)).
		Query()

	var rows entsql.Rows
	if err := tx.Query(ctx, query, args, &rows); err != nil {
		return classify("update", coll, id, err)
	}
	var raw string
	found := rows.Next()
	if found {
		if err := rows.Scan(&raw); err != nil {
			rows.Close()
			return classify("update", coll, id, err)
		}
	}
	rows.Close()
	if !found {
		return &store.Error{Op: "update", Collection: coll, ID: id, Err: domain.ErrNotFound}
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return &store.Error{Op: "update", Collection: coll, ID: id, Err: err}
	}
	for k, v := range partial {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return &store.Error{Op: "update", Collection: coll, ID: id, Err: err}
	}

	query, args = s.sql.Update(table).
		Set("data", string(merged)).
		Set("updated_at", time.Now().UnixNano()).
		Where(owned(userID, coll, id)).
		Query()
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		return classify("update", coll, id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, userID, coll, id string) error {
	coll = records.CanonicalCollection(coll)
	query, args := s.sql.Delete(table).Where(owned(userID, coll, id)).Query()

	var res stdsql.Result
	if err := s.drv.Exec(ctx, query, args, &res); err != nil {
		return classify("delete", coll, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &store.Error{Op: "delete", Collection: coll, ID: id, Err: domain.ErrNotFound}
	}

	s.notify(ctx, userID, coll)
	return nil
}

func (s *Store) List(ctx context.Context, userID, coll string) ([]store.Record, error) {
	coll = records.CanonicalCollection(coll)
	query, args := s.sql.Select("id", "data").
		From(s.sql.Table(table)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("collection", coll))).
		OrderBy("pos").
		Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, classify("list", coll, "", err)
	}
	defer rows.Close()

	out := []store.Record{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, classify("list", coll, "", err)
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			// A corrupt row is surfaced as an empty document so the record
			// survives and ingest reports its fields.
			s.log.Warn("corrupt document", zap.String("id", id), zap.Error(err))
			data = map[string]any{}
		}
		out = append(out, store.Record{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list", coll, "", err)
	}
	return out, nil
}

func (s *Store) Subscribe(ctx context.Context, userID, coll string, onSnapshot func(store.Snapshot), onError func(error)) (store.Subscription, error) {
	coll = records.CanonicalCollection(coll)
	return s.broker.Subscribe(ctx, userID, coll, s.loader(userID, coll), onSnapshot, onError)
}

// Checkpoint folds the write-ahead log into the main database file so a file
// copy is consistent.
func (s *Store) Checkpoint(ctx context.Context) error {
	if err := s.drv.Exec(ctx, "PRAGMA wal_checkpoint(TRUNCATE)", []any{}, nil); err != nil {
		return fmt.Errorf("sqlstore: checkpoint: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.drv.Close()
}

func (s *Store) notify(ctx context.Context, userID, coll string) {
	s.broker.Notify(ctx, userID, coll, s.loader(userID, coll))
}

func (s *Store) loader(userID, coll string) store.Loader {
	return func(ctx context.Context) ([]store.Record, error) {
		return s.List(ctx, userID, coll)
	}
}

func owned(userID, coll, id string) *entsql.Predicate {
	return entsql.And(
		entsql.EQ("id", id),
		entsql.EQ("user_id", userID),
		entsql.EQ("collection", coll),
	)
}

// classify marks lock contention and deadlines as transient.
func classify(op, coll, id string, err error) error {
	transient := errors.Is(err, context.DeadlineExceeded)
	if !transient {
		msg := strings.ToLower(err.Error())
		transient = strings.Contains(msg, "database is locked") ||
			strings.Contains(msg, "sqlite_busy") ||
			strings.Contains(msg, "database table is locked")
	}
	return &store.Error{Op: op, Collection: coll, ID: id, Transient: transient, Err: err}
}

func pathFromDSN(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == ":memory:" || p == "" {
		return ""
	}
	return p
}
