package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tagstamp/internal/model"
)

// Writer is the write half of the preference backend. Both Store and the
// transaction passed to Update implement it.
type Writer interface {
	PutScalar(ctx context.Context, key, value string) error
	PutList(ctx context.Context, key string, values []string) error
	PutMaps(ctx context.Context, key string, maps []model.TagMap) error
	Delete(ctx context.Context, key string) error
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PutScalar stores a scalar under key, replacing any previous value of any
// kind.
func (s *Store) PutScalar(ctx context.Context, key, value string) error {
	data, err := marshalScalar(value)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return s.write(ctx, key, KindScalar, data)
}

// PutList stores a string list under key.
func (s *Store) PutList(ctx context.Context, key string, values []string) error {
	data, err := marshalList(values)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return s.write(ctx, key, KindList, data)
}

// PutMaps stores a list of tag maps under key, keeping each map's key order.
func (s *Store) PutMaps(ctx context.Context, key string, maps []model.TagMap) error {
	data, err := marshalMaps(maps)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return s.write(ctx, key, KindMaps, data)
}

// Delete removes key. Deleting an absent key is not an error and does not
// notify.
func (s *Store) Delete(ctx context.Context, key string) error {
	changed, err := deleteKey(ctx, s.db, key)
	if err != nil {
		return err
	}
	if changed {
		s.notify([]string{key})
	}
	return nil
}

func (s *Store) write(ctx context.Context, key string, kind Kind, data string) error {
	if err := upsert(ctx, s.db, key, kind, data); err != nil {
		return err
	}
	s.notify([]string{key})
	return nil
}

// Update runs fn inside one transaction. Either every write in fn is
// committed or none is. Subscribers are notified once per distinct changed
// key after the commit, in first-write order.
func (s *Store) Update(ctx context.Context, fn func(w Writer) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	w := &txWriter{tx: tx, seen: make(map[string]bool)}
	if err := fn(w); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	s.notify(w.changed)
	return nil
}

type txWriter struct {
	tx      *sql.Tx
	changed []string
	seen    map[string]bool
}

func (w *txWriter) mark(key string) {
	if !w.seen[key] {
		w.seen[key] = true
		w.changed = append(w.changed, key)
	}
}

func (w *txWriter) PutScalar(ctx context.Context, key, value string) error {
	data, err := marshalScalar(value)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return w.write(ctx, key, KindScalar, data)
}

func (w *txWriter) PutList(ctx context.Context, key string, values []string) error {
	data, err := marshalList(values)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return w.write(ctx, key, KindList, data)
}

func (w *txWriter) PutMaps(ctx context.Context, key string, maps []model.TagMap) error {
	data, err := marshalMaps(maps)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return w.write(ctx, key, KindMaps, data)
}

func (w *txWriter) Delete(ctx context.Context, key string) error {
	changed, err := deleteKey(ctx, w.tx, key)
	if err != nil {
		return err
	}
	if changed {
		w.mark(key)
	}
	return nil
}

func (w *txWriter) write(ctx context.Context, key string, kind Kind, data string) error {
	if err := upsert(ctx, w.tx, key, kind, data); err != nil {
		return err
	}
	w.mark(key)
	return nil
}

// upsert inserts or replaces a preference and bumps its revision.
func upsert(ctx context.Context, db execer, key string, kind Kind, data string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO preferences (key, kind, value, revision)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(key) DO UPDATE SET
			kind = excluded.kind,
			value = excluded.value,
			revision = preferences.revision + 1
	`, key, string(kind), data)
	if err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}

func deleteKey(ctx context.Context, db execer, key string) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("delete %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %q: %w", key, err)
	}
	return n > 0, nil
}
