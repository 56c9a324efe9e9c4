package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tagstamp/internal/model"
)

// Scalar returns the scalar stored under key. ok is false when the key is
// absent.
func (s *Store) Scalar(ctx context.Context, key string) (string, bool, error) {
	data, ok, err := s.read(ctx, key, KindScalar)
	if err != nil || !ok {
		return "", false, err
	}
	v, err := unmarshalScalar(data)
	if err != nil {
		return "", false, fmt.Errorf("read %q: %w", key, err)
	}
	return v, true, nil
}

// List returns the string list stored under key. A present but empty list
// is returned as an empty, non-nil slice.
func (s *Store) List(ctx context.Context, key string) ([]string, bool, error) {
	data, ok, err := s.read(ctx, key, KindList)
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := unmarshalList(data)
	if err != nil {
		return nil, false, fmt.Errorf("read %q: %w", key, err)
	}
	return v, true, nil
}

// Maps returns the list of tag maps stored under key, each in its stored
// key order.
func (s *Store) Maps(ctx context.Context, key string) ([]model.TagMap, bool, error) {
	data, ok, err := s.read(ctx, key, KindMaps)
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := unmarshalMaps(data)
	if err != nil {
		return nil, false, fmt.Errorf("read %q: %w", key, err)
	}
	return v, true, nil
}

// Keys returns every stored key starting with prefix, in binary order.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key FROM preferences
		WHERE substr(key, 1, ?) = ?
		ORDER BY key COLLATE BINARY ASC
	`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return keys, nil
}

// Revision returns how many times key has been written, or 0 if absent.
func (s *Store) Revision(ctx context.Context, key string) (int64, error) {
	var rev int64
	err := s.db.QueryRowContext(ctx, `
		SELECT revision FROM preferences WHERE key = ?
	`, key).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read revision %q: %w", key, err)
	}
	return rev, nil
}

// read fetches the raw value for key and checks its kind.
func (s *Store) read(ctx context.Context, key string, want Kind) (string, bool, error) {
	var kind, value string
	err := s.db.QueryRowContext(ctx, `
		SELECT kind, value FROM preferences WHERE key = ?
	`, key).Scan(&kind, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %q: %w", key, err)
	}
	if Kind(kind) != want {
		return "", false, fmt.Errorf("read %q: stored %s, requested %s: %w", key, kind, want, ErrKindMismatch)
	}
	return value, true, nil
}
