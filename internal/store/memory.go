package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/tagstamp/internal/model"
)

// Memory is an in-process Backend. Values go through the same encoding as
// Store, so kind checks and tag order behave identically.
type Memory struct {
	mu     sync.RWMutex
	values map[string]entry
	subs   subscribers
}

type entry struct {
	kind Kind
	data string
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]entry)}
}

func (m *Memory) get(key string, want Kind) (string, bool, error) {
	m.mu.RLock()
	e, ok := m.values[key]
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if e.kind != want {
		return "", false, fmt.Errorf("read %q: stored %s, requested %s: %w", key, e.kind, want, ErrKindMismatch)
	}
	return e.data, true, nil
}

func (m *Memory) Scalar(_ context.Context, key string) (string, bool, error) {
	data, ok, err := m.get(key, KindScalar)
	if err != nil || !ok {
		return "", false, err
	}
	v, err := unmarshalScalar(data)
	return v, err == nil, err
}

func (m *Memory) List(_ context.Context, key string) ([]string, bool, error) {
	data, ok, err := m.get(key, KindList)
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := unmarshalList(data)
	return v, err == nil, err
}

func (m *Memory) Maps(_ context.Context, key string) ([]model.TagMap, bool, error) {
	data, ok, err := m.get(key, KindMaps)
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := unmarshalMaps(data)
	return v, err == nil, err
}

func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := []string{}
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) PutScalar(ctx context.Context, key, value string) error {
	return m.Update(ctx, func(w Writer) error { return w.PutScalar(ctx, key, value) })
}

func (m *Memory) PutList(ctx context.Context, key string, values []string) error {
	return m.Update(ctx, func(w Writer) error { return w.PutList(ctx, key, values) })
}

func (m *Memory) PutMaps(ctx context.Context, key string, maps []model.TagMap) error {
	return m.Update(ctx, func(w Writer) error { return w.PutMaps(ctx, key, maps) })
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	return m.Update(ctx, func(w Writer) error { return w.Delete(ctx, key) })
}

// Update stages fn's writes and applies them together if fn succeeds.
func (m *Memory) Update(ctx context.Context, fn func(w Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	staged := &memWriter{}
	if err := fn(staged); err != nil {
		return err
	}

	m.mu.Lock()
	var changed []string
	seen := make(map[string]bool)
	for _, op := range staged.ops {
		if op.delete {
			if _, ok := m.values[op.key]; !ok {
				continue
			}
			delete(m.values, op.key)
		} else {
			m.values[op.key] = op.entry
		}
		if !seen[op.key] {
			seen[op.key] = true
			changed = append(changed, op.key)
		}
	}
	m.mu.Unlock()

	m.subs.notify(changed)
	return nil
}

func (m *Memory) Subscribe(prefix string, fn func(key string)) (cancel func()) {
	return m.subs.add(prefix, fn)
}

type memOp struct {
	key    string
	entry  entry
	delete bool
}

type memWriter struct {
	ops []memOp
}

func (w *memWriter) PutScalar(_ context.Context, key, value string) error {
	data, err := marshalScalar(value)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	w.ops = append(w.ops, memOp{key: key, entry: entry{KindScalar, data}})
	return nil
}

func (w *memWriter) PutList(_ context.Context, key string, values []string) error {
	data, err := marshalList(values)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	w.ops = append(w.ops, memOp{key: key, entry: entry{KindList, data}})
	return nil
}

func (w *memWriter) PutMaps(_ context.Context, key string, maps []model.TagMap) error {
	data, err := marshalMaps(maps)
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	w.ops = append(w.ops, memOp{key: key, entry: entry{KindMaps, data}})
	return nil
}

func (w *memWriter) Delete(_ context.Context, key string) error {
	w.ops = append(w.ops, memOp{key: key, delete: true})
	return nil
}
