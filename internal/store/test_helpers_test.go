package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// backends returns one of each Backend implementation, for tests that
// must hold for both.
func backends(t *testing.T) map[string]Backend {
	t.Helper()
	return map[string]Backend{
		"sqlite": createTestStore(t),
		"memory": NewMemory(),
	}
}

// recorder collects notified keys.
type recorder struct {
	keys []string
}

func (r *recorder) record(key string) {
	r.keys = append(r.keys, key)
}
