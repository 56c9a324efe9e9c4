package store

import (
	"context"

	"github.com/roach88/tagstamp/internal/model"
)

// Backend is the preference backend consumed by the catalog, the engine
// config loader and the CLI. Store is the SQLite implementation; Memory is
// an in-process one for tests and dry runs.
type Backend interface {
	Writer

	Scalar(ctx context.Context, key string) (string, bool, error)
	List(ctx context.Context, key string) ([]string, bool, error)
	Maps(ctx context.Context, key string) ([]model.TagMap, bool, error)
	Keys(ctx context.Context, prefix string) ([]string, error)

	Update(ctx context.Context, fn func(w Writer) error) error
	Subscribe(prefix string, fn func(key string)) (cancel func())
}

var (
	_ Backend = (*Store)(nil)
	_ Backend = (*Memory)(nil)
)
