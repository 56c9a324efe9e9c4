package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tagstamp/internal/model"
)

func TestBackend_ScalarRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := b.Scalar(ctx, "autoapply.countdown_seconds")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.PutScalar(ctx, "autoapply.countdown_seconds", "15"))
			v, ok, err := b.Scalar(ctx, "autoapply.countdown_seconds")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "15", v)

			require.NoError(t, b.PutScalar(ctx, "autoapply.countdown_seconds", "<&> "))
			v, _, err = b.Scalar(ctx, "autoapply.countdown_seconds")
			require.NoError(t, err)
			assert.Equal(t, "<&> ", v)
		})
	}
}

func TestBackend_ListRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.PutList(ctx, "templates.ids", []string{"a1", "", "b2"}))
			got, ok, err := b.List(ctx, "templates.ids")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []string{"a1", "", "b2"}, got)

			require.NoError(t, b.PutList(ctx, "empty", nil))
			got, ok, err = b.List(ctx, "empty")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestBackend_MapsKeepKeyOrder(t *testing.T) {
	ctx := context.Background()
	in := []model.TagMap{
		model.NewTagMap("highway", "bus_stop", "bench", "yes", "amenity", "x"),
		{},
		model.NewTagMap("z", "1", "a", "2"),
	}
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.PutMaps(ctx, "templates.tags", in))
			got, ok, err := b.Maps(ctx, "templates.tags")
			require.NoError(t, err)
			require.True(t, ok)
			require.Len(t, got, 3)
			for i := range in {
				assert.True(t, in[i].Equal(got[i]), "map %d: %s != %s", i, in[i], got[i])
				assert.Equal(t, in[i].Keys(), got[i].Keys(), "map %d key order", i)
			}
		})
	}
}

func TestBackend_KindMismatch(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.PutList(ctx, "k", []string{"x"}))

			_, _, err := b.Scalar(ctx, "k")
			assert.True(t, errors.Is(err, ErrKindMismatch))
			_, _, err = b.Maps(ctx, "k")
			assert.True(t, errors.Is(err, ErrKindMismatch))

			// A write of another kind replaces the value.
			require.NoError(t, b.PutScalar(ctx, "k", "v"))
			v, ok, err := b.Scalar(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v", v)
		})
	}
}

func TestBackend_DeleteAndKeys(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.PutScalar(ctx, "autoapply.b", "1"))
			require.NoError(t, b.PutScalar(ctx, "autoapply.a", "1"))
			require.NoError(t, b.PutList(ctx, "templates.ids", nil))

			keys, err := b.Keys(ctx, "autoapply.")
			require.NoError(t, err)
			assert.Equal(t, []string{"autoapply.a", "autoapply.b"}, keys)

			require.NoError(t, b.Delete(ctx, "autoapply.a"))
			require.NoError(t, b.Delete(ctx, "never.written"))
			keys, err = b.Keys(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []string{"autoapply.b", "templates.ids"}, keys)

			keys, err = b.Keys(ctx, "nothing.")
			require.NoError(t, err)
			assert.NotNil(t, keys)
			assert.Empty(t, keys)
		})
	}
}

func TestBackend_SubscribeByPrefix(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var config, all recorder
			cancel := b.Subscribe("autoapply.", config.record)
			b.Subscribe("", all.record)

			require.NoError(t, b.PutScalar(ctx, "autoapply.auto_activate", "false"))
			require.NoError(t, b.PutList(ctx, "templates.ids", nil))
			require.NoError(t, b.Delete(ctx, "absent"))

			assert.Equal(t, []string{"autoapply.auto_activate"}, config.keys)
			assert.Equal(t, []string{"autoapply.auto_activate", "templates.ids"}, all.keys)

			cancel()
			cancel()
			require.NoError(t, b.PutScalar(ctx, "autoapply.auto_activate", "true"))
			assert.Len(t, config.keys, 1)
			assert.Len(t, all.keys, 3)
		})
	}
}

func TestBackend_UpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var rec recorder
			b.Subscribe("templates.", rec.record)

			err := b.Update(ctx, func(w Writer) error {
				if err := w.PutList(ctx, "templates.ids", []string{"a"}); err != nil {
					return err
				}
				return boom
			})
			require.ErrorIs(t, err, boom)
			_, ok, err := b.List(ctx, "templates.ids")
			require.NoError(t, err)
			assert.False(t, ok, "rolled back write must not be visible")
			assert.Empty(t, rec.keys)

			err = b.Update(ctx, func(w Writer) error {
				if err := w.PutList(ctx, "templates.ids", []string{"a"}); err != nil {
					return err
				}
				if err := w.PutList(ctx, "templates.names", []string{"A"}); err != nil {
					return err
				}
				return w.PutList(ctx, "templates.ids", []string{"a", "b"})
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"templates.ids", "templates.names"}, rec.keys)

			ids, _, err := b.List(ctx, "templates.ids")
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, ids)
		})
	}
}

func TestStore_RevisionCountsWrites(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	rev, err := s.Revision(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, rev)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.PutScalar(ctx, "k", "v"))
	}
	rev, err = s.Revision(ctx, "k")
	require.NoError(t, err)
	assert.EqualValues(t, 3, rev)
}

func TestStore_KeysPrefixIsLiteral(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.PutScalar(ctx, "a%b", "1"))
	require.NoError(t, s.PutScalar(ctx, "axb", "1"))

	keys, err := s.Keys(ctx, "a%")
	require.NoError(t, err)
	assert.Equal(t, []string{"a%b"}, keys)
}
