package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/smartfin/internal/storage"
)

// RunBackendSuite checks the storage.Backend contract against a fresh
// backend from open. Every implementation runs the same suite.
func RunBackendSuite(t *testing.T, open func(t *testing.T) storage.Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("committed writes are visible", func(t *testing.T) {
		b := open(t)
		err := b.Update(ctx, "c1", func(kv storage.KV) error {
			return kv.Put("k", []byte("v"))
		})
		require.NoError(t, err)

		err = b.View(ctx, "c1", func(kv storage.KV) error {
			v, ok, err := kv.Get("k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte("v"), v)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("failed event leaves no writes", func(t *testing.T) {
		b := open(t)
		require.NoError(t, b.Update(ctx, "c1", func(kv storage.KV) error {
			return kv.Put("k", []byte("before"))
		}))

		boom := errors.New("boom")
		err := b.Update(ctx, "c1", func(kv storage.KV) error {
			require.NoError(t, kv.Put("k", []byte("after")))
			require.NoError(t, kv.Put("new", []byte("x")))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		require.NoError(t, b.View(ctx, "c1", func(kv storage.KV) error {
			v, _, err := kv.Get("k")
			require.NoError(t, err)
			assert.Equal(t, []byte("before"), v)
			_, ok, err := kv.Get("new")
			require.NoError(t, err)
			assert.False(t, ok)
			return nil
		}))
	})

	t.Run("reads see own writes", func(t *testing.T) {
		b := open(t)
		require.NoError(t, b.Update(ctx, "c1", func(kv storage.KV) error {
			require.NoError(t, kv.Put("a", []byte{1}))
			v, ok, err := kv.Get("a")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte{1}, v)

			keys, err := kv.Keys()
			require.NoError(t, err)
			assert.Equal(t, []string{"a"}, keys)
			return nil
		}))
	})

	t.Run("namespaces are isolated", func(t *testing.T) {
		b := open(t)
		require.NoError(t, b.Update(ctx, "c1", func(kv storage.KV) error {
			return kv.Put("k", []byte("one"))
		}))
		require.NoError(t, b.Update(ctx, "c10", func(kv storage.KV) error {
			return kv.Put("j", []byte("ten"))
		}))

		require.NoError(t, b.View(ctx, "c1", func(kv storage.KV) error {
			keys, err := kv.Keys()
			require.NoError(t, err)
			assert.Equal(t, []string{"k"}, keys)
			return nil
		}))
		require.NoError(t, b.View(ctx, "c2", func(kv storage.KV) error {
			_, ok, err := kv.Get("k")
			require.NoError(t, err)
			assert.False(t, ok)
			return nil
		}))
	})

	t.Run("keys are sorted", func(t *testing.T) {
		b := open(t)
		require.NoError(t, b.Update(ctx, "c1", func(kv storage.KV) error {
			for _, k := range []string{"zeta", "alpha", "mid/1", "mid/0"} {
				require.NoError(t, kv.Put(k, []byte{0}))
			}
			return nil
		}))
		require.NoError(t, b.View(ctx, "c1", func(kv storage.KV) error {
			keys, err := kv.Keys()
			require.NoError(t, err)
			assert.Equal(t, []string{"alpha", "mid/0", "mid/1", "zeta"}, keys)
			return nil
		}))
	})

	t.Run("view is read-only", func(t *testing.T) {
		b := open(t)
		err := b.View(ctx, "c1", func(kv storage.KV) error {
			return kv.Put("k", []byte("v"))
		})
		assert.ErrorIs(t, err, storage.ErrReadOnly)
	})

	t.Run("cancelled context", func(t *testing.T) {
		b := open(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		called := false
		err := b.Update(cctx, "c1", func(kv storage.KV) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})

	t.Run("typed storage round trip", func(t *testing.T) {
		b := open(t)
		require.NoError(t, b.Update(ctx, "c1", func(kv storage.KV) error {
			s := storage.New(kv)
			require.NoError(t, s.SetInt("n", -42))
			require.NoError(t, s.SetSeq("seq", []int64{1, -1, 1 << 40}))
			v := s.Vec("vec")
			_, err := v.Push([]int64{7})
			return err
		}))
		require.NoError(t, b.View(ctx, "c1", func(kv storage.KV) error {
			s := storage.New(kv)
			n, ok, err := s.Int("n")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, int64(-42), n)

			seq, _, err := s.Seq("seq")
			require.NoError(t, err)
			assert.Equal(t, []int64{1, -1, 1 << 40}, seq)

			elem, err := s.Vec("vec").Get(0)
			require.NoError(t, err)
			assert.Equal(t, []int64{7}, elem)
			return nil
		}))
	})
}
