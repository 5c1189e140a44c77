package vmemgo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vmemgo/backing"
	"github.com/hupe1980/vmemgo/virtual"
)

func TestRuntimeScopes(t *testing.T) {
	ctx := context.Background()

	t.Run("OpenAndClose", func(t *testing.T) {
		rt, err := New()
		require.NoError(t, err)

		s, err := rt.OpenScope("weights", BackedNone)
		require.NoError(t, err)
		assert.Equal(t, "weights", s.Mark())
		assert.Equal(t, BackedNone, s.Mode())
		assert.Equal(t, 1, rt.StackDepth(DefaultStream()))

		require.NoError(t, s.Close())
		assert.Equal(t, 0, rt.StackDepth(DefaultStream()))
	})

	t.Run("EmptyMark", func(t *testing.T) {
		rt, err := New()
		require.NoError(t, err)

		_, err = rt.OpenScope("", BackedNone)
		assert.ErrorIs(t, err, ErrEmptyMark)
		assert.Equal(t, 0, rt.StackDepth(DefaultStream()))
	})

	t.Run("NestedLIFO", func(t *testing.T) {
		rt, err := New()
		require.NoError(t, err)

		outer, err := rt.OpenScope("outer", BackedNone)
		require.NoError(t, err)
		inner, err := rt.OpenScope("inner", BackedNone)
		require.NoError(t, err)
		assert.Equal(t, 2, rt.StackDepth(DefaultStream()))

		// Innermost scope receives the allocation.
		a, err := rt.Alloc(ctx, 64)
		require.NoError(t, err)
		assert.Equal(t, "inner", a.Mark())

		require.NoError(t, inner.Close())

		b, err := rt.Alloc(ctx, 64)
		require.NoError(t, err)
		assert.Equal(t, "outer", b.Mark())

		require.NoError(t, outer.Close())
		assert.Equal(t, 0, rt.StackDepth(DefaultStream()))

		require.NoError(t, a.Free(ctx))
		require.NoError(t, b.Free(ctx))
	})

	t.Run("CloseIsIdempotent", func(t *testing.T) {
		rt, err := New()
		require.NoError(t, err)

		s, err := rt.OpenScope("weights", BackedNone)
		require.NoError(t, err)
		require.NoError(t, s.Close())
		require.NoError(t, s.Close())
		assert.Equal(t, 0, rt.StackDepth(DefaultStream()))
	})

	t.Run("OutOfOrderClose", func(t *testing.T) {
		rt, err := New()
		require.NoError(t, err)

		outer, err := rt.OpenScope("outer", BackedNone)
		require.NoError(t, err)
		inner, err := rt.OpenScope("inner", BackedNone)
		require.NoError(t, err)

		// Closing the outer scope first pops the inner entry.
		assert.ErrorIs(t, outer.Close(), ErrStackDiscipline)

		// The stack was popped regardless, so the inner close pops the
		// remaining (mismatched) entry and reports the violation too.
		assert.ErrorIs(t, inner.Close(), ErrStackDiscipline)
		assert.Equal(t, 0, rt.StackDepth(DefaultStream()))
	})

	t.Run("CloseBeyondEmptyStack", func(t *testing.T) {
		rt, err := New()
		require.NoError(t, err)

		s, err := rt.OpenScope("weights", BackedNone)
		require.NoError(t, err)

		// Drain the stack behind the scope's back.
		_, err = rt.router.Pop(DefaultStream().ID())
		require.NoError(t, err)

		assert.ErrorIs(t, s.Close(), ErrStackDiscipline)
	})

	t.Run("IndependentStreams", func(t *testing.T) {
		rt, err := New()
		require.NoError(t, err)

		load := NewStream("load")
		s1, err := rt.OpenScope("weights", BackedNone)
		require.NoError(t, err)
		s2, err := rt.OpenScope("activations", BackedNone, OnStream(load))
		require.NoError(t, err)

		a, err := rt.Alloc(ctx, 32)
		require.NoError(t, err)
		b, err := rt.Alloc(ctx, 32, AllocOnStream(load))
		require.NoError(t, err)
		assert.Equal(t, "weights", a.Mark())
		assert.Equal(t, "activations", b.Mark())

		// Close order across streams is unconstrained.
		require.NoError(t, s1.Close())
		require.NoError(t, s2.Close())

		require.NoError(t, a.Free(ctx))
		require.NoError(t, b.Free(ctx))
	})

	t.Run("ScopedClosesOnPanicFreePath", func(t *testing.T) {
		rt, err := New()
		require.NoError(t, err)

		err = rt.Scoped("weights", BackedNone, func(s *Scope) error {
			assert.Equal(t, 1, rt.StackDepth(DefaultStream()))
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 0, rt.StackDepth(DefaultStream()))
	})

	t.Run("ScopedPropagatesError", func(t *testing.T) {
		rt, err := New()
		require.NoError(t, err)

		sentinel := errors.New("boom")
		err = rt.Scoped("weights", BackedNone, func(s *Scope) error {
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, 0, rt.StackDepth(DefaultStream()))
	})

	t.Run("StoreModeRequiresStore", func(t *testing.T) {
		rt, err := New()
		require.NoError(t, err)

		_, err = rt.OpenScope("weights", BackedStore)
		var ce *ErrConfiguration
		assert.ErrorAs(t, err, &ce)
	})
}

func TestRuntimeAlloc(t *testing.T) {
	ctx := context.Background()

	t.Run("InvalidSize", func(t *testing.T) {
		rt, err := New()
		require.NoError(t, err)

		_, err = rt.Alloc(ctx, 0)
		assert.ErrorIs(t, err, ErrInvalidSize)
		_, err = rt.Alloc(ctx, -8)
		assert.ErrorIs(t, err, ErrInvalidSize)
	})

	t.Run("UntrackedOutsideScope", func(t *testing.T) {
		rt, err := New()
		require.NoError(t, err)

		a, err := rt.Alloc(ctx, 128)
		require.NoError(t, err)
		assert.False(t, a.Tracked())
		assert.Empty(t, a.Mark())
		assert.NotZero(t, a.Addr())
		assert.Len(t, a.Bytes(), 128)
		assert.Equal(t, virtual.StatusMaterialized, a.Status())

		require.NoError(t, a.Free(ctx))
		assert.Zero(t, a.Addr())
		assert.Equal(t, virtual.StatusInvalid, a.Status())
	})

	t.Run("FreeTwice", func(t *testing.T) {
		rt, err := New()
		require.NoError(t, err)

		a, err := rt.Alloc(ctx, 16)
		require.NoError(t, err)
		require.NoError(t, a.Free(ctx))
		assert.ErrorIs(t, a.Free(ctx), ErrAlreadyFreed)
	})

	t.Run("TrackedInsideScope", func(t *testing.T) {
		rt, err := New()
		require.NoError(t, err)

		s, err := rt.OpenScope("weights", BackedNone)
		require.NoError(t, err)

		a, err := rt.Alloc(ctx, 256)
		require.NoError(t, err)
		assert.True(t, a.Tracked())
		assert.NotZero(t, a.Handle())
		assert.Equal(t, 1, rt.Count("weights"))

		stats := s.Stats()
		assert.Equal(t, uint64(1), stats.Allocs)
		assert.Equal(t, uint64(256), stats.Bytes)

		require.NoError(t, s.Close())

		require.NoError(t, a.Free(ctx))
		assert.Equal(t, 0, rt.Count("weights"))
	})

	t.Run("BackingFailureKeepsRouting", func(t *testing.T) {
		boom := errors.New("out of device memory")
		rt, err := New(WithBacking(backing.Funcs{
			Alloc: func(size int64) (uintptr, error) { return 0, boom },
			Free:  func(addr uintptr, size int64) error { return nil },
		}))
		require.NoError(t, err)

		s, err := rt.OpenScope("weights", BackedNone)
		require.NoError(t, err)

		_, err = rt.Alloc(ctx, 64)
		var ae *ErrAllocation
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, int64(64), ae.Size)
		assert.ErrorIs(t, err, boom)

		// The failed allocation leaves no tracking residue and the scope
		// stack is intact.
		assert.Equal(t, 0, rt.Count("weights"))
		assert.Equal(t, 1, rt.StackDepth(DefaultStream()))
		require.NoError(t, s.Close())
	})

	t.Run("MismatchedBackingFuncs", func(t *testing.T) {
		_, err := New(WithBacking(backing.Funcs{
			Alloc: func(size int64) (uintptr, error) { return 0, nil },
		}))
		var ce *ErrConfiguration
		assert.ErrorAs(t, err, &ce)
	})
}

func TestRuntimeMetrics(t *testing.T) {
	ctx := context.Background()

	metrics := &BasicMetricsCollector{}
	rt, err := New(WithMetricsCollector(metrics))
	require.NoError(t, err)

	err = rt.Scoped("weights", BackedNone, func(s *Scope) error {
		a, err := rt.Alloc(ctx, 512)
		if err != nil {
			return err
		}
		return a.Free(ctx)
	})
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.AllocCount)
	assert.Equal(t, int64(512), stats.AllocBytes)
	assert.Equal(t, int64(1), stats.FreeCount)
	assert.Equal(t, int64(1), stats.ScopeCount)
}

func TestDefaultRuntime(t *testing.T) {
	rt := Default()
	require.NotNil(t, rt)
	assert.Same(t, rt, Default())

	other, err := New()
	require.NoError(t, err)
	assert.ErrorIs(t, SetDefault(other), ErrDefaultInitialized)
}
