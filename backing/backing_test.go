package backing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vmemgo/resource"
)

func TestAdapter(t *testing.T) {
	t.Run("RequiresBothFuncs", func(t *testing.T) {
		_, err := NewAdapter(Funcs{})
		assert.ErrorIs(t, err, ErrNoBacking)

		_, err = NewAdapter(Funcs{
			Alloc: func(int64) (uintptr, error) { return 0, nil },
		})
		assert.ErrorIs(t, err, ErrNoBacking)

		_, err = NewAdapter(Funcs{
			Free: func(uintptr, int64) error { return nil },
		})
		assert.ErrorIs(t, err, ErrNoBacking)
	})

	t.Run("RejectsInvalidSize", func(t *testing.T) {
		adapter, err := NewAdapter(NewHostBacking().Funcs())
		require.NoError(t, err)

		_, err = adapter.Alloc(0)
		assert.ErrorIs(t, err, ErrInvalidSize)
		_, err = adapter.Alloc(-1)
		assert.ErrorIs(t, err, ErrInvalidSize)
	})
}

func TestHostBacking(t *testing.T) {
	host := NewHostBacking()
	funcs := host.Funcs()

	addr, err := funcs.Alloc(4096)
	require.NoError(t, err)
	assert.NotZero(t, addr)
	assert.Equal(t, 1, host.Len())

	require.NoError(t, funcs.Free(addr, 4096))
	assert.Equal(t, 0, host.Len())

	assert.ErrorIs(t, funcs.Free(addr, 4096), ErrUnknownAddress)
}

func TestPool(t *testing.T) {
	newAdapter := func(t *testing.T) *Adapter {
		t.Helper()
		adapter, err := NewAdapter(NewHostBacking().Funcs())
		require.NoError(t, err)
		return adapter
	}

	t.Run("SingleActivation", func(t *testing.T) {
		adapter := newAdapter(t)
		p := NewPool(adapter)
		assert.Same(t, adapter, p.Adapter())
		assert.False(t, p.Active())

		require.NoError(t, p.Activate())
		assert.True(t, p.Active())
		assert.Error(t, p.Activate())

		require.NoError(t, p.Deactivate())
		assert.False(t, p.Active())
		assert.ErrorIs(t, p.Deactivate(), ErrPoolNotActive)

		// A closed pool cannot come back.
		assert.ErrorIs(t, p.Activate(), ErrPoolClosed)
	})

	t.Run("RecordRequiresActive", func(t *testing.T) {
		p := NewPool(newAdapter(t))
		assert.ErrorIs(t, p.Record(64), ErrPoolNotActive)

		require.NoError(t, p.Activate())
		require.NoError(t, p.Record(64))
		require.NoError(t, p.Record(32))

		stats := p.Stats()
		assert.Equal(t, uint64(2), stats.Allocs)
		assert.Equal(t, uint64(96), stats.Bytes)

		require.NoError(t, p.Deactivate())
		assert.ErrorIs(t, p.Record(16), ErrPoolNotActive)

		// Stats survive deactivation.
		assert.Equal(t, uint64(2), p.Stats().Allocs)
	})
}

func TestCreator(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateRelease", func(t *testing.T) {
		host := NewHostBacking()
		adapter, err := NewAdapter(host.Funcs())
		require.NoError(t, err)

		c := NewCreator(adapter, 1024)
		assert.Equal(t, int64(1024), c.Size())

		addr, err := c.Create(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, host.Len())

		require.NoError(t, c.Release(addr))
		assert.Equal(t, 0, host.Len())
	})

	t.Run("BudgetEnforced", func(t *testing.T) {
		host := NewHostBacking()
		adapter, err := NewAdapter(host.Funcs())
		require.NoError(t, err)

		rc := resource.NewController(resource.Config{MemoryLimitBytes: 1024})
		c := NewCreator(adapter, 1024, WithMemoryAcquirer(rc))

		addr, err := c.Create(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1024), rc.MemoryUsage())

		// The budget is exhausted; a second region must wait.
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err = c.Create(cctx)
		assert.Error(t, err)

		require.NoError(t, c.Release(addr))
		assert.Equal(t, int64(0), rc.MemoryUsage())

		addr, err = c.Create(ctx)
		require.NoError(t, err)
		require.NoError(t, c.Release(addr))
	})

	t.Run("BudgetReturnedOnFailure", func(t *testing.T) {
		boom := errors.New("boom")
		adapter, err := NewAdapter(Funcs{
			Alloc: func(int64) (uintptr, error) { return 0, boom },
			Free:  func(uintptr, int64) error { return nil },
		})
		require.NoError(t, err)

		rc := resource.NewController(resource.Config{MemoryLimitBytes: 4096})
		c := NewCreator(adapter, 1024, WithMemoryAcquirer(rc))

		_, err = c.Create(ctx)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, int64(0), rc.MemoryUsage())
	})
}
