package virtual

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCreator hands out synthetic addresses and records releases. The
// addresses are never dereferenced in these tests.
type fakeCreator struct {
	next       uintptr
	released   []uintptr
	createErr  error
	releaseErr error
}

func (f *fakeCreator) Create(context.Context) (uintptr, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.next += 0x1000
	return f.next, nil
}

func (f *fakeCreator) Release(addr uintptr) error {
	f.released = append(f.released, addr)
	return f.releaseErr
}

// fakeConfigurator appends its name to a shared log so ordering can be
// asserted.
type fakeConfigurator struct {
	name        string
	log         *[]string
	setupErr    error
	teardownErr error
}

func (f *fakeConfigurator) Setup(context.Context, uintptr) error {
	*f.log = append(*f.log, "setup:"+f.name)
	return f.setupErr
}

func (f *fakeConfigurator) Teardown(context.Context, uintptr) error {
	*f.log = append(*f.log, "teardown:"+f.name)
	return f.teardownErr
}

func TestMemoryLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("StartsReleased", func(t *testing.T) {
		mem := NewMemory(&fakeCreator{})
		assert.Equal(t, StatusReleased, mem.Status())
		assert.Zero(t, mem.Addr())
	})

	t.Run("MaterializeRelease", func(t *testing.T) {
		creator := &fakeCreator{}
		mem := NewMemory(creator)

		require.NoError(t, mem.Materialize(ctx))
		assert.Equal(t, StatusMaterialized, mem.Status())
		addr := mem.Addr()
		assert.NotZero(t, addr)

		// Double materialize is a status violation.
		assert.ErrorIs(t, mem.Materialize(ctx), ErrInvalidStatus)

		require.NoError(t, mem.Release(ctx))
		assert.Equal(t, StatusReleased, mem.Status())
		assert.Zero(t, mem.Addr())
		assert.Equal(t, []uintptr{addr}, creator.released)

		// Double release is a status violation.
		assert.ErrorIs(t, mem.Release(ctx), ErrInvalidStatus)
	})

	t.Run("ConfiguratorOrdering", func(t *testing.T) {
		var log []string
		mem := NewMemory(&fakeCreator{},
			&fakeConfigurator{name: "a", log: &log},
			&fakeConfigurator{name: "b", log: &log},
			&fakeConfigurator{name: "c", log: &log},
		)

		require.NoError(t, mem.Materialize(ctx))
		require.NoError(t, mem.Release(ctx))

		assert.Equal(t, []string{
			"setup:a", "setup:b", "setup:c",
			"teardown:c", "teardown:b", "teardown:a",
		}, log)
	})

	t.Run("SetupFailureLeavesErrored", func(t *testing.T) {
		boom := errors.New("boom")
		var log []string
		creator := &fakeCreator{}
		mem := NewMemory(creator,
			&fakeConfigurator{name: "a", log: &log},
			&fakeConfigurator{name: "b", log: &log, setupErr: boom},
			&fakeConfigurator{name: "c", log: &log},
		)

		assert.ErrorIs(t, mem.Materialize(ctx), boom)
		assert.Equal(t, StatusErrored, mem.Status())

		// Release unwinds only the step that succeeded, then frees.
		log = nil
		require.NoError(t, mem.Release(ctx))
		assert.Equal(t, []string{"teardown:a"}, log)
		assert.Equal(t, StatusReleased, mem.Status())
		assert.Len(t, creator.released, 1)
	})

	t.Run("CreateFailureStaysReleased", func(t *testing.T) {
		boom := errors.New("boom")
		mem := NewMemory(&fakeCreator{createErr: boom})

		assert.ErrorIs(t, mem.Materialize(ctx), boom)
		assert.Equal(t, StatusReleased, mem.Status())
	})

	t.Run("ReleaseNeverStopsEarly", func(t *testing.T) {
		boom := errors.New("teardown boom")
		var log []string
		creator := &fakeCreator{}
		mem := NewMemory(creator,
			&fakeConfigurator{name: "a", log: &log},
			&fakeConfigurator{name: "b", log: &log, teardownErr: boom},
			&fakeConfigurator{name: "c", log: &log},
		)
		require.NoError(t, mem.Materialize(ctx))

		log = nil
		assert.ErrorIs(t, mem.Release(ctx), boom)
		// Every teardown ran and the memory was freed regardless.
		assert.Equal(t, []string{"teardown:c", "teardown:b", "teardown:a"}, log)
		assert.Len(t, creator.released, 1)
		assert.Equal(t, StatusErrored, mem.Status())

		assert.ErrorIs(t, mem.Release(ctx), ErrInvalidStatus)
	})

	t.Run("DestroySkipsTeardowns", func(t *testing.T) {
		var log []string
		creator := &fakeCreator{}
		mem := NewMemory(creator, &fakeConfigurator{name: "a", log: &log})
		require.NoError(t, mem.Materialize(ctx))

		log = nil
		require.NoError(t, mem.Destroy())
		assert.Empty(t, log)
		assert.Len(t, creator.released, 1)
		assert.Equal(t, StatusReleased, mem.Status())

		// Destroy on released memory is a no-op.
		require.NoError(t, mem.Destroy())
		assert.Len(t, creator.released, 1)
	})
}
