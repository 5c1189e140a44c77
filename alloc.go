package vmemgo

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hupe1980/vmemgo/backing"
	"github.com/hupe1980/vmemgo/virtual"
)

// Allocation is one region of device memory handed out by a Runtime.
//
// Tracked allocations (made inside a scope) participate in bulk Release and
// Materialize under their mark; their address changes across cycles, so
// always go through Addr or Bytes instead of caching the pointer. Untracked
// allocations (made with no scope active) live until freed.
type Allocation struct {
	rt      *Runtime
	handle  uint64
	mark    string
	size    int64
	tracked bool
	freed   atomic.Bool

	// untracked allocations keep their creator and address here; tracked
	// ones are owned by the manager.
	creator *backing.Creator
	addr    uintptr
}

// Alloc allocates size bytes of device memory on the given stream.
//
// When a scope is active on the stream, the allocation is tagged with the
// scope's mark, wired with the scope's backed mode, and counted against the
// scope's pool. With no scope active the memory is handed out directly from
// the backing allocator and never participates in bulk lifecycle operations.
func (rt *Runtime) Alloc(ctx context.Context, size int64, optFns ...AllocOption) (*Allocation, error) {
	o := applyAllocOptions(optFns)

	start := time.Now()
	a, err := rt.alloc(ctx, size, o)
	rt.metrics.RecordAlloc(size, time.Since(start), err)
	return a, err
}

func (rt *Runtime) alloc(ctx context.Context, size int64, o allocOptions) (*Allocation, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	var copts []backing.CreatorOption
	if rt.controller != nil {
		copts = append(copts, backing.WithMemoryAcquirer(rt.controller))
	}

	entry, ok := rt.router.Active(o.stream.ID())
	if !ok {
		adapter, err := rt.getAdapter()
		if err != nil {
			return nil, err
		}
		creator := backing.NewCreator(adapter, size, copts...)
		addr, err := creator.Create(ctx)
		if err != nil {
			return nil, &ErrAllocation{Size: size, cause: err}
		}
		rt.logger.LogAlloc(ctx, 0, size, nil)
		return &Allocation{rt: rt, size: size, creator: creator, addr: addr}, nil
	}

	// Allocations inside a scope draw from the scope pool's adapter.
	creator := backing.NewCreator(entry.Pool.Adapter(), size, copts...)
	handle := rt.handleSeq.Add(1)
	configurators := rt.configuratorsFor(entry, handle, size)

	if _, err := rt.manager.Create(ctx, handle, entry.Mark, creator, configurators...); err != nil {
		rt.logger.LogAlloc(ctx, handle, size, err)
		return nil, &ErrAllocation{Size: size, cause: err}
	}
	if err := entry.Pool.Record(size); err != nil {
		rt.logger.WithHandle(handle).WarnContext(ctx, "pool accounting skipped", "error", err)
	}
	rt.logger.LogAlloc(ctx, handle, size, nil)

	return &Allocation{rt: rt, handle: handle, mark: entry.Mark, size: size, tracked: true}, nil
}

// Handle returns the allocation's identity, or 0 for untracked allocations.
func (a *Allocation) Handle() uint64 { return a.handle }

// Mark returns the mark the allocation is tracked under, or "" when
// untracked.
func (a *Allocation) Mark() string { return a.mark }

// Size returns the allocation's byte size.
func (a *Allocation) Size() int64 { return a.size }

// Tracked reports whether the allocation participates in bulk lifecycle
// operations under its mark.
func (a *Allocation) Tracked() bool { return a.tracked }

// Addr returns the current address of the region, or 0 while the region is
// released or after it was freed. The address is not stable across
// release/materialize cycles.
func (a *Allocation) Addr() uintptr {
	if a.freed.Load() {
		return 0
	}
	if a.tracked {
		return a.rt.manager.Address(a.handle)
	}
	return a.addr
}

// Bytes returns a byte slice over the live region, or nil while the region
// is released. The slice is invalidated by Release and Free.
func (a *Allocation) Bytes() []byte {
	return virtual.Bytes(a.Addr(), a.size)
}

// Status returns the allocation's lifecycle status. Untracked allocations
// report Materialized until freed.
func (a *Allocation) Status() virtual.Status {
	if a.freed.Load() {
		return virtual.StatusInvalid
	}
	if a.tracked {
		return a.rt.manager.Status(a.handle)
	}
	return virtual.StatusMaterialized
}

// Free returns the allocation's memory to the backing allocator, discarding
// any preserved contents. Freeing twice returns ErrAlreadyFreed.
func (a *Allocation) Free(ctx context.Context) error {
	if !a.freed.CompareAndSwap(false, true) {
		return ErrAlreadyFreed
	}

	start := time.Now()
	err := a.free()
	a.rt.metrics.RecordFree(a.size, time.Since(start), err)
	return err
}

func (a *Allocation) free() error {
	if !a.tracked {
		err := a.creator.Release(a.addr)
		a.addr = 0
		return err
	}

	mem := a.rt.manager.Remove(a.handle)
	if mem == nil {
		// Evicted as a bad handle after a failed bulk operation; the
		// underlying memory is already gone.
		return nil
	}
	return mem.Destroy()
}
