package vmemgo

import (
	"context"
	"time"
)

// Release releases the memory of every materialized allocation tagged with
// any of the given marks, running each allocation's backup steps first. It
// returns the number of allocations released.
//
// Marks are processed in order. A failing mark aborts the remaining ones and
// is reported as an ErrLifecycle; allocations released before the failure
// stay released, and the failing allocation's handle is evicted into the bad
// handle list.
//
// Unknown marks and marks with no materialized allocations contribute zero.
func (rt *Runtime) Release(ctx context.Context, marks ...string) (int, error) {
	start := time.Now()
	total, err := rt.release(ctx, marks)
	rt.metrics.RecordRelease(total, time.Since(start), err)
	return total, err
}

func (rt *Runtime) release(ctx context.Context, marks []string) (int, error) {
	total := 0
	for _, mark := range marks {
		n, err := rt.manager.ReleaseWithMark(ctx, mark)
		total += n
		rt.logger.LogRelease(ctx, mark, n, err)
		if err != nil {
			return total, &ErrLifecycle{Op: "release", Mark: mark, cause: err}
		}
	}
	return total, nil
}

// Materialize restores the memory of every released allocation tagged with
// any of the given marks, reallocating and running each allocation's restore
// steps. It returns the number of allocations restored.
//
// Marks are processed in order. A failing mark rolls its own partially
// restored allocations back to released, aborts the remaining marks, and is
// reported as an ErrLifecycle; marks fully restored before the failure stay
// materialized.
//
// Unknown marks and marks with no released allocations contribute zero.
func (rt *Runtime) Materialize(ctx context.Context, marks ...string) (int, error) {
	start := time.Now()
	total, err := rt.materialize(ctx, marks)
	rt.metrics.RecordMaterialize(total, time.Since(start), err)
	return total, err
}

func (rt *Runtime) materialize(ctx context.Context, marks []string) (int, error) {
	total := 0
	for _, mark := range marks {
		n, err := rt.manager.MaterializeWithMark(ctx, mark)
		total += n
		rt.logger.LogMaterialize(ctx, mark, n, err)
		if err != nil {
			return total, &ErrLifecycle{Op: "materialize", Mark: mark, cause: err}
		}
	}
	return total, nil
}
