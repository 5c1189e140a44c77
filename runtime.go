package vmemgo

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/vmemgo/backing"
	"github.com/hupe1980/vmemgo/backstore"
	"github.com/hupe1980/vmemgo/internal/routing"
	"github.com/hupe1980/vmemgo/resource"
	"github.com/hupe1980/vmemgo/virtual"
)

// Runtime is the top-level entry point for virtual device memory. It owns
// the backing allocator adapter, the per-stream allocator stacks, and the
// registry of mark-tagged memory blobs.
//
// A Runtime is safe for concurrent use by multiple goroutines.
type Runtime struct {
	logger      *Logger
	metrics     MetricsCollector
	backing     backing.Funcs
	controller  *resource.Controller
	store       backstore.Store
	compression CompressionType

	// adapter construction is deferred until the first scope needs it, so a
	// runtime without scopes never touches the backing allocator.
	adapterOnce sync.Once
	adapter     *backing.Adapter
	adapterErr  error

	manager   *virtual.Manager
	router    *routing.Router
	handleSeq atomic.Uint64
}

// New creates a Runtime. Without options it backs memory with anonymous
// private mappings on the host and runs unbounded.
func New(optFns ...Option) (*Runtime, error) {
	o := applyOptions(optFns)

	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}

	if (o.backing.Alloc == nil) != (o.backing.Free == nil) {
		return nil, &ErrConfiguration{Reason: "backing allocator needs both alloc and free functions"}
	}
	if o.backing.Alloc == nil {
		o.backing = backing.NewHostBacking().Funcs()
	}

	return &Runtime{
		logger:      o.logger,
		metrics:     o.metricsCollector,
		backing:     o.backing,
		controller:  o.controller,
		store:       o.store,
		compression: o.compression,
		manager:     virtual.NewManager(virtual.WithLogger(o.logger.Logger)),
		router:      routing.NewRouter(),
	}, nil
}

// getAdapter builds the backing adapter on first use and caches the result,
// including a failure. A broken backing configuration surfaces on every
// scope open rather than once.
func (rt *Runtime) getAdapter() (*backing.Adapter, error) {
	rt.adapterOnce.Do(func() {
		rt.adapter, rt.adapterErr = backing.NewAdapter(rt.backing)
	})
	if rt.adapterErr != nil {
		return nil, &ErrConfiguration{Reason: "backing allocator unavailable", cause: rt.adapterErr}
	}
	return rt.adapter, nil
}

// configuratorsFor builds the restore pipeline for one allocation based on
// the backed mode of its enclosing scope.
func (rt *Runtime) configuratorsFor(e routing.Entry, handle uint64, size int64) []virtual.Configurator {
	switch e.Mode {
	case BackedMemset:
		return []virtual.Configurator{virtual.NewMemsetConfigurator(size)}
	case BackedCPU:
		return []virtual.Configurator{virtual.NewHostBackupConfigurator(size, false)}
	case BackedPinned:
		return []virtual.Configurator{virtual.NewHostBackupConfigurator(size, true)}
	case BackedStore:
		var throttler virtual.IOThrottler
		if rt.controller != nil {
			throttler = rt.controller
		}
		name := snapshotName(e.Mark, handle)
		return []virtual.Configurator{
			virtual.NewStoreBackupConfigurator(rt.store, name, size, rt.compression, throttler),
		}
	default:
		return nil
	}
}

// snapshotName returns the store key a blob's snapshot is spilled under.
func snapshotName(mark string, handle uint64) string {
	return fmt.Sprintf("%s/%016x.snap", mark, handle)
}

// Count returns the number of tracked allocations tagged with the given mark.
func (rt *Runtime) Count(mark string) int {
	return rt.manager.Count(mark)
}

// StackDepth returns the number of open scopes on the given stream.
func (rt *Runtime) StackDepth(s Stream) int {
	return rt.router.Depth(s.ID())
}

// RetrieveBadHandles returns the handles evicted after a failed release or
// materialize and clears the internal list. The owners of these handles must
// not touch the underlying memory again.
func (rt *Runtime) RetrieveBadHandles() []uint64 {
	return rt.manager.RetrieveBadHandles()
}
