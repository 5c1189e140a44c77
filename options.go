package vmemgo

import (
	"log/slog"

	"github.com/hupe1980/vmemgo/backing"
	"github.com/hupe1980/vmemgo/backstore"
	"github.com/hupe1980/vmemgo/resource"
)

type options struct {
	backing          backing.Funcs
	controller       *resource.Controller
	store            backstore.Store
	compression      CompressionType
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Runtime constructor behavior.
type Option func(*options)

// WithBacking configures the backing allocator the runtime hands memory out
// from. Both Alloc and Free must be set. If this option is not used, memory
// is backed by anonymous private mappings on the host.
func WithBacking(funcs backing.Funcs) Option {
	return func(o *options) {
		o.backing = funcs
	}
}

// WithResourceController bounds backing memory usage and snapshot I/O
// bandwidth. Pass nil to run unbounded (the default).
//
// Example:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:  2 << 30, // 2 GiB of backing memory
//	    IOLimitBytesPerSec: 64 << 20,
//	})
//	rt, _ := vmemgo.New(vmemgo.WithResourceController(rc))
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithSnapshotStore configures the store that BackedStore scopes spill
// released memory into. Required before opening a BackedStore scope.
//
// Example with a local directory store:
//
//	store, _ := backstore.NewLocalStore("./snapshots")
//	rt, _ := vmemgo.New(vmemgo.WithSnapshotStore(store))
func WithSnapshotStore(store backstore.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithCompression configures the codec applied to snapshot-store spills.
// Defaults to CompressionLZ4.
func WithCompression(ct CompressionType) Option {
	return func(o *options) {
		o.compression = ct
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &vmemgo.BasicMetricsCollector{}
//	rt, _ := vmemgo.New(vmemgo.WithMetricsCollector(metrics))
//	// ... use rt ...
//	stats := metrics.GetStats()
//	fmt.Printf("Allocs: %d, Avg latency: %dns\n", stats.AllocCount, stats.AllocAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := vmemgo.NewJSONLogger(slog.LevelInfo)
//	rt, _ := vmemgo.New(vmemgo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		compression:      CompressionLZ4,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

type scopeOptions struct {
	stream Stream
}

// ScopeOption configures a single scope.
type ScopeOption func(*scopeOptions)

// OnStream places the scope on the given stream. Scopes on different streams
// maintain independent allocator stacks. Defaults to DefaultStream.
func OnStream(s Stream) ScopeOption {
	return func(o *scopeOptions) {
		o.stream = s
	}
}

func applyScopeOptions(optFns []ScopeOption) scopeOptions {
	o := scopeOptions{
		stream: DefaultStream(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

type allocOptions struct {
	stream Stream
}

// AllocOption configures a single allocation.
type AllocOption func(*allocOptions)

// AllocOnStream routes the allocation through the scope stack of the given
// stream instead of the default one.
func AllocOnStream(s Stream) AllocOption {
	return func(o *allocOptions) {
		o.stream = s
	}
}

func applyAllocOptions(optFns []AllocOption) allocOptions {
	o := allocOptions{
		stream: DefaultStream(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
