package vmemgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    allocCounter     prometheus.Counter
//	    releaseHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordAlloc(size int64, duration time.Duration, err error) {
//	    p.allocCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordAlloc is called after each allocation.
	// size is the requested byte size, duration is the total time taken,
	// err is nil if successful.
	RecordAlloc(size int64, duration time.Duration, err error)

	// RecordFree is called after each free.
	RecordFree(size int64, duration time.Duration, err error)

	// RecordScope is called when a scope closes.
	// duration is the time the scope was open.
	RecordScope(mark string, duration time.Duration)

	// RecordRelease is called after each bulk release.
	// released is the number of allocations released across all marks.
	RecordRelease(released int, duration time.Duration, err error)

	// RecordMaterialize is called after each bulk materialize.
	// materialized is the number of allocations restored across all marks.
	RecordMaterialize(materialized int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAlloc(int64, time.Duration, error)     {}
func (NoopMetricsCollector) RecordFree(int64, time.Duration, error)      {}
func (NoopMetricsCollector) RecordScope(string, time.Duration)           {}
func (NoopMetricsCollector) RecordRelease(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordMaterialize(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AllocCount            atomic.Int64
	AllocErrors           atomic.Int64
	AllocBytes            atomic.Int64
	AllocTotalNanos       atomic.Int64
	FreeCount             atomic.Int64
	FreeErrors            atomic.Int64
	ScopeCount            atomic.Int64
	ReleaseCount          atomic.Int64
	ReleaseErrors         atomic.Int64
	ReleasedItems         atomic.Int64
	MaterializeCount      atomic.Int64
	MaterializeErrors     atomic.Int64
	MaterializedItems     atomic.Int64
	MaterializeTotalNanos atomic.Int64
}

// RecordAlloc implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAlloc(size int64, duration time.Duration, err error) {
	b.AllocCount.Add(1)
	b.AllocTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AllocErrors.Add(1)
		return
	}
	b.AllocBytes.Add(size)
}

// RecordFree implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFree(size int64, duration time.Duration, err error) {
	b.FreeCount.Add(1)
	if err != nil {
		b.FreeErrors.Add(1)
	}
}

// RecordScope implements MetricsCollector.
func (b *BasicMetricsCollector) RecordScope(mark string, duration time.Duration) {
	b.ScopeCount.Add(1)
}

// RecordRelease implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRelease(released int, duration time.Duration, err error) {
	b.ReleaseCount.Add(1)
	b.ReleasedItems.Add(int64(released))
	if err != nil {
		b.ReleaseErrors.Add(1)
	}
}

// RecordMaterialize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMaterialize(materialized int, duration time.Duration, err error) {
	b.MaterializeCount.Add(1)
	b.MaterializedItems.Add(int64(materialized))
	b.MaterializeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MaterializeErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AllocCount:          b.AllocCount.Load(),
		AllocErrors:         b.AllocErrors.Load(),
		AllocBytes:          b.AllocBytes.Load(),
		AllocAvgNanos:       b.getAvgAllocNanos(),
		FreeCount:           b.FreeCount.Load(),
		FreeErrors:          b.FreeErrors.Load(),
		ScopeCount:          b.ScopeCount.Load(),
		ReleaseCount:        b.ReleaseCount.Load(),
		ReleaseErrors:       b.ReleaseErrors.Load(),
		ReleasedItems:       b.ReleasedItems.Load(),
		MaterializeCount:    b.MaterializeCount.Load(),
		MaterializeErrors:   b.MaterializeErrors.Load(),
		MaterializedItems:   b.MaterializedItems.Load(),
		MaterializeAvgNanos: b.getAvgMaterializeNanos(),
	}
}

func (b *BasicMetricsCollector) getAvgAllocNanos() int64 {
	count := b.AllocCount.Load()
	if count == 0 {
		return 0
	}
	return b.AllocTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgMaterializeNanos() int64 {
	count := b.MaterializeCount.Load()
	if count == 0 {
		return 0
	}
	return b.MaterializeTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AllocCount          int64
	AllocErrors         int64
	AllocBytes          int64
	AllocAvgNanos       int64
	FreeCount           int64
	FreeErrors          int64
	ScopeCount          int64
	ReleaseCount        int64
	ReleaseErrors       int64
	ReleasedItems       int64
	MaterializeCount    int64
	MaterializeErrors   int64
	MaterializedItems   int64
	MaterializeAvgNanos int64
}
