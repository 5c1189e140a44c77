package backing

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	// ErrPoolNotActive is returned when activating or deactivating a pool in
	// the wrong state.
	ErrPoolNotActive = errors.New("backing: pool is not active")
	// ErrPoolClosed is returned when reactivating a deactivated pool.
	ErrPoolClosed = errors.New("backing: pool is closed")
)

// Pool states.
const (
	poolIdle int32 = iota
	poolActive
	poolClosed
)

// PoolStats tracks the allocations routed through a pool.
type PoolStats struct {
	Allocs uint64 // Number of allocations recorded
	Bytes  uint64 // Total bytes recorded
}

// Pool is a memory pool bound to an adapter for the lexical duration of one
// scope. It records the allocations routed through it while active; the
// memory itself outlives the pool and stays tracked by the manager.
type Pool struct {
	adapter *Adapter
	state   atomic.Int32
	allocs  atomic.Uint64
	bytes   atomic.Uint64
}

// NewPool creates an idle pool bound to the given adapter.
func NewPool(adapter *Adapter) *Pool {
	return &Pool{adapter: adapter}
}

// Adapter returns the adapter this pool is bound to.
func (p *Pool) Adapter() *Adapter {
	return p.adapter
}

// Activate makes the pool the allocation target of its scope.
// A pool can be activated exactly once.
func (p *Pool) Activate() error {
	if !p.state.CompareAndSwap(poolIdle, poolActive) {
		if p.state.Load() == poolClosed {
			return ErrPoolClosed
		}
		return fmt.Errorf("backing: pool already active")
	}
	return nil
}

// Deactivate detaches the pool. Further Record calls fail.
func (p *Pool) Deactivate() error {
	if !p.state.CompareAndSwap(poolActive, poolClosed) {
		return ErrPoolNotActive
	}
	return nil
}

// Active reports whether the pool is the current allocation target.
func (p *Pool) Active() bool {
	return p.state.Load() == poolActive
}

// Record accounts one allocation of the given size against the pool.
func (p *Pool) Record(size int64) error {
	if p.state.Load() != poolActive {
		return ErrPoolNotActive
	}
	p.allocs.Add(1)
	p.bytes.Add(uint64(size)) //nolint:gosec // size is validated positive by the adapter
	return nil
}

// Stats returns the pool statistics.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Allocs: p.allocs.Load(),
		Bytes:  p.bytes.Load(),
	}
}
