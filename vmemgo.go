package vmemgo

import (
	"context"
	"sync"
)

var (
	defaultMu sync.Mutex
	defaultRT *Runtime
)

// Default returns the process-wide Runtime, creating it with default options
// on first use. Use SetDefault to install a customized runtime before any
// package-level call.
func Default() *Runtime {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRT == nil {
		rt, err := New()
		if err != nil {
			// New cannot fail without options.
			panic(err)
		}
		defaultRT = rt
	}
	return defaultRT
}

// SetDefault installs rt as the process-wide Runtime. It fails with
// ErrDefaultInitialized once the default runtime exists, whether installed
// explicitly or created lazily by a package-level call.
func SetDefault(rt *Runtime) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRT != nil {
		return ErrDefaultInitialized
	}
	defaultRT = rt
	return nil
}

// OpenScope opens a scope on the default runtime.
func OpenScope(mark string, mode BackedMode, optFns ...ScopeOption) (*Scope, error) {
	return Default().OpenScope(mark, mode, optFns...)
}

// Scoped runs fn inside a scope on the default runtime.
func Scoped(mark string, mode BackedMode, fn func(s *Scope) error, optFns ...ScopeOption) error {
	return Default().Scoped(mark, mode, fn, optFns...)
}

// Alloc allocates device memory from the default runtime.
func Alloc(ctx context.Context, size int64, optFns ...AllocOption) (*Allocation, error) {
	return Default().Alloc(ctx, size, optFns...)
}

// Release releases all materialized allocations under the given marks on the
// default runtime.
func Release(ctx context.Context, marks ...string) (int, error) {
	return Default().Release(ctx, marks...)
}

// Materialize restores all released allocations under the given marks on the
// default runtime.
func Materialize(ctx context.Context, marks ...string) (int, error) {
	return Default().Materialize(ctx, marks...)
}

// RetrieveBadHandles drains the default runtime's bad handle list.
func RetrieveBadHandles() []uint64 {
	return Default().RetrieveBadHandles()
}
