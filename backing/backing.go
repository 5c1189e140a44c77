package backing

import (
	"errors"
	"fmt"
)

var (
	// ErrNoBacking is returned when an adapter is constructed without a
	// usable allocate/free function pair.
	ErrNoBacking = errors.New("backing: no backing allocator functions registered")
	// ErrInvalidSize is returned for non-positive allocation sizes.
	ErrInvalidSize = errors.New("backing: invalid allocation size")
)

// Funcs is an externally supplied allocate/free function pair, typically
// registered by the host runtime's native memory subsystem.
type Funcs struct {
	// Alloc allocates size bytes of device memory and returns its address.
	Alloc func(size int64) (uintptr, error)
	// Free frees a device memory region previously returned by Alloc.
	Free func(addr uintptr, size int64) error
}

// Adapter wraps a Funcs pair behind the uniform allocator interface the
// memory pool expects. Construct it once and reuse it; see NewAdapter.
type Adapter struct {
	funcs Funcs
}

// NewAdapter creates an adapter for the given function pair.
// It fails with ErrNoBacking if either function is missing.
func NewAdapter(funcs Funcs) (*Adapter, error) {
	if funcs.Alloc == nil || funcs.Free == nil {
		return nil, ErrNoBacking
	}
	return &Adapter{funcs: funcs}, nil
}

// Alloc allocates size bytes through the backing functions.
func (a *Adapter) Alloc(size int64) (uintptr, error) {
	if size <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return a.funcs.Alloc(size)
}

// Free frees a region previously allocated through this adapter.
func (a *Adapter) Free(addr uintptr, size int64) error {
	return a.funcs.Free(addr, size)
}
