package backing

import (
	"errors"
	"sync"
	"unsafe"

	"github.com/hupe1980/vmemgo/internal/mmap"
)

// ErrUnknownAddress is returned when freeing an address that was not
// allocated by this backing.
var ErrUnknownAddress = errors.New("backing: unknown address")

// HostBacking is a Funcs implementation backed by anonymous memory mappings.
// Regions live outside the Go heap, have stable addresses, and are
// zero-initialized. It is the default backing when no external allocator
// pair is registered.
type HostBacking struct {
	mu      sync.Mutex
	regions map[uintptr]*mmap.Mapping
}

// NewHostBacking creates a new host-memory backing.
func NewHostBacking() *HostBacking {
	return &HostBacking{
		regions: make(map[uintptr]*mmap.Mapping),
	}
}

// Funcs returns the allocate/free pair of this backing.
func (h *HostBacking) Funcs() Funcs {
	return Funcs{
		Alloc: h.alloc,
		Free:  h.free,
	}
}

// Len returns the number of live regions.
func (h *HostBacking) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.regions)
}

func (h *HostBacking) alloc(size int64) (uintptr, error) {
	m, err := mmap.MapAnon(int(size))
	if err != nil {
		return 0, err
	}

	addr := uintptr(unsafe.Pointer(&m.Bytes()[0])) //nolint:gosec // unsafe is required to expose the region address

	h.mu.Lock()
	h.regions[addr] = m
	h.mu.Unlock()

	return addr, nil
}

func (h *HostBacking) free(addr uintptr, _ int64) error {
	h.mu.Lock()
	m, ok := h.regions[addr]
	delete(h.regions, addr)
	h.mu.Unlock()

	if !ok {
		return ErrUnknownAddress
	}
	return m.Close()
}
