package backing

import (
	"context"
)

// MemoryAcquirer is an interface for acquiring memory budget.
// *resource.Controller satisfies it; a nil acquirer means no budgeting.
type MemoryAcquirer interface {
	AcquireMemory(ctx context.Context, amount int64) error
	ReleaseMemory(amount int64)
}

// Creator obtains fixed-size device memory regions from an adapter. It
// implements the virtual memory creator contract: Create allocates and
// Release frees, with the memory budget acquired and returned around the
// pair.
type Creator struct {
	adapter  *Adapter
	size     int64
	acquirer MemoryAcquirer
}

// CreatorOption is a configuration option for Creator.
type CreatorOption func(*Creator)

// WithMemoryAcquirer sets the memory acquirer for the creator.
func WithMemoryAcquirer(acquirer MemoryAcquirer) CreatorOption {
	return func(c *Creator) {
		c.acquirer = acquirer
	}
}

// NewCreator creates a Creator allocating size bytes per Create call.
func NewCreator(adapter *Adapter, size int64, opts ...CreatorOption) *Creator {
	c := &Creator{
		adapter: adapter,
		size:    size,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Size returns the region size this creator allocates.
func (c *Creator) Size() int64 {
	return c.size
}

// Create allocates one region. The memory budget is acquired first and
// returned if the backing allocation fails.
func (c *Creator) Create(ctx context.Context) (uintptr, error) {
	if c.acquirer != nil {
		if err := c.acquirer.AcquireMemory(ctx, c.size); err != nil {
			return 0, err
		}
	}

	addr, err := c.adapter.Alloc(c.size)
	if err != nil {
		if c.acquirer != nil {
			c.acquirer.ReleaseMemory(c.size)
		}
		return 0, err
	}
	return addr, nil
}

// Release frees a region previously returned by Create.
func (c *Creator) Release(addr uintptr) error {
	err := c.adapter.Free(addr, c.size)
	if c.acquirer != nil {
		c.acquirer.ReleaseMemory(c.size)
	}
	return err
}
