package virtual

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/vmemgo/backstore"
	"github.com/hupe1980/vmemgo/internal/mmap"
)

// IOThrottler limits snapshot backup/restore throughput.
// *resource.Controller satisfies this interface; a nil throttler means unlimited.
type IOThrottler interface {
	AcquireIO(ctx context.Context, bytes int) error
}

// MemsetConfigurator zeroes the memory upon rematerialize. The very first
// materialize leaves the freshly created region untouched, matching the
// creator's zero-fill guarantee.
type MemsetConfigurator struct {
	size      int64
	firstTime bool
}

// NewMemsetConfigurator creates a configurator for BackedMemset mode.
func NewMemsetConfigurator(size int64) *MemsetConfigurator {
	return &MemsetConfigurator{size: size, firstTime: true}
}

func (c *MemsetConfigurator) Setup(_ context.Context, addr uintptr) error {
	if !c.firstTime {
		clear(regionBytes(addr, c.size))
	}
	return nil
}

func (c *MemsetConfigurator) Teardown(context.Context, uintptr) error {
	c.firstTime = false
	return nil
}

// HostBackupConfigurator backs up the content of the region into host memory
// on teardown and restores it on the following setup. With pinned set, the
// backup buffer is locked into physical memory so restores never page-fault.
type HostBackupConfigurator struct {
	size   int64
	pinned bool

	// heap backup (pinned == false)
	backup []byte
	// pinned backup (pinned == true)
	mapping *mmap.Mapping
}

// NewHostBackupConfigurator creates a configurator for BackedCPU or
// BackedPinned mode.
func NewHostBackupConfigurator(size int64, pinned bool) *HostBackupConfigurator {
	return &HostBackupConfigurator{size: size, pinned: pinned}
}

func (c *HostBackupConfigurator) Setup(_ context.Context, addr uintptr) error {
	switch {
	case c.mapping != nil:
		copy(regionBytes(addr, c.size), c.mapping.Bytes())
		err := c.mapping.Close()
		c.mapping = nil
		if err != nil {
			return err
		}
	case c.backup != nil:
		copy(regionBytes(addr, c.size), c.backup)
		c.backup = nil
	}
	// No backup yet: first materialize.
	return nil
}

func (c *HostBackupConfigurator) Teardown(_ context.Context, addr uintptr) error {
	if c.pinned {
		m, err := mmap.MapAnonPinned(int(c.size))
		if err != nil {
			return fmt.Errorf("pinned backup: %w", err)
		}
		copy(m.Bytes(), regionBytes(addr, c.size))
		c.mapping = m
		return nil
	}

	backup := make([]byte, c.size)
	copy(backup, regionBytes(addr, c.size))
	c.backup = backup
	return nil
}

// StoreBackupConfigurator spills the content of the region to a snapshot
// store on teardown and restores (and deletes) the snapshot on the following
// setup. Snapshots are compressed with the configured codec.
type StoreBackupConfigurator struct {
	store       backstore.Store
	name        string
	size        int64
	compression CompressionType
	throttler   IOThrottler
}

// NewStoreBackupConfigurator creates a configurator for BackedStore mode.
// name must be unique per blob (it keys the snapshot in the store).
func NewStoreBackupConfigurator(store backstore.Store, name string, size int64, compression CompressionType, throttler IOThrottler) *StoreBackupConfigurator {
	return &StoreBackupConfigurator{
		store:       store,
		name:        name,
		size:        size,
		compression: compression,
		throttler:   throttler,
	}
}

func (c *StoreBackupConfigurator) Setup(ctx context.Context, addr uintptr) error {
	blob, err := c.store.Open(ctx, c.name)
	if err != nil {
		if errors.Is(err, backstore.ErrNotFound) {
			// First materialize; nothing to restore.
			return nil
		}
		return err
	}
	defer blob.Close()

	payload, err := backstore.ReadAll(blob)
	if err != nil {
		return err
	}

	if c.throttler != nil {
		if err := c.throttler.AcquireIO(ctx, len(payload)); err != nil {
			return err
		}
	}

	data, err := DecompressSnapshot(payload, c.compression)
	if err != nil {
		return err
	}
	if int64(len(data)) != c.size {
		return fmt.Errorf("virtual: snapshot size mismatch: got %d, want %d", len(data), c.size)
	}

	copy(regionBytes(addr, c.size), data)
	return c.store.Delete(ctx, c.name)
}

func (c *StoreBackupConfigurator) Teardown(ctx context.Context, addr uintptr) error {
	payload, err := CompressSnapshot(regionBytes(addr, c.size), c.compression)
	if err != nil {
		return err
	}

	if c.throttler != nil {
		if err := c.throttler.AcquireIO(ctx, len(payload)); err != nil {
			return err
		}
	}

	return c.store.Put(ctx, c.name, payload)
}
