package virtual

import (
	"context"
	"errors"
	"fmt"
	"unsafe"
)

var (
	// ErrInvalidStatus is returned when Materialize or Release is called on a
	// Memory that is not in the required status.
	ErrInvalidStatus = errors.New("virtual: memory is not in a valid status for this operation")
)

// Creator obtains and frees the underlying device allocation of a Memory.
//
// Create must not leak resources when returning an error. Release will only,
// and will always, be called with the address of a successful Create.
type Creator interface {
	Create(ctx context.Context) (uintptr, error)
	Release(addr uintptr) error
}

// Configurator is one setup/teardown step of a Memory:
// content restore, zero-fill, backup.
//
// Setup must not leak resources when returning an error. Teardown will only
// be called for configurators whose Setup succeeded.
type Configurator interface {
	Setup(ctx context.Context, addr uintptr) error
	Teardown(ctx context.Context, addr uintptr) error
}

// Status describes the lifecycle state of a Memory.
type Status uint8

const (
	// StatusInvalid is a default constructed Memory with no creator.
	StatusInvalid Status = iota
	// StatusReleased means the underlying memory is not allocated.
	StatusReleased
	// StatusMaterialized means the underlying memory is allocated.
	StatusMaterialized
	// StatusErrored means an error happened during Materialize or Release.
	// The Memory cannot be used anymore.
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusInvalid:
		return "invalid"
	case StatusReleased:
		return "released"
	case StatusMaterialized:
		return "materialized"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

const erroredState = -1

// Memory is a handle to one device memory blob, providing the ability to
// release the underlying allocation and rematerialize it later.
//
// Memory is not safe for concurrent use; the Manager serializes access.
type Memory struct {
	creator       Creator
	configurators []Configurator
	addr          uintptr
	// state is the number of configurators whose Setup succeeded,
	// or erroredState after a failed Release.
	state int
}

// NewMemory creates a Memory in Released status. Configurator setup runs in
// the given order on Materialize and teardown in reverse order on Release.
func NewMemory(creator Creator, configurators ...Configurator) *Memory {
	return &Memory{
		creator:       creator,
		configurators: configurators,
	}
}

// Status returns the current lifecycle status.
func (m *Memory) Status() Status {
	if m == nil || m.creator == nil {
		return StatusInvalid
	}
	if m.state == 0 && m.addr == 0 {
		return StatusReleased
	}
	if m.state == len(m.configurators) && m.addr != 0 {
		return StatusMaterialized
	}
	return StatusErrored
}

// Addr returns the current address of the blob, or 0 if not materialized.
func (m *Memory) Addr() uintptr {
	return m.addr
}

// Materialize allocates the underlying memory and runs all configurator
// setups in order. It may only be called in Released status.
//
// It stops at the first failing step and propagates its error; the Memory is
// then in Errored status and must still be Released to run the teardowns of
// the steps that succeeded.
func (m *Memory) Materialize(ctx context.Context) error {
	if m.Status() != StatusReleased {
		return fmt.Errorf("%w: materialize in status %s", ErrInvalidStatus, m.Status())
	}

	addr, err := m.creator.Create(ctx)
	if err != nil {
		// Nothing allocated; status is still Released.
		return err
	}
	m.addr = addr

	for i, c := range m.configurators {
		if err := c.Setup(ctx, addr); err != nil {
			m.state = i
			return err
		}
	}
	m.state = len(m.configurators)
	return nil
}

// Release tears down every configurator whose setup succeeded, in reverse
// order, and frees the underlying memory. It may be called in Materialized
// status or after a failed Materialize.
//
// Release never stops early: every step runs, the last error is returned.
func (m *Memory) Release(ctx context.Context) error {
	if m.creator == nil || m.addr == 0 || m.state == erroredState {
		return fmt.Errorf("%w: release in status %s", ErrInvalidStatus, m.Status())
	}

	var lastErr error
	for i := m.state - 1; i >= 0; i-- {
		if err := m.configurators[i].Teardown(ctx, m.addr); err != nil {
			lastErr = err
		}
	}
	if err := m.creator.Release(m.addr); err != nil {
		lastErr = err
	}

	m.addr = 0
	if lastErr != nil {
		m.state = erroredState
		return lastErr
	}
	m.state = 0
	return nil
}

// Destroy frees the underlying memory without running configurator
// teardowns, discarding any preserved contents. It is a no-op on memory that
// holds no allocation. After Destroy the Memory is in Released status.
func (m *Memory) Destroy() error {
	if m.creator == nil || m.addr == 0 {
		m.state = 0
		return nil
	}
	err := m.creator.Release(m.addr)
	m.addr = 0
	m.state = 0
	return err
}

// Bytes gives byte-level access to a materialized blob. The caller must
// guarantee addr points at a live region of at least size bytes.
func Bytes(addr uintptr, size int64) []byte {
	if addr == 0 || size <= 0 {
		return nil
	}
	return regionBytes(addr, size)
}

// regionBytes gives byte-level access to a materialized blob.
// The caller must guarantee addr points at a live region of at least size bytes.
func regionBytes(addr uintptr, size int64) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size) //nolint:gosec // unsafe is required for raw region access
}
