package vmemgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vmemgo/internal/routing"
)

var (
	// ErrEmptyMark is returned when opening a scope with an empty mark.
	ErrEmptyMark = errors.New("mark must be non-empty")
	// ErrStackDiscipline is returned when the allocator stack is popped
	// without a matching push, or a scope is closed out of LIFO order.
	// It indicates a scope-management bug and is never recovered silently.
	ErrStackDiscipline = errors.New("allocator stack discipline violated")
	// ErrInvalidSize is returned when allocating a non-positive size.
	ErrInvalidSize = errors.New("allocation size must be positive")
	// ErrAlreadyFreed is returned when freeing an allocation twice.
	ErrAlreadyFreed = errors.New("allocation already freed")
	// ErrDefaultInitialized is returned by SetDefault after the default
	// runtime has been used.
	ErrDefaultInitialized = errors.New("default runtime already initialized")
)

// ErrConfiguration indicates the enclosing environment is not set up for
// virtual memory routing (no usable backing allocator, missing snapshot
// store). It is fatal to the scope-open operation that surfaced it.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrConfiguration struct {
	Reason string
	cause  error
}

func (e *ErrConfiguration) Error() string {
	return fmt.Sprintf("configuration: %s", e.Reason)
}

func (e *ErrConfiguration) Unwrap() error { return e.cause }

// ErrAllocation indicates the backing allocator failed inside an active
// scope. The scope remains open and must still be closed by its own cleanup.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrAllocation struct {
	Size  int64
	cause error
}

func (e *ErrAllocation) Error() string {
	return fmt.Sprintf("allocation of %d bytes failed", e.Size)
}

func (e *ErrAllocation) Unwrap() error { return e.cause }

// ErrLifecycle indicates the virtual memory manager rejected a release or
// materialize call. Processing of the remaining marks is aborted.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrLifecycle struct {
	Op    string // "release" or "materialize"
	Mark  string
	cause error
}

func (e *ErrLifecycle) Error() string {
	return fmt.Sprintf("%s failed for mark %q", e.Op, e.Mark)
}

func (e *ErrLifecycle) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, routing.ErrEmptyPop) {
		return fmt.Errorf("%w: %w", ErrStackDiscipline, err)
	}

	return err
}
