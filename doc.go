// Package vmemgo provides mark-scoped virtual device memory management.
//
// Vmemgo lets callers tag groups of device memory allocations with a
// symbolic mark, route those allocations through a pluggable backing
// allocator, and later perform bulk lifecycle operations — release or
// materialize — on all memory recorded under one or more marks, independent
// of which call site allocated it.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, _ := vmemgo.New()
//
//	scope, _ := rt.OpenScope("weights", vmemgo.BackedCPU)
//	a, _ := rt.Alloc(ctx, 1<<20) // tagged with "weights"
//	b, _ := rt.Alloc(ctx, 1<<20)
//	_ = scope.Close()            // memory stays allocated
//
//	n, _ := rt.Release(ctx, "weights")     // n == 2, memory freed, content backed up
//	n, _ = rt.Materialize(ctx, "weights")  // n == 2, memory restored
//
// The guaranteed-cleanup form runs a function inside a scope and closes it
// on every exit path:
//
//	err := rt.Scoped("kvcache", vmemgo.BackedNone, func(s *vmemgo.Scope) error {
//	    _, err := rt.Alloc(ctx, 1<<20)
//	    return err
//	})
//
// # Marks and Scopes
//
// While a scope is open, every allocation on the scope's stream is recorded
// under the scope's mark. Scopes nest in strict LIFO order per stream: the
// innermost open scope wins, and closing restores the previous routing
// state. Closing a scope does not free its memory; the mark keeps
// accumulating until Release drains it.
//
// # Backed Modes
//
// A scope's BackedMode decides what happens to the content of its blobs
// across a release/materialize cycle: nothing (BackedNone), zero-fill
// (BackedMemset), backup to host memory (BackedCPU), backup to pinned host
// memory (BackedPinned), or a compressed spill to a snapshot store such as
// S3 or MinIO (BackedStore).
//
// # Backing Allocator
//
// Allocations are served by an externally registered allocate/free pair
// (see package backing); by default a host-memory backing based on anonymous
// mappings is used. The adapter wrapping the pair is constructed lazily,
// once per runtime, and cached.
//
// # Concurrency
//
// Routing state is per stream: scopes opened on independent streams route
// independently and observe no relative ordering. All bookkeeping is safe
// for concurrent use. Release must only be called once outstanding device
// work referencing the affected blobs has been ordered or synchronized by
// the caller; the library does not synchronize device streams itself.
package vmemgo
