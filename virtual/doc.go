// Package virtual implements the virtual memory manager: the bookkeeping
// layer that tracks every device memory blob by its mark and drives the
// release/materialize lifecycle.
//
// # Memory
//
// A Memory is a handle to one device memory blob. It is assembled from a
// Creator, which obtains and frees the underlying allocation, and an ordered
// list of Configurators, which run setup steps after creation (content
// restore, zero-fill) and teardown steps before release (content backup).
//
// Memory follows a strict status machine:
//
//	Released --Materialize--> Materialized
//	Materialized --Release--> Released
//	any failure             -> Errored (terminal)
//
// Materialize stops at the first failing step and propagates its error.
// Release never stops early: every teardown that can run does run, and the
// last error is propagated while the others are logged.
//
// # Manager
//
// The Manager indexes Memory objects by caller-provided handle and by mark.
// ReleaseWithMark and MaterializeWithMark act on every blob recorded under a
// mark and return the number of blobs that changed state, so releasing an
// already-drained mark yields zero, not an error. Memory objects that fail
// during a bulk operation are evicted and their handles recorded for
// inspection via RetrieveBadHandles.
//
// All Manager state is guarded by a single mutex; it is safe for concurrent
// use from multiple goroutines. Memory objects themselves are not
// synchronized and must only be driven through the Manager once added.
package virtual
