// Package mmap provides anonymous memory mappings outside the Go heap.
//
// # Overview
//
// Anonymous mappings are used to emulate device memory regions: they live
// outside the garbage collector's control, have stable addresses for their
// whole lifetime, and can be returned to the OS eagerly on Close.
//
// # Usage
//
//	m, err := mmap.MapAnon(size)
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//
// # Pinned Mappings
//
// MapAnonPinned additionally locks the mapping into physical memory
// (mlock(2)), so its pages cannot be swapped out. Pinned mappings hold the
// backup copies for pinned backed mode, where restore latency must not be
// dominated by page faults.
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2)/munmap(2), mlock(2)/munlock(2)
//   - Other platforms: heap-backed fallback; pinning is a no-op
//
// # Thread Safety
//
// Mapping is safe for concurrent read access. Close is idempotent and
// protected by atomic operations. Callers must ensure no goroutines access
// Bytes() after Close() returns.
package mmap
