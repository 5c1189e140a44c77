// Package backstore provides storage backends for virtual memory snapshots.
//
// When a memory blob is released under a store-backed mode, its content is
// written to a Store as an immutable snapshot blob; materializing the blob
// reads the snapshot back and deletes it. Implementations:
//
//   - MemoryStore: in-memory, for tests and ephemeral use
//   - LocalStore: local filesystem
//   - s3.Store: Amazon S3 (subpackage s3)
//   - minio.Store: MinIO and other S3-compatible object stores (subpackage minio)
//
// Snapshot blobs are written whole and never mutated, so Store implementations
// only need atomic Put semantics, not partial-update support.
package backstore
