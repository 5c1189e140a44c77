package vmemgo

import "github.com/hupe1980/vmemgo/virtual"

// BackedMode selects how memory under a scope is preserved across
// release/materialize cycles. See the virtual package for semantics.
type BackedMode = virtual.BackedMode

const (
	// BackedNone releases memory without preserving contents.
	BackedNone = virtual.BackedNone
	// BackedMemset zeroes memory on every rematerialize.
	BackedMemset = virtual.BackedMemset
	// BackedCPU snapshots contents into host heap memory on release.
	BackedCPU = virtual.BackedCPU
	// BackedPinned snapshots contents into page-locked host memory.
	BackedPinned = virtual.BackedPinned
	// BackedStore snapshots contents into the configured snapshot store,
	// optionally compressed.
	BackedStore = virtual.BackedStore
)

// CompressionType selects the codec applied to snapshot-store spills.
type CompressionType = virtual.CompressionType

const (
	CompressionNone = virtual.CompressionNone
	CompressionLZ4  = virtual.CompressionLZ4
	CompressionZSTD = virtual.CompressionZSTD
)
