//go:build !unix

package mmap

// Heap-backed fallback for platforms without mmap support.
// The slice is kept alive by the Mapping; unmapping drops the reference.

func osMapAnon(size int) ([]byte, func([]byte) error, error) {
	data := make([]byte, size)
	return data, func([]byte) error { return nil }, nil
}

// osLock is a no-op on platforms without mlock. The mapping still behaves
// like a pinned one, it just offers no residency guarantee.
func osLock(data []byte) (func([]byte) error, error) {
	return func([]byte) error { return nil }, nil
}
