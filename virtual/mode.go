package virtual

// BackedMode selects how the content of a memory blob is backed while the
// blob is released and how it is populated when the blob is rematerialized.
// The mode is fixed when the blob's scope is opened.
type BackedMode uint8

const (
	// BackedNone leaves rematerialized memory with uninitialized content.
	BackedNone BackedMode = iota
	// BackedMemset zeroes the memory upon rematerialize.
	BackedMemset
	// BackedCPU backs the content with normal host memory. The content is
	// restored upon rematerialize.
	BackedCPU
	// BackedPinned backs the content with pinned host memory. The content is
	// restored upon rematerialize.
	BackedPinned
	// BackedStore spills the content to a snapshot store. The content is
	// restored upon rematerialize.
	BackedStore
)

func (m BackedMode) String() string {
	switch m {
	case BackedNone:
		return "none"
	case BackedMemset:
		return "memset"
	case BackedCPU:
		return "cpu"
	case BackedPinned:
		return "pinned"
	case BackedStore:
		return "store"
	default:
		return "unknown"
	}
}
