package vmemgo

import (
	"fmt"
	"sync/atomic"
)

var streamSeq atomic.Uint64

// Stream identifies an independent operation queue. Scopes on different
// streams maintain independent allocator stacks, so LIFO discipline is
// enforced per stream rather than globally.
type Stream struct {
	id   uint64
	name string
}

// DefaultStream is the stream scopes run on when none is specified.
func DefaultStream() Stream {
	return Stream{id: 0, name: "default"}
}

// NewStream returns a distinct stream. Streams are cheap value types and
// safe to copy.
func NewStream(name string) Stream {
	id := streamSeq.Add(1)
	if name == "" {
		name = fmt.Sprintf("stream-%d", id)
	}

	return Stream{id: id, name: name}
}

// ID returns the stream's numeric identity.
func (s Stream) ID() uint64 { return s.id }

// Name returns the stream's display name.
func (s Stream) Name() string { return s.name }

func (s Stream) String() string {
	return fmt.Sprintf("%s(%d)", s.name, s.id)
}
