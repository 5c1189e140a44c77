// Package routing implements the allocator stack: per-stream LIFO stacks of
// routing entries. The top entry of a stream's stack decides where the next
// allocation on that stream goes.
package routing

import (
	"errors"
	"sync"

	"github.com/hupe1980/vmemgo/backing"
	"github.com/hupe1980/vmemgo/virtual"
)

// ErrEmptyPop is returned when Pop is called on a stream with no pushed
// entries. It signals a scope-management bug upstream.
var ErrEmptyPop = errors.New("routing: pop on empty allocator stack")

// Entry is one routing frame: allocations on Stream are attributed to Mark
// with Mode while the entry is top of stack, and recorded against Pool.
type Entry struct {
	Mark   string
	Mode   virtual.BackedMode
	Stream uint64
	Pool   *backing.Pool
}

// Router holds the allocator stacks of all streams. Streams route
// independently; all operations are safe for concurrent use.
type Router struct {
	mu     sync.Mutex
	stacks map[uint64][]Entry
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		stacks: make(map[uint64][]Entry),
	}
}

// Push installs e as the new top of stack for its stream.
func (r *Router) Push(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stacks[e.Stream] = append(r.stacks[e.Stream], e)
}

// Pop removes the current top of the stream's stack and returns it,
// restoring the prior entry (which may be "no routing", the default).
func (r *Router) Pop(stream uint64) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stack := r.stacks[stream]
	if len(stack) == 0 {
		return Entry{}, ErrEmptyPop
	}

	top := stack[len(stack)-1]
	if len(stack) == 1 {
		delete(r.stacks, stream)
	} else {
		r.stacks[stream] = stack[:len(stack)-1]
	}
	return top, nil
}

// Active returns the current top of the stream's stack, if any.
func (r *Router) Active(stream uint64) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stack := r.stacks[stream]
	if len(stack) == 0 {
		return Entry{}, false
	}
	return stack[len(stack)-1], true
}

// Depth returns the number of entries on the stream's stack.
func (r *Router) Depth(stream uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stacks[stream])
}
