package vmemgo

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hupe1980/vmemgo/backing"
	"github.com/hupe1980/vmemgo/internal/routing"
)

// Scope tags every allocation made while it is active with its mark and
// routes them through its own memory pool. Scopes nest per stream in LIFO
// order: the most recently opened scope on a stream receives that stream's
// allocations until it is closed.
//
// Close scopes in the reverse order of opening; closing out of order is a
// stack discipline violation.
type Scope struct {
	rt     *Runtime
	logger *Logger
	mark   string
	mode   BackedMode
	stream Stream
	pool   *backing.Pool
	opened time.Time
	closed atomic.Bool
}

// OpenScope opens a scope for the given mark. Allocations made on the
// scope's stream while it is active are tracked under the mark and preserved
// across release/materialize cycles according to mode.
//
// The caller must Close the scope; Scoped does this automatically.
func (rt *Runtime) OpenScope(mark string, mode BackedMode, optFns ...ScopeOption) (*Scope, error) {
	o := applyScopeOptions(optFns)

	if mark == "" {
		return nil, ErrEmptyMark
	}
	if mode == BackedStore && rt.store == nil {
		return nil, &ErrConfiguration{Reason: "BackedStore requires a snapshot store"}
	}

	adapter, err := rt.getAdapter()
	if err != nil {
		return nil, err
	}

	pool := backing.NewPool(adapter)
	rt.router.Push(routing.Entry{
		Mark:   mark,
		Mode:   mode,
		Stream: o.stream.ID(),
		Pool:   pool,
	})
	if err := pool.Activate(); err != nil {
		// The entry was pushed above; unwind it so the stream stack is
		// unchanged on failure.
		_, _ = rt.router.Pop(o.stream.ID())
		return nil, err
	}

	s := &Scope{
		rt:     rt,
		logger: rt.logger.WithMark(mark).WithStream(o.stream),
		mark:   mark,
		mode:   mode,
		stream: o.stream,
		pool:   pool,
		opened: time.Now(),
	}
	s.logger.LogScope(context.Background(), "scope opened", mode)

	return s, nil
}

// Mark returns the mark allocations under this scope are tagged with.
func (s *Scope) Mark() string { return s.mark }

// Mode returns the scope's backed mode.
func (s *Scope) Mode() BackedMode { return s.mode }

// Stream returns the stream this scope routes allocations on.
func (s *Scope) Stream() Stream { return s.stream }

// Stats returns a snapshot of the scope's pool counters.
func (s *Scope) Stats() backing.PoolStats { return s.pool.Stats() }

// Close deactivates the scope's pool and pops its routing entry off the
// stream stack. Closing an already closed scope is a no-op.
//
// It returns ErrStackDiscipline when this scope is not the innermost open
// scope on its stream; the stack is popped regardless so the error does not
// cascade to outer scopes.
func (s *Scope) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	err := s.pool.Deactivate()

	popped, popErr := s.rt.router.Pop(s.stream.ID())
	if popErr != nil {
		popErr = translateError(popErr)
	} else if popped.Pool != s.pool {
		popErr = ErrStackDiscipline
	}
	if err == nil {
		err = popErr
	}

	s.rt.metrics.RecordScope(s.mark, time.Since(s.opened))
	s.logger.LogScope(context.Background(), "scope closed", s.mode)

	return err
}

// Scoped opens a scope, runs fn inside it, and closes it again. The scope
// close error is returned when fn itself succeeds.
func (rt *Runtime) Scoped(mark string, mode BackedMode, fn func(s *Scope) error, optFns ...ScopeOption) (err error) {
	s, err := rt.OpenScope(mark, mode, optFns...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()

	return fn(s)
}
