package virtual

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

var (
	// ErrDuplicateHandle is returned when adding a handle that is already tracked.
	ErrDuplicateHandle = errors.New("virtual: duplicate handle")
	// ErrEmptyMark is returned when adding a blob without a mark.
	ErrEmptyMark = errors.New("virtual: empty mark")
)

// Manager tracks Memory objects by handle and by mark and drives bulk
// lifecycle operations. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	logger   *slog.Logger
	memories map[uint64]*managedEntry
	marks    map[string]*roaring64.Bitmap
	bad      []uint64
}

type managedEntry struct {
	mem  *Memory
	mark string
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger used for secondary errors during bulk operations.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates an empty Manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		logger:   slog.Default(),
		memories: make(map[uint64]*managedEntry),
		marks:    make(map[string]*roaring64.Bitmap),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add registers an existing Memory under the given handle and mark.
// The Memory and internal state remain unchanged if an error is returned.
func (m *Manager) Add(handle uint64, mark string, mem *Memory) error {
	if mark == "" {
		return ErrEmptyMark
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(handle, mark, mem)
}

func (m *Manager) addLocked(handle uint64, mark string, mem *Memory) error {
	if _, ok := m.memories[handle]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateHandle, handle)
	}

	set, ok := m.marks[mark]
	if !ok {
		set = roaring64.New()
		m.marks[mark] = set
	}
	set.Add(handle)
	m.memories[handle] = &managedEntry{mem: mem, mark: mark}
	return nil
}

// Create builds a Memory from the given creator and configurators,
// materializes it, and registers it under the handle and mark. The created
// blob's address is returned. Nothing is registered on error.
func (m *Manager) Create(ctx context.Context, handle uint64, mark string, creator Creator, configurators ...Configurator) (uintptr, error) {
	if mark == "" {
		return 0, ErrEmptyMark
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.memories[handle]; ok {
		return 0, fmt.Errorf("%w: %d", ErrDuplicateHandle, handle)
	}

	mem := NewMemory(creator, configurators...)
	if err := mem.Materialize(ctx); err != nil {
		if mem.Status() == StatusErrored {
			// Unwind the steps that succeeded; the materialize error wins.
			if relErr := mem.Release(ctx); relErr != nil {
				m.logger.Warn("release after failed materialize", "handle", handle, "mark", mark, "error", relErr)
			}
		}
		return 0, err
	}

	if err := m.addLocked(handle, mark, mem); err != nil {
		if relErr := mem.Release(ctx); relErr != nil {
			m.logger.Warn("release after failed add", "handle", handle, "mark", mark, "error", relErr)
		}
		return 0, err
	}
	return mem.Addr(), nil
}

// Remove detaches the Memory registered under handle from the manager.
// It returns nil if the handle is unknown. The caller takes over the
// Memory's lifecycle.
func (m *Manager) Remove(handle uint64) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(handle)
}

func (m *Manager) removeLocked(handle uint64) *Memory {
	entry, ok := m.memories[handle]
	if !ok {
		return nil
	}
	delete(m.memories, handle)

	if set, ok := m.marks[entry.mark]; ok {
		set.Remove(handle)
		if set.IsEmpty() {
			delete(m.marks, entry.mark)
		}
	}
	return entry.mem
}

// Status returns the status of the blob registered under handle.
// Unknown handles report StatusInvalid.
func (m *Manager) Status(handle uint64) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.memories[handle]
	if !ok {
		return StatusInvalid
	}
	return entry.mem.Status()
}

// Address returns the current address of the blob registered under handle,
// or 0 if the handle is unknown or the blob is not materialized.
func (m *Manager) Address(handle uint64) uintptr {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.memories[handle]
	if !ok {
		return 0
	}
	return entry.mem.Addr()
}

// Count returns the number of blobs currently recorded under mark.
func (m *Manager) Count(mark string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.marks[mark]
	if !ok {
		return 0
	}
	return int(set.GetCardinality())
}

// ReleaseWithMark releases every materialized blob recorded under mark and
// returns the number of blobs released.
//
// It never stops early: every blob is attempted, the last error is returned
// and the others are logged. Blobs that fail to release are evicted from the
// manager; their handles can be retrieved with RetrieveBadHandles.
func (m *Manager) ReleaseWithMark(ctx context.Context, mark string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		released int
		lastErr  error
	)
	for _, handle := range m.handlesLocked(mark) {
		entry := m.memories[handle]
		if entry.mem.Status() != StatusMaterialized {
			continue
		}
		if err := entry.mem.Release(ctx); err != nil {
			if lastErr != nil {
				m.logger.Warn("release with mark", "mark", mark, "handle", handle, "error", lastErr)
			}
			lastErr = err
			m.removeLocked(handle)
			m.bad = append(m.bad, handle)
			continue
		}
		released++
	}
	return released, lastErr
}

// MaterializeWithMark materializes every released blob recorded under mark
// and returns the number of blobs materialized.
//
// It stops at the first failing blob and attempts to roll back the blobs it
// materialized in this call. The failing blob is evicted from the manager;
// successfully rolled back blobs are not.
func (m *Manager) MaterializeWithMark(ctx context.Context, mark string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var done []uint64
	for _, handle := range m.handlesLocked(mark) {
		entry := m.memories[handle]
		if entry.mem.Status() != StatusReleased {
			continue
		}
		if err := entry.mem.Materialize(ctx); err != nil {
			if entry.mem.Status() == StatusErrored {
				if relErr := entry.mem.Release(ctx); relErr != nil {
					m.logger.Warn("release after failed materialize", "mark", mark, "handle", handle, "error", relErr)
				}
			}
			m.removeLocked(handle)
			m.bad = append(m.bad, handle)
			m.rollbackLocked(ctx, mark, done)
			return 0, err
		}
		done = append(done, handle)
	}
	return len(done), nil
}

func (m *Manager) rollbackLocked(ctx context.Context, mark string, handles []uint64) {
	for _, handle := range handles {
		entry, ok := m.memories[handle]
		if !ok {
			continue
		}
		if err := entry.mem.Release(ctx); err != nil {
			m.logger.Warn("rollback release", "mark", mark, "handle", handle, "error", err)
			m.removeLocked(handle)
			m.bad = append(m.bad, handle)
		}
	}
}

// RetrieveBadHandles returns the handles of all blobs that got evicted due to
// lifecycle errors and clears the list.
func (m *Manager) RetrieveBadHandles() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	bad := m.bad
	m.bad = nil
	return bad
}

// handlesLocked snapshots the handles recorded under mark so entries can be
// removed while iterating.
func (m *Manager) handlesLocked(mark string) []uint64 {
	set, ok := m.marks[mark]
	if !ok {
		return nil
	}
	return set.ToArray()
}
