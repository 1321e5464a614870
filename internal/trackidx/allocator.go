// Package trackidx provides dense index allocation for the task graph's
// split-barrier event pool.
//
// Index is a dense index (0, 1, 2, ...) suitable for O(1) array access,
// as opposed to a sparse, epoch-checked resource ID. Adapted from the
// teacher's core/track.TrackerIndex / TrackerIndexAllocator — the same
// free-list-of-released-indices scheme, renamed for the task graph's
// domain (event pool slots) instead of the teacher's per-resource-type
// device trackers.
package trackidx

import "sync"

// Index is a dense allocation slot.
type Index uint32

// Invalid represents an unassigned index.
const Invalid Index = ^Index(0)

// IsValid reports whether this is a real, allocated index.
func (i Index) IsValid() bool {
	return i != Invalid
}

// Allocator hands out dense indices, reusing released ones to keep the
// index space compact (important here because the event pool backs its
// state with a flat slice indexed by Index).
type Allocator struct {
	mu        sync.Mutex
	unused    []Index
	nextIndex Index
}

// NewAllocator creates an empty allocator.
func NewAllocator() *Allocator {
	return &Allocator{unused: make([]Index, 0, 64)}
}

// Alloc returns a fresh or recycled index.
func (a *Allocator) Alloc() Index {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.unused); n > 0 {
		idx := a.unused[n-1]
		a.unused = a.unused[:n-1]
		return idx
	}
	idx := a.nextIndex
	a.nextIndex++
	return idx
}

// Free releases idx for reuse. A no-op for Invalid.
func (a *Allocator) Free(idx Index) {
	if idx == Invalid {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unused = append(a.unused, idx)
}

// Size returns the number of indices currently allocated (not released).
func (a *Allocator) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.nextIndex) - len(a.unused)
}

// HighWaterMark returns the highest index ever handed out, or Invalid if
// none have been. Useful for pre-sizing tracking slices.
func (a *Allocator) HighWaterMark() Index {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.nextIndex == 0 {
		return Invalid
	}
	return a.nextIndex - 1
}
