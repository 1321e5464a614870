package taskgraph

import (
	"fmt"
	"sync/atomic"
)

// localIndex is the index component of a view ID — stable for the
// lifetime of the TaskGraph that created it (spec.md §3: "TaskBufferView /
// TaskImageView ... assigned on declaration; never reused").
type localIndex = uint32

// marker is the constraint used to distinguish otherwise-identical integer
// IDs at compile time, exactly as the teacher's core/id.go does for its
// resource IDs.
type marker interface {
	marker()
}

type taskBufferMarker struct{}

func (taskBufferMarker) marker() {}

type taskImageMarker struct{}

func (taskImageMarker) marker() {}

// viewID is a type-safe, dense local identifier parameterized by a marker
// type so a TaskBufferView can never be handed where a TaskImageView is
// expected. Unlike the teacher's core.ID[T] (which packs an epoch for
// use-after-free detection on a sparse, reused slot array), view IDs are
// never reused within a graph's lifetime, so a bare index suffices.
type viewID[T marker] struct {
	index localIndex
}

func newViewID[T marker](index localIndex) viewID[T] {
	return viewID[T]{index: index}
}

// Index returns the dense index of this view.
func (v viewID[T]) Index() localIndex { return v.index }

// IsValid reports whether this view holds a real index. The all-ones
// index (invalidLocalIndex) is reserved as "no view"; index 0, the zero
// value, is the first declared view.
func (v viewID[T]) IsValid() bool { return v.index != invalidLocalIndex }

func (v viewID[T]) String() string { return fmt.Sprintf("View(%d)", v.index) }

const invalidLocalIndex localIndex = ^localIndex(0)

// TaskBufferView is a stable local identifier for a buffer (persistent or
// transient) within one TaskGraph (spec.md §3).
type TaskBufferView = viewID[taskBufferMarker]

// TaskImageView is a stable local identifier for an image within one
// TaskGraph. The view itself always covers the whole image; an
// attachment narrows it to a subresource slice via ImageAttachmentSlice.
type TaskImageView = viewID[taskImageMarker]

// invalidBufferView / invalidImageView carry the reserved all-ones index.
// The registry and the TaskGraph declaration methods do not return them:
// on error they return the zero-value view together with the error.
var (
	invalidBufferView = viewID[taskBufferMarker]{index: invalidLocalIndex}
	invalidImageView  = viewID[taskImageMarker]{index: invalidLocalIndex}
)

// persistentUniqueIndexNext assigns process-wide unique identity to
// persistent resources, the way
// ImplPersistentTaskBuffer::exec_unique_next_index does in
// original_source/src/utils/impl_task_graph.hpp (spec.md §9: "process-wide
// counter with lifecycle = static. Acceptable"). A persistent handle's
// unique index — not its per-graph local view index — is what lets two
// different TaskGraph instances agree they are talking about the same
// externally-owned resource.
var persistentUniqueIndexNext atomic.Uint32

func nextPersistentUniqueIndex() uint32 {
	return persistentUniqueIndexNext.Add(1)
}
