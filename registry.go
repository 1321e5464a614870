package taskgraph

import "github.com/gogpu/taskgraph/gpu"

// TaskBufferInfo describes a persistent buffer handle (spec.md §3
// "TaskBuffer ... Externally-owned resource reference").
type TaskBufferInfo struct {
	Name string
}

// TaskImageInfo describes a persistent image handle.
type TaskImageInfo struct {
	Name string
	// Swapchain marks this handle as the swapchain image: Execute presents
	// its first backing image after submitting the scope flagged by
	// Present(), and that scope's submit waits on the acquire semaphore.
	// No transition to a present layout is emitted on its behalf, and
	// earlier scopes that use the image do not wait on the acquire
	// semaphore.
	Swapchain bool
}

// TaskTransientBufferInfo mirrors the backing GPU create-info for a
// transient buffer, minus memory placement (spec.md §6).
type TaskTransientBufferInfo struct {
	Name string
	Size uint64
}

// TaskTransientImageInfo mirrors the backing GPU create-info for a
// transient image, minus memory placement.
type TaskTransientImageInfo struct {
	Name            string
	Extent          gpu.Extent3D
	Format          gpu.Format
	MipLevelCount   uint32
	ArrayLayerCount uint32
}

// imageSliceState is the (layout, access) pair retained for one
// subresource slice across task-graph executions (spec.md §3 "images
// store a list of currently-live slice-states").
type imageSliceState struct {
	slice  gpu.MipArraySlice
	layout gpu.ImageLayout
	access gpu.AccessAndStage
}

// TaskBuffer is a persistent, externally-owned buffer handle. One handle
// can back multiple actual GPU buffers (ping-pong), spec.md §3.
type TaskBuffer struct {
	uniqueIndex uint32
	info        TaskBufferInfo
	actual      []gpu.Buffer

	// latestAccess/latestAccessValid retain the final access state across
	// Execute calls so the next frame's planner can insert a cross-frame
	// barrier (spec.md invariant 6).
	latestAccess      gpu.AccessAndStage
	latestConcurrency Concurrency
	latestAccessValid bool
}

// NewTaskBuffer creates a new persistent buffer handle.
func NewTaskBuffer(info TaskBufferInfo) *TaskBuffer {
	return &TaskBuffer{uniqueIndex: nextPersistentUniqueIndex(), info: info}
}

// SetBuffers assigns the actual backing GPU buffer(s) for this handle.
func (b *TaskBuffer) SetBuffers(buffers ...gpu.Buffer) { b.actual = buffers }

// Name returns the handle's debug name.
func (b *TaskBuffer) Name() string { return b.info.Name }

// TaskImage is a persistent, externally-owned image handle.
type TaskImage struct {
	uniqueIndex uint32
	info        TaskImageInfo
	actual      []gpu.Image

	latestSliceStates []imageSliceState
}

// NewTaskImage creates a new persistent image handle.
func NewTaskImage(info TaskImageInfo) *TaskImage {
	return &TaskImage{uniqueIndex: nextPersistentUniqueIndex(), info: info}
}

// SetImages assigns the actual backing GPU image(s) for this handle.
func (img *TaskImage) SetImages(images ...gpu.Image) { img.actual = images }

// Name returns the handle's debug name.
func (img *TaskImage) Name() string { return img.info.Name }

// bufferSlot is the Resource Registry's discriminated union for one
// buffer local-index: either a reference to a persistent handle, or the
// create-info of a transient buffer plus its GPU memory requirements
// (filled in once Compile runs the Transient Allocator). Spec.md §4.1
// "Each slot holds a discriminated union {Persistent(handle) |
// Transient(info, memory_requirements)}".
type bufferSlot struct {
	persistent *TaskBuffer // nil if transient
	transient  TaskTransientBufferInfo

	memReq   gpu.MemoryRequirements
	runtime  gpu.Buffer // bound at Compile time, transient only
	lifetime resourceLifetime

	// firstAccess/firstConcurrency snapshot the very first access this
	// slot sees while being compiled into a permutation, used to
	// synthesize the cross-frame barrier a persistent handle's stored
	// latestAccess must transition into at replay time (spec.md
	// invariant 6 "cross-frame synchronization for persistent
	// resources").
	firstAccessSet   bool
	firstAccess      gpu.AccessAndStage
	firstConcurrency Concurrency
}

func (s *bufferSlot) isPersistent() bool { return s.persistent != nil }

func (s *bufferSlot) name() string {
	if s.isPersistent() {
		return s.persistent.Name()
	}
	return s.transient.Name
}

// imageSlot is the image analogue of bufferSlot.
type imageSlot struct {
	persistent *TaskImage // nil if transient
	transient  TaskTransientImageInfo

	memReq   gpu.MemoryRequirements
	runtime  gpu.Image // bound at Compile time, transient only
	lifetime resourceLifetime

	// firstAccess mirrors bufferSlot's snapshot of the first access this
	// slot sees while being compiled, with the slice that access covered.
	// It holds only that one access: slices first touched later by other
	// tasks are not recorded here.
	firstAccess []imageLiveState
}

func (s *imageSlot) isPersistent() bool { return s.persistent != nil }

func (s *imageSlot) name() string {
	if s.isPersistent() {
		return s.persistent.Name()
	}
	return s.transient.Name
}

func (s *imageSlot) wholeSlice() gpu.MipArraySlice {
	if s.isPersistent() {
		if len(s.persistent.actual) > 0 {
			img := s.persistent.actual[0]
			return gpu.MipArraySlice{MipLevelCount: img.MipLevelCount(), ArrayLayerCount: img.ArrayLayerCount()}
		}
		return gpu.MipArraySlice{MipLevelCount: 1, ArrayLayerCount: 1}
	}
	return gpu.MipArraySlice{MipLevelCount: s.transient.MipLevelCount, ArrayLayerCount: s.transient.ArrayLayerCount}
}

// resourceLifetime tracks the [first_use, last_use] batch interval a
// transient resource spans, used by the Transient Allocator (spec.md §3
// invariant 4, §4.4).
type resourceLifetime struct {
	valid                  bool
	firstScope, firstBatch int
	lastScope, lastBatch   int
}

func (l *resourceLifetime) extend(scope, batch int) {
	if !l.valid {
		l.valid = true
		l.firstScope, l.firstBatch = scope, batch
		l.lastScope, l.lastBatch = scope, batch
		return
	}
	if combinedBatchLess(scope, batch, l.firstScope, l.firstBatch) {
		l.firstScope, l.firstBatch = scope, batch
	}
	if combinedBatchLess(l.lastScope, l.lastBatch, scope, batch) {
		l.lastScope, l.lastBatch = scope, batch
	}
}

func combinedBatchLess(scopeA, batchA, scopeB, batchB int) bool {
	if scopeA != scopeB {
		return scopeA < scopeB
	}
	return batchA < batchB
}

// registry interns persistent and transient resource declarations and
// resolves views to local indices, assigning each a stable
// TaskBufferView/TaskImageView (spec.md §4.1 Resource Registry).
type registry struct {
	buffers []bufferSlot
	images  []imageSlot

	persistentBufferUniqueToLocal map[uint32]localIndex
	persistentImageUniqueToLocal  map[uint32]localIndex
}

func newRegistry() *registry {
	return &registry{
		persistentBufferUniqueToLocal: make(map[uint32]localIndex),
		persistentImageUniqueToLocal:  make(map[uint32]localIndex),
	}
}

// usePersistentBuffer is idempotent: using the same *TaskBuffer twice
// returns the same view (spec.md §6 "idempotent; returns a local view").
func (r *registry) usePersistentBuffer(b *TaskBuffer) TaskBufferView {
	if idx, ok := r.persistentBufferUniqueToLocal[b.uniqueIndex]; ok {
		return newViewID[taskBufferMarker](idx)
	}
	idx := localIndex(len(r.buffers))
	r.buffers = append(r.buffers, bufferSlot{persistent: b})
	r.persistentBufferUniqueToLocal[b.uniqueIndex] = idx
	return newViewID[taskBufferMarker](idx)
}

// usePersistentImage is the image analogue of usePersistentBuffer.
func (r *registry) usePersistentImage(img *TaskImage) TaskImageView {
	if idx, ok := r.persistentImageUniqueToLocal[img.uniqueIndex]; ok {
		return newViewID[taskImageMarker](idx)
	}
	idx := localIndex(len(r.images))
	r.images = append(r.images, imageSlot{persistent: img})
	r.persistentImageUniqueToLocal[img.uniqueIndex] = idx
	return newViewID[taskImageMarker](idx)
}

// createTransientBuffer interns a new transient buffer declaration.
func (r *registry) createTransientBuffer(info TaskTransientBufferInfo) TaskBufferView {
	idx := localIndex(len(r.buffers))
	r.buffers = append(r.buffers, bufferSlot{transient: info})
	return newViewID[taskBufferMarker](idx)
}

// createTransientImage interns a new transient image declaration.
func (r *registry) createTransientImage(info TaskTransientImageInfo) TaskImageView {
	idx := localIndex(len(r.images))
	r.images = append(r.images, imageSlot{transient: info})
	return newViewID[taskImageMarker](idx)
}

// getActualBuffers resolves a view to its backing GPU buffer(s) — for a
// persistent handle this may be more than one (ping-pong); for a
// transient, exactly one once Compile has run.
func (r *registry) getActualBuffers(view TaskBufferView) ([]gpu.Buffer, error) {
	slot, err := r.bufferSlotOf(view)
	if err != nil {
		return nil, err
	}
	if slot.isPersistent() {
		if len(slot.persistent.actual) == 0 {
			return nil, newExecutionError(slot.name(), "persistent buffer has no backing handle set", ErrUnsetPersistentResource)
		}
		return slot.persistent.actual, nil
	}
	if slot.runtime == nil {
		return nil, newExecutionError(slot.name(), "transient buffer not allocated (Compile not run)", ErrNotCompiled)
	}
	return []gpu.Buffer{slot.runtime}, nil
}

// getActualImages is the image analogue of getActualBuffers.
func (r *registry) getActualImages(view TaskImageView) ([]gpu.Image, error) {
	slot, err := r.imageSlotOf(view)
	if err != nil {
		return nil, err
	}
	if slot.isPersistent() {
		if len(slot.persistent.actual) == 0 {
			return nil, newExecutionError(slot.name(), "persistent image has no backing handle set", ErrUnsetPersistentResource)
		}
		return slot.persistent.actual, nil
	}
	if slot.runtime == nil {
		return nil, newExecutionError(slot.name(), "transient image not allocated (Compile not run)", ErrNotCompiled)
	}
	return []gpu.Image{slot.runtime}, nil
}

func (r *registry) bufferSlotOf(view TaskBufferView) (*bufferSlot, error) {
	if !view.IsValid() || int(view.Index()) >= len(r.buffers) {
		return nil, newValidationError("TaskBufferView", "", "view not registered in this graph")
	}
	return &r.buffers[view.Index()], nil
}

func (r *registry) imageSlotOf(view TaskImageView) (*imageSlot, error) {
	if !view.IsValid() || int(view.Index()) >= len(r.images) {
		return nil, newValidationError("TaskImageView", "", "view not registered in this graph")
	}
	return &r.images[view.Index()], nil
}
