package gpu

// Resource is the base interface every external GPU object satisfies.
// Mirrors hal.Resource's Destroy-only contract.
type Resource interface {
	Destroy()
}

// Buffer is an opaque handle to a backing GPU buffer. The task graph never
// allocates or sizes one itself; it is handed an already-created Buffer by
// the host program (for persistent resources) or by Device.CreateBuffer
// (for transients, at Compile time).
type Buffer interface {
	Resource
	Size() uint64
}

// Image is an opaque handle to a backing GPU image/texture.
type Image interface {
	Resource
	Format() Format
	Extent() Extent3D
	MipLevelCount() uint32
	ArrayLayerCount() uint32
}

// ImageView is a narrowed view of an Image over one subresource slice,
// created on demand by the task graph's image-view cache (spec.md §4.5
// "Image-view cache").
type ImageView interface {
	Resource
}

// Event is a GPU synchronization primitive used for split barriers
// (spec.md §3 TaskSplitBarrier, §5 "Event pool"). A signaled Event can
// later be waited on from a different, later batch.
type Event interface {
	Resource
}

// BinarySemaphore is a single-use GPU/GPU semaphore used for submit/present
// synchronization (swapchain acquire/present, spec.md §4.3 present()).
type BinarySemaphore interface {
	Resource
}

// TimelineSemaphore is a monotonically-increasing GPU/CPU semaphore used to
// track submission completion across frames.
type TimelineSemaphore interface {
	Resource
	Value() uint64
}

// MemoryRequirements describes what an allocator needs to know to place a
// transient resource in a shared memory block (spec.md §4.4).
type MemoryRequirements struct {
	Size           uint64
	Alignment      uint64
	MemoryTypeBits uint32
}

// MemoryBlock is an opaque backing allocation the Transient Allocator binds
// transient resources into at fixed offsets.
type MemoryBlock interface {
	Resource
	Size() uint64
}

// Device is the opaque GPU-object factory the task graph depends on. A real
// implementation wraps a Vulkan/DX12/Metal device; that wrapper is outside
// this module's scope (spec.md §1).
type Device interface {
	// CreateCommandRecorder begins a new command recording session.
	CreateCommandRecorder(label string) (CommandRecorder, error)

	// CreateBuffer allocates a transient buffer's backing resource.
	CreateBuffer(size uint64, label string) (Buffer, MemoryRequirements, error)

	// CreateImage allocates a transient image's backing resource.
	CreateImage(extent Extent3D, format Format, mipLevels, arrayLayers uint32, label string) (Image, MemoryRequirements, error)

	// CreateImageView creates a narrowed view over one subresource slice
	// of img, backing the task graph's per-attachment image-view cache.
	CreateImageView(img Image, slice MipArraySlice, label string) (ImageView, error)

	// AllocateMemory reserves a single block of device memory compatible
	// with the given combined memory-type bitmask.
	AllocateMemory(size uint64, memoryTypeBits uint32) (MemoryBlock, error)

	// BindBufferMemory / BindImageMemory bind a transient resource at a
	// fixed byte offset within a previously allocated block.
	BindBufferMemory(buf Buffer, block MemoryBlock, offset uint64) error
	BindImageMemory(img Image, block MemoryBlock, offset uint64) error

	// AcquireEvent / ReleaseEvent manage the split-barrier event pool
	// (spec.md §5 "Event pool: split-barrier events are acquired lazily
	// during planning and held for the graph's lifetime").
	AcquireEvent() (Event, error)
	ReleaseEvent(e Event)

	Queue() Queue
}

// Queue submits recorded command lists and presents swapchain images.
type Queue interface {
	Submit(info SubmitInfo) error
	Present(info PresentInfo) error
}

// SubmitInfo bundles a finished command list with its semaphore waits and
// signals, mirroring the teacher's descriptor-struct convention.
type SubmitInfo struct {
	CommandLists []CommandList
	Wait         []BinarySemaphore
	Signal       []BinarySemaphore
}

// PresentInfo describes a present() call (spec.md §4.3).
type PresentInfo struct {
	Image Image
	Wait  []BinarySemaphore
}
