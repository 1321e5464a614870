package gpu

import "errors"

// Pass-through errors surfaced unchanged from the GPU layer (spec.md §7
// "GPU-layer errors"). The task graph never interprets these; it only
// propagates them to the caller of Execute/Compile.
var (
	// ErrOutOfMemory indicates the GPU has exhausted its memory.
	ErrOutOfMemory = errors.New("gpu: device out of memory")

	// ErrDeviceLost indicates the GPU device has been lost (driver crash,
	// hardware disconnect, or driver timeout).
	ErrDeviceLost = errors.New("gpu: device lost")

	// ErrSwapchainImageEmpty indicates a swapchain image was requested for
	// use but none was provided to Execute (spec.md §7 execution errors).
	ErrSwapchainImageEmpty = errors.New("gpu: swapchain image not set")
)
