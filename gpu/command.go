package gpu

// CommandList is a finished, submittable recording, returned by
// CommandRecorder.Finish.
type CommandList interface {
	Resource
}

// CommandRecorder is the narrow recording surface the Scheduler & Emitter
// (spec.md §4.5) drives. It is a deliberately small adaptation of the
// teacher's hal.CommandEncoder: everything about draw/dispatch recording is
// out of scope here (that is a plain pass-through to the user callback);
// what the task graph itself needs is barrier emission and split-barrier
// signal/wait.
type CommandRecorder interface {
	// PipelineBarrier inserts an immediate pipeline barrier covering the
	// given buffer and image transitions (spec.md §4.3 "pipeline
	// barrier" case).
	PipelineBarrier(buffers []BufferBarrier, images []ImageBarrier)

	// SignalEvent marks the given event signaled after the barriers in
	// this call complete, for a later WaitEvents to consume
	// (spec.md §3 TaskSplitBarrier).
	SignalEvent(e Event, buffers []BufferBarrier, images []ImageBarrier)

	// WaitEvents blocks subsequent commands until every event is
	// signaled, applying the given barriers at the wait point.
	WaitEvents(events []Event, buffers []BufferBarrier, images []ImageBarrier)

	// Finish completes recording and returns a submittable command list.
	Finish() (CommandList, error)
}

// BufferBarrier describes a buffer memory barrier: a stage+access
// transition with no image layout component.
type BufferBarrier struct {
	Buffer   Buffer
	SrcStage PipelineStage
	DstStage PipelineStage
	SrcAccess Access
	DstAccess Access
}

// ImageBarrier describes an image memory barrier over one subresource
// slice, including the layout transition (spec.md §3 TaskBarrier).
type ImageBarrier struct {
	Image       Image
	Slice       MipArraySlice
	SrcStage    PipelineStage
	DstStage    PipelineStage
	SrcAccess   Access
	DstAccess   Access
	LayoutBefore ImageLayout
	LayoutAfter  ImageLayout
}
