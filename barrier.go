package taskgraph

import (
	"github.com/gogpu/taskgraph/gpu"
	"github.com/gogpu/taskgraph/internal/trackidx"
)

// barrierKind distinguishes an ordinary pipeline barrier (same batch or
// adjacent batch, no event needed) from a split barrier (signal in one
// batch, wait in a later one, spec.md §4.3 "upgrade to split barrier
// once ... separated by more than one batch").
type barrierKind uint8

const (
	barrierKindPipeline barrierKind = iota
	barrierKindSplit
)

// plannedBufferBarrier is a buffer transition recorded during planning,
// before the Transient Allocator has bound a concrete gpu.Buffer to every
// transient view. The Scheduler & Emitter resolves view into an actual
// gpu.Buffer immediately before recording (spec.md §4.5).
type plannedBufferBarrier struct {
	view      TaskBufferView
	srcStage  gpu.PipelineStage
	dstStage  gpu.PipelineStage
	srcAccess gpu.Access
	dstAccess gpu.Access
}

// plannedImageBarrier is the image analogue of plannedBufferBarrier.
type plannedImageBarrier struct {
	view         TaskImageView
	slice        gpu.MipArraySlice
	srcStage     gpu.PipelineStage
	dstStage     gpu.PipelineStage
	srcAccess    gpu.Access
	dstAccess    gpu.Access
	layoutBefore gpu.ImageLayout
	layoutAfter  gpu.ImageLayout
}

// taskBarrier is a plain (non-split) pipeline barrier the emitter flushes
// at a batch boundary: all buffer/image transitions whose producer and
// consumer batches are adjacent enough not to need an event.
type taskBarrier struct {
	bufferBarriers []*plannedBufferBarrier
	imageBarriers  []*plannedImageBarrier
}

func (b *taskBarrier) empty() bool {
	return len(b.bufferBarriers) == 0 && len(b.imageBarriers) == 0
}

// taskSplitBarrier is a signal/wait pair: the signal is recorded at the
// end of the producing batch, the wait at the start of the consuming
// batch, both sharing one GPU event (spec.md §3 TaskSplitBarrier).
type taskSplitBarrier struct {
	event gpu.Event

	signalScope, signalBatch int
	waitScope, waitBatch     int

	// bufferBarriers/imageBarriers are held by pointer, not value: a
	// later compatible read coalescing onto the same resource/slice
	// back-patches the barrier's dst mask in place through this same
	// pointer (spec.md §3 "latest_concurrent_access_barrier_index",
	// §4.3 bullet 4, §8 property 2 "dst_access is the union of all
	// readers").
	bufferBarriers []*plannedBufferBarrier
	imageBarriers  []*plannedImageBarrier
}

// splitsAcrossBatches reports whether producer and consumer are far
// enough apart to warrant a split barrier rather than an ordinary one.
// Per spec.md's open question, the default policy upgrades to a split
// barrier only once the producer and consumer batches are separated by
// more than one batch within the same submit scope, or span different
// submit scopes entirely (crossing a submit scope always needs a split
// barrier since the producing command list has already been submitted).
func splitsAcrossBatches(producerScope, producerBatch, consumerScope, consumerBatch int) bool {
	if producerScope != consumerScope {
		return true
	}
	return consumerBatch-producerBatch > 1
}

// eventPool lazily acquires GPU events during planning and holds them for
// the task graph's lifetime, handing them back to the device only when
// the graph itself is destroyed (spec.md §5 "Event pool"). Slots are
// dense-indexed via trackidx.Allocator so a released event's slot is
// reused by the next acquire instead of growing the pool unboundedly.
type eventPool struct {
	device gpu.Device
	slots  *trackidx.Allocator
	events []gpu.Event
}

func newEventPool(device gpu.Device) *eventPool {
	return &eventPool{device: device, slots: trackidx.NewAllocator()}
}

// acquire hands back a previously released event's slot if one is free,
// otherwise asks the device for a fresh event.
func (p *eventPool) acquire() (gpu.Event, error) {
	idx := p.slots.Alloc()
	if int(idx) < len(p.events) && p.events[idx] != nil {
		return p.events[idx], nil
	}
	e, err := p.device.AcquireEvent()
	if err != nil {
		return nil, newCompileError("event-pool", "failed to acquire split-barrier event", err)
	}
	for len(p.events) <= int(idx) {
		p.events = append(p.events, nil)
	}
	p.events[idx] = e
	return e, nil
}

// release returns an event's slot to the free list for reuse by a later
// split barrier, without handing the event itself back to the device.
func (p *eventPool) release(idx trackidx.Index) {
	p.slots.Free(idx)
}

// destroy releases every event ever acquired back to the device. Called
// when the owning task graph is torn down.
func (p *eventPool) destroy() {
	for _, e := range p.events {
		if e != nil {
			p.device.ReleaseEvent(e)
		}
	}
	p.events = nil
}
