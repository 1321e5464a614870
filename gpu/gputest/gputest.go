// Package gputest provides a no-operation implementation of package gpu's
// interfaces for use in taskgraph tests. Every operation succeeds
// immediately and returns placeholder resources — adapted from the
// teacher's hal/noop backend, narrowed to the task graph's much smaller
// Device/CommandRecorder surface.
package gputest

import (
	"sync/atomic"

	"github.com/gogpu/taskgraph/gpu"
)

// Resource is a placeholder implementing gpu.Resource and every interface
// that embeds it (Buffer, Image, Event, BinarySemaphore, MemoryBlock).
type Resource struct {
	destroyed atomic.Bool
	size      uint64
	extent    gpu.Extent3D
	format    gpu.Format
	mipLevels uint32
	layers    uint32
}

func (r *Resource) Destroy()                    { r.destroyed.Store(true) }
func (r *Resource) Destroyed() bool              { return r.destroyed.Load() }
func (r *Resource) Size() uint64                 { return r.size }
func (r *Resource) Extent() gpu.Extent3D         { return r.extent }
func (r *Resource) Format() gpu.Format           { return r.format }
func (r *Resource) MipLevelCount() uint32        { return r.mipLevels }
func (r *Resource) ArrayLayerCount() uint32      { return r.layers }
func (r *Resource) Value() uint64                { return 0 }

// NewBuffer returns a placeholder gpu.Buffer of the given size.
func NewBuffer(size uint64) *Resource {
	return &Resource{size: size}
}

// NewImage returns a placeholder gpu.Image.
func NewImage(extent gpu.Extent3D, format gpu.Format, mipLevels, layers uint32) *Resource {
	return &Resource{extent: extent, format: format, mipLevels: mipLevels, layers: layers}
}

// Recorder implements gpu.CommandRecorder, recording every call it
// receives for test assertions instead of discarding it like the
// teacher's noop.CommandEncoder does.
type Recorder struct {
	Label              string
	PipelineBarriers   []BarrierCall
	SignaledEvents     []SignalCall
	WaitedEvents       []WaitCall
	Finished           bool
}

// BarrierCall records one PipelineBarrier invocation.
type BarrierCall struct {
	Buffers []gpu.BufferBarrier
	Images  []gpu.ImageBarrier
}

// SignalCall records one SignalEvent invocation.
type SignalCall struct {
	Event   gpu.Event
	Buffers []gpu.BufferBarrier
	Images  []gpu.ImageBarrier
}

// WaitCall records one WaitEvents invocation.
type WaitCall struct {
	Events  []gpu.Event
	Buffers []gpu.BufferBarrier
	Images  []gpu.ImageBarrier
}

func (r *Recorder) PipelineBarrier(buffers []gpu.BufferBarrier, images []gpu.ImageBarrier) {
	r.PipelineBarriers = append(r.PipelineBarriers, BarrierCall{Buffers: buffers, Images: images})
}

func (r *Recorder) SignalEvent(e gpu.Event, buffers []gpu.BufferBarrier, images []gpu.ImageBarrier) {
	r.SignaledEvents = append(r.SignaledEvents, SignalCall{Event: e, Buffers: buffers, Images: images})
}

func (r *Recorder) WaitEvents(events []gpu.Event, buffers []gpu.BufferBarrier, images []gpu.ImageBarrier) {
	r.WaitedEvents = append(r.WaitedEvents, WaitCall{Events: events, Buffers: buffers, Images: images})
}

func (r *Recorder) Finish() (gpu.CommandList, error) {
	r.Finished = true
	return &Resource{}, nil
}

// Queue implements gpu.Queue, recording submits/presents for assertions.
type Queue struct {
	Submits  []gpu.SubmitInfo
	Presents []gpu.PresentInfo
}

func (q *Queue) Submit(info gpu.SubmitInfo) error {
	q.Submits = append(q.Submits, info)
	return nil
}

func (q *Queue) Present(info gpu.PresentInfo) error {
	q.Presents = append(q.Presents, info)
	return nil
}

// Device implements gpu.Device entirely in memory.
type Device struct {
	Recorders []*Recorder
	queue     Queue
	events    []*Resource
}

// NewDevice returns a ready-to-use fake device.
func NewDevice() *Device {
	return &Device{}
}

func (d *Device) CreateCommandRecorder(label string) (gpu.CommandRecorder, error) {
	r := &Recorder{Label: label}
	d.Recorders = append(d.Recorders, r)
	return r, nil
}

func (d *Device) CreateBuffer(size uint64, _ string) (gpu.Buffer, gpu.MemoryRequirements, error) {
	return NewBuffer(size), gpu.MemoryRequirements{Size: size, Alignment: 16, MemoryTypeBits: 0x1}, nil
}

func (d *Device) CreateImage(extent gpu.Extent3D, format gpu.Format, mipLevels, layers uint32, _ string) (gpu.Image, gpu.MemoryRequirements, error) {
	size := uint64(extent.Width) * uint64(extent.Height) * uint64(extent.DepthOrArrayLayers) * 4
	return NewImage(extent, format, mipLevels, layers), gpu.MemoryRequirements{Size: size, Alignment: 256, MemoryTypeBits: 0x1}, nil
}

func (d *Device) AllocateMemory(size uint64, _ uint32) (gpu.MemoryBlock, error) {
	return &Resource{size: size}, nil
}

func (d *Device) CreateImageView(_ gpu.Image, _ gpu.MipArraySlice, _ string) (gpu.ImageView, error) {
	return &Resource{}, nil
}

func (d *Device) BindBufferMemory(gpu.Buffer, gpu.MemoryBlock, uint64) error { return nil }
func (d *Device) BindImageMemory(gpu.Image, gpu.MemoryBlock, uint64) error   { return nil }

func (d *Device) AcquireEvent() (gpu.Event, error) {
	e := &Resource{}
	d.events = append(d.events, e)
	return e, nil
}

func (d *Device) ReleaseEvent(gpu.Event) {}

func (d *Device) Queue() gpu.Queue { return &d.queue }

// TestQueue exposes the underlying fake queue for assertions.
func (d *Device) TestQueue() *Queue { return &d.queue }
