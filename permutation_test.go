package taskgraph

import (
	"testing"

	"github.com/gogpu/taskgraph/gpu"
)

func TestCompatible(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Concurrency
		want     bool
	}{
		{"both concurrent", Concurrent, Concurrent, true},
		{"a exclusive", Exclusive, Concurrent, false},
		{"b exclusive", Concurrent, Exclusive, false},
		{"both exclusive", Exclusive, Exclusive, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compatible(tt.a, tt.b); got != tt.want {
				t.Errorf("compatible(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestResolveImageSlice_DefaultsToWholeImage(t *testing.T) {
	slot := &imageSlot{transient: TaskTransientImageInfo{MipLevelCount: 4, ArrayLayerCount: 2}}
	att := ImageAttachment("img", TaskImageView{}, ImageAccessShaderRead)
	got := resolveImageSlice(att, slot)
	want := gpu.MipArraySlice{MipLevelCount: 4, ArrayLayerCount: 2}
	if got != want {
		t.Errorf("resolveImageSlice = %+v, want %+v", got, want)
	}
}

func TestResolveImageSlice_Override(t *testing.T) {
	slot := &imageSlot{transient: TaskTransientImageInfo{MipLevelCount: 4, ArrayLayerCount: 2}}
	narrowed := gpu.MipArraySlice{BaseMipLevel: 1, MipLevelCount: 1, ArrayLayerCount: 1}
	att := ImageAttachmentSlice("img", TaskImageView{}, ImageAccessShaderRead, narrowed)
	got := resolveImageSlice(att, slot)
	if got != narrowed {
		t.Errorf("resolveImageSlice override = %+v, want %+v", got, narrowed)
	}
}

func newTestRegistry(bufferCount, imageCount int) *registry {
	reg := newRegistry()
	for i := 0; i < bufferCount; i++ {
		reg.buffers = append(reg.buffers, bufferSlot{transient: TaskTransientBufferInfo{Name: "buf", Size: 64}})
	}
	for i := 0; i < imageCount; i++ {
		reg.images = append(reg.images, imageSlot{transient: TaskTransientImageInfo{MipLevelCount: 1, ArrayLayerCount: 1}})
	}
	return reg
}

func TestPermutation_ReadAfterReadNoBarrier(t *testing.T) {
	reg := newTestRegistry(1, 0)
	pool := newEventPool(nil)
	perm := newTaskGraphPermutation(0, 1, 0)
	view := newViewID[taskBufferMarker](0)

	reader1 := newImplTask(0, TaskInfo{Name: "r1", Attachments: []Attachment{BufferAttachment("a", view, BufferAccessShaderRead)}})
	reader2 := newImplTask(1, TaskInfo{Name: "r2", Attachments: []Attachment{BufferAttachment("a", view, BufferAccessShaderRead)}})

	if err := perm.addTask(reader1, reg, pool); err != nil {
		t.Fatalf("addTask(reader1) error: %v", err)
	}
	if err := perm.addTask(reader2, reg, pool); err != nil {
		t.Fatalf("addTask(reader2) error: %v", err)
	}

	scope := perm.currentScope()
	if len(scope.batches) != 1 {
		t.Fatalf("two compatible readers should share one batch, got %d batches", len(scope.batches))
	}
	if !scope.batches[0].pipelineBarrier.empty() {
		t.Error("read-after-read should not emit a pipeline barrier")
	}
}

func TestPermutation_WriteThenReadForcesNewBatchAndBarrier(t *testing.T) {
	reg := newTestRegistry(1, 0)
	pool := newEventPool(nil)
	perm := newTaskGraphPermutation(0, 1, 0)
	view := newViewID[taskBufferMarker](0)

	writer := newImplTask(0, TaskInfo{Name: "w", Attachments: []Attachment{BufferAttachment("a", view, BufferAccessShaderWrite)}})
	reader := newImplTask(1, TaskInfo{Name: "r", Attachments: []Attachment{BufferAttachment("a", view, BufferAccessShaderRead)}})

	if err := perm.addTask(writer, reg, pool); err != nil {
		t.Fatalf("addTask(writer) error: %v", err)
	}
	if err := perm.addTask(reader, reg, pool); err != nil {
		t.Fatalf("addTask(reader) error: %v", err)
	}

	scope := perm.currentScope()
	if len(scope.batches) != 2 {
		t.Fatalf("write then read should force a new batch, got %d batches", len(scope.batches))
	}
	if scope.batches[1].pipelineBarrier.empty() {
		t.Error("expected a pipeline barrier between the write batch and the read batch")
	}
}

func TestPermutation_CoalescedReadBackpatchesBarrierDstMask(t *testing.T) {
	reg := newTestRegistry(1, 0)
	pool := newEventPool(nil)
	perm := newTaskGraphPermutation(0, 1, 0)
	view := newViewID[taskBufferMarker](0)

	writer := newImplTask(0, TaskInfo{Name: "w", Attachments: []Attachment{BufferAttachment("a", view, BufferAccessShaderWrite)}})
	reader1 := newImplTask(1, TaskInfo{Name: "r1", Attachments: []Attachment{BufferAttachment("a", view, BufferAccessShaderRead)}})
	reader2 := newImplTask(2, TaskInfo{Name: "r2", Attachments: []Attachment{BufferAttachment("a", view, BufferAccessIndexRead)}})

	if err := perm.addTask(writer, reg, pool); err != nil {
		t.Fatalf("addTask(writer) error: %v", err)
	}
	if err := perm.addTask(reader1, reg, pool); err != nil {
		t.Fatalf("addTask(reader1) error: %v", err)
	}
	if err := perm.addTask(reader2, reg, pool); err != nil {
		t.Fatalf("addTask(reader2) error: %v", err)
	}

	scope := perm.currentScope()
	if len(scope.batches) != 2 {
		t.Fatalf("both reads should coalesce into one batch after the write, got %d batches", len(scope.batches))
	}
	barriers := scope.batches[1].pipelineBarrier.bufferBarriers
	if len(barriers) != 1 {
		t.Fatalf("expected exactly 1 barrier between the write batch and the coalesced read batch, got %d", len(barriers))
	}
	b := barriers[0]
	wantStage := gpu.StageComputeShader | gpu.StageVertexInput
	wantAccess := gpu.AccessShaderRead | gpu.AccessIndexRead
	if b.dstStage != wantStage {
		t.Errorf("barrier dstStage = %v, want %v (union of both coalesced readers)", b.dstStage, wantStage)
	}
	if b.dstAccess != wantAccess {
		t.Errorf("barrier dstAccess = %v, want %v (union of both coalesced readers)", b.dstAccess, wantAccess)
	}
}

func TestPermutation_ImageSlicesDisjointShareBatch(t *testing.T) {
	reg := newTestRegistry(0, 1)
	reg.images[0] = imageSlot{transient: TaskTransientImageInfo{MipLevelCount: 2, ArrayLayerCount: 1}}
	pool := newEventPool(nil)
	perm := newTaskGraphPermutation(0, 0, 1)
	view := newViewID[taskImageMarker](0)

	mip0 := gpu.MipArraySlice{BaseMipLevel: 0, MipLevelCount: 1, ArrayLayerCount: 1}
	mip1 := gpu.MipArraySlice{BaseMipLevel: 1, MipLevelCount: 1, ArrayLayerCount: 1}

	writer0 := newImplTask(0, TaskInfo{Name: "w0", Attachments: []Attachment{ImageAttachmentSlice("a", view, ImageAccessShaderWrite, mip0)}})
	writer1 := newImplTask(1, TaskInfo{Name: "w1", Attachments: []Attachment{ImageAttachmentSlice("a", view, ImageAccessShaderWrite, mip1)}})

	if err := perm.addTask(writer0, reg, pool); err != nil {
		t.Fatalf("addTask(writer0) error: %v", err)
	}
	if err := perm.addTask(writer1, reg, pool); err != nil {
		t.Fatalf("addTask(writer1) error: %v", err)
	}

	scope := perm.currentScope()
	if len(scope.batches) != 1 {
		t.Errorf("writes to disjoint mip slices should share a batch, got %d batches", len(scope.batches))
	}
}

func TestPermutation_ImageSlicesOverlappingBarrierScopedToOverlap(t *testing.T) {
	reg := newTestRegistry(0, 1)
	reg.images[0] = imageSlot{transient: TaskTransientImageInfo{MipLevelCount: 4, ArrayLayerCount: 1}}
	pool := newEventPool(nil)
	perm := newTaskGraphPermutation(0, 0, 1)
	view := newViewID[taskImageMarker](0)

	whole := gpu.MipArraySlice{BaseMipLevel: 0, MipLevelCount: 4, ArrayLayerCount: 1}
	narrow := gpu.MipArraySlice{BaseMipLevel: 1, MipLevelCount: 1, ArrayLayerCount: 1}

	writer := newImplTask(0, TaskInfo{Name: "w", Attachments: []Attachment{ImageAttachmentSlice("a", view, ImageAccessShaderWrite, whole)}})
	reader := newImplTask(1, TaskInfo{Name: "r", Attachments: []Attachment{ImageAttachmentSlice("a", view, ImageAccessShaderRead, narrow)}})

	if err := perm.addTask(writer, reg, pool); err != nil {
		t.Fatalf("addTask(writer) error: %v", err)
	}
	if err := perm.addTask(reader, reg, pool); err != nil {
		t.Fatalf("addTask(reader) error: %v", err)
	}

	scope := perm.currentScope()
	if len(scope.batches) != 2 {
		t.Fatalf("overlapping write/read should force a new batch, got %d batches", len(scope.batches))
	}
	barrier := scope.batches[1].pipelineBarrier
	if len(barrier.imageBarriers) != 1 {
		t.Fatalf("expected exactly 1 image barrier scoped to the overlap, got %d", len(barrier.imageBarriers))
	}
	if barrier.imageBarriers[0].slice != narrow {
		t.Errorf("barrier slice = %+v, want %+v (scoped to overlap, not whole resource)", barrier.imageBarriers[0].slice, narrow)
	}

	// The untouched remainder of the writer's slice (mips 0, 2, 3) should
	// still be live with its original write state so a later access to
	// mip 0 alone sees a hazard against the writer, not the narrow reader.
	state := perm.imageStates[0]
	var sawRemainder bool
	for _, live := range state.live {
		if live.slice.BaseMipLevel == 0 && live.concurrency == Exclusive {
			sawRemainder = true
		}
	}
	if !sawRemainder {
		t.Error("expected the writer's untouched mip-0 remainder to still be tracked as live")
	}
}
