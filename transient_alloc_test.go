package taskgraph

import (
	"testing"

	"github.com/gogpu/taskgraph/gpu"
)

func TestAllocateTransients_NoOverlapReusesMemory(t *testing.T) {
	buffers := []bufferSlot{
		{
			transient: TaskTransientBufferInfo{Name: "a", Size: 1024},
			memReq:    gpu.MemoryRequirements{Size: 1024, Alignment: 1, MemoryTypeBits: 0x3},
			lifetime:  resourceLifetime{valid: true, firstScope: 0, firstBatch: 0, lastScope: 0, lastBatch: 0},
		},
		{
			transient: TaskTransientBufferInfo{Name: "b", Size: 512},
			memReq:    gpu.MemoryRequirements{Size: 512, Alignment: 1, MemoryTypeBits: 0x2},
			lifetime:  resourceLifetime{valid: true, firstScope: 0, firstBatch: 1, lastScope: 0, lastBatch: 1},
		},
	}

	placements, blockSize, bits, err := allocateTransients(buffers, nil)
	if err != nil {
		t.Fatalf("allocateTransients returned error: %v", err)
	}
	if bits != 0x2 {
		t.Errorf("combined memory type bits = %#x, want %#x", bits, 0x2)
	}
	// b's lifetime starts after a's ends, so b should alias into a's
	// region rather than extending the block.
	if blockSize != 1024 {
		t.Errorf("blockSize = %d, want 1024 (b aliases into a's region)", blockSize)
	}
	if len(placements) != 2 {
		t.Fatalf("expected 2 placements, got %d", len(placements))
	}
}

func TestAllocateTransients_OverlappingLifetimesDontAlias(t *testing.T) {
	buffers := []bufferSlot{
		{
			transient: TaskTransientBufferInfo{Name: "a", Size: 1024},
			memReq:    gpu.MemoryRequirements{Size: 1024, Alignment: 1, MemoryTypeBits: 0x1},
			lifetime:  resourceLifetime{valid: true, firstScope: 0, firstBatch: 0, lastScope: 0, lastBatch: 2},
		},
		{
			transient: TaskTransientBufferInfo{Name: "b", Size: 512},
			memReq:    gpu.MemoryRequirements{Size: 512, Alignment: 1, MemoryTypeBits: 0x1},
			lifetime:  resourceLifetime{valid: true, firstScope: 0, firstBatch: 1, lastScope: 0, lastBatch: 1},
		},
	}

	_, blockSize, _, err := allocateTransients(buffers, nil)
	if err != nil {
		t.Fatalf("allocateTransients returned error: %v", err)
	}
	if blockSize != 1024+512 {
		t.Errorf("blockSize = %d, want %d (overlapping lifetimes must not alias)", blockSize, 1024+512)
	}
}

func TestAllocateTransients_EmptyMemoryTypeIntersection(t *testing.T) {
	buffers := []bufferSlot{
		{transient: TaskTransientBufferInfo{Name: "a", Size: 64}, memReq: gpu.MemoryRequirements{Size: 64, Alignment: 1, MemoryTypeBits: 0x1}},
		{transient: TaskTransientBufferInfo{Name: "b", Size: 64}, memReq: gpu.MemoryRequirements{Size: 64, Alignment: 1, MemoryTypeBits: 0x2}},
	}
	if _, _, _, err := allocateTransients(buffers, nil); err != ErrEmptyMemoryTypeBits {
		t.Errorf("allocateTransients error = %v, want ErrEmptyMemoryTypeBits", err)
	}
}

func TestAllocateTransients_SkipsPersistentSlots(t *testing.T) {
	buffers := []bufferSlot{
		{persistent: NewTaskBuffer(TaskBufferInfo{Name: "persistent"})},
	}
	placements, blockSize, _, err := allocateTransients(buffers, nil)
	if err != nil {
		t.Fatalf("allocateTransients returned error: %v", err)
	}
	if len(placements) != 0 || blockSize != 0 {
		t.Errorf("expected no placements for an all-persistent slot list, got %d placements, blockSize=%d", len(placements), blockSize)
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct{ v, align, want uint64 }{
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16},
		{17, 16, 32},
		{100, 1, 100},
	}
	for _, tt := range tests {
		if got := alignUp(tt.v, tt.align); got != tt.want {
			t.Errorf("alignUp(%d, %d) = %d, want %d", tt.v, tt.align, got, tt.want)
		}
	}
}
