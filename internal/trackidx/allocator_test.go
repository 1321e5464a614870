package trackidx

import "testing"

func TestIndex_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		index Index
		want  bool
	}{
		{"zero is valid", Index(0), true},
		{"positive is valid", Index(100), true},
		{"invalid index", Invalid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.index.IsValid(); got != tt.want {
				t.Errorf("Index(%d).IsValid() = %v, want %v", tt.index, got, tt.want)
			}
		})
	}
}

func TestAllocator_Alloc(t *testing.T) {
	a := NewAllocator()

	if idx := a.Alloc(); idx != 0 {
		t.Errorf("first alloc = %d, want 0", idx)
	}
	if idx := a.Alloc(); idx != 1 {
		t.Errorf("second alloc = %d, want 1", idx)
	}
	if idx := a.Alloc(); idx != 2 {
		t.Errorf("third alloc = %d, want 2", idx)
	}
}

func TestAllocator_FreeReuse(t *testing.T) {
	a := NewAllocator()

	idx0 := a.Alloc()
	idx1 := a.Alloc()
	_ = a.Alloc()

	a.Free(idx1)
	if got := a.Size(); got != 2 {
		t.Errorf("Size() after free = %d, want 2", got)
	}

	// Reused index should be the just-freed one (LIFO).
	reused := a.Alloc()
	if reused != idx1 {
		t.Errorf("Alloc() after free = %d, want reused idx %d", reused, idx1)
	}

	a.Free(idx0)
	a.Free(Invalid) // no-op, must not panic
	if got := a.Size(); got != 2 {
		t.Errorf("Size() after second free = %d, want 2", got)
	}
}

func TestAllocator_HighWaterMark(t *testing.T) {
	a := NewAllocator()
	if hw := a.HighWaterMark(); hw != Invalid {
		t.Errorf("HighWaterMark() on empty allocator = %d, want Invalid", hw)
	}

	a.Alloc()
	a.Alloc()
	if hw := a.HighWaterMark(); hw != 1 {
		t.Errorf("HighWaterMark() = %d, want 1", hw)
	}
}
