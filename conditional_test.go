package taskgraph

import "testing"

func TestConditionalStack_PushPop(t *testing.T) {
	c := newConditionalStack()
	if err := c.push(3, true); err != nil {
		t.Fatalf("push(3, true) error: %v", err)
	}
	if c.depth() != 1 {
		t.Errorf("depth = %d, want 1", c.depth())
	}
	bits, mask := c.currentMask()
	if mask != 1<<3 || bits != 1<<3 {
		t.Errorf("currentMask = (%b, %b), want (%b, %b)", bits, mask, 1<<3, 1<<3)
	}

	if err := c.push(5, false); err != nil {
		t.Fatalf("push(5, false) error: %v", err)
	}
	bits, mask = c.currentMask()
	if mask != (1<<3)|(1<<5) {
		t.Errorf("mask after nesting = %b, want %b", mask, (1<<3)|(1<<5))
	}
	if bits != 1<<3 {
		t.Errorf("bits after nesting = %b, want %b (bit 5 should be clear)", bits, 1<<3)
	}

	if err := c.pop(); err != nil {
		t.Fatalf("pop() error: %v", err)
	}
	if c.depth() != 1 {
		t.Errorf("depth after pop = %d, want 1", c.depth())
	}
}

func TestConditionalStack_PopEmpty(t *testing.T) {
	c := newConditionalStack()
	if err := c.pop(); err == nil {
		t.Error("pop() on empty stack should return an error")
	}
}

func TestConditionalStack_OutOfRange(t *testing.T) {
	c := newConditionalStack()
	if err := c.push(31, true); err != ErrConditionalIDOutOfRange {
		t.Errorf("push(31, true) error = %v, want ErrConditionalIDOutOfRange", err)
	}
}

func TestConditionalStack_DuplicateID(t *testing.T) {
	c := newConditionalStack()
	if err := c.push(2, true); err != nil {
		t.Fatalf("first push error: %v", err)
	}
	if err := c.push(2, false); err == nil {
		t.Error("pushing the same conditional id twice should error")
	}
}

func TestTaskCondition_Matches(t *testing.T) {
	tc := taskCondition{bits: 1 << 2, mask: (1 << 2) | (1 << 4)}

	if !tc.matches(1 << 2) {
		t.Error("expected match: bit 2 set, bit 4 clear, as required")
	}
	if tc.matches(0) {
		t.Error("expected no match: bit 2 required but clear")
	}
	if tc.matches((1 << 2) | (1 << 4)) {
		t.Error("expected no match: bit 4 must be clear")
	}
	// Bits outside the mask are irrelevant.
	if !tc.matches((1 << 2) | (1 << 7)) {
		t.Error("expected match: unrelated bit 7 should not affect the result")
	}
}

func TestRecordActivePermutations(t *testing.T) {
	perms := recordActivePermutations(nil)
	if len(perms) != 1 || perms[0] != 0 {
		t.Fatalf("recordActivePermutations(nil) = %v, want [0]", perms)
	}

	perms = recordActivePermutations([]uint8{2, 5})
	if len(perms) != 4 {
		t.Fatalf("recordActivePermutations([2,5]) returned %d permutations, want 4", len(perms))
	}
	seen := map[uint32]bool{}
	for _, p := range perms {
		seen[p] = true
	}
	for _, want := range []uint32{0, 1 << 2, 1 << 5, (1 << 2) | (1 << 5)} {
		if !seen[want] {
			t.Errorf("missing expected permutation %b in %v", want, perms)
		}
	}
}
