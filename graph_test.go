package taskgraph

import (
	"testing"

	"github.com/gogpu/taskgraph/gpu/gputest"
)

func TestTaskGraph_WriteThenReadEmitsBarrier(t *testing.T) {
	device := gputest.NewDevice()
	g := NewTaskGraph(TaskGraphInfo{Name: "write-then-read", Device: device})

	buf, err := g.CreateTransientBuffer(TaskTransientBufferInfo{Name: "scratch", Size: 256})
	if err != nil {
		t.Fatalf("CreateTransientBuffer error: %v", err)
	}

	var ranProducer, ranConsumer bool
	if err := g.AddTask(TaskInfo{
		Name:        "producer",
		Attachments: []Attachment{BufferAttachment("out", buf, BufferAccessShaderWrite)},
		Callback:    func(*TaskInterface) error { ranProducer = true; return nil },
	}); err != nil {
		t.Fatalf("AddTask(producer) error: %v", err)
	}
	if err := g.AddTask(TaskInfo{
		Name:        "consumer",
		Attachments: []Attachment{BufferAttachment("in", buf, BufferAccessShaderRead)},
		Callback:    func(*TaskInterface) error { ranConsumer = true; return nil },
	}); err != nil {
		t.Fatalf("AddTask(consumer) error: %v", err)
	}

	if err := g.Compile(); err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if err := g.Execute(nil); err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if !ranProducer || !ranConsumer {
		t.Errorf("expected both task callbacks to run, got producer=%v consumer=%v", ranProducer, ranConsumer)
	}

	var sawBarrier bool
	for _, r := range device.Recorders {
		if len(r.PipelineBarriers) > 0 {
			sawBarrier = true
		}
	}
	if !sawBarrier {
		t.Error("expected at least one pipeline barrier between the write and the read")
	}
}

func TestTaskGraph_ConditionalTaskOnlyRunsWhenTrue(t *testing.T) {
	device := gputest.NewDevice()
	g := NewTaskGraph(TaskGraphInfo{Name: "conditional", Device: device})

	buf, err := g.CreateTransientBuffer(TaskTransientBufferInfo{Name: "scratch", Size: 64})
	if err != nil {
		t.Fatalf("CreateTransientBuffer error: %v", err)
	}

	var ranConditional int
	if err := g.If(0, true); err != nil {
		t.Fatalf("If error: %v", err)
	}
	if err := g.AddTask(TaskInfo{
		Name:        "maybe",
		Attachments: []Attachment{BufferAttachment("b", buf, BufferAccessShaderWrite)},
		Callback:    func(*TaskInterface) error { ranConditional++; return nil },
	}); err != nil {
		t.Fatalf("AddTask error: %v", err)
	}
	if err := g.EndIf(); err != nil {
		t.Fatalf("EndIf error: %v", err)
	}

	if err := g.Compile(); err != nil {
		t.Fatalf("Compile error: %v", err)
	}

	if err := g.Execute(ConditionalValues{0: false}); err != nil {
		t.Fatalf("Execute(false) error: %v", err)
	}
	if ranConditional != 0 {
		t.Errorf("task ran %d times with conditional false, want 0", ranConditional)
	}

	if err := g.Execute(ConditionalValues{0: true}); err != nil {
		t.Fatalf("Execute(true) error: %v", err)
	}
	if ranConditional != 1 {
		t.Errorf("task ran %d times with conditional true, want 1", ranConditional)
	}
}

func TestTaskGraph_CompileTwiceErrors(t *testing.T) {
	device := gputest.NewDevice()
	g := NewTaskGraph(TaskGraphInfo{Name: "double-compile", Device: device})
	if err := g.Compile(); err != nil {
		t.Fatalf("first Compile error: %v", err)
	}
	if err := g.Compile(); err != ErrAlreadyCompiled {
		t.Errorf("second Compile error = %v, want ErrAlreadyCompiled", err)
	}
}

func TestTaskGraph_ExecuteBeforeCompileErrors(t *testing.T) {
	device := gputest.NewDevice()
	g := NewTaskGraph(TaskGraphInfo{Name: "not-compiled", Device: device})
	if err := g.Execute(nil); err != ErrNotCompiled {
		t.Errorf("Execute before Compile error = %v, want ErrNotCompiled", err)
	}
}

func TestTaskGraph_PersistentBufferUnsetErrorsAtExecute(t *testing.T) {
	device := gputest.NewDevice()
	g := NewTaskGraph(TaskGraphInfo{Name: "unset-persistent", Device: device})

	handle := NewTaskBuffer(TaskBufferInfo{Name: "missing"})
	view, err := g.UsePersistentBuffer(handle)
	if err != nil {
		t.Fatalf("UsePersistentBuffer error: %v", err)
	}
	if err := g.AddTask(TaskInfo{
		Name:        "reads-missing",
		Attachments: []Attachment{BufferAttachment("b", view, BufferAccessShaderRead)},
		Callback:    func(*TaskInterface) error { return nil },
	}); err != nil {
		t.Fatalf("AddTask error: %v", err)
	}
	if err := g.Compile(); err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if err := g.Execute(nil); err == nil {
		t.Error("expected Execute to fail: persistent buffer was never given a backing handle")
	}
}

func TestTaskGraph_SubmitAcrossScopesForcesSplitBarrier(t *testing.T) {
	device := gputest.NewDevice()
	g := NewTaskGraph(TaskGraphInfo{Name: "cross-scope", Device: device})

	buf, err := g.CreateTransientBuffer(TaskTransientBufferInfo{Name: "scratch", Size: 64})
	if err != nil {
		t.Fatalf("CreateTransientBuffer error: %v", err)
	}
	if err := g.AddTask(TaskInfo{
		Name:        "producer",
		Attachments: []Attachment{BufferAttachment("out", buf, BufferAccessShaderWrite)},
		Callback:    func(*TaskInterface) error { return nil },
	}); err != nil {
		t.Fatalf("AddTask(producer) error: %v", err)
	}
	if err := g.Submit(); err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if err := g.AddTask(TaskInfo{
		Name:        "consumer",
		Attachments: []Attachment{BufferAttachment("in", buf, BufferAccessShaderRead)},
		Callback:    func(*TaskInterface) error { return nil },
	}); err != nil {
		t.Fatalf("AddTask(consumer) error: %v", err)
	}

	if err := g.Compile(); err != nil {
		t.Fatalf("Compile error: %v", err)
	}

	perm := g.permutations[0]
	if len(perm.scopes) != 2 {
		t.Fatalf("expected 2 submit scopes, got %d", len(perm.scopes))
	}
	var sawSplit bool
	for _, scope := range perm.scopes {
		for _, batch := range scope.batches {
			if len(batch.signalSplitBarriers) > 0 || len(batch.waitSplitBarriers) > 0 {
				sawSplit = true
			}
		}
	}
	if !sawSplit {
		t.Error("expected a split barrier crossing the submit-scope boundary")
	}
}
