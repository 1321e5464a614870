package taskgraph

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/gogpu/taskgraph/gpu"
)

// TaskGraphInfo configures a new TaskGraph (spec.md §6 "constructor
// parameters").
type TaskGraphInfo struct {
	Name string
	// Device is the opaque GPU collaborator the graph records commands
	// against and allocates transient resources from.
	Device gpu.Device
	// RecordDebugInformation makes the Debug Printer list every task's
	// attachments (name, access and slice override) under the task line
	// (spec.md §4.7).
	RecordDebugInformation bool
	// SwapchainAcquireSemaphore/SwapchainPresentSemaphore are the
	// binary semaphores used to synchronize a Present() call against the
	// windowing system, when the graph uses one (spec.md §4.3 present()).
	SwapchainAcquireSemaphore gpu.BinarySemaphore
	SwapchainPresentSemaphore gpu.BinarySemaphore
}

// recordedTask pairs a recorded task with the conditional mask it was
// declared under.
type recordedTask struct {
	task *implTask
	cond taskCondition
}

// TaskGraph is the public entry point: declare resources and tasks
// against it, Compile it once, then Execute it once per frame
// (spec.md §6 Public API).
type TaskGraph struct {
	info TaskGraphInfo
	// id distinguishes this graph instance in log output; two TaskGraphs
	// created with the same Name are still told apart in a shared log
	// stream (taskgraph: Compile/Execute entries below tag every record
	// with it).
	id     uuid.UUID
	reg    *registry
	cond   *conditionalStack
	events *eventPool

	recorded       []recordedTask
	submitMarkers  []int // recorded-task counts at which Submit() was called
	presentAfterScope int // index into submitMarkers+1 that requested Present; -1 if none
	tasksSinceLastSubmit int

	usedConditionalIDsSeen map[uint8]bool
	usedConditionalIDs     []uint8

	compiled     bool
	permutations map[uint32]*taskGraphPermutation
	activeMasks  []uint32

	transientPlacements []transientPlacement
	memoryBlock         gpu.MemoryBlock

	scratch *ScratchAllocator
}

// defaultScratchRingSize is the backing size of the per-graph scratch
// uniform-buffer ring every task's TaskInterface.Allocator() draws from
// (spec.md §6 "allocator for scratch uniform-buffer sub-allocations from
// a transient ring").
const defaultScratchRingSize = 1 << 20

// NewTaskGraph creates an empty graph ready for resource declarations
// and AddTask calls.
func NewTaskGraph(info TaskGraphInfo) *TaskGraph {
	return &TaskGraph{
		info:                   info,
		id:                     uuid.New(),
		reg:                    newRegistry(),
		cond:                   newConditionalStack(),
		events:                 newEventPool(info.Device),
		presentAfterScope:      -1,
		usedConditionalIDsSeen: make(map[uint8]bool),
	}
}

// UsePersistentBuffer registers a persistent buffer handle with this
// graph, returning the local view future AddTask calls reference.
// Idempotent per handle (spec.md §6).
func (g *TaskGraph) UsePersistentBuffer(b *TaskBuffer) (TaskBufferView, error) {
	if g.compiled {
		return TaskBufferView{}, ErrAlreadyCompiled
	}
	return g.reg.usePersistentBuffer(b), nil
}

// UsePersistentImage registers a persistent image handle.
func (g *TaskGraph) UsePersistentImage(img *TaskImage) (TaskImageView, error) {
	if g.compiled {
		return TaskImageView{}, ErrAlreadyCompiled
	}
	return g.reg.usePersistentImage(img), nil
}

// CreateTransientBuffer declares a new transient buffer.
func (g *TaskGraph) CreateTransientBuffer(info TaskTransientBufferInfo) (TaskBufferView, error) {
	if g.compiled {
		return TaskBufferView{}, ErrAlreadyCompiled
	}
	return g.reg.createTransientBuffer(info), nil
}

// CreateTransientImage declares a new transient image.
func (g *TaskGraph) CreateTransientImage(info TaskTransientImageInfo) (TaskImageView, error) {
	if g.compiled {
		return TaskImageView{}, ErrAlreadyCompiled
	}
	return g.reg.createTransientImage(info), nil
}

// If enters a conditional recording scope: tasks added before the
// matching EndIf are only included in permutations whose bit for id
// equals value (spec.md §4.6 Conditional Controller).
func (g *TaskGraph) If(id uint8, value bool) error {
	if g.compiled {
		return ErrAlreadyCompiled
	}
	if err := g.cond.push(id, value); err != nil {
		return err
	}
	if !g.usedConditionalIDsSeen[id] {
		g.usedConditionalIDsSeen[id] = true
		g.usedConditionalIDs = append(g.usedConditionalIDs, id)
	}
	return nil
}

// EndIf exits the innermost conditional recording scope.
func (g *TaskGraph) EndIf() error {
	if g.compiled {
		return ErrAlreadyCompiled
	}
	return g.cond.pop()
}

// AddTask records one task under the current conditional scope.
func (g *TaskGraph) AddTask(info TaskInfo) error {
	if g.compiled {
		return ErrAlreadyCompiled
	}
	for _, att := range info.Attachments {
		switch att.Kind {
		case AttachmentKindBuffer:
			if _, err := g.reg.bufferSlotOf(att.BufferView); err != nil {
				return err
			}
		case AttachmentKindImage:
			if _, err := g.reg.imageSlotOf(att.ImageView); err != nil {
				return err
			}
		}
	}
	bits, mask := g.cond.currentMask()
	task := newImplTask(len(g.recorded), info)
	g.recorded = append(g.recorded, recordedTask{task: task, cond: taskCondition{bits: bits, mask: mask}})
	g.tasksSinceLastSubmit++
	return nil
}

// Submit closes the current submit scope: every task recorded since the
// last Submit (or since graph creation) is grouped into one command-list
// submission (spec.md §4.3 submit()).
func (g *TaskGraph) Submit() error {
	if g.compiled {
		return ErrAlreadyCompiled
	}
	if g.tasksSinceLastSubmit == 0 && len(g.submitMarkers) > 0 {
		return ErrDoubleSubmitNoTasks
	}
	g.submitMarkers = append(g.submitMarkers, len(g.recorded))
	g.tasksSinceLastSubmit = 0
	return nil
}

// Present marks the current (about to be closed) submit scope as the one
// that presents the swapchain image after its submission completes
// (spec.md §4.3 present()).
func (g *TaskGraph) Present() error {
	if g.compiled {
		return ErrAlreadyCompiled
	}
	g.presentAfterScope = len(g.submitMarkers)
	return g.Submit()
}

// Compile freezes the graph's declarations, computes every reachable
// conditional permutation, places tasks into batches, synthesizes
// barriers, and assigns transient resources their backing memory
// (spec.md §6 compile()).
func (g *TaskGraph) Compile() error {
	if g.compiled {
		return ErrAlreadyCompiled
	}
	// Trailing tasks recorded after the last explicit Submit() need no
	// marker of their own: with no further marker to cross, the compile
	// loop below simply leaves them in whatever scope is still open.

	if err := validateNoCycles(g.recorded); err != nil {
		return newCompileError("dag-validation", "task ordering contains a resource-access cycle", err)
	}

	masks := recordActivePermutations(g.usedConditionalIDs)
	g.permutations = make(map[uint32]*taskGraphPermutation, len(masks))
	for _, mask := range masks {
		perm := newTaskGraphPermutation(mask, len(g.reg.buffers), len(g.reg.images))
		markerPos := 0
		for i, rt := range g.recorded {
			for markerPos < len(g.submitMarkers) && g.submitMarkers[markerPos] == i {
				if g.presentAfterScope == markerPos {
					scope := perm.scopes[len(perm.scopes)-1]
					scope.hasPresentImage = true
				}
				perm.newSubmitScope()
				markerPos++
			}
			if !rt.cond.matches(mask) {
				continue
			}
			if err := perm.addTask(rt.task, g.reg, g.events); err != nil {
				return newCompileError("batch-planning", fmt.Sprintf("task %q", rt.task.info.Name), err)
			}
		}
		for markerPos < len(g.submitMarkers) {
			if g.presentAfterScope == markerPos {
				scope := perm.scopes[len(perm.scopes)-1]
				scope.hasPresentImage = true
			}
			perm.newSubmitScope()
			markerPos++
		}
		g.permutations[mask] = perm
	}
	g.activeMasks = masks

	// The Transient Allocator needs each candidate's real MemoryRequirements
	// (size, alignment, memory-type bits) to place it, so the backing
	// gpu.Buffer/gpu.Image must exist before allocateTransients runs, not
	// after. Creation is cheap and unbound at this point; BindBufferMemory/
	// BindImageMemory only happens once a placement offset is known below.
	for i := range g.reg.buffers {
		slot := &g.reg.buffers[i]
		if slot.isPersistent() {
			continue
		}
		buf, memReq, err := g.info.Device.CreateBuffer(slot.transient.Size, slot.transient.Name)
		if err != nil {
			return newCompileError("transient-allocation", "CreateBuffer failed", err)
		}
		slot.runtime = buf
		slot.memReq = memReq
	}
	for i := range g.reg.images {
		slot := &g.reg.images[i]
		if slot.isPersistent() {
			continue
		}
		img, memReq, err := g.info.Device.CreateImage(slot.transient.Extent, slot.transient.Format, slot.transient.MipLevelCount, slot.transient.ArrayLayerCount, slot.transient.Name)
		if err != nil {
			return newCompileError("transient-allocation", "CreateImage failed", err)
		}
		slot.runtime = img
		slot.memReq = memReq
	}

	placements, blockSize, memBits, err := allocateTransients(g.reg.buffers, g.reg.images)
	if err != nil {
		return newCompileError("transient-allocation", "no compatible memory type across transient resources", err)
	}
	g.transientPlacements = placements

	if blockSize > 0 {
		block, err := g.info.Device.AllocateMemory(blockSize, memBits)
		if err != nil {
			return newCompileError("transient-allocation", "device memory allocation failed", err)
		}
		g.memoryBlock = block
		for _, p := range placements {
			if p.isBuffer {
				slot := &g.reg.buffers[p.index]
				if err := g.info.Device.BindBufferMemory(slot.runtime, block, p.offset); err != nil {
					return newCompileError("transient-allocation", "BindBufferMemory failed", err)
				}
			} else {
				slot := &g.reg.images[p.index]
				if err := g.info.Device.BindImageMemory(slot.runtime, block, p.offset); err != nil {
					return newCompileError("transient-allocation", "BindImageMemory failed", err)
				}
			}
		}
	}

	scratchBuf, scratchReq, err := g.info.Device.CreateBuffer(defaultScratchRingSize, g.info.Name+"-scratch-ring")
	if err != nil {
		return newCompileError("transient-allocation", "failed to create scratch ring buffer", err)
	}
	scratchBlock, err := g.info.Device.AllocateMemory(scratchReq.Size, scratchReq.MemoryTypeBits)
	if err != nil {
		return newCompileError("transient-allocation", "failed to allocate scratch ring memory", err)
	}
	if err := g.info.Device.BindBufferMemory(scratchBuf, scratchBlock, 0); err != nil {
		return newCompileError("transient-allocation", "failed to bind scratch ring memory", err)
	}
	g.scratch = NewScratchAllocator(scratchBuf)

	g.compiled = true
	logger().Debug("taskgraph: compiled",
		"graph", g.info.Name, "id", g.id,
		"permutations", len(g.permutations), "transient_bytes", blockSize)
	return nil
}

// ActiveMasks returns every conditional permutation mask Compile found
// reachable, in no particular order. A caller driving DebugString or
// Execute over every permutation (e.g. an offline inspection tool) uses
// this instead of re-deriving the power set itself.
func (g *TaskGraph) ActiveMasks() []uint32 {
	return g.activeMasks
}

// Destroy releases the graph's event pool back to the device. Call once
// the graph will no longer be executed.
func (g *TaskGraph) Destroy() {
	g.events.destroy()
}
