package taskgraph

import "github.com/gogpu/taskgraph/gpu"

// permBufferState is the per-permutation, per-buffer-slot state the
// planner synchronizes new accesses against (spec.md §4.3 "Per-
// permutation per-resource state").
type permBufferState struct {
	hasAccess   bool
	access      gpu.AccessAndStage
	concurrency Concurrency
	scope, batch int

	// barrier is the transition barrier that synchronized the most
	// recent access into this state, or nil if this state's access
	// needed none (e.g. the resource's first touch). A later access
	// that coalesces onto this state without needing its own barrier
	// (a compatible concurrent read joining a read already
	// synchronized) back-patches barrier's dst mask through this
	// pointer instead of leaving the original reader under-covered
	// (spec.md §3 "latest_concurrent_access_barrier_index", §8
	// property 2).
	barrier *plannedBufferBarrier
}

// imageLiveState is one entry in an image slot's list of currently-live
// subresource states (spec.md §3 "images store a list of currently-live
// slice-states", §4.3 slice intersection rule).
type imageLiveState struct {
	slice       gpu.MipArraySlice
	access      gpu.AccessAndStage
	layout      gpu.ImageLayout
	concurrency Concurrency
	scope, batch int

	// barrier mirrors permBufferState.barrier for one live subresource
	// slice: the barrier (if any) that synchronized this slice's
	// current access, back-patched when a later compatible read
	// coalesces onto it instead of needing a barrier of its own.
	barrier *plannedImageBarrier
}

// permImageState holds every live slice-state for one image slot.
type permImageState struct {
	live []imageLiveState
}

// taskGraphPermutation is one compiled execution path through the graph:
// a linear sequence of submit scopes/batches plus the resource state the
// planner accumulated while placing tasks into them (spec.md §4.3
// TaskGraphPermutation).
type taskGraphPermutation struct {
	mask uint32

	bufferStates []permBufferState
	imageStates  []permImageState

	scopes []*taskBatchSubmitScope
}

func newTaskGraphPermutation(mask uint32, bufferCount, imageCount int) *taskGraphPermutation {
	return &taskGraphPermutation{
		mask:         mask,
		bufferStates: make([]permBufferState, bufferCount),
		imageStates:  make([]permImageState, imageCount),
		scopes:       []*taskBatchSubmitScope{newTaskBatchSubmitScope()},
	}
}

func (p *taskGraphPermutation) currentScopeIndex() int { return len(p.scopes) - 1 }
func (p *taskGraphPermutation) currentScope() *taskBatchSubmitScope {
	return p.scopes[len(p.scopes)-1]
}

// newSubmitScope starts a fresh submit scope, called when submit() is
// invoked while recording (spec.md §4.3 submit()).
func (p *taskGraphPermutation) newSubmitScope() {
	p.scopes = append(p.scopes, newTaskBatchSubmitScope())
}

// compatible reports whether two accesses to the same resource/slice can
// share a batch without a barrier: both must be Concurrent (spec.md
// invariant 3 "read-after-read requires no barrier").
func compatible(aConc, bConc Concurrency) bool {
	return aConc == Concurrent && bConc == Concurrent
}

// resolveImageSlice returns the subresource range an attachment applies
// to, defaulting to the whole image when the attachment didn't narrow it
// (spec.md §3 TaskImageView "optionally narrowed").
func resolveImageSlice(att Attachment, slot *imageSlot) gpu.MipArraySlice {
	if att.HasSliceOverride {
		return att.Slice
	}
	return slot.wholeSlice()
}

// addTask places one task into the permutation's current submit scope,
// synchronizing each declared attachment against this permutation's
// accumulated resource state and emitting whatever pipeline or split
// barriers the hazard requires (spec.md §4.3, the Permutation Planner's
// central algorithm).
func (p *taskGraphPermutation) addTask(task *implTask, reg *registry, pool *eventPool) error {
	scopeIdx := p.currentScopeIndex()
	scope := p.currentScope()

	// Pass 1: does any attachment conflict with something already placed
	// in the current batch? If so the task must start a new batch instead
	// of joining it (spec.md §4.3 "batch placement").
	forceNewBatch, err := p.hasSameBatchHazard(task, reg, scopeIdx, len(scope.batches)-1)
	if err != nil {
		return err
	}
	targetBatch := scope.currentBatch()
	targetBatchIdx := len(scope.batches) - 1
	if forceNewBatch {
		targetBatch = scope.newBatch()
		targetBatchIdx++
	}

	// Pass 2: resolve every attachment against prior state, emitting
	// barriers as needed and updating state to this task's access.
	for _, att := range task.info.Attachments {
		switch att.Kind {
		case AttachmentKindBuffer:
			if err := p.resolveBufferAttachment(att, reg, pool, scopeIdx, targetBatchIdx, targetBatch); err != nil {
				return err
			}
		case AttachmentKindImage:
			if err := p.resolveImageAttachment(att, reg, pool, scopeIdx, targetBatchIdx, targetBatch); err != nil {
				return err
			}
		}
	}

	targetBatch.tasks = append(targetBatch.tasks, task.id)
	return nil
}

// hasSameBatchHazard reports whether placing task's attachments in
// scope's batch batchIdx would conflict with that batch's own
// in-progress accesses (recorded as the resource's latest state, when
// that state's location is exactly this batch).
func (p *taskGraphPermutation) hasSameBatchHazard(task *implTask, reg *registry, scopeIdx, batchIdx int) (bool, error) {
	for _, att := range task.info.Attachments {
		switch att.Kind {
		case AttachmentKindBuffer:
			_, conc, err := classifyBufferAccess(att.BufferAccess)
			if err != nil {
				return false, err
			}
			st := &p.bufferStates[att.BufferView.Index()]
			if st.hasAccess && st.scope == scopeIdx && st.batch == batchIdx && !compatible(conc, st.concurrency) {
				return true, nil
			}
		case AttachmentKindImage:
			_, layout, conc, err := classifyImageAccess(att.ImageAccess)
			if err != nil {
				return false, err
			}
			slot, err := reg.imageSlotOf(att.ImageView)
			if err != nil {
				return false, err
			}
			reqSlice := resolveImageSlice(att, slot)
			state := &p.imageStates[att.ImageView.Index()]
			for _, live := range state.live {
				if live.scope == scopeIdx && live.batch == batchIdx && live.slice.Intersects(reqSlice) &&
					(!compatible(conc, live.concurrency) || live.layout != layout) {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

// resolveBufferAttachment synchronizes one buffer attachment against its
// slot's last recorded access and updates that state in place.
func (p *taskGraphPermutation) resolveBufferAttachment(att Attachment, reg *registry, pool *eventPool, scopeIdx, batchIdx int, batch *taskBatch) error {
	access, conc, err := classifyBufferAccess(att.BufferAccess)
	if err != nil {
		return err
	}
	slot, err := reg.bufferSlotOf(att.BufferView)
	if err != nil {
		return err
	}
	if !slot.lifetime.valid {
		slot.firstAccessSet = true
		slot.firstAccess = access
		slot.firstConcurrency = conc
	}
	slot.lifetime.extend(scopeIdx, batchIdx)

	st := &p.bufferStates[att.BufferView.Index()]
	if !st.hasAccess {
		*st = permBufferState{hasAccess: true, access: access, concurrency: conc, scope: scopeIdx, batch: batchIdx}
		return nil
	}

	if compatible(conc, st.concurrency) {
		// Coalescing onto an already-synchronized read: no new barrier is
		// needed, but the barrier that got this resource into a readable
		// state must now also cover this reader's stage/access, or this
		// reader runs with no synchronization at all (spec.md §8
		// property 2 "dst_access is the union of all readers").
		if st.barrier != nil {
			st.barrier.dstStage |= access.Stage
			st.barrier.dstAccess |= access.Access
		}
		st.access = st.access.Union(access)
		st.scope, st.batch = scopeIdx, batchIdx
		return nil
	}

	barrierBuf := &plannedBufferBarrier{
		view:      att.BufferView,
		srcStage:  st.access.Stage,
		dstStage:  access.Stage,
		srcAccess: st.access.Access,
		dstAccess: access.Access,
	}
	if err := p.emitBarrier(pool, st.scope, st.batch, scopeIdx, batchIdx, batch, taskBarrier{bufferBarriers: []*plannedBufferBarrier{barrierBuf}}); err != nil {
		return err
	}

	*st = permBufferState{hasAccess: true, access: access, concurrency: conc, scope: scopeIdx, batch: batchIdx, barrier: barrierBuf}
	return nil
}

// resolveImageAttachment is the image analogue of resolveBufferAttachment,
// additionally handling subresource slice intersection and splitting
// (spec.md §4.3's slice intersection rule, scenario S3).
func (p *taskGraphPermutation) resolveImageAttachment(att Attachment, reg *registry, pool *eventPool, scopeIdx, batchIdx int, batch *taskBatch) error {
	access, layout, conc, err := classifyImageAccess(att.ImageAccess)
	if err != nil {
		return err
	}
	slot, err := reg.imageSlotOf(att.ImageView)
	if err != nil {
		return err
	}
	reqSlice := resolveImageSlice(att, slot)
	if !slot.lifetime.valid {
		slot.firstAccess = append(slot.firstAccess, imageLiveState{
			slice: reqSlice, access: access, layout: layout, concurrency: conc,
		})
	}
	slot.lifetime.extend(scopeIdx, batchIdx)

	state := &p.imageStates[att.ImageView.Index()]
	var untouched []imageLiveState
	var coalescedBarrier, hazardBarrier *plannedImageBarrier

	for _, live := range state.live {
		if !live.slice.Intersects(reqSlice) {
			untouched = append(untouched, live)
			continue
		}
		overlap := live.slice.Intersect(reqSlice)
		sameLayout := live.layout == layout
		if compatible(conc, live.concurrency) && sameLayout {
			// Compatible concurrent access over the same layout: no new
			// barrier, but the barrier that already synchronized this
			// overlap's prior access must now also cover this reader's
			// stage/access, or this reader runs unsynchronized (spec.md §8
			// property 2 "dst_access is the union of all readers"). The
			// barrier pointer carries forward onto the merged entry below
			// so a further coalescing read keeps extending the same mask.
			if live.barrier != nil {
				live.barrier.dstStage |= access.Stage
				live.barrier.dstAccess |= access.Access
			}
			coalescedBarrier = live.barrier
			for _, remainder := range live.slice.Subtract(overlap) {
				untouched = append(untouched, imageLiveState{
					slice: remainder, access: live.access, layout: live.layout,
					concurrency: live.concurrency, scope: live.scope, batch: live.batch, barrier: live.barrier,
				})
			}
			continue
		}

		// Hazard: emit a barrier scoped to exactly the overlapping
		// subresource range, then drop the overlapping portion of the
		// old entry (remainder keeps its prior state untouched).
		imgBarrier := &plannedImageBarrier{
			view:         att.ImageView,
			slice:        overlap,
			srcStage:     live.access.Stage,
			dstStage:     access.Stage,
			srcAccess:    live.access.Access,
			dstAccess:    access.Access,
			layoutBefore: live.layout,
			layoutAfter:  layout,
		}
		if err := p.emitBarrier(pool, live.scope, live.batch, scopeIdx, batchIdx, batch, taskBarrier{imageBarriers: []*plannedImageBarrier{imgBarrier}}); err != nil {
			return err
		}
		hazardBarrier = imgBarrier
		for _, remainder := range live.slice.Subtract(overlap) {
			untouched = append(untouched, imageLiveState{
				slice: remainder, access: live.access, layout: live.layout,
				concurrency: live.concurrency, scope: live.scope, batch: live.batch, barrier: live.barrier,
			})
		}
	}

	newBarrier := coalescedBarrier
	if hazardBarrier != nil {
		newBarrier = hazardBarrier
	}
	untouched = append(untouched, imageLiveState{
		slice: reqSlice, access: access, layout: layout,
		concurrency: conc, scope: scopeIdx, batch: batchIdx, barrier: newBarrier,
	})
	state.live = untouched
	return nil
}

// emitBarrier records either an ordinary pipeline barrier (producer and
// consumer are the same batch or adjacent batches in the same submit
// scope) or a split barrier (producer and consumer are far enough apart
// to overlap other GPU work profitably), per splitsAcrossBatches.
func (p *taskGraphPermutation) emitBarrier(pool *eventPool, producerScope, producerBatch, consumerScope, consumerBatch int, consumerBatchPtr *taskBatch, partial taskBarrier) error {
	if producerScope == consumerScope && producerBatch == consumerBatch {
		// hasSameBatchHazard moves a task that conflicts with an earlier
		// task of the current batch into a new batch, so producer and
		// consumer share a batch here only when one task declares the same
		// resource more than once with conflicting accesses. No barrier is
		// emitted for that case.
		return nil
	}
	if !splitsAcrossBatches(producerScope, producerBatch, consumerScope, consumerBatch) {
		consumerBatchPtr.pipelineBarrier.bufferBarriers = append(consumerBatchPtr.pipelineBarrier.bufferBarriers, partial.bufferBarriers...)
		consumerBatchPtr.pipelineBarrier.imageBarriers = append(consumerBatchPtr.pipelineBarrier.imageBarriers, partial.imageBarriers...)
		return nil
	}

	event, err := pool.acquire()
	if err != nil {
		return err
	}
	sb := &taskSplitBarrier{
		event:          event,
		signalScope:    producerScope,
		signalBatch:    producerBatch,
		waitScope:      consumerScope,
		waitBatch:      consumerBatch,
		bufferBarriers: partial.bufferBarriers,
		imageBarriers:  partial.imageBarriers,
	}
	producerScopeObj := p.scopes[producerScope]
	producerScopeObj.batches[producerBatch].signalSplitBarriers = append(producerScopeObj.batches[producerBatch].signalSplitBarriers, sb)
	consumerBatchPtr.waitSplitBarriers = append(consumerBatchPtr.waitSplitBarriers, sb)
	return nil
}
