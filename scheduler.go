package taskgraph

import (
	"fmt"

	"github.com/gogpu/taskgraph/gpu"
)

// ConditionalValues supplies the runtime boolean for every conditional id
// used while recording, keyed by id (spec.md §4.6 "execute() selects a
// permutation by evaluating the active conditional set").
type ConditionalValues map[uint8]bool

// Execute replays the compiled permutation selected by values: for every
// submit scope it records barriers, split-barrier waits/signals, and
// task callbacks into a fresh command recorder, then submits it; the
// scope flagged by Present() is additionally presented (spec.md §4.5
// Scheduler & Emitter).
func (g *TaskGraph) Execute(values ConditionalValues) error {
	if !g.compiled {
		return ErrNotCompiled
	}
	mask := g.maskFromValues(values)
	perm, ok := g.permutations[mask]
	if !ok {
		return ErrUnreachablePermutation
	}
	logger().Debug("taskgraph: execute",
		"graph", g.info.Name, "id", g.id, "mask", mask, "scopes", len(perm.scopes))

	for scopeIdx, scope := range perm.scopes {
		recorder, err := g.info.Device.CreateCommandRecorder(scopeName(g.info.Name, scopeIdx))
		if err != nil {
			return newExecutionError(g.info.Name, "failed to create command recorder", err)
		}

		for batchIdx, batch := range scope.batches {
			if err := g.emitCrossFrameSeeds(recorder, scopeIdx, batchIdx); err != nil {
				return err
			}
			if err := g.emitWaits(recorder, batch); err != nil {
				return err
			}
			if err := g.emitPipelineBarrier(recorder, &batch.pipelineBarrier); err != nil {
				return err
			}
			for _, taskID := range batch.tasks {
				if err := g.runTask(recorder, g.recorded[taskID].task); err != nil {
					return err
				}
			}
			if err := g.emitSignals(recorder, batch); err != nil {
				return err
			}
		}

		list, err := recorder.Finish()
		if err != nil {
			return newExecutionError(g.info.Name, "command recorder Finish failed", err)
		}

		submit := gpu.SubmitInfo{CommandLists: []gpu.CommandList{list}}
		if scope.hasPresentImage && g.info.SwapchainAcquireSemaphore != nil {
			submit.Wait = append(submit.Wait, g.info.SwapchainAcquireSemaphore)
		}
		if scope.hasPresentImage && g.info.SwapchainPresentSemaphore != nil {
			submit.Signal = append(submit.Signal, g.info.SwapchainPresentSemaphore)
		}
		if err := g.info.Device.Queue().Submit(submit); err != nil {
			return newExecutionError(g.info.Name, "submit failed", err)
		}

		if scope.hasPresentImage {
			if err := g.present(); err != nil {
				return err
			}
		}
	}

	g.writebackPersistentState(perm)
	return nil
}

func scopeName(graphName string, idx int) string {
	if graphName == "" {
		return fmt.Sprintf("taskgraph-scope-%d", idx)
	}
	return fmt.Sprintf("%s-scope-%d", graphName, idx)
}

// maskFromValues restricts the caller-supplied conditional values down to
// the bits this graph actually recorded, so unrelated map entries are
// silently ignored.
func (g *TaskGraph) maskFromValues(values ConditionalValues) uint32 {
	var mask uint32
	for _, id := range g.usedConditionalIDs {
		if values[id] {
			mask |= 1 << id
		}
	}
	return mask
}

// emitCrossFrameSeeds inserts, before the batch where a persistent
// resource's lifetime starts, a one-off barrier transitioning from
// whatever state the handle was left in by a previous Execute call
// (spec.md invariant 6). The lifetime start and the first access are
// recorded per slot during Compile and shared by every permutation.
func (g *TaskGraph) emitCrossFrameSeeds(recorder gpu.CommandRecorder, scopeIdx, batchIdx int) error {
	var bufBarriers []gpu.BufferBarrier
	var imgBarriers []gpu.ImageBarrier

	for i := range g.reg.buffers {
		slot := &g.reg.buffers[i]
		if !slot.isPersistent() || !slot.firstAccessSet {
			continue
		}
		if slot.lifetime.firstScope != scopeIdx || slot.lifetime.firstBatch != batchIdx {
			continue
		}
		pb := slot.persistent
		if !pb.latestAccessValid {
			continue
		}
		bufs, err := g.reg.getActualBuffers(newViewID[taskBufferMarker](localIndex(i)))
		if err != nil {
			return err
		}
		for _, b := range bufs {
			bufBarriers = append(bufBarriers, gpu.BufferBarrier{
				Buffer:    b,
				SrcStage:  pb.latestAccess.Stage,
				DstStage:  slot.firstAccess.Stage,
				SrcAccess: pb.latestAccess.Access,
				DstAccess: slot.firstAccess.Access,
			})
		}
	}

	for i := range g.reg.images {
		slot := &g.reg.images[i]
		if !slot.isPersistent() {
			continue
		}
		for _, fa := range slot.firstAccess {
			if slot.lifetime.firstScope != scopeIdx || slot.lifetime.firstBatch != batchIdx {
				continue
			}
			pi := slot.persistent
			prior := findOverlappingSliceState(pi.latestSliceStates, fa.slice)
			if prior == nil {
				continue
			}
			imgs, err := g.reg.getActualImages(newViewID[taskImageMarker](localIndex(i)))
			if err != nil {
				return err
			}
			for _, im := range imgs {
				imgBarriers = append(imgBarriers, gpu.ImageBarrier{
					Image:        im,
					Slice:        fa.slice,
					SrcStage:     prior.access.Stage,
					DstStage:     fa.access.Stage,
					SrcAccess:    prior.access.Access,
					DstAccess:    fa.access.Access,
					LayoutBefore: prior.layout,
					LayoutAfter:  fa.layout,
				})
			}
		}
	}

	if len(bufBarriers) == 0 && len(imgBarriers) == 0 {
		return nil
	}
	recorder.PipelineBarrier(bufBarriers, imgBarriers)
	return nil
}

func findOverlappingSliceState(states []imageSliceState, slice gpu.MipArraySlice) *imageSliceState {
	for i := range states {
		if states[i].slice.Intersects(slice) {
			return &states[i]
		}
	}
	return nil
}

func (g *TaskGraph) emitWaits(recorder gpu.CommandRecorder, batch *taskBatch) error {
	for _, sb := range batch.waitSplitBarriers {
		bufs, imgs, err := g.resolvePlannedBarriers(sb.bufferBarriers, sb.imageBarriers)
		if err != nil {
			return err
		}
		recorder.WaitEvents([]gpu.Event{sb.event}, bufs, imgs)
	}
	return nil
}

func (g *TaskGraph) emitSignals(recorder gpu.CommandRecorder, batch *taskBatch) error {
	for _, sb := range batch.signalSplitBarriers {
		bufs, imgs, err := g.resolvePlannedBarriers(sb.bufferBarriers, sb.imageBarriers)
		if err != nil {
			return err
		}
		recorder.SignalEvent(sb.event, bufs, imgs)
	}
	return nil
}

func (g *TaskGraph) emitPipelineBarrier(recorder gpu.CommandRecorder, pb *taskBarrier) error {
	if pb.empty() {
		return nil
	}
	bufs, imgs, err := g.resolvePlannedBarriers(pb.bufferBarriers, pb.imageBarriers)
	if err != nil {
		return err
	}
	recorder.PipelineBarrier(bufs, imgs)
	return nil
}

func (g *TaskGraph) resolvePlannedBarriers(plannedBufs []*plannedBufferBarrier, plannedImgs []*plannedImageBarrier) ([]gpu.BufferBarrier, []gpu.ImageBarrier, error) {
	var bufs []gpu.BufferBarrier
	for _, pb := range plannedBufs {
		resolved, err := g.reg.getActualBuffers(pb.view)
		if err != nil {
			return nil, nil, err
		}
		for _, b := range resolved {
			bufs = append(bufs, gpu.BufferBarrier{
				Buffer: b, SrcStage: pb.srcStage, DstStage: pb.dstStage,
				SrcAccess: pb.srcAccess, DstAccess: pb.dstAccess,
			})
		}
	}
	var imgs []gpu.ImageBarrier
	for _, pi := range plannedImgs {
		resolved, err := g.reg.getActualImages(pi.view)
		if err != nil {
			return nil, nil, err
		}
		for _, im := range resolved {
			imgs = append(imgs, gpu.ImageBarrier{
				Image: im, Slice: pi.slice, SrcStage: pi.srcStage, DstStage: pi.dstStage,
				SrcAccess: pi.srcAccess, DstAccess: pi.dstAccess,
				LayoutBefore: pi.layoutBefore, LayoutAfter: pi.layoutAfter,
			})
		}
	}
	return bufs, imgs, nil
}

// runTask resolves a task's attachments to runtime resources, refreshing
// its image-view cache only when the backing images changed since the
// last execution (spec.md §4.5 "Image-view cache").
func (g *TaskGraph) runTask(recorder gpu.CommandRecorder, task *implTask) error {
	runtimes := make([]AttachmentRuntime, len(task.info.Attachments))
	for i, att := range task.info.Attachments {
		switch att.Kind {
		case AttachmentKindBuffer:
			bufs, err := g.reg.getActualBuffers(att.BufferView)
			if err != nil {
				return err
			}
			runtimes[i] = AttachmentRuntime{Buffers: bufs}
		case AttachmentKindImage:
			slot, err := g.reg.imageSlotOf(att.ImageView)
			if err != nil {
				return err
			}
			slice := resolveImageSlice(att, slot)
			imgs, err := g.reg.getActualImages(att.ImageView)
			if err != nil {
				return err
			}
			views, err := g.resolveImageViews(task, i, imgs, slice)
			if err != nil {
				return err
			}
			runtimes[i] = AttachmentRuntime{Images: imgs, ImageViews: views, Slice: slice}
		}
	}

	ti := &TaskInterface{
		recorder: recorder,
		device:   g.info.Device,
		task:     task,
		runtimes: runtimes,
		alloc:    g.scratch,
	}
	if err := task.info.Callback(ti); err != nil {
		return newExecutionError(task.info.Name, "task callback failed", err)
	}
	return nil
}

func (g *TaskGraph) resolveImageViews(task *implTask, attIdx int, imgs []gpu.Image, slice gpu.MipArraySlice) ([]gpu.ImageView, error) {
	if sameImages(task.runtimeImagesLastExec[attIdx], imgs) && task.imageViewCache[attIdx] != nil {
		return task.imageViewCache[attIdx], nil
	}
	views := make([]gpu.ImageView, len(imgs))
	for i, img := range imgs {
		v, err := g.info.Device.CreateImageView(img, slice, task.info.Name)
		if err != nil {
			return nil, newExecutionError(task.info.Name, "CreateImageView failed", err)
		}
		views[i] = v
	}
	task.imageViewCache[attIdx] = views
	task.runtimeImagesLastExec[attIdx] = imgs
	return views, nil
}

func sameImages(a, b []gpu.Image) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// present issues the swapchain present call for the current execution,
// once the submission flagged by Present() has completed.
func (g *TaskGraph) present() error {
	var presentImage gpu.Image
	for i := range g.reg.images {
		slot := &g.reg.images[i]
		if slot.isPersistent() && slot.persistent.info.Swapchain && len(slot.persistent.actual) > 0 {
			presentImage = slot.persistent.actual[0]
			break
		}
	}
	if presentImage == nil {
		return newExecutionError(g.info.Name, "Present scope reached but no swapchain image is registered", gpu.ErrSwapchainImageEmpty)
	}
	info := gpu.PresentInfo{Image: presentImage}
	if g.info.SwapchainPresentSemaphore != nil {
		info.Wait = append(info.Wait, g.info.SwapchainPresentSemaphore)
	}
	return g.info.Device.Queue().Present(info)
}

// writebackPersistentState stores each persistent resource's final
// access state from this execution so the next Execute's
// emitCrossFrameSeeds can synchronize against it.
func (g *TaskGraph) writebackPersistentState(perm *taskGraphPermutation) {
	for i := range g.reg.buffers {
		slot := &g.reg.buffers[i]
		if !slot.isPersistent() {
			continue
		}
		st := perm.bufferStates[i]
		if !st.hasAccess {
			continue
		}
		slot.persistent.latestAccess = st.access
		slot.persistent.latestConcurrency = st.concurrency
		slot.persistent.latestAccessValid = true
	}
	for i := range g.reg.images {
		slot := &g.reg.images[i]
		if !slot.isPersistent() {
			continue
		}
		live := perm.imageStates[i].live
		states := make([]imageSliceState, len(live))
		for j, l := range live {
			states[j] = imageSliceState{slice: l.slice, layout: l.layout, access: l.access}
		}
		slot.persistent.latestSliceStates = states
	}
}
