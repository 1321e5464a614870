package taskgraph

// taskBatch is the smallest schedulable unit within a submit scope: a
// set of tasks whose declared attachments are pairwise hazard-free, so
// the emitter can record them into one command recorder without an
// intervening barrier (spec.md §3 TaskBatch, §4.3).
type taskBatch struct {
	tasks []int // implTask.id values, in AddTask order

	// pipelineBarrier holds the ordinary (non-split) transitions that
	// must execute before this batch's tasks run.
	pipelineBarrier taskBarrier

	// waitSplitBarriers are split barriers whose wait-half lands at the
	// start of this batch.
	waitSplitBarriers []*taskSplitBarrier

	// signalSplitBarriers are split barriers whose signal-half is
	// recorded at the end of this batch.
	signalSplitBarriers []*taskSplitBarrier
}

func newTaskBatch() *taskBatch {
	return &taskBatch{}
}

// taskBatchSubmitScope groups the consecutive batches recorded between
// two explicit Submit() calls. Everything in one scope is recorded into
// a single command list and submitted together (spec.md §3
// TaskBatchSubmitScope, §4.3 submit()).
type taskBatchSubmitScope struct {
	batches []*taskBatch

	// hasPresentImage marks this scope as the one that must present the
	// swapchain image after its submit completes. The emitter resolves
	// which image and semaphores that entails directly against the
	// registry and TaskGraphInfo at Execute() time.
	hasPresentImage bool
}

func newTaskBatchSubmitScope() *taskBatchSubmitScope {
	return &taskBatchSubmitScope{batches: []*taskBatch{newTaskBatch()}}
}

// currentBatch returns the scope's last batch, the one AddTask appends
// into by default.
func (s *taskBatchSubmitScope) currentBatch() *taskBatch {
	return s.batches[len(s.batches)-1]
}

// newBatch appends and returns a fresh empty batch, used when the
// planner determines the next task cannot join the current batch
// without a hazard (spec.md §4.3 "batch placement").
func (s *taskBatchSubmitScope) newBatch() *taskBatch {
	b := newTaskBatch()
	s.batches = append(s.batches, b)
	return b
}

// batchIndex returns the index of b within the scope's batch list, or -1
// if not found. Used by the planner to measure inter-batch distance for
// the split-barrier upgrade decision (splitsAcrossBatches).
func (s *taskBatchSubmitScope) batchIndex(b *taskBatch) int {
	for i, candidate := range s.batches {
		if candidate == b {
			return i
		}
	}
	return -1
}
