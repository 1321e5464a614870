package taskgraph

import (
	"fmt"
	"strings"
)

// DebugString renders a compiled permutation as a human-readable,
// indented text tree of submit scopes, batches, tasks, and the barriers
// between them — a pure function over already-compiled state with no
// side effects (spec.md §4.7 Debug Printer).
func (g *TaskGraph) DebugString(mask uint32) (string, error) {
	if !g.compiled {
		return "", ErrNotCompiled
	}
	perm, ok := g.permutations[mask]
	if !ok {
		return "", ErrUnreachablePermutation
	}

	var b strings.Builder
	fmt.Fprintf(&b, "TaskGraph %q (permutation mask=%#x)\n", g.info.Name, mask)
	for scopeIdx, scope := range perm.scopes {
		fmt.Fprintf(&b, "  SubmitScope[%d]", scopeIdx)
		if scope.hasPresentImage {
			b.WriteString(" (presents swapchain)")
		}
		b.WriteString("\n")
		for batchIdx, batch := range scope.batches {
			fmt.Fprintf(&b, "    Batch[%d]\n", batchIdx)
			for _, sb := range batch.waitSplitBarriers {
				fmt.Fprintf(&b, "      wait split-barrier from scope %d batch %d (%d buffer, %d image transitions)\n",
					sb.signalScope, sb.signalBatch, len(sb.bufferBarriers), len(sb.imageBarriers))
			}
			if !batch.pipelineBarrier.empty() {
				fmt.Fprintf(&b, "      pipeline barrier (%d buffer, %d image transitions)\n",
					len(batch.pipelineBarrier.bufferBarriers), len(batch.pipelineBarrier.imageBarriers))
			}
			for _, taskID := range batch.tasks {
				task := g.recorded[taskID].task
				fmt.Fprintf(&b, "      task %q (%d attachments)\n", task.info.Name, len(task.info.Attachments))
				if g.info.RecordDebugInformation {
					for _, att := range task.info.Attachments {
						fmt.Fprintf(&b, "        %s\n", describeAttachment(att))
					}
				}
			}
			for _, sb := range batch.signalSplitBarriers {
				fmt.Fprintf(&b, "      signal split-barrier, waited at scope %d batch %d\n", sb.waitScope, sb.waitBatch)
			}
		}
	}
	return b.String(), nil
}

func describeAttachment(att Attachment) string {
	switch att.Kind {
	case AttachmentKindBuffer:
		return fmt.Sprintf("buffer %q access=%d", att.Name, att.BufferAccess)
	case AttachmentKindImage:
		if att.HasSliceOverride {
			return fmt.Sprintf("image %q access=%d slice=%+v", att.Name, att.ImageAccess, att.Slice)
		}
		return fmt.Sprintf("image %q access=%d", att.Name, att.ImageAccess)
	default:
		return "unknown attachment"
	}
}
