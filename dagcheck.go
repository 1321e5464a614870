package taskgraph

import (
	"fmt"

	"github.com/heimdalr/dag"
)

// taskVertex adapts a recorded task to heimdalr/dag's IDInterface.
type taskVertex struct {
	id int
}

func (v taskVertex) ID() string { return fmt.Sprintf("task-%d", v.id) }

// validateNoCycles builds a structural dependency graph over the
// recorded task list — an edge from every task to every later task that
// touches one of the same resource views — and asks heimdalr/dag to
// validate it. Task indices are already the intended execution order, so
// every edge runs forward and a cycle should be structurally
// impossible; this exists as a safety net against a future bug in task
// ordering rather than something well-formed input can trigger
// (spec.md §4.1 "DAG validation").
func validateNoCycles(recorded []recordedTask) error {
	d := dag.NewDAG()
	for i := range recorded {
		if err := d.AddVertex(taskVertex{id: i}); err != nil {
			return err
		}
	}

	lastWriter := make(map[localIndex]int)
	lastBufferReaders := make(map[localIndex][]int)
	lastImageWriter := make(map[localIndex]int)
	lastImageReaders := make(map[localIndex][]int)

	for i, rt := range recorded {
		for _, att := range rt.task.info.Attachments {
			switch att.Kind {
			case AttachmentKindBuffer:
				idx := att.BufferView.Index()
				_, conc, err := classifyBufferAccess(att.BufferAccess)
				if err != nil {
					return err
				}
				if w, ok := lastWriter[idx]; ok && w != i {
					if err := addDependencyEdge(d, w, i); err != nil {
						return err
					}
				}
				for _, r := range lastBufferReaders[idx] {
					if r != i {
						if err := addDependencyEdge(d, r, i); err != nil {
							return err
						}
					}
				}
				if conc == Exclusive {
					lastWriter[idx] = i
					lastBufferReaders[idx] = nil
				} else {
					lastBufferReaders[idx] = append(lastBufferReaders[idx], i)
				}
			case AttachmentKindImage:
				idx := att.ImageView.Index()
				_, _, conc, err := classifyImageAccess(att.ImageAccess)
				if err != nil {
					return err
				}
				if w, ok := lastImageWriter[idx]; ok && w != i {
					if err := addDependencyEdge(d, w, i); err != nil {
						return err
					}
				}
				for _, r := range lastImageReaders[idx] {
					if r != i {
						if err := addDependencyEdge(d, r, i); err != nil {
							return err
						}
					}
				}
				if conc == Exclusive {
					lastImageWriter[idx] = i
					lastImageReaders[idx] = nil
				} else {
					lastImageReaders[idx] = append(lastImageReaders[idx], i)
				}
			}
		}
	}
	return nil
}

func addDependencyEdge(d *dag.DAG, from, to int) error {
	src := taskVertex{id: from}.ID()
	dst := taskVertex{id: to}.ID()
	if err := d.AddEdge(src, dst); err != nil {
		if isBenignDAGError(err) {
			return nil
		}
		return err
	}
	return nil
}

// isBenignDAGError filters out heimdalr/dag's duplicate-edge diagnostics,
// which are expected when several attachments in one task re-reference
// the same producer and are not themselves a validation failure.
func isBenignDAGError(err error) bool {
	switch err.(type) {
	case dag.EdgeDuplicateError:
		return true
	default:
		return false
	}
}
