// Command taskgraph-inspect loads a JSON-recorded task-graph description
// and prints its compiled batch/barrier structure via the Debug Printer.
// The JSON format is intentionally small: it exists to let a host
// program dump what it recorded for offline inspection, not to describe
// arbitrary GPU resource state.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/gogpu/taskgraph"
	"github.com/gogpu/taskgraph/gpu/gputest"
)

// recordedGraphFile is the on-disk shape taskgraph-inspect reads: just
// enough to reconstruct task/attachment structure for planning, with
// every GPU-side create-info replaced by fake in-memory placeholders via
// gputest.Device, since no real device is available offline.
type recordedGraphFile struct {
	Name  string          `json:"name"`
	Tasks []recordedTaskJSON `json:"tasks"`
}

type recordedTaskJSON struct {
	Name        string               `json:"name"`
	Attachments []attachmentJSON     `json:"attachments"`
}

type attachmentJSON struct {
	Kind   string `json:"kind"` // "buffer" | "image"
	Name   string `json:"name"`
	Access string `json:"access"`
	Buffer string `json:"buffer,omitempty"`
	Image  string `json:"image,omitempty"`
}

func main() {
	app := &cli.App{
		Name:  "taskgraph-inspect",
		Usage: "print the compiled batch/barrier structure of a recorded task graph",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "path to a recorded graph JSON file"},
			&cli.Uint64Flag{Name: "mask", Value: 0, Usage: "conditional permutation bitmask to print"},
		},
		Action: inspect,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "taskgraph-inspect:", err)
		os.Exit(1)
	}
}

func inspect(c *cli.Context) error {
	raw, err := os.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("read %s: %w", c.String("file"), err)
	}
	var rec recordedGraphFile
	if err := json.Unmarshal(raw, &rec); err != nil {
		return fmt.Errorf("parse %s: %w", c.String("file"), err)
	}

	device := gputest.NewDevice()
	graph := taskgraph.NewTaskGraph(taskgraph.TaskGraphInfo{Name: rec.Name, Device: device, RecordDebugInformation: true})

	buffers := map[string]taskgraph.TaskBufferView{}
	images := map[string]taskgraph.TaskImageView{}
	bufferOf := func(name string) (taskgraph.TaskBufferView, error) {
		if v, ok := buffers[name]; ok {
			return v, nil
		}
		v, err := graph.CreateTransientBuffer(taskgraph.TaskTransientBufferInfo{Name: name, Size: 65536})
		if err != nil {
			return taskgraph.TaskBufferView{}, err
		}
		buffers[name] = v
		return v, nil
	}
	imageOf := func(name string) (taskgraph.TaskImageView, error) {
		if v, ok := images[name]; ok {
			return v, nil
		}
		v, err := graph.CreateTransientImage(taskgraph.TaskTransientImageInfo{Name: name, MipLevelCount: 1, ArrayLayerCount: 1})
		if err != nil {
			return taskgraph.TaskImageView{}, err
		}
		images[name] = v
		return v, nil
	}

	for _, t := range rec.Tasks {
		var atts []taskgraph.Attachment
		for _, a := range t.Attachments {
			switch a.Kind {
			case "buffer":
				v, err := bufferOf(firstNonEmpty(a.Buffer, a.Name))
				if err != nil {
					return err
				}
				atts = append(atts, taskgraph.BufferAttachment(a.Name, v, parseBufferAccess(a.Access)))
			case "image":
				v, err := imageOf(firstNonEmpty(a.Image, a.Name))
				if err != nil {
					return err
				}
				atts = append(atts, taskgraph.ImageAttachment(a.Name, v, parseImageAccess(a.Access)))
			default:
				return fmt.Errorf("task %q: unknown attachment kind %q", t.Name, a.Kind)
			}
		}
		if err := graph.AddTask(taskgraph.TaskInfo{
			Name:        t.Name,
			Attachments: atts,
			Callback:    func(*taskgraph.TaskInterface) error { return nil },
		}); err != nil {
			return fmt.Errorf("task %q: %w", t.Name, err)
		}
	}

	if err := graph.Compile(); err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	mask := uint32(c.Uint64("mask"))
	out, err := graph.DebugString(mask)
	if err != nil {
		return fmt.Errorf("debug print (mask=%#x, active masks=%v): %w", mask, graph.ActiveMasks(), err)
	}
	fmt.Print(out)
	return nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func parseBufferAccess(s string) taskgraph.BufferAccess {
	switch s {
	case "indirect_read":
		return taskgraph.BufferAccessIndirectRead
	case "index_read":
		return taskgraph.BufferAccessIndexRead
	case "vertex_read":
		return taskgraph.BufferAccessVertexRead
	case "uniform_read":
		return taskgraph.BufferAccessUniformRead
	case "shader_write":
		return taskgraph.BufferAccessShaderWrite
	case "shader_read_write":
		return taskgraph.BufferAccessShaderReadWrite
	case "transfer_read":
		return taskgraph.BufferAccessTransferRead
	case "transfer_write":
		return taskgraph.BufferAccessTransferWrite
	default:
		return taskgraph.BufferAccessShaderRead
	}
}

func parseImageAccess(s string) taskgraph.ImageAccess {
	switch s {
	case "shader_write":
		return taskgraph.ImageAccessShaderWrite
	case "shader_read_write":
		return taskgraph.ImageAccessShaderReadWrite
	case "color_attachment_read":
		return taskgraph.ImageAccessColorAttachmentRead
	case "color_attachment_write":
		return taskgraph.ImageAccessColorAttachmentWrite
	case "depth_stencil_read":
		return taskgraph.ImageAccessDepthStencilAttachmentRead
	case "depth_stencil_write":
		return taskgraph.ImageAccessDepthStencilAttachmentWrite
	case "transfer_read":
		return taskgraph.ImageAccessTransferRead
	case "transfer_write":
		return taskgraph.ImageAccessTransferWrite
	case "present":
		return taskgraph.ImageAccessPresent
	default:
		return taskgraph.ImageAccessShaderRead
	}
}
