package taskgraph

import "github.com/gogpu/taskgraph/gpu"

// Concurrency classifies whether an access can run alongside other
// accesses of the same kind without synchronization (spec.md §4.2).
type Concurrency uint8

const (
	// Concurrent accesses (reads) are compatible with any other
	// Concurrent access to the same resource/slice.
	Concurrent Concurrency = iota
	// Exclusive accesses (writes, read-writes) require synchronization
	// against every other access to the same resource/slice.
	Exclusive
)

func (c Concurrency) String() string {
	if c == Concurrent {
		return "CONCURRENT"
	}
	return "EXCLUSIVE"
}

// BufferAccess enumerates the buffer access intents a task attachment can
// declare (spec.md §4.2).
type BufferAccess uint8

const (
	BufferAccessNone BufferAccess = iota
	BufferAccessIndirectRead
	BufferAccessIndexRead
	BufferAccessVertexRead
	BufferAccessUniformRead
	BufferAccessShaderRead
	BufferAccessShaderWrite
	BufferAccessShaderReadWrite
	BufferAccessTransferRead
	BufferAccessTransferWrite
)

// ImageAccess enumerates the image access intents a task attachment can
// declare (spec.md §4.2). Each resolves to a required ImageLayout in
// addition to a stage/access mask and concurrency.
type ImageAccess uint8

const (
	ImageAccessNone ImageAccess = iota
	ImageAccessShaderRead
	ImageAccessShaderWrite
	ImageAccessShaderReadWrite
	ImageAccessColorAttachmentRead
	ImageAccessColorAttachmentWrite
	ImageAccessDepthStencilAttachmentRead
	ImageAccessDepthStencilAttachmentWrite
	ImageAccessTransferRead
	ImageAccessTransferWrite
	ImageAccessPresent
)

// classifyBufferAccess is the pure mapping from a declared buffer intent to
// the (stage+access, concurrency) tuple the planner synchronizes against.
// Grounded on the read/write split in the teacher's
// core/track.BufferUses.IsReadOnly.
func classifyBufferAccess(a BufferAccess) (gpu.AccessAndStage, Concurrency, error) {
	switch a {
	case BufferAccessIndirectRead:
		return gpu.AccessAndStage{Stage: gpu.StageDrawIndirect, Access: gpu.AccessIndirectCommandRead}, Concurrent, nil
	case BufferAccessIndexRead:
		return gpu.AccessAndStage{Stage: gpu.StageVertexInput, Access: gpu.AccessIndexRead}, Concurrent, nil
	case BufferAccessVertexRead:
		return gpu.AccessAndStage{Stage: gpu.StageVertexInput, Access: gpu.AccessVertexAttributeRead}, Concurrent, nil
	case BufferAccessUniformRead:
		return gpu.AccessAndStage{Stage: gpu.StageAllGraphics | gpu.StageComputeShader, Access: gpu.AccessUniformRead}, Concurrent, nil
	case BufferAccessShaderRead:
		return gpu.AccessAndStage{Stage: gpu.StageComputeShader, Access: gpu.AccessShaderRead}, Concurrent, nil
	case BufferAccessShaderWrite:
		return gpu.AccessAndStage{Stage: gpu.StageComputeShader, Access: gpu.AccessShaderWrite}, Exclusive, nil
	case BufferAccessShaderReadWrite:
		return gpu.AccessAndStage{Stage: gpu.StageComputeShader, Access: gpu.AccessShaderRead | gpu.AccessShaderWrite}, Exclusive, nil
	case BufferAccessTransferRead:
		return gpu.AccessAndStage{Stage: gpu.StageTransfer, Access: gpu.AccessTransferRead}, Concurrent, nil
	case BufferAccessTransferWrite:
		return gpu.AccessAndStage{Stage: gpu.StageTransfer, Access: gpu.AccessTransferWrite}, Exclusive, nil
	default:
		return gpu.AccessAndStage{}, Concurrent, ErrUnknownAccessIntent
	}
}

// classifyImageAccess additionally resolves the required ImageLayout.
func classifyImageAccess(a ImageAccess) (gpu.AccessAndStage, gpu.ImageLayout, Concurrency, error) {
	switch a {
	case ImageAccessShaderRead:
		return gpu.AccessAndStage{Stage: gpu.StageComputeShader | gpu.StageFragmentShader, Access: gpu.AccessShaderRead},
			gpu.ImageLayoutGeneral, Concurrent, nil
	case ImageAccessShaderWrite:
		return gpu.AccessAndStage{Stage: gpu.StageComputeShader | gpu.StageFragmentShader, Access: gpu.AccessShaderWrite},
			gpu.ImageLayoutGeneral, Exclusive, nil
	case ImageAccessShaderReadWrite:
		return gpu.AccessAndStage{Stage: gpu.StageComputeShader | gpu.StageFragmentShader, Access: gpu.AccessShaderRead | gpu.AccessShaderWrite},
			gpu.ImageLayoutGeneral, Exclusive, nil
	case ImageAccessColorAttachmentRead:
		return gpu.AccessAndStage{Stage: gpu.StageColorAttachmentOutput, Access: gpu.AccessColorAttachmentRead},
			gpu.ImageLayoutColorAttachmentOptimal, Concurrent, nil
	case ImageAccessColorAttachmentWrite:
		return gpu.AccessAndStage{Stage: gpu.StageColorAttachmentOutput, Access: gpu.AccessColorAttachmentWrite},
			gpu.ImageLayoutColorAttachmentOptimal, Exclusive, nil
	case ImageAccessDepthStencilAttachmentRead:
		return gpu.AccessAndStage{Stage: gpu.StageEarlyFragmentTests | gpu.StageLateFragmentTests, Access: gpu.AccessDepthStencilAttachmentRead},
			gpu.ImageLayoutDepthStencilAttachmentOptimal, Concurrent, nil
	case ImageAccessDepthStencilAttachmentWrite:
		return gpu.AccessAndStage{Stage: gpu.StageEarlyFragmentTests | gpu.StageLateFragmentTests, Access: gpu.AccessDepthStencilAttachmentWrite},
			gpu.ImageLayoutDepthStencilAttachmentOptimal, Exclusive, nil
	case ImageAccessTransferRead:
		return gpu.AccessAndStage{Stage: gpu.StageTransfer, Access: gpu.AccessTransferRead},
			gpu.ImageLayoutTransferSrcOptimal, Concurrent, nil
	case ImageAccessTransferWrite:
		return gpu.AccessAndStage{Stage: gpu.StageTransfer, Access: gpu.AccessTransferWrite},
			gpu.ImageLayoutTransferDstOptimal, Exclusive, nil
	case ImageAccessPresent:
		return gpu.AccessAndStage{Stage: gpu.StageBottom, Access: gpu.AccessNone},
			gpu.ImageLayoutPresentSrc, Concurrent, nil
	default:
		return gpu.AccessAndStage{}, gpu.ImageLayoutUndefined, Concurrent, ErrUnknownAccessIntent
	}
}
