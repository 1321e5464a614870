// Package gpu defines the narrow set of external collaborator interfaces
// and vocabulary types the task graph consumes. It never creates a device,
// buffer, or pipeline itself — those live in a separate GPU-object wrapper
// layer that is outside the scope of this module. Implementations of these
// interfaces (Vulkan, DX12, or a test double) are supplied by the caller.
package gpu

// PipelineStage is a bitmask of GPU pipeline stages, used to scope barriers
// to the stages that actually produce or consume a resource.
type PipelineStage uint32

const (
	StageNone PipelineStage = 0
	StageTop  PipelineStage = 1 << iota
	StageDrawIndirect
	StageVertexInput
	StageVertexShader
	StageFragmentShader
	StageEarlyFragmentTests
	StageLateFragmentTests
	StageColorAttachmentOutput
	StageComputeShader
	StageTransfer
	StageBottom
	StageHost
	StageAllGraphics
	StageAllCommands
)

// Access is a bitmask of memory access types performed during a pipeline
// stage. Combined with a PipelineStage it fully describes a hazard-tracking
// unit, matching the (stage_mask, access_mask) pair in spec.md §4.2.
type Access uint32

const (
	AccessNone Access = 0
	AccessIndirectCommandRead Access = 1 << iota
	AccessIndexRead
	AccessVertexAttributeRead
	AccessUniformRead
	AccessShaderRead
	AccessShaderWrite
	AccessColorAttachmentRead
	AccessColorAttachmentWrite
	AccessDepthStencilAttachmentRead
	AccessDepthStencilAttachmentWrite
	AccessTransferRead
	AccessTransferWrite
	AccessHostRead
	AccessHostWrite
	AccessMemoryRead
	AccessMemoryWrite
)

// AccessAndStage bundles the stage and access mask a single declared
// attachment intent resolves to; this is the tuple the Access Classifier
// (spec.md §4.2) produces.
type AccessAndStage struct {
	Stage  PipelineStage
	Access Access
}

// Union returns the bitwise union of two access/stage pairs, used when
// coalescing a read-after-read chain (spec.md §4.3 invariant 3) into a
// single barrier whose dst mask covers every reader.
func (a AccessAndStage) Union(b AccessAndStage) AccessAndStage {
	return AccessAndStage{Stage: a.Stage | b.Stage, Access: a.Access | b.Access}
}

// IsReadOnly reports whether the access mask contains no write bits.
// Mirrors core/track.BufferUses.IsReadOnly's write-mask check.
func (a Access) IsReadOnly() bool {
	const writeMask = AccessShaderWrite | AccessColorAttachmentWrite |
		AccessDepthStencilAttachmentWrite | AccessTransferWrite |
		AccessHostWrite | AccessMemoryWrite
	return a&writeMask == 0
}

// ImageLayout is the subset of Vulkan-style image layouts the task graph
// needs to reason about for transition barriers.
type ImageLayout uint32

const (
	ImageLayoutUndefined ImageLayout = iota
	ImageLayoutGeneral
	ImageLayoutColorAttachmentOptimal
	ImageLayoutDepthStencilAttachmentOptimal
	ImageLayoutShaderReadOnlyOptimal
	ImageLayoutTransferSrcOptimal
	ImageLayoutTransferDstOptimal
	ImageLayoutPresentSrc
)

// Format identifies a buffer/image element format. Only the handful of
// task-graph-relevant facts (byte size, whether it has a depth/stencil
// aspect) are modeled; encoding-level detail is the wrapper layer's job.
type Format uint32

const (
	FormatUndefined Format = iota
	FormatR8Unorm
	FormatRGBA8Unorm
	FormatRGBA16Float
	FormatRGBA32Float
	FormatDepth32Float
	FormatDepth24PlusStencil8
)

// MipArraySlice identifies a sub-range of an image's mip levels and array
// layers — the unit the Permutation Planner tracks per-slice state at
// (spec.md §3 "Per-permutation per-resource state", §4.3's slice
// intersection rule).
type MipArraySlice struct {
	BaseMipLevel    uint32
	MipLevelCount   uint32
	BaseArrayLayer  uint32
	ArrayLayerCount uint32
}

// Contains reports whether s fully contains other.
func (s MipArraySlice) Contains(other MipArraySlice) bool {
	return other.BaseMipLevel >= s.BaseMipLevel &&
		other.BaseMipLevel+other.MipLevelCount <= s.BaseMipLevel+s.MipLevelCount &&
		other.BaseArrayLayer >= s.BaseArrayLayer &&
		other.BaseArrayLayer+other.ArrayLayerCount <= s.BaseArrayLayer+s.ArrayLayerCount
}

// Intersects reports whether s and other share any mip/array range.
func (s MipArraySlice) Intersects(other MipArraySlice) bool {
	mipOverlap := s.BaseMipLevel < other.BaseMipLevel+other.MipLevelCount &&
		other.BaseMipLevel < s.BaseMipLevel+s.MipLevelCount
	layerOverlap := s.BaseArrayLayer < other.BaseArrayLayer+other.ArrayLayerCount &&
		other.BaseArrayLayer < s.BaseArrayLayer+s.ArrayLayerCount
	return mipOverlap && layerOverlap
}

// Intersect returns the overlapping sub-range of s and other.
// Callers must check Intersects first.
func (s MipArraySlice) Intersect(other MipArraySlice) MipArraySlice {
	baseMip := max(s.BaseMipLevel, other.BaseMipLevel)
	endMip := min(s.BaseMipLevel+s.MipLevelCount, other.BaseMipLevel+other.MipLevelCount)
	baseLayer := max(s.BaseArrayLayer, other.BaseArrayLayer)
	endLayer := min(s.BaseArrayLayer+s.ArrayLayerCount, other.BaseArrayLayer+other.ArrayLayerCount)
	return MipArraySlice{
		BaseMipLevel:    baseMip,
		MipLevelCount:   endMip - baseMip,
		BaseArrayLayer:  baseLayer,
		ArrayLayerCount: endLayer - baseLayer,
	}
}

// Subtract returns the sub-ranges of s not covered by other. It only
// splits along the mip axis, which is sufficient for the task graph's
// per-slice bookkeeping (images are rarely partitioned across both axes
// within one graph).
func (s MipArraySlice) Subtract(other MipArraySlice) []MipArraySlice {
	if !s.Intersects(other) {
		return []MipArraySlice{s}
	}
	var out []MipArraySlice
	if s.BaseMipLevel < other.BaseMipLevel {
		out = append(out, MipArraySlice{
			BaseMipLevel:    s.BaseMipLevel,
			MipLevelCount:   other.BaseMipLevel - s.BaseMipLevel,
			BaseArrayLayer:  s.BaseArrayLayer,
			ArrayLayerCount: s.ArrayLayerCount,
		})
	}
	sEnd := s.BaseMipLevel + s.MipLevelCount
	oEnd := other.BaseMipLevel + other.MipLevelCount
	if sEnd > oEnd {
		out = append(out, MipArraySlice{
			BaseMipLevel:    oEnd,
			MipLevelCount:   sEnd - oEnd,
			BaseArrayLayer:  s.BaseArrayLayer,
			ArrayLayerCount: s.ArrayLayerCount,
		})
	}
	return out
}

// Extent3D is a 3D size, reused verbatim from the teacher's HAL command
// vocabulary (hal/command.go) for transient image create-info.
type Extent3D struct {
	Width              uint32
	Height             uint32
	DepthOrArrayLayers uint32
}
