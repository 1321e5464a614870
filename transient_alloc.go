package taskgraph

import (
	"sort"

	"github.com/gogpu/taskgraph/gpu"
)

// transientPlacement is one resource's assigned offset within the shared
// backing memory block (spec.md §4.4 Transient Allocator).
type transientPlacement struct {
	isBuffer bool
	index    localIndex
	offset   uint64
	size     uint64
}

// allocateTransients assigns byte offsets to every transient buffer and
// image slot, aliasing memory between resources whose lifetimes never
// overlap (spec.md §4.4 "first-fit by lifetime, largest-first"). It
// returns the combined memory-type bitmask and the total block size the
// caller must allocate and bind every placement into.
//
// Algorithm: sort all transient resources by first-use order, ties
// broken by descending size (placing the biggest, earliest-needed
// resources first tends to minimize fragmentation in a simple first-fit
// scheme). Then walk the list, tracking a set of (offset, size, lastUse)
// intervals already placed; a new resource reuses the first interval
// whose occupant's lifetime ended before the new resource's first use,
// otherwise it is appended at the end of the block.
func allocateTransients(buffers []bufferSlot, images []imageSlot) ([]transientPlacement, uint64, uint32, error) {
	type candidate struct {
		isBuffer bool
		index    localIndex
		memReq   gpu.MemoryRequirements
		lifetime resourceLifetime
	}

	var candidates []candidate
	var combinedBits uint32
	first := true

	for i := range buffers {
		s := &buffers[i]
		if s.isPersistent() {
			continue
		}
		candidates = append(candidates, candidate{isBuffer: true, index: localIndex(i), memReq: s.memReq, lifetime: s.lifetime})
		combinedBits = intersectBits(combinedBits, s.memReq.MemoryTypeBits, &first)
	}
	for i := range images {
		s := &images[i]
		if s.isPersistent() {
			continue
		}
		candidates = append(candidates, candidate{isBuffer: false, index: localIndex(i), memReq: s.memReq, lifetime: s.lifetime})
		combinedBits = intersectBits(combinedBits, s.memReq.MemoryTypeBits, &first)
	}

	if len(candidates) == 0 {
		return nil, 0, 0, nil
	}
	if combinedBits == 0 {
		return nil, 0, 0, ErrEmptyMemoryTypeBits
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.lifetime.firstScope != b.lifetime.firstScope {
			return a.lifetime.firstScope < b.lifetime.firstScope
		}
		if a.lifetime.firstBatch != b.lifetime.firstBatch {
			return a.lifetime.firstBatch < b.lifetime.firstBatch
		}
		return a.memReq.Size > b.memReq.Size
	})

	type liveRegion struct {
		offset, size uint64
		lastScope, lastBatch int
	}
	var regions []liveRegion
	var blockEnd uint64

	placements := make([]transientPlacement, 0, len(candidates))

	for _, c := range candidates {
		align := c.memReq.Alignment
		if align == 0 {
			align = 1
		}

		placed := false
		for i := range regions {
			r := &regions[i]
			if r.size < c.memReq.Size {
				continue
			}
			if !combinedBatchLess(r.lastScope, r.lastBatch, c.lifetime.firstScope, c.lifetime.firstBatch) {
				continue
			}
			offset := alignUp(r.offset, align)
			if offset+c.memReq.Size > r.offset+r.size {
				continue
			}
			placements = append(placements, transientPlacement{isBuffer: c.isBuffer, index: c.index, offset: offset, size: c.memReq.Size})
			r.lastScope, r.lastBatch = c.lifetime.lastScope, c.lifetime.lastBatch
			placed = true
			break
		}
		if placed {
			continue
		}

		offset := alignUp(blockEnd, align)
		placements = append(placements, transientPlacement{isBuffer: c.isBuffer, index: c.index, offset: offset, size: c.memReq.Size})
		regions = append(regions, liveRegion{offset: offset, size: c.memReq.Size, lastScope: c.lifetime.lastScope, lastBatch: c.lifetime.lastBatch})
		blockEnd = offset + c.memReq.Size
	}

	return placements, blockEnd, combinedBits, nil
}

func intersectBits(acc, bits uint32, first *bool) uint32 {
	if *first {
		*first = false
		return bits
	}
	return acc & bits
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) / align * align
}
