// Package svdag builds a hash-consed Sparse Voxel Directed Acyclic Graph
// from a flat 32^3 block-ID grid: the SVDAG builder, component D.
//
// Node layout follows the shared wire convention exactly: an inner node is
// the word run [0, mask, child_0, ..., child_{k-1}] where k = popcount(mask)
// and each child_i is the node index (word offset of that child's tag
// word) of the i-th set bit in mask, in ascending octant order. A leaf node
// is the two-word run [1, leaf_idx]. Octant i has bits (bit0=X, bit1=Y,
// bit2=Z); setting a bit selects the upper half of that axis, and builder
// and shader must agree on this bit-for-bit (see TestOctantConvention*).
//
// Structural deduplication mirrors the bitmask-plus-children packing idea
// in voxelrt/rt/volume/xbrickmap.go's Brick/Sector layout, generalized
// from that package's fixed 3-level brick/sector/micro hierarchy to a
// recursive depth-5 octree with a hash-consing table instead of a fixed
// array of sectors.
package svdag

import (
	"encoding/binary"

	"github.com/markaspall/svdagworld/internal/voxel"
)

const gridExtent = voxel.GridSize // 32 = 2^5, five levels of octant subdivision

// Graph is the deduplicated node/leaf buffer pair produced by Build.
// NodeCount and LeafCount are logical counts (one per node/leaf record),
// distinct from len(Nodes) (word count, since inner nodes are variable
// length) and len(Leaves) (which does equal LeafCount, kept separate for
// symmetry with the wire header).
type Graph struct {
	Nodes     []uint32
	Leaves    []uint32
	Root      uint32
	NodeCount uint32
	LeafCount uint32
}

// Empty reports whether the chunk voxelized to nothing but air: the
// empty-chunk fast path, encoded as node_count=0 with an undefined root.
func (g *Graph) Empty() bool {
	return g.NodeCount == 0
}

type builder struct {
	grid *voxel.VoxelGrid

	// innerDedup and leafNodeDedup are kept separate (rather than sharing
	// one string-keyed map) so an inner node's binary mask-plus-children
	// key can never collide with a leaf node's block-ID key.
	innerDedup     map[string]uint32
	leafNodeDedup  map[voxel.BlockID]uint32
	leafValueDedup map[voxel.BlockID]uint32

	graph Graph
}

// Build converts a 32^3 block-ID grid into a hash-consed SVDAG. An
// all-air grid returns an empty Graph (Empty() == true) per the spec's
// empty-chunk fast path.
func Build(grid *voxel.VoxelGrid) (*Graph, error) {
	b := &builder{
		grid:           grid,
		innerDedup:     make(map[string]uint32),
		leafNodeDedup:  make(map[voxel.BlockID]uint32),
		leafValueDedup: make(map[voxel.BlockID]uint32),
	}

	root, present := b.buildSubtree(0, 0, 0, gridExtent)
	if !present {
		return &Graph{}, nil
	}
	b.graph.Root = root
	return &b.graph, nil
}

// buildSubtree recursively builds the octree rooted at the cube
// [x0,y0,z0)+size in grid space. present is false when the entire cube is
// air, meaning the parent must omit this octant from its child mask.
func (b *builder) buildSubtree(x0, y0, z0, size int) (index uint32, present bool) {
	if size == 1 {
		return b.buildLeaf(x0, y0, z0)
	}

	half := size / 2
	var mask uint8
	var children []uint32

	for octant := 0; octant < 8; octant++ {
		cx := x0 + (octant&1)*half
		cy := y0 + ((octant>>1)&1)*half
		cz := z0 + ((octant>>2)&1)*half

		childIdx, ok := b.buildSubtree(cx, cy, cz, half)
		if !ok {
			continue
		}
		mask |= 1 << uint(octant)
		children = append(children, childIdx)
	}

	if mask == 0 {
		return 0, false
	}

	key := innerKey(mask, children)
	if idx, ok := b.innerDedup[key]; ok {
		return idx, true
	}

	idx := uint32(len(b.graph.Nodes))
	b.graph.Nodes = append(b.graph.Nodes, 0, uint32(mask))
	b.graph.Nodes = append(b.graph.Nodes, children...)
	b.graph.NodeCount++
	b.innerDedup[key] = idx
	return idx, true
}

func (b *builder) buildLeaf(x, y, z int) (index uint32, present bool) {
	blockID := b.grid.At(x, y, z)
	if blockID == voxel.AirBlock {
		return 0, false
	}

	if idx, ok := b.leafNodeDedup[blockID]; ok {
		return idx, true
	}

	leafIdx, ok := b.leafValueDedup[blockID]
	if !ok {
		leafIdx = uint32(len(b.graph.Leaves))
		b.graph.Leaves = append(b.graph.Leaves, blockID)
		b.graph.LeafCount++
		b.leafValueDedup[blockID] = leafIdx
	}

	idx := uint32(len(b.graph.Nodes))
	b.graph.Nodes = append(b.graph.Nodes, 1, leafIdx)
	b.graph.NodeCount++
	b.leafNodeDedup[blockID] = idx
	return idx, true
}

// innerKey canonicalizes an inner node for hash-consing: identical mask
// and identical child node indices (already themselves deduplicated)
// always produce an identical key, so structurally identical subtrees
// collapse to one node regardless of where in the grid they occur.
func innerKey(mask uint8, children []uint32) string {
	buf := make([]byte, 1+4*len(children))
	buf[0] = mask
	for i, c := range children {
		binary.LittleEndian.PutUint32(buf[1+4*i:], c)
	}
	return string(buf)
}
