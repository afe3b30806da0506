package gpu

import "github.com/markaspall/svdagworld/internal/voxel"

// MetaGridDim is the edge length of the meta-grid cube, in meta-cells;
// each meta-cell covers a 4x4x4 region of chunks.
const MetaGridDim = 16

// MetaGridCells is the flat cell count, 16^3.
const MetaGridCells = MetaGridDim * MetaGridDim * MetaGridDim

// metaCellStride is the chunk span of one meta-cell along an axis.
const metaCellStride = 4

// metaGridOrigin centers the grid on the camera chunk: cell 8 along each
// axis is the camera's own meta-cell.
const metaGridOrigin = MetaGridDim / 2

// metaTrivialNodeCount is the node-count threshold at or below which a
// chunk is "trivial" for meta-grid purposes. svdag.Build gives an all-air
// chunk zero nodes and any chunk holding a solid voxel at least six (a
// leaf plus five inner levels), so in practice only empty chunks count.
const metaTrivialNodeCount = 1

// MetaCellIndex maps a chunk coordinate, relative to the camera's chunk,
// to a flat meta-grid index. Reports false if the chunk falls outside
// the grid's centered 16-cell span along any axis.
func MetaCellIndex(coord, cameraChunk voxel.ChunkCoord) (int, bool) {
	mx := floorDiv4(coord.X) - floorDiv4(cameraChunk.X) + metaGridOrigin
	my := floorDiv4(coord.Y) - floorDiv4(cameraChunk.Y) + metaGridOrigin
	mz := floorDiv4(coord.Z) - floorDiv4(cameraChunk.Z) + metaGridOrigin
	if mx < 0 || mx >= MetaGridDim || my < 0 || my >= MetaGridDim || mz < 0 || mz >= MetaGridDim {
		return 0, false
	}
	return int(mz)*MetaGridDim*MetaGridDim + int(my)*MetaGridDim + int(mx), true
}

func floorDiv4(v int32) int32 {
	if v >= 0 {
		return v / metaCellStride
	}
	return -((-v + metaCellStride - 1) / metaCellStride)
}

// chunksPerMetaCell is the full 4x4x4 chunk population of one meta-cell;
// a cell is only eligible to be marked skippable once every chunk in its
// region is accounted for, so a partially-loaded cell stays conservative
// (1) exactly like a wholly-unloaded one.
const chunksPerMetaCell = metaCellStride * metaCellStride * metaCellStride

// BuildMetaGrid rebuilds the 16^3 skip grid from the current set of
// loaded chunks' node counts, centered on cameraChunk. Per spec §4.K,
// unknown (nothing loaded there yet) cells default to 1 — never skip a
// region the client hasn't confirmed empty, since that would punch
// holes through unloaded or not-yet-evaluated geometry.
func BuildMetaGrid(nodeCounts map[voxel.ChunkCoord]uint32, cameraChunk voxel.ChunkCoord) [MetaGridCells]uint8 {
	var grid [MetaGridCells]uint8
	for i := range grid {
		grid[i] = 1
	}

	loadedCount := make(map[int]int, len(nodeCounts))
	nonTrivial := make(map[int]bool, len(nodeCounts))
	for coord, nodes := range nodeCounts {
		idx, ok := MetaCellIndex(coord, cameraChunk)
		if !ok {
			continue
		}
		loadedCount[idx]++
		if nodes > metaTrivialNodeCount {
			nonTrivial[idx] = true
		}
	}
	for idx, count := range loadedCount {
		if count >= chunksPerMetaCell && !nonTrivial[idx] {
			grid[idx] = 0
		}
	}
	return grid
}
