package main

import (
	"github.com/markaspall/svdagworld/internal/clientstream"
	"github.com/markaspall/svdagworld/internal/gpu"
	"github.com/markaspall/svdagworld/internal/voxel"
)

const chunkMetaFlagHasOpaqueDAG uint32 = 1 << 0

// rebuildGPUWorld turns a clientstream.Manager snapshot into the buffers
// the ray-march kernel reads about resident chunks: a dense chunk-metadata
// array, every chunk's node/leaf words packed back-to-back into the node
// and leaf pool buffers, and a spatial hash table over chunk coordinates.
// It returns each chunk's node count; the caller builds the 16^3
// meta-grid from those. Called whenever Manager.Dirty() reports a change.
func rebuildGPUWorld(buffers *gpu.BufferManager, snapshot map[voxel.ChunkCoord]clientstream.SnapshotChunk, softCap int) map[voxel.ChunkCoord]uint32 {
	records := make([]gpu.ChunkMeta, 0, len(snapshot))
	chunkIndex := make(map[voxel.ChunkCoord]uint32, len(snapshot))
	nodeCounts := make(map[voxel.ChunkCoord]uint32, len(snapshot))

	var nodes, leaves []uint32
	for coord, chunk := range snapshot {
		idx := uint32(len(records))
		chunkIndex[coord] = idx
		nodeCounts[coord] = chunk.NodeCount

		rec := gpu.ChunkMeta{
			WorldOffsetX: coord.X * voxel.GridSize,
			WorldOffsetY: coord.Y * voxel.GridSize,
			WorldOffsetZ: coord.Z * voxel.GridSize,
			NodesOffset:  uint32(len(nodes)),
			NodesCount:   uint32(len(chunk.Nodes)),
			LeavesOffset: uint32(len(leaves)),
			LeavesCount:  uint32(len(chunk.Leaves)),
		}
		if chunk.NodeCount > 0 {
			rec.Flags |= chunkMetaFlagHasOpaqueDAG
		}
		records = append(records, rec)
		nodes = append(nodes, chunk.Nodes...)
		leaves = append(leaves, chunk.Leaves...)
	}

	size := gpu.HashTableSize(softCap)
	table := gpu.BuildHashTable(size, chunkIndex)

	buffers.UploadChunkMeta(records)
	buffers.UploadPool(nodes, leaves)
	buffers.UploadHashTable(table)

	return nodeCounts
}
