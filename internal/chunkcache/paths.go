// Package chunkcache implements the disk-backed super-chunk and stream-
// chunk caches (components F/G): content-addressed file layout, a
// single-flight generation lock so concurrent requests for the same
// coordinate generate once, and crash-safe atomic writes.
package chunkcache

import (
	"fmt"
	"path/filepath"

	"github.com/markaspall/svdagworld/internal/voxel"
)

// superChunkDir returns worlds/{id}/superchunks/{sx}_{sz}/.
func superChunkDir(root, worldID string, coord voxel.SuperChunkCoord) string {
	return filepath.Join(root, "worlds", worldID, "superchunks", fmt.Sprintf("%d_%d", coord.SX, coord.SZ))
}

func superChunkMetaPath(root, worldID string, coord voxel.SuperChunkCoord) string {
	return filepath.Join(superChunkDir(root, worldID, coord), "meta.json")
}

func superChunkMapPath(root, worldID string, coord voxel.SuperChunkCoord, name string) string {
	return filepath.Join(superChunkDir(root, worldID, coord), name+".bin")
}

// chunkPath returns worlds/{id}/chunks/{cx}_{cy}_{cz}.svdag.
func chunkPath(root, worldID string, coord voxel.ChunkCoord) string {
	return filepath.Join(root, "worlds", worldID, "chunks", fmt.Sprintf("%d_%d_%d.svdag", coord.X, coord.Y, coord.Z))
}
