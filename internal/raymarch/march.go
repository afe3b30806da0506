package raymarch

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/markaspall/svdagworld/internal/gpu"
	"github.com/markaspall/svdagworld/internal/voxel"
)

// transparencyEpsilon is how far past a transparent hit the chunk-local
// descent restarts, per spec §4.M step 6.
const transparencyEpsilon = 1e-3

// Trace runs the full per-ray march: spatial DDA across chunks, meta-grid
// skip test, world lookup (miss -> request), octree descent, and bounded
// transparency accumulation. metaGrid and cameraChunk are whatever
// internal/gpu.BuildMetaGrid/MetaCellIndex last produced; world stands in
// for the GPU's spatial-hash-table + chunk-metadata lookup.
func Trace(ray Ray, world World, materials voxel.MaterialTable, metaGrid [gpu.MetaGridCells]uint8, cameraChunk voxel.ChunkCoord, params MarchParams) TraceResult {
	invDir := safeInvDir(ray.Dir)
	signBits := signBitsOf(ray.Dir)
	stepper := newChunkStepper(ray.Origin, ray.Dir, invDir)

	var requests []voxel.ChunkCoord
	requested := make(map[voxel.ChunkCoord]bool)
	layers := 0
	marchT := float32(0)

	for step := 0; step < params.MaxChunkSteps; step++ {
		chunk := stepper.coord()

		chunkMin := mgl32.Vec3{
			float32(chunk.X) * voxel.GridSize,
			float32(chunk.Y) * voxel.GridSize,
			float32(chunk.Z) * voxel.GridSize,
		}
		chunkMax := chunkMin.Add(mgl32.Vec3{voxel.GridSize, voxel.GridSize, voxel.GridSize})
		tNear, tFar, _, ok := aabbIntersect(ray.Origin, invDir, chunkMin, chunkMax, marchT)
		if !ok {
			stepper.step()
			continue
		}
		if tNear > params.MaxDistance {
			break
		}
		marchT = tFar

		if idx, inGrid := gpu.MetaCellIndex(chunk, cameraChunk); inGrid && metaGrid[idx] == 0 {
			stepper.skipAhead(4)
			continue
		}

		g, found := world.Graph(chunk)
		if !found {
			if slot := gpu.ChunkToRequestIndex(chunk, cameraChunk); slot != gpu.Sentinel && !requested[chunk] {
				requested[chunk] = true
				requests = append(requests, chunk)
			}
			stepper.step()
			continue
		}
		if g.Empty() {
			stepper.step()
			continue
		}

		localStart := tNear
		if localStart < 0 {
			localStart = 0
		}
		for {
			hit, found := descendOctree(ray, invDir, signBits, g, chunkMin, localStart)
			if !found {
				break
			}
			if !materials.Transparent(hit.Block) {
				hit.Chunk = chunk
				return TraceResult{Hit: &hit, Requests: requests}
			}
			layers++
			if layers >= params.TransparencyLayerCap {
				hit.Chunk = chunk
				return TraceResult{Hit: &hit, Requests: requests}
			}
			localStart = hit.Distance + transparencyEpsilon
			if localStart >= tFar {
				break
			}
		}
		stepper.step()
	}
	return TraceResult{Requests: requests}
}
