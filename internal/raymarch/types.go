// Package raymarch is the CPU reference for the ray-march kernel,
// component M: a two-level march, spatial DDA across whole chunks then a
// stack-based SVDAG octree descent inside whichever chunk the ray enters,
// used to exercise the testable properties of §8 (front-to-back ordering,
// coordinate invariance, meta-skip soundness) without a GPU. The compute
// kernel itself lives in shaders/raymarch.wgsl, embedded by
// raymarch/shaders.
package raymarch

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/markaspall/svdagworld/internal/svdag"
	"github.com/markaspall/svdagworld/internal/voxel"
)

// Ray is a primary or restarted (post-transparency) ray. Origin and Dir
// are always in world space; per spec §4.M step 5, origin is never
// translated into a chunk's local space.
type Ray struct {
	Origin mgl32.Vec3
	Dir    mgl32.Vec3
}

// Hit is a reported ray-chunk intersection.
type Hit struct {
	Distance float32
	Block    voxel.BlockID
	Normal   mgl32.Vec3
	Chunk    voxel.ChunkCoord
}

// MarchParams are the performance knobs of spec §4.M step 7. Nothing in
// the module lowers them under memory pressure: cmd/voxelclient uses
// DefaultParams for every frame.
type MarchParams struct {
	MaxDistance           float32
	MaxChunkSteps         int
	TransparencyLayerCap  int
}

// DefaultParams are reasonable full-quality values.
func DefaultParams() MarchParams {
	return MarchParams{
		MaxDistance:          2048,
		MaxChunkSteps:         512,
		TransparencyLayerCap: 8,
	}
}

// World resolves a chunk coordinate to its SVDAG graph. A CPU-side
// stand-in for the GPU kernel's chunk_meta + hash-table lookup: ok is
// false exactly when the GPU path would have missed the spatial hash
// table and emitted a request.
type World interface {
	Graph(coord voxel.ChunkCoord) (*svdag.Graph, bool)
}

// TraceResult is the outcome of one ray: at most one hit, plus the
// distinct missing chunk coordinates encountered along the way (spec
// §4.M step 3's request-buffer atomic-adds, collapsed to a set since the
// CPU reference has no GPU atomics to model contention with).
type TraceResult struct {
	Hit      *Hit
	Requests []voxel.ChunkCoord
}
