package raymarch

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/markaspall/svdagworld/internal/gpu"
	"github.com/markaspall/svdagworld/internal/svdag"
	"github.com/markaspall/svdagworld/internal/voxel"
)

// fakeWorld is a plain map-backed World, standing in for the GPU's
// hash-table + chunk-metadata lookup in these CPU-only tests.
type fakeWorld map[voxel.ChunkCoord]*svdag.Graph

func (w fakeWorld) Graph(coord voxel.ChunkCoord) (*svdag.Graph, bool) {
	g, ok := w[coord]
	return g, ok
}

func mustBuild(t *testing.T, grid *voxel.VoxelGrid) *svdag.Graph {
	t.Helper()
	g, err := svdag.Build(grid)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func opaqueMaterials() voxel.MaterialTable {
	return voxel.MaterialTable{
		{Name: "air", Transparent: true},
		{Name: "stone", Transparent: false},
		{Name: "glass", Transparent: true},
	}
}

// emptyMetaGrid carries no meta-grid knowledge: every cell reads 1
// ("possibly non-empty"), so Trace never skips a chunk on its account.
var emptyMetaGrid = func() (g [gpu.MetaGridCells]uint8) {
	for i := range g {
		g[i] = 1
	}
	return g
}()

// TestOctantConventionTraversalLowerHalf is the traversal-level analog of
// P3: a chunk where voxelGrid[idx]=1 for y<16 must only ever report hits
// with y<16 when traversed the way the kernel does, straight down through
// the top of the chunk.
func TestOctantConventionTraversalLowerHalf(t *testing.T) {
	grid := &voxel.VoxelGrid{}
	for z := 0; z < voxel.GridSize; z++ {
		for y := 0; y < voxel.GridSize; y++ {
			for x := 0; x < voxel.GridSize; x++ {
				if y < 16 {
					grid.Set(x, y, z, 1)
				}
			}
		}
	}
	g := mustBuild(t, grid)
	chunk := voxel.ChunkCoord{X: 0, Y: 0, Z: 0}
	world := fakeWorld{chunk: g}

	ray := Ray{Origin: mgl32.Vec3{16, 100, 16}, Dir: mgl32.Vec3{0, -1, 0}}
	res := Trace(ray, world, opaqueMaterials(), emptyMetaGrid, chunk, DefaultParams())
	if res.Hit == nil {
		t.Fatal("expected a hit straight down through the chunk")
	}
	hitY := ray.Origin.Y() - res.Hit.Distance
	if hitY >= 16.01 {
		t.Fatalf("hit at y=%.3f, want y<16 (Y-bit octant convention violated)", hitY)
	}
}

// bruteForceNearest is a reference intersection that checks every solid
// voxel's unit AABB directly against the ray, independent of octree
// descent order, for the P10 front-to-back comparison.
func bruteForceNearest(ray Ray, grid *voxel.VoxelGrid, worldOffset mgl32.Vec3) (float32, bool) {
	invDir := safeInvDir(ray.Dir)
	best := float32(math.Inf(1))
	found := false
	for z := 0; z < voxel.GridSize; z++ {
		for y := 0; y < voxel.GridSize; y++ {
			for x := 0; x < voxel.GridSize; x++ {
				if grid.At(x, y, z) == voxel.AirBlock {
					continue
				}
				min := worldOffset.Add(mgl32.Vec3{float32(x), float32(y), float32(z)})
				max := min.Add(mgl32.Vec3{1, 1, 1})
				tNear, tFar, _, ok := aabbIntersect(ray.Origin, invDir, min, max, 0)
				if !ok || tFar < 0 {
					continue
				}
				dist := tNear
				if dist < 0 {
					dist = 0
				}
				if !found || dist < best {
					best = dist
					found = true
				}
			}
		}
	}
	return best, found
}

// TestFrontToBackMatchesBruteForce is property P10: the reported distance
// is always the minimum over every non-air voxel along the ray, verified
// against an order-independent brute-force reference on a small scene
// with scattered solid voxels (several octants deep).
func TestFrontToBackMatchesBruteForce(t *testing.T) {
	grid := &voxel.VoxelGrid{}
	solids := [][3]int{
		{20, 20, 20},
		{10, 10, 10},
		{5, 25, 5},
		{25, 5, 25},
		{2, 2, 30},
		{30, 30, 2},
		{15, 15, 15},
	}
	for _, c := range solids {
		grid.Set(c[0], c[1], c[2], 1)
	}
	g := mustBuild(t, grid)
	chunk := voxel.ChunkCoord{X: 3, Y: -2, Z: 7}
	worldOffset := mgl32.Vec3{float32(chunk.X) * voxel.GridSize, float32(chunk.Y) * voxel.GridSize, float32(chunk.Z) * voxel.GridSize}
	world := fakeWorld{chunk: g}
	materials := opaqueMaterials()

	dirs := []mgl32.Vec3{
		{1, 0, 0}, {-1, 0, 0},
		{0, 1, 0}, {0, -1, 0},
		{0, 0, 1}, {0, 0, -1},
		{1, 1, 1}, {-1, -1, -1},
		{1, -1, 1}, {-1, 1, -1},
	}
	origins := []mgl32.Vec3{
		worldOffset.Add(mgl32.Vec3{16, 16, -50}),
		worldOffset.Add(mgl32.Vec3{-50, 16, 16}),
		worldOffset.Add(mgl32.Vec3{16, 50, 16}),
		worldOffset.Add(mgl32.Vec3{50, 50, 50}),
	}

	for _, origin := range origins {
		for _, dir := range dirs {
			ray := Ray{Origin: origin, Dir: dir.Normalize()}
			res := Trace(ray, world, materials, emptyMetaGrid, chunk, DefaultParams())
			wantDist, wantHit := bruteForceNearest(ray, grid, worldOffset)

			if wantHit != (res.Hit != nil) {
				t.Fatalf("origin=%v dir=%v: brute-force hit=%v, Trace hit=%v", origin, dir, wantHit, res.Hit != nil)
			}
			if !wantHit {
				continue
			}
			if diff := math.Abs(float64(res.Hit.Distance - wantDist)); diff > 1e-2 {
				t.Fatalf("origin=%v dir=%v: Trace distance=%.4f, brute force=%.4f (non-minimal or backface hit)", origin, dir, res.Hit.Distance, wantDist)
			}
		}
	}
}

// TestCoordinateInvarianceUnderTranslation is property P11: translating
// the ray origin and the chunk's placement by the same constant must
// produce the same hit distance, block and normal. This guards the
// historic local-vs-world origin bug by construction: descendOctree and
// Trace never subtract the chunk offset from the ray, only add it to the
// node bounds.
func TestCoordinateInvarianceUnderTranslation(t *testing.T) {
	grid := &voxel.VoxelGrid{}
	grid.Set(16, 16, 16, 1)
	g := mustBuild(t, grid)
	materials := opaqueMaterials()
	dir := mgl32.Vec3{-1, -1, -1}.Normalize()

	baseChunk := voxel.ChunkCoord{X: 0, Y: 0, Z: 0}
	baseOrigin := mgl32.Vec3{40, 40, 40}
	baseWorld := fakeWorld{baseChunk: g}
	baseRes := Trace(Ray{Origin: baseOrigin, Dir: dir}, baseWorld, materials, emptyMetaGrid, baseChunk, DefaultParams())
	if baseRes.Hit == nil {
		t.Fatal("setup: expected a hit from outside the chunk")
	}

	shiftedChunk := voxel.ChunkCoord{X: 100, Y: -50, Z: 30}
	shiftDelta := mgl32.Vec3{
		float32(shiftedChunk.X-baseChunk.X) * voxel.GridSize,
		float32(shiftedChunk.Y-baseChunk.Y) * voxel.GridSize,
		float32(shiftedChunk.Z-baseChunk.Z) * voxel.GridSize,
	}
	shiftedOrigin := baseOrigin.Add(shiftDelta)
	shiftedWorld := fakeWorld{shiftedChunk: g}
	shiftedRes := Trace(Ray{Origin: shiftedOrigin, Dir: dir}, shiftedWorld, materials, emptyMetaGrid, shiftedChunk, DefaultParams())

	if shiftedRes.Hit == nil {
		t.Fatal("expected a hit after translating origin and chunk by the same constant")
	}
	if math.Abs(float64(shiftedRes.Hit.Distance-baseRes.Hit.Distance)) > 1e-2 {
		t.Fatalf("distance changed under translation: base=%.4f shifted=%.4f", baseRes.Hit.Distance, shiftedRes.Hit.Distance)
	}
	if shiftedRes.Hit.Block != baseRes.Hit.Block || shiftedRes.Hit.Normal != baseRes.Hit.Normal {
		t.Fatalf("hit identity changed under translation: base=%+v shifted=%+v", baseRes.Hit, shiftedRes.Hit)
	}
}

// TestMetaSkipSoundness is property P12: no ray intersecting a non-empty
// chunk is ever skipped by the meta-grid. BuildMetaGrid only ever marks a
// cell skippable once every chunk in its 4^3 region is loaded and
// confirmed trivial (internal/gpu's own conservative-bias guarantee);
// this test exercises that guarantee through an actual Trace call rather
// than re-testing BuildMetaGrid in isolation.
func TestMetaSkipSoundness(t *testing.T) {
	camera := voxel.ChunkCoord{X: 0, Y: 0, Z: 0}
	world := fakeWorld{}
	nodeCounts := make(map[voxel.ChunkCoord]uint32)

	grid := &voxel.VoxelGrid{}
	grid.Set(16, 16, 16, 1)
	solidGraph := mustBuild(t, grid)

	hidden := voxel.ChunkCoord{X: 2, Y: 2, Z: 2}
	for x := int32(0); x < 4; x++ {
		for y := int32(0); y < 4; y++ {
			for z := int32(0); z < 4; z++ {
				c := voxel.ChunkCoord{X: x, Y: y, Z: z}
				if c == hidden {
					world[c] = solidGraph
					nodeCounts[c] = solidGraph.NodeCount
					continue
				}
				world[c] = &svdag.Graph{}
				nodeCounts[c] = 0
			}
		}
	}

	metaGrid := gpu.BuildMetaGrid(nodeCounts, camera)
	idx, ok := gpu.MetaCellIndex(hidden, camera)
	if !ok {
		t.Fatal("setup: expected the hidden chunk's cell to be in range")
	}
	if metaGrid[idx] == 0 {
		t.Fatal("setup: a single non-trivial chunk must block the skip (internal/gpu's own P12 guard)")
	}

	worldOffset := mgl32.Vec3{float32(hidden.X) * voxel.GridSize, float32(hidden.Y) * voxel.GridSize, float32(hidden.Z) * voxel.GridSize}
	origin := worldOffset.Add(mgl32.Vec3{16, 16, -50})
	ray := Ray{Origin: origin, Dir: mgl32.Vec3{0, 0, 1}}

	res := Trace(ray, world, opaqueMaterials(), metaGrid, camera, DefaultParams())
	if res.Hit == nil {
		t.Fatal("ray through a non-empty chunk was skipped by the meta-grid")
	}
	if res.Hit.Chunk != hidden {
		t.Fatalf("expected the hit in chunk %v, got %v", hidden, res.Hit.Chunk)
	}
}

// TestMissingChunksAreRequestedOnce checks spec §4.M step 3: a ray
// passing through chunks with no loaded graph records each distinct
// coord exactly once in Requests, and does not terminate the march.
func TestMissingChunksAreRequestedOnce(t *testing.T) {
	// The camera sits in the ray origin's chunk, so the chunks the ray
	// crosses lie inside the request grid.
	camera := voxel.ChunkCoord{X: 0, Y: 0, Z: -32}
	world := fakeWorld{}
	ray := Ray{Origin: mgl32.Vec3{16, 16, -1000}, Dir: mgl32.Vec3{0, 0, 1}}
	params := DefaultParams()
	params.MaxDistance = 5 * voxel.GridSize

	res := Trace(ray, world, opaqueMaterials(), emptyMetaGrid, camera, params)
	if res.Hit != nil {
		t.Fatalf("expected no hit against an entirely unloaded world, got %+v", res.Hit)
	}
	if len(res.Requests) == 0 {
		t.Fatal("expected missing chunks along the ray to be recorded as requests")
	}
	seen := make(map[voxel.ChunkCoord]int)
	for _, c := range res.Requests {
		seen[c]++
	}
	for c, n := range seen {
		if n != 1 {
			t.Fatalf("chunk %v requested %d times, want exactly once", c, n)
		}
	}
}

// TestTransparencyAccumulatesPastGlass checks spec §4.M step 6: a
// transparent voxel in front of an opaque one does not stop the march;
// the reported hit is the opaque voxel behind it.
func TestTransparencyAccumulatesPastGlass(t *testing.T) {
	grid := &voxel.VoxelGrid{}
	grid.Set(16, 16, 10, 2) // glass, transparent
	grid.Set(16, 16, 20, 1) // stone, opaque, farther along +z
	g := mustBuild(t, grid)
	chunk := voxel.ChunkCoord{X: 0, Y: 0, Z: 0}
	world := fakeWorld{chunk: g}

	ray := Ray{Origin: mgl32.Vec3{16, 16, -10}, Dir: mgl32.Vec3{0, 0, 1}}
	res := Trace(ray, world, opaqueMaterials(), emptyMetaGrid, chunk, DefaultParams())
	if res.Hit == nil {
		t.Fatal("expected a hit on the opaque voxel behind the glass")
	}
	if res.Hit.Block != 1 {
		t.Fatalf("expected the opaque stone block, got %d", res.Hit.Block)
	}
	wantZ := float32(20)
	hitZ := ray.Origin.Z() + res.Hit.Distance*ray.Dir.Z()
	if math.Abs(float64(hitZ-wantZ)) > 0.1 {
		t.Fatalf("hit z=%.3f, want ~%.0f (should pass through the glass)", hitZ, wantZ)
	}
}
