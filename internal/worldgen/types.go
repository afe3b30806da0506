// Package worldgen implements the super-chunk generator (component B): base
// elevation, hydraulic erosion, rivers and biome classification over a
// 512x512 region shared by all stream chunks with the same (sx, sz).
package worldgen

import "github.com/markaspall/svdagworld/internal/voxel"

const (
	// LOD0Size is the coarse grid resolution erosion runs at before
	// upscaling to the full 512x512 super-chunk resolution.
	LOD0Size = 128
)

// Biome is a coarse terrain classification driven by height, temperature
// and moisture.
type Biome uint8

const (
	BiomeOcean Biome = iota
	BiomeBeach
	BiomePlains
	BiomeForest
	BiomeDesert
	BiomeTundra
	BiomeMountain
)

// Manifest records the parameters a super-chunk record was generated with,
// so a cache consumer can tell whether a cached record is still valid for
// the current world configuration.
type Manifest struct {
	Seed           int64
	ErosionPasses  int
	SeaLevel       int32
	RiverThreshold float64
}

// SuperChunkRecord holds the four 512x512 maps a stream chunk is voxelized
// from, plus the manifest that produced them.
type SuperChunkRecord struct {
	Coord voxel.SuperChunkCoord

	// Heightmap holds eroded surface heights in [0,1]; multiply by Hmax to
	// get world-space y, per spec's `y_surface = height * Hmax`.
	Heightmap []float32 // len == SuperChunkSize^2

	// BiomeMap classifies each column.
	BiomeMap []Biome // len == SuperChunkSize^2

	// RiverFlow is the accumulated flow value per column (higher = more
	// water passed through); a column is "river" when it exceeds the
	// configured threshold.
	RiverFlow []float32 // len == SuperChunkSize^2

	// BlockSurface is the surface block ID per column, derived from biome.
	BlockSurface []voxel.BlockID // len == SuperChunkSize^2

	Manifest Manifest
}

func newRecord(coord voxel.SuperChunkCoord, m Manifest) *SuperChunkRecord {
	n := voxel.SuperChunkSize * voxel.SuperChunkSize
	return &SuperChunkRecord{
		Coord:        coord,
		Heightmap:    make([]float32, n),
		BiomeMap:     make([]Biome, n),
		RiverFlow:    make([]float32, n),
		BlockSurface: make([]voxel.BlockID, n),
		Manifest:     m,
	}
}

func columnIndex(lx, lz int) int {
	return lz*voxel.SuperChunkSize + lx
}

// HeightAt returns the eroded, world-space surface height at a local (x,z)
// in [0, SuperChunkSize).
func (r *SuperChunkRecord) HeightAt(lx, lz int, hmax float64) float64 {
	return float64(r.Heightmap[columnIndex(lx, lz)]) * hmax
}

// IsRiver reports whether a column's accumulated flow crosses threshold.
// threshold must already be in raw flow-count units (see
// RiverFlowThreshold), not the configured [0,1] fraction.
func (r *SuperChunkRecord) IsRiver(lx, lz int, threshold float64) bool {
	return float64(r.RiverFlow[columnIndex(lx, lz)]) >= threshold
}
