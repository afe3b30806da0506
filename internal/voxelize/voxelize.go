// Package voxelize turns a super-chunk's 2-D maps (heightmap, biome, river
// flow, surface block) into one stream chunk's 32^3 material grid: the
// stream voxelizer, component C.
package voxelize

import (
	"github.com/markaspall/svdagworld/internal/config"
	"github.com/markaspall/svdagworld/internal/noise"
	"github.com/markaspall/svdagworld/internal/voxel"
	"github.com/markaspall/svdagworld/internal/worldgen"
)

// Layer depths below the surface column, in voxels. Matches the
// topsoil/subsoil/stone/deepstone banding firestar's populateColumn uses,
// collapsed to the block palette worldgen.classifyBiome produces (there is
// no separate "deepstone" material here; stone extends to bedrock).
const (
	topsoilDepth = 3
	subsoilDepth = 12
	stoneDepth   = 64
)

const (
	caveFrequency  = 1.0 / 24.0
	caveThreshold  = 0.6
	caveSeedOffset = 0x434156 // "CAV"
)

// Voxelize fills one stream chunk's material grid from its parent
// super-chunk's maps. coord addresses the chunk; sc must be the record for
// coord.SuperChunk().
func Voxelize(sc *worldgen.SuperChunkRecord, coord voxel.ChunkCoord, cfg config.TerrainConfig) *voxel.VoxelGrid {
	grid := &voxel.VoxelGrid{}

	colBaseX, colBaseZ := coord.LocalColumn() // chunk offset within super-chunk, in chunks
	lxBase := int(colBaseX) * voxel.GridSize
	lzBase := int(colBaseZ) * voxel.GridSize

	chunkWorldY := int(coord.Y) * voxel.GridSize
	seaLevel := int(cfg.SeaLevel)
	riverFlowThreshold := worldgen.RiverFlowThreshold(cfg.RiverThreshold, worldgen.LOD0Size)

	for lz := 0; lz < voxel.GridSize; lz++ {
		for lx := 0; lx < voxel.GridSize; lx++ {
			colX := lxBase + lx
			colZ := lzBase + lz

			surfaceY := int(sc.HeightAt(colX, colZ, cfg.Hmax))
			isRiver := sc.IsRiver(colX, colZ, riverFlowThreshold)
			biome := sc.BiomeMap[colX+colZ*voxel.SuperChunkSize]
			surfaceBlock := sc.BlockSurface[colX+colZ*voxel.SuperChunkSize]

			for ly := 0; ly < voxel.GridSize; ly++ {
				worldY := chunkWorldY + ly

				var id voxel.BlockID
				switch {
				case worldY > surfaceY:
					if worldY <= seaLevel {
						id = worldgen.BlockWater
					} else {
						id = voxel.AirBlock
					}
				case worldY == surfaceY:
					if isRiver || worldY < seaLevel {
						id = worldgen.BlockRiverbed
					} else {
						id = surfaceBlock
					}
				default:
					depth := surfaceY - worldY
					id = layerBlockFor(depth, biome)
				}

				if id != voxel.AirBlock && id != worldgen.BlockWater && carved(colX, worldY, colZ, cfg.Seed) {
					id = voxel.AirBlock
				}

				grid.Set(lx, ly, lz, id)
			}
		}
	}

	return grid
}

// layerBlockFor returns the material at a given depth below the surface,
// independent of biome except that mountain/tundra biomes stay stone
// closer to the surface than grassland biomes do.
func layerBlockFor(depth int, biome worldgen.Biome) voxel.BlockID {
	switch {
	case depth < topsoilDepth:
		if biome == worldgen.BiomeMountain || biome == worldgen.BiomeTundra {
			return worldgen.BlockStone
		}
		return worldgen.BlockDirt
	case depth < subsoilDepth:
		return worldgen.BlockDirt
	case depth < stoneDepth:
		return worldgen.BlockStone
	default:
		return worldgen.BlockStone
	}
}

// carved reports whether a solid voxel should be hollowed out into a cave,
// sampled from a differently-seeded 2-D FBM2 field whose second coordinate
// mixes world z with y, so cave shape varies with depth and is
// decorrelated from surface terrain.
func carved(x, y, z int, seed int64) bool {
	v := noise.FBM2(float64(x)*caveFrequency, float64(z)*caveFrequency+float64(y)*caveFrequency*1.3, seed^caveSeedOffset, 3, 2.0, 0.5)
	return v > caveThreshold
}
