package worldgen

import (
	"github.com/markaspall/svdagworld/internal/config"
	"github.com/markaspall/svdagworld/internal/voxel"
)

// Surface block IDs. These mirror the material table a server is expected
// to load; id 0 is air (voxel.AirBlock) and is never a surface block.
const (
	BlockWater voxel.BlockID = iota + 1
	BlockSand
	BlockGrass
	BlockDirt
	BlockStone
	BlockSnow
	BlockRiverbed
)

// classifyBiome picks a biome from normalized height [0,1], moisture
// [-1,1] and a synthetic temperature derived from height (higher = colder,
// matching the usual "snow on mountain peaks" expectation).
func classifyBiome(height, moisture float64, cfg config.TerrainConfig) Biome {
	seaLevelNorm := float64(cfg.SeaLevel) / cfg.Hmax
	temperature := 1.0 - height // crude: altitude cools

	switch {
	case height < seaLevelNorm:
		return BiomeOcean
	case height < seaLevelNorm+0.02:
		return BiomeBeach
	case height > 0.85:
		return BiomeMountain
	case temperature < 0.25:
		return BiomeTundra
	case moisture < -0.2:
		return BiomeDesert
	case moisture > 0.2:
		return BiomeForest
	default:
		return BiomePlains
	}
}

// surfaceBlockFor maps a biome (and river override) to the surface block
// placed by the voxelizer.
func surfaceBlockFor(b Biome, isRiver bool) voxel.BlockID {
	if isRiver {
		return BlockRiverbed
	}
	switch b {
	case BiomeOcean:
		return BlockWater
	case BiomeBeach:
		return BlockSand
	case BiomeDesert:
		return BlockSand
	case BiomeTundra:
		return BlockSnow
	case BiomeMountain:
		return BlockStone
	case BiomeForest, BiomePlains:
		return BlockGrass
	default:
		return BlockDirt
	}
}
