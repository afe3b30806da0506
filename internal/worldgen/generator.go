package worldgen

import (
	"context"

	"github.com/markaspall/svdagworld/internal/config"
	"github.com/markaspall/svdagworld/internal/logging"
	"github.com/markaspall/svdagworld/internal/voxel"
)

// Generator produces SuperChunkRecords from a fixed terrain configuration.
// A Generator is safe for concurrent use by multiple callers generating
// different super-chunks; Generate itself parallelizes internally but
// keeps every side effect local to the record it returns.
type Generator struct {
	cfg config.TerrainConfig
	log logging.Logger
}

func New(cfg config.TerrainConfig, log logging.Logger) *Generator {
	if log == nil {
		log = logging.Nop()
	}
	return &Generator{cfg: cfg, log: log}
}

// Generate runs the full super-chunk pipeline for one (sx, sz):
//
//  1. base elevation (multi-octave FBM at LOD0 resolution)
//  2. pre-erosion moisture
//  3. hydraulic erosion, deterministic per (seed, pass index)
//  4. bicubic upscale of the eroded elevation to full 512x512 resolution
//  5. river flow accumulation (computed at LOD0 resolution then resampled,
//     since flow direction is governed by the same low-frequency shape
//     erosion operated on)
//  6. biome classification from height/moisture/temperature thresholds
//  7. surface block projection
func (g *Generator) Generate(ctx context.Context, coord voxel.SuperChunkCoord) (*SuperChunkRecord, error) {
	base := baseElevation(ctx, coord.SX, coord.SZ, g.cfg)
	moisture := moistureField(ctx, coord.SX, coord.SZ, g.cfg)

	erode(base, coord.SX, coord.SZ, g.cfg)

	flowLOD0 := accumulateFlow(base)

	heightFull := upscaleBicubic(base, voxel.SuperChunkSize)
	moistureFull := upscaleBicubic(moisture, voxel.SuperChunkSize)

	rec := newRecord(coord, Manifest{
		Seed:           g.cfg.Seed,
		ErosionPasses:  g.cfg.ErosionPasses,
		SeaLevel:       g.cfg.SeaLevel,
		RiverThreshold: g.cfg.RiverThreshold,
	})

	normalizeFlowInto(rec.RiverFlow, flowLOD0, base.size, voxel.SuperChunkSize)

	for z := 0; z < voxel.SuperChunkSize; z++ {
		for x := 0; x < voxel.SuperChunkSize; x++ {
			idx := columnIndex(x, z)
			h := clamp01(heightFull.at(x, z)*0.5 + 0.5)
			m := clamp01(moistureFull.at(x, z)*0.5+0.5)*2 - 1

			rec.Heightmap[idx] = float32(h)

			biome := classifyBiome(h, m, g.cfg)
			rec.BiomeMap[idx] = biome

			isRiver := float64(rec.RiverFlow[idx]) >= RiverFlowThreshold(g.cfg.RiverThreshold, base.size)
			rec.BlockSurface[idx] = surfaceBlockFor(biome, isRiver)
		}
	}

	g.log.Debugf("worldgen: generated super-chunk %s (seed=%d passes=%d)", coord, g.cfg.Seed, g.cfg.ErosionPasses)
	return rec, nil
}

// RiverFlowThreshold converts the configured [0,1]-ish RiverThreshold
// fraction into an absolute flow-accumulation count for a grid of the
// given edge length, since flow values are raw cell counts accumulated
// over the LOD0 simulation grid (LOD0Size), not normalized fractions, and
// resampling them into the full-resolution map does not rescale their
// magnitude.
func RiverFlowThreshold(fraction float64, size int) float64 {
	return fraction * float64(size)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
