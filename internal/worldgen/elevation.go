package worldgen

import (
	"context"
	"runtime"
	"sync"

	"github.com/markaspall/svdagworld/internal/config"
	"github.com/markaspall/svdagworld/internal/noise"
	"github.com/markaspall/svdagworld/internal/voxel"
)

// field is a square LOD0Size x LOD0Size grid of float64 samples, used for
// the pre-upscale elevation and moisture fields erosion operates on.
type field struct {
	size int
	data []float64
}

func newField(size int) *field {
	return &field{size: size, data: make([]float64, size*size)}
}

func (f *field) at(x, z int) float64 {
	return f.data[z*f.size+x]
}

func (f *field) set(x, z int, v float64) {
	f.data[z*f.size+x] = v
}

// baseElevation samples multi-octave FBM over the LOD0 grid for one
// super-chunk. Each cell is an independent pure-function evaluation, so
// filling it with a worker pool changes nothing about determinism: the
// result depends only on (worldX, worldZ, seed), never on task scheduling
// order. The worker-pool-over-columns shape follows firestar's column
// generation loop.
func baseElevation(ctx context.Context, sx, sz int32, cfg config.TerrainConfig) *field {
	return sampleField(ctx, sx, sz, cfg.Seed, cfg.Octaves, cfg.Lacunarity, cfg.Persistence, cfg.BaseFrequency)
}

// moistureField samples an independently-seeded FBM for moisture, offset
// from the elevation seed so the two fields are decorrelated.
func moistureField(ctx context.Context, sx, sz int32, cfg config.TerrainConfig) *field {
	return sampleField(ctx, sx, sz, cfg.Seed^0x6D6F6973, cfg.Octaves, cfg.Lacunarity, cfg.Persistence, cfg.BaseFrequency*1.7)
}

func sampleField(ctx context.Context, sx, sz int32, seed int64, octaves int, lacunarity, persistence, frequency float64) *field {
	const size = LOD0Size
	f := newField(size)

	// World-space origin of this super-chunk's LOD0 grid; each LOD0 cell
	// covers SuperChunkSize/LOD0Size world units.
	cellWorld := float64(voxel.SuperChunkSize) / float64(size)
	originX := float64(sx) * voxel.SuperChunkSize
	originZ := float64(sz) * voxel.SuperChunkSize

	type task struct{ x, z int }

	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	if workers > size {
		workers = size
	}

	tasks := make(chan task, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				wx := originX + float64(t.x)*cellWorld
				wz := originZ + float64(t.z)*cellWorld
				v := noise.FBM2(wx, wz, seed, octaves, lacunarity, persistence)
				f.set(t.x, t.z, v)
			}
		}()
	}

	for z := 0; z < size; z++ {
		select {
		case <-ctx.Done():
			close(tasks)
			wg.Wait()
			return f
		default:
		}
		for x := 0; x < size; x++ {
			tasks <- task{x, z}
		}
	}
	close(tasks)
	wg.Wait()
	return f
}
