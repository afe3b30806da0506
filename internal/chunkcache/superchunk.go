package chunkcache

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"golang.org/x/sync/singleflight"

	"github.com/markaspall/svdagworld/internal/config"
	"github.com/markaspall/svdagworld/internal/logging"
	"github.com/markaspall/svdagworld/internal/voxel"
	"github.com/markaspall/svdagworld/internal/worldgen"
)

// superChunkManifest is the on-disk meta.json sibling of a super-chunk's
// four map files.
type superChunkManifest struct {
	Seed           int64   `json:"seed"`
	ErosionPasses  int     `json:"erosionPasses"`
	SeaLevel       int32   `json:"seaLevel"`
	RiverThreshold float64 `json:"riverThreshold"`
}

// SuperChunkStore loads, generates and persists super-chunk records.
// Concurrent requests for the same (worldID, coord) collapse onto a
// single in-flight generation via singleflight, the idiomatic Go answer
// to spec §5's "generation lock... single-flight pattern" requirement
// (the teacher has no analog: it never generates content behind a
// concurrent request boundary).
type SuperChunkStore struct {
	root string
	gen  *worldgen.Generator
	log  logging.Logger

	group singleflight.Group
}

func NewSuperChunkStore(cfg config.CacheConfig, gen *worldgen.Generator, log logging.Logger) *SuperChunkStore {
	if log == nil {
		log = logging.Nop()
	}
	return &SuperChunkStore{root: cfg.RootDir, gen: gen, log: log}
}

// Get returns the super-chunk record for (worldID, coord), reading it
// from disk if cached, else generating it (deduplicated across
// concurrent callers) and persisting it before returning.
func (s *SuperChunkStore) Get(ctx context.Context, worldID string, coord voxel.SuperChunkCoord) (*worldgen.SuperChunkRecord, error) {
	if rec, ok, err := s.load(worldID, coord); err != nil {
		return nil, err
	} else if ok {
		return rec, nil
	}

	key := fmt.Sprintf("%s:%d:%d", worldID, coord.SX, coord.SZ)
	v, err, _ := s.group.Do(key, func() (any, error) {
		// Re-check under the single-flight key in case a concurrent
		// caller already generated and persisted this exact super-chunk
		// while we were queued behind the same key.
		if rec, ok, err := s.load(worldID, coord); err != nil {
			return nil, err
		} else if ok {
			return rec, nil
		}

		rec, err := s.gen.Generate(ctx, coord)
		if err != nil {
			return nil, fmt.Errorf("chunkcache: generate super-chunk %s: %w", coord, err)
		}
		if err := s.save(worldID, coord, rec); err != nil {
			return nil, err
		}
		s.log.Infof("chunkcache: generated super-chunk %s/%s", worldID, coord)
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*worldgen.SuperChunkRecord), nil
}

// InvalidateSuperChunk removes a super-chunk's cached files so the next
// Get regenerates it.
func (s *SuperChunkStore) InvalidateSuperChunk(worldID string, coord voxel.SuperChunkCoord) error {
	dir := superChunkDir(s.root, worldID, coord)
	if err := os.RemoveAll(dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("chunkcache: invalidate super-chunk %s: %w", coord, err)
	}
	return nil
}

func (s *SuperChunkStore) load(worldID string, coord voxel.SuperChunkCoord) (*worldgen.SuperChunkRecord, bool, error) {
	metaPath := superChunkMetaPath(s.root, worldID, coord)
	metaBytes, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("chunkcache: read %s: %w", metaPath, err)
	}

	var m superChunkManifest
	if err := json.Unmarshal(metaBytes, &m); err != nil {
		return nil, false, fmt.Errorf("chunkcache: parse %s: %w", metaPath, err)
	}

	n := voxel.SuperChunkSize * voxel.SuperChunkSize
	rec := &worldgen.SuperChunkRecord{
		Coord: coord,
		Manifest: worldgen.Manifest{
			Seed:           m.Seed,
			ErosionPasses:  m.ErosionPasses,
			SeaLevel:       m.SeaLevel,
			RiverThreshold: m.RiverThreshold,
		},
		Heightmap:    make([]float32, n),
		BiomeMap:     make([]worldgen.Biome, n),
		RiverFlow:    make([]float32, n),
		BlockSurface: make([]voxel.BlockID, n),
	}

	if err := readFloat32s(superChunkMapPath(s.root, worldID, coord, "heightmap"), rec.Heightmap); err != nil {
		return nil, false, err
	}
	if err := readBiomes(superChunkMapPath(s.root, worldID, coord, "biome"), rec.BiomeMap); err != nil {
		return nil, false, err
	}
	if err := readFloat32s(superChunkMapPath(s.root, worldID, coord, "river"), rec.RiverFlow); err != nil {
		return nil, false, err
	}
	if err := readBlockIDs(superChunkMapPath(s.root, worldID, coord, "block"), rec.BlockSurface); err != nil {
		return nil, false, err
	}

	return rec, true, nil
}

func (s *SuperChunkStore) save(worldID string, coord voxel.SuperChunkCoord, rec *worldgen.SuperChunkRecord) error {
	m := superChunkManifest{
		Seed:           rec.Manifest.Seed,
		ErosionPasses:  rec.Manifest.ErosionPasses,
		SeaLevel:       rec.Manifest.SeaLevel,
		RiverThreshold: rec.Manifest.RiverThreshold,
	}
	metaBytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("chunkcache: marshal manifest: %w", err)
	}

	if err := writeFileAtomic(superChunkMapPath(s.root, worldID, coord, "heightmap"), float32sToBytes(rec.Heightmap)); err != nil {
		return err
	}
	if err := writeFileAtomic(superChunkMapPath(s.root, worldID, coord, "biome"), biomesToBytes(rec.BiomeMap)); err != nil {
		return err
	}
	if err := writeFileAtomic(superChunkMapPath(s.root, worldID, coord, "river"), float32sToBytes(rec.RiverFlow)); err != nil {
		return err
	}
	if err := writeFileAtomic(superChunkMapPath(s.root, worldID, coord, "block"), blockIDsToBytes(rec.BlockSurface)); err != nil {
		return err
	}
	// meta.json is written last: its presence is what load() treats as
	// "this super-chunk is cached", so a crash partway through leaves no
	// directory that looks complete but isn't.
	if err := writeFileAtomic(superChunkMetaPath(s.root, worldID, coord), metaBytes); err != nil {
		return err
	}
	return nil
}

func float32sToBytes(vs []float32) []byte {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	return b
}

func readFloat32s(path string, dst []float32) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("chunkcache: read %s: %w", path, err)
	}
	if len(data) != 4*len(dst) {
		return fmt.Errorf("chunkcache: %s has %d bytes, want %d", path, len(data), 4*len(dst))
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return nil
}

func biomesToBytes(bs []worldgen.Biome) []byte {
	b := make([]byte, len(bs))
	for i, v := range bs {
		b[i] = byte(v)
	}
	return b
}

func readBiomes(path string, dst []worldgen.Biome) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("chunkcache: read %s: %w", path, err)
	}
	if len(data) != len(dst) {
		return fmt.Errorf("chunkcache: %s has %d bytes, want %d", path, len(data), len(dst))
	}
	for i, v := range data {
		dst[i] = worldgen.Biome(v)
	}
	return nil
}

func blockIDsToBytes(ids []voxel.BlockID) []byte {
	b := make([]byte, 4*len(ids))
	for i, v := range ids {
		binary.LittleEndian.PutUint32(b[4*i:], v)
	}
	return b
}

func readBlockIDs(path string, dst []voxel.BlockID) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("chunkcache: read %s: %w", path, err)
	}
	if len(data) != 4*len(dst) {
		return fmt.Errorf("chunkcache: %s has %d bytes, want %d", path, len(data), 4*len(dst))
	}
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint32(data[4*i:])
	}
	return nil
}
