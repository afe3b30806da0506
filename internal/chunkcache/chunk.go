package chunkcache

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/singleflight"

	"github.com/markaspall/svdagworld/internal/chunkcodec"
	"github.com/markaspall/svdagworld/internal/config"
	"github.com/markaspall/svdagworld/internal/logging"
	"github.com/markaspall/svdagworld/internal/svdag"
	"github.com/markaspall/svdagworld/internal/voxel"
	"github.com/markaspall/svdagworld/internal/voxelize"
)

// ChunkStore is the chunk endpoint's single operation (component H's
// dependency): get_chunk, implemented as cache (G) -> on miss, load or
// generate the parent super-chunk (F) -> voxelize (C) -> build SVDAG
// (D) -> encode (E) -> write (G) -> return.
type ChunkStore struct {
	root        string
	superChunks *SuperChunkStore
	terrain     config.TerrainConfig
	log         logging.Logger

	group singleflight.Group
}

func NewChunkStore(cfg config.CacheConfig, terrain config.TerrainConfig, superChunks *SuperChunkStore, log logging.Logger) *ChunkStore {
	if log == nil {
		log = logging.Nop()
	}
	return &ChunkStore{root: cfg.RootDir, superChunks: superChunks, terrain: terrain, log: log}
}

// Get returns the encoded bytes for one stream chunk, generating and
// persisting them on first request.
func (c *ChunkStore) Get(ctx context.Context, worldID string, coord voxel.ChunkCoord) ([]byte, error) {
	path := chunkPath(c.root, worldID, coord)
	if data, ok, err := readIfExists(path); err != nil {
		return nil, err
	} else if ok {
		return data, nil
	}

	key := fmt.Sprintf("%s:%d:%d:%d", worldID, coord.X, coord.Y, coord.Z)
	v, err, _ := c.group.Do(key, func() (any, error) {
		if data, ok, err := readIfExists(path); err != nil {
			return nil, err
		} else if ok {
			return data, nil
		}

		sc, err := c.superChunks.Get(ctx, worldID, coord.SuperChunk())
		if err != nil {
			return nil, err
		}

		grid := voxelize.Voxelize(sc, coord, c.terrain)
		graph, err := svdag.Build(grid)
		if err != nil {
			return nil, fmt.Errorf("chunkcache: build svdag for chunk %s: %w", coord, err)
		}

		data := chunkcodec.Encode(graph, chunkcodec.EncodeOptions{Version: int(chunkcodec.Version1)})
		if err := writeFileAtomic(path, data); err != nil {
			return nil, err
		}
		c.log.Debugf("chunkcache: generated chunk %s/%s (%d bytes, %d nodes)", worldID, coord, len(data), graph.NodeCount)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// InvalidateChunk removes a stream chunk's cached file so the next Get
// regenerates it.
func (c *ChunkStore) InvalidateChunk(worldID string, coord voxel.ChunkCoord) error {
	path := chunkPath(c.root, worldID, coord)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("chunkcache: invalidate chunk %s: %w", coord, err)
	}
	return nil
}

func readIfExists(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("chunkcache: read %s: %w", path, err)
	}
	return data, true, nil
}
