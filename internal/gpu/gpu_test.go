package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markaspall/svdagworld/internal/voxel"
)

func TestHashTableSizeIsPowerOfTwoAboveThreshold(t *testing.T) {
	cases := []int{0, 1, 100, 4096, 4097}
	for _, softCap := range cases {
		size := HashTableSize(softCap)
		assert.Zero(t, size&(size-1), "HashTableSize(%d) = %d, not a power of two", softCap, size)
		if softCap > 0 {
			assert.GreaterOrEqual(t, float64(size), float64(softCap)*2.7, "HashTableSize(%d) = %d, below the 2.7x floor", softCap, size)
		}
	}
}

// TestHashTableLookupFindsEveryInsertedChunk is the P8 property: with
// <= soft_cap chunks, lookup(coord) returns the chunk's metadata index
// if present, within MaxProbe steps (enforced inside Lookup itself).
func TestHashTableLookupFindsEveryInsertedChunk(t *testing.T) {
	chunkIndex := make(map[voxel.ChunkCoord]uint32)
	coordAt := make(map[uint32]voxel.ChunkCoord)
	n := 0
	for x := int32(0); x < 10; x++ {
		for z := int32(0); z < 10; z++ {
			coord := voxel.ChunkCoord{X: x, Y: 0, Z: z}
			chunkIndex[coord] = uint32(n)
			coordAt[uint32(n)] = coord
			n++
		}
	}

	table := BuildHashTable(HashTableSize(len(chunkIndex)), chunkIndex)
	for coord, wantIdx := range chunkIndex {
		gotIdx, ok := table.Lookup(coord, func(idx uint32) voxel.ChunkCoord { return coordAt[idx] })
		require.True(t, ok, "lookup(%v) = not found, want index %d", coord, wantIdx)
		assert.Equal(t, wantIdx, gotIdx, "lookup(%v) mismatch", coord)
	}
}

func TestHashTableLookupMissingCoordReturnsSentinel(t *testing.T) {
	chunkIndex := map[voxel.ChunkCoord]uint32{{X: 0, Y: 0, Z: 0}: 0}
	coordAt := map[uint32]voxel.ChunkCoord{0: {X: 0, Y: 0, Z: 0}}
	table := BuildHashTable(HashTableSize(1), chunkIndex)

	idx, ok := table.Lookup(voxel.ChunkCoord{X: 99, Y: 99, Z: 99}, func(i uint32) voxel.ChunkCoord { return coordAt[i] })
	assert.False(t, ok, "expected a miss, got index %d", idx)
	assert.Equal(t, Sentinel, idx)
}

func TestMetaCellIndexOutOfRange(t *testing.T) {
	camera := voxel.ChunkCoord{X: 0, Y: 0, Z: 0}
	far := voxel.ChunkCoord{X: 1000, Y: 0, Z: 0}
	_, ok := MetaCellIndex(far, camera)
	assert.False(t, ok, "expected far chunk to fall outside the meta-grid")
	_, ok = MetaCellIndex(camera, camera)
	assert.True(t, ok, "expected the camera's own chunk to map inside the meta-grid")
}

func TestBuildMetaGridDefaultsUnknownToOne(t *testing.T) {
	camera := voxel.ChunkCoord{X: 0, Y: 0, Z: 0}
	grid := BuildMetaGrid(nil, camera)
	for i, v := range grid {
		assert.EqualValues(t, 1, v, "cell %d = %d, want 1 (conservative default) with nothing loaded", i, v)
	}
}

func TestBuildMetaGridMarksFullyLoadedEmptyCellZero(t *testing.T) {
	camera := voxel.ChunkCoord{X: 0, Y: 0, Z: 0}
	nodeCounts := make(map[voxel.ChunkCoord]uint32)
	for x := int32(0); x < 4; x++ {
		for y := int32(0); y < 4; y++ {
			for z := int32(0); z < 4; z++ {
				nodeCounts[voxel.ChunkCoord{X: x, Y: y, Z: z}] = metaTrivialNodeCount
			}
		}
	}
	grid := BuildMetaGrid(nodeCounts, camera)
	idx, ok := MetaCellIndex(voxel.ChunkCoord{X: 0, Y: 0, Z: 0}, camera)
	require.True(t, ok, "setup: expected camera's cell to be in range")
	assert.EqualValues(t, 0, grid[idx], "fully-loaded all-trivial cell should be skippable")
}

func TestBuildMetaGridPartiallyLoadedCellStaysConservative(t *testing.T) {
	camera := voxel.ChunkCoord{X: 0, Y: 0, Z: 0}
	// Only 3 of the 64 chunks in the camera's meta-cell are loaded.
	nodeCounts := map[voxel.ChunkCoord]uint32{
		{X: 0, Y: 0, Z: 0}: metaTrivialNodeCount,
		{X: 1, Y: 0, Z: 0}: metaTrivialNodeCount,
		{X: 2, Y: 0, Z: 0}: metaTrivialNodeCount,
	}
	grid := BuildMetaGrid(nodeCounts, camera)
	idx, _ := MetaCellIndex(camera, camera)
	assert.EqualValues(t, 1, grid[idx], "partially-loaded cell should stay conservative")
}

func TestBuildMetaGridNonTrivialChunkBlocksSkip(t *testing.T) {
	camera := voxel.ChunkCoord{X: 0, Y: 0, Z: 0}
	nodeCounts := make(map[voxel.ChunkCoord]uint32)
	for x := int32(0); x < 4; x++ {
		for y := int32(0); y < 4; y++ {
			for z := int32(0); z < 4; z++ {
				nodeCounts[voxel.ChunkCoord{X: x, Y: y, Z: z}] = metaTrivialNodeCount
			}
		}
	}
	nodeCounts[voxel.ChunkCoord{X: 1, Y: 1, Z: 1}] = 500
	grid := BuildMetaGrid(nodeCounts, camera)
	idx, _ := MetaCellIndex(camera, camera)
	assert.EqualValues(t, 1, grid[idx], "a single non-trivial chunk in the cell must block the skip")
}

func TestChunkToRequestIndexRoundTrip(t *testing.T) {
	camera := voxel.ChunkCoord{X: 100, Y: 5, Z: -200}
	coords := []voxel.ChunkCoord{
		camera,
		{X: camera.X + 3, Y: camera.Y - 2, Z: camera.Z + 10},
		{X: camera.X - RequestViewRadius, Y: camera.Y, Z: camera.Z},
		{X: camera.X + RequestViewRadius, Y: camera.Y, Z: camera.Z},
	}
	for _, c := range coords {
		slot := ChunkToRequestIndex(c, camera)
		require.NotEqual(t, Sentinel, slot, "expected %v to be in range of the request grid", c)
		back := IndexToChunk(slot, camera)
		assert.Equal(t, c, back, "round trip mismatch: %v -> slot %d -> %v", c, slot, back)
	}
}

func TestChunkToRequestIndexOutOfRangeIsSentinel(t *testing.T) {
	camera := voxel.ChunkCoord{X: 0, Y: 0, Z: 0}
	far := voxel.ChunkCoord{X: RequestViewRadius + 1, Y: 0, Z: 0}
	assert.Equal(t, Sentinel, ChunkToRequestIndex(far, camera))
}

func TestDrainRequestsReturnsExactlyNonZeroSlots(t *testing.T) {
	camera := voxel.ChunkCoord{X: 0, Y: 0, Z: 0}
	slots := make([]uint32, RequestSlotCount)
	missing := []voxel.ChunkCoord{
		{X: 1, Y: 0, Z: 0},
		{X: -1, Y: 0, Z: 2},
	}
	for _, c := range missing {
		slots[ChunkToRequestIndex(c, camera)] = 1
	}

	got := DrainRequests(slots, camera)
	require.Len(t, got, len(missing))
	want := map[voxel.ChunkCoord]bool{}
	for _, c := range missing {
		want[c] = true
	}
	for _, c := range got {
		assert.True(t, want[c], "unexpected coord %v in drained requests", c)
	}
}
