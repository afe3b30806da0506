// Package voxel holds the primitive types shared across the generator,
// SVDAG builder, codec, cache and client packages: chunk/super-chunk
// coordinates, block IDs and the fixed 32^3 voxel grid layout.
//
// Keeping these in one leaf package (rather than letting each consumer
// define its own ChunkCoord) is what makes the voxel-index and octant
// conventions genuinely shared end-to-end, per spec invariants P2/P3.
package voxel

import "fmt"

// GridSize is the edge length of a stream chunk, in voxels.
const GridSize = 32

// GridVolume is the number of voxels in a stream chunk.
const GridVolume = GridSize * GridSize * GridSize

// SuperChunkSize is the edge length of a super-chunk, in world x/z voxels.
const SuperChunkSize = 512

// ChunksPerSuperChunk is how many stream chunks span one super-chunk edge.
const ChunksPerSuperChunk = SuperChunkSize / GridSize // 16

// BlockID identifies a material in the material table. Zero is air.
type BlockID = uint32

const AirBlock BlockID = 0

// ChunkCoord addresses one 32^3 stream chunk.
type ChunkCoord struct {
	X, Y, Z int32
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Key returns a 96-bit little-endian packing of the coordinate, for use as
// a content-addressed cache key or wire identifier where a Go map key isn't
// appropriate.
func (c ChunkCoord) Key() [12]byte {
	var k [12]byte
	putInt32(k[0:4], c.X)
	putInt32(k[4:8], c.Y)
	putInt32(k[8:12], c.Z)
	return k
}

func putInt32(b []byte, v int32) {
	u := uint32(v)
	b[0] = byte(u)
	b[1] = byte(u >> 8)
	b[2] = byte(u >> 16)
	b[3] = byte(u >> 24)
}

// SuperChunk returns the super-chunk coordinate this chunk's column falls
// under: sx=floor(cx/16), sz=floor(cz/16).
func (c ChunkCoord) SuperChunk() SuperChunkCoord {
	return SuperChunkCoord{
		SX: floorDiv(c.X, ChunksPerSuperChunk),
		SZ: floorDiv(c.Z, ChunksPerSuperChunk),
	}
}

// LocalColumn returns this chunk's (x,z) offset within its super-chunk, in
// chunk units (0..15).
func (c ChunkCoord) LocalColumn() (lx, lz int32) {
	sc := c.SuperChunk()
	return c.X - sc.SX*ChunksPerSuperChunk, c.Z - sc.SZ*ChunksPerSuperChunk
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// SuperChunkCoord addresses one 512x512 world-x/z region shared by all
// chunks with the same floor(cx/16), floor(cz/16).
type SuperChunkCoord struct {
	SX, SZ int32
}

func (s SuperChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d)", s.SX, s.SZ)
}

// Index returns the flat voxel-grid index for local coordinates in [0,32).
// This formula is the one invariant every producer (voxelizer) and consumer
// (SVDAG builder, ray-march reference) must agree on bit-for-bit.
func Index(x, y, z int) int {
	return z*1024 + y*32 + x
}

// VoxelGrid is the fixed 32^3 block-ID grid a stream chunk voxelizes to.
type VoxelGrid [GridVolume]BlockID

func (g *VoxelGrid) At(x, y, z int) BlockID {
	return g[Index(x, y, z)]
}

func (g *VoxelGrid) Set(x, y, z int, id BlockID) {
	g[Index(x, y, z)] = id
}

// Material describes one entry in the external material table. Only the
// transparency flag is used by this module; color/shading data is an
// external (client-owned) concern.
type Material struct {
	Name        string
	Transparent bool
}

// MaterialTable is indexed by BlockID; MaterialTable[0] is conventionally
// air and always transparent.
type MaterialTable []Material

func (t MaterialTable) Transparent(id BlockID) bool {
	if id == AirBlock {
		return true
	}
	if int(id) >= len(t) {
		return false
	}
	return t[id].Transparent
}
