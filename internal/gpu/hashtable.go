// Package gpu owns the GPU-resident buffers the ray-march kernel reads:
// the spatial hash table (component J), the meta-grid (component K), and
// the request buffer reader (component L). Each component's addressing
// math is kept in its own pure-function file so the CPU build logic and
// the shader's lookup logic provably share one definition; the
// wgpu.Device-touching upload code lives in buffers.go.
package gpu

import "github.com/markaspall/svdagworld/internal/voxel"

// Sentinel marks an empty hash-table slot or a not-found lookup result,
// matching the WGSL kernel's 0xFFFFFFFF convention exactly.
const Sentinel uint32 = 0xFFFFFFFF

// MaxProbe bounds linear probing on both the CPU builder and the shader
// lookup; a probe that exceeds it is treated as not-found rather than
// looping the whole table.
const MaxProbe = 32

// minHashTableSize is the floor the spec's "next power of two >= 2.7 *
// soft_cap" sizing rule applies above, so a tiny soft cap (as in tests)
// still gets a table large enough for the probe bound to be meaningful.
const minHashTableSize = 1024

// HashTableSize returns the table slot count for a given soft cap: the
// next power of two at or above 2.7*softCap, per spec §4.J.
func HashTableSize(softCap int) int {
	if softCap <= 0 {
		return minHashTableSize
	}
	need := int(float64(softCap)*2.7 + 0.999999)
	size := 1
	for size < need {
		size <<= 1
	}
	if size < minHashTableSize {
		size = minHashTableSize
	}
	return size
}

// hashChunkCoord is the one hash function both CPU build and (nominally)
// shader lookup share; a simple odd-constant multiplicative mix keeps the
// WGSL port trivial (no 64-bit math needed in the kernel).
func hashChunkCoord(coord voxel.ChunkCoord, size int) uint32 {
	h := uint32(coord.X)*0x9E3779B1 ^ uint32(coord.Y)*0x85EBCA77 ^ uint32(coord.Z)*0xC2B2AE3D
	return h % uint32(size)
}

// HashTable is the CPU-built open-addressed table: Slots holds, at each
// index, either Sentinel or the GPU metadata-array index of the chunk
// hashed there (resolved via linear probing, bounded by MaxProbe).
type HashTable struct {
	Slots []uint32
	Size  int
}

// BuildHashTable rebuilds the table from scratch from the current set of
// loaded chunks (chunkIndex maps each loaded coord to its index into the
// dense GPU chunk-metadata array). Rebuilding from scratch on every dirty
// flush, rather than incrementally, avoids having to support deletion
// with linear probing (whose naive deletion breaks probe chains).
func BuildHashTable(size int, chunkIndex map[voxel.ChunkCoord]uint32) *HashTable {
	t := &HashTable{Slots: make([]uint32, size), Size: size}
	for i := range t.Slots {
		t.Slots[i] = Sentinel
	}
	for coord, idx := range chunkIndex {
		t.insert(coord, idx)
	}
	return t
}

func (t *HashTable) insert(coord voxel.ChunkCoord, idx uint32) bool {
	base := hashChunkCoord(coord, t.Size)
	for p := 0; p < MaxProbe; p++ {
		slot := (base + uint32(p)) % uint32(t.Size)
		if t.Slots[slot] == Sentinel {
			t.Slots[slot] = idx
			return true
		}
	}
	return false
}

// Lookup mirrors the shader's lookup exactly: hash, then linear-probe up
// to MaxProbe slots, confirming each candidate against the dense
// metadata array (coordAt) since the table itself stores only the
// metadata index, not the key — identical to how the WGSL kernel must
// dereference chunk_meta[slot_value].coord to rule out a hash collision
// before accepting a hit.
func (t *HashTable) Lookup(coord voxel.ChunkCoord, coordAt func(idx uint32) voxel.ChunkCoord) (uint32, bool) {
	base := hashChunkCoord(coord, t.Size)
	for p := 0; p < MaxProbe; p++ {
		slot := (base + uint32(p)) % uint32(t.Size)
		v := t.Slots[slot]
		if v == Sentinel {
			return Sentinel, false
		}
		if coordAt(v) == coord {
			return v, true
		}
	}
	return Sentinel, false
}
