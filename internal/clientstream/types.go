// Package clientstream implements the client-side chunk manager
// (component I): request-on-miss fetching, a pattern-level SVDAG pool,
// and three-tier eviction, exactly per spec §4.I.
package clientstream

import (
	"time"

	"github.com/markaspall/svdagworld/internal/voxel"
)

// ChunkEntry is one loaded chunk: a handle into the pool plus the
// bookkeeping eviction scoring needs.
type ChunkEntry struct {
	Coord      voxel.ChunkCoord
	PoolID     uint64
	LoadedAt   time.Time
	LastTouch  time.Time
	InView     bool
	Dist       float64
}

// PoolEntry is one distinct SVDAG pattern, shared by every chunk whose
// decoded nodes/leaves bytes are identical. RefCount is the number of
// ChunkEntry values currently pointing at this entry.
type PoolEntry struct {
	ID        uint64
	Nodes     []uint32
	Leaves    []uint32
	Root      uint32
	NodeCount uint32
	LeafCount uint32
	RefCount  uint32
}

// pendingRequest is one entry in the distance/frequency-sorted fetch
// queue.
type pendingRequest struct {
	coord     voxel.ChunkCoord
	dist      float64
	frequency int
}
