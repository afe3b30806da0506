package clientstream

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/markaspall/svdagworld/internal/chunkcodec"
	"github.com/markaspall/svdagworld/internal/config"
	"github.com/markaspall/svdagworld/internal/logging"
	"github.com/markaspall/svdagworld/internal/voxel"
)

// Manager is the client-side chunk manager (component I): it turns a
// stream of "this chunk is missing" requests from the GPU-facing layer
// into bounded-concurrency HTTP fetches, interns decoded chunks into a
// pattern-level SVDAG pool, and evicts chunks under memory pressure.
// It owns no GPU resources directly; Dirty() reports when the caller
// should re-upload the spatial hash table and pool buffers.
type Manager struct {
	mu sync.Mutex

	cfg     config.StreamingConfig
	worldID string
	fetcher fetcher
	log     logging.Logger

	chunks  map[voxel.ChunkCoord]*ChunkEntry
	loading map[voxel.ChunkCoord]bool
	pending []pendingRequest
	cooldown map[voxel.ChunkCoord]time.Time

	pool *pool

	dirty bool
}

// New builds a Manager that fetches chunks from cfg.ServerBaseURL for
// world cfg.WorldID.
func New(cfg config.ClientConfig, log logging.Logger) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	return &Manager{
		cfg:      cfg.Streaming,
		worldID:  cfg.WorldID,
		fetcher:  newHTTPFetcher(cfg.ServerBaseURL),
		log:      log,
		chunks:   make(map[voxel.ChunkCoord]*ChunkEntry),
		loading:  make(map[voxel.ChunkCoord]bool),
		cooldown: make(map[voxel.ChunkCoord]time.Time),
		pool:     newPool(),
	}
}

// Loaded reports whether coord currently has a resident chunk.
func (m *Manager) Loaded(coord voxel.ChunkCoord) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.chunks[coord]
	return ok
}

// Dirty reports whether the GPU-facing layer should re-upload the
// spatial hash table and pool buffers since the last call, clearing the
// flag.
func (m *Manager) Dirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.dirty
	m.dirty = false
	return d
}

// Request enqueues coord for fetching if it is not already loaded,
// in flight, or in its post-eviction cooldown window. dist is the
// camera-space distance used to prioritize the fetch queue.
func (m *Manager) Request(coord voxel.ChunkCoord, dist float64, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.chunks[coord]; ok {
		return
	}
	if m.loading[coord] {
		return
	}
	if until, ok := m.cooldown[coord]; ok {
		if now.Before(until) {
			return
		}
		delete(m.cooldown, coord)
	}

	for i, p := range m.pending {
		if p.coord == coord {
			m.pending[i].frequency++
			m.pending[i].dist = dist
			return
		}
	}
	m.pending = append(m.pending, pendingRequest{coord: coord, dist: dist, frequency: 1})
}

// Tick drives one update cycle: it launches up to MaxNewChunksPerTick
// fetches (bounded to MaxInFlightFetches concurrent requests), applies
// any completed fetches, then runs eviction. camera supplies per-chunk
// distance and in-view state for the chunks already resident, used by
// the eviction scorer.
func (m *Manager) Tick(ctx context.Context, now time.Time, camera func(voxel.ChunkCoord) (dist float64, inView bool)) {
	m.drainFetches(ctx, now)
	m.applyCameraState(camera)
	m.runEviction(now)
}

func (m *Manager) drainFetches(ctx context.Context, now time.Time) {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return
	}
	sort.Slice(m.pending, func(i, j int) bool {
		si := m.pending[i].dist - float64(m.pending[i].frequency)*8
		sj := m.pending[j].dist - float64(m.pending[j].frequency)*8
		return si < sj
	})

	budget := m.cfg.MaxNewChunksPerTick
	if budget <= 0 {
		budget = len(m.pending)
	}
	if budget > len(m.pending) {
		budget = len(m.pending)
	}
	batch := make([]voxel.ChunkCoord, 0, budget)
	rest := m.pending[budget:]
	for _, p := range m.pending[:budget] {
		if m.loading[p.coord] {
			continue
		}
		m.loading[p.coord] = true
		batch = append(batch, p.coord)
	}
	m.pending = append([]pendingRequest{}, rest...)
	m.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	results := make(chan fetchResult, len(batch))
	concurrency := m.cfg.MaxInFlightFetches
	runFetchWorkers(ctx, m.fetcher, m.worldID, batch, concurrency, results)

	for i := 0; i < len(batch); i++ {
		res := <-results
		m.onReceived(res.coord, res.data, res.err, now)
	}
}

func (m *Manager) onReceived(coord voxel.ChunkCoord, data []byte, fetchErr error, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.loading, coord)

	if fetchErr != nil {
		m.log.Warnf("chunk fetch failed for %+v: %v", coord, fetchErr)
		m.pending = append(m.pending, pendingRequest{coord: coord, dist: 0, frequency: 1})
		return
	}

	chunk, err := chunkcodec.Decode(data)
	if err != nil {
		m.log.Warnf("chunk decode failed for %+v: %v", coord, err)
		if cooldown := time.Duration(m.cfg.CooldownSeconds * float64(time.Second)); cooldown > 0 {
			m.cooldown[coord] = now.Add(cooldown)
		}
		return
	}

	entry := m.pool.intern(chunk.MaterialNodes, chunk.MaterialLeaves, chunk.Header.MatRootIdx, chunk.Header.MatNodeCount, chunk.Header.MatLeafCount)
	m.chunks[coord] = &ChunkEntry{
		Coord:     coord,
		PoolID:    entry.ID,
		LoadedAt:  now,
		LastTouch: now,
	}
	m.dirty = true
}

func (m *Manager) applyCameraState(camera func(voxel.ChunkCoord) (float64, bool)) {
	if camera == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for coord, e := range m.chunks {
		dist, inView := camera(coord)
		e.Dist = dist
		if inView {
			e.InView = true
			e.LastTouch = time.Now()
		} else {
			e.InView = false
		}
	}
}

// runEviction applies the three-tier policy from §4.I: ancient chunks
// are always dropped; under pressure >= 1.0 the worst-scored chunks are
// evicted down to the soft cap; >= 1.2 weighs recency harder; >= 1.5
// evicts the same way as >= 1.2. The tier is not exposed outside this
// package, and Manager has no notion of draw distance itself.
func (m *Manager) runEviction(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ancientAge := time.Duration(m.cfg.AncientAgeSeconds * float64(time.Second))
	for coord, e := range m.chunks {
		if isAncient(e, now, ancientAge) {
			m.evictLocked(coord, now)
		}
	}

	tier := classifyPressure(len(m.chunks), m.cfg.SoftCapChunks)
	if tier == pressureNone {
		return
	}

	candidates := make([]*ChunkEntry, 0, len(m.chunks))
	refCounts := make(map[uint64]uint32)
	for _, e := range m.chunks {
		candidates = append(candidates, e)
	}
	for _, bucket := range m.pool.entries {
		for _, pe := range bucket {
			refCounts[pe.ID] = pe.RefCount
		}
	}

	target := m.cfg.SoftCapChunks
	ranked := rankForEviction(candidates, now, refCounts, tier)
	for _, e := range ranked {
		if len(m.chunks) <= target {
			break
		}
		m.evictLocked(e.Coord, now)
	}
}

// evictLocked removes coord's entry, releases its pool reference and
// starts its cooldown window. Caller must hold m.mu.
func (m *Manager) evictLocked(coord voxel.ChunkCoord, now time.Time) {
	e, ok := m.chunks[coord]
	if !ok {
		return
	}
	delete(m.chunks, coord)
	m.pool.release(e.PoolID)
	cooldown := time.Duration(m.cfg.CooldownSeconds * float64(time.Second))
	if cooldown > 0 {
		m.cooldown[coord] = now.Add(cooldown)
	}
	m.dirty = true
}

// Evict forcibly drops coord, as if it had aged out. Exposed for the
// invalidate-chunk server notification path (§6.1).
func (m *Manager) Evict(coord voxel.ChunkCoord, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked(coord, now)
}

// SnapshotChunk is one resident chunk's decoded SVDAG words, keyed by
// chunk coordinate in Snapshot.
type SnapshotChunk struct {
	Nodes, Leaves                  []uint32
	Root, NodeCount, LeafCount uint32
}

// Snapshot returns every resident chunk's decoded words, keyed by
// coordinate, for the caller to rebuild the GPU-facing hash table, chunk
// metadata, and pool buffers after Dirty() reports a change. Identical
// chunks sharing a pool entry share the same backing slices here too;
// the caller's nodes/leaves buffer packing still writes them once per
// chunk, same as the pool's own per-chunk refcounting.
func (m *Manager) Snapshot() map[voxel.ChunkCoord]SnapshotChunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[voxel.ChunkCoord]SnapshotChunk, len(m.chunks))
	for coord, e := range m.chunks {
		pe, ok := m.pool.find(e.PoolID)
		if !ok {
			continue
		}
		out[coord] = SnapshotChunk{Nodes: pe.Nodes, Leaves: pe.Leaves, Root: pe.Root, NodeCount: pe.NodeCount, LeafCount: pe.LeafCount}
	}
	return out
}

// Stats reports counts useful for an on-screen debug overlay.
type Stats struct {
	Loaded   int
	Loading  int
	Pending  int
	PoolSize int
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	poolSize := 0
	for _, bucket := range m.pool.entries {
		poolSize += len(bucket)
	}
	return Stats{
		Loaded:   len(m.chunks),
		Loading:  len(m.loading),
		Pending:  len(m.pending),
		PoolSize: poolSize,
	}
}
