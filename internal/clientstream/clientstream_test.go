package clientstream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/markaspall/svdagworld/internal/chunkcodec"
	"github.com/markaspall/svdagworld/internal/config"
	"github.com/markaspall/svdagworld/internal/svdag"
	"github.com/markaspall/svdagworld/internal/voxel"
)

// fakeFetcher serves canned chunk bytes without touching the network, so
// Manager's bookkeeping can be tested without an HTTP server.
type fakeFetcher struct {
	data map[voxel.ChunkCoord][]byte
	fail map[voxel.ChunkCoord]bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, worldID string, coord voxel.ChunkCoord) ([]byte, error) {
	if f.fail[coord] {
		return nil, errFakeFetch
	}
	return f.data[coord], nil
}

var errFakeFetch = errors.New("fake fetch failure")

func testManager(t *testing.T, data map[voxel.ChunkCoord][]byte, fail map[voxel.ChunkCoord]bool) *Manager {
	t.Helper()
	cfg := config.DefaultClientConfig()
	cfg.Streaming.SoftCapChunks = 2
	cfg.Streaming.MaxInFlightFetches = 4
	cfg.Streaming.MaxNewChunksPerTick = 10
	cfg.Streaming.AncientAgeSeconds = 3600
	cfg.Streaming.CooldownSeconds = 1

	m := New(cfg, nil)
	m.fetcher = &fakeFetcher{data: data, fail: fail}
	return m
}

func encodedEmptyChunk(t *testing.T) []byte {
	t.Helper()
	g := &svdag.Graph{}
	return chunkcodec.Encode(g, chunkcodec.EncodeOptions{})
}

func TestRequestThenTickLoadsChunk(t *testing.T) {
	coord := voxel.ChunkCoord{X: 1, Y: 0, Z: 1}
	data := map[voxel.ChunkCoord][]byte{coord: encodedEmptyChunk(t)}
	m := testManager(t, data, nil)

	now := fixedNow()
	m.Request(coord, 5.0, now)
	m.Tick(context.Background(), now, nil)

	if !m.Loaded(coord) {
		t.Fatal("expected chunk to be loaded after Tick")
	}
	if !m.Dirty() {
		t.Fatal("expected Dirty() to report true after a new chunk loads")
	}
	if m.Dirty() {
		t.Fatal("expected Dirty() to clear after being read once")
	}
}

func TestRequestDuplicateCoalesces(t *testing.T) {
	coord := voxel.ChunkCoord{X: 2, Y: 0, Z: 2}
	m := testManager(t, nil, nil)
	now := fixedNow()

	m.Request(coord, 10, now)
	m.Request(coord, 10, now)

	m.mu.Lock()
	n := len(m.pending)
	freq := m.pending[0].frequency
	m.mu.Unlock()

	if n != 1 {
		t.Fatalf("pending queue length = %d, want 1", n)
	}
	if freq != 2 {
		t.Fatalf("frequency = %d, want 2", freq)
	}
}

func TestRequestSkippedWhileLoaded(t *testing.T) {
	coord := voxel.ChunkCoord{X: 3, Y: 0, Z: 3}
	data := map[voxel.ChunkCoord][]byte{coord: encodedEmptyChunk(t)}
	m := testManager(t, data, nil)
	now := fixedNow()

	m.Request(coord, 1, now)
	m.Tick(context.Background(), now, nil)
	m.Request(coord, 1, now)

	m.mu.Lock()
	n := len(m.pending)
	m.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected no pending request for an already-loaded chunk, got %d", n)
	}
}

func TestFailedFetchRequeues(t *testing.T) {
	coord := voxel.ChunkCoord{X: 4, Y: 0, Z: 4}
	m := testManager(t, nil, map[voxel.ChunkCoord]bool{coord: true})
	now := fixedNow()

	m.Request(coord, 1, now)
	m.Tick(context.Background(), now, nil)

	if m.Loaded(coord) {
		t.Fatal("chunk should not be loaded after a failed fetch")
	}
	m.mu.Lock()
	n := len(m.pending)
	m.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected the failed fetch to requeue, pending = %d", n)
	}
}

func TestEvictReleasesPoolEntryAndStartsCooldown(t *testing.T) {
	coord := voxel.ChunkCoord{X: 5, Y: 0, Z: 5}
	data := map[voxel.ChunkCoord][]byte{coord: encodedEmptyChunk(t)}
	m := testManager(t, data, nil)
	now := fixedNow()

	m.Request(coord, 1, now)
	m.Tick(context.Background(), now, nil)
	if !m.Loaded(coord) {
		t.Fatal("setup: expected chunk loaded")
	}

	m.Evict(coord, now)
	if m.Loaded(coord) {
		t.Fatal("expected chunk to be gone after Evict")
	}

	// A request issued immediately after eviction should be blocked by
	// cooldown.
	m.Request(coord, 1, now)
	m.mu.Lock()
	n := len(m.pending)
	m.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected cooldown to block immediate re-request, pending = %d", n)
	}

	later := now.Add(2 * time.Second)
	m.Request(coord, 1, later)
	m.mu.Lock()
	n = len(m.pending)
	m.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected request to succeed after cooldown elapses, pending = %d", n)
	}
}

func TestTwoIdenticalChunksShareOnePoolEntry(t *testing.T) {
	a := voxel.ChunkCoord{X: 10, Y: 0, Z: 0}
	b := voxel.ChunkCoord{X: 11, Y: 0, Z: 0}
	blob := encodedEmptyChunk(t)
	data := map[voxel.ChunkCoord][]byte{a: blob, b: append([]byte{}, blob...)}
	m := testManager(t, data, nil)
	now := fixedNow()

	m.Request(a, 1, now)
	m.Request(b, 2, now)
	m.Tick(context.Background(), now, nil)

	m.mu.Lock()
	idA := m.chunks[a].PoolID
	idB := m.chunks[b].PoolID
	poolSize := 0
	for _, bucket := range m.pool.entries {
		poolSize += len(bucket)
	}
	m.mu.Unlock()

	if idA != idB {
		t.Fatalf("identical chunks got different pool ids: %d vs %d", idA, idB)
	}
	if poolSize != 1 {
		t.Fatalf("pool size = %d, want 1 shared entry", poolSize)
	}
}

func TestAncientChunkEvictedOnTick(t *testing.T) {
	coord := voxel.ChunkCoord{X: 20, Y: 0, Z: 0}
	data := map[voxel.ChunkCoord][]byte{coord: encodedEmptyChunk(t)}
	m := testManager(t, data, nil)
	m.cfg.AncientAgeSeconds = 5

	now := fixedNow()
	m.Request(coord, 1, now)
	m.Tick(context.Background(), now, nil)
	if !m.Loaded(coord) {
		t.Fatal("setup: expected chunk loaded")
	}

	later := now.Add(10 * time.Second)
	m.Tick(context.Background(), later, nil)
	if m.Loaded(coord) {
		t.Fatal("expected ancient chunk to be evicted")
	}
}

func fixedNow() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}
