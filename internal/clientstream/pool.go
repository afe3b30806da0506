package clientstream

import (
	"encoding/binary"
	"hash/maphash"
)

// pool dedups decoded SVDAG node/leaf byte blobs by content, so that
// identical patterns across many chunks (flat stone, open air, ocean
// floor) share one PoolEntry instead of one per chunk. The GPU-side pool
// buffers still hold one copy per chunk.
type pool struct {
	seed    maphash.Seed
	entries map[uint64][]*PoolEntry
	idToKey map[uint64]uint64
	nextID  uint64
}

func newPool() *pool {
	return &pool{
		seed:    maphash.MakeSeed(),
		entries: make(map[uint64][]*PoolEntry),
		idToKey: make(map[uint64]uint64),
	}
}

func writeWords(h *maphash.Hash, words []uint32) {
	var buf [4]byte
	for _, w := range words {
		binary.LittleEndian.PutUint32(buf[:], w)
		h.Write(buf[:])
	}
}

func (p *pool) hash(nodes, leaves []uint32) uint64 {
	var h maphash.Hash
	h.SetSeed(p.seed)
	writeWords(&h, nodes)
	h.Write([]byte{0xff})
	writeWords(&h, leaves)
	return h.Sum64()
}

// intern returns the PoolEntry holding nodes/leaves, allocating a new one
// only if no existing entry's words match exactly (the hash narrows the
// candidate list; elementwise compare resolves collisions).
func (p *pool) intern(nodes, leaves []uint32, root, nodeCount, leafCount uint32) *PoolEntry {
	key := p.hash(nodes, leaves)
	for _, e := range p.entries[key] {
		if wordsEqual(e.Nodes, nodes) && wordsEqual(e.Leaves, leaves) {
			e.RefCount++
			return e
		}
	}
	p.nextID++
	e := &PoolEntry{ID: p.nextID, Nodes: nodes, Leaves: leaves, Root: root, NodeCount: nodeCount, LeafCount: leafCount, RefCount: 1}
	p.entries[key] = append(p.entries[key], e)
	p.idToKey[e.ID] = key
	return e
}

// find returns the PoolEntry with the given id, if still resident.
func (p *pool) find(id uint64) (*PoolEntry, bool) {
	key, ok := p.idToKey[id]
	if !ok {
		return nil, false
	}
	for _, e := range p.entries[key] {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}

// release drops one reference from the entry holding id, freeing it from
// the pool once its refcount reaches zero. Reports whether the entry was
// freed.
func (p *pool) release(id uint64) bool {
	key, ok := p.idToKey[id]
	if !ok {
		return false
	}
	bucket := p.entries[key]
	for i, e := range bucket {
		if e.ID != id {
			continue
		}
		e.RefCount--
		if e.RefCount > 0 {
			return false
		}
		bucket = append(bucket[:i], bucket[i+1:]...)
		if len(bucket) == 0 {
			delete(p.entries, key)
		} else {
			p.entries[key] = bucket
		}
		delete(p.idToKey, id)
		return true
	}
	return false
}

func wordsEqual(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
