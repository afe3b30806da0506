package gpu

import (
	"encoding/binary"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// chunkMetaRecordSize is the byte size of one ChunkMeta record on the
// GPU side: world_offset (3xi32) + flags + nodes_offset + nodes_count +
// leaves_offset + leaves_count = 32 bytes, 16-byte aligned per WGSL
// storage-buffer struct rules.
const chunkMetaRecordSize = 32

// ChunkMeta mirrors the WGSL ChunkMeta struct field-for-field; per the
// module's numeric-type-exactness design note this is always written
// through encoding/binary; Go field widths are chosen to match the wire
// layout exactly rather than convenient host types.
type ChunkMeta struct {
	WorldOffsetX, WorldOffsetY, WorldOffsetZ int32
	NodesOffset, NodesCount                  uint32
	LeavesOffset, LeavesCount                uint32
	Flags                                    uint32
}

const (
	chunkMetaFlagHasOpaqueDAG uint32 = 1 << 0
)

// SlotAllocator hands out dense indices with free-list reuse, the same
// shape as voxelrt/rt/gpu's SectorAlloc/BrickAlloc/PayloadAlloc.
type SlotAllocator struct {
	tail uint32
	free []uint32
}

func (a *SlotAllocator) Alloc() uint32 {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		return idx
	}
	idx := a.tail
	a.tail++
	return idx
}

func (a *SlotAllocator) FreeSlot(idx uint32) {
	a.free = append(a.free, idx)
}

// BufferManager owns the three GPU-resident buffers the ray-march
// kernel reads (hash table, meta-grid, chunk metadata plus the pooled
// node/leaf storage) and the one it writes (the request buffer),
// following voxelrt/rt/gpu.GpuBufferManager's buffer-lifecycle and
// ensureBuffer-growth conventions.
type BufferManager struct {
	Device *wgpu.Device

	HashTableBuf *wgpu.Buffer
	MetaGridBuf  *wgpu.Buffer
	ChunkMetaBuf *wgpu.Buffer
	NodesBuf     *wgpu.Buffer
	LeavesBuf    *wgpu.Buffer

	RequestBuf        *wgpu.Buffer
	requestStaging    *wgpu.Buffer
	requestMapped     bool
	requestSlotCount  uint32

	ChunkSlots SlotAllocator
}

func NewBufferManager(device *wgpu.Device) *BufferManager {
	return &BufferManager{Device: device}
}

// UploadHashTable writes a freshly-built open-addressed table, growing
// the backing buffer if needed. Called on every dirty flush per §4.J.
func (b *BufferManager) UploadHashTable(t *HashTable) {
	data := make([]byte, 4*len(t.Slots))
	for i, v := range t.Slots {
		binary.LittleEndian.PutUint32(data[4*i:], v)
	}
	b.ensureBuffer("HashTableBuf", &b.HashTableBuf, data, wgpu.BufferUsageStorage)
}

// UploadMetaGrid writes the 16^3 skip grid. Packed 4 cells per u32 word
// since the WGSL side only ever reads single bytes via a byte-extract
// helper, keeping the wire size at 4KB instead of 16KB.
func (b *BufferManager) UploadMetaGrid(grid [MetaGridCells]uint8) {
	data := make([]byte, MetaGridCells)
	copy(data, grid[:])
	b.ensureBuffer("MetaGridBuf", &b.MetaGridBuf, data, wgpu.BufferUsageStorage)
}

// UploadChunkMeta writes the dense per-chunk metadata array, indexed by
// each record's position in records (the value BuildHashTable stores for
// that chunk's coordinate).
func (b *BufferManager) UploadChunkMeta(records []ChunkMeta) {
	data := make([]byte, chunkMetaRecordSize*len(records))
	for i, r := range records {
		off := i * chunkMetaRecordSize
		binary.LittleEndian.PutUint32(data[off:], uint32(r.WorldOffsetX))
		binary.LittleEndian.PutUint32(data[off+4:], uint32(r.WorldOffsetY))
		binary.LittleEndian.PutUint32(data[off+8:], uint32(r.WorldOffsetZ))
		binary.LittleEndian.PutUint32(data[off+12:], r.Flags)
		binary.LittleEndian.PutUint32(data[off+16:], r.NodesOffset)
		binary.LittleEndian.PutUint32(data[off+20:], r.NodesCount)
		binary.LittleEndian.PutUint32(data[off+24:], r.LeavesOffset)
		binary.LittleEndian.PutUint32(data[off+28:], r.LeavesCount)
	}
	b.ensureBuffer("ChunkMetaBuf", &b.ChunkMetaBuf, data, wgpu.BufferUsageStorage)
}

// UploadPool writes the pattern-deduplicated node/leaf word pool shared
// by every chunk with an identical SVDAG (internal/clientstream's pool).
func (b *BufferManager) UploadPool(nodes, leaves []uint32) {
	b.ensureBuffer("NodesBuf", &b.NodesBuf, wordsToBytes(nodes), wgpu.BufferUsageStorage)
	b.ensureBuffer("LeavesBuf", &b.LeavesBuf, wordsToBytes(leaves), wgpu.BufferUsageStorage)
}

// EnsureRequestBuffer (re)creates the request buffer and its read-back
// staging buffer for RequestSlotCount atomic u32 slots. Safe to call
// repeatedly; it only recreates when the slot count changes.
func (b *BufferManager) EnsureRequestBuffer(slotCount uint32) {
	if b.RequestBuf != nil && b.requestSlotCount == slotCount {
		return
	}
	if b.RequestBuf != nil {
		b.RequestBuf.Release()
	}
	if b.requestStaging != nil {
		b.requestStaging.Release()
	}
	size := uint64(slotCount) * 4

	var err error
	b.RequestBuf, err = b.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "RequestBuf",
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	b.requestStaging, err = b.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "RequestReadback",
		Size:  size,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		panic(err)
	}
	b.requestSlotCount = slotCount
	b.clearRequestBuffer()
}

func (b *BufferManager) clearRequestBuffer() {
	zeros := make([]byte, b.requestSlotCount*4)
	b.Device.GetQueue().WriteBuffer(b.RequestBuf, 0, zeros)
}

// DispatchRequestReadback copies the request buffer to the staging
// buffer; grounded directly on DispatchHiZ's CopyTextureToBuffer step,
// here a flat CopyBufferToBuffer since the request buffer has no mip
// structure to walk.
func (b *BufferManager) DispatchRequestReadback(encoder *wgpu.CommandEncoder) {
	if b.RequestBuf == nil {
		return
	}
	encoder.CopyBufferToBuffer(b.RequestBuf, 0, b.requestStaging, 0, b.requestStaging.GetSize())
}

// ReadbackRequests polls the mapping started by a prior
// DispatchRequestReadback submission and, once mapped, returns the raw
// slot values and clears the live request buffer for the next frame.
// Grounded on ReadbackHiZ's MapAsync/Device.Poll/GetMappedRange/Unmap
// sequence, generalized from float32 depth texels to uint32 atomic
// counters.
func (b *BufferManager) ReadbackRequests() []uint32 {
	if b.requestStaging == nil {
		return nil
	}
	if !b.requestMapped {
		b.requestStaging.MapAsync(wgpu.MapModeRead, 0, b.requestStaging.GetSize(), func(status wgpu.BufferMapAsyncStatus) {
			if status == wgpu.BufferMapAsyncStatusSuccess {
				b.requestMapped = true
			} else {
				fmt.Printf("request buffer MapAsync failed: %d\n", status)
			}
		})
	}
	b.Device.Poll(false, nil)
	if !b.requestMapped {
		return nil
	}

	size := b.requestStaging.GetSize()
	raw := b.requestStaging.GetMappedRange(0, uint(size))
	slots := make([]uint32, size/4)
	for i := range slots {
		slots[i] = binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
	}
	b.requestStaging.Unmap()
	b.requestMapped = false

	b.clearRequestBuffer()
	return slots
}

func (b *BufferManager) ensureBuffer(name string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage) {
	usage = usage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc
	size := uint64(len(data))
	if size == 0 {
		size = 4
	}

	current := *buf
	if current == nil || current.GetSize() < size {
		if current != nil {
			current.Release()
		}
		created, err := b.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: name,
			Size:  size,
			Usage: usage,
		})
		if err != nil {
			panic(err)
		}
		*buf = created
	}
	if len(data) > 0 {
		b.Device.GetQueue().WriteBuffer(*buf, 0, data)
	}
}

func wordsToBytes(words []uint32) []byte {
	b := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[4*i:], w)
	}
	return b
}
