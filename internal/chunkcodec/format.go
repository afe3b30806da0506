// Package chunkcodec implements the fixed binary wire/disk format for one
// stream chunk's SVDAG: component E. Field layout matches the shared
// header exactly (little-endian, absolute byte offsets); the
// magic/version-check-then-binary.Read style follows vox.go's
// LoadVoxFile, upgraded to a closed CodecError taxonomy instead of ad hoc
// errors.New strings since this is the one wire boundary the spec
// requires callers to branch on by kind.
package chunkcodec

const (
	// Magic is 'SVDA' read big-endian as a u32; written little-endian, its
	// bytes on the wire are "ADVS".
	Magic uint32 = 0x53564441

	Version1 uint32 = 1
	Version2 uint32 = 2

	headerSizeV1 = 32
	headerSizeV2Opaque = 8 // extra bytes appended when v2 flags.bit0 is set

	flagHasOpaqueDAG uint32 = 1 << 0
	flagCompressed   uint32 = 1 << 1
	flagHasMetadata  uint32 = 1 << 2
)

// Header mirrors the wire header fields exactly, in field order.
type Header struct {
	Version       uint32
	ChunkSize     uint32
	MatNodeCount  uint32
	MatLeafCount  uint32
	MatRootIdx    uint32
	Flags         uint32
	Checksum      uint32
	OpqRootIdx    uint32
	OpqNodeCount  uint32
}

func (h Header) hasOpaqueDAG() bool { return h.Version == Version2 && h.Flags&flagHasOpaqueDAG != 0 }
func (h Header) hasMetadata() bool  { return h.Flags&flagHasMetadata != 0 }

// Chunk is the decoded form of a chunk's binary payload: the material
// SVDAG (always present, possibly empty). For v2 payloads Decode reads the
// opaque-DAG header fields into Header (OpqRootIdx, OpqNodeCount), but it
// does not extract the opaque-DAG words or the metadata bytes:
// OpaqueNodes and Metadata are left nil. chunkserver never emits v2.
type Chunk struct {
	Header Header

	MaterialNodes  []uint32
	MaterialLeaves []uint32

	OpaqueNodes []uint32 // not filled by Decode

	Metadata []byte // not filled by Decode
}

// EncodeOptions controls what Encode writes beyond the mandatory material
// DAG.
type EncodeOptions struct {
	Version int // 1 or 2; defaults to 1 if zero

	// OpaqueNodes, when non-nil and Version==2, is written as the opaque
	// DAG section with flags.bit0 set.
	OpaqueNodes    []uint32
	OpaqueRootIdx  uint32
	OpaqueNodeCnt  uint32

	Metadata []byte // written with flags.bit2 set when non-nil
}
