package chunkcodec

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/markaspall/svdagworld/internal/svdag"
	"github.com/markaspall/svdagworld/internal/voxel"
)

// Encode packs a built SVDAG graph into the binary wire/disk format. An
// empty graph (g.Empty()) encodes as the 32-byte header-only empty-chunk
// fast path with all counts zero, which Decode must tolerate.
func Encode(g *svdag.Graph, opts EncodeOptions) []byte {
	version := uint32(opts.Version)
	if version == 0 {
		version = Version1
	}

	var flags uint32
	if version == Version2 && opts.OpaqueNodes != nil {
		flags |= flagHasOpaqueDAG
	}
	if opts.Metadata != nil {
		flags |= flagHasMetadata
	}

	matNodeBytes := wordsToBytes(g.Nodes)
	matLeafBytes := wordsToBytes(g.Leaves)

	size := headerSizeV1
	if flags&flagHasOpaqueDAG != 0 {
		size += headerSizeV2Opaque
	}
	size += len(matNodeBytes) + len(matLeafBytes)

	var opqNodeBytes []byte
	if flags&flagHasOpaqueDAG != 0 {
		opqNodeBytes = wordsToBytes(opts.OpaqueNodes)
		size += len(opqNodeBytes)
	}
	if flags&flagHasMetadata != 0 {
		size += len(opts.Metadata)
	}

	buf := make([]byte, size)
	binary.LittleEndian.PutUint32(buf[0:4], Magic)
	binary.LittleEndian.PutUint32(buf[4:8], version)
	binary.LittleEndian.PutUint32(buf[8:12], voxel.GridSize)
	binary.LittleEndian.PutUint32(buf[12:16], g.NodeCount)
	binary.LittleEndian.PutUint32(buf[16:20], g.LeafCount)
	binary.LittleEndian.PutUint32(buf[20:24], g.Root)
	binary.LittleEndian.PutUint32(buf[24:28], flags)
	// checksum (bytes 28:32) filled in after the rest of the buffer is
	// written, since it covers "remaining bytes" per the wire format.

	off := headerSizeV1
	if flags&flagHasOpaqueDAG != 0 {
		binary.LittleEndian.PutUint32(buf[off:off+4], opts.OpaqueRootIdx)
		binary.LittleEndian.PutUint32(buf[off+4:off+8], opts.OpaqueNodeCnt)
		off += headerSizeV2Opaque
	}

	off += copy(buf[off:], matNodeBytes)
	off += copy(buf[off:], matLeafBytes)
	if flags&flagHasOpaqueDAG != 0 {
		off += copy(buf[off:], opqNodeBytes)
	}
	if flags&flagHasMetadata != 0 {
		off += copy(buf[off:], opts.Metadata)
	}

	checksum := crc32.ChecksumIEEE(buf[32:])
	binary.LittleEndian.PutUint32(buf[28:32], checksum)

	return buf
}

func wordsToBytes(words []uint32) []byte {
	b := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[4*i:], w)
	}
	return b
}
