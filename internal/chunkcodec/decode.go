package chunkcodec

import (
	"encoding/binary"
	"hash/crc32"
)

// Decode parses a chunk's binary payload. It validates magic, version,
// buffer length at each stage, and (if non-zero) the checksum, returning
// a *CodecError with the appropriate Kind on any failure rather than a
// generic error — callers branch on Kind to decide 404 vs 500 (server)
// or discard-and-cooldown (client).
func Decode(data []byte) (*Chunk, error) {
	if len(data) < headerSizeV1 {
		return nil, newErr(TruncatedPayload, "need at least %d header bytes, got %d", headerSizeV1, len(data))
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != Magic {
		return nil, newErr(InvalidMagic, "got 0x%08X, want 0x%08X", magic, Magic)
	}

	version := binary.LittleEndian.Uint32(data[4:8])
	if version != Version1 && version != Version2 {
		return nil, newErr(UnsupportedVersion, "got %d, supported: 1, 2", version)
	}

	h := Header{
		Version:      version,
		ChunkSize:    binary.LittleEndian.Uint32(data[8:12]),
		MatNodeCount: binary.LittleEndian.Uint32(data[12:16]),
		MatLeafCount: binary.LittleEndian.Uint32(data[16:20]),
		MatRootIdx:   binary.LittleEndian.Uint32(data[20:24]),
		Flags:        binary.LittleEndian.Uint32(data[24:28]),
		Checksum:     binary.LittleEndian.Uint32(data[28:32]),
	}

	off := headerSizeV1
	if h.hasOpaqueDAG() {
		if len(data) < off+headerSizeV2Opaque {
			return nil, newErr(TruncatedPayload, "v2 opaque header truncated")
		}
		h.OpqRootIdx = binary.LittleEndian.Uint32(data[off : off+4])
		h.OpqNodeCount = binary.LittleEndian.Uint32(data[off+4 : off+8])
		off += headerSizeV2Opaque
	}

	// The checksum is verified after the structural checks, so a short
	// buffer reports TruncatedPayload rather than ChecksumMismatch.
	checksumErr := func() error {
		if h.Checksum == 0 {
			return nil
		}
		if got := crc32.ChecksumIEEE(data[32:]); got != h.Checksum {
			return newErr(ChecksumMismatch, "got 0x%08X, want 0x%08X", got, h.Checksum)
		}
		return nil
	}

	if h.MatNodeCount == 0 {
		// Empty-chunk fast path: no node/leaf words follow at all,
		// regardless of what MatLeafCount/MatRootIdx claim.
		if err := checksumErr(); err != nil {
			return nil, err
		}
		return &Chunk{Header: h}, nil
	}

	payload := bytesToWords(data[off:])

	nodeWordLen, err := walkNodeSection(payload, int(h.MatNodeCount), int(h.MatLeafCount))
	if err != nil {
		return nil, err
	}
	if h.MatRootIdx >= uint32(nodeWordLen) {
		return nil, newErr(NodeIndexOutOfRange, "root index %d out of range for %d node words", h.MatRootIdx, nodeWordLen)
	}

	leafStart := nodeWordLen
	leafEnd := leafStart + int(h.MatLeafCount)
	if leafEnd > len(payload) {
		return nil, newErr(TruncatedPayload, "leaf section needs %d words, have %d", int(h.MatLeafCount), len(payload)-leafStart)
	}
	if err := checksumErr(); err != nil {
		return nil, err
	}

	return &Chunk{
		Header:         h,
		MaterialNodes:  payload[:nodeWordLen],
		MaterialLeaves: payload[leafStart:leafEnd],
	}, nil
}

// walkNodeSection reads exactly nodeCount logical node records (the
// header's node count is a record count, not a word count, since inner
// nodes are variable-length) from the front of payload and returns how
// many words they occupied — the point where the leaf section begins.
// Every child/leaf index is validated in the same pass: a node's children
// always precede it in the array (SVDAG build order, never cyclic), so a
// child index must be strictly less than the current word offset, a
// stronger and cheaper check than a generic "within the whole array"
// bound.
func walkNodeSection(payload []uint32, nodeCount, leafCount int) (wordLen int, err error) {
	i := 0
	for n := 0; n < nodeCount; n++ {
		if i >= len(payload) {
			return 0, newErr(TruncatedPayload, "expected %d node records, ran out of words after %d", nodeCount, n)
		}
		tag := payload[i]
		switch tag {
		case 1:
			if i+1 >= len(payload) {
				return 0, newErr(TruncatedPayload, "leaf node at word %d missing leaf index", i)
			}
			leafIdx := payload[i+1]
			if leafIdx >= uint32(leafCount) {
				return 0, newErr(NodeIndexOutOfRange, "leaf index %d out of range for %d leaves", leafIdx, leafCount)
			}
			i += 2
		case 0:
			if i+1 >= len(payload) {
				return 0, newErr(TruncatedPayload, "inner node at word %d missing mask", i)
			}
			mask := payload[i+1]
			count := popcountWord(mask)
			if i+2+count > len(payload) {
				return 0, newErr(TruncatedPayload, "inner node at word %d declares %d children past end of buffer", i, count)
			}
			for c := 0; c < count; c++ {
				child := payload[i+2+c]
				if child >= uint32(i) {
					return 0, newErr(NodeIndexOutOfRange, "child index %d must reference an earlier node (at word %d)", child, i)
				}
			}
			i += 2 + count
		default:
			return 0, newErr(TruncatedPayload, "unrecognized node tag %d at word %d", tag, i)
		}
	}
	return i, nil
}

func popcountWord(w uint32) int {
	n := 0
	for w != 0 {
		n += int(w & 1)
		w >>= 1
	}
	return n
}

func bytesToWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[4*i:])
	}
	return words
}
