package gpu

import "github.com/markaspall/svdagworld/internal/voxel"

// RequestViewRadius is the half-width, in chunks, of the centered grid
// the request buffer addresses along each axis; a camera-centered cube
// of (2*RequestViewRadius+1)^3 chunk slots.
const RequestViewRadius = 16

const requestGridDim = 2*RequestViewRadius + 1

// RequestSlotCount is the total slot count of the request buffer.
const RequestSlotCount = requestGridDim * requestGridDim * requestGridDim

// ChunkToRequestIndex converts a chunk coordinate to its request-buffer
// slot, relative to cameraChunk. Returns Sentinel if coord falls outside
// the centered view grid, in which case the kernel must not write a
// request at all (spec §4.M step 3).
func ChunkToRequestIndex(coord, cameraChunk voxel.ChunkCoord) uint32 {
	dx := int64(coord.X) - int64(cameraChunk.X) + RequestViewRadius
	dy := int64(coord.Y) - int64(cameraChunk.Y) + RequestViewRadius
	dz := int64(coord.Z) - int64(cameraChunk.Z) + RequestViewRadius
	if dx < 0 || dx >= requestGridDim || dy < 0 || dy >= requestGridDim || dz < 0 || dz >= requestGridDim {
		return Sentinel
	}
	return uint32(dz*requestGridDim*requestGridDim + dy*requestGridDim + dx)
}

// IndexToChunk is the exact inverse of ChunkToRequestIndex, used by the
// request-buffer reader (§4.L) to recover which chunk a non-zero slot
// refers to.
func IndexToChunk(slot uint32, cameraChunk voxel.ChunkCoord) voxel.ChunkCoord {
	dz := int64(slot) / (requestGridDim * requestGridDim)
	rem := int64(slot) % (requestGridDim * requestGridDim)
	dy := rem / requestGridDim
	dx := rem % requestGridDim
	return voxel.ChunkCoord{
		X: cameraChunk.X + int32(dx-RequestViewRadius),
		Y: cameraChunk.Y + int32(dy-RequestViewRadius),
		Z: cameraChunk.Z + int32(dz-RequestViewRadius),
	}
}

// DrainRequests scans slots for non-zero entries and returns the
// distinct chunk coordinates they correspond to, in slot order. This is
// the CPU reference for what §4.L's GPU readback does each frame after
// the ray-march dispatch: copy the request buffer to a staging buffer,
// map-read, scan, then (by convention of the caller) clear it.
func DrainRequests(slots []uint32, cameraChunk voxel.ChunkCoord) []voxel.ChunkCoord {
	var out []voxel.ChunkCoord
	for i, v := range slots {
		if v == 0 {
			continue
		}
		out = append(out, IndexToChunk(uint32(i), cameraChunk))
	}
	return out
}
