package raymarch

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/markaspall/svdagworld/internal/voxel"
)

// CameraUniform mirrors shaders/raymarch.wgsl's Camera struct field-for-
// field (origin/forward/right/up, each a padded vec3), following the
// module's numeric-type-exactness rule: always written via
// encoding/binary rather than an all-float32 view.
type CameraUniform struct {
	Origin, Forward, Right, Up mgl32.Vec3
}

// Bytes packs the uniform into the WGSL struct's 64-byte layout.
func (c CameraUniform) Bytes() []byte {
	buf := make([]byte, 64)
	putVec3Padded(buf[0:16], c.Origin)
	putVec3Padded(buf[16:32], c.Forward)
	putVec3Padded(buf[32:48], c.Right)
	putVec3Padded(buf[48:64], c.Up)
	return buf
}

// ParamsUniform mirrors shaders/raymarch.wgsl's Params struct.
type ParamsUniform struct {
	CameraChunk           voxel.ChunkCoord
	MaxChunkSteps         uint32
	MaxDistance           float32
	TransparencyLayerCap  uint32
	RequestViewRadius     uint32
	HashTableSize         uint32
	ViewportWidth         uint32
	ViewportHeight        uint32
	TanHalfFOV            float32
	Aspect                float32
}

// Bytes packs the uniform into the WGSL struct's 48-byte layout.
func (p ParamsUniform) Bytes() []byte {
	buf := make([]byte, 48)
	binary.LittleEndian.PutUint32(buf[0:], uint32(p.CameraChunk.X))
	binary.LittleEndian.PutUint32(buf[4:], uint32(p.CameraChunk.Y))
	binary.LittleEndian.PutUint32(buf[8:], uint32(p.CameraChunk.Z))
	binary.LittleEndian.PutUint32(buf[12:], p.MaxChunkSteps)
	binary.LittleEndian.PutUint32(buf[16:], math.Float32bits(p.MaxDistance))
	binary.LittleEndian.PutUint32(buf[20:], p.TransparencyLayerCap)
	binary.LittleEndian.PutUint32(buf[24:], p.RequestViewRadius)
	binary.LittleEndian.PutUint32(buf[28:], p.HashTableSize)
	binary.LittleEndian.PutUint32(buf[32:], p.ViewportWidth)
	binary.LittleEndian.PutUint32(buf[36:], p.ViewportHeight)
	binary.LittleEndian.PutUint32(buf[40:], math.Float32bits(p.TanHalfFOV))
	binary.LittleEndian.PutUint32(buf[44:], math.Float32bits(p.Aspect))
	return buf
}

func putVec3Padded(dst []byte, v mgl32.Vec3) {
	binary.LittleEndian.PutUint32(dst[0:], math.Float32bits(v.X()))
	binary.LittleEndian.PutUint32(dst[4:], math.Float32bits(v.Y()))
	binary.LittleEndian.PutUint32(dst[8:], math.Float32bits(v.Z()))
	binary.LittleEndian.PutUint32(dst[12:], 0)
}
