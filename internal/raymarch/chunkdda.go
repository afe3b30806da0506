package raymarch

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/markaspall/svdagworld/internal/voxel"
)

// epsDir is the minimum magnitude any ray direction component is clamped
// to before reciprocating, per spec §4.M step 5.
const epsDir = 1e-8

// safeInvDir reciprocates each component of dir, clamping components
// whose magnitude is below epsDir to epsDir (preserving sign) first. This
// is volume.XBrickMap.RayMarch's safeX/safeY/safeZ guard generalized from
// its ad-hoc 1e-7 floor to the spec's named epsilon.
func safeInvDir(dir mgl32.Vec3) mgl32.Vec3 {
	var inv mgl32.Vec3
	for i := 0; i < 3; i++ {
		d := dir[i]
		if d >= 0 && d < epsDir {
			d = epsDir
		} else if d < 0 && d > -epsDir {
			d = -epsDir
		}
		inv[i] = 1.0 / d
	}
	return inv
}

// signBitsOf packs the sign of each ray direction component into the
// 3-bit ray_sign_bits value the octree descent uses for front-to-back
// child ordering (spec §4.M step 4): bit k set means dir[k] >= 0.
func signBitsOf(dir mgl32.Vec3) int {
	bits := 0
	if dir.X() >= 0 {
		bits |= 1
	}
	if dir.Y() >= 0 {
		bits |= 2
	}
	if dir.Z() >= 0 {
		bits |= 4
	}
	return bits
}

// chunkStepper walks whole-chunk boundaries along a ray. It generalizes
// volume.XBrickMap.stepToNext's recompute-from-current-position boundary
// distance to the classic Amanatides-Woo incremental form spec §4.M step
// 1 asks for: t_max/t_delta maintained per axis instead of re-derived
// every iteration, since here there's only one granularity (chunks of
// voxel.GridSize) rather than XBrickMap's three nested ones.
type chunkStepper struct {
	chunk   [3]int32
	stepDir [3]int32
	tMax   [3]float32
	tDelta [3]float32
}

func newChunkStepper(origin, dir, invDir mgl32.Vec3) *chunkStepper {
	const size = float32(voxel.GridSize)
	s := &chunkStepper{}
	for i := 0; i < 3; i++ {
		s.chunk[i] = int32(math.Floor(float64(origin[i] / size)))
		if dir[i] >= 0 {
			s.stepDir[i] = 1
			boundary := float32(s.chunk[i]+1) * size
			s.tMax[i] = (boundary - origin[i]) * invDir[i]
		} else {
			s.stepDir[i] = -1
			boundary := float32(s.chunk[i]) * size
			s.tMax[i] = (boundary - origin[i]) * invDir[i]
		}
		s.tDelta[i] = size * float32(math.Abs(float64(invDir[i])))
	}
	return s
}

func (s *chunkStepper) coord() voxel.ChunkCoord {
	return voxel.ChunkCoord{X: s.chunk[0], Y: s.chunk[1], Z: s.chunk[2]}
}

// nextAxis is the axis whose t_max is smallest: the next boundary the ray
// crosses.
func (s *chunkStepper) nextAxis() int {
	axis := 0
	if s.tMax[1] < s.tMax[axis] {
		axis = 1
	}
	if s.tMax[2] < s.tMax[axis] {
		axis = 2
	}
	return axis
}

// step advances exactly one chunk along the nearest boundary axis.
func (s *chunkStepper) step() {
	axis := s.nextAxis()
	s.chunk[axis] += s.stepDir[axis]
	s.tMax[axis] += s.tDelta[axis]
}

// skipAhead advances n chunks in one move along the nearest boundary
// axis, used when the meta-grid reports the whole region empty (spec
// §4.M step 2): "jump current_chunk forward 4 units along the advanced
// axis and resync t_max".
func (s *chunkStepper) skipAhead(n int32) {
	axis := s.nextAxis()
	s.chunk[axis] += s.stepDir[axis] * n
	s.tMax[axis] += s.tDelta[axis] * float32(n)
}
