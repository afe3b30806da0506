package raymarch

import (
	"math"
	"math/bits"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/markaspall/svdagworld/internal/svdag"
	"github.com/markaspall/svdagworld/internal/voxel"
)

// maxStackDepth bounds the descent stack. Spec: depth 5 -> <= 40 entries;
// 64 is the "allocate statically" headroom the spec names.
const maxStackDepth = 64

type stackFrame struct {
	node   uint32
	center mgl32.Vec3
	half   float32
	tNear  float32 // this node's own AABB entry t, unclamped (may be negative if origin is inside it)
	axis   int     // axis that produced tNear, for face-normal derivation on a leaf hit
}

// aabbIntersect is the two-slab ray/box test. origin and invDir are
// always world-space (spec §4.M step 5); min/max are the box's own world
// bounds, never chunk-local. Per spec step 4's push condition, a box is
// accepted only when t_far >= max(t_near,0) >= tStart as well as
// t_near <= t_far; tStart is the running lower bound on acceptable hits
// (Trace's march distance; descendOctree passes 0 and applies its own
// bound), not tied to tree depth.
func aabbIntersect(origin, invDir, min, max mgl32.Vec3, tStart float32) (tNear, tFar float32, axis int, ok bool) {
	tNear = float32(math.Inf(-1))
	tFar = float32(math.Inf(1))
	for i := 0; i < 3; i++ {
		t0 := (min[i] - origin[i]) * invDir[i]
		t1 := (max[i] - origin[i]) * invDir[i]
		lo, hi := t0, t1
		if lo > hi {
			lo, hi = hi, lo
		}
		if lo > tNear {
			tNear = lo
			axis = i
		}
		if hi < tFar {
			tFar = hi
		}
	}
	clampedNear := tNear
	if clampedNear < 0 {
		clampedNear = 0
	}
	ok = tFar >= clampedNear && clampedNear >= tStart && tNear <= tFar
	return tNear, tFar, axis, ok
}

// popcountBelow returns how many bits below position bit are set in
// mask: the svdag child-array offset of the bit-th octant, since
// svdag.Build packs children "in ascending octant order" for only the
// set bits.
func popcountBelow(mask uint8, bit int) int {
	lower := mask & ((1 << uint(bit)) - 1)
	return bits.OnesCount8(lower)
}

// descendOctree finds the nearest non-air voxel along ray at or after
// tStart within one chunk's SVDAG, rooted at chunkWorldOffset. Children
// are visited front-to-back via i^signBits (spec §4.M step 4): pushed in
// reverse visiting order so the nearest pops first off the LIFO stack.
// An inner node is kept while the ray is still inside it at tStart; a
// leaf counts only if the ray enters it at or after tStart, so a
// transparency restart skips the voxel it just passed through.
func descendOctree(ray Ray, invDir mgl32.Vec3, signBits int, g *svdag.Graph, chunkWorldOffset mgl32.Vec3, tStart float32) (Hit, bool) {
	half := float32(voxel.GridSize) / 2
	rootCenter := chunkWorldOffset.Add(mgl32.Vec3{half, half, half})
	rootMin := rootCenter.Sub(mgl32.Vec3{half, half, half})
	rootMax := rootCenter.Add(mgl32.Vec3{half, half, half})
	tNear, tFar, axis, ok := aabbIntersect(ray.Origin, invDir, rootMin, rootMax, 0)
	if !ok || tFar < tStart {
		return Hit{}, false
	}

	var stack [maxStackDepth]stackFrame
	sp := 0
	stack[sp] = stackFrame{node: g.Root, center: rootCenter, half: half, tNear: tNear, axis: axis}
	sp++

	for sp > 0 {
		sp--
		f := stack[sp]
		tag := g.Nodes[f.node]

		if tag == 1 {
			leafIdx := g.Nodes[f.node+1]
			block := g.Leaves[leafIdx]
			if block == voxel.AirBlock {
				continue
			}
			dist := f.tNear
			if dist < 0 {
				dist = 0
			}
			if dist < tStart {
				continue
			}
			var normal mgl32.Vec3
			sign := float32(1)
			if ray.Dir[f.axis] < 0 {
				sign = -1
			}
			normal[f.axis] = -sign
			return Hit{Distance: dist, Block: block, Normal: normal}, true
		}

		mask := uint8(g.Nodes[f.node+1])
		childHalf := f.half / 2
		childBase := f.node + 2

		for i := 0; i < 8; i++ {
			octant := i ^ signBits
			bit := uint(octant)
			if mask&(1<<bit) == 0 {
				continue
			}
			slot := popcountBelow(mask, octant)
			childIdx := g.Nodes[childBase+uint32(slot)]

			childCenter := f.center
			for axis2 := 0; axis2 < 3; axis2++ {
				if (octant>>uint(axis2))&1 == 1 {
					childCenter[axis2] += childHalf
				} else {
					childCenter[axis2] -= childHalf
				}
			}
			cMin := childCenter.Sub(mgl32.Vec3{childHalf, childHalf, childHalf})
			cMax := childCenter.Add(mgl32.Vec3{childHalf, childHalf, childHalf})
			cNear, cFar, cAxis, cOK := aabbIntersect(ray.Origin, invDir, cMin, cMax, 0)
			if !cOK || cFar < tStart {
				continue
			}
			if sp >= maxStackDepth {
				continue
			}
			stack[sp] = stackFrame{node: childIdx, center: childCenter, half: childHalf, tNear: cNear, axis: cAxis}
			sp++
		}
	}
	return Hit{}, false
}
