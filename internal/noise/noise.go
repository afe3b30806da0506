// Package noise implements deterministic multi-octave value noise (hashed
// lattice values, not gradients) over
// (x, z, seed). Every function here is pure: identical inputs always
// produce identical outputs, independent of any super-chunk or chunk
// boundary, so adjacent chunks generated independently still seam
// perfectly (spec property P4).
//
// The value-noise-plus-fractal-sum shape (hash corners, smooth-interpolate,
// sum octaves with lacunarity/persistence) follows the pattern used by
// other_examples' firestar-voxel-world terrain noise.
package noise

import "math"

// Noise2 returns a single-octave value-noise sample in [-1, 1] at world
// (x, z) for the given seed.
func Noise2(x, z float64, seed int64) float64 {
	x0 := int64(math.Floor(x))
	z0 := int64(math.Floor(z))
	x1 := x0 + 1
	z1 := z0 + 1

	sx := smooth(x - float64(x0))
	sz := smooth(z - float64(z0))

	n00 := hashToUnit(x0, z0, seed)
	n10 := hashToUnit(x1, z0, seed)
	n01 := hashToUnit(x0, z1, seed)
	n11 := hashToUnit(x1, z1, seed)

	ix0 := lerp(n00, n10, sx)
	ix1 := lerp(n01, n11, sx)
	return lerp(ix0, ix1, sz)
}

// FBM2 sums octaves of Noise2 with the given lacunarity (frequency growth
// per octave) and persistence (amplitude decay per octave), normalized to
// stay within [-1, 1].
func FBM2(x, z float64, seed int64, octaves int, lacunarity, persistence float64) float64 {
	if octaves <= 0 {
		octaves = 1
	}
	frequency := 1.0
	amplitude := 1.0
	sum := 0.0
	norm := 0.0
	for i := 0; i < octaves; i++ {
		sum += Noise2(x*frequency, z*frequency, seed) * amplitude
		norm += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}

func smooth(t float64) float64 {
	return t * t * (3 - 2*t)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// hashToUnit maps an integer lattice point plus a seed to a value in
// [-1, 1]. It is a pure bit-mixing hash, not a PRNG: no hidden state, so
// the same (x, z, seed) always maps to the same value regardless of call
// order or which super-chunk is generating around it.
func hashToUnit(x, z int64, seed int64) float64 {
	h := Hash3(int64(x), int64(z), seed)
	return float64(h&0xFFFFFF)/float64(0x800000) - 1.0
}

// Hash3 mixes three integers into a well-distributed 32-bit value. It
// supplies Noise2's lattice-corner values; erosion seeding uses SHA-256
// and cave carving uses FBM2, not Hash3 directly.
func Hash3(x, y, z int64) uint32 {
	h := uint32(x*374761393+y*668265263+z*2147483647) ^ uint32(seedMix(x, y, z))
	h = (h ^ (h >> 13)) * 1274126177
	return h ^ (h >> 16)
}

func seedMix(x, y, z int64) uint64 {
	u := uint64(x)*0x9E3779B97F4A7C15 ^ uint64(y)*0xBF58476D1CE4E5B9 ^ uint64(z)*0x94D049BB133111EB
	return u >> 32
}
