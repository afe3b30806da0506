package worldgen

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"github.com/markaspall/svdagworld/internal/config"
)

// erosionParams are the fixed droplet-simulation tunables; these are not
// exposed through config.TerrainConfig because they affect the character of
// erosion rather than its cost, and spec only asks for pass count and
// particle count to be configurable.
const (
	dropletMaxSteps     = 64
	dropletInertia      = 0.05
	dropletCapacity     = 4.0
	dropletErosion      = 0.3
	dropletDeposition   = 0.3
	dropletEvaporation  = 0.02
	dropletMinSlope     = 1e-4
	dropletGravity      = 4.0
)

// erode runs cfg.ErosionPasses independent hydraulic erosion passes over
// elevation in place. Each pass runs single-threaded: droplets mutate
// shared heightfield cells in an order that matters, so running passes (or
// droplets within a pass) concurrently would make the result depend on
// goroutine scheduling. Determinism instead comes from seeding each pass's
// PRNG from a SHA-256 digest of (worldSeed, sx, sz, passIndex), the same
// "hash the identity, seed math/rand from the digest" idiom used to derive
// per-chunk seeds deterministically.
func erode(elevation *field, sx, sz int32, cfg config.TerrainConfig) {
	for pass := 0; pass < cfg.ErosionPasses; pass++ {
		rng := rand.New(rand.NewSource(passSeed(cfg.Seed, sx, sz, pass)))
		erodePass(elevation, rng, cfg.ErosionParticles)
	}
}

func passSeed(worldSeed int64, sx, sz int32, pass int) int64 {
	src := fmt.Sprintf("%d-erosion-%d-%d-%d", worldSeed, sx, sz, pass)
	h := sha256.Sum256([]byte(src))
	return int64(binary.BigEndian.Uint64(h[:8]))
}

func erodePass(f *field, rng *rand.Rand, particles int) {
	size := f.size
	for p := 0; p < particles; p++ {
		posX := rng.Float64() * float64(size-1)
		posZ := rng.Float64() * float64(size-1)
		dirX, dirZ := 0.0, 0.0
		speed := 1.0
		water := 1.0
		sediment := 0.0

		for step := 0; step < dropletMaxSteps; step++ {
			ix, iz := int(posX), int(posZ)
			if ix < 0 || iz < 0 || ix >= size-1 || iz >= size-1 {
				break
			}

			gx, gz, h := bilinearGradient(f, posX, posZ)

			dirX = dirX*dropletInertia - gx*(1-dropletInertia)
			dirZ = dirZ*dropletInertia - gz*(1-dropletInertia)
			length := dirX*dirX + dirZ*dirZ
			if length < 1e-12 {
				break
			}
			norm := 1.0 / math.Sqrt(length)
			dirX *= norm
			dirZ *= norm

			newX := posX + dirX
			newZ := posZ + dirZ
			if newX < 0 || newZ < 0 || newX >= float64(size-1) || newZ >= float64(size-1) {
				break
			}

			_, _, newH := bilinearGradient(f, newX, newZ)
			heightDelta := newH - h

			capacity := max(-heightDelta, dropletMinSlope) * speed * water * dropletCapacity
			if heightDelta > 0 || sediment > capacity {
				deposit := sediment
				if heightDelta <= 0 {
					deposit = min((sediment-capacity)*dropletDeposition, sediment)
				}
				sediment -= deposit
				depositAt(f, posX, posZ, deposit)
			} else {
				erosionAmount := min((capacity-sediment)*dropletErosion, -heightDelta)
				erodeAt(f, posX, posZ, erosionAmount)
				sediment += erosionAmount
			}

			speed = math.Sqrt(max(0, speed*speed+heightDelta*dropletGravity))
			water *= (1 - dropletEvaporation)

			posX, posZ = newX, newZ
			if water < 0.01 {
				break
			}
		}
	}
}

// bilinearGradient returns the height gradient and interpolated height at a
// continuous grid position via bilinear sampling of the four surrounding
// cells.
func bilinearGradient(f *field, x, z float64) (gx, gz, h float64) {
	ix, iz := int(x), int(z)
	fx, fz := x-float64(ix), z-float64(iz)

	h00 := f.at(ix, iz)
	h10 := f.at(ix+1, iz)
	h01 := f.at(ix, iz+1)
	h11 := f.at(ix+1, iz+1)

	gx = (h10-h00)*(1-fz) + (h11-h01)*fz
	gz = (h01-h00)*(1-fx) + (h11-h10)*fx
	h = h00*(1-fx)*(1-fz) + h10*fx*(1-fz) + h01*(1-fx)*fz + h11*fx*fz
	return
}

// depositAt/erodeAt spread a height delta across the four cells surrounding
// a continuous position, weighted by bilinear distance, mirroring how
// bilinearGradient reads the field.
func depositAt(f *field, x, z, amount float64) {
	spread(f, x, z, amount)
}

func erodeAt(f *field, x, z, amount float64) {
	spread(f, x, z, -amount)
}

func spread(f *field, x, z, amount float64) {
	ix, iz := int(x), int(z)
	fx, fz := x-float64(ix), z-float64(iz)

	f.set(ix, iz, f.at(ix, iz)+amount*(1-fx)*(1-fz))
	f.set(ix+1, iz, f.at(ix+1, iz)+amount*fx*(1-fz))
	f.set(ix, iz+1, f.at(ix, iz+1)+amount*(1-fx)*fz)
	f.set(ix+1, iz+1, f.at(ix+1, iz+1)+amount*fx*fz)
}
