package worldgen

// upscaleBicubic resizes a LOD0Size x LOD0Size field up to dstSize x dstSize
// using Catmull-Rom bicubic interpolation, so the coarse erosion grid
// produces a smooth 512x512 heightmap rather than a blocky one.
func upscaleBicubic(src *field, dstSize int) *field {
	dst := newField(dstSize)
	scale := float64(src.size-1) / float64(dstSize-1)

	for dz := 0; dz < dstSize; dz++ {
		sz := float64(dz) * scale
		for dx := 0; dx < dstSize; dx++ {
			sx := float64(dx) * scale
			dst.set(dx, dz, bicubicSample(src, sx, sz))
		}
	}
	return dst
}

func bicubicSample(f *field, x, z float64) float64 {
	ix := int(x)
	iz := int(z)
	fx := x - float64(ix)
	fz := z - float64(iz)

	var rows [4]float64
	for j := -1; j <= 2; j++ {
		var p [4]float64
		for i := -1; i <= 2; i++ {
			p[i+1] = f.at(clampIdx(ix+i, f.size), clampIdx(iz+j, f.size))
		}
		rows[j+1] = cubicInterp(p[0], p[1], p[2], p[3], fx)
	}
	return cubicInterp(rows[0], rows[1], rows[2], rows[3], fz)
}

// cubicInterp is the Catmull-Rom cubic through four equally-spaced samples
// at t in [0,1] between p1 and p2.
func cubicInterp(p0, p1, p2, p3, t float64) float64 {
	a := -0.5*p0 + 1.5*p1 - 1.5*p2 + 0.5*p3
	b := p0 - 2.5*p1 + 2*p2 - 0.5*p3
	c := -0.5*p0 + 0.5*p2
	d := p1
	return ((a*t+b)*t+c)*t + d
}

func clampIdx(v, size int) int {
	if v < 0 {
		return 0
	}
	if v >= size {
		return size - 1
	}
	return v
}
