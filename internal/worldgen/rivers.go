package worldgen

// accumulateFlow computes a D8-style single-flow-direction accumulation
// over the given heightfield (Generate passes the eroded LOD0 grid, not
// the full-resolution heightmap): every cell drains one unit of flow
// to its single lowest neighbor, processed from highest to lowest cell so
// upstream accumulation has already reached a cell before it drains
// downstream. Cells whose accumulated flow crosses the configured
// threshold are rivers.
func accumulateFlow(height *field) []float32 {
	size := height.size
	n := size * size
	flow := make([]float32, n)
	for i := range flow {
		flow[i] = 1 // every cell starts by contributing its own rainfall
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	// Sort indices by descending height so accumulation propagates
	// downhill in a single pass.
	sortByHeightDesc(order, height.data)

	for _, idx := range order {
		x, z := idx%size, idx/size
		nx, nz, ok := lowestNeighbor(height, x, z)
		if !ok {
			continue
		}
		flow[nz*size+nx] += flow[idx]
	}
	return flow
}

func lowestNeighbor(f *field, x, z int) (nx, nz int, ok bool) {
	best := f.at(x, z)
	found := false
	for dz := -1; dz <= 1; dz++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dz == 0 {
				continue
			}
			cx, cz := x+dx, z+dz
			if cx < 0 || cz < 0 || cx >= f.size || cz >= f.size {
				continue
			}
			h := f.at(cx, cz)
			if h < best {
				best = h
				nx, nz = cx, cz
				found = true
			}
		}
	}
	return nx, nz, found
}

// sortByHeightDesc is an insertion-free simple sort adequate for the
// LOD0-then-upscaled grids this operates on; it is not on the hot path of
// per-voxel generation.
func sortByHeightDesc(order []int, heights []float64) {
	less := func(a, b int) bool { return heights[order[a]] > heights[order[b]] }
	quickSortIdx(order, less, 0, len(order)-1)
}

func quickSortIdx(order []int, less func(a, b int) bool, lo, hi int) {
	for lo < hi {
		p := partitionIdx(order, less, lo, hi)
		if p-lo < hi-p {
			quickSortIdx(order, less, lo, p-1)
			lo = p + 1
		} else {
			quickSortIdx(order, less, p+1, hi)
			hi = p - 1
		}
	}
}

func partitionIdx(order []int, less func(a, b int) bool, lo, hi int) int {
	pivot := hi
	i := lo
	for j := lo; j < hi; j++ {
		if less(j, pivot) {
			order[i], order[j] = order[j], order[i]
			i++
		}
	}
	order[i], order[hi] = order[hi], order[i]
	return i
}

func normalizeFlowInto(dst []float32, flow []float32, srcSize, dstSize int) {
	scale := float64(srcSize-1) / float64(dstSize-1)
	for z := 0; z < dstSize; z++ {
		sz := int(float64(z) * scale)
		for x := 0; x < dstSize; x++ {
			sx := int(float64(x) * scale)
			dst[z*dstSize+x] = flow[sz*srcSize+sx]
		}
	}
}
