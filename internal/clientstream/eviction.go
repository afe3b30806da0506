package clientstream

import (
	"sort"
	"time"
)

// Eviction score weights, per §4.I. Higher score evicts first: distant,
// out-of-view, large-pool-sharing, stale chunks go before near, in-view,
// recently touched ones.
const (
	weightDistance = 1.0
	weightInView   = 50.0
	weightPoolSize = 5.0
	weightRecency  = 0.01
)

// pressureTier buckets the loaded/soft-cap ratio into the three
// escalating eviction responses §4.I describes.
type pressureTier int

const (
	pressureNone     pressureTier = iota
	pressureTarget                // >= 1.0: evict down to the soft cap
	pressureAggr                  // >= 1.2: evict further, weighted harder by recency
	pressureCritical              // >= 1.5: evicts the same way as pressureAggr
)

func classifyPressure(loaded, softCap int) pressureTier {
	if softCap <= 0 {
		return pressureNone
	}
	ratio := float64(loaded) / float64(softCap)
	switch {
	case ratio >= 1.5:
		return pressureCritical
	case ratio >= 1.2:
		return pressureAggr
	case ratio >= 1.0:
		return pressureTarget
	default:
		return pressureNone
	}
}

func evictionScore(e *ChunkEntry, now time.Time, poolRefCount uint32, tier pressureTier) float64 {
	score := weightDistance * e.Dist
	if e.InView {
		score -= weightInView
	}
	if poolRefCount > 0 {
		score -= weightPoolSize / float64(poolRefCount)
	}
	idleSeconds := now.Sub(e.LastTouch).Seconds()
	recencyWeight := weightRecency
	if tier >= pressureAggr {
		recencyWeight *= 4
	}
	score += recencyWeight * idleSeconds
	return score
}

// rankForEviction sorts candidates highest-score-first: these are the
// chunks to evict, in order, until the pressure tier's target is met.
func rankForEviction(candidates []*ChunkEntry, now time.Time, refCounts map[uint64]uint32, tier pressureTier) []*ChunkEntry {
	ranked := make([]*ChunkEntry, len(candidates))
	copy(ranked, candidates)
	sort.Slice(ranked, func(i, j int) bool {
		si := evictionScore(ranked[i], now, refCounts[ranked[i].PoolID], tier)
		sj := evictionScore(ranked[j], now, refCounts[ranked[j].PoolID], tier)
		return si > sj
	})
	return ranked
}

func isAncient(e *ChunkEntry, now time.Time, ancientAge time.Duration) bool {
	return ancientAge > 0 && now.Sub(e.LoadedAt) >= ancientAge
}
