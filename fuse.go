package main

import (
	"math"
	"sort"
)

/*
fuseSources merges the available elevation sources into one consensus profile.
The fused distance axis is the ascending union of every available source's
distances; at each fused distance a source contributes the elevation of its
closest sample when that sample lies within FuseDistanceTolerance and holds a
real value. The fused elevation is the mean of the contributors; distances
nobody can serve are dropped. Fusing a single available source reproduces that
source. Without any available source there is nothing to fuse.
*/
func fuseSources(sources []SourceProfile) (SourceProfile, bool) {
	available := make([]SourceProfile, 0, len(sources))
	for _, source := range sources {
		if source.Available {
			available = append(available, source)
		}
	}
	if len(available) == 0 {
		return SourceProfile{}, false
	}

	fusedDistances := unionDistances(available)

	elevations := make([]float64, 0, len(fusedDistances))
	distances := make([]float64, 0, len(fusedDistances))
	contributors := make(map[string]bool)

	for _, distance := range fusedDistances {
		sum := 0.0
		count := 0
		for _, source := range available {
			value, ok := sampleNear(source, distance)
			if !ok {
				continue
			}
			sum += value
			count++
			contributors[source.Name] = true
		}
		if count == 0 {
			continue
		}
		elevations = append(elevations, sum/float64(count))
		distances = append(distances, distance)
	}

	if len(distances) == 0 {
		return SourceProfile{}, false
	}

	names := make([]string, 0, len(available))
	for _, source := range available {
		if contributors[source.Name] {
			names = append(names, source.Name)
		}
	}

	return SourceProfile{
		Name:       SourceFused,
		Available:  true,
		Elevations: elevations,
		Distances:  distances,
		Slopes:     computeSlopes(elevations, distances),
		Meta: SourceMeta{
			ContributingSources: names,
			SourceCount:         len(names),
		},
	}, true
}

// dedupeEpsilon separates float duplicates from genuinely distinct distances
// in the fused axis. Deliberately far below FuseDistanceTolerance: collapsing
// anything wider would decimate densely sampled profiles.
const dedupeEpsilon = 1e-9

/*
unionDistances builds the ascending union of the distance axes of all given
sources. Only float-equal duplicates collapse to one entry; every distinct
sample distance survives, however close to its neighbor.
*/
func unionDistances(sources []SourceProfile) []float64 {
	all := make([]float64, 0)
	for _, source := range sources {
		all = append(all, source.Distances...)
	}
	sort.Float64s(all)

	union := make([]float64, 0, len(all))
	for _, distance := range all {
		if len(union) > 0 && distance-union[len(union)-1] <= dedupeEpsilon {
			continue
		}
		union = append(union, distance)
	}
	return union
}

/*
sampleNear returns the elevation of the source sample closest to the given
distance, when it lies within the fuse tolerance and carries a real value.
*/
func sampleNear(source SourceProfile, distance float64) (float64, bool) {
	if len(source.Distances) == 0 {
		return 0, false
	}

	// Distances are ascending, binary search for the insertion point and
	// compare the two neighbors.
	i := sort.SearchFloat64s(source.Distances, distance)
	best := -1
	bestGap := math.Inf(1)
	for _, j := range []int{i - 1, i} {
		if j < 0 || j >= len(source.Distances) {
			continue
		}
		gap := math.Abs(source.Distances[j] - distance)
		if gap < bestGap {
			bestGap = gap
			best = j
		}
	}
	if best < 0 || bestGap > FuseDistanceTolerance {
		return 0, false
	}
	value := source.Elevations[best]
	if math.IsNaN(value) {
		return 0, false
	}
	return value, true
}
