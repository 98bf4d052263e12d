package main

import (
	"math"
	"sort"
)

// similarity reference scales: the metric difference at which a factor's
// closeness bottoms out at 0.
const (
	SimilarityDistanceScale   = 10.0   // kilometers
	SimilarityElevationScale  = 1000.0 // meters of gain
	SimilarityDifficultyScale = 10.0   // difficulty points
	SimilarityRollingScale    = 50.0   // index units
)

/*
trailSimilarity computes the weighted similarity of two trails in [0, 1].
Each factor contributes a closeness of 1 − min(|a−b| / scale, 1): distance and
elevation gain weigh 30% each, difficulty score and rolling-hills index 20%
each. Identical metrics score exactly 1.
*/
func trailSimilarity(a TrailRecord, b TrailRecord) float64 {
	return 0.3*closeness(a.DistanceKm, b.DistanceKm, SimilarityDistanceScale) +
		0.3*closeness(a.ElevationGain, b.ElevationGain, SimilarityElevationScale) +
		0.2*closeness(a.DifficultyScore, b.DifficultyScore, SimilarityDifficultyScale) +
		0.2*closeness(a.RollingHillsIndex, b.RollingHillsIndex, SimilarityRollingScale)
}

func closeness(a float64, b float64, scale float64) float64 {
	return 1.0 - math.Min(math.Abs(a-b)/scale, 1.0)
}

/*
rankSimilarTrails scores every candidate against the target and returns the
matches ranked descending by similarity, capped at limit. The target itself is
excluded from the pool; equal scores are ordered by trail ID so repeated
queries return identical rankings.
*/
func rankSimilarTrails(target TrailRecord, candidates []TrailRecord, limit int) []SimilarMatch {
	matches := make([]SimilarMatch, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.ID == target.ID {
			continue
		}
		matches = append(matches, SimilarMatch{
			TrailID:    candidate.ID,
			Name:       candidate.Name,
			Similarity: trailSimilarity(target, candidate),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].TrailID < matches[j].TrailID
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
