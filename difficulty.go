package main

import "math"

/*
scoreDifficulty derives the rider-facing difficulty profile from the terrain
metrics. Distance, climbing and terrain undulation each contribute a capped
factor; the factors sum to the 0-10 difficulty score.
*/
func scoreDifficulty(metrics TerrainMetrics) DifficultyProfile {
	distanceFactor := math.Min(metrics.DistanceKm/10.0, 1.0) * 3.0
	elevationFactor := math.Min(metrics.ElevationGain/1000.0, 1.0) * 4.0
	rollingFactor := math.Min(metrics.RollingHillsIndex/50.0, 1.0) * 3.0
	score := clamp(distanceFactor+elevationFactor+rollingFactor, 0, 10)

	return DifficultyProfile{
		DifficultyScore:    score,
		DifficultyLevel:    difficultyLevel(score),
		TechnicalRating:    technicalRating(metrics),
		EstimatedTimeHours: estimatedTimeHours(metrics),
	}
}

func difficultyLevel(score float64) string {
	switch {
	case score <= 3.0:
		return "Easy"
	case score <= 6.0:
		return "Moderate"
	case score <= 8.0:
		return "Hard"
	default:
		return "Extreme"
	}
}

/*
technicalRating rates how demanding the terrain itself is, independent of
trail length, on a 1-10 scale from steepness and undulation.
*/
func technicalRating(metrics TerrainMetrics) float64 {
	rating := 1.0 +
		(metrics.MaxSlope/100.0)*3.5 +
		math.Min(metrics.RollingHillsIndex/50.0, 1.0)*3.5 +
		(metrics.AvgSlope/30.0)*2.0
	return clamp(rating, 1, 10)
}

/*
estimatedTimeHours estimates completion time from Naismith's rule (5 km/h on
the flat, one extra hour per 600 m of climbing) plus a rolling-terrain
penalty.
TODO: the undulation penalty grows linearly with the raw rolling-hills index
and overwhelms the distance term on extreme trails (index 50 adds 25 hours);
needs calibration against recorded completion times before rescaling.
*/
func estimatedTimeHours(metrics TerrainMetrics) float64 {
	return metrics.DistanceKm/5.0 + metrics.ElevationGain/600.0 + metrics.RollingHillsIndex*0.5
}

/*
rollingHillsDisplayScore maps the unbounded rolling-hills index onto a
saturating 0-10 scale for display. Scoring formulas keep working on the raw
index; only presentation goes through this mapping.
*/
func rollingHillsDisplayScore(index float64) float64 {
	if index <= 0 {
		return 0
	}
	return 10.0 * (1.0 - math.Exp(-index/20.0))
}
