package main

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

/*
cumulativeDistances computes the running great-circle distance along the trail
in kilometers, one entry per trail point, starting at 0.
*/
func cumulativeDistances(points []TrailPoint) []float64 {
	distances := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		step := greatCircleDistance(points[i-1].Latitude, points[i-1].Longitude,
			points[i].Latitude, points[i].Longitude)
		distances[i] = distances[i-1] + step/1000.0
	}
	return distances
}

/*
computeSlopes derives the percent grade between consecutive profile samples.
Distances are in kilometers, elevations in meters. Steps shorter than a
millimeter or with a missing elevation carry the previous slope forward
instead of producing a spike; grades are capped at ±200 percent. The first
entry is always 0.
*/
func computeSlopes(elevations []float64, distances []float64) []float64 {
	slopes := make([]float64, len(elevations))
	for i := 1; i < len(elevations); i++ {
		stepMeters := (distances[i] - distances[i-1]) * 1000.0
		rise := elevations[i] - elevations[i-1]
		if stepMeters <= 0.001 || math.IsNaN(rise) {
			slopes[i] = slopes[i-1]
			continue
		}
		slope := rise / stepMeters * 100.0
		if slope > 200.0 {
			slope = 200.0
		} else if slope < -200.0 {
			slope = -200.0
		}
		slopes[i] = slope
	}
	return slopes
}

/*
countRollingHills counts the local extrema of the elevation profile whose
prominence meets the threshold. An interior point is a peak when strictly
higher than both neighbors, a valley when strictly lower; its prominence is
the smaller of the two absolute elevation differences to the neighbors. After
an extremum is retained, the immediately following point is skipped: it was a
neighbor of the retained extremum and counting it too would double-count the
same terrain feature.
*/
func countRollingHills(elevations []float64, minProminence float64) int {
	if len(elevations) < 3 {
		return 0
	}

	count := 0
	for i := 1; i < len(elevations)-1; i++ {
		previous := elevations[i-1]
		current := elevations[i]
		next := elevations[i+1]

		isPeak := current > previous && current > next
		isValley := current < previous && current < next
		if !isPeak && !isValley {
			continue
		}

		prominence := math.Min(math.Abs(current-previous), math.Abs(current-next))
		if prominence >= minProminence {
			count++
			i++
		}
	}
	return count
}

/*
averageSignificantChange returns the mean absolute elevation change across all
consecutive sample pairs whose change exceeds the significance threshold. This
feeds the rolling-hills index and deliberately uses a looser threshold than
hill counting, so small but persistent undulation still raises the index.
*/
func averageSignificantChange(elevations []float64) float64 {
	sum := 0.0
	count := 0
	for i := 1; i < len(elevations); i++ {
		change := math.Abs(elevations[i] - elevations[i-1])
		if change > MinSignificantChange {
			sum += change
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

/*
rollingHillsIndex combines hill frequency and hill size into one unbounded
terrain-undulation measure: 0.6 × hills per kilometer plus 0.4 × average
significant change relative to a typical hill size. Use
rollingHillsDisplayScore for anything that needs a bounded 0-10 value.
*/
func rollingHillsIndex(hillCount int, distanceKm float64, elevations []float64) float64 {
	if len(elevations) < 3 || distanceKm <= 0 || hillCount == 0 {
		return 0
	}
	hillsPerKm := float64(hillCount) / distanceKm
	return 0.6*hillsPerKm + 0.4*(averageSignificantChange(elevations)/TypicalHillSize)
}

/*
terrainVarietyScore rates how heterogeneous the terrain is on a 0-10 scale
from the spread of the elevation profile and the variance of its slopes.
*/
func terrainVarietyScore(elevations []float64, slopes []float64) float64 {
	if len(elevations) < 2 {
		return 0
	}

	stdDev := stat.StdDev(elevations, nil)
	elevationRange := maxOf(elevations) - minOf(elevations)
	slopeVariance := 0.0
	if len(slopes) > 1 {
		slopeVariance = stat.Variance(slopes, nil)
	}

	score := math.Min(stdDev/30.0, 1.0)*5.0 +
		math.Min(elevationRange/150.0, 1.0)*2.5 +
		math.Min(slopeVariance/400.0, 1.0)*2.5
	return clamp(score, 0, 10)
}

/*
analyzeTerrain computes the full metric set from one elevation source. Missing
samples (NaN placeholders from partial raster or point-cloud coverage) are
dropped pairwise with their distances before any statistic is computed, so a
source with holes still yields consistent metrics over the samples it has.
*/
func analyzeTerrain(profile SourceProfile) TerrainMetrics {
	elevations := make([]float64, 0, len(profile.Elevations))
	distances := make([]float64, 0, len(profile.Distances))
	for i, elevation := range profile.Elevations {
		if math.IsNaN(elevation) {
			continue
		}
		elevations = append(elevations, elevation)
		distances = append(distances, profile.Distances[i])
	}

	metrics := TerrainMetrics{}
	if len(profile.Distances) > 0 {
		metrics.DistanceKm = profile.Distances[len(profile.Distances)-1]
	}
	if len(elevations) == 0 {
		return metrics
	}

	metrics.MinElevation = minOf(elevations)
	metrics.MaxElevation = maxOf(elevations)

	for i := 1; i < len(elevations); i++ {
		delta := elevations[i] - elevations[i-1]
		if delta > 0 {
			metrics.ElevationGain += delta
		} else {
			metrics.ElevationLoss += -delta
		}
	}

	slopes := computeSlopes(elevations, distances)
	for _, slope := range slopes {
		magnitude := math.Abs(slope)
		if magnitude > metrics.MaxSlope {
			metrics.MaxSlope = magnitude
		}
		metrics.AvgSlope += magnitude
	}
	if len(slopes) > 0 {
		metrics.AvgSlope /= float64(len(slopes))
	}

	metrics.RollingHillsCount = countRollingHills(elevations, MinHillProminence)
	metrics.RollingHillsIndex = rollingHillsIndex(metrics.RollingHillsCount, metrics.DistanceKm, elevations)
	metrics.TerrainVarietyScore = terrainVarietyScore(elevations, slopes)
	return metrics
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
