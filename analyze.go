package main

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
)

// SegmentLengthKm is the stretch length the per-segment breakdown uses.
const SegmentLengthKm = 0.5

// Analyzer bundles the shared, read-only resources every analysis request
// draws on: the tile catalog built at startup, the lazy point-cloud index
// cache and the sampling configuration. One instance serves all requests
// concurrently.
type Analyzer struct {
	Catalog               *TileCatalog
	PointClouds           *PointCloudCache
	PointCloudDirectory   string
	ProjectedEPSG         int
	SearchRadius          float64
	MinPointCloudCoverage float64
}

/*
AnalyzeTrail runs the full multi-source analysis for one trail: it validates
and projects the coordinates, samples every elevation source independently,
fuses the available ones, and derives terrain metrics, difficulty and the
segment breakdown from the best profile. Individual sources degrade to
unavailable without failing the request; only a trail with no usable source at
all is an error.
*/
func (a *Analyzer) AnalyzeTrail(points []TrailPoint, pointCloudFile string, searchRadius float64) (*AnalysisResult, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("trail has %d points, at least 2 required: %w", len(points), ErrInsufficientData)
	}
	if err := validateTrailPoints(points); err != nil {
		return nil, err
	}
	if searchRadius <= 0 {
		searchRadius = a.SearchRadius
	}

	distances := cumulativeDistances(points)
	recorded := recordedSource(points, distances)

	var raster, pointCloud SourceProfile
	projected, err := projectTrailPoints(points, a.ProjectedEPSG)
	if err != nil {
		// projection machinery failure, not bad input: the projected
		// sources degrade, the recorded profile can still carry the request
		slog.Warn("trail projection failed, projected sources unavailable", "error", err)
		reason := fmt.Sprintf("coordinate projection failed: %v", err)
		raster = unavailableSource(SourceRaster, reason)
		pointCloud = unavailableSource(SourcePointCloud, reason)
	} else {
		tiles := a.Catalog.TilesIntersecting(trailBounds(projected))
		raster = sampleRasterSource(projected, distances, tiles)

		pointCloudPath := ""
		if pointCloudFile != "" {
			pointCloudPath = filepath.Join(a.PointCloudDirectory, filepath.Base(pointCloudFile))
		}
		pointCloud = samplePointCloudSource(projected, distances, a.PointClouds,
			pointCloudPath, searchRadius, a.MinPointCloudCoverage)
	}

	sources := []SourceProfile{recorded, pointCloud, raster}
	result := &AnalysisResult{Sources: make(map[string]SourceProfile, len(sources)+1)}
	for _, source := range sources {
		result.Sources[source.Name] = source
	}

	if fused, ok := fuseSources(sources); ok {
		result.Sources[SourceFused] = fused
	}

	best, ok := metricsSource(result.Sources)
	if !ok {
		return nil, fmt.Errorf("no elevation source available for this trail: %w", ErrNoElevationData)
	}

	result.MetricsSource = best.Name
	result.Metrics = analyzeTerrain(best)
	result.Difficulty = scoreDifficulty(result.Metrics)
	result.Segments = buildSegments(best)
	return result, nil
}

/*
recordedSource builds the elevation profile carried by the trail recording
itself. Points without a recorded elevation stay NaN placeholders; a recording
with no elevations at all is an unavailable source.
*/
func recordedSource(points []TrailPoint, distances []float64) SourceProfile {
	elevations := make([]float64, len(points))
	valid := 0
	for i, point := range points {
		elevations[i] = point.Elevation
		if !math.IsNaN(point.Elevation) {
			valid++
		}
	}
	if valid == 0 {
		return unavailableSource(SourceRecorded, "trail recording carries no elevation data")
	}

	return SourceProfile{
		Name:       SourceRecorded,
		Available:  true,
		Elevations: elevations,
		Distances:  distances,
		Slopes:     computeSlopes(elevations, distances),
		Meta:       SourceMeta{CoveragePercent: float64(valid) / float64(len(points)) * 100.0},
	}
}

// metricsSourcePriority orders the fallback when no fused profile exists:
// measured sources beat the recording.
var metricsSourcePriority = []string{SourceFused, SourcePointCloud, SourceRaster, SourceRecorded}

func metricsSource(sources map[string]SourceProfile) (SourceProfile, bool) {
	for _, name := range metricsSourcePriority {
		if source, exists := sources[name]; exists && source.Available {
			return source, true
		}
	}
	return SourceProfile{}, false
}

/*
buildSegments splits the profile into half-kilometer stretches and summarizes
each with its net elevation change and mean absolute slope. Samples with
missing elevations are skipped inside their stretch.
*/
func buildSegments(profile SourceProfile) []TrailSegment {
	if len(profile.Distances) < 2 {
		return nil
	}

	total := profile.Distances[len(profile.Distances)-1]
	segments := make([]TrailSegment, 0, int(total/SegmentLengthKm)+1)

	i := 0
	for start := 0.0; start < total; start += SegmentLengthKm {
		end := math.Min(start+SegmentLengthKm, total)

		firstElevation := math.NaN()
		lastElevation := math.NaN()
		slopeSum := 0.0
		slopeCount := 0
		for ; i < len(profile.Distances) && profile.Distances[i] <= end; i++ {
			if !math.IsNaN(profile.Elevations[i]) {
				if math.IsNaN(firstElevation) {
					firstElevation = profile.Elevations[i]
				}
				lastElevation = profile.Elevations[i]
			}
			slopeSum += math.Abs(profile.Slopes[i])
			slopeCount++
		}

		segment := TrailSegment{StartDistance: start, EndDistance: end}
		if !math.IsNaN(firstElevation) {
			segment.ElevationChange = lastElevation - firstElevation
		}
		if slopeCount > 0 {
			segment.AvgSlope = slopeSum / float64(slopeCount)
		}
		segments = append(segments, segment)
	}
	return segments
}
