package main

import (
	"errors"
	"math"
	"testing"
)

func testAnalyzer() *Analyzer {
	return &Analyzer{
		Catalog:               &TileCatalog{},
		PointClouds:           NewPointCloudCache(),
		ProjectedEPSG:         28356,
		SearchRadius:          DefaultSearchRadius,
		MinPointCloudCoverage: 50,
	}
}

func TestAnalyzeTrailInsufficientData(t *testing.T) {
	_, err := testAnalyzer().AnalyzeTrail([]TrailPoint{{Latitude: -27.5, Longitude: 153.0, Elevation: 30}}, "", 0)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for single point, got %v", err)
	}
}

func TestAnalyzeTrailInvalidCoordinate(t *testing.T) {
	points := []TrailPoint{
		{Latitude: -27.5, Longitude: 153.0, Elevation: 30},
		{Latitude: 95.0, Longitude: 153.0, Elevation: 35},
	}
	_, err := testAnalyzer().AnalyzeTrail(points, "", 0)
	if !errors.Is(err, ErrInvalidCoordinate) {
		t.Errorf("expected ErrInvalidCoordinate for latitude 95, got %v", err)
	}
}

func TestAnalyzeTrailNoElevationData(t *testing.T) {
	// no recorded elevations, empty tile catalog, no point cloud
	points := []TrailPoint{
		{Latitude: -27.5, Longitude: 153.0, Elevation: math.NaN()},
		{Latitude: -27.51, Longitude: 153.01, Elevation: math.NaN()},
	}
	_, err := testAnalyzer().AnalyzeTrail(points, "", 0)
	if !errors.Is(err, ErrNoElevationData) {
		t.Errorf("expected ErrNoElevationData, got %v", err)
	}
}

func TestAnalyzeTrailTwoPointsRecordedOnly(t *testing.T) {
	points := []TrailPoint{
		{Latitude: -27.5, Longitude: 153.0, Elevation: 30},
		{Latitude: -27.51, Longitude: 153.01, Elevation: 45},
	}
	result, err := testAnalyzer().AnalyzeTrail(points, "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Sources[SourceRecorded].Available {
		t.Error("expected recorded source to be available")
	}
	if result.Sources[SourceRaster].Available {
		t.Error("expected raster source unavailable with empty catalog")
	}
	if result.Sources[SourcePointCloud].Available {
		t.Error("expected point cloud source unavailable without a file")
	}
	if result.MetricsSource != SourceFused {
		t.Errorf("expected metrics from fused profile, got %s", result.MetricsSource)
	}
	if result.Metrics.RollingHillsCount != 0 {
		t.Errorf("expected 0 rolling hills for 2 points, got %d", result.Metrics.RollingHillsCount)
	}
	if result.Metrics.DistanceKm <= 0 {
		t.Errorf("expected positive trail distance, got %f", result.Metrics.DistanceKm)
	}
	if math.Abs(result.Metrics.ElevationGain-15.0) > 1e-9 {
		t.Errorf("expected gain 15, got %f", result.Metrics.ElevationGain)
	}
	if result.Difficulty.DifficultyLevel == "" {
		t.Error("expected a difficulty level")
	}
}

func TestRecordedSourceWithoutElevations(t *testing.T) {
	points := []TrailPoint{
		{Latitude: -27.5, Longitude: 153.0, Elevation: math.NaN()},
		{Latitude: -27.51, Longitude: 153.01, Elevation: math.NaN()},
	}
	source := recordedSource(points, cumulativeDistances(points))
	if source.Available {
		t.Error("expected recorded source unavailable without elevations")
	}
	if source.Reason == "" {
		t.Error("expected a reason on the unavailable source")
	}
}

func TestBuildSegments(t *testing.T) {
	distances := []float64{0, 0.25, 0.5, 0.75, 1.0, 1.2}
	elevations := []float64{100, 110, 120, 115, 110, 130}
	profile := SourceProfile{
		Name:       SourceRecorded,
		Available:  true,
		Elevations: elevations,
		Distances:  distances,
		Slopes:     computeSlopes(elevations, distances),
	}

	segments := buildSegments(profile)
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments for 1.2 km, got %d", len(segments))
	}
	if segments[0].StartDistance != 0 || segments[0].EndDistance != 0.5 {
		t.Errorf("unexpected first segment bounds: %f..%f", segments[0].StartDistance, segments[0].EndDistance)
	}
	if segments[2].EndDistance != 1.2 {
		t.Errorf("expected last segment to end at trail end 1.2, got %f", segments[2].EndDistance)
	}
	// first segment spans samples 100..120
	if math.Abs(segments[0].ElevationChange-20.0) > 1e-9 {
		t.Errorf("expected first segment elevation change 20, got %f", segments[0].ElevationChange)
	}
}
