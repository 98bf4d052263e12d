package main

import (
	"math"
	"testing"
)

func TestTrailSimilaritySelf(t *testing.T) {
	trail := TrailRecord{
		ID:                "a",
		DistanceKm:        12.5,
		ElevationGain:     430,
		DifficultyScore:   6.2,
		RollingHillsIndex: 3.4,
	}
	if similarity := trailSimilarity(trail, trail); math.Abs(similarity-1.0) > 1e-9 {
		t.Errorf("expected self similarity 1.0, got %f", similarity)
	}
}

func TestTrailSimilarityBounds(t *testing.T) {
	a := TrailRecord{DistanceKm: 1, ElevationGain: 50, DifficultyScore: 0, RollingHillsIndex: 0.2}
	b := TrailRecord{DistanceKm: 500, ElevationGain: 9000, DifficultyScore: 10, RollingHillsIndex: 300}
	similarity := trailSimilarity(a, b)
	if similarity < 0 || similarity > 1 {
		t.Errorf("similarity %f outside 0-1", similarity)
	}
	// every factor saturates at its reference scale, so this pair bottoms out
	if similarity != 0 {
		t.Errorf("expected similarity 0 for maximally different trails, got %f", similarity)
	}
}

func TestRankSimilarTrails(t *testing.T) {
	target := TrailRecord{ID: "target", DistanceKm: 10, ElevationGain: 500, DifficultyScore: 5, RollingHillsIndex: 2}
	candidates := []TrailRecord{
		{ID: "far", Name: "Far", DistanceKm: 40, ElevationGain: 3000, DifficultyScore: 10, RollingHillsIndex: 60},
		{ID: "close", Name: "Close", DistanceKm: 11, ElevationGain: 520, DifficultyScore: 5.2, RollingHillsIndex: 2.1},
		{ID: "target", Name: "Target itself", DistanceKm: 10, ElevationGain: 500, DifficultyScore: 5, RollingHillsIndex: 2},
	}

	matches := rankSimilarTrails(target, candidates, 10)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches (target excluded), got %d", len(matches))
	}
	if matches[0].TrailID != "close" {
		t.Errorf("expected closest trail first, got %s", matches[0].TrailID)
	}
	if matches[0].Similarity < matches[1].Similarity {
		t.Error("matches not sorted descending by similarity")
	}
}

func TestRankSimilarTrailsLimit(t *testing.T) {
	target := TrailRecord{ID: "t", DistanceKm: 5}
	candidates := []TrailRecord{
		{ID: "a", DistanceKm: 5},
		{ID: "b", DistanceKm: 6},
		{ID: "c", DistanceKm: 7},
	}
	matches := rankSimilarTrails(target, candidates, 2)
	if len(matches) != 2 {
		t.Errorf("expected limit to cap matches at 2, got %d", len(matches))
	}
}

func TestRankSimilarTrailsTieBreak(t *testing.T) {
	target := TrailRecord{ID: "t", DistanceKm: 5, ElevationGain: 100}
	candidates := []TrailRecord{
		{ID: "b", DistanceKm: 5, ElevationGain: 100},
		{ID: "a", DistanceKm: 5, ElevationGain: 100},
	}
	matches := rankSimilarTrails(target, candidates, 10)
	if matches[0].TrailID != "a" || matches[1].TrailID != "b" {
		t.Errorf("expected tie broken by trail ID, got order %s, %s", matches[0].TrailID, matches[1].TrailID)
	}
}
