package main

import (
	"math"
	"testing"
)

func TestScoreDifficultyWorkedExample(t *testing.T) {
	metrics := TerrainMetrics{
		DistanceKm:        10,
		ElevationGain:     1000,
		RollingHillsIndex: 50,
	}
	profile := scoreDifficulty(metrics)
	if profile.DifficultyScore != 10.0 {
		t.Errorf("expected difficulty score 10, got %f", profile.DifficultyScore)
	}
	if profile.DifficultyLevel != "Extreme" {
		t.Errorf("expected level Extreme, got %s", profile.DifficultyLevel)
	}
}

func TestScoreDifficultyRanges(t *testing.T) {
	cases := []TerrainMetrics{
		{},
		{DistanceKm: 0.1, ElevationGain: 5},
		{DistanceKm: 500, ElevationGain: 20000, RollingHillsIndex: 400, MaxSlope: 200, AvgSlope: 80},
		{DistanceKm: 10, ElevationGain: 1000, RollingHillsIndex: 50},
	}
	for i, metrics := range cases {
		profile := scoreDifficulty(metrics)
		if profile.DifficultyScore < 0 || profile.DifficultyScore > 10 {
			t.Errorf("case %d: difficulty score %f outside 0-10", i, profile.DifficultyScore)
		}
		if profile.TechnicalRating < 1 || profile.TechnicalRating > 10 {
			t.Errorf("case %d: technical rating %f outside 1-10", i, profile.TechnicalRating)
		}
	}
}

func TestDifficultyLevelBands(t *testing.T) {
	cases := []struct {
		score    float64
		expected string
	}{
		{0, "Easy"},
		{3.0, "Easy"},
		{3.1, "Moderate"},
		{6.0, "Moderate"},
		{6.1, "Hard"},
		{8.0, "Hard"},
		{8.1, "Extreme"},
		{10.0, "Extreme"},
	}
	for _, c := range cases {
		if level := difficultyLevel(c.score); level != c.expected {
			t.Errorf("score %.1f: expected %s, got %s", c.score, c.expected, level)
		}
	}
}

func TestEstimatedTimeHours(t *testing.T) {
	metrics := TerrainMetrics{
		DistanceKm:        10,
		ElevationGain:     600,
		RollingHillsIndex: 2,
	}
	// 10/5 + 600/600 + 2*0.5 = 4 hours
	hours := estimatedTimeHours(metrics)
	if math.Abs(hours-4.0) > 1e-9 {
		t.Errorf("expected 4 hours, got %f", hours)
	}
}

func TestRollingHillsDisplayScore(t *testing.T) {
	if score := rollingHillsDisplayScore(0); score != 0 {
		t.Errorf("expected display score 0 for index 0, got %f", score)
	}
	if score := rollingHillsDisplayScore(-3); score != 0 {
		t.Errorf("expected display score 0 for negative index, got %f", score)
	}

	previous := 0.0
	for _, index := range []float64{1, 5, 20, 50, 200, 10000} {
		score := rollingHillsDisplayScore(index)
		if score <= previous {
			t.Errorf("display score not increasing at index %f: %f <= %f", index, score, previous)
		}
		if score > 10 {
			t.Errorf("display score %f exceeds 10 at index %f", score, index)
		}
		previous = score
	}
}
