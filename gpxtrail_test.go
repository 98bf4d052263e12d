package main

import (
	"encoding/base64"
	"math"
	"testing"
)

const testGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test">
  <trk>
    <name>Test Trail</name>
    <trkseg>
      <trkpt lat="-27.470" lon="153.020"><ele>32.5</ele></trkpt>
      <trkpt lat="-27.471" lon="153.021"></trkpt>
      <trkpt lat="-27.472" lon="153.022"><ele>41.0</ele></trkpt>
    </trkseg>
  </trk>
</gpx>`

func encodedTestGPX() string {
	return base64.StdEncoding.EncodeToString([]byte(testGPX))
}

func TestTrailPointsFromGPX(t *testing.T) {
	points, err := trailPointsFromGPX(encodedTestGPX())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if points[0].Latitude != -27.470 || points[0].Longitude != 153.020 {
		t.Errorf("unexpected first point: %+v", points[0])
	}
	if points[0].Elevation != 32.5 {
		t.Errorf("expected elevation 32.5, got %f", points[0].Elevation)
	}
	if !math.IsNaN(points[1].Elevation) {
		t.Errorf("expected NaN placeholder for missing elevation, got %f", points[1].Elevation)
	}
	if points[2].Elevation != 41.0 {
		t.Errorf("expected elevation 41.0, got %f", points[2].Elevation)
	}
}

func TestTrailPointsFromGPXEmpty(t *testing.T) {
	empty := base64.StdEncoding.EncodeToString([]byte(`<?xml version="1.0"?><gpx version="1.1" creator="test"></gpx>`))
	_, err := trailPointsFromGPX(empty)
	if err == nil {
		t.Error("expected error for GPX without points")
	}
}

func TestVerifyGPXPayload(t *testing.T) {
	if err := verifyGPXPayload(encodedTestGPX()); err != nil {
		t.Errorf("unexpected error for valid payload: %v", err)
	}
	if err := verifyGPXPayload(""); err == nil {
		t.Error("expected error for empty payload")
	}
	if err := verifyGPXPayload("not-base64!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
	notGPX := base64.StdEncoding.EncodeToString([]byte("<html></html>"))
	if err := verifyGPXPayload(notGPX); err == nil {
		t.Error("expected error for non-gpx root element")
	}
}
