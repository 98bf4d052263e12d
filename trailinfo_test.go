package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWeatherExposureBands(t *testing.T) {
	cases := []struct {
		maxElevation float64
		expected     string
	}{
		{2000, "High"},
		{1501, "High"},
		{1200, "Moderate"},
		{800, "Low-Moderate"},
		{300, "Low"},
		{0, "Low"},
	}
	for _, c := range cases {
		exposure := weatherExposure(c.maxElevation)
		if exposure.ExposureLevel != c.expected {
			t.Errorf("max elevation %.0f: expected %s, got %s", c.maxElevation, c.expected, exposure.ExposureLevel)
		}
		if len(exposure.RiskFactors) == 0 {
			t.Errorf("max elevation %.0f: expected risk factors", c.maxElevation)
		}
	}
}

func TestVarietyDescription(t *testing.T) {
	if varietyDescription(9) == varietyDescription(1) {
		t.Error("expected distinct descriptions across the score range")
	}
	for _, score := range []float64{0, 2, 4, 6, 8, 10} {
		if varietyDescription(score) == "" {
			t.Errorf("expected description for score %f", score)
		}
	}
}

func TestTrailInfoRequestHandler(t *testing.T) {
	trailStore = newTestStore(t)

	record := sampleRecord("Summit Circuit")
	record.MaxElevation = 1600
	if err := trailStore.Insert(&record, false); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	requestBody := TrailInfoRequest{Type: TypeTrailInfoRequest, ID: "test-1"}
	requestBody.Attributes.TrailID = record.ID
	payload, err := json.Marshal(requestBody)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}

	request := httptest.NewRequest(http.MethodPost, "/v1/trailinfo", bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	recorder := httptest.NewRecorder()

	trailInfoRequest(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var response TrailInfoResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("unmarshaling response: %v", err)
	}
	if response.Attributes.IsError {
		t.Fatalf("unexpected error response: %+v", response.Attributes.Error)
	}
	if response.Attributes.Trail.Name != "Summit Circuit" {
		t.Errorf("unexpected trail name %s", response.Attributes.Trail.Name)
	}
	if response.Attributes.WeatherExposure.ExposureLevel != "High" {
		t.Errorf("expected High exposure for 1600 m, got %s", response.Attributes.WeatherExposure.ExposureLevel)
	}
	if response.Attributes.VarietyDescription == "" {
		t.Error("expected a variety description")
	}
}

func TestTrailInfoRequestHandlerNotFound(t *testing.T) {
	trailStore = newTestStore(t)

	requestBody := TrailInfoRequest{Type: TypeTrailInfoRequest, ID: "test-2"}
	requestBody.Attributes.TrailID = "does-not-exist"
	payload, _ := json.Marshal(requestBody)

	request := httptest.NewRequest(http.MethodPost, "/v1/trailinfo", bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	recorder := httptest.NewRecorder()

	trailInfoRequest(recorder, request)

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", recorder.Code)
	}
	var response TrailInfoResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("unmarshaling response: %v", err)
	}
	if !response.Attributes.IsError {
		t.Error("expected error response")
	}
	if response.Attributes.Error.Code != "4080" {
		t.Errorf("expected error code 4080, got %s", response.Attributes.Error.Code)
	}
}

func TestTrailInfoRequestHandlerBadContentType(t *testing.T) {
	trailStore = newTestStore(t)

	requestBody := TrailInfoRequest{Type: TypeTrailInfoRequest}
	requestBody.Attributes.TrailID = "x"
	payload, _ := json.Marshal(requestBody)

	request := httptest.NewRequest(http.MethodPost, "/v1/trailinfo", bytes.NewReader(payload))
	request.Header.Set("Content-Type", "text/plain")
	request.Header.Set("Accept", "application/json")
	recorder := httptest.NewRecorder()

	trailInfoRequest(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", recorder.Code)
	}
}
