package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTrailDeleteRequestHandler(t *testing.T) {
	trailStore = newTestStore(t)
	record := sampleRecord("Doomed Trail")
	if err := trailStore.Insert(&record, false); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	requestBody := TrailDeleteRequest{Type: TypeTrailDeleteRequest, ID: "test-1"}
	requestBody.Attributes.TrailID = record.ID
	payload, err := json.Marshal(requestBody)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}

	request := httptest.NewRequest(http.MethodPost, "/v1/traildelete", bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	recorder := httptest.NewRecorder()

	trailDeleteRequest(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var response TrailDeleteResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("unmarshaling response: %v", err)
	}
	if response.Attributes.IsError {
		t.Fatalf("unexpected error response: %+v", response.Attributes.Error)
	}
	if response.Attributes.TrailID != record.ID {
		t.Errorf("expected deleted trail ID echoed, got %s", response.Attributes.TrailID)
	}

	// record must be gone from the store
	if _, err := trailStore.Get(record.ID); !errors.Is(err, ErrTrailNotFound) {
		t.Errorf("expected trail removed from store, got %v", err)
	}
}

func TestTrailDeleteRequestHandlerNotFound(t *testing.T) {
	trailStore = newTestStore(t)

	requestBody := TrailDeleteRequest{Type: TypeTrailDeleteRequest, ID: "test-2"}
	requestBody.Attributes.TrailID = "does-not-exist"
	payload, _ := json.Marshal(requestBody)

	request := httptest.NewRequest(http.MethodPost, "/v1/traildelete", bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	recorder := httptest.NewRecorder()

	trailDeleteRequest(recorder, request)

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", recorder.Code)
	}
	var response TrailDeleteResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("unmarshaling response: %v", err)
	}
	if response.Attributes.Error.Code != "6080" {
		t.Errorf("expected error code 6080, got %s", response.Attributes.Error.Code)
	}
}

func TestTrailDeleteRequestHandlerEmptyTrailID(t *testing.T) {
	trailStore = newTestStore(t)

	requestBody := TrailDeleteRequest{Type: TypeTrailDeleteRequest, ID: "test-3"}
	payload, _ := json.Marshal(requestBody)

	request := httptest.NewRequest(http.MethodPost, "/v1/traildelete", bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	recorder := httptest.NewRecorder()

	trailDeleteRequest(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", recorder.Code)
	}
	var response TrailDeleteResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("unmarshaling response: %v", err)
	}
	if response.Attributes.Error.Code != "6060" {
		t.Errorf("expected error code 6060, got %s", response.Attributes.Error.Code)
	}
}
