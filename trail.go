package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
)

/*
trailRequest handles 'trail request' from client: the trail is analyzed like
an analyze request and the resulting record is persisted in the trail store.
*/
func trailRequest(writer http.ResponseWriter, request *http.Request) {
	var trailResponse = TrailResponse{Type: TypeTrailResponse, ID: "unknown"}
	trailResponse.Attributes.IsError = true

	// statistics
	atomic.AddUint64(&TrailRequests, 1)

	// limit overall request body size
	request.Body = http.MaxBytesReader(writer, request.Body, MaxTrailRequestBodySize)

	// read request
	bodyData, err := io.ReadAll(request.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.Warn("trail request: request body too large", "limit", maxBytesErr.Limit, "ID", "unknown")
			trailResponse.Attributes.Error.Code = "2000"
			trailResponse.Attributes.Error.Title = "request body too large"
			trailResponse.Attributes.Error.Detail = fmt.Sprintf("request body exceeds limit of %d bytes", maxBytesErr.Limit)
			buildTrailResponse(writer, http.StatusRequestEntityTooLarge, trailResponse)
		} else {
			slog.Warn("trail request: error reading request body", "error", err, "ID", "unknown")
			trailResponse.Attributes.Error.Code = "2020"
			trailResponse.Attributes.Error.Title = "error reading request body"
			trailResponse.Attributes.Error.Detail = err.Error()
			buildTrailResponse(writer, http.StatusBadRequest, trailResponse)
		}
		return
	}

	// unmarshal request
	trailRequest := TrailRequest{}
	err = json.Unmarshal(bodyData, &trailRequest)
	if err != nil {
		slog.Warn("trail request: error unmarshaling request body", "error", err, "ID", "unknown")
		trailResponse.Attributes.Error.Code = "2040"
		trailResponse.Attributes.Error.Title = "error unmarshaling request body"
		trailResponse.Attributes.Error.Detail = err.Error()
		buildTrailResponse(writer, http.StatusBadRequest, trailResponse)
		return
	}

	// copy request parameters into response
	trailResponse.ID = trailRequest.ID

	// verify request data
	err = verifyTrailRequestData(request, trailRequest)
	if err != nil {
		slog.Warn("trail request: error verifying request data", "error", err, "ID", trailRequest.ID)
		trailResponse.Attributes.Error.Code = "2060"
		trailResponse.Attributes.Error.Title = "error verifying request data"
		trailResponse.Attributes.Error.Detail = err.Error()
		buildTrailResponse(writer, http.StatusBadRequest, trailResponse)
		return
	}

	// parse GPX data
	points, err := trailPointsFromGPX(trailRequest.Attributes.GPXData)
	if err != nil {
		slog.Warn("trail request: error parsing GPX data", "error", err, "ID", trailRequest.ID)
		trailResponse.Attributes.Error.Code = "2080"
		trailResponse.Attributes.Error.Title = "error parsing GPX data"
		trailResponse.Attributes.Error.Detail = err.Error()
		buildTrailResponse(writer, http.StatusBadRequest, trailResponse)
		return
	}

	// run multi-source analysis
	result, err := analyzer.AnalyzeTrail(points, trailRequest.Attributes.PointCloudFile, 0)
	if err != nil {
		code, status, title := analysisErrorDetails(err, "2100")
		slog.Warn("trail request: error analyzing trail", "error", err, "ID", trailRequest.ID)
		trailResponse.Attributes.Error.Code = code
		trailResponse.Attributes.Error.Title = title
		trailResponse.Attributes.Error.Detail = err.Error()
		buildTrailResponse(writer, status, trailResponse)
		return
	}

	// flag likely duplicates: an existing trail starting within 100 m
	nearby, err := trailStore.NearbyStart(points[0].Latitude, points[0].Longitude)
	if err != nil {
		slog.Error("trail request: error checking for nearby trails", "error", err, "ID", trailRequest.ID)
	}
	if len(nearby) > 0 {
		slog.Warn("trail request: trail starts within duplicate radius of stored trail",
			"name", trailRequest.Attributes.Name, "nearby", nearby[0].Name, "ID", trailRequest.ID)
	}

	record := trailRecordFromAnalysis(trailRequest.Attributes.Name, points, result)
	err = trailStore.Insert(&record, trailRequest.Attributes.Overwrite)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrTrailExists) {
			status = http.StatusConflict
		}
		slog.Warn("trail request: error storing trail", "error", err, "ID", trailRequest.ID)
		trailResponse.Attributes.Error.Code = "2120"
		trailResponse.Attributes.Error.Title = "error storing trail"
		trailResponse.Attributes.Error.Detail = err.Error()
		buildTrailResponse(writer, status, trailResponse)
		return
	}

	// statistics
	atomic.AddUint64(&TrailPointsProcessed, uint64(len(points)))

	// successful response
	trailResponse.Attributes.Trail = record
	trailResponse.Attributes.IsError = false
	buildTrailResponse(writer, http.StatusOK, trailResponse)
}

/*
trailRecordFromAnalysis assembles the persistent trail record from the
analysis outcome.
*/
func trailRecordFromAnalysis(name string, points []TrailPoint, result *AnalysisResult) TrailRecord {
	return TrailRecord{
		Name:                name,
		StartLatitude:       points[0].Latitude,
		StartLongitude:      points[0].Longitude,
		DistanceKm:          result.Metrics.DistanceKm,
		ElevationGain:       result.Metrics.ElevationGain,
		ElevationLoss:       result.Metrics.ElevationLoss,
		MinElevation:        result.Metrics.MinElevation,
		MaxElevation:        result.Metrics.MaxElevation,
		RollingHillsIndex:   result.Metrics.RollingHillsIndex,
		RollingHillsCount:   result.Metrics.RollingHillsCount,
		TerrainVarietyScore: result.Metrics.TerrainVarietyScore,
		MaxSlope:            result.Metrics.MaxSlope,
		AvgSlope:            result.Metrics.AvgSlope,
		DifficultyScore:     result.Difficulty.DifficultyScore,
		DifficultyLevel:     result.Difficulty.DifficultyLevel,
		TechnicalRating:     result.Difficulty.TechnicalRating,
		EstimatedTimeHours:  result.Difficulty.EstimatedTimeHours,
	}
}

/*
verifyTrailRequestData verifies 'trail' request data.
It performs several checks on the request data to ensure its validity.
*/
func verifyTrailRequestData(request *http.Request, trailRequest TrailRequest) error {
	// verify HTTP header
	contentType := request.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(contentType), "application/json") {
		return fmt.Errorf("unexpected or missing HTTP header field Content-Type, value = [%s], expected 'application/json'", contentType)
	}

	// verify HTTP header
	accept := request.Header.Get("Accept")
	if !strings.HasPrefix(strings.ToLower(accept), "application/json") {
		return fmt.Errorf("unexpected or missing HTTP header field Accept, value = [%s], expected 'application/json'", accept)
	}

	// verify Type
	if trailRequest.Type != TypeTrailRequest {
		return fmt.Errorf("unexpected request Type [%v]", trailRequest.Type)
	}

	// verify ID
	if len(trailRequest.ID) > 1024 {
		return errors.New("ID must be 0-1024 characters long")
	}

	// verify name
	name := strings.TrimSpace(trailRequest.Attributes.Name)
	if name == "" {
		return errors.New("Name must not be empty")
	}
	if len(name) > 256 {
		return errors.New("Name must be 1-256 characters long")
	}

	// verify GPX data
	if err := verifyGPXPayload(trailRequest.Attributes.GPXData); err != nil {
		return err
	}

	// verify point cloud file reference
	if strings.ContainsAny(trailRequest.Attributes.PointCloudFile, "/\\") {
		return errors.New("PointCloudFile must be a plain file name without path separators")
	}

	return nil
}

/*
buildTrailResponse builds the response to a 'trail' request.
*/
func buildTrailResponse(writer http.ResponseWriter, httpStatus int, trailResponse TrailResponse) {
	maxBodyLength := 1024

	// CORS: allow requests from any origin
	writer.Header().Set("Access-Control-Allow-Origin", "*")
	// CORS: allowed methods
	writer.Header().Set("Access-Control-Allow-Methods", "POST")
	// CORS: allowed headers
	writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	// marshal response
	body, err := json.MarshalIndent(trailResponse, "", "  ")
	if err != nil {
		slog.Error("error marshaling trail response", "error", err, "body length", len(body),
			fmt.Sprintf("body (limited to first %d bytes)", maxBodyLength), body[:min(len(body), maxBodyLength)])
		http.Error(writer, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// send response
	writer.Header().Set("Content-Type", JSONAPIMediaType)
	writer.WriteHeader(httpStatus)
	_, err = writer.Write(body)
	if err != nil {
		slog.Error("error writing HTTP response body", "error", err, "body length", len(body),
			fmt.Sprintf("body (limited to first %d bytes)", maxBodyLength), body[:min(len(body), maxBodyLength)])
	}
}
