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
trailInfoRequest handles 'trailinfo request' from client: one stored trail
record plus derived descriptions.
*/
func trailInfoRequest(writer http.ResponseWriter, request *http.Request) {
	var trailInfoResponse = TrailInfoResponse{Type: TypeTrailInfoResponse, ID: "unknown"}
	trailInfoResponse.Attributes.IsError = true

	// statistics
	atomic.AddUint64(&TrailInfoRequests, 1)

	// limit overall request body size
	request.Body = http.MaxBytesReader(writer, request.Body, MaxTrailInfoRequestBodySize)

	// read request
	bodyData, err := io.ReadAll(request.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.Warn("trailinfo request: request body too large", "limit", maxBytesErr.Limit, "ID", "unknown")
			trailInfoResponse.Attributes.Error.Code = "4000"
			trailInfoResponse.Attributes.Error.Title = "request body too large"
			trailInfoResponse.Attributes.Error.Detail = fmt.Sprintf("request body exceeds limit of %d bytes", maxBytesErr.Limit)
			buildTrailInfoResponse(writer, http.StatusRequestEntityTooLarge, trailInfoResponse)
		} else {
			slog.Warn("trailinfo request: error reading request body", "error", err, "ID", "unknown")
			trailInfoResponse.Attributes.Error.Code = "4020"
			trailInfoResponse.Attributes.Error.Title = "error reading request body"
			trailInfoResponse.Attributes.Error.Detail = err.Error()
			buildTrailInfoResponse(writer, http.StatusBadRequest, trailInfoResponse)
		}
		return
	}

	// unmarshal request
	trailInfoRequest := TrailInfoRequest{}
	err = json.Unmarshal(bodyData, &trailInfoRequest)
	if err != nil {
		slog.Warn("trailinfo request: error unmarshaling request body", "error", err, "ID", "unknown")
		trailInfoResponse.Attributes.Error.Code = "4040"
		trailInfoResponse.Attributes.Error.Title = "error unmarshaling request body"
		trailInfoResponse.Attributes.Error.Detail = err.Error()
		buildTrailInfoResponse(writer, http.StatusBadRequest, trailInfoResponse)
		return
	}

	// copy request parameters into response
	trailInfoResponse.ID = trailInfoRequest.ID

	// verify request data
	err = verifyTrailInfoRequestData(request, trailInfoRequest)
	if err != nil {
		slog.Warn("trailinfo request: error verifying request data", "error", err, "ID", trailInfoRequest.ID)
		trailInfoResponse.Attributes.Error.Code = "4060"
		trailInfoResponse.Attributes.Error.Title = "error verifying request data"
		trailInfoResponse.Attributes.Error.Detail = err.Error()
		buildTrailInfoResponse(writer, http.StatusBadRequest, trailInfoResponse)
		return
	}

	// look up stored trail
	record, err := trailStore.Get(trailInfoRequest.Attributes.TrailID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrTrailNotFound) {
			status = http.StatusNotFound
		}
		slog.Warn("trailinfo request: error loading trail", "error", err, "ID", trailInfoRequest.ID)
		trailInfoResponse.Attributes.Error.Code = "4080"
		trailInfoResponse.Attributes.Error.Title = "error loading trail"
		trailInfoResponse.Attributes.Error.Detail = err.Error()
		buildTrailInfoResponse(writer, status, trailInfoResponse)
		return
	}

	// successful response
	trailInfoResponse.Attributes.Trail = record
	trailInfoResponse.Attributes.WeatherExposure = weatherExposure(record.MaxElevation)
	trailInfoResponse.Attributes.VarietyDescription = varietyDescription(record.TerrainVarietyScore)
	trailInfoResponse.Attributes.IsError = false
	buildTrailInfoResponse(writer, http.StatusOK, trailInfoResponse)
}

/*
weatherExposure derives a static weather risk band from the highest elevation
of a trail. High trails are exposed to wind and rapid weather changes, low
trails mostly to heat.
*/
func weatherExposure(maxElevation float64) WeatherExposure {
	switch {
	case maxElevation > 1500:
		return WeatherExposure{
			ExposureLevel: "High",
			RiskFactors:   []string{"strong winds", "rapid weather changes", "temperature drops"},
		}
	case maxElevation > 1000:
		return WeatherExposure{
			ExposureLevel: "Moderate",
			RiskFactors:   []string{"wind exposure", "afternoon storms"},
		}
	case maxElevation > 500:
		return WeatherExposure{
			ExposureLevel: "Low-Moderate",
			RiskFactors:   []string{"occasional wind exposure"},
		}
	default:
		return WeatherExposure{
			ExposureLevel: "Low",
			RiskFactors:   []string{"heat on open sections"},
		}
	}
}

/*
varietyDescription maps the terrain variety score onto a rider-facing
description.
*/
func varietyDescription(score float64) string {
	switch {
	case score >= 8:
		return "Extremely varied terrain with constant elevation changes"
	case score >= 6:
		return "Highly varied terrain with frequent elevation changes"
	case score >= 4:
		return "Moderately varied terrain with some elevation changes"
	case score >= 2:
		return "Mildly varied terrain with gentle elevation changes"
	default:
		return "Mostly flat, uniform terrain"
	}
}

/*
verifyTrailInfoRequestData verifies 'trailinfo' request data.
*/
func verifyTrailInfoRequestData(request *http.Request, trailInfoRequest TrailInfoRequest) error {
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
	if trailInfoRequest.Type != TypeTrailInfoRequest {
		return fmt.Errorf("unexpected request Type [%v]", trailInfoRequest.Type)
	}

	// verify ID
	if len(trailInfoRequest.ID) > 1024 {
		return errors.New("ID must be 0-1024 characters long")
	}

	// verify trail ID
	if trailInfoRequest.Attributes.TrailID == "" {
		return errors.New("TrailID must not be empty")
	}

	return nil
}

/*
buildTrailInfoResponse builds the response to a 'trailinfo' request.
*/
func buildTrailInfoResponse(writer http.ResponseWriter, httpStatus int, trailInfoResponse TrailInfoResponse) {
	// CORS: allow requests from any origin
	writer.Header().Set("Access-Control-Allow-Origin", "*")
	// CORS: allowed methods
	writer.Header().Set("Access-Control-Allow-Methods", "POST")
	// CORS: allowed headers
	writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	// marshal response
	body, err := json.MarshalIndent(trailInfoResponse, "", "  ")
	if err != nil {
		slog.Error("error marshaling trailinfo response", "error", err)
		http.Error(writer, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// send response
	writer.Header().Set("Content-Type", JSONAPIMediaType)
	writer.WriteHeader(httpStatus)
	_, err = writer.Write(body)
	if err != nil {
		slog.Error("error writing HTTP response body", "error", err, "body length", len(body))
	}
}
