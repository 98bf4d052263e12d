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
trailListRequest handles 'trail list request' from client: all stored trail
records, ordered by name.
*/
func trailListRequest(writer http.ResponseWriter, request *http.Request) {
	var trailListResponse = TrailListResponse{Type: TypeTrailListResponse, ID: "unknown"}
	trailListResponse.Attributes.IsError = true

	// statistics
	atomic.AddUint64(&TrailListRequests, 1)

	// limit overall request body size
	request.Body = http.MaxBytesReader(writer, request.Body, MaxTrailListRequestBodySize)

	// read request
	bodyData, err := io.ReadAll(request.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.Warn("trail list request: request body too large", "limit", maxBytesErr.Limit, "ID", "unknown")
			trailListResponse.Attributes.Error.Code = "5000"
			trailListResponse.Attributes.Error.Title = "request body too large"
			trailListResponse.Attributes.Error.Detail = fmt.Sprintf("request body exceeds limit of %d bytes", maxBytesErr.Limit)
			buildTrailListResponse(writer, http.StatusRequestEntityTooLarge, trailListResponse)
		} else {
			slog.Warn("trail list request: error reading request body", "error", err, "ID", "unknown")
			trailListResponse.Attributes.Error.Code = "5020"
			trailListResponse.Attributes.Error.Title = "error reading request body"
			trailListResponse.Attributes.Error.Detail = err.Error()
			buildTrailListResponse(writer, http.StatusBadRequest, trailListResponse)
		}
		return
	}

	// unmarshal request
	trailListRequest := TrailListRequest{}
	err = json.Unmarshal(bodyData, &trailListRequest)
	if err != nil {
		slog.Warn("trail list request: error unmarshaling request body", "error", err, "ID", "unknown")
		trailListResponse.Attributes.Error.Code = "5040"
		trailListResponse.Attributes.Error.Title = "error unmarshaling request body"
		trailListResponse.Attributes.Error.Detail = err.Error()
		buildTrailListResponse(writer, http.StatusBadRequest, trailListResponse)
		return
	}

	// copy request parameters into response
	trailListResponse.ID = trailListRequest.ID

	// verify request data
	err = verifyTrailListRequestData(request, trailListRequest)
	if err != nil {
		slog.Warn("trail list request: error verifying request data", "error", err, "ID", trailListRequest.ID)
		trailListResponse.Attributes.Error.Code = "5060"
		trailListResponse.Attributes.Error.Title = "error verifying request data"
		trailListResponse.Attributes.Error.Detail = err.Error()
		buildTrailListResponse(writer, http.StatusBadRequest, trailListResponse)
		return
	}

	// load stored trails
	trails, err := trailStore.List()
	if err != nil {
		slog.Error("trail list request: error loading stored trails", "error", err, "ID", trailListRequest.ID)
		trailListResponse.Attributes.Error.Code = "5080"
		trailListResponse.Attributes.Error.Title = "error loading stored trails"
		trailListResponse.Attributes.Error.Detail = err.Error()
		buildTrailListResponse(writer, http.StatusInternalServerError, trailListResponse)
		return
	}

	// successful response
	trailListResponse.Attributes.Trails = trails
	trailListResponse.Attributes.IsError = false
	buildTrailListResponse(writer, http.StatusOK, trailListResponse)
}

/*
verifyTrailListRequestData verifies 'trail list' request data.
*/
func verifyTrailListRequestData(request *http.Request, trailListRequest TrailListRequest) error {
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
	if trailListRequest.Type != TypeTrailListRequest {
		return fmt.Errorf("unexpected request Type [%v]", trailListRequest.Type)
	}

	// verify ID
	if len(trailListRequest.ID) > 1024 {
		return errors.New("ID must be 0-1024 characters long")
	}

	return nil
}

/*
buildTrailListResponse builds the response to a 'trail list' request.
*/
func buildTrailListResponse(writer http.ResponseWriter, httpStatus int, trailListResponse TrailListResponse) {
	// CORS: allow requests from any origin
	writer.Header().Set("Access-Control-Allow-Origin", "*")
	// CORS: allowed methods
	writer.Header().Set("Access-Control-Allow-Methods", "POST")
	// CORS: allowed headers
	writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	// marshal response
	body, err := json.MarshalIndent(trailListResponse, "", "  ")
	if err != nil {
		slog.Error("error marshaling trail list response", "error", err)
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
