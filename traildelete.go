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
trailDeleteRequest handles 'trail delete request' from client: one stored
trail record is removed by its ID.
*/
func trailDeleteRequest(writer http.ResponseWriter, request *http.Request) {
	var trailDeleteResponse = TrailDeleteResponse{Type: TypeTrailDeleteResponse, ID: "unknown"}
	trailDeleteResponse.Attributes.IsError = true

	// statistics
	atomic.AddUint64(&TrailDeleteRequests, 1)

	// limit overall request body size
	request.Body = http.MaxBytesReader(writer, request.Body, MaxTrailDeleteRequestBodySize)

	// read request
	bodyData, err := io.ReadAll(request.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.Warn("trail delete request: request body too large", "limit", maxBytesErr.Limit, "ID", "unknown")
			trailDeleteResponse.Attributes.Error.Code = "6000"
			trailDeleteResponse.Attributes.Error.Title = "request body too large"
			trailDeleteResponse.Attributes.Error.Detail = fmt.Sprintf("request body exceeds limit of %d bytes", maxBytesErr.Limit)
			buildTrailDeleteResponse(writer, http.StatusRequestEntityTooLarge, trailDeleteResponse)
		} else {
			slog.Warn("trail delete request: error reading request body", "error", err, "ID", "unknown")
			trailDeleteResponse.Attributes.Error.Code = "6020"
			trailDeleteResponse.Attributes.Error.Title = "error reading request body"
			trailDeleteResponse.Attributes.Error.Detail = err.Error()
			buildTrailDeleteResponse(writer, http.StatusBadRequest, trailDeleteResponse)
		}
		return
	}

	// unmarshal request
	trailDeleteRequest := TrailDeleteRequest{}
	err = json.Unmarshal(bodyData, &trailDeleteRequest)
	if err != nil {
		slog.Warn("trail delete request: error unmarshaling request body", "error", err, "ID", "unknown")
		trailDeleteResponse.Attributes.Error.Code = "6040"
		trailDeleteResponse.Attributes.Error.Title = "error unmarshaling request body"
		trailDeleteResponse.Attributes.Error.Detail = err.Error()
		buildTrailDeleteResponse(writer, http.StatusBadRequest, trailDeleteResponse)
		return
	}

	// copy request parameters into response
	trailDeleteResponse.ID = trailDeleteRequest.ID
	trailDeleteResponse.Attributes.TrailID = trailDeleteRequest.Attributes.TrailID

	// verify request data
	err = verifyTrailDeleteRequestData(request, trailDeleteRequest)
	if err != nil {
		slog.Warn("trail delete request: error verifying request data", "error", err, "ID", trailDeleteRequest.ID)
		trailDeleteResponse.Attributes.Error.Code = "6060"
		trailDeleteResponse.Attributes.Error.Title = "error verifying request data"
		trailDeleteResponse.Attributes.Error.Detail = err.Error()
		buildTrailDeleteResponse(writer, http.StatusBadRequest, trailDeleteResponse)
		return
	}

	// delete stored trail
	err = trailStore.Delete(trailDeleteRequest.Attributes.TrailID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrTrailNotFound) {
			status = http.StatusNotFound
		}
		slog.Warn("trail delete request: error deleting stored trail", "error", err, "ID", trailDeleteRequest.ID)
		trailDeleteResponse.Attributes.Error.Code = "6080"
		trailDeleteResponse.Attributes.Error.Title = "error deleting stored trail"
		trailDeleteResponse.Attributes.Error.Detail = err.Error()
		buildTrailDeleteResponse(writer, status, trailDeleteResponse)
		return
	}

	slog.Info("stored trail deleted", "TrailID", trailDeleteRequest.Attributes.TrailID, "ID", trailDeleteRequest.ID)

	// successful response
	trailDeleteResponse.Attributes.IsError = false
	buildTrailDeleteResponse(writer, http.StatusOK, trailDeleteResponse)
}

/*
verifyTrailDeleteRequestData verifies 'trail delete' request data.
*/
func verifyTrailDeleteRequestData(request *http.Request, trailDeleteRequest TrailDeleteRequest) error {
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
	if trailDeleteRequest.Type != TypeTrailDeleteRequest {
		return fmt.Errorf("unexpected request Type [%v]", trailDeleteRequest.Type)
	}

	// verify ID
	if len(trailDeleteRequest.ID) > 1024 {
		return errors.New("ID must be 0-1024 characters long")
	}

	// verify trail ID
	if trailDeleteRequest.Attributes.TrailID == "" {
		return errors.New("TrailID must not be empty")
	}

	return nil
}

/*
buildTrailDeleteResponse builds the response to a 'trail delete' request.
*/
func buildTrailDeleteResponse(writer http.ResponseWriter, httpStatus int, trailDeleteResponse TrailDeleteResponse) {
	// CORS: allow requests from any origin
	writer.Header().Set("Access-Control-Allow-Origin", "*")
	// CORS: allowed methods
	writer.Header().Set("Access-Control-Allow-Methods", "POST")
	// CORS: allowed headers
	writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	// marshal response
	body, err := json.MarshalIndent(trailDeleteResponse, "", "  ")
	if err != nil {
		slog.Error("error marshaling trail delete response", "error", err)
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
