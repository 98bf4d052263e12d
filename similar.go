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

// DefaultSimilarLimit caps the ranked matches when the client does not ask
// for a specific count.
const DefaultSimilarLimit = 5

/*
similarRequest handles 'similar request' from client: the stored trail pool
is ranked by similarity against the given trail.
*/
func similarRequest(writer http.ResponseWriter, request *http.Request) {
	var similarResponse = SimilarResponse{Type: TypeSimilarResponse, ID: "unknown"}
	similarResponse.Attributes.IsError = true

	// statistics
	atomic.AddUint64(&SimilarRequests, 1)

	// limit overall request body size
	request.Body = http.MaxBytesReader(writer, request.Body, MaxSimilarRequestBodySize)

	// read request
	bodyData, err := io.ReadAll(request.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.Warn("similar request: request body too large", "limit", maxBytesErr.Limit, "ID", "unknown")
			similarResponse.Attributes.Error.Code = "3000"
			similarResponse.Attributes.Error.Title = "request body too large"
			similarResponse.Attributes.Error.Detail = fmt.Sprintf("request body exceeds limit of %d bytes", maxBytesErr.Limit)
			buildSimilarResponse(writer, http.StatusRequestEntityTooLarge, similarResponse)
		} else {
			slog.Warn("similar request: error reading request body", "error", err, "ID", "unknown")
			similarResponse.Attributes.Error.Code = "3020"
			similarResponse.Attributes.Error.Title = "error reading request body"
			similarResponse.Attributes.Error.Detail = err.Error()
			buildSimilarResponse(writer, http.StatusBadRequest, similarResponse)
		}
		return
	}

	// unmarshal request
	similarRequest := SimilarRequest{}
	err = json.Unmarshal(bodyData, &similarRequest)
	if err != nil {
		slog.Warn("similar request: error unmarshaling request body", "error", err, "ID", "unknown")
		similarResponse.Attributes.Error.Code = "3040"
		similarResponse.Attributes.Error.Title = "error unmarshaling request body"
		similarResponse.Attributes.Error.Detail = err.Error()
		buildSimilarResponse(writer, http.StatusBadRequest, similarResponse)
		return
	}

	// copy request parameters into response
	similarResponse.ID = similarRequest.ID

	// verify request data
	err = verifySimilarRequestData(request, similarRequest)
	if err != nil {
		slog.Warn("similar request: error verifying request data", "error", err, "ID", similarRequest.ID)
		similarResponse.Attributes.Error.Code = "3060"
		similarResponse.Attributes.Error.Title = "error verifying request data"
		similarResponse.Attributes.Error.Detail = err.Error()
		buildSimilarResponse(writer, http.StatusBadRequest, similarResponse)
		return
	}

	// look up target trail
	target, err := trailStore.Get(similarRequest.Attributes.TrailID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrTrailNotFound) {
			status = http.StatusNotFound
		}
		slog.Warn("similar request: error loading target trail", "error", err, "ID", similarRequest.ID)
		similarResponse.Attributes.Error.Code = "3080"
		similarResponse.Attributes.Error.Title = "error loading target trail"
		similarResponse.Attributes.Error.Detail = err.Error()
		buildSimilarResponse(writer, status, similarResponse)
		return
	}

	// rank candidate pool
	candidates, err := trailStore.List()
	if err != nil {
		slog.Error("similar request: error loading candidate trails", "error", err, "ID", similarRequest.ID)
		similarResponse.Attributes.Error.Code = "3100"
		similarResponse.Attributes.Error.Title = "error loading candidate trails"
		similarResponse.Attributes.Error.Detail = err.Error()
		buildSimilarResponse(writer, http.StatusInternalServerError, similarResponse)
		return
	}

	limit := similarRequest.Attributes.Limit
	if limit == 0 {
		limit = DefaultSimilarLimit
	}

	// successful response
	similarResponse.Attributes.Matches = rankSimilarTrails(target, candidates, limit)
	similarResponse.Attributes.IsError = false
	buildSimilarResponse(writer, http.StatusOK, similarResponse)
}

/*
verifySimilarRequestData verifies 'similar' request data.
*/
func verifySimilarRequestData(request *http.Request, similarRequest SimilarRequest) error {
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
	if similarRequest.Type != TypeSimilarRequest {
		return fmt.Errorf("unexpected request Type [%v]", similarRequest.Type)
	}

	// verify ID
	if len(similarRequest.ID) > 1024 {
		return errors.New("ID must be 0-1024 characters long")
	}

	// verify trail ID
	if similarRequest.Attributes.TrailID == "" {
		return errors.New("TrailID must not be empty")
	}

	// verify limit
	if similarRequest.Attributes.Limit < 0 || similarRequest.Attributes.Limit > 100 {
		return errors.New("Limit must be between 0 and 100")
	}

	return nil
}

/*
buildSimilarResponse builds the response to a 'similar' request.
*/
func buildSimilarResponse(writer http.ResponseWriter, httpStatus int, similarResponse SimilarResponse) {
	// CORS: allow requests from any origin
	writer.Header().Set("Access-Control-Allow-Origin", "*")
	// CORS: allowed methods
	writer.Header().Set("Access-Control-Allow-Methods", "POST")
	// CORS: allowed headers
	writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	// marshal response
	body, err := json.MarshalIndent(similarResponse, "", "  ")
	if err != nil {
		slog.Error("error marshaling similar response", "error", err)
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
