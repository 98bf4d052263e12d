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
	"time"
)

/*
analyzeTrailRequest handles 'analyze request' from client.
*/
func analyzeTrailRequest(writer http.ResponseWriter, request *http.Request) {
	var analyzeResponse = AnalyzeResponse{Type: TypeAnalyzeResponse, ID: "unknown"}
	analyzeResponse.Attributes.IsError = true

	// statistics
	atomic.AddUint64(&AnalyzeRequests, 1)

	// limit overall request body size
	request.Body = http.MaxBytesReader(writer, request.Body, MaxAnalyzeRequestBodySize)

	// read request
	bodyData, err := io.ReadAll(request.Body)
	if err != nil {
		// check specifically for the error returned by MaxBytesReader
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			slog.Warn("analyze request: request body too large", "limit", maxBytesErr.Limit, "ID", "unknown")
			analyzeResponse.Attributes.Error.Code = "1000"
			analyzeResponse.Attributes.Error.Title = "request body too large"
			analyzeResponse.Attributes.Error.Detail = fmt.Sprintf("request body exceeds limit of %d bytes", maxBytesErr.Limit)
			buildAnalyzeResponse(writer, http.StatusRequestEntityTooLarge, analyzeResponse)
		} else {
			slog.Warn("analyze request: error reading request body", "error", err, "ID", "unknown")
			analyzeResponse.Attributes.Error.Code = "1020"
			analyzeResponse.Attributes.Error.Title = "error reading request body"
			analyzeResponse.Attributes.Error.Detail = err.Error()
			buildAnalyzeResponse(writer, http.StatusBadRequest, analyzeResponse)
		}
		return
	}

	// unmarshal request
	analyzeRequest := AnalyzeRequest{}
	err = json.Unmarshal(bodyData, &analyzeRequest)
	if err != nil {
		slog.Warn("analyze request: error unmarshaling request body", "error", err, "ID", "unknown")
		analyzeResponse.Attributes.Error.Code = "1040"
		analyzeResponse.Attributes.Error.Title = "error unmarshaling request body"
		analyzeResponse.Attributes.Error.Detail = err.Error()
		buildAnalyzeResponse(writer, http.StatusBadRequest, analyzeResponse)
		return
	}

	// copy request parameters into response
	analyzeResponse.ID = analyzeRequest.ID

	// verify request data
	err = verifyAnalyzeRequestData(request, analyzeRequest)
	if err != nil {
		slog.Warn("analyze request: error verifying request data", "error", err, "ID", analyzeRequest.ID)
		analyzeResponse.Attributes.Error.Code = "1060"
		analyzeResponse.Attributes.Error.Title = "error verifying request data"
		analyzeResponse.Attributes.Error.Detail = err.Error()
		buildAnalyzeResponse(writer, http.StatusBadRequest, analyzeResponse)
		return
	}

	// parse GPX data
	points, err := trailPointsFromGPX(analyzeRequest.Attributes.GPXData)
	if err != nil {
		slog.Warn("analyze request: error parsing GPX data", "error", err, "ID", analyzeRequest.ID)
		analyzeResponse.Attributes.Error.Code = "1080"
		analyzeResponse.Attributes.Error.Title = "error parsing GPX data"
		analyzeResponse.Attributes.Error.Detail = err.Error()
		buildAnalyzeResponse(writer, http.StatusBadRequest, analyzeResponse)
		return
	}

	// run multi-source analysis
	start := time.Now()
	result, err := analyzer.AnalyzeTrail(points, analyzeRequest.Attributes.PointCloudFile, analyzeRequest.Attributes.SearchRadius)
	if err != nil {
		code, status, title := analysisErrorDetails(err, "1100")
		slog.Warn("analyze request: error analyzing trail", "error", err, "ID", analyzeRequest.ID)
		analyzeResponse.Attributes.Error.Code = code
		analyzeResponse.Attributes.Error.Title = title
		analyzeResponse.Attributes.Error.Detail = err.Error()
		buildAnalyzeResponse(writer, status, analyzeResponse)
		return
	}
	elapsed := time.Since(start)
	slog.Info("duration of trail analysis", "elapsed (ms)", int64(elapsed/time.Millisecond), "points", len(points))

	// statistics
	atomic.AddUint64(&TrailPointsProcessed, uint64(len(points)))

	// successful response
	analyzeResponse.Attributes.Sources = result.Sources
	analyzeResponse.Attributes.Metrics = result.Metrics
	analyzeResponse.Attributes.MetricsSource = result.MetricsSource
	analyzeResponse.Attributes.Difficulty = result.Difficulty
	analyzeResponse.Attributes.Segments = result.Segments
	analyzeResponse.Attributes.IsError = false
	buildAnalyzeResponse(writer, http.StatusOK, analyzeResponse)
}

/*
verifyAnalyzeRequestData verifies 'analyze' request data.
It performs several checks on the request data to ensure its validity.
*/
func verifyAnalyzeRequestData(request *http.Request, analyzeRequest AnalyzeRequest) error {
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
	if analyzeRequest.Type != TypeAnalyzeRequest {
		return fmt.Errorf("unexpected request Type [%v]", analyzeRequest.Type)
	}

	// verify ID
	if len(analyzeRequest.ID) > 1024 {
		return errors.New("ID must be 0-1024 characters long")
	}

	// verify GPX data
	if err := verifyGPXPayload(analyzeRequest.Attributes.GPXData); err != nil {
		return err
	}

	// verify point cloud file reference (name only, resolved inside the configured directory)
	if strings.ContainsAny(analyzeRequest.Attributes.PointCloudFile, "/\\") {
		return errors.New("PointCloudFile must be a plain file name without path separators")
	}

	// verify search radius
	if analyzeRequest.Attributes.SearchRadius < 0 || analyzeRequest.Attributes.SearchRadius > 100 {
		return errors.New("SearchRadius must be between 0 and 100 meters")
	}

	return nil
}

/*
analysisErrorDetails maps an analysis error onto the endpoint's error code
family and a matching HTTP status. The base code covers invalid coordinates,
the following codes insufficient data and missing elevation sources.
*/
func analysisErrorDetails(err error, baseCode string) (string, int, string) {
	family := baseCode[:1]
	switch {
	case errors.Is(err, ErrInvalidCoordinate):
		return family + "100", http.StatusBadRequest, "invalid trail coordinates"
	case errors.Is(err, ErrInsufficientData):
		return family + "120", http.StatusBadRequest, "insufficient trail data"
	case errors.Is(err, ErrNoElevationData):
		return family + "140", http.StatusNotFound, "no elevation source available"
	default:
		return family + "160", http.StatusInternalServerError, "error analyzing trail"
	}
}

/*
buildAnalyzeResponse builds the response to an 'analyze' request.
*/
func buildAnalyzeResponse(writer http.ResponseWriter, httpStatus int, analyzeResponse AnalyzeResponse) {
	// log limit length of body (the source profiles can be very large)
	maxBodyLength := 1024

	// CORS: allow requests from any origin
	writer.Header().Set("Access-Control-Allow-Origin", "*")
	// CORS: allowed methods
	writer.Header().Set("Access-Control-Allow-Methods", "POST")
	// CORS: allowed headers
	writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	// marshal response
	body, err := json.MarshalIndent(analyzeResponse, "", "  ")
	if err != nil {
		slog.Error("error marshaling analyze response", "error", err, "body length", len(body),
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
