package main

import "net/http"

/*
corsOptionsHandler answers CORS preflight (OPTIONS) requests for all trail
terrain endpoints. Every endpoint accepts POST with a JSON body only, so one
shared preflight answer covers the whole service.
*/
func corsOptionsHandler(writer http.ResponseWriter, _ *http.Request) {
	// browser clients may call the service from any origin
	writer.Header().Set("Access-Control-Allow-Origin", "*")

	// the trail terrain endpoints are POST-only
	writer.Header().Set("Access-Control-Allow-Methods", "POST")

	// clients send JSON request bodies
	writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	// preflight result caching time in seconds (24 hours)
	writer.Header().Set("Access-Control-Max-Age", "86400")

	writer.WriteHeader(http.StatusOK)
}
