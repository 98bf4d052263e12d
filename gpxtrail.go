package main

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"math"

	"github.com/tkrajina/gpxgo/gpx"
)

/*
verifyGPXPayload checks that a base64 encoded GPX payload decodes to XML with
a 'gpx' root element. Full parsing happens later, this is the cheap request
validation.
*/
func verifyGPXPayload(encoded string) error {
	if encoded == "" {
		return errors.New("GPXData must not be empty")
	}
	gpxXMLBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return errors.New("GPXData is not valid base64")
	}

	// minimal struct to check the root element of the XML
	type gpxRoot struct {
		XMLName xml.Name
	}
	var root gpxRoot
	err = xml.Unmarshal(gpxXMLBytes, &root)
	if err != nil {
		return fmt.Errorf("GPXData is not valid XML: %w", err)
	}
	if root.XMLName.Local != "gpx" {
		return errors.New("GPXData does not contain expected 'gpx' root element")
	}
	return nil
}

/*
trailPointsFromGPX flattens all track segments (and routes, for GPX files
recorded as routes) into one ordered trail point sequence. Points without a
recorded elevation get a NaN placeholder so downstream profiles can tell
"no recording" from "sea level".
*/
func trailPointsFromGPX(encoded string) ([]TrailPoint, error) {
	gpxBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("error [%w] at base64.StdEncoding.DecodeString()", err)
	}
	gpxData, err := gpx.ParseBytes(gpxBytes)
	if err != nil {
		return nil, fmt.Errorf("error [%w] at gpx.ParseBytes()", err)
	}

	var points []TrailPoint
	for _, track := range gpxData.Tracks {
		for _, segment := range track.Segments {
			for _, point := range segment.Points {
				points = append(points, trailPointFromGPXPoint(point))
			}
		}
	}
	for _, route := range gpxData.Routes {
		for _, point := range route.Points {
			points = append(points, trailPointFromGPXPoint(point))
		}
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("GPX data contains no track or route points: %w", ErrInsufficientData)
	}
	return points, nil
}

func trailPointFromGPXPoint(point gpx.GPXPoint) TrailPoint {
	elevation := math.NaN()
	if point.Elevation.NotNull() {
		elevation = point.Elevation.Value()
	}
	return TrailPoint{
		Latitude:  point.Latitude,
		Longitude: point.Longitude,
		Elevation: elevation,
		Timestamp: point.Timestamp,
	}
}
