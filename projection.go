package main

import (
	"fmt"
	"math"

	"github.com/airbusgeo/godal"
)

/*
validateTrailPoints checks every position of a trail for malformed coordinates.
NaN, infinite or out-of-range values fail fast with ErrInvalidCoordinate; the
projection behaviour for such input would otherwise be undefined.
*/
func validateTrailPoints(points []TrailPoint) error {
	for i, p := range points {
		if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) ||
			math.IsInf(p.Latitude, 0) || math.IsInf(p.Longitude, 0) {
			return fmt.Errorf("%w: point %d is not a number (lat: %v, lon: %v)", ErrInvalidCoordinate, i, p.Latitude, p.Longitude)
		}
		if p.Latitude < -90.0 || p.Latitude > 90.0 {
			return fmt.Errorf("%w: point %d latitude [%.8f] outside -90..90", ErrInvalidCoordinate, i, p.Latitude)
		}
		if p.Longitude < -180.0 || p.Longitude > 180.0 {
			return fmt.Errorf("%w: point %d longitude [%.8f] outside -180..180", ErrInvalidCoordinate, i, p.Longitude)
		}
	}
	return nil
}

/*
projectTrailPoints transforms all trail positions from WGS84 (EPSG:4326) into
the projected coordinate reference system of the elevation archive. The whole
trail is transformed in one batch call. The result is 1:1 with the input;
reprojection of points outside the archive zone is undefined, callers validate
coverage via the tile catalog before sampling.
*/
func projectTrailPoints(points []TrailPoint, targetEPSG int) ([]ProjectedPoint, error) {
	if err := validateTrailPoints(points); err != nil {
		return nil, err
	}

	// define source: WGS84 (EPSG:4326)
	sourceSRS, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return nil, fmt.Errorf("error creating source SRS (EPSG:4326): %w", err)
	}
	defer sourceSRS.Close()

	// define target: projected CRS of the archive (e.g. 28356 for GDA94 / MGA zone 56)
	targetSRS, err := godal.NewSpatialRefFromEPSG(targetEPSG)
	if err != nil {
		return nil, fmt.Errorf("error creating target SRS (EPSG:%d): %w", targetEPSG, err)
	}
	defer targetSRS.Close()

	transform, err := godal.NewTransform(sourceSRS, targetSRS)
	if err != nil {
		return nil, fmt.Errorf("error creating coordinate transformation from EPSG:4326 to EPSG:%d: %w", targetEPSG, err)
	}
	defer transform.Close()

	// define transformation parameters (slices of coordinates)
	xCoords := make([]float64, len(points))
	yCoords := make([]float64, len(points))
	for i, p := range points {
		xCoords[i] = p.Longitude
		yCoords[i] = p.Latitude
	}
	successFlags := make([]bool, len(points))

	// perform transformation (in-place)
	err = transform.TransformEx(xCoords, yCoords, nil, successFlags)
	if err != nil {
		return nil, fmt.Errorf("error during coordinate transformation: %w", err)
	}

	projected := make([]ProjectedPoint, len(points))
	for i := range points {
		if !successFlags[i] {
			return nil, fmt.Errorf("transformation from EPSG:4326 to EPSG:%d failed for point %d (%.8f, %.8f)",
				targetEPSG, i, points[i].Longitude, points[i].Latitude)
		}
		projected[i] = ProjectedPoint{X: xCoords[i], Y: yCoords[i]}
	}

	return projected, nil
}

/*
unprojectPoint transforms a single projected coordinate back to WGS84 lon/lat.
Inverse of projectTrailPoints for one point.
*/
func unprojectPoint(x, y float64, sourceEPSG int) (lon, lat float64, err error) {
	sourceSRS, err := godal.NewSpatialRefFromEPSG(sourceEPSG)
	if err != nil {
		err = fmt.Errorf("error creating source SRS (EPSG:%d): %w", sourceEPSG, err)
		return
	}
	defer sourceSRS.Close()

	targetSRS, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		err = fmt.Errorf("error creating target SRS (EPSG:4326): %w", err)
		return
	}
	defer targetSRS.Close()

	transform, err := godal.NewTransform(sourceSRS, targetSRS)
	if err != nil {
		err = fmt.Errorf("error creating coordinate transformation from EPSG:%d to EPSG:4326: %w", sourceEPSG, err)
		return
	}
	defer transform.Close()

	xCoords := []float64{x}
	yCoords := []float64{y}
	successFlags := make([]bool, 1)

	err = transform.TransformEx(xCoords, yCoords, nil, successFlags)
	if err != nil {
		err = fmt.Errorf("error during coordinate transformation: %w", err)
		return
	}
	if !successFlags[0] {
		err = fmt.Errorf("transformation from EPSG:%d to EPSG:4326 failed for coordinates (%.3f, %.3f)", sourceEPSG, x, y)
		return
	}

	lon = xCoords[0]
	lat = yCoords[0]
	return
}
