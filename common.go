package main

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/golang/geo/s2"
)

// --------------------------------------------------------------------------------
// Constants.
// --------------------------------------------------------------------------------

// HTTP Accept headers
const (
	JSONAPIMediaType   = "application/json; charset=utf-8"
	TextPlainMediaType = "text/html; charset=utf-8"
)

// JSON API types
const (
	TypeAnalyzeRequest      = "AnalyzeRequest"
	TypeAnalyzeResponse     = "AnalyzeResponse"
	TypeTrailRequest        = "TrailRequest"
	TypeTrailResponse       = "TrailResponse"
	TypeSimilarRequest      = "SimilarRequest"
	TypeSimilarResponse     = "SimilarResponse"
	TypeTrailInfoRequest    = "TrailInfoRequest"
	TypeTrailInfoResponse   = "TrailInfoResponse"
	TypeTrailListRequest    = "TrailListRequest"
	TypeTrailListResponse   = "TrailListResponse"
	TypeTrailDeleteRequest  = "TrailDeleteRequest"
	TypeTrailDeleteResponse = "TrailDeleteResponse"
)

// request body limits (in bytes, for security reasons)
const (
	MaxAnalyzeRequestBodySize     = 24 * 1024 * 1024
	MaxTrailRequestBodySize       = 24 * 1024 * 1024
	MaxSimilarRequestBodySize     = 4 * 1024
	MaxTrailInfoRequestBodySize   = 4 * 1024
	MaxTrailListRequestBodySize   = 4 * 1024
	MaxTrailDeleteRequestBodySize = 4 * 1024
)

// elevation source names
const (
	SourceRecorded   = "Recorded"
	SourcePointCloud = "PointCloud"
	SourceRaster     = "Raster"
	SourceFused      = "Fused"
)

// analysis constants
const (
	// EarthRadiusMeters is the mean earth radius used for great-circle distances.
	EarthRadiusMeters = 6371000.0

	// MinHillProminence filters peak/valley candidates: an extremum counts as a
	// rolling hill only if the smaller of its two neighbour deltas reaches this
	// value. Rejects GPS and sensor noise.
	MinHillProminence = 3.0 // meters

	// MinSignificantChange is the looser threshold feeding the average hill size
	// of the rolling-hills index. Deliberately distinct from MinHillProminence:
	// the index rewards frequency and amplitude at different granularities.
	MinSignificantChange = 1.0 // meters

	// TypicalHillSize normalizes the amplitude term of the rolling-hills index.
	TypicalHillSize = 20.0 // meters

	// FuseDistanceTolerance is the maximum gap between a unified distance value
	// and a source's closest sample for that source to contribute.
	FuseDistanceTolerance = 0.01 // kilometers

	// DefaultSearchRadius bounds the point-cloud nearest-neighbour query.
	DefaultSearchRadius = 2.0 // meters

	// GroundClassification is the ASPRS classification code for bare terrain.
	GroundClassification = 2

	// RasterWindowMargin widens the bounding window read from each tile so that
	// nearest-cell lookups at the window edge stay inside the buffer.
	RasterWindowMargin = 2 // cells
)

// analysis failure modes
var (
	// ErrInvalidCoordinate reports a malformed input position (NaN or outside
	// the valid lon/lat range). Fails the whole request.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrInsufficientData reports a trail with fewer than 2 points; distance
	// and slope are undefined. Fails the whole request.
	ErrInsufficientData = errors.New("insufficient trail data, at least 2 points required")

	// ErrNoElevationData reports that every elevation source came back
	// unavailable. Distinguishable from a partial result.
	ErrNoElevationData = errors.New("no elevation source available")
)

// ErrorObject represents error details.
type ErrorObject struct {
	Code   string
	Title  string
	Detail string
}

// --------------------------------------------------------------------------------
// Core data model.
// --------------------------------------------------------------------------------

// TrailPoint represents one recorded trail position. Elevation is NaN when the
// recording carried no elevation. The trail sequence is owned by the caller and
// never mutated during analysis.
type TrailPoint struct {
	Latitude  float64
	Longitude float64
	Elevation float64
	Timestamp time.Time
}

// ProjectedPoint represents a trail position in the planar projected system of
// the elevation archive, 1:1 with the trail point of the same index.
type ProjectedPoint struct {
	X float64
	Y float64
}

// Bounds represents a 2D bounding box in projected coordinates.
type Bounds struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Intersects reports 2D interval overlap on both axes (inclusive).
func (b Bounds) Intersects(o Bounds) bool {
	return b.MinX <= o.MaxX && b.MaxX >= o.MinX && b.MinY <= o.MaxY && b.MaxY >= o.MinY
}

// Area returns the box area; degenerate boxes yield 0.
func (b Bounds) Area() float64 {
	w := b.MaxX - b.MinX
	h := b.MaxY - b.MinY
	if w < 0 || h < 0 {
		return 0
	}
	return w * h
}

// SourceMeta carries source-specific details of one elevation source.
type SourceMeta struct {
	CoveragePercent     float64  // PointCloud: matched points / trail points
	TilesUsed           int      // Raster: tiles that yielded at least one sample
	ContributingSources []string // Fused: names of averaged sources
	SourceCount         int      // Fused: number of averaged sources
}

// ElevationSeries represents an elevation sequence with NaN placeholders for
// missing samples. JSON has no NaN, so the placeholders travel as null on the
// wire and come back as NaN when decoded.
type ElevationSeries []float64

// MarshalJSON encodes the series as a JSON array with null for every NaN.
func (s ElevationSeries) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	buffer := make([]byte, 0, len(s)*8+2)
	buffer = append(buffer, '[')
	for i, value := range s {
		if i > 0 {
			buffer = append(buffer, ',')
		}
		if math.IsNaN(value) {
			buffer = append(buffer, "null"...)
		} else {
			buffer = strconv.AppendFloat(buffer, value, 'g', -1, 64)
		}
	}
	return append(buffer, ']'), nil
}

// UnmarshalJSON decodes a JSON array, mapping null entries back to NaN.
func (s *ElevationSeries) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = nil
		return nil
	}
	series := make(ElevationSeries, len(raw))
	for i, value := range raw {
		if value == nil {
			series[i] = math.NaN()
		} else {
			series[i] = *value
		}
	}
	*s = series
	return nil
}

// SourceProfile represents one elevation source of a trail. When Available is
// true the three sequences have equal length; when false they are empty and
// Reason explains the failure. Missing single samples inside an available
// profile are NaN placeholders so indices stay aligned with the trail.
type SourceProfile struct {
	Name       string
	Available  bool
	Reason     string
	Elevations ElevationSeries // meters, NaN = missing
	Distances  []float64       // cumulative kilometers
	Slopes     []float64       // percent grade to the previous point, Slopes[0] = 0
	Meta       SourceMeta
}

// TerrainMetrics represents the raw terrain figures of one elevation source.
type TerrainMetrics struct {
	DistanceKm          float64
	ElevationGain       float64
	ElevationLoss       float64
	MinElevation        float64
	MaxElevation        float64
	RollingHillsIndex   float64
	RollingHillsCount   int
	TerrainVarietyScore float64
	MaxSlope            float64
	AvgSlope            float64
}

// DifficultyProfile represents the derived difficulty figures of a trail.
type DifficultyProfile struct {
	DifficultyScore    float64 // 0-10
	DifficultyLevel    string  // Easy | Moderate | Hard | Extreme
	TechnicalRating    float64 // 1-10
	EstimatedTimeHours float64
}

// TrailSegment summarizes one ~0.5 km stretch of a stored trail.
type TrailSegment struct {
	StartDistance   float64
	EndDistance     float64
	ElevationChange float64
	AvgSlope        float64
}

// TrailRecord represents a stored trail with its analyzed figures.
type TrailRecord struct {
	ID                  string
	Name                string
	StartLatitude       float64
	StartLongitude      float64
	DistanceKm          float64
	ElevationGain       float64
	ElevationLoss       float64
	MinElevation        float64
	MaxElevation        float64
	RollingHillsIndex   float64
	RollingHillsCount   int
	TerrainVarietyScore float64
	MaxSlope            float64
	AvgSlope            float64
	DifficultyScore     float64
	DifficultyLevel     string
	TechnicalRating     float64
	EstimatedTimeHours  float64
	Created             time.Time
}

// AnalysisResult represents the outcome of one trail analysis: every source
// that was attempted, plus metrics and difficulty derived from MetricsSource.
type AnalysisResult struct {
	Sources       map[string]SourceProfile
	Metrics       TerrainMetrics
	MetricsSource string
	Difficulty    DifficultyProfile
	Segments      []TrailSegment
}

// --------------------------------------------------------------------------------
// Request  : Client -> AnalyzeRequest  -> Service
// Response : Client <- AnalyzeResponse <- Service
// --------------------------------------------------------------------------------

// AnalyzeRequest represents GPX trail data for an analyze request.
type AnalyzeRequest struct {
	Type       string
	ID         string
	Attributes struct {
		GPXData        string  // Base64 encoded GPX XML string
		PointCloudFile string  // optional LAS file name inside the point cloud directory
		SearchRadius   float64 // optional, meters, 0 = default
	}
}

// AnalyzeResponse represents the multi-source analysis for an analyze response.
type AnalyzeResponse struct {
	Type       string
	ID         string
	Attributes struct {
		Sources       map[string]SourceProfile
		Metrics       TerrainMetrics
		MetricsSource string
		Difficulty    DifficultyProfile
		Segments      []TrailSegment
		IsError       bool
		Error         ErrorObject
	}
}

// --------------------------------------------------------------------------------
// Request  : Client -> TrailRequest  -> Service
// Response : Client <- TrailResponse <- Service
// --------------------------------------------------------------------------------

// TrailRequest represents a named GPX upload for a trail store request.
type TrailRequest struct {
	Type       string
	ID         string
	Attributes struct {
		Name           string
		GPXData        string // Base64 encoded GPX XML string
		PointCloudFile string
		Overwrite      bool
	}
}

// TrailResponse represents the stored trail for a trail store response.
type TrailResponse struct {
	Type       string
	ID         string
	Attributes struct {
		Trail   TrailRecord
		IsError bool
		Error   ErrorObject
	}
}

// --------------------------------------------------------------------------------
// Request  : Client -> SimilarRequest  -> Service
// Response : Client <- SimilarResponse <- Service
// --------------------------------------------------------------------------------

// SimilarRequest represents a similarity query against the stored trail pool.
type SimilarRequest struct {
	Type       string
	ID         string
	Attributes struct {
		TrailID string
		Limit   int
	}
}

// SimilarMatch represents one ranked similarity result.
type SimilarMatch struct {
	TrailID    string
	Name       string
	Similarity float64
}

// SimilarResponse represents the ranked matches for a similarity response.
type SimilarResponse struct {
	Type       string
	ID         string
	Attributes struct {
		Matches []SimilarMatch
		IsError bool
		Error   ErrorObject
	}
}

// --------------------------------------------------------------------------------
// Request  : Client -> TrailInfoRequest  -> Service
// Response : Client <- TrailInfoResponse <- Service
// --------------------------------------------------------------------------------

// TrailInfoRequest represents a lookup of one stored trail.
type TrailInfoRequest struct {
	Type       string
	ID         string
	Attributes struct {
		TrailID string
	}
}

// TrailInfoResponse represents a stored trail with derived descriptions.
type TrailInfoResponse struct {
	Type       string
	ID         string
	Attributes struct {
		Trail              TrailRecord
		WeatherExposure    WeatherExposure
		VarietyDescription string
		IsError            bool
		Error              ErrorObject
	}
}

// --------------------------------------------------------------------------------
// Request  : Client -> TrailListRequest  -> Service
// Response : Client <- TrailListResponse <- Service
// --------------------------------------------------------------------------------

// TrailListRequest represents a listing of all stored trails.
type TrailListRequest struct {
	Type string
	ID   string
}

// TrailListResponse represents all stored trails for a trail list response.
type TrailListResponse struct {
	Type       string
	ID         string
	Attributes struct {
		Trails  []TrailRecord
		IsError bool
		Error   ErrorObject
	}
}

// --------------------------------------------------------------------------------
// Request  : Client -> TrailDeleteRequest  -> Service
// Response : Client <- TrailDeleteResponse <- Service
// --------------------------------------------------------------------------------

// TrailDeleteRequest represents the deletion of one stored trail.
type TrailDeleteRequest struct {
	Type       string
	ID         string
	Attributes struct {
		TrailID string
	}
}

// TrailDeleteResponse represents the outcome of a trail delete request.
type TrailDeleteResponse struct {
	Type       string
	ID         string
	Attributes struct {
		TrailID string
		IsError bool
		Error   ErrorObject
	}
}

// WeatherExposure represents static weather risk derived from max elevation.
type WeatherExposure struct {
	ExposureLevel string
	RiskFactors   []string
}

// --------------------------------------------------------------------------------
// Helpers.
// --------------------------------------------------------------------------------

/*
FileExists checks if a file already exists.
It returns true if the file exists, and false otherwise.
*/
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		// not-exist, permission errors and the like all mean unusable
		return false
	}
	// check if it's actually a file and not a directory
	return !info.IsDir()
}

/*
unavailableSource builds the unavailable variant of an elevation source: empty
sequences plus a reason. Callers must check Available before touching the
sequences.
*/
func unavailableSource(name, reason string) SourceProfile {
	return SourceProfile{Name: name, Available: false, Reason: reason}
}

/*
greatCircleDistance calculates the great-circle distance in meters between two
geographic positions. Downstream consumers expect geodesic distances, so
cumulative distances and slopes are always derived from the geographic points,
never from the projected ones.
*/
func greatCircleDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

/*
clamp limits value to the inclusive range [lower, upper].
*/
func clamp(value, lower, upper float64) float64 {
	return math.Max(lower, math.Min(upper, value))
}

/*
trailBounds computes the projected bounding box over a set of projected points.
*/
func trailBounds(points []ProjectedPoint) Bounds {
	bounds := Bounds{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, p := range points {
		bounds.MinX = math.Min(bounds.MinX, p.X)
		bounds.MinY = math.Min(bounds.MinY, p.Y)
		bounds.MaxX = math.Max(bounds.MaxX, p.X)
		bounds.MaxY = math.Max(bounds.MaxY, p.Y)
	}
	return bounds
}
