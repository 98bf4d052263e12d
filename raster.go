package main

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/airbusgeo/godal"
)

// rasterWindow holds the minimal bounding window read from one candidate tile.
// Only this window is ever read from the file, so memory and I/O stay bounded
// by the trail extent, not the archive size.
type rasterWindow struct {
	tile      TileRecord
	gt        [6]float64
	col0      int
	row0      int
	width     int
	height    int
	values    []float64
	nodata    float64
	hasNodata bool
}

/*
sampleRasterSource samples elevation at every projected trail point from the
candidate tiles. Each tile contributes one windowed read covering the trail
bounding box plus a small margin. Points outside all windows (or hitting
nodata) stay NaN placeholders so the sequence stays aligned with the trail;
they are excluded from downstream gain/loss accumulation. When several tiles
cover the same point the tile with the smaller bounding box wins (assumed
higher resolution), ties go to the most recently indexed tile. Unreadable
tiles are logged and skipped; the source is unavailable only if no tile
yields a single valid sample.
*/
func sampleRasterSource(projected []ProjectedPoint, distances []float64, tiles []TileRecord) SourceProfile {
	if len(tiles) == 0 {
		return unavailableSource(SourceRaster, "no tiles intersect the trail bounding box")
	}

	bounds := trailBounds(projected)

	var windows []rasterWindow
	for _, tile := range tiles {
		window, err := readTileWindow(tile, bounds)
		if err != nil {
			slog.Warn("skipping unreadable tile during raster sampling", "path", tile.Path, "error", err)
			continue
		}
		if window != nil {
			windows = append(windows, *window)
		}
	}
	if len(windows) == 0 {
		return unavailableSource(SourceRaster, "all candidate tiles were unreadable or outside the trail window")
	}

	elevations := make([]float64, len(projected))
	tilesUsed := make(map[string]bool)
	validSamples := 0

	for i, point := range projected {
		elevations[i] = math.NaN()

		// pick the preferred window among those whose read area contains the point
		bestWindow := -1
		for w := range windows {
			value, ok := windows[w].valueAt(point)
			if !ok || math.IsNaN(value) {
				continue
			}
			if bestWindow < 0 || preferTile(windows[w].tile, windows[bestWindow].tile) {
				bestWindow = w
			}
		}
		if bestWindow >= 0 {
			value, _ := windows[bestWindow].valueAt(point)
			elevations[i] = value
			tilesUsed[windows[bestWindow].tile.Path] = true
			validSamples++
		}
	}

	if validSamples == 0 {
		return unavailableSource(SourceRaster, "no tile yielded a valid elevation sample for this trail")
	}

	return SourceProfile{
		Name:       SourceRaster,
		Available:  true,
		Elevations: elevations,
		Distances:  distances,
		Slopes:     computeSlopes(elevations, distances),
		Meta:       SourceMeta{TilesUsed: len(tilesUsed)},
	}
}

/*
preferTile reports whether candidate should win over current when both cover a
point: smaller bounding box first (assumed higher resolution), then the more
recently indexed tile.
*/
func preferTile(candidate, current TileRecord) bool {
	candidateArea := candidate.Bounds.Area()
	currentArea := current.Bounds.Area()
	if candidateArea != currentArea {
		return candidateArea < currentArea
	}
	return candidate.Order > current.Order
}

/*
readTileWindow opens one tile and reads the minimal cell window covering the
intersection of the trail bounding box (plus margin) with the tile. Returns
nil without error when the intersection is empty.
*/
func readTileWindow(tile TileRecord, bounds Bounds) (*rasterWindow, error) {
	if !FileExists(tile.Path) {
		return nil, fmt.Errorf("file [%s] does not exist", tile.Path)
	}

	dataset, err := godal.Open(tile.Path)
	if err != nil {
		return nil, fmt.Errorf("error opening file [%s]: %w", tile.Path, err)
	}
	defer dataset.Close()

	gt, err := dataset.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("error getting geotransform from [%s]: %w", tile.Path, err)
	}

	// basic check for rotation / skewing (this implementation assumes a north-up image)
	if gt[2] != 0.0 || gt[4] != 0.0 {
		return nil, fmt.Errorf("raster [%s] appears to be rotated or skewed (gt[2]=%f, gt[4]=%f)", tile.Path, gt[2], gt[4])
	}
	if gt[1] == 0 || gt[5] == 0 {
		return nil, fmt.Errorf("invalid geotransform: pixel width (gt[1]=%f) or height (gt[5]=%f) is zero", gt[1], gt[5])
	}

	structure := dataset.Structure()
	rasterWidth := structure.SizeX
	rasterHeight := structure.SizeY

	// map the trail bounding box corners into cell coordinates
	// col = (x - gt[0]) / gt[1], row = (y - gt[3]) / gt[5] (gt[5] negative)
	colA := (bounds.MinX - gt[0]) / gt[1]
	colB := (bounds.MaxX - gt[0]) / gt[1]
	rowA := (bounds.MinY - gt[3]) / gt[5]
	rowB := (bounds.MaxY - gt[3]) / gt[5]

	col0 := int(math.Floor(math.Min(colA, colB))) - RasterWindowMargin
	col1 := int(math.Ceil(math.Max(colA, colB))) + RasterWindowMargin
	row0 := int(math.Floor(math.Min(rowA, rowB))) - RasterWindowMargin
	row1 := int(math.Ceil(math.Max(rowA, rowB))) + RasterWindowMargin

	// clamp the window to the raster extent
	col0 = max(col0, 0)
	row0 = max(row0, 0)
	col1 = min(col1, rasterWidth)
	row1 = min(row1, rasterHeight)

	width := col1 - col0
	height := row1 - row0
	if width <= 0 || height <= 0 {
		// trail window does not touch this tile
		return nil, nil
	}

	bands := dataset.Bands()
	if len(bands) == 0 {
		return nil, fmt.Errorf("no raster bands found in file [%s]", tile.Path)
	}
	band := bands[0]

	// read the window in one call; GDAL converts the band type to float64
	values := make([]float64, width*height)
	if err = band.Read(col0, row0, values, width, height); err != nil {
		return nil, fmt.Errorf("error reading window (%d, %d, %dx%d) from [%s]: %w", col0, row0, width, height, tile.Path, err)
	}

	window := &rasterWindow{
		tile:   tile,
		gt:     gt,
		col0:   col0,
		row0:   row0,
		width:  width,
		height: height,
		values: values,
	}
	if nodata, ok := band.NoData(); ok {
		window.nodata = nodata
		window.hasNodata = true
	}

	return window, nil
}

/*
valueAt returns the elevation of the cell enclosing the projected point
(nearest-cell sampling) and whether the point falls inside the window.
Nodata cells report NaN.
*/
func (w *rasterWindow) valueAt(point ProjectedPoint) (float64, bool) {
	col := int(math.Floor((point.X-w.gt[0])/w.gt[1])) - w.col0
	row := int(math.Floor((point.Y-w.gt[3])/w.gt[5])) - w.row0
	if col < 0 || col >= w.width || row < 0 || row >= w.height {
		return 0, false
	}

	value := w.values[row*w.width+col]
	if w.hasNodata && value == w.nodata {
		return math.NaN(), true
	}
	// -9999 style markers on tiles without a declared nodata value
	if value < -9998.9 {
		return math.NaN(), true
	}
	return value, true
}
