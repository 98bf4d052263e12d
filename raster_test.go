package main

import (
	"math"
	"testing"
)

func TestPreferTile(t *testing.T) {
	small := TileRecord{Path: "hires.tif", Bounds: Bounds{MinX: 0, MinY: 0, MaxX: 1000, MaxY: 1000}, Order: 1}
	large := TileRecord{Path: "lowres.tif", Bounds: Bounds{MinX: 0, MinY: 0, MaxX: 5000, MaxY: 5000}, Order: 2}

	if !preferTile(small, large) {
		t.Error("expected smaller tile to be preferred")
	}
	if preferTile(large, small) {
		t.Error("larger tile must not displace a smaller one")
	}

	// equal area, the more recently indexed tile wins
	older := TileRecord{Path: "a.tif", Bounds: Bounds{MinX: 0, MinY: 0, MaxX: 1000, MaxY: 1000}, Order: 1}
	newer := TileRecord{Path: "b.tif", Bounds: Bounds{MinX: 0, MinY: 0, MaxX: 1000, MaxY: 1000}, Order: 2}
	if !preferTile(newer, older) {
		t.Error("expected newer tile to win the area tie")
	}
	if preferTile(older, newer) {
		t.Error("older tile must not win the area tie")
	}
}

// testWindow builds a 3x3 window at origin (500000, 700000) with 1 m cells.
// Cell values are row*3+col.
func testWindow() rasterWindow {
	return rasterWindow{
		tile:   TileRecord{Path: "test.tif"},
		gt:     [6]float64{500000, 1, 0, 700000, 0, -1},
		col0:   0,
		row0:   0,
		width:  3,
		height: 3,
		values: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8},
	}
}

func TestRasterWindowValueAt(t *testing.T) {
	window := testWindow()

	// center of the top-left cell
	value, ok := window.valueAt(ProjectedPoint{X: 500000.5, Y: 699999.5})
	if !ok || value != 0 {
		t.Errorf("expected value 0 at top-left cell, got %f (ok=%v)", value, ok)
	}

	// center of the middle cell (row 1, col 1)
	value, ok = window.valueAt(ProjectedPoint{X: 500001.5, Y: 699998.5})
	if !ok || value != 4 {
		t.Errorf("expected value 4 at center cell, got %f (ok=%v)", value, ok)
	}

	// bottom-right cell
	value, ok = window.valueAt(ProjectedPoint{X: 500002.5, Y: 699997.5})
	if !ok || value != 8 {
		t.Errorf("expected value 8 at bottom-right cell, got %f (ok=%v)", value, ok)
	}

	// outside the window
	if _, ok := window.valueAt(ProjectedPoint{X: 500010, Y: 699999}); ok {
		t.Error("expected point outside window to miss")
	}
	if _, ok := window.valueAt(ProjectedPoint{X: 500001, Y: 700001}); ok {
		t.Error("expected point above window to miss")
	}
}

func TestRasterWindowNodata(t *testing.T) {
	window := testWindow()
	window.values[4] = -32768
	window.nodata = -32768
	window.hasNodata = true

	value, ok := window.valueAt(ProjectedPoint{X: 500001.5, Y: 699998.5})
	if !ok {
		t.Fatal("expected nodata cell to report a hit")
	}
	if !math.IsNaN(value) {
		t.Errorf("expected NaN for nodata cell, got %f", value)
	}

	// -9999 marker without declared nodata
	marker := testWindow()
	marker.values[0] = -9999
	value, ok = marker.valueAt(ProjectedPoint{X: 500000.5, Y: 699999.5})
	if !ok || !math.IsNaN(value) {
		t.Errorf("expected NaN for -9999 marker, got %f (ok=%v)", value, ok)
	}
}

func TestRasterWindowOffsetConsistency(t *testing.T) {
	// full 6x6 read, cell values row*6+col
	full := rasterWindow{
		tile:   TileRecord{Path: "test.tif"},
		gt:     [6]float64{500000, 1, 0, 700000, 0, -1},
		col0:   0,
		row0:   0,
		width:  6,
		height: 6,
		values: make([]float64, 36),
	}
	for row := 0; row < 6; row++ {
		for col := 0; col < 6; col++ {
			full.values[row*6+col] = float64(row*6 + col)
		}
	}

	// windowed read of the 3x3 sub-region starting at cell (2, 2); same
	// geotransform, offset origin, values copied from the full grid
	sub := rasterWindow{
		tile:   full.tile,
		gt:     full.gt,
		col0:   2,
		row0:   2,
		width:  3,
		height: 3,
		values: make([]float64, 9),
	}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			sub.values[row*3+col] = full.values[(row+2)*6+(col+2)]
		}
	}

	// every cell center of the sub-region must sample identically
	for row := 2; row < 5; row++ {
		for col := 2; col < 5; col++ {
			point := ProjectedPoint{X: 500000 + float64(col) + 0.5, Y: 700000 - float64(row) - 0.5}
			fullValue, fullOK := full.valueAt(point)
			subValue, subOK := sub.valueAt(point)
			if !fullOK || !subOK {
				t.Fatalf("cell (%d, %d): expected hits in both windows (full=%v, sub=%v)", row, col, fullOK, subOK)
			}
			if fullValue != subValue {
				t.Errorf("cell (%d, %d): full window %f, sub-window %f", row, col, fullValue, subValue)
			}
		}
	}

	// a point outside the sub-region must miss the sub-window but hit the full one
	outside := ProjectedPoint{X: 500000.5, Y: 699999.5}
	if _, ok := sub.valueAt(outside); ok {
		t.Error("expected point outside sub-window to miss")
	}
	if value, ok := full.valueAt(outside); !ok || value != 0 {
		t.Errorf("expected full window hit with value 0, got %f (ok=%v)", value, ok)
	}
}

func TestSampleRasterSourceNoTiles(t *testing.T) {
	projected := []ProjectedPoint{{X: 500000, Y: 700000}}
	source := sampleRasterSource(projected, []float64{0}, nil)
	if source.Available {
		t.Error("expected raster source unavailable without candidate tiles")
	}
	if source.Reason == "" {
		t.Error("expected a reason on the unavailable source")
	}
}
