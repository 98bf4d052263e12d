package main

import (
	"encoding/csv"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/airbusgeo/godal"
)

// TileRecord represents meta data about one raster tile of the archive.
type TileRecord struct {
	Path       string // path and file name (e.g. /data/dem/sw_502000_6957000_1k.tif)
	Bounds     Bounds // bounding box in the projected CRS of the archive
	Resolution float64
	Order      int // indexing order, higher = indexed later
}

// TileCatalog represents the catalog of all archive tiles. It is built once at
// startup, readonly afterwards, and passed as an explicit dependency into every
// analysis. Safe for concurrent use without locking.
type TileCatalog struct {
	tiles []TileRecord
}

/*
buildTileCatalog builds the tile catalog by scanning the configured raster
repositories for GeoTIFF tiles. For each tile the projected bounding box and
resolution are taken from the dataset geotransform; only metadata is read, the
raster bands stay closed until sampling. Unreadable tiles are logged and
skipped so a single corrupt file cannot prevent startup.
*/
func buildTileCatalog(rasterRepositories []string) (*TileCatalog, error) {
	catalog := &TileCatalog{}

	for _, repository := range rasterRepositories {
		numberOfTiles := 0
		err := filepath.WalkDir(repository, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if entry.IsDir() {
				return nil
			}
			name := strings.ToLower(entry.Name())
			if !strings.HasSuffix(name, ".tif") && !strings.HasSuffix(name, ".tiff") {
				return nil
			}

			record, recordErr := buildTileRecord(path, len(catalog.tiles))
			if recordErr != nil {
				slog.Warn("skipping unreadable tile while building catalog", "path", path, "error", recordErr)
				return nil
			}
			catalog.tiles = append(catalog.tiles, record)
			numberOfTiles++
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("building tile catalog: error [%w] at filepath.WalkDir(), repository %s", err, repository)
		}
		slog.Info("processed raster repository", "repository", repository, "tiles", numberOfTiles)
	}

	slog.Info("tile catalog successfully built", "entries", len(catalog.tiles))
	return catalog, nil
}

/*
buildTileRecord reads projected bounds and resolution from one GeoTIFF tile.
*/
func buildTileRecord(path string, order int) (TileRecord, error) {
	dataset, err := godal.Open(path)
	if err != nil {
		return TileRecord{}, fmt.Errorf("error [%w] at godal.Open(), file %s", err, path)
	}
	defer dataset.Close()

	gt, err := dataset.GeoTransform()
	if err != nil {
		return TileRecord{}, fmt.Errorf("error [%w] at dataset.GeoTransform()", err)
	}

	// gt[2] and gt[4] should be 0 for a standard non-rotated/non-skewed grid
	if gt[2] != 0.0 || gt[4] != 0.0 {
		return TileRecord{}, fmt.Errorf("raster [%s] appears to be rotated or skewed (gt[2]=%f, gt[4]=%f)", path, gt[2], gt[4])
	}

	structure := dataset.Structure()
	sizeX := float64(structure.SizeX)
	sizeY := float64(structure.SizeY)

	// upper-left corner is (gt[0], gt[3]); pixel height gt[5] is usually negative
	x1 := gt[0]
	x2 := gt[0] + sizeX*gt[1]
	y1 := gt[3]
	y2 := gt[3] + sizeY*gt[5]

	bounds := Bounds{
		MinX: min(x1, x2),
		MaxX: max(x1, x2),
		MinY: min(y1, y2),
		MaxY: max(y1, y2),
	}

	return TileRecord{
		Path:       path,
		Bounds:     bounds,
		Resolution: gt[1],
		Order:      order,
	}, nil
}

/*
TilesIntersecting returns all tiles whose bounding box overlaps the given
projected bounding box (inclusive interval overlap on both axes). An empty
result is a normal outcome, not an error: the raster source is then reported
unavailable for that trail.
*/
func (c *TileCatalog) TilesIntersecting(bounds Bounds) []TileRecord {
	var selected []TileRecord
	for _, tile := range c.tiles {
		if tile.Bounds.Intersects(bounds) {
			selected = append(selected, tile)
		}
	}
	return selected
}

// Size returns the number of indexed tiles.
func (c *TileCatalog) Size() int {
	return len(c.tiles)
}

/*
saveTileCatalog saves the catalog as sorted csv file next to the service for
operator inspection.
*/
func saveTileCatalog(catalog *TileCatalog) error {
	tiles := make([]TileRecord, len(catalog.tiles))
	copy(tiles, catalog.tiles)
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].Path < tiles[j].Path })

	// open csv file
	filename := "tilecatalog.csv"
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("error [%v] at os.Create()", err)
	}
	defer file.Close()

	// create csv writer
	writer := csv.NewWriter(file)
	defer writer.Flush()

	// write header
	header := []string{"Path", "MinX", "MinY", "MaxX", "MaxY", "Resolution"}
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("error [%v] at writer.Write()", err)
	}

	for _, tile := range tiles {
		row := []string{
			tile.Path,
			fmt.Sprintf("%.3f", tile.Bounds.MinX),
			fmt.Sprintf("%.3f", tile.Bounds.MinY),
			fmt.Sprintf("%.3f", tile.Bounds.MaxX),
			fmt.Sprintf("%.3f", tile.Bounds.MaxY),
			fmt.Sprintf("%.3f", tile.Resolution),
		}
		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("error [%v] at writer.Write()", err)
		}
	}

	err = writer.Error()
	if err != nil {
		return fmt.Errorf("error [%v] at writer.Error()", err)
	}

	return nil
}
