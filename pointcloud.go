package main

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/dhconnelly/rtreego"
)

// groundPoint is one indexed point-cloud sample; Bounds implements
// rtreego.Spatial over the projected (x, y) position.
type groundPoint struct {
	x float64
	y float64
	z float64
}

func (p *groundPoint) Bounds() rtreego.Rect {
	return rtreego.Point{p.x, p.y}.ToRect(0.001)
}

// PointCloudIndex represents the 2D spatial index over the ground-classified
// points of one LAS file. Readonly after construction, safe for concurrent
// queries.
type PointCloudIndex struct {
	Path         string
	TotalPoints  int
	GroundPoints int
	tree         *rtreego.Rtree
}

/*
buildPointCloudIndex reads a LAS file, keeps the ground-classified points and
builds the spatial index over their projected positions. Files without any
ground classification fall back to indexing all points, the way unclassified
survey exports usually have to be handled.
*/
func buildPointCloudIndex(path string) (*PointCloudIndex, error) {
	_, points, err := readLASPoints(path)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("point cloud [%s] contains no points", path)
	}

	ground := make([]lasPoint, 0, len(points))
	for _, p := range points {
		if p.Classification == GroundClassification {
			ground = append(ground, p)
		}
	}
	if len(ground) == 0 {
		slog.Warn("point cloud has no ground-classified points, indexing all points", "path", path, "points", len(points))
		ground = points
	}

	tree := rtreego.NewTree(2, 25, 50)
	for i := range ground {
		tree.Insert(&groundPoint{x: ground[i].X, y: ground[i].Y, z: ground[i].Z})
	}

	index := &PointCloudIndex{
		Path:         path,
		TotalPoints:  len(points),
		GroundPoints: len(ground),
		tree:         tree,
	}

	slog.Info("point cloud index built", "path", path, "points", len(points), "ground points", len(ground))
	return index, nil
}

/*
NearestElevation returns the elevation of the nearest indexed point within
radius meters of the projected position, and whether one was found.
*/
func (idx *PointCloudIndex) NearestElevation(point ProjectedPoint, radius float64) (float64, bool) {
	nearest := idx.tree.NearestNeighbor(rtreego.Point{point.X, point.Y})
	if nearest == nil {
		return 0, false
	}
	gp := nearest.(*groundPoint)
	dx := gp.x - point.X
	dy := gp.y - point.Y
	if math.Sqrt(dx*dx+dy*dy) > radius {
		return 0, false
	}
	return gp.z, true
}

// PointCloudCache memoizes point-cloud indexes by file path. Indexes are built
// lazily on the first query against a file and kept for the process lifetime.
// A per-entry once guards the build, so concurrent requests for the same file
// block on one build instead of rebuilding redundantly; a global lock is only
// held for the map lookup.
type PointCloudCache struct {
	mutex   sync.Mutex
	entries map[string]*pointCloudCacheEntry
}

type pointCloudCacheEntry struct {
	once  sync.Once
	index *PointCloudIndex
	err   error
}

// NewPointCloudCache creates an empty index cache.
func NewPointCloudCache() *PointCloudCache {
	return &PointCloudCache{entries: make(map[string]*pointCloudCacheEntry)}
}

/*
Index returns the cached index for a file, building it on first use.
*/
func (c *PointCloudCache) Index(path string) (*PointCloudIndex, error) {
	c.mutex.Lock()
	entry, exists := c.entries[path]
	if !exists {
		entry = &pointCloudCacheEntry{}
		c.entries[path] = entry
	}
	c.mutex.Unlock()

	entry.once.Do(func() {
		entry.index, entry.err = buildPointCloudIndex(path)
	})
	return entry.index, entry.err
}

/*
samplePointCloudSource extracts an elevation profile from a LAS point cloud
along the trail: for every projected trail point the nearest ground point
within searchRadius supplies the elevation, otherwise the point stays a NaN
placeholder. Coverage is the share of matched points; below minCoverage the
source is reported unavailable rather than returning a profile full of holes.
A corrupt or missing file degrades to an unavailable source, never a fatal
error for the request.
*/
func samplePointCloudSource(projected []ProjectedPoint, distances []float64, cache *PointCloudCache,
	path string, searchRadius float64, minCoverage float64) SourceProfile {

	if path == "" {
		return unavailableSource(SourcePointCloud, "no point cloud file supplied for this trail")
	}
	if searchRadius <= 0 {
		searchRadius = DefaultSearchRadius
	}

	index, err := cache.Index(path)
	if err != nil {
		slog.Warn("point cloud unreadable, source unavailable", "path", path, "error", err)
		return unavailableSource(SourcePointCloud, fmt.Sprintf("point cloud unreadable: %v", err))
	}

	elevations := make([]float64, len(projected))
	matched := 0
	for i, point := range projected {
		if elevation, ok := index.NearestElevation(point, searchRadius); ok {
			elevations[i] = elevation
			matched++
		} else {
			elevations[i] = math.NaN()
		}
	}

	coverage := 0.0
	if len(projected) > 0 {
		coverage = float64(matched) / float64(len(projected)) * 100.0
	}
	if coverage < minCoverage {
		return unavailableSource(SourcePointCloud,
			fmt.Sprintf("point cloud coverage %.1f%% below minimum %.1f%% (%d of %d points matched within %.1f m)",
				coverage, minCoverage, matched, len(projected), searchRadius))
	}

	return SourceProfile{
		Name:       SourcePointCloud,
		Available:  true,
		Elevations: elevations,
		Distances:  distances,
		Slopes:     computeSlopes(elevations, distances),
		Meta:       SourceMeta{CoveragePercent: coverage},
	}
}
