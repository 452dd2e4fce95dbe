package build

import (
	"log/slog"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// pointTolerance is the half size of the query rectangle used for point queries.
const pointTolerance = 1e-9

// polygonEntry wraps an obstacle polygon for R-tree storage.
type polygonEntry struct {
	polygon orb.Polygon
	bbox    rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (p *polygonEntry) Bounds() rtreego.Rect {
	return p.bbox
}

// ObstacleIndex answers "is this point inside any obstacle" queries.
type ObstacleIndex struct {
	tree *rtreego.Rtree
	size int
}

// NewObstacleIndex indexes polygons by bounding box. Degenerate polygons and
// polygons lying inside another one cannot change a lookup and are skipped.
func NewObstacleIndex(polygons []orb.Polygon) *ObstacleIndex {
	tree := rtreego.NewTree(2, 25, 50)

	kept := dropContained(polygons)
	if dropped := len(polygons) - len(kept); dropped > 0 {
		slog.Debug("obstacles inside other obstacles", "dropped", dropped)
	}

	size := 0
	for _, polygon := range kept {
		bbox, err := boundRect(polygon.Bound())
		if err != nil {
			slog.Debug("skip degenerate obstacle", "bound", polygon.Bound(), "err", err)
			continue
		}
		tree.Insert(&polygonEntry{polygon: polygon, bbox: bbox})
		size++
	}

	return &ObstacleIndex{tree: tree, size: size}
}

// Len returns the number of indexed obstacles.
func (si *ObstacleIndex) Len() int {
	return si.size
}

// Blocked reports whether p lies inside any obstacle.
func (si *ObstacleIndex) Blocked(p orb.Point) bool {
	if si.size == 0 {
		return false
	}
	for _, item := range si.tree.SearchIntersect(pointRect(p)) {
		if planar.PolygonContains(item.(*polygonEntry).polygon, p) {
			return true
		}
	}
	return false
}

// dropContained removes polygons whose outer ring lies entirely inside another
// polygon. Of two identical polygons the later one is kept.
func dropContained(polygons []orb.Polygon) []orb.Polygon {
	if len(polygons) <= 1 {
		return polygons
	}

	contained := make([]bool, len(polygons))
	for i, a := range polygons {
		if len(a) == 0 {
			continue
		}
		ab := a.Bound()
		for j, b := range polygons {
			if i == j || contained[j] || len(b) == 0 {
				continue
			}
			bb := b.Bound()
			if !bb.Contains(ab.Min) || !bb.Contains(ab.Max) {
				continue
			}
			if ringInside(a[0], b) {
				contained[i] = true
				break
			}
		}
	}

	result := make([]orb.Polygon, 0, len(polygons))
	for i, p := range polygons {
		if !contained[i] {
			result = append(result, p)
		}
	}
	return result
}

func ringInside(r orb.Ring, p orb.Polygon) bool {
	for _, v := range r {
		if !planar.PolygonContains(p, v) {
			return false
		}
	}
	return true
}

// regionEntry stores a region's position in its layout level.
type regionEntry struct {
	order int
	bound orb.Bound
	bbox  rtreego.Rect
}

func (r *regionEntry) Bounds() rtreego.Rect {
	return r.bbox
}

// RegionIndex finds the regions of one layout level containing a point.
type RegionIndex struct {
	tree *rtreego.Rtree
}

// NewRegionIndex indexes regions, which must have a positive area.
func NewRegionIndex(regions []Region) (*RegionIndex, error) {
	tree := rtreego.NewTree(2, 25, 50)
	for i, r := range regions {
		bbox, err := boundRect(r.Bounds)
		if err != nil {
			return nil, err
		}
		tree.Insert(&regionEntry{order: i, bound: r.Bounds, bbox: bbox})
	}
	return &RegionIndex{tree: tree}, nil
}

// Containing returns the layout positions of the regions whose bounds contain p,
// boundaries included, in ascending order.
func (ri *RegionIndex) Containing(p orb.Point) []int {
	hits := ri.tree.SearchIntersect(pointRect(p))
	if len(hits) == 0 {
		return nil
	}
	found := make([]int, 0, len(hits))
	for _, item := range hits {
		entry := item.(*regionEntry)
		if entry.bound.Contains(p) {
			found = append(found, entry.order)
		}
	}
	sort.Ints(found)
	return found
}

func boundRect(b orb.Bound) (rtreego.Rect, error) {
	return rtreego.NewRect(
		rtreego.Point{b.Min[0], b.Min[1]},
		[]float64{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1]},
	)
}

func pointRect(p orb.Point) rtreego.Rect {
	return rtreego.Point{p[0], p[1]}.ToRect(pointTolerance)
}
