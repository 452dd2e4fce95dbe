package world

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"tile-planner/internal/build"
)

func readCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return fc, nil
}

// LoadRegions reads polygon features as regions. Each feature needs an integer
// "level" property of at least 1 and may set "center" to [x, y]; otherwise the
// region is centered on its bounding box.
func LoadRegions(path string) (build.Layout, error) {
	fc, err := readCollection(path)
	if err != nil {
		return nil, err
	}

	var layout build.Layout
	for i, f := range fc.Features {
		if _, ok := f.Geometry.(orb.Polygon); !ok {
			slog.Warn("skip non polygon region", "path", path, "feature", i, "type", geometryType(f.Geometry))
			continue
		}
		level, ok := number(f.Properties, "level")
		if !ok || level < 1 || level != float64(int(level)) {
			return nil, fmt.Errorf("%s: feature %d: %w: level must be an integer >= 1", path, i, build.ErrInvalidLayout)
		}

		r := build.NewRegion(f.Geometry.Bound())
		if c, ok := point(f.Properties, "center"); ok {
			r.Center = c
		}
		layout = addRegion(layout, int(level), r)
	}

	slog.Info("regions loaded", "path", path, "levels", layout.Levels())
	return layout, nil
}

// LoadObstacles reads every polygon and multipolygon feature.
func LoadObstacles(path string) ([]orb.Polygon, error) {
	fc, err := readCollection(path)
	if err != nil {
		return nil, err
	}

	var polygons []orb.Polygon
	for i, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			polygons = append(polygons, g)
		case orb.MultiPolygon:
			polygons = append(polygons, g...)
		default:
			slog.Warn("skip non polygon obstacle", "path", path, "feature", i, "type", geometryType(f.Geometry))
		}
	}

	slog.Info("obstacles loaded", "path", path, "polygons", len(polygons))
	return polygons, nil
}

// LoadWaypoints reads point features with a numeric "benefit" property.
func LoadWaypoints(path string) ([]build.Waypoint, error) {
	fc, err := readCollection(path)
	if err != nil {
		return nil, err
	}

	var waypoints []build.Waypoint
	for i, f := range fc.Features {
		var pts []orb.Point
		switch g := f.Geometry.(type) {
		case orb.Point:
			pts = []orb.Point{g}
		case orb.MultiPoint:
			pts = g
		default:
			slog.Warn("skip non point waypoint", "path", path, "feature", i, "type", geometryType(f.Geometry))
			continue
		}
		benefit, ok := number(f.Properties, "benefit")
		if !ok {
			return nil, fmt.Errorf("%s: feature %d has no numeric benefit", path, i)
		}
		for _, p := range pts {
			waypoints = append(waypoints, build.Waypoint{Position: p, Benefit: benefit})
		}
	}
	return waypoints, nil
}

func number(props geojson.Properties, key string) (float64, bool) {
	v, ok := props[key].(float64)
	return v, ok
}

func point(props geojson.Properties, key string) (orb.Point, bool) {
	raw, ok := props[key].([]interface{})
	if !ok || len(raw) != 2 {
		return orb.Point{}, false
	}
	x, okX := raw[0].(float64)
	y, okY := raw[1].(float64)
	return orb.Point{x, y}, okX && okY
}

func geometryType(g orb.Geometry) string {
	if g == nil {
		return "none"
	}
	return g.GeoJSONType()
}
