// Package world loads world files: the terrain, the region layout and the
// tactical waypoints a hierarchy is built from.
package world

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"tile-planner/internal/build"
	"tile-planner/internal/graph"
)

// ErrNoTerrain is returned when a world file describes no tiles.
var ErrNoTerrain = errors.New("world has no terrain")

// File is the YAML layout of a world file. Tile rows, drawn or numeric, list the
// top row first.
type File struct {
	Origin        [2]int     `yaml:"origin"`
	WalkableTiles []int      `yaml:"walkable_tiles"`
	ASCII         []string   `yaml:"ascii"`
	Tiles         [][]int    `yaml:"tiles"`
	Levels        []Level    `yaml:"levels"`
	Tactical      []Tactical `yaml:"tactical"`
	AutoLayout    *Auto      `yaml:"auto_layout"`

	// GeoJSON side files, relative to the world file.
	RegionsGeoJSON   string `yaml:"regions_geojson"`
	ObstaclesGeoJSON string `yaml:"obstacles_geojson"`
	WaypointsGeoJSON string `yaml:"waypoints_geojson"`
}

// Level lists the regions of one level above the tiles.
type Level struct {
	Regions []Region `yaml:"regions"`
}

// Region is a rectangle; Center defaults to the middle of the rectangle.
type Region struct {
	Min    orb.Point  `yaml:"min"`
	Max    orb.Point  `yaml:"max"`
	Center *orb.Point `yaml:"center"`
}

// Tactical assigns one benefit to a group of points.
type Tactical struct {
	Benefit float64     `yaml:"benefit"`
	Points  []orb.Point `yaml:"points"`
}

// Auto generates a square block layout when no regions are given.
type Auto struct {
	Levels    int `yaml:"levels"`
	BlockSize int `yaml:"block_size"`
}

// World is a resolved world file, ready to build.
type World struct {
	Terrain   build.Terrain
	Layout    build.Layout
	Waypoints []build.Waypoint
	Obstacles int
	Source    string
}

// Load reads and resolves the world file at path.
func Load(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading world %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing world %s: %w", path, err)
	}

	w, err := f.Resolve(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("world %s: %w", path, err)
	}
	w.Source = path

	slog.Info("world loaded",
		"path", path,
		"levels", w.Layout.Levels()+1,
		"obstacles", w.Obstacles,
		"waypoints", len(w.Waypoints))
	return w, nil
}

// Resolve turns f into a World, reading GeoJSON side files relative to dir.
func (f *File) Resolve(dir string) (*World, error) {
	origin := graph.Cell{X: f.Origin[0], Y: f.Origin[1]}

	var tm *build.TileMap
	switch {
	case len(f.ASCII) > 0 && len(f.Tiles) > 0:
		return nil, errors.New("both ascii and tiles are set")
	case len(f.ASCII) > 0:
		tm = build.ParseASCII(origin, f.ASCII...)
	case len(f.Tiles) > 0:
		rows := make([][]int, len(f.Tiles))
		for i, row := range f.Tiles {
			rows[len(f.Tiles)-1-i] = row
		}
		tm = build.NewTileMap(origin, rows, f.WalkableTiles)
	default:
		return nil, ErrNoTerrain
	}

	w := &World{Terrain: tm}

	if f.ObstaclesGeoJSON != "" {
		polygons, err := LoadObstacles(resolvePath(dir, f.ObstaclesGeoJSON))
		if err != nil {
			return nil, err
		}
		w.Terrain = build.WithObstacles(tm, polygons)
		w.Obstacles = len(polygons)
	}

	for i, level := range f.Levels {
		for _, r := range level.Regions {
			w.Layout = addRegion(w.Layout, i+1, r.region())
		}
	}
	if f.RegionsGeoJSON != "" {
		regions, err := LoadRegions(resolvePath(dir, f.RegionsGeoJSON))
		if err != nil {
			return nil, err
		}
		for i, level := range regions {
			for _, r := range level {
				w.Layout = addRegion(w.Layout, i+1, r)
			}
		}
	}
	if f.AutoLayout != nil {
		if w.Layout.Levels() > 0 {
			slog.Warn("auto_layout ignored, regions are given explicitly")
		} else {
			w.Layout = build.GridLayout(w.Terrain.Bounds(), f.AutoLayout.BlockSize, f.AutoLayout.Levels)
		}
	}

	for _, t := range f.Tactical {
		for _, p := range t.Points {
			w.Waypoints = append(w.Waypoints, build.Waypoint{Position: p, Benefit: t.Benefit})
		}
	}
	if f.WaypointsGeoJSON != "" {
		waypoints, err := LoadWaypoints(resolvePath(dir, f.WaypointsGeoJSON))
		if err != nil {
			return nil, err
		}
		w.Waypoints = append(w.Waypoints, waypoints...)
	}

	return w, nil
}

// Build creates the hierarchy of w. The world's waypoints are added to opts.
func (w *World) Build(opts build.Options) (*graph.Hierarchy, error) {
	opts.Waypoints = append(append([]build.Waypoint(nil), opts.Waypoints...), w.Waypoints...)
	return build.Build(w.Terrain, w.Layout, opts)
}

// BuildTimed is Build returning the elapsed time as well.
func (w *World) BuildTimed(opts build.Options) (*graph.Hierarchy, time.Duration, error) {
	start := time.Now()
	h, err := w.Build(opts)
	return h, time.Since(start), err
}

func (r Region) region() build.Region {
	b := orb.Bound{Min: r.Min, Max: r.Max}
	if r.Center == nil {
		return build.NewRegion(b)
	}
	return build.Region{Bounds: b, Center: *r.Center}
}

// addRegion appends r to level, growing the layout as needed.
func addRegion(l build.Layout, level int, r build.Region) build.Layout {
	for len(l) < level {
		l = append(l, nil)
	}
	l[level-1] = append(l[level-1], r)
	return l
}

func resolvePath(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
