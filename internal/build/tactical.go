package build

import (
	"log/slog"

	"github.com/paulmach/orb"

	"tile-planner/internal/graph"
)

// Waypoint is a tactical point of interest. Positive benefits attract routes
// planned with the tactical heuristic, negative ones repel them.
type Waypoint struct {
	Position orb.Point
	Benefit  float64
}

// applyWaypoints adds each waypoint's benefit to the tile holding it and returns
// how many landed on a walkable tile.
func applyWaypoints(tiles *graph.LevelGraph, waypoints []Waypoint) int {
	applied := 0
	for _, wp := range waypoints {
		n := tiles.Node(graph.CellOf(wp.Position).Center())
		if n == nil {
			slog.Debug("tactical waypoint on blocked tile", "position", wp.Position, "benefit", wp.Benefit)
			continue
		}
		n.TacticalBenefit += wp.Benefit
		applied++
	}
	return applied
}
