package planner

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"

	"tile-planner/internal/graph"
)

// Route is the answer to one query. An empty route means start and end share a
// cell.
type Route struct {
	Start       orb.Point          `json:"start"`
	Connections []graph.Connection `json:"-"`
	// Waypoints are the tile centers to visit in order, Start excluded.
	Waypoints []orb.Point `json:"waypoints"`
	Cost      float64     `json:"cost"`
	// Level is the coarsest level searched; 0 means a direct tile search.
	Level    int  `json:"level"`
	Fallback bool `json:"fallback,omitempty"`
	Expanded int  `json:"expanded"`
	Searches int  `json:"searches"`
}

// Len returns the number of steps.
func (r Route) Len() int {
	return len(r.Connections)
}

// LineString returns Start followed by every waypoint.
func (r Route) LineString() orb.LineString {
	ls := make(orb.LineString, 0, len(r.Waypoints)+1)
	ls = append(ls, r.Start)
	return append(ls, r.Waypoints...)
}

// Corners returns the route with collinear waypoints removed: the points where
// a mover has to turn, plus both ends.
func (r Route) Corners() orb.LineString {
	ls := r.LineString()
	if len(ls) < 3 {
		return ls
	}
	return simplify.DouglasPeucker(0).Simplify(ls).(orb.LineString)
}
