// Package planner answers route queries over a hierarchy by searching the
// coarsest level that separates the endpoints and refining each coarse hop.
package planner

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"

	"tile-planner/internal/graph"
	"tile-planner/internal/metrics"
	"tile-planner/internal/search"
)

// ErrNoPath is returned when no route joins the two positions. It is an ordinary
// query outcome.
var ErrNoPath = errors.New("no path")

// Options configure a Planner.
type Options struct {
	Heuristic      search.Kind
	TacticalWeight float64
	// GridFallback answers with a direct tile search if refining a coarse route
	// ever fails although both endpoints share a component.
	GridFallback bool
}

// Planner runs route queries against one immutable hierarchy. It is safe for
// concurrent use.
type Planner struct {
	h         *graph.Hierarchy
	heuristic func(goal *graph.Node) search.Heuristic
	opts      Options
}

// New returns a planner over h.
func New(h *graph.Hierarchy, opts Options) *Planner {
	return &Planner{
		h:         h,
		heuristic: opts.Heuristic.Factory(opts.TacticalWeight),
		opts:      opts,
	}
}

// Hierarchy returns the graph the planner searches.
func (p *Planner) Hierarchy() *graph.Hierarchy {
	return p.h
}

// queryStats accumulates search effort over one query.
type queryStats struct {
	expanded int
	searches int
}

// FindPath returns the route from the cell of start to the cell of end. Two
// positions in the same cell yield an empty route.
func (p *Planner) FindPath(start, end orb.Point) (Route, error) {
	began := time.Now()
	var st queryStats

	route, err := p.findPath(start, end, &st)

	outcome := metrics.OutcomeFound
	switch {
	case err != nil:
		outcome = metrics.OutcomeNoPath
	case route.Fallback:
		outcome = metrics.OutcomeFallback
	case len(route.Connections) == 0:
		outcome = metrics.OutcomeEmpty
	}
	metrics.RecordQuery(outcome, time.Since(began), st.expanded)

	route.Expanded = st.expanded
	route.Searches = st.searches
	return route, err
}

func (p *Planner) findPath(startPos, endPos orb.Point, st *queryStats) (Route, error) {
	route := Route{Start: graph.CellOf(startPos).Center()}
	if graph.CellOf(startPos) == graph.CellOf(endPos) {
		return route, nil
	}

	from, to := p.h.Cell(startPos), p.h.Cell(endPos)
	if from == nil {
		return route, fmt.Errorf("%w: start %v is not walkable", ErrNoPath, startPos)
	}
	if to == nil {
		return route, fmt.Errorf("%w: end %v is not walkable", ErrNoPath, endPos)
	}
	if !p.h.SameComponent(from, to) {
		return route, fmt.Errorf("%w: %s and %s are not connected", ErrNoPath, from, to)
	}

	conns, level, err := p.query(from, to, p.h.Height()-1, st)
	if err != nil {
		if !p.opts.GridFallback || level == 0 {
			return route, err
		}
		slog.Debug("refinement failed, searching tiles", "from", from, "to", to, "level", level, "err", err)
		res, gridErr := search.AStar(p.h.Level(0), from, to, p.heuristic(to))
		st.expanded += res.Expanded
		st.searches++
		if gridErr != nil {
			return route, fmt.Errorf("%w: %w", ErrNoPath, gridErr)
		}
		conns = res.Path
		route.Fallback = true
	}

	route.Connections = conns
	route.Waypoints = waypoints(conns)
	route.Cost = graph.PathCost(conns)
	route.Level = level
	return route, nil
}

// query routes between two tiles using levels up to maxLevel. It returns the tile
// connections and the level the coarse search ran at.
func (p *Planner) query(from, to *graph.Node, maxLevel int, st *queryStats) ([]graph.Connection, int, error) {
	if from.Equal(to) {
		return nil, 0, nil
	}
	if !p.h.SameComponent(from, to) {
		return nil, 0, fmt.Errorf("%w: %s and %s are not connected", ErrNoPath, from, to)
	}

	// Climb while both ancestors exist and still differ.
	level, a, b := 0, from, to
	for level < maxLevel {
		pa, pb := p.h.Parent(a), p.h.Parent(b)
		if pa == nil || pb == nil {
			slog.Debug("missing parent link, searching lower level", "level", level, "from", a, "to", b)
			break
		}
		if pa.Equal(pb) {
			break
		}
		a, b, level = pa, pb, level+1
	}

	res, err := search.AStar(p.h.Level(level), a, b, p.heuristic(b))
	st.expanded += res.Expanded
	st.searches++
	if err != nil {
		if level > 0 {
			// Regions can be cut apart where tiles are joined only through cells
			// without a parent; the level below still sees those edges.
			slog.Debug("coarse search failed, descending", "level", level, "from", a, "to", b, "err", err)
			return p.query(from, to, level-1, st)
		}
		return nil, level, fmt.Errorf("%w: level %d search %s -> %s: %w", ErrNoPath, level, a, b, err)
	}
	if level == 0 {
		return res.Path, 0, nil
	}

	// Each coarse hop is refined towards a tile of the next region that the route
	// can reach; the last one ends at the real destination.
	var path []graph.Connection
	cur := from
	for i, hop := range res.Path {
		target := to
		if i < len(res.Path)-1 {
			if target = p.h.EntryTile(hop.To, cur); target == nil {
				slog.Debug("no reachable tile in region, skipping", "region", hop.To, "from", cur)
				continue
			}
		}
		sub, _, err := p.query(cur, target, level-1, st)
		if err != nil {
			return nil, level, fmt.Errorf("refining hop %s -> %s: %w", hop.From, hop.To, err)
		}
		path = append(path, sub...)
		cur = target
	}
	return path, level, nil
}

func waypoints(conns []graph.Connection) []orb.Point {
	if len(conns) == 0 {
		return nil
	}
	pts := make([]orb.Point, len(conns))
	for i, c := range conns {
		pts[i] = c.To.Center
	}
	return pts
}
