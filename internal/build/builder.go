package build

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"tile-planner/internal/graph"
)

// ErrEmptyTerrain is returned when the terrain has no walkable cell to build from.
var ErrEmptyTerrain = errors.New("terrain has no walkable cells")

// CostModel selects how the cost of a region connection is aggregated.
type CostModel string

const (
	// CostChildren averages the Manhattan distance over every pair of children
	// of the two regions.
	CostChildren CostModel = "children"
	// CostLinked averages only over child pairs joined by a lower connection.
	CostLinked CostModel = "linked"
)

// ParseCostModel maps a name to a CostModel. The empty string selects CostChildren.
func ParseCostModel(name string) (CostModel, error) {
	switch m := CostModel(name); m {
	case "":
		return CostChildren, nil
	case CostChildren, CostLinked:
		return m, nil
	default:
		return "", fmt.Errorf("unknown cost model %q", name)
	}
}

// Options tune hierarchy construction.
type Options struct {
	// Diagonal adds 8-neighbour tile edges costing sqrt(2). A diagonal step is only
	// added when both orthogonal cells it cuts past are walkable.
	Diagonal  bool
	CostModel CostModel
	Waypoints []Waypoint
}

// Build creates the tile level from terrain and one region level per layout entry.
func Build(terrain Terrain, layout Layout, opts Options) (*graph.Hierarchy, error) {
	start := time.Now()

	if err := layout.Validate(); err != nil {
		return nil, err
	}
	model := opts.CostModel
	if model == "" {
		model = CostChildren
	}

	tiles, err := BuildTiles(terrain, opts.Diagonal)
	if err != nil {
		return nil, err
	}
	if len(opts.Waypoints) > 0 {
		applied := applyWaypoints(tiles, opts.Waypoints)
		slog.Info("tactical waypoints applied", "applied", applied, "total", len(opts.Waypoints))
	}

	h := graph.NewHierarchy(tiles)
	for i, regions := range layout {
		if err := contract(h, i+1, regions, model); err != nil {
			return nil, fmt.Errorf("building level %d: %w", i+1, err)
		}
	}

	components := h.LabelComponents()
	slog.Info("hierarchy built",
		"levels", h.Height(),
		"tiles", tiles.Len(),
		"components", components,
		"cost_model", string(model),
		"elapsed", time.Since(start))
	return h, nil
}

// BuildTiles creates level 0: one node per walkable cell of the terrain extent,
// joined to its walkable neighbours by symmetric edges.
func BuildTiles(terrain Terrain, diagonal bool) (*graph.LevelGraph, error) {
	minX, minY, maxX, maxY := cellRange(terrain.Bounds())
	w, h := maxX-minX, maxY-minY
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: extent %v", ErrEmptyTerrain, terrain.Bounds())
	}

	// Sample the oracle once per cell.
	walkable := make([]bool, w*h)
	for y := range h {
		for x := range w {
			walkable[y*w+x] = terrain.IsWalkable(graph.Cell{X: minX + x, Y: minY + y}.Center())
		}
	}
	at := func(x, y int) bool {
		return x >= 0 && x < w && y >= 0 && y < h && walkable[y*w+x]
	}
	node := func(x, y int) *graph.Node {
		return graph.NewCellNode(graph.Cell{X: minX + x, Y: minY + y}.Center())
	}

	g := graph.NewLevelGraph(0)
	for y := range h {
		for x := range w {
			if !at(x, y) {
				continue
			}
			n := g.AddNode(node(x, y))
			if at(x+1, y) {
				g.AddEdge(n, node(x+1, y), 1)
			}
			if at(x, y+1) {
				g.AddEdge(n, node(x, y+1), 1)
			}
			if !diagonal {
				continue
			}
			if at(x+1, y+1) && at(x+1, y) && at(x, y+1) {
				g.AddEdge(n, node(x+1, y+1), math.Sqrt2)
			}
			if at(x-1, y+1) && at(x-1, y) && at(x, y+1) {
				g.AddEdge(n, node(x-1, y+1), math.Sqrt2)
			}
		}
	}

	if g.Len() == 0 {
		return nil, ErrEmptyTerrain
	}
	return g, nil
}

type regionPair struct {
	a, b int
}

// contract builds level from the regions over the current top level of h. Every
// region is registered, linked or not.
func contract(h *graph.Hierarchy, level int, regions []Region, model CostModel) error {
	start := time.Now()
	lower := h.Level(level - 1)

	upper := graph.NewLevelGraph(level)
	nodes := make([]*graph.Node, len(regions))
	for i, r := range regions {
		nodes[i] = upper.AddNode(graph.NewRegionNode(level, r.Bounds, r.Center))
	}
	if err := h.AddLevel(upper); err != nil {
		return err
	}

	index, err := NewRegionIndex(regions)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}

	children := lower.Nodes()
	position := make(map[*graph.Node]int, len(children))
	containing := make([][]int, len(children))
	members := make([][]*graph.Node, len(regions))
	orphans := 0
	for i, child := range children {
		position[child] = i
		in := index.Containing(child.Center)
		containing[i] = in
		if len(in) == 0 {
			orphans++
			continue
		}
		for _, r := range in {
			members[r] = append(members[r], child)
		}
		if err := h.Link(child, nodes[in[0]]); err != nil {
			return err
		}
	}

	empty := 0
	for r, region := range nodes {
		if len(members[r]) == 0 {
			empty++
			continue
		}
		var best *graph.Node
		bestDist := math.Inf(1)
		for _, child := range members[r] {
			region.TacticalBenefit += child.TacticalBenefit
			if d := planar.Distance(child.Center, region.Center); d < bestDist {
				best, bestDist = child, d
			}
		}
		if err := h.SetRepresentative(region, best); err != nil {
			return err
		}
	}

	// Collect the distinct child pairs joining each pair of regions.
	linked := make(map[regionPair]map[[2]int]struct{})
	for i, child := range children {
		conns, err := lower.GetConnections(child)
		if err != nil {
			return err
		}
		for _, c := range conns {
			j := position[c.To]
			for _, a := range containing[i] {
				for _, b := range containing[j] {
					if a == b {
						continue
					}
					key, pair := regionPair{a, b}, [2]int{i, j}
					if a > b {
						key, pair = regionPair{b, a}, [2]int{j, i}
					}
					if linked[key] == nil {
						linked[key] = make(map[[2]int]struct{})
					}
					linked[key][pair] = struct{}{}
				}
			}
		}
	}

	pairs := make([]regionPair, 0, len(linked))
	for p := range linked {
		pairs = append(pairs, p)
	}
	slices.SortFunc(pairs, func(x, y regionPair) int {
		return cmp.Or(cmp.Compare(x.a, y.a), cmp.Compare(x.b, y.b))
	})

	for _, p := range pairs {
		var cost float64
		switch model {
		case CostLinked:
			cost = linkedCost(children, linked[p])
		default:
			cost = meanManhattan(members[p.a], members[p.b])
		}
		upper.AddEdge(nodes[p.a], nodes[p.b], cost)
	}

	if orphans > 0 {
		slog.Warn("nodes outside every region", "level", level-1, "count", orphans)
	}
	if empty > 0 {
		slog.Warn("regions without children", "level", level, "count", empty)
	}
	slog.Info("hierarchy level built",
		"level", level,
		"regions", len(regions),
		"connections", upper.ConnectionCount(),
		"elapsed", time.Since(start))
	return nil
}

func meanManhattan(as, bs []*graph.Node) float64 {
	var sum float64
	for _, a := range as {
		for _, b := range bs {
			sum += manhattan(a.Center, b.Center)
		}
	}
	return sum / float64(len(as)*len(bs))
}

func linkedCost(children []*graph.Node, pairs map[[2]int]struct{}) float64 {
	var sum float64
	for p := range pairs {
		sum += manhattan(children[p[0]].Center, children[p[1]].Center)
	}
	return sum / float64(len(pairs))
}

func manhattan(a, b orb.Point) float64 {
	return math.Abs(a[0]-b[0]) + math.Abs(a[1]-b[1])
}
