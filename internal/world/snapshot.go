package world

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/paulmach/orb"

	"tile-planner/internal/graph"
)

// Snapshot is the serialized form of a built hierarchy. Node positions index the
// level's node table; Parent and Child index the adjacent levels.
type Snapshot struct {
	Levels []LevelSnapshot `json:"levels"`
}

// LevelSnapshot holds one level's nodes in table order.
type LevelSnapshot struct {
	Level int            `json:"level"`
	Nodes []NodeSnapshot `json:"nodes"`
}

// NodeSnapshot is one node with its outgoing edges.
type NodeSnapshot struct {
	Center  orb.Point      `json:"center"`
	Min     *orb.Point     `json:"min,omitempty"`
	Max     *orb.Point     `json:"max,omitempty"`
	Benefit float64        `json:"benefit,omitempty"`
	Parent  *int           `json:"parent,omitempty"`
	Child   *int           `json:"child,omitempty"`
	Edges   []EdgeSnapshot `json:"edges,omitempty"`
}

// EdgeSnapshot is a connection to another node of the same level.
type EdgeSnapshot struct {
	To   int     `json:"to"`
	Cost float64 `json:"cost"`
}

// Capture serializes h.
func Capture(h *graph.Hierarchy) *Snapshot {
	positions := make([]map[orb.Point]int, h.Height())
	for l := range positions {
		nodes := h.Level(l).Nodes()
		positions[l] = make(map[orb.Point]int, len(nodes))
		for i, n := range nodes {
			positions[l][n.Center] = i
		}
	}
	indexOf := func(n *graph.Node) *int {
		if n == nil {
			return nil
		}
		i := positions[n.Level][n.Center]
		return &i
	}

	s := &Snapshot{Levels: make([]LevelSnapshot, h.Height())}
	for l := range s.Levels {
		g := h.Level(l)
		level := LevelSnapshot{Level: l, Nodes: make([]NodeSnapshot, 0, g.Len())}
		for _, n := range g.Nodes() {
			ns := NodeSnapshot{
				Center:  n.Center,
				Benefit: n.TacticalBenefit,
				Parent:  indexOf(h.Parent(n)),
				Child:   indexOf(h.RepresentativeChild(n)),
			}
			if l > 0 {
				b := n.WorldBounds()
				ns.Min, ns.Max = &b.Min, &b.Max
			}
			conns, _ := g.GetConnections(n)
			for _, c := range conns {
				ns.Edges = append(ns.Edges, EdgeSnapshot{To: positions[l][c.To.Center], Cost: c.Cost})
			}
			level.Nodes = append(level.Nodes, ns)
		}
		s.Levels[l] = level
	}
	return s
}

// Hierarchy rebuilds the hierarchy described by s and labels its components.
func (s *Snapshot) Hierarchy() (*graph.Hierarchy, error) {
	if len(s.Levels) == 0 {
		return nil, ErrNoTerrain
	}

	levels := make([][]*graph.Node, len(s.Levels))
	var h *graph.Hierarchy
	for l, ls := range s.Levels {
		if ls.Level != l {
			return nil, fmt.Errorf("snapshot level %d stored at position %d", ls.Level, l)
		}
		g := graph.NewLevelGraph(l)
		levels[l] = make([]*graph.Node, len(ls.Nodes))
		for i, ns := range ls.Nodes {
			var n *graph.Node
			if l == 0 {
				n = graph.NewCellNode(ns.Center)
			} else {
				if ns.Min == nil || ns.Max == nil {
					return nil, fmt.Errorf("snapshot level %d node %d has no bounds", l, i)
				}
				n = graph.NewRegionNode(l, orb.Bound{Min: *ns.Min, Max: *ns.Max}, ns.Center)
			}
			n.TacticalBenefit = ns.Benefit
			levels[l][i] = g.AddNode(n)
		}
		for i, ns := range ls.Nodes {
			for _, e := range ns.Edges {
				if e.To < 0 || e.To >= len(levels[l]) {
					return nil, fmt.Errorf("snapshot level %d node %d: edge to unknown node %d", l, i, e.To)
				}
				g.AddConnection(levels[l][i], levels[l][e.To], e.Cost)
			}
		}

		if l == 0 {
			h = graph.NewHierarchy(g)
		} else if err := h.AddLevel(g); err != nil {
			return nil, err
		}
	}

	for l, ls := range s.Levels {
		for i, ns := range ls.Nodes {
			n := levels[l][i]
			if ns.Parent != nil {
				parent, err := at(levels, l+1, *ns.Parent)
				if err != nil {
					return nil, err
				}
				if err := h.Link(n, parent); err != nil {
					return nil, err
				}
			}
			if ns.Child != nil {
				child, err := at(levels, l-1, *ns.Child)
				if err != nil {
					return nil, err
				}
				if err := h.SetRepresentative(n, child); err != nil {
					return nil, err
				}
			}
		}
	}

	h.LabelComponents()
	return h, nil
}

func at(levels [][]*graph.Node, level, i int) (*graph.Node, error) {
	if level < 0 || level >= len(levels) || i < 0 || i >= len(levels[level]) {
		return nil, fmt.Errorf("snapshot link to unknown node %d on level %d", i, level)
	}
	return levels[level][i], nil
}

// SaveSnapshot writes h to filename as JSON.
func SaveSnapshot(h *graph.Hierarchy, filename string) error {
	data, err := json.MarshalIndent(Capture(h), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal hierarchy: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	slog.Info("hierarchy snapshot saved", "path", filename, "bytes", len(data))
	return nil
}

// LoadSnapshot reads a hierarchy written by SaveSnapshot.
func LoadSnapshot(filename string) (*graph.Hierarchy, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal hierarchy: %w", err)
	}

	h, err := s.Hierarchy()
	if err != nil {
		return nil, fmt.Errorf("restoring %s: %w", filename, err)
	}
	slog.Info("hierarchy snapshot loaded", "path", filename, "levels", h.Height())
	return h, nil
}
