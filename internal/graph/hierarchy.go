package graph

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Hierarchy is an ordered sequence of level graphs, index 0 being the tile grid,
// plus the parent and representative child links between adjacent levels.
// It must not be mutated once queries start.
type Hierarchy struct {
	levels []*LevelGraph

	components     []int
	componentCount int
	regionTiles    [][][]int // [level][region] level 0 node indices
}

// NewHierarchy creates a hierarchy whose finest level is tiles.
func NewHierarchy(tiles *LevelGraph) *Hierarchy {
	return &Hierarchy{levels: []*LevelGraph{tiles}}
}

// AddLevel appends g as the next coarser level. Its level number must follow the
// current height.
func (h *Hierarchy) AddLevel(g *LevelGraph) error {
	if g.Level() != len(h.levels) {
		return fmt.Errorf("adding level %d to hierarchy of height %d", g.Level(), len(h.levels))
	}
	h.levels = append(h.levels, g)
	return nil
}

// Height returns the number of levels.
func (h *Hierarchy) Height() int {
	return len(h.levels)
}

// Level returns the graph at level i, or nil when out of range.
func (h *Hierarchy) Level(i int) *LevelGraph {
	if i < 0 || i >= len(h.levels) {
		return nil
	}
	return h.levels[i]
}

// Link records parent as the containing region of child. Both nodes must be
// registered in consecutive levels.
func (h *Hierarchy) Link(child, parent *Node) error {
	c, p, err := h.adjacent(child, parent)
	if err != nil {
		return err
	}
	c.parent = p.index
	return nil
}

// SetRepresentative records child as the anchor used when region is a search
// endpoint.
func (h *Hierarchy) SetRepresentative(region, child *Node) error {
	c, r, err := h.adjacent(child, region)
	if err != nil {
		return err
	}
	r.child = c.index
	return nil
}

func (h *Hierarchy) adjacent(child, parent *Node) (*Node, *Node, error) {
	if parent.Level != child.Level+1 {
		return nil, nil, fmt.Errorf("linking %s to %s: levels are not adjacent", child, parent)
	}
	c := h.resolve(child)
	p := h.resolve(parent)
	if c == nil || p == nil {
		return nil, nil, fmt.Errorf("linking %s to %s: %w", child, parent, ErrUnregisteredNode)
	}
	return c, p, nil
}

// resolve maps n to the node owned by its level table.
func (h *Hierarchy) resolve(n *Node) *Node {
	if n == nil {
		return nil
	}
	g := h.Level(n.Level)
	if g == nil {
		return nil
	}
	return g.Node(n.Center)
}

// Parent returns the region one level up containing n, or nil.
func (h *Hierarchy) Parent(n *Node) *Node {
	owned := h.resolve(n)
	if owned == nil {
		return nil
	}
	up := h.Level(owned.Level + 1)
	if up == nil {
		return nil
	}
	return up.at(owned.parent)
}

// RepresentativeChild returns the node one level down anchoring n, or nil.
func (h *Hierarchy) RepresentativeChild(n *Node) *Node {
	owned := h.resolve(n)
	if owned == nil {
		return nil
	}
	down := h.Level(owned.Level - 1)
	if down == nil {
		return nil
	}
	return down.at(owned.child)
}

// GetNode walks parent links up or representative links down from n until level
// is reached. It returns nil when level is out of range or a link is missing.
func (h *Hierarchy) GetNode(level int, n *Node) *Node {
	if n == nil || level < 0 || level >= len(h.levels) {
		return nil
	}
	cur := h.resolve(n)
	for cur != nil && cur.Level != level {
		if level < cur.Level {
			cur = h.RepresentativeChild(cur)
		} else {
			cur = h.Parent(cur)
		}
	}
	return cur
}

// Anchor returns the level 0 node reached by following representative children
// down from n.
func (h *Hierarchy) Anchor(n *Node) *Node {
	return h.GetNode(0, n)
}

// Cell returns the registered level 0 node for the cell containing p, or nil when
// the cell is not walkable.
func (h *Hierarchy) Cell(p orb.Point) *Node {
	return h.levels[0].Node(CellOf(p).Center())
}

// LevelStats summarises one level.
type LevelStats struct {
	Level       int `json:"level"`
	Nodes       int `json:"nodes"`
	Connections int `json:"connections"`
	Orphans     int `json:"orphans"` // nodes without a parent link
}

// Stats returns per level node and connection counts.
func (h *Hierarchy) Stats() []LevelStats {
	stats := make([]LevelStats, 0, len(h.levels))
	for i, g := range h.levels {
		s := LevelStats{Level: i, Nodes: g.Len(), Connections: g.ConnectionCount()}
		if i+1 < len(h.levels) {
			for _, n := range g.Nodes() {
				if n.parent == noLink {
					s.Orphans++
				}
			}
		}
		stats = append(stats, s)
	}
	return stats
}
