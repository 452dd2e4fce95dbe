package graph

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// noLink marks a missing cross-level reference.
const noLink = -1

// Key identifies a node inside a hierarchy. Two nodes with the same level and center
// are interchangeable for lookups even if they were constructed independently.
type Key struct {
	Level  int
	Center orb.Point
}

func (k Key) String() string {
	return fmt.Sprintf("L%d(%g,%g)", k.Level, k.Center[0], k.Center[1])
}

// Node is a grid cell (level 0) or an aggregated rectangular region (level > 0).
type Node struct {
	Level  int
	Center orb.Point
	// Bounds is expressed relative to Center. Unused at level 0 where every node
	// covers the unit cell around its center.
	Bounds orb.Bound
	// TacticalBenefit biases the tactical heuristic towards (positive) or away from
	// (negative) this node.
	TacticalBenefit float64

	// Weak references into the node tables of the adjacent levels.
	index  int
	parent int
	child  int
}

// Cell is the integer grid cell a world position falls into.
type Cell struct {
	X, Y int
}

// CellOf floors a continuous position to its grid cell.
func CellOf(p orb.Point) Cell {
	return Cell{X: int(math.Floor(p[0])), Y: int(math.Floor(p[1]))}
}

// Center returns the world position of the middle of the cell.
func (c Cell) Center() orb.Point {
	return orb.Point{float64(c.X) + 0.5, float64(c.Y) + 0.5}
}

// NewCellNode returns the level 0 node for the cell containing p.
func NewCellNode(p orb.Point) *Node {
	return &Node{
		Level:  0,
		Center: CellOf(p).Center(),
		index:  noLink,
		parent: noLink,
		child:  noLink,
	}
}

// NewRegionNode returns a level > 0 node covering the world rectangle bounds whose
// reference point is center.
func NewRegionNode(level int, bounds orb.Bound, center orb.Point) *Node {
	return &Node{
		Level:  level,
		Center: center,
		Bounds: orb.Bound{
			Min: orb.Point{bounds.Min[0] - center[0], bounds.Min[1] - center[1]},
			Max: orb.Point{bounds.Max[0] - center[0], bounds.Max[1] - center[1]},
		},
		index:  noLink,
		parent: noLink,
		child:  noLink,
	}
}

// Key returns the identity of n.
func (n *Node) Key() Key {
	return Key{Level: n.Level, Center: n.Center}
}

// Equal reports whether n and other denote the same node.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.Level == other.Level && n.Center == other.Center
}

// WorldBounds returns the area covered by n in world coordinates.
func (n *Node) WorldBounds() orb.Bound {
	if n.Level == 0 {
		return orb.Bound{
			Min: orb.Point{n.Center[0] - 0.5, n.Center[1] - 0.5},
			Max: orb.Point{n.Center[0] + 0.5, n.Center[1] + 0.5},
		}
	}
	return orb.Bound{
		Min: orb.Point{n.Bounds.Min[0] + n.Center[0], n.Bounds.Min[1] + n.Center[1]},
		Max: orb.Point{n.Bounds.Max[0] + n.Center[0], n.Bounds.Max[1] + n.Center[1]},
	}
}

// Contains reports whether p lies inside n, boundaries included.
func (n *Node) Contains(p orb.Point) bool {
	return n.WorldBounds().Contains(p)
}

// ContainsNode reports whether the center of other lies inside n.
func (n *Node) ContainsNode(other *Node) bool {
	return n.Contains(other.Center)
}

func (n *Node) String() string {
	return n.Key().String()
}
