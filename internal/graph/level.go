package graph

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// ErrUnregisteredNode is returned when a node was never added to a level graph.
// Builders must register every node they intend to query, isolated ones included.
var ErrUnregisteredNode = errors.New("node not registered in level graph")

// Connection is a directed weighted edge between two nodes of the same level.
type Connection struct {
	From *Node
	To   *Node
	Cost float64
}

// PathCost sums the costs of a connection sequence.
func PathCost(path []Connection) float64 {
	var total float64
	for _, c := range path {
		total += c.Cost
	}
	return total
}

// LevelGraph is the adjacency structure for one abstraction level. It owns the
// nodes of its level; connections point at those owned nodes.
type LevelGraph struct {
	level int
	nodes []*Node
	index map[orb.Point]int
	edges [][]Connection
	count int
}

// NewLevelGraph creates an empty graph for the given level.
func NewLevelGraph(level int) *LevelGraph {
	return &LevelGraph{
		level: level,
		index: make(map[orb.Point]int),
	}
}

// Level returns the abstraction level of g.
func (g *LevelGraph) Level() int {
	return g.level
}

// AddNode registers n with an empty connection list and returns the node owned by
// the graph. Adding a node equal to a registered one returns the registered node.
func (g *LevelGraph) AddNode(n *Node) *Node {
	if i, ok := g.index[n.Center]; ok {
		return g.nodes[i]
	}
	owned := *n
	owned.Level = g.level
	owned.index = len(g.nodes)
	owned.parent = noLink
	owned.child = noLink
	g.index[owned.Center] = owned.index
	g.nodes = append(g.nodes, &owned)
	g.edges = append(g.edges, nil)
	return &owned
}

// AddConnection inserts a directed edge, registering both endpoints if needed.
func (g *LevelGraph) AddConnection(from, to *Node, cost float64) {
	f := g.AddNode(from)
	t := g.AddNode(to)
	g.edges[f.index] = append(g.edges[f.index], Connection{From: f, To: t, Cost: cost})
	g.count++
}

// AddEdge inserts the pair of opposite connections modelling an undirected edge.
func (g *LevelGraph) AddEdge(a, b *Node, cost float64) {
	g.AddConnection(a, b, cost)
	g.AddConnection(b, a, cost)
}

// GetConnections returns the outgoing connections of n. A registered node without
// edges yields an empty slice; a node that was never registered is an error.
func (g *LevelGraph) GetConnections(n *Node) ([]Connection, error) {
	i, ok := g.lookup(n)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnregisteredNode, n)
	}
	return g.edges[i], nil
}

// ContainsNode reports whether n is registered.
func (g *LevelGraph) ContainsNode(n *Node) bool {
	_, ok := g.lookup(n)
	return ok
}

// ContainsConnection reports whether a connection from -> to exists.
func (g *LevelGraph) ContainsConnection(from, to *Node) bool {
	i, ok := g.lookup(from)
	if !ok {
		return false
	}
	for _, c := range g.edges[i] {
		if c.To.Equal(to) {
			return true
		}
	}
	return false
}

// Node returns the registered node with the given center, or nil.
func (g *LevelGraph) Node(center orb.Point) *Node {
	if i, ok := g.index[center]; ok {
		return g.nodes[i]
	}
	return nil
}

// Nodes returns the registered nodes in insertion order.
func (g *LevelGraph) Nodes() []*Node {
	return g.nodes
}

// Len returns the number of registered nodes.
func (g *LevelGraph) Len() int {
	return len(g.nodes)
}

// ConnectionCount returns the number of directed connections.
func (g *LevelGraph) ConnectionCount() int {
	return g.count
}

func (g *LevelGraph) lookup(n *Node) (int, bool) {
	if n == nil || n.Level != g.level {
		return 0, false
	}
	i, ok := g.index[n.Center]
	return i, ok
}

// at returns the node stored at table index i, or nil.
func (g *LevelGraph) at(i int) *Node {
	if i < 0 || i >= len(g.nodes) {
		return nil
	}
	return g.nodes[i]
}
