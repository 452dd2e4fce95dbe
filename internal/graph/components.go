package graph

import (
	"math"

	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// LabelComponents assigns every level 0 node the id of its connected component
// and records which tiles each region covers. Builders call it once, after the
// last level is added. Level 0 edges are symmetric, so the undirected view is
// exact.
func (h *Hierarchy) LabelComponents() int {
	tiles := h.levels[0]

	g := simple.NewUndirectedGraph()
	for _, n := range tiles.nodes {
		g.AddNode(simple.Node(n.index))
	}
	for i, conns := range tiles.edges {
		for _, c := range conns {
			if c.To.index > i {
				g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(c.To.index)})
			}
		}
	}

	labels := make([]int, tiles.Len())
	comps := topo.ConnectedComponents(g)
	for id, comp := range comps {
		for _, n := range comp {
			labels[n.ID()] = id
		}
	}
	h.components = labels
	h.componentCount = len(comps)
	h.indexRegionTiles()
	return len(comps)
}

// indexRegionTiles lists, for every region, the level 0 nodes whose parent chain
// reaches it, in tile order.
func (h *Hierarchy) indexRegionTiles() {
	h.regionTiles = make([][][]int, len(h.levels))
	for l := 1; l < len(h.levels); l++ {
		h.regionTiles[l] = make([][]int, h.levels[l].Len())
	}
	for i, n := range h.levels[0].nodes {
		for l, up := 1, n.parent; l < len(h.levels) && up != noLink; l++ {
			h.regionTiles[l][up] = append(h.regionTiles[l][up], i)
			up = h.levels[l].nodes[up].parent
		}
	}
}

// Components returns the number of level 0 components, or 0 before labelling.
func (h *Hierarchy) Components() int {
	return h.componentCount
}

// SameComponent reports whether two level 0 nodes can reach each other. Without
// labels every pair is assumed reachable.
func (h *Hierarchy) SameComponent(a, b *Node) bool {
	x, y := h.resolve(a), h.resolve(b)
	if x == nil || y == nil || x.Level != 0 || y.Level != 0 {
		return false
	}
	if h.components == nil {
		return true
	}
	return h.components[x.index] == h.components[y.index]
}

// EntryTile returns the level 0 node inside region that from can reach and that
// lies closest to the region's anchor. It returns nil when the region covers no
// such tile.
func (h *Hierarchy) EntryTile(region, from *Node) *Node {
	r := h.resolve(region)
	if r == nil || r.Level == 0 {
		return nil
	}

	target := r.Center
	if a := h.Anchor(r); a != nil {
		if h.SameComponent(a, from) {
			return a
		}
		target = a.Center
	}
	if r.Level >= len(h.regionTiles) {
		return nil
	}

	var best *Node
	bestDist := math.Inf(1)
	for _, i := range h.regionTiles[r.Level][r.index] {
		n := h.levels[0].nodes[i]
		if !h.SameComponent(n, from) {
			continue
		}
		if d := planar.DistanceSquared(n.Center, target); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}
