package graph

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellNodeFloorsPosition(t *testing.T) {
	a := NewCellNode(orb.Point{2.1, 3.9})
	b := NewCellNode(orb.Point{2.99, 3.0})
	c := NewCellNode(orb.Point{-0.2, 0})

	assert.True(t, a.Equal(b))
	assert.Equal(t, orb.Point{2.5, 3.5}, a.Center)
	assert.Equal(t, orb.Point{-0.5, 0.5}, c.Center)
	assert.False(t, a.Equal(c))
}

func TestNodeEqualityUsesLevelAndCenter(t *testing.T) {
	region := NewRegionNode(1, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{4, 4}}, orb.Point{2, 2})
	other := NewRegionNode(1, orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{3, 3}}, orb.Point{2, 2})
	higher := NewRegionNode(2, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{4, 4}}, orb.Point{2, 2})

	assert.True(t, region.Equal(other))
	assert.False(t, region.Equal(higher))
	assert.Equal(t, region.Key(), other.Key())
}

func TestRegionContains(t *testing.T) {
	region := NewRegionNode(1, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{4, 4}}, orb.Point{2, 2})

	assert.Equal(t, orb.Bound{Min: orb.Point{-2, -2}, Max: orb.Point{2, 2}}, region.Bounds)
	assert.True(t, region.Contains(orb.Point{0.5, 0.5}))
	assert.True(t, region.Contains(orb.Point{4, 4}), "boundary is inclusive")
	assert.False(t, region.Contains(orb.Point{4.5, 1}))
	assert.True(t, region.ContainsNode(NewCellNode(orb.Point{3, 3})))

	cell := NewCellNode(orb.Point{1, 1})
	assert.True(t, cell.Contains(orb.Point{1, 1}))
	assert.True(t, cell.Contains(orb.Point{2, 2}))
	assert.False(t, cell.Contains(orb.Point{2.1, 1}))
}

func TestLevelGraphConnections(t *testing.T) {
	g := NewLevelGraph(0)
	a := NewCellNode(orb.Point{0, 0})
	b := NewCellNode(orb.Point{1, 0})
	lonely := NewCellNode(orb.Point{5, 5})

	g.AddEdge(a, b, 1)
	g.AddNode(lonely)

	conns, err := g.GetConnections(a)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.True(t, conns[0].To.Equal(b))
	assert.Equal(t, 1.0, conns[0].Cost)

	conns, err = g.GetConnections(lonely)
	require.NoError(t, err)
	assert.Empty(t, conns)

	_, err = g.GetConnections(NewCellNode(orb.Point{9, 9}))
	assert.ErrorIs(t, err, ErrUnregisteredNode)

	assert.True(t, g.ContainsConnection(a, b))
	assert.True(t, g.ContainsConnection(b, a))
	assert.False(t, g.ContainsConnection(a, lonely))
	assert.False(t, g.ContainsConnection(NewCellNode(orb.Point{9, 9}), a))
	assert.True(t, g.ContainsNode(lonely))
	assert.Equal(t, 3, g.Len())
	assert.Equal(t, 2, g.ConnectionCount())
}

func TestLevelGraphRejectsOtherLevels(t *testing.T) {
	g := NewLevelGraph(1)
	region := NewRegionNode(1, orb.Bound{Max: orb.Point{2, 2}}, orb.Point{1, 1})
	g.AddNode(region)

	cell := NewCellNode(orb.Point{0.5, 0.5})
	assert.False(t, g.ContainsNode(cell))
	_, err := g.GetConnections(cell)
	assert.ErrorIs(t, err, ErrUnregisteredNode)
}

func TestLinesDeduplicatesUndirectedEdges(t *testing.T) {
	g := NewLevelGraph(0)
	a := NewCellNode(orb.Point{0, 0})
	b := NewCellNode(orb.Point{1, 0})
	c := NewCellNode(orb.Point{1, 1})
	g.AddEdge(a, b, 1)
	g.AddEdge(b, c, 1)

	lines := g.Lines()
	assert.Len(t, lines, 2)
}

func TestPathCost(t *testing.T) {
	a := NewCellNode(orb.Point{0, 0})
	b := NewCellNode(orb.Point{1, 0})
	path := []Connection{{From: a, To: b, Cost: 1.5}, {From: b, To: a, Cost: 2}}
	assert.Equal(t, 3.5, PathCost(path))
	assert.Zero(t, PathCost(nil))
}

// twoLevelHierarchy builds a 4x1 strip split into two level 1 regions.
func twoLevelHierarchy(t *testing.T) (*Hierarchy, []*Node, []*Node) {
	t.Helper()

	tiles := NewLevelGraph(0)
	cells := make([]*Node, 4)
	for x := range 4 {
		cells[x] = tiles.AddNode(NewCellNode(orb.Point{float64(x), 0}))
	}
	for x := range 3 {
		tiles.AddEdge(cells[x], cells[x+1], 1)
	}

	regions := NewLevelGraph(1)
	left := regions.AddNode(NewRegionNode(1, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{2, 1}}, orb.Point{1, 0.5}))
	right := regions.AddNode(NewRegionNode(1, orb.Bound{Min: orb.Point{2, 0}, Max: orb.Point{4, 1}}, orb.Point{3, 0.5}))
	regions.AddEdge(left, right, 2)

	h := NewHierarchy(tiles)
	require.NoError(t, h.AddLevel(regions))

	require.NoError(t, h.Link(cells[0], left))
	require.NoError(t, h.Link(cells[1], left))
	require.NoError(t, h.Link(cells[2], right))
	require.NoError(t, h.Link(cells[3], right))
	require.NoError(t, h.SetRepresentative(left, cells[1]))
	require.NoError(t, h.SetRepresentative(right, cells[2]))

	return h, cells, []*Node{left, right}
}

func TestHierarchyGetNode(t *testing.T) {
	h, cells, regions := twoLevelHierarchy(t)

	assert.Equal(t, 2, h.Height())
	assert.True(t, h.GetNode(1, cells[0]).Equal(regions[0]))
	assert.True(t, h.GetNode(1, cells[3]).Equal(regions[1]))
	assert.True(t, h.GetNode(0, regions[0]).Equal(cells[1]))
	assert.True(t, h.GetNode(0, cells[2]).Equal(cells[2]))

	// An independently constructed equal node resolves through the tables.
	inside := NewCellNode(orb.Point{0.3, 0.7})
	assert.True(t, h.GetNode(1, inside).Equal(regions[0]))

	assert.Nil(t, h.GetNode(2, cells[0]))
	assert.Nil(t, h.GetNode(-1, cells[0]))
	assert.Nil(t, h.GetNode(1, NewCellNode(orb.Point{10, 10})))
	assert.True(t, h.Anchor(regions[1]).Equal(cells[2]))
}

func TestHierarchyMissingLinks(t *testing.T) {
	tiles := NewLevelGraph(0)
	cell := tiles.AddNode(NewCellNode(orb.Point{0, 0}))
	regions := NewLevelGraph(1)
	region := regions.AddNode(NewRegionNode(1, orb.Bound{Max: orb.Point{1, 1}}, orb.Point{0.5, 0.5}))

	h := NewHierarchy(tiles)
	require.NoError(t, h.AddLevel(regions))

	assert.Nil(t, h.Parent(cell))
	assert.Nil(t, h.RepresentativeChild(region))
	assert.Nil(t, h.GetNode(1, cell))

	err := h.Link(cell, NewRegionNode(1, orb.Bound{Max: orb.Point{9, 9}}, orb.Point{4, 4}))
	assert.ErrorIs(t, err, ErrUnregisteredNode)
	assert.Error(t, h.Link(region, cell))
	assert.Error(t, h.AddLevel(NewLevelGraph(5)))
}

func TestHierarchyStats(t *testing.T) {
	h, _, _ := twoLevelHierarchy(t)

	stats := h.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, LevelStats{Level: 0, Nodes: 4, Connections: 6}, stats[0])
	assert.Equal(t, LevelStats{Level: 1, Nodes: 2, Connections: 2}, stats[1])
}

func TestComponents(t *testing.T) {
	tiles := NewLevelGraph(0)
	a := tiles.AddNode(NewCellNode(orb.Point{0, 0}))
	b := tiles.AddNode(NewCellNode(orb.Point{1, 0}))
	c := tiles.AddNode(NewCellNode(orb.Point{5, 5}))
	tiles.AddEdge(a, b, 1)

	h := NewHierarchy(tiles)
	assert.True(t, h.SameComponent(a, c), "unlabelled hierarchy assumes reachability")

	assert.Zero(t, h.Components())
	assert.Equal(t, 2, h.LabelComponents())
	assert.Equal(t, 2, h.Components())
	assert.True(t, h.SameComponent(a, b))
	assert.False(t, h.SameComponent(a, c))
	assert.False(t, h.SameComponent(a, NewCellNode(orb.Point{7, 7})))
	assert.True(t, h.Cell(orb.Point{1.2, 0.4}).Equal(b))
	assert.Nil(t, h.Cell(orb.Point{3, 3}))
}

func TestEntryTile(t *testing.T) {
	tiles := NewLevelGraph(0)
	a := tiles.AddNode(NewCellNode(orb.Point{0, 0}))
	b := tiles.AddNode(NewCellNode(orb.Point{1, 0}))
	c := tiles.AddNode(NewCellNode(orb.Point{2, 0}))
	outside := tiles.AddNode(NewCellNode(orb.Point{5, 0}))
	tiles.AddEdge(a, b, 1)

	regions := NewLevelGraph(1)
	r := regions.AddNode(NewRegionNode(1, orb.Bound{Max: orb.Point{3, 1}}, orb.Point{2.5, 0.5}))

	h := NewHierarchy(tiles)
	require.NoError(t, h.AddLevel(regions))
	for _, n := range []*Node{a, b, c} {
		require.NoError(t, h.Link(n, r))
	}
	require.NoError(t, h.SetRepresentative(r, c))
	require.Equal(t, 3, h.LabelComponents())

	assert.True(t, h.EntryTile(r, c).Equal(c), "reachable anchor is used as is")
	assert.True(t, h.EntryTile(r, a).Equal(b), "nearest reachable tile to the anchor")
	assert.Nil(t, h.EntryTile(r, outside))
	assert.Nil(t, h.EntryTile(a, b), "tiles are not regions")
}
