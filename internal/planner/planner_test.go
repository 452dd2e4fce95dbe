package planner

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tile-planner/internal/build"
	"tile-planner/internal/graph"
	"tile-planner/internal/search"
)

func pt(x, y int) orb.Point {
	return orb.Point{float64(x) + 0.5, float64(y) + 0.5}
}

func hierarchy(t *testing.T, layout build.Layout, lines ...string) *graph.Hierarchy {
	t.Helper()
	h, err := build.Build(build.ParseASCII(graph.Cell{}, lines...), layout, build.Options{})
	require.NoError(t, err)
	return h
}

// gridHierarchy builds lines with square blocks of 2, 4, ... cells over them.
func gridHierarchy(t *testing.T, levels int, lines ...string) *graph.Hierarchy {
	t.Helper()
	terrain := build.ParseASCII(graph.Cell{}, lines...)
	h, err := build.Build(terrain, build.GridLayout(terrain.Bounds(), 2, levels), build.Options{})
	require.NoError(t, err)
	return h
}

func openLines(w, h int) []string {
	lines := make([]string, h)
	for i := range lines {
		lines[i] = strings.Repeat(".", w)
	}
	return lines
}

func assertValidRoute(t *testing.T, h *graph.Hierarchy, r Route, start, end orb.Point) {
	t.Helper()
	require.NotEmpty(t, r.Connections)
	tiles := h.Level(0)

	assert.Equal(t, graph.CellOf(start).Center(), r.Start)
	assert.Equal(t, graph.CellOf(start).Center(), r.Connections[0].From.Center)
	assert.Equal(t, graph.CellOf(end).Center(), r.Connections[len(r.Connections)-1].To.Center)
	for i, c := range r.Connections {
		assert.Zero(t, c.From.Level)
		assert.True(t, tiles.ContainsConnection(c.From, c.To), "hop %d %s -> %s is not a tile edge", i, c.From, c.To)
		if i > 0 {
			assert.True(t, r.Connections[i-1].To.Equal(c.From), "gap before hop %d", i)
		}
	}
	assert.Len(t, r.Waypoints, len(r.Connections))
	assert.Equal(t, graph.PathCost(r.Connections), r.Cost)
}

func TestFindPathSameCell(t *testing.T) {
	h := gridHierarchy(t, 2, openLines(5, 5)...)
	p := New(h, Options{GridFallback: true})

	for _, n := range h.Level(0).Nodes() {
		r, err := p.FindPath(n.Center, n.Center)
		require.NoError(t, err, "%s", n)
		assert.Empty(t, r.Connections)
		assert.Zero(t, r.Cost)
	}

	r, err := p.FindPath(orb.Point{2.1, 3.1}, orb.Point{2.9, 3.9})
	require.NoError(t, err)
	assert.Zero(t, r.Len())
	assert.Equal(t, orb.LineString{pt(2, 3)}, r.Corners())
}

func TestFindPathOpenGrid(t *testing.T) {
	h := gridHierarchy(t, 2, openLines(5, 5)...)
	p := New(h, Options{})

	r, err := p.FindPath(pt(0, 0), pt(4, 4))
	require.NoError(t, err)
	assertValidRoute(t, h, r, pt(0, 0), pt(4, 4))
	assert.Equal(t, 8, r.Len())
	assert.Equal(t, 8.0, r.Cost)
	assert.Equal(t, 2, r.Level)
	assert.False(t, r.Fallback)
	assert.Greater(t, r.Searches, 1)
	assert.Len(t, r.Corners(), 3, "one turn between two straight legs")
}

func TestFindPathWallWithGap(t *testing.T) {
	lines := []string{
		".....",
		".....",
		"##.##",
		".....",
		".....",
	}

	flat := New(hierarchy(t, nil, lines...), Options{})
	r, err := flat.FindPath(pt(0, 0), pt(4, 4))
	require.NoError(t, err)
	assert.Equal(t, 8.0, r.Cost)
	assert.Zero(t, r.Level)
	assert.Contains(t, r.Waypoints, pt(2, 2))

	// Region costs are averages, so the refined route may detour but must still
	// squeeze through the gap.
	h := gridHierarchy(t, 2, lines...)
	r, err = New(h, Options{GridFallback: true}).FindPath(pt(0, 0), pt(4, 4))
	require.NoError(t, err)
	assertValidRoute(t, h, r, pt(0, 0), pt(4, 4))
	assert.GreaterOrEqual(t, r.Cost, 8.0)
	assert.Contains(t, r.Waypoints, pt(2, 2))
}

func TestFindPathDisconnected(t *testing.T) {
	h := gridHierarchy(t, 2,
		"..#..",
		"..#..",
		"..#..",
		"..#..",
	)
	p := New(h, Options{GridFallback: true})

	r, err := p.FindPath(pt(0, 0), pt(4, 3))
	assert.ErrorIs(t, err, ErrNoPath)
	assert.Empty(t, r.Connections)
}

func TestFindPathUnwalkableEndpoint(t *testing.T) {
	h := gridHierarchy(t, 1, "...", ".#.", "...")
	p := New(h, Options{})

	_, err := p.FindPath(pt(0, 0), pt(1, 1))
	assert.ErrorIs(t, err, ErrNoPath)
	_, err = p.FindPath(pt(1, 1), pt(0, 0))
	assert.ErrorIs(t, err, ErrNoPath)
	_, err = p.FindPath(pt(0, 0), pt(7, 7))
	assert.ErrorIs(t, err, ErrNoPath)
}

// pocketHierarchy has a middle region whose representative tile is cut off from
// the corridor that joins its neighbours.
func pocketHierarchy(t *testing.T) *graph.Hierarchy {
	t.Helper()
	layout := build.Layout{{
		{Bounds: orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 3}}, Center: orb.Point{0.5, 0.5}},
		{Bounds: orb.Bound{Min: orb.Point{1, 0}, Max: orb.Point{2, 3}}, Center: orb.Point{1.5, 2.5}},
		{Bounds: orb.Bound{Min: orb.Point{2, 0}, Max: orb.Point{3, 3}}, Center: orb.Point{2.5, 0.5}},
	}}
	return hierarchy(t, layout,
		"#.#",
		"###",
		"...",
	)
}

func TestFindPathEntersRegionAtReachableTile(t *testing.T) {
	h := pocketHierarchy(t)
	middle := h.Level(1).Node(orb.Point{1.5, 2.5})
	require.NotNil(t, middle)
	require.Equal(t, pt(1, 2), h.Anchor(middle).Center)

	r, err := New(h, Options{}).FindPath(pt(0, 0), pt(2, 0))
	require.NoError(t, err)
	assertValidRoute(t, h, r, pt(0, 0), pt(2, 0))
	assert.False(t, r.Fallback)
	assert.Equal(t, 1, r.Level)
	assert.Equal(t, 2.0, r.Cost)
}

// unlabelledPocket is pocketHierarchy assembled by hand without component
// labels, so the middle region's anchor looks reachable.
func unlabelledPocket(t *testing.T) *graph.Hierarchy {
	t.Helper()
	tiles := graph.NewLevelGraph(0)
	a := tiles.AddNode(graph.NewCellNode(pt(0, 0)))
	b := tiles.AddNode(graph.NewCellNode(pt(1, 0)))
	c := tiles.AddNode(graph.NewCellNode(pt(2, 0)))
	pocket := tiles.AddNode(graph.NewCellNode(pt(1, 2)))
	tiles.AddEdge(a, b, 1)
	tiles.AddEdge(b, c, 1)

	regions := graph.NewLevelGraph(1)
	column := func(x float64, center orb.Point) *graph.Node {
		return regions.AddNode(graph.NewRegionNode(1, orb.Bound{Min: orb.Point{x, 0}, Max: orb.Point{x + 1, 3}}, center))
	}
	left, middle, right := column(0, pt(0, 0)), column(1, pt(1, 2)), column(2, pt(2, 0))
	regions.AddEdge(left, middle, 1)
	regions.AddEdge(middle, right, 1)

	h := graph.NewHierarchy(tiles)
	require.NoError(t, h.AddLevel(regions))
	for _, link := range [][2]*graph.Node{{a, left}, {b, middle}, {pocket, middle}, {c, right}} {
		require.NoError(t, h.Link(link[0], link[1]))
	}
	require.NoError(t, h.SetRepresentative(left, a))
	require.NoError(t, h.SetRepresentative(middle, pocket))
	require.NoError(t, h.SetRepresentative(right, c))
	return h
}

func TestFindPathGridFallback(t *testing.T) {
	h := unlabelledPocket(t)

	r, err := New(h, Options{GridFallback: true}).FindPath(pt(0, 0), pt(2, 0))
	require.NoError(t, err)
	assertValidRoute(t, h, r, pt(0, 0), pt(2, 0))
	assert.True(t, r.Fallback)
	assert.Equal(t, 1, r.Level)
	assert.Equal(t, 2.0, r.Cost)

	_, err = New(h, Options{}).FindPath(pt(0, 0), pt(2, 0))
	assert.ErrorIs(t, err, ErrNoPath)
}

func TestFindPathMissingParent(t *testing.T) {
	layout := build.Layout{{build.NewRegion(orb.Bound{Max: orb.Point{2, 1}})}}
	h := hierarchy(t, layout, "....")
	require.Nil(t, h.Parent(h.Cell(pt(3, 0))))

	r, err := New(h, Options{}).FindPath(pt(0, 0), pt(3, 0))
	require.NoError(t, err)
	assertValidRoute(t, h, r, pt(0, 0), pt(3, 0))
	assert.Zero(t, r.Level, "search stays on the last linked level")
	assert.Equal(t, 3.0, r.Cost)
}

func TestFindPathHeuristics(t *testing.T) {
	lines := []string{
		"......",
		".##...",
		"...#..",
		"......",
	}
	terrain := build.ParseASCII(graph.Cell{}, lines...)
	h, err := build.Build(terrain, build.GridLayout(terrain.Bounds(), 2, 2), build.Options{
		Waypoints: []build.Waypoint{{Position: pt(4, 3), Benefit: 5}, {Position: pt(1, 0), Benefit: -5}},
	})
	require.NoError(t, err)

	for _, kind := range []search.Kind{search.KindManhattan, search.KindEuclidean, search.KindTactical} {
		p := New(h, Options{Heuristic: kind, TacticalWeight: 2, GridFallback: true})
		r, err := p.FindPath(pt(0, 0), pt(5, 3))
		require.NoError(t, err, "%s", kind)
		assertValidRoute(t, h, r, pt(0, 0), pt(5, 3))
	}
}

func TestTacticalRouteFollowsWaypoints(t *testing.T) {
	route := func(kind search.Kind, wps ...build.Waypoint) orb.Point {
		h, err := build.Build(build.ParseASCII(graph.Cell{}, "..", ".."), nil, build.Options{Waypoints: wps})
		require.NoError(t, err)
		r, err := New(h, Options{Heuristic: kind, TacticalWeight: 1}).FindPath(pt(0, 0), pt(1, 1))
		require.NoError(t, err)
		require.Len(t, r.Waypoints, 2)
		assert.Equal(t, 2.0, r.Cost)
		return r.Waypoints[0]
	}

	plain := route(search.KindManhattan)
	other := pt(1, 0)
	if plain == other {
		other = pt(0, 1)
	}

	assert.Equal(t, plain, route(search.KindManhattan, build.Waypoint{Position: other, Benefit: 1}), "manhattan ignores benefits")
	assert.Equal(t, other, route(search.KindTactical, build.Waypoint{Position: other, Benefit: 1}))
	assert.Equal(t, other, route(search.KindTactical, build.Waypoint{Position: plain, Benefit: -1}))
}

func TestHierarchicalFeasibility(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	layouts := []struct{ block, levels int }{{2, 3}, {4, 1}}
	for trial := range 30 {
		const size = 16
		lines := make([]string, size)
		for y := range lines {
			b := make([]byte, size)
			for x := range b {
				b[x] = '.'
				if rng.Float64() < 0.3 {
					b[x] = '#'
				}
			}
			lines[y] = string(b)
		}
		terrain := build.ParseASCII(graph.Cell{}, lines...)
		shape := layouts[trial%len(layouts)]
		h, err := build.Build(terrain, build.GridLayout(terrain.Bounds(), shape.block, shape.levels), build.Options{})
		if err != nil {
			require.ErrorIs(t, err, build.ErrEmptyTerrain)
			continue
		}
		p := New(h, Options{})

		tiles := h.Level(0).Nodes()
		for q := 0; q < 20; q++ {
			from := tiles[rng.Intn(len(tiles))]
			to := tiles[rng.Intn(len(tiles))]

			direct, directErr := search.AStar(h.Level(0), from, to, search.NewManhattan(to))
			r, err := p.FindPath(from.Center, to.Center)
			if directErr != nil {
				assert.ErrorIs(t, err, ErrNoPath, "trial %d: %s -> %s", trial, from, to)
				continue
			}
			require.NoError(t, err, "trial %d: %s -> %s", trial, from, to)
			assert.False(t, r.Fallback)
			if from.Equal(to) {
				assert.Empty(t, r.Connections)
				continue
			}
			assertValidRoute(t, h, r, from.Center, to.Center)
			assert.GreaterOrEqual(t, r.Cost, direct.Cost)
		}
	}
}
