package graph

import "github.com/paulmach/orb"

// Lines returns every undirected edge of g once, as a two point line string between
// node centers. Used for visualising a level.
func (g *LevelGraph) Lines() []orb.LineString {
	type pair struct{ a, b int }

	lines := make([]orb.LineString, 0, g.count/2)
	seen := make(map[pair]bool, g.count/2)

	for i, conns := range g.edges {
		for _, c := range conns {
			j := c.To.index
			key := pair{i, j}
			if j < i {
				key = pair{j, i}
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			lines = append(lines, orb.LineString{c.From.Center, c.To.Center})
		}
	}

	return lines
}
