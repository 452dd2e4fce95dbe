package build

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"tile-planner/internal/graph"
)

// Terrain is the walkability oracle the tile level is built from.
type Terrain interface {
	// Bounds is the world extent whose cells are scanned.
	Bounds() orb.Bound
	IsWalkable(p orb.Point) bool
}

// DefaultWalkableTiles are the tile ids treated as floor when none are configured.
var DefaultWalkableTiles = []int{0, 1, 8, 9, 11}

// wallTile is the id ParseASCII gives to '#' cells.
const wallTile = 2

// TileMap is a rectangular grid of tile ids anchored at Origin. Row 0 is the
// lowest y.
type TileMap struct {
	origin   graph.Cell
	rows     [][]int
	width    int
	walkable map[int]bool
}

// NewTileMap creates a tile map from rows of tile ids, row 0 at origin.Y. Rows may
// have different lengths; missing tiles are not walkable.
func NewTileMap(origin graph.Cell, rows [][]int, walkable []int) *TileMap {
	if walkable == nil {
		walkable = DefaultWalkableTiles
	}
	tm := &TileMap{
		origin:   origin,
		rows:     rows,
		walkable: make(map[int]bool, len(walkable)),
	}
	for _, id := range walkable {
		tm.walkable[id] = true
	}
	for _, row := range rows {
		tm.width = max(tm.width, len(row))
	}
	return tm
}

// ParseASCII builds a tile map from a drawing where '#' is a wall and any other
// character is floor. The first line is the top row.
func ParseASCII(origin graph.Cell, lines ...string) *TileMap {
	rows := make([][]int, len(lines))
	for i, line := range lines {
		row := make([]int, len(line))
		for x, ch := range []byte(line) {
			if ch == '#' {
				row[x] = wallTile
			}
		}
		rows[len(lines)-1-i] = row
	}
	return NewTileMap(origin, rows, DefaultWalkableTiles)
}

func (tm *TileMap) Bounds() orb.Bound {
	return orb.Bound{
		Min: orb.Point{float64(tm.origin.X), float64(tm.origin.Y)},
		Max: orb.Point{float64(tm.origin.X + tm.width), float64(tm.origin.Y + len(tm.rows))},
	}
}

// Tile returns the tile id at p and whether a tile exists there.
func (tm *TileMap) Tile(p orb.Point) (int, bool) {
	c := graph.CellOf(p)
	x, y := c.X-tm.origin.X, c.Y-tm.origin.Y
	if y < 0 || y >= len(tm.rows) || x < 0 || x >= len(tm.rows[y]) {
		return 0, false
	}
	return tm.rows[y][x], true
}

func (tm *TileMap) IsWalkable(p orb.Point) bool {
	id, ok := tm.Tile(p)
	return ok && tm.walkable[id]
}

func (tm *TileMap) String() string {
	return fmt.Sprintf("tilemap %dx%d at (%d,%d)", tm.width, len(tm.rows), tm.origin.X, tm.origin.Y)
}

// Obstacles blocks every cell of Base whose center lies inside an obstacle polygon.
type Obstacles struct {
	Base  Terrain
	index *ObstacleIndex
}

// WithObstacles wraps base with polygon obstacles.
func WithObstacles(base Terrain, polygons []orb.Polygon) *Obstacles {
	return &Obstacles{Base: base, index: NewObstacleIndex(polygons)}
}

func (o *Obstacles) Bounds() orb.Bound {
	return o.Base.Bounds()
}

func (o *Obstacles) IsWalkable(p orb.Point) bool {
	if !o.Base.IsWalkable(p) {
		return false
	}
	return !o.index.Blocked(graph.CellOf(p).Center())
}

// cellRange returns the integer cell span covering b.
func cellRange(b orb.Bound) (minX, minY, maxX, maxY int) {
	return int(math.Floor(b.Min[0])), int(math.Floor(b.Min[1])),
		int(math.Ceil(b.Max[0])), int(math.Ceil(b.Max[1]))
}
