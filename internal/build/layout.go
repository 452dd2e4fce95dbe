package build

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ErrInvalidLayout is wrapped by every region layout validation failure.
var ErrInvalidLayout = errors.New("invalid region layout")

// Region is one axis-aligned rectangle of a layout level in world coordinates.
type Region struct {
	Bounds orb.Bound
	Center orb.Point
}

// NewRegion returns a region centered on the middle of b.
func NewRegion(b orb.Bound) Region {
	return Region{Bounds: b, Center: b.Center()}
}

// Layout lists the regions of every level above the tile grid: Layout[0] holds
// level 1.
type Layout [][]Region

// Levels returns the number of region levels.
func (l Layout) Levels() int {
	return len(l)
}

// Validate checks that every region has a finite, positive area and that centers
// are unique within a level. All problems are reported together.
func (l Layout) Validate() error {
	var errs []error
	for i, regions := range l {
		level := i + 1
		seen := make(map[orb.Point]int, len(regions))
		for j, r := range regions {
			if !finite(r.Bounds.Min) || !finite(r.Bounds.Max) || !finite(r.Center) {
				errs = append(errs, fmt.Errorf("%w: level %d region %d has non-finite coordinates", ErrInvalidLayout, level, j))
				continue
			}
			if r.Bounds.Max[0] <= r.Bounds.Min[0] || r.Bounds.Max[1] <= r.Bounds.Min[1] {
				errs = append(errs, fmt.Errorf("%w: level %d region %d has empty bounds %v", ErrInvalidLayout, level, j, r.Bounds))
				continue
			}
			if prev, ok := seen[r.Center]; ok {
				errs = append(errs, fmt.Errorf("%w: level %d regions %d and %d share center %v", ErrInvalidLayout, level, prev, j, r.Center))
				continue
			}
			seen[r.Center] = j
		}
	}
	return errors.Join(errs...)
}

func finite(p orb.Point) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// GridLayout tiles extent with square blocks: level L uses blocks of block^L cells
// per side, clipped to the extent. It returns nil when block < 2 or levels < 1.
func GridLayout(extent orb.Bound, block, levels int) Layout {
	if block < 2 || levels < 1 {
		return nil
	}
	minX, minY, maxX, maxY := cellRange(extent)

	layout := make(Layout, 0, levels)
	size := 1
	for range levels {
		size *= block
		var regions []Region
		for y := minY; y < maxY; y += size {
			for x := minX; x < maxX; x += size {
				regions = append(regions, NewRegion(orb.Bound{
					Min: orb.Point{float64(x), float64(y)},
					Max: orb.Point{float64(min(x+size, maxX)), float64(min(y+size, maxY))},
				}))
			}
		}
		layout = append(layout, regions)
	}
	return layout
}
