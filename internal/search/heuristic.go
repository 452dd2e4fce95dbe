package search

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb/planar"

	"tile-planner/internal/graph"
)

// Heuristic estimates the remaining cost from a node to the goal it was built for.
type Heuristic interface {
	Estimate(from *graph.Node) float64
}

// Euclidean is the straight line distance between node centers.
type Euclidean struct {
	goal *graph.Node
}

// NewEuclidean returns a Euclidean heuristic towards goal.
func NewEuclidean(goal *graph.Node) Euclidean {
	return Euclidean{goal: goal}
}

func (h Euclidean) Estimate(from *graph.Node) float64 {
	return planar.Distance(from.Center, h.goal.Center)
}

// Manhattan is |dx| + |dy| between node centers. It is admissible on a
// 4-connected grid with unit steps.
type Manhattan struct {
	goal *graph.Node
}

// NewManhattan returns a Manhattan heuristic towards goal.
func NewManhattan(goal *graph.Node) Manhattan {
	return Manhattan{goal: goal}
}

func (h Manhattan) Estimate(from *graph.Node) float64 {
	return manhattan(from, h.goal)
}

func manhattan(a, b *graph.Node) float64 {
	return math.Abs(a.Center[0]-b.Center[0]) + math.Abs(a.Center[1]-b.Center[1])
}

// Tactical subtracts weight times the node's tactical benefit from the Manhattan
// estimate. It is not admissible: routes lean towards beneficial nodes and away
// from penalised ones at the price of shortest-path optimality.
type Tactical struct {
	goal   *graph.Node
	weight float64
}

// NewTactical returns a tactical heuristic towards goal.
func NewTactical(goal *graph.Node, weight float64) Tactical {
	return Tactical{goal: goal, weight: weight}
}

func (h Tactical) Estimate(from *graph.Node) float64 {
	return manhattan(from, h.goal) - h.weight*from.TacticalBenefit
}

// Kind names a heuristic variant.
type Kind string

const (
	KindManhattan Kind = "manhattan"
	KindEuclidean Kind = "euclidean"
	KindTactical  Kind = "tactical"
)

// ParseKind maps a name to a Kind. The empty string selects Manhattan.
func ParseKind(name string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(name))); k {
	case "":
		return KindManhattan, nil
	case KindManhattan, KindEuclidean, KindTactical:
		return k, nil
	default:
		return "", fmt.Errorf("unknown heuristic %q", name)
	}
}

// Factory builds heuristics of kind k for arbitrary goals. weight only applies to
// the tactical variant.
func (k Kind) Factory(weight float64) func(goal *graph.Node) Heuristic {
	switch k {
	case KindEuclidean:
		return func(goal *graph.Node) Heuristic { return NewEuclidean(goal) }
	case KindTactical:
		return func(goal *graph.Node) Heuristic { return NewTactical(goal, weight) }
	default:
		return func(goal *graph.Node) Heuristic { return NewManhattan(goal) }
	}
}
