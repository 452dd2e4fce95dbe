package search

import (
	"errors"
	"fmt"

	"tile-planner/internal/graph"
)

// ErrNotFound is returned when the open list runs dry before reaching the goal.
var ErrNotFound = errors.New("no path exists")

// Result is a successful search: the connections from start to goal in order.
type Result struct {
	Path     []graph.Connection
	Cost     float64
	Expanded int // nodes moved to the closed list
	Reopened int // closed nodes moved back to open after a cheaper route
}

// AStar searches g from start to goal. Closed nodes are reopened when a cheaper
// route to them shows up, so inconsistent heuristics still terminate with a valid
// path. Failing to reach goal returns ErrNotFound; a node missing from g's tables
// returns an error wrapping graph.ErrUnregisteredNode.
func AStar(g *graph.LevelGraph, start, goal *graph.Node, h Heuristic) (Result, error) {
	var res Result

	open := NewList()
	closed := NewList()
	open.Add(&Record{Node: start, CostSoFar: 0, EstimatedTotalCost: h.Estimate(start)})

	var current *Record
	for open.Len() > 0 {
		current = open.SmallestElement()
		if current.Node.Equal(goal) {
			break
		}

		conns, err := g.GetConnections(current.Node)
		if err != nil {
			return res, fmt.Errorf("expanding %s: %w", current.Node, err)
		}

		for i := range conns {
			conn := &conns[i]
			endNode := conn.To
			endNodeCost := current.CostSoFar + conn.Cost

			var endNodeRecord *Record
			var endNodeHeuristic float64

			if endNodeRecord = closed.Find(endNode); endNodeRecord != nil {
				if endNodeRecord.CostSoFar <= endNodeCost {
					continue
				}
				closed.Remove(endNodeRecord)
				endNodeHeuristic = endNodeRecord.heuristicPart()
				res.Reopened++
			} else if endNodeRecord = open.Find(endNode); endNodeRecord != nil {
				if endNodeRecord.CostSoFar <= endNodeCost {
					continue
				}
				// Re-keyed below with its improved estimate.
				open.Remove(endNodeRecord)
				endNodeHeuristic = endNodeRecord.heuristicPart()
			} else {
				endNodeRecord = &Record{Node: endNode}
				endNodeHeuristic = h.Estimate(endNode)
			}

			endNodeRecord.CostSoFar = endNodeCost
			endNodeRecord.Connection = conn
			endNodeRecord.EstimatedTotalCost = endNodeCost + endNodeHeuristic
			open.Add(endNodeRecord)
		}

		closed.Add(current)
		res.Expanded++
	}

	if current == nil || !current.Node.Equal(goal) {
		return res, ErrNotFound
	}

	// Walk predecessor connections back to start, then reverse.
	path := make([]graph.Connection, 0, 32)
	for !current.Node.Equal(start) {
		path = append(path, *current.Connection)
		from := current.Connection.From
		// A reopened predecessor may still sit in the open list.
		if current = closed.Find(from); current == nil {
			current = open.Find(from)
		}
		if current == nil {
			return res, fmt.Errorf("reconstructing path: no record for %s", from)
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	res.Path = path
	res.Cost = graph.PathCost(path)
	return res, nil
}
