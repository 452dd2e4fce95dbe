package search

import (
	"github.com/tidwall/btree"

	"tile-planner/internal/graph"
)

// Record is the bookkeeping A* keeps for one node during a single search.
type Record struct {
	Node *graph.Node
	// Connection is the edge used to reach Node, nil for the start node.
	Connection         *graph.Connection
	CostSoFar          float64
	EstimatedTotalCost float64

	seq uint64 // insertion order, breaks ties between equal estimates
}

// heuristicPart returns the share of the estimate that is not travelled cost.
func (r *Record) heuristicPart() float64 {
	return r.EstimatedTotalCost - r.CostSoFar
}

// List is an open or closed list: records ordered by estimated total cost and
// indexed by node. It holds at most one record per node.
//
// A record's costs must not change while it is stored; remove it, update it and
// add it back.
type List struct {
	tree  *btree.BTreeG[*Record]
	index map[graph.Key]*Record
	seq   uint64
}

// NewList returns an empty list.
func NewList() *List {
	return &List{
		tree:  btree.NewBTreeG[*Record](recordLess),
		index: make(map[graph.Key]*Record),
	}
}

func recordLess(a, b *Record) bool {
	if a.EstimatedTotalCost != b.EstimatedTotalCost {
		return a.EstimatedTotalCost < b.EstimatedTotalCost
	}
	return a.seq < b.seq
}

// SmallestElement removes and returns the record with the lowest estimated total
// cost, or nil when the list is empty.
func (l *List) SmallestElement() *Record {
	r, ok := l.tree.PopMin()
	if !ok {
		return nil
	}
	delete(l.index, r.Node.Key())
	return r
}

// Contains reports whether a record for n is stored.
func (l *List) Contains(n *graph.Node) bool {
	_, ok := l.index[n.Key()]
	return ok
}

// Find returns the stored record for n, or nil.
func (l *List) Find(n *graph.Node) *Record {
	return l.index[n.Key()]
}

// Add stores r, replacing any record previously stored for the same node.
func (l *List) Add(r *Record) {
	if old, ok := l.index[r.Node.Key()]; ok {
		l.tree.Delete(old)
	}
	l.seq++
	r.seq = l.seq
	l.tree.Set(r)
	l.index[r.Node.Key()] = r
}

// Remove deletes r if it is the record stored for its node.
func (l *List) Remove(r *Record) {
	key := r.Node.Key()
	if l.index[key] != r {
		return
	}
	l.tree.Delete(r)
	delete(l.index, key)
}

// Len returns the number of stored records.
func (l *List) Len() int {
	return len(l.index)
}
