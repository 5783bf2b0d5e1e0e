package planner

import (
	"container/heap"

	"hexplan.ai/internal/goap/facts"
)

type node struct {
	state *facts.State
	g     float64
	f     float64
	path  []int
	seq   uint64
}

// openSet orders by lower f, then lower g, then push order.
type openSet []*node

func (q openSet) Len() int { return len(q) }

func (q openSet) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.g != b.g {
		return a.g < b.g
	}
	return a.seq < b.seq
}

func (q openSet) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *openSet) Push(x any) { *q = append(*q, x.(*node)) }

func (q *openSet) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return it
}

func (q *openSet) push(n *node) { heap.Push(q, n) }
func (q *openSet) pop() *node   { return heap.Pop(q).(*node) }
