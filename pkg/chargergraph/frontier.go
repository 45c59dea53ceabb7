package chargergraph

import (
	"math"

	"github.com/azybler/ev_router/pkg/routing"
)

// Frontier holds the tentative weights of a single-source search and hands
// out the next node to settle.
type Frontier interface {
	// Reset prepares the frontier for a graph of n nodes, all unreached.
	Reset(n int)
	// Update lowers the tentative weight of an unsettled node.
	Update(node uint32, weight float64)
	// PopMin settles and returns the unsettled node with the smallest finite
	// weight. ok is false once no such node is left.
	PopMin() (node uint32, ok bool)
}

// LinearFrontier scans all nodes on every PopMin. Charger graphs are small
// enough that this beats a heap's bookkeeping. Ties go to the lowest node.
type LinearFrontier struct {
	weight  []float64
	settled []bool
}

// Reset marks all n nodes unreached and unsettled.
func (f *LinearFrontier) Reset(n int) {
	f.weight = resetWeights(f.weight, n)
	f.settled = resetSettled(f.settled, n)
}

// Update lowers the weight of node if it is unsettled.
func (f *LinearFrontier) Update(node uint32, weight float64) {
	if !f.settled[node] && weight < f.weight[node] {
		f.weight[node] = weight
	}
}

// PopMin settles the lightest finite node by scanning all of them.
func (f *LinearFrontier) PopMin() (uint32, bool) {
	best := -1
	bestWeight := math.Inf(1)
	for i, w := range f.weight {
		if !f.settled[i] && w < bestWeight {
			best, bestWeight = i, w
		}
	}
	if best < 0 {
		return 0, false
	}
	f.settled[best] = true
	return uint32(best), true
}

// HeapFrontier keeps a lazy binary heap; stale entries are skipped on pop.
type HeapFrontier struct {
	heap    routing.MinHeap
	weight  []float64
	settled []bool
}

// Reset marks all n nodes unreached and unsettled.
func (f *HeapFrontier) Reset(n int) {
	f.heap.Reset()
	f.weight = resetWeights(f.weight, n)
	f.settled = resetSettled(f.settled, n)
}

// Update lowers the weight of node if it is unsettled.
func (f *HeapFrontier) Update(node uint32, weight float64) {
	if !f.settled[node] && weight < f.weight[node] {
		f.weight[node] = weight
		f.heap.Push(node, weight)
	}
}

// PopMin settles the lightest finite node, dropping stale heap entries.
func (f *HeapFrontier) PopMin() (uint32, bool) {
	for f.heap.Len() > 0 {
		item := f.heap.Pop()
		if f.settled[item.Node] || item.Dist > f.weight[item.Node] {
			continue
		}
		f.settled[item.Node] = true
		return item.Node, true
	}
	return 0, false
}

func resetWeights(w []float64, n int) []float64 {
	if cap(w) < n {
		w = make([]float64, n)
	}
	w = w[:n]
	for i := range w {
		w[i] = math.Inf(1)
	}
	return w
}

func resetSettled(s []bool, n int) []bool {
	if cap(s) < n {
		return make([]bool, n)
	}
	s = s[:n]
	clear(s)
	return s
}
