package routing

import "math"

// noEdge marks a seed node, one that was entered from an anchor rather than
// through an edge.
const noEdge = ^uint32(0)

// MinHeap is a concrete-typed min-heap for the Dijkstra priority queue.
// Avoids interface boxing overhead of container/heap.
type MinHeap struct {
	items []PQItem
}

// PQItem is a priority queue entry.
type PQItem struct {
	Node uint32
	Dist float64
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node uint32, dist float64) {
	h.items = append(h.items, PQItem{node, dist})
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *MinHeap) PeekDist() float64 {
	if len(h.items) == 0 {
		return math.Inf(1)
	}
	return h.items[0].Dist
}

func (h *MinHeap) Reset() {
	h.items = h.items[:0]
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].Dist >= h.items[parent].Dist {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left, right := 2*i+1, 2*i+2
		if left < n && h.items[left].Dist < h.items[smallest].Dist {
			smallest = left
		}
		if right < n && h.items[right].Dist < h.items[smallest].Dist {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// costs is the cost vector carried along a search. Duration is the key the
// search minimizes; the rest ride along for reporting.
type costs struct {
	Duration         float64
	Distance         float64
	DrivingFactor    float64
	ResistanceFactor float64
}

func (c costs) add(o costs) costs {
	return costs{
		Duration:         c.Duration + o.Duration,
		Distance:         c.Distance + o.Distance,
		DrivingFactor:    c.DrivingFactor + o.DrivingFactor,
		ResistanceFactor: c.ResistanceFactor + o.ResistanceFactor,
	}
}

func (c costs) scale(f float64) costs {
	return costs{
		Duration:         c.Duration * f,
		Distance:         c.Distance * f,
		DrivingFactor:    c.DrivingFactor * f,
		ResistanceFactor: c.ResistanceFactor * f,
	}
}

// searchState holds per-query state of a one-to-many Dijkstra. Only touched
// entries are reset between queries.
type searchState struct {
	dist    []float64
	acc     []costs
	pred    []uint32 // edge used to enter the node, noEdge for seeds
	settled []bool
	touched []uint32
	pq      MinHeap
}

func newSearchState(n uint32) *searchState {
	s := &searchState{
		dist:    make([]float64, n),
		acc:     make([]costs, n),
		pred:    make([]uint32, n),
		settled: make([]bool, n),
		touched: make([]uint32, 0, 1024),
		pq:      MinHeap{items: make([]PQItem, 0, 256)},
	}
	for i := range s.dist {
		s.dist[i] = math.Inf(1)
		s.pred[i] = noEdge
	}
	return s
}

func (s *searchState) reset() {
	for _, node := range s.touched {
		s.dist[node] = math.Inf(1)
		s.acc[node] = costs{}
		s.pred[node] = noEdge
		s.settled[node] = false
	}
	s.touched = s.touched[:0]
	s.pq.Reset()
}

// relax records c as the best way to node if it improves on the current one.
func (s *searchState) relax(node uint32, c costs, via uint32) {
	if c.Duration >= s.dist[node] {
		return
	}
	if math.IsInf(s.dist[node], 1) {
		s.touched = append(s.touched, node)
	}
	s.dist[node] = c.Duration
	s.acc[node] = c
	s.pred[node] = via
	s.pq.Push(node, c.Duration)
}
