package chargergraph

import (
	"math"
	"runtime"
	"slices"
	"sync"

	"github.com/azybler/ev_router/pkg/energy"
)

// Unreached is the predecessor of nodes a search never reached.
const Unreached = ^uint32(0)

// ReachableStart is a charger the query start can drive to directly.
type ReachableStart struct {
	Charger          uint32
	Duration         float64 // seconds from the query start
	ChargingTime     float64 // seconds to recharge what the drive used
	DrivingFactor    float64
	ResistanceFactor float64
}

// Weight is the search weight the start node is seeded with.
func (s ReachableStart) Weight() float64 { return s.Duration + s.ChargingTime }

// ReachableEnd is a charger from which the query end can be reached directly.
type ReachableEnd struct {
	Charger          uint32
	Duration         float64 // seconds to the query end
	DrivingFactor    float64
	ResistanceFactor float64
}

// Tree is a shortest-path tree over the charger graph.
type Tree struct {
	Start            uint32
	Weight           []float64 // +Inf when unreached
	Pred             []uint32  // Unreached when unreached; Pred[Start] == Start
	DrivingFactor    []float64
	ResistanceFactor []float64
}

// Path returns the nodes from the tree's start to end, or nil when end was
// not reached.
func (t *Tree) Path(end uint32) []uint32 {
	var path []uint32
	for cur := end; ; {
		path = append(path, cur)
		if cur == t.Start {
			break
		}
		cur = t.Pred[cur]
		if cur == Unreached || len(path) > len(t.Pred) {
			return nil
		}
	}
	slices.Reverse(path)
	return path
}

// ShortestPathTree runs Dijkstra from start. Relaxing an edge adds its drive
// time and the time needed to recharge its consumption at the target's max
// power. The search runs until every reachable node is settled.
func (g *Graph) ShortestPathTree(start ReachableStart, m ConsumptionModel) *Tree {
	return g.buildTree(start, m, g.newFrontier())
}

func (g *Graph) buildTree(start ReachableStart, m ConsumptionModel, f Frontier) *Tree {
	n := g.NumChargers()
	t := &Tree{
		Start:            start.Charger,
		Weight:           make([]float64, n),
		Pred:             make([]uint32, n),
		DrivingFactor:    make([]float64, n),
		ResistanceFactor: make([]float64, n),
	}
	for i := range t.Weight {
		t.Weight[i] = math.Inf(1)
		t.Pred[i] = Unreached
	}

	s := start.Charger
	t.Weight[s] = start.Weight()
	t.Pred[s] = s
	t.DrivingFactor[s] = start.DrivingFactor
	t.ResistanceFactor[s] = start.ResistanceFactor

	f.Reset(n)
	f.Update(s, t.Weight[s])
	for {
		u, ok := f.PopMin()
		if !ok {
			break
		}
		for _, e := range g.EdgesFrom(u) {
			if math.IsInf(e.Weight, 1) {
				continue
			}
			w := t.Weight[u] + e.Weight + energy.ChargingTime(e.Consumption(m), g.set.Chargers[e.End].MaxPower)
			if w < t.Weight[e.End] {
				t.Weight[e.End] = w
				t.Pred[e.End] = u
				t.DrivingFactor[e.End] = t.DrivingFactor[u] + e.DrivingFactor
				t.ResistanceFactor[e.End] = t.ResistanceFactor[u] + e.ResistanceFactor
				f.Update(e.End, w)
			}
		}
	}
	return t
}

// Result is the outcome of ShortestPath. Found is false when no start
// reaches any end.
type Result struct {
	Found  bool
	Path   []uint32 // charger nodes, first start to last end
	Weight float64  // seconds including charging and both query legs

	DrivingFactor    float64
	ResistanceFactor float64
}

// ShortestPath picks the best path over all start and end candidates. One
// tree is built per start, in parallel. Exact ties keep whichever path was
// found first, which depends on scheduling.
func (g *Graph) ShortestPath(starts []ReachableStart, ends []ReachableEnd, m ConsumptionModel) Result {
	best := Result{Weight: math.Inf(1)}
	var mu sync.Mutex

	sem := make(chan struct{}, runtime.GOMAXPROCS(0))
	var wg sync.WaitGroup
	for _, start := range starts {
		if int(start.Charger) >= g.NumChargers() {
			continue
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(start ReachableStart) {
			defer wg.Done()
			defer func() { <-sem }()

			tree := g.buildTree(start, m, g.newFrontier())
			for _, end := range ends {
				if int(end.Charger) >= g.NumChargers() {
					continue
				}
				path := tree.Path(end.Charger)
				if path == nil {
					continue
				}
				total := tree.Weight[end.Charger] + end.Duration

				mu.Lock()
				if total < best.Weight {
					best = Result{
						Found:            true,
						Path:             path,
						Weight:           total,
						DrivingFactor:    tree.DrivingFactor[end.Charger] + end.DrivingFactor,
						ResistanceFactor: tree.ResistanceFactor[end.Charger] + end.ResistanceFactor,
					}
				}
				mu.Unlock()
			}
		}(start)
	}
	wg.Wait()
	return best
}
