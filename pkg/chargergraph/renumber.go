package chargergraph

import (
	"slices"

	"github.com/azybler/ev_router/pkg/charger"
)

// Mapping translates the ids chargers carried before renumbering into their
// dense indices.
type Mapping struct {
	index map[uint32]uint32
	ids   []uint32
}

// Index returns the dense index of a former id.
func (m Mapping) Index(id uint32) (uint32, bool) {
	i, ok := m.index[id]
	return i, ok
}

// ID returns the former id of dense index i.
func (m Mapping) ID(i uint32) uint32 { return m.ids[i] }

// Len is the number of mapped chargers.
func (m Mapping) Len() int { return len(m.ids) }

// Renumber gives the routable chargers of set the ids 0..n-1 in slice order
// and the absorbed members the ids after that. Edges are translated to the
// new ids; edges touching unknown chargers are dropped. The inputs are not
// modified.
func Renumber(set charger.Set, edges []Edge) (charger.Set, []Edge, Mapping) {
	out := charger.Set{
		Chargers: slices.Clone(set.Chargers),
		Members:  slices.Clone(set.Members),
	}
	m := Mapping{
		index: make(map[uint32]uint32, len(out.Chargers)),
		ids:   make([]uint32, len(out.Chargers)),
	}
	for i := range out.Chargers {
		m.index[out.Chargers[i].ID] = uint32(i)
		m.ids[i] = out.Chargers[i].ID
		out.Chargers[i].ID = uint32(i)
	}
	for i := range out.Members {
		out.Members[i].ID = uint32(len(out.Chargers) + i)
	}

	renumbered := make([]Edge, 0, len(edges))
	for _, e := range edges {
		start, ok := m.index[e.Start]
		if !ok {
			continue
		}
		end, ok := m.index[e.End]
		if !ok {
			continue
		}
		e.Start, e.End = start, end
		renumbered = append(renumbered, e)
	}
	if !slices.IsSortedFunc(renumbered, Edge.Compare) {
		slices.SortStableFunc(renumbered, Edge.Compare)
	}
	return out, renumbered, m
}
