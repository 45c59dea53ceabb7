package charger

import (
	"slices"

	"github.com/azybler/ev_router/pkg/geo"
)

// ClusterConfig parameterizes DBSCAN.
type ClusterConfig struct {
	Epsilon        float64 // neighborhood radius, meters
	MinClusterSize int     // a core point needs this many points including itself
}

// DefaultClusterConfig returns a 30 m radius with pairs forming clusters.
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{Epsilon: 30, MinClusterSize: 2}
}

// Assign runs DBSCAN over chargers and returns the cluster of each one.
// Chargers already marked as clustered or noise keep their mark, so the
// output of Cluster assigns the same way again. New clusters are numbered
// after the highest existing one.
func Assign(chargers []Charger, cfg ClusterConfig) []ClusterID {
	ids := make([]ClusterID, len(chargers))
	next := ClusterID(0)
	for i := range chargers {
		ids[i] = chargers[i].Cluster
		if ids[i] >= next {
			next = ids[i] + 1
		}
	}

	queued := make([]bool, len(chargers))
	for i := range chargers {
		if ids[i] != Unclassified {
			continue
		}
		neighbors := regionQuery(chargers, i, cfg.Epsilon)
		if len(neighbors)+1 < cfg.MinClusterSize {
			ids[i] = Noise
			continue
		}

		ids[i] = next
		queued[i] = true
		for _, n := range neighbors {
			queued[n] = true
		}
		for k := 0; k < len(neighbors); k++ {
			n := neighbors[k]
			if ids[n] == Noise {
				// Border point: joins, but cannot expand.
				ids[n] = next
				continue
			}
			if ids[n] != Unclassified {
				continue
			}
			ids[n] = next

			sub := regionQuery(chargers, n, cfg.Epsilon)
			if len(sub)+1 < cfg.MinClusterSize {
				continue
			}
			for _, s := range sub {
				if !queued[s] {
					queued[s] = true
					neighbors = append(neighbors, s)
				}
			}
		}
		next++
	}
	return ids
}

// regionQuery returns the indices of all other chargers closer than eps to chargers[i].
func regionQuery(chargers []Charger, i int, eps float64) []int {
	var out []int
	for j := range chargers {
		if j != i && geo.Distance(chargers[i].Location, chargers[j].Location) < eps {
			out = append(out, j)
		}
	}
	return out
}

// Compress collapses every cluster of in into its first member. The
// representative takes the union of the member plugs and the summed total
// power; the other members move into the arena. Noise chargers stay
// routable as they are, and members a charger already absorbed follow it.
func Compress(in Set, ids []ClusterID) Set {
	var s Set
	reps := make(map[ClusterID]int)

	for i := range in.Chargers {
		own := in.MembersOf(i)
		c := in.Chargers[i]
		c.Cluster = ids[i]
		c.Plugs = slices.Clone(c.Plugs)
		c.Members = nil
		c.Representative = NoRepresentative

		r, ok := reps[ids[i]]
		if ids[i] < 0 || !ok {
			r = len(s.Chargers)
			if ids[i] >= 0 {
				reps[ids[i]] = r
			}
			s.Chargers = append(s.Chargers, c)
		} else {
			rep := &s.Chargers[r]
			rep.Plugs = append(rep.Plugs, c.Plugs...)
			rep.TotalPower += c.TotalPower
			rep.FastCharger = rep.FastCharger || c.FastCharger
			c.Representative = r
			s.adopt(r, c)
		}

		// Already counted in c's plugs and power.
		for _, m := range own {
			m.Cluster = ids[i]
			m.Representative = r
			s.adopt(r, m)
		}
	}

	for _, r := range reps {
		rep := &s.Chargers[r]
		rep.Plugs = NormalizePlugs(rep.Plugs)
		rep.recomputePower()
	}
	return s
}

// adopt appends m to the arena as a member of Chargers[r].
func (s *Set) adopt(r int, m Charger) {
	s.Chargers[r].Members = append(s.Chargers[r].Members, len(s.Members))
	s.Members = append(s.Members, m)
}

// Cluster runs Assign then Compress over the routable chargers of s.
// Clustering its own output returns an equivalent set.
func Cluster(s Set, cfg ClusterConfig) Set {
	return Compress(s, Assign(s.Chargers, cfg))
}
