package charger

// Set is the charger arena. Chargers are the routable nodes: cluster
// representatives and unclustered chargers. Members holds the chargers
// absorbed by clustering; each member's Representative indexes Chargers and
// each representative's Members index this slice.
type Set struct {
	Chargers []Charger `json:"chargers"`
	Members  []Charger `json:"members"`
}

// Len returns the number of routable chargers.
func (s *Set) Len() int { return len(s.Chargers) }

// MembersOf returns the chargers absorbed by Chargers[i].
func (s *Set) MembersOf(i int) []Charger {
	rep := &s.Chargers[i]
	out := make([]Charger, len(rep.Members))
	for k, m := range rep.Members {
		out[k] = s.Members[m]
	}
	return out
}

// RepresentativeOf returns the routable charger that absorbed Members[m].
func (s *Set) RepresentativeOf(m int) *Charger {
	return &s.Chargers[s.Members[m].Representative]
}

// Filter returns a new set holding the routable chargers for which keep
// returns true, together with their members. Arena links are reindexed.
func (s *Set) Filter(keep func(*Charger) bool) Set {
	var out Set
	for i := range s.Chargers {
		if !keep(&s.Chargers[i]) {
			continue
		}
		c := s.Chargers[i]
		rep := len(out.Chargers)
		c.Members = make([]int, 0, len(s.Chargers[i].Members))
		for _, m := range s.Chargers[i].Members {
			member := s.Members[m]
			member.Representative = rep
			c.Members = append(c.Members, len(out.Members))
			out.Members = append(out.Members, member)
		}
		out.Chargers = append(out.Chargers, c)
	}
	return out
}
