package dag

import "sort"

// Track is an independent subset of the DAG whose nodes share no
// dependencies with nodes in other tracks. Tracks can be handed to
// different executors in parallel.
type Track struct {
	// ID is assigned after sorting, starting at 0.
	ID int

	// NodeIDs lists the track's nodes in topological order.
	NodeIDs []string
}

// ComputeTracks partitions the DAG into independent tracks. Nodes listed in
// exclude, and the edges touching them, are left out of the partition; this
// is how fan-in sinks such as an aggregation node are separated from the
// chains that feed them. Each remaining node gets its Node.TrackID set.
//
// Tracks are ordered by the highest node priority they contain, then by
// size, then by first node ID. Returns an error if the DAG contains a cycle.
func (d *DAG) ComputeTracks(exclude ...string) ([]Track, error) {
	if len(d.nodes) == 0 {
		return nil, nil
	}

	topoOrder, err := d.TopologicalSort()
	if err != nil {
		return nil, err
	}
	topoPos := make(map[string]int, len(topoOrder))
	for i, id := range topoOrder {
		topoPos[id] = i
	}

	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	ds := newDisjointSet()
	for id := range d.nodes {
		if !skip[id] {
			ds.add(id)
		}
	}
	for from, deps := range d.adjacency {
		if skip[from] {
			continue
		}
		for to := range deps {
			if !skip[to] {
				ds.union(from, to)
			}
		}
	}

	components := ds.components()
	tracks := make([]Track, 0, len(components))
	for _, members := range components {
		sort.Slice(members, func(i, j int) bool {
			return topoPos[members[i]] < topoPos[members[j]]
		})
		tracks = append(tracks, Track{NodeIDs: members})
	}

	maxPriority := func(tr Track) int {
		best := d.nodes[tr.NodeIDs[0]].Priority
		for _, id := range tr.NodeIDs[1:] {
			if p := d.nodes[id].Priority; p > best {
				best = p
			}
		}
		return best
	}
	sort.Slice(tracks, func(i, j int) bool {
		pi, pj := maxPriority(tracks[i]), maxPriority(tracks[j])
		if pi != pj {
			return pi > pj
		}
		if len(tracks[i].NodeIDs) != len(tracks[j].NodeIDs) {
			return len(tracks[i].NodeIDs) > len(tracks[j].NodeIDs)
		}
		return tracks[i].NodeIDs[0] < tracks[j].NodeIDs[0]
	})

	for i := range tracks {
		tracks[i].ID = i
		for _, id := range tracks[i].NodeIDs {
			d.nodes[id].TrackID = i
		}
	}
	return tracks, nil
}

// disjointSet is a union-find over node IDs with path compression and
// union by rank.
type disjointSet struct {
	parent map[string]string
	rank   map[string]int
}

func newDisjointSet() *disjointSet {
	return &disjointSet{
		parent: make(map[string]string),
		rank:   make(map[string]int),
	}
}

func (s *disjointSet) add(x string) {
	if _, ok := s.parent[x]; !ok {
		s.parent[x] = x
	}
}

func (s *disjointSet) find(x string) string {
	s.add(x)
	if s.parent[x] != x {
		s.parent[x] = s.find(s.parent[x])
	}
	return s.parent[x]
}

func (s *disjointSet) union(x, y string) {
	rx, ry := s.find(x), s.find(y)
	if rx == ry {
		return
	}
	switch {
	case s.rank[rx] < s.rank[ry]:
		s.parent[rx] = ry
	case s.rank[rx] > s.rank[ry]:
		s.parent[ry] = rx
	default:
		s.parent[ry] = rx
		s.rank[rx]++
	}
}

// components groups members by representative. Member order is unspecified.
func (s *disjointSet) components() map[string][]string {
	groups := make(map[string][]string)
	for x := range s.parent {
		root := s.find(x)
		groups[root] = append(groups[root], x)
	}
	return groups
}
