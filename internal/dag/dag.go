// Package dag provides a directed acyclic graph engine for modeling task
// dependencies. It supports cycle rejection at insertion time, topological
// ordering, dependency waves, transitive dependency queries, and
// partitioning into independent tracks.
package dag

import (
	"errors"
	"fmt"
	"sort"
)

// ErrCycle is returned when the graph contains a dependency cycle.
var ErrCycle = errors.New("cycle detected")

// ErrNodeNotFound is returned when an operation references a non-existent node.
var ErrNodeNotFound = errors.New("node not found")

// ErrDuplicateNode is returned when adding a node that already exists.
var ErrDuplicateNode = errors.New("duplicate node")

// ErrSelfEdge is returned when an edge would create a self-loop.
var ErrSelfEdge = errors.New("self-referencing edge")

// Node is a vertex of the DAG.
type Node struct {
	ID       string
	Priority int            // higher value = earlier among peers
	Metadata map[string]any // arbitrary key-value data

	// TrackID is assigned by ComputeTracks.
	TrackID int
}

// DAG is a directed acyclic graph of tasks. Edges point from a node to its
// dependencies: if A depends on B, there is an edge from A to B.
type DAG struct {
	nodes map[string]*Node
	// adjacency maps nodeID → set of dependency IDs (forward edges).
	adjacency map[string]map[string]bool
	// reverse maps nodeID → set of dependent IDs (backward edges).
	reverse map[string]map[string]bool
}

// New creates an empty DAG.
func New() *DAG {
	return &DAG{
		nodes:     make(map[string]*Node),
		adjacency: make(map[string]map[string]bool),
		reverse:   make(map[string]map[string]bool),
	}
}

// AddNode adds a node with the given ID and priority. Returns
// ErrDuplicateNode if a node with that ID already exists.
func (d *DAG) AddNode(id string, priority int) error {
	if _, exists := d.nodes[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}
	d.nodes[id] = &Node{
		ID:       id,
		Priority: priority,
		Metadata: make(map[string]any),
	}
	d.adjacency[id] = make(map[string]bool)
	d.reverse[id] = make(map[string]bool)
	return nil
}

// AddEdge records that from depends on to. Both nodes must already exist.
// Returns an error if either node is missing, the edge would be a
// self-loop, or the edge would close a cycle.
func (d *DAG) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfEdge, from)
	}
	if _, ok := d.nodes[from]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	if _, ok := d.nodes[to]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, to)
	}
	if d.adjacency[from][to] {
		return nil
	}
	// A path to → ... → from plus the new edge from → to would be a cycle.
	if d.hasPath(to, from) {
		return fmt.Errorf("%w: edge %s → %s would create a cycle", ErrCycle, from, to)
	}
	d.adjacency[from][to] = true
	d.reverse[to][from] = true
	return nil
}

// Node returns the node with the given ID, or nil if not found.
func (d *DAG) Node(id string) *Node {
	return d.nodes[id]
}

// Nodes returns all node IDs, sorted alphabetically.
func (d *DAG) Nodes() []string {
	ids := make([]string, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of nodes.
func (d *DAG) Len() int {
	return len(d.nodes)
}

// Dependencies returns the direct dependencies of id, sorted alphabetically.
func (d *DAG) Dependencies(id string) []string {
	return sortedKeys(d.adjacency[id])
}

// Dependents returns the nodes that directly depend on id, sorted
// alphabetically.
func (d *DAG) Dependents(id string) []string {
	return sortedKeys(d.reverse[id])
}

// Roots returns the nodes with no dependencies, sorted alphabetically.
func (d *DAG) Roots() []string {
	var out []string
	for id, deps := range d.adjacency {
		if len(deps) == 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Sinks returns the nodes nothing depends on, sorted alphabetically.
func (d *DAG) Sinks() []string {
	var out []string
	for id, dependents := range d.reverse {
		if len(dependents) == 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// TopologicalSort returns node IDs in a valid topological order
// (dependencies come before dependents). Among nodes freed at the same
// time, higher-priority nodes appear first. Returns ErrCycle if the graph
// contains a cycle.
func (d *DAG) TopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(d.nodes))
	for id := range d.nodes {
		inDegree[id] = len(d.adjacency[id])
	}

	queue := d.prioritySorted(d.zeroDegreeNodes(inDegree))

	sorted := make([]string, 0, len(d.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)

		var freed []string
		for dependent := range d.reverse[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				freed = append(freed, dependent)
			}
		}
		if len(freed) > 0 {
			queue = append(queue, d.prioritySorted(freed)...)
		}
	}

	if len(sorted) != len(d.nodes) {
		return nil, fmt.Errorf("%w: not all nodes could be ordered (%d of %d)",
			ErrCycle, len(sorted), len(d.nodes))
	}
	return sorted, nil
}

// Wave is a group of nodes whose dependencies all lie in earlier waves.
type Wave struct {
	Number  int      // 0-based wave number
	NodeIDs []string // priority order, alphabetical tiebreak
}

// ComputeWaves groups nodes into dependency waves using Kahn's algorithm.
// Wave 0 holds nodes without dependencies, wave 1 the nodes whose
// dependencies are all in wave 0, and so on. Returns nil for an empty
// graph and ErrCycle if a cycle is present.
func (d *DAG) ComputeWaves() ([]Wave, error) {
	if len(d.nodes) == 0 {
		return nil, nil
	}
	inDegree := make(map[string]int, len(d.nodes))
	for id := range d.nodes {
		inDegree[id] = len(d.adjacency[id])
	}

	current := d.prioritySorted(d.zeroDegreeNodes(inDegree))
	var waves []Wave
	visited := 0
	for len(current) > 0 {
		waves = append(waves, Wave{Number: len(waves), NodeIDs: current})
		visited += len(current)

		var next []string
		for _, id := range current {
			for dependent := range d.reverse[id] {
				inDegree[dependent]--
				if inDegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		current = d.prioritySorted(next)
	}

	if visited != len(d.nodes) {
		return nil, fmt.Errorf("%w: not all nodes could be grouped into waves", ErrCycle)
	}
	return waves, nil
}

// Ancestors returns all transitive dependencies of the given node, sorted
// alphabetically. Returns nil if the node does not exist.
func (d *DAG) Ancestors(id string) []string {
	if _, ok := d.nodes[id]; !ok {
		return nil
	}
	visited := make(map[string]bool)
	d.walk(id, d.adjacency, visited)
	return sortedKeys(visited)
}

// hasPath reports whether there is a directed path from src to dst
// through the dependency graph (forward edges).
func (d *DAG) hasPath(src, dst string) bool {
	if src == dst {
		return false
	}
	visited := make(map[string]bool)
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dep := range d.adjacency[cur] {
			if dep == dst {
				return true
			}
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return false
}

// walk collects every node reachable from id through edges.
func (d *DAG) walk(id string, edges map[string]map[string]bool, visited map[string]bool) {
	for next := range edges[id] {
		if !visited[next] {
			visited[next] = true
			d.walk(next, edges, visited)
		}
	}
}

func (d *DAG) zeroDegreeNodes(inDegree map[string]int) []string {
	var result []string
	for id, deg := range inDegree {
		if deg == 0 {
			result = append(result, id)
		}
	}
	return result
}

// prioritySorted returns a copy of ids sorted by node priority descending,
// with alphabetical ID as tiebreaker.
func (d *DAG) prioritySorted(ids []string) []string {
	if len(ids) <= 1 {
		return ids
	}
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		pi := d.nodes[sorted[i]].Priority
		pj := d.nodes[sorted[j]].Priority
		if pi != pj {
			return pi > pj
		}
		return sorted[i] < sorted[j]
	})
	return sorted
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
