// Package workflow assembles candidate spin orderings into a task graph:
// one relax task and one static task per candidate, all feeding a single
// aggregation task. The graph is built once and handed to an external
// runtime; this package never executes it.
package workflow

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/papapumpkin/magorder/internal/dag"
)

// ErrInvalidGraph wraps every invariant violation found by Graph.Validate.
var ErrInvalidGraph = errors.New("invalid workflow graph")

// Role is the kind of work a task performs.
type Role string

const (
	RoleRelax     Role = "relax"
	RoleStatic    Role = "static"
	RoleAggregate Role = "aggregate"
)

// Kind names the workflow a graph was built for.
type Kind string

const (
	KindOrderings   Kind = "magnetic_orderings"
	KindDeformation Kind = "magnetic_deformation"
)

// AggregateID is the ID of the single aggregation task.
const AggregateID = "aggregate"

// TaskNode is one unit of downstream work.
type TaskNode struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	Name string `json:"name"`
	// Candidate is the pool index the task works on, or -1 for tasks that
	// span the whole pool.
	Candidate int `json:"candidate"`
	// Payload is a *CalcPayload for relax and static tasks and an
	// *AggregatePayload for the aggregate task.
	Payload any `json:"payload"`
}

// Metadata is attached to every task document the runtime produces.
type Metadata struct {
	UUID    string `json:"wf_uuid"`
	Name    string `json:"wf_name"`
	Version string `json:"wf_version"`
}

// Graph is a workflow of TaskNodes. Dependencies are kept in a dag.DAG, so
// cycles are rejected as edges are added.
type Graph struct {
	Name     string   `json:"name"`
	Kind     Kind     `json:"kind"`
	Metadata Metadata `json:"wf_meta"`
	Tags     []string `json:"tags,omitempty"`

	dag   *dag.DAG
	nodes map[string]*TaskNode
	order []string
}

// NewGraph creates an empty graph.
func NewGraph(name string, kind Kind) *Graph {
	return &Graph{
		Name:  name,
		Kind:  kind,
		dag:   dag.New(),
		nodes: make(map[string]*TaskNode),
	}
}

// Add inserts node and makes it depend on deps, which must already exist.
func (g *Graph) Add(node TaskNode, deps ...string) error {
	priority := 1
	if node.Role == RoleAggregate {
		priority = 0
	}
	if err := g.dag.AddNode(node.ID, priority); err != nil {
		return err
	}
	n := node
	g.nodes[node.ID] = &n
	g.order = append(g.order, node.ID)
	g.dag.Node(node.ID).Metadata["role"] = string(node.Role)
	for _, dep := range deps {
		if err := g.dag.AddEdge(node.ID, dep); err != nil {
			return fmt.Errorf("task %s: %w", node.ID, err)
		}
	}
	return nil
}

// Node returns the task with the given ID.
func (g *Graph) Node(id string) (*TaskNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every task in insertion order.
func (g *Graph) Nodes() []*TaskNode {
	out := make([]*TaskNode, len(g.order))
	for i, id := range g.order {
		out[i] = g.nodes[id]
	}
	return out
}

// Len returns the number of tasks.
func (g *Graph) Len() int { return len(g.order) }

// Predecessors returns the IDs of the tasks id depends on.
func (g *Graph) Predecessors(id string) []string { return g.dag.Dependencies(id) }

// Successors returns the IDs of the tasks that depend on id.
func (g *Graph) Successors(id string) []string { return g.dag.Dependents(id) }

// ByRole returns the tasks with the given role, in insertion order.
func (g *Graph) ByRole(role Role) []*TaskNode {
	var out []*TaskNode
	for _, id := range g.order {
		if n := g.nodes[id]; n.Role == role {
			out = append(out, n)
		}
	}
	return out
}

// Waves groups tasks into dependency waves.
func (g *Graph) Waves() ([]dag.Wave, error) { return g.dag.ComputeWaves() }

// Tracks partitions the graph, without the aggregate, into independent
// candidate chains.
func (g *Graph) Tracks() ([]dag.Track, error) { return g.dag.ComputeTracks(AggregateID) }

// DAG exposes the dependency graph for reporting.
func (g *Graph) DAG() *dag.DAG { return g.dag }

// Validate checks the graph invariants: it is acyclic, it has exactly one
// aggregate task, the aggregate is the only sink and every root is a relax
// task. In an orderings graph every relax task has exactly one successor, a
// static task that depends on nothing else.
func (g *Graph) Validate() error {
	if _, err := g.dag.TopologicalSort(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGraph, err)
	}
	aggs := g.ByRole(RoleAggregate)
	if len(aggs) != 1 {
		return fmt.Errorf("%w: %d aggregate tasks, want 1", ErrInvalidGraph, len(aggs))
	}
	for _, id := range g.dag.Sinks() {
		if id != aggs[0].ID {
			return fmt.Errorf("%w: task %s does not feed the aggregate", ErrInvalidGraph, id)
		}
	}
	for _, id := range g.dag.Roots() {
		if role := g.nodes[id].Role; role != RoleRelax {
			return fmt.Errorf("%w: %s task %s has no dependencies", ErrInvalidGraph, role, id)
		}
	}
	if g.Kind != KindOrderings {
		return nil
	}
	for _, relax := range g.ByRole(RoleRelax) {
		succ := g.Successors(relax.ID)
		if len(succ) != 1 {
			return fmt.Errorf("%w: relax task %s has %d successors, want 1", ErrInvalidGraph, relax.ID, len(succ))
		}
		static := g.nodes[succ[0]]
		if static.Role != RoleStatic {
			return fmt.Errorf("%w: relax task %s feeds %s task %s", ErrInvalidGraph, relax.ID, static.Role, static.ID)
		}
		if preds := g.Predecessors(static.ID); len(preds) != 1 {
			return fmt.Errorf("%w: static task %s has %d predecessors, want 1", ErrInvalidGraph, static.ID, len(preds))
		}
	}
	if r, s := len(g.ByRole(RoleRelax)), len(g.ByRole(RoleStatic)); r != s {
		return fmt.Errorf("%w: %d relax tasks but %d static tasks", ErrInvalidGraph, r, s)
	}
	return nil
}

type taskDocument struct {
	*TaskNode
	DependsOn []string `json:"depends_on,omitempty"`
}

// MarshalJSON encodes the graph with its tasks in insertion order, each
// carrying the IDs of the tasks it depends on.
func (g *Graph) MarshalJSON() ([]byte, error) {
	tasks := make([]taskDocument, len(g.order))
	for i, id := range g.order {
		tasks[i] = taskDocument{TaskNode: g.nodes[id], DependsOn: g.Predecessors(id)}
	}
	return json.Marshal(struct {
		Name     string         `json:"name"`
		Kind     Kind           `json:"kind"`
		Metadata Metadata       `json:"wf_meta"`
		Tags     []string       `json:"tags,omitempty"`
		Tasks    []taskDocument `json:"tasks"`
	}{g.Name, g.Kind, g.Metadata, g.Tags, tasks})
}
