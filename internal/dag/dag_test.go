package dag

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// nodeSpec is (id, priority, deps...).
type nodeSpec struct {
	id       string
	priority int
	deps     []string
}

func buildDAG(t *testing.T, specs []nodeSpec) *DAG {
	t.Helper()
	d := New()
	for _, s := range specs {
		if err := d.AddNode(s.id, s.priority); err != nil {
			t.Fatalf("AddNode(%q): %v", s.id, err)
		}
	}
	for _, s := range specs {
		for _, dep := range s.deps {
			if err := d.AddEdge(s.id, dep); err != nil {
				t.Fatalf("AddEdge(%q, %q): %v", s.id, dep, err)
			}
		}
	}
	return d
}

// validTopologicalOrder checks that every dependency appears before
// its dependent in the ordering.
func validTopologicalOrder(d *DAG, order []string) bool {
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for id, deps := range d.adjacency {
		for dep := range deps {
			if pos[dep] >= pos[id] {
				return false
			}
		}
	}
	return true
}

// fanIn mirrors a workflow shape: two relax→static chains feeding one sink.
func fanIn(t *testing.T) *DAG {
	t.Helper()
	return buildDAG(t, []nodeSpec{
		{"r0", 2, nil},
		{"s0", 2, []string{"r0"}},
		{"r1", 1, nil},
		{"s1", 1, []string{"r1"}},
		{"agg", 0, []string{"s0", "s1"}},
	})
}

func TestNew(t *testing.T) {
	t.Parallel()
	d := New()
	if d.Len() != 0 {
		t.Errorf("new DAG has %d nodes, want 0", d.Len())
	}
	if nodes := d.Nodes(); len(nodes) != 0 {
		t.Errorf("new DAG Nodes() = %v, want empty", nodes)
	}
}

func TestAddNode(t *testing.T) {
	t.Parallel()

	t.Run("basic add", func(t *testing.T) {
		t.Parallel()
		d := New()
		if err := d.AddNode("a", 1); err != nil {
			t.Fatalf("AddNode: %v", err)
		}
		n := d.Node("a")
		if n == nil {
			t.Fatal("Node(a) returned nil")
		}
		if n.Priority != 1 {
			t.Errorf("Priority = %d, want 1", n.Priority)
		}
		if n.Metadata == nil {
			t.Error("Metadata should be initialized")
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		t.Parallel()
		d := New()
		_ = d.AddNode("a", 1)
		err := d.AddNode("a", 2)
		if !errors.Is(err, ErrDuplicateNode) {
			t.Errorf("got %v, want ErrDuplicateNode", err)
		}
	})
}

func TestAddEdge(t *testing.T) {
	t.Parallel()

	t.Run("self edge", func(t *testing.T) {
		t.Parallel()
		d := New()
		_ = d.AddNode("a", 1)
		if err := d.AddEdge("a", "a"); !errors.Is(err, ErrSelfEdge) {
			t.Errorf("got %v, want ErrSelfEdge", err)
		}
	})

	t.Run("missing nodes", func(t *testing.T) {
		t.Parallel()
		d := New()
		_ = d.AddNode("a", 1)
		if err := d.AddEdge("a", "b"); !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("missing to: got %v, want ErrNodeNotFound", err)
		}
		if err := d.AddEdge("b", "a"); !errors.Is(err, ErrNodeNotFound) {
			t.Errorf("missing from: got %v, want ErrNodeNotFound", err)
		}
	})

	t.Run("duplicate edge is no-op", func(t *testing.T) {
		t.Parallel()
		d := New()
		_ = d.AddNode("a", 1)
		_ = d.AddNode("b", 1)
		_ = d.AddEdge("a", "b")
		if err := d.AddEdge("a", "b"); err != nil {
			t.Errorf("duplicate AddEdge returned error: %v", err)
		}
	})

	t.Run("cycle detection", func(t *testing.T) {
		t.Parallel()
		d := buildDAG(t, []nodeSpec{
			{"c", 1, nil},
			{"b", 1, []string{"c"}},
			{"a", 1, []string{"b"}},
		})
		err := d.AddEdge("c", "a")
		if !errors.Is(err, ErrCycle) {
			t.Fatalf("got %v, want ErrCycle", err)
		}
		if !strings.Contains(err.Error(), "c → a") {
			t.Errorf("error should name the edge: %v", err)
		}
	})
}

func TestDependenciesAndDependents(t *testing.T) {
	t.Parallel()
	d := fanIn(t)

	if got := d.Dependencies("agg"); strings.Join(got, ",") != "s0,s1" {
		t.Errorf("Dependencies(agg) = %v, want [s0 s1]", got)
	}
	if got := d.Dependents("r0"); strings.Join(got, ",") != "s0" {
		t.Errorf("Dependents(r0) = %v, want [s0]", got)
	}
	if got := d.Roots(); strings.Join(got, ",") != "r0,r1" {
		t.Errorf("Roots() = %v, want [r0 r1]", got)
	}
	if got := d.Sinks(); strings.Join(got, ",") != "agg" {
		t.Errorf("Sinks() = %v, want [agg]", got)
	}
}

func TestTopologicalSort(t *testing.T) {
	t.Parallel()

	t.Run("fan in", func(t *testing.T) {
		t.Parallel()
		d := fanIn(t)
		order, err := d.TopologicalSort()
		if err != nil {
			t.Fatalf("TopologicalSort: %v", err)
		}
		if len(order) != 5 {
			t.Fatalf("got %d nodes, want 5", len(order))
		}
		if !validTopologicalOrder(d, order) {
			t.Errorf("invalid order: %v", order)
		}
		if order[0] != "r0" {
			t.Errorf("first = %q, want r0 (highest priority root)", order[0])
		}
		if order[len(order)-1] != "agg" {
			t.Errorf("last = %q, want agg", order[len(order)-1])
		}
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		order, err := New().TopologicalSort()
		if err != nil {
			t.Fatalf("TopologicalSort: %v", err)
		}
		if len(order) != 0 {
			t.Errorf("got %v, want empty", order)
		}
	})

	t.Run("priority ordering", func(t *testing.T) {
		t.Parallel()
		d := buildDAG(t, []nodeSpec{
			{"low", 1, nil},
			{"high", 3, nil},
			{"med", 2, nil},
		})
		order, err := d.TopologicalSort()
		if err != nil {
			t.Fatal(err)
		}
		if strings.Join(order, ",") != "high,med,low" {
			t.Errorf("order = %v, want [high med low]", order)
		}
	})
}

func TestComputeWaves(t *testing.T) {
	t.Parallel()

	t.Run("empty DAG", func(t *testing.T) {
		t.Parallel()
		waves, err := New().ComputeWaves()
		if err != nil {
			t.Fatalf("ComputeWaves: %v", err)
		}
		if waves != nil {
			t.Errorf("ComputeWaves on empty DAG = %v, want nil", waves)
		}
	})

	t.Run("fan in", func(t *testing.T) {
		t.Parallel()
		waves, err := fanIn(t).ComputeWaves()
		if err != nil {
			t.Fatalf("ComputeWaves: %v", err)
		}
		want := [][]string{{"r0", "r1"}, {"s0", "s1"}, {"agg"}}
		if len(waves) != len(want) {
			t.Fatalf("got %d waves, want %d", len(waves), len(want))
		}
		for i, w := range waves {
			if w.Number != i {
				t.Errorf("wave %d has Number %d", i, w.Number)
			}
			if strings.Join(w.NodeIDs, ",") != strings.Join(want[i], ",") {
				t.Errorf("wave %d = %v, want %v", i, w.NodeIDs, want[i])
			}
		}
	})
}

func TestAncestors(t *testing.T) {
	t.Parallel()
	d := fanIn(t)

	if got := d.Ancestors("agg"); strings.Join(got, ",") != "r0,r1,s0,s1" {
		t.Errorf("Ancestors(agg) = %v", got)
	}
	if got := d.Ancestors("r0"); got != nil {
		t.Errorf("Ancestors(root) = %v, want nil", got)
	}
	if got := d.Ancestors("missing"); got != nil {
		t.Errorf("Ancestors(missing) = %v, want nil", got)
	}
}

func TestLargeDAG(t *testing.T) {
	t.Parallel()
	d := New()
	const chains = 100
	if err := d.AddNode("agg", 0); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < chains; i++ {
		r, s := fmt.Sprintf("r%03d", i), fmt.Sprintf("s%03d", i)
		_ = d.AddNode(r, 1)
		_ = d.AddNode(s, 1)
		if err := d.AddEdge(s, r); err != nil {
			t.Fatal(err)
		}
		if err := d.AddEdge("agg", s); err != nil {
			t.Fatal(err)
		}
	}
	order, err := d.TopologicalSort()
	if err != nil {
		t.Fatal(err)
	}
	if !validTopologicalOrder(d, order) {
		t.Error("invalid topological order for large DAG")
	}
	if got := len(d.Ancestors("agg")); got != 2*chains {
		t.Errorf("agg has %d ancestors, want %d", got, 2*chains)
	}
}
