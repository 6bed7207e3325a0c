package workflow

import (
	"fmt"

	"github.com/papapumpkin/magorder/internal/enumerate"
	"github.com/papapumpkin/magorder/internal/magnetism"
	"github.com/papapumpkin/magorder/internal/structure"
)

// GraphInput is everything the graph builder needs from an enumeration run.
type GraphInput struct {
	RunID      string
	Formula    string
	Parent     structure.Structure
	Pool       []enumerate.Candidate
	Provenance enumerate.Provenance
	// Strategy records the user choices that shaped the pool; it is passed
	// through to the aggregate task.
	Strategy   map[string]any
	Classifier enumerate.Classifier
	Calc       CalcOptions
}

// RelaxID returns the ID of the relax task of pool entry i.
func RelaxID(i int) string { return fmt.Sprintf("ordering-%d-relax", i) }

// StaticID returns the ID of the static task of pool entry i.
func StaticID(i int) string { return fmt.Sprintf("ordering-%d-static", i) }

// taskName is the human-readable name of a candidate task.
func taskName(label int, ordering magnetism.Ordering, stage string) string {
	return fmt.Sprintf("ordering %d %s - %s", label, ordering, stage)
}

// BuildOrderingGraph creates one relax and one static task per pool entry,
// in pool order, and a single aggregate task that depends on every static
// task. The graph is validated before it is returned.
func BuildOrderingGraph(in GraphInput) (*Graph, error) {
	if len(in.Pool) == 0 {
		return nil, fmt.Errorf("%w: empty candidate pool", ErrInvalidGraph)
	}
	classifier := in.Classifier
	if classifier == nil {
		classifier = magnetism.Classifier{}
	}

	g := NewGraph(in.Formula+" - magnetic orderings", KindOrderings)
	g.Metadata = Metadata{UUID: in.RunID, Name: orderingsWorkflow, Version: orderingsVersion}
	g.Tags = []string{fmt.Sprintf("%s group: >>%s<<", orderingsWorkflow, in.RunID)}

	pool := make([]PoolEntry, len(in.Pool))
	statics := make([]string, len(in.Pool))
	for i, c := range in.Pool {
		ordering := classifier.Classify(c.Structure)
		label := enumerate.Label(in.Pool, i)
		pool[i] = PoolEntry{
			Index:     i,
			Label:     label,
			Strategy:  c.Strategy,
			Rank:      c.Rank,
			Ordering:  ordering,
			Structure: c.Structure,
		}

		relax := TaskNode{
			ID:        RelaxID(i),
			Role:      RoleRelax,
			Name:      taskName(label, ordering, "optimize"),
			Candidate: i,
			Payload:   in.Calc.relax(c.Structure, ordering),
		}
		if err := g.Add(relax); err != nil {
			return nil, err
		}
		static := TaskNode{
			ID:        StaticID(i),
			Role:      RoleStatic,
			Name:      taskName(label, ordering, "static"),
			Candidate: i,
			Payload:   in.Calc.static(c.Structure, ordering, relax.ID),
		}
		if err := g.Add(static, relax.ID); err != nil {
			return nil, err
		}
		statics[i] = static.ID
	}

	agg := TaskNode{
		ID:        AggregateID,
		Role:      RoleAggregate,
		Name:      "Magnetic Orderings Analysis",
		Candidate: -1,
		Payload: &AggregatePayload{
			Name:            orderingsAggregate,
			RunID:           in.RunID,
			DBFile:          in.Calc.DBFile,
			ParentStructure: in.Parent,
			Pool:            pool,
			Provenance:      in.Provenance,
			Strategy:        in.Strategy,
			PerformBader:    in.Calc.PerformBader,
			AutoGenerated:   false,
			ToDB:            true,
		},
	}
	if err := g.Add(agg, statics...); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
