package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/papapumpkin/magorder/internal/enumerate"
	"github.com/papapumpkin/magorder/internal/geometry"
	"github.com/papapumpkin/magorder/internal/logging"
	"github.com/papapumpkin/magorder/internal/magnetism"
	"github.com/papapumpkin/magorder/internal/structure"
	"github.com/papapumpkin/magorder/internal/telemetry"
)

// Deformation task IDs.
const (
	DeformationNonSpinPolarizedID = "relax-non-spin-polarized"
	DeformationSpinPolarizedID    = "relax-spin-polarized"
)

// DeformationOptions configure BuildMagneticDeformationPlan.
type DeformationOptions struct {
	Calc  CalcOptions
	RunID string
}

// BuildMagneticDeformationPlan builds the workflow that relaxes s with and
// without spin polarization and compares the two cells. Only Symmetry and
// Telemetry of collab are used.
func BuildMagneticDeformationPlan(ctx context.Context, s structure.Structure, opts DeformationOptions, collab Collaborators) (*Plan, error) {
	runID := newRunID(opts.RunID)
	tel := collab.Telemetry.ForRun(runID)
	collab.Telemetry = tel
	logger := logging.FromContext(ctx).With("run", runID)

	formula := s.ReducedFormula()
	tel.Record(telemetry.KindRunStart, "", map[string]any{"formula": formula, "kind": string(KindDeformation)})
	fail := func(err error) (*Plan, error) {
		tel.Record(telemetry.KindRunFailed, "", map[string]any{"error": err.Error()})
		return nil, err
	}

	if !s.IsOrdered() {
		return fail(fmt.Errorf("%w: obtain an ordered approximation of %s first", enumerate.ErrUnorderedInput, formula))
	}
	sym := collab.Symmetry
	if sym == nil {
		sym = geometry.FingerprintSymmetry{}
	}
	prim, err := sym.Primitive(ctx, s)
	if err != nil {
		return fail(fmt.Errorf("reducing %s to primitive cell: %w", formula, err))
	}

	g := NewGraph(formula+" - magnetic deformation", KindDeformation)
	g.Metadata = Metadata{UUID: runID, Name: deformationWorkflow, Version: deformationVersion}
	g.Tags = []string{fmt.Sprintf("%s group: >>%s<<", deformationWorkflow, runID)}

	relaxes := []struct {
		id, name string
		ispin    int
		ordering magnetism.Ordering
	}{
		{DeformationNonSpinPolarizedID, "magnetic deformation optimize non-spin polarized", 1, magnetism.NonMagnetic},
		{DeformationSpinPolarizedID, "magnetic deformation optimize spin polarized", 2, magnetism.Classifier{}.Classify(prim)},
	}
	var ids []string
	for _, r := range relaxes {
		payload := opts.Calc.relax(prim, r.ordering)
		payload.InputSettings["ISPIN"] = r.ispin
		if err := g.Add(TaskNode{
			ID:        r.id,
			Role:      RoleRelax,
			Name:      r.name,
			Candidate: -1,
			Payload:   payload,
		}); err != nil {
			return fail(err)
		}
		ids = append(ids, r.id)
	}
	if err := g.Add(TaskNode{
		ID:        AggregateID,
		Role:      RoleAggregate,
		Name:      deformationAggregate,
		Candidate: -1,
		Payload: &AggregatePayload{
			Name:            deformationAggregate,
			RunID:           runID,
			DBFile:          opts.Calc.DBFile,
			ParentStructure: prim,
			ToDB:            true,
		},
	}, ids...); err != nil {
		return fail(err)
	}
	if err := g.Validate(); err != nil {
		return fail(err)
	}

	tel.Record(telemetry.KindGraphBuilt, "", map[string]any{"tasks": g.Len()})
	logger.Info("deformation workflow built", "formula", formula, "tasks", g.Len())
	return &Plan{
		RunID:     runID,
		Kind:      KindDeformation,
		Formula:   formula,
		CreatedAt: time.Now().UTC(),
		Graph:     g,
	}, nil
}
