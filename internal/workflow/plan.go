package workflow

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/papapumpkin/magorder/internal/enumerate"
	"github.com/papapumpkin/magorder/internal/logging"
	"github.com/papapumpkin/magorder/internal/structure"
	"github.com/papapumpkin/magorder/internal/telemetry"
)

// Options configure BuildMagneticOrderingPlan.
type Options struct {
	enumerate.Options
	Calc CalcOptions
	// RunID identifies the run; a random UUID is used when empty.
	RunID string
}

// Collaborators extend the enumeration collaborators with the classifier
// used to label candidates.
type Collaborators struct {
	enumerate.Collaborators
	Classifier enumerate.Classifier
}

// Plan is a built workflow together with the pool it was built from.
type Plan struct {
	RunID             string                `json:"run_id"`
	Kind              Kind                  `json:"kind"`
	Formula           string                `json:"formula"`
	CreatedAt         time.Time             `json:"created_at"`
	Strategies        []enumerate.Strategy  `json:"strategies,omitempty"`
	MaxCellSize       int                   `json:"max_cell_size,omitempty"`
	DuplicatesRemoved int                   `json:"duplicates_removed"`
	Provenance        enumerate.Provenance  `json:"provenance"`
	Pool              []enumerate.Candidate `json:"-"`
	Graph             *Graph                `json:"workflow"`
}

func newRunID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// strategyRecord captures the user choices that shaped the pool.
func strategyRecord(o Options) map[string]any {
	rec := map[string]any{
		"num_orderings":        o.NumOrderings,
		"max_cell_size":        o.MaxCellSize,
		"attempt_afm_by_motif": o.AttemptAFMByMotif,
	}
	if o.AttemptFerrimagnetic != nil {
		rec["attempt_ferrimagnetic"] = strconv.FormatBool(*o.AttemptFerrimagnetic)
	} else {
		rec["attempt_ferrimagnetic"] = "auto"
	}
	if o.InputMagmomMode != "" {
		rec["input_magmom_mode"] = string(o.InputMagmomMode)
	}
	if len(o.DefaultMagmoms) > 0 {
		rec["default_magmoms"] = o.DefaultMagmoms
	}
	if len(o.Calc.InputOverrides) > 0 {
		rec["input_overrides"] = o.Calc.InputOverrides
	}
	return rec
}

// BuildMagneticOrderingPlan enumerates candidate orderings of s and builds
// the workflow that relaxes, recomputes and compares them. Any failure
// aborts before a graph exists.
func BuildMagneticOrderingPlan(ctx context.Context, s structure.Structure, opts Options, collab Collaborators) (*Plan, error) {
	runID := newRunID(opts.RunID)
	tel := collab.Telemetry.ForRun(runID)
	collab.Telemetry = tel
	logger := logging.FromContext(ctx).With("run", runID)
	ctx = logging.WithLogger(ctx, logger)

	formula := s.ReducedFormula()
	logger.Info("generating magnetic orderings", "formula", formula)
	tel.Record(telemetry.KindRunStart, "", map[string]any{"formula": formula})

	out, err := enumerate.Run(ctx, s, opts.Options, collab.Collaborators)
	if err != nil {
		tel.Record(telemetry.KindRunFailed, "", map[string]any{"error": err.Error()})
		return nil, err
	}

	g, err := BuildOrderingGraph(GraphInput{
		RunID:      runID,
		Formula:    out.Sanitized.Formula,
		Parent:     out.Sanitized.Structure,
		Pool:       out.Pool,
		Provenance: out.Provenance,
		Strategy:   strategyRecord(opts),
		Classifier: collab.Classifier,
		Calc:       opts.Calc,
	})
	if err != nil {
		tel.Record(telemetry.KindRunFailed, "", map[string]any{"error": err.Error()})
		return nil, err
	}
	tel.Record(telemetry.KindGraphBuilt, "", map[string]any{
		"candidates": len(out.Pool),
		"tasks":      g.Len(),
	})
	logger.Info("workflow built", "candidates", len(out.Pool), "tasks", g.Len())

	return &Plan{
		RunID:             runID,
		Kind:              KindOrderings,
		Formula:           out.Sanitized.Formula,
		CreatedAt:         time.Now().UTC(),
		Strategies:        out.Strategies,
		MaxCellSize:       out.MaxCellSize,
		DuplicatesRemoved: out.DuplicatesRemoved,
		Provenance:        out.Provenance,
		Pool:              out.Pool,
		Graph:             g,
	}, nil
}
