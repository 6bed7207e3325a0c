// Package enumerate turns an input crystal structure into a deduplicated
// pool of candidate collinear spin orderings. It sanitizes and classifies
// the input, profiles magnetic-site environments, selects ordering
// strategies, calls an external generator per strategy, removes duplicates,
// and records whether the input configuration was among the results.
//
// The pipeline is synchronous. Every call works on its own copies of the
// structures, so concurrent runs need no locking.
package enumerate

import (
	"context"
	"time"

	"github.com/papapumpkin/magorder/internal/geometry"
	"github.com/papapumpkin/magorder/internal/logging"
	"github.com/papapumpkin/magorder/internal/magnetism"
	"github.com/papapumpkin/magorder/internal/structure"
	"github.com/papapumpkin/magorder/internal/telemetry"
)

// Options are the user-facing knobs of a run.
type Options struct {
	DefaultMagmoms  map[string]float64
	InputMagmomMode magnetism.Mode
	Overrides
	NumOrderings int
	MaxCellSize  int
	Timeout      time.Duration
}

// Collaborators are the external capabilities a run calls out to. Nil
// Matcher, Coordination and Symmetry fall back to built-in
// implementations; Generator is required by Run.
type Collaborators struct {
	Generator    Generator
	Matcher      Matcher
	Coordination CoordinationCounter
	Symmetry     SymmetryAnalyzer
	Telemetry    *telemetry.Emitter
}

func (c Collaborators) withDefaults() Collaborators {
	if c.Matcher == nil {
		c.Matcher = magnetism.SpinMatcher{}
	}
	if c.Coordination == nil {
		c.Coordination = geometry.NewMinimumDistanceNN()
	}
	if c.Symmetry == nil {
		c.Symmetry = geometry.FingerprintSymmetry{}
	}
	return c
}

// Analysis is the outcome of the first three stages.
type Analysis struct {
	Sanitized    *Sanitized
	Environments Environments
	Strategies   []Strategy
}

// Analyze sanitizes s, profiles its environments, and selects strategies
// without calling the generator.
func Analyze(ctx context.Context, s structure.Structure, opts Options, collab Collaborators) (*Analysis, error) {
	collab = collab.withDefaults()
	san, err := Sanitize(ctx, s, SanitizeOptions{
		DefaultMagmoms: opts.DefaultMagmoms,
		InputMode:      opts.InputMagmomMode,
	}, collab.Symmetry)
	if err != nil {
		return nil, err
	}
	env, err := ProfileEnvironments(ctx, san, collab.Coordination)
	if err != nil {
		return nil, err
	}
	strategies := SelectStrategies(len(env.Unique), len(san.MagneticSpecies), len(san.MagneticElements()), opts.Overrides)
	logging.FromContext(ctx).Debug("strategies selected",
		"unique_environments", env.Unique,
		"strategies", strategies)
	return &Analysis{Sanitized: san, Environments: env, Strategies: strategies}, nil
}

// Outcome is the final candidate pool of a run.
type Outcome struct {
	*Analysis
	MaxCellSize       int
	Pool              []Candidate
	DuplicatesRemoved int
	Provenance        Provenance
}

// Run executes the whole enumeration pipeline. Any error aborts the run;
// no partial pool is returned.
func Run(ctx context.Context, s structure.Structure, opts Options, collab Collaborators) (*Outcome, error) {
	collab = collab.withDefaults()
	if collab.Generator == nil {
		return nil, ErrNoGenerator
	}
	logger := logging.FromContext(ctx)

	an, err := Analyze(ctx, s, opts, collab)
	if err != nil {
		return nil, err
	}

	enum := &Enumerator{Generator: collab.Generator, Telemetry: collab.Telemetry}
	pool, maxCell, err := enum.Enumerate(ctx, an.Sanitized, an.Environments, an.Strategies, EnumerationOptions{
		NumOrderings: opts.NumOrderings,
		MaxCellSize:  opts.MaxCellSize,
		Timeout:      opts.Timeout,
	})
	if err != nil {
		return nil, err
	}

	deduped := Deduplicate(ctx, pool, collab.Matcher)
	removed := len(pool) - len(deduped)
	if removed > 0 {
		logger.Info("removed duplicate ordered structures", "count", removed)
		collab.Telemetry.Record(telemetry.KindDuplicatesRemoved, "", map[string]any{"count": removed})
	}

	final, prov := TrackProvenance(ctx, deduped, an.Sanitized.Original, an.Sanitized.OriginalOrdering, collab.Matcher)
	switch {
	case !prov.Tracked:
		logger.Debug("input structure is non-magnetic, provenance not tracked")
	case prov.Index == NotEnumerated:
		logger.Info("input structure not present in enumerated structures, adding")
	default:
		logger.Info("input structure found in enumerated structures", "index", prov.Index)
	}
	collab.Telemetry.Record(telemetry.KindProvenance, "", map[string]any{
		"tracked": prov.Tracked,
		"index":   prov.Index,
	})

	return &Outcome{
		Analysis:          an,
		MaxCellSize:       maxCell,
		Pool:              final,
		DuplicatesRemoved: removed,
		Provenance:        prov,
	}, nil
}
