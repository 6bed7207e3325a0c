package enumerate

import (
	"context"
	"fmt"
	"time"

	"github.com/papapumpkin/magorder/internal/logging"
	"github.com/papapumpkin/magorder/internal/structure"
	"github.com/papapumpkin/magorder/internal/telemetry"
)

// DefaultNumOrderings is the rank limit of each generator call when none is
// given.
const DefaultNumOrderings = 10

// Candidate is one spin ordering in the pool.
type Candidate struct {
	Structure structure.Structure
	Strategy  Strategy
	// Rank is the position within the generator call that produced it, or
	// NotEnumerated for the appended input configuration.
	Rank int
}

// Call is one planned generator invocation.
type Call struct {
	Strategy    Strategy
	Constraints []Constraint
}

// DefaultMaxCellSize is max(1, 4/magneticSites) in integer arithmetic.
func DefaultMaxCellSize(magneticSites int) int {
	if magneticSites <= 0 {
		return 1
	}
	return max(1, 4/magneticSites)
}

// PlanCalls builds the generator calls for the selected strategies, in
// strategy order. The ferromagnetic seed needs no call and is skipped.
func PlanCalls(strategies []Strategy, species []string, env Environments) []Call {
	var calls []Call
	for _, st := range strategies {
		switch st {
		case StrategyAntiferromagnetic:
			calls = append(calls, Call{st, []Constraint{
				{OrderParameter: 0.5, Species: species},
			}})
		case StrategyFerrimagneticByMotif:
			for _, cn := range env.Unique {
				calls = append(calls, Call{st, []Constraint{
					{OrderParameter: 0.5, SiteProperty: PropCoordination, SiteValues: []int{cn}},
					{OrderParameter: 1.0, SiteProperty: PropCoordination, SiteValues: env.Others(cn)},
				}})
			}
		case StrategyFerrimagneticBySpecies:
			for _, sp := range species {
				calls = append(calls, Call{st, []Constraint{
					{OrderParameter: 0.5, Species: []string{sp}},
					{OrderParameter: 1.0, Species: without(species, sp)},
				}})
			}
		case StrategyAntiferromagneticByMotif:
			for _, cn := range env.Unique {
				calls = append(calls, Call{st, []Constraint{
					{OrderParameter: 0.5, SiteProperty: PropCoordination, SiteValues: []int{cn}},
				}})
			}
		}
	}
	return calls
}

func without(list []string, drop string) []string {
	var out []string
	for _, s := range list {
		if s != drop {
			out = append(out, s)
		}
	}
	return out
}

// EnumerationOptions bounds the generator calls.
type EnumerationOptions struct {
	NumOrderings int
	// MaxCellSize of zero selects DefaultMaxCellSize.
	MaxCellSize int
	Timeout     time.Duration
}

// Enumerator builds the unfiltered candidate pool.
type Enumerator struct {
	Generator Generator
	Telemetry *telemetry.Emitter
}

// Enumerate returns the ferromagnetic seed followed by every generator
// result, in strategy order and then rank order, along with the max cell
// size used. Generator errors are returned unchanged and abort the pool.
func (e *Enumerator) Enumerate(ctx context.Context, san *Sanitized, env Environments, strategies []Strategy, opts EnumerationOptions) ([]Candidate, int, error) {
	if e.Generator == nil {
		return nil, 0, ErrNoGenerator
	}
	logger := logging.FromContext(ctx)

	maxCell := opts.MaxCellSize
	if maxCell <= 0 {
		maxCell = DefaultMaxCellSize(san.NumMagneticSites)
	}
	rankLimit := opts.NumOrderings
	if rankLimit <= 0 {
		rankLimit = DefaultNumOrderings
	}
	logger.Info("max cell size set", "max_cell_size", maxCell)

	pool := []Candidate{{
		Structure: san.Analyzer.FerromagneticStructure(),
		Strategy:  StrategyFerromagnetic,
	}}

	spins := san.SpeciesSpins()
	props := map[string][]int{PropCoordination: env.Signatures}
	for _, call := range PlanCalls(strategies, san.SpeciesNames(), env) {
		e.Telemetry.Record(telemetry.KindStrategyStart, string(call.Strategy), map[string]any{
			"constraints": call.Constraints,
		})
		results, err := e.Generator.Enumerate(ctx, Request{
			Structure:      san.Structure,
			SpeciesSpins:   spins,
			Constraints:    call.Constraints,
			SiteProperties: props,
			MaxCellSize:    maxCell,
			Timeout:        opts.Timeout,
			RankLimit:      rankLimit,
		})
		if err != nil {
			return nil, 0, err
		}
		for rank, r := range results {
			pool = append(pool, Candidate{Structure: r.Structure, Strategy: call.Strategy, Rank: rank})
		}
		e.Telemetry.Record(telemetry.KindStrategyDone, string(call.Strategy), map[string]any{
			"count": len(results),
		})
		if len(results) > 0 {
			logger.Info(fmt.Sprintf("adding %d ordered structures from %s enumeration", len(results), call.Strategy))
		}
	}
	return pool, maxCell, nil
}
