package enumerate

import (
	"context"
	"time"

	"github.com/papapumpkin/magorder/internal/magnetism"
	"github.com/papapumpkin/magorder/internal/structure"
)

// PropCoordination is the site-property name under which coordination
// signatures are handed to a Generator.
const PropCoordination = "cn"

// Constraint asks for a fraction of spin-up sites within a subset of the
// structure. The subset is either a set of species or the sites whose
// SiteProperty value is in SiteValues.
type Constraint struct {
	OrderParameter float64  `json:"order_parameter"`
	Species        []string `json:"species,omitempty"`
	SiteProperty   string   `json:"site_property,omitempty"`
	SiteValues     []int    `json:"site_values,omitempty"`
}

// Request is one call to a Generator. Constraints apply jointly.
type Request struct {
	Structure      structure.Structure
	SpeciesSpins   map[string]float64
	Constraints    []Constraint
	SiteProperties map[string][]int
	MaxCellSize    int
	Timeout        time.Duration
	RankLimit      int
}

// Result is one ranked ordering returned by a Generator.
type Result struct {
	Structure structure.Structure
	Meta      map[string]any
}

// Generator enumerates spin orderings satisfying a set of constraints,
// best ranked first. Implementations enforce Request.Timeout and report it
// with ErrGeneratorTimeout.
type Generator interface {
	Enumerate(ctx context.Context, req Request) ([]Result, error)
}

// Matcher decides structural equivalence, symmetry- and occupancy-aware.
// A matcher that cannot decide reports false.
type Matcher interface {
	Matches(ctx context.Context, a, b structure.Structure) bool
}

// CoordinationCounter returns the coordination number of one site.
type CoordinationCounter interface {
	CoordinationNumber(ctx context.Context, s structure.Structure, i int) (int, error)
}

// SymmetryAnalyzer reduces a structure to its primitive cell and labels
// symmetry-equivalent sites with a shared value.
type SymmetryAnalyzer interface {
	Primitive(ctx context.Context, s structure.Structure) (structure.Structure, error)
	EquivalentSites(ctx context.Context, s structure.Structure) ([]int, error)
}

// Classifier classifies the spin configuration of a structure.
type Classifier interface {
	Classify(s structure.Structure) magnetism.Ordering
	IsCollinear(s structure.Structure) bool
}
