package enumerate

import (
	"context"
	"fmt"
	"slices"

	"github.com/papapumpkin/magorder/internal/logging"
	"github.com/papapumpkin/magorder/internal/magnetism"
	"github.com/papapumpkin/magorder/internal/structure"
)

// SanitizeOptions controls how moments are read.
type SanitizeOptions struct {
	// DefaultMagmoms overlays the built-in species → moment table.
	DefaultMagmoms map[string]float64
	// InputMode selects how moments of the input structure are read for
	// the collinearity check and provenance.
	InputMode magnetism.Mode
}

// Sanitized is an input structure made ready for enumeration.
type Sanitized struct {
	Formula string

	// Original is the input with its resolved moments stored as spins,
	// used for provenance.
	Original         structure.Structure
	OriginalOrdering magnetism.Ordering

	// Structure is the primitive cell with magmom stripped.
	Structure structure.Structure
	// Analyzer reads Structure with every site at its default moment.
	Analyzer *magnetism.Analyzer

	MagneticSpecies        []magnetism.MagneticSpecies
	NumMagneticSites       int
	NumUniqueMagneticSites int
}

// SpeciesNames returns the magnetic species labels, sorted.
func (s *Sanitized) SpeciesNames() []string {
	out := make([]string, len(s.MagneticSpecies))
	for i, ms := range s.MagneticSpecies {
		out[i] = ms.Species
	}
	return out
}

// MagneticElements returns the distinct elements of the magnetic species,
// sorted, ignoring oxidation states.
func (s *Sanitized) MagneticElements() []string {
	var out []string
	for _, ms := range s.MagneticSpecies {
		el := structure.ElementOf(ms.Species)
		if !slices.Contains(out, el) {
			out = append(out, el)
		}
	}
	slices.Sort(out)
	return out
}

// SpeciesSpins maps each magnetic species to its spin magnitude.
func (s *Sanitized) SpeciesSpins() map[string]float64 {
	out := make(map[string]float64, len(s.MagneticSpecies))
	for _, ms := range s.MagneticSpecies {
		out[ms.Species] = ms.Spin
	}
	return out
}

// IsMagneticSpecies reports whether species is one of the magnetic species.
func (s *Sanitized) IsMagneticSpecies(species string) bool {
	for _, ms := range s.MagneticSpecies {
		if ms.Species == species {
			return true
		}
	}
	return false
}

// Sanitize checks that s can be enumerated and reduces it to an
// enumeration-ready primitive cell. It fails with ErrUnorderedInput,
// ErrNonCollinearInput, ErrNoMagneticSites or ErrEnumerationTooLarge.
func Sanitize(ctx context.Context, s structure.Structure, opts SanitizeOptions, sym SymmetryAnalyzer) (*Sanitized, error) {
	formula := s.ReducedFormula()
	if !s.IsOrdered() {
		return nil, fmt.Errorf("%w: obtain an ordered approximation of %s first", ErrUnorderedInput, formula)
	}

	defaults := magnetism.MergeMoments(opts.DefaultMagmoms)
	mode := opts.InputMode
	if mode == "" {
		mode = magnetism.ModeNone
	}
	input, err := magnetism.NewAnalyzer(s, mode, defaults)
	if err != nil {
		return nil, err
	}
	if !input.IsCollinear() {
		return nil, fmt.Errorf("%w: %s", ErrNonCollinearInput, formula)
	}

	prim, err := sym.Primitive(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("reducing %s to primitive cell: %w", formula, err)
	}
	prim = prim.WithoutProperty(structure.PropMagmom)

	analyzer, err := magnetism.NewAnalyzer(prim, magnetism.ModeReplaceAll, defaults)
	if err != nil {
		return nil, err
	}
	numMag := analyzer.NumberOfMagneticSites()
	if numMag == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMagneticSites, formula)
	}

	labels, err := sym.EquivalentSites(ctx, prim)
	if err != nil {
		return nil, fmt.Errorf("finding equivalent sites of %s: %w", formula, err)
	}
	unique := make(map[int]bool)
	for i, label := range labels {
		if analyzer.IsMagneticSite(i) {
			unique[label] = true
		}
	}
	if len(unique) > MaxUniqueMagneticSites {
		return nil, fmt.Errorf("%w: %s has %d unique magnetic sites (limit %d)",
			ErrEnumerationTooLarge, formula, len(unique), MaxUniqueMagneticSites)
	}

	logging.FromContext(ctx).Info("generating magnetic orderings",
		"formula", formula,
		"magnetic_sites", numMag,
		"unique_magnetic_sites", len(unique))

	return &Sanitized{
		Formula:                formula,
		Original:               input.SpinTaggedStructure(),
		OriginalOrdering:       input.Ordering(),
		Structure:              prim,
		Analyzer:               analyzer,
		MagneticSpecies:        analyzer.MagneticSpecies(),
		NumMagneticSites:       numMag,
		NumUniqueMagneticSites: len(unique),
	}, nil
}
