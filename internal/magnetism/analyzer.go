package magnetism

import (
	"fmt"
	"math"

	"github.com/papapumpkin/magorder/internal/structure"
)

// Thresholds in µB.
const (
	// ZeroMoment is the magnitude below which a moment counts as zero.
	ZeroMoment = 0.1
	// collinearTol bounds |sin θ| between vector moments treated as
	// parallel.
	collinearTol = 1e-3
)

// Analyzer resolves one collinear moment per site of a structure.
type Analyzer struct {
	s         structure.Structure
	moments   []float64
	collinear bool
}

// NewAnalyzer resolves site moments from s according to mode. defaults
// maps species (or element) to moment and is consulted by every mode but
// ModeNone; a nil map means DefaultMoments.
func NewAnalyzer(s structure.Structure, mode Mode, defaults map[string]float64) (*Analyzer, error) {
	if defaults == nil {
		defaults = DefaultMoments()
	}
	input, collinear := inputMoments(s)
	a := &Analyzer{s: s, collinear: collinear}
	if !collinear {
		a.moments = make([]float64, s.Len())
		return a, nil
	}

	if mode == ModeReplaceAllIfUndefined {
		mode = ModeReplaceAll
		if hasMoments(s) {
			mode = ModeNone
		}
	}

	moments := make([]float64, s.Len())
	for i, site := range s.Sites() {
		def := lookupDefault(defaults, site)
		in := input[i]
		switch mode {
		case ModeNone:
			moments[i] = in
		case ModeReplaceAll:
			moments[i] = def
		case ModeRespectSign:
			moments[i] = def
			if in < 0 {
				moments[i] = -def
			}
		case ModeRespectZeros:
			if math.Abs(in) >= ZeroMoment {
				moments[i] = math.Copysign(def, in)
			}
		default:
			return nil, fmt.Errorf("unknown magnetic moment mode %q", mode)
		}
	}
	a.moments = moments
	return a, nil
}

// inputMoments reads the moment of each site from the magmom property, or
// from the species-level spin when no property is set. Vector moments are
// projected onto their common axis; collinear is false when they do not
// share one.
func inputMoments(s structure.Structure) (moments []float64, collinear bool) {
	moments = make([]float64, s.Len())
	var axis structure.Vec3
	for i, site := range s.Sites() {
		v, ok := site.Property(structure.PropMagmom)
		if !ok {
			moments[i] = site.Spin
			continue
		}
		switch m := v.(type) {
		case float64:
			moments[i] = m
		case structure.Vec3:
			n := m.Norm()
			if n < ZeroMoment {
				continue
			}
			if axis == (structure.Vec3{}) {
				axis = m.Scale(1 / n)
				moments[i] = n
				continue
			}
			if m.Cross(axis).Norm()/n > collinearTol {
				return nil, false
			}
			moments[i] = math.Copysign(n, m.Dot(axis))
		default:
			return nil, false
		}
	}
	return moments, true
}

func hasMoments(s structure.Structure) bool {
	if s.HasProperty(structure.PropMagmom) {
		return true
	}
	for _, sp := range s.Spins() {
		if sp != 0 {
			return true
		}
	}
	return false
}

func lookupDefault(defaults map[string]float64, site structure.Site) float64 {
	if v, ok := defaults[site.Species]; ok {
		return v
	}
	return defaults[site.Element()]
}

// IsCollinear reports whether every moment lies along one axis.
func (a *Analyzer) IsCollinear() bool { return a.collinear }

// Structure returns the analyzed structure.
func (a *Analyzer) Structure() structure.Structure { return a.s }

// Moments returns the resolved moment of every site.
func (a *Analyzer) Moments() []float64 {
	out := make([]float64, len(a.moments))
	copy(out, a.moments)
	return out
}

// IsMagneticSite reports whether site i carries a non-zero moment.
func (a *Analyzer) IsMagneticSite(i int) bool {
	return math.Abs(a.moments[i]) >= ZeroMoment
}

// NumberOfMagneticSites counts sites with a non-zero moment.
func (a *Analyzer) NumberOfMagneticSites() int {
	n := 0
	for i := range a.moments {
		if a.IsMagneticSite(i) {
			n++
		}
	}
	return n
}

// MagneticSpecies returns each species that carries a moment, with the
// magnitude of its first magnetic site, sorted by species.
func (a *Analyzer) MagneticSpecies() []MagneticSpecies {
	spins := a.SpeciesSpins()
	out := make([]MagneticSpecies, 0, len(spins))
	for _, sp := range sortedSpeciesKeys(spins) {
		out = append(out, MagneticSpecies{Species: sp, Spin: spins[sp]})
	}
	return out
}

// SpeciesSpins maps each magnetic species to its spin magnitude.
func (a *Analyzer) SpeciesSpins() map[string]float64 {
	out := make(map[string]float64)
	for i, site := range a.s.Sites() {
		if !a.IsMagneticSite(i) {
			continue
		}
		if _, seen := out[site.Species]; !seen {
			out[site.Species] = math.Abs(a.moments[i])
		}
	}
	return out
}

// Ordering classifies the resolved moments.
func (a *Analyzer) Ordering() Ordering {
	if !a.collinear {
		return NonCollinear
	}
	return classify(a.moments)
}

func classify(moments []float64) Ordering {
	var total, maxMoment float64
	allPos, allNeg := true, true
	for _, m := range moments {
		if math.Abs(m) < ZeroMoment {
			continue
		}
		total += m
		if m > maxMoment {
			maxMoment = m
		}
		if m < 0 {
			allPos = false
		} else {
			allNeg = false
		}
	}
	total = math.Abs(total)
	switch {
	case total > 1e-8 && (allPos || allNeg):
		return Ferromagnetic
	case total > 1e-8:
		return Ferrimagnetic
	case maxMoment > 0:
		return Antiferromagnetic
	}
	return NonMagnetic
}

// FerromagneticStructure returns the structure with every magnetic site
// spin-up at its moment magnitude, stored as species-level spin with the
// magmom property removed.
func (a *Analyzer) FerromagneticStructure() structure.Structure {
	spins := make([]float64, len(a.moments))
	for i, m := range a.moments {
		if a.IsMagneticSite(i) {
			spins[i] = math.Abs(m)
		}
	}
	return a.withSpins(spins)
}

// SpinTaggedStructure returns the structure with the resolved signed
// moments stored as species-level spin and the magmom property removed.
func (a *Analyzer) SpinTaggedStructure() structure.Structure {
	spins := make([]float64, len(a.moments))
	for i, m := range a.moments {
		if a.IsMagneticSite(i) {
			spins[i] = m
		}
	}
	return a.withSpins(spins)
}

func (a *Analyzer) withSpins(spins []float64) structure.Structure {
	sites := a.s.Sites()
	for i := range sites {
		delete(sites[i].Properties, structure.PropMagmom)
		sites[i].Spin = spins[i]
	}
	return structure.New(a.s.Lattice(), sites)
}
