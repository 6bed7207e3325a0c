// Package structure models periodic crystal structures as immutable values.
// A Structure is never mutated once built: every transform returns a new
// Structure with its own copy of the site list and per-site properties, so
// values can be handed between pipeline stages and goroutines freely.
package structure

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// PropMagmom is the site property holding a magnetic moment, either a
// float64 (collinear) or a Vec3 (general vector moment).
const PropMagmom = "magmom"

// occupancyTol is the tolerance used when deciding whether a site is fully
// occupied.
const occupancyTol = 1e-8

// Vec3 is a three-component vector (fractional or Cartesian coordinates, or a
// vector magnetic moment).
type Vec3 [3]float64

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }

// Scale returns v * f.
func (v Vec3) Scale(f float64) Vec3 { return Vec3{v[0] * f, v[1] * f, v[2] * f} }

// Dot returns the scalar product of v and o.
func (v Vec3) Dot(o Vec3) float64 { return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] }

// Cross returns the vector product v × o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 { return math.Sqrt(v.Dot(v)) }

// Lattice holds the three lattice vectors a, b, c as rows, in ångström.
type Lattice struct {
	Matrix [3]Vec3
}

// NewLattice builds a lattice from its three vectors.
func NewLattice(a, b, c Vec3) Lattice {
	return Lattice{Matrix: [3]Vec3{a, b, c}}
}

// CubicLattice returns a cubic lattice with edge length a.
func CubicLattice(a float64) Lattice {
	return NewLattice(Vec3{a, 0, 0}, Vec3{0, a, 0}, Vec3{0, 0, a})
}

// Cartesian converts fractional coordinates to Cartesian coordinates.
func (l Lattice) Cartesian(frac Vec3) Vec3 {
	return l.Matrix[0].Scale(frac[0]).
		Add(l.Matrix[1].Scale(frac[1])).
		Add(l.Matrix[2].Scale(frac[2]))
}

// Volume returns the cell volume in Å³.
func (l Lattice) Volume() float64 {
	return math.Abs(l.Matrix[0].Dot(l.Matrix[1].Cross(l.Matrix[2])))
}

// Site is one atomic site of a Structure.
type Site struct {
	// Species is the species label, optionally with an oxidation state
	// suffix ("Fe", "Fe3+", "O2-").
	Species string
	// Frac holds fractional coordinates.
	Frac Vec3
	// Occupancy is the fractional occupancy of the site. Zero is read as
	// fully occupied.
	Occupancy float64
	// Spin is the species-level spin assigned by enumeration. Zero means no
	// spin is assigned.
	Spin float64
	// Properties holds named per-site properties such as PropMagmom.
	Properties map[string]any
}

// Element returns the chemical element of the site's species, stripping any
// oxidation-state suffix.
func (s Site) Element() string {
	return ElementOf(s.Species)
}

// IsOrdered reports whether the site is fully occupied.
func (s Site) IsOrdered() bool {
	return s.Occupancy == 0 || math.Abs(s.Occupancy-1) < occupancyTol
}

// Property returns the named property and whether it is set.
func (s Site) Property(name string) (any, bool) {
	v, ok := s.Properties[name]
	return v, ok
}

func (s Site) clone() Site {
	out := s
	if s.Properties != nil {
		out.Properties = make(map[string]any, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = v
		}
	}
	return out
}

// ElementOf strips an oxidation-state suffix from a species label.
func ElementOf(species string) string {
	end := len(species)
	for i, r := range species {
		if i > 0 && !unicode.IsLetter(r) {
			end = i
			break
		}
	}
	return species[:end]
}

// Structure is an immutable periodic structure.
type Structure struct {
	lattice Lattice
	sites   []Site
}

// New builds a Structure from a lattice and a site list. The sites are
// copied.
func New(lattice Lattice, sites []Site) Structure {
	out := Structure{lattice: lattice, sites: make([]Site, len(sites))}
	for i, s := range sites {
		out.sites[i] = s.clone()
	}
	return out
}

// Lattice returns the structure's lattice.
func (s Structure) Lattice() Lattice { return s.lattice }

// Len returns the number of sites.
func (s Structure) Len() int { return len(s.sites) }

// Site returns a copy of site i.
func (s Structure) Site(i int) Site { return s.sites[i].clone() }

// Sites returns a copy of every site.
func (s Structure) Sites() []Site {
	out := make([]Site, len(s.sites))
	for i, site := range s.sites {
		out[i] = site.clone()
	}
	return out
}

// IsOrdered reports whether every site is fully occupied.
func (s Structure) IsOrdered() bool {
	for _, site := range s.sites {
		if !site.IsOrdered() {
			return false
		}
	}
	return true
}

// HasProperty reports whether any site carries the named property.
func (s Structure) HasProperty(name string) bool {
	for _, site := range s.sites {
		if _, ok := site.Properties[name]; ok {
			return true
		}
	}
	return false
}

// WithoutProperty returns a copy with the named property removed from every
// site.
func (s Structure) WithoutProperty(name string) Structure {
	out := New(s.lattice, s.sites)
	for i := range out.sites {
		delete(out.sites[i].Properties, name)
	}
	return out
}

// WithProperty returns a copy with the named property set on every site.
// values must have one entry per site; a nil entry removes the property from
// that site.
func (s Structure) WithProperty(name string, values []any) (Structure, error) {
	if len(values) != len(s.sites) {
		return Structure{}, fmt.Errorf("property %q: got %d values for %d sites", name, len(values), len(s.sites))
	}
	out := New(s.lattice, s.sites)
	for i, v := range values {
		if v == nil {
			delete(out.sites[i].Properties, name)
			continue
		}
		if out.sites[i].Properties == nil {
			out.sites[i].Properties = make(map[string]any)
		}
		out.sites[i].Properties[name] = v
	}
	return out, nil
}

// WithSpins returns a copy with the species-level spin of every site
// replaced. spins must have one entry per site.
func (s Structure) WithSpins(spins []float64) (Structure, error) {
	if len(spins) != len(s.sites) {
		return Structure{}, fmt.Errorf("spins: got %d values for %d sites", len(spins), len(s.sites))
	}
	out := New(s.lattice, s.sites)
	for i, sp := range spins {
		out.sites[i].Spin = sp
	}
	return out, nil
}

// Spins returns the species-level spin of every site.
func (s Structure) Spins() []float64 {
	out := make([]float64, len(s.sites))
	for i, site := range s.sites {
		out[i] = site.Spin
	}
	return out
}

// Composition returns the amount of each species, weighted by occupancy.
func (s Structure) Composition() map[string]float64 {
	comp := make(map[string]float64)
	for _, site := range s.sites {
		occ := site.Occupancy
		if occ == 0 {
			occ = 1
		}
		comp[site.Species] += occ
	}
	return comp
}

// ReducedFormula returns the element formula reduced by the greatest common
// divisor of the element counts, elements ordered by increasing
// electronegativity with ties broken alphabetically ("NiO", "LiFePO4").
// Non-integral amounts are printed with up to two decimals.
func (s Structure) ReducedFormula() string {
	amounts := make(map[string]float64)
	for sp, amt := range s.Composition() {
		amounts[ElementOf(sp)] += amt
	}
	if len(amounts) == 0 {
		return ""
	}
	elements := make([]string, 0, len(amounts))
	for el := range amounts {
		elements = append(elements, el)
	}
	sort.Slice(elements, func(i, j int) bool {
		xi, xj := Electronegativity(elements[i]), Electronegativity(elements[j])
		if xi != xj {
			return xi < xj
		}
		return elements[i] < elements[j]
	})

	divisor := 0
	integral := true
	for _, el := range elements {
		n := math.Round(amounts[el])
		if math.Abs(n-amounts[el]) > 1e-6 || n == 0 {
			integral = false
			break
		}
		divisor = gcd(divisor, int(n))
	}
	if !integral || divisor == 0 {
		divisor = 1
	}

	var b strings.Builder
	for _, el := range elements {
		amt := amounts[el] / float64(divisor)
		b.WriteString(el)
		switch {
		case math.Abs(amt-1) < 1e-6:
		case math.Abs(amt-math.Round(amt)) < 1e-6:
			fmt.Fprintf(&b, "%d", int(math.Round(amt)))
		default:
			fmt.Fprintf(&b, "%.2f", amt)
		}
	}
	return b.String()
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
