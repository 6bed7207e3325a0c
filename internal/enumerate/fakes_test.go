package enumerate

import (
	"context"
	"testing"

	"github.com/papapumpkin/magorder/internal/structure"
)

// fakeGenerator records every request and answers through respond.
type fakeGenerator struct {
	requests []Request
	respond  func(call int, req Request) ([]Result, error)
}

func (g *fakeGenerator) Enumerate(_ context.Context, req Request) ([]Result, error) {
	call := len(g.requests)
	g.requests = append(g.requests, req)
	if g.respond == nil {
		return nil, nil
	}
	return g.respond(call, req)
}

// matchFunc adapts a function to the Matcher interface.
type matchFunc func(a, b structure.Structure) bool

func (f matchFunc) Matches(_ context.Context, a, b structure.Structure) bool { return f(a, b) }

// fixedCoordination returns a preset coordination number per site.
type fixedCoordination []int

func (f fixedCoordination) CoordinationNumber(_ context.Context, _ structure.Structure, i int) (int, error) {
	return f[i], nil
}

// fixedSymmetry treats the input as primitive and returns preset labels.
type fixedSymmetry []int

func (f fixedSymmetry) Primitive(_ context.Context, s structure.Structure) (structure.Structure, error) {
	return s, nil
}

func (f fixedSymmetry) EquivalentSites(_ context.Context, _ structure.Structure) ([]int, error) {
	return f, nil
}

// distinctLabels labels n sites as pairwise inequivalent.
func distinctLabels(n int) fixedSymmetry {
	out := make(fixedSymmetry, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// nio is the two-site rock-salt cell with a moment on Ni.
func nio() structure.Structure {
	return structure.New(structure.CubicLattice(4.17), []structure.Site{
		{Species: "Ni", Frac: structure.Vec3{0, 0, 0}, Properties: map[string]any{structure.PropMagmom: 2.0}},
		{Species: "O", Frac: structure.Vec3{0.5, 0.5, 0.5}},
	})
}

// spinelLike holds one magnetic species on one tetrahedral and two
// octahedral sites.
func spinelLike() structure.Structure {
	return structure.New(structure.CubicLattice(8.4), []structure.Site{
		{Species: "Fe", Frac: structure.Vec3{0.125, 0.125, 0.125}},
		{Species: "Fe", Frac: structure.Vec3{0.5, 0.5, 0.5}},
		{Species: "Fe", Frac: structure.Vec3{0.5, 0.75, 0.75}},
		{Species: "O", Frac: structure.Vec3{0.26, 0.26, 0.26}},
		{Species: "O", Frac: structure.Vec3{0.26, 0.74, 0.74}},
		{Species: "O", Frac: structure.Vec3{0.74, 0.26, 0.74}},
		{Species: "O", Frac: structure.Vec3{0.74, 0.74, 0.26}},
	})
}

// inverseSpinelLike is spinelLike with oxidation states: Fe3+ on the
// tetrahedral site, Fe2+ and Fe3+ on the octahedral sites.
func inverseSpinelLike() structure.Structure {
	sites := spinelLike().Sites()
	for i, sp := range []string{"Fe3+", "Fe2+", "Fe3+", "O2-", "O2-", "O2-", "O2-"} {
		sites[i].Species = sp
	}
	return structure.New(spinelLike().Lattice(), sites)
}

// withSpins returns s with the given species-level spins.
func withSpins(t *testing.T, s structure.Structure, spins ...float64) structure.Structure {
	t.Helper()
	out, err := s.WithSpins(spins)
	if err != nil {
		t.Fatalf("WithSpins: %v", err)
	}
	return out
}

func results(structs ...structure.Structure) []Result {
	out := make([]Result, len(structs))
	for i, s := range structs {
		out[i] = Result{Structure: s}
	}
	return out
}
