package geometry

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/papapumpkin/magorder/internal/structure"
)

// shellCount is how many neighbor shells make up a site fingerprint.
const shellCount = 4

// FingerprintSymmetry approximates site equivalence without a space-group
// search: two sites are equivalent when they hold the same species and see
// the same first neighbor shells (species, distance, multiplicity). The
// input cell is taken to be primitive already.
type FingerprintSymmetry struct {
	Cutoff float64
}

// Primitive returns s unchanged.
func (FingerprintSymmetry) Primitive(_ context.Context, s structure.Structure) (structure.Structure, error) {
	return s, nil
}

// EquivalentSites labels each site with the index of the first site
// equivalent to it.
func (f FingerprintSymmetry) EquivalentSites(_ context.Context, s structure.Structure) ([]int, error) {
	cutoff := f.Cutoff
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}
	first := make(map[string]int)
	labels := make([]int, s.Len())
	for i := 0; i < s.Len(); i++ {
		fp, err := fingerprint(s, i, cutoff)
		if err != nil {
			return nil, err
		}
		if j, ok := first[fp]; ok {
			labels[i] = j
			continue
		}
		first[fp] = i
		labels[i] = i
	}
	return labels, nil
}

func fingerprint(s structure.Structure, i int, cutoff float64) (string, error) {
	neighbors, err := Neighbors(s, i, cutoff)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(s.Site(i).Species)
	shells := 0
	for k := 0; k < len(neighbors) && shells < shellCount; {
		d := neighbors[k].Distance
		counts := make(map[string]int)
		for k < len(neighbors) && math.Abs(neighbors[k].Distance-d) < 1e-3 {
			counts[s.Site(neighbors[k].Index).Species]++
			k++
		}
		fmt.Fprintf(&b, "|%.3f", d)
		for _, sp := range sortedSpecies(counts) {
			fmt.Fprintf(&b, ",%s:%d", sp, counts[sp])
		}
		shells++
	}
	return b.String(), nil
}

func sortedSpecies(counts map[string]int) []string {
	out := make([]string, 0, len(counts))
	for sp := range counts {
		out = append(out, sp)
	}
	sort.Strings(out)
	return out
}
