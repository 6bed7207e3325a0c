package enumerate

import (
	"context"
	"fmt"
	"sort"
)

// Environments is the coordination signature of every site of a sanitized
// structure. Non-magnetic sites have signature zero.
type Environments struct {
	Signatures []int
	// Unique lists the distinct non-zero signatures, ascending.
	Unique []int
}

// Others returns the unique signatures other than cn.
func (e Environments) Others(cn int) []int {
	var out []int
	for _, u := range e.Unique {
		if u != cn {
			out = append(out, u)
		}
	}
	return out
}

// ProfileEnvironments computes the coordination signature of each magnetic
// site of san. The structure itself is left untouched; signatures travel
// as a side table.
func ProfileEnvironments(ctx context.Context, san *Sanitized, cc CoordinationCounter) (Environments, error) {
	s := san.Structure
	sigs := make([]int, s.Len())
	seen := make(map[int]bool)
	for i, site := range s.Sites() {
		if !san.IsMagneticSpecies(site.Species) {
			continue
		}
		cn, err := cc.CoordinationNumber(ctx, s, i)
		if err != nil {
			return Environments{}, fmt.Errorf("coordination number of site %d: %w", i, err)
		}
		sigs[i] = cn
		if cn != 0 {
			seen[cn] = true
		}
	}
	unique := make([]int, 0, len(seen))
	for cn := range seen {
		unique = append(unique, cn)
	}
	sort.Ints(unique)
	return Environments{Signatures: sigs, Unique: unique}, nil
}
