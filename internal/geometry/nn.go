package geometry

import (
	"context"

	"github.com/papapumpkin/magorder/internal/structure"
)

// Defaults for MinimumDistanceNN.
const (
	DefaultTolerance = 0.1
	DefaultCutoff    = 10.0
)

// MinimumDistanceNN counts as neighbors every site within
// (1+Tolerance) times the shortest distance from the central site.
type MinimumDistanceNN struct {
	Tolerance float64
	Cutoff    float64
}

// NewMinimumDistanceNN returns a counter with the default tolerance and cutoff.
func NewMinimumDistanceNN() MinimumDistanceNN {
	return MinimumDistanceNN{Tolerance: DefaultTolerance, Cutoff: DefaultCutoff}
}

// CoordinationNumber returns the number of nearest neighbors of site i.
// A site with no neighbor inside the cutoff has coordination number zero.
func (m MinimumDistanceNN) CoordinationNumber(_ context.Context, s structure.Structure, i int) (int, error) {
	cutoff := m.Cutoff
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}
	neighbors, err := Neighbors(s, i, cutoff)
	if err != nil {
		return 0, err
	}
	if len(neighbors) == 0 {
		return 0, nil
	}
	limit := neighbors[0].Distance * (1 + m.Tolerance)
	n := 0
	for _, nb := range neighbors {
		if nb.Distance > limit {
			break
		}
		n++
	}
	return n, nil
}
