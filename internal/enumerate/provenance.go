package enumerate

import (
	"context"

	"github.com/papapumpkin/magorder/internal/magnetism"
	"github.com/papapumpkin/magorder/internal/structure"
)

// NotEnumerated is the provenance index of an input configuration that
// enumeration did not produce.
const NotEnumerated = -1

// Provenance records where the input configuration sits in the pool.
type Provenance struct {
	// Tracked is false when the input was non-magnetic and no lookup ran.
	Tracked bool `json:"tracked"`
	// Index is a pool index, or NotEnumerated when the input was appended.
	Index int `json:"index"`
}

// TrackProvenance locates original in pool. A non-magnetic original is not
// tracked. Otherwise the first matching pool index is recorded; with no
// match, original is appended and the index is NotEnumerated.
func TrackProvenance(ctx context.Context, pool []Candidate, original structure.Structure, ordering magnetism.Ordering, m Matcher) ([]Candidate, Provenance) {
	if ordering == magnetism.NonMagnetic {
		return pool, Provenance{}
	}
	for i, c := range pool {
		if m.Matches(ctx, original, c.Structure) {
			return pool, Provenance{Tracked: true, Index: i}
		}
	}
	out := make([]Candidate, len(pool), len(pool)+1)
	copy(out, pool)
	out = append(out, Candidate{Structure: original, Strategy: StrategyInput, Rank: NotEnumerated})
	return out, Provenance{Tracked: true, Index: NotEnumerated}
}

// Label returns the index used to name candidate i of a final pool: its
// position, or NotEnumerated for the appended input.
func Label(pool []Candidate, i int) int {
	if pool[i].Strategy == StrategyInput {
		return NotEnumerated
	}
	return i
}
