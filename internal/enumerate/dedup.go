package enumerate

import "context"

// Deduplicate removes every candidate that m reports as equivalent to an
// earlier surviving candidate, keeping the earliest representative. Each
// candidate not yet marked is compared against every other candidate, and
// all marked candidates are dropped in a single pass, so survivors keep
// their relative order. Candidates are never compared with themselves.
func Deduplicate(ctx context.Context, pool []Candidate, m Matcher) []Candidate {
	remove := make(map[int]bool)
	for i := range pool {
		if remove[i] {
			continue
		}
		for j := range pool {
			if i == j {
				continue
			}
			if m.Matches(ctx, pool[i].Structure, pool[j].Structure) {
				remove[j] = true
			}
		}
	}
	if len(remove) == 0 {
		return pool
	}
	out := make([]Candidate, 0, len(pool)-len(remove))
	for i, c := range pool {
		if !remove[i] {
			out = append(out, c)
		}
	}
	return out
}
