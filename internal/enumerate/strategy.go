package enumerate

// Strategy is a family of spin orderings.
type Strategy string

const (
	StrategyFerromagnetic            Strategy = "ferromagnetic"
	StrategyAntiferromagnetic        Strategy = "antiferromagnetic"
	StrategyFerrimagneticByMotif     Strategy = "ferrimagnetic_by_motif"
	StrategyFerrimagneticBySpecies   Strategy = "ferrimagnetic_by_species"
	StrategyAntiferromagneticByMotif Strategy = "antiferromagnetic_by_motif"

	// StrategyInput marks the input configuration appended by provenance
	// tracking.
	StrategyInput Strategy = "input"
)

// Overrides are explicit user choices that take precedence over the
// heuristic.
type Overrides struct {
	// AttemptFerrimagnetic forces ferrimagnetic attempts on or off; nil
	// leaves the choice to the heuristic.
	AttemptFerrimagnetic *bool
	AttemptAFMByMotif    bool
}

// SelectStrategies decides which ordering families to enumerate. The
// ferromagnetic seed and the antiferromagnetic call always run. When not
// overridden, ferrimagnetic orderings are attempted if there is more than
// one environment or more than one magnetic species. They are enumerated
// by environment when every magnetic species is the same element (Fe2+ and
// Fe3+ in an inverse spinel count as one), and by species otherwise.
func SelectStrategies(uniqueEnvironments, magneticSpecies, magneticElements int, o Overrides) []Strategy {
	attemptFerri := uniqueEnvironments > 1 || magneticSpecies > 1
	if o.AttemptFerrimagnetic != nil {
		attemptFerri = *o.AttemptFerrimagnetic
	}

	out := []Strategy{StrategyFerromagnetic, StrategyAntiferromagnetic}
	switch {
	case attemptFerri && magneticElements == 1 && uniqueEnvironments > 1:
		out = append(out, StrategyFerrimagneticByMotif)
	case attemptFerri && magneticSpecies > 1:
		out = append(out, StrategyFerrimagneticBySpecies)
	}
	if o.AttemptAFMByMotif {
		out = append(out, StrategyAntiferromagneticByMotif)
	}
	return out
}
