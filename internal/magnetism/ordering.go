// Package magnetism reads collinear magnetic moments off a structure,
// classifies the resulting ordering, and compares spin configurations.
package magnetism

import (
	"fmt"
	"sort"
	"strings"
)

// Ordering is the classification of a spin configuration.
type Ordering string

const (
	Ferromagnetic     Ordering = "FM"
	Antiferromagnetic Ordering = "AFM"
	Ferrimagnetic     Ordering = "FiM"
	NonCollinear      Ordering = "NC"
	NonMagnetic       Ordering = "NM"
)

// Long returns the spelled-out name of the ordering.
func (o Ordering) Long() string {
	switch o {
	case Ferromagnetic:
		return "ferromagnetic"
	case Antiferromagnetic:
		return "antiferromagnetic"
	case Ferrimagnetic:
		return "ferrimagnetic"
	case NonCollinear:
		return "non-collinear"
	case NonMagnetic:
		return "non-magnetic"
	}
	return "unknown"
}

// MagneticSpecies pairs a species label with its initial spin magnitude.
type MagneticSpecies struct {
	Species string  `json:"species"`
	Spin    float64 `json:"spin"`
}

// DefaultMoments returns the built-in species → moment table in µB. A
// fresh map is returned on every call.
func DefaultMoments() map[string]float64 {
	return map[string]float64{
		"Ce":   5,
		"Co":   5,
		"Co3+": 0.6,
		"Co4+": 1,
		"Cr":   5,
		"Eu":   10,
		"Fe":   5,
		"Mn":   5,
		"Mn3+": 4,
		"Mn4+": 3,
		"Mo":   5,
		"Ni":   5,
		"V":    5,
		"W":    5,
	}
}

// Mode selects how an Analyzer resolves the moment of each site.
type Mode string

const (
	// ModeNone keeps moments present on the structure; sites without one
	// are non-magnetic.
	ModeNone Mode = "none"
	// ModeReplaceAll assigns every site its default moment.
	ModeReplaceAll Mode = "replace_all"
	// ModeReplaceAllIfUndefined behaves like ModeReplaceAll when no site
	// carries a moment, and like ModeNone otherwise.
	ModeReplaceAllIfUndefined Mode = "replace_all_if_undefined"
	// ModeRespectSign assigns default magnitudes but keeps the sign of the
	// input moment.
	ModeRespectSign Mode = "respect_sign"
	// ModeRespectZeros assigns default moments except where the input
	// moment is zero.
	ModeRespectZeros Mode = "respect_zeros"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeNone, ModeReplaceAll, ModeReplaceAllIfUndefined, ModeRespectSign, ModeRespectZeros:
		return m, nil
	case "":
		return ModeNone, nil
	}
	return "", fmt.Errorf("unknown magnetic moment mode %q", s)
}

// MergeMoments overlays overrides on the built-in table.
func MergeMoments(overrides map[string]float64) map[string]float64 {
	out := DefaultMoments()
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

func sortedSpeciesKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
