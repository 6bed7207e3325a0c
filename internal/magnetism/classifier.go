package magnetism

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/papapumpkin/magorder/internal/structure"
)

// Classifier classifies structures by reading their moments in ModeNone.
type Classifier struct{}

// Classify returns the ordering of s.
func (Classifier) Classify(s structure.Structure) Ordering {
	a, err := NewAnalyzer(s, ModeNone, nil)
	if err != nil {
		return NonMagnetic
	}
	return a.Ordering()
}

// IsCollinear reports whether the moments of s share one axis.
func (Classifier) IsCollinear(s structure.Structure) bool {
	a, err := NewAnalyzer(s, ModeNone, nil)
	if err != nil {
		return false
	}
	return a.IsCollinear()
}

// SpinMatcher compares spin configurations of structures that share a cell:
// two structures match when they hold the same species at the same
// positions with the same spin pattern, up to a global spin flip. Structures
// of different size never match. It has no notion of symmetry and stands
// in for an external matcher.
type SpinMatcher struct {
	// Decimals is the rounding applied to fractional coordinates.
	Decimals int
}

// Matches reports whether a and b hold the same spin configuration.
func (m SpinMatcher) Matches(_ context.Context, a, b structure.Structure) bool {
	if a.Len() != b.Len() {
		return false
	}
	ka, kb := m.keys(a, 1), m.keys(b, 1)
	if equalKeys(ka, kb) {
		return true
	}
	return equalKeys(ka, m.keys(b, -1))
}

func (m SpinMatcher) keys(s structure.Structure, sign float64) []string {
	decimals := m.Decimals
	if decimals <= 0 {
		decimals = 3
	}
	moments, ok := inputMoments(s)
	if !ok {
		moments = make([]float64, s.Len())
	}
	out := make([]string, s.Len())
	for i, site := range s.Sites() {
		f := site.Frac
		for k := range f {
			f[k] -= math.Floor(f[k])
			if f[k] > 1-math.Pow10(-decimals) {
				f[k] = 0
			}
		}
		spin := 0
		switch v := moments[i] * sign; {
		case v >= ZeroMoment:
			spin = 1
		case v <= -ZeroMoment:
			spin = -1
		}
		out[i] = fmt.Sprintf("%s|%.*f,%.*f,%.*f|%d",
			site.Element(), decimals, f[0], decimals, f[1], decimals, f[2], spin)
	}
	sort.Strings(out)
	return out
}

func equalKeys(a, b []string) bool {
	return strings.Join(a, "\n") == strings.Join(b, "\n")
}
