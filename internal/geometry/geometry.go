// Package geometry provides periodic neighbor queries over a
// structure.Structure: minimum-distance coordination numbers and a
// neighbor-shell fingerprint used as a symmetry fallback when no external
// symmetry program is configured.
package geometry

import (
	"fmt"
	"math"
	"sort"

	"github.com/papapumpkin/magorder/internal/structure"
)

// Neighbor is one periodic image of a site within a cutoff.
type Neighbor struct {
	Index    int
	Distance float64
}

// Neighbors returns every periodic image of every site within cutoff Å of
// site i, excluding site i itself at zero distance, sorted by distance.
func Neighbors(s structure.Structure, i int, cutoff float64) ([]Neighbor, error) {
	if i < 0 || i >= s.Len() {
		return nil, fmt.Errorf("site index %d out of range [0, %d)", i, s.Len())
	}
	lat := s.Lattice()
	reach, err := imageReach(lat, cutoff)
	if err != nil {
		return nil, err
	}

	origin := s.Site(i).Frac
	var out []Neighbor
	for j, site := range s.Sites() {
		base := wrap(site.Frac.Sub(origin))
		for a := -reach[0]; a <= reach[0]; a++ {
			for b := -reach[1]; b <= reach[1]; b++ {
				for c := -reach[2]; c <= reach[2]; c++ {
					frac := base.Add(structure.Vec3{float64(a), float64(b), float64(c)})
					d := lat.Cartesian(frac).Norm()
					if d < 1e-8 || d > cutoff {
						continue
					}
					out = append(out, Neighbor{Index: j, Distance: d})
				}
			}
		}
	}
	sort.Slice(out, func(x, y int) bool {
		if out[x].Distance != out[y].Distance {
			return out[x].Distance < out[y].Distance
		}
		return out[x].Index < out[y].Index
	})
	return out, nil
}

// imageReach returns how many lattice translations along each axis are
// needed to cover a sphere of radius cutoff.
func imageReach(lat structure.Lattice, cutoff float64) ([3]int, error) {
	vol := lat.Volume()
	if vol == 0 {
		return [3]int{}, fmt.Errorf("degenerate lattice")
	}
	m := lat.Matrix
	faces := [3]float64{
		m[1].Cross(m[2]).Norm(),
		m[2].Cross(m[0]).Norm(),
		m[0].Cross(m[1]).Norm(),
	}
	var reach [3]int
	for k, area := range faces {
		height := vol / area
		reach[k] = int(math.Ceil(cutoff/height)) + 1
	}
	return reach, nil
}

// wrap maps each fractional component into [-0.5, 0.5).
func wrap(v structure.Vec3) structure.Vec3 {
	for k := range v {
		v[k] -= math.Floor(v[k] + 0.5)
	}
	return v
}
