package enumerate

import "errors"

// Sentinel errors for ordering enumeration. Callers test with errors.Is.
var (
	// ErrUnorderedInput indicates partial site occupancies.
	ErrUnorderedInput = errors.New("input structure is not ordered")

	// ErrNonCollinearInput indicates vector moments that do not share an axis.
	ErrNonCollinearInput = errors.New("input structure is non-collinear")

	// ErrEnumerationTooLarge indicates more symmetry-distinct magnetic sites
	// than MaxUniqueMagneticSites.
	ErrEnumerationTooLarge = errors.New("too many magnetic sites to enumerate")

	// ErrNoMagneticSites indicates that no site carries a moment once
	// defaults are applied.
	ErrNoMagneticSites = errors.New("no magnetic sites")

	// ErrNoGenerator indicates that no combinatorial generator was supplied.
	ErrNoGenerator = errors.New("no ordering generator configured")

	// ErrGeneratorTimeout is returned by generators that exceed their
	// timeout. It is propagated unchanged.
	ErrGeneratorTimeout = errors.New("ordering generator timed out")

	// ErrGeneratorFailure is returned by generators for any other failure.
	// It is propagated unchanged.
	ErrGeneratorFailure = errors.New("ordering generator failed")
)

// MaxUniqueMagneticSites caps the symmetry-distinct magnetic sites of an
// enumerable structure.
const MaxUniqueMagneticSites = 8
