package extproc

import (
	"context"
	"fmt"

	"github.com/papapumpkin/magorder/internal/structure"
)

type symmetryRequest struct {
	Op        string             `json:"op"`
	Structure structure.Document `json:"structure"`
}

type symmetryResponse struct {
	Structure *structure.Structure `json:"structure,omitempty"`
	Labels    []int                `json:"labels,omitempty"`
}

// Symmetry runs an external symmetry program.
type Symmetry struct {
	Runner Runner
}

// Primitive implements enumerate.SymmetryAnalyzer.
func (s Symmetry) Primitive(ctx context.Context, in structure.Structure) (structure.Structure, error) {
	var resp symmetryResponse
	if err := s.Runner.Call(ctx, symmetryRequest{Op: "primitive", Structure: in.Document()}, &resp); err != nil {
		return structure.Structure{}, err
	}
	if resp.Structure == nil {
		return structure.Structure{}, fmt.Errorf("%s returned no structure", s.Runner.Path)
	}
	return *resp.Structure, nil
}

// EquivalentSites implements enumerate.SymmetryAnalyzer.
func (s Symmetry) EquivalentSites(ctx context.Context, in structure.Structure) ([]int, error) {
	var resp symmetryResponse
	if err := s.Runner.Call(ctx, symmetryRequest{Op: "equivalent_sites", Structure: in.Document()}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Labels) != in.Len() {
		return nil, fmt.Errorf("%s returned %d labels for %d sites", s.Runner.Path, len(resp.Labels), in.Len())
	}
	return resp.Labels, nil
}
