package extproc

import (
	"context"

	"github.com/papapumpkin/magorder/internal/logging"
	"github.com/papapumpkin/magorder/internal/structure"
)

type matchRequest struct {
	Op string             `json:"op"`
	A  structure.Document `json:"a"`
	B  structure.Document `json:"b"`
}

type matchResponse struct {
	Match bool `json:"match"`
}

// Matcher runs an external structure matcher.
type Matcher struct {
	Runner Runner
}

// Matches implements enumerate.Matcher. A failed call is logged and
// reported as no match.
func (m Matcher) Matches(ctx context.Context, a, b structure.Structure) bool {
	var resp matchResponse
	err := m.Runner.Call(ctx, matchRequest{Op: "match", A: a.Document(), B: b.Document()}, &resp)
	if err != nil {
		logging.FromContext(ctx).Warn("structure matcher failed, treating as no match", "error", err)
		return false
	}
	return resp.Match
}
