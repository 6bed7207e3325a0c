package extproc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/papapumpkin/magorder/internal/enumerate"
	"github.com/papapumpkin/magorder/internal/structure"
)

// generatorRequest is the JSON sent to a generator program.
type generatorRequest struct {
	Op             string                 `json:"op"`
	Structure      structure.Document     `json:"structure"`
	SpeciesSpins   map[string]float64     `json:"species_spins"`
	Constraints    []enumerate.Constraint `json:"constraints"`
	SiteProperties map[string][]int       `json:"site_properties,omitempty"`
	MaxCellSize    int                    `json:"max_cell_size"`
	TimeoutSeconds float64                `json:"timeout_seconds,omitempty"`
	RankLimit      int                    `json:"rank_limit"`
}

// Generator runs an external ordering generator.
type Generator struct {
	Runner Runner
}

// Enumerate implements enumerate.Generator. A call that outlives
// req.Timeout fails with enumerate.ErrGeneratorTimeout; any other failure
// wraps enumerate.ErrGeneratorFailure.
func (g Generator) Enumerate(ctx context.Context, req enumerate.Request) ([]enumerate.Result, error) {
	callCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var raw json.RawMessage
	err := g.Runner.Call(callCtx, generatorRequest{
		Op:             "enumerate",
		Structure:      req.Structure.Document(),
		SpeciesSpins:   req.SpeciesSpins,
		Constraints:    req.Constraints,
		SiteProperties: req.SiteProperties,
		MaxCellSize:    req.MaxCellSize,
		TimeoutSeconds: req.Timeout.Seconds(),
		RankLimit:      req.RankLimit,
	}, &raw)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", enumerate.ErrGeneratorTimeout, req.Timeout)
		}
		return nil, fmt.Errorf("%w: %v", enumerate.ErrGeneratorFailure, err)
	}

	results, err := decodeResults(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", enumerate.ErrGeneratorFailure, err)
	}
	return results, nil
}

// decodeResults normalizes a generator response. The response is a list
// (or a single item); each item is either a bare structure document or an
// object holding one under "structure" next to arbitrary metadata.
func decodeResults(raw json.RawMessage) ([]enumerate.Result, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var items []json.RawMessage
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decoding result list: %w", err)
		}
	} else {
		items = []json.RawMessage{raw}
	}

	out := make([]enumerate.Result, 0, len(items))
	for i, item := range items {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(item, &probe); err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		var res enumerate.Result
		docJSON := item
		if wrapped, ok := probe["structure"]; ok {
			docJSON = wrapped
			delete(probe, "structure")
			if len(probe) > 0 {
				res.Meta = make(map[string]any, len(probe))
				for k, v := range probe {
					var val any
					if err := json.Unmarshal(v, &val); err == nil {
						res.Meta[k] = val
					}
				}
			}
		}
		if err := json.Unmarshal(docJSON, &res.Structure); err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		out = append(out, res)
	}
	return out, nil
}
