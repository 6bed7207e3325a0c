package workflow

import (
	"maps"

	"github.com/papapumpkin/magorder/internal/enumerate"
	"github.com/papapumpkin/magorder/internal/magnetism"
	"github.com/papapumpkin/magorder/internal/structure"
)

const (
	orderingsWorkflow    = "magnetic_orderings"
	orderingsVersion     = "1.3"
	orderingsAggregate   = "MagneticOrderingsToDB"
	deformationWorkflow  = "magnetic_deformation"
	deformationVersion   = "1.2"
	deformationAggregate = "MagneticDeformationToDB"

	// maxForceThreshold is the residual force, in eV/Å, below which a relax
	// is considered converged.
	maxForceThreshold = 0.05
)

// CalcOptions configure the calculation tasks of a plan.
type CalcOptions struct {
	Command        string
	DBFile         string
	PerformBader   bool
	InputOverrides map[string]any
}

// DefaultCalcOptions returns the settings used when none are configured.
func DefaultCalcOptions() CalcOptions {
	return CalcOptions{
		Command:      "vasp_std",
		DBFile:       "db.json",
		PerformBader: true,
	}
}

// CalcPayload is the calculation request of a relax or static task. The
// runtime turns it into concrete calculation input.
type CalcPayload struct {
	Structure          structure.Structure `json:"structure"`
	Ordering           magnetism.Ordering  `json:"ordering"`
	InputSettings      map[string]any      `json:"input_settings,omitempty"`
	Command            string              `json:"command"`
	DBFile             string              `json:"db_file"`
	MaxForceThreshold  float64             `json:"max_force_threshold,omitempty"`
	HalfKptsFirstRelax bool                `json:"half_kpts_first_relax"`
	// PrevCalcFrom names the task whose output seeds this one.
	PrevCalcFrom      string   `json:"prev_calc_from,omitempty"`
	DerivedProperties []string `json:"derived_properties,omitempty"`
}

// PoolEntry is one candidate as the aggregate task sees it.
type PoolEntry struct {
	Index     int                 `json:"index"`
	Label     int                 `json:"label"`
	Strategy  enumerate.Strategy  `json:"strategy"`
	Rank      int                 `json:"rank"`
	Ordering  magnetism.Ordering  `json:"ordering"`
	Structure structure.Structure `json:"structure"`
}

// AggregatePayload is the request of the aggregate task, which compares the
// finished candidates and stores the outcome.
type AggregatePayload struct {
	Name            string               `json:"name"`
	RunID           string               `json:"wf_uuid"`
	DBFile          string               `json:"db_file"`
	ParentStructure structure.Structure  `json:"parent_structure"`
	Pool            []PoolEntry          `json:"pool,omitempty"`
	Provenance      enumerate.Provenance `json:"provenance"`
	Strategy        map[string]any       `json:"strategy,omitempty"`
	PerformBader    bool                 `json:"perform_bader"`
	AutoGenerated   bool                 `json:"auto_generated"`
	ToDB            bool                 `json:"to_db"`
}

// relaxSettings returns the relax input settings for a candidate. Spin
// polarization is switched off only for non-magnetic candidates.
func relaxSettings(ordering magnetism.Ordering, overrides map[string]any) map[string]any {
	settings := map[string]any{
		"ISYM":  0,
		"LASPH": true,
	}
	maps.Copy(settings, overrides)
	if ordering == magnetism.NonMagnetic {
		settings["ISPIN"] = 1
	}
	return settings
}

func (o CalcOptions) relax(s structure.Structure, ordering magnetism.Ordering) *CalcPayload {
	return &CalcPayload{
		Structure:         s,
		Ordering:          ordering,
		InputSettings:     relaxSettings(ordering, o.InputOverrides),
		Command:           o.Command,
		DBFile:            o.DBFile,
		MaxForceThreshold: maxForceThreshold,
	}
}

func (o CalcOptions) static(s structure.Structure, ordering magnetism.Ordering, relaxID string) *CalcPayload {
	p := &CalcPayload{
		Structure:    s,
		Ordering:     ordering,
		Command:      o.Command,
		DBFile:       o.DBFile,
		PrevCalcFrom: relaxID,
	}
	if o.PerformBader {
		p.DerivedProperties = []string{"bader"}
	}
	return p
}
