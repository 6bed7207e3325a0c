package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/papapumpkin/magorder/internal/dag"
	"github.com/papapumpkin/magorder/internal/enumerate"
	"github.com/papapumpkin/magorder/internal/magnetism"
	"github.com/papapumpkin/magorder/internal/store"
	"github.com/papapumpkin/magorder/internal/workflow"
)

func checkContains(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrinter_StatusLines(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := New(&buf, false)
	p.Error("boom")
	p.Info("note")
	p.Success("saved")
	p.Warn("careful")
	checkContains(t, buf.String(), "error: boom", "note", "✓ saved", "⚠ careful")
	if strings.Contains(buf.String(), "\033[") {
		t.Errorf("color disabled but output has escapes: %q", buf.String())
	}
}

func TestPrinter_Analysis(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	New(&buf, false).Analysis(&enumerate.Analysis{
		Sanitized: &enumerate.Sanitized{
			Formula:                "NiO",
			OriginalOrdering:       magnetism.Ferromagnetic,
			MagneticSpecies:        []magnetism.MagneticSpecies{{Species: "Ni", Spin: 5}},
			NumMagneticSites:       1,
			NumUniqueMagneticSites: 1,
		},
		Environments: enumerate.Environments{Unique: []int{6}},
		Strategies:   []enumerate.Strategy{enumerate.StrategyFerromagnetic, enumerate.StrategyAntiferromagnetic},
	})
	checkContains(t, buf.String(),
		"structure: NiO",
		"FM (ferromagnetic)",
		"Ni (5 µB)",
		"cn=6",
		"default max cell size: 4",
		"+ antiferromagnetic",
	)
}

func TestPrinter_PlanSummaryAndGraph(t *testing.T) {
	t.Parallel()
	g := testGraph(t, 2)
	plan := &workflow.Plan{
		RunID:      "run-7",
		Kind:       workflow.KindOrderings,
		Strategies: []enumerate.Strategy{enumerate.StrategyFerromagnetic, enumerate.StrategyAntiferromagnetic},
		Provenance: enumerate.Provenance{Tracked: true, Index: enumerate.NotEnumerated},
		Pool:       make([]enumerate.Candidate, 2),
		Graph:      g,
	}
	var buf bytes.Buffer
	p := New(&buf, false)
	p.PlanSummary(plan)
	if err := p.Graph(plan, 100); err != nil {
		t.Fatalf("Graph: %v", err)
	}
	checkContains(t, buf.String(),
		"Fe - magnetic orderings",
		"run:        run-7",
		"ferromagnetic, antiferromagnetic",
		"not enumerated, appended",
		"tasks:      5",
		"• ordering 1 AFM - optimize",
	)

	chain := inputChain(plan)
	if !chain[workflow.RelaxID(1)] || !chain[workflow.StaticID(1)] {
		t.Errorf("appended input chain = %v, want the last candidate", chain)
	}
}

func TestPrinter_Report(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := New(&buf, false).Report(testGraph(t, 2), dag.TrackAssignmentStrategy{}); err != nil {
		t.Fatalf("Report: %v", err)
	}
	checkContains(t, buf.String(), "Total tracks: 2", "Joined after all tracks: aggregate")
}

func TestPrinter_Runs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := New(&buf, false)
	p.Runs(nil)
	checkContains(t, buf.String(), "no stored runs")

	buf.Reset()
	p.Runs([]store.RunSummary{{
		ID:         "run-1",
		Kind:       workflow.KindOrderings,
		Formula:    "NiO",
		Candidates: 3,
		Tasks:      7,
		CreatedAt:  time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
	}})
	checkContains(t, buf.String(), "RUN", "run-1", "magnetic_orderings", "NiO")
}

func TestPrinter_Run(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	New(&buf, false).Run(&store.RunRecord{
		RunSummary: store.RunSummary{
			ID:           "run-1",
			Kind:         workflow.KindOrderings,
			WorkflowName: "NiO - magnetic orderings",
			Provenance:   enumerate.Provenance{Tracked: true, Index: 0},
		},
		Pool: []store.CandidateRecord{{Index: 0, Label: 0, Strategy: enumerate.StrategyFerromagnetic, Ordering: "FM"}},
		Tasks: []store.TaskRecord{
			{ID: "ordering-0-relax", Role: workflow.RoleRelax, Name: "ordering 0 FM - optimize"},
			{ID: "aggregate", Role: workflow.RoleAggregate, Name: "Magnetic Orderings Analysis", Predecessors: []string{"ordering-0-static"}},
		},
	})
	checkContains(t, buf.String(),
		"NiO - magnetic orderings",
		"found at candidate 0",
		"FM   ferromagnetic",
		"depends:[ordering-0-static]",
	)
}
