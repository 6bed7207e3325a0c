// Package ui provides stderr-based output for magorder: status lines, plan
// and run summaries, and a box-drawing view of workflow graphs.
package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/papapumpkin/magorder/internal/dag"
	"github.com/papapumpkin/magorder/internal/enumerate"
	"github.com/papapumpkin/magorder/internal/store"
	"github.com/papapumpkin/magorder/internal/workflow"
)

// Printer writes human-readable output.
type Printer struct {
	w     io.Writer
	color bool
}

// New returns a Printer writing to w.
func New(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

func (p *Printer) c(code, text string) string { return paint(p.color, code, text) }

func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.w, "%s%s\n", p.c(red+bold, "error: "), msg)
}

func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.w, p.c(dim, msg))
}

func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.w, p.c(green+bold, "✓ ")+msg)
}

func (p *Printer) Warn(msg string) {
	fmt.Fprintln(p.w, p.c(yellow+bold, "⚠ ")+msg)
}

// Analysis prints the classification, environments and strategies of an
// input structure.
func (p *Printer) Analysis(an *enumerate.Analysis) {
	san := an.Sanitized
	fmt.Fprintf(p.w, "%s\n", p.c(bold+cyan, "structure: "+san.Formula))
	fmt.Fprintf(p.w, "  input ordering:        %s (%s)\n", san.OriginalOrdering, san.OriginalOrdering.Long())
	species := make([]string, len(san.MagneticSpecies))
	for i, ms := range san.MagneticSpecies {
		species[i] = fmt.Sprintf("%s (%g µB)", ms.Species, ms.Spin)
	}
	fmt.Fprintf(p.w, "  magnetic species:      %s\n", strings.Join(species, ", "))
	fmt.Fprintf(p.w, "  magnetic sites:        %d (%d unique)\n", san.NumMagneticSites, san.NumUniqueMagneticSites)
	envs := make([]string, len(an.Environments.Unique))
	for i, cn := range an.Environments.Unique {
		envs[i] = fmt.Sprintf("cn=%d", cn)
	}
	fmt.Fprintf(p.w, "  environments:          %s\n", strings.Join(envs, ", "))
	fmt.Fprintf(p.w, "  default max cell size: %d\n", enumerate.DefaultMaxCellSize(san.NumMagneticSites))
	fmt.Fprintln(p.w, p.c(bold, "strategies:"))
	for _, st := range an.Strategies {
		fmt.Fprintf(p.w, "  %s %s\n", p.c(green, "+"), st)
	}
}

// PlanSummary prints the outcome of a plan build.
func (p *Printer) PlanSummary(plan *workflow.Plan) {
	fmt.Fprintf(p.w, "\n%s\n", p.c(bold+cyan, plan.Graph.Name))
	fmt.Fprintf(p.w, "  run:        %s\n", plan.RunID)
	if plan.Kind == workflow.KindOrderings {
		strategies := make([]string, len(plan.Strategies))
		for i, st := range plan.Strategies {
			strategies[i] = string(st)
		}
		fmt.Fprintf(p.w, "  strategies: %s\n", strings.Join(strategies, ", "))
		fmt.Fprintf(p.w, "  max cell:   %d\n", plan.MaxCellSize)
		fmt.Fprintf(p.w, "  candidates: %d (%d duplicates removed)\n", len(plan.Pool), plan.DuplicatesRemoved)
		fmt.Fprintf(p.w, "  input:      %s\n", provenanceText(plan.Provenance))
	}
	fmt.Fprintf(p.w, "  tasks:      %d\n", plan.Graph.Len())
	for _, n := range plan.Graph.ByRole(workflow.RoleRelax) {
		fmt.Fprintf(p.w, "    %s %s\n", p.c(blue, "•"), n.Name)
	}
	fmt.Fprintln(p.w)
}

func provenanceText(prov enumerate.Provenance) string {
	switch {
	case !prov.Tracked:
		return "non-magnetic, not tracked"
	case prov.Index == enumerate.NotEnumerated:
		return "not enumerated, appended"
	default:
		return fmt.Sprintf("found at candidate %d", prov.Index)
	}
}

// Graph draws g, highlighting the chain of the input configuration.
func (p *Printer) Graph(plan *workflow.Plan, width int) error {
	r := &GraphRenderer{Width: width, UseColor: p.color, Highlight: inputChain(plan)}
	out, err := r.Render(plan.Graph)
	if err != nil {
		return err
	}
	fmt.Fprint(p.w, out)
	return nil
}

func inputChain(plan *workflow.Plan) map[string]bool {
	if !plan.Provenance.Tracked || len(plan.Pool) == 0 {
		return nil
	}
	i := plan.Provenance.Index
	if i == enumerate.NotEnumerated {
		i = len(plan.Pool) - 1
	}
	return map[string]bool{workflow.RelaxID(i): true, workflow.StaticID(i): true}
}

// Report prints a textual report of the graph's task order or tracks.
func (p *Printer) Report(g *workflow.Graph, strategy dag.ReportStrategy) error {
	tracks, err := g.Tracks()
	if err != nil {
		return err
	}
	fmt.Fprintln(p.w, strategy.Render(g.DAG(), tracks))
	return nil
}

// Runs prints a table of stored runs.
func (p *Printer) Runs(runs []store.RunSummary) {
	if len(runs) == 0 {
		p.Info("no stored runs")
		return
	}
	fmt.Fprintf(p.w, "%s\n", p.c(bold, fmt.Sprintf("%-36s  %-20s  %-10s  %5s  %5s  %s", "RUN", "KIND", "FORMULA", "CANDS", "TASKS", "CREATED")))
	for _, r := range runs {
		fmt.Fprintf(p.w, "%-36s  %-20s  %-10s  %5d  %5d  %s\n",
			r.ID, r.Kind, r.Formula, r.Candidates, r.Tasks, r.CreatedAt.Local().Format(time.DateTime))
	}
}

// Run prints a stored run with its pool and tasks.
func (p *Printer) Run(rec *store.RunRecord) {
	fmt.Fprintf(p.w, "%s\n", p.c(bold+cyan, rec.WorkflowName))
	fmt.Fprintf(p.w, "  run:     %s\n", rec.ID)
	fmt.Fprintf(p.w, "  created: %s\n", rec.CreatedAt.Local().Format(time.DateTime))
	if rec.Kind == workflow.KindOrderings {
		fmt.Fprintf(p.w, "  input:   %s\n", provenanceText(rec.Provenance))
	}
	if len(rec.Pool) > 0 {
		fmt.Fprintln(p.w, p.c(bold, "candidates:"))
		for _, c := range rec.Pool {
			fmt.Fprintf(p.w, "  %3d  %-4s %-28s rank %d\n", c.Label, c.Ordering, c.Strategy, c.Rank)
		}
	}
	fmt.Fprintln(p.w, p.c(bold, "tasks:"))
	for _, t := range rec.Tasks {
		var deps string
		if len(t.Predecessors) > 0 {
			deps = p.c(dim, " depends:["+strings.Join(t.Predecessors, ",")+"]")
		}
		fmt.Fprintf(p.w, "  %-26s %-9s %s%s\n", t.ID, t.Role, t.Name, deps)
	}
}

// Watching reports that the plan will be rebuilt when path changes.
func (p *Printer) Watching(path string) {
	fmt.Fprintf(p.w, "%s watching %s for changes (ctrl-c to stop)\n", p.c(cyan, "◆"), path)
}
