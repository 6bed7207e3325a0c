package dag

import (
	"fmt"
	"strings"
)

// ReportStrategy renders a textual view of a DAG. Implementations present
// the same graph state in different shapes.
type ReportStrategy interface {
	Render(dag *DAG, tracks []Track) string
}

// ExecutionPlanStrategy renders a numbered task list in topological order,
// annotating each task with its direct dependencies.
type ExecutionPlanStrategy struct {
	// Label, when set, replaces node IDs in the output.
	Label func(id string) string
}

// Render produces the numbered execution plan.
func (s ExecutionPlanStrategy) Render(d *DAG, _ []Track) string {
	order, err := d.TopologicalSort()
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	if len(order) == 0 {
		return "No tasks in graph."
	}

	var b strings.Builder
	b.WriteString("# Execution Plan\n\n")
	for i, id := range order {
		fmt.Fprintf(&b, "%d. %s", i+1, s.label(id))
		if deps := d.Dependencies(id); len(deps) > 0 {
			fmt.Fprintf(&b, " [depends on: %s]", strings.Join(deps, ", "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (s ExecutionPlanStrategy) label(id string) string {
	if s.Label == nil {
		return id
	}
	if l := s.Label(id); l != "" {
		return fmt.Sprintf("%s (%s)", id, l)
	}
	return id
}

// TrackAssignmentStrategy renders each independent track with its member
// tasks, followed by the tasks that were left out of the partition.
type TrackAssignmentStrategy struct{}

// Render produces a track-by-track report.
func (s TrackAssignmentStrategy) Render(d *DAG, tracks []Track) string {
	if len(tracks) == 0 {
		return "No tracks computed."
	}

	var b strings.Builder
	b.WriteString("# Independent Tracks\n\n")
	fmt.Fprintf(&b, "Total tracks: %d\n\n", len(tracks))
	inTrack := make(map[string]bool)
	for _, tr := range tracks {
		fmt.Fprintf(&b, "## Track %d (%d tasks)\n", tr.ID, len(tr.NodeIDs))
		for _, id := range tr.NodeIDs {
			inTrack[id] = true
			fmt.Fprintf(&b, "  - %s\n", id)
		}
		b.WriteByte('\n')
	}

	var joins []string
	for _, id := range d.Nodes() {
		if !inTrack[id] {
			joins = append(joins, id)
		}
	}
	if len(joins) > 0 {
		fmt.Fprintf(&b, "Joined after all tracks: %s\n", strings.Join(joins, ", "))
	}
	return b.String()
}
