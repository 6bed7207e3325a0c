package ui

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/papapumpkin/magorder/internal/dag"
	"github.com/papapumpkin/magorder/internal/workflow"
)

// compactThreshold is the task count above which the renderer switches
// from boxes to one line per task.
const compactThreshold = 10

// GraphRenderer draws a workflow graph wave by wave: every candidate's
// relax tasks on the first row, their static tasks on the second, the
// aggregate last.
type GraphRenderer struct {
	// Width is the available terminal width in columns.
	Width int
	// UseColor controls whether ANSI escape codes are emitted.
	UseColor bool
	// Highlight marks tasks drawn in bold.
	Highlight map[string]bool
}

// Render returns the drawing of g.
func (r *GraphRenderer) Render(g *workflow.Graph) (string, error) {
	waves, err := g.Waves()
	if err != nil {
		return "", err
	}
	if len(waves) == 0 {
		return "", nil
	}
	width := r.Width
	if width <= 0 {
		width = 80
	}
	if g.Len() > compactThreshold {
		return r.renderCompact(g, waves), nil
	}
	tracks, err := g.Tracks()
	if err != nil {
		return "", err
	}
	trackOf := make(map[string]int)
	for _, tr := range tracks {
		for _, id := range tr.NodeIDs {
			trackOf[id] = tr.ID
		}
	}
	return r.renderBoxes(g, waves, trackOf, width), nil
}

type box struct {
	lines  []string
	width  int
	center int
}

func (r *GraphRenderer) renderBoxes(g *workflow.Graph, waves []dag.Wave, trackOf map[string]int, width int) string {
	boxes := make(map[string]*box, g.Len())
	var sb strings.Builder
	for wi, w := range waves {
		row := make([]*box, len(w.NodeIDs))
		for i, id := range w.NodeIDs {
			n, _ := g.Node(id)
			track, inTrack := trackOf[id]
			row[i] = r.box(n, inTrack && track > 0)
			boxes[id] = row[i]
		}
		layoutRow(row, width)
		if wi > 0 {
			r.connect(&sb, g, w, boxes, width)
		}
		drawRow(&sb, row)
	}
	return sb.String()
}

// box builds the bordered text of a task. Tasks outside the first track
// get a double border so neighbouring chains stay apart.
func (r *GraphRenderer) box(n *workflow.TaskNode, double bool) *box {
	content := []string{n.Name, string(n.Role)}
	if n.Name == "" {
		content[0] = n.ID
	}
	inner := 6
	for _, line := range content {
		inner = max(inner, utf8.RuneCountInString(line))
	}

	tl, tr, bl, br, h, v := "┌", "┐", "└", "┘", "─", "│"
	if double {
		tl, tr, bl, br, h, v = "╔", "╗", "╚", "╝", "═", "║"
	}
	code := roleColor(n.Role)
	if r.Highlight[n.ID] {
		code = bold + code
	}

	lines := []string{paint(r.UseColor, code, tl+strings.Repeat(h, inner+2)+tr)}
	for _, c := range content {
		pad := strings.Repeat(" ", inner-utf8.RuneCountInString(c))
		lines = append(lines, paint(r.UseColor, code, v+" "+c+pad+" "+v))
	}
	lines = append(lines, paint(r.UseColor, code, bl+strings.Repeat(h, inner+2)+br))
	return &box{lines: lines, width: inner + 4}
}

func roleColor(role workflow.Role) string {
	switch role {
	case workflow.RoleRelax:
		return blue
	case workflow.RoleStatic:
		return cyan
	case workflow.RoleAggregate:
		return magenta
	}
	return dim
}

// layoutRow spreads the boxes of a row evenly across width.
func layoutRow(row []*box, width int) {
	if len(row) == 1 {
		row[0].center = width / 2
		return
	}
	total := 0
	for _, b := range row {
		total += b.width
	}
	gap := 2
	if total < width {
		gap = max(2, (width-total)/(len(row)+1))
	}
	x := gap
	for _, b := range row {
		b.center = x + b.width/2
		x += b.width + gap
	}
}

func drawRow(sb *strings.Builder, row []*box) {
	height := 0
	for _, b := range row {
		height = max(height, len(b.lines))
	}
	for i := 0; i < height; i++ {
		cursor := 0
		for _, b := range row {
			if i >= len(b.lines) {
				continue
			}
			start := max(0, b.center-b.width/2)
			if start > cursor {
				sb.WriteString(strings.Repeat(" ", start-cursor))
				cursor = start
			}
			sb.WriteString(b.lines[i])
			cursor += visibleLen(b.lines[i])
		}
		sb.WriteByte('\n')
	}
}

// connect draws two connector lines from the predecessors of the tasks in
// w down to those tasks: vertical drops, then a branching line.
func (r *GraphRenderer) connect(sb *strings.Builder, g *workflow.Graph, w dag.Wave, boxes map[string]*box, width int) {
	type link struct{ from, to int }
	var links []link
	for _, id := range w.NodeIDs {
		for _, dep := range g.Predecessors(id) {
			if from, ok := boxes[dep]; ok {
				links = append(links, link{from.center, boxes[id].center})
			}
		}
	}
	if len(links) == 0 {
		return
	}
	blank := func() []rune {
		line := make([]rune, width)
		for i := range line {
			line[i] = ' '
		}
		return line
	}
	inRange := func(col int) bool { return col >= 0 && col < width }

	drops := blank()
	for _, l := range links {
		if inRange(l.from) {
			drops[l.from] = '│'
		}
	}
	writeLine(sb, drops)

	branch := blank()
	for _, l := range links {
		if l.from == l.to {
			continue
		}
		lo, hi := min(l.from, l.to), max(l.from, l.to)
		for col := max(lo, 0); col <= hi && col < width; col++ {
			if branch[col] == ' ' {
				branch[col] = '─'
			}
		}
	}
	const (
		source = 1 << iota
		target
		straight
	)
	marks := make(map[int]int)
	for _, l := range links {
		if l.from == l.to {
			marks[l.from] |= straight
			continue
		}
		marks[l.from] |= source
		marks[l.to] |= target
	}
	for col, m := range marks {
		if !inRange(col) {
			continue
		}
		switch {
		case m&source != 0 && m&target != 0, m&straight != 0 && m != straight:
			branch[col] = '┼'
		case m&source != 0:
			branch[col] = '┴'
		case m&target != 0:
			branch[col] = '┬'
		case branch[col] == '─':
			branch[col] = '┼'
		default:
			branch[col] = '│'
		}
	}
	writeLine(sb, branch)
}

func writeLine(sb *strings.Builder, line []rune) {
	sb.WriteString(strings.TrimRight(string(line), " "))
	sb.WriteByte('\n')
}

// renderCompact lists each wave's tasks with arrows to their dependents.
func (r *GraphRenderer) renderCompact(g *workflow.Graph, waves []dag.Wave) string {
	var sb strings.Builder
	for wi, w := range waves {
		if wi > 0 {
			sb.WriteByte('\n')
		}
		label := fmt.Sprintf("Wave %d: ", w.Number)
		indent := strings.Repeat(" ", len(label))
		sb.WriteString(paint(r.UseColor, dim, label))
		for i, id := range w.NodeIDs {
			if i > 0 {
				sb.WriteString(indent)
			}
			sb.WriteString(r.compactTask(g, id))
			children := g.Successors(id)
			sort.Strings(children)
			for _, child := range children {
				sb.WriteString(" → ")
				sb.WriteString(r.compactTask(g, child))
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func (r *GraphRenderer) compactTask(g *workflow.Graph, id string) string {
	n, _ := g.Node(id)
	title := n.Name
	if title == "" {
		title = id
	}
	text := "[" + title + "]"
	if !r.UseColor {
		if r.Highlight[id] {
			return text + "*"
		}
		return text
	}
	code := roleColor(n.Role)
	if r.Highlight[id] {
		code = bold + code
	}
	return code + text + reset
}
