package diagram

import (
	"fmt"
	"slices"
	"strings"
)

// statusTag returns a short ASCII indicator for a status string.
func statusTag(status string) string {
	switch status {
	case "completed":
		return "[OK]"
	case "failed":
		return "[FAIL]"
	case "running":
		return "[RUN]"
	default:
		return ""
	}
}

// RenderASCII renders a DiagramModel as a vertical chain of boxes. Edges that
// do not point at the following box are written out under the box.
func RenderASCII(model *DiagramModel) string {
	var b strings.Builder

	if model.Title != "" {
		b.WriteString(fmt.Sprintf("=== %s ===\n\n", model.Title))
	}

	out := outgoing(model.Edges)
	var unreachable []*Node
	chain := make([]*Node, 0, len(model.Nodes))
	for _, node := range model.Nodes {
		if node.Reachable {
			chain = append(chain, node)
		} else {
			unreachable = append(unreachable, node)
		}
	}

	for i, node := range chain {
		for _, line := range makeBox(node) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if i == len(chain)-1 {
			break
		}
		next := chain[i+1].ID
		for _, to := range out[node.ID] {
			if to != next {
				b.WriteString(fmt.Sprintf("  ↳ %s\n", to))
			}
		}
		if slices.Contains(out[node.ID], next) {
			b.WriteString("       │\n")
			b.WriteString("       ▼\n")
		} else {
			b.WriteByte('\n')
		}
	}

	if len(unreachable) > 0 {
		b.WriteString("\n--- unreachable ---\n")
		for _, node := range unreachable {
			b.WriteString(fmt.Sprintf("  %s (%s)", node.ID, node.Selector))
			for _, to := range out[node.ID] {
				b.WriteString(fmt.Sprintf(" → %s", to))
			}
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// makeBox renders a node as box-drawing lines.
func makeBox(node *Node) []string {
	content := strings.Split(node.Label, "\n")
	if node.Status != nil {
		tag := statusTag(node.Status.Status)
		if node.Status.Runs > 1 {
			tag = fmt.Sprintf("%s x%d", tag, node.Status.Runs)
		}
		if tag != "" {
			content = append(content, tag)
		}
	}

	maxLen := 0
	for _, line := range content {
		if n := len([]rune(line)); n > maxLen {
			maxLen = n
		}
	}
	width := maxLen + 4 // 2 border + 2 padding

	lines := make([]string, 0, len(content)+2)
	lines = append(lines, "┌"+strings.Repeat("─", width-2)+"┐")
	for _, line := range content {
		padded := line + strings.Repeat(" ", maxLen-len([]rune(line)))
		lines = append(lines, "│ "+padded+" │")
	}
	lines = append(lines, "└"+strings.Repeat("─", width-2)+"┘")
	return lines
}

func outgoing(edges []Edge) map[string][]string {
	out := make(map[string][]string)
	for _, e := range edges {
		out[e.From] = append(out[e.From], e.To)
	}
	return out
}
