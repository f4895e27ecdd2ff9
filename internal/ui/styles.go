package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"grammar-ollama/internal/diff"
)

// Styles holds the lipgloss styles used for diff output
type Styles struct {
	Added     lipgloss.Style
	Removed   lipgloss.Style
	Unchanged lipgloss.Style
	Error     lipgloss.Style
	Muted     lipgloss.Style

	// plain is set when the output has no colour support; changes are then
	// marked with wdiff-style brackets instead
	plain bool
}

// NewStyles builds styles for the given renderer
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Added:     r.NewStyle().Foreground(lipgloss.Color("2")).Underline(true),
		Removed:   r.NewStyle().Foreground(lipgloss.Color("1")).Strikethrough(true),
		Unchanged: r.NewStyle(),
		Error:     r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Muted:     r.NewStyle().Foreground(lipgloss.Color("8")).Faint(true),
		plain:     r.ColorProfile() == termenv.Ascii,
	}
}

// RenderDiff renders word diff segments. Added text is underlined green and
// removed text struck through in red; without colour support they become
// {+added+} and [-removed-].
func (s Styles) RenderDiff(segments []diff.Segment) string {
	var sb strings.Builder

	for _, seg := range segments {
		switch seg.Kind() {
		case diff.KindAdded:
			if s.plain {
				sb.WriteString("{+" + seg.Value + "+}")
			} else {
				sb.WriteString(renderLines(s.Added, seg.Value))
			}
		case diff.KindRemoved:
			if s.plain {
				sb.WriteString("[-" + seg.Value + "-]")
			} else {
				sb.WriteString(renderLines(s.Removed, seg.Value))
			}
		default:
			sb.WriteString(seg.Value)
		}
	}

	return sb.String()
}

// renderLines styles each line separately so a newline inside a segment
// does not carry the escape sequence onto the next line
func renderLines(style lipgloss.Style, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = style.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
