// Package ui renders the terminal front end: the progressive response, the
// final word diff and status messages.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"grammar-ollama/internal/correct"
	"grammar-ollama/internal/diff"
)

// Display provides the terminal UI for corrections
type Display struct {
	out          io.Writer
	width        int
	showThinking bool
	styles       Styles
	renderer     *glamour.TermRenderer

	// printed is the part of the current response already written
	printed   string
	thinking  bool
	startTime time.Time
}

// NewDisplay creates a display writing to stdout
func NewDisplay(showThinking bool) *Display {
	return NewDisplayWriter(os.Stdout, lipgloss.NewRenderer(os.Stdout), terminalWidth(), showThinking)
}

// NewDisplayWriter creates a display writing to out with the given renderer
func NewDisplayWriter(out io.Writer, r *lipgloss.Renderer, width int, showThinking bool) *Display {
	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width-10, 20)),
	)

	return &Display{
		out:          out,
		width:        width,
		showThinking: showThinking,
		styles:       NewStyles(r),
		renderer:     renderer,
	}
}

// Color codes
const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorYel   = "\033[33m"
	colorCyan  = "\033[36m"
	colorGray  = "\033[90m"
)

const helpText = `# Grammar correction

Type or paste text and press **Enter** to get a corrected version.

| command | action |
|---|---|
| /copy | copy the last corrected text to the clipboard |
| /clear | clear the screen |
| /help | show this help |
| /exit | quit |
`

// ClearScreen clears the terminal
func (d *Display) ClearScreen() {
	fmt.Fprint(d.out, "\033[2J\033[H")
}

// PrintWelcome displays the welcome message
func (d *Display) PrintWelcome(modelName string) {
	fmt.Fprintf(d.out, "%s%sgrammar-ollama%s\n", colorBold, colorCyan, colorReset)
	if modelName == "" {
		fmt.Fprintf(d.out, "%sModel:%s not configured (set -model or GRAMMAR_MODEL)\n", colorGray, colorReset)
	} else {
		fmt.Fprintf(d.out, "%sModel:%s %s\n", colorGray, colorReset, modelName)
	}
	fmt.Fprintf(d.out, "%sCommands:%s /copy | /clear | /help | /exit\n\n", colorGray, colorReset)
}

// PrintHelp renders the help text as markdown
func (d *Display) PrintHelp() {
	if d.renderer != nil {
		if rendered, err := d.renderer.Render(helpText); err == nil {
			fmt.Fprint(d.out, rendered)
			return
		}
	}
	fmt.Fprint(d.out, helpText)
}

// PrintPrompt displays user input prompt
func (d *Display) PrintPrompt() {
	fmt.Fprintf(d.out, "\n%s%s❯%s ", colorBold, colorGreen, colorReset)
}

// Observe renders a session snapshot. Pending snapshots extend the streamed
// text; terminal snapshots close the response.
func (d *Display) Observe(snap correct.Snapshot) {
	switch snap.Status {
	case correct.StatusPending:
		if snap.Response == "" && d.printed == "" {
			if d.startTime.IsZero() {
				d.startResponse()
			}
			return
		}
		d.writeResponse(snap.Response)
	case correct.StatusSuccess:
		d.writeResponse(snap.Response)
		d.finishSuccess(snap)
	case correct.StatusError:
		d.finishError(snap.Response)
	}
}

// WriteThinking writes suppressed reasoning text dimmed
func (d *Display) WriteThinking(text string) {
	if !d.showThinking {
		return
	}
	d.thinking = true
	fmt.Fprint(d.out, d.styles.Muted.Render(text))
}

func (d *Display) startResponse() {
	d.startTime = time.Now()
	d.printed = ""
	d.thinking = false
	fmt.Fprintf(d.out, "\n%s┌─ Improved text%s\n", colorGray, colorReset)
}

// writeResponse prints the part of response not yet on screen. The published
// response is trimmed, so it normally only grows at the end; anything else
// is reprinted on a fresh line.
func (d *Display) writeResponse(response string) {
	if d.startTime.IsZero() {
		d.startResponse()
	}
	if d.thinking {
		fmt.Fprintln(d.out)
		d.thinking = false
	}

	if strings.HasPrefix(response, d.printed) {
		fmt.Fprint(d.out, response[len(d.printed):])
	} else {
		fmt.Fprintf(d.out, "\n%s", response)
	}
	d.printed = response
}

func (d *Display) finishSuccess(snap correct.Snapshot) {
	duration := time.Since(d.startTime)
	fmt.Fprintln(d.out)
	fmt.Fprintf(d.out, "%s│%s\n", colorGray, colorReset)

	if diff.Changed(snap.Diff) {
		fmt.Fprintf(d.out, "%s│ Changes:%s\n", colorGray, colorReset)
		for _, line := range strings.Split(d.styles.RenderDiff(snap.Diff), "\n") {
			fmt.Fprintf(d.out, "%s│%s %s\n", colorGray, colorReset, line)
		}
	} else {
		fmt.Fprintf(d.out, "%s│ No changes%s\n", colorGray, colorReset)
	}

	meta := formatDuration(duration)
	if snap.Stats != nil {
		meta = fmt.Sprintf("%s · +%d -%d words", meta, snap.Stats.Added, snap.Stats.Removed)
	}
	fmt.Fprintf(d.out, "%s│%s\n%s└ %s%s\n", colorGray, colorReset, colorGray, meta, colorReset)

	d.reset()
}

func (d *Display) finishError(message string) {
	if d.printed != "" || d.thinking {
		fmt.Fprintln(d.out)
	}
	fmt.Fprintf(d.out, "%s│%s %s\n", colorGray, colorReset, d.styles.Error.Render(message))
	fmt.Fprintf(d.out, "%s└%s\n", colorGray, colorReset)

	d.reset()
}

func (d *Display) reset() {
	d.printed = ""
	d.thinking = false
	d.startTime = time.Time{}
}

// PrintInfo displays info message
func (d *Display) PrintInfo(msg string) {
	fmt.Fprintf(d.out, "%sℹ %s%s\n", colorCyan, msg, colorReset)
}

// PrintWarning displays warning message
func (d *Display) PrintWarning(msg string) {
	fmt.Fprintf(d.out, "%s⚠ %s%s\n", colorYel, msg, colorReset)
}

// PrintError displays error message
func (d *Display) PrintError(err error) {
	fmt.Fprintf(d.out, "%s✗ Error: %v%s\n", colorRed, err, colorReset)
}

// PrintSuccess displays success message
func (d *Display) PrintSuccess(msg string) {
	fmt.Fprintf(d.out, "%s✓ %s%s\n", colorGreen, msg, colorReset)
}

// PrintGoodbye displays goodbye message
func (d *Display) PrintGoodbye() {
	fmt.Fprintf(d.out, "\n%sBye!%s\n", colorCyan, colorReset)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
