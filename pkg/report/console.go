package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	salmonPink  = lipgloss.Color("#FFB3BA")
	mintGreen   = lipgloss.Color("#A8E6CF")
	mutedGray   = lipgloss.Color("#6B7280")
	brightWhite = lipgloss.Color("#F9FAFB")
	errorRed    = lipgloss.Color("203")
	warnYellow  = lipgloss.Color("221")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(brightWhite)
	passStyle   = lipgloss.NewStyle().Bold(true).Foreground(mintGreen)
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(errorRed)
	warnStyle   = lipgloss.NewStyle().Foreground(warnYellow)
	mutedStyle  = lipgloss.NewStyle().Foreground(mutedGray)
	accentStyle = lipgloss.NewStyle().Foreground(salmonPink)
)

// Console prints progress and a final summary for a run.
type Console struct {
	writer io.Writer
}

// NewConsole creates a console printer.
func NewConsole(w io.Writer) *Console {
	return &Console{writer: w}
}

// Header prints the run banner.
func (c *Console) Header(suite string, scenarios int) {
	fmt.Fprintln(c.writer, titleStyle.Render(fmt.Sprintf("flowguard: %s (%d scenarios)", suite, scenarios)))
}

// ScenarioFinished prints one progress line.
func (c *Console) ScenarioFinished(r *ScenarioReport) {
	mark := passStyle.Render("✓")
	if !r.Passed() {
		mark = failStyle.Render("✗")
	}
	line := fmt.Sprintf("%s %s %s %s", mark, accentStyle.Render(r.ID), r.Name,
		mutedStyle.Render(r.Duration.Round(time.Millisecond).String()))
	if r.Outcome != "" {
		line += " " + mutedStyle.Render("["+r.Outcome+"]")
	}
	fmt.Fprintln(c.writer, line)
	if r.Error != "" {
		fmt.Fprintln(c.writer, "    "+failStyle.Render(r.Error))
	}
	for _, kind := range []AnnotationType{CleanupFailure, OverlayUnresolved} {
		for _, d := range r.Annotated(kind) {
			fmt.Fprintln(c.writer, "    "+warnStyle.Render(fmt.Sprintf("⚠ %s: %s", kind, d)))
		}
	}
}

// Summary prints the boxed run summary.
func (c *Console) Summary(suite *SuiteReport) {
	var content strings.Builder

	status := passStyle.Render("✓ PASSED")
	border := mintGreen
	if suite.Failed() {
		status = failStyle.Render("✗ FAILED")
		border = errorRed
	}
	content.WriteString(titleStyle.Render("RUN SUMMARY") + "  " + status + "\n")
	content.WriteString(fmt.Sprintf("Suite: %s\n", suite.Name))
	content.WriteString(fmt.Sprintf("Duration: %s\n", suite.Duration.Round(time.Millisecond)))
	content.WriteString(fmt.Sprintf("Scenarios: %d  passed: %d  failed: %d\n",
		suite.Totals.Scenarios, suite.Totals.Passed, suite.Totals.Failed))
	if suite.Totals.CleanupFailures > 0 || suite.Totals.UnresolvedOverlays > 0 {
		content.WriteString(warnStyle.Render(fmt.Sprintf("Cleanup failures: %d  unresolved overlays: %d",
			suite.Totals.CleanupFailures, suite.Totals.UnresolvedOverlays)))
		content.WriteString("\n")
	}
	content.WriteString(mutedStyle.Render("Run: " + suite.RunID))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)

	fmt.Fprintln(c.writer)
	fmt.Fprintln(c.writer, box.Render(content.String()))
}
