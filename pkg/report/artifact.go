package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ArtifactWriter handles writing run artifacts
type ArtifactWriter struct {
	outputDir string
	json      bool
	markdown  bool
}

// NewArtifactWriter creates a writer emitting results.json and summary.md
func NewArtifactWriter(outputDir string) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
		json:      true,
		markdown:  true,
	}
}

// Formats selects which artifacts WriteAll emits
func (w *ArtifactWriter) Formats(jsonOut, markdownOut bool) *ArtifactWriter {
	w.json = jsonOut
	w.markdown = markdownOut
	return w
}

// WriteAll writes all configured artifact formats
func (w *ArtifactWriter) WriteAll(suite *SuiteReport) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if w.json {
		if err := w.WriteResultsJSON(suite); err != nil {
			return err
		}
	}

	if w.markdown {
		if err := w.WriteSummaryMarkdown(suite); err != nil {
			return err
		}
	}

	return nil
}

// WriteResultsJSON writes the full suite report as JSON
func (w *ArtifactWriter) WriteResultsJSON(suite *SuiteReport) error {
	path := filepath.Join(w.outputDir, "results.json")

	data, err := json.MarshalIndent(suite, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal suite report: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write results JSON: %w", writeErr)
	}

	return nil
}

// WriteSummaryMarkdown writes a human-readable markdown summary
func (w *ArtifactWriter) WriteSummaryMarkdown(suite *SuiteReport) error {
	path := filepath.Join(w.outputDir, "summary.md")

	if writeErr := os.WriteFile(path, []byte(Markdown(suite)), 0600); writeErr != nil {
		return fmt.Errorf("failed to write summary markdown: %w", writeErr)
	}

	return nil
}

// Markdown renders a suite report as markdown.
func Markdown(suite *SuiteReport) string {
	var md strings.Builder

	md.WriteString("# Flowguard Run Summary\n\n")
	md.WriteString(fmt.Sprintf("**Suite:** %s\n\n", suite.Name))
	md.WriteString(fmt.Sprintf("**Run:** %s\n\n", suite.RunID))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", suite.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", suite.Duration.Round(time.Millisecond)))

	md.WriteString("## Result\n\n")
	if suite.Failed() {
		md.WriteString(fmt.Sprintf("❌ **%d of %d scenarios failed**\n\n", suite.Totals.Failed, suite.Totals.Scenarios))
	} else {
		md.WriteString(fmt.Sprintf("✅ **All %d scenarios passed**\n\n", suite.Totals.Scenarios))
	}

	md.WriteString("## Scenarios\n\n")
	md.WriteString("| ID | Name | Status | Duration | Outcome |\n")
	md.WriteString("|---|---|---|---|---|\n")
	for _, r := range suite.Scenarios {
		status := "✅ passed"
		if r.Status != StatusPassed {
			status = "❌ failed"
		}
		md.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			r.ID, escapePipes(r.Name), status, r.Duration.Round(time.Millisecond), r.Outcome))
	}
	md.WriteString("\n")

	// Failures
	var failed []*ScenarioReport
	for _, r := range suite.Scenarios {
		if r.Status != StatusPassed {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		md.WriteString("## Failures\n\n")
		for _, r := range failed {
			md.WriteString(fmt.Sprintf("- **%s**: %s\n", r.ID, r.Error))
		}
		md.WriteString("\n")
	}

	// Diagnostics never affect status, but operators must see them
	var diagnostics []string
	for _, r := range suite.Scenarios {
		for _, a := range r.Annotations {
			if a.Type == CleanupFailure || a.Type == OverlayUnresolved {
				diagnostics = append(diagnostics, fmt.Sprintf("- **%s** `%s`: %s\n", r.ID, a.Type, a.Description))
			}
		}
	}
	if len(diagnostics) > 0 {
		md.WriteString("## Diagnostics\n\n")
		for _, d := range diagnostics {
			md.WriteString(d)
		}
		md.WriteString("\n")
	}

	md.WriteString("## Totals\n\n")
	md.WriteString(fmt.Sprintf("- **Scenarios:** %d\n", suite.Totals.Scenarios))
	md.WriteString(fmt.Sprintf("- **Passed:** %d\n", suite.Totals.Passed))
	md.WriteString(fmt.Sprintf("- **Failed:** %d\n", suite.Totals.Failed))
	md.WriteString(fmt.Sprintf("- **Cleanup failures:** %d\n", suite.Totals.CleanupFailures))
	md.WriteString(fmt.Sprintf("- **Unresolved overlays:** %d\n", suite.Totals.UnresolvedOverlays))

	return md.String()
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
