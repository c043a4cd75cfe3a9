package report

import (
	"fmt"
	"io"
	"time"

	"github.com/tr181-tools/tr181-go/pkg/compare"
	"github.com/tr181-tools/tr181-go/pkg/datamodel"
)

// TextWriter renders human-readable summaries. Verbose adds passing test
// lines and validation warnings to the output.
type TextWriter struct {
	writer  io.Writer
	verbose bool
}

// NewTextWriter creates a text writer.
func NewTextWriter(w io.Writer, verbose bool) *TextWriter {
	return &TextWriter{
		writer:  w,
		verbose: verbose,
	}
}

// WriteComparison renders the comparison summary, the nodes unique to
// each source and every differing property.
func (r *TextWriter) WriteComparison(result *compare.ComparisonResult) error {
	s := result.Summary

	fmt.Fprintf(r.writer, "=== Comparison ===\n\n")
	fmt.Fprintf(r.writer, "Source 1 nodes: %d\n", s.TotalSource1)
	fmt.Fprintf(r.writer, "Source 2 nodes: %d\n", s.TotalSource2)
	fmt.Fprintf(r.writer, "Common nodes:   %d\n", s.CommonNodes)
	fmt.Fprintf(r.writer, "Differences:    %d\n", s.DifferencesCount)

	r.writeNodeList("Only in source 1", result.OnlyInSource1)
	r.writeNodeList("Only in source 2", result.OnlyInSource2)

	if len(result.Differences) > 0 {
		fmt.Fprintf(r.writer, "\nDifferences:\n")
		for _, d := range result.Differences {
			fmt.Fprintf(r.writer, "  [%s] %s %s: %v != %v\n",
				d.Severity, d.Path, d.Property, d.Source1Value, d.Source2Value)
		}
	}

	return nil
}

// WriteEnhanced renders the comparison followed by validation and test
// sections and, when available, the compliance score.
func (r *TextWriter) WriteEnhanced(result *compare.EnhancedComparisonResult) error {
	if result.Comparison != nil {
		if err := r.WriteComparison(result.Comparison); err != nil {
			return err
		}
	}

	summary := result.Summary()

	fmt.Fprintf(r.writer, "\n=== Validation ===\n\n")
	fmt.Fprintf(r.writer, "Nodes validated: %d\n", summary.NodesValidated)
	fmt.Fprintf(r.writer, "Valid:           %d\n", summary.NodesValid)
	fmt.Fprintf(r.writer, "Errors:          %d\n", summary.ValidationErrors)
	fmt.Fprintf(r.writer, "Warnings:        %d\n", summary.ValidationWarnings)

	for _, v := range result.Validations {
		issues := len(v.Result.Errors)
		if r.verbose {
			issues += len(v.Result.Warnings)
		}
		if issues == 0 {
			continue
		}
		fmt.Fprintf(r.writer, "  %s:\n", v.Path)
		for _, issue := range v.Result.Errors {
			fmt.Fprintf(r.writer, "    error: %s\n", issue.Message)
		}
		if r.verbose {
			for _, issue := range v.Result.Warnings {
				fmt.Fprintf(r.writer, "    warning: %s\n", issue.Message)
			}
		}
	}

	if len(result.Events) > 0 {
		r.writeOutcomes("Event Tests", result.Events,
			summary.EventsPassed, summary.EventsFailed, summary.EventAvgLatency)
	}
	if len(result.Functions) > 0 {
		r.writeOutcomes("Function Tests", result.Functions,
			summary.FunctionsPassed, summary.FunctionsFailed, summary.FunctionAvgLatency)
	}

	if summary.ComplianceScore != nil {
		fmt.Fprintf(r.writer, "\nCompliance Score: %.1f/100\n", *summary.ComplianceScore)
	}

	return nil
}

// writeNodeList lists the paths of nodes present in only one source.
func (r *TextWriter) writeNodeList(label string, nodes []*datamodel.Node) {
	if len(nodes) == 0 {
		return
	}
	fmt.Fprintf(r.writer, "\n%s (%d):\n", label, len(nodes))
	for _, n := range nodes {
		fmt.Fprintf(r.writer, "  %s\n", n.Path)
	}
}

// writeOutcomes renders one test section. Failures are always listed,
// passes only in verbose mode.
func (r *TextWriter) writeOutcomes(label string, outcomes []compare.TestOutcome, passed, failed int, avg time.Duration) {
	fmt.Fprintf(r.writer, "\n=== %s ===\n\n", label)
	fmt.Fprintf(r.writer, "Passed: %d  Failed: %d", passed, failed)
	if avg > 0 {
		fmt.Fprintf(r.writer, "  Avg Latency: %s", formatDuration(avg))
	}
	fmt.Fprintln(r.writer)

	for _, o := range outcomes {
		if o.Passed && !r.verbose {
			continue
		}
		status := "FAIL"
		if o.Passed {
			status = "PASS"
		}
		fmt.Fprintf(r.writer, "  [%s] %s (%s)", status, o.Path, o.Name)
		if o.Error != "" {
			fmt.Fprintf(r.writer, ": %s", o.Error)
		}
		fmt.Fprintln(r.writer)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

var _ Writer = (*TextWriter)(nil)
