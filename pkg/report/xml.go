package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/tr181-tools/tr181-go/pkg/compare"
	"github.com/tr181-tools/tr181-go/pkg/datamodel"
)

// XMLWriter renders summaries with typed sections for CI consumption.
// The markup is written by hand; none of the result types carry xml tags.
type XMLWriter struct {
	writer io.Writer
}

// NewXMLWriter creates an XML writer.
func NewXMLWriter(w io.Writer) *XMLWriter {
	return &XMLWriter{writer: w}
}

// WriteComparison renders the comparison as a standalone document.
func (r *XMLWriter) WriteComparison(result *compare.ComparisonResult) error {
	var b strings.Builder

	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString("\n")
	writeComparisonElement(&b, result, "")
	b.WriteString("\n")

	_, err := fmt.Fprint(r.writer, b.String())
	return err
}

// WriteEnhanced renders the enhanced result as a standalone document.
func (r *XMLWriter) WriteEnhanced(result *compare.EnhancedComparisonResult) error {
	var b strings.Builder
	summary := result.Summary()

	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString("\n")

	b.WriteString("<enhanced_comparison")
	if summary.ComplianceScore != nil {
		fmt.Fprintf(&b, ` compliance_score="%.1f"`, *summary.ComplianceScore)
	}
	b.WriteString(">\n")

	if result.Comparison != nil {
		writeComparisonElement(&b, result.Comparison, "  ")
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, `  <validation nodes="%d" valid="%d" errors="%d" warnings="%d">`,
		summary.NodesValidated,
		summary.NodesValid,
		summary.ValidationErrors,
		summary.ValidationWarnings)
	b.WriteString("\n")
	for _, v := range result.Validations {
		if len(v.Result.Errors) == 0 && len(v.Result.Warnings) == 0 {
			continue
		}
		fmt.Fprintf(&b, `    <node path="%s" valid="%t">`, escapeXML(v.Path), v.Result.Valid)
		b.WriteString("\n")
		for _, issue := range v.Result.Errors {
			fmt.Fprintf(&b, `      <issue severity="error" message="%s"/>`, escapeXML(issue.Message))
			b.WriteString("\n")
		}
		for _, issue := range v.Result.Warnings {
			fmt.Fprintf(&b, `      <issue severity="warning" message="%s"/>`, escapeXML(issue.Message))
			b.WriteString("\n")
		}
		b.WriteString("    </node>\n")
	}
	b.WriteString("  </validation>\n")

	writeOutcomesElement(&b, "events", result.Events,
		summary.EventsPassed, summary.EventsFailed, summary.EventAvgLatency.Seconds())
	writeOutcomesElement(&b, "functions", result.Functions,
		summary.FunctionsPassed, summary.FunctionsFailed, summary.FunctionAvgLatency.Seconds())

	b.WriteString("</enhanced_comparison>\n")

	_, err := fmt.Fprint(r.writer, b.String())
	return err
}

// writeComparisonElement renders one comparison element at the given
// indent, without a trailing newline.
func writeComparisonElement(b *strings.Builder, result *compare.ComparisonResult, indent string) {
	s := result.Summary

	fmt.Fprintf(b, `%s<comparison source1="%d" source2="%d" common="%d" differences="%d">`,
		indent, s.TotalSource1, s.TotalSource2, s.CommonNodes, s.DifferencesCount)
	b.WriteString("\n")

	writeNodesElement(b, "only_in_source1", result.OnlyInSource1, indent+"  ")
	writeNodesElement(b, "only_in_source2", result.OnlyInSource2, indent+"  ")

	fmt.Fprintf(b, `%s  <differences count="%d">`, indent, len(result.Differences))
	b.WriteString("\n")
	for _, d := range result.Differences {
		fmt.Fprintf(b, `%s    <difference path="%s" property="%s" severity="%s" source1="%s" source2="%s"/>`,
			indent,
			escapeXML(d.Path),
			escapeXML(d.Property),
			d.Severity,
			escapeXML(fmt.Sprint(d.Source1Value)),
			escapeXML(fmt.Sprint(d.Source2Value)))
		b.WriteString("\n")
	}
	fmt.Fprintf(b, "%s  </differences>\n", indent)

	fmt.Fprintf(b, "%s</comparison>", indent)
}

// writeNodesElement lists the nodes unique to one source.
func writeNodesElement(b *strings.Builder, name string, nodes []*datamodel.Node, indent string) {
	fmt.Fprintf(b, `%s<%s count="%d">`, indent, name, len(nodes))
	b.WriteString("\n")
	for _, n := range nodes {
		fmt.Fprintf(b, `%s  <node path="%s" type="%s" access="%s"/>`,
			indent, escapeXML(n.Path), escapeXML(n.Type.String()), escapeXML(n.Access.String()))
		b.WriteString("\n")
	}
	fmt.Fprintf(b, "%s</%s>\n", indent, name)
}

// writeOutcomesElement renders one test section with failures spelled out.
func writeOutcomesElement(b *strings.Builder, name string, outcomes []compare.TestOutcome, passed, failed int, avgSeconds float64) {
	if len(outcomes) == 0 {
		return
	}

	fmt.Fprintf(b, `  <%s passed="%d" failed="%d" avg_latency="%.3f">`, name, passed, failed, avgSeconds)
	b.WriteString("\n")
	for _, o := range outcomes {
		fmt.Fprintf(b, `    <test path="%s" name="%s" passed="%t" time="%.3f"`,
			escapeXML(o.Path), escapeXML(o.Name), o.Passed, o.Latency.Seconds())
		if o.Error != "" {
			fmt.Fprintf(b, ` message="%s"`, escapeXML(o.Error))
		}
		b.WriteString("/>\n")
	}
	fmt.Fprintf(b, "  </%s>\n", name)
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}

var _ Writer = (*XMLWriter)(nil)
