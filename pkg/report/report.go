// Package report renders comparison results for people and machines.
//
// Three formats are supported: json is a complete dump of the result,
// xml is a summary with typed sections for CI consumption, and text is a
// human-readable summary. All writers render to an injected io.Writer.
package report

import (
	"fmt"
	"io"

	"github.com/tr181-tools/tr181-go/pkg/compare"
)

// Output formats accepted by NewWriter.
const (
	FormatJSON = "json"
	FormatXML  = "xml"
	FormatText = "text"
)

// Writer renders comparison results in one output format.
type Writer interface {
	// WriteComparison renders a basic comparison result.
	WriteComparison(result *compare.ComparisonResult) error

	// WriteEnhanced renders an enhanced comparison result.
	WriteEnhanced(result *compare.EnhancedComparisonResult) error
}

// NewWriter creates a writer for the named format. The empty format
// defaults to text.
func NewWriter(format string, w io.Writer) (Writer, error) {
	switch format {
	case FormatJSON:
		return NewJSONWriter(w, true), nil
	case FormatXML:
		return NewXMLWriter(w), nil
	case FormatText, "":
		return NewTextWriter(w, false), nil
	default:
		return nil, fmt.Errorf("unknown format: %s (supported: json, xml, text)", format)
	}
}
