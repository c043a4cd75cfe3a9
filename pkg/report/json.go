package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tr181-tools/tr181-go/pkg/compare"
)

// JSONWriter dumps results as JSON documents, one per call.
type JSONWriter struct {
	writer io.Writer
	pretty bool
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool) *JSONWriter {
	return &JSONWriter{
		writer: w,
		pretty: pretty,
	}
}

// WriteComparison dumps the full comparison result.
func (r *JSONWriter) WriteComparison(result *compare.ComparisonResult) error {
	return r.writeJSON(result)
}

// jsonEnhanced inlines the result and appends the computed summary.
type jsonEnhanced struct {
	*compare.EnhancedComparisonResult
	Summary compare.EnhancedSummary `json:"summary"`
}

// WriteEnhanced dumps the full enhanced result plus its summary.
func (r *JSONWriter) WriteEnhanced(result *compare.EnhancedComparisonResult) error {
	return r.writeJSON(jsonEnhanced{
		EnhancedComparisonResult: result,
		Summary:                  result.Summary(),
	})
}

func (r *JSONWriter) writeJSON(v any) error {
	var data []byte
	var err error

	if r.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	_, err = fmt.Fprintln(r.writer, string(data))
	return err
}

var _ Writer = (*JSONWriter)(nil)
