// Package compare reconciles two node collections and reports their
// differences. The basic engine is pure set reconciliation over paths plus
// per-property diffing; the enhanced engine layers per-node validation and
// optional live event and function testing on top.
package compare

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/tr181-tools/tr181-go/pkg/datamodel"
	"github.com/tr181-tools/tr181-go/pkg/validate"
)

// Property names a NodeDifference can carry, in the order they are
// checked per node.
const (
	PropertyValue       = "value"
	PropertyAccess      = "access"
	PropertyDataType    = "dataType"
	PropertyDescription = "description"
)

// NodeDifference is one differing property of a node present in both
// sources.
type NodeDifference struct {
	Path         string            `json:"path" yaml:"path"`
	Property     string            `json:"property" yaml:"property"`
	Source1Value any               `json:"source1_value" yaml:"source1_value"`
	Source2Value any               `json:"source2_value" yaml:"source2_value"`
	Severity     validate.Severity `json:"severity" yaml:"severity"`
}

func (d NodeDifference) String() string {
	return fmt.Sprintf("%s %s: %v != %v (%s)", d.Path, d.Property, d.Source1Value, d.Source2Value, d.Severity)
}

// Summary are the headline counts of a comparison. DifferencesCount counts
// NodeDifference entries, not distinct paths.
type Summary struct {
	TotalSource1     int `json:"total_source1" yaml:"total_source1"`
	TotalSource2     int `json:"total_source2" yaml:"total_source2"`
	CommonNodes      int `json:"common_nodes" yaml:"common_nodes"`
	DifferencesCount int `json:"differences_count" yaml:"differences_count"`
}

// ComparisonResult is the outcome of comparing two collections. All slices
// are sorted by path.
type ComparisonResult struct {
	OnlyInSource1 []*datamodel.Node `json:"only_in_source1" yaml:"only_in_source1"`
	OnlyInSource2 []*datamodel.Node `json:"only_in_source2" yaml:"only_in_source2"`
	Differences   []NodeDifference  `json:"differences" yaml:"differences"`
	Summary       Summary           `json:"summary" yaml:"summary"`
}

// Compare reconciles two collections by path and diffs the nodes present
// in both. It performs no I/O, never fails, and does not mutate its
// inputs; nil collections compare as empty. Nodes sharing a path are
// diffed property by property in the fixed order value, access, dataType,
// description.
//
// Severity follows the property: dataType and access mismatches are
// errors; a value mismatch is an error when both sides carry a value and
// they differ under type-aware comparison (numbers compare numerically), a
// warning when only one side carries a value; description mismatches are
// informational.
func Compare(source1, source2 []*datamodel.Node) *ComparisonResult {
	index1, _ := datamodel.IndexByPath(source1)
	index2, _ := datamodel.IndexByPath(source2)

	result := &ComparisonResult{
		Summary: Summary{TotalSource1: len(source1), TotalSource2: len(source2)},
	}

	var common []string
	for path, n := range index1 {
		if _, ok := index2[path]; ok {
			common = append(common, path)
		} else {
			result.OnlyInSource1 = append(result.OnlyInSource1, n)
		}
	}
	for path, n := range index2 {
		if _, ok := index1[path]; !ok {
			result.OnlyInSource2 = append(result.OnlyInSource2, n)
		}
	}

	datamodel.SortByPath(result.OnlyInSource1)
	datamodel.SortByPath(result.OnlyInSource2)
	sort.Strings(common)

	for _, path := range common {
		result.Differences = append(result.Differences, diffNodes(index1[path], index2[path])...)
	}

	result.Summary.CommonNodes = len(common)
	result.Summary.DifferencesCount = len(result.Differences)
	return result
}

// diffNodes diffs one shared node property by property.
func diffNodes(n1, n2 *datamodel.Node) []NodeDifference {
	var diffs []NodeDifference

	switch {
	case n1.Value != nil && n2.Value != nil:
		if !valuesEqual(n1.Value, n2.Value) {
			diffs = append(diffs, NodeDifference{
				Path:         n1.Path,
				Property:     PropertyValue,
				Source1Value: n1.Value,
				Source2Value: n2.Value,
				Severity:     validate.SeverityError,
			})
		}
	case n1.Value != nil || n2.Value != nil:
		diffs = append(diffs, NodeDifference{
			Path:         n1.Path,
			Property:     PropertyValue,
			Source1Value: n1.Value,
			Source2Value: n2.Value,
			Severity:     validate.SeverityWarning,
		})
	}

	if n1.Access != n2.Access {
		diffs = append(diffs, NodeDifference{
			Path:         n1.Path,
			Property:     PropertyAccess,
			Source1Value: n1.Access.String(),
			Source2Value: n2.Access.String(),
			Severity:     validate.SeverityError,
		})
	}

	if n1.Type != n2.Type {
		diffs = append(diffs, NodeDifference{
			Path:         n1.Path,
			Property:     PropertyDataType,
			Source1Value: n1.Type.String(),
			Source2Value: n2.Type.String(),
			Severity:     validate.SeverityError,
		})
	}

	if n1.Description != n2.Description {
		diffs = append(diffs, NodeDifference{
			Path:         n1.Path,
			Property:     PropertyDescription,
			Source1Value: n1.Description,
			Source2Value: n2.Description,
			Severity:     validate.SeverityInfo,
		})
	}

	return diffs
}

// valuesEqual compares two non-nil values type-aware: values that are
// numbers, or strings holding numbers, compare numerically; everything
// else compares by canonical string form, so 6, 6.0 and "6" are one value
// but true and "yes" are not.
func valuesEqual(a, b any) bool {
	af, aok := numeric(a)
	bf, bok := numeric(b)
	if aok != bok {
		return false
	}
	if aok {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// numeric extracts a float64 from numbers and numeric strings. Booleans do
// not count as numeric.
func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
