package validate

import (
	"fmt"

	"github.com/tr181-tools/tr181-go/pkg/datamodel"
)

// NodeValidator checks a single node definition against an observed value.
// The enhanced comparison engine runs one instance over every node shared
// between two sources.
type NodeValidator struct {
	// Registry supplies the rule set. When nil, a built-in minimal check
	// runs instead: declared type against value (lenient) plus the node's
	// declared value range.
	Registry *RuleRegistry
}

// NewNodeValidator creates a validator backed by the given registry. A nil
// registry selects the built-in checks.
func NewNodeValidator(registry *RuleRegistry) *NodeValidator {
	return &NodeValidator{Registry: registry}
}

// Validate checks one node. The observed value takes precedence over the
// node's declared value; both may be nil, in which case only structural
// rules apply.
func (v *NodeValidator) Validate(node *datamodel.Node, observed any) *Result {
	result := NewResult()
	if node == nil {
		result.AddError("", "node is nil")
		return result
	}

	value := observed
	if value == nil {
		value = node.Value
	}

	if v.Registry == nil {
		v.basicChecks(node, value, result)
		return result
	}

	for _, violation := range v.Registry.RunRules(node, value) {
		switch violation.Severity {
		case SeverityError:
			result.AddError(violation.Path, violation.Message)
		default:
			// Info level is folded into warnings so Result stays the
			// two-level accumulator the extractors expect.
			result.AddWarning(violation.Path, violation.Message)
		}
	}

	return result
}

// ValidateOptions configures rule-based validation behavior.
type ValidateOptions struct {
	// MinSeverity filters violations to only those at or above this severity.
	MinSeverity Severity
	// DisabledRules is a list of rule IDs to disable.
	DisabledRules []string
	// EnabledCategories limits validation to rules in these categories.
	// If empty, all categories are included.
	EnabledCategories []string
}

// ValidateWithOptions checks one node with per-run registry adjustments.
// It falls back to the built-in checks when the validator has no registry.
func (v *NodeValidator) ValidateWithOptions(node *datamodel.Node, observed any, opts ValidateOptions) *Result {
	if v.Registry == nil {
		return v.Validate(node, observed)
	}

	for _, id := range opts.DisabledRules {
		v.Registry.Disable(id)
	}

	if len(opts.EnabledCategories) > 0 {
		v.Registry.DisableAll()
		for _, cat := range opts.EnabledCategories {
			v.Registry.EnableCategory(cat)
		}
	}

	value := observed
	if value == nil && node != nil {
		value = node.Value
	}

	result := NewResult()
	if node == nil {
		result.AddError("", "node is nil")
		return result
	}

	violations := FilterBySeverity(v.Registry.RunRules(node, value), opts.MinSeverity)
	for _, violation := range violations {
		switch violation.Severity {
		case SeverityError:
			result.AddError(violation.Path, violation.Message)
		default:
			result.AddWarning(violation.Path, violation.Message)
		}
	}
	return result
}

// basicChecks is the registry-free fallback: declared type and range only.
func (v *NodeValidator) basicChecks(node *datamodel.Node, value any, result *Result) {
	warnings, err := datamodel.CheckValueLenient(node.Type, value)
	if err != nil {
		result.AddError(node.Path, fmt.Sprintf("value does not match declared type %s: %v", node.Type, err))
	}
	for _, w := range warnings {
		result.AddWarning(node.Path, w)
	}

	if node.Range != nil && value != nil {
		if err := node.Range.Check(value); err != nil {
			result.AddError(node.Path, fmt.Sprintf("value outside declared range: %v", err))
		}
	}
}
