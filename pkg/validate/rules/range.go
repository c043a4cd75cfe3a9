// Package rules contains the default node validation rules.
package rules

import (
	"errors"
	"fmt"

	"github.com/tr181-tools/tr181-go/pkg/datamodel"
	"github.com/tr181-tools/tr181-go/pkg/validate"
)

// RegisterRangeRules registers all value-range rules with the given registry.
func RegisterRangeRules(registry *validate.RuleRegistry) {
	registry.Register(NewRNG001())
	registry.Register(NewRNG002())
	registry.Register(NewRNG003())
	registry.Register(NewRNG004())
}

// RNG001 checks a value against the declared numeric bounds.
type RNG001 struct {
	*validate.BaseRule
}

func NewRNG001() *RNG001 {
	return &RNG001{
		BaseRule: validate.NewBaseRule("RNG-001", "Value within numeric bounds", "range", validate.SeverityError),
	}
}

func (r *RNG001) Check(n *datamodel.Node, value any) []validate.Violation {
	if n.Range == nil || value == nil {
		return nil
	}

	err := n.Range.Check(value)
	if !errors.Is(err, datamodel.ErrBelowMinimum) && !errors.Is(err, datamodel.ErrAboveMaximum) {
		return nil
	}

	return []validate.Violation{{
		RuleID:     r.ID(),
		Severity:   r.DefaultSeverity(),
		Path:       n.Path,
		Message:    fmt.Sprintf("value %v: %v", value, err),
		Suggestion: fmt.Sprintf("Set a value within the declared bounds of %s", n.Path),
	}}
}

// RNG002 checks a value against the declared enumeration.
type RNG002 struct {
	*validate.BaseRule
}

func NewRNG002() *RNG002 {
	return &RNG002{
		BaseRule: validate.NewBaseRule("RNG-002", "Value in allowed set", "range", validate.SeverityError),
	}
}

func (r *RNG002) Check(n *datamodel.Node, value any) []validate.Violation {
	if n.Range == nil || value == nil {
		return nil
	}

	if !errors.Is(n.Range.Check(value), datamodel.ErrNotAllowed) {
		return nil
	}

	return []validate.Violation{{
		RuleID:     r.ID(),
		Severity:   r.DefaultSeverity(),
		Path:       n.Path,
		Message:    fmt.Sprintf("value %v is not one of the allowed values %v", value, n.Range.AllowedValues),
		Suggestion: fmt.Sprintf("Use one of: %v", n.Range.AllowedValues),
	}}
}

// RNG003 checks a value against the declared pattern.
type RNG003 struct {
	*validate.BaseRule
}

func NewRNG003() *RNG003 {
	return &RNG003{
		BaseRule: validate.NewBaseRule("RNG-003", "Value matches pattern", "range", validate.SeverityError),
	}
}

func (r *RNG003) Check(n *datamodel.Node, value any) []validate.Violation {
	if n.Range == nil || value == nil {
		return nil
	}

	if !errors.Is(n.Range.Check(value), datamodel.ErrPatternMismatch) {
		return nil
	}

	return []validate.Violation{{
		RuleID:   r.ID(),
		Severity: r.DefaultSeverity(),
		Path:     n.Path,
		Message:  fmt.Sprintf("value %v does not match pattern %q", value, n.Range.Pattern),
	}}
}

// RNG004 checks a value against the declared maximum length.
type RNG004 struct {
	*validate.BaseRule
}

func NewRNG004() *RNG004 {
	return &RNG004{
		BaseRule: validate.NewBaseRule("RNG-004", "Value within maximum length", "range", validate.SeverityError),
	}
}

func (r *RNG004) Check(n *datamodel.Node, value any) []validate.Violation {
	if n.Range == nil || value == nil {
		return nil
	}

	if !errors.Is(n.Range.Check(value), datamodel.ErrTooLong) {
		return nil
	}

	length := 0
	if s, ok := value.(string); ok {
		length = len(s)
	}

	return []validate.Violation{{
		RuleID:   r.ID(),
		Severity: r.DefaultSeverity(),
		Path:     n.Path,
		Message:  fmt.Sprintf("value length %d exceeds maximum length %d", length, *n.Range.MaxLength),
	}}
}
