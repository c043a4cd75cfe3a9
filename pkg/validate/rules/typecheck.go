package rules

import (
	"fmt"

	"github.com/tr181-tools/tr181-go/pkg/datamodel"
	"github.com/tr181-tools/tr181-go/pkg/validate"
)

// RegisterTypeRules registers all data-type rules with the given registry.
func RegisterTypeRules(registry *validate.RuleRegistry) {
	registry.Register(NewTYP001())
	registry.Register(NewTYP002())
	registry.Register(NewTYP003())
}

// TYP001 checks that a value is plausibly convertible to the declared type.
type TYP001 struct {
	*validate.BaseRule
}

func NewTYP001() *TYP001 {
	return &TYP001{
		BaseRule: validate.NewBaseRule("TYP-001", "Value matches declared type", "type", validate.SeverityError),
	}
}

func (r *TYP001) Check(n *datamodel.Node, value any) []validate.Violation {
	if value == nil {
		return nil
	}

	_, err := datamodel.CheckValueLenient(n.Type, value)
	if err == nil {
		return nil
	}

	return []validate.Violation{{
		RuleID:     r.ID(),
		Severity:   r.DefaultSeverity(),
		Path:       n.Path,
		Message:    fmt.Sprintf("value does not match declared type %s: %v", n.Type, err),
		Suggestion: fmt.Sprintf("Provide a %s value or correct the declared type", n.Type),
	}}
}

// TYP002 flags values that convert to the declared type only through a
// sloppy spelling, such as a boolean "yes" or an integer 0 for false.
type TYP002 struct {
	*validate.BaseRule
}

func NewTYP002() *TYP002 {
	return &TYP002{
		BaseRule: validate.NewBaseRule("TYP-002", "Value uses canonical spelling", "type", validate.SeverityInfo),
	}
}

func (r *TYP002) Check(n *datamodel.Node, value any) []validate.Violation {
	if value == nil {
		return nil
	}

	warnings, err := datamodel.CheckValueLenient(n.Type, value)
	if err != nil {
		return nil // TYP-001 reports the mismatch
	}

	var violations []validate.Violation
	for _, w := range warnings {
		violations = append(violations, validate.Violation{
			RuleID:   r.ID(),
			Severity: r.DefaultSeverity(),
			Path:     n.Path,
			Message:  w,
		})
	}
	return violations
}

// TYP003 checks that the object flag and the declared data type agree: an
// object node declares type object and a parameter node does not.
type TYP003 struct {
	*validate.BaseRule
}

func NewTYP003() *TYP003 {
	return &TYP003{
		BaseRule: validate.NewBaseRule("TYP-003", "Object flag matches declared type", "type", validate.SeverityWarning),
	}
}

func (r *TYP003) Check(n *datamodel.Node, _ any) []validate.Violation {
	if n.IsObject == (n.Type == datamodel.DataTypeObject) {
		return nil
	}

	message := "parameter node declares type object"
	if n.IsObject {
		message = "object node does not declare type object"
	}

	return []validate.Violation{{
		RuleID:   r.ID(),
		Severity: r.DefaultSeverity(),
		Path:     n.Path,
		Message:  message,
	}}
}
