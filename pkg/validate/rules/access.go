package rules

import (
	"github.com/tr181-tools/tr181-go/pkg/datamodel"
	"github.com/tr181-tools/tr181-go/pkg/validate"
)

// RegisterAccessRules registers all access-level rules with the given registry.
func RegisterAccessRules(registry *validate.RuleRegistry) {
	registry.Register(NewACC001())
	registry.Register(NewACC002())
}

// ACC001 flags write-only parameters that report a value. A device exposing
// the current value of a write-only parameter leaks what the access level
// promises to hide, typically credentials.
type ACC001 struct {
	*validate.BaseRule
}

func NewACC001() *ACC001 {
	return &ACC001{
		BaseRule: validate.NewBaseRule("ACC-001", "Write-only parameter hides its value", "access", validate.SeverityWarning),
	}
}

func (r *ACC001) Check(n *datamodel.Node, value any) []validate.Violation {
	if n.Access != datamodel.AccessWriteOnly || value == nil {
		return nil
	}

	return []validate.Violation{{
		RuleID:     r.ID(),
		Severity:   r.DefaultSeverity(),
		Path:       n.Path,
		Message:    "write-only parameter reports a value",
		Suggestion: "Declare the parameter read-write or stop exposing its value",
	}}
}

// ACC002 flags object nodes declared write-only. Objects are either
// read-only or, for creatable instance tables, read-write; a write-only
// container cannot be traversed.
type ACC002 struct {
	*validate.BaseRule
}

func NewACC002() *ACC002 {
	return &ACC002{
		BaseRule: validate.NewBaseRule("ACC-002", "Object not write-only", "access", validate.SeverityWarning),
	}
}

func (r *ACC002) Check(n *datamodel.Node, _ any) []validate.Violation {
	if !n.IsObject || n.Access != datamodel.AccessWriteOnly {
		return nil
	}

	return []validate.Violation{{
		RuleID:     r.ID(),
		Severity:   r.DefaultSeverity(),
		Path:       n.Path,
		Message:    "object node declared write-only",
		Suggestion: "Declare the object read-only, or read-write if instances can be created",
	}}
}
