package rules

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tr181-tools/tr181-go/pkg/datamodel"
	"github.com/tr181-tools/tr181-go/pkg/validate"
)

// RegisterNamingRules registers all path naming rules with the given registry.
func RegisterNamingRules(registry *validate.RuleRegistry) {
	registry.Register(NewNAM001())
	registry.Register(NewNAM002())
	registry.Register(NewNAM003())
}

// NAM001 checks that a path is rooted at Device.
type NAM001 struct {
	*validate.BaseRule
}

func NewNAM001() *NAM001 {
	return &NAM001{
		BaseRule: validate.NewBaseRule("NAM-001", "Path rooted at Device.", "naming", validate.SeverityWarning),
	}
}

func (r *NAM001) Check(n *datamodel.Node, _ any) []validate.Violation {
	if n.Path == "" || n.Path == "Device" || strings.HasPrefix(n.Path, datamodel.RootPath) {
		return nil
	}

	return []validate.Violation{{
		RuleID:     r.ID(),
		Severity:   r.DefaultSeverity(),
		Path:       n.Path,
		Message:    fmt.Sprintf("path does not start with %s", datamodel.RootPath),
		Suggestion: fmt.Sprintf("Prefix the path with %s", datamodel.RootPath),
	}}
}

// NAM002 checks that non-numeric path segments start with an uppercase
// letter, per TR-181 naming conventions.
type NAM002 struct {
	*validate.BaseRule
}

func NewNAM002() *NAM002 {
	return &NAM002{
		BaseRule: validate.NewBaseRule("NAM-002", "Segments capitalized", "naming", validate.SeverityWarning),
	}
}

func (r *NAM002) Check(n *datamodel.Node, _ any) []validate.Violation {
	var violations []validate.Violation
	for _, segment := range datamodel.Segments(n.Path) {
		if segment == "" || datamodel.IsInstanceNumber(segment) {
			continue
		}
		first, _ := utf8.DecodeRuneInString(segment)
		if unicode.IsUpper(first) {
			continue
		}
		violations = append(violations, validate.Violation{
			RuleID:   r.ID(),
			Severity: r.DefaultSeverity(),
			Path:     n.Path,
			Message:  fmt.Sprintf("segment %q does not start with an uppercase letter", segment),
		})
	}
	return violations
}

// NAM003 checks that a path contains no empty segments.
type NAM003 struct {
	*validate.BaseRule
}

func NewNAM003() *NAM003 {
	return &NAM003{
		BaseRule: validate.NewBaseRule("NAM-003", "No empty segments", "naming", validate.SeverityError),
	}
}

func (r *NAM003) Check(n *datamodel.Node, _ any) []validate.Violation {
	if n.Path == "" {
		return []validate.Violation{{
			RuleID:   r.ID(),
			Severity: r.DefaultSeverity(),
			Message:  "empty path",
		}}
	}

	var violations []validate.Violation
	for _, segment := range datamodel.Segments(n.Path) {
		if segment != "" {
			continue
		}
		violations = append(violations, validate.Violation{
			RuleID:     r.ID(),
			Severity:   r.DefaultSeverity(),
			Path:       n.Path,
			Message:    "empty path segment",
			Suggestion: "Remove the doubled dot from the path",
		})
	}
	return violations
}
