package rules

import "github.com/tr181-tools/tr181-go/pkg/validate"

// RegisterAllRules registers all validation rules with the given registry.
func RegisterAllRules(registry *validate.RuleRegistry) {
	RegisterRangeRules(registry)
	RegisterTypeRules(registry)
	RegisterNamingRules(registry)
	RegisterAccessRules(registry)
}

// NewDefaultRegistry creates a new registry with all rules registered.
func NewDefaultRegistry() *validate.RuleRegistry {
	registry := validate.NewRuleRegistry()
	RegisterAllRules(registry)
	return registry
}
