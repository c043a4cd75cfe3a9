package datamodel

import (
	"fmt"
	"regexp"
)

// ValueRange errors.
var (
	// ErrBelowMinimum indicates a value below the allowed minimum.
	ErrBelowMinimum = fmt.Errorf("value below minimum")

	// ErrAboveMaximum indicates a value above the allowed maximum.
	ErrAboveMaximum = fmt.Errorf("value above maximum")

	// ErrNotAllowed indicates a value outside the enumerated set.
	ErrNotAllowed = fmt.Errorf("value not in allowed set")

	// ErrPatternMismatch indicates a value not matching the pattern.
	ErrPatternMismatch = fmt.Errorf("value does not match pattern")

	// ErrTooLong indicates a string value exceeding the maximum length.
	ErrTooLong = fmt.Errorf("value exceeds maximum length")
)

// ValueRange constrains the values a parameter may take. All fields are
// optional; a nil or zero range allows everything.
type ValueRange struct {
	MinValue      *float64 `json:"min_value,omitempty" yaml:"min_value,omitempty"`
	MaxValue      *float64 `json:"max_value,omitempty" yaml:"max_value,omitempty"`
	AllowedValues []string `json:"allowed_values,omitempty" yaml:"allowed_values,omitempty"`
	Pattern       string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	MaxLength     *int     `json:"max_length,omitempty" yaml:"max_length,omitempty"`
}

// Check validates a value against the range constraints. Numeric bounds
// apply to values convertible to a number; string constraints apply to
// string values. A nil receiver allows everything.
func (r *ValueRange) Check(value any) error {
	if r == nil || value == nil {
		return nil
	}

	if num, ok := toFloat64(value); ok {
		if r.MinValue != nil && num < *r.MinValue {
			return fmt.Errorf("%w: %v < %v", ErrBelowMinimum, num, *r.MinValue)
		}
		if r.MaxValue != nil && num > *r.MaxValue {
			return fmt.Errorf("%w: %v > %v", ErrAboveMaximum, num, *r.MaxValue)
		}
	}

	s, isString := value.(string)

	if len(r.AllowedValues) > 0 {
		formatted := fmt.Sprintf("%v", value)
		found := false
		for _, allowed := range r.AllowedValues {
			if formatted == allowed {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %q", ErrNotAllowed, formatted)
		}
	}

	if isString {
		if r.MaxLength != nil && len(s) > *r.MaxLength {
			return fmt.Errorf("%w: %d > %d", ErrTooLong, len(s), *r.MaxLength)
		}
		if r.Pattern != "" {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return fmt.Errorf("invalid pattern %q: %w", r.Pattern, err)
			}
			if !re.MatchString(s) {
				return fmt.Errorf("%w: %q !~ %q", ErrPatternMismatch, s, r.Pattern)
			}
		}
	}

	return nil
}

// toFloat64 converts numeric values to float64 for range comparison.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
