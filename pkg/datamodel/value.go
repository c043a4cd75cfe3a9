package datamodel

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrTypeMismatch indicates a value whose type does not fit the declared
// DataType.
var ErrTypeMismatch = errors.New("type mismatch")

// dateTimeLayouts are the accepted textual timestamp forms, tried in order.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// CheckValueLenient validates a value against a declared type under the
// lenient policy used for sources that serialize everything as strings: a
// value is acceptable if it is plausibly convertible to the declared type.
// Sloppy but recognizable spellings (a boolean "yes", an integer 0 for
// false) pass with a warning. A nil value is always valid.
func CheckValueLenient(t DataType, value any) (warnings []string, err error) {
	if value == nil {
		return nil, nil
	}

	switch t {
	case DataTypeString:
		return nil, nil

	case DataTypeInt:
		if _, ok := toInt64(value); ok {
			return nil, nil
		}
		if s, ok := value.(string); ok {
			if _, convErr := strconv.ParseInt(strings.TrimSpace(s), 10, 64); convErr == nil {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("%w: expected int, got %T (%v)", ErrTypeMismatch, value, value)

	case DataTypeBoolean:
		switch v := value.(type) {
		case bool:
			return nil, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "false":
				return nil, nil
			case "1", "0", "yes", "no", "on", "off":
				return []string{fmt.Sprintf("non-canonical boolean value %q", v)}, nil
			default:
				return nil, fmt.Errorf("%w: expected boolean, got %q", ErrTypeMismatch, v)
			}
		default:
			if n, ok := toInt64(value); ok && (n == 0 || n == 1) {
				return []string{fmt.Sprintf("numeric boolean value %d", n)}, nil
			}
			return nil, fmt.Errorf("%w: expected boolean, got %T (%v)", ErrTypeMismatch, value, value)
		}

	case DataTypeDateTime:
		if _, ok := value.(time.Time); ok {
			return nil, nil
		}
		if s, ok := value.(string); ok {
			if parseDateTime(s) {
				return nil, nil
			}
			return []string{fmt.Sprintf("unparseable dateTime value %q", s)}, nil
		}
		return nil, fmt.Errorf("%w: expected dateTime, got %T (%v)", ErrTypeMismatch, value, value)

	case DataTypeBase64:
		if s, ok := value.(string); ok {
			if _, decErr := base64.StdEncoding.DecodeString(s); decErr != nil {
				return []string{fmt.Sprintf("value is not valid base64: %v", decErr)}, nil
			}
			return nil, nil
		}
		if _, ok := value.([]byte); ok {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: expected base64, got %T", ErrTypeMismatch, value)

	case DataTypeHexBinary:
		if s, ok := value.(string); ok {
			if _, decErr := hex.DecodeString(s); decErr != nil {
				return []string{fmt.Sprintf("value is not valid hex: %v", decErr)}, nil
			}
			return nil, nil
		}
		if _, ok := value.([]byte); ok {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: expected hexBinary, got %T", ErrTypeMismatch, value)

	case DataTypeObject:
		return []string{"object node carries a value"}, nil

	default:
		return nil, nil
	}
}

// CheckValueStrict validates a value against a declared type under the
// strict policy: the runtime type must match the declared type exactly.
// The one textual exception is dateTime, which accepts an ISO 8601 string.
// A nil value is always valid.
func CheckValueStrict(t DataType, value any) error {
	if value == nil {
		return nil
	}

	switch t {
	case DataTypeString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("%w: expected string, got %T (%v)", ErrTypeMismatch, value, value)
		}
		return nil

	case DataTypeInt:
		if _, ok := toInt64(value); !ok {
			return fmt.Errorf("%w: expected int, got %T (%v)", ErrTypeMismatch, value, value)
		}
		return nil

	case DataTypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%w: expected boolean, got %T (%v)", ErrTypeMismatch, value, value)
		}
		return nil

	case DataTypeDateTime:
		if _, ok := value.(time.Time); ok {
			return nil
		}
		if s, ok := value.(string); ok {
			if parseDateTime(s) {
				return nil
			}
			return fmt.Errorf("%w: expected ISO 8601 dateTime, got %q", ErrTypeMismatch, s)
		}
		return fmt.Errorf("%w: expected dateTime, got %T (%v)", ErrTypeMismatch, value, value)

	case DataTypeBase64:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: expected base64 string, got %T", ErrTypeMismatch, value)
		}
		if _, err := base64.StdEncoding.DecodeString(s); err != nil {
			return fmt.Errorf("%w: invalid base64: %v", ErrTypeMismatch, err)
		}
		return nil

	case DataTypeHexBinary:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: expected hexBinary string, got %T", ErrTypeMismatch, value)
		}
		if _, err := hex.DecodeString(s); err != nil {
			return fmt.Errorf("%w: invalid hex: %v", ErrTypeMismatch, err)
		}
		return nil

	case DataTypeObject:
		return fmt.Errorf("%w: object node carries a value (%v)", ErrTypeMismatch, value)

	default:
		return nil
	}
}

// toInt64 converts integer values, and floats without a fractional part, to
// int64. Strings never convert; the lenient check handles those explicitly.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		if float32(int64(n)) == n {
			return int64(n), true
		}
		return 0, false
	case float64:
		if float64(int64(n)) == n {
			return int64(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func parseDateTime(s string) bool {
	for _, layout := range dateTimeLayouts {
		if _, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return true
		}
	}
	return false
}
