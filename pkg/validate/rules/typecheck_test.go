package rules

import (
	"testing"

	"github.com/tr181-tools/tr181-go/pkg/datamodel"
	"github.com/tr181-tools/tr181-go/pkg/validate"
)

func TestTYP001_TypeMismatch(t *testing.T) {
	rule := NewTYP001()
	n := datamodel.NewNode("Device.WiFi.Radio.1.Channel", datamodel.DataTypeInt, datamodel.AccessReadWrite)

	// Convertible string - no violation
	if v := rule.Check(n, "6"); len(v) > 0 {
		t.Errorf("expected no violation for convertible value, got: %v", v)
	}

	// Unconvertible string - violation
	v := rule.Check(n, "not_a_number")
	if len(v) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(v))
	}
	if v[0].Severity != validate.SeverityError {
		t.Errorf("severity = %v, want error", v[0].Severity)
	}

	// No value - not applicable
	if v := rule.Check(n, nil); len(v) > 0 {
		t.Errorf("expected no violation without a value, got: %v", v)
	}
}

func TestTYP002_NonCanonicalSpelling(t *testing.T) {
	rule := NewTYP002()
	n := datamodel.NewNode("Device.WiFi.Radio.1.Enable", datamodel.DataTypeBoolean, datamodel.AccessReadWrite)

	// Canonical boolean - no violation
	if v := rule.Check(n, "true"); len(v) > 0 {
		t.Errorf("expected no violation for canonical value, got: %v", v)
	}

	// Sloppy spelling - info violation
	v := rule.Check(n, "yes")
	if len(v) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(v))
	}
	if v[0].Severity != validate.SeverityInfo {
		t.Errorf("severity = %v, want info", v[0].Severity)
	}

	// Outright mismatch belongs to TYP-001, not this rule
	if v := rule.Check(n, "maybe"); len(v) > 0 {
		t.Errorf("expected no violation for a hard mismatch, got: %v", v)
	}
}

func TestTYP003_ObjectFlagConsistency(t *testing.T) {
	rule := NewTYP003()

	// Consistent object - no violation
	obj := datamodel.NewObjectNode("Device.WiFi.")
	if v := rule.Check(obj, nil); len(v) > 0 {
		t.Errorf("expected no violation for consistent object, got: %v", v)
	}

	// Object flag without object type - violation
	odd := datamodel.NewObjectNode("Device.WiFi.")
	odd.Type = datamodel.DataTypeString
	if v := rule.Check(odd, nil); len(v) == 0 {
		t.Error("expected violation for object without object type")
	}

	// Parameter declaring object type - violation
	param := datamodel.NewNode("Device.WiFi.SSID", datamodel.DataTypeObject, datamodel.AccessReadOnly)
	if v := rule.Check(param, nil); len(v) == 0 {
		t.Error("expected violation for parameter with object type")
	}
}
