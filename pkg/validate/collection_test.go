package validate

import (
	"strings"
	"testing"

	"github.com/tr181-tools/tr181-go/pkg/datamodel"
)

func TestCollection_EmptyIsValidWithWarning(t *testing.T) {
	result := Collection(nil)

	if !result.Valid {
		t.Error("empty collection should be valid")
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(result.Warnings))
	}
	if !strings.Contains(result.Warnings[0].Message, "empty") {
		t.Errorf("unexpected warning: %s", result.Warnings[0])
	}
}

func TestCollection_CleanTreeHasNoFindings(t *testing.T) {
	nodes := []*datamodel.Node{
		datamodel.NewObjectNode("Device."),
		datamodel.NewObjectNode("Device.WiFi."),
		datamodel.NewObjectNode("Device.WiFi.Radio.1."),
		datamodel.NewNode("Device.WiFi.Radio.1.Channel", datamodel.DataTypeInt, datamodel.AccessReadWrite),
	}
	datamodel.LinkNodes(nodes)

	result := Collection(nodes)
	if !result.Valid {
		t.Errorf("expected valid, got errors: %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings, got: %v", result.Warnings)
	}
}

func TestCollection_DuplicatePathIsError(t *testing.T) {
	nodes := []*datamodel.Node{
		datamodel.NewNode("Device.DeviceInfo.Manufacturer", datamodel.DataTypeString, datamodel.AccessReadOnly),
		datamodel.NewNode("Device.DeviceInfo.Manufacturer", datamodel.DataTypeString, datamodel.AccessReadOnly),
	}

	result := Collection(nodes)
	if result.Valid {
		t.Error("duplicate paths should invalidate the collection")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(result.Errors), result.Errors)
	}
	if result.Errors[0].Path != "Device.DeviceInfo.Manufacturer" {
		t.Errorf("error attributed to wrong path: %s", result.Errors[0].Path)
	}
}

func TestCollection_PathConventions(t *testing.T) {
	t.Run("not rooted at Device is a warning", func(t *testing.T) {
		nodes := []*datamodel.Node{
			datamodel.NewNode("InternetGatewayDevice.DeviceInfo.Manufacturer", datamodel.DataTypeString, datamodel.AccessReadOnly),
		}
		result := Collection(nodes)
		if !result.Valid {
			t.Errorf("foreign root should only warn, got errors: %v", result.Errors)
		}
		if len(result.Warnings) == 0 {
			t.Error("expected a warning for a path not rooted at Device.")
		}
	})

	t.Run("lowercase segment is a warning", func(t *testing.T) {
		nodes := []*datamodel.Node{
			datamodel.NewNode("Device.WiFi.radio", datamodel.DataTypeString, datamodel.AccessReadOnly),
		}
		result := Collection(nodes)
		if !result.Valid {
			t.Errorf("lowercase segment should only warn, got errors: %v", result.Errors)
		}
		if len(result.Warnings) != 1 {
			t.Fatalf("expected 1 warning, got %v", result.Warnings)
		}
		if !strings.Contains(result.Warnings[0].Message, "uppercase") {
			t.Errorf("unexpected warning: %s", result.Warnings[0])
		}
	})

	t.Run("instance numbers are exempt from capitalization", func(t *testing.T) {
		nodes := []*datamodel.Node{
			datamodel.NewNode("Device.WiFi.Radio.1.Channel", datamodel.DataTypeInt, datamodel.AccessReadWrite),
		}
		result := Collection(nodes)
		if len(result.Warnings) != 0 {
			t.Errorf("expected no warnings, got: %v", result.Warnings)
		}
	})

	t.Run("empty segment is an error", func(t *testing.T) {
		nodes := []*datamodel.Node{
			datamodel.NewNode("Device..WiFi", datamodel.DataTypeString, datamodel.AccessReadOnly),
		}
		result := Collection(nodes)
		if result.Valid {
			t.Error("empty segment should be an error")
		}
	})

	t.Run("empty path is an error", func(t *testing.T) {
		nodes := []*datamodel.Node{
			{Path: "", Name: "", Type: datamodel.DataTypeString},
		}
		result := Collection(nodes)
		if result.Valid {
			t.Error("empty path should be an error")
		}
	})
}

func TestCollection_LinkResolution(t *testing.T) {
	t.Run("dangling parent is a warning", func(t *testing.T) {
		n := datamodel.NewNode("Device.WiFi.SSID", datamodel.DataTypeString, datamodel.AccessReadWrite)
		n.Parent = "Device.WiFi."
		result := Collection([]*datamodel.Node{n})
		if !result.Valid {
			t.Errorf("dangling parent should only warn, got errors: %v", result.Errors)
		}
		if len(result.Warnings) != 1 {
			t.Fatalf("expected 1 warning, got %v", result.Warnings)
		}
	})

	t.Run("dangling child is a warning", func(t *testing.T) {
		n := datamodel.NewObjectNode("Device.WiFi.")
		n.Children = []string{"Device.WiFi.SSID"}
		result := Collection([]*datamodel.Node{n})
		if len(result.Warnings) != 1 {
			t.Fatalf("expected 1 warning, got %v", result.Warnings)
		}
	})

	t.Run("trailing dot ambiguity tolerated", func(t *testing.T) {
		// Parent recorded without the trailing dot the object node carries.
		parent := datamodel.NewObjectNode("Device.WiFi.")
		child := datamodel.NewNode("Device.WiFi.SSID", datamodel.DataTypeString, datamodel.AccessReadWrite)
		child.Parent = "Device.WiFi"
		parent.Children = []string{"Device.WiFi.SSID"}

		result := Collection([]*datamodel.Node{parent, child})
		if len(result.Warnings) != 0 {
			t.Errorf("expected no warnings, got: %v", result.Warnings)
		}
	})
}
