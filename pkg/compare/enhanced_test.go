package compare

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/tr181-tools/tr181-go/internal/hooktest"
	"github.com/tr181-tools/tr181-go/pkg/datamodel"
	"github.com/tr181-tools/tr181-go/pkg/hook"
)

// referenceSet builds a small reference model with a declared event and
// function on the radio object.
func referenceSet() []*datamodel.Node {
	radio := datamodel.NewObjectNode("Device.WiFi.Radio.1.")
	radio.Events = []datamodel.Event{{
		Name:       "ChannelChange",
		Path:       "Device.WiFi.Radio.1.ChannelChange!",
		Parameters: []string{"Device.WiFi.Radio.1.Channel"},
	}}
	radio.Functions = []datamodel.Function{{
		Name:             "Reset",
		Path:             "Device.WiFi.Radio.1.Reset()",
		OutputParameters: []string{"Device.WiFi.Radio.1.Status"},
	}}

	max := 11.0
	channel := param("Device.WiFi.Radio.1.Channel", datamodel.DataTypeInt, datamodel.AccessReadWrite, 6)
	channel.Range = &datamodel.ValueRange{MaxValue: &max}

	status := param("Device.WiFi.Radio.1.Status", datamodel.DataTypeString, datamodel.AccessReadOnly, "Up")

	return []*datamodel.Node{radio, channel, status}
}

func liveFake(t *testing.T) *hooktest.Fake {
	t.Helper()
	f := hooktest.New()
	if err := f.Connect(context.Background(), hook.DeviceConfig{Endpoint: "test"}); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return f
}

func TestCompareWithValidation_ValidatesIntersection(t *testing.T) {
	max := 11.0
	channel := param("Device.WiFi.Radio.1.Channel", datamodel.DataTypeInt, datamodel.AccessReadWrite, 6)
	channel.Range = &datamodel.ValueRange{MaxValue: &max}
	reference := []*datamodel.Node{
		channel,
		param("Device.DeviceInfo.Manufacturer", datamodel.DataTypeString, datamodel.AccessReadOnly, "Acme"),
		param("Device.DeviceInfo.SerialNumber", datamodel.DataTypeString, datamodel.AccessReadOnly, "SN1"),
	}
	actual := []*datamodel.Node{
		param("Device.WiFi.Radio.1.Channel", datamodel.DataTypeInt, datamodel.AccessReadWrite, 13),
		param("Device.DeviceInfo.Manufacturer", datamodel.DataTypeString, datamodel.AccessReadOnly, "Acme"),
	}

	r := CompareWithValidation(context.Background(), reference, actual, nil)

	if len(r.Validations) != 2 {
		t.Fatalf("Validations = %d entries, want the 2-node intersection", len(r.Validations))
	}
	if r.Validations[0].Path != "Device.DeviceInfo.Manufacturer" || r.Validations[1].Path != "Device.WiFi.Radio.1.Channel" {
		t.Errorf("validation order = %v, want sorted by path", []string{r.Validations[0].Path, r.Validations[1].Path})
	}

	if !r.Validations[0].Result.Valid {
		t.Errorf("Manufacturer invalid: %+v", r.Validations[0].Result)
	}
	// The observed channel 13 violates the declared range.
	if r.Validations[1].Result.Valid {
		t.Error("Channel valid despite the observed value exceeding the range")
	}

	if len(r.Events) != 0 || len(r.Functions) != 0 {
		t.Error("event or function outcomes recorded without a live device")
	}
}

func TestCompareWithValidation_LiveCoversAllReferenceNodes(t *testing.T) {
	reference := referenceSet()
	actual := []*datamodel.Node{
		param("Device.WiFi.Radio.1.Channel", datamodel.DataTypeInt, datamodel.AccessReadWrite, 6),
	}

	r := CompareWithValidation(context.Background(), reference, actual, liveFake(t))
	if len(r.Validations) != len(reference) {
		t.Errorf("Validations = %d entries, want every reference node (%d)", len(r.Validations), len(reference))
	}
}

func TestCompareWithValidation_EventAndFunctionTesters(t *testing.T) {
	t.Run("passing event and function", func(t *testing.T) {
		f := liveFake(t)
		f.Handlers.OnSubscribe = func(string) error {
			time.Sleep(time.Millisecond)
			return nil
		}
		f.Handlers.OnCall = func(string, map[string]any) (map[string]any, error) {
			time.Sleep(time.Millisecond)
			return map[string]any{"status": "ok"}, nil
		}

		r := CompareWithValidation(context.Background(), referenceSet(), referenceSet(), f)

		if len(r.Events) != 1 {
			t.Fatalf("Events = %v, want one outcome", r.Events)
		}
		ev := r.Events[0]
		if !ev.Passed {
			t.Errorf("event failed: %s", ev.Error)
		}
		if ev.Path != "Device.WiFi.Radio.1.ChannelChange!" || ev.Name != "ChannelChange" {
			t.Errorf("event outcome = %+v", ev)
		}
		if ev.Latency < time.Millisecond {
			t.Errorf("event latency = %v, want at least the simulated 1ms", ev.Latency)
		}
		if len(f.Subscribed) != 1 || f.Subscribed[0] != "Device.WiFi.Radio.1.ChannelChange!" {
			t.Errorf("Subscribed = %v", f.Subscribed)
		}

		if len(r.Functions) != 1 {
			t.Fatalf("Functions = %v, want one outcome", r.Functions)
		}
		fn := r.Functions[0]
		if !fn.Passed {
			t.Errorf("function failed: %s", fn.Error)
		}
		if fn.Latency < time.Millisecond {
			t.Errorf("function latency = %v, want at least the simulated 1ms", fn.Latency)
		}
		if len(f.Called) != 1 || f.Called[0] != "Device.WiFi.Radio.1.Reset()" {
			t.Errorf("Called = %v", f.Called)
		}
	})

	t.Run("missing referenced parameter fails without a call", func(t *testing.T) {
		f := liveFake(t)
		reference := referenceSet()
		// The actual set lacks Status, which the function declares as an
		// output parameter.
		actual := []*datamodel.Node{
			param("Device.WiFi.Radio.1.Channel", datamodel.DataTypeInt, datamodel.AccessReadWrite, 6),
		}

		r := CompareWithValidation(context.Background(), reference, actual, f)

		if len(r.Functions) != 1 {
			t.Fatalf("Functions = %v, want one outcome", r.Functions)
		}
		fn := r.Functions[0]
		if fn.Passed {
			t.Error("function passed despite a missing output parameter")
		}
		if !strings.Contains(fn.Error, "Device.WiFi.Radio.1.Status") {
			t.Errorf("error %q does not name the missing parameter", fn.Error)
		}
		if len(f.Called) != 0 {
			t.Errorf("Called = %v, want no invocation attempt", f.Called)
		}

		// The event's parameter is observed, so the subscription still runs.
		if len(r.Events) != 1 || !r.Events[0].Passed {
			t.Errorf("Events = %+v, want a passing subscription", r.Events)
		}
	})

	t.Run("subscription failure is recorded", func(t *testing.T) {
		f := liveFake(t)
		f.Handlers.OnSubscribe = func(string) error {
			return hook.ErrNotConnected
		}

		r := CompareWithValidation(context.Background(), referenceSet(), referenceSet(), f)
		if len(r.Events) != 1 {
			t.Fatalf("Events = %v, want one outcome", r.Events)
		}
		if r.Events[0].Passed {
			t.Error("event passed despite the subscription failing")
		}
		if r.Events[0].Error == "" {
			t.Error("failed event carries no error text")
		}
	})
}

func TestEnhancedSummary(t *testing.T) {
	t.Run("full compliance scores 100", func(t *testing.T) {
		r := CompareWithValidation(context.Background(), referenceSet(), referenceSet(), liveFake(t))
		s := r.Summary()

		if s.NodesValidated != 3 || s.NodesValid != 3 {
			t.Errorf("validated/valid = %d/%d, want 3/3", s.NodesValidated, s.NodesValid)
		}
		if s.EventsPassed != 1 || s.EventsFailed != 0 {
			t.Errorf("events = %d/%d", s.EventsPassed, s.EventsFailed)
		}
		if s.FunctionsPassed != 1 || s.FunctionsFailed != 0 {
			t.Errorf("functions = %d/%d", s.FunctionsPassed, s.FunctionsFailed)
		}
		if s.ComplianceScore == nil {
			t.Fatal("compliance score unset with every category populated")
		}
		if math.Abs(*s.ComplianceScore-100) > 1e-9 {
			t.Errorf("compliance score = %v, want 100", *s.ComplianceScore)
		}
	})

	t.Run("no score without live test data", func(t *testing.T) {
		r := CompareWithValidation(context.Background(), referenceSet(), referenceSet(), nil)
		if s := r.Summary(); s.ComplianceScore != nil {
			t.Errorf("compliance score = %v, want unset", *s.ComplianceScore)
		}
	})

	t.Run("partial compliance weights the categories", func(t *testing.T) {
		reference := referenceSet()
		actual := []*datamodel.Node{
			datamodel.NewObjectNode("Device.WiFi.Radio.1."),
			param("Device.WiFi.Radio.1.Channel", datamodel.DataTypeInt, datamodel.AccessReadWrite, 6),
		}

		r := CompareWithValidation(context.Background(), reference, actual, liveFake(t))
		s := r.Summary()
		if s.ComplianceScore == nil {
			t.Fatal("compliance score unset")
		}

		// Overlap 2/3, validation 3/3, events 1/1, functions 0/1.
		want := 100 * (0.3*(2.0/3.0) + 0.3*1 + 0.2*1 + 0.2*0)
		if math.Abs(*s.ComplianceScore-want) > 1e-9 {
			t.Errorf("compliance score = %v, want %v", *s.ComplianceScore, want)
		}
	})
}
