package compare

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tr181-tools/tr181-go/pkg/datamodel"
	"github.com/tr181-tools/tr181-go/pkg/validate"
	"github.com/tr181-tools/tr181-go/pkg/validate/rules"
)

// LiveDevice is the slice of the transport hook the enhanced comparison
// needs for event and function testing. A connected hook satisfies it.
type LiveDevice interface {
	SubscribeToEvent(ctx context.Context, path string) error
	CallFunction(ctx context.Context, path string, in map[string]any) (map[string]any, error)
}

// NodeValidation pairs a node path with its validation outcome.
type NodeValidation struct {
	Path   string           `json:"path" yaml:"path"`
	Result *validate.Result `json:"result" yaml:"result"`
}

// TestOutcome records one event subscription or function invocation
// attempt against a live device. Latency is zero when the declared
// parameters were missing and no call was attempted.
type TestOutcome struct {
	Path    string        `json:"path" yaml:"path"`
	Name    string        `json:"name" yaml:"name"`
	Passed  bool          `json:"passed" yaml:"passed"`
	Latency time.Duration `json:"latency" yaml:"latency"`
	Error   string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// EnhancedComparisonResult is a basic comparison plus per-node validation
// and, against a live device, event and function test outcomes.
type EnhancedComparisonResult struct {
	Comparison  *ComparisonResult `json:"comparison" yaml:"comparison"`
	Validations []NodeValidation  `json:"validations" yaml:"validations"`
	Events      []TestOutcome     `json:"events,omitempty" yaml:"events,omitempty"`
	Functions   []TestOutcome     `json:"functions,omitempty" yaml:"functions,omitempty"`
}

// CompareWithValidation runs the basic comparison, then validates node
// definitions against their observed values. Without a live device the
// validator covers the intersection of both collections; with one it
// covers every reference node, and declared events and functions are
// additionally exercised against the device. The reference collection
// supplies the definitions, the actual collection the observed values.
func CompareWithValidation(ctx context.Context, reference, actual []*datamodel.Node, live LiveDevice) *EnhancedComparisonResult {
	result := &EnhancedComparisonResult{Comparison: Compare(reference, actual)}

	refIndex, _ := datamodel.IndexByPath(reference)
	actIndex, _ := datamodel.IndexByPath(actual)

	paths := make([]string, 0, len(refIndex))
	for path := range refIndex {
		if live == nil {
			if _, ok := actIndex[path]; !ok {
				continue
			}
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)

	validator := validate.NewNodeValidator(rules.NewDefaultRegistry())
	for _, path := range paths {
		node := refIndex[path]
		var observed any
		if a, ok := actIndex[path]; ok {
			observed = a.Value
		}
		result.Validations = append(result.Validations, NodeValidation{
			Path:   path,
			Result: validator.Validate(node, observed),
		})
	}

	if live != nil {
		for _, path := range paths {
			node := refIndex[path]
			for _, ev := range node.Events {
				result.Events = append(result.Events, testEvent(ctx, live, node, ev, actIndex))
			}
			for _, fn := range node.Functions {
				result.Functions = append(result.Functions, testFunction(ctx, live, node, fn, actIndex))
			}
		}
	}

	return result
}

// testEvent checks that every parameter the event references was observed,
// then attempts a subscription.
func testEvent(ctx context.Context, live LiveDevice, node *datamodel.Node, ev datamodel.Event, observed map[string]*datamodel.Node) TestOutcome {
	outcome := TestOutcome{Path: declaredPath(node, ev.Path), Name: ev.Name}

	if missing := missingPaths(ev.Parameters, observed); len(missing) > 0 {
		outcome.Error = fmt.Sprintf("referenced parameters not observed: %s", strings.Join(missing, ", "))
		return outcome
	}

	start := time.Now()
	err := live.SubscribeToEvent(ctx, outcome.Path)
	outcome.Latency = time.Since(start)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Passed = true
	return outcome
}

// testFunction checks that every declared input and output parameter was
// observed, then attempts an invocation with empty input.
func testFunction(ctx context.Context, live LiveDevice, node *datamodel.Node, fn datamodel.Function, observed map[string]*datamodel.Node) TestOutcome {
	outcome := TestOutcome{Path: declaredPath(node, fn.Path), Name: fn.Name}

	missing := missingPaths(fn.InputParameters, observed)
	missing = append(missing, missingPaths(fn.OutputParameters, observed)...)
	if len(missing) > 0 {
		outcome.Error = fmt.Sprintf("referenced parameters not observed: %s", strings.Join(missing, ", "))
		return outcome
	}

	start := time.Now()
	_, err := live.CallFunction(ctx, outcome.Path, map[string]any{})
	outcome.Latency = time.Since(start)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Passed = true
	return outcome
}

// declaredPath resolves the target path of an event or function
// declaration, defaulting to the declaring node.
func declaredPath(node *datamodel.Node, declared string) string {
	if declared != "" {
		return declared
	}
	return node.Path
}

// missingPaths returns the referenced paths absent from the observed set,
// tolerating the trailing-dot ambiguity of object paths.
func missingPaths(refs []string, observed map[string]*datamodel.Node) []string {
	var missing []string
	for _, ref := range refs {
		if _, ok := observed[ref]; ok {
			continue
		}
		if _, ok := observed[strings.TrimSuffix(ref, ".")]; ok {
			continue
		}
		if _, ok := observed[ref+"."]; ok {
			continue
		}
		missing = append(missing, ref)
	}
	return missing
}

// EnhancedSummary aggregates an enhanced comparison. ComplianceScore is
// set only when comparison, validation, event and function data are all
// present.
type EnhancedSummary struct {
	Comparison Summary `json:"comparison" yaml:"comparison"`

	NodesValidated     int `json:"nodes_validated" yaml:"nodes_validated"`
	NodesValid         int `json:"nodes_valid" yaml:"nodes_valid"`
	ValidationErrors   int `json:"validation_errors" yaml:"validation_errors"`
	ValidationWarnings int `json:"validation_warnings" yaml:"validation_warnings"`

	EventsPassed    int           `json:"events_passed" yaml:"events_passed"`
	EventsFailed    int           `json:"events_failed" yaml:"events_failed"`
	EventAvgLatency time.Duration `json:"event_avg_latency" yaml:"event_avg_latency"`

	FunctionsPassed    int           `json:"functions_passed" yaml:"functions_passed"`
	FunctionsFailed    int           `json:"functions_failed" yaml:"functions_failed"`
	FunctionAvgLatency time.Duration `json:"function_avg_latency" yaml:"function_avg_latency"`

	ComplianceScore *float64 `json:"compliance_score,omitempty" yaml:"compliance_score,omitempty"`
}

// Summary aggregates counts, latencies and, when every category has data,
// a compliance score from 0 to 100 weighting node overlap and validation
// at 0.3 each and event and function outcomes at 0.2 each.
func (r *EnhancedComparisonResult) Summary() EnhancedSummary {
	s := EnhancedSummary{Comparison: r.Comparison.Summary}

	for _, v := range r.Validations {
		s.NodesValidated++
		if v.Result.Valid {
			s.NodesValid++
		}
		s.ValidationErrors += len(v.Result.Errors)
		s.ValidationWarnings += len(v.Result.Warnings)
	}

	s.EventsPassed, s.EventsFailed, s.EventAvgLatency = tally(r.Events)
	s.FunctionsPassed, s.FunctionsFailed, s.FunctionAvgLatency = tally(r.Functions)

	if s.Comparison.TotalSource1 > 0 && s.NodesValidated > 0 && len(r.Events) > 0 && len(r.Functions) > 0 {
		overlap := float64(s.Comparison.CommonNodes) / float64(s.Comparison.TotalSource1)
		valid := float64(s.NodesValid) / float64(s.NodesValidated)
		events := float64(s.EventsPassed) / float64(len(r.Events))
		functions := float64(s.FunctionsPassed) / float64(len(r.Functions))
		score := 100 * (0.3*overlap + 0.3*valid + 0.2*events + 0.2*functions)
		s.ComplianceScore = &score
	}

	return s
}

// tally counts passed and failed outcomes and averages the latency of
// those where a call was attempted.
func tally(outcomes []TestOutcome) (passed, failed int, avg time.Duration) {
	var total time.Duration
	attempted := 0
	for _, o := range outcomes {
		if o.Passed {
			passed++
		} else {
			failed++
		}
		if o.Latency > 0 {
			total += o.Latency
			attempted++
		}
	}
	if attempted > 0 {
		avg = total / time.Duration(attempted)
	}
	return passed, failed, avg
}
