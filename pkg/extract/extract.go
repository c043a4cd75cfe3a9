package extract

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tr181-tools/tr181-go/pkg/datamodel"
	"github.com/tr181-tools/tr181-go/pkg/faults"
	"github.com/tr181-tools/tr181-go/pkg/hook"
	"github.com/tr181-tools/tr181-go/pkg/resilience"
)

// DefaultBatchSize is the number of parameters fetched per attribute or
// value call.
const DefaultBatchSize = 50

// Extractor produces a validated node collection from one source.
type Extractor interface {
	Extract(ctx context.Context) ([]*datamodel.Node, error)
}

// Options configures behavior shared by the extractor variants.
type Options struct {
	// BatchSize caps how many parameters one attribute or value call
	// carries. Zero selects DefaultBatchSize.
	BatchSize int

	// MinSuccessRate is the fraction of namespace listings that must
	// succeed for a degraded extraction to still be returned. Zero
	// selects the resilience layer default.
	MinSuccessRate float64

	// Strict aborts extraction when the final collection validation
	// reports errors, instead of returning best-effort data.
	Strict bool

	// Retry shapes the connect retry schedule. A zero MaxAttempts follows
	// the device configuration's RetryCount.
	Retry resilience.RetryConfig

	// Logger receives operational events. Nil disables logging.
	Logger *slog.Logger

	// Reporter accumulates faults for later audit. Nil disables reporting.
	Reporter *faults.Reporter
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MinSuccessRate <= 0 {
		o.MinSuccessRate = resilience.DefaultMinSuccessRate
	}
	return o
}

// debugLog logs a debug message if logging is enabled.
func (o Options) debugLog(msg string, args ...any) {
	if o.Logger != nil {
		o.Logger.Debug(msg, args...)
	}
}

// warnLog logs a warning if logging is enabled.
func (o Options) warnLog(msg string, args ...any) {
	if o.Logger != nil {
		o.Logger.Warn(msg, args...)
	}
}

// connectRetry derives the retry schedule for connecting to a device.
func (o Options) connectRetry(cfg hook.DeviceConfig) resilience.RetryConfig {
	retry := o.Retry
	if retry.MaxAttempts == 0 {
		retry.MaxAttempts = cfg.RetryCount
	}
	return retry
}

// annotate adds operation context when the error carries a fault.
func annotate(err error, component, operation string) error {
	var f *faults.Fault
	if errors.As(err, &f) {
		f.WithOperation(component, operation)
	}
	return err
}

// chunk splits paths into batches of at most size entries.
func chunk(paths []string, size int) [][]string {
	var batches [][]string
	for len(paths) > size {
		batches = append(batches, paths[:size])
		paths = paths[size:]
	}
	if len(paths) > 0 {
		batches = append(batches, paths)
	}
	return batches
}

// fetchAttributes retrieves parameter attributes in batches. A failed batch
// is retried item by item so one bad parameter does not drop the whole
// batch; items that still fail stay absent from the map and the caller
// applies defaults.
func fetchAttributes(ctx context.Context, h hook.Hook, paths []string, opts Options) (map[string]hook.Attributes, error) {
	attrs := make(map[string]hook.Attributes, len(paths))
	for _, batch := range chunk(paths, opts.BatchSize) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		got, err := h.GetParameterAttributes(ctx, batch)
		if err == nil {
			for path, a := range got {
				attrs[path] = a
			}
			continue
		}

		opts.debugLog("attribute batch failed, retrying per item", "batch_size", len(batch), "error", err)
		opts.Reporter.Report(err)
		for _, path := range batch {
			single, err := h.GetParameterAttributes(ctx, []string{path})
			if err != nil {
				opts.debugLog("attribute fetch failed, applying defaults", "path", path, "error", err)
				continue
			}
			for p, a := range single {
				attrs[p] = a
			}
		}
	}
	return attrs, nil
}

// fetchValues retrieves parameter values in batches with the same per-item
// fallback as fetchAttributes. Parameters without a retrievable value stay
// absent from the map.
func fetchValues(ctx context.Context, h hook.Hook, paths []string, opts Options) (map[string]any, error) {
	values := make(map[string]any, len(paths))
	for _, batch := range chunk(paths, opts.BatchSize) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		got, err := h.GetParameterValues(ctx, batch)
		if err == nil {
			for path, v := range got {
				values[path] = v
			}
			continue
		}

		opts.debugLog("value batch failed, retrying per item", "batch_size", len(batch), "error", err)
		opts.Reporter.Report(err)
		for _, path := range batch {
			single, err := h.GetParameterValues(ctx, []string{path})
			if err != nil {
				opts.debugLog("value fetch failed, leaving value unset", "path", path, "error", err)
				continue
			}
			for p, v := range single {
				values[p] = v
			}
		}
	}
	return values, nil
}

// buildNode constructs a parameter node from fetched attributes and values.
// Parameters missing from the attribute map get the default attribute set
// of a read-only string.
func buildNode(path string, attrs map[string]hook.Attributes, values map[string]any) *datamodel.Node {
	typ := datamodel.DataTypeString
	access := datamodel.AccessReadOnly
	if a, ok := attrs[path]; ok {
		typ = datamodel.ParseWireType(a.Type)
		access = datamodel.ParseAccess(a.Access)
	}

	n := datamodel.NewNode(path, typ, access)
	if v, ok := values[path]; ok {
		n.Value = v
	}
	return n
}
