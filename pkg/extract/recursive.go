package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/tr181-tools/tr181-go/pkg/datamodel"
	"github.com/tr181-tools/tr181-go/pkg/faults"
	"github.com/tr181-tools/tr181-go/pkg/hook"
	"github.com/tr181-tools/tr181-go/pkg/resilience"
	"github.com/tr181-tools/tr181-go/pkg/validate"
)

// RecursiveExtractor walks a device namespace top-down through a transport
// hook, for sources that only answer "names under this prefix". Extraction
// favors completeness of the namespace over completeness of values: a
// parameter whose attributes or value cannot be fetched is kept with
// defaults rather than dropped.
type RecursiveExtractor struct {
	hook          hook.Hook
	config        hook.DeviceConfig
	opts          Options
	lastExtracted time.Time
}

// NewRecursiveExtractor creates an extractor over the given hook. The hook
// is connected and disconnected per Extract call.
func NewRecursiveExtractor(h hook.Hook, config hook.DeviceConfig, opts Options) *RecursiveExtractor {
	return &RecursiveExtractor{
		hook:   h,
		config: config.Normalized(),
		opts:   opts.withDefaults(),
	}
}

// LastExtracted returns when the last successful extraction finished.
func (e *RecursiveExtractor) LastExtracted() time.Time { return e.lastExtracted }

// Extract connects with retry, discovers the namespace breadth-first,
// fetches attributes and values in batches, links the node graph, and
// validates the resulting collection.
func (e *RecursiveExtractor) Extract(ctx context.Context) ([]*datamodel.Node, error) {
	if err := resilience.Do(ctx, e.opts.connectRetry(e.config), func() error {
		return e.hook.Connect(ctx, e.config)
	}); err != nil {
		err = annotate(err, "recursive-extractor", "connect")
		e.opts.Reporter.Report(err)
		return nil, err
	}
	defer e.hook.Disconnect()

	order, err := e.discover(ctx)
	if err != nil {
		return nil, err
	}
	e.opts.debugLog("discovery complete", "paths", len(order))

	nodes, valueChecks, err := e.buildNodes(ctx, order)
	if err != nil {
		return nil, err
	}

	datamodel.LinkNodes(nodes)

	result := validate.Collection(nodes)
	result.Merge(valueChecks)
	for _, w := range result.Warnings {
		e.opts.debugLog("validation warning", "issue", w.String())
	}
	if !result.Valid {
		for _, issue := range result.Errors {
			e.opts.warnLog("validation error", "issue", issue.String())
		}
		f := faults.Validation(fmt.Sprintf("extracted collection has %d validation errors", len(result.Errors)), nil).
			WithOperation("recursive-extractor", "validate")
		e.opts.Reporter.Report(f)
		if e.opts.Strict {
			return nil, f
		}
	}

	e.lastExtracted = time.Now()
	e.opts.debugLog("extraction complete", "nodes", len(nodes))
	return nodes, nil
}

// discover walks the namespace breadth-first from the root and returns
// every announced path once, in discovery order.
//
// Entries ending in a dot are sub-namespaces and are queued for
// exploration. Terminal entries are additionally probed once for a
// path-plus-dot child namespace, because numbered object instances such as
// Device.WiFi.Radio.1. are not always announced by their parent; a failed
// probe is swallowed. A failed listing anywhere else skips that subtree,
// subject to the minimum success rate. A failed listing of the root is
// fatal: the source is unusable.
func (e *RecursiveExtractor) discover(ctx context.Context) ([]string, error) {
	type item struct {
		prefix      string
		speculative bool
	}

	var (
		order    []string
		seen     = make(map[string]bool)
		visited  = map[string]bool{datamodel.RootPath: true}
		queue    = []item{{prefix: datamodel.RootPath}}
		listings int
		failures int
	)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		it := queue[0]
		queue = queue[1:]

		entries, err := e.hook.ListParameterNames(ctx, it.prefix)
		if err != nil {
			if it.speculative {
				continue
			}
			if it.prefix == datamodel.RootPath {
				f := faults.Connection("discovering the root namespace failed", err).
					WithOperation("recursive-extractor", "discover")
				e.opts.Reporter.Report(f)
				return nil, f
			}
			listings++
			failures++
			e.opts.warnLog("namespace listing failed, skipping subtree", "prefix", it.prefix, "error", err)
			e.opts.Reporter.Report(err)
			continue
		}
		if !it.speculative {
			listings++
		}

		for _, entry := range entries {
			if entry == "" || seen[entry] {
				continue
			}
			seen[entry] = true
			order = append(order, entry)

			if datamodel.IsObjectPath(entry) {
				if !visited[entry] {
					visited[entry] = true
					queue = append(queue, item{prefix: entry})
				}
				continue
			}
			probe := entry + "."
			if !visited[probe] {
				visited[probe] = true
				queue = append(queue, item{prefix: probe, speculative: true})
			}
		}
	}

	if listings > 0 {
		rate := float64(listings-failures) / float64(listings)
		if rate < e.opts.MinSuccessRate {
			f := faults.Validation("too many namespace listings failed", nil).
				WithOperation("recursive-extractor", "discover").
				WithMetadata("success_rate", rate).
				WithMetadata("min_success_rate", e.opts.MinSuccessRate)
			e.opts.Reporter.Report(f)
			return nil, f
		}
	}

	return order, nil
}

// buildNodes fetches attributes and values for every discovered parameter
// and constructs the node collection in discovery order. Value typing is
// checked leniently; findings are returned for the caller to merge into
// the collection validation result.
func (e *RecursiveExtractor) buildNodes(ctx context.Context, order []string) ([]*datamodel.Node, *validate.Result, error) {
	var paramPaths []string
	for _, path := range order {
		if !datamodel.IsObjectPath(path) {
			paramPaths = append(paramPaths, path)
		}
	}

	attrs, err := fetchAttributes(ctx, e.hook, paramPaths, e.opts)
	if err != nil {
		return nil, nil, err
	}
	values, err := fetchValues(ctx, e.hook, paramPaths, e.opts)
	if err != nil {
		return nil, nil, err
	}

	valueChecks := validate.NewResult()
	nodes := make([]*datamodel.Node, 0, len(order))
	for _, path := range order {
		if datamodel.IsObjectPath(path) {
			nodes = append(nodes, datamodel.NewObjectNode(path))
			continue
		}

		n := buildNode(path, attrs, values)
		if n.Value != nil {
			warnings, err := datamodel.CheckValueLenient(n.Type, n.Value)
			if err != nil {
				valueChecks.AddError(path, fmt.Sprintf("value does not match declared type %s: %v", n.Type, err))
			}
			for _, w := range warnings {
				valueChecks.AddWarning(path, w)
			}
		}
		nodes = append(nodes, n)
	}

	return nodes, valueChecks, nil
}
