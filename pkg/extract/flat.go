package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tr181-tools/tr181-go/pkg/datamodel"
	"github.com/tr181-tools/tr181-go/pkg/faults"
	"github.com/tr181-tools/tr181-go/pkg/hook"
	"github.com/tr181-tools/tr181-go/pkg/resilience"
	"github.com/tr181-tools/tr181-go/pkg/validate"
)

// flatReconnectCap bounds the delay between connection attempts to a flat
// source regardless of the configured retry backoff.
const flatReconnectCap = 30 * time.Second

// FlatExtractor reads sources that answer a listing request with full
// dotted paths: one root request, then one follow-up request per object
// announced at the root. It is the strict counterpart of
// RecursiveExtractor: a value that does not decode as its declared type
// fails the whole extraction, as do collection validation errors.
type FlatExtractor struct {
	hook          hook.Hook
	config        hook.DeviceConfig
	opts          Options
	lastExtracted time.Time
}

// NewFlatExtractor creates an extractor over the given hook. The hook is
// connected and disconnected per Extract call.
func NewFlatExtractor(h hook.Hook, config hook.DeviceConfig, opts Options) *FlatExtractor {
	return &FlatExtractor{
		hook:   h,
		config: config.Normalized(),
		opts:   opts.withDefaults(),
	}
}

// LastExtracted returns when the last successful extraction finished.
func (e *FlatExtractor) LastExtracted() time.Time { return e.lastExtracted }

// Extract connects with capped retry, lists the namespace in two rounds,
// fetches attributes and values in batches with strict type checking,
// links the graph by direct parent, and validates the collection.
func (e *FlatExtractor) Extract(ctx context.Context) ([]*datamodel.Node, error) {
	if err := e.connect(ctx); err != nil {
		return nil, err
	}
	defer e.hook.Disconnect()

	order, err := e.listAll(ctx)
	if err != nil {
		return nil, err
	}
	e.opts.debugLog("listing complete", "paths", len(order))

	nodes, err := e.buildNodes(ctx, order)
	if err != nil {
		return nil, err
	}

	linkFlat(nodes)

	result := validate.Collection(nodes)
	for _, w := range result.Warnings {
		e.opts.debugLog("validation warning", "issue", w.String())
	}
	if !result.Valid {
		for _, issue := range result.Errors {
			e.opts.warnLog("validation error", "issue", issue.String())
		}
		f := faults.Validation(fmt.Sprintf("extracted collection has %d validation errors", len(result.Errors)), nil).
			WithOperation("flat-extractor", "validate")
		e.opts.Reporter.Report(f)
		return nil, f
	}

	e.lastExtracted = time.Now()
	e.opts.debugLog("extraction complete", "nodes", len(nodes))
	return nodes, nil
}

// connect dials with the configured retry budget, clamping the delay cap
// to flatReconnectCap. Non-retryable faults abort immediately inside
// resilience.Do.
func (e *FlatExtractor) connect(ctx context.Context) error {
	retry := e.opts.connectRetry(e.config)
	if retry.MaxDelay <= 0 || retry.MaxDelay > flatReconnectCap {
		retry.MaxDelay = flatReconnectCap
	}
	if err := resilience.Do(ctx, retry, func() error {
		return e.hook.Connect(ctx, e.config)
	}); err != nil {
		err = annotate(err, "flat-extractor", "connect")
		e.opts.Reporter.Report(err)
		return err
	}
	return nil
}

// listAll performs the two listing rounds. Round one asks for the root and
// is fatal on failure. Round two issues one follow-up per object the root
// announced; follow-ups may fail individually, subject to the minimum
// success rate, and a failed follow-up simply leaves that subtree out.
// Follow-up responses are taken as complete flat subtrees, so objects they
// announce get no further requests.
func (e *FlatExtractor) listAll(ctx context.Context) ([]string, error) {
	roots, err := e.hook.ListParameterNames(ctx, datamodel.RootPath)
	if err != nil {
		f := faults.Connection("listing the root namespace failed", err).
			WithOperation("flat-extractor", "list")
		e.opts.Reporter.Report(f)
		return nil, f
	}

	var (
		order []string
		seen  = make(map[string]bool)
	)
	add := func(path string) {
		if path == "" || seen[path] {
			return
		}
		seen[path] = true
		order = append(order, path)
	}

	var objects []string
	for _, entry := range roots {
		add(entry)
		if datamodel.IsObjectPath(entry) {
			objects = append(objects, entry)
		}
	}

	result, err := resilience.RunAll(ctx, objects, func(prefix string) error {
		entries, err := e.hook.ListParameterNames(ctx, prefix)
		if err != nil {
			e.opts.warnLog("follow-up listing failed, subtree omitted", "prefix", prefix, "error", err)
			e.opts.Reporter.Report(err)
			return err
		}
		for _, entry := range entries {
			add(entry)
		}
		return nil
	}, e.opts.MinSuccessRate)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		f := annotate(err, "flat-extractor", "list")
		e.opts.Reporter.Report(f)
		return nil, f
	}
	if len(result.Failed) > 0 {
		e.opts.debugLog("follow-up listings degraded", "total", result.TotalItems, "failed", len(result.Failed))
	}

	return order, nil
}

// buildNodes fetches attributes and values for every listed parameter and
// constructs the node collection. Values are checked strictly against
// their declared type; the first mismatch fails the extraction with a
// fault naming the offending path.
func (e *FlatExtractor) buildNodes(ctx context.Context, order []string) ([]*datamodel.Node, error) {
	var paramPaths []string
	for _, path := range order {
		if !datamodel.IsObjectPath(path) {
			paramPaths = append(paramPaths, path)
		}
	}

	attrs, err := fetchAttributes(ctx, e.hook, paramPaths, e.opts)
	if err != nil {
		return nil, err
	}
	values, err := fetchValues(ctx, e.hook, paramPaths, e.opts)
	if err != nil {
		return nil, err
	}

	nodes := make([]*datamodel.Node, 0, len(order))
	for _, path := range order {
		if datamodel.IsObjectPath(path) {
			nodes = append(nodes, datamodel.NewObjectNode(path))
			continue
		}

		n := buildNode(path, attrs, values)
		if n.Value != nil {
			if err := datamodel.CheckValueStrict(n.Type, n.Value); err != nil {
				f := faults.Validation(fmt.Sprintf("parameter %s: value does not match declared type %s: %v", path, n.Type, err), err).
					WithOperation("flat-extractor", "typecheck").
					WithMetadata("path", path)
				e.opts.Reporter.Report(f)
				return nil, f
			}
		}
		nodes = append(nodes, n)
	}

	return nodes, nil
}

// linkFlat wires Parent and Children strictly one level up, the graph
// shape flat sources describe themselves with. Unlike datamodel.LinkNodes
// there is no longest-ancestor fallback: a node whose direct parent was
// not announced stays parentless and the collection validator flags it.
func linkFlat(nodes []*datamodel.Node) {
	index := make(map[string]*datamodel.Node, len(nodes))
	for _, n := range nodes {
		n.Parent = ""
		n.Children = n.Children[:0]
		index[n.Path] = n
	}

	for _, n := range nodes {
		prefix := datamodel.DirectParentPrefix(n.Path)
		if prefix == "" {
			continue
		}
		parent, ok := index[prefix]
		if !ok {
			parent, ok = index[strings.TrimSuffix(prefix, ".")]
		}
		if !ok || parent == n {
			continue
		}
		n.Parent = parent.Path
		parent.Children = append(parent.Children, n.Path)
	}

	for _, n := range nodes {
		sort.Strings(n.Children)
	}
}
