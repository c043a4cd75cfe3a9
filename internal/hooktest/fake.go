// Package hooktest provides a scriptable in-memory hook implementation for
// tests. It simulates a device namespace without any network and records
// every call so tests can assert on batching and retry behavior.
package hooktest

import (
	"context"
	"fmt"
	"sync"

	"github.com/tr181-tools/tr181-go/pkg/datamodel"
	"github.com/tr181-tools/tr181-go/pkg/faults"
	"github.com/tr181-tools/tr181-go/pkg/hook"
)

// Handlers are optional overrides for individual operations. A nil handler
// falls back to the fake's built-in namespace behavior.
type Handlers struct {
	OnConnect       func(cfg hook.DeviceConfig) error
	OnList          func(prefix string) ([]string, error)
	OnGetValues     func(paths []string) (map[string]any, error)
	OnGetAttributes func(paths []string) (map[string]hook.Attributes, error)
	OnSet           func(values map[string]any) error
	OnSubscribe     func(path string) error
	OnCall          func(path string, in map[string]any) (map[string]any, error)
}

// Fake is an in-memory hook over a scripted namespace.
type Fake struct {
	mu sync.Mutex

	// Namespace maps an object prefix to the entries directly under it.
	Namespace map[string][]string

	// Values and Attrs hold per-parameter data.
	Values map[string]any
	Attrs  map[string]hook.Attributes

	// Handlers override individual operations.
	Handlers Handlers

	// Call records.
	ConnectCalls int
	ListCalls    []string
	ValueBatches [][]string
	AttrBatches  [][]string
	SetCalls     []map[string]any
	Subscribed   []string
	Called       []string

	connected bool
}

var _ hook.Hook = (*Fake)(nil)

// New creates an empty fake with the root object present.
func New() *Fake {
	return &Fake{
		Namespace: map[string][]string{datamodel.RootPath: nil},
		Values:    make(map[string]any),
		Attrs:     make(map[string]hook.Attributes),
	}
}

// AddObject registers an object path, creating missing ancestors up to the
// root.
func (f *Fake) AddObject(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addEntry(path)
	if _, ok := f.Namespace[path]; !ok {
		f.Namespace[path] = nil
	}
}

// AddParameter registers a parameter with wire-level attributes and a value,
// creating missing ancestor objects.
func (f *Fake) AddParameter(path, wireType, access string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addEntry(path)
	f.Attrs[path] = hook.Attributes{Type: wireType, Access: access}
	if value != nil {
		f.Values[path] = value
	}
}

// addEntry links path into its parent namespace list, recursing upward.
// Caller holds the lock.
func (f *Fake) addEntry(path string) {
	parent := datamodel.DirectParentPrefix(path)
	if parent == "" {
		return
	}
	if _, ok := f.Namespace[parent]; !ok {
		f.addEntry(parent)
		f.Namespace[parent] = nil
	}
	for _, existing := range f.Namespace[parent] {
		if existing == path {
			return
		}
	}
	f.Namespace[parent] = append(f.Namespace[parent], path)
}

// Connect implements hook.Hook.
func (f *Fake) Connect(_ context.Context, cfg hook.DeviceConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ConnectCalls++
	if f.Handlers.OnConnect != nil {
		if err := f.Handlers.OnConnect(cfg); err != nil {
			return err
		}
	}
	f.connected = true
	return nil
}

// Disconnect implements hook.Hook.
func (f *Fake) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

// ListParameterNames implements hook.Hook.
func (f *Fake) ListParameterNames(_ context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return nil, hook.ErrNotConnected
	}
	f.ListCalls = append(f.ListCalls, prefix)

	if f.Handlers.OnList != nil {
		return f.Handlers.OnList(prefix)
	}

	entries, ok := f.Namespace[prefix]
	if !ok {
		return nil, faults.Protocol(fmt.Sprintf("unknown path %q", prefix), nil)
	}
	return append([]string(nil), entries...), nil
}

// GetParameterValues implements hook.Hook.
func (f *Fake) GetParameterValues(_ context.Context, paths []string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return nil, hook.ErrNotConnected
	}
	f.ValueBatches = append(f.ValueBatches, append([]string(nil), paths...))

	if f.Handlers.OnGetValues != nil {
		return f.Handlers.OnGetValues(paths)
	}

	out := make(map[string]any)
	for _, p := range paths {
		if v, ok := f.Values[p]; ok {
			out[p] = v
		}
	}
	return out, nil
}

// GetParameterAttributes implements hook.Hook.
func (f *Fake) GetParameterAttributes(_ context.Context, paths []string) (map[string]hook.Attributes, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return nil, hook.ErrNotConnected
	}
	f.AttrBatches = append(f.AttrBatches, append([]string(nil), paths...))

	if f.Handlers.OnGetAttributes != nil {
		return f.Handlers.OnGetAttributes(paths)
	}

	out := make(map[string]hook.Attributes)
	for _, p := range paths {
		if a, ok := f.Attrs[p]; ok {
			out[p] = a
		}
	}
	return out, nil
}

// SetParameterValues implements hook.Hook.
func (f *Fake) SetParameterValues(_ context.Context, values map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return hook.ErrNotConnected
	}
	f.SetCalls = append(f.SetCalls, values)

	if f.Handlers.OnSet != nil {
		return f.Handlers.OnSet(values)
	}
	for p, v := range values {
		f.Values[p] = v
	}
	return nil
}

// SubscribeToEvent implements hook.Hook.
func (f *Fake) SubscribeToEvent(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return hook.ErrNotConnected
	}
	f.Subscribed = append(f.Subscribed, path)

	if f.Handlers.OnSubscribe != nil {
		return f.Handlers.OnSubscribe(path)
	}
	return nil
}

// CallFunction implements hook.Hook.
func (f *Fake) CallFunction(_ context.Context, path string, in map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return nil, hook.ErrNotConnected
	}
	f.Called = append(f.Called, path)

	if f.Handlers.OnCall != nil {
		return f.Handlers.OnCall(path, in)
	}
	return map[string]any{"status": "ok"}, nil
}

// Connected reports the session state.
func (f *Fake) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}
