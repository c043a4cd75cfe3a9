package hook

import (
	"fmt"
	"sort"

	"github.com/tr181-tools/tr181-go/pkg/faults"
)

// Factory builds an unconnected hook for one device type.
type Factory func() Hook

// registry maps device-type strings to factories. Registration happens in
// package init of the implementations, so no locking is needed.
var registry = map[string]Factory{}

// Register adds a hook implementation under a device-type string. It panics
// when the type is already taken; duplicate registration is a programming
// error.
func Register(deviceType string, factory Factory) {
	if _, ok := registry[deviceType]; ok {
		panic(fmt.Sprintf("hook type %q is already registered", deviceType))
	}
	registry[deviceType] = factory
}

// New builds the hook selected by cfg.Type. The hook is not yet connected;
// pass the same configuration to Connect.
func New(cfg DeviceConfig) (Hook, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	factory, ok := registry[cfg.Type]
	if !ok {
		return nil, faults.Configuration(
			fmt.Sprintf("unknown device type %q (registered: %v)", cfg.Type, Types()), nil)
	}
	return factory(), nil
}

// Types returns the registered device-type strings, sorted.
func Types() []string {
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
