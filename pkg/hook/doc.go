// Package hook defines the transport adapter contract for extracting a
// device data model.
//
// A Hook speaks one management protocol and exposes the fixed operation set
// the extractors need: connect, disconnect, list parameter names under a
// prefix, batched value and attribute reads, parameter writes, event
// subscription and function invocation. Concrete implementations register
// themselves under a device-type string:
//
//	import _ "github.com/tr181-tools/tr181-go/pkg/hook/cwmp"
//
//	h, err := hook.New(cfg) // cfg.Type selects the implementation
//
// Hooks never retry internally; retries belong to the caller's resilience
// layer. All operations honor their context for cancellation, and every
// operation except Connect and Disconnect requires a connected hook.
package hook
