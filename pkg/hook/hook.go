package hook

import (
	"context"
	"errors"
)

// Hook errors.
var (
	// ErrNotConnected indicates an operation on a hook without a session.
	ErrNotConnected = errors.New("hook is not connected")

	// ErrUnsupported indicates an operation the transport cannot express.
	ErrUnsupported = errors.New("operation not supported by this transport")
)

// Attributes describes a parameter as reported by the device.
type Attributes struct {
	// Type is the protocol-level type name (e.g. "xsd:unsignedInt").
	Type string

	// Access is the protocol-level access string (e.g. "read-write").
	Access string

	// Notification is the device-side change-notification level.
	Notification int
}

// Hook is a protocol-specific transport adapter. Implementations must be
// safe for sequential use by one extractor; they are not required to support
// concurrent calls.
type Hook interface {
	// Connect establishes a session using the given configuration. It
	// returns an authentication or connection fault on failure and never
	// retries internally.
	Connect(ctx context.Context, cfg DeviceConfig) error

	// Disconnect tears the session down. It is idempotent and returns nil
	// on a hook that was never connected.
	Disconnect() error

	// ListParameterNames returns the parameter and object paths directly
	// under prefix. Entries ending in "." denote sub-namespaces.
	ListParameterNames(ctx context.Context, prefix string) ([]string, error)

	// GetParameterValues fetches current values for the given paths.
	// Missing keys in the result mean "not retrievable" and are not an
	// error for the whole call.
	GetParameterValues(ctx context.Context, paths []string) (map[string]any, error)

	// GetParameterAttributes fetches type/access/notification metadata for
	// the given paths.
	GetParameterAttributes(ctx context.Context, paths []string) (map[string]Attributes, error)

	// SetParameterValues writes parameter values. Used by write-access
	// testing, not by plain extraction.
	SetParameterValues(ctx context.Context, values map[string]any) error

	// SubscribeToEvent arms change notification for an event path.
	SubscribeToEvent(ctx context.Context, path string) error

	// CallFunction invokes a device function with named input parameters
	// and returns its named outputs.
	CallFunction(ctx context.Context, path string, in map[string]any) (map[string]any, error)
}
