package log

import (
	"time"
)

// Event is one protocol log record captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the hook session (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Device is the device configuration name, when known.
	Device string `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer address (IP:port or URL).
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame *FrameEvent `cbor:"8,keyasint,omitempty"`  // Transport layer
	RPC   *RPCEvent   `cbor:"9,keyasint,omitempty"`  // Session layer (decoded)
	State *StateEvent `cbor:"10,keyasint,omitempty"` // Session state
	Error *ErrorEvent `cbor:"11,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerSession is the message encoding layer (decoded RPCs).
	LayerSession Layer = 1
	// LayerHook is the hook operation layer.
	LayerHook Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerSession:
		return "SESSION"
	case LayerHook:
		return "HOOK"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol message (frame or RPC).
	CategoryMessage Category = 0
	// CategoryState indicates a session state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// RPCEvent captures a decoded session message. Operation names are the
// protocol-level strings ("GetParameterValues", "Hello", ...), so the log
// format stays independent of any one hook's wire types.
type RPCEvent struct {
	// MessageID correlates request/response pairs.
	MessageID uint32 `cbor:"1,keyasint"`

	// Operation is the RPC name.
	Operation string `cbor:"2,keyasint"`

	// Status is the response status code, for responses.
	Status *uint8 `cbor:"3,keyasint,omitempty"`

	// ProcessingTime is the request-to-response duration, recorded on the
	// response event. Stored as nanoseconds.
	ProcessingTime *time.Duration `cbor:"4,keyasint,omitempty"`
}

// StateEvent captures session lifecycle transitions.
type StateEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEvent captures errors at any layer.
type ErrorEvent struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
