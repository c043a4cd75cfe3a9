package cwmp

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Operation identifies a session message type.
type Operation uint8

const (
	// OpHello opens a session and carries the client identity and nonce.
	OpHello Operation = 1

	// OpAuth proves possession of the shared secret.
	OpAuth Operation = 2

	// OpGetParameterNames lists the entries directly under a prefix.
	OpGetParameterNames Operation = 3

	// OpGetParameterValues fetches current parameter values.
	OpGetParameterValues Operation = 4

	// OpGetParameterAttributes fetches parameter metadata.
	OpGetParameterAttributes Operation = 5

	// OpSetParameterValues writes parameter values.
	OpSetParameterValues Operation = 6

	// OpSubscribe arms change notification for an event path.
	OpSubscribe Operation = 7

	// OpCall invokes a device function.
	OpCall Operation = 8

	// OpBye announces an orderly session close. No response is expected.
	OpBye Operation = 9
)

// String returns the protocol-level operation name.
func (o Operation) String() string {
	switch o {
	case OpHello:
		return "Hello"
	case OpAuth:
		return "Auth"
	case OpGetParameterNames:
		return "GetParameterNames"
	case OpGetParameterValues:
		return "GetParameterValues"
	case OpGetParameterAttributes:
		return "GetParameterAttributes"
	case OpSetParameterValues:
		return "SetParameterValues"
	case OpSubscribe:
		return "Subscribe"
	case OpCall:
		return "Call"
	case OpBye:
		return "Bye"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the operation is part of the protocol.
func (o Operation) IsValid() bool {
	return o >= OpHello && o <= OpBye
}

// Status is a response status code.
type Status uint8

const (
	// StatusOK indicates the operation completed successfully.
	StatusOK Status = 0

	// StatusAuthRequired indicates the session must authenticate first. On a
	// Hello response it carries the device's challenge.
	StatusAuthRequired Status = 1

	// StatusAuthFailed indicates the device rejected the credentials or the
	// session proof.
	StatusAuthFailed Status = 2

	// StatusUnknownPath indicates a referenced path does not exist.
	StatusUnknownPath Status = 3

	// StatusReadOnly indicates a write to a read-only parameter.
	StatusReadOnly Status = 4

	// StatusInvalidValue indicates a written value the device cannot accept.
	StatusInvalidValue Status = 5

	// StatusUnsupported indicates an operation the device does not implement.
	StatusUnsupported Status = 6

	// StatusInternalError indicates a device-side failure.
	StatusInternalError Status = 7
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusAuthRequired:
		return "AUTH_REQUIRED"
	case StatusAuthFailed:
		return "AUTH_FAILED"
	case StatusUnknownPath:
		return "UNKNOWN_PATH"
	case StatusReadOnly:
		return "READ_ONLY"
	case StatusInvalidValue:
		return "INVALID_VALUE"
	case StatusUnsupported:
		return "UNSUPPORTED"
	case StatusInternalError:
		return "INTERNAL_ERROR"
	default:
		return "UNKNOWN"
	}
}

// IsOK returns true if the status indicates success.
func (s Status) IsOK() bool {
	return s == StatusOK
}

// NotificationMessageID marks device-initiated messages that correlate to
// no request. Clients never allocate it.
const NotificationMessageID uint32 = 0

// Message is the session envelope. Requests and responses share the shape;
// a response echoes the request's MessageID and Operation and sets Status.
//
// CBOR encoding:
//
//	{
//	  1: messageId,   // uint32, 0 reserved for device-initiated messages
//	  2: operation,   // uint8
//	  3: status,      // uint8, responses only (absent means OK)
//	  4: payload      // operation-specific, nested CBOR
//	}
type Message struct {
	MessageID uint32          `cbor:"1,keyasint"`
	Operation Operation       `cbor:"2,keyasint"`
	Status    Status          `cbor:"3,keyasint,omitempty"`
	Payload   cbor.RawMessage `cbor:"4,keyasint,omitempty"`
}

// DecodePayload decodes the operation-specific payload into v. A message
// without a payload leaves v untouched.
func (m *Message) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	if err := Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", m.Operation, err)
	}
	return nil
}

// ErrorMessage extracts the device-supplied error text from a non-OK
// response, or "" when there is none.
func (m *Message) ErrorMessage() string {
	if m.Status.IsOK() || len(m.Payload) == 0 {
		return ""
	}
	var ep ErrorPayload
	if Unmarshal(m.Payload, &ep) != nil {
		return ""
	}
	return ep.Message
}

// HelloPayload opens a session. The client nonce feeds the session proof
// when the device requires authentication.
type HelloPayload struct {
	Username    string `cbor:"1,keyasint,omitempty"`
	ClientNonce []byte `cbor:"2,keyasint"`
}

// HelloResponsePayload carries the device's authentication challenge on a
// StatusAuthRequired response. Both fields are absent when the device
// accepts unauthenticated sessions.
type HelloResponsePayload struct {
	Salt        []byte `cbor:"1,keyasint,omitempty"`
	ServerNonce []byte `cbor:"2,keyasint,omitempty"`
}

// AuthPayload carries the HMAC session proof.
type AuthPayload struct {
	Proof []byte `cbor:"1,keyasint"`
}

// GetParameterNamesPayload asks for the entries directly under Prefix.
type GetParameterNamesPayload struct {
	Prefix string `cbor:"1,keyasint"`
}

// GetParameterNamesResponsePayload lists paths; entries ending in "."
// denote sub-namespaces.
type GetParameterNamesResponsePayload struct {
	Paths []string `cbor:"1,keyasint,omitempty"`
}

// GetParameterValuesPayload asks for current values.
type GetParameterValuesPayload struct {
	Paths []string `cbor:"1,keyasint,omitempty"`
}

// GetParameterValuesResponsePayload maps paths to values. Paths the device
// could not read are simply absent.
type GetParameterValuesResponsePayload struct {
	Values map[string]any `cbor:"1,keyasint,omitempty"`
}

// GetParameterAttributesPayload asks for parameter metadata.
type GetParameterAttributesPayload struct {
	Paths []string `cbor:"1,keyasint,omitempty"`
}

// ParameterAttributes is the wire form of parameter metadata.
type ParameterAttributes struct {
	Type         string `cbor:"1,keyasint,omitempty"`
	Access       string `cbor:"2,keyasint,omitempty"`
	Notification int    `cbor:"3,keyasint,omitempty"`
}

// GetParameterAttributesResponsePayload maps paths to their metadata.
type GetParameterAttributesResponsePayload struct {
	Attributes map[string]ParameterAttributes `cbor:"1,keyasint,omitempty"`
}

// SetParameterValuesPayload writes values. The device applies all or none.
type SetParameterValuesPayload struct {
	Values map[string]any `cbor:"1,keyasint"`
}

// SubscribePayload arms change notification for one event path.
type SubscribePayload struct {
	Path string `cbor:"1,keyasint"`
}

// CallPayload invokes a device function with named inputs.
type CallPayload struct {
	Path  string         `cbor:"1,keyasint"`
	Input map[string]any `cbor:"2,keyasint,omitempty"`
}

// CallResponsePayload carries the function's named outputs.
type CallResponsePayload struct {
	Output map[string]any `cbor:"1,keyasint,omitempty"`
}

// ErrorPayload carries an optional human-readable message on non-OK
// responses.
type ErrorPayload struct {
	Message string `cbor:"1,keyasint,omitempty"`
}

// encMode is the CBOR encoder mode for session messages.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for session messages.
var decMode cbor.DecMode

func init() {
	var err error

	// Configure encoder for deterministic output
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical, // Deterministic key ordering
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix, // Unix timestamps
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Configure decoder to be lenient for forward compatibility
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet, // Ignore duplicate keys (last wins)
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// EncodeMessage builds and encodes one envelope. The payload is one of the
// payload structs above, or nil for operations without one.
func EncodeMessage(msgID uint32, op Operation, status Status, payload any) ([]byte, error) {
	msg := Message{MessageID: msgID, Operation: op, Status: status}
	if payload != nil {
		raw, err := Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", op, err)
		}
		msg.Payload = raw
	}
	return Marshal(&msg)
}

// DecodeMessage decodes one envelope. The payload stays raw; decode it with
// Message.DecodePayload once the operation is known.
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	if !msg.Operation.IsValid() {
		return nil, fmt.Errorf("invalid operation: %d", msg.Operation)
	}
	return &msg, nil
}

// NormalizeValue maps CBOR decoding artifacts back to plain Go shapes.
// Nested maps decoded through an any-typed field arrive as map[any]any;
// entries with string keys become map[string]any and slices are normalized
// elementwise. Scalars pass through unchanged.
func NormalizeValue(v any) any {
	switch raw := v.(type) {
	case map[any]any:
		result := make(map[string]any, len(raw))
		for k, val := range raw {
			key, ok := k.(string)
			if !ok {
				continue
			}
			result[key] = NormalizeValue(val)
		}
		return result
	case map[string]any:
		result := make(map[string]any, len(raw))
		for k, val := range raw {
			result[k] = NormalizeValue(val)
		}
		return result
	case []any:
		result := make([]any, len(raw))
		for i, val := range raw {
			result[i] = NormalizeValue(val)
		}
		return result
	default:
		return v
	}
}

// NormalizeValues applies NormalizeValue to every entry of a decoded value
// map. Nil maps pass through.
func NormalizeValues(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	result := make(map[string]any, len(values))
	for k, v := range values {
		result[k] = NormalizeValue(v)
	}
	return result
}
