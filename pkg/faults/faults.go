package faults

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Category classifies a fault for retry decisions and reporting.
type Category int

const (
	// CategoryConnection means the transport could not reach or keep a
	// session with the device. Retryable.
	CategoryConnection Category = iota

	// CategoryValidation means data failed a structural or typing check.
	// Never retried.
	CategoryValidation

	// CategoryAuthentication means the device rejected the credentials.
	// Never retried.
	CategoryAuthentication

	// CategoryTimeout means an operation exceeded its deadline. Retryable.
	CategoryTimeout

	// CategoryProtocol means the peer violated the wire contract. Retryable,
	// since transient device firmware hiccups often present this way.
	CategoryProtocol

	// CategoryDataFormat means a document or payload could not be decoded.
	// Never retried.
	CategoryDataFormat

	// CategoryConfiguration means the caller supplied unusable settings.
	// Never retried.
	CategoryConfiguration
)

func (c Category) String() string {
	switch c {
	case CategoryConnection:
		return "connection"
	case CategoryValidation:
		return "validation"
	case CategoryAuthentication:
		return "authentication"
	case CategoryTimeout:
		return "timeout"
	case CategoryProtocol:
		return "protocol"
	case CategoryDataFormat:
		return "data-format"
	case CategoryConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// mnemonic is the code prefix per category.
func (c Category) mnemonic() string {
	switch c {
	case CategoryConnection:
		return "CONN"
	case CategoryValidation:
		return "VAL"
	case CategoryAuthentication:
		return "AUTH"
	case CategoryTimeout:
		return "TIME"
	case CategoryProtocol:
		return "PROTO"
	case CategoryDataFormat:
		return "DATA"
	case CategoryConfiguration:
		return "CONF"
	default:
		return "UNK"
	}
}

// Severity grades how bad a fault is.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Context records where a fault happened.
type Context struct {
	Operation   string         `json:"operation,omitempty"`
	Component   string         `json:"component,omitempty"`
	Attempt     int            `json:"attempt,omitempty"`
	MaxAttempts int            `json:"max_attempts,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Fault is a classified error.
type Fault struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Category    Category `json:"-"`
	Severity    Severity `json:"-"`
	Context     Context  `json:"context"`
	Suggestions []string `json:"suggestions,omitempty"`
	Err         error    `json:"-"`
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", f.Code, f.Message, f.Err)
	}
	return fmt.Sprintf("[%s] %s", f.Code, f.Message)
}

func (f *Fault) Unwrap() error { return f.Err }

// WithOperation returns the fault with operation context filled in.
func (f *Fault) WithOperation(component, operation string) *Fault {
	f.Context.Component = component
	f.Context.Operation = operation
	return f
}

// WithAttempts returns the fault annotated with retry bookkeeping.
func (f *Fault) WithAttempts(attempt, maxAttempts int) *Fault {
	f.Context.Attempt = attempt
	f.Context.MaxAttempts = maxAttempts
	return f
}

// WithMetadata attaches one free-form context value.
func (f *Fault) WithMetadata(key string, value any) *Fault {
	if f.Context.Metadata == nil {
		f.Context.Metadata = make(map[string]any)
	}
	f.Context.Metadata[key] = value
	return f
}

// WithSuggestions replaces the recovery suggestions.
func (f *Fault) WithSuggestions(suggestions ...string) *Fault {
	f.Suggestions = suggestions
	return f
}

// New creates a fault with an explicit category and severity. The code is
// derived from the category and message, so equal faults get equal codes.
func New(category Category, severity Severity, message string, err error) *Fault {
	return &Fault{
		Code:     generateCode(category, message),
		Message:  message,
		Category: category,
		Severity: severity,
		Err:      err,
	}
}

// Connection creates a connection fault (high severity, retryable).
func Connection(message string, err error) *Fault {
	f := New(CategoryConnection, SeverityHigh, message, err)
	f.Suggestions = []string{
		"check that the device endpoint is reachable",
		"verify the device management service is running",
	}
	return f
}

// Validation creates a validation fault (medium severity, not retryable).
func Validation(message string, err error) *Fault {
	return New(CategoryValidation, SeverityMedium, message, err)
}

// Authentication creates an authentication fault (critical, not retryable).
func Authentication(message string, err error) *Fault {
	f := New(CategoryAuthentication, SeverityCritical, message, err)
	f.Suggestions = []string{
		"verify the credentials in the device configuration",
		"check that the account is not locked on the device",
	}
	return f
}

// Timeout creates a timeout fault (medium severity, retryable).
func Timeout(message string, err error) *Fault {
	f := New(CategoryTimeout, SeverityMedium, message, err)
	f.Suggestions = []string{
		"increase the per-call timeout in the device configuration",
	}
	return f
}

// Protocol creates a protocol fault (high severity, retryable).
func Protocol(message string, err error) *Fault {
	return New(CategoryProtocol, SeverityHigh, message, err)
}

// DataFormat creates a data-format fault (medium severity, not retryable).
func DataFormat(message string, err error) *Fault {
	return New(CategoryDataFormat, SeverityMedium, message, err)
}

// Configuration creates a configuration fault (high severity, not
// retryable).
func Configuration(message string, err error) *Fault {
	f := New(CategoryConfiguration, SeverityHigh, message, err)
	f.Suggestions = []string{
		"review the device configuration file",
	}
	return f
}

// generateCode builds a stable short code like CONN-4F2A from the category
// mnemonic and a hash of the message.
func generateCode(category Category, message string) string {
	h := fnv.New32a()
	h.Write([]byte(message))
	return fmt.Sprintf("%s-%04X", category.mnemonic(), h.Sum32()&0xFFFF)
}

// FormatForUser renders the fault message plus recovery suggestions the way
// the CLI prints them.
func FormatForUser(f *Fault) string {
	var b strings.Builder
	b.WriteString(f.Error())
	for _, s := range f.Suggestions {
		b.WriteString("\n  suggestion: ")
		b.WriteString(s)
	}
	return b.String()
}
