package datamodel

import (
	"fmt"
	"strings"
)

// DataType is the canonical type of a parameter value.
type DataType uint8

const (
	// DataTypeString is the default type; unknown wire types map here.
	DataTypeString DataType = iota

	// DataTypeInt covers all integer wire types (int, unsignedInt, long).
	DataTypeInt

	// DataTypeBoolean is a true/false value.
	DataTypeBoolean

	// DataTypeDateTime is an ISO 8601 timestamp.
	DataTypeDateTime

	// DataTypeBase64 is base64-encoded binary data.
	DataTypeBase64

	// DataTypeHexBinary is hex-encoded binary data.
	DataTypeHexBinary

	// DataTypeObject marks a container node rather than a parameter.
	DataTypeObject
)

// String returns the canonical type name used in documents and reports.
func (t DataType) String() string {
	switch t {
	case DataTypeString:
		return "string"
	case DataTypeInt:
		return "int"
	case DataTypeBoolean:
		return "boolean"
	case DataTypeDateTime:
		return "dateTime"
	case DataTypeBase64:
		return "base64"
	case DataTypeHexBinary:
		return "hexBinary"
	case DataTypeObject:
		return "object"
	default:
		return fmt.Sprintf("DataType(%d)", t)
	}
}

// ParseDataType parses a canonical type name. Unknown names map to
// DataTypeString.
func ParseDataType(s string) DataType {
	switch s {
	case "int":
		return DataTypeInt
	case "boolean":
		return DataTypeBoolean
	case "dateTime":
		return DataTypeDateTime
	case "base64":
		return DataTypeBase64
	case "hexBinary":
		return DataTypeHexBinary
	case "object":
		return DataTypeObject
	default:
		return DataTypeString
	}
}

// ParseWireType maps a protocol-level type name (CWMP xsd types and common
// aliases) to a canonical DataType. Unrecognized names map to DataTypeString.
func ParseWireType(s string) DataType {
	switch strings.TrimPrefix(strings.ToLower(s), "xsd:") {
	case "int", "integer", "unsignedint", "long", "unsignedlong":
		return DataTypeInt
	case "boolean", "bool":
		return DataTypeBoolean
	case "datetime":
		return DataTypeDateTime
	case "base64", "base64binary":
		return DataTypeBase64
	case "hexbinary":
		return DataTypeHexBinary
	case "object":
		return DataTypeObject
	default:
		return DataTypeString
	}
}

// MarshalText implements encoding.TextMarshaler so JSON and YAML documents
// carry the canonical type name.
func (t DataType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *DataType) UnmarshalText(text []byte) error {
	*t = ParseDataType(string(text))
	return nil
}

// Access is the read/write capability of a parameter.
type Access uint8

const (
	// AccessReadOnly is the default access level.
	AccessReadOnly Access = iota

	// AccessReadWrite allows both reading and writing.
	AccessReadWrite

	// AccessWriteOnly allows writing but not reading back.
	AccessWriteOnly
)

// CanRead returns true if the parameter can be read.
func (a Access) CanRead() bool { return a == AccessReadOnly || a == AccessReadWrite }

// CanWrite returns true if the parameter can be written.
func (a Access) CanWrite() bool { return a == AccessReadWrite || a == AccessWriteOnly }

// String returns the access level as the document literal.
func (a Access) String() string {
	switch a {
	case AccessReadWrite:
		return "read-write"
	case AccessWriteOnly:
		return "write-only"
	default:
		return "read-only"
	}
}

// ParseAccess parses a protocol or document access string. Anything not
// recognized as writable maps to AccessReadOnly.
func ParseAccess(s string) Access {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "read-write", "readwrite", "rw":
		return AccessReadWrite
	case "write-only", "writeonly", "w":
		return AccessWriteOnly
	default:
		return AccessReadOnly
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Access) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Access) UnmarshalText(text []byte) error {
	*a = ParseAccess(string(text))
	return nil
}
