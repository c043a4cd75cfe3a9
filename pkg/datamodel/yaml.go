package datamodel

import "gopkg.in/yaml.v3"

// yaml.v3 does not consult encoding.TextUnmarshaler when decoding, so the
// enum types implement the yaml interfaces directly. JSON goes through the
// Text implementations in types.go.

// MarshalYAML implements yaml.Marshaler.
func (t DataType) MarshalYAML() (any, error) {
	return t.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *DataType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	*t = ParseDataType(s)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (a Access) MarshalYAML() (any, error) {
	return a.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Access) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	*a = ParseAccess(s)
	return nil
}
