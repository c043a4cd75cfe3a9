package datamodel

import (
	"errors"
	"fmt"
)

// Node errors.
var (
	// ErrEmptyPath indicates an empty node path.
	ErrEmptyPath = errors.New("empty path")

	// ErrInvalidPath indicates a malformed node path.
	ErrInvalidPath = errors.New("invalid path")

	// ErrDuplicatePath indicates two nodes sharing one path.
	ErrDuplicatePath = errors.New("duplicate path")
)

// Node is one entry of a device data model: either a parameter carrying a
// typed value or an object containing other nodes.
//
// Parent and Children are derived links rebuilt by LinkNodes; they are paths,
// not pointers, so a collection serializes without cycles.
type Node struct {
	Path        string     `json:"path" yaml:"path"`
	Name        string     `json:"name" yaml:"name"`
	Type        DataType   `json:"data_type" yaml:"data_type"`
	Access      Access     `json:"access" yaml:"access"`
	Value       any        `json:"value,omitempty" yaml:"value,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	IsObject    bool       `json:"is_object,omitempty" yaml:"is_object,omitempty"`
	IsCustom    bool       `json:"is_custom,omitempty" yaml:"is_custom,omitempty"`
	Range       *ValueRange `json:"value_range,omitempty" yaml:"value_range,omitempty"`
	Events      []Event    `json:"events,omitempty" yaml:"events,omitempty"`
	Functions   []Function `json:"functions,omitempty" yaml:"functions,omitempty"`
	Parent      string     `json:"parent,omitempty" yaml:"parent,omitempty"`
	Children    []string   `json:"children,omitempty" yaml:"children,omitempty"`
}

// NewNode creates a parameter node. The name is derived from the last path
// segment.
func NewNode(path string, typ DataType, access Access) *Node {
	return &Node{
		Path:   path,
		Name:   PathName(path),
		Type:   typ,
		Access: access,
	}
}

// NewObjectNode creates a container node. Object paths conventionally end
// with a dot; the trailing dot is kept as part of the identity.
func NewObjectNode(path string) *Node {
	return &Node{
		Path:     path,
		Name:     PathName(path),
		Type:     DataTypeObject,
		Access:   AccessReadOnly,
		IsObject: true,
	}
}

// HasValue returns true if the node carries a value.
func (n *Node) HasValue() bool { return n.Value != nil }

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	if n.Range != nil {
		r := *n.Range
		if n.Range.MinValue != nil {
			v := *n.Range.MinValue
			r.MinValue = &v
		}
		if n.Range.MaxValue != nil {
			v := *n.Range.MaxValue
			r.MaxValue = &v
		}
		if n.Range.MaxLength != nil {
			v := *n.Range.MaxLength
			r.MaxLength = &v
		}
		r.AllowedValues = append([]string(nil), n.Range.AllowedValues...)
		c.Range = &r
	}
	c.Events = make([]Event, len(n.Events))
	for i, e := range n.Events {
		c.Events[i] = e
		c.Events[i].Parameters = append([]string(nil), e.Parameters...)
	}
	c.Functions = make([]Function, len(n.Functions))
	for i, f := range n.Functions {
		c.Functions[i] = f
		c.Functions[i].InputParameters = append([]string(nil), f.InputParameters...)
		c.Functions[i].OutputParameters = append([]string(nil), f.OutputParameters...)
	}
	c.Children = append([]string(nil), n.Children...)
	return &c
}

func (n *Node) String() string {
	if n.IsObject {
		return fmt.Sprintf("%s (object)", n.Path)
	}
	return fmt.Sprintf("%s (%s, %s)", n.Path, n.Type, n.Access)
}

// IndexByPath builds a path-keyed index over a collection. The second return
// value lists paths that appeared more than once.
func IndexByPath(nodes []*Node) (map[string]*Node, []string) {
	index := make(map[string]*Node, len(nodes))
	var duplicates []string
	for _, n := range nodes {
		if _, ok := index[n.Path]; ok {
			duplicates = append(duplicates, n.Path)
			continue
		}
		index[n.Path] = n
	}
	return index, duplicates
}
