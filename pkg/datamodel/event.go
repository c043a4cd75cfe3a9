package datamodel

// Event describes a notification a node can emit. Parameters lists the
// parameter paths carried by the event payload, in declaration order.
type Event struct {
	Name        string   `json:"name" yaml:"name"`
	Path        string   `json:"path" yaml:"path"`
	Parameters  []string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Function describes an invokable operation declared on a node.
type Function struct {
	Name             string   `json:"name" yaml:"name"`
	Path             string   `json:"path" yaml:"path"`
	InputParameters  []string `json:"input_parameters,omitempty" yaml:"input_parameters,omitempty"`
	OutputParameters []string `json:"output_parameters,omitempty" yaml:"output_parameters,omitempty"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
}
