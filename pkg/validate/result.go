package validate

import "fmt"

// Issue is a single validation finding tied to a node path. The path is
// empty for collection-level findings.
type Issue struct {
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// Result accumulates validation findings. Valid flips to false once any
// error is added; warnings never affect it.
type Result struct {
	Valid    bool    `json:"valid" yaml:"valid"`
	Errors   []Issue `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewResult creates an empty, valid result.
func NewResult() *Result {
	return &Result{Valid: true}
}

// AddError records an error and marks the result invalid.
func (r *Result) AddError(path, message string) {
	r.Errors = append(r.Errors, Issue{Path: path, Message: message})
	r.Valid = false
}

// AddWarning records a non-fatal finding.
func (r *Result) AddWarning(path, message string) {
	r.Warnings = append(r.Warnings, Issue{Path: path, Message: message})
}

// Merge folds another result into this one. The merged result is valid
// only if both sides were.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Valid = r.Valid && other.Valid
}
