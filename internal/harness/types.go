package harness

import "github.com/roach88/strictmod/internal/ir"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation held.
	Pass bool `json:"pass"`

	// Verdict is the module verdict the analyzer produced.
	Verdict ir.Verdict `json:"verdict"`

	// Diagnostics in emission order.
	Diagnostics []ir.Diagnostic `json:"diagnostics"`

	// Bindings renders the module's final globals.
	Bindings map[string]string `json:"bindings"`

	// Seq is the logical sequence number the engine stamped on the module.
	Seq int64 `json:"seq"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:        true,
		Diagnostics: []ir.Diagnostic{},
		Bindings:    map[string]string{},
		Errors:      []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
