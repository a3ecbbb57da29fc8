package ir

import "fmt"

// Location identifies a position in an analyzed source file.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Col  int    `json:"col"`
}

func (l Location) String() string {
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Col)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// Severity of a diagnostic after policy is applied.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// DiagnosticKind classifies a diagnostic.
type DiagnosticKind string

// Protocol failures.
const (
	KindAttributeError DiagnosticKind = "AttributeError"
	KindTypeError      DiagnosticKind = "TypeError"
	KindOpacityError   DiagnosticKind = "OpacityError"
)

// Host exceptions surfaced by concrete evaluation.
const (
	KindNameError         DiagnosticKind = "NameError"
	KindIndexError        DiagnosticKind = "IndexError"
	KindKeyError          DiagnosticKind = "KeyError"
	KindValueError        DiagnosticKind = "ValueError"
	KindZeroDivisionError DiagnosticKind = "ZeroDivisionError"
	KindRaiseError        DiagnosticKind = "RaiseError"
)

// Strictness and engine conditions.
const (
	KindSideEffectError DiagnosticKind = "SideEffectError"
	KindLimitError      DiagnosticKind = "LimitError"
	KindSyntaxError     DiagnosticKind = "SyntaxError"
	KindInternalError   DiagnosticKind = "InternalError"
)

// AllDiagnosticKinds lists every kind in a stable order. Verdict counts and
// reports iterate kinds in this order.
var AllDiagnosticKinds = []DiagnosticKind{
	KindAttributeError,
	KindTypeError,
	KindOpacityError,
	KindNameError,
	KindIndexError,
	KindKeyError,
	KindValueError,
	KindZeroDivisionError,
	KindRaiseError,
	KindSideEffectError,
	KindLimitError,
	KindSyntaxError,
	KindInternalError,
}

// DefaultSeverity is the severity a kind carries before policy overrides.
// Operations on Unknown degrade precision but are not errors by default.
func (k DiagnosticKind) DefaultSeverity() Severity {
	if k == KindOpacityError {
		return SeverityWarning
	}
	return SeverityError
}

// Diagnostic is a single analysis finding.
type Diagnostic struct {
	Location Location       `json:"location"`
	Severity Severity       `json:"severity"`
	Kind     DiagnosticKind `json:"kind"`
	Message  string         `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s: %s", d.Location, d.Severity, d.Kind, d.Message)
}

// Verdict is the outcome of analyzing one module.
type Verdict struct {
	Module string         `json:"module"`
	File   string         `json:"file,omitempty"`
	Strict bool           `json:"strict"`
	Hash   string         `json:"hash"`
	Counts map[string]int `json:"counts"`
}

// CountDiagnostics tallies diagnostics per kind. Kinds with no diagnostics
// are omitted.
func CountDiagnostics(diags []Diagnostic) map[string]int {
	counts := make(map[string]int)
	for _, d := range diags {
		counts[string(d.Kind)]++
	}
	return counts
}

// HasErrors reports whether any diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
