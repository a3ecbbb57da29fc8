package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/strictmod/internal/ir"
)

// AssertionError is returned when an expectation fails. It carries the full
// diagnostic list so a failure can be read without rerunning.
type AssertionError struct {
	Type        string // which expectation failed
	Expected    string
	Actual      string
	Diagnostics []ir.Diagnostic
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Diagnostics) > 0 {
		fmt.Fprintf(&buf, "\nDiagnostics:\n")
		for i, d := range e.Diagnostics {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, d)
		}
	}
	return buf.String()
}

// Expectation types.
const (
	ExpectStrict      = "strict"
	ExpectDiagnostics = "diagnostics"
	ExpectBinding     = "binding"
	ExpectUnbound     = "unbound"
)

// EvaluateExpectations checks result against expect and returns one message
// per failed expectation, in a stable order.
func EvaluateExpectations(result *Result, expect Expect) []string {
	var errs []error

	if expect.Strict != nil && *expect.Strict != result.Verdict.Strict {
		errs = append(errs, &AssertionError{
			Type:        ExpectStrict,
			Expected:    fmt.Sprintf("strict=%t", *expect.Strict),
			Actual:      fmt.Sprintf("strict=%t", result.Verdict.Strict),
			Diagnostics: result.Diagnostics,
		})
	}

	if expect.Diagnostics != nil {
		if err := assertDiagnostics(result.Diagnostics, expect.Diagnostics); err != nil {
			errs = append(errs, err)
		}
	}

	names := make([]string, 0, len(expect.Bindings))
	for name := range expect.Bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := assertBinding(result.Bindings, name, expect.Bindings[name]); err != nil {
			errs = append(errs, err)
		}
	}

	for _, name := range expect.Unbound {
		if got, ok := result.Bindings[name]; ok {
			errs = append(errs, &AssertionError{
				Type:     ExpectUnbound,
				Expected: fmt.Sprintf("%s unbound", name),
				Actual:   fmt.Sprintf("%s = %s", name, got),
			})
		}
	}

	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return msgs
}

// assertDiagnostics matches diagnostics against want position by position.
func assertDiagnostics(got []ir.Diagnostic, want []ExpectedDiagnostic) error {
	if len(got) != len(want) {
		return &AssertionError{
			Type:        ExpectDiagnostics,
			Expected:    fmt.Sprintf("%d diagnostic(s): %s", len(want), describeExpected(want)),
			Actual:      fmt.Sprintf("%d diagnostic(s)", len(got)),
			Diagnostics: got,
		}
	}
	for i, w := range want {
		if !matchDiagnostic(got[i], w) {
			return &AssertionError{
				Type:        ExpectDiagnostics,
				Expected:    fmt.Sprintf("diagnostic %d to be %s", i+1, describeOne(w)),
				Actual:      got[i].String(),
				Diagnostics: got,
			}
		}
	}
	return nil
}

func matchDiagnostic(d ir.Diagnostic, w ExpectedDiagnostic) bool {
	if string(d.Kind) != w.Kind {
		return false
	}
	if w.Line != 0 && d.Location.Line != w.Line {
		return false
	}
	if w.Severity != "" && string(d.Severity) != w.Severity {
		return false
	}
	return strings.Contains(d.Message, w.Contains)
}

func assertBinding(bindings map[string]string, name, want string) error {
	got, ok := bindings[name]
	if !ok {
		return &AssertionError{
			Type:     ExpectBinding,
			Expected: fmt.Sprintf("%s = %s", name, want),
			Actual:   fmt.Sprintf("%s unbound", name),
		}
	}
	if got != want {
		return &AssertionError{
			Type:     ExpectBinding,
			Expected: fmt.Sprintf("%s = %s", name, want),
			Actual:   fmt.Sprintf("%s = %s", name, got),
		}
	}
	return nil
}

func describeExpected(want []ExpectedDiagnostic) string {
	parts := make([]string, len(want))
	for i, w := range want {
		parts[i] = describeOne(w)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func describeOne(w ExpectedDiagnostic) string {
	var b strings.Builder
	b.WriteString(w.Kind)
	if w.Line != 0 {
		fmt.Fprintf(&b, " at line %d", w.Line)
	}
	if w.Severity != "" {
		fmt.Fprintf(&b, " (%s)", w.Severity)
	}
	if w.Contains != "" {
		fmt.Fprintf(&b, " containing %q", w.Contains)
	}
	return b.String()
}
