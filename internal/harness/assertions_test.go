package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strictmod/internal/ir"
)

func boolPtr(b bool) *bool { return &b }

func sampleResult() *Result {
	r := NewResult()
	r.Verdict = ir.Verdict{Module: "m", Strict: false}
	r.Diagnostics = []ir.Diagnostic{
		{Location: ir.Location{File: "m.py", Line: 1}, Severity: ir.SeverityWarning, Kind: ir.KindOpacityError, Message: "module 'ext' is not available for analysis"},
		{Location: ir.Location{File: "m.py", Line: 3}, Severity: ir.SeverityError, Kind: ir.KindNameError, Message: "name 'q' is not defined"},
	}
	r.Bindings = map[string]string{"a": "1", "b": "'s'"}
	return r
}

func TestEvaluateExpectations_AllMatch(t *testing.T) {
	expect := Expect{
		Strict: boolPtr(false),
		Diagnostics: []ExpectedDiagnostic{
			{Kind: "OpacityError", Severity: "warning"},
			{Kind: "NameError", Line: 3, Contains: "'q'"},
		},
		Bindings: map[string]string{"a": "1", "b": "'s'"},
		Unbound:  []string{"c"},
	}
	assert.Empty(t, EvaluateExpectations(sampleResult(), expect))
}

func TestEvaluateExpectations_DiagnosticMismatches(t *testing.T) {
	tests := []struct {
		name string
		want []ExpectedDiagnostic
		msg  string
	}{
		{
			name: "count",
			want: []ExpectedDiagnostic{{Kind: "NameError"}},
			msg:  "1 diagnostic(s): [NameError]",
		},
		{
			name: "kind order",
			want: []ExpectedDiagnostic{{Kind: "NameError"}, {Kind: "OpacityError"}},
			msg:  "diagnostic 1 to be NameError",
		},
		{
			name: "line",
			want: []ExpectedDiagnostic{{Kind: "OpacityError"}, {Kind: "NameError", Line: 4}},
			msg:  "diagnostic 2 to be NameError at line 4",
		},
		{
			name: "severity",
			want: []ExpectedDiagnostic{{Kind: "OpacityError", Severity: "error"}, {Kind: "NameError"}},
			msg:  "diagnostic 1 to be OpacityError (error)",
		},
		{
			name: "message",
			want: []ExpectedDiagnostic{{Kind: "OpacityError"}, {Kind: "NameError", Contains: "'z'"}},
			msg:  `containing "'z'"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateExpectations(sampleResult(), Expect{Diagnostics: tt.want})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], "Assertion failed: diagnostics")
			assert.Contains(t, errs[0], tt.msg)
			assert.Contains(t, errs[0], "m.py:3:0: error: NameError: name 'q' is not defined")
		})
	}
}

func TestEvaluateExpectations_EmptyDiagnosticsMeansNone(t *testing.T) {
	errs := EvaluateExpectations(sampleResult(), Expect{Diagnostics: []ExpectedDiagnostic{}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Expected: 0 diagnostic(s)")

	clean := NewResult()
	assert.Empty(t, EvaluateExpectations(clean, Expect{Diagnostics: []ExpectedDiagnostic{}}))
}

func TestEvaluateExpectations_BindingsSortedByName(t *testing.T) {
	errs := EvaluateExpectations(sampleResult(), Expect{
		Bindings: map[string]string{"z": "0", "b": "'t'", "a": "1"},
		Unbound:  []string{"a"},
	})
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "Expected: b = 't'")
	assert.Contains(t, errs[0], "Actual: b = 's'")
	assert.Contains(t, errs[1], "Actual: z unbound")
	assert.Contains(t, errs[2], "Assertion failed: unbound")
	assert.Contains(t, errs[2], "Actual: a = 1")
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     ExpectStrict,
		Expected: "strict=true",
		Actual:   "strict=false",
		Diagnostics: []ir.Diagnostic{
			{Location: ir.Location{File: "m.py", Line: 2}, Severity: ir.SeverityError, Kind: ir.KindTypeError, Message: "bad"},
		},
	}
	want := "Assertion failed: strict\n" +
		"  Expected: strict=true\n" +
		"  Actual: strict=false\n" +
		"\nDiagnostics:\n" +
		"  [1] m.py:2:0: error: TypeError: bad\n"
	assert.Equal(t, want, err.Error())
}

func TestMarshalSnapshot(t *testing.T) {
	r := NewResult()
	r.Verdict = ir.Verdict{Module: "m", Strict: true, Hash: "ignored"}

	data, err := MarshalSnapshot("s", r)
	require.NoError(t, err)
	assert.Equal(t, `{"diagnostics":[],"module":"m","scenario":"s","strict":true}`, string(data))
}
