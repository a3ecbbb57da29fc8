package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int", int64(-100), "-100"},
		{"max int64", int64(9223372036854775807), "9223372036854775807"},
		{"bool", true, "true"},
		{"null", nil, "null"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"array", []any{1, "two", false}, `[1,"two",false]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": 1,
		"alpha": 2,
		"beta":  map[string]any{"b": 1, "a": 2},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"a":2,"b":1},"zebra":1}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+10000 encodes as the surrogate pair D800 DC00, which sorts before
	// U+E000 in UTF-16 even though its UTF-8 bytes sort after.
	obj := map[string]any{
		"\uE000":     1,
		"\U00010000": 2,
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(result))
}

func TestMarshalCanonicalStructTags(t *testing.T) {
	d := Diagnostic{
		Location: Location{File: "m.py", Line: 3, Col: 1},
		Severity: SeverityError,
		Kind:     KindTypeError,
		Message:  "bad <operand> & more",
	}

	result, err := MarshalCanonical(d)
	require.NoError(t, err)
	assert.Equal(t,
		`{"kind":"TypeError","location":{"col":1,"file":"m.py","line":3},"message":"bad <operand> & more","severity":"error"}`,
		string(result))
}

func TestMarshalCanonicalRejectsFloats(t *testing.T) {
	for _, v := range []any{3.14, 1e21, map[string]any{"x": 0.5}} {
		_, err := MarshalCanonical(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "float")
	}
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	composed := "caf\u00E9"
	decomposed := "cafe\u0301"

	r1, err := MarshalCanonical(map[string]any{composed: composed})
	require.NoError(t, err)
	r2, err := MarshalCanonical(map[string]any{decomposed: decomposed})
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
}

func TestMarshalCanonicalStringEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"newline", "a\nb", `"a\nb"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"line separator", "a\u2028b", "\"a\u2028b\""},
		{"paragraph separator", "a\u2029b", "\"a\u2029b\""},
		{"literal backslash u2028", `x \u2028`, `"x \\u2028"`},
		{"mixed", "lit \\u2028 and \u2028", "\"lit \\\\u2028 and \u2028\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalIdempotent(t *testing.T) {
	m := NewModule("m",
		AssignName("x", BinOp(Int(1), "+", Float("2.5"))),
		ExprStmt(Call(Name("f"), Str("<&>"))),
	)

	first, err := MarshalCanonical(m)
	require.NoError(t, err)

	var generic any
	require.NoError(t, json.Unmarshal(first, &generic))
	second, err := MarshalCanonical(generic)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
