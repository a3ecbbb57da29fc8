package objects

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strictmod/internal/ir"
)

// TestBuiltinFunctions evaluates a fixed set of built-in calls and compares
// the rendered results with testdata/golden/builtins.golden.
func TestBuiltinFunctions(t *testing.T) {
	ctx := newTestContext(t)
	r := Builtins()
	call := func(name string, args ...Value) Value { return callBuiltin(t, ctx, name, args...) }
	callKw := func(name string, args []Value, names ...string) Value {
		return Call(ctx, builtin(t, name), args, names)
	}
	collect := func(v Value) Value { return NewList(Elements(ctx, v)) }
	method := func(obj Value, name string, args ...Value) Value { return CallMethod(ctx, obj, name, args...) }

	cases := []struct {
		expr string
		eval func() Value
	}{
		{"len([1, 2, 3])", func() Value { return call("len", NewList(ints(1, 2, 3))) }},
		{"sorted([3, 1, 2], reverse=True)", func() Value {
			return callKw("sorted", []Value{NewList(ints(3, 1, 2)), r.True}, "reverse")
		}},
		{"min(4, 2, 8)", func() Value { return call("min", ints(4, 2, 8)...) }},
		{"max([], default=0)", func() Value { return callKw("max", []Value{NewList(nil), NewInt(0)}, "default") }},
		{"sum([1, 2, 3], 10)", func() Value { return call("sum", NewList(ints(1, 2, 3)), NewInt(10)) }},
		{"list(enumerate('ab', 1))", func() Value { return collect(call("enumerate", NewStr("ab"), NewInt(1))) }},
		{"list(zip([1, 2, 3], 'ab'))", func() Value { return collect(call("zip", NewList(ints(1, 2, 3)), NewStr("ab"))) }},
		{"list(map(abs, [-1, 2]))", func() Value { return collect(call("map", builtin(t, "abs"), NewList(ints(-1, 2)))) }},
		{"list(filter(None, [0, 1, '', 2]))", func() Value {
			return collect(call("filter", r.None, NewList([]Value{NewInt(0), NewInt(1), NewStr(""), NewInt(2)})))
		}},
		{"list(reversed([1, 2, 3]))", func() Value { return collect(call("reversed", NewList(ints(1, 2, 3)))) }},
		{"any([0, 1])", func() Value { return call("any", NewList(ints(0, 1))) }},
		{"all([])", func() Value { return call("all", NewList(nil)) }},
		{"divmod(7, -2)", func() Value { return call("divmod", NewInt(7), NewInt(-2)) }},
		{"pow(3, 4, 5)", func() Value { return call("pow", ints(3, 4, 5)...) }},
		{"pow(3, -1, 7)", func() Value { return call("pow", ints(3, -1, 7)...) }},
		{"round(2.5)", func() Value { return call("round", NewFloat(2.5)) }},
		{"round(3.5)", func() Value { return call("round", NewFloat(3.5)) }},
		{"round(1234, -2)", func() Value { return call("round", ints(1234, -2)...) }},
		{"round(2.675, 2)", func() Value { return call("round", NewFloat(2.675), NewInt(2)) }},
		{"chr(955)", func() Value { return call("chr", NewInt(955)) }},
		{"ord('λ')", func() Value { return call("ord", NewStr("λ")) }},
		{"hex(255)", func() Value { return call("hex", NewInt(255)) }},
		{"bin(5)", func() Value { return call("bin", NewInt(5)) }},
		{"oct(8)", func() Value { return call("oct", NewInt(8)) }},
		{"isinstance(True, int)", func() Value { return call("isinstance", r.True, r.IntType) }},
		{"isinstance(1, (str, float))", func() Value {
			return call("isinstance", NewInt(1), NewTuple([]Value{r.StrType, r.FloatType}))
		}},
		{"issubclass(bool, int)", func() Value { return call("issubclass", r.BoolType, r.IntType) }},
		{"getattr(None, 'x', 5)", func() Value { return call("getattr", r.None, NewStr("x"), NewInt(5)) }},
		{"callable(len)", func() Value { return call("callable", builtin(t, "len")) }},
		{"format(3.14159, '.2f')", func() Value { return call("format", NewFloat(3.14159), NewStr(".2f")) }},
		{"format(1234567, ',')", func() Value { return call("format", NewInt(1234567), NewStr(",")) }},
		{"'%5.1f|%-4d|%s' % (3.14159, 7, 'x')", func() Value {
			return BinaryOperation(ctx, NewStr("%5.1f|%-4d|%s"), NewTuple([]Value{NewFloat(3.14159), NewInt(7), NewStr("x")}), Mod)
		}},
		{"'{0}-{name!r}-{1:>3}'.format('a', 5, name='n')", func() Value {
			return Call(ctx, LoadAttr(ctx, NewStr("{0}-{name!r}-{1:>3}"), "format"), []Value{NewStr("a"), NewInt(5), NewStr("n")}, []string{"name"})
		}},
		{"'a,b,,c'.split(',')", func() Value { return method(NewStr("a,b,,c"), "split", NewStr(",")) }},
		{"' x '.strip()", func() Value { return method(NewStr(" x "), "strip") }},
		{"'-'.join(['a', 'b'])", func() Value { return method(NewStr("-"), "join", NewList([]Value{NewStr("a"), NewStr("b")})) }},
		{"int('ff', 16)", func() Value { return Call(ctx, r.IntType, []Value{NewStr("ff"), NewInt(16)}, nil) }},
		{"float('1e3')", func() Value { return Call(ctx, r.FloatType, []Value{NewStr("1e3")}, nil) }},
		{"1e16", func() Value { return NewFloat(1e16) }},
		{"0.1 + 0.2", func() Value { return BinaryOperation(ctx, NewFloat(0.1), NewFloat(0.2), Add) }},
		{"10 / 4", func() Value { return BinaryOperation(ctx, NewInt(10), NewInt(4), Div) }},
		{"2 ** -1", func() Value { return BinaryOperation(ctx, NewInt(2), NewInt(-1), Pow) }},
		{"True + True", func() Value { return BinaryOperation(ctx, r.True, r.True, Add) }},
		{"dict(a=1) | {'b': 2}", func() Value {
			d := Call(ctx, r.DictType, ints(1), []string{"a"})
			return BinaryOperation(ctx, d, NewDict(ctx, []Value{NewStr("b")}, ints(2)), BitOr)
		}},
		{"tuple([1])", func() Value { return Call(ctx, r.TupleType, []Value{NewList(ints(1))}, nil) }},
		{"list(range(10, 0, -3))", func() Value { return collect(Call(ctx, r.RangeType, ints(10, 0, -3), nil)) }},
		{"slice(1, 5, 2).indices(3)", func() Value { return method(NewSlice(NewInt(1), NewInt(5), NewInt(2)), "indices", NewInt(3)) }},
		{"repr(KeyError('k'))", func() Value { return Repr(ctx, Call(ctx, r.KeyError, []Value{NewStr("k")}, nil)) }},
	}

	var sb strings.Builder
	for _, c := range cases {
		fmt.Fprintf(&sb, "%s => %s\n", c.expr, Describe(c.eval()))
	}
	require.Empty(t, ctx.Module.Diagnostics())

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "builtins", []byte(sb.String()))
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		args []Value
		kind ir.DiagnosticKind
		msg  string
	}{
		{"len of int", "len", ints(1), ir.KindTypeError, "object of type 'int' has no len()"},
		{"min of empty", "min", []Value{NewList(nil)}, ir.KindValueError, "min() iterable argument is empty"},
		{"chr out of range", "chr", ints(-1), ir.KindValueError, "chr() arg not in range(0x110000)"},
		{"abs of str", "abs", []Value{NewStr("x")}, ir.KindTypeError, "bad operand type for abs(): 'str'"},
		{"sum of strings", "sum", []Value{NewList(nil), NewStr("")}, ir.KindTypeError, "sum() can't sum strings [use ''.join(seq) instead]"},
		{"isinstance non-type", "isinstance", ints(1, 2), ir.KindTypeError, "isinstance() arg 2 must be a type, a tuple of types, or a union"},
		{"pow mod zero", "pow", ints(2, 3, 0), ir.KindValueError, "pow() 3rd argument cannot be 0"},
		{"format width past limit", "format", []Value{NewInt(1), NewStr("99999999999")}, ir.KindLimitError, "container of 99999999999 elements exceeds limit 100000"},
		{"format precision past limit", "format", []Value{NewFloat(1.5), NewStr(".999999")}, ir.KindLimitError, "container of 999999 elements exceeds limit 100000"},
		{"format width overflows", "format", []Value{NewInt(1), NewStr("99999999999999999999")}, ir.KindValueError, "Too many decimal digits in format string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newTestContext(t)
			res := callBuiltin(t, ctx, tt.fn, tt.args...)
			assert.True(t, IsUnknown(res))
			diags := ctx.Module.Diagnostics()
			require.Len(t, diags, 1)
			assert.Equal(t, tt.kind, diags[0].Kind)
			assert.Equal(t, tt.msg, diags[0].Message)
		})
	}
}

func TestNextWithDefault(t *testing.T) {
	ctx := newTestContext(t)
	it := callBuiltin(t, ctx, "iter", NewList(ints(1)))

	requireInt(t, 1, callBuiltin(t, ctx, "next", it, NewInt(0)))
	requireInt(t, 0, callBuiltin(t, ctx, "next", it, NewInt(0)))
	assert.Empty(t, ctx.Module.Diagnostics())

	callBuiltin(t, ctx, "next", it)
	assert.Equal(t, []ir.DiagnosticKind{ir.KindRaiseError}, kinds(ctx.Module))
}

func TestIsInstanceOfUnknown(t *testing.T) {
	ctx := newTestContext(t)

	res := IsInstance(ctx, NewUnknown("x"), Builtins().IntType)

	assert.True(t, IsUnknown(res))
	assert.Equal(t, []ir.DiagnosticKind{ir.KindOpacityError}, kinds(ctx.Module))
}

func TestTypeOfUnknown(t *testing.T) {
	ctx := newTestContext(t)

	res := callBuiltin(t, ctx, "type", NewUnknown("x"))

	assert.True(t, IsUnknown(res))
	assert.Equal(t, []ir.DiagnosticKind{ir.KindOpacityError}, kinds(ctx.Module))
	assert.True(t, IsUnknown(LoadAttr(ctx, res, "__name__")))
	assert.Same(t, Builtins().IntType, callBuiltin(t, ctx, "type", NewInt(3)))
}

func TestGlobalsIsSideEffect(t *testing.T) {
	p := ir.DefaultPolicy()
	p.AllowSideEffects = []string{"globals"}
	ctx := newTestContext(t, p)
	ctx.Module.Globals.Set("answer", NewInt(42))

	g := callBuiltin(t, ctx, "globals")

	requireInt(t, 42, GetItem(ctx, g, NewStr("answer")))
}
