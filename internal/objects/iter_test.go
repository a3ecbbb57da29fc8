package objects

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strictmod/internal/ir"
)

func TestElementsOfUnknownAreBounded(t *testing.T) {
	ctx := newTestContext(t)

	items := Elements(ctx, NewUnknown("import"))

	require.Len(t, items, 1)
	assert.True(t, IsUnknown(items[0]))
	assert.Equal(t, []ir.DiagnosticKind{ir.KindOpacityError}, kinds(ctx.Module))
}

func TestElementsCappedAtMaxElements(t *testing.T) {
	p := ir.DefaultPolicy()
	p.Limits.MaxElements = 10
	p.Limits.MaxContainerSize = 100
	ctx := newTestContext(t, p)

	items := Elements(ctx, Call(ctx, Builtins().RangeType, ints(1000), nil))

	require.Len(t, items, 11)
	requireInt(t, 9, items[9])
	assert.True(t, IsUnknown(items[10]))
	assert.Equal(t, []ir.DiagnosticKind{ir.KindOpacityError}, kinds(ctx.Module))
}

func TestIteratorCapBoundary(t *testing.T) {
	tests := []struct {
		name      string
		stop      int64
		wantLen   int
		truncated bool
	}{
		{"below cap", 2, 2, false},
		{"exactly at cap", 3, 3, false},
		{"past cap", 4, 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ir.DefaultPolicy()
			p.Limits.MaxElements = 3
			ctx := newTestContext(t, p)

			items := Elements(ctx, construct(t, ctx, counterClass(t, ctx, tt.stop)))

			require.Len(t, items, tt.wantLen)
			assert.Equal(t, tt.truncated, IsUnknown(items[len(items)-1]))
			if tt.truncated {
				assert.Equal(t, []ir.DiagnosticKind{ir.KindOpacityError}, kinds(ctx.Module))
			} else {
				assert.Empty(t, ctx.Module.Diagnostics())
			}
		})
	}
}

func TestKnownLengthContainersIterateInFull(t *testing.T) {
	r := Builtins()
	tests := []struct {
		name string
		make func(ctx *CallerContext) Value
		want int
	}{
		{"range", func(ctx *CallerContext) Value { return Call(ctx, r.RangeType, ints(2000), nil) }, 2000},
		{"list", func(ctx *CallerContext) Value {
			return Call(ctx, r.ListType, []Value{Call(ctx, r.RangeType, ints(1024), nil)}, nil)
		}, 1024},
		{"str", func(*CallerContext) Value { return NewStr(strings.Repeat("ab", 1500)) }, 3000},
		{"list iterator", func(ctx *CallerContext) Value {
			return callBuiltin(t, ctx, "iter", NewList(ints(make([]int64, 1500)...)))
		}, 1500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newTestContext(t)

			items := Elements(ctx, tt.make(ctx))

			require.Len(t, items, tt.want)
			assert.False(t, IsUnknown(items[len(items)-1]))
			assert.Empty(t, ctx.Module.Diagnostics())
		})
	}
}

func TestElementsOfOpaqueList(t *testing.T) {
	ctx := newTestContext(t)

	items := Elements(ctx, NewOpaqueList(ints(1, 2)))

	require.Len(t, items, 3)
	requireInt(t, 2, items[1])
	assert.True(t, IsUnknown(items[2]))
}

// counterClass builds an iterator class yielding 0 up to stop.
func counterClass(t *testing.T, ctx *CallerContext, stop int64) *Type {
	t.Helper()
	r := Builtins()
	return newClass(t, ctx, "Counter", members(
		"__iter__", fn("__iter__", func(ctx *CallerContext, args []Value, names []string) Value { return args[0] }),
		"__next__", fn("__next__", func(ctx *CallerContext, args []Value, names []string) Value {
			n := LoadAttrDefault(ctx, args[0], "n", NewInt(0))
			if Compare(ctx, n, NewInt(stop), GtE) == r.True {
				return ctx.Raise(r.StopIteration, "")
			}
			StoreAttr(ctx, args[0], "n", BinaryOperation(ctx, n, NewInt(1), Add))
			return n
		}),
	))
}

func TestUserIteratorProtocol(t *testing.T) {
	ctx := newTestContext(t)

	items := Elements(ctx, construct(t, ctx, counterClass(t, ctx, 3)))

	assert.Equal(t, "[0, 1, 2]", Describe(NewList(items)))
	assert.Empty(t, ctx.Module.Diagnostics())
}

func TestLegacySequenceProtocol(t *testing.T) {
	ctx := newTestContext(t)
	r := Builtins()
	seq := newClass(t, ctx, "Seq", members("__getitem__", fn("__getitem__", func(ctx *CallerContext, args []Value, names []string) Value {
		if Compare(ctx, args[1], NewInt(2), Gt) == r.True {
			return ctx.Raise(r.IndexError, "done")
		}
		return BinaryOperation(ctx, args[1], NewInt(10), Mult)
	})))

	items := Elements(ctx, construct(t, ctx, seq))

	assert.Equal(t, "[0, 10, 20]", Describe(NewList(items)))
	assert.Empty(t, ctx.Module.Diagnostics())
}

func TestNotIterable(t *testing.T) {
	ctx := newTestContext(t)

	items := Elements(ctx, NewInt(3))

	assert.Empty(t, items)
	diags := ctx.Module.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "'int' object is not iterable", diags[0].Message)
}

func TestGetElement(t *testing.T) {
	tests := []struct {
		name  string
		obj   Value
		index Value
		want  string
		kind  ir.DiagnosticKind
	}{
		{name: "list", obj: NewList(ints(1, 2, 3)), index: NewInt(-1), want: "3"},
		{name: "tuple slice", obj: NewTuple(ints(1, 2, 3, 4)), index: NewSlice(NewInt(1), Builtins().None, NewInt(2)), want: "(2, 4)"},
		{name: "str", obj: NewStr("héllo"), index: NewInt(1), want: "'é'"},
		{name: "not subscriptable", obj: Builtins().None, index: NewInt(0), kind: ir.KindTypeError},
		{name: "out of range", obj: NewList(ints(1)), index: NewInt(5), kind: ir.KindIndexError},
		{name: "bad index type", obj: NewList(ints(1)), index: NewStr("a"), kind: ir.KindTypeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newTestContext(t)
			res := GetItem(ctx, tt.obj, tt.index)
			if tt.kind != "" {
				assert.True(t, IsUnknown(res))
				assert.Equal(t, []ir.DiagnosticKind{tt.kind}, kinds(ctx.Module))
				return
			}
			assert.Equal(t, tt.want, Describe(res))
			assert.Empty(t, ctx.Module.Diagnostics())
		})
	}
}

func TestDictItems(t *testing.T) {
	ctx := newTestContext(t)
	d := NewDict(ctx, []Value{NewStr("a"), NewInt(1)}, ints(10, 20))

	SetItem(ctx, d, NewFloat(1.0), NewInt(30))
	requireInt(t, 30, GetItem(ctx, d, NewInt(1)))
	assert.Equal(t, "{'a': 10, 1: 30}", Describe(d))

	DelItem(ctx, d, NewStr("a"))
	GetItem(ctx, d, NewStr("a"))
	diags := ctx.Module.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, ir.KindKeyError, diags[0].Kind)
	assert.Equal(t, "'a'", diags[0].Message)
}

func TestDictUnhashableKey(t *testing.T) {
	ctx := newTestContext(t)
	d := NewDict(ctx, nil, nil)

	SetItem(ctx, d, NewList(nil), NewInt(1))

	diags := ctx.Module.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "unhashable type: 'list'", diags[0].Message)
}

func TestUnknownKeyForgetsContents(t *testing.T) {
	ctx := newTestContext(t)
	d := NewDict(ctx, []Value{NewStr("a")}, ints(1))

	SetItem(ctx, d, NewUnknown("key"), NewInt(2))

	dict, ok := AsDict(d)
	require.True(t, ok)
	assert.True(t, dict.Opaque)
	assert.True(t, IsUnknown(GetItem(ctx, d, NewStr("a"))))
}

func TestListMutations(t *testing.T) {
	ctx := newTestContext(t)
	l := NewList(ints(3, 1, 2))

	CallMethod(ctx, l, "append", NewInt(0))
	CallMethod(ctx, l, "sort")
	assert.Equal(t, "[0, 1, 2, 3]", Describe(l))

	SetItem(ctx, l, NewSlice(NewInt(1), NewInt(3), Builtins().None), NewList(ints(9)))
	assert.Equal(t, "[0, 9, 3]", Describe(l))

	requireInt(t, 3, CallMethod(ctx, l, "pop"))
	DelItem(ctx, l, NewInt(0))
	assert.Equal(t, "[9]", Describe(l))
	assert.Empty(t, ctx.Module.Diagnostics())
}

func TestContainerSizeLimit(t *testing.T) {
	p := ir.DefaultPolicy()
	p.Limits.MaxContainerSize = 100
	ctx := newTestContext(t, p)

	res := BinaryOperation(ctx, NewList(ints(0)), NewInt(1000), Mult)

	assert.True(t, IsUnknown(res))
	assert.Equal(t, []ir.DiagnosticKind{ir.KindLimitError}, kinds(ctx.Module))
}

func TestSetOperations(t *testing.T) {
	ctx := newTestContext(t)
	a := NewSet(ctx, ints(1, 2, 3))
	b := NewSet(ctx, ints(2, 3, 4))

	assert.Equal(t, "{2, 3}", Describe(BinaryOperation(ctx, a, b, BitAnd)))
	assert.Equal(t, "{1, 2, 3, 4}", Describe(BinaryOperation(ctx, a, b, BitOr)))
	assert.Equal(t, "{1}", Describe(BinaryOperation(ctx, a, b, Sub)))
	assert.Equal(t, "set()", Describe(NewSet(ctx, nil)))
	assert.Equal(t, Builtins().True, Compare(ctx, NewSet(ctx, ints(2)), a, Lt))
}
