package objects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strictmod/internal/ir"
)

func TestCallTypeRunsInit(t *testing.T) {
	ctx := newTestContext(t)
	point := newClass(t, ctx, "Point", members("__init__", fn("__init__", func(ctx *CallerContext, args []Value, names []string) Value {
		StoreAttr(ctx, args[0], "x", args[1])
		StoreAttr(ctx, args[0], "y", args[2])
		return Builtins().None
	})))

	p := construct(t, ctx, point, NewInt(1), NewInt(2))

	assert.Same(t, point, p.Type())
	requireInt(t, 2, LoadAttr(ctx, p, "y"))
	assert.Empty(t, ctx.Module.Diagnostics())
}

func TestInitMustReturnNone(t *testing.T) {
	ctx := newTestContext(t)
	bad := newClass(t, ctx, "Bad", members("__init__", returning("__init__", NewInt(1))))

	construct(t, ctx, bad)

	diags := ctx.Module.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "__init__() should return None, not 'int'", diags[0].Message)
}

func TestUserNewSkipsInitForForeignResult(t *testing.T) {
	ctx := newTestContext(t)
	initCalled := false
	cls := newClass(t, ctx, "K", members(
		"__new__", returning("__new__", NewInt(7)),
		"__init__", fn("__init__", func(ctx *CallerContext, args []Value, names []string) Value {
			initCalled = true
			return Builtins().None
		}),
	))

	requireInt(t, 7, construct(t, ctx, cls))
	assert.False(t, initCalled)
}

func TestConstructInstanceIsStructural(t *testing.T) {
	ctx := newTestContext(t)
	myList := newClass(t, ctx, "MyList", nil, Builtins().ListType)

	inst := myList.ConstructInstance()

	require.NotNil(t, inst.Dict())
	assert.Zero(t, inst.Dict().Len())
	l, ok := AsList(inst)
	require.True(t, ok)
	assert.Empty(t, l.Items)

	// Built-in behaviour is inherited through the payload.
	CallMethod(ctx, inst, "append", NewInt(1))
	requireInt(t, 1, Len(ctx, inst))
}

func TestCallInstance(t *testing.T) {
	ctx := newTestContext(t)
	plain := newClass(t, ctx, "Plain", nil)
	fnLike := newClass(t, ctx, "FnLike", members("__call__", fn("__call__", func(ctx *CallerContext, args []Value, names []string) Value {
		return NewInt(int64(len(args)))
	})))

	requireInt(t, 3, Call(ctx, construct(t, ctx, fnLike), ints(1, 2), nil))
	assert.Empty(t, ctx.Module.Diagnostics())

	res := Call(ctx, construct(t, ctx, plain), nil, nil)
	assert.True(t, IsUnknown(res))
	diags := ctx.Module.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "'Plain' object is not callable", diags[0].Message)
}

func TestCallDepthLimit(t *testing.T) {
	p := ir.DefaultPolicy()
	p.Limits.MaxCallDepth = 8
	ctx := newTestContext(t, p)
	var recurse *Instance
	recurse = fn("recurse", func(ctx *CallerContext, args []Value, names []string) Value {
		return Call(ctx, recurse, nil, nil)
	})

	res := Call(ctx, recurse, nil, nil)

	assert.True(t, IsUnknown(res))
	assert.Equal(t, []ir.DiagnosticKind{ir.KindLimitError}, kinds(ctx.Module))
}

func TestTruthValue(t *testing.T) {
	r := Builtins()
	ctx := newTestContext(t)
	withBool := newClass(t, ctx, "WithBool", members("__bool__", returning("__bool__", r.False)))
	withLen := newClass(t, ctx, "WithLen", members("__len__", returning("__len__", NewInt(0))))
	plain := newClass(t, ctx, "Plain", nil)

	tests := []struct {
		name string
		v    Value
		want Value
	}{
		{"zero", NewInt(0), r.False},
		{"nonempty str", NewStr("x"), r.True},
		{"empty dict", NewDict(ctx, nil, nil), r.False},
		{"none", r.None, r.False},
		{"__bool__", construct(t, ctx, withBool), r.False},
		{"__len__", construct(t, ctx, withLen), r.False},
		{"default", construct(t, ctx, plain), r.True},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, tt.want, Truth(ctx, tt.v))
		})
	}
	assert.True(t, IsUnknown(Truth(ctx, NewUnknown("cond"))))
	assert.True(t, IsUnknown(Truth(ctx, NewOpaqueList(nil))))
	requireInt(t, 0, Len(ctx, NewList(nil)))
}

func TestSpeculationMergesBindings(t *testing.T) {
	ctx := newTestContext(t)
	m := ctx.Module
	ns := m.Globals
	m.Assign(ns, "same", NewInt(0))

	m.Speculate(
		func() {
			m.Assign(ns, "x", NewInt(1))
			m.Assign(ns, "same", NewInt(5))
		},
		func() {
			m.Assign(ns, "x", NewInt(2))
			m.Assign(ns, "same", NewInt(5))
		},
	)

	x, ok := ns.Get("x")
	require.True(t, ok)
	assert.True(t, IsUnknown(x))
	same, _ := ns.Get("same")
	requireInt(t, 5, same)
}

func TestSpeculationMergesContainers(t *testing.T) {
	ctx := newTestContext(t)
	m := ctx.Module
	agree := NewList(ints(1))
	differ := NewList(ints(1))

	m.Speculate(
		func() {
			CallMethod(ctx, agree, "append", NewInt(2))
			CallMethod(ctx, differ, "append", NewInt(2))
		},
		func() {
			CallMethod(ctx, agree, "append", NewInt(2))
		},
	)

	assert.Equal(t, "[1, 2]", Describe(agree))
	l, _ := AsList(differ)
	assert.True(t, l.Opaque)
	assert.Equal(t, "[1, ...]", Describe(differ))
}

func TestSideEffects(t *testing.T) {
	t.Run("reported", func(t *testing.T) {
		ctx := newTestContext(t)
		res := callBuiltin(t, ctx, "print", NewStr("hi"))
		assert.True(t, IsUnknown(res))
		diags := ctx.Module.Diagnostics()
		require.Len(t, diags, 1)
		assert.Equal(t, ir.KindSideEffectError, diags[0].Kind)
		assert.Equal(t, "call to print() has side effects", diags[0].Message)
	})
	t.Run("allowed by policy", func(t *testing.T) {
		p := ir.DefaultPolicy()
		p.AllowSideEffects = []string{"print"}
		ctx := newTestContext(t, p)
		assert.Same(t, Builtins().None, callBuiltin(t, ctx, "print", NewStr("hi")))
		assert.Empty(t, ctx.Module.Diagnostics())
	})
	t.Run("hash of str", func(t *testing.T) {
		ctx := newTestContext(t)
		callBuiltin(t, ctx, "hash", NewStr("x"))
		assert.Equal(t, []ir.DiagnosticKind{ir.KindSideEffectError}, kinds(ctx.Module))
	})
	t.Run("hash of int is deterministic", func(t *testing.T) {
		ctx := newTestContext(t)
		requireInt(t, 42, callBuiltin(t, ctx, "hash", NewInt(42)))
		assert.Empty(t, ctx.Module.Diagnostics())
	})
}

func TestTrapCatchesRaise(t *testing.T) {
	ctx := newTestContext(t)
	inner, trap := ctx.WithTrap()

	GetItem(inner, NewList(nil), NewInt(0))

	require.True(t, trap.Caught())
	assert.Same(t, Builtins().IndexError, trap.Exception().Type())
	assert.Equal(t, "list index out of range", ExceptionMessage(trap.Exception()))
	assert.Empty(t, ctx.Module.Diagnostics())

	ctx.Reraise(trap)
	assert.Equal(t, []ir.DiagnosticKind{ir.KindIndexError}, kinds(ctx.Module))
}
