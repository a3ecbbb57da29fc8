package objects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strictmod/internal/ir"
)

func TestLoadAttrOnUnknown(t *testing.T) {
	ctx := newTestContext(t)
	x := NewUnknown("result of import")

	res := LoadAttr(ctx, x, "attr")

	assert.True(t, IsUnknown(res))
	assert.Equal(t, []ir.DiagnosticKind{ir.KindOpacityError}, kinds(ctx.Module))
	// Analysis continues: later operations still work.
	requireInt(t, 3, BinaryOperation(ctx, NewInt(1), NewInt(2), Add))
}

func TestLoadAttrMissing(t *testing.T) {
	ctx := newTestContext(t)
	cls := newClass(t, ctx, "K", nil)
	obj := construct(t, ctx, cls)

	res := cls.LoadAttr(ctx, obj, "missing", nil)

	assert.True(t, IsUnknown(res))
	diags := ctx.Module.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, ir.KindAttributeError, diags[0].Kind)
	assert.Equal(t, "'K' object has no attribute 'missing'", diags[0].Message)
}

func TestLoadAttrDefault(t *testing.T) {
	ctx := newTestContext(t)
	cls := newClass(t, ctx, "K", nil)

	requireStr(t, "dflt", LoadAttrDefault(ctx, construct(t, ctx, cls), "missing", NewStr("dflt")))
	assert.Empty(t, ctx.Module.Diagnostics())
}

func TestDiamondMRO(t *testing.T) {
	ctx := newTestContext(t)
	a := newClass(t, ctx, "A", members("x", NewStr("A"), "y", NewStr("A")))
	b := newClass(t, ctx, "B", nil, a)
	c := newClass(t, ctx, "C", members("x", NewStr("C")), a)
	d := newClass(t, ctx, "D", nil, b, c)

	var names []string
	for _, m := range d.MRO() {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"D", "B", "C", "A", "object"}, names)

	obj := construct(t, ctx, d)
	requireStr(t, "C", LoadAttr(ctx, obj, "x"))
	requireStr(t, "A", LoadAttr(ctx, obj, "y"))
	requireStr(t, "C", LoadAttr(ctx, d, "x"))
}

func TestInconsistentMRO(t *testing.T) {
	ctx := newTestContext(t)
	a := newClass(t, ctx, "A", nil)
	b := newClass(t, ctx, "B", nil, a)

	res := NewClass(ctx, ClassSpec{Name: "X", Bases: []Value{a, b}, Body: NewNamespace()})

	assert.True(t, IsUnknown(res))
	diags := ctx.Module.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, ir.KindTypeError, diags[0].Kind)
	assert.Contains(t, diags[0].Message, "consistent method resolution order")
}

func TestMROLimit(t *testing.T) {
	p := ir.DefaultPolicy()
	p.Limits.MaxMRO = 4
	ctx := newTestContext(t, p)

	cls := newClass(t, ctx, "C0", nil)
	var last Value = cls
	for _, name := range []string{"C1", "C2", "C3", "C4"} {
		last = NewClass(ctx, ClassSpec{Name: name, Bases: []Value{last}, Body: NewNamespace()})
		if IsUnknown(last) {
			break
		}
	}

	assert.True(t, IsUnknown(last))
	assert.Contains(t, kinds(ctx.Module), ir.KindLimitError)
}

func TestDescriptorInvokedOnlyWithGet(t *testing.T) {
	ctx := newTestContext(t)
	desc := newClass(t, ctx, "Desc", members("__get__", fn("__get__", func(ctx *CallerContext, args []Value, names []string) Value {
		require.Len(t, args, 3)
		if args[1] == Builtins().None {
			return NewStr("class access")
		}
		return NewStr("instance access")
	})))
	plain := newClass(t, ctx, "Plain", nil)
	rawValue := construct(t, ctx, plain)
	host := newClass(t, ctx, "Host", members("d", construct(t, ctx, desc), "p", rawValue))

	obj := construct(t, ctx, host)
	requireStr(t, "instance access", LoadAttr(ctx, obj, "d"))
	requireStr(t, "class access", LoadAttr(ctx, host, "d"))
	assert.Same(t, rawValue, LoadAttr(ctx, obj, "p"))
	assert.Empty(t, ctx.Module.Diagnostics())
}

func TestDataDescriptorPrecedence(t *testing.T) {
	ctx := newTestContext(t)
	var stored []Value
	data := newClass(t, ctx, "Data", members(
		"__get__", returning("__get__", NewStr("from descriptor")),
		"__set__", fn("__set__", func(ctx *CallerContext, args []Value, names []string) Value {
			stored = append(stored, args[2])
			return Builtins().None
		}),
	))
	nonData := newClass(t, ctx, "NonData", members("__get__", returning("__get__", NewStr("non-data"))))
	host := newClass(t, ctx, "Host", members("dd", construct(t, ctx, data), "nd", construct(t, ctx, nonData)))
	obj := construct(t, ctx, host).(*Instance)

	StoreAttr(ctx, obj, "dd", NewInt(1))
	require.Len(t, stored, 1)
	requireInt(t, 1, stored[0])
	_, inDict := obj.Dict().Get("dd")
	assert.False(t, inDict)

	// Instance namespace entries lose to data descriptors and beat non-data ones.
	obj.Dict().Set("dd", NewStr("shadow"))
	obj.Dict().Set("nd", NewStr("shadow"))
	requireStr(t, "from descriptor", LoadAttr(ctx, obj, "dd"))
	requireStr(t, "shadow", LoadAttr(ctx, obj, "nd"))
}

func TestMethodBinding(t *testing.T) {
	ctx := newTestContext(t)
	var self Value
	cls := newClass(t, ctx, "K", members("m", fn("m", func(ctx *CallerContext, args []Value, names []string) Value {
		self = args[0]
		return args[1]
	})))
	obj := construct(t, ctx, cls)

	m := LoadAttr(ctx, obj, "m")
	assert.Equal(t, Builtins().MethodType, m.Type())
	requireInt(t, 5, Call(ctx, m, ints(5), nil))
	assert.Same(t, obj, self)

	// Through the class the function is unbound.
	requireInt(t, 6, Call(ctx, LoadAttr(ctx, cls, "m"), []Value{obj, NewInt(6)}, nil))
}

func TestStaticAndClassMethods(t *testing.T) {
	ctx := newTestContext(t)
	r := Builtins()
	echo := fn("echo", func(ctx *CallerContext, args []Value, names []string) Value { return NewTuple(args) })
	cls := newClass(t, ctx, "K", members(
		"s", Call(ctx, r.StaticMethodType, []Value{echo}, nil),
		"c", Call(ctx, r.ClassMethodType, []Value{echo}, nil),
	))
	obj := construct(t, ctx, cls)

	assert.Equal(t, "(1,)", Describe(Call(ctx, LoadAttr(ctx, obj, "s"), ints(1), nil)))
	res := Call(ctx, LoadAttr(ctx, obj, "c"), ints(1), nil)
	items, ok := TupleItems(res)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Same(t, cls, items[0])
}

func TestProperty(t *testing.T) {
	ctx := newTestContext(t)
	r := Builtins()
	getter := fn("value", func(ctx *CallerContext, args []Value, names []string) Value {
		return BinaryOperation(ctx, LoadAttr(ctx, args[0], "_v"), NewInt(1), Add)
	})
	cls := newClass(t, ctx, "K", members("value", Call(ctx, r.PropertyType, []Value{getter}, nil)))
	obj := construct(t, ctx, cls)

	StoreAttr(ctx, obj, "_v", NewInt(41))
	requireInt(t, 42, LoadAttr(ctx, obj, "value"))

	StoreAttr(ctx, obj, "value", NewInt(0))
	assert.Equal(t, []ir.DiagnosticKind{ir.KindAttributeError}, kinds(ctx.Module))
}

func TestGetattrHook(t *testing.T) {
	ctx := newTestContext(t)
	cls := newClass(t, ctx, "K", members("__getattr__", fn("__getattr__", func(ctx *CallerContext, args []Value, names []string) Value {
		return BinaryOperation(ctx, NewStr("dyn_"), args[1], Add)
	})))
	obj := construct(t, ctx, cls)

	requireStr(t, "dyn_anything", LoadAttr(ctx, obj, "anything"))
	assert.Equal(t, Builtins().True, HasAttr(ctx, obj, "other"))
	assert.Empty(t, ctx.Module.Diagnostics())
}

func TestStoreAndDelete(t *testing.T) {
	t.Run("instance namespace", func(t *testing.T) {
		ctx := newTestContext(t)
		obj := construct(t, ctx, newClass(t, ctx, "K", nil))
		StoreAttr(ctx, obj, "a", NewInt(1))
		requireInt(t, 1, LoadAttr(ctx, obj, "a"))
		DelAttr(ctx, obj, "a")
		assert.Equal(t, Builtins().False, HasAttr(ctx, obj, "a"))
		assert.Empty(t, ctx.Module.Diagnostics())
	})
	t.Run("delete missing", func(t *testing.T) {
		ctx := newTestContext(t)
		obj := construct(t, ctx, newClass(t, ctx, "K", nil))
		DelAttr(ctx, obj, "nope")
		assert.Equal(t, []ir.DiagnosticKind{ir.KindAttributeError}, kinds(ctx.Module))
	})
	t.Run("types are immutable", func(t *testing.T) {
		ctx := newTestContext(t)
		cls := newClass(t, ctx, "K", nil)
		StoreAttr(ctx, cls, "a", NewInt(1))
		assert.Equal(t, []ir.DiagnosticKind{ir.KindAttributeError}, kinds(ctx.Module))
		_, ok := cls.Dict().Get("a")
		assert.False(t, ok)
	})
	t.Run("built-in instances have no namespace", func(t *testing.T) {
		ctx := newTestContext(t)
		StoreAttr(ctx, NewInt(1), "a", NewInt(2))
		assert.Equal(t, []ir.DiagnosticKind{ir.KindAttributeError}, kinds(ctx.Module))
	})
}

func TestTypeAttributes(t *testing.T) {
	ctx := newTestContext(t)
	cls := newClass(t, ctx, "K", nil)

	requireStr(t, "K", LoadAttr(ctx, cls, "__name__"))
	requireStr(t, "testmod", LoadAttr(ctx, cls, "__module__"))
	assert.Same(t, Builtins().TypeType, LoadAttr(ctx, cls, "__class__"))
	assert.Equal(t, "(<class 'testmod.K'>, <class 'object'>)", Describe(LoadAttr(ctx, cls, "__mro__")))
}

func TestSuper(t *testing.T) {
	ctx := newTestContext(t)
	base := newClass(t, ctx, "Base", members("who", returning("who", NewStr("base"))))
	sub := newClass(t, ctx, "Sub", members("who", returning("who", NewStr("sub"))), base)
	obj := construct(t, ctx, sub)

	s := Call(ctx, Builtins().SuperType, []Value{sub, obj}, nil)
	requireStr(t, "base", Call(ctx, LoadAttr(ctx, s, "who"), nil, nil))
	requireStr(t, "sub", Call(ctx, LoadAttr(ctx, obj, "who"), nil, nil))
}
