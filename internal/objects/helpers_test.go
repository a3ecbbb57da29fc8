package objects

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/strictmod/internal/ir"
)

// goFunc is a user-level function backed by Go, standing in for functions
// the analyzer would build from the module's own code.
type goFunc struct {
	name string
	fn   NativeFunc
}

func (f *goFunc) Name() string { return f.name }

func (f *goFunc) Call(ctx *CallerContext, args []Value, names []string) Value {
	return f.fn(ctx, args, names)
}

func fn(name string, body NativeFunc) *Instance {
	return NewFunction(&goFunc{name: name, fn: body})
}

// returning is a method that ignores its arguments.
func returning(name string, v Value) *Instance {
	return fn(name, func(*CallerContext, []Value, []string) Value { return v })
}

func newTestContext(t *testing.T, policy ...ir.Policy) *CallerContext {
	t.Helper()
	p := ir.DefaultPolicy()
	if len(policy) > 0 {
		p = policy[0]
	}
	m := NewModule("testmod", "testmod.py", p)
	return NewContext(m, ir.Location{File: "testmod.py", Line: 1, Col: 0})
}

// members builds a class body namespace.
func members(kv ...any) *Namespace {
	ns := NewNamespace()
	for i := 0; i < len(kv); i += 2 {
		ns.Set(kv[i].(string), kv[i+1].(Value))
	}
	return ns
}

func newClass(t *testing.T, ctx *CallerContext, name string, body *Namespace, bases ...Value) *Type {
	t.Helper()
	if body == nil {
		body = NewNamespace()
	}
	v := NewClass(ctx, ClassSpec{Name: name, Module: ctx.Module.Name, Bases: bases, Body: body})
	cls, ok := v.(*Type)
	require.Truef(t, ok, "class %s: got %s, diagnostics %v", name, Describe(v), ctx.Module.Diagnostics())
	return cls
}

func construct(t *testing.T, ctx *CallerContext, cls Value, args ...Value) Value {
	t.Helper()
	return Call(ctx, cls, args, nil)
}

func kinds(m *Module) []ir.DiagnosticKind {
	var out []ir.DiagnosticKind
	for _, d := range m.Diagnostics() {
		out = append(out, d.Kind)
	}
	return out
}

func requireInt(t *testing.T, want int64, v Value) {
	t.Helper()
	n, ok := AsInt(v)
	require.Truef(t, ok, "want int %d, got %s", want, Describe(v))
	require.Truef(t, n.IsInt64() && n.Int64() == want, "want %d, got %s", want, n)
}

func requireStr(t *testing.T, want string, v Value) {
	t.Helper()
	s, ok := AsStr(v)
	require.Truef(t, ok, "want str %q, got %s", want, Describe(v))
	require.Equal(t, want, s)
}

func ints(ns ...int64) []Value {
	out := make([]Value, len(ns))
	for i, n := range ns {
		out[i] = NewInt(n)
	}
	return out
}

func builtin(t *testing.T, name string) Value {
	t.Helper()
	v, ok := Builtins().Lookup(name)
	require.Truef(t, ok, "builtin %s", name)
	return v
}

func callBuiltin(t *testing.T, ctx *CallerContext, name string, args ...Value) Value {
	t.Helper()
	return Call(ctx, builtin(t, name), args, nil)
}
