package objects

import (
	"fmt"
	"math/big"
	"strings"
)

// describeDepth bounds how deep Describe renders nested containers.
const describeDepth = 4

// Describe renders v for diagnostics and test output. It never runs user
// code, so user-defined __repr__ methods are ignored.
func Describe(v Value) string {
	return describe(v, 0)
}

func describe(v Value, depth int) string {
	r := builtins
	switch v := v.(type) {
	case *Unknown:
		return "<unknown>"
	case *Type:
		return v.String()
	case notHandled:
		return "NotImplemented"
	case *Instance:
		switch v {
		case r.None:
			return "None"
		case r.NotImplemented:
			return "NotImplemented"
		case r.Ellipsis:
			return "Ellipsis"
		case r.True:
			return "True"
		case r.False:
			return "False"
		}
		if v.typ.IsSubtype(r.BaseException) {
			args, _ := exceptionArgs(v)
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = describe(a, depth+1)
			}
			return v.typ.name + "(" + strings.Join(parts, ", ") + ")"
		}
		return describePayload(v, depth)
	}
	return "?"
}

func describePayload(v *Instance, depth int) string {
	r := builtins
	switch p := v.payload.(type) {
	case *big.Int:
		return p.String()
	case float64:
		return formatFloat(p)
	case string:
		return pyQuote(p)
	case []byte:
		return bytesQuote(p)
	case *List:
		open, close := "[", "]"
		if v.typ.IsSubtype(r.TupleType) {
			open, close = "(", ")"
		}
		if depth >= describeDepth {
			return open + "..." + close
		}
		parts := make([]string, 0, len(p.Items)+1)
		for _, item := range p.Items {
			parts = append(parts, describe(item, depth+1))
		}
		if p.Opaque {
			parts = append(parts, "...")
		}
		body := strings.Join(parts, ", ")
		if open == "(" && len(parts) == 1 && !p.Opaque {
			body += ","
		}
		return open + body + close
	case *Dict:
		isSet := v.typ.IsSubtype(r.SetType)
		if isSet && p.Len() == 0 && !p.Opaque {
			return "set()"
		}
		if depth >= describeDepth {
			return "{...}"
		}
		parts := make([]string, 0, p.Len()+1)
		for i, k := range p.keys {
			if isSet {
				parts = append(parts, describe(k, depth+1))
			} else {
				parts = append(parts, describe(k, depth+1)+": "+describe(p.vals[i], depth+1))
			}
		}
		if p.Opaque {
			parts = append(parts, "...")
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *Range:
		if p.Step == 1 {
			return fmt.Sprintf("range(%d, %d)", p.Start, p.Stop)
		}
		return fmt.Sprintf("range(%d, %d, %d)", p.Start, p.Stop, p.Step)
	case *Slice:
		return fmt.Sprintf("slice(%s, %s, %s)", describe(p.Start, depth+1), describe(p.Stop, depth+1), describe(p.Step, depth+1))
	case *ModuleInfo:
		return fmt.Sprintf("<module '%s'>", p.Name)
	case *BoundMethod:
		return fmt.Sprintf("<bound method %s of %s>", callableQualName(p.Func), describe(p.Self, depth+1))
	case *Wrapped:
		return fmt.Sprintf("<%s(%s)>", v.typ.name, describe(p.Func, depth+1))
	case *GetSet:
		return fmt.Sprintf("<attribute '%s' of '%s' objects>", p.name, p.owner.name)
	case *Super:
		return "<super object>"
	case *IterState:
		return "<iterator object>"
	case Callable:
		switch v.typ {
		case r.MethodDescriptorType:
			name := p.Name()
			owner, meth, _ := strings.Cut(name, ".")
			return fmt.Sprintf("<method '%s' of '%s' objects>", meth, owner)
		case r.BuiltinFunctionType:
			return fmt.Sprintf("<built-in function %s>", p.Name())
		}
		return fmt.Sprintf("<function %s>", p.Name())
	case *Property:
		return "<property object>"
	}
	return fmt.Sprintf("<%s object>", v.typ.QualName())
}

func callableQualName(fn Value) string {
	if inst, ok := fn.(*Instance); ok {
		if c, ok := inst.payload.(Callable); ok {
			return c.Name()
		}
	}
	return describe(fn, describeDepth)
}

// Repr evaluates repr(v) through __repr__. The result is a str or Unknown.
// A container already being rendered renders as an ellipsis.
func Repr(ctx *CallerContext, v Value) Value {
	if IsUnknown(v) {
		ctx.Opaque("repr of an unknown value")
		return NewUnknown("repr")
	}
	if inst, ok := v.(*Instance); ok {
		switch inst.payload.(type) {
		case *List, *Dict:
			m := ctx.Module
			if m.reprs[inst] {
				if _, isList := inst.payload.(*List); isList && !inst.typ.IsSubtype(builtins.TupleType) {
					return NewStr("[...]")
				}
				return NewStr("{...}")
			}
			if m.reprs == nil {
				m.reprs = make(map[*Instance]bool)
			}
			m.reprs[inst] = true
			defer delete(m.reprs, inst)
		}
	}
	return stringResult(ctx, v, "__repr__")
}

// Str evaluates str(v) through __str__.
func Str(ctx *CallerContext, v Value) Value {
	if IsUnknown(v) {
		ctx.Opaque("str of an unknown value")
		return NewUnknown("str")
	}
	if v.Type() == builtins.StrType {
		return v
	}
	return stringResult(ctx, v, "__str__")
}

func stringResult(ctx *CallerContext, v Value, name string) Value {
	fn, _, ok := v.Type().Lookup(name)
	if !ok {
		return NewStr(Describe(v))
	}
	res := callSpecial(ctx, fn, v, nil, nil)
	if IsUnknown(res) {
		return res
	}
	s, ok := AsStr(res)
	if !ok {
		return ctx.Raise(builtins.TypeError, "%s returned non-string (type %s)", name, res.Type().name)
	}
	if res.Type() != builtins.StrType {
		return NewStr(s)
	}
	return res
}
