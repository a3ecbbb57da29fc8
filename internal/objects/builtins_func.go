package objects

import (
	"math"
	"math/big"
	"strings"
	"unicode"
)

func (r *Registry) setupFunctions() {
	for _, t := range []*Type{
		r.ObjectType, r.TypeType, r.IntType, r.BoolType, r.FloatType, r.StrType,
		r.BytesType, r.ListType, r.TupleType, r.DictType, r.SetType, r.RangeType,
		r.SliceType, r.StaticMethodType, r.ClassMethodType, r.PropertyType, r.SuperType,
	} {
		r.names.Set(t.name, t)
	}
	for _, t := range r.types {
		if t.IsSubtype(r.BaseException) {
			r.names.Set(t.name, t)
		}
	}
	r.names.Set("None", r.None)
	r.names.Set("True", r.True)
	r.names.Set("False", r.False)
	r.names.Set("NotImplemented", r.NotImplemented)
	r.names.Set("Ellipsis", r.Ellipsis)
	r.names.Set("__debug__", r.True)

	r.defFunc("len", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "len", args, names, 1, 1)
		if !ok {
			return NewUnknown("len")
		}
		return Len(ctx, a[0])
	})
	r.defFunc("repr", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "repr", args, names, 1, 1)
		if !ok {
			return NewUnknown("repr")
		}
		return Repr(ctx, a[0])
	})
	r.defFunc("ascii", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "ascii", args, names, 1, 1)
		if !ok {
			return NewUnknown("ascii")
		}
		s, ok := AsStr(Repr(ctx, a[0]))
		if !ok {
			return NewUnknown("ascii")
		}
		return NewStr(asciiEscape(s))
	})
	r.defFunc("format", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "format", args, names, 1, 2)
		if !ok {
			return NewUnknown("format")
		}
		spec := ""
		if len(a) == 2 {
			if spec, ok = strArg(ctx, a[1], "format"); !ok {
				return NewUnknown("format")
			}
		}
		return Format(ctx, a[0], spec)
	})
	r.defFunc("hash", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "hash", args, names, 1, 1)
		if !ok {
			return NewUnknown("hash")
		}
		return Hash(ctx, a[0])
	})
	r.defFunc("isinstance", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "isinstance", args, names, 2, 2)
		if !ok {
			return NewUnknown("isinstance")
		}
		return IsInstance(ctx, a[0], a[1])
	})
	r.defFunc("issubclass", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "issubclass", args, names, 2, 2)
		if !ok {
			return NewUnknown("issubclass")
		}
		return IsSubclass(ctx, a[0], a[1])
	})
	r.defFunc("callable", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "callable", args, names, 1, 1)
		if !ok {
			return NewUnknown("callable")
		}
		if IsUnknown(a[0]) {
			return NewUnknown("callable of unknown")
		}
		return NewBool(a[0].Type().has("__call__"))
	})

	// Attributes.
	attrName := func(ctx *CallerContext, fname string, v Value) (string, bool) {
		if s, ok := AsStr(v); ok {
			return s, true
		}
		if IsUnknown(v) {
			ctx.Opaque("%s() with an unknown attribute name", fname)
			return "", false
		}
		ctx.Raise(r.TypeError, "attribute name must be string, not '%s'", v.Type().name)
		return "", false
	}
	r.defFunc("getattr", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "getattr", args, names, 2, 3)
		if !ok {
			return NewUnknown("getattr")
		}
		key, ok := attrName(ctx, "getattr", a[1])
		if !ok {
			return NewUnknown("getattr")
		}
		if len(a) == 3 {
			return LoadAttrDefault(ctx, a[0], key, a[2])
		}
		return LoadAttr(ctx, a[0], key)
	})
	r.defFunc("hasattr", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "hasattr", args, names, 2, 2)
		if !ok {
			return NewUnknown("hasattr")
		}
		key, ok := attrName(ctx, "hasattr", a[1])
		if !ok {
			return NewUnknown("hasattr")
		}
		return HasAttr(ctx, a[0], key)
	})
	r.defFunc("setattr", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "setattr", args, names, 3, 3)
		if !ok {
			return NewUnknown("setattr")
		}
		key, ok := attrName(ctx, "setattr", a[1])
		if !ok {
			return r.None
		}
		StoreAttr(ctx, a[0], key, a[2])
		return r.None
	})
	r.defFunc("delattr", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "delattr", args, names, 2, 2)
		if !ok {
			return NewUnknown("delattr")
		}
		key, ok := attrName(ctx, "delattr", a[1])
		if !ok {
			return r.None
		}
		DelAttr(ctx, a[0], key)
		return r.None
	})

	// Iteration.
	r.defFunc("iter", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "iter", args, names, 1, 2)
		if !ok {
			return NewUnknown("iter")
		}
		if len(a) == 2 {
			ctx.Opaque("iter() with a sentinel")
			return NewUnknown("iterator")
		}
		return GetIter(ctx, a[0])
	})
	r.defFunc("next", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "next", args, names, 1, 2)
		if !ok {
			return NewUnknown("next")
		}
		if IsUnknown(a[0]) {
			ctx.Opaque("next() of an unknown iterator")
			return NewUnknown("next")
		}
		fn, _, ok := a[0].Type().Lookup("__next__")
		if !ok {
			return ctx.Raise(r.TypeError, "'%s' object is not an iterator", a[0].Type().name)
		}
		if len(a) == 1 {
			return callSpecial(ctx, fn, a[0], nil, nil)
		}
		inner, trap := ctx.WithTrap()
		v := callSpecial(inner, fn, a[0], nil, nil)
		if trap.Caught() {
			exc := trap.Exception()
			if !IsUnknown(exc) && excType(exc).IsSubtype(r.StopIteration) {
				return a[1]
			}
			ctx.Reraise(trap)
			return NewUnknown("next")
		}
		return v
	})
	r.defFunc("enumerate", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := bindArgs(ctx, "enumerate", args, names, []string{"iterable", "start"}, 1)
		if !ok {
			return NewUnknown("enumerate")
		}
		start, ok := intArg(ctx, a[1], 0)
		if !ok {
			return NewUnknown("enumerate")
		}
		items, opaque := materialize(ctx, a[0])
		out := make([]Value, len(items))
		for i, item := range items {
			out[i] = NewTuple([]Value{NewInt(start + int64(i)), item})
		}
		return NewIterator(containerIter(out, opaque))
	})
	r.defFunc("zip", func(ctx *CallerContext, args []Value, names []string) Value {
		pos, _ := splitArgs(args, names)
		strict := keywordArg(args, names, "strict")
		for _, n := range names {
			if n != "strict" {
				return ctx.Raise(r.TypeError, "zip() got an unexpected keyword argument '%s'", n)
			}
		}
		rows, opaque, ok := zipRows(ctx, pos, strict != nil && Truth(ctx, strict) == r.True)
		if !ok {
			return NewUnknown("zip")
		}
		out := make([]Value, len(rows))
		for i, row := range rows {
			out[i] = NewTuple(row)
		}
		return NewIterator(containerIter(out, opaque))
	})
	r.defFunc("map", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "map", args, names, 2, -1)
		if !ok {
			return NewUnknown("map")
		}
		rows, opaque, ok := zipRows(ctx, a[1:], false)
		if !ok {
			return NewUnknown("map")
		}
		out := make([]Value, 0, len(rows))
		for _, row := range rows {
			out = append(out, Call(ctx, a[0], row, nil))
		}
		return NewIterator(containerIter(out, opaque))
	})
	r.defFunc("filter", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "filter", args, names, 2, 2)
		if !ok {
			return NewUnknown("filter")
		}
		items, opaque := materialize(ctx, a[1])
		var out []Value
		for _, item := range items {
			test := item
			if a[0] != r.None {
				test = Call(ctx, a[0], []Value{item}, nil)
			}
			keep := Truth(ctx, test)
			if IsUnknown(keep) {
				opaque = true
				break
			}
			if keep == r.True {
				out = append(out, item)
			}
		}
		return NewIterator(containerIter(out, opaque))
	})
	r.defFunc("reversed", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "reversed", args, names, 1, 1)
		if !ok {
			return NewUnknown("reversed")
		}
		seq := a[0]
		if IsUnknown(seq) {
			ctx.Opaque("reversed() of an unknown value")
			return NewUnknown("reversed")
		}
		if fn, _, ok := seq.Type().Lookup("__reversed__"); ok {
			return callSpecial(ctx, fn, seq, nil, nil)
		}
		if !seq.Type().has("__getitem__") || !seq.Type().has("__len__") {
			return ctx.Raise(r.TypeError, "'%s' object is not reversible", seq.Type().name)
		}
		n, ok := AsInt(Len(ctx, seq))
		if !ok {
			return NewUnknown("reversed")
		}
		if !n.IsInt64() || !checkSize(ctx, n.Int64()) {
			return NewUnknown("reversed")
		}
		out := make([]Value, 0, n.Int64())
		for i := n.Int64() - 1; i >= 0; i-- {
			out = append(out, GetItem(ctx, seq, NewInt(i)))
		}
		return NewIterator(containerIter(out, false))
	})
	r.defFunc("sorted", func(ctx *CallerContext, args []Value, names []string) Value {
		pos, _ := splitArgs(args, names)
		if len(pos) != 1 {
			return ctx.Raise(r.TypeError, "sorted expected 1 argument, got %d", len(pos))
		}
		a, ok := bindArgs(ctx, "sorted", args[1:], names, []string{"key", "reverse"}, 0)
		if !ok {
			return NewUnknown("sorted")
		}
		items, opaque := materialize(ctx, pos[0])
		out, ok := sortValues(ctx, items, opaque, noneToNil(orNone(a[0])), orNone(a[1]))
		if !ok {
			return NewOpaqueList(nil)
		}
		return NewList(out)
	})
	r.defFunc("any", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "any", args, names, 1, 1)
		if !ok {
			return NewUnknown("any")
		}
		return anyAll(ctx, a[0], true)
	})
	r.defFunc("all", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "all", args, names, 1, 1)
		if !ok {
			return NewUnknown("all")
		}
		return anyAll(ctx, a[0], false)
	})
	r.defFunc("sum", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := bindArgs(ctx, "sum", args, names, []string{"iterable", "start"}, 1)
		if !ok {
			return NewUnknown("sum")
		}
		acc := Value(NewInt(0))
		if a[1] != nil {
			if _, isStr := AsStr(a[1]); isStr {
				return ctx.Raise(r.TypeError, "sum() can't sum strings [use ''.join(seq) instead]")
			}
			acc = a[1]
		}
		items, opaque := materialize(ctx, a[0])
		if opaque {
			ctx.Opaque("sum() over an opaque iterable")
			return NewUnknown("sum")
		}
		for _, item := range items {
			acc = BinaryOperation(ctx, acc, item, Add)
			if IsUnknown(acc) {
				return acc
			}
		}
		return acc
	})
	minMax := func(name string, op CmpOp) {
		r.defFunc(name, func(ctx *CallerContext, args []Value, names []string) Value {
			return minMaxCall(ctx, name, op, args, names)
		})
	}
	minMax("min", Lt)
	minMax("max", Gt)

	// Numbers and characters.
	r.defFunc("abs", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "abs", args, names, 1, 1)
		if !ok {
			return NewUnknown("abs")
		}
		if IsUnknown(a[0]) {
			ctx.Opaque("abs() of an unknown value")
			return NewUnknown("abs")
		}
		fn, _, ok := a[0].Type().Lookup("__abs__")
		if !ok {
			return ctx.Raise(r.TypeError, "bad operand type for abs(): '%s'", a[0].Type().name)
		}
		return callSpecial(ctx, fn, a[0], nil, nil)
	})
	r.defFunc("divmod", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "divmod", args, names, 2, 2)
		if !ok {
			return NewUnknown("divmod")
		}
		q := BinaryOperation(ctx, a[0], a[1], FloorDiv)
		if IsUnknown(q) {
			return q
		}
		m := BinaryOperation(ctx, a[0], a[1], Mod)
		if IsUnknown(m) {
			return m
		}
		return NewTuple([]Value{q, m})
	})
	r.defFunc("pow", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := bindArgs(ctx, "pow", args, names, []string{"base", "exp", "mod"}, 2)
		if !ok {
			return NewUnknown("pow")
		}
		if a[2] == nil || a[2] == r.None {
			return BinaryOperation(ctx, a[0], a[1], Pow)
		}
		if anyUnknown(a...) {
			ctx.Opaque("pow() with unknown operands")
			return NewUnknown("pow")
		}
		x, ok1 := AsInt(a[0])
		y, ok2 := AsInt(a[1])
		m, ok3 := AsInt(a[2])
		if !ok1 || !ok2 || !ok3 {
			return ctx.Raise(r.TypeError, "pow() 3rd argument not allowed unless all arguments are integers")
		}
		if m.Sign() == 0 {
			return ctx.Raise(r.ValueError, "pow() 3rd argument cannot be 0")
		}
		if y.Sign() < 0 {
			inv := new(big.Int).ModInverse(x, new(big.Int).Abs(m))
			if inv == nil {
				return ctx.Raise(r.ValueError, "base is not invertible for the given modulus")
			}
			x, y = inv, new(big.Int).Neg(y)
		}
		res := new(big.Int).Exp(x, y, new(big.Int).Abs(m))
		if m.Sign() < 0 && res.Sign() != 0 {
			res.Add(res, m)
		}
		return NewIntBig(res)
	})
	r.defFunc("round", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := bindArgs(ctx, "round", args, names, []string{"number", "ndigits"}, 1)
		if !ok {
			return NewUnknown("round")
		}
		return roundValue(ctx, a[0], a[1])
	})
	r.defFunc("chr", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "chr", args, names, 1, 1)
		if !ok {
			return NewUnknown("chr")
		}
		n, ok := indexOf(ctx, a[0], "'%s' object cannot be interpreted as an integer")
		if !ok {
			return NewUnknown("chr")
		}
		if n < 0 || n > unicode.MaxRune {
			return ctx.Raise(r.ValueError, "chr() arg not in range(0x110000)")
		}
		return NewStr(string(rune(n)))
	})
	r.defFunc("ord", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "ord", args, names, 1, 1)
		if !ok {
			return NewUnknown("ord")
		}
		if b, ok := AsBytes(a[0]); ok {
			if len(b) != 1 {
				return ctx.Raise(r.TypeError, "ord() expected a character, but string of length %d found", len(b))
			}
			return NewInt(int64(b[0]))
		}
		s, ok := AsStr(a[0])
		if !ok {
			if IsUnknown(a[0]) {
				return NewUnknown("ord")
			}
			return ctx.Raise(r.TypeError, "ord() expected string of length 1, but %s found", a[0].Type().name)
		}
		runes := []rune(s)
		if len(runes) != 1 {
			return ctx.Raise(r.TypeError, "ord() expected a character, but string of length %d found", len(runes))
		}
		return NewInt(int64(runes[0]))
	})
	radix := func(name string, verb byte) {
		r.defFunc(name, func(ctx *CallerContext, args []Value, names []string) Value {
			a, ok := positional(ctx, name, args, names, 1, 1)
			if !ok {
				return NewUnknown("%s", name)
			}
			n, ok := indexOf(ctx, a[0], "'%s' object cannot be interpreted as an integer")
			if !ok {
				return NewUnknown("%s", name)
			}
			s, _ := formatInt(big.NewInt(n), formatSpec{alt: true, verb: verb, precision: -1})
			return NewStr(s)
		})
	}
	radix("bin", 'b')
	radix("oct", 'o')
	radix("hex", 'x')

	// Effects outside the module, or results that vary between runs.
	r.defEffect("print", func(ctx *CallerContext, args []Value, names []string) Value { return r.None })
	r.defEffect("breakpoint", func(ctx *CallerContext, args []Value, names []string) Value { return r.None })
	r.defEffect("help", func(ctx *CallerContext, args []Value, names []string) Value { return r.None })
	for _, name := range []string{"open", "input", "exec", "eval", "compile", "id", "locals", "__import__", "exit", "quit"} {
		r.defEffect(name, func(ctx *CallerContext, args []Value, names []string) Value {
			return NewUnknown("result of %s()", name)
		})
	}
	r.defEffect("globals", func(ctx *CallerContext, args []Value, names []string) Value {
		return newDictFromNamespace(ctx.Module.Globals)
	})
	r.defEffect("vars", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "vars", args, names, 0, 1)
		if !ok || len(a) == 0 {
			return NewUnknown("vars")
		}
		return LoadAttr(ctx, a[0], "__dict__")
	})
}

// IsInstance evaluates isinstance(obj, cls). cls may be a tuple of
// classes.
func IsInstance(ctx *CallerContext, obj, cls Value) Value {
	r := builtins
	if IsUnknown(cls) {
		ctx.Opaque("isinstance() against an unknown class")
		return NewUnknown("isinstance")
	}
	if items, ok := tupleItems(cls); ok {
		return anyOf(ctx, items, func(c Value) Value { return IsInstance(ctx, obj, c) })
	}
	t, ok := cls.(*Type)
	if !ok {
		if cls.Type().has("__instancecheck__") {
			return Truth(ctx, CallMethod(ctx, cls, "__instancecheck__", obj))
		}
		return ctx.Raise(r.TypeError, "isinstance() arg 2 must be a type, a tuple of types, or a union")
	}
	if IsUnknown(obj) {
		ctx.Opaque("isinstance() of an unknown value")
		return NewUnknown("isinstance")
	}
	if obj.Type() == t {
		return r.True
	}
	fn, _, ok := t.meta.Lookup("__instancecheck__")
	if !ok {
		return NewBool(obj.Type().IsSubtype(t))
	}
	return Truth(ctx, callSpecial(ctx, fn, t, []Value{obj}, nil))
}

// IsSubclass evaluates issubclass(sub, cls).
func IsSubclass(ctx *CallerContext, sub, cls Value) Value {
	r := builtins
	if IsUnknown(cls) || IsUnknown(sub) {
		ctx.Opaque("issubclass() with an unknown class")
		return NewUnknown("issubclass")
	}
	if items, ok := tupleItems(cls); ok {
		return anyOf(ctx, items, func(c Value) Value { return IsSubclass(ctx, sub, c) })
	}
	t, ok := cls.(*Type)
	if !ok {
		return ctx.Raise(r.TypeError, "issubclass() arg 2 must be a class, a tuple of classes, or a union")
	}
	if _, ok := sub.(*Type); !ok {
		return ctx.Raise(r.TypeError, "issubclass() arg 1 must be a class")
	}
	fn, _, ok := t.meta.Lookup("__subclasscheck__")
	if !ok {
		return NewBool(sub.(*Type).IsSubtype(t))
	}
	return Truth(ctx, callSpecial(ctx, fn, t, []Value{sub}, nil))
}

// anyOf is true if any check is true, Unknown if none is true and some is
// unknown.
func anyOf(ctx *CallerContext, items []Value, check func(Value) Value) Value {
	unknown := false
	for _, item := range items {
		res := check(item)
		if res == builtins.True {
			return res
		}
		if IsUnknown(res) {
			unknown = true
		}
	}
	if unknown {
		return NewUnknown("type check")
	}
	return builtins.False
}

// GetIter evaluates iter(v) and returns an iterator object.
func GetIter(ctx *CallerContext, v Value) Value {
	r := builtins
	if IsUnknown(v) {
		ctx.Opaque("iter() of an unknown value")
		return NewUnknown("iterator")
	}
	t := v.Type()
	if fn, _, ok := t.Lookup("__iter__"); ok && fn != r.None {
		it := callSpecial(ctx, fn, v, nil, nil)
		if IsUnknown(it) {
			return it
		}
		if !it.Type().has("__next__") {
			return ctx.Raise(r.TypeError, "iter() returned non-iterator of type '%s'", it.Type().name)
		}
		return it
	}
	if fn, _, ok := t.Lookup("__getitem__"); ok && fn != r.None {
		return NewIterator(&boundedIter{ctx: ctx, inner: &sequenceIter{ctx: ctx, obj: v, getitem: fn}, limit: ctx.Module.limits.MaxElements})
	}
	return ctx.Raise(r.TypeError, "'%s' object is not iterable", t.name)
}

// zipRows materializes iterables in lockstep. The rows stop at the
// shortest iterable; opaque is set when an opaque iterable might have
// ended earlier or later than what is known.
func zipRows(ctx *CallerContext, iterables []Value, strict bool) ([][]Value, bool, bool) {
	if len(iterables) == 0 {
		return nil, false, true
	}
	cols := make([][]Value, len(iterables))
	n, known := math.MaxInt, math.MaxInt
	for i, it := range iterables {
		items, opaque := materialize(ctx, it)
		cols[i] = items
		n = min(n, len(items))
		if !opaque {
			known = min(known, len(items))
		}
	}
	if strict && known != math.MaxInt {
		for i, col := range cols {
			if len(col) != known {
				ctx.Raise(builtins.ValueError, "zip() argument %d is shorter than argument 1", i+1)
				return nil, false, false
			}
		}
	}
	rows := make([][]Value, n)
	for j := range rows {
		row := make([]Value, len(cols))
		for i := range cols {
			row[i] = cols[i][j]
		}
		rows[j] = row
	}
	return rows, n < known, true
}

func anyAll(ctx *CallerContext, iterable Value, want bool) Value {
	r := builtins
	unknown := false
	it := Iter(ctx, iterable)
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		if isTail(v) {
			unknown = true
			break
		}
		truth := Truth(ctx, v)
		if IsUnknown(truth) {
			unknown = true
			continue
		}
		if (truth == r.True) == want {
			return NewBool(want)
		}
	}
	if unknown {
		return NewUnknown("any/all")
	}
	return NewBool(!want)
}

func minMaxCall(ctx *CallerContext, name string, op CmpOp, args []Value, names []string) Value {
	r := builtins
	pos, _ := splitArgs(args, names)
	key := keywordArg(args, names, "key")
	def := keywordArg(args, names, "default")
	for _, n := range names {
		if n != "key" && n != "default" {
			return ctx.Raise(r.TypeError, "%s() got an unexpected keyword argument '%s'", name, n)
		}
	}
	var items []Value
	opaque := false
	switch len(pos) {
	case 0:
		return ctx.Raise(r.TypeError, "%s expected at least 1 argument, got 0", name)
	case 1:
		items, opaque = materialize(ctx, pos[0])
	default:
		if def != nil {
			return ctx.Raise(r.TypeError, "Cannot specify a default for %s() with multiple positional arguments", name)
		}
		items = pos
	}
	if opaque {
		ctx.Opaque("%s() over an opaque iterable", name)
		return NewUnknown("%s", name)
	}
	if len(items) == 0 {
		if def != nil {
			return def
		}
		return ctx.Raise(r.ValueError, "%s() iterable argument is empty", name)
	}
	if key == r.None {
		key = nil
	}
	best := items[0]
	bestKey := best
	if key != nil {
		bestKey = Call(ctx, key, []Value{best}, nil)
	}
	for _, item := range items[1:] {
		k := item
		if key != nil {
			k = Call(ctx, key, []Value{item}, nil)
		}
		better := Truth(ctx, Compare(ctx, k, bestKey, op))
		if IsUnknown(better) {
			return better
		}
		if better == r.True {
			best, bestKey = item, k
		}
	}
	return best
}

func roundValue(ctx *CallerContext, x, ndigits Value) Value {
	r := builtins
	if IsUnknown(x) || (ndigits != nil && IsUnknown(ndigits)) {
		ctx.Opaque("round() of an unknown value")
		return NewUnknown("round")
	}
	if ndigits == r.None {
		ndigits = nil
	}
	switch x.Type().solidBase() {
	case r.IntType:
		n, _ := AsInt(x)
		if ndigits == nil {
			return NewIntBig(n)
		}
		d, ok := indexOf(ctx, ndigits, "'%s' object cannot be interpreted as an integer")
		if !ok {
			return NewUnknown("round")
		}
		if d >= 0 {
			return NewIntBig(n)
		}
		if -d > 4096 {
			return NewInt(0)
		}
		pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(-d), nil)
		q, m := floorDivMod(n, pow)
		twice := new(big.Int).Lsh(m, 1)
		if c := twice.Cmp(pow); c > 0 || (c == 0 && q.Bit(0) == 1) {
			q.Add(q, big.NewInt(1))
		}
		return NewIntBig(q.Mul(q, pow))
	case r.FloatType:
		f, _ := AsFloat(x)
		if ndigits == nil {
			if math.IsInf(f, 0) {
				return ctx.Raise(r.OverflowError, "cannot convert float infinity to integer")
			}
			if math.IsNaN(f) {
				return ctx.Raise(r.ValueError, "cannot convert float NaN to integer")
			}
			n, _ := big.NewFloat(math.RoundToEven(f)).Int(nil)
			return NewIntBig(n)
		}
		d, ok := indexOf(ctx, ndigits, "'%s' object cannot be interpreted as an integer")
		if !ok {
			return NewUnknown("round")
		}
		if math.IsInf(f, 0) || math.IsNaN(f) || d > 300 {
			return NewFloat(f)
		}
		if d < -308 {
			return NewFloat(math.Copysign(0, f))
		}
		p := math.Pow(10, float64(d))
		return NewFloat(math.RoundToEven(f*p) / p)
	}
	fn, _, ok := x.Type().Lookup("__round__")
	if !ok {
		return ctx.Raise(r.TypeError, "type %s doesn't define __round__ method", x.Type().name)
	}
	var args []Value
	if ndigits != nil {
		args = []Value{ndigits}
	}
	return callSpecial(ctx, fn, x, args, nil)
}

func asciiEscape(s string) string {
	var sb strings.Builder
	for _, c := range s {
		switch {
		case c < 0x80:
			sb.WriteRune(c)
		case c <= 0xff:
			sb.WriteString(`\x`)
			sb.WriteString(hexDigits(int64(c), 2))
		case c <= 0xffff:
			sb.WriteString(`\u`)
			sb.WriteString(hexDigits(int64(c), 4))
		default:
			sb.WriteString(`\U`)
			sb.WriteString(hexDigits(int64(c), 8))
		}
	}
	return sb.String()
}

func hexDigits(n int64, width int) string {
	s := big.NewInt(n).Text(16)
	return strings.Repeat("0", max(0, width-len(s))) + s
}
