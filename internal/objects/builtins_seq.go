package objects

import (
	"fmt"
	"math/big"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/strictmod/internal/ir"
)

// List is the payload of list and tuple instances. When Opaque is set the
// elements after Items are unknown, and so is the length.
type List struct {
	Items  []Value
	Opaque bool
	born   uint64
}

// NewListPayload returns a list or tuple payload holding items.
func NewListPayload(items []Value, opaque bool) *List {
	return &List{Items: items, Opaque: opaque, born: nextSerial()}
}

func (l *List) snapshot() any {
	return &List{Items: slices.Clone(l.Items), Opaque: l.Opaque}
}

func (l *List) restore(state any) {
	s := state.(*List)
	l.Items = slices.Clone(s.Items)
	l.Opaque = s.Opaque
}

// merge keeps the elements both states agree on. Lists that differ become
// opaque after their common prefix.
func (l *List) merge(a, b any) any {
	x, y := a.(*List), b.(*List)
	n := 0
	for n < len(x.Items) && n < len(y.Items) && Same(x.Items[n], y.Items[n]) {
		n++
	}
	if !x.Opaque && !y.Opaque && n == len(x.Items) && n == len(y.Items) {
		return x
	}
	return &List{Items: slices.Clone(x.Items[:n]), Opaque: true}
}

func (l *List) widen(state any, _ map[string]bool) (any, bool) {
	s := state.(*List)
	return &List{Opaque: true}, len(s.Items) > 0 || !s.Opaque
}

func (l *List) serial() uint64 { return l.born }

// Range is the payload of range objects.
type Range struct {
	Start, Stop, Step int64
}

// Len returns the number of elements.
func (r *Range) Len() int64 {
	switch {
	case r.Step > 0 && r.Start < r.Stop:
		return (r.Stop-r.Start-1)/r.Step + 1
	case r.Step < 0 && r.Start > r.Stop:
		return (r.Start-r.Stop-1)/(-r.Step) + 1
	}
	return 0
}

func (r *Range) at(i int64) int64 { return r.Start + i*r.Step }

type rangeIter struct {
	r    *Range
	i, n int64
}

func (it *rangeIter) Next() (Value, bool) {
	if it.i >= it.n {
		return nil, false
	}
	v := NewInt(it.r.at(it.i))
	it.i++
	return v, true
}

func (r *Range) iter() Iterator { return &rangeIter{r: r, n: r.Len()} }

// Slice is the payload of slice objects. Bounds are None or integers.
type Slice struct {
	Start, Stop, Step Value
}

// indexOf converts v to an integer through __index__. known is false when v
// is Unknown; ok is false when an exception was raised.
func indexOf(ctx *CallerContext, v Value, what string) (n int64, ok bool) {
	if IsUnknown(v) {
		return 0, false
	}
	if b, isInt := AsInt(v); isInt {
		if !b.IsInt64() {
			ctx.Raise(builtins.IndexError, "cannot fit 'int' into an index-sized integer")
			return 0, false
		}
		return b.Int64(), true
	}
	if fn, _, found := v.Type().Lookup("__index__"); found {
		res := callSpecial(ctx, fn, v, nil, nil)
		if b, isInt := AsInt(res); isInt && b.IsInt64() {
			return b.Int64(), true
		}
		if !IsUnknown(res) {
			ctx.Raise(builtins.TypeError, "__index__ returned non-int (type %s)", res.Type().name)
		}
		return 0, false
	}
	ctx.Raise(builtins.TypeError, "%s", fmt.Sprintf(what, v.Type().name))
	return 0, false
}

// seqIndex resolves a subscript against a sequence of the given length.
func seqIndex(ctx *CallerContext, idx Value, length int, typeName string) (int, bool) {
	n, ok := indexOf(ctx, idx, typeName+" indices must be integers or slices, not %s")
	if !ok {
		return 0, false
	}
	if n < 0 {
		n += int64(length)
	}
	if n < 0 || n >= int64(length) {
		ctx.Raise(builtins.IndexError, "%s index out of range", typeName)
		return 0, false
	}
	return int(n), true
}

func asSlice(v Value) (*Slice, bool) {
	inst, ok := v.(*Instance)
	if !ok {
		return nil, false
	}
	s, ok := inst.payload.(*Slice)
	return s, ok
}

// sliceIndices resolves a slice against a sequence length.
func sliceIndices(ctx *CallerContext, s *Slice, length int) (start, stop, step int, ok bool) {
	const what = "slice indices must be integers or None or have an __index__ method"
	bound := func(v Value) (int64, bool, bool) {
		if v == builtins.None {
			return 0, true, true
		}
		if IsUnknown(v) {
			ctx.Opaque("slice with an unknown bound")
			return 0, false, false
		}
		n, ok := indexOf(ctx, v, what+"%.0s")
		return n, false, ok
	}
	st, stepNone, ok := bound(s.Step)
	if !ok {
		return 0, 0, 0, false
	}
	if stepNone {
		st = 1
	}
	if st == 0 {
		ctx.Raise(builtins.ValueError, "slice step cannot be zero")
		return 0, 0, 0, false
	}
	n := int64(length)
	clamp := func(v Value, def int64) (int64, bool) {
		x, none, ok := bound(v)
		if !ok {
			return 0, false
		}
		if none {
			return def, true
		}
		if x < 0 {
			x += n
			if x < 0 {
				if st < 0 {
					return -1, true
				}
				return 0, true
			}
		} else if x >= n {
			if st < 0 {
				return n - 1, true
			}
			return n, true
		}
		return x, true
	}
	var defStart, defStop int64 = 0, n
	if st < 0 {
		defStart, defStop = n-1, -1
	}
	a, ok := clamp(s.Start, defStart)
	if !ok {
		return 0, 0, 0, false
	}
	b, ok := clamp(s.Stop, defStop)
	if !ok {
		return 0, 0, 0, false
	}
	return int(a), int(b), int(st), true
}

// sliceSelect returns the positions a slice selects.
func sliceSelect(start, stop, step int) []int {
	var out []int
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, i)
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, i)
		}
	}
	return out
}

func selectItems[T any](items []T, start, stop, step int) []T {
	idx := sliceSelect(start, stop, step)
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}

func listOf(v Value) *List {
	return v.(*Instance).payload.(*List)
}

// checkSize reports a LimitError when a container would exceed
// MaxContainerSize.
func checkSize(ctx *CallerContext, n int64) bool {
	if limit := int64(ctx.Module.limits.MaxContainerSize); n > limit {
		ctx.Error(ir.KindLimitError, "container of %d elements exceeds limit %d", n, limit)
		return false
	}
	return true
}

// checkRepeat reports a LimitError when n copies of unit elements would
// exceed MaxContainerSize. The product is never formed, so it cannot wrap.
func checkRepeat(ctx *CallerContext, n int64, unit int) bool {
	limit := int64(ctx.Module.limits.MaxContainerSize)
	if unit > 0 && n > limit/int64(unit) {
		ctx.Error(ir.KindLimitError, "repeating %d elements %d times exceeds limit %d", unit, n, limit)
		return false
	}
	return true
}

// repeatCount reads the int operand of sequence repetition.
func repeatCount(v Value) (int64, bool) {
	n, ok := AsInt(v)
	if !ok {
		return 0, false
	}
	if n.Sign() < 0 {
		return 0, true
	}
	if !n.IsInt64() {
		return 1 << 62, true
	}
	return n.Int64(), true
}

// seqEqual compares two item slices elementwise with ==.
func seqCompare(ctx *CallerContext, op CmpOp, x, y []Value) Value {
	n := min(len(x), len(y))
	for i := 0; i < n; i++ {
		if x[i] == y[i] {
			continue
		}
		eq := Truth(ctx, Compare(ctx, x[i], y[i], Eq))
		if IsUnknown(eq) {
			return eq
		}
		if eq == builtins.True {
			continue
		}
		switch op {
		case Eq:
			return builtins.False
		case NotEq:
			return builtins.True
		}
		return Compare(ctx, x[i], y[i], op)
	}
	return cmpResult(op, len(x)-len(y))
}

func (r *Registry) setupSequence(t *Type, mutable bool) {
	name := t.name
	r.def(t, "__len__", func(ctx *CallerContext, args []Value, names []string) Value {
		l := listOf(args[0])
		if l.Opaque {
			ctx.Opaque("length of an opaque %s", name)
			return NewUnknown("len")
		}
		return NewInt(int64(len(l.Items)))
	})
	r.def(t, "__getitem__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__getitem__", args, names, 2, 2)
		if !ok {
			return NewUnknown("item")
		}
		l := listOf(a[0])
		if IsUnknown(a[1]) {
			ctx.Opaque("%s subscript with an unknown index", name)
			return NewUnknown("item")
		}
		if s, ok := asSlice(a[1]); ok {
			if l.Opaque {
				ctx.Opaque("slice of an opaque %s", name)
				return &Instance{typ: t.solidBase(), payload: NewListPayload(nil, true)}
			}
			start, stop, step, ok := sliceIndices(ctx, s, len(l.Items))
			if !ok {
				return NewUnknown("slice")
			}
			return &Instance{typ: t.solidBase(), payload: NewListPayload(selectItems(l.Items, start, stop, step), false)}
		}
		if l.Opaque {
			if n, ok := indexOf(ctx, a[1], name+" indices must be integers or slices, not %s"); ok && n >= 0 && n < int64(len(l.Items)) {
				return l.Items[n]
			}
			ctx.Opaque("element of an opaque %s", name)
			return NewUnknown("item")
		}
		i, ok := seqIndex(ctx, a[1], len(l.Items), name)
		if !ok {
			return NewUnknown("item")
		}
		return l.Items[i]
	})
	r.def(t, "__contains__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__contains__", args, names, 2, 2)
		if !ok {
			return NewUnknown("contains")
		}
		l := listOf(a[0])
		sawUnknown := l.Opaque
		for _, item := range slices.Clone(l.Items) {
			if item == a[1] {
				return r.True
			}
			eq := Truth(ctx, Compare(ctx, item, a[1], Eq))
			if eq == r.True {
				return r.True
			}
			if IsUnknown(eq) {
				sawUnknown = true
			}
		}
		if sawUnknown {
			return NewUnknown("membership")
		}
		return r.False
	})
	r.unaryMethod(t, "__iter__", func(ctx *CallerContext, self Value) Value {
		l := listOf(self)
		return NewIterator(containerIter(slices.Clone(l.Items), l.Opaque))
	})
	r.unaryMethod(t, "__reversed__", func(ctx *CallerContext, self Value) Value {
		l := listOf(self)
		if l.Opaque {
			return NewIterator(containerIter(nil, true))
		}
		items := slices.Clone(l.Items)
		slices.Reverse(items)
		return NewIterator(containerIter(items, false))
	})
	r.binaryMethodsForward(t, Add, func(ctx *CallerContext, a, b Value) Value {
		if !b.Type().IsSubtype(t.solidBase()) {
			return r.NotImplemented
		}
		x, y := listOf(a), listOf(b)
		if !checkSize(ctx, int64(len(x.Items)+len(y.Items))) {
			return NewUnknown("concatenation")
		}
		items := append(slices.Clone(x.Items), y.Items...)
		if x.Opaque {
			items = slices.Clone(x.Items)
		}
		return &Instance{typ: t.solidBase(), payload: NewListPayload(items, x.Opaque || y.Opaque)}
	})
	repeat := func(ctx *CallerContext, a, b Value) Value {
		n, ok := repeatCount(b)
		if !ok {
			return r.NotImplemented
		}
		l := listOf(a)
		if !checkRepeat(ctx, n, max(len(l.Items), 1)) {
			return NewUnknown("repetition")
		}
		var items []Value
		for i := int64(0); i < n; i++ {
			items = append(items, l.Items...)
		}
		return &Instance{typ: t.solidBase(), payload: NewListPayload(items, l.Opaque && n > 0)}
	}
	r.binaryMethods(t, Mult, repeat)
	r.def(t, "__rmul__", func(ctx *CallerContext, args []Value, names []string) Value {
		if len(args) != 2 {
			return ctx.Raise(r.TypeError, "expected 1 argument, got %d", len(args)-1)
		}
		return repeat(ctx, args[0], args[1])
	})
	r.compareMethods(t, func(ctx *CallerContext, op CmpOp, a, b Value) Value {
		if !b.Type().IsSubtype(t.solidBase()) {
			return r.NotImplemented
		}
		x, y := listOf(a), listOf(b)
		if x.Opaque || y.Opaque {
			ctx.Opaque("comparison of an opaque %s", name)
			return NewUnknown("comparison")
		}
		return seqCompare(ctx, op, x.Items, y.Items)
	})
	r.def(t, "index", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "index", args, names, 2, 2)
		if !ok {
			return NewUnknown("index")
		}
		l := listOf(a[0])
		for i, item := range l.Items {
			eq := Truth(ctx, Compare(ctx, item, a[1], Eq))
			if IsUnknown(eq) {
				return eq
			}
			if eq == r.True {
				return NewInt(int64(i))
			}
		}
		if l.Opaque {
			ctx.Opaque("index in an opaque %s", name)
			return NewUnknown("index")
		}
		return ctx.Raise(r.ValueError, "%s.index(x): x not in %s", name, name)
	})
	r.def(t, "count", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "count", args, names, 2, 2)
		if !ok {
			return NewUnknown("count")
		}
		l := listOf(a[0])
		if l.Opaque {
			ctx.Opaque("count in an opaque %s", name)
			return NewUnknown("count")
		}
		n := int64(0)
		for _, item := range l.Items {
			eq := Truth(ctx, Compare(ctx, item, a[1], Eq))
			if IsUnknown(eq) {
				return eq
			}
			if eq == r.True {
				n++
			}
		}
		return NewInt(n)
	})
	open, close := "[", "]"
	if !mutable {
		open, close = "(", ")"
	}
	r.unaryMethod(t, "__repr__", func(ctx *CallerContext, self Value) Value {
		l := listOf(self)
		parts := make([]string, 0, len(l.Items)+1)
		for _, item := range l.Items {
			s, ok := AsStr(Repr(ctx, item))
			if !ok {
				return NewUnknown("repr")
			}
			parts = append(parts, s)
		}
		if l.Opaque {
			parts = append(parts, "...")
		}
		body := strings.Join(parts, ", ")
		if !mutable && len(parts) == 1 && !l.Opaque {
			body += ","
		}
		return NewStr(open + body + close)
	})
}

// binaryMethodsForward installs only the forward form of an operator.
func (r *Registry) binaryMethodsForward(t *Type, op BinaryOp, fn func(ctx *CallerContext, a, b Value) Value) {
	r.def(t, op.Dunder(), func(ctx *CallerContext, args []Value, names []string) Value {
		if len(args) != 2 {
			return ctx.Raise(r.TypeError, "expected 1 argument, got %d", len(args)-1)
		}
		return fn(ctx, args[0], args[1])
	})
}

func (r *Registry) setupList() {
	t := r.ListType
	r.setupSequence(t, true)
	t.dict.Set("__hash__", r.None)

	mut := func(ctx *CallerContext, self Value) *List {
		l := listOf(self)
		ctx.Module.mutate(l)
		return l
	}
	r.def(t, "__init__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "list", args, names, 1, 2)
		if !ok {
			return NewUnknown("list")
		}
		l := mut(ctx, a[0])
		l.Items, l.Opaque = nil, false
		if len(a) == 2 {
			l.Items, l.Opaque = materialize(ctx, a[1])
		}
		return r.None
	})
	r.def(t, "__setitem__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__setitem__", args, names, 3, 3)
		if !ok {
			return NewUnknown("setitem")
		}
		l := listOf(a[0])
		if IsUnknown(a[1]) || l.Opaque {
			ctx.Opaque("item assignment with an unknown position")
			l = mut(ctx, a[0])
			l.Items, l.Opaque = nil, true
			return r.None
		}
		if s, ok := asSlice(a[1]); ok {
			start, stop, step, ok := sliceIndices(ctx, s, len(l.Items))
			if !ok {
				return r.None
			}
			vals, opaque := materialize(ctx, a[2])
			l = mut(ctx, a[0])
			if step == 1 {
				stop = max(stop, start)
				items := slices.Clone(l.Items[:start])
				items = append(items, vals...)
				if opaque {
					l.Items, l.Opaque = items, true
					return r.None
				}
				l.Items = append(items, l.Items[stop:]...)
				return r.None
			}
			idx := sliceSelect(start, stop, step)
			if opaque || len(idx) != len(vals) {
				return ctx.Raise(r.ValueError, "attempt to assign sequence of size %d to extended slice of size %d", len(vals), len(idx))
			}
			for i, j := range idx {
				l.Items[j] = vals[i]
			}
			return r.None
		}
		i, ok := seqIndex(ctx, a[1], len(l.Items), "list assignment")
		if !ok {
			return r.None
		}
		mut(ctx, a[0]).Items[i] = a[2]
		return r.None
	})
	r.def(t, "__delitem__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__delitem__", args, names, 2, 2)
		if !ok {
			return NewUnknown("delitem")
		}
		l := listOf(a[0])
		if IsUnknown(a[1]) || l.Opaque {
			ctx.Opaque("item deletion with an unknown position")
			l = mut(ctx, a[0])
			l.Items, l.Opaque = nil, true
			return r.None
		}
		if s, ok := asSlice(a[1]); ok {
			start, stop, step, ok := sliceIndices(ctx, s, len(l.Items))
			if !ok {
				return r.None
			}
			drop := make(map[int]bool)
			for _, j := range sliceSelect(start, stop, step) {
				drop[j] = true
			}
			l = mut(ctx, a[0])
			kept := l.Items[:0:0]
			for j, item := range l.Items {
				if !drop[j] {
					kept = append(kept, item)
				}
			}
			l.Items = kept
			return r.None
		}
		i, ok := seqIndex(ctx, a[1], len(l.Items), "list assignment")
		if !ok {
			return r.None
		}
		l = mut(ctx, a[0])
		l.Items = slices.Delete(slices.Clone(l.Items), i, i+1)
		return r.None
	})
	r.def(t, "append", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "append", args, names, 2, 2)
		if !ok {
			return NewUnknown("append")
		}
		l := mut(ctx, a[0])
		if l.Opaque {
			return r.None
		}
		if !checkSize(ctx, int64(len(l.Items)+1)) {
			l.Opaque = true
			return r.None
		}
		l.Items = append(l.Items, a[1])
		return r.None
	})
	extend := func(ctx *CallerContext, self, iterable Value) {
		vals, opaque := materialize(ctx, iterable)
		l := mut(ctx, self)
		if l.Opaque {
			return
		}
		if !checkSize(ctx, int64(len(l.Items)+len(vals))) {
			l.Opaque = true
			return
		}
		l.Items = append(l.Items, vals...)
		l.Opaque = opaque
	}
	r.def(t, "extend", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "extend", args, names, 2, 2)
		if !ok {
			return NewUnknown("extend")
		}
		extend(ctx, a[0], a[1])
		return r.None
	})
	r.def(t, "__iadd__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__iadd__", args, names, 2, 2)
		if !ok {
			return NewUnknown("+=")
		}
		extend(ctx, a[0], a[1])
		return a[0]
	})
	r.def(t, "__imul__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__imul__", args, names, 2, 2)
		if !ok {
			return NewUnknown("*=")
		}
		n, ok := repeatCount(a[1])
		if !ok {
			return r.NotImplemented
		}
		l := listOf(a[0])
		if !checkRepeat(ctx, n, max(len(l.Items), 1)) {
			mut(ctx, a[0]).Opaque = true
			return a[0]
		}
		var items []Value
		for i := int64(0); i < n; i++ {
			items = append(items, l.Items...)
		}
		mut(ctx, a[0]).Items = items
		return a[0]
	})
	r.def(t, "insert", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "insert", args, names, 3, 3)
		if !ok {
			return NewUnknown("insert")
		}
		l := listOf(a[0])
		n, ok := indexOf(ctx, a[1], "'%s' object cannot be interpreted as an integer")
		if !ok || l.Opaque {
			mut(ctx, a[0]).Opaque = true
			return r.None
		}
		size := int64(len(l.Items))
		if n < 0 {
			n = max(n+size, 0)
		}
		n = min(n, size)
		l = mut(ctx, a[0])
		l.Items = slices.Insert(slices.Clone(l.Items), int(n), a[2])
		return r.None
	})
	r.def(t, "pop", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "pop", args, names, 1, 2)
		if !ok {
			return NewUnknown("pop")
		}
		l := listOf(a[0])
		if l.Opaque {
			ctx.Opaque("pop from an opaque list")
			mut(ctx, a[0]).Items = nil
			return NewUnknown("popped item")
		}
		if len(l.Items) == 0 {
			return ctx.Raise(r.IndexError, "pop from empty list")
		}
		i := len(l.Items) - 1
		if len(a) == 2 {
			if i, ok = seqIndex(ctx, a[1], len(l.Items), "pop"); !ok {
				return NewUnknown("popped item")
			}
		}
		l = mut(ctx, a[0])
		v := l.Items[i]
		l.Items = slices.Delete(slices.Clone(l.Items), i, i+1)
		return v
	})
	r.def(t, "remove", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "remove", args, names, 2, 2)
		if !ok {
			return NewUnknown("remove")
		}
		l := listOf(a[0])
		for i, item := range l.Items {
			eq := Truth(ctx, Compare(ctx, item, a[1], Eq))
			if IsUnknown(eq) {
				l = mut(ctx, a[0])
				l.Items, l.Opaque = l.Items[:i:i], true
				return r.None
			}
			if eq == r.True {
				l = mut(ctx, a[0])
				l.Items = slices.Delete(slices.Clone(l.Items), i, i+1)
				return r.None
			}
		}
		if l.Opaque {
			ctx.Opaque("remove from an opaque list")
			return r.None
		}
		return ctx.Raise(r.ValueError, "list.remove(x): x not in list")
	})
	r.unaryMethod(t, "clear", func(ctx *CallerContext, self Value) Value {
		l := mut(ctx, self)
		l.Items, l.Opaque = nil, false
		return r.None
	})
	r.unaryMethod(t, "copy", func(ctx *CallerContext, self Value) Value {
		l := listOf(self)
		return &Instance{typ: r.ListType, payload: NewListPayload(slices.Clone(l.Items), l.Opaque)}
	})
	r.unaryMethod(t, "reverse", func(ctx *CallerContext, self Value) Value {
		l := mut(ctx, self)
		if l.Opaque {
			l.Items = nil
			return r.None
		}
		items := slices.Clone(l.Items)
		slices.Reverse(items)
		l.Items = items
		return r.None
	})
	r.def(t, "sort", func(ctx *CallerContext, args []Value, names []string) Value {
		if len(args)-len(names) > 1 {
			return ctx.Raise(r.TypeError, "sort() takes no positional arguments")
		}
		a, ok := bindArgs(ctx, "sort", args[1:], names, []string{"key", "reverse"}, 0)
		if !ok {
			return NewUnknown("sort")
		}
		l := listOf(args[0])
		sorted, ok := sortValues(ctx, l.Items, l.Opaque, noneToNil(orNone(a[0])), orNone(a[1]))
		l = mut(ctx, args[0])
		if !ok {
			l.Items, l.Opaque = nil, true
			return r.None
		}
		l.Items = sorted
		return r.None
	})
}

// sortValues sorts items stably by key, honouring reverse. It fails when
// an ordering is unknown.
func sortValues(ctx *CallerContext, items []Value, opaque bool, key, reverse Value) ([]Value, bool) {
	r := builtins
	if opaque {
		ctx.Opaque("sort of an opaque sequence")
		return nil, false
	}
	rev := false
	if reverse != r.None {
		t := Truth(ctx, reverse)
		if IsUnknown(t) {
			return nil, false
		}
		rev = t == r.True
	}
	keys := slices.Clone(items)
	if key != nil {
		for i, item := range items {
			keys[i] = Call(ctx, key, []Value{item}, nil)
			if IsUnknown(keys[i]) {
				return nil, false
			}
		}
	}
	inner, trap := ctx.WithTrap()
	failed := false
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		if failed {
			return false
		}
		a, b := keys[idx[i]], keys[idx[j]]
		if rev {
			a, b = b, a
		}
		lt := Truth(inner, Compare(inner, a, b, Lt))
		if trap.Caught() || IsUnknown(lt) {
			failed = true
			return false
		}
		return lt == r.True
	})
	if trap.Caught() {
		ctx.Reraise(trap)
		return nil, false
	}
	if failed {
		ctx.Opaque("ordering of unknown values")
		return nil, false
	}
	out := make([]Value, len(items))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out, true
}

func (r *Registry) setupTuple() {
	t := r.TupleType
	r.setupSequence(t, false)
	r.defStatic(t, "__new__", func(ctx *CallerContext, args []Value, names []string) Value {
		cls, ok := args[0].(*Type)
		if !ok || !cls.IsSubtype(r.TupleType) {
			return ctx.Raise(r.TypeError, "tuple.__new__(X): X is not a subtype of tuple")
		}
		a, ok := positional(ctx, "tuple", args[1:], names, 0, 1)
		if !ok {
			return NewUnknown("tuple")
		}
		l := NewListPayload(nil, false)
		if len(a) == 1 {
			if cls == r.TupleType && a[0].Type() == r.TupleType {
				return a[0]
			}
			l.Items, l.Opaque = materialize(ctx, a[0])
		}
		inst := cls.ConstructInstance()
		inst.payload = l
		return inst
	})
	r.unaryMethod(t, "__hash__", func(ctx *CallerContext, self Value) Value {
		l := listOf(self)
		if l.Opaque {
			return NewUnknown("hash")
		}
		h := big.NewInt(0x345678)
		for _, item := range l.Items {
			hv := Hash(ctx, item)
			n, ok := AsInt(hv)
			if !ok {
				return NewUnknown("hash")
			}
			h.Mul(h, big.NewInt(1000003))
			h.Xor(h, n)
			h.Mod(h, big.NewInt(1<<61-1))
		}
		return NewIntBig(h)
	})
}

func (r *Registry) setupRange() {
	t := r.RangeType
	rng := func(v Value) *Range { return v.(*Instance).payload.(*Range) }
	r.defStatic(t, "__new__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "range", args[1:], names, 1, 3)
		if !ok {
			return NewUnknown("range")
		}
		if anyUnknown(a...) {
			ctx.Opaque("range() with unknown bounds")
			return NewUnknown("range")
		}
		vals := make([]int64, len(a))
		for i, v := range a {
			n, ok := indexOf(ctx, v, "'%s' object cannot be interpreted as an integer")
			if !ok {
				return NewUnknown("range")
			}
			vals[i] = n
		}
		p := &Range{Step: 1}
		switch len(vals) {
		case 1:
			p.Stop = vals[0]
		case 2:
			p.Start, p.Stop = vals[0], vals[1]
		case 3:
			p.Start, p.Stop, p.Step = vals[0], vals[1], vals[2]
		}
		if p.Step == 0 {
			return ctx.Raise(r.ValueError, "range() arg 3 must not be zero")
		}
		return NewInstance(r.RangeType, p)
	})
	r.unaryMethod(t, "__len__", func(ctx *CallerContext, self Value) Value {
		return NewInt(rng(self).Len())
	})
	r.unaryMethod(t, "__iter__", func(ctx *CallerContext, self Value) Value {
		return NewIterator(rng(self).iter())
	})
	r.unaryMethod(t, "__reversed__", func(ctx *CallerContext, self Value) Value {
		p := rng(self)
		n := p.Len()
		if n == 0 {
			return NewIterator(&sliceIter{})
		}
		rev := &Range{Start: p.at(n - 1), Stop: p.Start - p.Step, Step: -p.Step}
		return NewIterator(rev.iter())
	})
	r.def(t, "__getitem__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__getitem__", args, names, 2, 2)
		if !ok {
			return NewUnknown("item")
		}
		p := rng(a[0])
		if IsUnknown(a[1]) {
			ctx.Opaque("range subscript with an unknown index")
			return NewUnknown("item")
		}
		n := p.Len()
		if s, ok := asSlice(a[1]); ok {
			start, stop, step, ok := sliceIndices(ctx, s, int(n))
			if !ok {
				return NewUnknown("slice")
			}
			return NewInstance(r.RangeType, &Range{Start: p.at(int64(start)), Stop: p.at(int64(stop)), Step: p.Step * int64(step)})
		}
		i, ok := seqIndex(ctx, a[1], int(n), "range object")
		if !ok {
			return NewUnknown("item")
		}
		return NewInt(p.at(int64(i)))
	})
	r.def(t, "__contains__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "__contains__", args, names, 2, 2)
		if !ok {
			return NewUnknown("contains")
		}
		p := rng(a[0])
		if IsUnknown(a[1]) {
			return NewUnknown("membership")
		}
		if b, ok := AsInt(a[1]); ok {
			if !b.IsInt64() {
				return r.False
			}
			x := b.Int64()
			n := p.Len()
			if n == 0 {
				return r.False
			}
			if (x-p.Start)%p.Step != 0 {
				return r.False
			}
			k := (x - p.Start) / p.Step
			return NewBool(k >= 0 && k < n)
		}
		for it := p.iter(); ; {
			v, ok := it.Next()
			if !ok {
				return r.False
			}
			if Truth(ctx, Compare(ctx, v, a[1], Eq)) == r.True {
				return r.True
			}
		}
	})
	r.compareMethods(t, func(ctx *CallerContext, op CmpOp, a, b Value) Value {
		if b.Type() != r.RangeType || (op != Eq && op != NotEq) {
			return r.NotImplemented
		}
		x, y := rng(a), rng(b)
		same := x.Len() == y.Len() && (x.Len() == 0 || (x.Start == y.Start && (x.Len() == 1 || x.Step == y.Step)))
		return NewBool(same == (op == Eq))
	})
	r.unaryMethod(t, "__repr__", func(ctx *CallerContext, self Value) Value {
		return NewStr(Describe(self))
	})
	for _, field := range []string{"start", "stop", "step"} {
		r.defGetSet(t, field, func(ctx *CallerContext, obj Value) Value {
			p := rng(obj)
			switch field {
			case "start":
				return NewInt(p.Start)
			case "stop":
				return NewInt(p.Stop)
			}
			return NewInt(p.Step)
		}, nil)
	}
}

func (r *Registry) setupSlice() {
	t := r.SliceType
	t.dict.Set("__hash__", r.None)
	r.defStatic(t, "__new__", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "slice", args[1:], names, 1, 3)
		if !ok {
			return NewUnknown("slice")
		}
		s := &Slice{Start: r.None, Stop: r.None, Step: r.None}
		switch len(a) {
		case 1:
			s.Stop = a[0]
		case 2:
			s.Start, s.Stop = a[0], a[1]
		case 3:
			s.Start, s.Stop, s.Step = a[0], a[1], a[2]
		}
		return NewInstance(r.SliceType, s)
	})
	r.defGetSet(t, "start", func(ctx *CallerContext, obj Value) Value { return obj.(*Instance).payload.(*Slice).Start }, nil)
	r.defGetSet(t, "stop", func(ctx *CallerContext, obj Value) Value { return obj.(*Instance).payload.(*Slice).Stop }, nil)
	r.defGetSet(t, "step", func(ctx *CallerContext, obj Value) Value { return obj.(*Instance).payload.(*Slice).Step }, nil)
	r.def(t, "indices", func(ctx *CallerContext, args []Value, names []string) Value {
		a, ok := positional(ctx, "indices", args, names, 2, 2)
		if !ok {
			return NewUnknown("indices")
		}
		n, ok := indexOf(ctx, a[1], "'%s' object cannot be interpreted as an integer")
		if !ok {
			return NewUnknown("indices")
		}
		start, stop, step, ok := sliceIndices(ctx, a[0].(*Instance).payload.(*Slice), int(n))
		if !ok {
			return NewUnknown("indices")
		}
		return NewTuple([]Value{NewInt(int64(start)), NewInt(int64(stop)), NewInt(int64(step))})
	})
	r.unaryMethod(t, "__repr__", func(ctx *CallerContext, self Value) Value {
		return NewStr(Describe(self))
	})
}

// NewSlice returns a slice object; nil bounds are None.
func NewSlice(start, stop, step Value) *Instance {
	return NewInstance(builtins.SliceType, &Slice{Start: orNone(start), Stop: orNone(stop), Step: orNone(step)})
}
