package objects

// callBinary tries one operator method. The result is the sentinel when the
// method is missing or returns NotImplemented.
func callBinary(ctx *CallerContext, obj, other Value, name string) Value {
	fn, _, ok := obj.Type().Lookup(name)
	if !ok || fn == builtins.None {
		return sentinel
	}
	res := callSpecial(ctx, fn, obj, []Value{other}, nil)
	if res == builtins.NotImplemented {
		return sentinel
	}
	return res
}

// BinOp evaluates obj op right.
//
// The left operand's method is tried first, then the right operand's
// reflected method. When the right operand's type is a strict subtype of the
// left's and overrides the reflected method, it goes first.
func (t *Type) BinOp(ctx *CallerContext, obj, right Value, op BinaryOp) Value {
	if anyUnknown(obj, right) {
		ctx.Opaque("operator %s on an unknown value", op)
		return NewUnknown("result of %s", op)
	}
	rt := right.Type()
	reflectedTried := false
	if rt != t && rt.IsSubtype(t) && overridesReflected(rt, t, op) {
		if res := rt.ReverseBinOp(ctx, right, obj, op); !isNotHandled(res) {
			return res
		}
		reflectedTried = true
	}
	if res := callBinary(ctx, obj, right, op.Dunder()); !isNotHandled(res) {
		return res
	}
	if !reflectedTried && rt != t {
		if res := rt.ReverseBinOp(ctx, right, obj, op); !isNotHandled(res) {
			return res
		}
	}
	return ctx.Raise(builtins.TypeError, "unsupported operand type(s) for %s: '%s' and '%s'", op, t.name, rt.name)
}

// ReverseBinOp tries obj's reflected method with left as the other operand.
// It returns the sentinel when the method does not apply; only BinOp calls
// it.
func (t *Type) ReverseBinOp(ctx *CallerContext, obj, left Value, op BinaryOp) Value {
	return callBinary(ctx, obj, left, op.Reflected())
}

func overridesReflected(rt, lt *Type, op BinaryOp) bool {
	rfn, _, ok := rt.Lookup(op.Reflected())
	if !ok {
		return false
	}
	lfn, _, lok := lt.Lookup(op.Reflected())
	return !lok || lfn != rfn
}

// InplaceOp evaluates obj op= right: __iop__ first, then BinOp.
func (t *Type) InplaceOp(ctx *CallerContext, obj, right Value, op BinaryOp) Value {
	if anyUnknown(obj, right) {
		ctx.Opaque("operator %s= on an unknown value", op)
		return NewUnknown("result of %s=", op)
	}
	if res := callBinary(ctx, obj, right, op.Inplace()); !isNotHandled(res) {
		return res
	}
	return t.BinOp(ctx, obj, right, op)
}

// UnaryOp evaluates op obj.
func (t *Type) UnaryOp(ctx *CallerContext, obj Value, op UnaryOp) Value {
	if op == Not {
		truth := t.GetTruthValue(ctx, obj)
		if IsUnknown(truth) {
			return truth
		}
		return NewBool(truth != builtins.True)
	}
	if IsUnknown(obj) {
		ctx.Opaque("operator %s on an unknown value", op)
		return NewUnknown("result of unary %s", op)
	}
	fn, _, ok := t.Lookup(op.Dunder())
	if ok {
		res := callSpecial(ctx, fn, obj, nil, nil)
		if res != builtins.NotImplemented {
			return res
		}
	}
	return ctx.Raise(builtins.TypeError, "bad operand type for unary %s: '%s'", op, t.name)
}

// BinCmpOp evaluates obj op right for comparison operators.
func (t *Type) BinCmpOp(ctx *CallerContext, obj, right Value, op CmpOp) Value {
	switch op {
	case Is, IsNot:
		if anyUnknown(obj, right) {
			return NewUnknown("identity of unknown")
		}
		return NewBool((obj == right) == (op == Is))
	case In, NotIn:
		res := Contains(ctx, right, obj)
		if IsUnknown(res) || op == In {
			return res
		}
		return NewBool(res != builtins.True)
	}

	if anyUnknown(obj, right) {
		ctx.Opaque("comparison %s with an unknown value", op)
		return NewUnknown("result of %s", op)
	}
	rt := right.Type()
	swapped := op.Swapped()
	checkedReverse := false
	if rt != t && rt.IsSubtype(t) && rt.has(swapped.Dunder()) {
		checkedReverse = true
		if res := callBinary(ctx, right, obj, swapped.Dunder()); !isNotHandled(res) {
			return res
		}
	}
	if res := callBinary(ctx, obj, right, op.Dunder()); !isNotHandled(res) {
		return res
	}
	if !checkedReverse {
		if res := callBinary(ctx, right, obj, swapped.Dunder()); !isNotHandled(res) {
			return res
		}
	}
	switch op {
	case Eq:
		return NewBool(obj == right)
	case NotEq:
		return NewBool(obj != right)
	}
	return ctx.Raise(builtins.TypeError, "'%s' not supported between instances of '%s' and '%s'", op, t.name, rt.name)
}

// Contains evaluates item in container: __contains__, then iteration.
func Contains(ctx *CallerContext, container, item Value) Value {
	if IsUnknown(container) {
		ctx.Opaque("membership test in an unknown value")
		return NewUnknown("membership")
	}
	ct := container.Type()
	if fn, _, ok := ct.Lookup("__contains__"); ok && fn != builtins.None {
		res := callSpecial(ctx, fn, container, []Value{item}, nil)
		return Truth(ctx, res)
	}
	if !isIterable(ct) {
		return ctx.Raise(builtins.TypeError, "argument of type '%s' is not iterable", ct.name)
	}
	it := ct.GetElementsIter(ctx, container)
	sawUnknown := false
	for {
		elem, ok := it.Next()
		if !ok {
			break
		}
		if elem == item {
			return builtins.True
		}
		eq := Truth(ctx, Compare(ctx, elem, item, Eq))
		if eq == builtins.True {
			return builtins.True
		}
		if IsUnknown(eq) {
			sawUnknown = true
		}
	}
	if sawUnknown {
		return NewUnknown("membership")
	}
	return builtins.False
}

// BinaryOperation evaluates left op right.
func BinaryOperation(ctx *CallerContext, left, right Value, op BinaryOp) Value {
	return left.Type().BinOp(ctx, left, right, op)
}

// InplaceOperation evaluates left op= right.
func InplaceOperation(ctx *CallerContext, left, right Value, op BinaryOp) Value {
	return left.Type().InplaceOp(ctx, left, right, op)
}

// UnaryOperation evaluates op v.
func UnaryOperation(ctx *CallerContext, v Value, op UnaryOp) Value {
	return v.Type().UnaryOp(ctx, v, op)
}

// Compare evaluates left op right for comparison operators.
func Compare(ctx *CallerContext, left, right Value, op CmpOp) Value {
	return left.Type().BinCmpOp(ctx, left, right, op)
}
