package analyzer

import (
	"github.com/roach88/strictmod/internal/ir"
	"github.com/roach88/strictmod/internal/objects"
)

// execBlock runs body in order. An exit taken only on some paths splits the
// rest of the block into a speculative continuation.
func (f *frame) execBlock(body []*ir.Node) exit {
	for i, s := range body {
		e := f.exec(s)
		if f.in.exhausted {
			return exit{kind: flowAbort}
		}
		if e.kind != flowRaise && f.raised() {
			e = exit{kind: flowRaise}
		}
		if e.kind == flowNext {
			continue
		}
		rest := body[i+1:]
		if !e.maybe || len(rest) == 0 {
			return e
		}
		kind := e.kind
		return f.speculate(
			func() exit {
				f.clearRaise()
				return f.execBlock(rest)
			},
			func() exit { return exit{kind: kind} },
		)
	}
	return next
}

func (f *frame) exec(n *ir.Node) exit {
	if !f.step(n) {
		return exit{kind: flowAbort}
	}
	outer := f.in.stmt
	f.in.stmt = n
	defer func() { f.in.stmt = outer }()
	switch n.Kind {
	case ir.KindExpr:
		f.eval(n.Value)
	case ir.KindAssign:
		v := f.eval(n.Value)
		if f.raised() {
			return next
		}
		for _, t := range n.Targets {
			f.assign(t, v)
		}
	case ir.KindAugAssign:
		f.augAssign(n)
	case ir.KindAnnAssign:
		if n.Value != nil {
			v := f.eval(n.Value)
			if !f.raised() {
				f.assign(n.Target, v)
			}
		}
	case ir.KindDelete:
		for _, t := range n.Targets {
			f.delete(t)
		}
	case ir.KindPass, ir.KindGlobal:
	case ir.KindNonlocal:
		if f.scope.kind == scopeModule {
			f.at(n).Error(ir.KindSyntaxError, "nonlocal declaration not allowed at module level")
		}
	case ir.KindIf:
		return f.execIf(n)
	case ir.KindWhile:
		return f.execWhile(n)
	case ir.KindFor:
		return f.execFor(n)
	case ir.KindBreak:
		if f.loops == 0 {
			f.at(n).Error(ir.KindSyntaxError, "'break' outside loop")
			return next
		}
		return exit{kind: flowBreak}
	case ir.KindContinue:
		if f.loops == 0 {
			f.at(n).Error(ir.KindSyntaxError, "'continue' not properly in loop")
			return next
		}
		return exit{kind: flowContinue}
	case ir.KindReturn:
		return f.execReturn(n)
	case ir.KindFunctionDef:
		f.defineFunction(n)
	case ir.KindClassDef:
		return f.defineClass(n)
	case ir.KindImport:
		f.execImport(n)
	case ir.KindImportFrom:
		f.execImportFrom(n)
	case ir.KindRaise:
		return f.execRaise(n)
	case ir.KindTry:
		return f.execTry(n)
	case ir.KindAssert:
		f.execAssert(n)
	default:
		f.at(n).Error(ir.KindSyntaxError, "unsupported statement %s", n.Kind)
	}
	return next
}

// truth evaluates n as a condition: True, False or Unknown.
func (f *frame) truth(n *ir.Node) objects.Value {
	v := f.eval(n)
	if f.raised() {
		return objects.NewUnknown("condition raised")
	}
	return objects.Truth(f.at(n), v)
}

func (f *frame) execIf(n *ir.Node) exit {
	r := objects.Builtins()
	switch t := f.truth(n.Test); {
	case f.raised():
		return exit{kind: flowRaise}
	case t == r.True:
		return f.execBlock(n.Body)
	case t == r.False:
		return f.execBlock(n.Orelse)
	}
	return f.speculate(
		func() exit { return f.execBlock(n.Body) },
		func() exit { return f.execBlock(n.Orelse) },
	)
}

// loopBody runs one iteration of a loop body.
func (f *frame) loopBody(body []*ir.Node) exit {
	f.loops++
	defer func() { f.loops-- }()
	return f.execBlock(body)
}

// afterIteration decides how a loop proceeds after one iteration. more
// continues the loop; done means the loop is finished with the returned exit.
func (f *frame) afterIteration(e exit, nesting int, more func() exit) (exit, bool) {
	if !e.maybe {
		switch e.kind {
		case flowNext, flowContinue:
			return next, false
		case flowBreak:
			return next, true
		}
		return e, true
	}
	switch e.kind {
	case flowContinue:
		return next, false
	case flowAbort:
		return e, true
	}
	if nesting >= maxExitNesting {
		f.ctx.Opaque("loop exit depends on unknown values; iteration abandoned")
		if e.kind == flowBreak {
			return next, true
		}
		return e, true
	}
	kind := e.kind
	return f.speculate(
		func() exit {
			f.clearRaise()
			return more()
		},
		func() exit {
			if kind == flowBreak {
				return next
			}
			return exit{kind: kind}
		},
	), true
}

// speculateLoop runs a loop whose iteration count depends on unknown
// values. iteration is rerun against a widened state until another run can
// change nothing, then merged with the loop ending before it starts.
func (f *frame) speculateLoop(n *ir.Node, iteration, orelse func() exit) exit {
	limit := f.in.mod.Limits().MaxLoopIterations
	for pass := 0; ; pass++ {
		if pass >= limit {
			f.at(n).Error(ir.KindLimitError, "loop state did not settle after %d passes", limit)
			break
		}
		changed := f.in.mod.Widen(func() {
			f.speculate(iteration)
			f.clearRaise()
		})
		if f.in.exhausted {
			return exit{kind: flowAbort}
		}
		if !changed {
			break
		}
	}
	return f.speculate(
		func() exit {
			e := iteration()
			if e.kind == flowBreak || e.kind == flowContinue {
				return next
			}
			return e
		},
		orelse,
	)
}

func (f *frame) execWhile(n *ir.Node) exit {
	return f.whileFrom(n, 0, 0)
}

func (f *frame) whileFrom(n *ir.Node, count, nesting int) exit {
	r := objects.Builtins()
	limit := f.in.mod.Limits().MaxLoopIterations
	for ; ; count++ {
		if count >= limit {
			f.at(n).Error(ir.KindLimitError, "loop exceeded %d iterations", limit)
			return next
		}
		t := f.truth(n.Test)
		switch {
		case f.raised():
			return exit{kind: flowRaise}
		case t == r.False:
			return f.execBlock(n.Orelse)
		case t != r.True:
			return f.speculateLoop(n,
				func() exit {
					e := f.loopBody(n.Body)
					if e.kind == flowNext || e.kind == flowContinue {
						if f.truth(n.Test); f.raised() {
							return exit{kind: flowRaise}
						}
					}
					return e
				},
				func() exit { return f.execBlock(n.Orelse) },
			)
		}
		e := f.loopBody(n.Body)
		c := count
		if out, done := f.afterIteration(e, nesting, func() exit { return f.whileFrom(n, c+1, nesting+1) }); done {
			return out
		}
	}
}

func (f *frame) execFor(n *ir.Node) exit {
	iterable := f.eval(n.Iter)
	if f.raised() {
		return exit{kind: flowRaise}
	}
	it := objects.Iter(f.at(n.Iter), iterable)
	if f.raised() {
		return exit{kind: flowRaise}
	}
	return f.forFrom(n, it, 0, 0)
}

func (f *frame) forFrom(n *ir.Node, it objects.Iterator, count, nesting int) exit {
	limit := f.in.mod.Limits().MaxLoopIterations
	for ; ; count++ {
		if count >= limit {
			f.at(n).Error(ir.KindLimitError, "loop exceeded %d iterations", limit)
			return next
		}
		v, ok := it.Next()
		if f.raised() {
			return exit{kind: flowRaise}
		}
		if !ok {
			return f.execBlock(n.Orelse)
		}
		if objects.IsUnknown(v) && objects.IsTail(v) {
			return f.speculateLoop(n,
				func() exit {
					f.assign(n.Target, objects.NewUnknown("loop element"))
					return f.loopBody(n.Body)
				},
				func() exit { return f.execBlock(n.Orelse) },
			)
		}
		f.assign(n.Target, v)
		e := f.loopBody(n.Body)
		c := count
		if out, done := f.afterIteration(e, nesting, func() exit { return f.forFrom(n, it, c+1, nesting+1) }); done {
			return out
		}
	}
}

func (f *frame) execReturn(n *ir.Node) exit {
	if f.call == nil {
		f.at(n).Error(ir.KindSyntaxError, "'return' outside function")
		return next
	}
	v := objects.Value(objects.Builtins().None)
	if n.Value != nil {
		v = f.eval(n.Value)
	}
	if f.raised() {
		return exit{kind: flowRaise}
	}
	f.call.returns = append(f.call.returns, v)
	return exit{kind: flowReturn}
}

func (f *frame) execRaise(n *ir.Node) exit {
	r := objects.Builtins()
	ctx := f.at(n)
	if n.Value == nil {
		if len(f.in.handling) == 0 {
			ctx.Raise(r.RuntimeError, "No active exception to reraise")
		} else {
			ctx.RaiseValue(f.in.handling[len(f.in.handling)-1])
		}
		return exit{kind: flowRaise}
	}
	exc := f.exceptionValue(n.Value)
	if f.raised() {
		return exit{kind: flowRaise}
	}
	if n.Cause != nil {
		cause := f.exceptionValue(n.Cause)
		if f.raised() {
			return exit{kind: flowRaise}
		}
		if inst, ok := exc.(*objects.Instance); ok && inst.Dict() != nil {
			f.in.mod.Assign(inst.Dict(), "__cause__", cause)
			f.in.mod.Assign(inst.Dict(), "__suppress_context__", r.True)
		}
	}
	ctx.RaiseValue(exc)
	return exit{kind: flowRaise}
}

// exceptionValue evaluates the operand of raise: an exception class is
// instantiated, None is allowed as a cause.
func (f *frame) exceptionValue(n *ir.Node) objects.Value {
	r := objects.Builtins()
	ctx := f.at(n)
	v := f.eval(n)
	switch x := v.(type) {
	case *objects.Unknown:
		return x
	case *objects.Type:
		if !x.IsSubtype(r.BaseException) {
			return ctx.Raise(r.TypeError, "exceptions must derive from BaseException")
		}
		return objects.Call(ctx, x, nil, nil)
	}
	if v == r.None || v.Type().IsSubtype(r.BaseException) {
		return v
	}
	return ctx.Raise(r.TypeError, "exceptions must derive from BaseException")
}

func (f *frame) execAssert(n *ir.Node) {
	r := objects.Builtins()
	if f.debugDisabled() {
		return
	}
	t := f.truth(n.Test)
	if t != r.False || f.raised() {
		return
	}
	var exc objects.Value
	if n.Msg != nil {
		msg := f.eval(n.Msg)
		if f.raised() {
			return
		}
		exc = objects.Call(f.at(n), r.AssertionError, []objects.Value{msg}, nil)
	} else {
		exc = objects.Call(f.at(n), r.AssertionError, nil, nil)
	}
	f.at(n).RaiseValue(exc)
}

// debugDisabled reports whether __debug__ was rebound to a false value in the
// module globals.
func (f *frame) debugDisabled() bool {
	v, ok := f.in.mod.Globals.Get("__debug__")
	return ok && v == objects.Builtins().False
}

func (f *frame) execTry(n *ir.Node) exit {
	inner, trap := f.ctx.WithTrap()
	e := f.with(inner).execBlock(n.Body)

	switch {
	case e.kind == flowRaise && trap.Caught():
		exc, loc := trap.Exception(), trap.Loc()
		if e.maybe {
			e = f.speculate(
				func() exit { return f.handle(n, exc, loc) },
				func() exit { return f.execBlock(n.Orelse) },
			)
		} else {
			e = f.handle(n, exc, loc)
		}
	case e.kind == flowNext:
		e = f.execBlock(n.Orelse)
	}

	if len(n.Finalbody) == 0 || e.kind == flowAbort {
		return e
	}
	outer := f.ctx.Trap()
	var pending objects.Value
	var pendingLoc ir.Location
	if outer != nil {
		pending, pendingLoc = outer.Exception(), outer.Loc()
		outer.Clear()
	}
	fe := f.execBlock(n.Finalbody)
	if fe.kind != flowNext {
		return fe
	}
	if outer != nil && pending != nil {
		outer.Set(pending, pendingLoc)
	}
	return e
}

// handle runs the first handler matching exc, or re-raises it to the
// enclosing trap. A handler whose match cannot be decided is taken.
func (f *frame) handle(n *ir.Node, exc objects.Value, loc ir.Location) exit {
	r := objects.Builtins()
	for _, h := range n.Handlers {
		if h.Value != nil {
			typ := f.eval(h.Value)
			if f.raised() {
				return exit{kind: flowRaise}
			}
			if objects.IsInstance(f.at(h), exc, typ) == r.False {
				continue
			}
		}
		f.in.handling = append(f.in.handling, exc)
		if h.ID != "" {
			f.store(h.ID, exc)
		}
		e := f.execBlock(h.Body)
		if h.ID != "" {
			owner := f.scope.owner(h.ID)
			f.in.mod.Unbind(owner.ns, h.ID)
		}
		f.in.handling = f.in.handling[:len(f.in.handling)-1]
		return e
	}
	f.ctx.At(loc).RaiseValue(exc)
	return exit{kind: flowRaise}
}
