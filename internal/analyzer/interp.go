package analyzer

import (
	"log/slog"

	"github.com/roach88/strictmod/internal/ir"
	"github.com/roach88/strictmod/internal/objects"
)

// maxExitNesting bounds how many loop iterations may each end in an exit
// that depends on an unknown value before the loop is abandoned.
const maxExitNesting = 16

// interp holds the state of one module analysis.
type interp struct {
	src    *ir.Module
	mod    *objects.Module
	loader Loader
	log    *slog.Logger

	// imports caches loaded modules by absolute name; a nil entry is a
	// module the loader could not find.
	imports map[string]objects.Value

	// handling is the stack of exceptions whose handlers are running, for
	// bare raise.
	handling []objects.Value

	// stmt is the statement being executed; expressions without a
	// position of their own report at it.
	stmt *ir.Node

	exhausted bool
}

type flow int

const (
	flowNext flow = iota
	flowContinue
	flowBreak
	flowReturn
	flowRaise
	flowAbort
)

// exit is how a statement or block finished. maybe marks an exit taken only
// on some paths, because it depended on an unknown value.
type exit struct {
	kind  flow
	maybe bool
}

var next = exit{}

// mergeExits combines the exits of speculative branches. Branches that agree
// keep their exit; otherwise the most disruptive exit wins and is marked
// maybe.
func mergeExits(exits []exit) exit {
	if len(exits) == 0 {
		return next
	}
	out := exits[0]
	for _, e := range exits[1:] {
		switch {
		case e.kind == flowAbort || out.kind == flowAbort:
			return exit{kind: flowAbort}
		case e.kind == out.kind:
			out.maybe = out.maybe || e.maybe
		case e.kind > out.kind:
			out = exit{kind: e.kind, maybe: true}
		default:
			out.maybe = true
		}
	}
	if out.kind == flowNext {
		out.maybe = false
	}
	return out
}

// classCell records the class a method was defined in, for zero-argument
// super(). typ is set once the class statement completes.
type classCell struct {
	typ objects.Value
}

// activation is the per-call state of a user function.
type activation struct {
	fn      *userFunction
	returns []objects.Value
}

// frame evaluates statements and expressions of one code block.
type frame struct {
	in    *interp
	ctx   *objects.CallerContext
	scope *scope
	call  *activation // nil outside function bodies
	cell  *classCell  // class body being run, or the class a method belongs to
	qual  string      // qualified-name prefix for definitions in this block
	loops int
}

// with returns a copy of f evaluating under ctx.
func (f *frame) with(ctx *objects.CallerContext) *frame {
	g := *f
	g.ctx = ctx
	return &g
}

// at returns the context positioned at n.
func (f *frame) at(n *ir.Node) *objects.CallerContext {
	if n == nil || n.Line == 0 {
		n = f.in.stmt
	}
	return f.ctx.At(n.Loc(f.in.src.File))
}

// step charges one evaluation step. Once the budget is spent it reports a
// single LimitError and returns false from then on.
func (f *frame) step(n *ir.Node) bool {
	if f.in.exhausted {
		return false
	}
	if f.in.mod.Step() {
		return true
	}
	f.in.exhausted = true
	f.in.mod.Report(f.at(n).Loc, ir.KindLimitError, "evaluation step budget exhausted")
	f.in.log.Warn("step budget exhausted", "steps", f.in.mod.Steps())
	return false
}

// raised reports whether the current block has already raised.
func (f *frame) raised() bool {
	t := f.ctx.Trap()
	return t != nil && t.Caught()
}

func (f *frame) clearRaise() {
	if t := f.ctx.Trap(); t != nil {
		t.Clear()
	}
}

// speculate runs each branch from the same state and merges the outcome.
// Every branch starts with the raise state the caller had; the merged state
// keeps the exception of the first branch that raised when the merged exit
// raises.
func (f *frame) speculate(branches ...func() exit) exit {
	trap := f.ctx.Trap()
	var savedExc, raisedExc objects.Value
	var savedLoc, raisedLoc ir.Location
	if trap != nil {
		savedExc, savedLoc = trap.Exception(), trap.Loc()
	}

	exits := make([]exit, len(branches))
	runs := make([]func(), len(branches))
	for i, b := range branches {
		runs[i] = func() {
			exits[i] = b()
			if trap == nil {
				return
			}
			if exits[i].kind == flowRaise && raisedExc == nil {
				raisedExc, raisedLoc = trap.Exception(), trap.Loc()
			}
			trap.Set(savedExc, savedLoc)
		}
	}
	f.in.mod.Speculate(runs...)

	out := mergeExits(exits)
	if trap != nil {
		if out.kind == flowRaise && raisedExc != nil {
			trap.Set(raisedExc, raisedLoc)
		} else {
			trap.Clear()
		}
	}
	return out
}

// speculateValue evaluates alternative expressions and merges their results.
// An exception raised on only some paths is reported as possible and then
// dropped.
func (f *frame) speculateValue(branches ...func() objects.Value) objects.Value {
	vals := make([]objects.Value, len(branches))
	fns := make([]func() exit, len(branches))
	for i, b := range branches {
		fns[i] = func() exit {
			vals[i] = b()
			if f.raised() {
				return exit{kind: flowRaise}
			}
			return next
		}
	}
	e := f.speculate(fns...)
	if e.kind == flowRaise && e.maybe {
		f.reportMaybeRaise()
		f.clearRaise()
	}
	return mergeValues(vals)
}

// reportMaybeRaise records an exception that is raised only on paths that
// depend on unknown values.
func (f *frame) reportMaybeRaise() {
	t := f.ctx.Trap()
	if t == nil || !t.Caught() {
		return
	}
	exc := t.Exception()
	loc := t.Loc()
	t.Clear()
	f.ctx.At(loc).Opaque("%s may be raised depending on unknown values", exceptionName(exc))
}

func exceptionName(exc objects.Value) string {
	switch v := exc.(type) {
	case *objects.Unknown:
		return "an unknown exception"
	case *objects.Type:
		return v.Name()
	}
	return exc.Type().Name()
}

// mergeValues returns the common value of speculative results, or Unknown
// when they differ.
func mergeValues(vals []objects.Value) objects.Value {
	if len(vals) == 0 {
		return objects.NewUnknown("no value")
	}
	first := vals[0]
	for _, v := range vals[1:] {
		if !objects.Same(first, v) {
			return objects.NewUnknown("value differs between branches")
		}
	}
	if first == nil {
		return objects.NewUnknown("no value")
	}
	return first
}

// runModule executes the module body. Each top-level statement runs under
// its own trap: an uncaught exception is reported and analysis resumes with
// the next statement.
func (in *interp) runModule() {
	base := objects.NewContext(in.mod, ir.Location{File: in.src.File})
	top := &frame{in: in, scope: newModuleScope(in.mod)}
	in.mod.Globals.Set("__file__", objects.NewStr(in.src.File))

	for _, s := range in.src.Body {
		ctx, trap := base.WithTrap()
		f := top.with(ctx)
		e := f.execBlock([]*ir.Node{s})
		switch e.kind {
		case flowAbort:
			return
		case flowRaise:
			if e.maybe {
				f.reportMaybeRaise()
			} else {
				base.Reraise(trap)
			}
		}
	}
}
