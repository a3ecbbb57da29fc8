package objects

import (
	"fmt"

	"github.com/roach88/strictmod/internal/ir"
)

// Module is the analysis state of one module: its globals, diagnostic sink,
// limits, class arena and mutation journal. A Module is used by a single
// goroutine.
type Module struct {
	Name    string
	File    string
	Globals *Namespace

	policy  ir.Policy
	limits  ir.Limits
	allowed map[string]bool

	diags []ir.Diagnostic
	seen  map[diagKey]bool

	types   []*Type
	journal journal
	steps   int
	object  *Instance

	// reprs holds the containers whose repr is being computed.
	reprs map[*Instance]bool
}

type diagKey struct {
	loc  ir.Location
	kind ir.DiagnosticKind
	msg  string
}

// NewModule creates the analysis state for one module.
func NewModule(name, file string, policy ir.Policy) *Module {
	m := &Module{
		Name:    name,
		File:    file,
		Globals: NewNamespace(),
		policy:  policy,
		limits:  policy.Limits.WithDefaults(),
		allowed: make(map[string]bool, len(policy.AllowSideEffects)),
		seen:    make(map[diagKey]bool),
	}
	for _, name := range policy.AllowSideEffects {
		m.allowed[name] = true
	}
	m.object = &Instance{typ: builtins.ModuleType, dict: m.Globals, payload: &ModuleInfo{Name: name, File: file}}
	m.Globals.Set("__name__", NewStr(name))
	return m
}

// ModuleInfo is the payload of module objects.
type ModuleInfo struct {
	Name string
	File string
}

// Object returns the module object whose namespace is Globals.
func (m *Module) Object() *Instance { return m.object }

// Limits returns the bounds in force for this module.
func (m *Module) Limits() ir.Limits { return m.limits }

// Policy returns the policy the module is analyzed under.
func (m *Module) Policy() ir.Policy { return m.policy }

// Diagnostics returns the diagnostics recorded so far, in emission order.
func (m *Module) Diagnostics() []ir.Diagnostic {
	out := make([]ir.Diagnostic, len(m.diags))
	copy(out, m.diags)
	return out
}

// Types returns the classes created in this module, in creation order.
func (m *Module) Types() []*Type {
	out := make([]*Type, len(m.types))
	copy(out, m.types)
	return out
}

// Report appends a diagnostic. An identical diagnostic at the same location
// is recorded once, so loops do not flood the sink.
func (m *Module) Report(loc ir.Location, kind ir.DiagnosticKind, msg string) {
	key := diagKey{loc: loc, kind: kind, msg: msg}
	if m.seen[key] {
		return
	}
	m.seen[key] = true
	m.diags = append(m.diags, ir.Diagnostic{
		Location: loc,
		Severity: m.policy.Severity(kind),
		Kind:     kind,
		Message:  msg,
	})
}

// SideEffectAllowed reports whether the policy allow-lists a side-effecting
// builtin.
func (m *Module) SideEffectAllowed(name string) bool {
	return m.allowed[name]
}

// Step charges one evaluation step. It returns false once MaxSteps is
// exhausted; the caller must stop analyzing the module.
func (m *Module) Step() bool {
	m.steps++
	return m.steps <= m.limits.MaxSteps
}

// Steps returns the number of evaluation steps charged so far.
func (m *Module) Steps() int { return m.steps }

// Trap catches the first exception raised while it is installed.
type Trap struct {
	exc Value
	loc ir.Location
}

// Exception returns the caught exception, or nil.
func (t *Trap) Exception() Value { return t.exc }

// Loc returns where the caught exception was raised.
func (t *Trap) Loc() ir.Location { return t.loc }

// Caught reports whether an exception was caught.
func (t *Trap) Caught() bool { return t.exc != nil }

// Clear forgets the caught exception.
func (t *Trap) Clear() { t.exc, t.loc = nil, ir.Location{} }

// Set replaces the trap state. A nil exc clears it.
func (t *Trap) Set(exc Value, loc ir.Location) { t.exc, t.loc = exc, loc }

// CallerContext is passed to every protocol operation: the location being
// analyzed, the module handle, the call depth and the innermost raise trap.
type CallerContext struct {
	Module *Module
	Loc    ir.Location

	depth int
	descr int
	trap  *Trap
}

// NewContext returns a top-level context for m.
func NewContext(m *Module, loc ir.Location) *CallerContext {
	return &CallerContext{Module: m, Loc: loc}
}

// At returns a copy of c positioned at loc.
func (c *CallerContext) At(loc ir.Location) *CallerContext {
	cc := *c
	cc.Loc = loc
	return &cc
}

// Depth returns the current call depth.
func (c *CallerContext) Depth() int { return c.depth }

// Trap returns the innermost installed trap, or nil.
func (c *CallerContext) Trap() *Trap { return c.trap }

// WithTrap returns a copy of c with a fresh trap installed.
func (c *CallerContext) WithTrap() (*CallerContext, *Trap) {
	t := &Trap{}
	cc := *c
	cc.trap = t
	return &cc, t
}

// Deeper returns a context one call level down. It reports a LimitError
// and returns false when MaxCallDepth would be exceeded.
func (c *CallerContext) Deeper() (*CallerContext, bool) {
	if c.depth+1 > c.Module.limits.MaxCallDepth {
		c.Error(ir.KindLimitError, "maximum call depth %d exceeded", c.Module.limits.MaxCallDepth)
		return c, false
	}
	cc := *c
	cc.depth++
	return &cc, true
}

// descriptor returns a context one descriptor resolution down.
func (c *CallerContext) descriptor() (*CallerContext, bool) {
	if c.descr+1 > c.Module.limits.MaxDescriptorChain {
		c.Error(ir.KindLimitError, "descriptor chain longer than %d", c.Module.limits.MaxDescriptorChain)
		return c, false
	}
	cc := *c
	cc.descr++
	return &cc, true
}

// Error records a diagnostic that is not an exception and can never be
// caught: side effects, limits, malformed input.
func (c *CallerContext) Error(kind ir.DiagnosticKind, format string, args ...any) {
	if c.abandoned() {
		return
	}
	c.Module.Report(c.Loc, kind, fmt.Sprintf(format, args...))
}

// abandoned reports whether the innermost trap already caught an exception:
// the rest of the computation never happens, so it reports nothing.
func (c *CallerContext) abandoned() bool {
	return c.trap != nil && c.trap.exc != nil
}

// Opaque records an OpacityError: an operation whose outcome depends on a
// value the analyzer does not know.
func (c *CallerContext) Opaque(format string, args ...any) {
	if c.abandoned() {
		return
	}
	c.Module.Report(c.Loc, ir.KindOpacityError, fmt.Sprintf(format, args...))
}

// Raise raises a built-in exception of the given type with a formatted
// message. The result is always an Unknown that callers return in place of
// the value they could not compute.
func (c *CallerContext) Raise(exc *Type, format string, args ...any) Value {
	msg := fmt.Sprintf(format, args...)
	c.RaiseValue(newException(exc, msg))
	return NewUnknown("%s: %s", exc.name, msg)
}

// RaiseValue raises an exception instance, an exception class or an
// Unknown. The innermost trap catches it; without a trap it becomes a
// diagnostic.
func (c *CallerContext) RaiseValue(exc Value) {
	if c.trap != nil {
		if c.trap.exc == nil {
			c.trap.exc, c.trap.loc = exc, c.Loc
		}
		return
	}
	if IsUnknown(exc) {
		c.Opaque("raise of an unknown exception")
		return
	}
	t := exc.Type()
	if cls, ok := exc.(*Type); ok {
		t = cls
	}
	kind := exceptionKind(t)
	msg := ExceptionMessage(exc)
	if kind == ir.KindRaiseError {
		if msg == "" {
			msg = "uncaught " + t.name
		} else {
			msg = fmt.Sprintf("uncaught %s: %s", t.name, msg)
		}
	}
	c.Module.Report(c.Loc, kind, msg)
}

// exceptionKind maps an exception type to the diagnostic kind reported when
// nothing catches it.
func exceptionKind(t *Type) ir.DiagnosticKind {
	b := builtins
	switch {
	case t.IsSubtype(b.AttributeError):
		return ir.KindAttributeError
	case t.IsSubtype(b.TypeError):
		return ir.KindTypeError
	case t.IsSubtype(b.NameError):
		return ir.KindNameError
	case t.IsSubtype(b.IndexError):
		return ir.KindIndexError
	case t.IsSubtype(b.KeyError):
		return ir.KindKeyError
	case t.IsSubtype(b.ValueError):
		return ir.KindValueError
	case t.IsSubtype(b.ZeroDivisionError):
		return ir.KindZeroDivisionError
	}
	return ir.KindRaiseError
}

// Reraise forwards an exception caught by an inner trap to c, keeping the
// location it was originally raised at.
func (c *CallerContext) Reraise(t *Trap) {
	if t.exc != nil {
		c.At(t.loc).RaiseValue(t.exc)
	}
}
