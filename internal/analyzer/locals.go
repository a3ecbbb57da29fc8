package analyzer

import (
	"github.com/roach88/strictmod/internal/ir"
)

// localNames is the result of scanning a function or class body for the
// names it binds. A name assigned anywhere in a function body is local to the
// whole body unless declared global or nonlocal.
type localNames struct {
	locals    map[string]bool
	globals   map[string]bool
	nonlocals map[string]bool
}

func (l *localNames) isLocal(name string) bool    { return l.locals[name] }
func (l *localNames) isGlobal(name string) bool   { return l.globals[name] }
func (l *localNames) isNonlocal(name string) bool { return l.nonlocals[name] }

func (l *localNames) add(name string) {
	if l.locals == nil {
		l.locals = make(map[string]bool)
	}
	l.locals[name] = true
}

// scanLocals collects the names bound by body plus the given parameters.
func scanLocals(params []*ir.Param, body []*ir.Node) *localNames {
	l := &localNames{
		globals:   make(map[string]bool),
		nonlocals: make(map[string]bool),
	}
	for _, p := range params {
		l.add(p.Name)
	}
	for _, n := range body {
		l.stmt(n)
	}
	for name := range l.globals {
		delete(l.locals, name)
	}
	for name := range l.nonlocals {
		delete(l.locals, name)
	}
	return l
}

// scanTargets collects the names bound by comprehension targets.
func scanTargets(targets ...*ir.Node) *localNames {
	l := &localNames{}
	for _, t := range targets {
		l.target(t)
	}
	return l
}

func (l *localNames) stmt(n *ir.Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case ir.KindAssign:
		for _, t := range n.Targets {
			l.target(t)
		}
	case ir.KindAugAssign, ir.KindAnnAssign:
		l.target(n.Target)
	case ir.KindFor:
		l.target(n.Target)
	case ir.KindDelete:
		for _, t := range n.Targets {
			l.target(t)
		}
	case ir.KindFunctionDef, ir.KindClassDef:
		l.add(n.ID)
		return
	case ir.KindImport, ir.KindImportFrom:
		for _, a := range n.Names {
			if a.Name != "*" {
				l.add(a.BoundName())
			}
		}
	case ir.KindGlobal:
		for _, id := range n.Identifiers {
			l.globals[id] = true
		}
	case ir.KindNonlocal:
		for _, id := range n.Identifiers {
			l.nonlocals[id] = true
		}
	case ir.KindTry:
		for _, h := range n.Handlers {
			if h.ID != "" {
				l.add(h.ID)
			}
			l.block(h.Body)
		}
		l.block(n.Finalbody)
	}
	l.block(n.Body)
	l.block(n.Orelse)
}

func (l *localNames) block(body []*ir.Node) {
	for _, n := range body {
		l.stmt(n)
	}
}

func (l *localNames) target(t *ir.Node) {
	if t == nil {
		return
	}
	switch t.Kind {
	case ir.KindName:
		l.add(t.ID)
	case ir.KindTuple, ir.KindList:
		for _, e := range t.Elts {
			l.target(e)
		}
	case ir.KindStarred:
		l.target(t.Value)
	}
}
