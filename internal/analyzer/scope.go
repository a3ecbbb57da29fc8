package analyzer

import (
	"github.com/roach88/strictmod/internal/objects"
)

type scopeKind int

const (
	scopeModule scopeKind = iota
	scopeClass
	scopeFunction
	scopeComprehension
)

// scope is one level of name resolution. Function and comprehension scopes
// know their local names up front; a load of a local that is not bound is an
// UnboundLocalError rather than a fall-through to the enclosing scope.
//
// Closures hold their defining scope by reference, so a nested function sees
// the enclosing binding as it is when the function runs.
type scope struct {
	kind   scopeKind
	ns     *objects.Namespace
	parent *scope
	names  *localNames
}

func newModuleScope(m *objects.Module) *scope {
	return &scope{kind: scopeModule, ns: m.Globals, names: &localNames{}}
}

func (s *scope) child(kind scopeKind, names *localNames) *scope {
	return &scope{kind: kind, ns: objects.NewNamespace(), parent: s, names: names}
}

// module returns the outermost scope.
func (s *scope) module() *scope {
	for s.parent != nil {
		s = s.parent
	}
	return s
}

// enclosing returns the nearest scope whose names closures can see, skipping
// class bodies.
func (s *scope) enclosing() *scope {
	p := s.parent
	for p != nil && p.kind == scopeClass {
		p = p.parent
	}
	return p
}

// closure returns the scope a function defined in s captures.
func (s *scope) closure() *scope {
	if s.kind == scopeClass {
		if p := s.enclosing(); p != nil {
			return p
		}
		return s.module()
	}
	return s
}

// owner returns the scope that stores name when it is assigned in s.
func (s *scope) owner(name string) *scope {
	switch {
	case s.kind == scopeModule:
		return s
	case s.names.isGlobal(name):
		return s.module()
	case s.names.isNonlocal(name):
		for p := s.enclosing(); p != nil && p.kind != scopeModule; p = p.enclosing() {
			if p.names.isLocal(name) {
				return p.owner(name)
			}
		}
		return s.module()
	}
	return s
}

type lookupResult int

const (
	found lookupResult = iota
	unbound
	unboundFree // a free variable whose enclosing binding does not exist yet
	undefined
)

// lookup resolves name from s outward and finally in the builtins.
func (s *scope) lookup(name string) (objects.Value, lookupResult) {
	switch s.kind {
	case scopeModule:
		if v, ok := s.ns.Get(name); ok {
			return v, found
		}
		if v, ok := objects.Builtins().Lookup(name); ok {
			return v, found
		}
		return nil, undefined
	case scopeClass:
		if v, ok := s.ns.Get(name); ok {
			return v, found
		}
		if s.names.isGlobal(name) {
			return s.module().lookup(name)
		}
	default:
		if s.names.isGlobal(name) {
			return s.module().lookup(name)
		}
		if s.names.isNonlocal(name) {
			return s.owner(name).lookup(name)
		}
		if s.names.isLocal(name) {
			if v, ok := s.ns.Get(name); ok {
				return v, found
			}
			return nil, unbound
		}
	}
	p := s.enclosing()
	if p == nil {
		return s.module().lookup(name)
	}
	v, res := p.lookup(name)
	if res == unbound && p.kind != scopeModule {
		return nil, unboundFree
	}
	return v, res
}
