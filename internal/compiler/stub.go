package compiler

import (
	"fmt"
	"slices"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/strictmod/internal/ir"
)

// compileStubs parses the stub struct. Each field is a module name mapping
// to its members.
func compileStubs(v cue.Value) ([]ir.StubModule, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var stubs []ir.StubModule
	for iter.Next() {
		name := iter.Label()
		members, err := compileMembers("stub."+name, iter.Value())
		if err != nil {
			return nil, err
		}
		stubs = append(stubs, ir.StubModule{Name: name, Members: members})
	}
	slices.SortFunc(stubs, func(a, b ir.StubModule) int { return strings.Compare(a.Name, b.Name) })
	return stubs, nil
}

func compileMembers(path string, v cue.Value) (map[string]ir.StubMember, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	members := make(map[string]ir.StubMember)
	for iter.Next() {
		m, err := compileMember(path+"."+iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		members[iter.Label()] = m
	}
	return members, nil
}

// compileMember parses one stub member. Concrete ints, strings, bools and
// null are shorthand for constants; anything else is a struct with a kind.
func compileMember(path string, v cue.Value) (ir.StubMember, error) {
	switch v.IncompleteKind() {
	case cue.IntKind:
		n, err := v.Int(nil)
		if err != nil {
			return ir.StubMember{}, formatCUEError(err)
		}
		return ir.StubMember{Kind: ir.StubConst, Type: ir.ConstInt, Literal: n.String()}, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return ir.StubMember{}, formatCUEError(err)
		}
		return ir.StubMember{Kind: ir.StubConst, Type: ir.ConstStr, Literal: s}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return ir.StubMember{}, formatCUEError(err)
		}
		lit := "False"
		if b {
			lit = "True"
		}
		return ir.StubMember{Kind: ir.StubConst, Type: ir.ConstBool, Literal: lit}, nil
	case cue.NullKind:
		return ir.StubMember{Kind: ir.StubConst, Type: ir.ConstNone}, nil
	case cue.FloatKind, cue.NumberKind:
		return ir.StubMember{}, &CompileError{
			Field:   path,
			Message: `float constants must be spelled {kind: "const", type: "float", literal: "..."}`,
			Pos:     v.Pos(),
		}
	case cue.StructKind:
		return compileDeclared(path, v)
	}
	return ir.StubMember{}, &CompileError{
		Field:   path,
		Message: fmt.Sprintf("unsupported stub value of kind %v", v.IncompleteKind()),
		Pos:     v.Pos(),
	}
}

func compileDeclared(path string, v cue.Value) (ir.StubMember, error) {
	kind, err := requiredString(path, v, "kind")
	if err != nil {
		return ir.StubMember{}, err
	}
	m := ir.StubMember{Kind: kind}
	switch kind {
	case ir.StubConst:
		if m.Type, err = requiredString(path, v, "type"); err != nil {
			return m, err
		}
		if lit := v.LookupPath(cue.ParsePath("literal")); lit.Exists() {
			if m.Literal, err = lit.String(); err != nil {
				return m, formatCUEError(err)
			}
		}
	case ir.StubFunction:
		if ret := v.LookupPath(cue.ParsePath("returns")); ret.Exists() {
			r, err := compileMember(path+".returns", ret)
			if err != nil {
				return m, err
			}
			m.Returns = &r
		}
		if se := v.LookupPath(cue.ParsePath("side_effect")); se.Exists() {
			if m.SideEffect, err = se.Bool(); err != nil {
				return m, formatCUEError(err)
			}
		}
	case ir.StubClass:
		if mv := v.LookupPath(cue.ParsePath("members")); mv.Exists() {
			if m.Members, err = compileMembers(path, mv); err != nil {
				return m, err
			}
		}
	case ir.StubAlias:
		if m.Target, err = requiredString(path, v, "target"); err != nil {
			return m, err
		}
	case ir.StubUnknown:
	default:
		return m, &CompileError{
			Field:   path + ".kind",
			Message: fmt.Sprintf("unknown stub kind %q", kind),
			Pos:     v.Pos(),
		}
	}
	return m, nil
}

func requiredString(path string, v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   path + "." + field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}
