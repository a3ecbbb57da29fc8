package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/strictmod/internal/ir"
)

// CompilePolicy builds an analysis policy from a CUE value holding an
// optional policy struct and an optional stub struct:
//
//	policy: {
//		opacity: "error"
//		limits: max_loop_iterations: 500
//		allow_side_effects: ["print"]
//	}
//	stub: "config": {
//		VERSION: 3
//		load: {kind: "function", side_effect: true}
//	}
//
// Fields missing from the policy keep their defaults. Stub modules come out
// sorted by name.
func CompilePolicy(v cue.Value) (*ir.Policy, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	p := ir.DefaultPolicy()

	pv := v.LookupPath(cue.ParsePath("policy"))
	if pv.Exists() {
		if err := compileSettings(pv, &p); err != nil {
			return nil, err
		}
	}

	sv := v.LookupPath(cue.ParsePath("stub"))
	if sv.Exists() {
		stubs, err := compileStubs(sv)
		if err != nil {
			return nil, err
		}
		p.Stubs = stubs
	}
	return &p, nil
}

func compileSettings(v cue.Value, p *ir.Policy) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		field := iter.Value()
		switch label := iter.Label(); label {
		case "opacity":
			mode, err := field.String()
			if err != nil {
				return formatCUEError(err)
			}
			if mode != ir.OpacityWarn && mode != ir.OpacityError {
				return &CompileError{
					Field:   "policy.opacity",
					Message: fmt.Sprintf("opacity must be %q or %q, got %q", ir.OpacityWarn, ir.OpacityError, mode),
					Pos:     field.Pos(),
				}
			}
			p.Opacity = mode
		case "limits":
			if err := compileLimits(field, &p.Limits); err != nil {
				return err
			}
		case "allow_side_effects":
			names, err := stringList(field)
			if err != nil {
				return err
			}
			p.AllowSideEffects = names
		default:
			return &CompileError{
				Field:   "policy." + label,
				Message: "unknown policy field",
				Pos:     field.Pos(),
			}
		}
	}
	return nil
}

func compileLimits(v cue.Value, l *ir.Limits) error {
	fields := map[string]*int{
		"max_elements":         &l.MaxElements,
		"max_call_depth":       &l.MaxCallDepth,
		"max_descriptor_chain": &l.MaxDescriptorChain,
		"max_mro":              &l.MaxMRO,
		"max_loop_iterations":  &l.MaxLoopIterations,
		"max_steps":            &l.MaxSteps,
		"max_container_size":   &l.MaxContainerSize,
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		label := iter.Label()
		dst, ok := fields[label]
		if !ok {
			return &CompileError{
				Field:   "policy.limits." + label,
				Message: "unknown limit",
				Pos:     iter.Value().Pos(),
			}
		}
		n, err := iter.Value().Int64()
		if err != nil {
			return formatCUEError(err)
		}
		if n <= 0 {
			return &CompileError{
				Field:   "policy.limits." + label,
				Message: fmt.Sprintf("limit must be positive, got %d", n),
				Pos:     iter.Value().Pos(),
			}
		}
		*dst = int(n)
	}
	return nil
}

func stringList(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}
