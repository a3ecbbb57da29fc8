package compiler

import (
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/roach88/strictmod/internal/ir"
	"github.com/roach88/strictmod/internal/objects"
)

// Validation error codes (E100-E199)
const (
	ErrInvalidOpacity     = "E101" // opacity is not warn or error
	ErrInvalidLimit       = "E102" // limit is negative
	ErrInvalidStubName    = "E103" // empty or duplicate stub module name
	ErrInvalidConst       = "E104" // const type unknown or literal malformed
	ErrInvalidAlias       = "E105" // alias target malformed or dangling
	ErrInvalidStubKind    = "E106" // unknown member kind
	ErrInvalidAllowedName = "E107" // empty side-effect allow-list entry
)

// ValidationError represents a policy validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled policy. It returns all errors found rather than
// stopping at the first.
func Validate(p *ir.Policy) []ValidationError {
	var errs []ValidationError

	if p.Opacity != "" && p.Opacity != ir.OpacityWarn && p.Opacity != ir.OpacityError {
		errs = append(errs, ValidationError{
			Field:   "policy.opacity",
			Message: fmt.Sprintf("invalid opacity mode %q", p.Opacity),
			Code:    ErrInvalidOpacity,
		})
	}

	limits := []struct {
		name string
		n    int
	}{
		{"max_elements", p.Limits.MaxElements},
		{"max_call_depth", p.Limits.MaxCallDepth},
		{"max_descriptor_chain", p.Limits.MaxDescriptorChain},
		{"max_mro", p.Limits.MaxMRO},
		{"max_loop_iterations", p.Limits.MaxLoopIterations},
		{"max_steps", p.Limits.MaxSteps},
		{"max_container_size", p.Limits.MaxContainerSize},
	}
	for _, l := range limits {
		if l.n < 0 {
			errs = append(errs, ValidationError{
				Field:   "policy.limits." + l.name,
				Message: fmt.Sprintf("limit must not be negative, got %d", l.n),
				Code:    ErrInvalidLimit,
			})
		}
	}

	for i, name := range p.AllowSideEffects {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("policy.allow_side_effects[%d]", i),
				Message: "entry must be non-empty",
				Code:    ErrInvalidAllowedName,
			})
		}
	}

	seen := make(map[string]bool, len(p.Stubs))
	for i, s := range p.Stubs {
		switch {
		case strings.TrimSpace(s.Name) == "":
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("stub[%d]", i),
				Message: "stub module name must be non-empty",
				Code:    ErrInvalidStubName,
			})
		case seen[s.Name]:
			errs = append(errs, ValidationError{
				Field:   "stub." + s.Name,
				Message: fmt.Sprintf("duplicate stub module %q", s.Name),
				Code:    ErrInvalidStubName,
			})
		}
		seen[s.Name] = true
		errs = append(errs, validateMembers(p, "stub."+s.Name, s.Members)...)
	}
	return errs
}

func validateMembers(p *ir.Policy, path string, members map[string]ir.StubMember) []ValidationError {
	keys := make([]string, 0, len(members))
	for k := range members {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var errs []ValidationError
	for _, k := range keys {
		errs = append(errs, validateMember(p, path+"."+k, members[k])...)
	}
	return errs
}

func validateMember(p *ir.Policy, path string, m ir.StubMember) []ValidationError {
	switch m.Kind {
	case ir.StubConst:
		if msg := checkLiteral(m.Type, m.Literal); msg != "" {
			return []ValidationError{{Field: path, Message: msg, Code: ErrInvalidConst}}
		}
	case ir.StubFunction:
		if m.Returns != nil {
			return validateMember(p, path+".returns", *m.Returns)
		}
	case ir.StubClass:
		return validateMembers(p, path, m.Members)
	case ir.StubAlias:
		if msg := checkAlias(p, m.Target); msg != "" {
			return []ValidationError{{Field: path, Message: msg, Code: ErrInvalidAlias}}
		}
	case ir.StubUnknown:
	default:
		return []ValidationError{{
			Field:   path + ".kind",
			Message: fmt.Sprintf("unknown stub kind %q", m.Kind),
			Code:    ErrInvalidStubKind,
		}}
	}
	return nil
}

func checkLiteral(typ, lit string) string {
	switch typ {
	case ir.ConstInt:
		if _, ok := new(big.Int).SetString(lit, 0); !ok {
			return fmt.Sprintf("invalid int literal %q", lit)
		}
	case ir.ConstFloat:
		if _, err := objects.ParseFloatLiteral(lit); err != nil {
			return fmt.Sprintf("invalid float literal %q", lit)
		}
	case ir.ConstBool:
		if lit != "True" && lit != "False" {
			return fmt.Sprintf("invalid bool literal %q", lit)
		}
	case ir.ConstStr, ir.ConstBytes, ir.ConstNone, ir.ConstEllipsis:
	default:
		return fmt.Sprintf("unknown const type %q", typ)
	}
	return ""
}

// checkAlias accepts a target naming a stub module, or a member of one.
func checkAlias(p *ir.Policy, target string) string {
	if _, ok := p.Stub(target); ok {
		return ""
	}
	i := strings.LastIndexByte(target, '.')
	if i <= 0 || i == len(target)-1 {
		return fmt.Sprintf("alias target %q must be a stub module or module.member", target)
	}
	s, ok := p.Stub(target[:i])
	if !ok {
		return fmt.Sprintf("alias target %q names an unknown stub module", target)
	}
	if _, ok := s.Members[target[i+1:]]; !ok {
		return fmt.Sprintf("alias target %q names an unknown member", target)
	}
	return ""
}
