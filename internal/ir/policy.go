package ir

import "fmt"

// Opacity modes decide how operations on unknown values are reported.
const (
	OpacityWarn  = "warn"
	OpacityError = "error"
)

// Limits bound every analysis so adversarial input always terminates.
type Limits struct {
	MaxElements        int `json:"max_elements"`
	MaxCallDepth       int `json:"max_call_depth"`
	MaxDescriptorChain int `json:"max_descriptor_chain"`
	MaxMRO             int `json:"max_mro"`
	MaxLoopIterations  int `json:"max_loop_iterations"`
	MaxSteps           int `json:"max_steps"`
	MaxContainerSize   int `json:"max_container_size"`
}

// DefaultLimits returns the limits used when a policy sets none.
func DefaultLimits() Limits {
	return Limits{
		MaxElements:        1024,
		MaxCallDepth:       128,
		MaxDescriptorChain: 32,
		MaxMRO:             256,
		MaxLoopIterations:  10000,
		MaxSteps:           1_000_000,
		MaxContainerSize:   100000,
	}
}

// WithDefaults fills zero fields from DefaultLimits.
func (l Limits) WithDefaults() Limits {
	d := DefaultLimits()
	if l.MaxElements <= 0 {
		l.MaxElements = d.MaxElements
	}
	if l.MaxCallDepth <= 0 {
		l.MaxCallDepth = d.MaxCallDepth
	}
	if l.MaxDescriptorChain <= 0 {
		l.MaxDescriptorChain = d.MaxDescriptorChain
	}
	if l.MaxMRO <= 0 {
		l.MaxMRO = d.MaxMRO
	}
	if l.MaxLoopIterations <= 0 {
		l.MaxLoopIterations = d.MaxLoopIterations
	}
	if l.MaxSteps <= 0 {
		l.MaxSteps = d.MaxSteps
	}
	if l.MaxContainerSize <= 0 {
		l.MaxContainerSize = d.MaxContainerSize
	}
	return l
}

// Policy configures an analysis run.
type Policy struct {
	Opacity          string       `json:"opacity"`
	Limits           Limits       `json:"limits"`
	AllowSideEffects []string     `json:"allow_side_effects,omitempty"`
	Stubs            []StubModule `json:"stubs,omitempty"`
}

// DefaultPolicy soft-degrades on unknown values and uses DefaultLimits.
func DefaultPolicy() Policy {
	return Policy{Opacity: OpacityWarn, Limits: DefaultLimits()}
}

// Validate checks the policy for values the analyzer cannot honor.
func (p Policy) Validate() error {
	switch p.Opacity {
	case "", OpacityWarn, OpacityError:
	default:
		return fmt.Errorf("invalid opacity mode %q (want %q or %q)", p.Opacity, OpacityWarn, OpacityError)
	}
	seen := make(map[string]bool, len(p.Stubs))
	for _, s := range p.Stubs {
		if s.Name == "" {
			return fmt.Errorf("stub module with empty name")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate stub module %q", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// Stub returns the stub module with the given name.
func (p Policy) Stub(name string) (StubModule, bool) {
	for _, s := range p.Stubs {
		if s.Name == name {
			return s, true
		}
	}
	return StubModule{}, false
}

// Severity maps a diagnostic kind to its severity under this policy.
func (p Policy) Severity(kind DiagnosticKind) Severity {
	if kind == KindOpacityError && p.Opacity == OpacityError {
		return SeverityError
	}
	return kind.DefaultSeverity()
}

// Stub member kinds.
const (
	StubConst    = "const"
	StubFunction = "function"
	StubClass    = "class"
	StubAlias    = "alias"
	StubUnknown  = "unknown"
)

// StubModule declares the importable surface of a module that is not
// analyzed itself.
type StubModule struct {
	Name    string                `json:"name"`
	Members map[string]StubMember `json:"members"`
}

// StubMember declares one attribute of a stub module or stub class.
type StubMember struct {
	Kind       string                `json:"kind"`
	Type       string                `json:"type,omitempty"`    // const literal type
	Literal    string                `json:"literal,omitempty"` // const literal text
	Returns    *StubMember           `json:"returns,omitempty"` // function result; nil is unknown
	SideEffect bool                  `json:"side_effect,omitempty"`
	Target     string                `json:"target,omitempty"` // alias: "module.member"
	Members    map[string]StubMember `json:"members,omitempty"`
}
