package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/strictmod/internal/ir"
)

// Scenario defines an analysis conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Module is the inline syntax tree to analyze.
	Module *ir.Module `yaml:"module,omitempty"`

	// ModuleFile is a syntax tree file, relative to the scenario file.
	// Exactly one of Module and ModuleFile is set.
	ModuleFile string `yaml:"module_file,omitempty"`

	// Policy is CUE source holding policy and stub declarations.
	Policy string `yaml:"policy,omitempty"`

	// PolicyDir is a CUE policy directory, relative to the scenario file.
	// At most one of Policy and PolicyDir is set.
	PolicyDir string `yaml:"policy_dir,omitempty"`

	// RunID is an optional fixed run ID. Defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Expect is the outcome the analyzer must produce.
	Expect Expect `yaml:"expect"`
}

// Expect is the expected analysis outcome. Unset parts are not checked.
type Expect struct {
	// Strict is the expected verdict.
	Strict *bool `yaml:"strict,omitempty"`

	// Diagnostics lists every expected diagnostic in emission order. Nil
	// skips the check; an empty list requires no diagnostics.
	Diagnostics []ExpectedDiagnostic `yaml:"diagnostics"`

	// Bindings maps global names to their expected repr.
	Bindings map[string]string `yaml:"bindings,omitempty"`

	// Unbound lists globals that must not be bound.
	Unbound []string `yaml:"unbound,omitempty"`
}

// ExpectedDiagnostic matches one diagnostic.
type ExpectedDiagnostic struct {
	Kind     string `yaml:"kind"`
	Line     int    `yaml:"line,omitempty"`
	Contains string `yaml:"contains,omitempty"`
	Severity string `yaml:"severity,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Relative module_file
// and policy_dir paths are resolved against the scenario's directory.
// Returns an error if the file doesn't exist, is malformed, contains unknown
// fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	if s.ModuleFile != "" && !filepath.IsAbs(s.ModuleFile) {
		s.ModuleFile = filepath.Join(base, s.ModuleFile)
	}
	if s.PolicyDir != "" && !filepath.IsAbs(s.PolicyDir) {
		s.PolicyDir = filepath.Join(base, s.PolicyDir)
	}
	if s.ModuleFile != "" {
		if _, err := os.Stat(s.ModuleFile); err != nil {
			return nil, fmt.Errorf("invalid scenario: module file not found: %s", s.ModuleFile)
		}
	}
	return s, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Module == nil && s.ModuleFile == "":
		return fmt.Errorf("one of module or module_file is required")
	case s.Module != nil && s.ModuleFile != "":
		return fmt.Errorf("module and module_file are mutually exclusive")
	case s.Module != nil && s.Module.Name == "":
		return fmt.Errorf("module.name is required")
	}

	if s.Policy != "" && s.PolicyDir != "" {
		return fmt.Errorf("policy and policy_dir are mutually exclusive")
	}

	if s.Expect.Strict == nil && s.Expect.Diagnostics == nil &&
		len(s.Expect.Bindings) == 0 && len(s.Expect.Unbound) == 0 {
		return fmt.Errorf("expect must check at least one of strict, diagnostics, bindings or unbound")
	}

	for i, d := range s.Expect.Diagnostics {
		if d.Kind == "" {
			return fmt.Errorf("expect.diagnostics[%d]: kind is required", i)
		}
		if !isKnownDiagnosticKind(d.Kind) {
			return fmt.Errorf("expect.diagnostics[%d]: unknown kind %q", i, d.Kind)
		}
		switch ir.Severity(d.Severity) {
		case "", ir.SeverityError, ir.SeverityWarning:
		default:
			return fmt.Errorf("expect.diagnostics[%d]: unknown severity %q", i, d.Severity)
		}
		if d.Line < 0 {
			return fmt.Errorf("expect.diagnostics[%d]: line must be non-negative", i)
		}
	}
	return nil
}

func isKnownDiagnosticKind(kind string) bool {
	for _, k := range ir.AllDiagnosticKinds {
		if string(k) == kind {
			return true
		}
	}
	return false
}
