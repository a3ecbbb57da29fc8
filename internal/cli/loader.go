package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/strictmod/internal/compiler"
	"github.com/roach88/strictmod/internal/engine"
	"github.com/roach88/strictmod/internal/ir"
)

// Error codes for command-level failures. Policy load codes (E001-E007)
// come from the compiler package; validation codes are E1xx.
const (
	ErrCodeNoInputs      = "E010" // No syntax tree files found
	ErrCodeDatabase      = "E011" // Database open or query failed
	ErrCodeRunNotFound   = "E012" // No such run in the database
	ErrCodeAnalysis      = "E013" // Batch analysis aborted
	ErrCodeNotStrict     = "E020" // One or more modules are not strict
	ErrCodeInvalidPolicy = "E021" // Policy failed validation
	ErrCodeTestFailed    = "E022" // One or more scenarios failed
)

// syntaxTreeExts lists the extensions picked up when walking directories.
var syntaxTreeExts = map[string]bool{".json": true, ".yaml": true, ".yml": true}

// FindModuleFiles expands paths into syntax tree files. Directories are
// walked for .json, .yaml and .yml files in lexical order; files named
// directly are taken regardless of extension. Argument order is preserved
// and repeated files are kept once.
func FindModuleFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		clean := filepath.Clean(path)
		if !seen[clean] {
			seen[clean] = true
			files = append(files, clean)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("input not found: %s", p)
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		var found []string
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && syntaxTreeExts[filepath.Ext(path)] {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error scanning %s: %w", p, err)
		}
		sort.Strings(found)
		for _, f := range found {
			add(f)
		}
	}
	return files, nil
}

// LoadJobs decodes each file into an engine job. A file that fails to
// decode becomes a job carrying the error, so it still gets a verdict.
func LoadJobs(files []string) []engine.Job {
	jobs := make([]engine.Job, len(files))
	for i, f := range files {
		m, err := ir.DecodeModuleFile(f)
		jobs[i] = engine.Job{Path: filepath.ToSlash(f), Module: m, Err: err}
	}
	return jobs
}

// PolicyOverrides are command-line settings applied on top of a policy
// directory. Zero values leave the policy unchanged.
type PolicyOverrides struct {
	Opacity     string
	MaxElements int
}

// LoadPolicy loads the policy in dir, or the default policy when dir is
// empty, applies overrides and validates the result. Load failures come back
// as *compiler.LoadError and validation failures as a PolicyError.
func LoadPolicy(dir string, overrides PolicyOverrides) (*ir.Policy, error) {
	var p *ir.Policy
	if dir == "" {
		d := ir.DefaultPolicy()
		p = &d
	} else {
		loaded, err := compiler.LoadPolicyDir(dir)
		if err != nil {
			return nil, err
		}
		p = loaded
	}

	if overrides.Opacity != "" {
		p.Opacity = overrides.Opacity
	}
	if overrides.MaxElements != 0 {
		p.Limits.MaxElements = overrides.MaxElements
	}

	if errs := compiler.Validate(p); len(errs) > 0 {
		return nil, &PolicyError{Errors: errs}
	}
	return p, nil
}

// PolicyError reports a policy that loaded but failed validation.
type PolicyError struct {
	Errors []compiler.ValidationError
}

func (e *PolicyError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%s (and %d more)", e.Errors[0].Error(), len(e.Errors)-1)
}

// policyExitError maps a LoadPolicy error to an exit error and a response
// code for the formatter.
func policyExitError(err error) (*ExitError, string) {
	var pe *PolicyError
	if errors.As(err, &pe) {
		return WrapExitError(ExitFailure, "invalid policy", err), ErrCodeInvalidPolicy
	}
	le := compiler.AsLoadError(err)
	code := ExitCommandError
	if le.Code == compiler.ErrCodeCompile {
		code = ExitFailure
	}
	return WrapExitError(code, "failed to load policy", err), le.Code
}
