package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/strictmod/internal/ir"
)

// Snapshot is the golden form of a scenario outcome.
type Snapshot struct {
	Scenario    string          `json:"scenario"`
	Module      string          `json:"module"`
	Strict      bool            `json:"strict"`
	Diagnostics []ir.Diagnostic `json:"diagnostics"`
}

// MarshalSnapshot renders a result as canonical JSON. The module hash is
// left out so golden files survive syntax tree encoding changes that do not
// change analysis.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	diags := result.Diagnostics
	if diags == nil {
		diags = []ir.Diagnostic{}
	}
	return ir.MarshalCanonical(Snapshot{
		Scenario:    scenarioName,
		Module:      result.Verdict.Module,
		Strict:      result.Verdict.Strict,
		Diagnostics: diags,
	})
}

// RunWithGolden executes a scenario and compares its diagnostics against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario cannot run. Mismatches fail t via goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
