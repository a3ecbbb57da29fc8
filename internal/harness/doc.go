// Package harness runs analysis conformance scenarios.
//
// A scenario is a YAML file naming one module, an optional policy, and the
// outcome the analyzer must produce:
//
//	name: attribute-on-instance
//	description: Reading a missing attribute is an AttributeError
//	module:
//	  name: shapes
//	  body:
//	    - kind: ClassDef
//	      line: 1
//	      id: C
//	      body: [{kind: Pass}]
//	    - kind: Assign
//	      line: 2
//	      targets: [{kind: Name, id: x}]
//	      value:
//	        kind: Attribute
//	        attr: y
//	        value: {kind: Call, func: {kind: Name, id: C}}
//	policy: |
//	  policy: opacity: "error"
//	expect:
//	  strict: false
//	  diagnostics:
//	    - kind: AttributeError
//	      line: 2
//	      contains: "has no attribute 'y'"
//	  unbound: [x]
//
// The module may instead live in its own file (module_file, relative to the
// scenario). The policy is CUE source in the same form as a policy
// directory; policy_dir points at such a directory instead.
//
// # Expectations
//
//   - strict: the verdict must match
//   - diagnostics: matched in emission order, one entry per diagnostic;
//     kind is required, line and contains are checked when set
//   - bindings: each named global must render to the given repr
//   - unbound: each named global must be unbound
//
// # Deterministic Testing
//
// Every scenario runs through the batch engine against a fresh in-memory
// SQLite store, with a deterministic clock and a fixed run ID, so the same
// scenario always produces byte-identical diagnostics. RunWithGolden
// snapshots them as canonical JSON under testdata/golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/imports.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
