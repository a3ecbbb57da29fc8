// Package engine runs strict-module analysis over a batch of modules.
//
// Each module is analyzed in isolation: its own step budget, its own
// diagnostics, and panic recovery so one broken module cannot take down the
// batch. Modules are analyzed concurrently up to the configured job limit,
// but results are always returned in input order and stamped with logical
// sequence numbers from Clock. Scheduling never shows up in the output.
//
// When a store is attached, the engine looks up verdicts by (module hash,
// policy hash, analyzer version) before analyzing, and records every verdict
// of the run afterwards. Writes happen on the calling goroutine after all
// analysis completes, so the store sees a single writer.
package engine
