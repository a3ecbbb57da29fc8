// Package store provides SQLite-backed storage for analysis runs.
//
// Three tables hold the history:
//   - runs: one row per batch, with the policy hash and analyzer version
//   - verdicts: one row per (run, module), with the module content hash
//   - diagnostics: the ordered diagnostics of each verdict
//
// Verdicts double as a cache. A module whose content hash and policy hash
// match a stored verdict from the same analyzer version analyzes identically,
// so the engine reuses the stored result instead of analyzing it again.
//
// # Ordering
//
// Every query orders by seq (the engine's logical clock) and then by a
// binary-collated key, never by wall time, so reports are reproducible.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
