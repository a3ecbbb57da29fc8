// Package ir provides the data types shared by every other strictmod package:
// the module syntax tree consumed by the analyzer, diagnostics and verdicts
// it produces, and the compiled policy that configures it.
//
// This package contains type definitions and canonical hashing only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types in the syntax tree; float literals are kept as text
//   - All JSON tags use snake_case
//   - Diagnostics are ordered by emission, never by wall-clock time
package ir
