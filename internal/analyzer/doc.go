// Package analyzer evaluates a module's top-level code abstractly to decide
// whether the module is strict.
//
// The driver walks the syntax tree (package ir) and performs every operation
// through the object protocol in package objects. Nothing from the analyzed
// module is executed natively: classes are built structurally, functions
// defined in the module are interpreted when called, and everything the
// analyzer cannot resolve becomes an Unknown value plus a diagnostic.
//
// Control flow with an unknown condition is evaluated speculatively: each
// possible path runs from the same starting state and the outcomes are
// merged, so bindings that differ between paths become Unknown.
//
// Analysis of one module is single-threaded and self-contained. Every
// analysis is bounded by the policy limits: element counts, call depth,
// loop iterations, and a per-module evaluation step budget.
package analyzer
