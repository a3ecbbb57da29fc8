package ir

// Version constants recorded with every stored run.
const (
	// IRVersion is the syntax tree and verdict schema version.
	IRVersion = "1"

	// AnalyzerVersion is the strictmod analyzer version. Cached verdicts from
	// a different analyzer version are never reused.
	AnalyzerVersion = "0.1.0"
)
