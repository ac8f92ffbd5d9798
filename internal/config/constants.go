package config

// ConfigFileName is looked up in the project root by the CLI.
const ConfigFileName = "lumen.yaml"

// IsTestMode normalizes volatile output (session ids, timings) in tests.
// Set once at startup.
var IsTestMode = false

// Builtin type paths the engine needs to name in diagnostics and the
// fixture corpus.
const (
	VecTypeName    = "Vec"
	MapTypeName    = "Map"
	OptionTypeName = "Option"
	ResultTypeName = "Result"
	BoolTypeName   = "Bool"
	IntTypeName    = "Int"
	StringTypeName = "String"
)
