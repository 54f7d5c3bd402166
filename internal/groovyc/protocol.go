// Package groovyc launches the Groovy compiler runner, in a forked JVM or
// in-process, and parses its line protocol into compiled items and
// diagnostics.
package groovyc

// Mode selects what the compiler produces in a round.
type Mode string

const (
	// ModeStubs asks the runner to emit Java stub sources only.
	ModeStubs Mode = "stubs"
	// ModeCompile asks the runner for a full compilation.
	ModeCompile Mode = "groovyc"
)

// Positional program parameter tokens of the runner invocation:
//
//	<optimize-token> <mode-token> <parameter-file> [--indy]
const (
	TokenOptimize   = "optimize"
	TokenNoOptimize = "do_not_optimize"
	FlagIndy        = "--indy"
)

// The runner frames machine-readable output on single lines. Compiled
// items arrive as one tab-separated line; diagnostics as a block of
// key: value header lines followed by free text until the end marker.
// Anything outside these frames is compiler chatter, captured raw.
const (
	markCompiled     = "!compiled!"
	markMessageStart = "!message-start!"
	markMessageEnd   = "!message-end!"
	markProgress     = "!progress!"

	headerKind   = "kind:"
	headerFile   = "file:"
	headerLine   = "line:"
	headerColumn = "column:"
)

// Parameter file section markers. The file is line-oriented: single-value
// lines as "key: value", list sections opened by "key:" and closed by "end".
const (
	paramOutput       = "output_dir:"
	paramFinalOutput  = "final_output:"
	paramEncoding     = "encoding:"
	paramConfigScript = "config_script:"
	paramSources      = "sources:"
	paramClasspath    = "classpath:"
	paramClassToSrc   = "class_to_source:"
	paramPatchers     = "patchers:"
	paramSectionEnd   = "end"
)
