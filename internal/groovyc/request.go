package groovyc

import "git.home.luguber.info/inful/groovybuild/internal/diag"

// Request describes one compiler invocation. Both hosting modes consume
// the same request and produce the same Result.
type Request struct {
	Mode     Mode
	Optimize bool

	// Classpath is the full assembled chunk classpath, runner jar first.
	// It always goes into the parameter file.
	Classpath []string
	// LaunchClasspath, when set, replaces Classpath on the process command
	// line. Optimized rounds pass the bootstrap set here while the runner
	// loads Classpath lazily from the parameter file.
	LaunchClasspath []string
	// Sources are the files to compile, insertion order preserved.
	Sources []string
	// OutputDir is the shared compiler output directory for the chunk.
	OutputDir string
	// FinalOutputDir is the representative target's real output root,
	// forwarded so the compiler can resolve previously built classes.
	FinalOutputDir string
	// ClassToSource maps JVM binary names of classes whose sources are not
	// part of this round to the sources that produced them.
	ClassToSource map[string]string
	// Patchers are compilation unit patcher class names from extensions.
	Patchers []string

	Encoding     string
	ConfigScript string
	Indy         bool
}

// launchClasspath is the classpath handed to the process launcher.
func (r *Request) launchClasspath() []string {
	if len(r.LaunchClasspath) > 0 {
		return r.LaunchClasspath
	}
	return r.Classpath
}

// CompiledItem is one output file the compiler reported, attributed to the
// source it came from.
type CompiledItem struct {
	OutputPath string
	SourcePath string
}

// Result is the normalized outcome of a compiler invocation.
type Result struct {
	Items    []CompiledItem
	Messages []diag.Message
	// ShouldRetry signals the failure smells like staleness rather than a
	// genuine source error, warranting a chunk rebuild.
	ShouldRetry bool
	ExitCode    int
}

// HasErrors reports whether any diagnostic is an error.
func (r *Result) HasErrors() bool {
	for _, m := range r.Messages {
		if m.Kind.Severe() {
			return true
		}
	}
	return false
}
