// Package classpath assembles the compiler classpath for a module chunk.
package classpath

import (
	"context"
	"path/filepath"

	"git.home.luguber.info/inful/groovybuild/internal/extension"
	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
)

// minOptimizeVersion is the oldest runtime whose support library ships the
// optimized classloader. Older chunks always get the full classpath.
const minOptimizeVersion = "1.6"

// Assembler builds the ordered, duplicate-free classpath a chunk compiles
// against.
type Assembler struct {
	runnerJar string
	extra     []string
	registry  *extension.Registry
}

// NewAssembler creates an assembler. runnerJar is mandatory and always
// becomes the first classpath entry so the runner's classes win resolution.
func NewAssembler(runnerJar string, extra []string, registry *extension.Registry) *Assembler {
	return &Assembler{
		runnerJar: runnerJar,
		extra:     extra,
		registry:  registry,
	}
}

// Assemble returns the classpath the compiler process is launched with:
// the runner jar first, then configured compiler jars, then module
// classpaths and dependency outputs in stable module order, then extension
// contributions. Entries are canonicalized and deduplicated while
// preserving first-seen order, so assembling the same chunk twice yields
// an identical slice.
//
// With optimize set, the result collapses to the bootstrap set alone; the
// runner then loads the full classpath lazily through its caching
// classloader instead of receiving it on the process command line.
func (a *Assembler) Assemble(ctx context.Context, chunk *projectmodel.Chunk, optimize bool) []string {
	if optimize {
		return a.Bootstrap()
	}

	set := newOrderedSet()

	// The runner jar must stay first regardless of later duplicates.
	set.add(a.runnerJar)
	for _, p := range a.extra {
		set.add(p)
	}

	chunkModules := make(map[string]bool)
	for _, m := range chunk.Modules() {
		chunkModules[m.Name] = true
	}

	includeTests := chunk.ContainsTests()
	for _, m := range chunk.Modules() {
		for _, p := range m.Classpath {
			set.add(p)
		}
		// Tests compile against the module's own production classes.
		if includeTests && m.OutputDir != "" {
			set.add(m.OutputDir)
		}
		a.addDependencyOutputs(set, m, chunkModules, includeTests)
	}

	if a.registry != nil {
		for _, p := range a.registry.ClassPath(ctx, chunk) {
			set.add(p)
		}
	}

	return set.entries()
}

// Bootstrap returns the minimal launch classpath: the runner jar and the
// configured utility jars, nothing module-specific.
func (a *Assembler) Bootstrap() []string {
	set := newOrderedSet()
	set.add(a.runnerJar)
	for _, p := range a.extra {
		set.add(p)
	}
	return set.entries()
}

// ShouldOptimize decides whether a compilation round may launch with the
// bootstrap classpath. All four conditions must hold: the compiler runs in
// a forked process, the optimization threshold is enabled, the change set
// reaches it, and every module in the chunk targets a runtime new enough
// to carry the optimized classloader.
func ShouldOptimize(inProcess bool, chunk *projectmodel.Chunk, threshold, fileCount int) bool {
	if inProcess || threshold == 0 || fileCount < threshold {
		return false
	}
	return supportsOptimization(chunk)
}

func supportsOptimization(chunk *projectmodel.Chunk) bool {
	modules := chunk.Modules()
	if len(modules) == 0 {
		return false
	}
	for _, m := range modules {
		if !projectmodel.VersionAtLeast(m.SdkVersion, minOptimizeVersion) {
			return false
		}
	}
	return true
}

// addDependencyOutputs walks the transitive dependencies of m and adds
// their outputs and library jars. Modules inside the chunk itself are
// skipped; their sources are part of this compilation.
func (a *Assembler) addDependencyOutputs(set *orderedSet, m *projectmodel.Module, chunkModules map[string]bool, includeTests bool) {
	visited := make(map[string]bool)

	var walk func(deps []*projectmodel.Module)
	walk = func(deps []*projectmodel.Module) {
		for _, dep := range deps {
			if visited[dep.Name] {
				continue
			}
			visited[dep.Name] = true
			if !chunkModules[dep.Name] {
				if dep.OutputDir != "" {
					set.add(dep.OutputDir)
				}
				if includeTests && dep.TestOutputDir != "" {
					set.add(dep.TestOutputDir)
				}
				for _, p := range dep.Classpath {
					set.add(p)
				}
			}
			walk(dep.Deps)
		}
	}
	walk(m.Deps)
}

// orderedSet keeps insertion order while rejecting duplicates.
type orderedSet struct {
	seen  map[string]bool
	order []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool)}
}

func (s *orderedSet) add(path string) {
	if path == "" {
		return
	}
	canonical := filepath.Clean(path)
	if s.seen[canonical] {
		return
	}
	s.seen[canonical] = true
	s.order = append(s.order, canonical)
}

func (s *orderedSet) entries() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
