package projectmodel

import (
	"path/filepath"
	"strings"
)

// Chunk is an ordered group of targets compiled together. Modules with
// cyclic dependencies form multi-target chunks; everything else compiles
// as a chunk of one.
type Chunk struct {
	targets []Target
}

// NewChunk builds a chunk over the given targets. Order is preserved and
// the first target is the representative.
func NewChunk(targets ...Target) *Chunk {
	return &Chunk{targets: targets}
}

// Targets returns the chunk's targets in order.
func (c *Chunk) Targets() []Target {
	return c.targets
}

// Representative returns the target whose module hosts shared chunk
// artifacts (stub roots, compiler output attribution).
func (c *Chunk) Representative() Target {
	return c.targets[0]
}

// Modules returns the distinct modules of the chunk in target order.
func (c *Chunk) Modules() []*Module {
	seen := make(map[string]bool, len(c.targets))
	var out []*Module
	for _, t := range c.targets {
		if seen[t.Module.Name] {
			continue
		}
		seen[t.Module.Name] = true
		out = append(out, t.Module)
	}
	return out
}

// ContainsTests reports whether any target in the chunk compiles tests.
func (c *Chunk) ContainsTests() bool {
	for _, t := range c.targets {
		if t.IsTests() {
			return true
		}
	}
	return false
}

// Name is the chunk's presentable name, stable across builds.
func (c *Chunk) Name() string {
	names := make([]string, 0, len(c.targets))
	for _, m := range c.Modules() {
		names = append(names, m.Name)
	}
	kind := string(KindProduction)
	if c.ContainsTests() {
		kind = string(KindTest)
	}
	return strings.Join(names, "+") + ":" + kind
}

// OwnsOutput reports whether the path lies under one of the chunk's
// target output directories.
func (c *Chunk) OwnsOutput(path string) bool {
	for _, t := range c.targets {
		if t.OutputDir() != "" && strings.HasPrefix(path, withSlash(t.OutputDir())) {
			return true
		}
	}
	return false
}

// Owner resolves the target whose source roots contain path. The boolean
// is false when no target claims the path; the representative target is
// returned then so callers have a usable fallback.
func (c *Chunk) Owner(path string) (Target, bool) {
	for _, t := range c.targets {
		for _, root := range t.SourceRoots() {
			if underDir(root, path) {
				return t, true
			}
		}
	}
	return c.Representative(), false
}

func underDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func withSlash(dir string) string {
	if strings.HasSuffix(dir, "/") {
		return dir
	}
	return dir + "/"
}
