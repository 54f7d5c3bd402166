// Package extension lets embedders contribute classpath entries and
// compilation unit patchers to every chunk compilation.
package extension

import (
	"context"
	"fmt"
	"sync"

	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
)

// Extension hooks into chunk compilation. Implementations must be safe for
// concurrent use; both methods may return nil.
type Extension interface {
	// Name identifies the extension in logs and registration errors.
	Name() string
	// CompilationClassPath returns extra classpath entries for the chunk.
	CompilationClassPath(ctx context.Context, chunk *projectmodel.Chunk) []string
	// CompilationUnitPatchers returns patcher class names handed to the
	// compiler runner.
	CompilationUnitPatchers(ctx context.Context, chunk *projectmodel.Chunk) []string
}

// Registry manages extension registration. Extensions apply in
// registration order.
type Registry struct {
	mu   sync.RWMutex
	exts []Extension
}

// NewRegistry creates a new empty extension registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an extension to the registry.
// Returns an error when the name is empty or already taken.
func (r *Registry) Register(ext Extension) error {
	if ext == nil {
		return fmt.Errorf("cannot register nil extension")
	}
	if ext.Name() == "" {
		return fmt.Errorf("extension name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.exts {
		if e.Name() == ext.Name() {
			return fmt.Errorf("extension %s already registered", ext.Name())
		}
	}
	r.exts = append(r.exts, ext)
	return nil
}

// Extensions returns the registered extensions in registration order.
func (r *Registry) Extensions() []Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Extension, len(r.exts))
	copy(out, r.exts)
	return out
}

// ClassPath collects classpath contributions from every extension in order.
func (r *Registry) ClassPath(ctx context.Context, chunk *projectmodel.Chunk) []string {
	var out []string
	for _, e := range r.Extensions() {
		out = append(out, e.CompilationClassPath(ctx, chunk)...)
	}
	return out
}

// UnitPatchers collects compilation unit patchers from every extension in order.
func (r *Registry) UnitPatchers(ctx context.Context, chunk *projectmodel.Chunk) []string {
	var out []string
	for _, e := range r.Extensions() {
		out = append(out, e.CompilationUnitPatchers(ctx, chunk)...)
	}
	return out
}
