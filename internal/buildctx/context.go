// Package buildctx carries the per-build state shared between compilation
// rounds: dirty-file access, output and dependency registration, diagnostic
// delivery, and the chunk-scoped flags the round driver steers by.
package buildctx

import (
	"sync"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/groovybuild/internal/diag"
	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
)

// Round addresses one of the two rounds dirty marking can target.
type Round int

const (
	// RoundCurrent is the round being compiled right now.
	RoundCurrent Round = iota
	// RoundNext is the round that follows the current one.
	RoundNext
)

// DirtyFiles exposes the change set for the current round and the marking
// operations that feed the next one.
type DirtyFiles interface {
	// ForEachDirty visits every file dirty in the current round together
	// with the target owning it. Iteration stops at the first error.
	ForEachDirty(fn func(target projectmodel.Target, path string) error) error
	// IsDirty reports whether the file is already scheduled for
	// recompilation, in the current round or queued for the next one.
	IsDirty(path string) (bool, error)
	// MarkDirty queues the file for recompilation in the given round.
	MarkDirty(round Round, target projectmodel.Target, path string) error
}

// OutputRegistrar records produced output files against the sources they
// came from.
type OutputRegistrar interface {
	RegisterOutput(target projectmodel.Target, outputPath string, sourcePaths []string) error
}

// DependencyRegistrar feeds the dependency graph used for incremental
// invalidation.
type DependencyRegistrar interface {
	// AssociateClass links an emitted class file and its JVM binary name
	// back to the source it was compiled from. classBytes holds the class
	// file contents for registrars that analyze bytecode; registrars that
	// only record the association may ignore it.
	AssociateClass(outputPath, sourcePath, binaryName string, classBytes []byte) error
	// RegisterCompiled marks sources as successfully compiled regardless
	// of how many outputs each produced.
	RegisterCompiled(sourcePaths []string) error
}

// Context is the shared state of one build session.
type Context struct {
	BuildID string
	Project *projectmodel.Project

	Dirty    DirtyFiles
	Outputs  OutputRegistrar
	Deps     DependencyRegistrar
	Messages diag.Sink

	mu     sync.Mutex
	chunks map[string]*chunkState
}

// chunkState is the per-chunk slice of context: the stub-to-source index,
// the rebuild escalation flag, and the next-round dirty marker.
type chunkState struct {
	stubToSource    map[string]string
	rebuildOrdered  bool
	dirtyMarkedNext bool
}

// NewContext creates a build context with a fresh build ID. Collaborators
// default to safe no-ops; callers inject real ones with the With methods.
func NewContext(project *projectmodel.Project) *Context {
	return &Context{
		BuildID:  uuid.NewString(),
		Project:  project,
		Dirty:    noopDirty{},
		Outputs:  noopOutputs{},
		Deps:     noopDeps{},
		Messages: diag.NewSlogSink(nil),
		chunks:   make(map[string]*chunkState),
	}
}

type noopDirty struct{}

func (noopDirty) ForEachDirty(func(projectmodel.Target, string) error) error { return nil }
func (noopDirty) IsDirty(string) (bool, error)                               { return false, nil }
func (noopDirty) MarkDirty(Round, projectmodel.Target, string) error         { return nil }

type noopOutputs struct{}

func (noopOutputs) RegisterOutput(projectmodel.Target, string, []string) error { return nil }

type noopDeps struct{}

func (noopDeps) AssociateClass(string, string, string, []byte) error { return nil }
func (noopDeps) RegisterCompiled([]string) error                     { return nil }

// WithDirtyFiles injects the dirty-file collaborator.
func (c *Context) WithDirtyFiles(d DirtyFiles) *Context {
	c.Dirty = d
	return c
}

// WithOutputs injects the output registrar.
func (c *Context) WithOutputs(o OutputRegistrar) *Context {
	c.Outputs = o
	return c
}

// WithDependencies injects the dependency registrar.
func (c *Context) WithDependencies(d DependencyRegistrar) *Context {
	c.Deps = d
	return c
}

// WithMessages injects the diagnostic sink.
func (c *Context) WithMessages(s diag.Sink) *Context {
	c.Messages = s
	return c
}

func (c *Context) state(chunk *projectmodel.Chunk) *chunkState {
	name := chunk.Name()
	st, ok := c.chunks[name]
	if !ok {
		st = &chunkState{stubToSource: make(map[string]string)}
		c.chunks[name] = st
	}
	return st
}

// RememberStub records that stubPath was generated from sourcePath.
func (c *Context) RememberStub(chunk *projectmodel.Chunk, stubPath, sourcePath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state(chunk).stubToSource[stubPath] = sourcePath
}

// SourceForStub resolves the source a stub was generated from.
func (c *Context) SourceForStub(chunk *projectmodel.Chunk, stubPath string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	src, ok := c.state(chunk).stubToSource[stubPath]
	return src, ok
}

// Stubs returns a copy of the chunk's stub-to-source index.
func (c *Context) Stubs(chunk *projectmodel.Chunk) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state(chunk)
	out := make(map[string]string, len(st.stubToSource))
	for k, v := range st.stubToSource {
		out[k] = v
	}
	return out
}

// OrderChunkRebuild sets the flag remembering that this chunk has been
// escalated to a full rebuild once.
func (c *Context) OrderChunkRebuild(chunk *projectmodel.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state(chunk).rebuildOrdered = true
}

// ChunkRebuildOrdered reports whether a rebuild has already been ordered
// for the chunk during this build session.
func (c *Context) ChunkRebuildOrdered(chunk *projectmodel.Chunk) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state(chunk).rebuildOrdered
}

// ClearChunkRebuild resets the escalation flag.
func (c *Context) ClearChunkRebuild(chunk *projectmodel.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state(chunk).rebuildOrdered = false
}

// SetDirtyMarker remembers that files were queued for the next round while
// processing this chunk.
func (c *Context) SetDirtyMarker(chunk *projectmodel.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state(chunk).dirtyMarkedNext = true
}

// DirtyMarkerSet reports whether files were queued for the next round.
func (c *Context) DirtyMarkerSet(chunk *projectmodel.Chunk) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state(chunk).dirtyMarkedNext
}

// ClearDirtyMarker resets the next-round marker once the compiling round
// has run.
func (c *Context) ClearDirtyMarker(chunk *projectmodel.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state(chunk).dirtyMarkedNext = false
}

// ChunkFinished drops chunk-scoped state that must not leak into the next
// chunk, notably the stub-to-source index.
func (c *Context) ChunkFinished(chunk *projectmodel.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.chunks, chunk.Name())
}

// SendMessage delivers a diagnostic through the configured sink.
func (c *Context) SendMessage(msg diag.Message) {
	if c.Messages != nil {
		c.Messages.Send(msg)
	}
}

// NewBuildID is exposed for components that stamp artifacts outside a
// full context, like the watch daemon naming scheduled sessions.
func NewBuildID() string {
	return uuid.NewString()
}
