// Package stubs coordinates the stub half of the two-pass build: per-target
// stub output roots, stub-to-source bookkeeping, and the post-compile hook
// that reschedules sources whose stubs the primary compiler touched.
package stubs

import (
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/groovybuild/internal/buildctx"
	"git.home.luguber.info/inful/groovybuild/internal/errors"
	"git.home.luguber.info/inful/groovybuild/internal/groovyc"
	"git.home.luguber.info/inful/groovybuild/internal/logfields"
	"git.home.luguber.info/inful/groovybuild/internal/metrics"
	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
)

// Coordinator owns the stub generation directories of a build and the
// bookkeeping connecting emitted stubs back to their sources.
type Coordinator struct {
	root     string
	bctx     *buildctx.Context
	recorder metrics.Recorder
}

// NewCoordinator creates a coordinator rooted at the configured stub
// directory.
func NewCoordinator(root string, bctx *buildctx.Context, rec metrics.Recorder) *Coordinator {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Coordinator{root: root, bctx: bctx, recorder: rec}
}

// TargetRoot is the stub output directory of one target,
// <root>/<module>/<kind>.
func (c *Coordinator) TargetRoot(t projectmodel.Target) string {
	return filepath.Join(c.root, t.Module.Name, string(t.Kind))
}

// PrepareRoots clears and recreates every chunk target's stub output
// directory and returns the directories keyed by target ID. Stale stubs
// must never survive into a new stub round, so any failure here is fatal
// for the round.
func (c *Coordinator) PrepareRoots(chunk *projectmodel.Chunk) (map[string]string, error) {
	outputs := make(map[string]string, len(chunk.Targets()))
	for _, t := range chunk.Targets() {
		dir := c.TargetRoot(t)
		if err := os.RemoveAll(dir); err != nil {
			return nil, errors.StubRootError(dir, err).WithContext("target", t.ID())
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.StubRootError(dir, err).WithContext("target", t.ID())
		}
		outputs[t.ID()] = dir
	}
	return outputs, nil
}

// RememberStubs records which source produced each emitted stub so the
// post-compile hook can find its way back.
func (c *Coordinator) RememberStubs(chunk *projectmodel.Chunk, items []groovyc.CompiledItem) {
	for _, item := range items {
		c.bctx.RememberStub(chunk, item.OutputPath, item.SourcePath)
	}
}

// TempSourceRoots lists the stub directories the primary-language compiler
// must treat as additional source roots, in target order.
func (c *Coordinator) TempSourceRoots(chunk *projectmodel.Chunk) []string {
	roots := make([]string, 0, len(chunk.Targets()))
	for _, t := range chunk.Targets() {
		roots = append(roots, c.TargetRoot(t))
	}
	return roots
}

// StubCompiled is the hook the primary-language compiler calls for every
// stub source it compiled. When the originating source is not already in
// this round's change set, it is queued for the next round and the chunk's
// dirty marker is set; recompiling the stub means its signature may have
// changed in a way only a real compilation of the source resolves.
// Bookkeeping failures are logged, never escalated: a missed reschedule
// degrades incrementality, not correctness of the current round.
func (c *Coordinator) StubCompiled(chunk *projectmodel.Chunk, stubPath string) {
	source, ok := c.bctx.SourceForStub(chunk, stubPath)
	if !ok {
		return
	}

	dirty, err := c.bctx.Dirty.IsDirty(source)
	if err != nil {
		slog.Error("Could not check dirty state of stub source", logfields.Source(source), logfields.Error(err))
		return
	}
	if dirty {
		return
	}

	owner, _ := chunk.Owner(source)
	if err := c.bctx.Dirty.MarkDirty(buildctx.RoundNext, owner, source); err != nil {
		slog.Error("Could not queue stub source for next round", logfields.Source(source), logfields.Error(err))
		return
	}
	c.bctx.SetDirtyMarker(chunk)
	c.recorder.AddStubsRescheduled(1)
	slog.Debug("Queued source for next round after stub recompilation",
		logfields.Source(source),
		logfields.Target(owner.ID()))
}

// ChunkFinished drops the chunk's stub bookkeeping.
func (c *Coordinator) ChunkFinished(chunk *projectmodel.Chunk) {
	c.bctx.ChunkFinished(chunk)
}
