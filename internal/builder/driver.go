package builder

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/groovybuild/internal/buildctx"
	"git.home.luguber.info/inful/groovybuild/internal/classpath"
	"git.home.luguber.info/inful/groovybuild/internal/config"
	"git.home.luguber.info/inful/groovybuild/internal/depgraph"
	"git.home.luguber.info/inful/groovybuild/internal/diag"
	"git.home.luguber.info/inful/groovybuild/internal/errors"
	"git.home.luguber.info/inful/groovybuild/internal/extension"
	"git.home.luguber.info/inful/groovybuild/internal/groovyc"
	"git.home.luguber.info/inful/groovybuild/internal/logfields"
	"git.home.luguber.info/inful/groovybuild/internal/metrics"
	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
	"git.home.luguber.info/inful/groovybuild/internal/reconcile"
	"git.home.luguber.info/inful/groovybuild/internal/stubs"
)

// Round describes one driver pass over a chunk.
type Round struct {
	Chunk *projectmodel.Chunk
	// ForStubs selects stub generation instead of full compilation.
	ForStubs bool
	// FullRebuild marks a build session that already recompiles every
	// source, so retry signals never escalate to a chunk rebuild.
	FullRebuild bool
}

// compilerRunner is the slice of the compiler invoker the driver uses.
type compilerRunner interface {
	Invoke(ctx context.Context, req *groovyc.Request) (*groovyc.Result, error)
	InProcess() bool
}

// dependencyUpdater feeds a round's compiled items into the dependency
// graph and the output index.
type dependencyUpdater interface {
	Register(chunk *projectmodel.Chunk, items []groovyc.CompiledItem) error
}

// ClassIndex resolves classes compiled in earlier rounds so the compiler
// can link against sources it is not recompiling.
type ClassIndex interface {
	// ClassToSource maps JVM binary names to the source files that
	// produced them, for everything the index tracks in the chunk.
	ClassToSource(ctx context.Context, chunk *projectmodel.Chunk) (map[string]string, error)
}

// Driver runs compilation rounds. One driver serves a whole build session;
// all per-chunk state lives in the build context.
type Driver struct {
	cfg       config.CompilerConfig
	stubGlobs []string
	bctx      *buildctx.Context
	cp        *classpath.Assembler
	registry  *extension.Registry
	compiler  compilerRunner
	stubs     *stubs.Coordinator
	deps      dependencyUpdater
	escalator *Escalator
	index     ClassIndex
	recorder  metrics.Recorder
}

// NewDriver wires a round driver from its collaborators. index may be nil
// when no output index is available, at the cost of joint compilation
// against previously built classes.
func NewDriver(cfg *config.Config, bctx *buildctx.Context, assembler *classpath.Assembler, registry *extension.Registry,
	invoker *groovyc.Invoker, stubCoord *stubs.Coordinator, updater *depgraph.Updater, index ClassIndex, rec metrics.Recorder) *Driver {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Driver{
		cfg:       cfg.Compiler,
		stubGlobs: cfg.Stubs.ExcludeGlobs,
		bctx:      bctx,
		cp:        assembler,
		registry:  registry,
		compiler:  invoker,
		stubs:     stubCoord,
		deps:      updater,
		escalator: NewEscalator(bctx),
		index:     index,
		recorder:  rec,
	}
}

// Run executes one compilation round and returns the verdict steering the
// build loop. Failures come back as build errors scoped to this chunk;
// whatever happens, a compiling round always drops the next-round dirty
// marker before returning so a stale marker cannot force spurious passes.
func (d *Driver) Run(ctx context.Context, round Round) (Verdict, error) {
	if !round.ForStubs {
		defer d.bctx.ClearDirtyMarker(round.Chunk)
	}
	verdict, err := d.run(ctx, round)
	if err != nil {
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			return VerdictAbort, err
		}
		var be *errors.BuildError
		if !stderrors.As(err, &be) {
			err = errors.ChunkBuildError(round.Chunk.Name(), err)
		}
		return VerdictAbort, err
	}
	return verdict, nil
}

func (d *Driver) run(ctx context.Context, round Round) (Verdict, error) {
	chunk := round.Chunk
	mode := groovyc.ModeCompile
	if round.ForStubs {
		mode = groovyc.ModeStubs
	}

	sources, inRound, err := d.collectSources(round)
	if err != nil {
		return VerdictAbort, err
	}
	if len(sources) == 0 {
		if d.bctx.DirtyMarkerSet(chunk) {
			return VerdictAdditionalPassRequired, nil
		}
		return VerdictNothingDone, nil
	}
	slog.Debug("Compilation round starting",
		logfields.Chunk(chunk.Name()), logfields.Mode(string(mode)), logfields.Files(len(sources)))

	finalOutputs, ok := d.outputRoots(chunk)
	if !ok {
		return VerdictAbort, nil
	}
	generation := finalOutputs
	if round.ForStubs {
		generation, err = d.stubs.PrepareRoots(chunk)
		if err != nil {
			return VerdictAbort, err
		}
	}
	rep := chunk.Representative()
	compilerOutput := generation[rep.ID()]

	classToSource, err := d.jointClasses(ctx, chunk, inRound)
	if err != nil {
		return VerdictAbort, err
	}

	req := d.buildRequest(ctx, chunk, mode, sources, compilerOutput, finalOutputs[rep.ID()], classToSource)
	res, err := d.compiler.Invoke(ctx, req)
	if err != nil {
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			return VerdictAbort, err
		}
		if stderrors.Is(err, groovyc.ErrLaunch) {
			return VerdictAbort, errors.LaunchError(err).WithContext(logfields.KeyChunk, chunk.Name())
		}
		return VerdictAbort, err
	}

	compiled := d.placeOutputs(chunk, compilerOutput, generation, res.Items)

	if d.escalator.RebuildNeeded(chunk, res.ShouldRetry, round.FullRebuild) {
		return VerdictChunkRebuildRequired, nil
	}

	if round.ForStubs {
		d.stubs.RememberStubs(chunk, compiled)
	} else if err := d.deps.Register(chunk, compiled); err != nil {
		return VerdictAbort, err
	}

	for _, msg := range res.Messages {
		d.bctx.SendMessage(msg)
	}

	if d.bctx.DirtyMarkerSet(chunk) {
		return VerdictAdditionalPassRequired, nil
	}
	return VerdictOK, nil
}

// collectSources gathers the round's change set in enumeration order,
// filtered down to compilable sources for the round's mode.
func (d *Driver) collectSources(round Round) ([]string, map[string]bool, error) {
	var sources []string
	inRound := make(map[string]bool)
	err := d.bctx.Dirty.ForEachDirty(func(_ projectmodel.Target, path string) error {
		if inRound[path] || !d.wantSource(path, round.ForStubs) {
			return nil
		}
		inRound[path] = true
		sources = append(sources, path)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("enumerating dirty files: %w", err)
	}
	return sources, inRound, nil
}

func (d *Driver) wantSource(path string, forStubs bool) bool {
	switch {
	case strings.HasSuffix(path, ".groovy") || strings.HasSuffix(path, ".gpp"):
	case strings.HasSuffix(path, ".java"):
		// Java enters the set only for joint single-pass compilation;
		// stubs are generated from Groovy sources alone.
		if forStubs || !d.cfg.JointCompileJava {
			return false
		}
	default:
		return false
	}
	if forStubs && d.excludedFromStubs(path) {
		return false
	}
	return true
}

func (d *Driver) excludedFromStubs(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, pattern := range d.stubGlobs {
		if ok, err := doublestar.Match(pattern, slashed); err == nil && ok {
			return true
		}
	}
	return false
}

// outputRoots resolves every target's output directory. A target without
// one is a configuration error: it is reported through the message sink
// and the round aborts before attempting any work.
func (d *Driver) outputRoots(chunk *projectmodel.Chunk) (map[string]string, bool) {
	roots := make(map[string]string, len(chunk.Targets()))
	for _, t := range chunk.Targets() {
		dir := t.OutputDir()
		if dir == "" {
			d.bctx.SendMessage(diag.Errorf("Output directory not specified for module %s", t.Module.Name))
			return nil, false
		}
		roots[t.ID()] = filepath.Clean(dir)
	}
	return roots, true
}

// jointClasses maps binary class names to their sources for everything the
// index tracks except what this round recompiles anyway.
func (d *Driver) jointClasses(ctx context.Context, chunk *projectmodel.Chunk, inRound map[string]bool) (map[string]string, error) {
	if d.index == nil {
		return nil, nil
	}
	classToSource, err := d.index.ClassToSource(ctx, chunk)
	if err != nil {
		return nil, err
	}
	for name, src := range classToSource {
		if inRound[src] {
			delete(classToSource, name)
		}
	}
	return classToSource, nil
}

func (d *Driver) buildRequest(ctx context.Context, chunk *projectmodel.Chunk, mode groovyc.Mode,
	sources []string, compilerOutput, finalOutput string, classToSource map[string]string) *groovyc.Request {
	optimize := classpath.ShouldOptimize(d.compiler.InProcess(), chunk, d.cfg.OptimizeThresholdValue(), len(sources))
	req := &groovyc.Request{
		Mode:           mode,
		Optimize:       optimize,
		Classpath:      d.cp.Assemble(ctx, chunk, false),
		Sources:        sources,
		OutputDir:      compilerOutput,
		FinalOutputDir: finalOutput,
		ClassToSource:  classToSource,
		Encoding:       d.cfg.Encoding,
		ConfigScript:   d.cfg.ConfigScript,
		Indy:           d.cfg.InvokeDynamic,
	}
	if optimize {
		req.LaunchClasspath = d.cp.Bootstrap()
	}
	if d.registry != nil {
		req.Patchers = d.registry.UnitPatchers(ctx, chunk)
	}
	return req
}

// placeOutputs moves every reported output to its owning target's root.
// A failed move is downgraded to a warning naming the source and the item
// keeps its original location, so one bad file never sinks the round.
func (d *Driver) placeOutputs(chunk *projectmodel.Chunk, compilerOutput string, generation map[string]string, items []groovyc.CompiledItem) []groovyc.CompiledItem {
	placer := reconcile.New(chunk, compilerOutput, generation, d.recorder)
	compiled := make([]groovyc.CompiledItem, 0, len(items))
	for _, item := range items {
		out, err := placer.Reconcile(item)
		if err != nil {
			msg := diag.Warningf("Could not move compiler output for %s: %v", item.SourcePath, err)
			msg.SourcePath = item.SourcePath
			d.bctx.SendMessage(msg)
			out = item.OutputPath
		}
		compiled = append(compiled, groovyc.CompiledItem{OutputPath: out, SourcePath: item.SourcePath})
	}
	return compiled
}

var _ dependencyUpdater = (*depgraph.Updater)(nil)
