// Package engine builds a project chunk by chunk: it scans for changed
// sources, runs the stub round, the stub compilation pass, and the Groovy
// rounds, and persists stamps and outputs in the index between sessions.
package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"git.home.luguber.info/inful/groovybuild/internal/buildctx"
	"git.home.luguber.info/inful/groovybuild/internal/builder"
	"git.home.luguber.info/inful/groovybuild/internal/classpath"
	"git.home.luguber.info/inful/groovybuild/internal/config"
	"git.home.luguber.info/inful/groovybuild/internal/errors"
	"git.home.luguber.info/inful/groovybuild/internal/logfields"
	"git.home.luguber.info/inful/groovybuild/internal/metrics"
	"git.home.luguber.info/inful/groovybuild/internal/outputindex"
	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
	"git.home.luguber.info/inful/groovybuild/internal/stubs"
)

// roundDriver runs one compilation round.
type roundDriver interface {
	Run(ctx context.Context, round builder.Round) (builder.Verdict, error)
}

// Summary reports what one build session did.
type Summary struct {
	Verdicts map[string]builder.Verdict
	Duration time.Duration
	Failed   bool
}

// Engine runs chunk builds end to end.
type Engine struct {
	cfg      *config.Config
	project  *projectmodel.Project
	bctx     *buildctx.Context
	store    *outputindex.Store
	driver   roundDriver
	stubs    *stubs.Coordinator
	javac    StubCompiler
	cp       *classpath.Assembler
	scanner  *Scanner
	rounds   *roundSet
	recorder metrics.Recorder
}

// New wires an engine. It installs its round tracking as the build
// context's dirty-file view; output and dependency registration are bound
// to the session context when Build runs.
func New(cfg *config.Config, project *projectmodel.Project, bctx *buildctx.Context, store *outputindex.Store,
	driver roundDriver, stubCoord *stubs.Coordinator, javac StubCompiler, assembler *classpath.Assembler,
	rec metrics.Recorder) *Engine {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	rounds := newRoundSet()
	bctx.WithDirtyFiles(rounds)
	return &Engine{
		cfg:      cfg,
		project:  project,
		bctx:     bctx,
		store:    store,
		driver:   driver,
		stubs:    stubCoord,
		javac:    javac,
		cp:       assembler,
		scanner:  NewScanner(store, cfg.Project.ExcludeGlobs, cfg.Compiler.JointCompileJava),
		rounds:   rounds,
		recorder: rec,
	}
}

// Build compiles every chunk in dependency order. fullRebuild recompiles
// everything and suppresses rebuild escalation, since there is nothing
// fresher to escalate to.
func (e *Engine) Build(ctx context.Context, fullRebuild bool) (*Summary, error) {
	start := time.Now()
	registrar := e.store.Registrar(ctx)
	e.bctx.WithOutputs(registrar).WithDependencies(registrar)

	summary := &Summary{Verdicts: make(map[string]builder.Verdict)}
	slog.Info("Build starting", logfields.BuildID(e.bctx.BuildID), slog.Bool("full_rebuild", fullRebuild))

	for _, chunk := range e.project.Chunks() {
		if err := ctx.Err(); err != nil {
			summary.Failed = true
			return summary, err
		}
		verdict, err := e.BuildChunk(ctx, chunk, fullRebuild)
		summary.Verdicts[chunk.Name()] = verdict
		if err != nil {
			summary.Failed = true
			summary.Duration = time.Since(start)
			return summary, err
		}
		if verdict == builder.VerdictAbort {
			summary.Failed = true
			summary.Duration = time.Since(start)
			return summary, errors.New(errors.CategoryCompile, errors.SeverityError,
				fmt.Sprintf("chunk %s aborted", chunk.Name()))
		}
	}
	summary.Duration = time.Since(start)
	slog.Info("Build finished", logfields.BuildID(e.bctx.BuildID),
		logfields.DurationMS(float64(summary.Duration.Milliseconds())))
	return summary, nil
}

// BuildChunk builds one chunk, restarting once from scratch when a round
// escalates to a chunk rebuild.
func (e *Engine) BuildChunk(ctx context.Context, chunk *projectmodel.Chunk, fullRebuild bool) (builder.Verdict, error) {
	chunkStart := time.Now()
	defer func() {
		e.recorder.ObserveChunkDuration(time.Since(chunkStart))
		e.bctx.ChunkFinished(chunk)
	}()

	verdict, err := e.buildChunkOnce(ctx, chunk, fullRebuild, fullRebuild)
	if err == nil && verdict == builder.VerdictChunkRebuildRequired {
		slog.Info("Rebuilding chunk with every source dirty", logfields.Chunk(chunk.Name()))
		if err := e.dropChunkState(ctx, chunk); err != nil {
			return builder.VerdictAbort, err
		}
		verdict, err = e.buildChunkOnce(ctx, chunk, true, fullRebuild)
		if err == nil && verdict == builder.VerdictChunkRebuildRequired {
			// A rebuilt chunk asking for another rebuild would loop.
			slog.Warn("Chunk requested a second rebuild; keeping its incremental state", logfields.Chunk(chunk.Name()))
		}
	}
	e.recorder.IncChunkVerdict(verdict.String())
	slog.Info("Chunk build finished", logfields.Chunk(chunk.Name()), logfields.Verdict(verdict.String()),
		logfields.DurationMS(float64(time.Since(chunkStart).Milliseconds())))
	return verdict, err
}

// buildChunkOnce runs one full chunk pass: scan, stub round, stub
// compilation, then Groovy rounds until the driver stops asking for more.
func (e *Engine) buildChunkOnce(ctx context.Context, chunk *projectmodel.Chunk, scanAll, externalRebuild bool) (builder.Verdict, error) {
	scan, err := e.scanner.Scan(ctx, chunk, scanAll)
	if err != nil {
		return builder.VerdictAbort, err
	}
	e.pruneDeleted(ctx, scan.Deleted)

	e.rounds.Reset()
	for _, d := range scan.Dirty {
		if err := e.rounds.MarkDirty(buildctx.RoundCurrent, d.Target, d.Path); err != nil {
			return builder.VerdictAbort, err
		}
	}

	if !e.cfg.Compiler.JointCompileJava {
		verdict, err := e.driver.Run(ctx, builder.Round{Chunk: chunk, ForStubs: true, FullRebuild: externalRebuild})
		if err != nil || verdict == builder.VerdictAbort || verdict == builder.VerdictChunkRebuildRequired {
			return verdict, err
		}
		if err := e.stubPass(ctx, chunk); err != nil {
			if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
				return builder.VerdictAbort, err
			}
			// Real linkage problems resurface as Groovy diagnostics.
			slog.Warn("Stub pass failed", logfields.Chunk(chunk.Name()), logfields.Error(err))
		}
	}

	var verdict builder.Verdict
	for {
		verdict, err = e.driver.Run(ctx, builder.Round{Chunk: chunk, FullRebuild: externalRebuild})
		if err != nil || verdict != builder.VerdictAdditionalPassRequired {
			break
		}
		if e.rounds.Advance() == 0 {
			break
		}
	}
	if err != nil {
		return verdict, err
	}

	if verdict == builder.VerdictOK || verdict == builder.VerdictNothingDone {
		e.recordStamps(ctx, scan.Dirty)
	}
	return verdict, nil
}

// dropChunkState forgets everything the index recorded for the chunk's
// targets. Stale output and class rows would otherwise survive the rebuild
// and keep feeding joint compilation with class names nothing produces
// anymore.
func (e *Engine) dropChunkState(ctx context.Context, chunk *projectmodel.Chunk) error {
	for _, t := range chunk.Targets() {
		if err := e.store.DropTarget(ctx, t.ID()); err != nil {
			return err
		}
	}
	return nil
}

// stubPass compiles generated stubs per target and feeds the resulting
// class/stub pairs to the stub bookkeeping hook.
func (e *Engine) stubPass(ctx context.Context, chunk *projectmodel.Chunk) error {
	cp := e.cp.Assemble(ctx, chunk, false)
	for _, t := range chunk.Targets() {
		if t.OutputDir() != "" {
			cp = append(cp, t.OutputDir())
		}
	}
	for _, t := range chunk.Targets() {
		pairs, err := e.javac.CompileStubs(ctx, t, e.stubs.TargetRoot(t), t.OutputDir(), cp)
		if err != nil {
			return err
		}
		for _, p := range pairs {
			e.stubs.StubCompiled(chunk, p.StubSource)
		}
	}
	return nil
}

// pruneDeleted removes recorded outputs of sources that vanished from
// disk and forgets them in the index. Failures here degrade to stale
// class files, not broken builds.
func (e *Engine) pruneDeleted(ctx context.Context, deleted []string) {
	for _, src := range deleted {
		outs, err := e.store.OutputsOf(ctx, src)
		if err != nil {
			slog.Warn("Could not list outputs of deleted source", logfields.Source(src), logfields.Error(err))
			continue
		}
		for _, out := range outs {
			if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
				slog.Debug("Could not remove stale output", logfields.Output(out), logfields.Error(err))
			}
		}
		if err := e.store.DropSource(ctx, src); err != nil {
			slog.Warn("Could not drop deleted source from index", logfields.Source(src), logfields.Error(err))
		}
		slog.Debug("Pruned deleted source", logfields.Source(src))
	}
}

func (e *Engine) recordStamps(ctx context.Context, dirty []DirtySource) {
	for _, d := range dirty {
		if err := e.store.UpsertStamp(ctx, d.Target.ID(), d.Path, d.MTime); err != nil {
			// The source stays dirty and recompiles next session.
			slog.Warn("Could not record source stamp", logfields.Source(d.Path), logfields.Error(err))
		}
	}
}
