package engine

import (
	"context"
	"testing"

	"git.home.luguber.info/inful/groovybuild/internal/buildctx"
	"git.home.luguber.info/inful/groovybuild/internal/builder"
	"git.home.luguber.info/inful/groovybuild/internal/classpath"
	"git.home.luguber.info/inful/groovybuild/internal/config"
	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
	"git.home.luguber.info/inful/groovybuild/internal/stubs"
)

// scriptedDriver replays a fixed verdict sequence and can queue files for
// the next round before answering, mimicking the stub post-processing hook.
type scriptedDriver struct {
	t        *testing.T
	bctx     *buildctx.Context
	verdicts []builder.Verdict
	rounds   []builder.Round
	// markNext queues the given file for the next round during the run
	// with the matching index.
	markNext map[int]string
}

func (d *scriptedDriver) Run(_ context.Context, round builder.Round) (builder.Verdict, error) {
	idx := len(d.rounds)
	d.rounds = append(d.rounds, round)
	if idx >= len(d.verdicts) {
		d.t.Fatalf("unexpected round %d: %+v", idx, round)
	}
	if path, ok := d.markNext[idx]; ok {
		target := round.Chunk.Representative()
		if err := d.bctx.Dirty.MarkDirty(buildctx.RoundNext, target, path); err != nil {
			d.t.Fatalf("MarkDirty: %v", err)
		}
	}
	return d.verdicts[idx], nil
}

type noopStubCompiler struct{}

func (noopStubCompiler) CompileStubs(context.Context, projectmodel.Target, string, string, []string) ([]StubClass, error) {
	return nil, nil
}

type engineFixture struct {
	engine  *Engine
	driver  *scriptedDriver
	project *projectmodel.Project
	source  string
}

func newEngineFixture(t *testing.T, jointJava bool, verdicts []builder.Verdict, markNext map[int]string) *engineFixture {
	t.Helper()
	root := t.TempDir()
	source := writeSource(t, root, "pkg/A.groovy", "class A {}")

	cfg := &config.Config{
		Project: config.ProjectConfig{
			Name: "test",
			Modules: []config.ModuleConfig{
				{Name: "app", SourceRoots: []string{root}, OutputDir: t.TempDir()},
			},
		},
		Compiler: config.CompilerConfig{RunnerJar: "/jars/runner.jar", JointCompileJava: jointJava},
		Stubs:    config.StubsConfig{Root: t.TempDir()},
	}
	project, err := projectmodel.FromConfig(&cfg.Project)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}

	store := newScannerStore(t)
	bctx := buildctx.NewContext(project)
	driver := &scriptedDriver{t: t, bctx: bctx, verdicts: verdicts, markNext: markNext}
	stubCoord := stubs.NewCoordinator(cfg.Stubs.Root, bctx, nil)
	assembler := classpath.NewAssembler(cfg.Compiler.RunnerJar, nil, nil)

	eng := New(cfg, project, bctx, store, driver, stubCoord, noopStubCompiler{}, assembler, nil)
	return &engineFixture{engine: eng, driver: driver, project: project, source: source}
}

func stubFlags(rounds []builder.Round) []bool {
	flags := make([]bool, len(rounds))
	for i, r := range rounds {
		flags[i] = r.ForStubs
	}
	return flags
}

func TestBuild_AdditionalPassRunsAnotherRound(t *testing.T) {
	fx := newEngineFixture(t, false, []builder.Verdict{
		builder.VerdictOK,                     // stub round
		builder.VerdictAdditionalPassRequired, // first compile round queues a file
		builder.VerdictOK,                     // second compile round
	}, map[int]string{1: "/src/queued/B.groovy"})

	summary, err := fx.engine.Build(context.Background(), false)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if summary.Failed {
		t.Fatal("summary reports failure")
	}

	want := []bool{true, false, false}
	got := stubFlags(fx.driver.rounds)
	if len(got) != len(want) {
		t.Fatalf("rounds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("round %d ForStubs = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBuild_AdditionalPassWithoutQueuedFilesStops(t *testing.T) {
	fx := newEngineFixture(t, false, []builder.Verdict{
		builder.VerdictOK,
		builder.VerdictAdditionalPassRequired,
	}, nil)

	summary, err := fx.engine.Build(context.Background(), false)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(fx.driver.rounds) != 2 {
		t.Fatalf("rounds = %d, want 2 (nothing queued for a third)", len(fx.driver.rounds))
	}
	if summary.Failed {
		t.Fatal("summary reports failure")
	}
}

func TestBuildChunk_RebuildRestartsOnce(t *testing.T) {
	fx := newEngineFixture(t, false, []builder.Verdict{
		builder.VerdictOK,                   // stub round
		builder.VerdictChunkRebuildRequired, // compile round escalates
		builder.VerdictOK,                   // stub round of the restart
		builder.VerdictOK,                   // compile round of the restart
	}, nil)
	chunk := fx.project.Chunks()[0]

	verdict, err := fx.engine.BuildChunk(context.Background(), chunk, false)
	if err != nil {
		t.Fatalf("BuildChunk: %v", err)
	}
	if verdict != builder.VerdictOK {
		t.Fatalf("verdict = %s, want OK", verdict)
	}
	if len(fx.driver.rounds) != 4 {
		t.Fatalf("rounds = %d, want 4", len(fx.driver.rounds))
	}
}

func TestBuildChunk_RebuildDiscardsRecordedChunkState(t *testing.T) {
	fx := newEngineFixture(t, false, []builder.Verdict{
		builder.VerdictOK,                   // stub round
		builder.VerdictChunkRebuildRequired, // compile round escalates
		builder.VerdictOK,                   // stub round of the restart
		builder.VerdictOK,                   // compile round of the restart
	}, nil)
	chunk := fx.project.Chunks()[0]
	ctx := context.Background()
	store := fx.engine.store
	target := chunk.Representative().ID()

	// Recorded state from an earlier session: a class nothing produces
	// anymore. It must not survive into the rebuilt chunk's class map.
	stale := "/out/app/pkg/Stale.class"
	if err := store.UpsertStamp(ctx, target, fx.source, 1); err != nil {
		t.Fatalf("UpsertStamp: %v", err)
	}
	if err := store.RegisterOutput(ctx, target, stale, []string{fx.source}); err != nil {
		t.Fatalf("RegisterOutput: %v", err)
	}
	if err := store.AssociateClass(ctx, stale, fx.source, "pkg.Stale"); err != nil {
		t.Fatalf("AssociateClass: %v", err)
	}

	verdict, err := fx.engine.BuildChunk(ctx, chunk, false)
	if err != nil {
		t.Fatalf("BuildChunk: %v", err)
	}
	if verdict != builder.VerdictOK {
		t.Fatalf("verdict = %s, want OK", verdict)
	}

	classes, err := store.ClassToSource(ctx, chunk)
	if err != nil {
		t.Fatalf("ClassToSource: %v", err)
	}
	if len(classes) != 0 {
		t.Fatalf("stale class rows survived the rebuild: %v", classes)
	}
	outs, err := store.OutputsOf(ctx, fx.source)
	if err != nil {
		t.Fatalf("OutputsOf: %v", err)
	}
	if len(outs) != 0 {
		t.Fatalf("stale outputs survived the rebuild: %v", outs)
	}
}

func TestBuildChunk_SecondRebuildRequestIsNotHonored(t *testing.T) {
	fx := newEngineFixture(t, false, []builder.Verdict{
		builder.VerdictOK,
		builder.VerdictChunkRebuildRequired,
		builder.VerdictOK,
		builder.VerdictChunkRebuildRequired,
	}, nil)
	chunk := fx.project.Chunks()[0]

	verdict, err := fx.engine.BuildChunk(context.Background(), chunk, false)
	if err != nil {
		t.Fatalf("BuildChunk: %v", err)
	}
	if verdict != builder.VerdictChunkRebuildRequired {
		t.Fatalf("verdict = %s, want CHUNK_REBUILD_REQUIRED", verdict)
	}
	// Exactly one restart: four rounds total, no third attempt.
	if len(fx.driver.rounds) != 4 {
		t.Fatalf("rounds = %d, want 4", len(fx.driver.rounds))
	}
}

func TestBuild_JointJavaSkipsStubRound(t *testing.T) {
	fx := newEngineFixture(t, true, []builder.Verdict{builder.VerdictOK}, nil)

	if _, err := fx.engine.Build(context.Background(), false); err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i, r := range fx.driver.rounds {
		if r.ForStubs {
			t.Fatalf("round %d was a stub round despite joint compilation", i)
		}
	}
	if len(fx.driver.rounds) != 1 {
		t.Fatalf("rounds = %d, want 1", len(fx.driver.rounds))
	}
}

func TestBuild_AbortFailsTheSession(t *testing.T) {
	fx := newEngineFixture(t, false, []builder.Verdict{builder.VerdictAbort}, nil)

	summary, err := fx.engine.Build(context.Background(), false)
	if err == nil {
		t.Fatal("Build succeeded despite abort")
	}
	if !summary.Failed {
		t.Fatal("summary does not report failure")
	}
}
