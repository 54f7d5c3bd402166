package buildctx

import (
	"testing"

	"git.home.luguber.info/inful/groovybuild/internal/diag"
	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
)

func namedChunk(name string) *projectmodel.Chunk {
	return projectmodel.NewChunk(projectmodel.Target{
		Module: &projectmodel.Module{Name: name, OutputDir: "/out/" + name},
		Kind:   projectmodel.KindProduction,
	})
}

func TestStubIndex_IsChunkScoped(t *testing.T) {
	ctx := NewContext(nil)
	a, b := namedChunk("a"), namedChunk("b")

	ctx.RememberStub(a, "/stubs/a/Foo.java", "/src/a/Foo.groovy")

	if src, ok := ctx.SourceForStub(a, "/stubs/a/Foo.java"); !ok || src != "/src/a/Foo.groovy" {
		t.Fatalf("SourceForStub = %s, %v", src, ok)
	}
	if _, ok := ctx.SourceForStub(b, "/stubs/a/Foo.java"); ok {
		t.Fatal("stub mapping leaked into another chunk")
	}

	stubs := ctx.Stubs(a)
	if len(stubs) != 1 {
		t.Fatalf("Stubs = %v", stubs)
	}
	// The copy must not alias internal state.
	stubs["/stubs/a/Bar.java"] = "/src/a/Bar.groovy"
	if _, ok := ctx.SourceForStub(a, "/stubs/a/Bar.java"); ok {
		t.Fatal("Stubs returned a live reference")
	}
}

func TestChunkFinished_DropsAllChunkState(t *testing.T) {
	ctx := NewContext(nil)
	chunk := namedChunk("app")

	ctx.RememberStub(chunk, "/stubs/Foo.java", "/src/Foo.groovy")
	ctx.OrderChunkRebuild(chunk)
	ctx.SetDirtyMarker(chunk)

	ctx.ChunkFinished(chunk)

	if _, ok := ctx.SourceForStub(chunk, "/stubs/Foo.java"); ok {
		t.Fatal("stub index survived ChunkFinished")
	}
	if ctx.ChunkRebuildOrdered(chunk) {
		t.Fatal("rebuild flag survived ChunkFinished")
	}
	if ctx.DirtyMarkerSet(chunk) {
		t.Fatal("dirty marker survived ChunkFinished")
	}
}

func TestFlags_ClearIndividually(t *testing.T) {
	ctx := NewContext(nil)
	chunk := namedChunk("app")

	ctx.OrderChunkRebuild(chunk)
	ctx.SetDirtyMarker(chunk)

	ctx.ClearChunkRebuild(chunk)
	if ctx.ChunkRebuildOrdered(chunk) {
		t.Fatal("rebuild flag still set")
	}
	if !ctx.DirtyMarkerSet(chunk) {
		t.Fatal("dirty marker cleared as a side effect")
	}

	ctx.ClearDirtyMarker(chunk)
	if ctx.DirtyMarkerSet(chunk) {
		t.Fatal("dirty marker still set")
	}
}

func TestNewContext_DefaultsAreUsable(t *testing.T) {
	ctx := NewContext(nil)
	if ctx.BuildID == "" {
		t.Fatal("no build ID assigned")
	}
	// No-op collaborators must accept calls without panicking.
	if err := ctx.Dirty.MarkDirty(RoundNext, projectmodel.Target{}, "/src/A.groovy"); err != nil {
		t.Fatalf("noop MarkDirty: %v", err)
	}
	if err := ctx.Deps.RegisterCompiled([]string{"/src/A.groovy"}); err != nil {
		t.Fatalf("noop RegisterCompiled: %v", err)
	}
	ctx.SendMessage(diag.Infof("hello"))
}

func TestSendMessage_DeliversToConfiguredSink(t *testing.T) {
	ctx := NewContext(nil)
	collector := diag.NewCollector()
	ctx.WithMessages(collector)

	msg := diag.Warningf("stale output")
	msg.SourcePath = "/src/A.groovy"
	ctx.SendMessage(msg)

	got := collector.Messages()
	if len(got) != 1 || got[0].SourcePath != "/src/A.groovy" {
		t.Fatalf("collector got %+v", got)
	}
}
