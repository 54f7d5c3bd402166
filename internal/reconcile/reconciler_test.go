package reconcile

import (
	"os"
	"path/filepath"
	"testing"

	"git.home.luguber.info/inful/groovybuild/internal/groovyc"
	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
)

func twoModuleChunk() (*projectmodel.Chunk, projectmodel.Target, projectmodel.Target) {
	a := &projectmodel.Module{Name: "a", SourceRoots: []string{"/src/a"}, OutputDir: "/out/a"}
	b := &projectmodel.Module{Name: "b", SourceRoots: []string{"/src/b"}, OutputDir: "/out/b"}
	ta := projectmodel.Target{Module: a, Kind: projectmodel.KindProduction}
	tb := projectmodel.Target{Module: b, Kind: projectmodel.KindProduction}
	return projectmodel.NewChunk(ta, tb), ta, tb
}

func TestReconcile_SingleTargetIdentity(t *testing.T) {
	m := &projectmodel.Module{Name: "solo", SourceRoots: []string{"/src/solo"}, OutputDir: "/out/solo"}
	chunk := projectmodel.NewChunk(projectmodel.Target{Module: m, Kind: projectmodel.KindProduction})
	r := New(chunk, "/tmp/shared", nil, nil)

	item := groovyc.CompiledItem{OutputPath: "/tmp/shared/pkg/X.class", SourcePath: "/src/solo/pkg/X.groovy"}
	got, err := r.Reconcile(item)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got != item.OutputPath {
		t.Errorf("single-target chunk must keep the compiler path, got %q", got)
	}
}

func TestReconcile_RepresentativeTargetUnchanged(t *testing.T) {
	chunk, ta, _ := twoModuleChunk()
	r := New(chunk, "/tmp/shared", map[string]string{ta.ID(): "/gen/a"}, nil)

	item := groovyc.CompiledItem{OutputPath: "/tmp/shared/pkg/X.class", SourcePath: "/src/a/pkg/X.groovy"}
	got, err := r.Reconcile(item)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got != item.OutputPath {
		t.Errorf("representative-owned item must keep the compiler path, got %q", got)
	}
}

func TestReconcile_RelocatesNonRepresentativeOutput(t *testing.T) {
	chunk, _, tb := twoModuleChunk()

	shared := t.TempDir()
	genRoot := t.TempDir()
	src := filepath.Join(shared, "pkg", "X.class")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("class bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := New(chunk, shared, map[string]string{tb.ID(): genRoot}, nil)
	item := groovyc.CompiledItem{OutputPath: src, SourcePath: "/src/b/pkg/X.groovy"}

	got, err := r.Reconcile(item)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	want := filepath.Join(genRoot, "pkg", "X.class")
	if got != want {
		t.Errorf("final path = %q, want %q", got, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("relocated file missing: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("original file should be gone, stat err = %v", err)
	}
	data, err := os.ReadFile(want)
	if err != nil || string(data) != "class bytes" {
		t.Errorf("relocated content = %q, %v", data, err)
	}
}

func TestReconcile_PreservesNestedRelativePath(t *testing.T) {
	chunk, _, tb := twoModuleChunk()

	shared := t.TempDir()
	genRoot := t.TempDir()
	src := filepath.Join(shared, "pkg", "sub", "deep", "Y$Inner.class")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := New(chunk, shared, map[string]string{tb.ID(): genRoot}, nil)
	got, err := r.Reconcile(groovyc.CompiledItem{OutputPath: src, SourcePath: "/src/b/pkg/sub/deep/Y.groovy"})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if want := filepath.Join(genRoot, "pkg", "sub", "deep", "Y$Inner.class"); got != want {
		t.Errorf("final path = %q, want %q", got, want)
	}
}

func TestReconcile_MissingGenerationOutputDegrades(t *testing.T) {
	chunk, ta, _ := twoModuleChunk()

	shared := t.TempDir()
	src := filepath.Join(shared, "pkg", "X.class")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Only the representative has a recorded output; b is unknown.
	r := New(chunk, shared, map[string]string{ta.ID(): "/gen/a"}, nil)
	got, err := r.Reconcile(groovyc.CompiledItem{OutputPath: src, SourcePath: "/src/b/pkg/X.groovy"})
	if err != nil {
		t.Fatalf("missing mapping must not be an error, got %v", err)
	}
	if got != src {
		t.Errorf("expected original path back, got %q", got)
	}
	if _, statErr := os.Stat(src); statErr != nil {
		t.Errorf("file must stay in place: %v", statErr)
	}
}

func TestReconcile_OutputOutsideSharedDirUnchanged(t *testing.T) {
	chunk, _, tb := twoModuleChunk()
	r := New(chunk, "/tmp/shared", map[string]string{tb.ID(): t.TempDir()}, nil)

	item := groovyc.CompiledItem{OutputPath: "/elsewhere/pkg/X.class", SourcePath: "/src/b/pkg/X.groovy"}
	got, err := r.Reconcile(item)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got != item.OutputPath {
		t.Errorf("out-of-root output must stay put, got %q", got)
	}
}

func TestReconcile_UnknownSourceTreatedAsRepresentative(t *testing.T) {
	chunk, _, tb := twoModuleChunk()
	r := New(chunk, "/tmp/shared", map[string]string{tb.ID(): "/gen/b"}, nil)

	item := groovyc.CompiledItem{OutputPath: "/tmp/shared/pkg/Gen.class", SourcePath: "/generated/Gen.groovy"}
	got, err := r.Reconcile(item)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got != item.OutputPath {
		t.Errorf("unattributable source falls back to the representative, got %q", got)
	}
}
