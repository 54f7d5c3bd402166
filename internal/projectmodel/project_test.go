package projectmodel

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"git.home.luguber.info/inful/groovybuild/internal/config"
)

func testProjectConfig() *config.ProjectConfig {
	return &config.ProjectConfig{
		Name: "sample",
		Modules: []config.ModuleConfig{
			{
				Name:        "util",
				SourceRoots: []string{"/p/util/src"},
				OutputDir:   "/p/out/util",
			},
			{
				// core and api depend on each other: one cyclic chunk.
				Name:        "core",
				SourceRoots: []string{"/p/core/src"},
				OutputDir:   "/p/out/core",
				DependsOn:   []string{"api", "util"},
			},
			{
				Name:            "api",
				SourceRoots:     []string{"/p/api/src"},
				TestSourceRoots: []string{"/p/api/test"},
				OutputDir:       "/p/out/api",
				TestOutputDir:   "/p/out/api-test",
				DependsOn:       []string{"core"},
			},
		},
	}
}

func TestFromConfig_ResolvesDependencies(t *testing.T) {
	p, err := FromConfig(testProjectConfig())
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	core := p.Module("core")
	if core == nil || len(core.Deps) != 2 {
		t.Fatalf("core deps not resolved: %+v", core)
	}
	if core.Deps[0].Name != "api" || core.Deps[1].Name != "util" {
		t.Fatalf("core deps = %s, %s", core.Deps[0].Name, core.Deps[1].Name)
	}
	if p.Module("missing") != nil {
		t.Fatal("lookup of unknown module returned a module")
	}
}

func TestFromConfig_RejectsUnknownDependency(t *testing.T) {
	cfg := testProjectConfig()
	cfg.Modules[0].DependsOn = []string{"ghost"}
	if _, err := FromConfig(cfg); err == nil {
		t.Fatal("unknown dependency accepted")
	}
}

func TestFromConfig_RejectsDuplicateModule(t *testing.T) {
	cfg := testProjectConfig()
	cfg.Modules = append(cfg.Modules, cfg.Modules[0])
	if _, err := FromConfig(cfg); err == nil {
		t.Fatal("duplicate module accepted")
	}
}

func TestChunks_CyclicModulesShareAChunk(t *testing.T) {
	p, err := FromConfig(testProjectConfig())
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}

	var got [][]string
	for _, chunk := range p.Chunks() {
		var ids []string
		for _, target := range chunk.Targets() {
			ids = append(ids, target.ID())
		}
		got = append(got, ids)
	}

	// util first (core+api depend on it), the cyclic pair together, then
	// the test chunk after all production chunks.
	want := [][]string{
		{"util:production"},
		{"api:production", "core:production"},
		{"api:test"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("chunk order mismatch (-want +got):\n%s", diff)
	}
}

func TestChunk_RepresentativeAndName(t *testing.T) {
	p, err := FromConfig(testProjectConfig())
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	chunks := p.Chunks()
	cyclic := chunks[1]

	if rep := cyclic.Representative(); rep.Module.Name != "api" {
		t.Fatalf("representative = %s, want api", rep.Module.Name)
	}
	if name := cyclic.Name(); name != "api+core:production" {
		t.Fatalf("Name = %s", name)
	}
	if name := chunks[2].Name(); name != "api:test" {
		t.Fatalf("test chunk Name = %s", name)
	}
}

func TestChunk_OwnerResolvesBySourceRoot(t *testing.T) {
	p, err := FromConfig(testProjectConfig())
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	cyclic := p.Chunks()[1]

	owner, ok := cyclic.Owner("/p/api/src/pkg/Thing.groovy")
	if !ok || owner.Module.Name != "api" {
		t.Fatalf("Owner = %s, %v", owner.Module.Name, ok)
	}

	// Unclaimed paths fall back to the representative.
	fallback, ok := cyclic.Owner("/elsewhere/X.groovy")
	if ok {
		t.Fatal("foreign path claimed by a target")
	}
	if fallback.Module.Name != "api" {
		t.Fatalf("fallback = %s, want representative api", fallback.Module.Name)
	}
}

func TestChunk_OwnsOutput(t *testing.T) {
	p, err := FromConfig(testProjectConfig())
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	cyclic := p.Chunks()[1]

	if !cyclic.OwnsOutput("/p/out/api/pkg/Thing.class") {
		t.Fatal("output under api root not owned")
	}
	if cyclic.OwnsOutput("/p/out/util/pkg/Other.class") {
		t.Fatal("util output claimed by the core+api chunk")
	}
}

func TestVersionComparisons(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.6", "1.6.0", 0},
		{"1.5.8", "1.6", -1},
		{"2.4", "1.8", 1},
		{"1.8.0_151", "1.8", 1},
		{"3.0.0-alpha", "3.0.0", 1},
	}
	for _, tc := range cases {
		if got := CompareVersions(tc.a, tc.b); got != tc.want {
			t.Fatalf("CompareVersions(%s, %s) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}

	if VersionAtLeast("", "1.6") {
		t.Fatal("empty version passed the check")
	}
	if !VersionAtLeast("1.6", "1.6") {
		t.Fatal("equal version failed the check")
	}
	if VersionAtLeast("1.5", "1.6") {
		t.Fatal("older version passed the check")
	}
}
