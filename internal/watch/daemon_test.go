package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/groovybuild/internal/config"
	"git.home.luguber.info/inful/groovybuild/internal/engine"
	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
)

type countingBuilder struct {
	builds atomic.Int32
	full   atomic.Int32
}

func (b *countingBuilder) Build(_ context.Context, fullRebuild bool) (*engine.Summary, error) {
	b.builds.Add(1)
	if fullRebuild {
		b.full.Add(1)
	}
	return &engine.Summary{}, nil
}

func watchProject(roots ...string) *projectmodel.Project {
	return &projectmodel.Project{
		Modules: []*projectmodel.Module{
			{Name: "app", SourceRoots: roots, OutputDir: "/out/app"},
		},
	}
}

func TestNewDaemon_RequiresConfig(t *testing.T) {
	_, err := NewDaemon(nil, watchProject("src"), &countingBuilder{})
	require.Error(t, err)
}

func TestDaemon_RebuildsOnSourceChange(t *testing.T) {
	root := t.TempDir()
	cfg := &config.WatchConfig{QuietPeriod: "30ms", MaxDelay: "1s"}
	builder := &countingBuilder{}

	daemon, err := NewDaemon(cfg, watchProject(root), builder)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- daemon.Run(ctx) }()

	// The startup build runs unconditionally.
	require.Eventually(t, func() bool { return builder.builds.Load() >= 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "Main.groovy"), []byte("class Main {}"), 0o644))

	require.Eventually(t, func() bool { return builder.builds.Load() >= 2 },
		3*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.Zero(t, builder.full.Load())
}

func TestDaemon_IgnoresUnrelatedFiles(t *testing.T) {
	root := t.TempDir()
	cfg := &config.WatchConfig{QuietPeriod: "30ms", MaxDelay: "1s"}
	builder := &countingBuilder{}

	daemon, err := NewDaemon(cfg, watchProject(root), builder)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- daemon.Run(ctx) }()

	require.Eventually(t, func() bool { return builder.builds.Load() >= 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)
	require.EqualValues(t, 1, builder.builds.Load())

	cancel()
	require.NoError(t, <-done)
}

func TestCompilableSource(t *testing.T) {
	cases := map[string]bool{
		"a/B.groovy":  true,
		"a/B.gpp":     true,
		"a/B.java":    true,
		"a/B.class":   false,
		"a/notes.txt": false,
	}
	for path, want := range cases {
		require.Equal(t, want, compilableSource(path), path)
	}
}

func TestSourceRoots_Deduplicated(t *testing.T) {
	project := &projectmodel.Project{
		Modules: []*projectmodel.Module{
			{Name: "a", SourceRoots: []string{"src/main", "src/main/"}, TestSourceRoots: []string{"src/test"}},
			{Name: "b", SourceRoots: []string{"src/main"}},
		},
	}
	daemon := &Daemon{project: project}
	require.Equal(t, []string{"src/main", "src/test"}, daemon.sourceRoots())
}
