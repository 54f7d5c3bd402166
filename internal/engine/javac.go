package engine

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/groovybuild/internal/config"
	"git.home.luguber.info/inful/groovybuild/internal/logfields"
	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
)

// StubClass pairs a class file produced by the stub pass with the stub
// source it was compiled from.
type StubClass struct {
	ClassFile  string
	StubSource string
}

// StubCompiler turns generated Java stubs into class files so the final
// Groovy rounds link against them.
type StubCompiler interface {
	CompileStubs(ctx context.Context, target projectmodel.Target, stubRoot, outputDir string, classpath []string) ([]StubClass, error)
}

// JavacRunner implements StubCompiler by forking the configured javac.
type JavacRunner struct {
	javacPath string
	encoding  string
}

// NewJavacRunner creates a runner from compiler configuration.
func NewJavacRunner(cfg *config.CompilerConfig) *JavacRunner {
	return &JavacRunner{javacPath: cfg.JavacPath, encoding: cfg.Encoding}
}

// CompileStubs compiles every stub under stubRoot into outputDir and pairs
// the classes that appeared with their stubs. Stubs hold signatures only,
// so javac diagnostics here are usually staleness noise; a failed run is
// logged and whatever classes landed are still collected, leaving the
// Groovy round to report the real errors.
func (j *JavacRunner) CompileStubs(ctx context.Context, target projectmodel.Target, stubRoot, outputDir string, classpath []string) ([]StubClass, error) {
	stubSources, err := collectStubSources(stubRoot)
	if err != nil {
		return nil, err
	}
	if len(stubSources) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}

	args := []string{"-nowarn", "-proc:none", "-d", outputDir}
	if j.encoding != "" {
		args = append(args, "-encoding", j.encoding)
	}
	if len(classpath) > 0 {
		args = append(args, "-cp", strings.Join(classpath, string(os.PathListSeparator)))
	}
	args = append(args, stubSources...)

	cmd := exec.CommandContext(ctx, j.javacPath, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("Stub compilation reported errors",
			logfields.Target(target.ID()), logfields.Error(err), slog.String("output", tail(string(out), 2048)))
	}

	var pairs []StubClass
	for _, src := range stubSources {
		rel, err := filepath.Rel(stubRoot, src)
		if err != nil {
			continue
		}
		classFile := filepath.Join(outputDir, strings.TrimSuffix(rel, ".java")+".class")
		if _, err := os.Stat(classFile); err == nil {
			pairs = append(pairs, StubClass{ClassFile: classFile, StubSource: src})
		}
	}
	return pairs, nil
}

func collectStubSources(stubRoot string) ([]string, error) {
	var sources []string
	err := filepath.WalkDir(stubRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".java") {
			sources = append(sources, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sources, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
