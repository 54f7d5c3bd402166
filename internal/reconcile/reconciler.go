// Package reconcile moves chunk-shared compiler output into per-target
// output roots. The compiler runs once per chunk with a single output
// directory; this package re-establishes per-module isolation afterwards.
package reconcile

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/groovybuild/internal/groovyc"
	"git.home.luguber.info/inful/groovybuild/internal/logfields"
	"git.home.luguber.info/inful/groovybuild/internal/metrics"
	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
)

// Reconciler relocates compiled items of a multi-target chunk from the
// shared compiler output directory into each owning target's generation
// output root.
type Reconciler struct {
	chunk      *projectmodel.Chunk
	sharedDir  string
	generation map[string]string
	recorder   metrics.Recorder
}

// New creates a reconciler for one chunk compilation. generation maps
// target IDs to the output roots recorded for this build generation.
func New(chunk *projectmodel.Chunk, sharedDir string, generation map[string]string, rec metrics.Recorder) *Reconciler {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Reconciler{
		chunk:      chunk,
		sharedDir:  sharedDir,
		generation: generation,
		recorder:   rec,
	}
}

// Reconcile returns the final path of one compiled output. Single-target
// chunks and items owned by the representative target keep the compiler's
// own path. Items of other targets move into that target's generation
// output, preserving their path relative to the shared directory. An
// unknown generation output is logged and degrades to the original path;
// only a failed file move is an error.
func (r *Reconciler) Reconcile(item groovyc.CompiledItem) (string, error) {
	if len(r.chunk.Modules()) < 2 {
		return item.OutputPath, nil
	}

	owner, _ := r.chunk.Owner(item.SourcePath)
	if owner.ID() == r.chunk.Representative().ID() {
		return item.OutputPath, nil
	}

	root, ok := r.generation[owner.ID()]
	if !ok || root == "" {
		slog.Info("No generation output recorded for target; leaving compiler output in place",
			logfields.Target(owner.ID()),
			logfields.Output(item.OutputPath))
		return item.OutputPath, nil
	}

	rel, err := filepath.Rel(r.sharedDir, item.OutputPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		// The compiler put the file outside the shared directory; there
		// is no relative path to re-root.
		slog.Info("Compiler output outside the shared directory; leaving it in place",
			logfields.Target(owner.ID()),
			logfields.Output(item.OutputPath))
		return item.OutputPath, nil
	}

	dest := filepath.Join(root, rel)
	if err := moveFile(item.OutputPath, dest); err != nil {
		return "", fmt.Errorf("relocating %s to %s: %w", item.OutputPath, dest, err)
	}
	r.recorder.IncOutputRelocated()
	return dest, nil
}

// moveFile renames src to dst, creating parent directories. A rename
// across filesystems falls back to copying the bytes.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
