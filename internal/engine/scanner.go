package engine

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/groovybuild/internal/outputindex"
	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
)

// DirtySource is one file the scanner wants recompiled.
type DirtySource struct {
	Target projectmodel.Target
	Path   string
	// MTime is the on-disk modification time in nanoseconds, recorded as
	// the source's stamp once the chunk builds successfully.
	MTime int64
}

// ScanResult is the outcome of scanning a chunk's source roots.
type ScanResult struct {
	Dirty []DirtySource
	// Deleted lists tracked sources that no longer exist on disk. Their
	// recorded outputs are stale.
	Deleted []string
}

// Scanner finds sources needing recompilation by comparing on-disk
// modification times against the stamps in the output index.
type Scanner struct {
	store        *outputindex.Store
	excludeGlobs []string
	jointJava    bool
}

// NewScanner creates a scanner. excludeGlobs use doublestar syntax matched
// against paths relative to each source root.
func NewScanner(store *outputindex.Store, excludeGlobs []string, jointJava bool) *Scanner {
	return &Scanner{store: store, excludeGlobs: excludeGlobs, jointJava: jointJava}
}

// Scan walks the chunk's source roots. With force set every compilable
// source is dirty regardless of its stamp.
func (s *Scanner) Scan(ctx context.Context, chunk *projectmodel.Chunk, force bool) (*ScanResult, error) {
	result := &ScanResult{}
	seen := make(map[string]bool)

	for _, target := range chunk.Targets() {
		for _, root := range target.SourceRoots() {
			if err := s.scanRoot(ctx, target, root, force, seen, result); err != nil {
				return nil, err
			}
		}
		tracked, err := s.store.TrackedSources(ctx, target.ID())
		if err != nil {
			return nil, err
		}
		for _, p := range tracked {
			if !seen[p] {
				result.Deleted = append(result.Deleted, p)
			}
		}
	}
	return result, nil
}

func (s *Scanner) scanRoot(ctx context.Context, target projectmodel.Target, root string, force bool, seen map[string]bool, result *ScanResult) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Configured roots may not exist yet.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if !s.compilable(path) || s.excluded(root, path) || seen[path] {
			return nil
		}
		seen[path] = true

		info, err := d.Info()
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		mtime := info.ModTime().UnixNano()
		if !force {
			stamp, ok, err := s.store.StampOf(ctx, path)
			if err != nil {
				return err
			}
			if ok && stamp == mtime {
				return nil
			}
		}
		result.Dirty = append(result.Dirty, DirtySource{Target: target, Path: path, MTime: mtime})
		return nil
	})
}

func (s *Scanner) compilable(path string) bool {
	if strings.HasSuffix(path, ".groovy") || strings.HasSuffix(path, ".gpp") {
		return true
	}
	return s.jointJava && strings.HasSuffix(path, ".java")
}

func (s *Scanner) excluded(root, path string) bool {
	if len(s.excludeGlobs) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range s.excludeGlobs {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
