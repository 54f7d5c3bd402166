package outputindex

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"git.home.luguber.info/inful/groovybuild/internal/errors"
	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
)

// UpsertStamp records the modification stamp of a tracked source.
func (s *Store) UpsertStamp(ctx context.Context, target, path string, mtimeNS int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (path, target, mtime_ns) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET target = excluded.target, mtime_ns = excluded.mtime_ns`,
		path, target, mtimeNS,
	)
	if err != nil {
		return errors.IndexError("record source stamp", err)
	}
	s.stamps.Add(path, mtimeNS)
	return nil
}

// StampOf returns the recorded modification stamp for path. The second
// return is false when the source is not tracked.
func (s *Store) StampOf(ctx context.Context, path string) (int64, bool, error) {
	if mtime, ok := s.stamps.Get(path); ok {
		return mtime, true, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var mtime int64
	err := s.db.QueryRowContext(ctx, "SELECT mtime_ns FROM sources WHERE path = ?", path).Scan(&mtime)
	if stderrors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.IndexError("read source stamp", err)
	}
	s.stamps.Add(path, mtime)
	return mtime, true, nil
}

// TrackedSources lists every source the index knows for the target, so the
// scanner can notice deletions.
func (s *Store) TrackedSources(ctx context.Context, target string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT path FROM sources WHERE target = ? ORDER BY path", target)
	if err != nil {
		return nil, errors.IndexError("list tracked sources", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, errors.IndexError("scan tracked source", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.IndexError("iterate tracked sources", err)
	}
	return paths, nil
}

// RegisterOutput records output files produced from the given sources.
func (s *Store) RegisterOutput(ctx context.Context, target, outputPath string, sourcePaths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, src := range sourcePaths {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO outputs (output_path, target, source_path) VALUES (?, ?, ?)
			 ON CONFLICT(output_path, source_path) DO UPDATE SET target = excluded.target`,
			outputPath, target, src,
		)
		if err != nil {
			return errors.IndexError("record output", err)
		}
	}
	return nil
}

// AssociateClass links an emitted class file and its binary name back to
// its source.
func (s *Store) AssociateClass(ctx context.Context, outputPath, sourcePath, className string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO classes (class_name, output_path, source_path) VALUES (?, ?, ?)
		 ON CONFLICT(class_name) DO UPDATE SET output_path = excluded.output_path, source_path = excluded.source_path`,
		className, outputPath, sourcePath,
	)
	if err != nil {
		return errors.IndexError("record class association", err)
	}
	return nil
}

// MarkCompiled stamps sources as successfully compiled. Sources never seen
// before become tracked with an empty target; a later UpsertStamp fills it.
func (s *Store) MarkCompiled(ctx context.Context, sourcePaths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	for _, src := range sourcePaths {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO sources (path, compiled_at) VALUES (?, ?)
			 ON CONFLICT(path) DO UPDATE SET compiled_at = excluded.compiled_at`,
			src, now,
		)
		if err != nil {
			return errors.IndexError("mark source compiled", err)
		}
	}
	return nil
}

// OutputsOf lists the output files recorded for a source.
func (s *Store) OutputsOf(ctx context.Context, sourcePath string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT output_path FROM outputs WHERE source_path = ? ORDER BY output_path", sourcePath)
	if err != nil {
		return nil, errors.IndexError("list outputs", err)
	}
	defer rows.Close()

	var outputs []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, errors.IndexError("scan output", err)
		}
		outputs = append(outputs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.IndexError("iterate outputs", err)
	}
	return outputs, nil
}

// DropSource forgets a source completely: its stamp, its outputs, and its
// class associations. Used when a source disappears from disk.
func (s *Store) DropSource(ctx context.Context, sourcePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range []string{
		"DELETE FROM classes WHERE source_path = ?",
		"DELETE FROM outputs WHERE source_path = ?",
		"DELETE FROM sources WHERE path = ?",
	} {
		if _, err := s.db.ExecContext(ctx, q, sourcePath); err != nil {
			return errors.IndexError("drop source", err)
		}
	}
	s.stamps.Remove(sourcePath)
	return nil
}

// DropTarget forgets everything recorded for a target. Used when a chunk
// is rebuilt from scratch.
func (s *Store) DropTarget(ctx context.Context, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range []string{
		`DELETE FROM classes WHERE source_path IN (SELECT path FROM sources WHERE target = ?)`,
		"DELETE FROM outputs WHERE target = ?",
		"DELETE FROM sources WHERE target = ?",
	} {
		if _, err := s.db.ExecContext(ctx, q, target); err != nil {
			return errors.IndexError("drop target", err)
		}
	}
	// Cached stamps for the target cannot be enumerated; start over.
	s.stamps.Purge()
	return nil
}

// ClassToSource maps JVM binary names to generating sources for everything
// the index tracks in the chunk's targets.
func (s *Store) ClassToSource(ctx context.Context, chunk *projectmodel.Chunk) (map[string]string, error) {
	targets := chunk.Targets()
	if len(targets) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(targets)), ", ")
	args := make([]any, len(targets))
	for i, t := range targets {
		args[i] = t.ID()
	}
	query := fmt.Sprintf(
		`SELECT DISTINCT c.class_name, c.source_path
		 FROM classes c JOIN outputs o ON o.output_path = c.output_path AND o.source_path = c.source_path
		 WHERE o.target IN (%s)`, placeholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.IndexError("query class map", err)
	}
	defer rows.Close()

	classToSource := make(map[string]string)
	for rows.Next() {
		var name, src string
		if err := rows.Scan(&name, &src); err != nil {
			return nil, errors.IndexError("scan class map", err)
		}
		classToSource[name] = src
	}
	if err := rows.Err(); err != nil {
		return nil, errors.IndexError("iterate class map", err)
	}
	return classToSource, nil
}
