// Package outputindex persists what the build knows between sessions: the
// modification stamps of tracked sources, the outputs each source produced,
// and the JVM binary names of the classes among them. It backs incremental
// dirty scanning and joint compilation against previously built classes.
package outputindex

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/groovybuild/internal/errors"
)

// DefaultCacheSize bounds the stamp read cache when the configuration
// does not say otherwise.
const DefaultCacheSize = 4096

// Store is the SQLite-backed output index.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	// stamps caches source modification stamps; the dirty scanner reads
	// every tracked source once per build.
	stamps *lru.Cache[string, int64]
}

// NewStore opens or creates the index at dbPath. Use ":memory:" for an
// ephemeral index. cacheSize <= 0 selects DefaultCacheSize.
func NewStore(dbPath string, cacheSize int) (*Store, error) {
	if dir := filepath.Dir(dbPath); dbPath != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.IndexError("create index directory", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.IndexError("open index database", err)
	}
	// SQLite has a single writer, and :memory: databases exist per
	// connection, so the pool must stay at one.
	db.SetMaxOpenConns(1)

	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	stamps, err := lru.New[string, int64](cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, errors.IndexError("create stamp cache", err)
	}

	s := &Store{db: db, stamps: stamps}
	if err := s.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, errors.IndexError("initialize index schema", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		path TEXT PRIMARY KEY,
		target TEXT NOT NULL DEFAULT '',
		mtime_ns INTEGER NOT NULL DEFAULT 0,
		compiled_at INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_sources_target ON sources(target);
	CREATE TABLE IF NOT EXISTS outputs (
		output_path TEXT NOT NULL,
		target TEXT NOT NULL,
		source_path TEXT NOT NULL,
		PRIMARY KEY (output_path, source_path)
	);
	CREATE INDEX IF NOT EXISTS idx_outputs_source ON outputs(source_path);
	CREATE INDEX IF NOT EXISTS idx_outputs_target ON outputs(target);
	CREATE TABLE IF NOT EXISTS classes (
		class_name TEXT PRIMARY KEY,
		output_path TEXT NOT NULL,
		source_path TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_classes_source ON classes(source_path);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
