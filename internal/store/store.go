// Package store provides the SQLite-backed persistence layer shared by the
// Holographic Memory long-term tier, Semantic Search, and Catalog Registry
// snapshotting. A single VectorStore owns one database connection; the
// vectors table backs embeddings and the catalog_snapshots table backs the
// Catalog's append-only causal history.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"thermocode/internal/embedding"
	"thermocode/internal/logging"

	_ "github.com/mattn/go-sqlite3"
)

// VectorStore is the SQLite-backed home for embeddings and catalog
// snapshots. All exported methods are safe for concurrent use.
type VectorStore struct {
	db              *sql.DB
	mu              sync.RWMutex
	dbPath          string
	embeddingEngine embedding.EmbeddingEngine
	vectorExt       bool
}

// NewVectorStore opens (creating if necessary) a SQLite database at path and
// prepares its schema. Pass ":memory:" for an ephemeral store, as tests do.
func NewVectorStore(path string) (*VectorStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewVectorStore")
	defer timer.Stop()

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.Get(logging.CategoryStore).Debug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.Get(logging.CategoryStore).Debug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.Get(logging.CategoryStore).Debug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	store := &VectorStore{db: db, dbPath: path}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	store.detectVecExtension()
	if store.vectorExt {
		logging.Get(logging.CategoryStore).Info("sqlite-vec extension detected and enabled")
	} else {
		logging.Get(logging.CategoryStore).Debug("sqlite-vec extension not available; continuing with brute-force cosine search")
	}

	logging.Get(logging.CategoryStore).Info("VectorStore ready at %s", path)
	return store, nil
}

func (s *VectorStore) initialize() error {
	vectorTable := `
	CREATE TABLE IF NOT EXISTS vectors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		embedding TEXT,
		metadata TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_vectors_content ON vectors(content);
	`
	if _, err := s.db.Exec(vectorTable); err != nil {
		return fmt.Errorf("failed to create vectors table: %w", err)
	}

	catalogTable := `
	CREATE TABLE IF NOT EXISTS catalog_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bucket TEXT NOT NULL,
		parent_id INTEGER,
		data BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_catalog_bucket ON catalog_snapshots(bucket, id DESC);
	`
	if _, err := s.db.Exec(catalogTable); err != nil {
		return fmt.Errorf("failed to create catalog_snapshots table: %w", err)
	}

	return nil
}

// detectVecExtension probes for vec0 virtual table support (sqlite-vec).
func (s *VectorStore) detectVecExtension() {
	if s.db == nil {
		return
	}
	if _, err := s.db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS vec_probe USING vec0(embedding float[4])"); err == nil {
		s.vectorExt = true
		_, _ = s.db.Exec("DROP TABLE IF EXISTS vec_probe")
		return
	}
	s.vectorExt = false
}

// Close releases the underlying database connection.
func (s *VectorStore) Close() error {
	logging.Get(logging.CategoryStore).Info("Closing VectorStore database connection")
	return s.db.Close()
}

// GetDB returns the underlying SQL database connection, for callers that
// need to run ad-hoc queries (e.g. the Catalog Registry's own tables).
func (s *VectorStore) GetDB() *sql.DB {
	return s.db
}
