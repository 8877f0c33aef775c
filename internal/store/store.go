// Copyright fmforge, 2026. All rights reserved.

// Package store persists corpus chunks and serves ranked retrieval
// queries over an SQLite FTS5 index.
// Implements: docs/ARCHITECTURE § Document Store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fmforge/fmforge/pkg/types"
)

const dbFile = "fmforge.db"

// ErrNoChunks reports a retrieval attempt against an empty index.
var ErrNoChunks = errors.New("no chunks indexed")

// Store manages the chunk index SQLite database.
type Store struct {
	db            *sql.DB
	indexDir      string
	maxResults    int
	maxTotalChars int
}

// Open opens or creates the chunk index at cfg.IndexDir/fmforge.db,
// creating the schema if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(cfg.IndexDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 12
	}
	maxTotalChars := cfg.MaxTotalChars
	if maxTotalChars <= 0 {
		maxTotalChars = 18000
	}

	s := &Store{
		db:            db,
		indexDir:      cfg.IndexDir,
		maxResults:    maxResults,
		maxTotalChars: maxTotalChars,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			source TEXT PRIMARY KEY,
			chunk_count INTEGER NOT NULL DEFAULT 0,
			file_mod_time TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			chunk_id TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL REFERENCES documents(source),
			heading TEXT,
			body TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='chunks_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE chunks_fts USING fts5(body, content=chunks, content_rowid=rowid)`,
			`CREATE TRIGGER chunks_ai AFTER INSERT ON chunks BEGIN
				INSERT INTO chunks_fts(rowid, body) VALUES (new.rowid, new.body);
			END`,
			`CREATE TRIGGER chunks_ad AFTER DELETE ON chunks BEGIN
				INSERT INTO chunks_fts(chunks_fts, rowid, body) VALUES('delete', old.rowid, old.body);
			END`,
			`CREATE TRIGGER chunks_au AFTER UPDATE ON chunks BEGIN
				INSERT INTO chunks_fts(chunks_fts, rowid, body) VALUES('delete', old.rowid, old.body);
				INSERT INTO chunks_fts(rowid, body) VALUES (new.rowid, new.body);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IndexSummary holds counts from an index run.
type IndexSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of chunk files processed.
func (s IndexSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Index reads chunk files from chunksDir and populates the database. It
// detects new, changed, and unchanged files for incremental updates.
func (s *Store) Index(ctx context.Context, chunksDir string, w io.Writer) (IndexSummary, error) {
	entries, err := os.ReadDir(chunksDir)
	if err != nil {
		return IndexSummary{}, fmt.Errorf("reading chunks directory %s: %w", chunksDir, err)
	}

	var summary IndexSummary

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".chunks.json") {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		// The chunk file name encodes the source path, so the skip
		// check never has to parse JSON.
		source := strings.ReplaceAll(strings.TrimSuffix(entry.Name(), ".chunks.json"), "__", "/")
		filePath := filepath.Join(chunksDir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", source, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		// Check whether the file has changed since last indexing.
		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM documents WHERE source = ?`, source,
		).Scan(&storedModTime)

		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", source)
			summary.Skipped++
			continue
		}

		isUpdate := err == nil

		data, err := os.ReadFile(filePath)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", source, err)
			summary.Failed++
			continue
		}

		var cf types.ChunkFile
		if err := json.Unmarshal(data, &cf); err != nil {
			fmt.Fprintf(w, "failed  %s: parse error: %v\n", source, err)
			summary.Failed++
			continue
		}
		if cf.Source != source {
			fmt.Fprintf(w, "failed  %s: chunk file names source %q\n", source, cf.Source)
			summary.Failed++
			continue
		}

		if err := s.indexDocument(ctx, cf, modTime, isUpdate); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", cf.Source, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d chunks)\n", cf.Source, len(cf.Chunks))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d chunks)\n", cf.Source, len(cf.Chunks))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	return summary, nil
}

func (s *Store) indexDocument(ctx context.Context, cf types.ChunkFile, modTime string, isUpdate bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Upsert the document record before chunks so the foreign key holds.
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (source, chunk_count, file_mod_time) VALUES (?, ?, ?)
		 ON CONFLICT(source) DO UPDATE SET
			chunk_count=excluded.chunk_count, file_mod_time=excluded.file_mod_time`,
		cf.Source, len(cf.Chunks), modTime,
	)
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}

	// Remove old chunks if updating.
	if isUpdate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE source = ?`, cf.Source); err != nil {
			return fmt.Errorf("deleting old chunks: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO chunks (chunk_id, source, heading, body) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range cf.Chunks {
		if _, err := stmt.ExecContext(ctx, c.ChunkID, cf.Source, c.Heading, c.Text); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ChunkID, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of chunks in the index.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Sources returns the indexed document paths in order.
func (s *Store) Sources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source FROM documents ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
