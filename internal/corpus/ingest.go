// Copyright fmforge, 2026. All rights reserved.

package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fmforge/fmforge/pkg/types"
)

// IngestSummary counts per-document outcomes of an ingest pass.
type IngestSummary struct {
	Chunked int
	Skipped int
	Failed  int
}

// Total returns the number of documents visited.
func (s IngestSummary) Total() int {
	return s.Chunked + s.Skipped + s.Failed
}

// Ingest discovers raw documents, cleans and chunks each one, and writes
// a chunk file per document into cfg.ChunksDir. Documents whose chunk
// file is newer than the source are skipped. Progress lines go to w.
func Ingest(ctx context.Context, cfg types.CorpusConfig, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary

	sources, err := Discover(cfg.RawDir, cfg.Patterns)
	if err != nil {
		return summary, fmt.Errorf("discover corpus: %w", err)
	}
	if len(sources) == 0 {
		return summary, fmt.Errorf("no documents under %s match %v", cfg.RawDir, cfg.Patterns)
	}

	if err := os.MkdirAll(cfg.ChunksDir, 0o755); err != nil {
		return summary, fmt.Errorf("create chunks dir: %w", err)
	}

	for _, source := range sources {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		rawPath := filepath.Join(cfg.RawDir, filepath.FromSlash(source))
		outPath := filepath.Join(cfg.ChunksDir, ChunkFileName(source))

		if !hasChanged(rawPath, outPath) {
			summary.Skipped++
			fmt.Fprintf(w, "skipped %s\n", source)
			continue
		}

		chunks, err := ingestOne(source, rawPath, cfg)
		if err != nil {
			summary.Failed++
			fmt.Fprintf(w, "failed  %s: %v\n", source, err)
			continue
		}

		if err := writeChunkFile(outPath, types.ChunkFile{
			Source:      source,
			GeneratedAt: time.Now().UTC(),
			Chunks:      chunks,
		}); err != nil {
			summary.Failed++
			fmt.Fprintf(w, "failed  %s: %v\n", source, err)
			continue
		}

		summary.Chunked++
		fmt.Fprintf(w, "chunked %s (%d chunks)\n", source, len(chunks))
	}

	fmt.Fprintf(w, "done: %d chunked, %d skipped, %d failed\n",
		summary.Chunked, summary.Skipped, summary.Failed)
	return summary, nil
}

func ingestOne(source, rawPath string, cfg types.CorpusConfig) ([]types.Chunk, error) {
	data, err := os.ReadFile(rawPath)
	if err != nil {
		return nil, err
	}
	text := Clean(string(data))
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("document empty after cleaning")
	}
	chunks := ChunkDocument(source, text, cfg)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks produced")
	}
	return chunks, nil
}

// ChunkFileName maps a source-relative path to its chunk file name.
// Path separators flatten to "__" so ChunksDir stays a single level.
func ChunkFileName(source string) string {
	flat := strings.ReplaceAll(source, "/", "__")
	return flat + ".chunks.json"
}

// hasChanged reports whether the source is newer than its chunk file.
// Missing or unreadable chunk files count as changed.
func hasChanged(rawPath, outPath string) bool {
	rawInfo, err := os.Stat(rawPath)
	if err != nil {
		return true
	}
	outInfo, err := os.Stat(outPath)
	if err != nil {
		return true
	}
	return rawInfo.ModTime().After(outInfo.ModTime())
}

func writeChunkFile(path string, cf types.ChunkFile) error {
	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// LoadChunkFiles reads every chunk file under dir, in name order.
func LoadChunkFiles(dir string) ([]types.ChunkFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read chunks dir: %w", err)
	}

	var files []types.ChunkFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".chunks.json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		var cf types.ChunkFile
		if err := json.Unmarshal(data, &cf); err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		files = append(files, cf)
	}
	return files, nil
}
