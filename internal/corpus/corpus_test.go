// Copyright fmforge, 2026. All rights reserved.

package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/fmforge/fmforge/pkg/types"
)

func TestCleanCutsReferenceSection(t *testing.T) {
	text := strings.Join([]string{
		"# Feature Models",
		"Body paragraph one.",
		"Body paragraph two.",
		"More body.",
		"Even more body.",
		"## References",
		"[1] Someone, Somewhere, 2019.",
		"[2] Someone Else, 2021.",
	}, "\n")

	got := Clean(text)
	if strings.Contains(got, "Someone, Somewhere") {
		t.Errorf("reference entries survived cleaning:\n%s", got)
	}
	if !strings.Contains(got, "Body paragraph one.") {
		t.Errorf("body lost during cleaning:\n%s", got)
	}
}

func TestCleanKeepsEarlyReferenceHeading(t *testing.T) {
	// A table of contents mentions "References" near the top; only a
	// heading in the second half of the document cuts.
	text := strings.Join([]string{
		"References",
		"1. Intro",
		"2. Method",
		"Body one.",
		"Body two.",
		"Body three.",
		"Body four.",
		"Body five.",
	}, "\n")

	got := Clean(text)
	if !strings.Contains(got, "Body five.") {
		t.Errorf("early heading truncated the document:\n%s", got)
	}
}

func TestCleanStripsCitations(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Caching improves latency [3].", "Caching improves latency ."},
		{"Shown before [1,2] and after [4-7].", "Shown before  and after ."},
		{"As argued (Smith et al., 2020) elsewhere.", "As argued  elsewhere."},
		{"See (Doe & Roe 2019a) for details.", "See  for details."},
		{"Array access a[0] stays.", "Array access a stays."},
	}
	for _, c := range cases {
		if got := StripCitations(c.in); got != c.want {
			t.Errorf("StripCitations(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCleanNormalizes(t *testing.T) {
	text := "First line.   \n\n\n\n42\n\nSecond line."
	got := Clean(text)
	want := "First line.\n\nSecond line."
	if got != want {
		t.Errorf("Clean(%q) = %q, want %q", text, got, want)
	}
}

func TestChunkDocumentSplitsAtHeadings(t *testing.T) {
	text := strings.Join([]string{
		"intro paragraph",
		"",
		"# Alpha",
		"alpha body text",
		"",
		"## Beta",
		"beta body text",
	}, "\n")
	cfg := types.CorpusConfig{MaxChunkChars: 500}

	chunks := ChunkDocument("doc.md", text, cfg)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	wantIDs := []string{"doc.md::chunk::0", "doc.md::chunk::1", "doc.md::chunk::2"}
	wantHeadings := []string{"", "Alpha", "Beta"}
	wantTexts := []string{"intro paragraph", "alpha body text", "beta body text"}
	for i, c := range chunks {
		if c.ChunkID != wantIDs[i] {
			t.Errorf("chunk %d id = %q, want %q", i, c.ChunkID, wantIDs[i])
		}
		if c.Heading != wantHeadings[i] {
			t.Errorf("chunk %d heading = %q, want %q", i, c.Heading, wantHeadings[i])
		}
		if c.Text != wantTexts[i] {
			t.Errorf("chunk %d text = %q, want %q", i, c.Text, wantTexts[i])
		}
		if c.Source != "doc.md" {
			t.Errorf("chunk %d source = %q, want doc.md", i, c.Source)
		}
	}
}

func TestChunkDocumentRespectsSizeCap(t *testing.T) {
	para := strings.Repeat("word ", 16) // 80 chars
	text := para + "\n\n" + para + "\n\n" + para
	cfg := types.CorpusConfig{MaxChunkChars: 100}

	chunks := ChunkDocument("big.txt", text, cfg)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c.Text)); n > 100 {
			t.Errorf("chunk %d has %d chars, cap is 100", i, n)
		}
	}
}

func TestChunkDocumentHardSplitsOversizedParagraph(t *testing.T) {
	text := strings.Repeat("x", 250)
	cfg := types.CorpusConfig{MaxChunkChars: 100}

	chunks := ChunkDocument("wall.txt", text, cfg)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if got := len(chunks[0].Text); got != 100 {
		t.Errorf("first piece has %d chars, want 100", got)
	}
	if got := len(chunks[2].Text); got != 50 {
		t.Errorf("last piece has %d chars, want 50", got)
	}
}

func TestChunkDocumentMergesSmallSections(t *testing.T) {
	text := strings.Join([]string{
		"# Main",
		strings.Repeat("body ", 40),
		"",
		"# Stub",
		"tiny",
	}, "\n")
	cfg := types.CorpusConfig{MaxChunkChars: 1000, MinChunkChars: 50}

	chunks := ChunkDocument("doc.md", text, cfg)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1: %+v", len(chunks), chunks)
	}
	if !strings.Contains(chunks[0].Text, "tiny") {
		t.Errorf("small section lost in merge: %q", chunks[0].Text)
	}
	if chunks[0].Heading != "Main" {
		t.Errorf("merged chunk heading = %q, want Main", chunks[0].Heading)
	}
}

func TestChunkDocumentEmptyText(t *testing.T) {
	chunks := ChunkDocument("empty.txt", "   \n\n  ", types.CorpusConfig{MaxChunkChars: 100})
	if len(chunks) != 0 {
		t.Errorf("got %d chunks from blank text, want 0", len(chunks))
	}
}

func TestChunkFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"paper.md", "paper.md.chunks.json"},
		{"sub/dir/doc.txt", "sub__dir__doc.txt.chunks.json"},
	}
	for _, c := range cases {
		if got := ChunkFileName(c.in); got != c.want {
			t.Errorf("ChunkFileName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	files := []string{"a.txt", "b.md", "sub/c.txt", "sub/d.bin"}
	for _, f := range files {
		path := filepath.Join(dir, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := Discover(dir, []string{"**/*.txt", "**/*.md"})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{"a.txt", "b.md", "sub/c.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Discover = %v, want %v", got, want)
	}
}

func TestDiscoverMissingDir(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "nope"), []string{"**/*.txt"}); err == nil {
		t.Error("expected error for missing corpus directory")
	}
}

func TestIngest(t *testing.T) {
	tmp := t.TempDir()
	rawDir := filepath.Join(tmp, "raw")
	chunksDir := filepath.Join(tmp, "chunks")
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		t.Fatal(err)
	}

	doc := strings.Join([]string{
		"# Online Store",
		"The store offers a catalog and a checkout flow [1].",
		"Payments accept card and cash.",
		"",
		"## References",
		"[1] A citation entry.",
	}, "\n")
	if err := os.WriteFile(filepath.Join(rawDir, "store.md"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := types.CorpusConfig{
		RawDir:        rawDir,
		ChunksDir:     chunksDir,
		Patterns:      []string{"**/*.md"},
		MaxChunkChars: 500,
	}

	var buf bytes.Buffer
	summary, err := Ingest(context.Background(), cfg, &buf)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if summary.Chunked != 1 || summary.Skipped != 0 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want 1 chunked", summary)
	}
	if !strings.Contains(buf.String(), "chunked store.md") {
		t.Errorf("progress output missing chunk line:\n%s", buf.String())
	}

	data, err := os.ReadFile(filepath.Join(chunksDir, "store.md.chunks.json"))
	if err != nil {
		t.Fatalf("chunk file not written: %v", err)
	}
	var cf types.ChunkFile
	if err := json.Unmarshal(data, &cf); err != nil {
		t.Fatalf("chunk file unparseable: %v", err)
	}
	if cf.Source != "store.md" {
		t.Errorf("chunk file source = %q, want store.md", cf.Source)
	}
	if len(cf.Chunks) == 0 {
		t.Fatal("chunk file holds no chunks")
	}
	for _, c := range cf.Chunks {
		if strings.Contains(c.Text, "citation entry") {
			t.Errorf("reference section leaked into chunk %s", c.ChunkID)
		}
	}

	// Unchanged sources are skipped on the next pass.
	buf.Reset()
	summary, err = Ingest(context.Background(), cfg, &buf)
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if summary.Skipped != 1 || summary.Chunked != 0 {
		t.Errorf("second summary = %+v, want 1 skipped", summary)
	}

	// Touching the source forces a re-chunk.
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(filepath.Join(rawDir, "store.md"), future, future); err != nil {
		t.Fatal(err)
	}
	summary, err = Ingest(context.Background(), cfg, &buf)
	if err != nil {
		t.Fatalf("third Ingest: %v", err)
	}
	if summary.Chunked != 1 {
		t.Errorf("third summary = %+v, want 1 chunked", summary)
	}
}

func TestIngestNoMatches(t *testing.T) {
	tmp := t.TempDir()
	rawDir := filepath.Join(tmp, "raw")
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := types.CorpusConfig{
		RawDir:    rawDir,
		ChunksDir: filepath.Join(tmp, "chunks"),
		Patterns:  []string{"**/*.md"},
	}
	if _, err := Ingest(context.Background(), cfg, &bytes.Buffer{}); err == nil {
		t.Error("expected error when nothing matches")
	}
}

func TestIngestCancelled(t *testing.T) {
	tmp := t.TempDir()
	rawDir := filepath.Join(tmp, "raw")
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(rawDir, "doc.md"), []byte("# H\nbody"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := types.CorpusConfig{
		RawDir:    rawDir,
		ChunksDir: filepath.Join(tmp, "chunks"),
		Patterns:  []string{"**/*.md"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Ingest(ctx, cfg, &bytes.Buffer{}); err == nil {
		t.Error("expected context error")
	}
}

func TestLoadChunkFiles(t *testing.T) {
	tmp := t.TempDir()
	rawDir := filepath.Join(tmp, "raw")
	chunksDir := filepath.Join(tmp, "chunks")
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.md", "b.md"} {
		if err := os.WriteFile(filepath.Join(rawDir, name), []byte("# T\nbody text"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := types.CorpusConfig{
		RawDir:        rawDir,
		ChunksDir:     chunksDir,
		Patterns:      []string{"**/*.md"},
		MaxChunkChars: 100,
	}
	if _, err := Ingest(context.Background(), cfg, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}

	files, err := LoadChunkFiles(chunksDir)
	if err != nil {
		t.Fatalf("LoadChunkFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d chunk files, want 2", len(files))
	}
	if files[0].Source != "a.md" || files[1].Source != "b.md" {
		t.Errorf("sources = %q, %q; want a.md, b.md", files[0].Source, files[1].Source)
	}
}
