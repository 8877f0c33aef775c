// Copyright fmforge, 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/fmforge/fmforge/pkg/types"
)

// Search runs a ranked full-text query and assembles the evidence set
// for one generator call. Results are ordered by bm25 rank with chunk id
// as the tie breaker, so identical corpora always retrieve identically.
// topK zero uses the store default. The total evidence size is capped;
// the set is marked truncated when the cap clips it.
func (s *Store) Search(ctx context.Context, query string, topK int) (types.RetrievalContext, error) {
	rc := types.RetrievalContext{Query: query}

	if topK <= 0 {
		topK = s.maxResults
	}

	total, err := s.Count(ctx)
	if err != nil {
		return rc, err
	}
	if total == 0 {
		return rc, ErrNoChunks
	}

	expr := buildMatchExpr(query)
	if expr == "" {
		return rc, fmt.Errorf("query %q has no searchable terms", query)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.chunk_id, c.source, c.heading, c.body, chunks_fts.rank
		 FROM chunks_fts
		 JOIN chunks c ON c.rowid = chunks_fts.rowid
		 WHERE chunks_fts MATCH ?
		 ORDER BY chunks_fts.rank, c.chunk_id
		 LIMIT ?`,
		expr, topK,
	)
	if err != nil {
		return rc, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	budget := s.maxTotalChars
	for rows.Next() {
		var chunk types.RetrievedChunk
		if err := rows.Scan(&chunk.ChunkID, &chunk.Source, &chunk.Heading, &chunk.Text, &chunk.Rank); err != nil {
			return rc, fmt.Errorf("scanning row: %w", err)
		}

		size := len([]rune(chunk.Text))
		if size > budget {
			// The first chunk gets clipped to the budget rather than
			// dropped; later chunks that overflow end the set.
			if len(rc.Chunks) == 0 && budget > 0 {
				chunk.Text = string([]rune(chunk.Text)[:budget])
				rc.Chunks = append(rc.Chunks, chunk)
			}
			rc.Truncated = true
			break
		}

		rc.Chunks = append(rc.Chunks, chunk)
		budget -= size
	}
	if err := rows.Err(); err != nil {
		return rc, fmt.Errorf("reading rows: %w", err)
	}

	return rc, nil
}

// buildMatchExpr turns free text into a safe FTS5 expression: terms are
// extracted as alphanumeric runs, quoted, and OR-joined, so punctuation
// in feature names never reaches the query parser.
func buildMatchExpr(query string) string {
	terms := splitTerms(query)
	if len(terms) == 0 {
		return ""
	}

	seen := map[string]bool{}
	var quoted []string
	for _, t := range terms {
		t = strings.ToLower(t)
		if seen[t] {
			continue
		}
		seen[t] = true
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " OR ")
}

func splitTerms(query string) []string {
	return strings.FieldsFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
