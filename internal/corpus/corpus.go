// Copyright fmforge, 2026. All rights reserved.

// Package corpus ingests source documents: it discovers files under the
// corpus root, cleans boilerplate that would pollute retrieval, and cuts
// the text into chunks sized for prompt evidence.
// Implements: docs/ARCHITECTURE § Corpus.
package corpus

import (
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Discover returns the source documents under rawDir matching the
// configured glob patterns, as sorted relative paths. Patterns follow
// doublestar syntax, so "**/*.txt" descends into subdirectories.
func Discover(rawDir string, patterns []string) ([]string, error) {
	if _, err := os.Stat(rawDir); err != nil {
		return nil, fmt.Errorf("reading corpus directory %s: %w", rawDir, err)
	}

	fsys := os.DirFS(rawDir)
	seen := map[string]bool{}
	var out []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("matching pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			info, err := fs.Stat(fsys, m)
			if err != nil || info.IsDir() {
				continue
			}
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}
