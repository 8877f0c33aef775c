// Copyright fmforge, 2026. All rights reserved.

package synth

import (
	"sort"
	"strings"

	"github.com/fmforge/fmforge/pkg/fm"
	"github.com/fmforge/fmforge/pkg/types"
)

// Frontier returns the display names of the features whose children are
// still unexplored: the model's leaves, newest iteration first so fresh
// growth is expanded before old corners are revisited, id order within
// an iteration, capped at size.
func Frontier(m *fm.Model, size int) []string {
	if size < 1 {
		size = 5
	}

	leaves := m.Leaves()
	sort.SliceStable(leaves, func(i, j int) bool {
		pi, pj := leaves[i].Provenance, leaves[j].Provenance
		if pi.Iteration != pj.Iteration {
			return pi.Iteration > pj.Iteration
		}
		return leaves[i].ID < leaves[j].ID
	})

	if len(leaves) > size {
		leaves = leaves[:size]
	}

	names := make([]string, 0, len(leaves))
	for _, f := range leaves {
		names = append(names, f.Name)
	}
	return names
}

// Query builds the retrieval query for an iteration. The first iteration
// anchors on the root feature and the domain description; later ones
// search for the frontier names so retrieval follows model growth.
func Query(m *fm.Model, cfg types.SynthesisConfig, iteration int) (string, []string) {
	if iteration <= 1 || m.Len() <= 1 {
		return strings.TrimSpace(cfg.RootFeature + " " + cfg.Domain), nil
	}

	focus := Frontier(m, cfg.FrontierSize)
	query := strings.Join(focus, " ")
	if strings.TrimSpace(query) == "" {
		return strings.TrimSpace(cfg.RootFeature + " " + cfg.Domain), nil
	}
	return query, focus
}
