// Copyright fmforge, 2026. All rights reserved.

// Package merge folds generated fragments into the accumulating feature
// model. Merging never mutates its inputs: it clones the base model,
// applies the fragment, and returns the new model with a diff of every
// change it made or declined to make.
// Implements: docs/ARCHITECTURE § Merging.
package merge

import (
	"fmt"
	"strings"

	"github.com/fmforge/fmforge/internal/similarity"
	"github.com/fmforge/fmforge/pkg/fm"
	"github.com/fmforge/fmforge/pkg/types"
)

const defaultThreshold = 0.85

// Merger matches fragment features against model features by name
// similarity and applies the merge rules. Create one per run; it is not
// safe for concurrent use.
type Merger struct {
	matcher   *similarity.Matcher
	threshold float64
}

// NewMerger returns a Merger configured with the given similarity
// threshold and cache size. A zero threshold falls back to the default.
func NewMerger(cfg types.MergeConfig) *Merger {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return &Merger{
		matcher:   similarity.NewMatcher(cfg.CacheSize),
		threshold: threshold,
	}
}

// pending is a fragment feature waiting for its parent to materialize.
type pending struct {
	feat fm.FragmentFeature
}

// Merge folds frag into base and returns the merged model plus the diff.
// The base model is never modified. iteration and chunkIDs become the
// provenance of everything the fragment adds.
//
// Rules, in order:
//   - a proposed name similar to an existing feature aliases into it;
//     a variability disagreement keeps the existing kind and is recorded
//   - a new feature attaches under its stated parent when that parent
//     resolves, otherwise it waits in a queue retried after the whole
//     fragment has been seen
//   - still-unresolved features attach under the root, marked recovered,
//     remembering the stated parent
//   - recovered features from earlier merges move to their stated parent
//     as soon as it materializes
//   - parents whose group children ended up mixing or- and alternative-
//     membership have those children downgraded to optional
func (mg *Merger) Merge(base *fm.Model, frag fm.Fragment, iteration int, chunkIDs []string) (*fm.Model, types.MergeDiff, error) {
	next := base.Clone()
	var diff types.MergeDiff

	var queue []pending
	for _, pf := range frag.Features {
		name := strings.TrimSpace(pf.Name)
		if name == "" || fm.Slug(name) == "" {
			continue
		}
		pf.Name = name

		if id, score, ok := mg.match(next, name); ok {
			if err := mg.alias(next, &diff, id, pf, score, chunkIDs); err != nil {
				return nil, types.MergeDiff{}, err
			}
			continue
		}

		if !mg.attach(next, &diff, pf, iteration, chunkIDs) {
			queue = append(queue, pending{feat: pf})
		}
	}

	// Parents proposed later in the fragment exist now; retry the queue
	// until a full pass attaches nothing.
	queue, err := mg.drainQueue(next, &diff, queue, iteration, chunkIDs)
	if err != nil {
		return nil, types.MergeDiff{}, err
	}

	// Orphan recovery: attach a hopeless feature under the root, then
	// retry the rest, since the recovered feature may be the parent they
	// were waiting for.
	for len(queue) > 0 {
		idx := mg.pickHopeless(queue)
		p := queue[idx]
		queue = append(queue[:idx], queue[idx+1:]...)

		id := next.FreeID(fm.Slug(p.feat.Name))
		f := fm.Feature{
			ID:     id,
			Name:   p.feat.Name,
			Parent: next.RootID(),
			Kind:   safeKind(p.feat.Kind),
			Provenance: fm.Provenance{
				Origin:       fm.OriginOrphanRecovered,
				Iteration:    iteration,
				Chunks:       chunkIDs,
				StatedParent: p.feat.Parent,
			},
		}
		if err := next.AddFeature(f); err != nil {
			return nil, types.MergeDiff{}, fmt.Errorf("recovering orphan %q: %w", p.feat.Name, err)
		}
		diff.Added = append(diff.Added, id)
		diff.Recovered = append(diff.Recovered, id)

		queue, err = mg.drainQueue(next, &diff, queue, iteration, chunkIDs)
		if err != nil {
			return nil, types.MergeDiff{}, err
		}
	}

	if err := mg.repairOrphans(next, &diff); err != nil {
		return nil, types.MergeDiff{}, err
	}
	if err := mg.downgradeMixedGroups(next, &diff); err != nil {
		return nil, types.MergeDiff{}, err
	}

	return next, diff, nil
}

// pickHopeless returns the index of the first queued feature whose
// stated parent matches no other queued feature's name, meaning nothing
// in the queue could ever satisfy it. When the queue only waits on
// itself, the first entry is recovered to break the cycle.
func (mg *Merger) pickHopeless(queue []pending) int {
	for i, p := range queue {
		awaited := false
		for j, q := range queue {
			if i == j {
				continue
			}
			if mg.matcher.Score(p.feat.Parent, q.feat.Name) >= mg.threshold {
				awaited = true
				break
			}
		}
		if !awaited {
			return i
		}
	}
	return 0
}

// drainQueue retries pending features until a full pass attaches
// nothing, returning what remains stuck.
func (mg *Merger) drainQueue(m *fm.Model, diff *types.MergeDiff, queue []pending, iteration int, chunkIDs []string) ([]pending, error) {
	for {
		var still []pending
		attached := false
		for _, p := range queue {
			if id, score, ok := mg.match(m, p.feat.Name); ok {
				if err := mg.alias(m, diff, id, p.feat, score, chunkIDs); err != nil {
					return nil, err
				}
				attached = true
				continue
			}
			if mg.attach(m, diff, p.feat, iteration, chunkIDs) {
				attached = true
			} else {
				still = append(still, p)
			}
		}
		queue = still
		if !attached || len(queue) == 0 {
			return queue, nil
		}
	}
}

// alias folds a proposed feature into an existing one: the surface name
// is recorded, evidence accumulates, and a variability disagreement
// keeps the existing kind.
func (mg *Merger) alias(m *fm.Model, diff *types.MergeDiff, id string, pf fm.FragmentFeature, score float64, chunkIDs []string) error {
	if err := m.AddAlias(id, pf.Name); err != nil {
		return fmt.Errorf("aliasing %q into %q: %w", pf.Name, id, err)
	}
	if err := m.AddChunks(id, chunkIDs); err != nil {
		return fmt.Errorf("aliasing %q into %q: %w", pf.Name, id, err)
	}
	diff.Aliased = append(diff.Aliased, types.AliasedEntry{
		Surface:   pf.Name,
		FeatureID: id,
		Score:     score,
	})

	existing, _ := m.Get(id)
	proposed := safeKind(pf.Kind)
	if existing.Kind != proposed && id != m.RootID() {
		diff.ConflictsIgnored = append(diff.ConflictsIgnored, types.ConflictEntry{
			FeatureID: id,
			Existing:  string(existing.Kind),
			Proposed:  string(proposed),
		})
	}
	return nil
}

// attach adds a genuinely new feature under its resolved parent.
// Returns false when the stated parent does not resolve yet.
func (mg *Merger) attach(m *fm.Model, diff *types.MergeDiff, pf fm.FragmentFeature, iteration int, chunkIDs []string) bool {
	parentID, ok := mg.resolveParent(m, pf.Parent)
	if !ok {
		return false
	}
	id := m.FreeID(fm.Slug(pf.Name))
	f := fm.Feature{
		ID:     id,
		Name:   pf.Name,
		Parent: parentID,
		Kind:   safeKind(pf.Kind),
		Provenance: fm.Provenance{
			Origin:    fm.OriginGenerated,
			Iteration: iteration,
			Chunks:    chunkIDs,
		},
	}
	// AddFeature cannot fail here: the id is free and the parent exists.
	if err := m.AddFeature(f); err != nil {
		return false
	}
	diff.Added = append(diff.Added, id)
	return true
}

// resolveParent maps a proposed parent reference to a feature id. The
// empty reference means the model root.
func (mg *Merger) resolveParent(m *fm.Model, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return m.RootID(), true
	}
	return mg.matchID(m, ref)
}

// match finds the existing feature most similar to name, at or above the
// threshold. Earlier insertion wins score ties, which keeps resolution
// deterministic.
func (mg *Merger) match(m *fm.Model, name string) (string, float64, bool) {
	best := ""
	bestScore := 0.0
	for _, id := range m.IDs() {
		f, _ := m.Get(id)
		score := mg.matcher.Score(name, f.Name)
		for _, a := range f.Provenance.Aliases {
			if s := mg.matcher.Score(name, a); s > score {
				score = s
			}
		}
		if score > bestScore {
			best, bestScore = id, score
		}
	}
	if best == "" || bestScore < mg.threshold {
		return "", 0, false
	}
	return best, bestScore, true
}

func (mg *Merger) matchID(m *fm.Model, name string) (string, bool) {
	id, _, ok := mg.match(m, name)
	return id, ok
}

// repairOrphans moves recovered features to their stated parent once it
// exists. Unrepairable references (self, descendant cycles) are dropped
// so they are not retried forever.
func (mg *Merger) repairOrphans(m *fm.Model, diff *types.MergeDiff) error {
	for _, id := range m.IDs() {
		f, _ := m.Get(id)
		if f.Provenance.Origin != fm.OriginOrphanRecovered || f.Provenance.StatedParent == "" {
			continue
		}
		parentID, ok := mg.matchID(m, f.Provenance.StatedParent)
		if !ok {
			continue
		}
		if parentID == id {
			if err := m.ClearStatedParent(id); err != nil {
				return err
			}
			continue
		}
		from := f.Parent
		if parentID == from {
			if err := m.RepairOrphan(id); err != nil {
				return err
			}
			continue
		}
		if err := m.Reparent(id, parentID); err != nil {
			// The stated parent sits inside this feature's own subtree;
			// moving there would cycle. Keep the root attachment.
			if err := m.ClearStatedParent(id); err != nil {
				return err
			}
			continue
		}
		if err := m.RepairOrphan(id); err != nil {
			return err
		}
		diff.Reparented = append(diff.Reparented, types.ReparentEntry{
			FeatureID: id,
			From:      from,
			To:        parentID,
		})
	}
	return nil
}

// downgradeMixedGroups revalidates sibling groups: a parent whose group
// children mix or- and alternative-membership has all of them downgraded
// to optional.
func (mg *Merger) downgradeMixedGroups(m *fm.Model, diff *types.MergeDiff) error {
	for _, pid := range m.IDs() {
		members := m.GroupMembers(pid)
		if len(members) == 0 {
			continue
		}
		hasOr, hasAlt := false, false
		for _, cid := range members {
			c, _ := m.Get(cid)
			switch c.Kind {
			case fm.OrMember:
				hasOr = true
			case fm.AltMember:
				hasAlt = true
			}
		}
		if !hasOr || !hasAlt {
			continue
		}
		for _, cid := range members {
			if err := m.SetKind(cid, fm.Optional); err != nil {
				return fmt.Errorf("downgrading group under %q: %w", pid, err)
			}
		}
		diff.GroupsDowngraded = append(diff.GroupsDowngraded, pid)
	}
	return nil
}

// safeKind coerces anything outside the four kinds to optional. The
// parser enforces the contract, so this only guards internal callers.
func safeKind(k fm.Kind) fm.Kind {
	if !k.Valid() {
		return fm.Optional
	}
	return k
}
