// Copyright fmforge, 2026. All rights reserved.

// Package coverage scores a predicted feature model against a ground
// truth. Every ground-truth feature is compared with every predicted
// feature on name and parent context; pairs at or above the threshold
// enter a greedy matching, best score first. Ties break by shallower
// combined depth, then ground-truth id, then predicted id, so results
// are deterministic.
// Implements: docs/ARCHITECTURE § Coverage.
package coverage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fmforge/fmforge/internal/similarity"
	"github.com/fmforge/fmforge/pkg/fm"
	"github.com/fmforge/fmforge/pkg/types"
)

const (
	defaultThreshold    = 0.35
	defaultNameWeight   = 0.9
	defaultParentWeight = 0.1
)

// Evaluator computes coverage results. Safe for sequential reuse across
// model pairs; not safe for concurrent use.
type Evaluator struct {
	matcher      *similarity.Matcher
	threshold    float64
	nameWeight   float64
	parentWeight float64
}

// NewEvaluator returns an Evaluator with the given thresholds. Zero
// values fall back to the defaults.
func NewEvaluator(cfg types.CoverageConfig) *Evaluator {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	nw, pw := cfg.NameWeight, cfg.ParentWeight
	if nw <= 0 && pw <= 0 {
		nw, pw = defaultNameWeight, defaultParentWeight
	}
	return &Evaluator{
		matcher:      similarity.NewMatcher(0),
		threshold:    threshold,
		nameWeight:   nw,
		parentWeight: pw,
	}
}

// pair is one candidate match during greedy selection.
type pair struct {
	gt       string
	pred     string
	score    float64
	depthSum int
}

// Evaluate scores pred against gt. Either model may be nil or empty;
// the result then reports zero recall or precision with the counts
// making the edge case explicit.
func (ev *Evaluator) Evaluate(gt, pred *fm.Model) types.CoverageResult {
	res := types.CoverageResult{Threshold: ev.threshold}
	if gt != nil {
		res.GroundTruthCount = gt.Len()
	}
	if pred != nil {
		res.PredictedCount = pred.Len()
	}

	var pairs []pair
	if res.GroundTruthCount > 0 && res.PredictedCount > 0 {
		for _, g := range gt.Features() {
			for _, p := range pred.Features() {
				score := ev.pairScore(gt, pred, g, p)
				if score < ev.threshold {
					continue
				}
				pairs = append(pairs, pair{
					gt:       g.ID,
					pred:     p.ID,
					score:    score,
					depthSum: gt.Depth(g.ID) + pred.Depth(p.ID),
				})
			}
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		if pairs[i].depthSum != pairs[j].depthSum {
			return pairs[i].depthSum < pairs[j].depthSum
		}
		if pairs[i].gt != pairs[j].gt {
			return pairs[i].gt < pairs[j].gt
		}
		return pairs[i].pred < pairs[j].pred
	})

	gtMatched := map[string]bool{}
	predMatched := map[string]bool{}
	for _, p := range pairs {
		if gtMatched[p.gt] || predMatched[p.pred] {
			continue
		}
		gtMatched[p.gt] = true
		predMatched[p.pred] = true
		res.Matched = append(res.Matched, types.CoveragePair{
			GroundTruth: p.gt,
			Predicted:   p.pred,
			Score:       p.score,
		})
	}

	if gt != nil {
		for _, id := range gt.SortedIDs() {
			if !gtMatched[id] {
				res.Misses = append(res.Misses, id)
			}
		}
	}
	if pred != nil {
		for _, id := range pred.SortedIDs() {
			if !predMatched[id] {
				res.Extras = append(res.Extras, id)
			}
		}
	}

	if res.GroundTruthCount > 0 {
		res.Recall = float64(len(res.Matched)) / float64(res.GroundTruthCount)
	}
	if res.PredictedCount > 0 {
		res.Precision = float64(len(res.Matched)) / float64(res.PredictedCount)
	}
	return res
}

// pairScore combines name similarity with parent-name similarity,
// normalized by the weight sum. Roots carry an empty parent context, so
// a root pair takes full structural credit and a root matched against a
// non-root takes none.
func (ev *Evaluator) pairScore(gt, pred *fm.Model, g, p fm.Feature) float64 {
	nameSim := ev.matcher.Score(g.Name, p.Name)
	parentSim := ev.matcher.Score(parentName(gt, g), parentName(pred, p))
	return (ev.nameWeight*nameSim + ev.parentWeight*parentSim) / (ev.nameWeight + ev.parentWeight)
}

func parentName(m *fm.Model, f fm.Feature) string {
	if f.Parent == "" {
		return ""
	}
	parent, _ := m.Get(f.Parent)
	return parent.Name
}

// WriteReport persists a coverage result under evalDir. The file name
// records which model was scored against which ground truth and when,
// so successive evaluations never clobber each other.
func WriteReport(evalDir, predName, gtName string, res types.CoverageResult) (string, error) {
	if err := os.MkdirAll(evalDir, 0o755); err != nil {
		return "", fmt.Errorf("creating eval directory: %w", err)
	}

	ts := time.Now().UTC().Format("20060102T150405")
	name := fmt.Sprintf("coverage_%s_vs_%s_%s.json", reportName(predName), reportName(gtName), ts)
	path := filepath.Join(evalDir, name)

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding coverage result: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing coverage report: %w", err)
	}
	return path, nil
}

// reportName reduces a model path to a compact label safe in a file name.
func reportName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "model"
	}
	return out
}
