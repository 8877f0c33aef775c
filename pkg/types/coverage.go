// Copyright fmforge, 2026. All rights reserved.

package types

// CoveragePair is one accepted match between a ground-truth feature and
// a predicted feature.
type CoveragePair struct {
	// GroundTruth is the matched ground-truth feature id.
	GroundTruth string `json:"ground_truth" yaml:"ground_truth"`

	// Predicted is the matched predicted feature id.
	Predicted string `json:"predicted" yaml:"predicted"`

	// Score is the combined name and parent-context similarity.
	Score float64 `json:"score" yaml:"score"`
}

// CoverageResult reports how well a predicted model covers a ground
// truth. Counts are always present so the empty-model edge cases stay
// distinguishable from genuine zero scores.
type CoverageResult struct {
	// GroundTruthCount and PredictedCount are the model sizes compared.
	GroundTruthCount int `json:"ground_truth_count" yaml:"ground_truth_count"`
	PredictedCount   int `json:"predicted_count" yaml:"predicted_count"`

	// Threshold is the minimum score a pair needed to match.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// Matched lists accepted pairs in descending score order.
	Matched []CoveragePair `json:"matched" yaml:"matched"`

	// Misses lists ground-truth feature ids with no accepted match.
	Misses []string `json:"misses" yaml:"misses"`

	// Extras lists predicted feature ids with no accepted match.
	Extras []string `json:"extras" yaml:"extras"`

	// Recall is matched over ground-truth count, 0 when the ground truth
	// is empty.
	Recall float64 `json:"recall" yaml:"recall"`

	// Precision is matched over predicted count, 0 when the prediction
	// is empty.
	Precision float64 `json:"precision" yaml:"precision"`
}
