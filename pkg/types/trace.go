// Copyright fmforge, 2026. All rights reserved.

// Package types defines the shared data structures of the fmforge
// pipeline: configuration, corpus chunks, retrieval evidence, merge
// diffs, iteration records, run traces, and coverage results.
// See docs/ARCHITECTURE.md § Pipeline Interface, § Data Structures.
package types

import "time"

// ParseStatus classifies the outcome of parsing one generator response.
type ParseStatus string

const (
	// ParseOK means a usable fragment was produced.
	ParseOK ParseStatus = "ok"

	// ParseMalformed means the response payload did not parse in the
	// requested serialization format.
	ParseMalformed ParseStatus = "malformed-syntax"

	// ParseSchemaViolation means the payload parsed but did not satisfy
	// the fragment contract.
	ParseSchemaViolation ParseStatus = "schema-violation"

	// ParseEmpty means the response carried no usable payload at all.
	ParseEmpty ParseStatus = "empty-output"
)

// RetrievedChunk is one chunk of evidence returned by a retrieval query.
type RetrievedChunk struct {
	// ChunkID identifies the chunk in the store.
	ChunkID string `json:"chunk_id" yaml:"chunk_id"`

	// Source is the originating document path, relative to the corpus.
	Source string `json:"source" yaml:"source"`

	// Heading is the section heading the chunk was cut under, if any.
	Heading string `json:"heading,omitempty" yaml:"heading,omitempty"`

	// Text is the chunk content, possibly clipped by the evidence budget.
	Text string `json:"text" yaml:"text"`

	// Rank is the raw bm25 rank from the index. Lower is better.
	Rank float64 `json:"rank" yaml:"rank"`
}

// RetrievalContext is the evidence set assembled for one generator call.
type RetrievalContext struct {
	// Query is the retrieval query string.
	Query string `json:"query" yaml:"query"`

	// Chunks lists the retrieved chunks in rank order.
	Chunks []RetrievedChunk `json:"chunks" yaml:"chunks"`

	// Truncated reports whether the evidence budget clipped the set.
	Truncated bool `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

// ChunkIDs returns the ids of all chunks in order.
func (rc RetrievalContext) ChunkIDs() []string {
	ids := make([]string, 0, len(rc.Chunks))
	for _, c := range rc.Chunks {
		ids = append(ids, c.ChunkID)
	}
	return ids
}

// AliasedEntry records one fragment feature folded into an existing
// model feature by similarity matching.
type AliasedEntry struct {
	// Surface is the proposed name as generated.
	Surface string `json:"surface" yaml:"surface"`

	// FeatureID is the existing feature the name was folded into.
	FeatureID string `json:"feature_id" yaml:"feature_id"`

	// Score is the similarity that triggered the fold.
	Score float64 `json:"score" yaml:"score"`
}

// ConflictEntry records a variability disagreement resolved by keeping
// the existing value.
type ConflictEntry struct {
	// FeatureID is the feature whose variability was contested.
	FeatureID string `json:"feature_id" yaml:"feature_id"`

	// Existing is the kind already in the model.
	Existing string `json:"existing" yaml:"existing"`

	// Proposed is the kind the fragment wanted.
	Proposed string `json:"proposed" yaml:"proposed"`
}

// ReparentEntry records a feature moved to a parent that materialized
// after the feature was recovered under the root.
type ReparentEntry struct {
	// FeatureID is the feature that moved.
	FeatureID string `json:"feature_id" yaml:"feature_id"`

	// From and To are the old and new parent ids.
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// MergeDiff enumerates everything one merge changed or declined to
// change. An all-empty diff means the fragment taught the model nothing.
type MergeDiff struct {
	// Added lists ids of features new to the model, in attachment order.
	Added []string `json:"added,omitempty" yaml:"added,omitempty"`

	// Recovered lists the subset of Added that was attached under the
	// root because its stated parent never materialized.
	Recovered []string `json:"recovered,omitempty" yaml:"recovered,omitempty"`

	// Aliased lists proposed names folded into existing features.
	Aliased []AliasedEntry `json:"aliased,omitempty" yaml:"aliased,omitempty"`

	// Reparented lists recovered features moved to their stated parent.
	Reparented []ReparentEntry `json:"reparented,omitempty" yaml:"reparented,omitempty"`

	// ConflictsIgnored lists variability disagreements that kept the
	// existing value.
	ConflictsIgnored []ConflictEntry `json:"conflicts_ignored,omitempty" yaml:"conflicts_ignored,omitempty"`

	// GroupsDowngraded lists parent ids whose mixed sibling groups were
	// downgraded to optional.
	GroupsDowngraded []string `json:"groups_downgraded,omitempty" yaml:"groups_downgraded,omitempty"`
}

// Quiet reports whether the merge neither grew nor restructured the
// model. Aliases and ignored conflicts do not count as growth.
func (d MergeDiff) Quiet() bool {
	return len(d.Added) == 0 && len(d.Reparented) == 0
}

// IterationRecord captures everything observable about one loop
// iteration. Records are appended even when the iteration failed.
type IterationRecord struct {
	// Index is the 1-based iteration number.
	Index int `json:"index" yaml:"index"`

	// Retrieval is the evidence set used for the generator call.
	Retrieval RetrievalContext `json:"retrieval" yaml:"retrieval"`

	// Prompt is the fully rendered prompt sent to the generator.
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty"`

	// RawOutput is the generator response before any parsing.
	RawOutput string `json:"raw_output,omitempty" yaml:"raw_output,omitempty"`

	// Parse classifies the parse outcome. Empty when the generator call
	// itself failed and nothing reached the parser.
	Parse ParseStatus `json:"parse,omitempty" yaml:"parse,omitempty"`

	// ParseError holds the parse failure detail when Parse is not ok.
	ParseError string `json:"parse_error,omitempty" yaml:"parse_error,omitempty"`

	// GenError holds the generation failure detail when the call itself
	// failed after retries.
	GenError string `json:"gen_error,omitempty" yaml:"gen_error,omitempty"`

	// FragmentSize is the number of features the fragment proposed.
	FragmentSize int `json:"fragment_size" yaml:"fragment_size"`

	// Diff describes what merging changed. Nil when no merge ran.
	Diff *MergeDiff `json:"diff,omitempty" yaml:"diff,omitempty"`

	// ModelSize is the feature count after this iteration.
	ModelSize int `json:"model_size" yaml:"model_size"`

	// Verdict is the convergence state after observing this iteration.
	Verdict string `json:"verdict" yaml:"verdict"`

	// ElapsedMS is the wall-clock duration of the iteration.
	ElapsedMS int64 `json:"elapsed_ms" yaml:"elapsed_ms"`
}

// Run outcome values recorded in RunTrace.Outcome.
const (
	OutcomeConverged = "converged"
	OutcomeStalled   = "stalled"
	OutcomeMaxIter   = "max-iter-reached"
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
)

// RunTrace is the full audit record of one synthesis run.
type RunTrace struct {
	// RunID uniquely names the run and its artifact directory.
	RunID string `json:"run_id" yaml:"run_id"`

	// Mode is the loop mode the run used.
	Mode SynthesisMode `json:"mode" yaml:"mode"`

	// RootFeature and Domain echo the run inputs.
	RootFeature string `json:"root_feature" yaml:"root_feature"`
	Domain      string `json:"domain" yaml:"domain"`

	// Provider and Model identify the generator backend.
	Provider GeneratorProvider `json:"provider" yaml:"provider"`
	Model    string            `json:"model" yaml:"model"`

	// Format is the fragment contract the run requested.
	Format FragmentFormat `json:"format" yaml:"format"`

	// StartedAt and FinishedAt bound the run in wall-clock time.
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	// Outcome is the final run outcome.
	Outcome string `json:"outcome" yaml:"outcome"`

	// FeatureCount is the size of the returned model.
	FeatureCount int `json:"feature_count" yaml:"feature_count"`

	// Iterations lists one record per iteration, in order.
	Iterations []IterationRecord `json:"iterations" yaml:"iterations"`
}
