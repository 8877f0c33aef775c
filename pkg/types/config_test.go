package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Corpus.MaxChunkChars = 0
	cfg.Store.MaxResults = -1
	cfg.Generator.Provider = "gpt"
	cfg.Synthesis.Mode = "loop"
	cfg.Merge.Threshold = 1.5

	err := cfg.Validate()
	require.Error(t, err)

	for _, want := range []string{
		"corpus.max_chunk_chars",
		"store.max_results",
		"generator.provider",
		"synthesis.mode",
		"merge.threshold",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateChunkBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Corpus.MinChunkChars = cfg.Corpus.MaxChunkChars

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be below max_chunk_chars")
}

func TestValidateCoverageWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Coverage.NameWeight = 0
	cfg.Coverage.ParentWeight = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coverage weights")

	cfg.Coverage.ParentWeight = -0.1
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be negative")
}

func TestValidateFormatAndTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Generator.Format = "toml"
	cfg.Generator.Timeout = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generator.format")
	assert.Contains(t, err.Error(), "generator.timeout")
}
