package types

import (
	"errors"
	"fmt"
	"time"
)

// CorpusConfig holds settings for document ingestion.
type CorpusConfig struct {
	// RawDir is the directory of source documents (default "corpus/raw").
	RawDir string `json:"raw_dir" yaml:"raw_dir"`

	// ChunksDir is the directory for chunk files (default "corpus/chunks").
	ChunksDir string `json:"chunks_dir" yaml:"chunks_dir"`

	// Patterns are doublestar globs selecting source files under RawDir
	// (default "**/*.txt", "**/*.md").
	Patterns []string `json:"patterns" yaml:"patterns"`

	// MaxChunkChars caps the size of a single chunk (default 2500).
	MaxChunkChars int `json:"max_chunk_chars" yaml:"max_chunk_chars"`

	// MinChunkChars merges undersized chunks into their predecessor
	// (default 200).
	MinChunkChars int `json:"min_chunk_chars" yaml:"min_chunk_chars"`
}

// StoreConfig holds settings for the chunk index and retrieval.
type StoreConfig struct {
	// IndexDir is the directory holding the SQLite index (default "index").
	IndexDir string `json:"index_dir" yaml:"index_dir"`

	// MaxResults is the maximum number of chunks returned per retrieval
	// query (default 12).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// MaxTotalChars caps the combined size of retrieval evidence handed
	// to the generator (default 18000).
	MaxTotalChars int `json:"max_total_chars" yaml:"max_total_chars"`
}

// GeneratorProvider identifies the generative backend.
type GeneratorProvider string

const (
	ProviderOllama GeneratorProvider = "ollama"
	ProviderClaude GeneratorProvider = "claude"
	ProviderMock   GeneratorProvider = "mock"
)

// FragmentFormat selects the serialization contract the generator is
// asked to follow.
type FragmentFormat string

const (
	FormatXML  FragmentFormat = "xml"
	FormatJSON FragmentFormat = "json"
)

// GeneratorConfig holds settings for generative model calls.
type GeneratorConfig struct {
	// Provider selects the backend: ollama, claude, or mock.
	Provider GeneratorProvider `json:"provider" yaml:"provider"`

	// Model is the model identifier (e.g. "llama3.1:8b",
	// "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// Host is the base URL for self-hosted backends
	// (default "http://localhost:11434" for ollama).
	Host string `json:"host,omitempty" yaml:"host,omitempty"`

	// APIKey is the authentication key for hosted backends. Usually
	// loaded from .secrets/ rather than the config file.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Timeout bounds a single generation call (default 120s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxRetries is the number of retry attempts for transient call
	// failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Temperature is the sampling temperature (default 0.2).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxTokens caps the response length (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Format is the fragment contract requested from the model: xml or
	// json (default xml).
	Format FragmentFormat `json:"format" yaml:"format"`
}

// SynthesisMode selects between the single-stage and iterative loops.
type SynthesisMode string

const (
	// ModeSingle runs retrieval and generation exactly once.
	ModeSingle SynthesisMode = "ss"

	// ModeIterative loops until convergence, stall, or the iteration cap.
	ModeIterative SynthesisMode = "is"
)

// SynthesisConfig holds settings for the synthesis loop.
type SynthesisConfig struct {
	// Mode is the loop mode: ss or is (default is).
	Mode SynthesisMode `json:"mode" yaml:"mode"`

	// RootFeature is the name of the model root. Required.
	RootFeature string `json:"root_feature" yaml:"root_feature"`

	// Domain is a short description of the product domain used in
	// retrieval queries and prompts. Required.
	Domain string `json:"domain" yaml:"domain"`

	// MaxIterations caps the iterative loop (default 10).
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// QuietIterations is the number of consecutive iterations without
	// model growth that declares convergence (default 2).
	QuietIterations int `json:"quiet_iterations" yaml:"quiet_iterations"`

	// FailureStreak is the number of consecutive same-reason parse
	// failures that declares a stall (default 3).
	FailureStreak int `json:"failure_streak" yaml:"failure_streak"`

	// FrontierSize caps how many frontier feature names feed the
	// retrieval query of an iteration (default 5).
	FrontierSize int `json:"frontier_size" yaml:"frontier_size"`

	// RunsDir is the directory for run artifacts (default "runs").
	RunsDir string `json:"runs_dir" yaml:"runs_dir"`
}

// MergeConfig holds settings for fragment merging.
type MergeConfig struct {
	// Threshold is the minimum name similarity for treating a proposed
	// feature as an alias of an existing one (default 0.85).
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// CacheSize bounds the similarity token cache (default 4096).
	CacheSize int `json:"cache_size" yaml:"cache_size"`
}

// CoverageConfig holds settings for coverage evaluation.
type CoverageConfig struct {
	// Threshold is the minimum pair similarity for a match (default 0.35).
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// NameWeight weights feature-name similarity in the pair score
	// (default 0.9).
	NameWeight float64 `json:"name_weight" yaml:"name_weight"`

	// ParentWeight weights parent-name similarity in the pair score
	// (default 0.1).
	ParentWeight float64 `json:"parent_weight" yaml:"parent_weight"`

	// EvalDir is the directory for evaluation reports (default "eval").
	EvalDir string `json:"eval_dir" yaml:"eval_dir"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn, or error (default info).
	Level string `json:"level" yaml:"level"`

	// Format is the handler format: text or json (default text).
	Format string `json:"format" yaml:"format"`
}

// Config groups all component configurations.
type Config struct {
	Corpus    CorpusConfig    `json:"corpus" yaml:"corpus"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Generator GeneratorConfig `json:"generator" yaml:"generator"`
	Synthesis SynthesisConfig `json:"synthesis" yaml:"synthesis"`
	Merge     MergeConfig     `json:"merge" yaml:"merge"`
	Coverage  CoverageConfig  `json:"coverage" yaml:"coverage"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	return Config{
		Corpus: CorpusConfig{
			RawDir:        "corpus/raw",
			ChunksDir:     "corpus/chunks",
			Patterns:      []string{"**/*.txt", "**/*.md"},
			MaxChunkChars: 2500,
			MinChunkChars: 200,
		},
		Store: StoreConfig{
			IndexDir:      "index",
			MaxResults:    12,
			MaxTotalChars: 18000,
		},
		Generator: GeneratorConfig{
			Provider:    ProviderOllama,
			Model:       "llama3.1:8b",
			Host:        "http://localhost:11434",
			Timeout:     120 * time.Second,
			MaxRetries:  3,
			Temperature: 0.2,
			MaxTokens:   4096,
			Format:      FormatXML,
		},
		Synthesis: SynthesisConfig{
			Mode:            ModeIterative,
			MaxIterations:   10,
			QuietIterations: 2,
			FailureStreak:   3,
			FrontierSize:    5,
			RunsDir:         "runs",
		},
		Merge: MergeConfig{
			Threshold: 0.85,
			CacheSize: 4096,
		},
		Coverage: CoverageConfig{
			Threshold:    0.35,
			NameWeight:   0.9,
			ParentWeight: 0.1,
			EvalDir:      "eval",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks every bound the engine depends on and reports all
// problems at once. A non-nil error means the configuration must not be
// used.
func (c Config) Validate() error {
	var errs []error

	if c.Corpus.MaxChunkChars <= 0 {
		errs = append(errs, fmt.Errorf("corpus.max_chunk_chars must be positive, got %d", c.Corpus.MaxChunkChars))
	}
	if c.Corpus.MinChunkChars < 0 {
		errs = append(errs, fmt.Errorf("corpus.min_chunk_chars must not be negative, got %d", c.Corpus.MinChunkChars))
	}
	if c.Corpus.MinChunkChars >= c.Corpus.MaxChunkChars && c.Corpus.MaxChunkChars > 0 {
		errs = append(errs, fmt.Errorf("corpus.min_chunk_chars %d must be below max_chunk_chars %d", c.Corpus.MinChunkChars, c.Corpus.MaxChunkChars))
	}
	if c.Store.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("store.max_results must be positive, got %d", c.Store.MaxResults))
	}
	if c.Store.MaxTotalChars <= 0 {
		errs = append(errs, fmt.Errorf("store.max_total_chars must be positive, got %d", c.Store.MaxTotalChars))
	}
	switch c.Generator.Provider {
	case ProviderOllama, ProviderClaude, ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("generator.provider must be ollama, claude, or mock, got %q", c.Generator.Provider))
	}
	if c.Generator.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("generator.timeout must be positive, got %s", c.Generator.Timeout))
	}
	if c.Generator.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("generator.max_retries must not be negative, got %d", c.Generator.MaxRetries))
	}
	if c.Generator.Format != FormatXML && c.Generator.Format != FormatJSON {
		errs = append(errs, fmt.Errorf("generator.format must be xml or json, got %q", c.Generator.Format))
	}
	if c.Synthesis.Mode != ModeSingle && c.Synthesis.Mode != ModeIterative {
		errs = append(errs, fmt.Errorf("synthesis.mode must be ss or is, got %q", c.Synthesis.Mode))
	}
	if c.Synthesis.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("synthesis.max_iterations must be positive, got %d", c.Synthesis.MaxIterations))
	}
	if c.Synthesis.QuietIterations < 1 {
		errs = append(errs, fmt.Errorf("synthesis.quiet_iterations must be at least 1, got %d", c.Synthesis.QuietIterations))
	}
	if c.Synthesis.FailureStreak < 1 {
		errs = append(errs, fmt.Errorf("synthesis.failure_streak must be at least 1, got %d", c.Synthesis.FailureStreak))
	}
	if c.Synthesis.FrontierSize <= 0 {
		errs = append(errs, fmt.Errorf("synthesis.frontier_size must be positive, got %d", c.Synthesis.FrontierSize))
	}
	if c.Merge.Threshold < 0 || c.Merge.Threshold > 1 {
		errs = append(errs, fmt.Errorf("merge.threshold must be in [0,1], got %g", c.Merge.Threshold))
	}
	if c.Coverage.Threshold < 0 || c.Coverage.Threshold > 1 {
		errs = append(errs, fmt.Errorf("coverage.threshold must be in [0,1], got %g", c.Coverage.Threshold))
	}
	if c.Coverage.NameWeight < 0 || c.Coverage.ParentWeight < 0 {
		errs = append(errs, fmt.Errorf("coverage weights must not be negative, got name %g parent %g", c.Coverage.NameWeight, c.Coverage.ParentWeight))
	}
	if c.Coverage.NameWeight+c.Coverage.ParentWeight == 0 {
		errs = append(errs, errors.New("coverage weights must not both be zero"))
	}

	return errors.Join(errs...)
}
