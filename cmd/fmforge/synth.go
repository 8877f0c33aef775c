// Copyright fmforge, 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fmforge/fmforge/internal/generate"
	"github.com/fmforge/fmforge/internal/store"
	"github.com/fmforge/fmforge/internal/synth"
	"github.com/fmforge/fmforge/pkg/types"
)

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Run the synthesis loop and write run artifacts",
	Long: `Synth retrieves evidence for the target domain from the chunk index,
prompts the generative model for feature model fragments, and merges
them into an accumulating model. Single-stage mode (ss) does one pass;
iterative mode (is) loops until the model stops growing, generation
stalls, or the iteration cap is reached.

Artifacts land in a fresh directory under the runs directory: the full
iteration trace, the final model as FeatureIDE XML, and the same model
as JSON.`,
	RunE: runSynth,
}

func init() {
	synthCmd.Flags().String("root", "", "root feature name (required unless set in config)")
	synthCmd.Flags().String("domain", "", "product domain description for retrieval and prompts")
	synthCmd.Flags().String("mode", "", "loop mode: ss or is")
	synthCmd.Flags().String("provider", "", "generator backend: ollama, claude, or mock")
	synthCmd.Flags().String("model", "", "generative model identifier")
	synthCmd.Flags().String("host", "", "base URL for self-hosted backends")
	synthCmd.Flags().String("format", "", "fragment contract: xml or json")
	synthCmd.Flags().Int("max-iterations", 0, "iteration cap for iterative mode")
	synthCmd.Flags().String("index-dir", "", "directory holding the SQLite index")
	synthCmd.Flags().String("runs-dir", "", "directory for run artifacts")

	rootCmd.AddCommand(synthCmd)
}

func runSynth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("root"); v != "" {
		cfg.Synthesis.RootFeature = v
	}
	if v, _ := flags.GetString("domain"); v != "" {
		cfg.Synthesis.Domain = v
	}
	if v, _ := flags.GetString("mode"); v != "" {
		cfg.Synthesis.Mode = types.SynthesisMode(v)
	}
	if v, _ := flags.GetString("provider"); v != "" {
		cfg.Generator.Provider = types.GeneratorProvider(v)
	}
	if v, _ := flags.GetString("model"); v != "" {
		cfg.Generator.Model = v
	}
	if v, _ := flags.GetString("host"); v != "" {
		cfg.Generator.Host = v
	}
	if v, _ := flags.GetString("format"); v != "" {
		cfg.Generator.Format = types.FragmentFormat(v)
	}
	if v, _ := flags.GetInt("max-iterations"); v > 0 {
		cfg.Synthesis.MaxIterations = v
	}
	if v, _ := flags.GetString("index-dir"); v != "" {
		cfg.Store.IndexDir = v
	}
	if v, _ := flags.GetString("runs-dir"); v != "" {
		cfg.Synthesis.RunsDir = v
	}

	if cfg.Synthesis.RootFeature == "" {
		return fmt.Errorf("--root is required (or set synthesis.root_feature in the config)")
	}
	if cfg.Synthesis.Domain == "" {
		return fmt.Errorf("--domain is required (or set synthesis.domain in the config)")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := generate.New(cfg.Generator)
	if err != nil {
		return err
	}

	loop := synth.New(st, client, cfg)
	model, trace, err := loop.Run(cmd.Context())
	if err != nil {
		return err
	}

	dir, err := synth.WriteArtifacts(cfg.Synthesis.RunsDir, trace, model)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %s after %d iteration(s), %d feature(s)\n",
		trace.RunID, trace.Outcome, len(trace.Iterations), model.Len())
	fmt.Printf("artifacts in %s\n", dir)
	return nil
}
