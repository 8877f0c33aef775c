// Copyright fmforge, 2026. All rights reserved.

// Package main is the entry point for the fmforge CLI.
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/fmforge/fmforge/internal/logger"
	"github.com/fmforge/fmforge/internal/secrets"
	"github.com/fmforge/fmforge/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the fmforge CLI.
var rootCmd = &cobra.Command{
	Use:   "fmforge",
	Short: "Feature model synthesis from product documents",
	Long: `fmforge grows software product line feature models from natural-language
product documents. An SQLite full-text index over the chunked corpus
feeds evidence to a generative model; returned fragments are merged
into an accumulating model until it stops growing or stalls.

Each pipeline stage is a subcommand: ingest chunks raw documents, index
builds the retrieval store, synth runs the synthesis loop, eval scores
a predicted model against a reference, check validates serialized
models, and trace inspects recorded runs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", s.Keys())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./fmforge.yaml or ~/.config/fmforge/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("fmforge")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "fmforge"))
		}
	}

	viper.SetEnvPrefix("FMFORGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig layers the effective configuration: built-in defaults,
// then the config file, then FMFORGE_* environment variables, then
// secrets. Command flags apply on top in each command, which then
// validates the result. Logging is installed here so every command
// logs the same way.
func loadConfig(cmd *cobra.Command) (types.Config, error) {
	cfg := types.DefaultConfig()

	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	loadedSecrets.Apply(&cfg.Generator)

	if v, _ := rootCmd.PersistentFlags().GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	logger.Init(logger.FromTypes(cfg.Log))

	return cfg, nil
}

// applyEnv overrides scalar settings from the environment, e.g.
// FMFORGE_GENERATOR_MODEL or FMFORGE_SYNTHESIS_DOMAIN.
func applyEnv(cfg *types.Config) {
	set := func(key string, dst *string) {
		if v := viper.GetString(key); v != "" {
			*dst = v
		}
	}
	set("generator.provider", (*string)(&cfg.Generator.Provider))
	set("generator.model", &cfg.Generator.Model)
	set("generator.host", &cfg.Generator.Host)
	set("generator.format", (*string)(&cfg.Generator.Format))
	set("synthesis.mode", (*string)(&cfg.Synthesis.Mode))
	set("synthesis.root_feature", &cfg.Synthesis.RootFeature)
	set("synthesis.domain", &cfg.Synthesis.Domain)
	set("log.level", &cfg.Log.Level)
	set("log.format", &cfg.Log.Format)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
