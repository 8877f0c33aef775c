// Copyright fmforge, 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fmforge/fmforge/internal/coverage"
	"github.com/fmforge/fmforge/internal/wellformed"
	"github.com/fmforge/fmforge/pkg/fm"
	"github.com/fmforge/fmforge/pkg/types"
)

var evalCmd = &cobra.Command{
	Use:   "eval <predicted-model> <reference-model>",
	Short: "Score a synthesized model against a reference model",
	Long: `Eval matches features of the predicted model against a hand-built
reference model, pairing them greedily by name and parent similarity.
It prints recall, precision, misses, and extras, and writes the full
report into the eval directory. Model files may be FeatureIDE XML or
JSON; the codec is picked from the file extension.`,
	Args: cobra.ExactArgs(2),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().Float64("threshold", 0, "minimum pair similarity for a match")
	evalCmd.Flags().String("eval-dir", "", "directory for evaluation reports")
	evalCmd.Flags().Bool("json", false, "print the full report as JSON")

	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetFloat64("threshold"); v > 0 {
		cfg.Coverage.Threshold = v
	}
	if v, _ := cmd.Flags().GetString("eval-dir"); v != "" {
		cfg.Coverage.EvalDir = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	predicted, err := loadModel(args[0])
	if err != nil {
		return err
	}
	reference, err := loadModel(args[1])
	if err != nil {
		return err
	}

	result := coverage.NewEvaluator(cfg.Coverage).Evaluate(reference, predicted)

	path, err := coverage.WriteReport(cfg.Coverage.EvalDir, args[0], args[1], result)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		fmt.Printf("recall    %.3f  (%d of %d reference features matched)\n",
			result.Recall, len(result.Matched), result.GroundTruthCount)
		fmt.Printf("precision %.3f  (%d of %d predicted features matched)\n",
			result.Precision, len(result.Matched), result.PredictedCount)
		if len(result.Misses) > 0 {
			fmt.Printf("missed    %s\n", strings.Join(result.Misses, ", "))
		}
		if len(result.Extras) > 0 {
			fmt.Printf("extra     %s\n", strings.Join(result.Extras, ", "))
		}
	}

	fmt.Printf("report written to %s\n", path)
	return nil
}

// loadModel reads a serialized feature model, picking the codec from
// the file extension.
func loadModel(path string) (*fm.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model %s: %w", path, err)
	}
	if wellformed.DetectFormat(path) == types.FormatJSON {
		return fm.DecodeJSON(data)
	}
	return fm.DecodeXML(data)
}
