// Copyright fmforge, 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fmforge/fmforge/internal/synth"
)

var traceCmd = &cobra.Command{
	Use:   "trace <run-dir-or-trace-file>",
	Short: "Summarize a recorded synthesis run",
	Long: `Trace prints the iteration-by-iteration record of a synthesis run:
what each iteration retrieved, how its fragment parsed, how the model
grew, and the convergence verdict. Pass a run directory or the
trace.json inside it.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func init() {
	traceCmd.Flags().Bool("json", false, "print the raw trace as JSON")

	rootCmd.AddCommand(traceCmd)
}

func runTrace(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}

	path := args[0]
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, "trace.json")
	}

	trace, err := synth.LoadTrace(path)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(trace)
	}

	fmt.Printf("run      %s\n", trace.RunID)
	fmt.Printf("mode     %s  provider %s  model %s  format %s\n",
		trace.Mode, trace.Provider, trace.Model, trace.Format)
	fmt.Printf("root     %s  domain %q\n", trace.RootFeature, trace.Domain)
	fmt.Printf("outcome  %s  features %d\n", trace.Outcome, trace.FeatureCount)

	fmt.Printf("\n%-4s  %-18s  %-8s  %-6s  %-11s  %9s\n",
		"Iter", "Parse", "Fragment", "Model", "Verdict", "Elapsed")
	fmt.Println(strings.Repeat("-", 68))

	for _, rec := range trace.Iterations {
		parse := string(rec.Parse)
		if rec.GenError != "" {
			parse = "gen-error"
		}
		fmt.Printf("%-4d  %-18s  %-8d  %-6d  %-11s  %7dms\n",
			rec.Index, parse, rec.FragmentSize, rec.ModelSize, rec.Verdict, rec.ElapsedMS)
	}
	return nil
}
