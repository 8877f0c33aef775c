// Copyright fmforge, 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fmforge/fmforge/internal/wellformed"
	"github.com/fmforge/fmforge/pkg/types"
)

var checkCmd = &cobra.Command{
	Use:   "check <model-file>...",
	Short: "Validate serialized feature models",
	Long: `Check runs well-formedness validation over serialized feature models
without repairing anything. Every violation in a document is collected
in one pass: structural defects, invalid names, duplicate ids, group
arity, and dialect deviations. The exit status is non-zero when any
file has violations.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().String("format", "", "force the document format: xml or json (default: from extension)")
	checkCmd.Flags().Bool("json", false, "output violations as JSON")

	rootCmd.AddCommand(checkCmd)
}

// fileReport pairs a checked file with its violations for JSON output.
type fileReport struct {
	File       string                 `json:"file"`
	Violations []wellformed.Violation `json:"violations"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}

	forced, _ := cmd.Flags().GetString("format")
	if forced != "" && forced != string(types.FormatXML) && forced != string(types.FormatJSON) {
		return fmt.Errorf("unsupported format %q: use xml or json", forced)
	}

	var reports []fileReport
	total := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		format := wellformed.DetectFormat(path)
		if forced != "" {
			format = types.FragmentFormat(forced)
		}
		vs := wellformed.Check(data, format)
		total += len(vs)
		reports = append(reports, fileReport{File: path, Violations: vs})
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			if len(r.Violations) == 0 {
				fmt.Printf("%s: ok\n", r.File)
				continue
			}
			fmt.Printf("%s: %d violation(s)\n", r.File, len(r.Violations))
			for _, v := range r.Violations {
				fmt.Printf("  %s\n", v)
			}
		}
	}

	if total > 0 {
		return fmt.Errorf("%d violation(s) across %d file(s)", total, len(args))
	}
	return nil
}
