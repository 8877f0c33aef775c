// Copyright fmforge, 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fmforge/fmforge/internal/corpus"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Chunk raw corpus documents into retrieval units",
	Long: `Ingest discovers documents under the corpus raw directory, strips
boilerplate and trailing reference sections, splits each document into
heading-aligned chunks, and writes one chunk file per document.
Documents whose chunk file is newer than the source are skipped.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("raw-dir", "", "directory of source documents")
	ingestCmd.Flags().String("chunks-dir", "", "directory for chunk files")
	ingestCmd.Flags().StringSlice("pattern", nil, "glob patterns selecting source files (repeatable)")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetString("raw-dir"); v != "" {
		cfg.Corpus.RawDir = v
	}
	if v, _ := cmd.Flags().GetString("chunks-dir"); v != "" {
		cfg.Corpus.ChunksDir = v
	}
	if v, _ := cmd.Flags().GetStringSlice("pattern"); len(v) > 0 {
		cfg.Corpus.Patterns = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	summary, err := corpus.Ingest(cmd.Context(), cfg.Corpus, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d document(s) failed ingestion", summary.Failed)
	}
	return nil
}
