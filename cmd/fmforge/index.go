// Copyright fmforge, 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fmforge/fmforge/internal/store"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the SQLite retrieval index from chunk files",
	Long: `Index loads the chunk files produced by ingest and upserts them into
an SQLite database with FTS5 full-text indexing. Documents whose chunk
file is unchanged are skipped on subsequent runs. --stats prints the
index contents without modifying anything.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().String("chunks-dir", "", "directory of chunk files")
	indexCmd.Flags().String("index-dir", "", "directory holding the SQLite index")
	indexCmd.Flags().Bool("stats", false, "print chunk count and sources instead of indexing")

	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetString("chunks-dir"); v != "" {
		cfg.Corpus.ChunksDir = v
	}
	if v, _ := cmd.Flags().GetString("index-dir"); v != "" {
		cfg.Store.IndexDir = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	if stats, _ := cmd.Flags().GetBool("stats"); stats {
		count, err := st.Count(cmd.Context())
		if err != nil {
			return err
		}
		sources, err := st.Sources(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%d chunks from %d source(s)\n", count, len(sources))
		for _, s := range sources {
			fmt.Println("  " + s)
		}
		return nil
	}

	summary, err := st.Index(cmd.Context(), cfg.Corpus.ChunksDir, os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d document(s) failed indexing", summary.Failed)
	}
	return nil
}
