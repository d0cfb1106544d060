package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/pdxtools/guiscale/internal/pipeline"
	"github.com/pdxtools/guiscale/internal/store"
)

var (
	learnOriginals   string
	learnTrees       []string
	learnExt         string
	learnDB          string
	learnConcurrency int
)

// learnCmd represents the learn command
var learnCmd = &cobra.Command{
	Use:   "learn",
	Short: "Infer scaling factors from paired corpora",
	Long: `Learn walks the original tree, pairs every file against each
target-resolution tree by relative path, and persists per-attribute
scaling statistics into the factor store:
- attribute values are extracted from both sides of each pair
- per-index ratios scaled/original form the factor distribution
- mean, median, std-dev, min and max are stored per (attribute, resolution)

Files missing a counterpart are excluded from that pair and reported;
only permission errors abort the run.

Example:
  guiscale learn --originals ./interface --tree 2K=./interface_2k --tree 4K=./interface_4k
  guiscale learn --originals ./gui --tree 2K=./gui_2k --ext .gfx --db factors.db`,
	RunE: runLearn,
}

func init() {
	rootCmd.AddCommand(learnCmd)

	learnCmd.Flags().StringVar(&learnOriginals, "originals", "", "directory tree of original-resolution files (required)")
	learnCmd.Flags().StringArrayVar(&learnTrees, "tree", nil, "target-resolution tree as NAME=path (repeatable, required)")
	learnCmd.Flags().StringVar(&learnExt, "ext", "", "file extension to process (default from config, .gui)")
	learnCmd.Flags().StringVar(&learnDB, "db", "", "factor store path (default from config, guiscale.db)")
	learnCmd.Flags().IntVar(&learnConcurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")

	_ = learnCmd.MarkFlagRequired("originals")
	_ = learnCmd.MarkFlagRequired("tree")
}

func runLearn(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()

	trees, err := parseTrees(learnTrees)
	if err != nil {
		return err
	}
	cfg.Corpus.OriginalDir = learnOriginals
	cfg.Corpus.ResolutionDirs = trees
	if learnExt != "" {
		cfg.Corpus.Extension = normalizeExt(learnExt)
	}
	if learnDB != "" {
		cfg.Store.Path = learnDB
	}
	cfg.Concurrency.Workers = learnConcurrency

	log := newLogger(cfg)

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	p, err := pipeline.New(cfg, st, log)
	if err != nil {
		return err
	}
	if err := p.CheckTrees(); err != nil {
		return err
	}

	summary, err := p.Learn(context.Background())
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Files:          %d\n", summary.Files)
	fmt.Fprintf(os.Stderr, "  Learned pairs:  %d\n", summary.LearnedPairs)
	fmt.Fprintf(os.Stderr, "  Skipped pairs:  %d\n", summary.SkippedPairs)
	fmt.Fprintf(os.Stderr, "  Skipped files:  %d\n", summary.SkippedFiles)
	fmt.Fprintf(os.Stderr, "  Store:          %s\n", cfg.Store.Path)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
