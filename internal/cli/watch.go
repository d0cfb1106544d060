package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdxtools/guiscale/internal/pipeline"
	"github.com/pdxtools/guiscale/internal/store"
	"github.com/pdxtools/guiscale/internal/watch"
)

var (
	watchInput  string
	watchOutput string
	watchExt    string
	watchDB     string
	watchRate   float64
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <resolution>",
	Short: "Retransform files as they change",
	Long: `Watch monitors the input tree and reapplies the learned per-attribute
factors whenever a matching file is created or written. Editor save
bursts are debounced per file. Runs until interrupted.

Example:
  guiscale watch 2K --input ./interface --output ./interface_2k
  guiscale watch 4K --input ./gui --output ./out --rate 0.5`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchInput, "input", "", "input directory tree (required)")
	watchCmd.Flags().StringVar(&watchOutput, "output", "", "output directory tree (required)")
	watchCmd.Flags().StringVar(&watchExt, "ext", "", "file extension to process (default from config, .gui)")
	watchCmd.Flags().StringVar(&watchDB, "db", "", "factor store path (default from config, guiscale.db)")
	watchCmd.Flags().Float64Var(&watchRate, "rate", 2.0, "max retransforms per second per file")

	_ = watchCmd.MarkFlagRequired("input")
	_ = watchCmd.MarkFlagRequired("output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	resolution := args[0]

	cfg := buildConfig()
	if watchExt != "" {
		cfg.Corpus.Extension = normalizeExt(watchExt)
	}
	if watchDB != "" {
		cfg.Store.Path = watchDB
	}

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := watch.New(p, resolution, watchInput, watchOutput, watchRate, log)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
