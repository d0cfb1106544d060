package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdxtools/guiscale/internal/pipeline"
	"github.com/pdxtools/guiscale/internal/store"
)

var (
	reportDB   string
	reportJSON string
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report <resolution>",
	Short: "Write the per-resolution statistics summary as JSON",
	Long: `Report serializes the learned statistics for one resolution, keyed by
filename then attribute, as indented JSON.

Example:
  guiscale report 2K
  guiscale report 4K --json factors-4k.json --db factors.db`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportDB, "db", "", "factor store path (default from config, guiscale.db)")
	reportCmd.Flags().StringVar(&reportJSON, "json", "", "output JSON path (default factors-<resolution>.json)")
}

func runReport(cmd *cobra.Command, args []string) error {
	resolution := args[0]

	cfg := buildConfig()
	if reportDB != "" {
		cfg.Store.Path = reportDB
	}

	outPath := reportJSON
	if outPath == "" {
		outPath = fmt.Sprintf("factors-%s.json", resolution)
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

	if err := p.WriteReport(context.Background(), resolution, outPath); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "✓ Wrote report: %s\n", outPath)
	return nil
}
