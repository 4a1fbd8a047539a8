package cmd

import (
	"github.com/seleluciano/API-LectorFacturas/internal/evalcmd"
	"github.com/spf13/cobra"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Invoice extraction evaluation tools",
		Long: `Evaluation tools for measuring invoice extraction accuracy.

Supports running batches of documents through the extractor with a bounded
worker pool, scoring them against ground truth (dataset directories, JSON,
JSONL, Parquet or remote files), benchmarking several batch sizes, and
generating text, JSON, CSV, YAML and XLSX reports.`,
	}

	// Add eval subcommands
	cmd.AddCommand(evalcmd.NewRunCmd())
	cmd.AddCommand(evalcmd.NewReportCmd())
	cmd.AddCommand(evalcmd.NewInspectCmd())
	cmd.AddCommand(evalcmd.NewCreateBatchCmd())

	return cmd
}
