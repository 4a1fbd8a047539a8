package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lector",
		Short: "Argentine invoice field extraction and scoring tool",
		Long: `Lector extracts structured fields from OCR text of Argentine invoices
(facturas A, B and C): tax identifiers, dates, totals, parties and line items.

It supports a CLI for extracting single documents and for evaluating extraction
accuracy over batches of invoices against annotated ground truth.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	cmd.PersistentFlags().Bool("verbose", false, "Verbose logging")

	// Add subcommands
	cmd.AddCommand(newExtractCmd())
	cmd.AddCommand(newSegmentCmd())
	cmd.AddCommand(newEvalCmd())

	return cmd
}
