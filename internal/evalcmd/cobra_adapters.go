package evalcmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command for batch extraction and scoring
func NewRunCmd() *cobra.Command {
	var opts RunOptions
	var batchSizes string
	var formats string

	cmd := &cobra.Command{
		Use:   "run [files or directories...]",
		Short: "Extract invoices in batch and score them against ground truth",
		Long: `Run the extraction pipeline over a set of invoice documents.

Each document is read as text (a .txt file, a sidecar .txt next to an image,
a PDF text layer, or vision OCR when a provider is configured), split into
invoices and extracted. When ground truth is given, the first invoice of each
document is scored against the entry with the same file name.`,
		Example: `  # Score a dataset directory against its per-invoice annotations
  lector eval run ./dataset --ground-truth ./dataset

  # Use vision OCR for images and cache the transcriptions
  lector eval run ./facturas --provider ollama --ocr-cache ocr.db

  # Benchmark the first 10, 20 and 50 documents of a batch file
  lector eval run --files batch.txt --ground-truth gt.jsonl --batch-sizes 10,20,50

  # Ground truth hosted remotely
  lector eval run ./facturas --ground-truth https://example.com/gt.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := LoadConfig(cmd)
			if err != nil {
				return err
			}
			opts.Inputs = args
			if len(opts.Inputs) == 0 && opts.BatchFile == "" {
				return fmt.Errorf("give documents as arguments or use --files")
			}
			if opts.BatchSizes, err = ParseBatchSizes(batchSizes); err != nil {
				return err
			}
			opts.Formats = strings.Split(formats, ",")
			return executeRun(cmd.Context(), cfg, logger, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.BatchFile, "files", "", "File listing one document path per line")
	cmd.Flags().StringVar(&opts.GroundTruth, "ground-truth", "", "Ground truth: dataset directory, .json, .jsonl, .parquet or http(s) URL")
	cmd.Flags().BoolVar(&opts.ForceDownload, "force-download", false, "Download remote ground truth even if cached")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Process at most this many documents (0 for all)")
	cmd.Flags().StringVar(&batchSizes, "batch-sizes", "", "Comma separated batch sizes to benchmark, e.g. 10,20,50")
	cmd.Flags().StringVar(&formats, "save", "yaml", "Comma separated result formats to save: yaml, json, xlsx, none")
	cmd.Flags().BoolVar(&opts.NoTypeDefault, "no-type-default", false, "Do not default the invoice type to A when only markers are found")
	cmd.Flags().Int("workers", 4, "Documents processed concurrently")
	cmd.Flags().String("provider", "", "Vision OCR provider for images (ollama, openai, or gemini)")
	cmd.Flags().String("model", "", "Model name (defaults to provider's default)")
	cmd.Flags().String("ocr-cache", "", "Path to a bbolt file caching OCR text")
	cmd.Flags().String("output", "evals", "Directory for saved results")

	return cmd
}

// NewReportCmd creates the report command
func NewReportCmd() *cobra.Command {
	var location string
	var format string
	var details bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a report for saved evaluation results",
		Example: `  # Report on the most recent run in ./evals
  lector eval report

  # Per-document breakdown
  lector eval report --results evals/gpt-4o-2025-04-27_10-30-00.yaml --details

  # CSV for spreadsheets
  lector eval report --format csv > results.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeReport(location, format, details, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&location, "results", "evals", "Results file, or directory to use the latest from")
	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json, csv)")
	cmd.Flags().BoolVar(&details, "details", false, "Include per-document details in text output")

	return cmd
}

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	var datasetPath string
	var limit int
	var interactive bool
	var showText bool
	var forceDownload bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect ground truth documents",
		Long: `Inspect documents from a ground truth source.

This command is useful for checking how annotations were mapped to invoice
fields and what reference text CER/WER are computed against.`,
		Example: `  # Inspect first 5 documents interactively
  lector eval inspect --dataset ./dataset --limit 5 --interactive

  # Fields only
  lector eval inspect --dataset gt.jsonl --text=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := LoadConfig(cmd)
			if err != nil {
				return err
			}
			gt, err := loadGroundTruth(cmd.Context(), datasetPath, cfg, forceDownload, logger)
			if err != nil {
				return err
			}
			return executeInspect(cmd.Context(), gt, limit, interactive, showText, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Ground truth: dataset directory, .json, .jsonl, .parquet or http(s) URL (required)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of documents to inspect (0 for all)")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "Pause after each document (press Enter to continue)")
	cmd.Flags().BoolVar(&showText, "text", true, "Show the reference text")
	cmd.Flags().BoolVar(&forceDownload, "force-download", false, "Download remote ground truth even if cached")

	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

// NewCreateBatchCmd creates the create-batch command
func NewCreateBatchCmd() *cobra.Command {
	var dir string
	var size int
	var output string

	cmd := &cobra.Command{
		Use:   "create-batch",
		Short: "Write a batch file listing documents in a directory",
		Example: `  # First 20 documents of a dataset
  lector eval create-batch --dir ./dataset --size 20 --output batch.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := LoadConfig(cmd)
			if err != nil {
				return err
			}
			return executeCreateBatch(dir, size, output, logger, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory to scan for .jpg, .jpeg, .png, .pdf and .txt documents (required)")
	cmd.Flags().IntVar(&size, "size", 0, "Maximum number of documents (0 for all)")
	cmd.Flags().StringVar(&output, "output", "-", "Batch file to write, - for stdout")

	_ = cmd.MarkFlagRequired("dir")

	return cmd
}
