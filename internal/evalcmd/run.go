package evalcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/seleluciano/API-LectorFacturas/internal/batch"
	"github.com/seleluciano/API-LectorFacturas/internal/config"
	"github.com/seleluciano/API-LectorFacturas/internal/eval/results"
	"github.com/seleluciano/API-LectorFacturas/internal/extractor"
	"github.com/seleluciano/API-LectorFacturas/internal/invoice"
	"github.com/seleluciano/API-LectorFacturas/internal/ocr"
)

// RunOptions are the run command's inputs beyond configuration.
type RunOptions struct {
	Inputs        []string
	BatchFile     string
	GroundTruth   string
	ForceDownload bool
	Limit         int
	BatchSizes    []int
	Formats       []string
	NoTypeDefault bool
}

func executeRun(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts RunOptions, out io.Writer) error {
	paths, err := runInputs(opts)
	if err != nil {
		return err
	}
	if opts.Limit > 0 && len(paths) > opts.Limit {
		paths = paths[:opts.Limit]
	}
	if len(paths) == 0 {
		return fmt.Errorf("no documents to process")
	}

	gt, err := loadGroundTruth(ctx, opts.GroundTruth, cfg, opts.ForceDownload, logger)
	if err != nil {
		return err
	}

	source, closer, err := NewTextSource(cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	runner := batch.New(source, logger,
		batch.WithWorkers(cfg.Workers),
		batch.WithExtractor(extractor.New(
			extractor.WithLogger(logger),
			extractor.WithInvoiceTypeFallback(!opts.NoTypeDefault),
		)),
	)

	sizes := opts.BatchSizes
	if len(sizes) == 0 {
		sizes = []int{len(paths)}
	}

	var reports []*results.Report
	for _, size := range sizes {
		if err := ctx.Err(); err != nil {
			return err
		}
		subset := paths[:min(size, len(paths))]
		report, err := runOnce(ctx, runner, cfg, subset, gt, opts)
		if err != nil {
			return err
		}
		reports = append(reports, report)
		report.WritePerformanceReport(out)
	}

	if len(reports) > 1 {
		printBenchmarkTable(out, reports)
	}
	return nil
}

func runOnce(ctx context.Context, runner *batch.Runner, cfg *config.Config, paths []string, gt map[string]invoice.GroundTruth, opts RunOptions) (*results.Report, error) {
	res := runner.ProcessBatch(ctx, paths, gt)

	model := cfg.OCR.Model
	if cfg.OCR.Provider != "" && model == "" {
		model = ocr.DefaultModel(cfg.OCR.Provider)
	}
	report := results.New(res, results.RunConfig{
		Provider:    cfg.OCR.Provider,
		Model:       model,
		DatasetPath: opts.GroundTruth,
		SampleSize:  len(paths),
		Workers:     cfg.Workers,
	})

	for _, format := range opts.Formats {
		var path string
		var err error
		switch strings.ToLower(strings.TrimSpace(format)) {
		case "yaml":
			path, err = report.SaveYAML(cfg.Output.Dir)
		case "json":
			path, err = report.SaveJSON(cfg.Output.Dir)
		case "xlsx":
			path, err = report.SaveXLSX(cfg.Output.Dir)
		case "", "none":
			continue
		default:
			return nil, fmt.Errorf("unsupported output format: %s", format)
		}
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "✅ Evaluation results saved to: %s\n", path)
	}
	return report, nil
}

func runInputs(opts RunOptions) ([]string, error) {
	var paths []string
	if opts.BatchFile != "" {
		listed, err := ReadBatchFile(opts.BatchFile)
		if err != nil {
			return nil, err
		}
		paths = append(paths, listed...)
	}
	expanded, err := ExpandInputs(opts.Inputs)
	if err != nil {
		return nil, err
	}
	return append(paths, expanded...), nil
}

// ParseBatchSizes parses "10,20,50" into sorted, distinct positive sizes.
func ParseBatchSizes(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var sizes []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid batch size %q", part)
		}
		sizes = append(sizes, n)
	}
	slices.Sort(sizes)
	return slices.Compact(sizes), nil
}

func printBenchmarkTable(w io.Writer, reports []*results.Report) {
	fmt.Fprintln(w, "\n========================================")
	fmt.Fprintln(w, "Benchmark Summary")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "%-8s %-10s %-10s %-12s %-12s %-10s\n", "Size", "Success", "Docs/s", "Avg Latency", "Confidence", "Accuracy")
	for _, r := range reports {
		s := r.Stats
		accuracy := "-"
		if s.Accuracy != nil {
			accuracy = fmt.Sprintf("%.1f%%", s.Accuracy.AvgFieldAccuracy*100)
		}
		fmt.Fprintf(w, "%-8d %-10s %-10.2f %-12s %-12.3f %-10s\n",
			s.TotalFiles,
			fmt.Sprintf("%d/%d", s.SuccessfulFiles, s.TotalFiles),
			s.Throughput,
			fmt.Sprintf("%.3fs", s.Latency.Avg),
			s.AvgConfidence,
			accuracy)
	}
	fmt.Fprintln(w, "========================================")
}
