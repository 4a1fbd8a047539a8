package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/seleluciano/API-LectorFacturas/internal/eval/metrics"
	"github.com/seleluciano/API-LectorFacturas/internal/extractor"
	"github.com/seleluciano/API-LectorFacturas/internal/invoice"
	"github.com/seleluciano/API-LectorFacturas/internal/ocr"
	"github.com/seleluciano/API-LectorFacturas/internal/segmenter"
)

// DefaultWorkers bounds concurrent documents when no option overrides it.
const DefaultWorkers = 4

var (
	ErrEmptyText  = errors.New("document produced no text")
	ErrNoInvoices = errors.New("no invoices found in document")
)

// FileResult is the outcome for one input document.
type FileResult struct {
	Path              string                     `json:"path" yaml:"path"`
	Filename          string                     `json:"filename" yaml:"filename"`
	Success           bool                       `json:"success" yaml:"success"`
	Error             string                     `json:"error,omitempty" yaml:"error,omitempty"`
	ProcessingSeconds float64                    `json:"processing_seconds" yaml:"processing_seconds"`
	Confidence        float64                    `json:"confidence" yaml:"confidence"`
	Invoices          []invoice.ExtractionResult `json:"invoices,omitempty" yaml:"invoices,omitempty"`
	Metrics           *metrics.MetricsResult     `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// Extraction returns the invoice that is scored, the first segment's.
func (f FileResult) Extraction() (invoice.ExtractionResult, bool) {
	if len(f.Invoices) == 0 {
		return invoice.ExtractionResult{}, false
	}
	return f.Invoices[0], true
}

// Result is one batch run.
type Result struct {
	RunID     uuid.UUID       `json:"run_id" yaml:"run_id"`
	StartedAt time.Time       `json:"started_at" yaml:"started_at"`
	Files     []FileResult    `json:"files" yaml:"files"`
	Stats     metrics.Summary `json:"stats" yaml:"stats"`
}

// Scored returns the scored documents for per-field analysis.
func (r *Result) Scored() []metrics.ScoredDocument {
	var docs []metrics.ScoredDocument
	for _, f := range r.Files {
		if f.Metrics != nil {
			docs = append(docs, metrics.ScoredDocument{File: f.Filename, Metrics: *f.Metrics})
		}
	}
	return docs
}

// Runner fans documents out over a bounded pool of workers.
type Runner struct {
	source    ocr.TextSource
	logger    *slog.Logger
	workers   int
	extractor *extractor.Extractor
	segmenter *segmenter.Segmenter
	engine    *metrics.Engine
	now       func() time.Time
}

type Option func(*Runner)

func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithExtractor(e *extractor.Extractor) Option {
	return func(r *Runner) {
		if e != nil {
			r.extractor = e
		}
	}
}

func WithSegmenter(s *segmenter.Segmenter) Option {
	return func(r *Runner) {
		if s != nil {
			r.segmenter = s
		}
	}
}

func WithScoreEngine(e *metrics.Engine) Option {
	return func(r *Runner) {
		if e != nil {
			r.engine = e
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

func New(source ocr.TextSource, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		source:  source,
		logger:  logger,
		workers: DefaultWorkers,
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	if r.extractor == nil {
		r.extractor = extractor.New(extractor.WithLogger(logger))
	}
	if r.segmenter == nil {
		r.segmenter = segmenter.New()
	}
	if r.engine == nil {
		r.engine = metrics.NewEngine()
	}
	return r
}

// ProcessBatch processes every path and returns once each one has finished
// or failed. Failures are recorded per file and never abort the batch. When
// ctx is cancelled, files not yet started are recorded as failed.
func (r *Runner) ProcessBatch(ctx context.Context, paths []string, gt map[string]invoice.GroundTruth) *Result {
	res := &Result{
		RunID:     uuid.New(),
		StartedAt: r.now(),
		Files:     make([]FileResult, len(paths)),
	}
	r.logger.Info("processing batch", "run_id", res.RunID, "files", len(paths), "workers", r.workers)

	var g errgroup.Group
	g.SetLimit(r.workers)

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			res.Files[i] = failed(path, err, 0)
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				res.Files[i] = failed(path, err, 0)
				return nil
			}
			r.logger.Debug("processing file", "file", path, "progress", fmt.Sprintf("%d/%d", i+1, len(paths)))
			res.Files[i] = r.processFile(ctx, path, gt)
			return nil
		})
	}
	_ = g.Wait()

	wall := r.now().Sub(res.StartedAt)

	slices.SortStableFunc(res.Files, func(a, b FileResult) int {
		return strings.Compare(a.Path, b.Path)
	})

	docs := make([]metrics.DocumentStats, len(res.Files))
	for i, f := range res.Files {
		docs[i] = metrics.DocumentStats{
			Success:    f.Success,
			Latency:    time.Duration(f.ProcessingSeconds * float64(time.Second)),
			Confidence: f.Confidence,
			Metrics:    f.Metrics,
		}
	}
	res.Stats = metrics.Summarize(docs, wall)

	r.logger.Info("batch processed",
		"run_id", res.RunID,
		"successful", res.Stats.SuccessfulFiles,
		"total", res.Stats.TotalFiles,
		"duration", wall)
	return res
}

func (r *Runner) processFile(ctx context.Context, path string, gt map[string]invoice.GroundTruth) (fr FileResult) {
	start := r.now()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("panic processing file", "file", path, "panic", p)
			fr = failed(path, fmt.Errorf("panic: %v", p), r.now().Sub(start))
		}
	}()

	text, err := r.source.ExtractText(ctx, path)
	if err != nil {
		r.logger.Error("text extraction failed", "file", path, "error", err)
		return failed(path, err, r.now().Sub(start))
	}
	if strings.TrimSpace(text) == "" {
		return failed(path, ErrEmptyText, r.now().Sub(start))
	}

	segments := r.segmenter.Segment(text)
	invoices := make([]invoice.ExtractionResult, 0, len(segments))
	for _, seg := range segments {
		invoices = append(invoices, r.extractor.Extract(seg))
	}
	elapsed := r.now().Sub(start)

	first := invoices[0]
	if !first.Success {
		fr = failed(path, fmt.Errorf("%w: %s", ErrNoInvoices, first.Error), elapsed)
		fr.Invoices = invoices
		return fr
	}

	fr = FileResult{
		Path:              path,
		Filename:          filepath.Base(path),
		Success:           true,
		ProcessingSeconds: elapsed.Seconds(),
		Confidence:        first.Confidence,
		Invoices:          invoices,
	}

	if truth, ok := gt[fr.Filename]; ok {
		m := r.engine.Score(first, truth, first.RawText, truth.RawText, elapsed)
		fr.Metrics = &m
		fr.Confidence = m.Confidence
	}

	r.logger.Info("processed file",
		"file", path,
		"invoices", len(invoices),
		"confidence", fr.Confidence,
		"duration", elapsed)
	return fr
}

func failed(path string, err error, elapsed time.Duration) FileResult {
	return FileResult{
		Path:              path,
		Filename:          filepath.Base(path),
		Success:           false,
		Error:             err.Error(),
		ProcessingSeconds: elapsed.Seconds(),
	}
}
