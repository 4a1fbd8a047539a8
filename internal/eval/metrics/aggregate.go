package metrics

import (
	"fmt"
	"io"
	"math"
	"slices"
	"sort"
	"strings"
	"time"
)

const (
	maxErrorExamples = 3
	rankedFieldCount = 5
	rankedDocCount   = 5
)

// LatencyStats describes per-document processing times in seconds.
type LatencyStats struct {
	Avg    float64 `json:"avg" yaml:"avg"`
	Median float64 `json:"median" yaml:"median"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
}

// AccuracyStats averages the scored documents of a batch.
type AccuracyStats struct {
	AvgFieldAccuracy float64 `json:"avg_field_accuracy" yaml:"avg_field_accuracy"`
	AvgCER           float64 `json:"avg_cer" yaml:"avg_cer"`
	AvgWER           float64 `json:"avg_wer" yaml:"avg_wer"`
	TotalFields      int     `json:"total_fields" yaml:"total_fields"`
	TotalCorrect     int     `json:"total_correct" yaml:"total_correct"`
	TotalMissing     int     `json:"total_missing" yaml:"total_missing"`
	TotalIncorrect   int     `json:"total_incorrect" yaml:"total_incorrect"`
}

// DocumentStats is what Summarize needs from one processed document.
type DocumentStats struct {
	Success    bool
	Latency    time.Duration
	Confidence float64
	Metrics    *MetricsResult
}

// Summary aggregates a batch.
type Summary struct {
	TotalFiles       int            `json:"total_files" yaml:"total_files"`
	SuccessfulFiles  int            `json:"successful_files" yaml:"successful_files"`
	FailedFiles      int            `json:"failed_files" yaml:"failed_files"`
	SuccessRate      float64        `json:"success_rate" yaml:"success_rate"`
	WallClockSeconds float64        `json:"wall_clock_seconds" yaml:"wall_clock_seconds"`
	Throughput       float64        `json:"throughput" yaml:"throughput"`
	Latency          LatencyStats   `json:"latency" yaml:"latency"`
	AvgConfidence    float64        `json:"avg_confidence" yaml:"avg_confidence"`
	Accuracy         *AccuracyStats `json:"accuracy,omitempty" yaml:"accuracy,omitempty"`
}

// Summarize aggregates documents processed within wall. Throughput is
// successful documents over wall clock time, not the mean per-document rate.
// Latency and confidence cover successful documents only.
func Summarize(docs []DocumentStats, wall time.Duration) Summary {
	s := Summary{
		TotalFiles:       len(docs),
		WallClockSeconds: wall.Seconds(),
	}

	var latencies, confidences []float64
	var scored []MetricsResult
	for _, d := range docs {
		if !d.Success {
			s.FailedFiles++
			continue
		}
		s.SuccessfulFiles++
		latencies = append(latencies, d.Latency.Seconds())
		confidences = append(confidences, d.Confidence)
		if d.Metrics != nil {
			scored = append(scored, *d.Metrics)
		}
	}

	if s.TotalFiles > 0 {
		s.SuccessRate = float64(s.SuccessfulFiles) / float64(s.TotalFiles)
	}
	if s.WallClockSeconds > 0 {
		s.Throughput = float64(s.SuccessfulFiles) / s.WallClockSeconds
	}
	s.Latency = SummarizeLatencies(latencies)
	s.AvgConfidence = calculateAverage(confidences)
	s.Accuracy = SummarizeAccuracy(scored)
	return s
}

// SummarizeLatencies uses the sample standard deviation, 0 for fewer than two values.
func SummarizeLatencies(seconds []float64) LatencyStats {
	if len(seconds) == 0 {
		return LatencyStats{}
	}

	sorted := slices.Clone(seconds)
	slices.Sort(sorted)

	stats := LatencyStats{
		Avg: calculateAverage(sorted),
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
	}

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		stats.Median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		stats.Median = sorted[mid]
	}

	if len(sorted) > 1 {
		var sq float64
		for _, v := range sorted {
			sq += (v - stats.Avg) * (v - stats.Avg)
		}
		stats.StdDev = math.Sqrt(sq / float64(len(sorted)-1))
	}
	return stats
}

// SummarizeAccuracy returns nil when no document was scored.
func SummarizeAccuracy(results []MetricsResult) *AccuracyStats {
	if len(results) == 0 {
		return nil
	}

	acc := &AccuracyStats{}
	var accuracies, cers, wers []float64
	for _, r := range results {
		accuracies = append(accuracies, r.FieldAccuracy)
		cers = append(cers, r.CER)
		wers = append(wers, r.WER)
		acc.TotalFields += r.TotalFields
		acc.TotalCorrect += r.CorrectFields
		acc.TotalMissing += r.MissingFields
		acc.TotalIncorrect += r.IncorrectFields
	}
	acc.AvgFieldAccuracy = calculateAverage(accuracies)
	acc.AvgCER = calculateAverage(cers)
	acc.AvgWER = calculateAverage(wers)
	return acc
}

// calculateAverage calculates the average of a slice of scores
func calculateAverage(scores []float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, score := range scores {
		sum += score
	}

	return sum / float64(len(scores))
}

// ErrorExample is one wrong or missing value kept for the field report.
type ErrorExample struct {
	File     string `json:"file" yaml:"file"`
	Expected string `json:"expected" yaml:"expected"`
	Actual   string `json:"actual" yaml:"actual"`
	Status   Status `json:"status" yaml:"status"`
}

// FieldStats contains statistics for one field across a batch
type FieldStats struct {
	Field        string         `json:"field" yaml:"field"`
	Total        int            `json:"total" yaml:"total"`
	Correct      int            `json:"correct" yaml:"correct"`
	Incorrect    int            `json:"incorrect" yaml:"incorrect"`
	Missing      int            `json:"missing" yaml:"missing"`
	AccuracyRate float64        `json:"accuracy_rate" yaml:"accuracy_rate"`
	Examples     []ErrorExample `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// DocumentScore ranks a document by field accuracy.
type DocumentScore struct {
	File          string  `json:"file" yaml:"file"`
	FieldAccuracy float64 `json:"field_accuracy" yaml:"field_accuracy"`
}

// ScoredDocument pairs a file with its metrics for AnalyzeFields.
type ScoredDocument struct {
	File    string
	Metrics MetricsResult
}

// FieldAnalysis breaks a batch down per field.
type FieldAnalysis struct {
	Fields      []FieldStats    `json:"fields" yaml:"fields"`
	Worst       []FieldStats    `json:"worst_fields" yaml:"worst_fields"`
	Best        []FieldStats    `json:"best_fields" yaml:"best_fields"`
	AvgAccuracy float64         `json:"avg_accuracy" yaml:"avg_accuracy"`
	WorstDocs   []DocumentScore `json:"worst_documents" yaml:"worst_documents"`
	BestDocs    []DocumentScore `json:"best_documents" yaml:"best_documents"`
}

// AnalyzeFields tallies every outcome by field key. Fields are listed by
// name; Worst and Best hold up to five fields each, ranked by accuracy.
func AnalyzeFields(docs []ScoredDocument) *FieldAnalysis {
	byKey := map[string]*FieldStats{}
	var docScores []DocumentScore

	for _, doc := range docs {
		docScores = append(docScores, DocumentScore{File: doc.File, FieldAccuracy: doc.Metrics.FieldAccuracy})
		for _, o := range doc.Metrics.Fields {
			st, ok := byKey[o.Key()]
			if !ok {
				st = &FieldStats{Field: o.Key()}
				byKey[o.Key()] = st
			}
			aggregateFieldStats(st, doc.File, o)
		}
	}

	analysis := &FieldAnalysis{}
	var rates []float64
	for _, st := range byKey {
		if st.Total > 0 {
			st.AccuracyRate = float64(st.Correct) / float64(st.Total)
		}
		rates = append(rates, st.AccuracyRate)
		analysis.Fields = append(analysis.Fields, *st)
	}
	sort.Slice(analysis.Fields, func(i, j int) bool {
		return analysis.Fields[i].Field < analysis.Fields[j].Field
	})
	analysis.AvgAccuracy = calculateAverage(rates)

	ranked := slices.Clone(analysis.Fields)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AccuracyRate < ranked[j].AccuracyRate
	})
	analysis.Worst = ranked[:min(rankedFieldCount, len(ranked))]
	analysis.Best = reversed(ranked[max(0, len(ranked)-rankedFieldCount):])

	sort.SliceStable(docScores, func(i, j int) bool {
		return docScores[i].FieldAccuracy < docScores[j].FieldAccuracy
	})
	analysis.WorstDocs = docScores[:min(rankedDocCount, len(docScores))]
	analysis.BestDocs = reversed(docScores[max(0, len(docScores)-rankedDocCount):])

	return analysis
}

// aggregateFieldStats updates field statistics
func aggregateFieldStats(stats *FieldStats, file string, o FieldOutcome) {
	stats.Total++
	switch o.Status {
	case StatusCorrect:
		stats.Correct++
		return
	case StatusIncorrect:
		stats.Incorrect++
	case StatusMissing:
		stats.Missing++
	}
	if len(stats.Examples) < maxErrorExamples {
		stats.Examples = append(stats.Examples, ErrorExample{
			File:     file,
			Expected: o.Expected,
			Actual:   o.Actual,
			Status:   o.Status,
		})
	}
}

func reversed[T any](s []T) []T {
	out := slices.Clone(s)
	slices.Reverse(out)
	return out
}

// PrintSummary writes a human-readable breakdown of the analysis
func (a *FieldAnalysis) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 70))
	fmt.Fprintln(w, "FIELD ANALYSIS")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Fields evaluated: %d\n", len(a.Fields))
	fmt.Fprintf(w, "Average field accuracy: %.1f%%\n", a.AvgAccuracy*100)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "WORST FIELDS")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, st := range a.Worst {
		printFieldStats(w, st)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "BEST FIELDS")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, st := range a.Best {
		printFieldStats(w, st)
	}
	fmt.Fprintln(w)

	if len(a.WorstDocs) > 0 {
		fmt.Fprintln(w, "DOCUMENTS")
		fmt.Fprintln(w, strings.Repeat("-", 70))
		for _, d := range a.WorstDocs {
			fmt.Fprintf(w, "  worst  %-40s %.1f%%\n", d.File, d.FieldAccuracy*100)
		}
		for _, d := range a.BestDocs {
			fmt.Fprintf(w, "  best   %-40s %.1f%%\n", d.File, d.FieldAccuracy*100)
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", 70))
}

// printFieldStats prints statistics for a single field
func printFieldStats(w io.Writer, stats FieldStats) {
	fmt.Fprintf(w, "\n%s: %.1f%% (%d/%d)\n", stats.Field, stats.AccuracyRate*100, stats.Correct, stats.Total)
	fmt.Fprintf(w, "  Incorrect: %d  Missing: %d\n", stats.Incorrect, stats.Missing)
	for _, ex := range stats.Examples {
		fmt.Fprintf(w, "  - %s [%s] expected %q, got %q\n", ex.File, ex.Status, ex.Expected, ex.Actual)
	}
}
