package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/seleluciano/API-LectorFacturas/internal/eval/metrics"
	"github.com/seleluciano/API-LectorFacturas/internal/invoice"
)

// WritePerformanceReport writes the batch summary: counts, performance,
// quality metrics and, when documents were scored, the field analysis.
func (r *Report) WritePerformanceReport(w io.Writer) {
	s := r.Stats
	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, "Invoice Extraction Performance Report")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Run:      %s\n", r.RunID)
	fmt.Fprintf(w, "Date:     %s\n", r.StartedAt.Format("2006-01-02 15:04:05"))
	if r.Config.Provider != "" {
		fmt.Fprintf(w, "Provider: %s\n", r.Config.Provider)
		fmt.Fprintf(w, "Model:    %s\n", r.Config.Model)
	}

	fmt.Fprintln(w, "\nBatch Summary:")
	fmt.Fprintf(w, "  Total files:      %d\n", s.TotalFiles)
	fmt.Fprintf(w, "  Successful files: %d\n", s.SuccessfulFiles)
	fmt.Fprintf(w, "  Failed files:     %d\n", s.FailedFiles)
	fmt.Fprintf(w, "  Success rate:     %.2f%%\n", s.SuccessRate*100)
	fmt.Fprintf(w, "  Wall clock time:  %.2fs\n", s.WallClockSeconds)

	fmt.Fprintln(w, "\nPerformance:")
	fmt.Fprintf(w, "  Throughput:       %.2f docs/s\n", s.Throughput)
	fmt.Fprintf(w, "  Latency avg:      %.3fs\n", s.Latency.Avg)
	fmt.Fprintf(w, "  Latency median:   %.3fs\n", s.Latency.Median)
	fmt.Fprintf(w, "  Latency min/max:  %.3fs / %.3fs\n", s.Latency.Min, s.Latency.Max)
	fmt.Fprintf(w, "  Latency stddev:   %.3fs\n", s.Latency.StdDev)
	fmt.Fprintf(w, "  Avg confidence:   %.3f\n", s.AvgConfidence)

	fmt.Fprintln(w, "\nQuality Metrics:")
	if acc := s.Accuracy; acc != nil {
		fmt.Fprintf(w, "  Avg field accuracy: %.3f\n", acc.AvgFieldAccuracy)
		fmt.Fprintf(w, "  Avg CER:            %.3f\n", acc.AvgCER)
		fmt.Fprintf(w, "  Avg WER:            %.3f\n", acc.AvgWER)
		fmt.Fprintf(w, "  Fields evaluated:   %d\n", acc.TotalFields)
		fmt.Fprintf(w, "  Correct:            %d\n", acc.TotalCorrect)
		fmt.Fprintf(w, "  Missing:            %d\n", acc.TotalMissing)
		fmt.Fprintf(w, "  Incorrect:          %d\n", acc.TotalIncorrect)
	} else {
		fmt.Fprintln(w, "  No ground truth provided")
	}

	if r.Fields != nil {
		r.Fields.PrintSummary(w)
	}
}

// WriteDetails writes one block per document with its fields and, when
// scored, the fields that did not match.
func (r *Report) WriteDetails(w io.Writer) {
	fmt.Fprintln(w, "\nDetailed Results:")
	fmt.Fprintln(w, "========================================")

	for i, fr := range r.Files {
		fmt.Fprintf(w, "\n[%d] %s\n", i+1, fr.Path)
		if !fr.Success {
			fmt.Fprintf(w, "  ❌ Error: %s\n", fr.Error)
			continue
		}
		fmt.Fprintf(w, "  Invoices: %d  Confidence: %.3f  Time: %.3fs\n", len(fr.Invoices), fr.Confidence, fr.ProcessingSeconds)

		ex, _ := fr.Extraction()
		for _, field := range invoice.AllFields() {
			if v := ex.Fields.Get(field); v != "" {
				fmt.Fprintf(w, "    %s: %s\n", field, truncate(v, 80))
			}
		}

		if fr.Metrics == nil {
			continue
		}
		fmt.Fprintf(w, "  Field Accuracy: %.2f%%  CER: %.3f  WER: %.3f\n", fr.Metrics.FieldAccuracy*100, fr.Metrics.CER, fr.Metrics.WER)
		for _, o := range fr.Metrics.Fields {
			if o.Status == metrics.StatusCorrect {
				continue
			}
			fmt.Fprintf(w, "    %s (%s):\n", o.Key(), o.Status)
			fmt.Fprintf(w, "      Expected:  %s\n", truncate(o.Expected, 80))
			fmt.Fprintf(w, "      Extracted: %s\n", truncate(o.Actual, 80))
		}
	}
}

// WriteCSV writes one row per document with its scores and extracted fields.
func (r *Report) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	header := []string{"File", "Success", "Seconds", "Confidence", "Field Accuracy", "CER", "WER", "Error"}
	for _, field := range invoice.AllFields() {
		header = append(header, "Field_"+string(field))
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, fr := range r.Files {
		row := []string{
			fr.Filename,
			fmt.Sprintf("%t", fr.Success),
			fmt.Sprintf("%.4f", fr.ProcessingSeconds),
			fmt.Sprintf("%.4f", fr.Confidence),
		}
		if fr.Metrics != nil {
			row = append(row,
				fmt.Sprintf("%.4f", fr.Metrics.FieldAccuracy),
				fmt.Sprintf("%.4f", fr.Metrics.CER),
				fmt.Sprintf("%.4f", fr.Metrics.WER))
		} else {
			row = append(row, "", "", "")
		}
		row = append(row, fr.Error)

		ex, _ := fr.Extraction()
		for _, field := range invoice.AllFields() {
			row = append(row, ex.Fields.Get(field))
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func truncate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}
