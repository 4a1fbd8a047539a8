package metrics

import (
	"strings"
	"time"

	"github.com/seleluciano/API-LectorFacturas/internal/invoice"
)

// Status classifies one scored field.
type Status string

const (
	StatusCorrect   Status = "correct"
	StatusIncorrect Status = "incorrect"
	StatusMissing   Status = "missing"
)

// FieldOutcome is the comparison of one ground truth value. Item is the line
// item index, or -1 for top-level fields.
type FieldOutcome struct {
	Field    invoice.FieldName `json:"field" yaml:"field"`
	Item     int               `json:"item" yaml:"item"`
	Status   Status            `json:"status" yaml:"status"`
	Expected string            `json:"expected" yaml:"expected"`
	Actual   string            `json:"actual" yaml:"actual"`
	Method   string            `json:"method" yaml:"method"`
}

// Key names the outcome for per-field statistics: "total" or "items.quantity".
func (o FieldOutcome) Key() string {
	if o.Item < 0 {
		return string(o.Field)
	}
	return "items." + string(o.Field)
}

// MetricsResult scores one document against its ground truth.
type MetricsResult struct {
	Confidence               float64        `json:"confidence" yaml:"confidence"`
	FieldAccuracy            float64        `json:"field_accuracy" yaml:"field_accuracy"`
	CER                      float64        `json:"cer" yaml:"cer"`
	WER                      float64        `json:"wer" yaml:"wer"`
	ProcessingLatencySeconds float64        `json:"processing_latency_seconds" yaml:"processing_latency_seconds"`
	ThroughputDocsPerSec     float64        `json:"throughput_docs_per_sec" yaml:"throughput_docs_per_sec"`
	TotalFields              int            `json:"total_fields" yaml:"total_fields"`
	CorrectFields            int            `json:"correct_fields" yaml:"correct_fields"`
	MissingFields            int            `json:"missing_fields" yaml:"missing_fields"`
	IncorrectFields          int            `json:"incorrect_fields" yaml:"incorrect_fields"`
	Fields                   []FieldOutcome `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Engine scores extractions. It holds no state and is safe for concurrent use.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Score compares extracted against gt. Top-level fields are scored when the
// ground truth has a value for them; line items are paired by position.
func (e *Engine) Score(extracted invoice.ExtractionResult, gt invoice.GroundTruth, extractedText, groundTruthText string, processingTime time.Duration) MetricsResult {
	var res MetricsResult

	for _, field := range invoice.AllFields() {
		expected := gt.Fields.Get(field)
		if expected == "" {
			continue
		}
		res.add(compareValue(field, -1, expected, extracted.Fields.Get(field)))
	}

	for i, gtItem := range gt.Items {
		var item invoice.LineItem
		if i < len(extracted.Items) {
			item = extracted.Items[i]
		}
		for _, field := range invoice.ItemFields {
			expected := strings.TrimSpace(gtItem.Field(field))
			if expected == "" {
				continue
			}
			res.add(compareValue(field, i, expected, strings.TrimSpace(item.Field(field))))
		}
	}

	res.FieldAccuracy = ratio(res.CorrectFields, res.TotalFields)
	res.Confidence = ratio(res.CorrectFields, res.TotalFields)

	res.CER = CER(extractedText, groundTruthText)
	res.WER = WER(extractedText, groundTruthText)

	seconds := processingTime.Seconds()
	res.ProcessingLatencySeconds = seconds
	if seconds > 0 {
		res.ThroughputDocsPerSec = 1 / seconds
	}
	return res
}

func compareValue(field invoice.FieldName, item int, expected, actual string) FieldOutcome {
	out := FieldOutcome{Field: field, Item: item, Expected: expected, Actual: actual}
	if actual == "" {
		out.Status = StatusMissing
		out.Method = MethodMissing
		return out
	}

	ok, method := FieldsMatch(field, expected, actual)
	out.Method = method
	if ok {
		out.Status = StatusCorrect
	} else {
		out.Status = StatusIncorrect
	}
	return out
}

func (r *MetricsResult) add(o FieldOutcome) {
	r.TotalFields++
	switch o.Status {
	case StatusCorrect:
		r.CorrectFields++
	case StatusIncorrect:
		r.IncorrectFields++
	case StatusMissing:
		r.MissingFields++
	}
	r.Fields = append(r.Fields, o)
}

// ratio is the single accuracy computation behind both FieldAccuracy and
// the ground-truth Confidence.
func ratio(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}
