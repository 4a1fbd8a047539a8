// Package extractor pulls invoice fields and line items out of OCR text
// produced from scanned Argentine invoices.
package extractor

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/seleluciano/API-LectorFacturas/internal/invoice"
)

const (
	// DefaultInvoiceType is assumed when no type letter is found but the text
	// still looks like an invoice. It is frequently wrong for B and C invoices.
	DefaultInvoiceType = "A"

	// TaxDuePlaceholder is stored as taxDue when total or subtotal is unusable.
	TaxDuePlaceholder = "0.00"
)

// InvoiceTypeMarkers trigger the DefaultInvoiceType fallback.
var InvoiceTypeMarkers = []string{"ORIGINAL", "FACTURA", "Comprobante"}

const (
	criticalWeight   = 0.6
	itemWeight       = 0.3
	additionalWeight = 0.1
)

// Extractor holds compiled configuration only and is safe for concurrent use.
type Extractor struct {
	logger       *slog.Logger
	typeFallback bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for debug traces.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithInvoiceTypeFallback toggles the DefaultInvoiceType heuristic.
func WithInvoiceTypeFallback(enabled bool) Option {
	return func(e *Extractor) {
		e.typeFallback = enabled
	}
}

// New returns an Extractor with the fallback heuristic enabled.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		logger:       slog.Default(),
		typeFallback: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads one invoice's fields and line items from text.
// Missing fields are simply absent; only an unexpected failure sets Success to false.
func (e *Extractor) Extract(text string) (result invoice.ExtractionResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extraction failed", "error", r)
			result = invoice.ExtractionResult{
				Success: false,
				Fields:  invoice.Fields{},
				RawText: text,
				Error:   fmt.Sprintf("extraction failed: %v", r),
			}
		}
	}()

	cleaned := preClean(text)

	fields := invoice.Fields{}
	for _, field := range extractionOrder {
		if value := extractField(cleaned, field); value != "" {
			fields[field] = value
		}
	}

	if !fields.Has(invoice.InvoiceType) && e.typeFallback && hasInvoiceMarker(cleaned) {
		fields[invoice.InvoiceType] = DefaultInvoiceType
	}

	fields[invoice.TaxDue] = e.taxDue(fields)

	items := e.extractItems(cleaned)

	e.logger.Debug("extracted invoice", "fields", len(fields), "items", len(items))

	return invoice.ExtractionResult{
		Success:    true,
		Fields:     fields,
		Items:      items,
		RawText:    text,
		Confidence: Confidence(fields, items),
	}
}

// Fields returns every field name the extractor can produce, including the derived taxDue.
func Fields() []invoice.FieldName {
	out := append([]invoice.FieldName(nil), extractionOrder...)
	return append(out, invoice.TaxDue)
}

func extractField(text string, field invoice.FieldName) string {
	minLen, ok := minValueLength[field]
	if !ok {
		minLen = defaultMinValueLength
	}

	for _, re := range fieldPatterns[field] {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		value := cleanValue(field, strings.TrimSpace(m[1]))
		if len([]rune(value)) >= minLen {
			return value
		}
	}
	return ""
}

func hasInvoiceMarker(text string) bool {
	upper := strings.ToUpper(text)
	for _, marker := range InvoiceTypeMarkers {
		if strings.Contains(upper, strings.ToUpper(marker)) {
			return true
		}
	}
	return false
}

// taxDue is total minus subtotal, or TaxDuePlaceholder when either cannot be read.
func (e *Extractor) taxDue(fields invoice.Fields) string {
	if !fields.Has(invoice.Total) || !fields.Has(invoice.Subtotal) {
		e.logger.Debug("tax due not computed", "has_total", fields.Has(invoice.Total), "has_subtotal", fields.Has(invoice.Subtotal))
		return TaxDuePlaceholder
	}

	total, err := invoice.ParseAmount(fields.Get(invoice.Total))
	if err != nil {
		e.logger.Warn("unreadable total", "value", fields.Get(invoice.Total), "error", err)
		return TaxDuePlaceholder
	}
	subtotal, err := invoice.ParseAmount(fields.Get(invoice.Subtotal))
	if err != nil {
		e.logger.Warn("unreadable subtotal", "value", fields.Get(invoice.Subtotal), "error", err)
		return TaxDuePlaceholder
	}

	return invoice.FormatAmount(total.Sub(subtotal))
}

// Confidence scores how complete an extraction looks without any ground truth.
func Confidence(fields invoice.Fields, items []invoice.LineItem) float64 {
	critical := presentRatio(fields, invoice.CriticalFields)
	additional := presentRatio(fields, invoice.AdditionalFields)

	completeness := 0.0
	if len(items) > 0 {
		for _, item := range items {
			filled := 0
			for _, f := range invoice.ItemFields {
				if strings.TrimSpace(item.Field(f)) != "" {
					filled++
				}
			}
			completeness += float64(filled) / float64(len(invoice.ItemFields))
		}
		completeness /= float64(len(items))
	}

	score := criticalWeight*critical + itemWeight*completeness + additionalWeight*additional
	return clamp01(score)
}

func presentRatio(fields invoice.Fields, set []invoice.FieldName) float64 {
	if len(set) == 0 {
		return 0
	}
	found := 0
	for _, f := range set {
		if fields.Has(f) {
			found++
		}
	}
	return float64(found) / float64(len(set))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
