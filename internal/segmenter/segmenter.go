// Package segmenter splits OCR text holding several concatenated invoices
// into one span per invoice.
package segmenter

import (
	"regexp"
	"sort"
	"unicode/utf8"
)

// MinBoundaryGap is the default minimum distance, in characters, between two
// accepted invoice starts. One invoice often trips more than one marker.
const MinBoundaryGap = 500

// DefaultMarkers match text that opens an invoice.
var DefaultMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ORIGINAL\s+[\p{L}\s.&]+?\s+(?:SA|SRL|S\.A\.|S\.R\.L\.)\b.{0,80}?(?:PAGTURA|FACTURA|Punto de Venta)`),
	regexp.MustCompile(`(?i)FACTURA\s+[ABC]\s+N?[°º]?\s*\d{4}-?\d{8}`),
	regexp.MustCompile(`(?i)(?:ORIGINAL|DUPLICADO)\s+[ABC]\s*:`),
}

// Segmenter is immutable after New and safe for concurrent use.
type Segmenter struct {
	minGap  int
	markers []*regexp.Regexp
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithMinGap overrides MinBoundaryGap. Negative values are treated as zero.
func WithMinGap(gap int) Option {
	return func(s *Segmenter) {
		if gap < 0 {
			gap = 0
		}
		s.minGap = gap
	}
}

// WithMarkers replaces DefaultMarkers.
func WithMarkers(markers ...*regexp.Regexp) Option {
	return func(s *Segmenter) {
		s.markers = markers
	}
}

func New(opts ...Option) *Segmenter {
	s := &Segmenter{
		minGap:  MinBoundaryGap,
		markers: DefaultMarkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Boundaries returns the accepted invoice start offsets in ascending order.
// Offsets are byte positions into text; the gap between them is counted in runes.
func (s *Segmenter) Boundaries(text string) []int {
	var offsets []int
	for _, re := range s.markers {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			offsets = append(offsets, loc[0])
		}
	}
	sort.Ints(offsets)

	// Two markers at the same offset are one start even with a zero gap.
	gap := max(s.minGap, 1)

	var accepted []int
	for _, off := range offsets {
		if len(accepted) > 0 && utf8.RuneCountInString(text[accepted[len(accepted)-1]:off]) < gap {
			continue
		}
		accepted = append(accepted, off)
	}
	return accepted
}

// Segment returns one span per detected invoice, or []string{text} when the
// text holds at most one invoice start. Text ahead of the first start belongs
// to the first span, so the spans always concatenate back to text.
func (s *Segmenter) Segment(text string) []string {
	bounds := s.Boundaries(text)
	if len(bounds) <= 1 {
		return []string{text}
	}

	segments := make([]string, 0, len(bounds))
	for i := range bounds {
		start := bounds[i]
		if i == 0 {
			start = 0
		}
		end := len(text)
		if i+1 < len(bounds) {
			end = bounds[i+1]
		}
		segments = append(segments, text[start:end])
	}
	return segments
}
