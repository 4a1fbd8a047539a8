package invoice

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyAmount is returned when a string carries no digits at all.
	ErrEmptyAmount = errors.New("amount has no digits")
	// ErrInvalidAmount is returned when the digits do not form a number.
	ErrInvalidAmount = errors.New("invalid amount")
)

var (
	nonAmountChars = regexp.MustCompile(`[^\d.,]`)
	separators     = strings.NewReplacer(".", "", ",", "")
)

// ParseAmount reads amounts written either way ("1.234,56" or "1,234.56").
// Whichever separator occurs last is the decimal point; every earlier separator
// is a thousands mark. A lone separator is therefore always decimal.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.TrimRight(nonAmountChars.ReplaceAllString(s, ""), ".,")
	if strings.Trim(clean, ".,") == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	normalized := clean
	if last := strings.LastIndexAny(clean, ".,"); last >= 0 {
		intPart := separators.Replace(clean[:last])
		fracPart := clean[last+1:]
		if intPart == "" {
			intPart = "0"
		}
		normalized = intPart
		if fracPart != "" {
			normalized += "." + fracPart
		}
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// ParseFloat is ParseAmount for callers that compare with a tolerance.
func ParseFloat(s string) (float64, error) {
	d, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}

// FormatAmount renders d as "#.###,##".
func FormatAmount(d decimal.Decimal) string {
	fixed := d.Round(2).StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(fracPart)
	return b.String()
}
