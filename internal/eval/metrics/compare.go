package metrics

import (
	"math"
	"regexp"
	"strings"

	"github.com/seleluciano/API-LectorFacturas/internal/invoice"
)

// Match methods recorded on each FieldOutcome.
const (
	MethodTaxID   = "tax_id"
	MethodDate    = "date"
	MethodNumeric = "numeric"
	MethodText    = "text"
	MethodExact   = "exact"
	MethodMissing = "missing"
)

// SimilarityThreshold is the minimum SimilarityRatio for free-text fields to match.
const SimilarityThreshold = 0.8

// amountTolerance is one cent.
const amountTolerance = 0.01

var (
	nonDigits     = regexp.MustCompile(`\D`)
	nonComparable = regexp.MustCompile(`[^\p{L}\p{N}_\s\-.,]`)
	nonDateChars  = regexp.MustCompile(`[^\d/\-.]`)
)

// FieldsMatch compares one expected and one actual value with the rule for
// the field's type and returns the method used. Empty values only match
// each other.
func FieldsMatch(field invoice.FieldName, expected, actual string) (bool, string) {
	expected = strings.TrimSpace(expected)
	actual = strings.TrimSpace(actual)
	if expected == "" || actual == "" {
		return expected == actual, MethodMissing
	}

	switch {
	case field.IsTaxID():
		return nonDigits.ReplaceAllString(expected, "") == nonDigits.ReplaceAllString(actual, ""), MethodTaxID

	case field == invoice.IssueDate:
		return NormalizeDate(expected) == NormalizeDate(actual), MethodDate

	case field.IsNumeric():
		exp, errExp := invoice.ParseFloat(expected)
		act, errAct := invoice.ParseFloat(actual)
		if errExp != nil || errAct != nil {
			return normalizeForComparison(expected) == normalizeForComparison(actual), MethodExact
		}
		return math.Abs(exp-act) < amountTolerance, MethodNumeric

	default:
		ratio := SimilarityRatio(normalizeForComparison(expected), normalizeForComparison(actual))
		return ratio >= SimilarityThreshold, MethodText
	}
}

// NormalizeDate rewrites a day-first date ("27/04/2025", "27-4-25", "27.04.25")
// as YYYY-MM-DD. Two-digit years below 50 are 20xx, the rest 19xx.
// Anything that is not three separated parts is returned unchanged.
func NormalizeDate(s string) string {
	clean := nonDateChars.ReplaceAllString(strings.TrimSpace(s), "")

	var sep string
	switch {
	case strings.Contains(clean, "/"):
		sep = "/"
	case strings.Contains(clean, "-"):
		sep = "-"
	case strings.Contains(clean, "."):
		sep = "."
	default:
		return s
	}

	parts := strings.Split(clean, sep)
	if len(parts) != 3 {
		return s
	}
	day, month, year := parts[0], parts[1], parts[2]
	if day == "" || month == "" || year == "" {
		return s
	}

	if len(year) == 2 {
		if year < "50" {
			year = "20" + year
		} else {
			year = "19" + year
		}
	}
	return year + "-" + leftPad(month, 2) + "-" + leftPad(day, 2)
}

func leftPad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}

// normalizeForComparison lowercases text, drops everything but word
// characters, spaces and "-.,", and collapses whitespace.
func normalizeForComparison(text string) string {
	text = strings.ToLower(text)
	text = nonComparable.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// SimilarityRatio is 2*LCS/(len(a)+len(b)) over runes, 1 when both are empty.
func SimilarityRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra)+len(rb) == 0 {
		return 1.0
	}
	return 2 * float64(longestCommonSubsequence(ra, rb)) / float64(len(ra)+len(rb))
}

func longestCommonSubsequence(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// levenshteinDistance calculates the edit distance between two sequences
func levenshteinDistance[T comparable](s1, s2 []T) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	rows := len(s1) + 1
	cols := len(s2) + 1
	matrix := make([][]int, rows)
	for i := range matrix {
		matrix[i] = make([]int, cols)
	}

	for i := 0; i < rows; i++ {
		matrix[i][0] = i
	}
	for j := 0; j < cols; j++ {
		matrix[0][j] = j
	}

	for i := 1; i < rows; i++ {
		for j := 1; j < cols; j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}

			deletion := matrix[i-1][j] + 1
			insertion := matrix[i][j-1] + 1
			substitution := matrix[i-1][j-1] + cost

			matrix[i][j] = min(deletion, insertion, substitution)
		}
	}

	return matrix[rows-1][cols-1]
}
