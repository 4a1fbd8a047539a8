package metrics

import (
	"regexp"
	"strings"
)

// importantToken finds the substrings CER and WER are measured on: tax ids,
// dates, percentages and amounts, in that order of preference at any position.
var importantToken = regexp.MustCompile(strings.Join([]string{
	`\d{2}-\d{8}-\d`,
	`\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}`,
	`\d+%`,
	`\d{1,3}(?:\.\d{3})*(?:,\d{2})?`,
}, "|"))

var (
	commasAndPeriods = regexp.MustCompile(`[.,]`)
	nonWordChars     = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

// ImportantText keeps only the important tokens of text, space separated,
// in order of occurrence.
func ImportantText(text string) string {
	return strings.Join(importantToken.FindAllString(text, -1), " ")
}

// normalizeForErrorRate prepares important text for CER and WER.
func normalizeForErrorRate(text string) string {
	text = strings.ToLower(text)
	text = commasAndPeriods.ReplaceAllString(text, "")
	text = strings.Join(strings.Fields(text), " ")
	return nonWordChars.ReplaceAllString(text, "")
}

// CER is the character edit distance between the important tokens of both
// texts divided by the ground truth length, capped at 1.
func CER(extractedText, groundTruthText string) float64 {
	extracted := []rune(normalizeForErrorRate(ImportantText(extractedText)))
	truth := []rune(normalizeForErrorRate(ImportantText(groundTruthText)))
	return errorRate(extracted, truth)
}

// WER is CER over whitespace separated words.
func WER(extractedText, groundTruthText string) float64 {
	extracted := strings.Fields(normalizeForErrorRate(ImportantText(extractedText)))
	truth := strings.Fields(normalizeForErrorRate(ImportantText(groundTruthText)))
	return errorRate(extracted, truth)
}

func errorRate[T comparable](extracted, truth []T) float64 {
	if len(truth) == 0 {
		if len(extracted) > 0 {
			return 1.0
		}
		return 0.0
	}
	if len(extracted) == 0 {
		return 1.0
	}
	rate := float64(levenshteinDistance(extracted, truth)) / float64(len(truth))
	return min(rate, 1.0)
}
