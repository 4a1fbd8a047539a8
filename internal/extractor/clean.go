package extractor

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/seleluciano/API-LectorFacturas/internal/invoice"
)

const (
	maxNameLength    = 50
	maxAddressLength = 40
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)

	nonNameChars    = regexp.MustCompile(`[^\p{L}\s]`)
	nonAddressChars = regexp.MustCompile(`[^\p{L}\d\s]`)
	nonValueChars   = regexp.MustCompile(`[^\p{L}\d\s\-.,/$%]`)
)

// conditionVocabulary maps free text to the canonical tax and sale conditions.
// Every keyword of an entry must appear in the accent-folded, lowercased text.
var conditionVocabulary = []struct {
	keywords  []string
	canonical string
}{
	{[]string{"responsable", "inscripto"}, "Responsable Inscripto"},
	{[]string{"monotribut"}, "Monotributista"},
	{[]string{"exento"}, "Exento"},
	{[]string{"consumidor", "final"}, "Consumidor Final"},
	{[]string{"contado"}, "Contado"},
	{[]string{"cuenta", "corriente"}, "Cuenta Corriente"},
	{[]string{"tarjeta", "credito"}, "Tarjeta de Crédito"},
	{[]string{"tarjeta", "debito"}, "Tarjeta de Débito"},
	{[]string{"transferencia"}, "Transferencia"},
	{[]string{"cheque"}, "Cheque"},
}

// preClean folds the text onto a single line before any pattern runs, so
// labels and values split across OCR lines still match.
func preClean(text string) string {
	return collapse(text)
}

// cleanValue applies the cleaning rules of the field's class.
func cleanValue(field invoice.FieldName, value string) string {
	switch field {
	case invoice.SellerName, invoice.BuyerName:
		return truncateRunes(collapse(nonNameChars.ReplaceAllString(value, "")), maxNameLength)
	case invoice.BuyerAddress:
		return truncateRunes(collapse(nonAddressChars.ReplaceAllString(value, "")), maxAddressLength)
	case invoice.BuyerTaxCondition, invoice.SaleCondition:
		return normalizeCondition(collapse(nonValueChars.ReplaceAllString(value, "")))
	default:
		return collapse(nonValueChars.ReplaceAllString(value, ""))
	}
}

// normalizeCondition returns the canonical spelling, or value unchanged when nothing matches.
func normalizeCondition(value string) string {
	folded := strings.ToLower(foldAccents(value))
	for _, entry := range conditionVocabulary {
		if containsAll(folded, entry.keywords) {
			return entry.canonical
		}
	}
	return value
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func containsAll(s string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(s, w) {
			return false
		}
	}
	return true
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
