package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/seleluciano/API-LectorFacturas/internal/invoice"
)

const (
	unitMeasure = "unidad"

	minDescriptionLength = 3
	maxDescriptionLength = 100
	minQuantity          = 1
	maxQuantity          = 100
	dedupDescriptionLen  = 20
)

// descriptionStoplist holds table headers and generic words OCR often puts where a description goes.
var descriptionStoplist = map[string]bool{
	"unidad": true, "item": true, "producto": true, "servicio": true,
	"cantidad": true, "medida": true, "precio": true, "total": true,
	"bonificación": true, "subtotal": true, "pág": true, "pag": true,
}

var itemCode = regexp.MustCompile(`^\d{1,2}$`)

const (
	codeExpr   = `(?:^|\s)(\d{1,3})\s+`
	descExpr   = `(\p{L}[\p{L}\s.]*?)\s+`
	qtyExpr    = `(\d{1,4})\s+`
	unitExpr   = `(?i:unidad(?:es)?)\s+`
	amountExpr = `(\d(?:[\d.,]*\d)?)`
	pctExpr    = `(\d{1,3}\s?%)`
)

// itemShape is one way a table row can come out of OCR.
type itemShape struct {
	name  string
	re    *regexp.Regexp
	build func(m []string) invoice.LineItem
}

var itemShapes = []itemShape{
	{
		name: "full",
		re:   regexp.MustCompile(codeExpr + descExpr + qtyExpr + unitExpr + amountExpr + `\s+` + pctExpr + `\s+` + amountExpr + `\s+` + amountExpr),
		build: func(m []string) invoice.LineItem {
			return invoice.LineItem{
				Code: m[1], Description: m[2], Quantity: m[3], UnitMeasure: unitMeasure,
				UnitPrice: m[4], DiscountPercent: m[5], DiscountAmount: m[6], Subtotal: m[7],
			}
		},
	},
	{
		name: "no_discount",
		re:   regexp.MustCompile(codeExpr + descExpr + qtyExpr + unitExpr + amountExpr + `\s+` + amountExpr + `(?:\s|$)`),
		build: func(m []string) invoice.LineItem {
			return invoice.LineItem{
				Code: m[1], Description: m[2], Quantity: m[3], UnitMeasure: unitMeasure,
				UnitPrice: m[4], DiscountPercent: "0%", DiscountAmount: "0,00", Subtotal: m[5],
			}
		},
	},
	{
		name: "minimal",
		re:   regexp.MustCompile(codeExpr + descExpr + qtyExpr + unitExpr + amountExpr),
		build: func(m []string) invoice.LineItem {
			return invoice.LineItem{
				Code: m[1], Description: m[2], Quantity: m[3], UnitMeasure: unitMeasure,
				UnitPrice: m[4],
			}
		},
	},
	{
		// OCR reads a lone "1" before "unidad" as "y" or "+".
		name: "misread_quantity",
		re:   regexp.MustCompile(codeExpr + descExpr + `[y+]\s+` + unitExpr + amountExpr + `\s+` + pctExpr + `\s+` + amountExpr + `\s+` + amountExpr),
		build: func(m []string) invoice.LineItem {
			return invoice.LineItem{
				Code: m[1], Description: m[2], Quantity: "1", UnitMeasure: unitMeasure,
				UnitPrice: m[3], DiscountPercent: m[4], DiscountAmount: m[5], Subtotal: m[6],
			}
		},
	},
}

// extractItems runs every shape over the whole text, then drops duplicates and implausible rows.
func (e *Extractor) extractItems(text string) []invoice.LineItem {
	var candidates []invoice.LineItem
	for _, shape := range itemShapes {
		for _, m := range shape.re.FindAllStringSubmatch(text, -1) {
			item := shape.build(m)
			item.Description = collapse(item.Description)
			item.DiscountPercent = strings.ReplaceAll(item.DiscountPercent, " ", "")
			candidates = append(candidates, item)
		}
	}

	seen := make(map[string]bool, len(candidates))
	items := make([]invoice.LineItem, 0, len(candidates))
	for _, item := range candidates {
		key := dedupKey(item)
		if seen[key] {
			continue
		}
		seen[key] = true

		if reason := validateItem(item); reason != "" {
			e.logger.Debug("dropping line item", "code", item.Code, "description", item.Description, "reason", reason)
			continue
		}
		items = append(items, item)
	}
	return items
}

func dedupKey(item invoice.LineItem) string {
	desc := []rune(strings.ToLower(item.Description))
	if len(desc) > dedupDescriptionLen {
		desc = desc[:dedupDescriptionLen]
	}
	return strings.Join([]string{item.Code, string(desc), item.Quantity, item.UnitPrice}, "|")
}

// validateItem returns why an item is rejected, or "" when it is kept.
func validateItem(item invoice.LineItem) string {
	desc := strings.TrimSpace(item.Description)
	n := len([]rune(desc))
	switch {
	case n < minDescriptionLength:
		return "description too short"
	case n > maxDescriptionLength:
		return "description too long"
	case descriptionStoplist[strings.ToLower(desc)]:
		return "generic description"
	}

	if !itemCode.MatchString(strings.TrimSpace(item.Code)) {
		return "code is not a row number"
	}

	qty, err := strconv.Atoi(strings.TrimSpace(item.Quantity))
	if err != nil {
		return "quantity is not an integer"
	}
	if qty < minQuantity || qty > maxQuantity {
		return "quantity out of range"
	}

	price, err := invoice.ParseAmount(item.UnitPrice)
	if err != nil || !price.IsPositive() {
		return "unit price is not positive"
	}
	return ""
}
