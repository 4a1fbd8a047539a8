package extractor

import (
	"regexp"

	"github.com/seleluciano/API-LectorFacturas/internal/invoice"
)

// fieldPatterns lists the alternatives per field. Order is priority: the first
// alternative whose cleaned capture is long enough wins, regardless of how
// specific a later alternative might be.
var fieldPatterns = map[invoice.FieldName][]*regexp.Regexp{
	invoice.InvoiceType: compile(
		`FACTU\S*\s+([ABC])\b`,
		`Factura\s+([ABC])\b`,
		`Tipo:\s*([ABC])\b`,
		`ORIGINAL\s+([ABC])\s*:`,
		`(?-i:\b([ABC])\s+\d{4,})`,
	),
	invoice.SellerName: compile(
		`Raz\S*n Social:\s*(\p{L}[\p{L}\s.&]+?)\s+(?:CUIT|Fecha|Domicilio|Punto|Ingresos)`,
		`ORIGINAL\s+(\p{L}[\p{L}\s.&]+?\s(?:S\.R\.L\.|S\.A\.|SRL|SA))\b`,
		`(\p{L}[\p{L}\s]+?\s(?:SRL|SA))\s+CUIT`,
	),
	invoice.SellerTaxID: compile(
		`CUIT:\s*(\d{2}-\d{8}-\d)`,
		`CUIT\s*(\d{2}-\d{8}-\d)`,
	),
	invoice.BuyerName: compile(
		`DNI:\s*\d{2}-\d{8}-\d\s+Apellido y Nombre\s*/\s*Raz\S*n Social:\s*(\p{L}[\p{L}\s]+?)\s+(?:Domic|Condici|CUIT)`,
		`Apellido y Nombre\s*/\s*Raz\S*n Social:\s*(\p{L}[\p{L}\s]+?)\s+(?:Domic|Condici|CUIT)`,
		`Cliente:\s*(\p{L}[\p{L}\s]+?)\s+Domic`,
		`Comprador:\s*(\p{L}[\p{L}\s]+?)\s+Domic`,
		`(\p{L}+\s+\p{L}+)\s+Domicilio:`,
	),
	invoice.BuyerTaxID: compile(
		`DNI:\s*(\d{2}-\d{8}-\d)`,
		`DNI\s*(\d{2}-\d{8}-\d)`,
		`CUIT Comprador:\s*(\d{2}-\d{8}-\d)`,
	),
	invoice.BuyerTaxCondition: compile(
		`DNI:\s*\d{2}-\d{8}-\d.*?Condici\S*n frente al IVA:\s*(\p{L}[\p{L}\s]*?)\s+(?:Condici|Domic|CUIT|DNI|Fecha|\[)`,
		`Apellido y Nombre\s*/\s*Raz\S*n Social:.*?Condici\S*n frente al IVA:\s*(\p{L}[\p{L}\s]*?)\s+(?:Condici|Domic|CUIT|Fecha|\[)`,
		`Domicilio:.*?Condici\S*n frente al IVA:\s*(\p{L}[\p{L}\s]*?)\s+(?:Condici|Domic|CUIT|Fecha|\[)`,
		`CUIT Comprador.*?Condici\S*n frente al IVA:\s*(\p{L}[\p{L}\s]*?)\s+(?:Condici|Domic|Fecha|\[)`,
	),
	invoice.SaleCondition: compile(
		`Condici\S*n de venta:\s*(\p{L}[\p{L}\s]{0,30})`,
		`Condici\S*n venta:\s*(\p{L}[\p{L}\s]{0,30})`,
		`Venta:\s*(\p{L}[\p{L}\s]{0,30})`,
	),
	invoice.IssueDate: compile(
		`Fecha de Emisi\S*n:\s*(\d{1,2}/\d{1,2}/\d{2,4})`,
		`Fecha:\s*(\d{1,2}/\d{1,2}/\d{2,4})`,
		`(\d{2}/\d{2}/\d{4})`,
	),
	invoice.Subtotal: compile(
		`Subtotal:\s*\$\s*(\d(?:[\d.,]*\d)?)`,
		`Subtotal\s*\$\s*(\d(?:[\d.,]*\d)?)`,
		`Subtotal\s+(\d(?:[\d.,]*\d)?)`,
	),
	invoice.Total: compile(
		`Importe Total:\s*\$\s*(\d(?:[\d.,]*\d)?)`,
		`\bTotal:\s*\$\s*(\d(?:[\d.,]*\d)?)`,
		`Importe Total\s*\$?\s*(\d(?:[\d.,]*\d)?)`,
	),
	invoice.VAT: compile(
		`\bIVA:\s*\$\s*(\d(?:[\d.,]*\d)?)`,
		`Impuesto IVA:\s*\$\s*(\d(?:[\d.,]*\d)?)`,
		`\bIVA\s+(\d(?:[\d.,]*\d)?)`,
	),
	invoice.InvoiceNumber: compile(
		`Comp\.?\s*Nro:?\s*(\d+)`,
		`Factura Nro:\s*(\d+)`,
		`Nro:\s*(\d+)`,
		`(?:^|\s)(\d{8,})(?:\s|$)`,
	),
	invoice.PointOfSale: compile(
		`Punto de Venta:\s*(\d{4,5})`,
		`PV:\s*(\d{4})`,
		`Punto:\s*(\d{4})`,
	),
	invoice.BuyerAddress: compile(
		`Domic\S*:\s*(.+?)\s+Condici`,
	),
}

// extractionOrder fixes the order fields are looked up in; map iteration is random.
var extractionOrder = []invoice.FieldName{
	invoice.InvoiceType,
	invoice.SellerName,
	invoice.SellerTaxID,
	invoice.BuyerName,
	invoice.BuyerTaxID,
	invoice.BuyerAddress,
	invoice.BuyerTaxCondition,
	invoice.SaleCondition,
	invoice.IssueDate,
	invoice.Subtotal,
	invoice.Total,
	invoice.VAT,
	invoice.InvoiceNumber,
	invoice.PointOfSale,
}

// minValueLength is the shortest cleaned capture accepted per field.
// Invoice types are single letters, so the general rule would make every
// type pattern unreachable and leave the marker fallback as the only source.
var minValueLength = map[invoice.FieldName]int{
	invoice.InvoiceType: 1,
}

const defaultMinValueLength = 3

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		out[i] = regexp.MustCompile(`(?im)` + expr)
	}
	return out
}
