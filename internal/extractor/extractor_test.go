package extractor_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seleluciano/API-LectorFacturas/internal/extractor"
	"github.com/seleluciano/API-LectorFacturas/internal/invoice"
)

const redesInvoice = `ORIGINAL Redes y Servicios SA Le PAGTURA Punto de Venta: 0004 Comp.Nro: 68759114 Razón Social: Redes y Servicios SA Fecha de Emisión: 27/04/2025 CUIT: 30-99999999-7 Ingresos Brutos: 24216953725 Fecha de Inicio de Actividades: 01/01/2020 Domicilio Comercial:Calle Tucumán 700 Condición frente al IVA: Responsable Inscripto 1/01/2025 Hasta: 31/12/2025 Fecha de Vto. para el pago: 30/04/2025 Período Facturado Desde: DNI: 20-12345678-9 Apellido y Nombre / Razón Social: Marcela Pérez Domicilio: Av. Santa Fe 1100 Condición frente al IVA: Monotributista Condición de venta: Contado [ Producto / servicio Ju. medida] Precioun [Bont] imp. Bont. Subtotal 1 Servicio de consultoria 1 unidad 10.000,00 14% 1.400,00 8.600,00 2 Instalación de servidores 1 unidad 12.000,00 2% 240,00 11.760,00 Percepción IIBB: $ 1.500,00 IVA: $4.275,60 Subtotal: $20.360,00 Importe Otros Tributos: $532,00 Importe Total: $26.667,60 5165247793596 Fecha de Vto. de CAE: 01/05/2025 Pág. 1/1 Comprobante Autorizado Esta Agencia no se responsabllza poros datos Ingrezados an l dea de a operacion`

const networksInvoice = `ORIGINAL Global Networks SRL co0.001 Punto de Venta: 0004 Comp. Nro: 88982595 Razón Social: Global Networks SRL Fecha de Emisión: 27/04/2025 Domicilio Comercial:Calle Salta 600 CUIT: 30-99999999-7 Ingresos Brutos: 26928520538 Condición frente al IVA: Responsable Inscripto Fecha de Inicio de Actividades: 01/01/2020 Período Facturado Desde: 01/01/2025 Hasta: 31/12/2025 Fecha de Vto. para el pago: 30/04/2025 DNI: 20-12345678-9 Apellido y Nombre / Razón Social: María Gonzalez Condición frente al IVA: Responsable Inscripto Domicitio: San Juan 500 Condición de venta: Contado [ Producto / servicio Ju. medida] Precioun [Bont] imp. Bont. Subtotal 1 Servicio de consultoria 1 unidad 10.000,00 14% 1.400,00 8.600,00 2 Desarrollo de software 2 unidad 8.000,00 7% 1.120,00 14.880,00 3 Implementación de red y unidad 5.000,00 14% 2.100,00 12.900,00 Percepción IIBB: $ 1.500,00 IVA: $7.639,80 Subtotal: $36.380,00 Importe Otros Tributos: $265,00 Importe Total: $45.784,80 5165247793596 Fecha de Vto. de CAE: 01/05/2025 Pág. 1/1 Comprobante Autorizado`

func TestExtract_EndToEndIdentifiersAndTaxDue(t *testing.T) {
	text := "FACTURA ... CUIT: 30-99999999-7 ... DNI: 20-12345678-9 ... Subtotal: $1.000,00 ... Importe Total: $1.210,00 ..."

	res := extractor.New().Extract(text)

	require.True(t, res.Success)
	assert.Equal(t, "30-99999999-7", res.Fields[invoice.SellerTaxID])
	assert.Equal(t, "20-12345678-9", res.Fields[invoice.BuyerTaxID])
	assert.Equal(t, "210,00", res.Fields[invoice.TaxDue])
	assert.Equal(t, text, res.RawText)
}

func TestExtract_FullInvoice(t *testing.T) {
	res := extractor.New().Extract(redesInvoice)
	require.True(t, res.Success)

	want := map[invoice.FieldName]string{
		invoice.SellerName:        "Redes y Servicios SA",
		invoice.SellerTaxID:       "30-99999999-7",
		invoice.BuyerName:         "Marcela Pérez",
		invoice.BuyerTaxID:        "20-12345678-9",
		invoice.BuyerTaxCondition: "Monotributista",
		invoice.SaleCondition:     "Contado",
		invoice.IssueDate:         "27/04/2025",
		invoice.Subtotal:          "20.360,00",
		invoice.Total:             "26.667,60",
		invoice.VAT:               "4.275,60",
		invoice.TaxDue:            "6.307,60",
		invoice.InvoiceNumber:     "68759114",
		invoice.PointOfSale:       "0004",
		invoice.InvoiceType:       extractor.DefaultInvoiceType,
	}
	for field, value := range want {
		assert.Equal(t, value, res.Fields[field], "field %s", field)
	}

	require.Len(t, res.Items, 2)
	assert.Equal(t, invoice.LineItem{
		Code: "1", Description: "Servicio de consultoria", Quantity: "1", UnitMeasure: "unidad",
		UnitPrice: "10.000,00", DiscountPercent: "14%", DiscountAmount: "1.400,00", Subtotal: "8.600,00",
	}, res.Items[0])
	assert.Equal(t, "Instalación de servidores", res.Items[1].Description)
	assert.Equal(t, "240,00", res.Items[1].DiscountAmount)

	assert.InDelta(t, 1.0, res.Confidence, 1e-9)
}

func TestExtract_MisreadQuantityItem(t *testing.T) {
	res := extractor.New().Extract(networksInvoice)

	require.Len(t, res.Items, 3)
	third := res.Items[2]
	assert.Equal(t, "3", third.Code)
	assert.Equal(t, "Implementación de red", third.Description)
	assert.Equal(t, "1", third.Quantity)
	assert.Equal(t, "5.000,00", third.UnitPrice)
	assert.Equal(t, "2.100,00", third.DiscountAmount)

	assert.Equal(t, "Responsable Inscripto", res.Fields[invoice.BuyerTaxCondition])
	assert.Equal(t, "María Gonzalez", res.Fields[invoice.BuyerName])
	assert.Equal(t, "88982595", res.Fields[invoice.InvoiceNumber])
	assert.Equal(t, "9.404,80", res.Fields[invoice.TaxDue])
}

func TestExtract_ItemValidation(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"valid row", "1 Análisis de datos 4 unidad 4.000,00 12% 1.920,00 14.080,00", 1},
		{"quantity out of range", "1 Análisis de datos 150 unidad 4.000,00 12% 1.920,00 14.080,00", 0},
		{"stoplisted description", "1 subtotal 2 unidad 4.000,00 12% 1.920,00 14.080,00", 0},
		{"code too long", "123 Análisis de datos 4 unidad 4.000,00 12% 1.920,00 14.080,00", 0},
		{"zero price", "1 Análisis de datos 4 unidad 0,00 0% 0,00 0,00", 0},
		{"description too short", "1 ab 4 unidad 4.000,00 12% 1.920,00 14.080,00", 0},
		{"no discount columns", "1 Soporte técnico 5 unidad 2.000,00 10.000,00 Percepción", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := extractor.New().Extract(tt.text)
			assert.Len(t, res.Items, tt.want)
		})
	}
}

func TestExtract_NoDiscountShapeFillsZeroDiscount(t *testing.T) {
	res := extractor.New().Extract("1 Soporte técnico 5 unidad 2.000,00 10.000,00 Percepción")
	require.Len(t, res.Items, 1)
	assert.Equal(t, "0%", res.Items[0].DiscountPercent)
	assert.Equal(t, "0,00", res.Items[0].DiscountAmount)
	assert.Equal(t, "10.000,00", res.Items[0].Subtotal)
}

func TestExtract_TaxDuePlaceholder(t *testing.T) {
	res := extractor.New().Extract("Importe Total: $1.210,00")
	require.True(t, res.Success)
	assert.Equal(t, extractor.TaxDuePlaceholder, res.Fields[invoice.TaxDue])
}

func TestExtract_InvoiceTypeFallback(t *testing.T) {
	t.Run("explicit letter wins", func(t *testing.T) {
		res := extractor.New().Extract("ORIGINAL FACTU B Comp. Nro: 21696565")
		assert.Equal(t, "B", res.Fields[invoice.InvoiceType])
	})

	t.Run("marker word defaults to A", func(t *testing.T) {
		res := extractor.New().Extract("Comprobante Autorizado")
		assert.Equal(t, extractor.DefaultInvoiceType, res.Fields[invoice.InvoiceType])
	})

	t.Run("no marker leaves type absent", func(t *testing.T) {
		res := extractor.New().Extract("CUIT: 30-99999999-7")
		assert.False(t, res.Fields.Has(invoice.InvoiceType))
	})

	t.Run("fallback can be disabled", func(t *testing.T) {
		res := extractor.New(extractor.WithInvoiceTypeFallback(false)).Extract("Comprobante Autorizado")
		assert.False(t, res.Fields.Has(invoice.InvoiceType))
	})
}

func TestExtract_NameCleaningAndTruncation(t *testing.T) {
	long := strings.Repeat("Abcdefghij ", 8)
	res := extractor.New().Extract("Apellido y Nombre / Razón Social: " + long + "Domicilio: Calle 1 Condición")

	name := res.Fields[invoice.BuyerName]
	assert.LessOrEqual(t, len([]rune(name)), 50)
	assert.True(t, strings.HasPrefix(name, "Abcdefghij Abcdefghij"))
}

func TestExtract_ShortValuesRejected(t *testing.T) {
	res := extractor.New().Extract("Nro: 12")
	assert.False(t, res.Fields.Has(invoice.InvoiceNumber))
}

func TestExtract_EmptyText(t *testing.T) {
	res := extractor.New().Extract("")
	require.True(t, res.Success)
	assert.Empty(t, res.Items)
	assert.Equal(t, extractor.TaxDuePlaceholder, res.Fields[invoice.TaxDue])
	assert.InDelta(t, 0.1/9, res.Confidence, 1e-9)
}

func TestConfidence(t *testing.T) {
	fields := invoice.Fields{
		invoice.SellerTaxID: "30-99999999-7",
		invoice.BuyerTaxID:  "20-12345678-9",
		invoice.TaxDue:      "0.00",
	}
	items := []invoice.LineItem{
		{Description: "Soporte", Quantity: "1", UnitPrice: "10,00", DiscountAmount: "1,00"},
		{Description: "Soporte", Quantity: "1", UnitPrice: "10,00"},
	}

	got := extractor.Confidence(fields, items)
	want := 0.6*2.0/5.0 + 0.3*((1.0+0.75)/2) + 0.1*1.0/9.0
	assert.InDelta(t, want, got, 1e-9)

	assert.Zero(t, extractor.Confidence(invoice.Fields{}, nil))
}

func TestExtractor_ConcurrentUse(t *testing.T) {
	ext := extractor.New()
	done := make(chan invoice.ExtractionResult, 8)
	for i := 0; i < 8; i++ {
		go func() { done <- ext.Extract(redesInvoice) }()
	}
	for i := 0; i < 8; i++ {
		res := <-done
		assert.Equal(t, "6.307,60", res.Fields[invoice.TaxDue])
	}
}

func TestExtract_SingleLetterInvoiceType(t *testing.T) {
	res := extractor.New().Extract("FACTURA B 00012345 CUIT: 30-99999999-7")
	assert.Equal(t, "B", res.Fields[invoice.InvoiceType])
}

func TestExtract_TotalNotTakenFromSubtotal(t *testing.T) {
	res := extractor.New().Extract("Subtotal: $1.000,00 Importe Total $1.210,00")

	assert.Equal(t, "1.000,00", res.Fields[invoice.Subtotal])
	assert.Equal(t, "1.210,00", res.Fields[invoice.Total])
	assert.Equal(t, "210,00", res.Fields[invoice.TaxDue])
}

func TestExtract_VATNeedsWordBoundary(t *testing.T) {
	res := extractor.New().Extract("PRIVA: $50,00 Subtotal: $100,00")
	assert.False(t, res.Fields.Has(invoice.VAT))
}

func TestExtract_InvoiceNumberIgnoresTaxIDDigits(t *testing.T) {
	res := extractor.New().Extract("CUIT: 30-99999999-7 DNI: 20-12345678-9")
	assert.False(t, res.Fields.Has(invoice.InvoiceNumber))

	res = extractor.New().Extract("Autorizado 68759114 Pág. 1/1")
	assert.Equal(t, "68759114", res.Fields[invoice.InvoiceNumber])
}

func TestExtract_MultilineText(t *testing.T) {
	res := extractor.New().Extract("CUIT:\n30-99999999-7\n\nSubtotal:\n$1.000,00\r\nImporte Total:\n\n$1.210,00\n")

	assert.Equal(t, "30-99999999-7", res.Fields[invoice.SellerTaxID])
	assert.Equal(t, "1.210,00", res.Fields[invoice.Total])
	assert.Equal(t, "210,00", res.Fields[invoice.TaxDue])
}

func TestExtract_UnitWordAnyCase(t *testing.T) {
	res := extractor.New().Extract("5 Cable 3 Unidad 7,00")

	require.Len(t, res.Items, 1)
	assert.Equal(t, "Cable", res.Items[0].Description)
	assert.Equal(t, "3", res.Items[0].Quantity)
	assert.Equal(t, "7,00", res.Items[0].UnitPrice)
}
