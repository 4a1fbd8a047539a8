package dataset

import (
	"fmt"
	"slices"
	"strings"

	"github.com/seleluciano/API-LectorFacturas/internal/invoice"
)

// Record is one invoice annotation in the dataset schema.
// Per-invoice JSON files leave Filename empty and are keyed by their sibling
// image; JSONL and Parquet rows carry it.
type Record struct {
	Filename string `json:"filename,omitempty" parquet:"filename"`

	TipoFactura         invoice.FlexString `json:"tipo_factura" parquet:"tipo_factura"`
	RazonSocialEmisor   invoice.FlexString `json:"razon_social_emisor" parquet:"razon_social_emisor"`
	CuitEmisor          invoice.FlexString `json:"cuit_emisor" parquet:"cuit_emisor"`
	RazonSocialReceptor invoice.FlexString `json:"razon_social_receptor" parquet:"razon_social_receptor"`
	CuitReceptor        invoice.FlexString `json:"cuit_receptor" parquet:"cuit_receptor"`
	CondicionIVA        invoice.FlexString `json:"condicion_iva_receptor" parquet:"condicion_iva_receptor"`
	CondicionVenta      invoice.FlexString `json:"condicion_venta" parquet:"condicion_venta"`
	FechaEmision        invoice.FlexString `json:"fecha_emision" parquet:"fecha_emision"`
	Subtotal            invoice.FlexString `json:"subtotal" parquet:"subtotal"`
	ImporteTotal        invoice.FlexString `json:"importe_total" parquet:"importe_total"`
	IVA                 invoice.FlexString `json:"iva" parquet:"iva"`
	PercepcionIIBB      invoice.FlexString `json:"percepcion_iibb" parquet:"percepcion_iibb"`
	NumeroFactura       invoice.FlexString `json:"numero_factura" parquet:"numero_factura"`
	PuntoVenta          invoice.FlexString `json:"punto_venta" parquet:"punto_venta"`

	Items []invoice.GroundTruthItem `json:"items" parquet:"items,list"`
}

// GroundTruth maps the dataset keys onto extractor field names.
// percepcion_iibb is scored as taxDue.
func (r *Record) GroundTruth() invoice.GroundTruth {
	fields := invoice.Fields{}
	set := func(f invoice.FieldName, v invoice.FlexString) {
		if s := strings.TrimSpace(string(v)); s != "" {
			fields[f] = s
		}
	}

	set(invoice.InvoiceType, r.TipoFactura)
	set(invoice.SellerName, r.RazonSocialEmisor)
	set(invoice.SellerTaxID, r.CuitEmisor)
	set(invoice.BuyerName, r.RazonSocialReceptor)
	set(invoice.BuyerTaxID, r.CuitReceptor)
	set(invoice.BuyerTaxCondition, r.CondicionIVA)
	set(invoice.SaleCondition, r.CondicionVenta)
	set(invoice.IssueDate, r.FechaEmision)
	set(invoice.Subtotal, r.Subtotal)
	set(invoice.Total, r.ImporteTotal)
	set(invoice.VAT, r.IVA)
	set(invoice.TaxDue, r.PercepcionIIBB)
	set(invoice.InvoiceNumber, r.NumeroFactura)
	set(invoice.PointOfSale, r.PuntoVenta)

	return invoice.GroundTruth{
		Fields:  fields,
		Items:   slices.Clone(r.Items),
		RawText: r.Text(),
	}
}

// Text renders the annotation the way the identifiers and amounts appear on
// the printed invoice, for CER and WER.
func (r *Record) Text() string {
	var parts []string
	add := func(label string, v invoice.FlexString) {
		if s := strings.TrimSpace(string(v)); s != "" {
			parts = append(parts, label+": "+s)
		}
	}

	add("CUIT", r.CuitEmisor)
	add("DNI", r.CuitReceptor)
	add("Fecha de Emisión", r.FechaEmision)
	add("Subtotal", r.Subtotal)
	add("Importe Total", r.ImporteTotal)

	for i, item := range r.Items {
		if item.Descripcion == "" || item.Cantidad == "" || item.PrecioUnitario == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%d %s %s unidad %s", i+1, item.Descripcion, item.Cantidad, item.PrecioUnitario))
		if item.Bonificacion != "" {
			parts = append(parts, string(item.Bonificacion))
		}
		if item.ImporteBonificacion != "" {
			parts = append(parts, string(item.ImporteBonificacion))
		}
	}
	return strings.Join(parts, " ")
}
