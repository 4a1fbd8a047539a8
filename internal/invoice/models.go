package invoice

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FieldName identifies one extracted invoice field.
type FieldName string

const (
	SellerTaxID FieldName = "sellerTaxId"
	BuyerTaxID  FieldName = "buyerTaxId"
	IssueDate   FieldName = "issueDate"
	Subtotal    FieldName = "subtotal"
	Total       FieldName = "total"

	InvoiceType       FieldName = "invoiceType"
	SellerName        FieldName = "sellerName"
	BuyerName         FieldName = "buyerName"
	InvoiceNumber     FieldName = "invoiceNumber"
	PointOfSale       FieldName = "pointOfSale"
	BuyerTaxCondition FieldName = "buyerTaxCondition"
	SaleCondition     FieldName = "saleCondition"
	VAT               FieldName = "vat"
	TaxDue            FieldName = "taxDue"

	// BuyerAddress is extracted for display only and never scored.
	BuyerAddress FieldName = "buyerAddress"

	ItemDescription    FieldName = "description"
	ItemQuantity       FieldName = "quantity"
	ItemUnitPrice      FieldName = "unitPrice"
	ItemDiscountAmount FieldName = "discountAmount"
)

// CriticalFields drive both confidence and accuracy scoring.
var CriticalFields = []FieldName{SellerTaxID, BuyerTaxID, IssueDate, Subtotal, Total}

// AdditionalFields count towards confidence and are scored only when ground truth has them.
var AdditionalFields = []FieldName{
	InvoiceType, SellerName, BuyerName, InvoiceNumber, PointOfSale,
	BuyerTaxCondition, SaleCondition, VAT, TaxDue,
}

// ItemFields are the line item fields compared against ground truth.
// The discount percentage is left out because ground truth does not carry it.
var ItemFields = []FieldName{ItemDescription, ItemQuantity, ItemUnitPrice, ItemDiscountAmount}

// AllFields returns the scored top-level fields, critical first.
func AllFields() []FieldName {
	all := make([]FieldName, 0, len(CriticalFields)+len(AdditionalFields))
	all = append(all, CriticalFields...)
	return append(all, AdditionalFields...)
}

// Valid reports whether f is a known top-level or item field.
func (f FieldName) Valid() bool {
	for _, known := range AllFields() {
		if f == known {
			return true
		}
	}
	for _, known := range ItemFields {
		if f == known {
			return true
		}
	}
	return f == BuyerAddress
}

// IsTaxID reports whether f holds a CUIT/DNI style identifier.
func (f FieldName) IsTaxID() bool {
	return f == SellerTaxID || f == BuyerTaxID
}

// IsNumeric reports whether f holds an amount or count.
func (f FieldName) IsNumeric() bool {
	switch f {
	case Subtotal, Total, VAT, TaxDue, ItemQuantity, ItemUnitPrice, ItemDiscountAmount:
		return true
	}
	return false
}

// Fields maps field names to their extracted or expected string values.
type Fields map[FieldName]string

// Get returns the trimmed value for f.
func (fs Fields) Get(f FieldName) string {
	if fs == nil {
		return ""
	}
	return strings.TrimSpace(fs[f])
}

// Has reports whether f is present with a non-empty value.
func (fs Fields) Has(f FieldName) bool {
	return fs.Get(f) != ""
}

// LineItem is one row of the invoice's product/service table.
type LineItem struct {
	Code            string `json:"code"`
	Description     string `json:"description"`
	Quantity        string `json:"quantity"`
	UnitMeasure     string `json:"unitMeasure"`
	UnitPrice       string `json:"unitPrice"`
	DiscountPercent string `json:"discountPercent,omitempty"`
	DiscountAmount  string `json:"discountAmount,omitempty"`
	Subtotal        string `json:"subtotal,omitempty"`
}

// Field projects the scored item fields.
func (li LineItem) Field(f FieldName) string {
	switch f {
	case ItemDescription:
		return li.Description
	case ItemQuantity:
		return li.Quantity
	case ItemUnitPrice:
		return li.UnitPrice
	case ItemDiscountAmount:
		return li.DiscountAmount
	}
	return ""
}

// ExtractionResult is produced once per invoice span and not modified afterwards.
type ExtractionResult struct {
	Success    bool       `json:"success"`
	Fields     Fields     `json:"fields"`
	Items      []LineItem `json:"items"`
	RawText    string     `json:"rawText"`
	Confidence float64    `json:"confidence"`
	Error      string     `json:"error,omitempty"`
}

// GroundTruthItem is a reference line item. Keys follow the dataset schema.
type GroundTruthItem struct {
	Descripcion         FlexString `json:"descripcion" yaml:"descripcion" parquet:"descripcion"`
	Cantidad            FlexString `json:"cantidad" yaml:"cantidad" parquet:"cantidad"`
	PrecioUnitario      FlexString `json:"precio_unitario" yaml:"precio_unitario" parquet:"precio_unitario"`
	Bonificacion        FlexString `json:"bonificacion,omitempty" yaml:"bonificacion,omitempty" parquet:"bonificacion"`
	ImporteBonificacion FlexString `json:"importe_bonificacion,omitempty" yaml:"importe_bonificacion,omitempty" parquet:"importe_bonificacion"`
}

// Field projects the scored item fields.
func (gi GroundTruthItem) Field(f FieldName) string {
	switch f {
	case ItemDescription:
		return string(gi.Descripcion)
	case ItemQuantity:
		return string(gi.Cantidad)
	case ItemUnitPrice:
		return string(gi.PrecioUnitario)
	case ItemDiscountAmount:
		return string(gi.ImporteBonificacion)
	}
	return ""
}

// GroundTruth holds the reference values for one document.
type GroundTruth struct {
	Fields  Fields            `json:"fields"`
	Items   []GroundTruthItem `json:"items"`
	RawText string            `json:"rawText,omitempty"`
}

// FlexString decodes JSON strings and numbers alike into a string.
type FlexString string

// UnmarshalJSON accepts strings, numbers, and null.
func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}
