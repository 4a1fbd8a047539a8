package dataset

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seleluciano/API-LectorFacturas/internal/invoice"
)

const annotation = `{
  "tipo_factura": "A",
  "razon_social_emisor": "Redes y Servicios SA",
  "cuit_emisor": "30-99999999-7",
  "razon_social_receptor": "Marcela Pérez",
  "cuit_receptor": "20-12345678-9",
  "condicion_iva_receptor": "Monotributista",
  "condicion_venta": "Contado",
  "fecha_emision": "27/04/2025",
  "subtotal": "20.360,00",
  "importe_total": "26.667,60",
  "iva": "4.275,60",
  "percepcion_iibb": "1.500,00",
  "numero_factura": "68759114",
  "punto_venta": "0004",
  "items": [
    {"descripcion": "Servicio de consultoria", "cantidad": 1, "precio_unitario": "10.000,00", "bonificacion": "14%", "importe_bonificacion": "1.400,00"},
    {"descripcion": "Instalación de servidores", "cantidad": "1", "precio_unitario": 12000}
  ]
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "factura_1.json"), annotation)
	writeFile(t, filepath.Join(dir, "factura_1.png"), "png")
	writeFile(t, filepath.Join(dir, "factura_2.json"), annotation)
	writeFile(t, filepath.Join(dir, "factura_2.jpeg"), "jpeg")
	writeFile(t, filepath.Join(dir, "orphan.json"), annotation)
	writeFile(t, filepath.Join(dir, "invalid.json"), `{"items": "not a list"}`)
	writeFile(t, filepath.Join(dir, "invalid.png"), "png")

	gt, err := NewLoader(dir, nil).Load()
	require.NoError(t, err)

	require.Len(t, gt, 2)
	require.Contains(t, gt, "factura_1.png")
	assert.Contains(t, gt, "factura_2.jpeg")
	doc := gt["factura_1.png"]

	want := map[invoice.FieldName]string{
		invoice.SellerTaxID:       "30-99999999-7",
		invoice.BuyerTaxID:        "20-12345678-9",
		invoice.SellerName:        "Redes y Servicios SA",
		invoice.BuyerTaxCondition: "Monotributista",
		invoice.TaxDue:            "1.500,00",
		invoice.PointOfSale:       "0004",
	}
	for f, v := range want {
		assert.Equal(t, v, doc.Fields.Get(f), "field %s", f)
	}

	require.Len(t, doc.Items, 2)
	assert.Equal(t, invoice.FlexString("1"), doc.Items[0].Cantidad)
	assert.Equal(t, invoice.FlexString("12000"), doc.Items[1].PrecioUnitario)
}

func TestLoad_JSONMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gt.json")
	writeFile(t, path, `{
	  "a.png": {"sellerTaxId": "30-99999999-7", "total": 1210, "notAField": "x",
	            "items": [{"descripcion": "Soporte", "cantidad": 2, "precio_unitario": "100,00"}]},
	  "b.png": {"buyerTaxId": null, "issueDate": "01/01/2024", "rawText": "Fecha 01/01/2024"}
	}`)

	gt, err := NewLoader(path, nil).Load()
	require.NoError(t, err)

	a := gt["a.png"]
	assert.Equal(t, "30-99999999-7", a.Fields.Get(invoice.SellerTaxID))
	assert.Equal(t, "1210", a.Fields.Get(invoice.Total))
	assert.NotContains(t, a.Fields, invoice.FieldName("notAField"))
	require.Len(t, a.Items, 1)
	assert.Equal(t, invoice.FlexString("2"), a.Items[0].Cantidad)

	b := gt["b.png"]
	assert.False(t, b.Fields.Has(invoice.BuyerTaxID), "null value should be absent")
	assert.Equal(t, "Fecha 01/01/2024", b.RawText)
}

func TestLoad_JSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gt.jsonl")
	writeFile(t, path, `{"filename": "x/one.png", "cuit_emisor": "30-99999999-7", "items": []}

{"filename": "two.png", "importe_total": "1.210,00"}
{"cuit_emisor": "30-99999999-7"}
`)

	gt, err := NewLoader(path, nil).Load()
	require.NoError(t, err)
	require.Len(t, gt, 2)
	assert.Equal(t, "30-99999999-7", gt["one.png"].Fields.Get(invoice.SellerTaxID))
	assert.Equal(t, "1.210,00", gt["two.png"].Fields.Get(invoice.Total))
}

func TestLoad_JSONLRejectsInvalidLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gt.jsonl")
	writeFile(t, path, `{"filename": "one.png", "tipo_factura": "Z"}`)

	_, err := NewLoader(path, nil).Load()
	assert.Error(t, err)
}

func TestLoad_Parquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gt.parquet")
	rows := []Record{
		{
			Filename:     "one.png",
			CuitEmisor:   "30-99999999-7",
			ImporteTotal: "1.210,00",
			Items: []invoice.GroundTruthItem{
				{Descripcion: "Soporte", Cantidad: "1", PrecioUnitario: "100,00"},
			},
		},
		{Filename: "two.png", FechaEmision: "01/01/2024"},
	}
	require.NoError(t, parquet.WriteFile(path, rows))

	gt, err := NewLoader(path, nil).Load()
	require.NoError(t, err)
	require.Len(t, gt, 2)

	one := gt["one.png"]
	assert.Equal(t, "1.210,00", one.Fields.Get(invoice.Total))
	require.Len(t, one.Items, 1)
	assert.Equal(t, invoice.FlexString("Soporte"), one.Items[0].Descripcion)
	assert.Equal(t, "01/01/2024", gt["two.png"].Fields.Get(invoice.IssueDate))
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gt.csv")
	writeFile(t, path, "a,b")

	_, err := NewLoader(path, nil).Load()
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoad_MissingPath(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.json"), nil).Load()
	assert.Error(t, err)
}

func TestRecordText(t *testing.T) {
	r := Record{
		CuitEmisor:   "30-99999999-7",
		CuitReceptor: "20-12345678-9",
		FechaEmision: "27/04/2025",
		Subtotal:     "20.360,00",
		ImporteTotal: "26.667,60",
		Items: []invoice.GroundTruthItem{
			{Descripcion: "Servicio de consultoria", Cantidad: "1", PrecioUnitario: "10.000,00", Bonificacion: "14%", ImporteBonificacion: "1.400,00"},
			{Descripcion: "Sin precio", Cantidad: "1"},
			{Descripcion: "Instalación", Cantidad: "2", PrecioUnitario: "500,00"},
		},
	}

	want := "CUIT: 30-99999999-7 DNI: 20-12345678-9 Fecha de Emisión: 27/04/2025 Subtotal: 20.360,00 Importe Total: 26.667,60 " +
		"1 Servicio de consultoria 1 unidad 10.000,00 14% 1.400,00 3 Instalación 2 unidad 500,00"
	assert.Equal(t, want, r.Text())
	assert.Empty(t, (&Record{}).Text())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{"full annotation", annotation, false},
		{"empty object", `{}`, false},
		{"numbers allowed", `{"subtotal": 100.5, "importe_total": null}`, false},
		{"bad invoice type", `{"tipo_factura": "X"}`, true},
		{"item without price", `{"items": [{"descripcion": "a", "cantidad": 1}]}`, true},
		{"not json", `{`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFetch(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"a.png": {"total": "1.210,00"}}`)
	}))
	defer srv.Close()

	cfg := FetchConfig{CacheDir: t.TempDir(), Token: "secret"}
	ctx := context.Background()

	gt, err := Resolve(ctx, srv.URL+"/bucket/gt.json", cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "1.210,00", gt["a.png"].Fields.Get(invoice.Total))

	_, err = NewFetcher(cfg, nil).Fetch(ctx, srv.URL+"/bucket/gt.json")
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "second fetch is served from the cache")

	cfg.Token = ""
	cfg.ForceDownload = true
	_, err = NewFetcher(cfg, nil).Fetch(ctx, srv.URL+"/bucket/gt.json")
	assert.Error(t, err)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.com/gt.json"))
	assert.False(t, IsRemote("./gt.json"))
}
