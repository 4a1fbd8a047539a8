package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seleluciano/API-LectorFacturas/internal/invoice"
)

const sampleText = "FACTURA ... CUIT: 30-99999999-7 ... DNI: 20-12345678-9 ... Subtotal: $1.000,00 ... Importe Total: $1.210,00 ..."

func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestExtractCmd_Stdin(t *testing.T) {
	out := execute(t, sampleText, "extract", "--first")

	var res invoice.ExtractionResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "30-99999999-7", res.Fields.Get(invoice.SellerTaxID))
	assert.Equal(t, "210,00", res.Fields.Get(invoice.TaxDue))
}

func TestExtractCmd_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "factura.txt")
	require.NoError(t, os.WriteFile(path, []byte(sampleText), 0644))

	out := execute(t, "", "extract", path)

	var res []invoice.ExtractionResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res, 1)
	assert.Equal(t, "20-12345678-9", res[0].Fields.Get(invoice.BuyerTaxID))
}

func TestSegmentCmd(t *testing.T) {
	text := "FACTURA A N° 0001-00000001 uno " + strings.Repeat("x", 600) + " FACTURA A N° 0001-00000002 dos"

	out := execute(t, text, "segment")

	assert.Contains(t, out, "Boundaries: [0 633]")
	assert.Contains(t, out, "[2] ")
}
