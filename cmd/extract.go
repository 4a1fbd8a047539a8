package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seleluciano/API-LectorFacturas/internal/evalcmd"
	"github.com/seleluciano/API-LectorFacturas/internal/extractor"
	"github.com/seleluciano/API-LectorFacturas/internal/invoice"
	"github.com/seleluciano/API-LectorFacturas/internal/segmenter"
)

// readDocument returns the text of args[0], or stdin when no file or "-" is given.
func readDocument(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	cfg, logger, err := evalcmd.LoadConfig(cmd)
	if err != nil {
		return "", err
	}
	source, closer, err := evalcmd.NewTextSource(cfg, logger)
	if err != nil {
		return "", err
	}
	defer closer.Close()
	return source.ExtractText(cmd.Context(), args[0])
}

func newExtractCmd() *cobra.Command {
	var first bool
	var noTypeDefault bool

	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract invoice fields from a document and print them as JSON",
		Long: `Extract invoice fields and line items from one document.

The document may be OCR text (a .txt file or stdin), a PDF with a text layer,
or an image with a sidecar .txt or a configured vision OCR provider. Documents
holding several invoices are split and every invoice is reported.`,
		Example: `  # Extract from OCR text
  lector extract factura.txt

  # From stdin, first invoice only
  cat factura.txt | lector extract --first

  # From an image using a local Ollama vision model
  LECTOR_OCR_PROVIDER=ollama lector extract factura.png`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readDocument(cmd, args)
			if err != nil {
				return err
			}

			ex := extractor.New(extractor.WithInvoiceTypeFallback(!noTypeDefault))
			var out any
			if first {
				out = ex.Extract(text)
			} else {
				segments := segmenter.New().Segment(text)
				invoices := make([]invoice.ExtractionResult, 0, len(segments))
				for _, seg := range segments {
					invoices = append(invoices, ex.Extract(seg))
				}
				out = invoices
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(out)
		},
	}

	cmd.Flags().BoolVar(&first, "first", false, "Treat the whole document as a single invoice")
	cmd.Flags().BoolVar(&noTypeDefault, "no-type-default", false, "Do not default the invoice type to A when only markers are found")

	return cmd
}

func newSegmentCmd() *cobra.Command {
	var minGap int

	cmd := &cobra.Command{
		Use:   "segment [file]",
		Short: "Show where a document splits into separate invoices",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readDocument(cmd, args)
			if err != nil {
				return err
			}

			seg := segmenter.New(segmenter.WithMinGap(minGap))
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Boundaries: %v\n", seg.Boundaries(text))
			for i, s := range seg.Segment(text) {
				fmt.Fprintf(w, "\n[%d] %d characters\n", i+1, len([]rune(s)))
				fmt.Fprintln(w, preview(s, 120))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&minGap, "min-gap", segmenter.MinBoundaryGap, "Minimum characters between two invoice starts")

	return cmd
}

func preview(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxLen {
		return string(r[:maxLen-3]) + "..."
	}
	return s
}
