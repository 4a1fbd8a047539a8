package evalcmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/seleluciano/API-LectorFacturas/internal/invoice"
)

func executeInspect(ctx context.Context, gt map[string]invoice.GroundTruth, limit int, interactive, showText bool, out io.Writer) error {
	names := make([]string, 0, len(gt))
	for name := range gt {
		names = append(names, name)
	}
	slices.Sort(names)
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	fmt.Fprintf(out, "Loaded %d ground truth documents\n", len(gt))
	fmt.Fprintln(out, strings.Repeat("=", 80))
	fmt.Fprintln(out)

	reader := bufio.NewReader(os.Stdin)

	for i, name := range names {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nInspection interrupted.")
			return nil
		default:
		}

		doc := gt[name]
		fmt.Fprintf(out, "DOCUMENT %d/%d: %s\n", i+1, len(names), name)
		fmt.Fprintln(out, strings.Repeat("-", 80))

		for _, field := range invoice.AllFields() {
			if v := doc.Fields.Get(field); v != "" {
				fmt.Fprintf(out, "%-18s %s\n", string(field)+":", v)
			}
		}
		fmt.Fprintf(out, "Items:             %d\n", len(doc.Items))
		for j, item := range doc.Items {
			fmt.Fprintf(out, "  %d. %s | qty %s | price %s", j+1, item.Descripcion, item.Cantidad, item.PrecioUnitario)
			if item.ImporteBonificacion != "" {
				fmt.Fprintf(out, " | discount %s", item.ImporteBonificacion)
			}
			fmt.Fprintln(out)
		}

		if showText {
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Reference text length: %d characters\n", len(doc.RawText))
			fmt.Fprintln(out, strings.Repeat("-", 80))
			fmt.Fprintln(out, doc.RawText)
			fmt.Fprintln(out, strings.Repeat("-", 80))
		}
		fmt.Fprintln(out)

		if interactive {
			fmt.Fprint(out, "Press Enter to continue to next document (or Ctrl+C to quit)...")

			inputCh := make(chan struct{})
			go func() {
				_, _ = reader.ReadString('\n')
				close(inputCh)
			}()

			select {
			case <-ctx.Done():
				fmt.Fprintln(out, "\nInspection interrupted.")
				return nil
			case <-inputCh:
				fmt.Fprintln(out)
			}
		}
	}

	return nil
}
