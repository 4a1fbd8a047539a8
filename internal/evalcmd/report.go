package evalcmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/seleluciano/API-LectorFacturas/internal/eval/results"
)

func executeReport(location, format string, details bool, out io.Writer) error {
	path := location
	if info, err := os.Stat(location); err == nil && info.IsDir() {
		latest, err := results.Latest(location)
		if err != nil {
			return err
		}
		path = latest
	}

	report, err := results.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}

	switch format {
	case "text":
		report.WritePerformanceReport(out)
		if details {
			report.WriteDetails(out)
		}
		return nil
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "csv":
		return report.WriteCSV(out)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
