package evalcmd

import (
	"fmt"
	"io"
	"log/slog"
)

func executeCreateBatch(dir string, size int, output string, logger *slog.Logger, out io.Writer) error {
	docs, err := CollectDocuments(dir)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents found in %s", dir)
	}
	if size > 0 && len(docs) > size {
		docs = docs[:size]
	}

	if output == "" || output == "-" {
		for _, d := range docs {
			fmt.Fprintln(out, d)
		}
		return nil
	}
	if err := WriteBatchFile(output, docs); err != nil {
		return err
	}
	logger.Info("batch file written", "path", output, "documents", len(docs))
	return nil
}
