package evalcmd

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// DocumentExtensions are the inputs a batch can process.
var DocumentExtensions = []string{".jpg", ".jpeg", ".png", ".pdf", ".txt"}

func isDocument(path string) bool {
	return slices.Contains(DocumentExtensions, strings.ToLower(filepath.Ext(path)))
}

// CollectDocuments walks dir and returns every document, sorted. Text files
// that sit next to an image or PDF of the same name are that document's OCR
// sidecar, not documents of their own.
func CollectDocuments(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isDocument(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	present := make(map[string]bool, len(paths))
	for _, p := range paths {
		present[p] = true
	}
	docs := paths[:0]
	for _, p := range paths {
		if isSidecar(p, present) {
			continue
		}
		docs = append(docs, p)
	}
	slices.Sort(docs)
	return docs, nil
}

func isSidecar(path string, present map[string]bool) bool {
	if !strings.EqualFold(filepath.Ext(path), ".txt") {
		return false
	}
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	if filepath.Ext(stem) != "" && present[stem] {
		return true
	}
	for _, ext := range DocumentExtensions {
		if ext != ".txt" && present[stem+ext] {
			return true
		}
	}
	return false
}

// ExpandInputs turns files and directories into a document list, keeping
// the order given and sorting within directories.
func ExpandInputs(inputs []string) ([]string, error) {
	var out []string
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, in)
			continue
		}
		docs, err := CollectDocuments(in)
		if err != nil {
			return nil, err
		}
		out = append(out, docs...)
	}
	return out, nil
}

// ReadBatchFile reads one path per line, skipping blanks and # comments.
func ReadBatchFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return paths, nil
}

// WriteBatchFile writes one path per line.
func WriteBatchFile(path string, paths []string) error {
	var sb strings.Builder
	for _, p := range paths {
		sb.WriteString(p)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write batch file: %w", err)
	}
	return nil
}
