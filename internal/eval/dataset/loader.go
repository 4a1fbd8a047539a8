package dataset

import (
	"bufio"
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/seleluciano/API-LectorFacturas/internal/invoice"
)

// ErrUnsupportedFormat is returned for ground truth paths the loader cannot read.
var ErrUnsupportedFormat = errors.New("unsupported ground truth format")

// ImageExtensions are the sibling files a dataset annotation can belong to, in lookup order.
var ImageExtensions = []string{".png", ".jpg", ".jpeg"}

//go:embed schema.json
var schemaJSON []byte

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// Validate checks one annotation against the dataset schema.
func Validate(data []byte) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal annotation: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("annotation does not match schema: %w", err)
	}
	return nil
}

// Loader reads ground truth keyed by document file name.
type Loader struct {
	datasetPath string
	logger      *slog.Logger
}

// NewLoader creates a loader for a dataset directory, a JSON map file, a
// JSONL file or a Parquet file.
func NewLoader(datasetPath string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		datasetPath: datasetPath,
		logger:      logger,
	}
}

// Load detects the format from the path and returns ground truth by file name.
func (l *Loader) Load() (map[string]invoice.GroundTruth, error) {
	info, err := os.Stat(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat ground truth: %w", err)
	}
	if info.IsDir() {
		return l.loadDirectory()
	}

	ext := strings.ToLower(filepath.Ext(l.datasetPath))
	switch ext {
	case ".json":
		return l.loadJSONMap()
	case ".jsonl":
		return l.loadJSONL()
	case ".parquet":
		return l.loadParquet()
	default:
		return nil, fmt.Errorf("%w: %s (supported: directory, .json, .jsonl, .parquet)", ErrUnsupportedFormat, ext)
	}
}

// loadDirectory reads one annotation per JSON file. Annotations are keyed by
// the sibling image; those without one are skipped.
func (l *Loader) loadDirectory() (map[string]invoice.GroundTruth, error) {
	jsonFiles, err := filepath.Glob(filepath.Join(l.datasetPath, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations: %w", err)
	}
	sort.Strings(jsonFiles)

	gt := make(map[string]invoice.GroundTruth, len(jsonFiles))
	for _, path := range jsonFiles {
		image := siblingImage(path)
		if image == "" {
			l.logger.Warn("No image found for annotation", "path", path)
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			l.logger.Error("Failed to read annotation", "path", path, "error", err)
			continue
		}
		if err := Validate(data); err != nil {
			l.logger.Error("Invalid annotation", "path", path, "error", err)
			continue
		}

		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			l.logger.Error("Failed to parse annotation", "path", path, "error", err)
			continue
		}

		gt[filepath.Base(image)] = record.GroundTruth()
		l.logger.Debug("Loaded annotation", "image", filepath.Base(image))
	}

	l.logger.Debug("Finished reading dataset directory", "annotations", len(jsonFiles), "loaded", len(gt))
	return gt, nil
}

func siblingImage(jsonPath string) string {
	base := strings.TrimSuffix(jsonPath, filepath.Ext(jsonPath))
	for _, ext := range ImageExtensions {
		candidate := base + ext
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// loadJSONMap reads {"file.png": {"sellerTaxId": "...", "items": [...]}}.
// Unknown keys are ignored.
func (l *Loader) loadJSONMap() (map[string]invoice.GroundTruth, error) {
	data, err := os.ReadFile(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ground truth: %w", err)
	}

	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse ground truth: %w", err)
	}

	gt := make(map[string]invoice.GroundTruth, len(raw))
	for filename, obj := range raw {
		doc := invoice.GroundTruth{Fields: invoice.Fields{}}
		for key, value := range obj {
			switch {
			case key == "items":
				if err := json.Unmarshal(value, &doc.Items); err != nil {
					return nil, fmt.Errorf("failed to parse items for %s: %w", filename, err)
				}
			case key == "rawText":
				var s invoice.FlexString
				if err := json.Unmarshal(value, &s); err != nil {
					return nil, fmt.Errorf("failed to parse rawText for %s: %w", filename, err)
				}
				doc.RawText = string(s)
			case invoice.FieldName(key).Valid():
				var s invoice.FlexString
				if err := json.Unmarshal(value, &s); err != nil {
					return nil, fmt.Errorf("failed to parse %s for %s: %w", key, filename, err)
				}
				if v := strings.TrimSpace(string(s)); v != "" {
					doc.Fields[invoice.FieldName(key)] = v
				}
			default:
				l.logger.Debug("Ignoring unknown ground truth key", "file", filename, "key", key)
			}
		}
		gt[filename] = doc
	}

	l.logger.Debug("Finished reading ground truth map", "documents", len(gt))
	return gt, nil
}

// loadJSONL reads one schema-validated Record per line.
func (l *Loader) loadJSONL() (map[string]invoice.GroundTruth, error) {
	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer file.Close()

	gt := map[string]invoice.GroundTruth{}
	scanner := bufio.NewScanner(file)

	const maxCapacity = 1024 * 1024 // 1MB per line
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if err := Validate(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		l.add(gt, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}

	l.logger.Debug("Finished reading JSONL file", "documents", len(gt), "total_lines", lineNum)
	return gt, nil
}

// loadParquet reads Records from a Parquet file
func (l *Loader) loadParquet() (map[string]invoice.GroundTruth, error) {
	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	l.logger.Debug("Parquet file opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Record](pf)
	defer reader.Close()

	gt := map[string]invoice.GroundTruth{}
	rows := make([]Record, 128)
	for {
		n, err := reader.Read(rows)
		for i := 0; i < n; i++ {
			l.add(gt, rows[i])
		}
		if err != nil {
			break
		}
	}

	l.logger.Debug("Finished reading Parquet file", "documents", len(gt))
	return gt, nil
}

func (l *Loader) add(gt map[string]invoice.GroundTruth, record Record) {
	name := filepath.Base(strings.TrimSpace(record.Filename))
	if name == "" || name == "." {
		l.logger.Warn("Skipping record without filename")
		return
	}
	if _, dup := gt[name]; dup {
		l.logger.Warn("Duplicate ground truth record, keeping the last one", "file", name)
	}
	gt[name] = record.GroundTruth()
}
