package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seleluciano/API-LectorFacturas/internal/batch"
	"github.com/seleluciano/API-LectorFacturas/internal/eval/metrics"
)

// TimestampFormat names saved result files.
const TimestampFormat = "2006-01-02_15-04-05"

// RunConfig describes how a batch was produced.
type RunConfig struct {
	Provider    string `json:"provider" yaml:"provider"`
	Model       string `json:"model" yaml:"model"`
	DatasetPath string `json:"dataset_path" yaml:"dataset_path"`
	SampleSize  int    `json:"sample_size" yaml:"sample_size"`
	Workers     int    `json:"workers" yaml:"workers"`
	Timestamp   string `json:"timestamp" yaml:"timestamp"`
}

// Report is the saved form of a batch run.
type Report struct {
	Config    RunConfig              `json:"config" yaml:"config"`
	RunID     string                 `json:"run_id" yaml:"run_id"`
	StartedAt time.Time              `json:"started_at" yaml:"started_at"`
	Stats     metrics.Summary        `json:"stats" yaml:"stats"`
	Fields    *metrics.FieldAnalysis `json:"field_analysis,omitempty" yaml:"field_analysis,omitempty"`
	Files     []batch.FileResult     `json:"files" yaml:"files"`
}

// New builds a Report from a finished batch. The field analysis is only
// present when at least one document was scored.
func New(res *batch.Result, cfg RunConfig) *Report {
	if cfg.Timestamp == "" {
		cfg.Timestamp = res.StartedAt.Format(TimestampFormat)
	}
	r := &Report{
		Config:    cfg,
		RunID:     res.RunID.String(),
		StartedAt: res.StartedAt,
		Stats:     res.Stats,
		Files:     res.Files,
	}
	if scored := res.Scored(); len(scored) > 0 {
		r.Fields = metrics.AnalyzeFields(scored)
	}
	return r
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// BaseName is "<model or run id>-<timestamp>" with path-unsafe characters replaced.
func (r *Report) BaseName() string {
	name := r.Config.Model
	if name == "" {
		name = r.RunID
	}
	return unsafeName.ReplaceAllString(name, "_") + "-" + r.Config.Timestamp
}

// SaveYAML writes the report to dir/<BaseName>.yaml and returns the path.
func (r *Report) SaveYAML(dir string) (string, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return writeOutput(dir, r.BaseName()+".yaml", data)
}

// SaveJSON writes the indented report to dir/<BaseName>.json and returns the path.
func (r *Report) SaveJSON(dir string) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return writeOutput(dir, r.BaseName()+".json", data)
}

// Load reads a report saved by SaveYAML or SaveJSON.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	var r Report
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &r)
	case ".json":
		err = json.Unmarshal(data, &r)
	default:
		return nil, fmt.Errorf("unsupported results file: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse results %s: %w", path, err)
	}
	return &r, nil
}

// Latest returns the most recently modified report in dir.
func Latest(dir string) (string, error) {
	var latest string
	var latestMod time.Time
	for _, pattern := range []string{"*.yaml", "*.json"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return "", err
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				continue
			}
			if latest == "" || info.ModTime().After(latestMod) {
				latest, latestMod = m, info.ModTime()
			}
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no results found in %s", dir)
	}
	return latest, nil
}

func writeOutput(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
