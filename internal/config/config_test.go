package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seleluciano/API-LectorFacturas/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.URL)
	assert.Equal(t, "evals", cfg.Output.Dir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.OCR.Provider)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LECTOR_WORKERS", "8")
	t.Setenv("LECTOR_OCR_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LECTOR_LOG_FORMAT", "json")

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "openai", cfg.OCR.Provider)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_ConfigFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lector.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
workers: 2
ocr:
  provider: gemini
  model: gemini-1.5-pro
output:
  dir: out
`), 0644))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("workers", 4, "")
	flags.String("output", "evals", "")
	require.NoError(t, flags.Parse([]string{"--workers", "6"}))

	cfg, err := config.Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Workers, "explicit flag wins over file")
	assert.Equal(t, "out", cfg.Output.Dir, "unset flag keeps file value")
	assert.Equal(t, "gemini", cfg.OCR.Provider)
	assert.Equal(t, "gemini-1.5-pro", cfg.OCR.Model)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	t.Setenv("LECTOR_WORKERS", "0")
	_, err = config.Load("", nil)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := config.LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf, false)
	logger.Info("hidden")
	logger.Warn("shown", "file", "a.png")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"file":"a.png"`)

	buf.Reset()
	config.LogConfig{Level: "info"}.NewLogger(&buf, true).Debug("debug line")
	assert.Contains(t, buf.String(), "level=DEBUG")
}
