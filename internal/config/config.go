package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Workers     int               `mapstructure:"workers"`
	OCR         OCRConfig         `mapstructure:"ocr"`
	Ollama      OllamaConfig      `mapstructure:"ollama"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	Log         LogConfig         `mapstructure:"log"`
	Output      OutputConfig      `mapstructure:"output"`
	GroundTruth GroundTruthConfig `mapstructure:"ground_truth"`
}

// OCRConfig selects the vision provider used for images without a text sidecar.
// An empty Provider disables vision OCR. Cache is a bbolt file path; empty disables caching.
type OCRConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	Cache    string `mapstructure:"cache"`
}

type OllamaConfig struct {
	URL string `mapstructure:"url"`
}

type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
	URL    string `mapstructure:"url"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// GroundTruthConfig controls downloads of remote ground truth files.
type GroundTruthConfig struct {
	CacheDir string `mapstructure:"cache_dir"`
	Token    string `mapstructure:"token"`
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"workers":   "workers",
	"provider":  "ocr.provider",
	"model":     "ocr.model",
	"ocr-cache": "ocr.cache",
	"output":    "output.dir",
	"log-level": "log.level",
}

// Load reads configuration from defaults, an optional YAML file, environment
// variables with the LECTOR_ prefix and, when given, command line flags.
// Flags that were not set on the command line do not override other sources.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("workers", 4)
	v.SetDefault("ocr.provider", "")
	v.SetDefault("ocr.model", "")
	v.SetDefault("ocr.cache", "")
	v.SetDefault("ollama.url", "http://localhost:11434")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.url", "")
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("output.dir", "evals")
	v.SetDefault("ground_truth.cache_dir", "~/.cache/lector/ground-truth")
	v.SetDefault("ground_truth.token", "")

	// Provider credentials also come from their conventional variables.
	envBindings := map[string][]string{
		"ollama.url":         {"LECTOR_OLLAMA_URL", "OLLAMA_URL"},
		"openai.api_key":     {"LECTOR_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"gemini.api_key":     {"LECTOR_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"ground_truth.token": {"LECTOR_GROUND_TRUTH_TOKEN", "HF_TOKEN"},
	}
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	return cfg, nil
}

// NewLogger builds the process logger. verbose forces debug level.
func (c LogConfig) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
