package evalcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/seleluciano/API-LectorFacturas/internal/config"
	"github.com/seleluciano/API-LectorFacturas/internal/eval/dataset"
	"github.com/seleluciano/API-LectorFacturas/internal/invoice"
	"github.com/seleluciano/API-LectorFacturas/internal/ocr"
)

// LoadConfig reads configuration for cmd, honouring the root --config and
// --verbose flags, and installs the resulting logger as the default.
func LoadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	configFile, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.Log.NewLogger(os.Stderr, verbose)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// NewTextSource builds the document reader described by cfg. The returned
// closer releases the OCR cache, if one was opened.
func NewTextSource(cfg *config.Config, logger *slog.Logger) (ocr.TextSource, io.Closer, error) {
	if cfg.OCR.Provider == "" {
		return ocr.NewRouter(nil), io.NopCloser(nil), nil
	}

	provider, err := ocr.NewProvider(ocr.ProviderConfig{
		Provider:     cfg.OCR.Provider,
		Model:        cfg.OCR.Model,
		OllamaURL:    cfg.Ollama.URL,
		OpenAIKey:    cfg.OpenAI.APIKey,
		OpenAIURL:    cfg.OpenAI.URL,
		GeminiAPIKey: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, nil, err
	}
	vision := ocr.NewService(provider, cfg.OCR.Model, logger)
	logger.Info("vision OCR enabled", "provider", provider.Name(), "key", vision.Key())

	if cfg.OCR.Cache == "" {
		return ocr.NewRouter(vision), io.NopCloser(nil), nil
	}
	cache, err := ocr.OpenCache(cfg.OCR.Cache)
	if err != nil {
		return nil, nil, err
	}
	cached := &ocr.CachedSource{Inner: vision, Cache: cache, Name: vision.Key(), Logger: logger}
	return ocr.NewRouter(cached), cache, nil
}

// loadGroundTruth resolves a local path or http(s) URL. An empty location
// means no scoring.
func loadGroundTruth(ctx context.Context, location string, cfg *config.Config, force bool, logger *slog.Logger) (map[string]invoice.GroundTruth, error) {
	if location == "" {
		return nil, nil
	}
	gt, err := dataset.Resolve(ctx, location, dataset.FetchConfig{
		CacheDir:      cfg.GroundTruth.CacheDir,
		ForceDownload: force,
		Token:         cfg.GroundTruth.Token,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load ground truth: %w", err)
	}
	logger.Info("ground truth loaded", "documents", len(gt), "source", location)
	return gt, nil
}
