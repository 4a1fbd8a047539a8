package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/seleluciano/API-LectorFacturas/internal/gemini"
	"github.com/seleluciano/API-LectorFacturas/internal/ollama"
	"github.com/seleluciano/API-LectorFacturas/internal/openai"
	"github.com/seleluciano/API-LectorFacturas/internal/providers"
)

// ProviderConfig selects and configures the vision provider.
type ProviderConfig struct {
	Provider     string // ollama, openai or gemini
	Model        string
	OllamaURL    string
	OpenAIKey    string
	OpenAIURL    string
	GeminiAPIKey string
}

// NewProvider builds the named vision provider.
func NewProvider(cfg ProviderConfig) (providers.Provider, error) {
	switch cfg.Provider {
	case "", "ollama":
		return ollama.New(cfg.OllamaURL), nil
	case "openai":
		return openai.New(cfg.OpenAIKey, cfg.OpenAIURL), nil
	case "gemini":
		return gemini.New(cfg.GeminiAPIKey), nil
	default:
		return nil, fmt.Errorf("unsupported OCR provider: %s", cfg.Provider)
	}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o"
	case "gemini":
		return "gemini-1.5-flash"
	case "", "ollama":
		return "mistral-small3.2:24b"
	default:
		return ""
	}
}

// Service transcribes invoice images with an LLM vision provider.
type Service struct {
	provider providers.Provider
	model    string
	logger   *slog.Logger
}

// NewService returns a vision Service. An empty model uses DefaultModel.
func NewService(provider providers.Provider, model string, logger *slog.Logger) *Service {
	if model == "" {
		model = DefaultModel(provider.Name())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{provider: provider, model: model, logger: logger}
}

// ExtractText reads the image at path and returns its transcription.
func (s *Service) ExtractText(ctx context.Context, path string) (string, error) {
	mime, ok := imageMIMETypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("%s: %w", path, ErrUnsupportedFile)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image file: %w", err)
	}

	start := time.Now()
	text, err := s.provider.ExtractText(ctx, providers.Config{
		Model:       s.model,
		Temperature: 0,
		Prompt:      buildOCRPrompt(),
		Image:       data,
		MIMEType:    mime,
	})
	if err != nil {
		return "", fmt.Errorf("%s ocr failed: %w", s.provider.Name(), err)
	}
	s.logger.Debug("ocr complete",
		"file", path,
		"provider", s.provider.Name(),
		"model", s.model,
		"duration", time.Since(start),
		"chars", len(text))

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoText)
	}
	return text, nil
}

// Key identifies the provider and model for caching.
func (s *Service) Key() string {
	return s.provider.Name() + "/" + s.model
}

var imageMIMETypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

func buildOCRPrompt() string {
	return `You are performing OCR (Optical Character Recognition) on a scanned Argentine invoice (factura).

Your task is to extract ALL visible text from the image exactly as it appears, preserving:
- Line breaks and the order of the invoice sections
- Tax identifiers (CUIT) with their dashes
- Dates in DD/MM/YYYY form
- Amounts with their original separators (for example 1.234,56)
- Item table rows, one row per line

INSTRUCTIONS:
1. Read the image from top to bottom, left to right
2. Transcribe every piece of visible text, including headers such as ORIGINAL or DUPLICADO
3. Do not translate, normalize or reformat numbers
4. Do not add any interpretation, commentary, or explanations
5. If text is unclear, transcribe what you can see and use [?] for illegible portions

OUTPUT FORMAT:
Provide ONLY the extracted text. Do not include phrases like "Here is the text:".`
}
