package providers

import (
	"context"
)

// Config represents one vision request to an LLM provider
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	Image       []byte
	MIMEType    string // e.g. "image/png"
}

// Provider defines the interface for an LLM provider that can read images
type Provider interface {
	Name() string
	ExtractText(ctx context.Context, config Config) (string, error)
}
