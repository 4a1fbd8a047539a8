package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupportedFile is returned when no source can read a file type.
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrNoText is returned when a source produced no text at all.
	ErrNoText = errors.New("no text extracted")
)

// TextSource turns a document on disk into raw OCR text.
type TextSource interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// SourceFunc adapts a plain function to TextSource.
type SourceFunc func(ctx context.Context, path string) (string, error)

func (f SourceFunc) ExtractText(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// Sidecar reads text that was produced ahead of time. A .txt path is read
// directly; any other path is read from "<path>.txt" or "<stem>.txt".
type Sidecar struct{}

func (Sidecar) ExtractText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for _, candidate := range sidecarCandidates(path) {
		data, err := os.ReadFile(candidate)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("reading %s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("no text file for %s: %w", path, os.ErrNotExist)
}

// HasSidecar reports whether Sidecar can serve path.
func HasSidecar(path string) bool {
	for _, candidate := range sidecarCandidates(path) {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

func sidecarCandidates(path string) []string {
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, ".txt") {
		return []string{path}
	}
	return []string{path + ".txt", strings.TrimSuffix(path, ext) + ".txt"}
}

// PDF reads the embedded text layer of a PDF. Scanned PDFs without a text
// layer yield ErrNoText.
type PDF struct{}

func (PDF) ExtractText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("reading pdf text %s: %w", path, err)
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, reader); err != nil {
		return "", fmt.Errorf("reading pdf text %s: %w", path, err)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoText)
	}
	return sb.String(), nil
}

// Router picks a source by file extension. Images prefer a sidecar text
// file and fall back to Image when one is configured.
type Router struct {
	Text  TextSource
	PDF   TextSource
	Image TextSource
}

// NewRouter returns a Router reading text and PDF files, with vision as the
// image source. vision may be nil.
func NewRouter(vision TextSource) *Router {
	return &Router{Text: Sidecar{}, PDF: PDF{}, Image: vision}
}

func (r *Router) ExtractText(ctx context.Context, path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt":
		return r.Text.ExtractText(ctx, path)
	case ".pdf":
		if HasSidecar(path) {
			return r.Text.ExtractText(ctx, path)
		}
		return r.PDF.ExtractText(ctx, path)
	case ".png", ".jpg", ".jpeg":
		if HasSidecar(path) || r.Image == nil {
			return r.Text.ExtractText(ctx, path)
		}
		return r.Image.ExtractText(ctx, path)
	default:
		return "", fmt.Errorf("%s: %w", ext, ErrUnsupportedFile)
	}
}
