package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/seleluciano/API-LectorFacturas/internal/invoice"
)

// DefaultCacheDir holds downloaded ground truth files.
const DefaultCacheDir = "~/.cache/lector/ground-truth"

// FetchConfig configures remote ground truth downloads
type FetchConfig struct {
	CacheDir      string
	ForceDownload bool
	Token         string // bearer token for private buckets
	Client        *http.Client
}

// Fetcher downloads ground truth files published over HTTP and caches them locally.
type Fetcher struct {
	config FetchConfig
	logger *slog.Logger
}

// NewFetcher creates a fetcher, expanding a leading ~ in the cache directory.
func NewFetcher(config FetchConfig, logger *slog.Logger) *Fetcher {
	if config.CacheDir == "" {
		config.CacheDir = DefaultCacheDir
	}
	if strings.HasPrefix(config.CacheDir, "~") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			config.CacheDir = filepath.Join(homeDir, config.CacheDir[1:])
		}
	}
	if config.Client == nil {
		config.Client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{config: config, logger: logger}
}

// IsRemote reports whether location is an http(s) URL.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Fetch returns a local path for rawURL, downloading it unless already cached.
// The cached name keeps the URL's extension so Loader can detect the format.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid ground truth URL: %w", err)
	}

	if err := os.MkdirAll(f.config.CacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	sum := sha256.Sum256([]byte(rawURL))
	name := hex.EncodeToString(sum[:8]) + "-" + path.Base(u.Path)
	cachedPath := filepath.Join(f.config.CacheDir, name)

	if !f.config.ForceDownload {
		if _, err := os.Stat(cachedPath); err == nil {
			f.logger.Info("Using cached ground truth", "path", cachedPath)
			return cachedPath, nil
		}
	}

	f.logger.Info("Downloading ground truth", "url", rawURL)
	if err := f.download(ctx, rawURL, cachedPath); err != nil {
		return "", fmt.Errorf("failed to download ground truth: %w", err)
	}
	return cachedPath, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if f.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.config.Token)
	}

	resp, err := f.config.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	tempPath := destPath + ".tmp"
	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tempPath, destPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to move file: %w", err)
	}

	f.logger.Debug("Ground truth downloaded", "path", destPath, "bytes", n)
	return nil
}

// Resolve loads ground truth from a local path or an http(s) URL.
func Resolve(ctx context.Context, location string, config FetchConfig, logger *slog.Logger) (map[string]invoice.GroundTruth, error) {
	if IsRemote(location) {
		local, err := NewFetcher(config, logger).Fetch(ctx, location)
		if err != nil {
			return nil, err
		}
		location = local
	}
	return NewLoader(location, logger).Load()
}
