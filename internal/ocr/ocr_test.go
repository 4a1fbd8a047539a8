package ocr_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seleluciano/API-LectorFacturas/internal/ocr"
	"github.com/seleluciano/API-LectorFacturas/internal/ollama"
	"github.com/seleluciano/API-LectorFacturas/internal/openai"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestSidecar(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "direct")
	writeFile(t, filepath.Join(dir, "b.png"), "png")
	writeFile(t, filepath.Join(dir, "b.png.txt"), "full name")
	writeFile(t, filepath.Join(dir, "c.jpg"), "jpg")
	writeFile(t, filepath.Join(dir, "c.txt"), "stem")
	ctx := context.Background()

	text, err := ocr.Sidecar{}.ExtractText(ctx, filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "direct", text)

	text, err = ocr.Sidecar{}.ExtractText(ctx, filepath.Join(dir, "b.png"))
	require.NoError(t, err)
	assert.Equal(t, "full name", text)

	text, err = ocr.Sidecar{}.ExtractText(ctx, filepath.Join(dir, "c.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "stem", text)

	_, err = ocr.Sidecar{}.ExtractText(ctx, filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRouter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "with.png"), "png")
	writeFile(t, filepath.Join(dir, "with.txt"), "sidecar text")
	writeFile(t, filepath.Join(dir, "without.png"), "png")
	ctx := context.Background()

	var visionCalls int
	vision := ocr.SourceFunc(func(ctx context.Context, path string) (string, error) {
		visionCalls++
		return "vision text", nil
	})
	router := ocr.NewRouter(vision)

	text, err := router.ExtractText(ctx, filepath.Join(dir, "with.png"))
	require.NoError(t, err)
	assert.Equal(t, "sidecar text", text)

	text, err = router.ExtractText(ctx, filepath.Join(dir, "without.png"))
	require.NoError(t, err)
	assert.Equal(t, "vision text", text)
	assert.Equal(t, 1, visionCalls)

	_, err = router.ExtractText(ctx, filepath.Join(dir, "doc.tiff"))
	assert.ErrorIs(t, err, ocr.ErrUnsupportedFile)

	_, err = ocr.NewRouter(nil).ExtractText(ctx, filepath.Join(dir, "without.png"))
	assert.Error(t, err, "no vision source and no sidecar")
}

func TestPDF_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	writeFile(t, path, "this is not a pdf")

	_, err := ocr.PDF{}.ExtractText(context.Background(), path)
	assert.Error(t, err)
}

func TestService_Ollama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var body struct {
			Model  string   `json:"model"`
			Prompt string   `json:"prompt"`
			Images []string `json:"images"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, ocr.DefaultModel("ollama"), body.Model)
		assert.Contains(t, body.Prompt, "invoice")
		assert.Len(t, body.Images, 1)

		json.NewEncoder(w).Encode(map[string]string{"response": "FACTURA A\nCUIT: 30-99999999-7"})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "f.png")
	writeFile(t, path, "png bytes")

	svc := ocr.NewService(ollama.New(srv.URL), "", nil)
	text, err := svc.ExtractText(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, text, "30-99999999-7")
	assert.Equal(t, "ollama/"+ocr.DefaultModel("ollama"), svc.Key())
}

func TestService_OpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices": [{"message": {"content": "Fecha de Emisión: 27/04/2025"}}]}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "f.jpg")
	writeFile(t, path, "jpg bytes")

	text, err := ocr.NewService(openai.New("key", srv.URL), "gpt-4o-mini", nil).ExtractText(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Fecha de Emisión: 27/04/2025", text)

	_, err = ocr.NewService(openai.New("", srv.URL), "", nil).ExtractText(context.Background(), path)
	assert.ErrorIs(t, err, openai.ErrMissingAPIKey)
}

func TestService_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response": "  "}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "f.png")
	writeFile(t, path, "png")

	_, err := ocr.NewService(ollama.New(srv.URL), "", nil).ExtractText(context.Background(), path)
	assert.ErrorIs(t, err, ocr.ErrNoText)
}

func TestNewProvider(t *testing.T) {
	for _, name := range []string{"", "ollama", "openai", "gemini"} {
		p, err := ocr.NewProvider(ocr.ProviderConfig{Provider: name})
		require.NoError(t, err, name)
		assert.NotEmpty(t, ocr.DefaultModel(p.Name()))
	}

	_, err := ocr.NewProvider(ocr.ProviderConfig{Provider: "tesseract"})
	assert.Error(t, err)
}

func TestCachedSource(t *testing.T) {
	dir := t.TempDir()
	cache, err := ocr.OpenCache(filepath.Join(dir, "ocr.db"))
	require.NoError(t, err)
	defer cache.Close()

	var calls atomic.Int32
	inner := ocr.SourceFunc(func(ctx context.Context, path string) (string, error) {
		calls.Add(1)
		data, err := os.ReadFile(path)
		return "ocr:" + string(data), err
	})
	src := &ocr.CachedSource{Inner: inner, Cache: cache, Name: "test/model"}

	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	writeFile(t, a, "same")
	writeFile(t, b, "same")

	ctx := context.Background()
	text, err := src.ExtractText(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "ocr:same", text)

	text, err = src.ExtractText(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "ocr:same", text)
	assert.EqualValues(t, 1, calls.Load(), "identical content is served from cache")

	writeFile(t, a, "changed")
	text, err = src.ExtractText(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "ocr:changed", text)
	assert.EqualValues(t, 2, calls.Load())

	other := &ocr.CachedSource{Inner: inner, Cache: cache, Name: "other/model"}
	_, err = other.ExtractText(ctx, b)
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load(), "entries are scoped by source name")

	n, err := cache.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
