package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.etcd.io/bbolt"
)

const cacheBucket = "ocr_text"

type cacheEntry struct {
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Cache stores OCR text keyed by document content, so an unchanged file is
// never sent to a provider twice.
type Cache struct {
	db *bbolt.DB
}

// OpenCache opens (or creates) the cache database at path.
func OpenCache(path string) (*Cache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening ocr cache: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(cacheBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache bucket: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached text for key.
func (c *Cache) Get(key string) (string, bool, error) {
	var entry *cacheEntry
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(cacheBucket)).Get([]byte(key))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return "", false, fmt.Errorf("reading cache entry: %w", err)
	}
	if entry == nil {
		return "", false, nil
	}
	return entry.Text, true, nil
}

// Put stores text under key.
func (c *Cache) Put(key, source, text string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(cacheEntry{Text: text, Source: source, CreatedAt: time.Now().UTC()})
		if err != nil {
			return fmt.Errorf("marshaling cache entry: %w", err)
		}
		return tx.Bucket([]byte(cacheBucket)).Put([]byte(key), data)
	})
}

// Len returns the number of cached documents.
func (c *Cache) Len() (int, error) {
	n := 0
	err := c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(cacheBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

// CachedSource serves text from a Cache and fills it from Inner on a miss.
type CachedSource struct {
	Inner  TextSource
	Cache  *Cache
	Name   string // distinguishes entries produced by different providers or models
	Logger *slog.Logger
}

func (s *CachedSource) ExtractText(ctx context.Context, path string) (string, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	key, err := contentKey(path, s.Name)
	if err != nil {
		return "", err
	}
	if text, ok, err := s.Cache.Get(key); err != nil {
		logger.Warn("ocr cache read failed", "file", path, "error", err)
	} else if ok {
		logger.Debug("ocr cache hit", "file", path)
		return text, nil
	}

	text, err := s.Inner.ExtractText(ctx, path)
	if err != nil {
		return "", err
	}
	if err := s.Cache.Put(key, s.Name, text); err != nil {
		logger.Warn("ocr cache write failed", "file", path, "error", err)
	}
	return text, nil
}

func contentKey(path, name string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	io.WriteString(h, name)
	h.Write([]byte{0})
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
