// Package cache stores raw manifest bytes so that variant reselections can
// re-filter a recently fetched master playlist without another round trip,
// and so upstream outages can fall back to the last good copy.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrNotFound is returned when no entry exists for a key.
var ErrNotFound = errors.New("cache: entry not found")

// Storage defines the interface for cache operations
type Storage interface {
	Get(key string) (*Entry, error)
	Set(key string, content []byte) error
	IsExpired(key string, ttl time.Duration) (bool, error)
}

// Entry represents a cached manifest with its fetch timestamp
type Entry struct {
	Content   []byte    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// FileStorage implements Storage using the file system
type FileStorage struct {
	baseDir string
}

// NewFileStorage creates a new file-based cache storage.
// It ensures the cache directory exists before returning.
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("cache directory cannot be empty")
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileStorage{
		baseDir: baseDir,
	}, nil
}

// Get retrieves a cached entry by key
func (fs *FileStorage) Get(key string) (*Entry, error) {
	filePath := fs.getFilePath(key)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}

	return &entry, nil
}

// Set stores content in the cache with the current timestamp
func (fs *FileStorage) Set(key string, content []byte) error {
	entry := Entry{
		Content:   content,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	filePath := fs.getFilePath(key)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create cache subdirectory: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	return nil
}

// IsExpired checks if a cache entry has exceeded the TTL
func (fs *FileStorage) IsExpired(key string, ttl time.Duration) (bool, error) {
	entry, err := fs.Get(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return true, nil
		}
		return false, fmt.Errorf("failed to check expiration: %w", err)
	}

	return time.Since(entry.Timestamp) > ttl, nil
}

// getFilePath generates a file path from a cache key.
// The key is hashed to create a safe filename.
func (fs *FileStorage) getFilePath(key string) string {
	hash := sha256.Sum256([]byte(key))
	filename := hex.EncodeToString(hash[:]) + ".json"
	return filepath.Join(fs.baseDir, filename)
}

// MemoryStorage implements Storage in process memory. It is the default for
// an embedded player where spilling manifests to disk buys nothing.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStorage creates an empty in-memory cache storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		entries: make(map[string]*Entry),
	}
}

// Get retrieves a cached entry by key
func (ms *MemoryStorage) Get(key string) (*Entry, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	entry, ok := ms.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return entry, nil
}

// Set stores content in the cache with the current timestamp
func (ms *MemoryStorage) Set(key string, content []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.entries[key] = &Entry{
		Content:   append([]byte(nil), content...),
		Timestamp: time.Now(),
	}
	return nil
}

// IsExpired checks if a cache entry has exceeded the TTL
func (ms *MemoryStorage) IsExpired(key string, ttl time.Duration) (bool, error) {
	entry, err := ms.Get(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return true, nil
		}
		return false, err
	}
	return time.Since(entry.Timestamp) > ttl, nil
}

// DeriveKeyFromURL creates a cache key from a manifest URL
func DeriveKeyFromURL(url string) string {
	return url
}
