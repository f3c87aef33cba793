package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AssetStore persists uploaded binaries on disk and hands back stable URLs.
// The engine only ever stores and validates the returned URL string.
type AssetStore struct {
	baseDir string
	baseURL string
}

// NewAssetStore ensures the base directory exists and returns a handle.
func NewAssetStore(baseDir, baseURL string) (*AssetStore, error) {
	if baseDir == "" {
		baseDir = "./assets"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create assets directory: %w", err)
	}
	return &AssetStore{baseDir: baseDir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Store writes the given bytes under a generated asset name and returns the
// public URL for it. The extension is preserved when the caller supplies one.
func (s *AssetStore) Store(data []byte, originalName string) (string, error) {
	name := uuid.NewString()
	if ext := filepath.Ext(originalName); ext != "" {
		name += ext
	}
	path := filepath.Join(s.baseDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write asset file: %w", err)
	}
	return s.URL(name), nil
}

// StoreStream copies from reader into a new asset file.
func (s *AssetStore) StoreStream(r io.Reader, originalName string) (string, error) {
	name := uuid.NewString()
	if ext := filepath.Ext(originalName); ext != "" {
		name += ext
	}
	path := filepath.Join(s.baseDir, name)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create asset file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		return "", fmt.Errorf("write asset stream: %w", err)
	}
	return s.URL(name), nil
}

// Open returns a read-only handle for a stored asset.
func (s *AssetStore) Open(name string) (*os.File, error) {
	file, err := os.Open(filepath.Join(s.baseDir, filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("open asset file: %w", err)
	}
	return file, nil
}

// Delete removes a stored asset if present.
func (s *AssetStore) Delete(name string) error {
	if err := os.Remove(filepath.Join(s.baseDir, filepath.Base(name))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete asset file: %w", err)
	}
	return nil
}

// CleanupOlderThan removes assets older than the provided TTL and returns
// deleted names. Used by housekeeping, never by the engine itself.
func (s *AssetStore) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	deleted := make([]string, 0)
	err := filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		deleted = append(deleted, filepath.Base(path))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup assets: %w", err)
	}
	return deleted, nil
}

// URL returns the public URL for a stored asset name.
func (s *AssetStore) URL(name string) string {
	return s.baseURL + "/" + filepath.Base(name)
}
