package service

import (
	"io"
	"path/filepath"
	"strings"
	"time"

	appErrors "github.com/atelier-labs/commission-api/pkg/errors"
	"github.com/atelier-labs/commission-api/pkg/storage"
)

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// UploadedAsset describes a stored reference or checkpoint image.
type UploadedAsset struct {
	URL       string    `json:"url"`
	SignedURL string    `json:"signed_url,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// UploadService stores reference and checkpoint images and mints short-lived
// signed links for them.
type UploadService struct {
	store    *storage.AssetStore
	signer   *storage.SignedURLSigner
	maxBytes int64
}

func NewUploadService(store *storage.AssetStore, signer *storage.SignedURLSigner, maxBytes int64) *UploadService {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &UploadService{store: store, signer: signer, maxBytes: maxBytes}
}

// StoreImage persists an uploaded image and returns its public and signed
// URLs. Size is enforced while reading so oversized bodies never land on
// disk.
func (s *UploadService) StoreImage(r io.Reader, originalName string, declaredSize int64) (*UploadedAsset, error) {
	if declaredSize > s.maxBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds maximum upload size")
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedImageExtensions[ext] {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported image type")
	}

	limited := io.LimitReader(r, s.maxBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > s.maxBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds maximum upload size")
	}

	url, err := s.store.Store(data, originalName)
	if err != nil {
		return nil, err
	}

	asset := &UploadedAsset{URL: url}
	if s.signer != nil {
		name := filepath.Base(url)
		signed, expiresAt, err := s.signer.Generate(name)
		if err == nil {
			asset.SignedURL = signed
			asset.ExpiresAt = expiresAt
		}
	}
	return asset, nil
}
