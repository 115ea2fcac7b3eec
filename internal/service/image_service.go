package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/lostfound-api/pkg/imaging"
	appErrors "github.com/noah-isme/lostfound-api/pkg/errors"
	"github.com/noah-isme/lostfound-api/pkg/storage"
)

const storedImagePrefix = "items/"

type imageStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (io.ReadCloser, error)
	Delete(name string) error
}

type imageProcessor interface {
	Process(data []byte) ([]byte, error)
}

// ImageService stores uploaded item photos and hands out expiring links to
// them. An item image reference is either an external URL supplied by the
// client or a key under items/ written by Store.
type ImageService struct {
	storage   imageStorage
	processor imageProcessor
	signer    *storage.SignedURLSigner
	basePath  string
	maxBytes  int64
	logger    *zap.Logger
}

// NewImageService wires image storage. basePath is the public route prefix
// that serves signed tokens, e.g. /api/v1/images.
func NewImageService(store imageStorage, processor imageProcessor, signer *storage.SignedURLSigner, basePath string, maxBytes int64, logger *zap.Logger) *ImageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if processor == nil {
		processor = imaging.NewProcessor()
	}
	return &ImageService{
		storage:   store,
		processor: processor,
		signer:    signer,
		basePath:  strings.TrimRight(basePath, "/"),
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// MaxBytes is the largest accepted upload.
func (s *ImageService) MaxBytes() int64 {
	return s.maxBytes
}

// IsStored reports whether ref points at a file this service wrote.
func IsStored(ref string) bool {
	return strings.HasPrefix(ref, storedImagePrefix)
}

// Store normalises data and writes it for itemID, returning the new key.
func (s *ImageService) Store(itemID string, data []byte) (string, error) {
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", appErrors.Validation(fmt.Sprintf("image: must be at most %d bytes", s.maxBytes))
	}
	processed, err := s.processor.Process(data)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupportedFormat) {
			return "", appErrors.Validation("image: must be a JPEG, PNG or WebP file")
		}
		return "", appErrors.Validation("image: could not be decoded")
	}

	key := fmt.Sprintf("%s%s/%s.jpg", storedImagePrefix, itemID, uuid.NewString())
	if _, err := s.storage.Save(key, processed); err != nil {
		return "", appErrors.Internal(err, "failed to store image")
	}
	return key, nil
}

// URL resolves an image reference to something a browser can load.
func (s *ImageService) URL(itemID string, ref *string) string {
	if ref == nil || *ref == "" {
		return ""
	}
	if !IsStored(*ref) {
		return *ref
	}
	if s == nil {
		return ""
	}
	token, _, err := s.signer.Generate(itemID, *ref)
	if err != nil {
		s.logger.Warn("failed to sign image url", zap.String("item_id", itemID), zap.Error(err))
		return ""
	}
	return s.basePath + "/" + token
}

// Open resolves a signed token to the stored file.
func (s *ImageService) Open(token string) (io.ReadCloser, string, error) {
	_, key, err := s.signer.Parse(token)
	if err != nil || !IsStored(key) {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "image not found")
	}
	file, err := s.storage.Open(key)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "image not found")
	}
	return file, imaging.OutputMIME, nil
}

// Remove deletes a stored image. External URLs are ignored and failures are
// only logged.
func (s *ImageService) Remove(_ context.Context, ref string) {
	if s == nil || !IsStored(ref) {
		return
	}
	if err := s.storage.Delete(ref); err != nil {
		s.logger.Warn("failed to delete stored image", zap.String("key", ref), zap.Error(err))
	}
}
