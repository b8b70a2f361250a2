package services

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/codyseavey/card-comps/backend/internal/metrics"
)

// ErrUnsupportedImage rejects uploads that are not JPEG, PNG or WebP
var ErrUnsupportedImage = errors.New("unsupported image type")

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ImageExtension sniffs image data and returns the file extension to stage it under
func ImageExtension(imageData []byte) (string, error) {
	ext, ok := imageExtensions[http.DetectContentType(imageData)]
	if !ok {
		return "", ErrUnsupportedImage
	}
	return ext, nil
}

// UploadStorageService stages uploaded images on disk for the browser's
// file input. Staged files are removed once the search finishes.
type UploadStorageService struct {
	storageDir string
}

// NewUploadStorageService creates the staging directory if needed
func NewUploadStorageService(storageDir string) *UploadStorageService {
	if storageDir == "" {
		storageDir = "./data/uploads"
	}

	// Ensure the storage directory exists
	if err := os.MkdirAll(storageDir, 0755); err != nil {
		// Log error but don't fail - will fail on actual writes
		log.Printf("Upload storage: could not create %s: %v", storageDir, err)
	}

	return &UploadStorageService{
		storageDir: storageDir,
	}
}

// Stage writes image data under a random name and returns its path.
// The content type is sniffed from the bytes, not trusted from the client.
func (s *UploadStorageService) Stage(imageData []byte) (string, error) {
	if len(imageData) == 0 {
		return "", fmt.Errorf("empty image data")
	}

	ext, err := ImageExtension(imageData)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return "", err
	}

	path := filepath.Join(s.storageDir, uuid.New().String()+ext)
	if err := os.WriteFile(path, imageData, 0644); err != nil {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("failed to stage image: %w", err)
	}
	metrics.UploadsTotal.WithLabelValues("ok").Inc()
	return path, nil
}

// Remove deletes a staged file. Missing files are not an error.
func (s *UploadStorageService) Remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Upload storage: failed to remove %s: %v", path, err)
	}
}
