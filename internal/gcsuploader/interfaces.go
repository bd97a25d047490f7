package gcsuploader

import (
	"context"
)

// StorageService writes export objects to a storage bucket.
type StorageService interface {
	// UploadBytes stores data under the given object name and returns its gs:// URI.
	UploadBytes(ctx context.Context, bucketName, objectName, contentType string, data []byte) (string, error)
}

// GCSStorageService is the StorageService backed by Google Cloud Storage.
type GCSStorageService struct{}

// NewGCSStorageService creates a new instance of GCSStorageService.
func NewGCSStorageService() *GCSStorageService {
	return &GCSStorageService{}
}

// UploadBytes delegates to UploadBytes.
func (s *GCSStorageService) UploadBytes(ctx context.Context, bucketName, objectName, contentType string, data []byte) (string, error) {
	return UploadBytes(ctx, bucketName, objectName, contentType, data)
}

var _ StorageService = (*GCSStorageService)(nil)
