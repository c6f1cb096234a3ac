package gcs

import (
	"context"
)

// StorageService provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// UploadBytes writes data to bucketName/objectName with the given content type.
	UploadBytes(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error

	// FetchFromGCS downloads object bytes from a gs:// URI.
	FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error)
}
