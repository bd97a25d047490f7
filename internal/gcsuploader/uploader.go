// Package gcsuploader writes ledger exports to Google Cloud Storage.
package gcsuploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// UploadTimeout bounds a single object upload.
const UploadTimeout = 2 * time.Minute

// UploadBytes writes data to bucketName/objectName and returns the object's URI.
// It assumes Application Default Credentials are configured.
func UploadBytes(ctx context.Context, bucketName, objectName, contentType string, data []byte) (string, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, UploadTimeout)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy export to GCS writer: %w", err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return ObjectURI(bucketName, objectName), nil
}

// ObjectURI formats a gs:// URI.
func ObjectURI(bucketName, objectName string) string {
	return "gs://" + bucketName + "/" + strings.TrimPrefix(objectName, "/")
}

// ParseURI splits a gs:// URI into bucket and object path.
func ParseURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}
	parts := strings.SplitN(strings.TrimPrefix(gcsURI, "gs://"), "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}

// ExportObjectName returns the dated object path for an export, e.g.
// "exports/2026/10/17/<id>.json".
func ExportObjectName(takenAt time.Time, id string) string {
	return path.Join("exports", takenAt.UTC().Format("2006/01/02"), id+".json")
}
