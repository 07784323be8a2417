// internal/metadata/gcs.go
package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
)

const gcsObjectPrefix = "metadata"

// GCSUploader stores documents in a public Google Cloud Storage bucket.
type GCSUploader struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

// NewGCSUploader uses Application Default Credentials.
func NewGCSUploader(ctx context.Context, bucket, publicBaseURL string) (*GCSUploader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSUploader{client: client, bucket: bucket, publicBaseURL: publicBaseURL}, nil
}

func (u *GCSUploader) Upload(ctx context.Context, data []byte) (string, error) {
	object := objectName(data)

	w := u.client.Bucket(u.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	w.CacheControl = "public, max-age=31536000, immutable"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize object %s: %w", object, err)
	}
	return publicObjectURL(u.publicBaseURL, u.bucket, object), nil
}

func (u *GCSUploader) Close() error {
	return u.client.Close()
}

// objectName адресует документ по содержимому, повторная загрузка перезапишет тот же объект.
func objectName(data []byte) string {
	sum := sha256.Sum256(data)
	return path.Join(gcsObjectPrefix, hex.EncodeToString(sum[:16])+".json")
}

func publicObjectURL(base, bucket, object string) string {
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + object
}
