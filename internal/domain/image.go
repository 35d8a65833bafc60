package domain

import (
	"context"
)

// ImageHost stores client avatars outside the client record.
type ImageHost interface {
	// Upload stores the payload under namespace and returns its reference.
	Upload(ctx context.Context, upload *ImageUpload, namespace string) (HostedImage, error)
	// Delete removes a previously uploaded image.
	Delete(ctx context.Context, id string) error
}

// FileStore abstracts raw file byte storage. Implementations exist for
// SQLite and Postgres BLOBs and for S3.
type FileStore interface {
	Save(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
}
