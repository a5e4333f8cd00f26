package port

import (
	"context"
	"io"
)

// UploadInput describes a payload upload to object storage.
type UploadInput struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
}

// UploadOutput holds the result of an upload.
type UploadOutput struct {
	Location string
	ETag     string
}

// ObjectStorage defines the contract for raw payload archival.
type ObjectStorage interface {
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
}
