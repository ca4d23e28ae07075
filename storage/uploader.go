package storage

import (
	"context"
	"io"
)

// StoredObject describes a successfully uploaded object.
type StoredObject struct {
	Key       string
	PublicURL string
	ETag      string
}

// FileUploader stores player avatars in object storage. The app runs fine
// without one configured; callers must tolerate a nil uploader.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*StoredObject, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}
