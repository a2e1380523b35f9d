package media

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/google/uuid"
)

const DefaultMaxUploadBytes = 5 << 20

var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Upload is a single file received with an issue submission.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Object is what a Storage hands back after a successful Put.
type Object struct {
	Key string
	URL string
}

type Storage interface {
	Put(ctx context.Context, prefix string, upload Upload) (Object, error)
	Remove(ctx context.Context, key string) error
}

// Validate checks the upload against the accepted image types and maxBytes.
func Validate(upload Upload, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if _, ok := allowedContentTypes[normalizeContentType(upload.ContentType)]; !ok {
		return internal.NewValidationFieldError("images", "images must be JPEG, PNG, WebP or GIF", internal.ErrCodeInvalidMedia)
	}
	if upload.Size <= 0 || upload.Size > maxBytes {
		return internal.NewValidationFieldError("images", "image size is out of range", internal.ErrCodeInvalidMedia)
	}
	return nil
}

// ObjectKey builds a unique key under prefix, keeping a recognisable extension.
func ObjectKey(prefix string, upload Upload) string {
	ext := strings.ToLower(path.Ext(upload.Filename))
	if ext == "" {
		ext = allowedContentTypes[normalizeContentType(upload.ContentType)]
	}
	return path.Join(prefix, uuid.NewString()+ext)
}

func normalizeContentType(ct string) string {
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
