// Package storage validates image uploads and writes them to a blob backend.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/anonto42/chirp/backend/internal/services"
)

// MaxUploadBytes caps a single image.
const MaxUploadBytes = 5 << 20

// Kind selects the object path layout.
type Kind string

const (
	KindAvatar Kind = "avatar"
	KindPost   Kind = "post"
)

// AllowedTypes maps accepted MIME types to the extension objects are stored
// under. The client's filename never picks the extension.
var AllowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/heic": "heic",
}

// Backend stores an object and returns its public URL
type Backend interface {
	Put(ctx context.Context, path, contentType string, body io.Reader) (string, error)
}

// Uploader checks images before handing them to a Backend
type Uploader struct {
	backend Backend
	now     func() time.Time
}

// NewUploader creates a new Uploader
func NewUploader(backend Backend) *Uploader {
	return &Uploader{backend: backend, now: time.Now}
}

// Upload validates body and stores it under the path for owner and kind.
// Nothing is written when validation fails.
func (u *Uploader) Upload(ctx context.Context, owner string, kind Kind, body io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	contentType, ext, err := Validate(data)
	if err != nil {
		return "", err
	}
	path, err := ObjectPath(owner, kind, ext, u.now())
	if err != nil {
		return "", err
	}
	return u.backend.Put(ctx, path, contentType, bytes.NewReader(data))
}

// Close releases the backend when it holds a client.
func (u *Uploader) Close() error {
	if c, ok := u.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Validate enforces the size cap and sniffs the content type. It returns the
// MIME type and the extension to store the object under.
func Validate(data []byte) (string, string, error) {
	if len(data) == 0 {
		return "", "", services.New(services.ErrInvalidUpload, "file is empty")
	}
	if len(data) > MaxUploadBytes {
		return "", "", services.New(services.ErrInvalidUpload, "file exceeds 5 MB")
	}
	mtype := mimetype.Detect(data)
	contentType := strings.SplitN(mtype.String(), ";", 2)[0]
	ext, ok := AllowedTypes[contentType]
	if !ok {
		return "", "", services.New(services.ErrInvalidUpload, "unsupported image type "+contentType)
	}
	return contentType, ext, nil
}

// ObjectPath lays out avatars/<uid>/avatar.<ext> and posts/<uid>/<unixms>.<ext>.
func ObjectPath(owner string, kind Kind, ext string, at time.Time) (string, error) {
	if owner == "" || strings.ContainsAny(owner, `/\`) {
		return "", services.New(services.ErrInvalidUpload, "invalid owner")
	}
	switch kind {
	case KindAvatar:
		return fmt.Sprintf("avatars/%s/avatar.%s", owner, ext), nil
	case KindPost:
		return fmt.Sprintf("posts/%s/%d.%s", owner, at.UnixMilli(), ext), nil
	default:
		return "", services.New(services.ErrInvalidUpload, "unknown upload kind")
	}
}
