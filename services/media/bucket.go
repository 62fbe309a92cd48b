package media

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ObjectStore is satisfied by *s3.Client.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key, contentType string, r io.Reader, size int64, sha256 string) error
	DeleteObjects(ctx context.Context, bucket string, keys []string) error
}

// Bucket names the media bucket and the public URL its objects are served from.
type Bucket struct {
	Name      string
	PublicURL string
}

func (b Bucket) validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return errors.New("bucket name is required")
	}
	if strings.TrimSpace(b.PublicURL) == "" {
		return errors.New("bucket public url is required")
	}
	return nil
}

func (b Bucket) base() string { return strings.TrimRight(b.PublicURL, "/") + "/" }

// URL returns the public URL of key.
func (b Bucket) URL(key string) string { return b.base() + strings.TrimLeft(key, "/") }

// Key reports the object key behind a public URL, or false when the URL points elsewhere.
func (b Bucket) Key(rawURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	key, ok := strings.CutPrefix(rawURL, b.base())
	if !ok || key == "" {
		return "", false
	}
	return key, true
}
