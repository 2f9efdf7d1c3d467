package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Bucket is a logical object storage container.
type Bucket string

const (
	BucketAvatars    Bucket = "avatars"
	BucketPostImages Bucket = "post-images"
)

func ParseBucket(s string) (Bucket, bool) {
	b := Bucket(strings.ToLower(strings.TrimSpace(s)))
	switch b {
	case BucketAvatars, BucketPostImages:
		return b, true
	}
	return "", false
}

// ObjectStore stores uploaded files and returns a public URL for them.
type ObjectStore interface {
	Put(ctx context.Context, bucket Bucket, key, contentType string, data []byte) (string, error)
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ObjectKey builds "<unix-nanos>-<8 hex>.<ext>". The extension follows the
// sniffed contentType; the uploaded file name is only consulted for types
// outside the image set.
func ObjectKey(fileName, contentType string, now time.Time) string {
	ext, ok := imageExtensions[contentType]
	if !ok {
		ext = strings.ToLower(filepath.Ext(fileName))
		if ext == "." {
			ext = ""
		}
	}
	return fmt.Sprintf("%d-%s%s", now.UnixNano(), uuid.NewString()[:8], ext)
}
