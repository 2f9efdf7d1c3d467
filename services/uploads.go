package services

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rpupo63/nexusnews-backend/auth"
	"github.com/rpupo63/nexusnews-backend/errs"
	"github.com/rpupo63/nexusnews-backend/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultMaxUploadBytes = 5 << 20

type Uploads struct {
	objects  storage.ObjectStore
	maxBytes int64
	retry    Retrier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewUploads(objects storage.ObjectStore, maxBytes int64, retry Retrier) *Uploads {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Uploads{
		objects:  objects,
		maxBytes: maxBytes,
		retry:    retry,
		logger:   log.With().Str("service", "uploads").Logger(),
		now:      time.Now,
	}
}

func (s *Uploads) MaxBytes() int64 {
	return s.maxBytes
}

// UploadImage stores an image in bucket and returns its public URL. Any
// signed-in user may upload avatars; post images are admin only.
func (s *Uploads) UploadImage(ctx context.Context, p auth.Principal, bucket, fileName string, data []byte) (string, error) {
	if err := p.RequireActive(); err != nil {
		return "", err
	}
	b, ok := storage.ParseBucket(bucket)
	if !ok {
		return "", errs.NewInvalidFieldError("bucket", "must be avatars or post-images")
	}
	if b == storage.BucketPostImages {
		if err := p.RequireAdmin(); err != nil {
			return "", err
		}
	}
	if len(data) == 0 {
		return "", errs.NewMissingRequiredFieldError("file")
	}
	if int64(len(data)) > s.maxBytes {
		return "", errs.NewMaxBodySizeExceededError(s.maxBytes)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", errs.NewUnsupportedMediaTypeError(contentType, []string{"image/png", "image/jpeg", "image/gif", "image/webp"})
	}

	key := storage.ObjectKey(fileName, contentType, s.now())
	url, err := retryValue(ctx, s.retry, "upload image", func(ctx context.Context) (string, error) {
		return s.objects.Put(ctx, b, key, contentType, data)
	})
	if err != nil {
		return "", err
	}
	s.logger.Info().Str("bucket", string(b)).Str("key", key).Int("bytes", len(data)).Str("by", p.UserID().String()).Msg("image uploaded")
	return url, nil
}
